package server

import (
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"
)

// OriginChecker decides which browser origins may open websocket
// connections. Origins are normalized to scheme://host before comparison;
// "*" in the configured list allows everything.
type OriginChecker struct {
	logger *zap.Logger

	allowAll bool
	allowed  map[string]struct{}
}

func NewOriginChecker(logger *zap.Logger, origins []string) *OriginChecker {
	checker := &OriginChecker{
		logger:  logger,
		allowed: make(map[string]struct{}),
	}

	for _, origin := range origins {
		trimmed := strings.TrimSpace(origin)
		if trimmed == "" {
			continue
		}

		if trimmed == "*" {
			checker.allowAll = true
			continue
		}

		normalized, ok := normalizeOrigin(trimmed)
		if !ok {
			logger.Warn("ignoring invalid origin in configuration", zap.String("origin", origin))
			continue
		}

		checker.allowed[normalized] = struct{}{}
	}

	return checker
}

func (c *OriginChecker) Check(r *http.Request) bool {
	if c.allowAll {
		return true
	}

	originHeader := r.Header.Get("Origin")
	if originHeader == "" {
		// Non-browser clients send no Origin header.
		return true
	}

	normalized, ok := normalizeOrigin(originHeader)
	if !ok {
		return false
	}

	if _, exists := c.allowed[normalized]; exists {
		return true
	}

	c.logger.Warn("blocked websocket connection from disallowed origin",
		zap.String("origin", originHeader))

	return false
}

func normalizeOrigin(origin string) (string, bool) {
	parsed, err := url.Parse(origin)
	if err != nil {
		return "", false
	}

	if parsed.Scheme == "" || parsed.Host == "" {
		return "", false
	}

	return strings.ToLower(parsed.Scheme) + "://" + strings.ToLower(parsed.Host), true
}
