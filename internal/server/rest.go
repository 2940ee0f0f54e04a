package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/spillit/spillit/internal/auth"
	"github.com/spillit/spillit/internal/ierr"
	"github.com/spillit/spillit/internal/persistence"
	"go.uber.org/zap"
)

// RESTServer carries the request/response surface around the realtime
// core: account signup and login, the session-gated profile, and the
// declared-room listing.
type RESTServer struct {
	logger   *zap.Logger
	store    persistence.Store
	sessions *auth.SessionManager
}

func NewRESTServer(
	logger *zap.Logger,
	store persistence.Store,
	sessions *auth.SessionManager,
) *RESTServer {
	return &RESTServer{
		logger:   logger,
		store:    store,
		sessions: sessions,
	}
}

func (s *RESTServer) Register(router *mux.Router) {
	router.HandleFunc("/signup", s.handleSignup).Methods("POST")
	router.HandleFunc("/login", s.handleLogin).Methods("POST")
	router.HandleFunc("/profile", s.handleProfile).Methods("GET")
	router.HandleFunc("/rooms", s.handleListRooms).Methods("GET")
}

type SignupRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type SignupResponse struct {
	Id       string `json:"id"`
	Username string `json:"username"`
}

func (s *RESTServer) handleSignup(w http.ResponseWriter, r *http.Request) {
	var request SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if request.Username == "" || request.Email == "" || request.Password == "" {
		s.writeError(w, http.StatusBadRequest, "username, email and password are required")
		return
	}

	passwordHash, err := auth.HashPassword(request.Password)
	if err != nil {
		s.logger.Error("failed to hash password", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to create account")
		return
	}

	account, err := s.store.CreateAccount(r.Context(), persistence.CreateAccountRequest{
		Username:     request.Username,
		Email:        request.Email,
		PasswordHash: passwordHash,
	})
	if err != nil {
		var coded ierr.Error
		if errors.As(err, &coded) && coded.Code == ierr.ErrorCodeAlreadyExists {
			s.writeError(w, http.StatusConflict, "an account with this email already exists")
			return
		}

		s.logger.Error("failed to create account", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to create account")
		return
	}

	s.logger.Info("account created",
		zap.String("accountId", account.Id),
		zap.String("username", account.Username))

	s.writeJSON(w, http.StatusCreated, SignupResponse{
		Id:       account.Id,
		Username: account.Username,
	})
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token       string `json:"token"`
	DisplayName string `json:"displayName"`
}

func (s *RESTServer) handleLogin(w http.ResponseWriter, r *http.Request) {
	var request LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	account, err := s.store.FindAccountByEmail(r.Context(), request.Email)
	if err != nil {
		var coded ierr.Error
		if errors.As(err, &coded) && coded.Code == ierr.ErrorCodeNotFound {
			s.writeError(w, http.StatusUnauthorized, "invalid email or password")
			return
		}

		s.logger.Error("failed to look up account", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "login failed")
		return
	}

	match, err := auth.ComparePassword(request.Password, account.PasswordHash)
	if err != nil || !match {
		s.writeError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}

	token, err := s.sessions.Issue(auth.Identity{
		Id:          account.Id,
		DisplayName: account.Username,
	})
	if err != nil {
		s.logger.Error("failed to issue session token", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "login failed")
		return
	}

	s.writeJSON(w, http.StatusOK, LoginResponse{
		Token:       token,
		DisplayName: account.Username,
	})
}

type ProfileResponse struct {
	Id          string `json:"id"`
	DisplayName string `json:"displayName"`
}

func (s *RESTServer) handleProfile(w http.ResponseWriter, r *http.Request) {
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok {
		s.writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	resolution, err := s.sessions.Resolve(token)
	if err != nil {
		s.writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	s.writeJSON(w, http.StatusOK, ProfileResponse{
		Id:          resolution.Identity.Id,
		DisplayName: resolution.Identity.DisplayName,
	})
}

func (s *RESTServer) handleListRooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := s.store.ListRooms(r.Context())
	if err != nil {
		s.logger.Error("failed to list rooms", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to list rooms")
		return
	}

	if rooms == nil {
		rooms = []persistence.RoomInfo{}
	}

	s.writeJSON(w, http.StatusOK, rooms)
}

func (s *RESTServer) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response", zap.Error(err))
	}
}

func (s *RESTServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
