package server

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/spillit/spillit/internal/handler"
	"github.com/spillit/spillit/internal/ierr"
	"go.uber.org/zap"
)

type Router struct {
	logger *zap.Logger

	heartbeatHandler   *handler.HeartbeatHandler
	joinRoomHandler    *handler.JoinRoomHandler
	leaveRoomHandler   *handler.LeaveRoomHandler
	chatMessageHandler *handler.ChatMessageHandler
}

func NewRouter(
	logger *zap.Logger,
	heartbeatHandler *handler.HeartbeatHandler,
	joinRoomHandler *handler.JoinRoomHandler,
	leaveRoomHandler *handler.LeaveRoomHandler,
	chatMessageHandler *handler.ChatMessageHandler,
) *Router {
	return &Router{
		logger,
		heartbeatHandler,
		joinRoomHandler,
		leaveRoomHandler,
		chatMessageHandler,
	}
}

func (r *Router) RouteRequest(ctx context.Context, request handler.Request) *handler.Response {
	response, err := r.Handle(ctx, request)
	if err != nil {
		response := request.ReplyWithError(r.mapError(err))

		return &response
	}

	if !request.ReplyExpected() {
		return nil
	}

	rawJson, err := json.Marshal(response)
	if err != nil {
		response := request.ReplyWithError(r.mapError(err))

		return &response
	}

	payload := json.RawMessage(rawJson)
	reply := request.Reply(&payload)

	return &reply
}

func (r *Router) Handle(ctx context.Context, request handler.Request) (any, error) {
	switch request.Method {
	case "heartbeat":
		return r.heartbeatHandler.Handle(), nil
	case "joinRoom":
		var joinReq handler.JoinRoomRequest
		if err := decodeParams(request.Params, &joinReq); err != nil {
			return nil, err
		}

		return r.joinRoomHandler.Handle(ctx, joinReq)
	case "leaveRoom":
		var leaveReq handler.LeaveRoomRequest
		if err := decodeParams(request.Params, &leaveReq); err != nil {
			return nil, err
		}

		return r.leaveRoomHandler.Handle(ctx, leaveReq)
	case "chatMessage":
		var messageReq handler.ChatMessageRequest
		if err := decodeParams(request.Params, &messageReq); err != nil {
			return nil, err
		}

		return r.chatMessageHandler.Handle(ctx, messageReq)
	default:
		return nil, ierr.New(ierr.ErrorCodeNotFound, errors.New("method not found: "+request.Method))
	}
}

func (r *Router) mapError(err error) ierr.Error {
	var handlerErr ierr.Error
	if errors.As(err, &handlerErr) {
		if handlerErr.Code == ierr.ErrorCodeUnknownConnection {
			r.logger.Error("internal consistency fault", zap.Error(err))
		}

		return handlerErr
	}

	r.logger.Error("error in rpc handler", zap.Error(err))

	return ierr.New(ierr.ErrorCodeInternal, errors.New("internal error"))
}

func decodeParams(params *json.RawMessage, v any) error {
	if params == nil {
		return ierr.New(ierr.ErrorCodeInvalidArgument, errors.New("missing params"))
	}

	if err := json.Unmarshal(*params, v); err != nil {
		return ierr.New(ierr.ErrorCodeInvalidArgument, errors.New("invalid params: "+err.Error()))
	}

	return nil
}
