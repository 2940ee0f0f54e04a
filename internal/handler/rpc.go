package handler

import (
	"encoding/json"

	"github.com/spillit/spillit/internal/ierr"
)

// Request is the envelope for everything crossing the realtime surface.
// Client requests (joinRoom, leaveRoom, chatMessage, heartbeat) carry an id
// and expect a Response; server-push notifications (userList, message) are
// Requests without an id and are never answered.
type Request struct {
	Id     int              `json:"id,omitempty"`
	Method string           `json:"method"`
	Params *json.RawMessage `json:"params,omitempty"`
}

// NewNotification builds a server-to-client push. The write pump uses it to
// wrap queued events before they hit the wire.
func NewNotification(method string, params *json.RawMessage) Request {
	return Request{
		Method: method,
		Params: params,
	}
}

func (r Request) ReplyExpected() bool {
	return r.Id != 0
}

func (r Request) Reply(result *json.RawMessage) Response {
	return Response{
		RequestId: r.Id,
		Result:    result,
	}
}

func (r Request) ReplyWithError(err ierr.Error) Response {
	return Response{
		RequestId: r.Id,
		Error:     &err,
	}
}

// Response answers exactly one Request, correlated by RequestId. Result and
// Error are mutually exclusive.
type Response struct {
	RequestId int              `json:"requestId,omitempty"`
	Result    *json.RawMessage `json:"result,omitempty"`
	Error     *ierr.Error      `json:"error,omitempty"`
}

func (r Response) IsFailure() bool {
	return r.Error != nil
}
