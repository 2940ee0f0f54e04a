package persistence

import (
	"context"
	"time"
)

type Account struct {
	Id           string
	Username     string
	Email        string
	PasswordHash string
	CreateTime   time.Time
}

// RoomInfo is declared room metadata. The realtime layer never consults it;
// clients may join arbitrary room names while the listing endpoint
// enumerates only declared rooms.
type RoomInfo struct {
	Id          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

type CreateAccountRequest struct {
	Username     string
	Email        string
	PasswordHash string
}

type Store interface {
	Setup(ctx context.Context) error
	CreateAccount(ctx context.Context, request CreateAccountRequest) (Account, error)
	FindAccountByEmail(ctx context.Context, email string) (Account, error)
	ListRooms(ctx context.Context) ([]RoomInfo, error)
}
