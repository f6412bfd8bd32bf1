package session

import (
	"context"
	"errors"
)

var ErrNoSlot = errors.New("session slot not found")

// Store keeps named slots of opaque data per session id.
type Store interface {
	Get(ctx context.Context, sid, slot string) ([]byte, error)
	Set(ctx context.Context, sid, slot string, data []byte) error
	Delete(ctx context.Context, sid, slot string) error
}
