package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Storage persists opaque blobs by key. Get returns errors.ErrBlobNotFound when the key is
// absent; Delete of an absent key is not an error.
type Storage interface {
	Get(c context.Context, key string) ([]byte, error)
	Set(c context.Context, key string, value []byte) error
	Delete(c context.Context, key string) error
}

func CartKey(prefix string, shopperID uuid.UUID) string {
	return fmt.Sprintf("%s:%s", prefix, shopperID.String())
}
