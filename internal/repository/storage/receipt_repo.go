// Package storage holds blob storage repositories for receipt files.
package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/google/uuid"
)

// ReceiptRepository defines the interface for receipt blob storage
type ReceiptRepository interface {
	Upload(ctx context.Context, objectPath string, data io.Reader, contentType string, size int64) (string, error)
	Delete(ctx context.Context, objectPath string) error
	GeneratePresignedURL(ctx context.Context, objectPath string, expiry time.Duration) (string, error)
}

// GenerateObjectPath creates a unique object path for a receipt variant.
// Layout: <expenseID>/<uuid>_<variant><ext>
func GenerateObjectPath(expenseID int32, variant string, ext string) string {
	id := uuid.New().String()
	filename := fmt.Sprintf("%s_%s%s", id, variant, ext)
	return path.Join(fmt.Sprintf("%d", expenseID), filename)
}
