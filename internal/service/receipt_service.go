package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/rs/zerolog/log"

	"github.com/tallyhq/tally-backend/internal/authz"
	"github.com/tallyhq/tally-backend/internal/domain"
	"github.com/tallyhq/tally-backend/internal/repository/storage"
)

const (
	MaxReceiptSize    = 5 * 1024 * 1024 // 5MB
	MinReceiptWidth   = 50
	MinReceiptHeight  = 50
	ThumbnailWidth    = 200
	JPEGQuality       = 85
	presignedURLValid = 15 * time.Minute
)

var (
	ErrReceiptTooLarge             = errors.New("file too large. Maximum size is 5MB")
	ErrInvalidReceiptFormat        = errors.New("invalid format. Supported: JPEG, PNG, WebP")
	ErrReceiptTooSmall             = errors.New("image too small. Minimum 50x50 pixels")
	ErrInvalidReceiptData          = errors.New("invalid image data")
	ErrReceiptStorageNotConfigured = errors.New("receipt storage not configured")
)

// AllowedReceiptExtensions maps extensions to content types
var AllowedReceiptExtensions = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
}

// ReceiptMetadata contains presigned URLs for a stored receipt
type ReceiptMetadata struct {
	ExpenseID    int32  `json:"expenseId"`
	URL          string `json:"url"`
	ThumbnailURL string `json:"thumbnailUrl"`
}

// ReceiptService attaches receipt images to expenses. Access follows
// the expense's own permissions: reading the receipt needs read access
// to the expense, attaching or removing one is an update.
type ReceiptService struct {
	storage        storage.ReceiptRepository
	expenseRepo    domain.ExpenseRepository
	membershipRepo domain.MembershipRepository
}

// NewReceiptService creates a new ReceiptService
func NewReceiptService(storage storage.ReceiptRepository, expenseRepo domain.ExpenseRepository, membershipRepo domain.MembershipRepository) *ReceiptService {
	return &ReceiptService{
		storage:        storage,
		expenseRepo:    expenseRepo,
		membershipRepo: membershipRepo,
	}
}

// IsEnabled indicates whether uploads/deletes are supported (storage configured).
func (s *ReceiptService) IsEnabled() bool {
	return s != nil && s.storage != nil
}

// Upload validates the image, stores the original plus a thumbnail and
// records the object path on the expense. An existing receipt is
// replaced.
func (s *ReceiptService) Upload(ctx context.Context, principal domain.Principal, expenseID int32, data []byte, filename string) (*ReceiptMetadata, error) {
	if !s.IsEnabled() {
		return nil, ErrReceiptStorageNotConfigured
	}

	expense, err := s.authorizeExpense(ctx, principal, expenseID, authz.OpUpdate)
	if err != nil {
		return nil, err
	}

	img, err := validateAndDecodeReceipt(data, filename)
	if err != nil {
		return nil, err
	}

	originalPath := storage.GenerateObjectPath(expenseID, "original", ".jpg")
	thumbPath := strings.Replace(originalPath, "_original", "_thumb", 1)

	// Original is re-encoded to JPEG so all stored variants share one
	// format.
	if err := s.uploadVariant(ctx, originalPath, img, 0); err != nil {
		return nil, err
	}
	if err := s.uploadVariant(ctx, thumbPath, img, ThumbnailWidth); err != nil {
		_ = s.storage.Delete(ctx, originalPath)
		return nil, err
	}

	// Replace any previous receipt after the new one is in place.
	oldPath := expense.ReceiptURL
	if err := s.expenseRepo.SetReceiptURL(ctx, expenseID, &originalPath); err != nil {
		_ = s.storage.Delete(ctx, originalPath)
		_ = s.storage.Delete(ctx, thumbPath)
		return nil, err
	}
	if oldPath != nil {
		s.deleteVariants(ctx, *oldPath)
	}

	log.Info().Int32("expense_id", expenseID).Str("path", originalPath).Msg("Receipt uploaded")
	return s.presign(ctx, expenseID, originalPath)
}

// Get returns presigned URLs for the expense's receipt
func (s *ReceiptService) Get(ctx context.Context, principal domain.Principal, expenseID int32) (*ReceiptMetadata, error) {
	if !s.IsEnabled() {
		return nil, ErrReceiptStorageNotConfigured
	}

	expense, err := s.authorizeExpense(ctx, principal, expenseID, authz.OpRead)
	if err != nil {
		return nil, err
	}
	if expense.ReceiptURL == nil {
		return nil, domain.ErrReceiptNotFound
	}

	return s.presign(ctx, expenseID, *expense.ReceiptURL)
}

// Delete removes the expense's receipt and its stored variants
func (s *ReceiptService) Delete(ctx context.Context, principal domain.Principal, expenseID int32) error {
	if !s.IsEnabled() {
		return ErrReceiptStorageNotConfigured
	}

	expense, err := s.authorizeExpense(ctx, principal, expenseID, authz.OpUpdate)
	if err != nil {
		return err
	}
	if expense.ReceiptURL == nil {
		return domain.ErrReceiptNotFound
	}

	if err := s.expenseRepo.SetReceiptURL(ctx, expenseID, nil); err != nil {
		return err
	}
	s.deleteVariants(ctx, *expense.ReceiptURL)

	log.Info().Int32("expense_id", expenseID).Msg("Receipt deleted")
	return nil
}

// authorizeExpense loads the expense and checks the operation against
// its scope.
func (s *ReceiptService) authorizeExpense(ctx context.Context, principal domain.Principal, expenseID int32, op authz.Operation) (*domain.Expense, error) {
	expense, err := s.expenseRepo.GetByID(ctx, expenseID)
	if err != nil {
		return nil, err
	}
	m, err := membershipFor(ctx, s.membershipRepo, principal, expense.Scope())
	if err != nil {
		return nil, err
	}
	if d := authz.Evaluate(principal, authz.ResourceRef{Scope: expense.Scope(), CreatorID: expense.UserID}, op, m); !d.Allowed {
		return nil, d.Err(op)
	}
	return expense, nil
}

func (s *ReceiptService) uploadVariant(ctx context.Context, objectPath string, img image.Image, maxWidth int) error {
	processed := img
	if maxWidth > 0 && img.Bounds().Dx() > maxWidth {
		// Resize maintaining aspect ratio
		processed = imaging.Resize(img, maxWidth, 0, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, processed, &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return fmt.Errorf("failed to encode image: %w", err)
	}

	_, err := s.storage.Upload(ctx, objectPath, bytes.NewReader(buf.Bytes()), "image/jpeg", int64(buf.Len()))
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", objectPath, err)
	}
	return nil
}

func (s *ReceiptService) presign(ctx context.Context, expenseID int32, originalPath string) (*ReceiptMetadata, error) {
	url, err := s.storage.GeneratePresignedURL(ctx, originalPath, presignedURLValid)
	if err != nil {
		return nil, err
	}
	thumbURL, err := s.storage.GeneratePresignedURL(ctx, strings.Replace(originalPath, "_original", "_thumb", 1), presignedURLValid)
	if err != nil {
		return nil, err
	}
	return &ReceiptMetadata{ExpenseID: expenseID, URL: url, ThumbnailURL: thumbURL}, nil
}

// deleteVariants best-effort removes both stored variants
func (s *ReceiptService) deleteVariants(ctx context.Context, originalPath string) {
	if err := s.storage.Delete(ctx, originalPath); err != nil {
		log.Warn().Err(err).Str("path", originalPath).Msg("Failed to delete receipt object")
	}
	thumbPath := strings.Replace(originalPath, "_original", "_thumb", 1)
	if err := s.storage.Delete(ctx, thumbPath); err != nil {
		log.Warn().Err(err).Str("path", thumbPath).Msg("Failed to delete receipt thumbnail")
	}
}

// validateAndDecodeReceipt validates the upload and returns the decoded image
func validateAndDecodeReceipt(data []byte, filename string) (image.Image, error) {
	// Check file size
	if len(data) > MaxReceiptSize {
		return nil, ErrReceiptTooLarge
	}

	// Check file extension
	ext := strings.ToLower(filepath.Ext(filename))
	if _, ok := AllowedReceiptExtensions[ext]; !ok {
		return nil, ErrInvalidReceiptFormat
	}

	// Decode image to verify it's valid and check dimensions
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, ErrInvalidReceiptData
	}

	bounds := img.Bounds()
	if bounds.Dx() < MinReceiptWidth || bounds.Dy() < MinReceiptHeight {
		return nil, ErrReceiptTooSmall
	}

	return img, nil
}
