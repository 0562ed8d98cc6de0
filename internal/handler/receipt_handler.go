package handler

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/tallyhq/tally-backend/internal/middleware"
	"github.com/tallyhq/tally-backend/internal/service"
)

// ReceiptHandler handles receipt attachment HTTP requests
type ReceiptHandler struct {
	receiptService *service.ReceiptService
}

// NewReceiptHandler creates a new ReceiptHandler
func NewReceiptHandler(receiptService *service.ReceiptService) *ReceiptHandler {
	return &ReceiptHandler{receiptService: receiptService}
}

// UploadReceipt godoc
// @Summary Attach a receipt image to an expense
// @Description Store the image and a thumbnail; replaces any existing receipt
// @Tags receipts
// @Accept multipart/form-data
// @Produce json
// @Param id path int true "Expense ID"
// @Param file formData file true "Receipt image (JPEG, PNG or WebP, max 5MB)"
// @Success 201 {object} service.ReceiptMetadata
// @Failure 400 {object} ProblemDetails
// @Failure 403 {object} ProblemDetails
// @Router /expenses/{id}/receipt [post]
func (h *ReceiptHandler) UploadReceipt(c echo.Context) error {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		return NewUnauthorizedError(c, "Authentication required")
	}

	// If storage isn't configured, don't attempt to process/upload.
	if h.receiptService == nil || !h.receiptService.IsEnabled() {
		return NewServiceUnavailableError(c, "Receipt uploads are disabled (storage not configured)")
	}

	expenseID, err := parseIDParam(c, "id")
	if err != nil {
		return NewValidationError(c, "Invalid expense ID", nil)
	}

	file, err := c.FormFile("file")
	if err != nil {
		return NewValidationError(c, "No file provided", []ValidationError{
			{Field: "file", Message: "File is required"},
		})
	}

	src, err := file.Open()
	if err != nil {
		log.Error().Err(err).Msg("Failed to open uploaded file")
		return NewInternalError(c, "Failed to process file")
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		log.Error().Err(err).Msg("Failed to read uploaded file")
		return NewInternalError(c, "Failed to read file")
	}

	metadata, err := h.receiptService.Upload(c.Request().Context(), principal, expenseID, data, file.Filename)
	if err != nil {
		switch err {
		case service.ErrReceiptTooLarge:
			return NewValidationError(c, "Validation failed", []ValidationError{
				{Field: "file", Message: "File too large. Maximum size is 5MB"},
			})
		case service.ErrInvalidReceiptFormat:
			return NewValidationError(c, "Validation failed", []ValidationError{
				{Field: "file", Message: "Invalid format. Supported: JPEG, PNG, WebP"},
			})
		case service.ErrReceiptTooSmall:
			return NewValidationError(c, "Validation failed", []ValidationError{
				{Field: "file", Message: "Image too small. Minimum 50x50 pixels"},
			})
		case service.ErrInvalidReceiptData:
			return NewValidationError(c, "Validation failed", []ValidationError{
				{Field: "file", Message: "Invalid image data"},
			})
		}
		return respondDomainError(c, err)
	}
	return c.JSON(http.StatusCreated, metadata)
}

// GetReceipt godoc
// @Summary Get presigned URLs for an expense's receipt
// @Tags receipts
// @Produce json
// @Param id path int true "Expense ID"
// @Success 200 {object} service.ReceiptMetadata
// @Failure 404 {object} ProblemDetails
// @Router /expenses/{id}/receipt [get]
func (h *ReceiptHandler) GetReceipt(c echo.Context) error {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		return NewUnauthorizedError(c, "Authentication required")
	}

	if h.receiptService == nil || !h.receiptService.IsEnabled() {
		return NewServiceUnavailableError(c, "Receipt storage is not configured")
	}

	expenseID, err := parseIDParam(c, "id")
	if err != nil {
		return NewValidationError(c, "Invalid expense ID", nil)
	}

	metadata, err := h.receiptService.Get(c.Request().Context(), principal, expenseID)
	if err != nil {
		return respondDomainError(c, err)
	}
	return c.JSON(http.StatusOK, metadata)
}

// DeleteReceipt godoc
// @Summary Remove an expense's receipt
// @Tags receipts
// @Produce json
// @Param id path int true "Expense ID"
// @Success 204
// @Failure 403 {object} ProblemDetails
// @Failure 404 {object} ProblemDetails
// @Router /expenses/{id}/receipt [delete]
func (h *ReceiptHandler) DeleteReceipt(c echo.Context) error {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		return NewUnauthorizedError(c, "Authentication required")
	}

	if h.receiptService == nil || !h.receiptService.IsEnabled() {
		return NewServiceUnavailableError(c, "Receipt storage is not configured")
	}

	expenseID, err := parseIDParam(c, "id")
	if err != nil {
		return NewValidationError(c, "Invalid expense ID", nil)
	}

	if err := h.receiptService.Delete(c.Request().Context(), principal, expenseID); err != nil {
		return respondDomainError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
