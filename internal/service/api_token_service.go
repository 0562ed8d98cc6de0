package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/tallyhq/tally-backend/internal/domain"
)

const (
	// tokenPrefix is the prefix for all API tokens
	tokenPrefix = "tly_"
	// tokenRandomBytes is the number of random bytes for the token (32 bytes = 256 bits)
	tokenRandomBytes = 32
	// tokenPrefixLength is the length of the displayable prefix (e.g., "tly_abc...xyz")
	tokenPrefixLength = 8
	// maxTokensPerUser is the maximum number of active tokens per user
	maxTokensPerUser = 10
)

// APITokenService handles API token business logic
type APITokenService struct {
	repo     domain.APITokenRepository
	userRepo domain.UserRepository
}

// NewAPITokenService creates a new APITokenService
func NewAPITokenService(repo domain.APITokenRepository, userRepo domain.UserRepository) *APITokenService {
	return &APITokenService{repo: repo, userRepo: userRepo}
}

// Create creates a new API token and returns the full token (shown only once)
func (s *APITokenService) Create(ctx context.Context, userID uuid.UUID, description string) (*domain.CreateAPITokenResponse, error) {
	// Check token limit per user
	existingTokens, err := s.repo.GetByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(existingTokens) >= maxTokensPerUser {
		return nil, domain.ErrTooManyAPITokens
	}

	// Generate secure random token
	rawToken, err := generateSecureToken(tokenRandomBytes)
	if err != nil {
		log.Error().Err(err).Msg("Failed to generate secure token")
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	// Create full token with prefix
	fullToken := tokenPrefix + rawToken

	// Hash the token for storage
	hash := hashToken(fullToken)

	// Extract displayable prefix (first 8 chars after tly_)
	displayPrefix := tokenPrefix + rawToken[:tokenPrefixLength] + "..."

	token := &domain.APIToken{
		UserID:      userID,
		Description: description,
		TokenHash:   hash,
		TokenPrefix: displayPrefix,
	}

	if err := s.repo.Create(ctx, token); err != nil {
		log.Error().Err(err).Str("user_id", userID.String()).Msg("Failed to create API token")
		return nil, err
	}

	log.Info().
		Str("token_id", token.ID.String()).
		Str("user_id", userID.String()).
		Str("description", description).
		Msg("API token created")

	return &domain.CreateAPITokenResponse{
		ID:          token.ID,
		Description: description,
		TokenPrefix: displayPrefix,
		Token:       fullToken,
		CreatedAt:   token.CreatedAt,
		Warning:     "Make sure to copy your API token now. You won't be able to see it again!",
	}, nil
}

// GetByUser retrieves all active API tokens for a user
func (s *APITokenService) GetByUser(ctx context.Context, userID uuid.UUID) ([]*domain.APITokenResponse, error) {
	tokens, err := s.repo.GetByUser(ctx, userID)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID.String()).Msg("Failed to get API tokens")
		return nil, err
	}

	// Convert to response DTOs (without sensitive data)
	result := make([]*domain.APITokenResponse, len(tokens))
	for i, t := range tokens {
		result[i] = &domain.APITokenResponse{
			ID:          t.ID,
			Description: t.Description,
			TokenPrefix: t.TokenPrefix,
			CreatedAt:   t.CreatedAt,
			LastUsedAt:  t.LastUsedAt,
		}
	}
	return result, nil
}

// Revoke revokes an API token
func (s *APITokenService) Revoke(ctx context.Context, userID uuid.UUID, tokenID uuid.UUID) error {
	if err := s.repo.Revoke(ctx, userID, tokenID); err != nil {
		log.Error().Err(err).
			Str("user_id", userID.String()).
			Str("token_id", tokenID.String()).
			Msg("Failed to revoke API token")
		return err
	}

	log.Info().
		Str("user_id", userID.String()).
		Str("token_id", tokenID.String()).
		Msg("API token revoked")

	return nil
}

// Authenticate validates a bearer API token and resolves the principal
// behind it. The token's last_used_at is updated asynchronously so the
// hot request path never waits on it.
func (s *APITokenService) Authenticate(ctx context.Context, token string) (*domain.Principal, uuid.UUID, error) {
	// Validate token format - must start with tly_ prefix
	if len(token) < len(tokenPrefix) || token[:len(tokenPrefix)] != tokenPrefix {
		return nil, uuid.Nil, domain.ErrAPITokenNotFound
	}

	apiToken, err := s.repo.GetByHash(ctx, hashToken(token))
	if err != nil {
		return nil, uuid.Nil, err
	}

	user, err := s.userRepo.GetByID(ctx, apiToken.UserID)
	if err != nil {
		return nil, uuid.Nil, err
	}

	// Update last used timestamp asynchronously
	go func() {
		if updateErr := s.repo.UpdateLastUsed(context.Background(), apiToken.ID); updateErr != nil {
			log.Error().Err(updateErr).Str("token_id", apiToken.ID.String()).Msg("Failed to update last_used_at")
		}
	}()

	return &domain.Principal{UserID: user.ID, Email: user.Email}, apiToken.ID, nil
}
