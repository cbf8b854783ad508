package repository

import (
	"sort"
	"sync"

	"archon-backend/internal/domain"
)

// TokenRepository keeps alert destinations per user in memory. A token
// belongs to exactly one user; registering it again moves it.
type TokenRepository struct {
	tokens map[string]*domain.DeviceToken // token -> DeviceToken
	mu     sync.RWMutex
}

func NewTokenRepository() *TokenRepository {
	return &TokenRepository{
		tokens: make(map[string]*domain.DeviceToken),
	}
}

// RegisterToken adds or updates a destination
func (r *TokenRepository) RegisterToken(userID, token, platform string, timestamp int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.tokens[token] = &domain.DeviceToken{
		UserID:    userID,
		Token:     token,
		Platform:  platform,
		CreatedAt: timestamp,
	}
}

func (r *TokenRepository) UnregisterToken(token string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.tokens, token)
}

// TokensForUser returns the user's destinations, oldest first.
func (r *TokenRepository) TokensForUser(userID string) []domain.DeviceToken {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.DeviceToken, 0)
	for _, t := range r.tokens {
		if t.UserID == userID {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt != out[j].CreatedAt {
			return out[i].CreatedAt < out[j].CreatedAt
		}
		return out[i].Token < out[j].Token
	})
	return out
}

// GetTokenCount returns the number of destinations for userID, or every
// registered destination when userID is empty.
func (r *TokenRepository) GetTokenCount(userID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if userID == "" {
		return len(r.tokens)
	}
	n := 0
	for _, t := range r.tokens {
		if t.UserID == userID {
			n++
		}
	}
	return n
}

var _ domain.DeviceTokenRepository = (*TokenRepository)(nil)
