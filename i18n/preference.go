package i18n

import (
	"context"
	"errors"
	"sync"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// ErrNoPreference is returned when a user never picked a language
var ErrNoPreference = errors.New("no language preference")

// PreferenceStore persists the chosen language across sessions
type PreferenceStore interface {
	Get(ctx context.Context, userID string) (Language, error)
	Set(ctx context.Context, userID string, lang Language) error
}

// Resolve returns the stored language for userID, or the default when nothing
// usable is stored
func Resolve(ctx context.Context, store PreferenceStore, userID string) Language {
	if store == nil || userID == "" {
		return Default
	}
	lang, err := store.Get(ctx, userID)
	if err != nil {
		if !errors.Is(err, ErrNoPreference) {
			zap.S().Warnw("failed to read language preference", "userID", userID, "error", err)
		}
		return Default
	}
	if _, ok := ParseLanguage(string(lang)); !ok {
		return Default
	}
	return lang
}

const preferencePrefix = "storefront:lang:"

// RedisPreferenceStore keeps one key per user
type RedisPreferenceStore struct {
	client *redis.Client
}

// NewRedisPreferenceStore wraps an existing redis client
func NewRedisPreferenceStore(client *redis.Client) *RedisPreferenceStore {
	return &RedisPreferenceStore{client: client}
}

// Get reads the user's language
func (s *RedisPreferenceStore) Get(ctx context.Context, userID string) (Language, error) {
	val, err := s.client.Get(ctx, preferencePrefix+userID).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNoPreference
	}
	if err != nil {
		return "", err
	}
	return Language(val), nil
}

// Set stores the user's language without expiry
func (s *RedisPreferenceStore) Set(ctx context.Context, userID string, lang Language) error {
	return s.client.Set(ctx, preferencePrefix+userID, string(lang), 0).Err()
}

// MemoryPreferenceStore is a process-local store for tests and redis-less deployments
type MemoryPreferenceStore struct {
	mu    sync.RWMutex
	langs map[string]Language
}

// NewMemoryPreferenceStore returns an empty store
func NewMemoryPreferenceStore() *MemoryPreferenceStore {
	return &MemoryPreferenceStore{langs: map[string]Language{}}
}

// Get reads the user's language
func (s *MemoryPreferenceStore) Get(_ context.Context, userID string) (Language, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	lang, ok := s.langs[userID]
	if !ok {
		return "", ErrNoPreference
	}
	return lang, nil
}

// Set stores the user's language
func (s *MemoryPreferenceStore) Set(_ context.Context, userID string, lang Language) error {
	s.mu.Lock()
	s.langs[userID] = lang
	s.mu.Unlock()
	return nil
}
