package session

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	redis "github.com/redis/go-redis/v9"
)

// State is the per-session context carried across signup requests: the cached
// invitation code, the last accepted captcha proof token, and the signed-in
// person. It is never shared between sessions.
type State struct {
	PersonID            snowflake.ID `json:"person_id,omitempty"`
	InvitationCode      string       `json:"invitation_code,omitempty"`
	LastAcceptedCaptcha string       `json:"last_accepted_captcha,omitempty"`
	UnconfirmedEmail    string       `json:"unconfirmed_email,omitempty"`
	AllowedEmail        string       `json:"allowed_email,omitempty"`
	ReturnTo            string       `json:"return_to,omitempty"`
}

var ErrNotFound = errors.New("session_not_found")

type Store interface {
	Get(ctx context.Context, sid string) (State, error)
	Put(ctx context.Context, sid string, state State) error
	Delete(ctx context.Context, sid string) error
}

const keyPrefix = "session:"

type redisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) Store {
	return &redisStore{client: client, ttl: ttl}
}

func (s *redisStore) Get(ctx context.Context, sid string) (State, error) {
	raw, err := s.client.Get(ctx, keyPrefix+sid).Bytes()
	if err == redis.Nil {
		return State{}, ErrNotFound
	}
	if err != nil {
		return State{}, err
	}

	var state State
	if err := json.Unmarshal(raw, &state); err != nil {
		return State{}, err
	}
	return state, nil
}

func (s *redisStore) Put(ctx context.Context, sid string, state State) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, keyPrefix+sid, raw, s.ttl).Err()
}

func (s *redisStore) Delete(ctx context.Context, sid string) error {
	return s.client.Del(ctx, keyPrefix+sid).Err()
}

type memoryStore struct {
	mu     sync.RWMutex
	states map[string]State
}

// NewMemoryStore is the fallback when no redis address is configured, and the
// store used by tests.
func NewMemoryStore() Store {
	return &memoryStore{states: make(map[string]State)}
}

func (s *memoryStore) Get(ctx context.Context, sid string) (State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.states[sid]
	if !ok {
		return State{}, ErrNotFound
	}
	return state, nil
}

func (s *memoryStore) Put(ctx context.Context, sid string, state State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[sid] = state
	return nil
}

func (s *memoryStore) Delete(ctx context.Context, sid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, sid)
	return nil
}
