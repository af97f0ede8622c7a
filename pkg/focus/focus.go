// Package focus runs per-user focus timer sessions on top of Redis. A
// session is a single key with a TTL matching the timer length, so expiry
// needs no background sweeper.
package focus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	// MaxSessionMinutes caps a focus session at four hours.
	MaxSessionMinutes = 240
)

var (
	ErrNoActiveSession = errors.New("no active focus session")
	ErrInvalidSession  = errors.New("invalid focus session")
)

// Session is one running focus timer.
type Session struct {
	Task      string    `json:"task"`
	Minutes   int       `json:"minutes"`
	StartedAt time.Time `json:"started_at"`
	// RemainingSeconds is derived from the key TTL on read, not stored.
	RemainingSeconds int64 `json:"remaining_seconds,omitempty"`
}

// Service manages focus sessions. One session per user; starting a new one
// replaces the old.
type Service struct {
	client *redis.Client
}

func NewService(client *redis.Client) *Service {
	if client == nil {
		panic("focus: redis client is required")
	}
	return &Service{client: client}
}

func sessionKey(userID uuid.UUID) string {
	return "focus:" + userID.String()
}

// Start begins a focus session of the given length, replacing any running
// one.
func (s *Service) Start(ctx context.Context, userID uuid.UUID, task string, minutes int) (*Session, error) {
	task = strings.TrimSpace(task)
	if task == "" {
		return nil, fmt.Errorf("%w: task is required", ErrInvalidSession)
	}
	if minutes <= 0 || minutes > MaxSessionMinutes {
		return nil, fmt.Errorf("%w: minutes must be within 1..%d", ErrInvalidSession, MaxSessionMinutes)
	}

	sess := Session{
		Task:      task,
		Minutes:   minutes,
		StartedAt: time.Now().UTC(),
	}
	raw, err := json.Marshal(sess)
	if err != nil {
		return nil, err
	}
	ttl := time.Duration(minutes) * time.Minute
	if err := s.client.Set(ctx, sessionKey(userID), raw, ttl).Err(); err != nil {
		return nil, err
	}

	sess.RemainingSeconds = int64(ttl / time.Second)
	return &sess, nil
}

// Get returns the running session with its remaining time. An expired or
// never-started session yields ErrNoActiveSession.
func (s *Service) Get(ctx context.Context, userID uuid.UUID) (*Session, error) {
	key := sessionKey(userID)
	raw, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNoActiveSession
		}
		return nil, err
	}

	var sess Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, err
	}

	ttl, err := s.client.TTL(ctx, key).Result()
	if err != nil {
		return nil, err
	}
	if ttl > 0 {
		sess.RemainingSeconds = int64(ttl / time.Second)
	}
	return &sess, nil
}

// Stop ends the running session.
func (s *Service) Stop(ctx context.Context, userID uuid.UUID) error {
	deleted, err := s.client.Del(ctx, sessionKey(userID)).Result()
	if err != nil {
		return err
	}
	if deleted == 0 {
		return ErrNoActiveSession
	}
	return nil
}
