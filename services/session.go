package services

import (
	"context"
	"encoding/json"
	"os"
	"strconv"
	"sync"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/itsivali/virtual-butler/models"
	"github.com/itsivali/virtual-butler/utils"
)

// maxHistoryTurns caps conversational history per guest. Older turns are
// dropped on append.
const maxHistoryTurns = 50

const sessionKeyPrefix = "session:ctx:"

// SessionStore keeps the short multi-turn context per guest. Backed by redis
// with a TTL when configured, falling back to an in-process map otherwise.
//
// Updates are read-then-upsert without a compare-and-swap: concurrent turns
// from the same guest interleave and the later write wins, which can drop a
// history entry from the earlier one. Accepted limitation for advisory
// conversational context.
type SessionStore struct {
	redis *redis.Client
	ttl   time.Duration

	mu  sync.Mutex
	mem map[string]memSession
}

type memSession struct {
	ctx       models.SessionContext
	expiresAt time.Time
}

// NewSessionStore builds the store. rc may be nil; SESSION_TTL_HOURS
// (default 24) bounds record lifetime in both backends.
func NewSessionStore(rc *redis.Client) *SessionStore {
	ttlHours := 24
	if s := os.Getenv("SESSION_TTL_HOURS"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			ttlHours = v
		}
	}
	return &SessionStore{
		redis: rc,
		ttl:   time.Duration(ttlHours) * time.Hour,
		mem:   make(map[string]memSession),
	}
}

// Get returns the guest's current context, or an empty one if none exists.
func (s *SessionStore) Get(ctx context.Context, guestID string) (*models.SessionContext, error) {
	if s.redis != nil {
		raw, err := s.redis.Get(ctx, sessionKeyPrefix+guestID).Result()
		if err == redis.Nil {
			return emptyContext(guestID), nil
		}
		if err != nil {
			return nil, Wrap(KindUnavailable, err, "session store unavailable")
		}
		var sc models.SessionContext
		if err := json.Unmarshal([]byte(raw), &sc); err != nil {
			utils.Log.Warn().Err(err).Str("guest_id", guestID).Msg("corrupt session context, resetting")
			return emptyContext(guestID), nil
		}
		return &sc, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.mem[guestID]
	if !ok || time.Now().After(entry.expiresAt) {
		delete(s.mem, guestID)
		return emptyContext(guestID), nil
	}
	sc := entry.ctx
	return &sc, nil
}

// AppendTurn records one conversational turn: appends to history, updates
// last_intent/last_department, and writes the record back with a fresh TTL.
func (s *SessionStore) AppendTurn(ctx context.Context, guestID, message, department string) (*models.SessionContext, error) {
	sc, err := s.Get(ctx, guestID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	sc.History = append(sc.History, models.SessionTurn{
		Message:    message,
		Timestamp:  now,
		Department: department,
	})
	if len(sc.History) > maxHistoryTurns {
		sc.History = sc.History[len(sc.History)-maxHistoryTurns:]
	}
	sc.LastDepartment = department
	sc.LastIntent = department
	sc.UpdatedAt = now

	if err := s.put(ctx, sc); err != nil {
		return nil, err
	}
	return sc, nil
}

func (s *SessionStore) put(ctx context.Context, sc *models.SessionContext) error {
	if s.redis != nil {
		raw, err := json.Marshal(sc)
		if err != nil {
			return Wrap(KindInternal, err, "failed to encode session context")
		}
		if err := s.redis.Set(ctx, sessionKeyPrefix+sc.GuestID, raw, s.ttl).Err(); err != nil {
			return Wrap(KindUnavailable, err, "session store unavailable")
		}
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.mem[sc.GuestID] = memSession{ctx: *sc, expiresAt: time.Now().Add(s.ttl)}
	return nil
}

func emptyContext(guestID string) *models.SessionContext {
	now := time.Now()
	return &models.SessionContext{
		GuestID:   guestID,
		History:   []models.SessionTurn{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}
