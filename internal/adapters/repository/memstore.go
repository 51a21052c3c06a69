package repository

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/okian/armpredict/pkg/logger"
	"github.com/okian/armpredict/pkg/metrics"
)

const (
	defaultMaxSessions = 1024
	defaultTTL         = 30 * time.Minute
)

// Eviction reasons reported to metrics.
const (
	reasonExpired  = "expired"
	reasonCapacity = "capacity"
	reasonDeleted  = "deleted"
	reasonShutdown = "shutdown"
)

type entry struct {
	session    *Session
	lastAccess atomic.Int64
	removing   atomic.Value // eviction reason set before an explicit removal
}

// MemoryStore is an LRU of sessions with an idle TTL. Evicted sessions have
// their workflow abandoned so late review responses are dropped.
type MemoryStore struct {
	maxSessions int
	ttl         time.Duration
	logger      logger.Logger

	mu     sync.Mutex
	lru    *expirable.LRU[string, *entry]
	closed bool
}

// NewMemoryStore constructs a session store with configuration options.
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{
		maxSessions: defaultMaxSessions,
		ttl:         defaultTTL,
		logger:      logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.lru = expirable.NewLRU[string, *entry](s.maxSessions, s.onEvict, s.ttl)
	metrics.UpdateSessionsLive(0)
	return s
}

// Create implements Store.Create.
func (s *MemoryStore) Create(ctx context.Context, sess *Session) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	if sess.ID == "" {
		sess.ID = uuid.NewString()
	}
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = time.Now()
	}
	e := &entry{session: sess}
	e.lastAccess.Store(sess.CreatedAt.UnixNano())
	s.lru.Add(sess.ID, e)

	metrics.RecordSessionCreated()
	metrics.UpdateSessionsLive(s.lru.Len())
	s.logger.Debug(ctx, "session created", logger.String("session_id", sess.ID))
	return sess, nil
}

// Get implements Store.Get. A hit re-adds the entry to restart its TTL.
func (s *MemoryStore) Get(_ context.Context, id string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.lru.Get(id)
	if !ok {
		return nil, ErrNotFound
	}
	e.lastAccess.Store(time.Now().UnixNano())
	s.lru.Add(id, e)
	return e.session, nil
}

// Delete implements Store.Delete.
func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.lru.Peek(id)
	if !ok {
		return ErrNotFound
	}
	e.removing.Store(reasonDeleted)
	s.lru.Remove(id)
	metrics.UpdateSessionsLive(s.lru.Len())
	s.logger.Debug(ctx, "session deleted", logger.String("session_id", id))
	return nil
}

// Count implements Store.Count.
func (s *MemoryStore) Count(_ context.Context) int {
	n := s.lru.Len()
	metrics.UpdateSessionsLive(n)
	return n
}

// Close abandons every live session and refuses further creates.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	for _, id := range s.lru.Keys() {
		if e, ok := s.lru.Peek(id); ok {
			e.removing.Store(reasonShutdown)
		}
	}
	s.lru.Purge()
	metrics.UpdateSessionsLive(0)
	return nil
}

// onEvict runs inside the LRU's lock; it must not call back into the store.
func (s *MemoryStore) onEvict(id string, e *entry) {
	reason, _ := e.removing.Load().(string)
	if reason == "" {
		reason = reasonCapacity
		idle := time.Now().Sub(time.Unix(0, e.lastAccess.Load()))
		if idle >= s.ttl {
			reason = reasonExpired
		}
	}
	if e.session.Workflow != nil {
		e.session.Workflow.Abandon()
	}
	metrics.RecordSessionEvicted(reason)
	if reason != reasonDeleted {
		s.logger.Info(context.Background(), "session evicted",
			logger.String("session_id", id), logger.String("reason", reason))
	}
}
