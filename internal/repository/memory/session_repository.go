package memory

import (
	"sync"
	"time"

	"ragchat-be/internal/pkg/logger"
	"ragchat-be/pkg/store"

	"github.com/patrickmn/go-cache"
)

// SessionRepository is the explicit session registry. Entries expire after
// ttl without access; the janitor purges them every cleanupInterval.
type SessionRepository struct {
	cache  *cache.Cache
	ttl    time.Duration
	mu     sync.Mutex
	logger logger.ILogger
}

func NewSessionRepository(ttl, cleanupInterval time.Duration, log logger.ILogger) *SessionRepository {
	c := cache.New(ttl, cleanupInterval)
	c.OnEvicted(func(id string, _ interface{}) {
		log.Debug("SESSION_REPO", "Session evicted", map[string]interface{}{"session_id": id})
	})
	return &SessionRepository{
		cache:  c,
		ttl:    ttl,
		logger: log,
	}
}

func (r *SessionRepository) Save(session *store.Session) {
	r.cache.Set(session.ID, session, cache.DefaultExpiration)
}

// Get returns the session and slides its expiry forward.
func (r *SessionRepository) Get(sessionID string) (*store.Session, bool) {
	if x, found := r.cache.Get(sessionID); found {
		session := x.(*store.Session)
		r.cache.Set(sessionID, session, cache.DefaultExpiration)
		return session, true
	}
	return nil, false
}

// GetOrCreate is atomic: concurrent callers for one id receive the same session.
func (r *SessionRepository) GetOrCreate(sessionID string, create func() *store.Session) *store.Session {
	if session, found := r.Get(sessionID); found {
		return session
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if session, found := r.Get(sessionID); found {
		return session
	}
	session := create()
	r.Save(session)
	return session
}

func (r *SessionRepository) Delete(sessionID string) {
	r.cache.Delete(sessionID)
}

func (r *SessionRepository) Count() int {
	return r.cache.ItemCount()
}
