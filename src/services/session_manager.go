package services

import (
	"time"

	"github.com/carpal-dk/backoffice/src/contract"
	"github.com/carpal-dk/backoffice/src/logger"
	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

// SessionManager owns the live contract sessions. Sessions live server-side
// in an expiring cache; an expired session takes its pollers down with it.
type SessionManager struct {
	sessions *cache.Cache

	fetcher   contract.DealFetcher
	sender    contract.Sender
	prober    contract.ResourceProber
	pollDelay time.Duration
}

func NewSessionManager(expiry time.Duration, fetcher contract.DealFetcher, sender contract.Sender, prober contract.ResourceProber, pollDelay time.Duration) *SessionManager {
	sessions := cache.New(expiry, 10*time.Minute)
	sessions.OnEvicted(func(id string, value any) {
		if sess, ok := value.(*contract.Session); ok {
			sess.Clear()
			logger.L.Info("Contract session expired", "sessionId", id)
		}
	})

	return &SessionManager{
		sessions:  sessions,
		fetcher:   fetcher,
		sender:    sender,
		prober:    prober,
		pollDelay: pollDelay,
	}
}

// Create starts an empty session and returns it.
func (m *SessionManager) Create() *contract.Session {
	sess := contract.NewSession(uuid.New().String(), m.fetcher, m.sender, m.prober, m.pollDelay)
	m.sessions.SetDefault(sess.ID, sess)
	logger.L.Info("Contract session created", "sessionId", sess.ID)
	return sess
}

// Get returns a live session, refreshing its expiry on access.
func (m *SessionManager) Get(id string) (*contract.Session, bool) {
	value, found := m.sessions.Get(id)
	if !found {
		return nil, false
	}
	sess, ok := value.(*contract.Session)
	if !ok {
		return nil, false
	}
	m.sessions.SetDefault(id, sess)
	return sess, true
}

// Delete ends a session immediately.
func (m *SessionManager) Delete(id string) {
	m.sessions.Delete(id)
}
