// internal/services/upload_limiter.go
package services

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/soundbridge/backend/internal/models"
	"github.com/soundbridge/backend/internal/rules"
)

// UploadLimiter enforces per-user concurrency and daily-count caps
// in-process. State is keyed by user ID and pruned when idle.
type UploadLimiter struct {
	mu       sync.Mutex
	catalog  *rules.Catalog
	visitors map[uuid.UUID]*uploadVisitor
	now      func() time.Time
}

type uploadVisitor struct {
	inFlight int
	dayKey   string
	dayCount int
	burst    *rate.Limiter
	lastSeen time.Time
}

func NewUploadLimiter(catalog *rules.Catalog) *UploadLimiter {
	l := &UploadLimiter{
		catalog:  catalog,
		visitors: make(map[uuid.UUID]*uploadVisitor),
		now:      time.Now,
	}
	go l.cleanupVisitors()
	return l
}

// Acquire reserves an upload slot for the user. It returns the blocking
// validation code when a cap is hit, or empty when the slot was
// granted. A granted slot must be returned with Release.
func (l *UploadLimiter) Acquire(userID uuid.UUID, tier models.SubscriptionTier) (code string, ok bool) {
	tierRules := l.catalog.ForTier(tier)
	now := l.now()
	today := now.UTC().Format("2006-01-02")

	l.mu.Lock()
	defer l.mu.Unlock()

	v, exists := l.visitors[userID]
	if !exists {
		// Burst limiter sits above the hard caps to absorb rapid-fire
		// submissions without counting them against the daily cap.
		v = &uploadVisitor{
			dayKey: today,
			burst:  rate.NewLimiter(rate.Every(time.Second), tierRules.ConcurrentUploads*2),
		}
		l.visitors[userID] = v
	}
	v.lastSeen = now

	if v.dayKey != today {
		v.dayKey = today
		v.dayCount = 0
	}

	if !v.burst.AllowN(now, 1) {
		return "CONCURRENT_UPLOAD_LIMIT", false
	}

	if v.inFlight >= tierRules.ConcurrentUploads {
		return "CONCURRENT_UPLOAD_LIMIT", false
	}

	if tierRules.DailyUploadLimit != nil && v.dayCount >= *tierRules.DailyUploadLimit {
		return "DAILY_LIMIT_EXCEEDED", false
	}

	v.inFlight++
	v.dayCount++
	return "", true
}

// Release returns a previously acquired slot. The daily count is not
// decremented: a started upload consumes the day's quota even if it
// later fails.
func (l *UploadLimiter) Release(userID uuid.UUID) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if v, exists := l.visitors[userID]; exists && v.inFlight > 0 {
		v.inFlight--
	}
}

// InFlight reports the user's current concurrent upload count.
func (l *UploadLimiter) InFlight(userID uuid.UUID) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	if v, exists := l.visitors[userID]; exists {
		return v.inFlight
	}
	return 0
}

func (l *UploadLimiter) cleanupVisitors() {
	for {
		time.Sleep(10 * time.Minute)

		l.mu.Lock()
		cutoff := l.now().Add(-48 * time.Hour)
		for id, v := range l.visitors {
			if v.inFlight == 0 && v.lastSeen.Before(cutoff) {
				delete(l.visitors, id)
			}
		}
		l.mu.Unlock()
	}
}
