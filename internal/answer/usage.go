package answer

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/radpushman/ct-knowledge/internal/storage"
)

// DefaultLimit is the number of answers allowed per period.
const DefaultLimit = 1500

// Period is the window after which the usage count resets.
type Period string

const (
	PeriodDaily   Period = "daily"
	PeriodMonthly Period = "monthly"
)

// ParsePeriod accepts "daily" or "monthly"; anything else is daily.
func ParsePeriod(s string) Period {
	if Period(s) == PeriodMonthly {
		return PeriodMonthly
	}
	return PeriodDaily
}

func (p Period) key(t time.Time) string {
	if p == PeriodMonthly {
		return t.Format("2006-01")
	}
	return t.Format(time.DateOnly)
}

// UsageState is the persisted counter.
type UsageState struct {
	Count int    `json:"count"`
	Date  string `json:"date"`
	Limit int    `json:"limit"`
}

// Remaining returns the answers left in the period.
func (s UsageState) Remaining() int {
	return max(s.Limit-s.Count, 0)
}

// Usage counts answers in a JSON file and resets on period boundaries.
type Usage struct {
	path   string
	limit  int
	period Period
	now    func() time.Time

	mu sync.Mutex
}

// NewUsage creates a counter stored at path. limit <= 0 selects
// DefaultLimit.
func NewUsage(path string, limit int, period Period) *Usage {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Usage{
		path:   path,
		limit:  limit,
		period: period,
		now:    time.Now,
	}
}

// Current returns the count for the current period.
func (u *Usage) Current() (UsageState, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.loadLocked()
}

// Allow reports whether another answer fits in the quota.
func (u *Usage) Allow() (bool, error) {
	state, err := u.Current()
	if err != nil {
		return false, err
	}
	return state.Count < u.limit, nil
}

// Increment records one answer and returns the new count.
func (u *Usage) Increment() (int, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	state, err := u.loadLocked()
	if err != nil {
		return 0, err
	}
	state.Count++

	data, err := json.Marshal(state)
	if err != nil {
		return 0, err
	}
	if err := os.MkdirAll(filepath.Dir(u.path), 0o755); err != nil {
		return 0, fmt.Errorf("create usage dir: %w", err)
	}
	if err := storage.WriteFileAtomic(u.path, data, 0o644); err != nil {
		return 0, fmt.Errorf("write usage: %w", err)
	}
	return state.Count, nil
}

// loadLocked reads the file. A missing or unreadable counter, or one from
// an earlier period, starts from zero.
func (u *Usage) loadLocked() (UsageState, error) {
	fresh := UsageState{Date: u.period.key(u.now()), Limit: u.limit}

	data, err := os.ReadFile(u.path)
	if errors.Is(err, fs.ErrNotExist) {
		return fresh, nil
	}
	if err != nil {
		return UsageState{}, fmt.Errorf("read usage: %w", err)
	}

	var state UsageState
	if err := json.Unmarshal(data, &state); err != nil || state.Date != fresh.Date {
		return fresh, nil
	}
	state.Limit = u.limit
	return state, nil
}
