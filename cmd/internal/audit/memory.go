package audit

import (
	"context"
	"fmt"
	"slices"
	"sync"
)

// MemoryLogger keeps entries in process. Ids start at 1.
type MemoryLogger struct {
	mu      sync.Mutex
	cfg     config
	entries []LogEntry
}

// NewMemoryLogger returns an empty logger.
func NewMemoryLogger(opts ...Option) *MemoryLogger {
	return &MemoryLogger{cfg: newConfig(opts)}
}

func (m *MemoryLogger) Log(ctx context.Context, e LogEntry) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	before, err := m.cfg.conv.Convert(e.RawDataBefore)
	if err != nil {
		return 0, fmt.Errorf("audit: convert raw data: %w", err)
	}
	after, err := m.cfg.conv.Convert(e.RawDataAfter)
	if err != nil {
		return 0, fmt.Errorf("audit: convert raw data: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	e.LogID = int64(len(m.entries)) + 1
	if e.LoggedAt.IsZero() {
		e.LoggedAt = m.cfg.now()
	}
	e.LoggedAt = e.LoggedAt.UTC()
	e.ResIDs = normalizeIDs(e.ResIDs)
	e.RawDataBefore, e.RawDataAfter = before, after
	m.entries = append(m.entries, e)
	return e.LogID, nil
}

func (m *MemoryLogger) GetLog(ctx context.Context, id int64) (LogEntry, error) {
	if err := ctx.Err(); err != nil {
		return LogEntry{}, err
	}

	m.mu.Lock()
	var (
		e     LogEntry
		found bool
	)
	if id >= 1 && id <= int64(len(m.entries)) {
		e, found = m.entries[id-1], true
	}
	m.mu.Unlock()

	if !found {
		return LogEntry{}, ErrNotFound
	}
	return m.restore(e)
}

func (m *MemoryLogger) LogsOfUser(ctx context.Context, userID int64, f Filter) ([]LogEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	var matched []LogEntry
	for _, e := range m.entries {
		if e.UserID == userID && f.Match(e) {
			matched = append(matched, e)
		}
	}
	m.mu.Unlock()

	slices.SortFunc(matched, newestFirst)

	out := make([]LogEntry, 0, len(matched))
	for _, e := range matched {
		r, err := m.restore(e)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

func (m *MemoryLogger) restore(e LogEntry) (LogEntry, error) {
	var err error
	if e.RawDataBefore, err = m.cfg.conv.Unconvert(e.RawDataBefore); err != nil {
		return LogEntry{}, fmt.Errorf("audit: unconvert raw data: %w", err)
	}
	if e.RawDataAfter, err = m.cfg.conv.Unconvert(e.RawDataAfter); err != nil {
		return LogEntry{}, fmt.Errorf("audit: unconvert raw data: %w", err)
	}
	e.ResIDs = slices.Clone(e.ResIDs)
	return e, nil
}
