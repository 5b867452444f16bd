package core

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/JonMunkholm/passgap/internal/logging"
	"github.com/google/uuid"
)

// DefaultSessionTTL is how long an idle session keeps its loaded exports.
const DefaultSessionTTL = time.Hour

// RunStore persists comparison metadata. A nil RunStore disables history.
type RunStore interface {
	Record(ctx context.Context, run ComparisonRun) error
	Recent(ctx context.Context, limit int) ([]ComparisonRun, error)
	Prune(ctx context.Context, before time.Time) (int64, error)
}

// ServiceConfig holds the limits a Service enforces.
type ServiceConfig struct {
	MaxFileSize   int64         // bytes per export; 0 disables the cap
	SessionTTL    time.Duration // idle time before a session is swept
	MaxConcurrent int           // parallel parses across all sessions
	MaxWait       time.Duration // wait for a parse permit
}

// Service holds per-session slot state and runs comparisons.
// It is safe for concurrent use.
type Service struct {
	cfg     ServiceConfig
	limiter *UploadLimiter
	runs    RunStore
	now     func() time.Time

	mu       sync.RWMutex
	sessions map[string]*session
}

type session struct {
	id       string
	slots    map[Slot]*loadedSlot
	lastSeen time.Time
}

type loadedSlot struct {
	source  Source
	summary SlotSummary
}

// Comparison is the result of comparing the two slots of a session.
type Comparison struct {
	RunID   string
	Summary Summary
	Missing []Record
}

// ExportFile is a generated export ready to be downloaded or written.
type ExportFile struct {
	Name        string
	ContentType string
	Body        string
	Summary     Summary
}

// NewService creates a Service. runs may be nil.
func NewService(cfg ServiceConfig, runs RunStore) *Service {
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = DefaultSessionTTL
	}
	return &Service{
		cfg:      cfg,
		limiter:  NewUploadLimiter(cfg.MaxConcurrent, cfg.MaxWait),
		runs:     runs,
		now:      time.Now,
		sessions: make(map[string]*session),
	}
}

// NewSession creates an empty session and returns its id.
func (s *Service) NewSession() string {
	id := uuid.NewString()

	s.mu.Lock()
	s.sessions[id] = &session{
		id:       id,
		slots:    make(map[Slot]*loadedSlot, 2),
		lastSeen: s.now(),
	}
	s.mu.Unlock()

	return id
}

// EnsureSession returns id when it names a live session, otherwise a fresh
// session id. created reports whether a new session was made.
func (s *Service) EnsureSession(id string) (sessionID string, created bool) {
	if id != "" {
		s.mu.Lock()
		sess, ok := s.sessions[id]
		if ok {
			sess.lastSeen = s.now()
		}
		s.mu.Unlock()
		if ok {
			return id, false
		}
	}
	return s.NewSession(), true
}

// SessionCount returns the number of live sessions.
func (s *Service) SessionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// LoadSlot parses an export from r and stores it in slot, replacing what
// was there. On any error the slot keeps its previous contents.
func (s *Service) LoadSlot(ctx context.Context, sessionID string, slot Slot, fileName string, r io.Reader) (SlotSummary, error) {
	if _, err := ParseSlot(string(slot)); err != nil {
		return SlotSummary{}, err
	}
	if !s.hasSession(sessionID) {
		return SlotSummary{}, ErrSessionNotFound
	}

	logger := logging.WithFields(ctx, "session_id", sessionID, "slot", slot, "file", fileName)

	if err := s.limiter.Acquire(ctx); err != nil {
		logger.Warn("slot load rejected", "error", err)
		return SlotSummary{}, err
	}
	start := s.now()
	src, err := ParseReader(r, s.cfg.MaxFileSize)
	s.limiter.Release()
	if err != nil {
		return SlotSummary{}, fmt.Errorf("load slot %s: %w", slot, err)
	}

	summary := src.Describe(slot, fileName)
	summary.LoadedAt = s.now()

	s.mu.Lock()
	sess, ok := s.sessions[sessionID]
	if ok {
		sess.slots[slot] = &loadedSlot{source: src, summary: summary}
		sess.lastSeen = summary.LoadedAt
	}
	s.mu.Unlock()
	if !ok {
		return SlotSummary{}, ErrSessionNotFound
	}

	if summary.Records == 0 {
		logger.Warn("slot loaded with no entries", "headers", len(src.Headers))
	}
	logger.Info("slot loaded",
		"records", summary.Records,
		"fields", src.Mapping.Fields(),
		"unmapped_columns", len(summary.Unmapped),
		"duration_ms", s.now().Sub(start).Milliseconds(),
	)
	return summary, nil
}

// ClearSlot empties slot. Clearing an empty slot is not an error.
func (s *Service) ClearSlot(sessionID string, slot Slot) error {
	if _, err := ParseSlot(string(slot)); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return ErrSessionNotFound
	}
	delete(sess.slots, slot)
	sess.lastSeen = s.now()
	return nil
}

// Slots returns the summaries of the loaded slots, A before B.
func (s *Service) Slots(sessionID string) ([]SlotSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}

	out := make([]SlotSummary, 0, 2)
	for _, slot := range []Slot{SlotA, SlotB} {
		if ls, ok := sess.slots[slot]; ok {
			out = append(out, ls.summary)
		}
	}
	return out, nil
}

// Compare returns the entries of slot A that have no match in slot B.
// When history is enabled the run metadata is recorded; a failed write is
// logged and does not fail the comparison.
func (s *Service) Compare(ctx context.Context, sessionID string, strict bool) (Comparison, error) {
	listA, listB, err := s.sources(sessionID)
	if err != nil {
		return Comparison{}, err
	}

	missing := ComputeMissing(listA, listB, strict)
	cmp := Comparison{
		RunID:   uuid.NewString(),
		Summary: Summarize(listA, listB, missing, strict),
		Missing: missing,
	}

	logger := logging.WithFields(ctx,
		"session_id", sessionID,
		"run_id", cmp.RunID,
		"user_agent", UserAgentFromContext(ctx),
	)
	logger.Info("comparison completed",
		"strict", strict,
		"source_a", cmp.Summary.SourceA,
		"source_b", cmp.Summary.SourceB,
		"missing", cmp.Summary.Missing,
	)

	if s.runs != nil {
		run := ComparisonRun{
			ID:        cmp.RunID,
			SessionID: sessionID,
			Strict:    strict,
			SourceA:   cmp.Summary.SourceA,
			SourceB:   cmp.Summary.SourceB,
			Missing:   cmp.Summary.Missing,
			IPAddress: IPAddressFromContext(ctx),
			CreatedAt: s.now().UTC(),
		}
		if err := s.runs.Record(ctx, run); err != nil {
			logger.Error("record comparison run failed", "error", err)
		}
	}

	return cmp, nil
}

// Export runs Compare and renders the missing entries as a CSV download.
func (s *Service) Export(ctx context.Context, sessionID string, strict bool) (ExportFile, error) {
	cmp, err := s.Compare(ctx, sessionID, strict)
	if err != nil {
		return ExportFile{}, err
	}
	return ExportFile{
		Name:        ExportFilename(s.now()),
		ContentType: ExportContentType,
		Body:        GenerateCSV(cmp.Missing),
		Summary:     cmp.Summary,
	}, nil
}

// HistoryEnabled reports whether comparison runs are persisted.
func (s *Service) HistoryEnabled() bool {
	return s.runs != nil
}

// RecentRuns returns up to limit recorded runs, newest first. It returns an
// empty list when history is disabled.
func (s *Service) RecentRuns(ctx context.Context, limit int) ([]ComparisonRun, error) {
	if s.runs == nil {
		return []ComparisonRun{}, nil
	}
	runs, err := s.runs.Recent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}
	if runs == nil {
		runs = []ComparisonRun{}
	}
	return runs, nil
}

// SweepSessions drops sessions idle for longer than the session TTL and
// returns how many were removed.
func (s *Service) SweepSessions() int {
	cutoff := s.now().Add(-s.cfg.SessionTTL)

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, sess := range s.sessions {
		if sess.lastSeen.Before(cutoff) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// LimiterStatus reports parse permit usage.
func (s *Service) LimiterStatus() UploadLimiterStatus {
	return s.limiter.Status()
}

// WaitForLoads blocks until in-flight parses finish or ctx ends.
func (s *Service) WaitForLoads(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}

func (s *Service) hasSession(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.sessions[id]
	return ok
}

// sources returns the record lists of both slots. A slot that was never
// loaded yields nil. The slices are never mutated after a load, so they are
// safe to read outside the lock.
func (s *Service) sources(sessionID string) ([]Record, []Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, nil, ErrSessionNotFound
	}
	sess.lastSeen = s.now()

	var a, b []Record
	if ls, ok := sess.slots[SlotA]; ok {
		a = ls.source.Records
	}
	if ls, ok := sess.slots[SlotB]; ok {
		b = ls.source.Records
	}
	return a, b, nil
}

