// Package session tracks per-channel activity between requests.
//
// The store remembers which resources a channel recently produced or edited
// and what the previous intent was, so the next request can resolve
// anaphoric references ("give it that vibe") against real targets. The core
// only reads session context; all mutation goes through the store's API.
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"pagewright/internal/config"
	"pagewright/internal/types"
)

// state is the mutable record for one channel.
type state struct {
	id          string
	recentFiles []string
	lastIntent  string
	topic       string
	started     time.Time
	lastActive  time.Time
	requests    int
}

// Store keeps per-channel activity. Safe for concurrent use.
type Store struct {
	mu        sync.RWMutex
	sessions  map[string]*state
	maxRecent int
	logger    *zap.Logger
}

// NewStore creates an empty store. The recent-file cap comes from cfg.
func NewStore(cfg *config.Config, logger *zap.Logger) *Store {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	maxRecent := cfg.Session.MaxRecentFiles
	if maxRecent < 1 {
		maxRecent = 10
	}
	return &Store{
		sessions:  make(map[string]*state),
		maxRecent: maxRecent,
		logger:    logger,
	}
}

// Touch ensures a session exists for the channel and returns its id.
// The id is stable for the life of the session.
func (s *Store) Touch(channel string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.ensureLocked(channel)
	st.requests++
	st.lastActive = time.Now()
	return st.id
}

// Context returns a snapshot for building the next request. The snapshot
// shares nothing with the store; an unknown channel yields a zero value.
func (s *Store) Context(channel string) types.SessionContext {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.sessions[channel]
	if !ok {
		return types.SessionContext{}
	}

	out := types.SessionContext{
		LastIntent:   st.lastIntent,
		ChannelTopic: st.topic,
	}
	if len(st.recentFiles) > 0 {
		out.RecentFiles = make([]string, len(st.recentFiles))
		copy(out.RecentFiles, st.recentFiles)
	}
	return out
}

// RecordFiles notes resource identifiers for a channel, given most recent
// first. Existing entries move to the front instead of duplicating; the list
// is capped at the configured maximum.
func (s *Store) RecordFiles(channel string, paths ...string) {
	if len(paths) == 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.ensureLocked(channel)
	for i := len(paths) - 1; i >= 0; i-- {
		if paths[i] == "" {
			continue
		}
		st.recentFiles = prepend(st.recentFiles, paths[i], s.maxRecent)
	}
	st.lastActive = time.Now()

	s.logger.Debug("Recorded session files",
		zap.String("channel", channel),
		zap.Strings("paths", paths),
		zap.Int("recentCount", len(st.recentFiles)))
}

// RecordIntent notes the label of the channel's last classified intent.
func (s *Store) RecordIntent(channel string, intent types.IntentType) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.ensureLocked(channel)
	st.lastIntent = intent.String()
	st.lastActive = time.Now()
}

// SetTopic sets an optional subject hint for the channel.
func (s *Store) SetTopic(channel, topic string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.ensureLocked(channel)
	st.topic = topic
}

// Len returns the number of tracked sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// ensureLocked returns the channel's state, creating it on first contact.
// Caller holds the write lock.
func (s *Store) ensureLocked(channel string) *state {
	st, ok := s.sessions[channel]
	if !ok {
		st = &state{
			id:      uuid.New().String(),
			started: time.Now(),
		}
		s.sessions[channel] = st
		s.logger.Debug("Session started",
			zap.String("channel", channel),
			zap.String("sessionId", st.id[:8]))
	}
	return st
}

// prepend puts p at the front of list, removing any earlier occurrence and
// trimming to max entries.
func prepend(list []string, p string, max int) []string {
	out := make([]string, 0, len(list)+1)
	out = append(out, p)
	for _, existing := range list {
		if existing == p {
			continue
		}
		out = append(out, existing)
	}
	if len(out) > max {
		out = out[:max]
	}
	return out
}

// MutatedPaths extracts the resource identifiers a run actually changed,
// most recent first, deduplicated. Only successful calls to mutating tools
// with a path argument count.
func MutatedPaths(records []types.ToolCallRecord) []string {
	var out []string
	seen := make(map[string]bool)
	for i := len(records) - 1; i >= 0; i-- {
		rec := records[i]
		if rec.Failed() || !rec.Tool.Mutating() {
			continue
		}
		p := rec.Args["path"]
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}
