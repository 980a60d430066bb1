package session

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"video-recipe-go/internal/logger"
)

// CleanupReport describes what a session release did.
type CleanupReport struct {
	SessionID string   `json:"session_id"`
	Allocated int      `json:"allocated"`
	Removed   int      `json:"removed"` // allocated paths confirmed gone
	Failures  []string `json:"failures,omitempty"`
}

// Session owns one run's scratch directory and every path handed out inside it.
// A Session is never shared between runs.
type Session struct {
	ID  string
	Dir string

	log     *logger.Logger
	mu      sync.Mutex
	paths   map[string]string
	dynamic []string
	once    sync.Once
	report  CleanupReport
}

// Path returns the pre-allocated base path registered under name. The base
// path carries no extension; tools may append one.
func (s *Session) Path(name string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.paths[name]
	if !ok {
		p = filepath.Join(s.Dir, name+"-"+uuid.NewString())
		s.paths[name] = p
	}
	return p
}

// TempPath allocates a fresh unique file path inside the session.
func (s *Session) TempPath(prefix, ext string) string {
	p := filepath.Join(s.Dir, fmt.Sprintf("%s-%s%s", prefix, uuid.NewString(), ext))
	s.mu.Lock()
	s.dynamic = append(s.dynamic, p)
	s.mu.Unlock()
	return p
}

// Allocated returns how many paths the session has handed out.
func (s *Session) Allocated() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.paths) + len(s.dynamic)
}

// Release deletes the session directory. Safe to call more than once; later
// calls return the first report.
func (s *Session) Release() CleanupReport {
	s.once.Do(func() {
		rep := CleanupReport{SessionID: s.ID, Allocated: s.Allocated()}
		if err := os.RemoveAll(s.Dir); err != nil {
			s.log.WithError(err).WithField("dir", s.Dir).Warn("session cleanup failed")
			rep.Failures = append(rep.Failures, err.Error())
		} else {
			rep.Removed = rep.Allocated
		}
		s.log.WithFields(logrus.Fields{
			"allocated": rep.Allocated,
			"removed":   rep.Removed,
		}).Debug("session released")
		s.report = rep
	})
	return s.report
}

// Manager hands out sessions under a base directory and tracks the live ones
// so they can be released on interrupt.
type Manager struct {
	baseDir string
	log     *logger.Logger

	mu     sync.Mutex
	active map[string]*Session
}

func NewManager(baseDir string, log *logger.Logger) *Manager {
	if baseDir == "" {
		baseDir = os.TempDir()
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Manager{
		baseDir: baseDir,
		log:     log.Component("session"),
		active:  make(map[string]*Session),
	}
}

// Open creates a session with the named paths pre-allocated. The caller must
// Release it; prefer WithSession.
func (m *Manager) Open(names ...string) (*Session, error) {
	id := uuid.NewString()
	dir, err := os.MkdirTemp(m.baseDir, "recipe-"+id[:8]+"-")
	if err != nil {
		return nil, fmt.Errorf("session: create dir: %w", err)
	}
	s := &Session{
		ID:    id,
		Dir:   dir,
		log:   m.log.With(logrus.Fields{"session_id": id}),
		paths: make(map[string]string, len(names)),
	}
	for _, n := range names {
		s.Path(n)
	}

	m.mu.Lock()
	m.active[id] = s
	m.mu.Unlock()
	return s, nil
}

func (m *Manager) release(s *Session) CleanupReport {
	rep := s.Release()
	m.mu.Lock()
	delete(m.active, s.ID)
	m.mu.Unlock()
	return rep
}

// WithSession runs fn with a fresh session and removes every path it owns when
// fn returns, fails or panics. The panic is propagated after cleanup.
func (m *Manager) WithSession(names []string, fn func(*Session) error) (rep CleanupReport, err error) {
	s, err := m.Open(names...)
	if err != nil {
		return CleanupReport{}, err
	}
	defer func() {
		rep = m.release(s)
	}()
	err = fn(s)
	return rep, err
}

// ReleaseAll releases every live session. Used on SIGINT/SIGTERM.
func (m *Manager) ReleaseAll() []CleanupReport {
	m.mu.Lock()
	live := make([]*Session, 0, len(m.active))
	for _, s := range m.active {
		live = append(live, s)
	}
	m.mu.Unlock()

	reports := make([]CleanupReport, 0, len(live))
	for _, s := range live {
		reports = append(reports, m.release(s))
	}
	if len(reports) > 0 {
		m.log.WithField("sessions", len(reports)).Warn("released live sessions on shutdown")
	}
	return reports
}

// ReleaseOnCancel waits for ctx to end, gives cancelled runs grace to unwind
// through WithSession, then releases whatever is still live. The returned
// func stops the watcher; call it once every run has returned.
func (m *Manager) ReleaseOnCancel(ctx context.Context, grace time.Duration) (stop func()) {
	done := make(chan struct{})
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		select {
		case <-done:
			return
		case <-ctx.Done():
		}
		select {
		case <-done:
		case <-time.After(grace):
			m.ReleaseAll()
		}
	}()
	var once sync.Once
	return func() {
		once.Do(func() { close(done) })
		<-finished
	}
}

// Active returns the number of sessions not yet released.
func (m *Manager) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.active)
}
