package workspace

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"cropcare/internal/analysis"
	"cropcare/internal/predict"
	"cropcare/internal/upload"
)

const DefaultSize = 1024

// Manager keeps a bounded set of workspaces keyed by session id. An evicted
// workspace has its in-flight request canceled.
type Manager struct {
	mu        sync.Mutex
	cache     *lru.Cache[string, *Workspace]
	predictor analysis.Predictor
	decode    upload.Decoder
	recorder  Recorder
	origin    string
	timeout   time.Duration
	logger    *slog.Logger
}

type Option func(*Manager)

func WithRecorder(r Recorder) Option {
	return func(m *Manager) {
		m.recorder = r
	}
}

func WithDecoder(d upload.Decoder) Option {
	return func(m *Manager) {
		m.decode = d
	}
}

func WithTimeout(d time.Duration) Option {
	return func(m *Manager) {
		m.timeout = d
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewManager builds a manager whose results resolve image paths against origin.
func NewManager(size int, predictor analysis.Predictor, origin string, opts ...Option) (*Manager, error) {
	if size <= 0 {
		size = DefaultSize
	}
	if origin == "" {
		origin = predict.DefaultOrigin
	}
	m := &Manager{
		predictor: predictor,
		origin:    origin,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}

	cache, err := lru.NewWithEvict(size, func(id string, w *Workspace) {
		w.Controller.Reset()
		w.Upload.Clear()
	})
	if err != nil {
		return nil, fmt.Errorf("create workspace cache failed: %w", err)
	}
	m.cache = cache
	return m, nil
}

// Get returns the workspace for a session, creating it on first use.
// A workspace whose owner changed is replaced.
func (m *Manager) Get(sessionID, email string) *Workspace {
	m.mu.Lock()
	defer m.mu.Unlock()
	if w, ok := m.cache.Get(sessionID); ok {
		if w.owner == email {
			return w
		}
		m.cache.Remove(sessionID)
	}
	w := m.newWorkspace(email)
	m.cache.Add(sessionID, w)
	return w
}

// Peek returns an existing workspace without creating one or touching recency.
func (m *Manager) Peek(sessionID string) (*Workspace, bool) {
	return m.cache.Peek(sessionID)
}

// Drop discards the session's workspace, canceling any request it has in flight.
func (m *Manager) Drop(sessionID string) {
	m.cache.Remove(sessionID)
}

func (m *Manager) Len() int {
	return m.cache.Len()
}

// Close drops every workspace.
func (m *Manager) Close() {
	m.cache.Purge()
}
