// Package browser implements C4, the pooled headless-browser session
// manager. It is grounded on two teacher sources: the connection pattern
// in ncecere-raito's scraper.RodScraper.Scrape (rod.New().Context(ctx)
// .Timeout(...).ControlURL(...), Connect/Close) and the pooling/lifecycle
// shape of theRebelliousNerd-codenerd's browser.SessionManager (a single
// *rod.Browser guarded by a mutex, a sessions map, Start/Shutdown). The
// teacher connects and closes a fresh browser per scrape; this module
// adds the acquire/release pool, health tracking, and crash-replenishment
// spec.md §4.4 requires, since the teacher never needed more than one
// concurrent browser.
package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"go.uber.org/zap"
)

// Engine identifies a headless browser engine.
type Engine string

const (
	EngineChromium Engine = "chromium"
	EngineFirefox  Engine = "firefox"
	EngineWebKit   Engine = "webkit"
)

// ErrEngineUnsupported is returned for engines go-rod cannot drive. Only
// chromium is backed by the Chrome DevTools Protocol go-rod speaks;
// firefox/webkit are modeled in the type system per spec.md §4.4 but are
// not wired to a real driver in this module.
var ErrEngineUnsupported = errors.New("browser: engine not supported by the go-rod driver")

const (
	defaultPoolSize = 3
	hardCapPoolSize = 5
)

// Metrics tracks per-session usage. RecordPage updates PagesProcessed
// and TotalLoadMS; Acquire and Release do not take memory snapshots, so
// MemoryAtAcquire and MemoryAtRelease stay zero.
type Metrics struct {
	PagesProcessed  int64
	TotalLoadMS     int64
	MemoryAtAcquire uint64
	MemoryAtRelease uint64
}

// Session is a leased, pooled browser handle. Callers must call
// Pool.Release exactly once when done.
type Session struct {
	ID      string
	Engine  Engine
	Browser *rod.Browser
	Healthy bool

	pool      *Pool
	acquiredAt time.Time
	metrics   Metrics
}

// RecordPage updates this session's metrics after processing one page.
func (s *Session) RecordPage(loadMS int64) {
	s.metrics.PagesProcessed++
	s.metrics.TotalLoadMS += loadMS
}

// Pool manages a bounded set of headless browser connections.
type Pool struct {
	controlURL string
	maxSize    int
	logger     *zap.Logger

	mu       sync.Mutex
	sessions map[string]*Session
	nextID   int
}

// NewPool constructs a Pool. maxSize is clamped to [1, 5] per spec.md
// §4.4 (default 3, hard cap 5).
func NewPool(controlURL string, maxSize int, logger *zap.Logger) *Pool {
	if maxSize <= 0 {
		maxSize = defaultPoolSize
	}
	if maxSize > hardCapPoolSize {
		maxSize = hardCapPoolSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pool{
		controlURL: controlURL,
		maxSize:    maxSize,
		logger:     logger.Named("browser.pool"),
		sessions:   make(map[string]*Session),
	}
}

// Acquire leases a session for the given engine, blocking until the pool
// has capacity or ctx is canceled. Only EngineChromium (the default) is
// actually implemented.
func (p *Pool) Acquire(ctx context.Context, engine Engine) (*Session, error) {
	if engine == "" {
		engine = EngineChromium
	}
	if engine != EngineChromium {
		return nil, fmt.Errorf("%w: %s", ErrEngineUnsupported, engine)
	}

	for {
		p.mu.Lock()
		if len(p.sessions) < p.maxSize {
			break
		}
		p.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(25 * time.Millisecond):
		}
	}
	defer p.mu.Unlock()

	b := rod.New().Context(ctx)
	if p.controlURL != "" {
		b = b.ControlURL(p.controlURL)
	}
	if err := b.Connect(); err != nil {
		return nil, fmt.Errorf("browser: connect failed: %w", err)
	}

	p.nextID++
	sess := &Session{
		ID:         fmt.Sprintf("sess-%d", p.nextID),
		Engine:     engine,
		Browser:    b,
		Healthy:    true,
		pool:       p,
		acquiredAt: time.Now(),
	}
	p.sessions[sess.ID] = sess
	p.logger.Debug("session_acquired", zap.String("session_id", sess.ID), zap.Int("pool_size", len(p.sessions)))
	return sess, nil
}

// Release removes a session from the pool and closes its browser,
// healthy or not, freeing a slot; the next Acquire connects a fresh
// browser, which is how crashed sessions are replenished.
func (p *Pool) Release(sess *Session) {
	if sess == nil {
		return
	}
	p.mu.Lock()
	delete(p.sessions, sess.ID)
	p.mu.Unlock()

	if sess.Browser != nil {
		_ = sess.Browser.Close()
	}
	p.logger.Debug("session_released",
		zap.String("session_id", sess.ID),
		zap.Bool("healthy", sess.Healthy),
		zap.Int64("pages_processed", sess.metrics.PagesProcessed),
	)
}

// MarkUnhealthy flags a session as crashed so the caller knows to retry
// with a fresh one; the session is still disposed on Release.
func (s *Session) MarkUnhealthy() {
	s.Healthy = false
}

// Close disposes every pooled session and their browser connections.
// Guarantees cleanup on all exit paths per spec.md §4.4.
func (p *Pool) Close() {
	p.mu.Lock()
	sessions := make([]*Session, 0, len(p.sessions))
	for _, s := range p.sessions {
		sessions = append(sessions, s)
	}
	p.sessions = make(map[string]*Session)
	p.mu.Unlock()

	for _, s := range sessions {
		if s.Browser != nil {
			_ = s.Browser.Close()
		}
	}
}

// Size reports the number of currently leased sessions.
func (p *Pool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.sessions)
}
