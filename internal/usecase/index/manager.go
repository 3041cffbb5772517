package index

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docqa/internal/domain"
)

// DefaultConnectTimeout bounds a whole (re)initialization.
const DefaultConnectTimeout = 30 * time.Second

// Manager owns the single live Handle of the process.
// Initialization is serialized by a mutex; readers load the handle without locking.
type Manager struct {
	mu        sync.Mutex
	current   atomic.Pointer[Handle]
	connector Connector
	ns        domain.Namespace
	timeout   time.Duration
	logger    *zap.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithConnectTimeout sets the deadline of a single initialization.
func WithConnectTimeout(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.timeout = d
		}
	}
}

// NewManager creates a handle manager for the given namespace. No connection is made.
func NewManager(connector Connector, ns domain.Namespace, logger *zap.Logger, opts ...Option) *Manager {
	m := &Manager{
		connector: connector,
		ns:        ns,
		timeout:   DefaultConnectTimeout,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Get returns the current handle, initializing it on first use.
func (m *Manager) Get(ctx context.Context) (*Handle, error) {
	if h := m.current.Load(); h != nil {
		return h, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// another caller may have finished init while we waited
	if h := m.current.Load(); h != nil {
		return h, nil
	}

	h, err := m.init(ctx)
	if err != nil {
		return nil, err
	}
	m.current.Store(h)
	return h, nil
}

// Reinit builds a fresh handle and swaps it in; the replaced handle is closed.
// On failure the previous handle, if any, stays in place.
func (m *Manager) Reinit(ctx context.Context) (*Handle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	h, err := m.init(ctx)
	if err != nil {
		return nil, err
	}
	if old := m.current.Swap(h); old != nil {
		old.Close()
	}
	return h, nil
}

// Ready reports whether a handle is live or can be initialized now.
func (m *Manager) Ready(ctx context.Context) error {
	_, err := m.Get(ctx)
	return err
}

// Close releases the current handle.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if old := m.current.Swap(nil); old != nil {
		old.Close()
	}
}

// init connects, checks the embedding provider and ensures the index exists.
func (m *Manager) init(ctx context.Context) (*Handle, error) {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	start := time.Now()

	res, err := m.connector.Connect(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: connect: %w", domain.ErrIndexInit, err)
	}

	fail := func(stage string, err error) (*Handle, error) {
		if res.Close != nil {
			res.Close()
		}
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrIndexInit, stage, err)
	}

	if res.Health != nil {
		if err := res.Health.HealthCheck(ctx); err != nil {
			return fail("embedding provider", err)
		}
	}

	created, err := res.Writer.EnsureIndex(ctx, m.ns)
	if err != nil {
		return fail("ensure index", err)
	}

	m.logger.Info("Index handle ready",
		zap.String("database", m.ns.Database),
		zap.String("collection", m.ns.Collection),
		zap.Bool("created", created),
		zap.Duration("took", time.Since(start)),
	)

	return NewHandle(m.ns, res, created), nil
}
