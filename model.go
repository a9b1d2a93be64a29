package sitetrans

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Model loads the translation model on demand.
type Model interface {
	Load(ctx context.Context) (Handle, error)
}

// Handle is a loaded model. Generate translates normalized text between two
// model language tags. Unload releases the model's resources.
type Handle interface {
	Generate(ctx context.Context, text, sourceTag, targetTag string) (string, error)
	Unload() error
}

var errNilHandle = errors.New("model returned no handle")

// ModelState is the lifecycle state of the managed model.
type ModelState int

const (
	ModelUnloaded ModelState = iota
	ModelLoading
	ModelLoaded
	ModelUnloading
)

func (s ModelState) String() string {
	switch s {
	case ModelUnloaded:
		return "unloaded"
	case ModelLoading:
		return "loading"
	case ModelLoaded:
		return "loaded"
	case ModelUnloading:
		return "unloading"
	default:
		return "unknown"
	}
}

// ModelStats reports lifecycle counters.
type ModelStats struct {
	State        ModelState
	Holders      int
	Loads        int
	LoadFailures int
	Unloads      int
}

// ModelManager owns the model handle. The handle exists only while at least
// one lease is held; the last release unloads it.
type ModelManager struct {
	model  Model
	logger zerolog.Logger

	gen sync.Mutex // serializes Generate across leases

	mu      sync.Mutex
	cond    *sync.Cond
	state   ModelState
	handle  Handle
	holders int
	stats   ModelStats
}

// NewModelManager creates a manager for model. Nothing is loaded until the
// first Acquire.
func NewModelManager(model Model, logger zerolog.Logger) *ModelManager {
	m := &ModelManager{
		model:  model,
		logger: logger,
	}
	m.cond = sync.NewCond(&m.mu)
	return m
}

// Acquire returns a lease on the loaded model, loading it if needed.
// Callers arriving during a load wait for it and share the result.
func (m *ModelManager) Acquire(ctx context.Context) (*Lease, error) {
	m.mu.Lock()
	for m.state == ModelLoading || m.state == ModelUnloading {
		m.cond.Wait()
	}

	if m.state == ModelLoaded {
		m.holders++
		h := m.handle
		m.mu.Unlock()
		return &Lease{manager: m, handle: h}, nil
	}

	if err := ctx.Err(); err != nil {
		m.mu.Unlock()
		return nil, &ModelError{Op: "load", Message: "request cancelled", Cause: err}
	}

	m.state = ModelLoading
	m.mu.Unlock()

	start := time.Now()
	h, err := m.loadHandle(ctx)

	m.mu.Lock()
	defer m.mu.Unlock()
	defer m.cond.Broadcast()

	if err != nil {
		m.state = ModelUnloaded
		m.stats.LoadFailures++
		m.logger.Error().Err(err).Msg("model load failed")
		return nil, &ModelError{Op: "load", Message: "cannot load model", Cause: err}
	}

	m.handle = h
	m.state = ModelLoaded
	m.holders++
	m.stats.Loads++
	m.logger.Info().Dur("elapsed", time.Since(start)).Msg("model loaded")

	return &Lease{manager: m, handle: h}, nil
}

// release drops one hold and unloads the handle when none remain.
func (m *ModelManager) release() error {
	m.mu.Lock()
	m.holders--
	if m.holders > 0 {
		m.mu.Unlock()
		return nil
	}

	h := m.handle
	m.handle = nil
	m.state = ModelUnloading
	m.mu.Unlock()

	err := unloadHandle(h)
	debug.FreeOSMemory()

	m.mu.Lock()
	m.state = ModelUnloaded
	m.stats.Unloads++
	m.cond.Broadcast()
	m.mu.Unlock()

	if err != nil {
		m.logger.Warn().Err(err).Msg("model unload failed")
		return &ModelError{Op: "unload", Message: "cannot unload model", Cause: err}
	}
	m.logger.Debug().Msg("model unloaded")
	return nil
}

// loadHandle calls Model.Load, reporting a panic as an error so the
// state machine always leaves ModelLoading.
func (m *ModelManager) loadHandle(ctx context.Context) (h Handle, err error) {
	defer func() {
		if r := recover(); r != nil {
			h, err = nil, fmt.Errorf("model load panicked: %v", r)
		}
	}()
	h, err = m.model.Load(ctx)
	if err == nil && h == nil {
		err = errNilHandle
	}
	return h, err
}

func unloadHandle(h Handle) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("model unload panicked: %v", r)
		}
	}()
	return h.Unload()
}

// State returns the current lifecycle state.
func (m *ModelManager) State() ModelState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Stats returns a snapshot of the lifecycle counters.
func (m *ModelManager) Stats() ModelStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.stats
	s.State = m.state
	s.Holders = m.holders
	return s
}

// Lease is one caller's hold on the loaded model.
type Lease struct {
	manager *ModelManager
	handle  Handle

	once     sync.Once
	released atomic.Bool
	err      error
}

// Generate translates text from source to target. Generation is serialized
// across all leases.
func (l *Lease) Generate(ctx context.Context, text string, source, target Language) (string, error) {
	if l.released.Load() {
		return "", &ModelError{Op: "generate", Message: "lease already released"}
	}

	l.manager.gen.Lock()
	defer l.manager.gen.Unlock()

	out, err := l.handle.Generate(ctx, text, source.Tag, target.Tag)
	if err != nil {
		return "", &ModelError{
			Op:      "generate",
			Message: "cannot translate to " + target.Tag,
			Cause:   err,
		}
	}
	return out, nil
}

// Release gives the lease back. Only the first call has an effect.
func (l *Lease) Release() error {
	l.once.Do(func() {
		l.released.Store(true)
		l.err = l.manager.release()
	})
	return l.err
}
