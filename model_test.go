package sitetrans

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// fakeModel counts loads and hands out fakeHandles.
type fakeModel struct {
	mu          sync.Mutex
	loads       int
	unloads     int
	loadErr     error
	unloadErr   error
	nilHandle   bool
	panicLoad   bool          // the next Load panics
	panicUnload bool          // the next Unload panics
	gate        chan struct{} // when set, Load blocks until it is closed
	started     chan struct{} // closed when the first Load begins
	startOnce   sync.Once
}

func (m *fakeModel) Load(ctx context.Context) (Handle, error) {
	if m.started != nil {
		m.startOnce.Do(func() { close(m.started) })
	}
	if m.gate != nil {
		<-m.gate
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.panicLoad {
		m.panicLoad = false
		panic("device lost")
	}
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	if m.nilHandle {
		return nil, nil
	}
	m.loads++
	return &fakeHandle{model: m}, nil
}

func (m *fakeModel) counts() (int, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loads, m.unloads
}

type fakeHandle struct {
	model       *fakeModel
	generateErr error
	active      atomic.Int32
	maxActive   atomic.Int32
}

func (h *fakeHandle) Generate(ctx context.Context, text, sourceTag, targetTag string) (string, error) {
	n := h.active.Add(1)
	defer h.active.Add(-1)
	for {
		old := h.maxActive.Load()
		if n <= old || h.maxActive.CompareAndSwap(old, n) {
			break
		}
	}
	if h.generateErr != nil {
		return "", h.generateErr
	}
	return "[" + targetTag + "] " + text, nil
}

func (h *fakeHandle) Unload() error {
	h.model.mu.Lock()
	defer h.model.mu.Unlock()
	h.model.unloads++
	if h.model.panicUnload {
		h.model.panicUnload = false
		panic("double free")
	}
	return h.model.unloadErr
}

func TestModelManager_AcquireRelease(t *testing.T) {
	model := &fakeModel{}
	m := NewModelManager(model, zerolog.Nop())

	if m.State() != ModelUnloaded {
		t.Fatalf("initial state = %s, want unloaded", m.State())
	}

	lease, err := m.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	if m.State() != ModelLoaded {
		t.Errorf("state = %s, want loaded", m.State())
	}

	out, err := lease.Generate(context.Background(), "Hello", English, Hindi)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if out != "[hin_Deva] Hello" {
		t.Errorf("Generate() = %q", out)
	}

	if err := lease.Release(); err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	if m.State() != ModelUnloaded {
		t.Errorf("state after release = %s, want unloaded", m.State())
	}

	loads, unloads := model.counts()
	if loads != 1 || unloads != 1 {
		t.Errorf("loads=%d unloads=%d, want 1 and 1", loads, unloads)
	}

	stats := m.Stats()
	if stats.Loads != 1 || stats.Unloads != 1 || stats.Holders != 0 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestModelManager_ReleaseIdempotent(t *testing.T) {
	model := &fakeModel{}
	m := NewModelManager(model, zerolog.Nop())

	a, _ := m.Acquire(context.Background())
	b, _ := m.Acquire(context.Background())

	_ = a.Release()
	_ = a.Release()

	if m.State() != ModelLoaded {
		t.Fatalf("double release of one lease must not unload a handle still held, state = %s", m.State())
	}

	_ = b.Release()
	if _, unloads := model.counts(); unloads != 1 {
		t.Errorf("unloads = %d, want 1", unloads)
	}
}

func TestModelManager_GenerateAfterRelease(t *testing.T) {
	m := NewModelManager(&fakeModel{}, zerolog.Nop())

	lease, _ := m.Acquire(context.Background())
	_ = lease.Release()

	_, err := lease.Generate(context.Background(), "Hello", English, Bengali)
	var modelErr *ModelError
	if !errors.As(err, &modelErr) || modelErr.Op != "generate" {
		t.Errorf("Generate after release error = %v, want generate ModelError", err)
	}
}

func TestModelManager_LoadFailure(t *testing.T) {
	boom := errors.New("weights missing")
	model := &fakeModel{loadErr: boom}
	m := NewModelManager(model, zerolog.Nop())

	_, err := m.Acquire(context.Background())
	var modelErr *ModelError
	if !errors.As(err, &modelErr) || modelErr.Op != "load" {
		t.Fatalf("Acquire error = %v, want load ModelError", err)
	}
	if !errors.Is(err, boom) {
		t.Error("ModelError should wrap the load cause")
	}
	if m.State() != ModelUnloaded {
		t.Errorf("state = %s, want unloaded after failed load", m.State())
	}
	if m.Stats().LoadFailures != 1 {
		t.Errorf("LoadFailures = %d, want 1", m.Stats().LoadFailures)
	}

	// A later request can retry.
	model.mu.Lock()
	model.loadErr = nil
	model.mu.Unlock()

	lease, err := m.Acquire(context.Background())
	if err != nil {
		t.Fatalf("retry Acquire failed: %v", err)
	}
	_ = lease.Release()
}

func TestModelManager_NilHandle(t *testing.T) {
	m := NewModelManager(&fakeModel{nilHandle: true}, zerolog.Nop())

	if _, err := m.Acquire(context.Background()); err == nil {
		t.Fatal("expected error when the model returns no handle")
	}
	if m.State() != ModelUnloaded {
		t.Errorf("state = %s, want unloaded", m.State())
	}
}

func TestModelManager_CancelledContext(t *testing.T) {
	model := &fakeModel{}
	m := NewModelManager(model, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := m.Acquire(ctx); err == nil {
		t.Fatal("expected error for cancelled context")
	}
	if loads, _ := model.counts(); loads != 0 {
		t.Error("cancelled acquire should not load")
	}
}

func TestModelManager_GenerateError(t *testing.T) {
	m := NewModelManager(&fakeModel{}, zerolog.Nop())

	lease, _ := m.Acquire(context.Background())
	defer lease.Release()

	boom := errors.New("CUDA out of memory")
	lease.handle.(*fakeHandle).generateErr = boom

	_, err := lease.Generate(context.Background(), "Hello", English, Hindi)
	if !errors.Is(err, boom) {
		t.Errorf("Generate error = %v, want wrapped %v", err, boom)
	}
}

func TestModelManager_UnloadError(t *testing.T) {
	model := &fakeModel{unloadErr: errors.New("busy")}
	m := NewModelManager(model, zerolog.Nop())

	lease, _ := m.Acquire(context.Background())
	err := lease.Release()

	var modelErr *ModelError
	if !errors.As(err, &modelErr) || modelErr.Op != "unload" {
		t.Errorf("Release error = %v, want unload ModelError", err)
	}
	if m.State() != ModelUnloaded {
		t.Errorf("state = %s, want unloaded even when unload fails", m.State())
	}
	if lease.Release() != err {
		t.Error("repeated Release should return the first result")
	}
}

func TestModelManager_ConcurrentAcquireLoadsOnce(t *testing.T) {
	model := &fakeModel{
		gate:    make(chan struct{}),
		started: make(chan struct{}),
	}
	m := NewModelManager(model, zerolog.Nop())

	const n = 8
	leases := make(chan *Lease, n)
	errs := make(chan error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			lease, err := m.Acquire(context.Background())
			if err != nil {
				errs <- err
				return
			}
			leases <- lease
		}()
	}

	<-model.started
	if m.State() != ModelLoading {
		t.Errorf("state during load = %s, want loading", m.State())
	}
	close(model.gate)
	wg.Wait()
	close(leases)
	close(errs)

	for err := range errs {
		t.Fatalf("Acquire failed: %v", err)
	}

	if loads, _ := model.counts(); loads != 1 {
		t.Errorf("loads = %d, want 1", loads)
	}
	if m.Stats().Holders != n {
		t.Errorf("holders = %d, want %d", m.Stats().Holders, n)
	}

	var handle *fakeHandle
	var gen sync.WaitGroup
	for lease := range leases {
		handle = lease.handle.(*fakeHandle)
		gen.Add(1)
		go func(l *Lease) {
			defer gen.Done()
			_, _ = l.Generate(context.Background(), "Hello", English, Hindi)
			_ = l.Release()
		}(lease)
	}
	gen.Wait()

	if handle.maxActive.Load() != 1 {
		t.Errorf("generation ran %d at a time, want 1", handle.maxActive.Load())
	}
	if _, unloads := model.counts(); unloads != 1 {
		t.Errorf("unloads = %d, want 1", unloads)
	}
	if m.State() != ModelUnloaded {
		t.Errorf("state = %s, want unloaded", m.State())
	}
}

func TestModelState_String(t *testing.T) {
	tests := map[ModelState]string{
		ModelUnloaded:  "unloaded",
		ModelLoading:   "loading",
		ModelLoaded:    "loaded",
		ModelUnloading: "unloading",
		ModelState(42): "unknown",
	}
	for state, want := range tests {
		if got := state.String(); got != want {
			t.Errorf("ModelState(%d).String() = %q, want %q", int(state), got, want)
		}
	}
}

func TestModelManager_LoadPanic(t *testing.T) {
	model := &fakeModel{panicLoad: true}
	m := NewModelManager(model, zerolog.Nop())

	_, err := m.Acquire(context.Background())
	var modelErr *ModelError
	if !errors.As(err, &modelErr) || modelErr.Op != "load" {
		t.Fatalf("expected load ModelError, got %v", err)
	}
	if m.State() != ModelUnloaded {
		t.Fatalf("state after failed load = %s, want unloaded", m.State())
	}

	done := make(chan error, 1)
	go func() {
		lease, err := m.Acquire(context.Background())
		if err == nil {
			err = lease.Release()
		}
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("second Acquire failed: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("second Acquire blocked; state=%s", m.State())
	}
	if stats := m.Stats(); stats.LoadFailures != 1 || stats.Loads != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestModelManager_UnloadPanic(t *testing.T) {
	model := &fakeModel{panicUnload: true}
	m := NewModelManager(model, zerolog.Nop())

	lease, err := m.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	var modelErr *ModelError
	if err := lease.Release(); !errors.As(err, &modelErr) || modelErr.Op != "unload" {
		t.Fatalf("expected unload ModelError, got %v", err)
	}
	if m.State() != ModelUnloaded {
		t.Fatalf("state after failed unload = %s, want unloaded", m.State())
	}

	lease, err = m.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire after failed unload: %v", err)
	}
	if err := lease.Release(); err != nil {
		t.Errorf("Release failed: %v", err)
	}
	if loads, unloads := model.counts(); loads != 2 || unloads != 2 {
		t.Errorf("loads=%d unloads=%d, want 2 and 2", loads, unloads)
	}
}
