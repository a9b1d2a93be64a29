package provider

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ZaguanLabs/sitetrans"
)

// MockCall records one Generate invocation.
type MockCall struct {
	Text      string
	SourceTag string
	TargetTag string
}

// MockModel is a deterministic in-process model for testing. Unknown texts
// translate to "[<target tag>] <text>".
type MockModel struct {
	mu sync.Mutex

	translations map[string]map[string]string // target tag → text → translation
	loadErr      error
	generateErr  error
	failText     string
	loadDelay    time.Duration

	loads     int
	unloads   int
	liveLoads int
	calls     []MockCall
}

// NewMockModel creates a new mock model with a few built-in translations.
func NewMockModel() *MockModel {
	return &MockModel{
		translations: map[string]map[string]string{
			"hin_Deva": {
				"Hello":       "नमस्ते",
				"Hello World": "नमस्ते दुनिया",
			},
			"ben_Beng": {
				"Hello":       "হ্যালো",
				"Hello World": "হ্যালো বিশ্ব",
			},
		},
	}
}

// SetTranslation registers a fixed translation.
func (m *MockModel) SetTranslation(targetTag, text, translation string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.translations[targetTag] == nil {
		m.translations[targetTag] = make(map[string]string)
	}
	m.translations[targetTag][text] = translation
}

// SetLoadError makes subsequent loads fail with err (nil to succeed again).
func (m *MockModel) SetLoadError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loadErr = err
}

// SetGenerateError makes every Generate call fail with err.
func (m *MockModel) SetGenerateError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.generateErr = err
}

// FailOn makes Generate fail for one specific text.
func (m *MockModel) FailOn(text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failText = text
}

// SetLoadDelay makes Load block for d.
func (m *MockModel) SetLoadDelay(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loadDelay = d
}

// Load returns a new handle.
func (m *MockModel) Load(ctx context.Context) (sitetrans.Handle, error) {
	m.mu.Lock()
	delay := m.loadDelay
	err := m.loadErr
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.loads++
	m.liveLoads++
	return &mockHandle{model: m}, nil
}

// Loads returns how many handles were created.
func (m *MockModel) Loads() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loads
}

// Unloads returns how many handles were unloaded.
func (m *MockModel) Unloads() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.unloads
}

// Live returns how many handles are loaded right now.
func (m *MockModel) Live() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.liveLoads
}

// Calls returns a copy of all Generate invocations.
func (m *MockModel) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MockCall, len(m.calls))
	copy(out, m.calls)
	return out
}

// Generates returns the number of Generate invocations.
func (m *MockModel) Generates() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// Reset clears counters and recorded calls. Handles loaded before Reset
// should be unloaded first.
func (m *MockModel) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loads = 0
	m.unloads = 0
	m.liveLoads = 0
	m.calls = nil
}

type mockHandle struct {
	model    *MockModel
	unloaded bool
}

func (h *mockHandle) Generate(ctx context.Context, text, sourceTag, targetTag string) (string, error) {
	m := h.model
	m.mu.Lock()
	defer m.mu.Unlock()

	if h.unloaded {
		return "", errUnloaded
	}
	m.calls = append(m.calls, MockCall{Text: text, SourceTag: sourceTag, TargetTag: targetTag})

	if m.generateErr != nil {
		return "", m.generateErr
	}
	if m.failText != "" && text == m.failText {
		return "", fmt.Errorf("cannot translate %q", text)
	}
	if tr, ok := m.translations[targetTag][text]; ok {
		return tr, nil
	}
	return fmt.Sprintf("[%s] %s", targetTag, text), nil
}

func (h *mockHandle) Unload() error {
	m := h.model
	m.mu.Lock()
	defer m.mu.Unlock()

	if h.unloaded {
		return errors.New("handle already unloaded")
	}
	h.unloaded = true
	m.unloads++
	m.liveLoads--
	return nil
}

// Verify MockModel implements Model
var _ Model = (*MockModel)(nil)
