package svcreg

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

// ============================================================================
// Shared Test Types
// ============================================================================

// TLogger is a basic service for testing.
type TLogger struct {
	ID    string
	Lines []string
}

func NewTLogger() *TLogger {
	return &TLogger{ID: "logger"}
}

// TDependency is a basic dependency for testing.
type TDependency struct {
	Name string
}

func NewTDependency() *TDependency {
	return &TDependency{Name: "dep"}
}

// TServiceWithDeps demonstrates factory-based dependency injection.
type TServiceWithDeps struct {
	Log *TLogger
	Dep *TDependency
}

func NewTServiceWithDeps(log *TLogger, dep *TDependency) *TServiceWithDeps {
	return &TServiceWithDeps{Log: log, Dep: dep}
}

// teardownLog records disposal order for teardown-ordering assertions.
type teardownLog struct {
	mu    sync.Mutex
	names []string
}

func (l *teardownLog) add(name string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.names = append(l.names, name)
}

func (l *teardownLog) Names() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.names...)
}

// TDisposable implements Disposable for lifecycle testing.
type TDisposable struct {
	Name     string
	CloseErr error

	closed atomic.Bool
	log    *teardownLog
}

func (d *TDisposable) Close() error {
	if d.closed.Swap(true) {
		return errors.New("already closed")
	}
	if d.log != nil {
		d.log.add(d.Name)
	}
	return d.CloseErr
}

func (d *TDisposable) IsClosed() bool {
	return d.closed.Load()
}

func NewTDisposable(name string, log *teardownLog) *TDisposable {
	return &TDisposable{Name: name, log: log}
}

// TCtxDisposable implements DisposableWithContext for lifecycle testing.
type TCtxDisposable struct {
	Name string

	closed atomic.Bool
	ctx    context.Context
	log    *teardownLog
}

func (d *TCtxDisposable) Close(ctx context.Context) error {
	d.closed.Store(true)
	d.ctx = ctx
	if d.log != nil {
		d.log.add(d.Name)
	}
	return nil
}

func (d *TCtxDisposable) IsClosed() bool {
	return d.closed.Load()
}

// TConsumer declares injectable slots for property-injection tests.
type TConsumer struct {
	Log      *TLogger     `inject:"Logger"`
	Dep      *TDependency `inject:"Dependency"`
	Optional *TDisposable `inject:"NotRegistered" optional:"true"`
}

// THooked tracks post-construction hook invocations.
type THooked struct {
	Log *TLogger `inject:"Logger"`

	hookCalls atomic.Int32
}

func (h *THooked) PostConstruct() error {
	h.hookCalls.Add(1)
	return nil
}

func (h *THooked) HookCalls() int {
	return int(h.hookCalls.Load())
}

// THookedErr fails its post-construction hook.
type THookedErr struct{}

func (h *THookedErr) PostConstruct() error {
	return errors.New("hook failed")
}

// ============================================================================
// Shared Keys
// ============================================================================

var (
	keyLogger     = NewKey("Logger")
	keyDependency = NewKey("Dependency")
	keyService    = NewKey("Service")
)

// ============================================================================
// Test Helpers
// ============================================================================

// newTestRegistry creates a registry with a pre-populated reflect catalog
// and registers cleanup.
func newTestRegistry(t *testing.T, opts ...Option) *Registry {
	t.Helper()
	r := New(opts...)
	t.Cleanup(func() { _ = r.Close() })
	return r
}

// newTestCatalog enrolls the shared test types.
func newTestCatalog(t *testing.T) *ReflectCatalog {
	t.Helper()
	c := NewReflectCatalog()
	require.NoError(t, c.RegisterType("svcreg.TLogger", NewTLogger))
	require.NoError(t, c.RegisterType("svcreg.TDependency", NewTDependency))
	require.NoError(t, c.RegisterType("svcreg.TConsumer", &TConsumer{}))
	require.NoError(t, c.RegisterType("svcreg.THooked", &THooked{}))
	require.NoError(t, c.RegisterType("svcreg.THookedErr", &THookedErr{}))
	return c
}

// requireResolve resolves a service or fails the test.
func requireResolve[T any](t *testing.T, r *Registry, key Key) T {
	t.Helper()
	v, err := r.Resolve(key)
	require.NoError(t, err)
	typed, ok := v.(T)
	require.True(t, ok, "resolved %T, want %T", v, typed)
	return typed
}
