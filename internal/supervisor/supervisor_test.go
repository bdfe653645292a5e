package supervisor

import (
	"bytes"
	"context"
	"errors"
	"os"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/innisfree/innisfree/internal/serviceport"
)

type fakeController struct {
	upErr      error
	upCalls    int32
	cleanCalls int32
}

func (f *fakeController) Up(ctx context.Context) error {
	atomic.AddInt32(&f.upCalls, 1)
	return f.upErr
}

func (f *fakeController) Clean(ctx context.Context) error {
	atomic.AddInt32(&f.cleanCalls, 1)
	return nil
}

func (f *fakeController) LocalAddress() string { return "10.50.0.1" }

func TestRunSkipsProxyWhenDestIsLoopback(t *testing.T) {
	ctrl := &fakeController{}
	ports := []serviceport.ServicePort{mustServicePort(t, "80:8000/TCP")}
	s := New(ctrl, "127.0.0.1", ports)

	// ctrl.LocalAddress() reports an address supervisor cannot actually
	// bind to; if the proxy engine were spawned despite dest being
	// loopback, it would fail to listen and log a warning.
	r, w, err := os.Pipe()
	require.NoError(t, err)
	origStderr := os.Stderr
	os.Stderr = w
	defer func() { os.Stderr = origStderr }()

	done := make(chan int, 1)
	go func() {
		done <- s.Run(context.Background())
	}()

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, syscall.Kill(syscall.Getpid(), syscall.SIGINT))

	select {
	case code := <-done:
		assert.Equal(t, ExitClean, code)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after signal")
	}

	w.Close()
	os.Stderr = origStderr
	var buf bytes.Buffer
	_, _ = buf.ReadFrom(r)
	assert.NotContains(t, buf.String(), "proxy engine stopped")
}

func mustServicePort(t *testing.T, spec string) serviceport.ServicePort {
	t.Helper()
	ports, err := serviceport.ParseMany(spec)
	require.NoError(t, err)
	require.Len(t, ports, 1)
	return ports[0]
}

func TestRunExitsCleanOnSignal(t *testing.T) {
	ctrl := &fakeController{}
	s := New(ctrl, "", nil)

	done := make(chan int, 1)
	go func() {
		done <- s.Run(context.Background())
	}()

	// Give Run time to install its handler and call Up before signaling.
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, syscall.Kill(syscall.Getpid(), syscall.SIGINT))

	select {
	case code := <-done:
		assert.Equal(t, ExitClean, code)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after signal")
	}

	assert.EqualValues(t, 1, atomic.LoadInt32(&ctrl.upCalls))
	assert.EqualValues(t, 1, atomic.LoadInt32(&ctrl.cleanCalls))
}

func TestRunExitsUpFailedAndCleansUpOnce(t *testing.T) {
	ctrl := &fakeController{upErr: errors.New("boom")}
	s := New(ctrl, "", nil)

	code := s.Run(context.Background())

	assert.Equal(t, ExitUpFailed, code)
	assert.EqualValues(t, 1, atomic.LoadInt32(&ctrl.cleanCalls))
}

func TestCleanOnlyRunsOnce(t *testing.T) {
	ctrl := &fakeController{}
	s := New(ctrl, "", nil)

	s.clean(context.Background())
	s.clean(context.Background())

	assert.EqualValues(t, 1, atomic.LoadInt32(&ctrl.cleanCalls))
}

func TestInstallSignalHandlerSucceeds(t *testing.T) {
	sigCh := make(chan os.Signal, 1)
	code, ok := installSignalHandler(sigCh)
	assert.True(t, ok)
	assert.Equal(t, 0, code)
}
