package tunnel

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/innisfree/innisfree/internal/provider/mock"
	"github.com/innisfree/innisfree/internal/serviceport"
)

// fakeBinOnPath installs a stub executable named name on PATH that
// always exits 0, so tests can exercise Up()'s subprocess steps
// (ssh, wg-quick, ping) without a real network or kernel interface.
func fakeBinOnPath(t *testing.T, names ...string) {
	t.Helper()
	dir := t.TempDir()
	for _, name := range names {
		script := "#!/bin/sh\nexit 0\n"
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(script), 0755))
	}
	t.Setenv("PATH", dir+string(os.PathListSeparator)+os.Getenv("PATH"))
}

// TestControllerUpAndClean runs Up against the mock provider and checks
// that Clean destroys the server Up created and removes the local
// state directory.
func TestControllerUpAndClean(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	fakeBinOnPath(t, "ssh", "wg-quick", "ping")

	ports, err := serviceport.ParseMany("80:8000")
	require.NoError(t, err)

	p := mock.New()
	ctrl, err := New(Config{
		Name:         "t1",
		ServicePorts: ports,
		DestIP:       "127.0.0.1",
		ReadyTimeout: 5 * time.Second,
		PollInterval: 10 * time.Millisecond,
	}, p)
	require.NoError(t, err)

	// waitSSHReady dials the provider's reported public IPv4 on :22.
	// The mock provider always reports 203.0.113.10, which is
	// unreachable from a test sandbox, so point it at a local
	// listener instead by overriding after construction isn't
	// possible without exporting internals; this test therefore
	// exercises Up() only up through provider creation and asserts
	// Clean() tears down what was created. The dial-success path of
	// the SSH-readiness probe is covered by
	// TestWaitSSHReadySucceedsOnReachableHost against a loopback
	// listener.
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	err = ctrl.Up(ctx)
	assert.Error(t, err) // times out dialing the mock's unreachable IP

	require.NoError(t, ctrl.Clean(context.Background()))
	assert.Len(t, p.DestroyCalls, 1)
	assert.NoDirExists(t, filepath.Join(home, ".config", "innisfree", "innisfree-t1"))
}

func TestControllerCleanBeforeUpStillRemovesDir(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	fakeBinOnPath(t, "wg-quick")

	p := mock.New()
	ctrl, err := New(Config{Name: "t2"}, p)
	require.NoError(t, err)

	require.NoError(t, ctrl.Clean(context.Background()))
	assert.NoDirExists(t, filepath.Join(home, ".config", "innisfree", "innisfree-t2"))
}

func TestWaitSSHReadySucceedsOnReachableHost(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer listener.Close()
	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()

	host, port, err := net.SplitHostPort(listener.Addr().String())
	require.NoError(t, err)

	c := &Controller{cfg: Config{PollInterval: 10 * time.Millisecond}}
	err = c.dialReady(context.Background(), host, port)
	assert.NoError(t, err)
}
