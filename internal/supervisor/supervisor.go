// Package supervisor implements the lifecycle supervisor (C8, spec
// §4.8): it wires a tunnel controller to a process-wide interrupt
// signal and an optional proxy task, guaranteeing clean() runs exactly
// once on any fatal outcome.
package supervisor

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/innisfree/innisfree/internal/proxy"
	"github.com/innisfree/innisfree/internal/serviceport"
	"github.com/innisfree/innisfree/internal/statusd"
	"github.com/innisfree/innisfree/internal/tunnel"
)

// Exit codes per spec §4.8/§6.
const (
	ExitClean            = 0
	ExitUpFailed         = 2
	ExitSignalHandlerErr = 10
)

// Controller is the subset of *tunnel.Controller the supervisor drives.
type Controller interface {
	Up(ctx context.Context) error
	Clean(ctx context.Context) error
	LocalAddress() string
}

// Supervisor installs a SIGINT/SIGTERM handler exactly once and runs
// clean() exactly once per lifecycle, whether triggered by the signal
// or by an up() failure.
type Supervisor struct {
	ctrl      Controller
	destIP    string
	ports     []serviceport.ServicePort
	cleanOnce sync.Once
}

// New returns a Supervisor for ctrl. destIP and ports configure the
// optional proxy task spawned after a successful Up; if ports is
// empty, no proxy task runs.
func New(ctrl Controller, destIP string, ports []serviceport.ServicePort) *Supervisor {
	return &Supervisor{ctrl: ctrl, destIP: destIP, ports: ports}
}

// Run executes the full up/block/clean lifecycle and returns the
// process exit code. It never itself calls os.Exit, so callers remain
// in control of the process.
func (s *Supervisor) Run(ctx context.Context) int {
	sigCh := make(chan os.Signal, 1)
	defer signal.Stop(sigCh)

	if code, ok := installSignalHandler(sigCh); !ok {
		return code
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	fmt.Println("→ bringing up tunnel...")
	if err := s.ctrl.Up(runCtx); err != nil {
		fmt.Fprintf(os.Stderr, "✗ up failed: %v\n", err)
		s.clean(context.Background())
		return ExitUpFailed
	}
	fmt.Println("✓ tunnel up")

	var proxyDone chan struct{}
	if len(s.ports) > 0 && s.destIP != "127.0.0.1" {
		proxyDone = make(chan struct{})
		go func() {
			defer close(proxyDone)
			engine := &proxy.Engine{OnAccept: statusd.ObserveAccept}
			if err := engine.Run(runCtx, s.ctrl.LocalAddress(), s.destIP, s.ports); err != nil {
				fmt.Fprintf(os.Stderr, "⚠ proxy engine stopped: %v\n", err)
			}
		}()
	}

	<-sigCh
	fmt.Println("\n→ signal received, cleaning up...")
	cancel()
	if proxyDone != nil {
		<-proxyDone
	}
	s.clean(context.Background())
	fmt.Println("✓ cleanup complete")
	return ExitClean
}

// installSignalHandler registers sigCh for SIGINT/SIGTERM. signal.Notify
// itself never fails in the standard library, but a recover guard is
// kept here because the spec calls out a dedicated exit code for
// handler-installation failure, and os/signal's behavior is platform-
// specific enough that a future port could make it fallible.
func installSignalHandler(sigCh chan os.Signal) (code int, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "✗ failed to install signal handler: %v\n", r)
			code, ok = ExitSignalHandlerErr, false
		}
	}()
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	return 0, true
}

// clean runs ctrl.Clean exactly once, regardless of how many times it
// is called across the supervisor's lifetime.
func (s *Supervisor) clean(ctx context.Context) {
	s.cleanOnce.Do(func() {
		if err := s.ctrl.Clean(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "⚠ cleanup reported an error: %v\n", err)
		}
	})
}

// ensure *tunnel.Controller satisfies Controller at compile time.
var _ Controller = (*tunnel.Controller)(nil)
