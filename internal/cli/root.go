// Package cli wires the innisfree cobra command tree (spec §6): one
// file per subcommand, init() registering flags and wiring into the
// parent command, RunE returning wrapped errors.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "innisfree",
	Short: "innisfree — expose a local TCP service on a stable public IPv4",
	Long: `innisfree provisions a disposable cloud VM, establishes a WireGuard
tunnel between it and your workstation, and proxies TCP traffic from the
VM's public IPv4 to a destination on your local network.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command, returning the first error encountered.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(upCmd)
	rootCmd.AddCommand(sshCmd)
	rootCmd.AddCommand(ipCmd)
	rootCmd.AddCommand(doctorCmd)
	rootCmd.AddCommand(cleanCmd)
	rootCmd.AddCommand(proxyCmd)
}

// exitError wraps an error with the process exit code the caller
// should use, so RunE can surface both through one return value and
// cmd/innisfree/main.go can recover the code without parsing strings.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func exitf(code int, format string, args ...any) error {
	return &exitError{code: code, err: fmt.Errorf(format, args...)}
}

// ExitCode recovers the intended process exit code from an error
// returned by Execute. Errors not produced by this package's
// subcommands exit 1, matching cobra's own default.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	if ee, ok := err.(*exitError); ok {
		return ee.code
	}
	return 1
}
