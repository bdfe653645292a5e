package cli

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/innisfree/innisfree/internal/config"
	"github.com/innisfree/innisfree/internal/localstate"
	"github.com/innisfree/innisfree/internal/sanitize"
)

var sshCmd = &cobra.Command{
	Use:   "ssh",
	Short: "Open an interactive SSH session to the remote tunnel endpoint",
	RunE:  runSSH,
}

func init() {
	sshCmd.Flags().String("name", config.EnvOrDefault("NAME", "innisfree"), "tunnel name")
}

func runSSH(cmd *cobra.Command, args []string) error {
	name, _ := cmd.Flags().GetString("name")
	name = sanitize.CleanName(name)

	dir, err := localstate.Make(name)
	if err != nil {
		return exitf(3, "unknown instance %q: %w", name, err)
	}

	remoteIPv4, _, err := dir.ReadKnownHosts()
	if err != nil {
		return exitf(3, "unknown instance %q: %w", name, err)
	}

	keyPath := filepath.Join(dir.Path(), localstate.ClientPrivateKeyFile)
	knownHostsPath := filepath.Join(dir.Path(), localstate.KnownHostsFile)

	sshArgs := []string{
		"-l", "innisfree",
		"-i", keyPath,
		"-o", "UserKnownHostsFile=" + knownHostsPath,
		remoteIPv4,
	}

	c := exec.CommandContext(cmd.Context(), "ssh", sshArgs...)
	c.Stdin = os.Stdin
	c.Stdout = os.Stdout
	c.Stderr = os.Stderr
	if err := c.Run(); err != nil {
		return fmt.Errorf("ssh: %w", err)
	}
	return nil
}
