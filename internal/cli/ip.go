package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/innisfree/innisfree/internal/config"
	"github.com/innisfree/innisfree/internal/localstate"
	"github.com/innisfree/innisfree/internal/sanitize"
)

var ipCmd = &cobra.Command{
	Use:   "ip",
	Short: "Print the remote tunnel endpoint's public IPv4",
	RunE:  runIP,
}

func init() {
	ipCmd.Flags().String("name", config.EnvOrDefault("NAME", "innisfree"), "tunnel name")
}

func runIP(cmd *cobra.Command, args []string) error {
	name, _ := cmd.Flags().GetString("name")
	name = sanitize.CleanName(name)

	dir, err := localstate.Make(name)
	if err != nil {
		return exitf(2, "unknown instance %q: %w", name, err)
	}

	remoteIPv4, _, err := dir.ReadKnownHosts()
	if err != nil {
		return exitf(2, "unknown instance %q: %w", name, err)
	}

	fmt.Println(remoteIPv4)
	return nil
}
