package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/innisfree/innisfree/internal/config"
	"github.com/innisfree/innisfree/internal/localstate"
	"github.com/innisfree/innisfree/internal/sanitize"
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Delete the local config directory for a tunnel",
	RunE:  runClean,
}

func init() {
	cleanCmd.Flags().String("name", config.EnvOrDefault("NAME", "innisfree"), "tunnel name")
	all, _ := strconv.ParseBool(config.EnvOrDefault("ALL", "false"))
	cleanCmd.Flags().Bool("all", all, "remove every tunnel's local config, not just --name")
}

func runClean(cmd *cobra.Command, args []string) error {
	all, _ := cmd.Flags().GetBool("all")
	if all {
		if err := localstate.CleanAll(); err != nil {
			return fmt.Errorf("clean --all: %w", err)
		}
		fmt.Println("✓ removed local config for all tunnels")
		return nil
	}

	name, _ := cmd.Flags().GetString("name")
	name = sanitize.CleanName(name)

	if err := localstate.Clean(name); err != nil {
		return fmt.Errorf("clean %q: %w", name, err)
	}
	fmt.Printf("✓ removed local config for %s\n", name)
	return nil
}
