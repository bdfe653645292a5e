package cli

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/innisfree/innisfree/internal/config"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Report whether this host supports running innisfree",
	RunE:  runDoctor,
}

// requiredBinaries must be on PATH for up()'s subprocess steps to work
// (spec §6's "Environment" note).
var requiredBinaries = []string{"wg-quick", "wg", "ssh", "ping"}

// supportedPlatforms lists the GOOS values wg-quick ships for.
var supportedPlatforms = map[string]bool{"linux": true, "darwin": true}

func runDoctor(cmd *cobra.Command, args []string) error {
	fmt.Println("🔍 Checking innisfree prerequisites...")

	supported := true

	fmt.Printf("Checking platform (%s)... ", runtime.GOOS)
	if supportedPlatforms[runtime.GOOS] {
		fmt.Println("✅")
	} else {
		fmt.Println("❌")
		supported = false
	}

	for _, bin := range requiredBinaries {
		fmt.Printf("Checking %s... ", bin)
		if _, err := exec.LookPath(bin); err != nil {
			fmt.Println("❌ not found on PATH")
			supported = false
		} else {
			fmt.Println("✅")
		}
	}

	fmt.Print("Checking $HOME is writable... ")
	if err := checkHomeWritable(); err != nil {
		fmt.Printf("❌ %v\n", err)
		supported = false
	} else {
		fmt.Println("✅")
	}

	fmt.Printf("Checking %s is set... ", config.DigitalOceanTokenEnvVar)
	if _, err := config.DigitalOceanToken(); err != nil {
		fmt.Println("❌ not set")
		supported = false
	} else {
		fmt.Println("✅")
	}

	if !supported {
		fmt.Println("\n✗ this host does not support innisfree")
		return exitf(5, "unsupported host")
	}

	fmt.Println("\n✓ this host supports innisfree")
	return nil
}

// checkHomeWritable probes $HOME by creating and removing a throwaway
// file, since a read-only $HOME would otherwise only surface much
// later when `up` tries to write local tunnel state.
func checkHomeWritable() error {
	home, err := config.Home()
	if err != nil {
		return err
	}

	probe := filepath.Join(home, ".innisfree-doctor-probe")
	if err := os.WriteFile(probe, []byte(""), 0600); err != nil {
		return err
	}
	return os.Remove(probe)
}
