package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/innisfree/innisfree/internal/config"
	"github.com/innisfree/innisfree/internal/proxy"
	"github.com/innisfree/innisfree/internal/serviceport"
)

var proxyCmd = &cobra.Command{
	Use:   "proxy",
	Short: "Run the proxy engine standalone, without provisioning a tunnel (debug)",
	RunE:  runProxy,
}

func init() {
	proxyCmd.Flags().String("ports", config.EnvOrDefault("PORTS", "80:8000/TCP"), "comma-separated public:local/proto service ports")
	proxyCmd.Flags().String("dest-ip", config.EnvOrDefault("DEST_IP", "127.0.0.1"), "destination IP the proxy engine forwards to")
	proxyCmd.Flags().String("listen-ip", config.EnvOrDefault("LISTEN_IP", "0.0.0.0"), "local IP the proxy engine listens on")
}

func runProxy(cmd *cobra.Command, args []string) error {
	portsSpec, _ := cmd.Flags().GetString("ports")
	destIP, _ := cmd.Flags().GetString("dest-ip")
	listenIP, _ := cmd.Flags().GetString("listen-ip")

	ports, err := serviceport.ParseMany(portsSpec)
	if err != nil {
		return exitf(4, "invalid --ports: %w", err)
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		<-sigCh
		cancel()
	}()

	engine := &proxy.Engine{}
	if err := engine.Run(ctx, listenIP, destIP, ports); err != nil {
		return exitf(4, "proxy failed: %w", err)
	}
	return nil
}
