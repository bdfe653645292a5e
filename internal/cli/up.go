package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/innisfree/innisfree/internal/config"
	"github.com/innisfree/innisfree/internal/provider/digitalocean"
	"github.com/innisfree/innisfree/internal/serviceport"
	"github.com/innisfree/innisfree/internal/statusd"
	"github.com/innisfree/innisfree/internal/supervisor"
	"github.com/innisfree/innisfree/internal/tunnel"
)

var upCmd = &cobra.Command{
	Use:   "up",
	Short: "Bring up a tunnel, blocking until interrupted",
	RunE:  runUp,
}

func init() {
	upCmd.Flags().String("name", config.EnvOrDefault("NAME", "innisfree"), "tunnel name")
	upCmd.Flags().String("ports", config.EnvOrDefault("PORTS", "80:8000/TCP"), "comma-separated public:local/proto service ports")
	upCmd.Flags().String("dest-ip", config.EnvOrDefault("DEST_IP", "127.0.0.1"), "destination IP the proxy engine forwards to")
	upCmd.Flags().String("floating-ip", config.EnvOrDefault("FLOATING_IP", ""), "existing reserved IPv4 to assign to the new droplet")
	upCmd.Flags().String("status-addr", config.EnvOrDefault("STATUS_ADDR", ""), "optional host:port for the debug status server")
	readyTimeout := 10 * time.Minute
	if d, err := time.ParseDuration(config.EnvOrDefault("READY_TIMEOUT", "")); err == nil {
		readyTimeout = d
	}
	upCmd.Flags().Duration("ready-timeout", readyTimeout, "ceiling on the SSH-readiness and cloud-init-wait poll loops")
}

func runUp(cmd *cobra.Command, args []string) error {
	name, _ := cmd.Flags().GetString("name")
	portsSpec, _ := cmd.Flags().GetString("ports")
	destIP, _ := cmd.Flags().GetString("dest-ip")
	floatingIP, _ := cmd.Flags().GetString("floating-ip")
	statusAddr, _ := cmd.Flags().GetString("status-addr")
	readyTimeout, _ := cmd.Flags().GetDuration("ready-timeout")

	ports, err := serviceport.ParseMany(portsSpec)
	if err != nil {
		return exitf(2, "invalid --ports: %w", err)
	}

	if _, err := config.DigitalOceanToken(); err != nil {
		return exitf(2, "%w", err)
	}

	driver, err := digitalocean.New(readyTimeout)
	if err != nil {
		return exitf(2, "%w", err)
	}

	ctrl, err := tunnel.New(tunnel.Config{
		Name:         name,
		ServicePorts: ports,
		DestIP:       destIP,
		ReservedIPv4: floatingIP,
		ReadyTimeout: readyTimeout,
		ProgressFn: func(p tunnel.Progress) {
			fmt.Printf("→ %s\n", p.Message)
		},
	}, driver)
	if err != nil {
		return exitf(2, "%w", err)
	}

	if statusAddr != "" {
		srv := statusd.New(statusAddr, func() statusd.Status {
			inst := ctrl.Instance()
			rendered := make([]string, len(inst.ServicePorts))
			for i, p := range inst.ServicePorts {
				rendered[i] = p.String()
			}
			return statusd.Status{
				Name:         inst.Name,
				LocalAddr:    ctrl.LocalAddress(),
				RemoteAddr:   ctrl.RemoteAddress(),
				PublicIPv4:   inst.Handle.PublicIPv4,
				ServicePorts: rendered,
			}
		})
		go func() {
			if err := srv.Start(); err != nil {
				fmt.Printf("⚠ status server stopped: %v\n", err)
			}
		}()
		defer srv.Shutdown(context.Background())
	}

	sup := supervisor.New(ctrl, destIP, ports)
	code := sup.Run(cmd.Context())
	if code != 0 {
		return exitf(code, "innisfree up exited with code %d", code)
	}
	return nil
}
