// Package tunnel implements the lifecycle controller (C6, spec §4.6):
// it orchestrates the subnet allocator, key material, config renderer,
// provider driver, and local state store into the up()/clean()
// protocol.
package tunnel

import (
	"context"
	"fmt"
	"net"
	"os/exec"
	"time"

	innisfreeerrors "github.com/innisfree/innisfree/internal/errors"
	"github.com/innisfree/innisfree/internal/localstate"
	"github.com/innisfree/innisfree/internal/provider"
	"github.com/innisfree/innisfree/internal/sanitize"
	"github.com/innisfree/innisfree/internal/serviceport"
	"github.com/innisfree/innisfree/internal/sshkey"
	"github.com/innisfree/innisfree/internal/subnet"
	"github.com/innisfree/innisfree/internal/wgkey"
	"github.com/innisfree/innisfree/internal/wgmodel"
	"github.com/innisfree/innisfree/internal/wgrender"
)

// Step identifies one of up()'s six ordered stages (spec §4.6).
type Step int

const (
	StepWaitSSH Step = iota + 1
	StepWaitCloudInit
	StepWriteLocalConfig
	StepRemoteInterfaceUp
	StepLocalInterfaceUp
	StepVerifyPing
)

// String names a Step for progress reporting.
func (s Step) String() string {
	switch s {
	case StepWaitSSH:
		return "waiting for ssh"
	case StepWaitCloudInit:
		return "waiting for cloud-init"
	case StepWriteLocalConfig:
		return "writing local wireguard config"
	case StepRemoteInterfaceUp:
		return "bringing up remote interface"
	case StepLocalInterfaceUp:
		return "bringing up local interface"
	case StepVerifyPing:
		return "verifying tunnel reachability"
	default:
		return "unknown step"
	}
}

// Progress is reported to an optional callback as up() advances.
type Progress struct {
	Step    Step
	Message string
	Done    bool
}

// Config bounds one up()/clean() run.
type Config struct {
	Name         string
	ServicePorts []serviceport.ServicePort
	DestIP       string
	ReservedIPv4 string

	// ReadyTimeout bounds the SSH-readiness and cloud-init-wait poll
	// loops, per §9's open-question resolution. Zero means no bound.
	ReadyTimeout time.Duration

	PollInterval time.Duration

	// ProgressFn, if non-nil, is called once per step transition.
	ProgressFn func(Progress)
}

const (
	sshUser             = "innisfree"
	remoteWireguardPath = "/tmp/innisfree.conf"
	defaultPollInterval = 10 * time.Second
)

// Controller is the live state of one tunnel's up()/clean() run.
type Controller struct {
	cfg      Config
	provider provider.Provider
	dir      localstate.Dir

	instance wgmodel.TunnelInstance
}

// New prepares a Controller. It does not contact the network; Up does.
func New(cfg Config, p provider.Provider) (*Controller, error) {
	name := sanitize.CleanName(cfg.Name)
	if cfg.PollInterval == 0 {
		cfg.PollInterval = defaultPollInterval
	}

	dir, err := localstate.Make(name)
	if err != nil {
		return nil, err
	}

	return &Controller{cfg: cfg, provider: p, dir: dir, instance: wgmodel.TunnelInstance{Name: name, ServicePorts: cfg.ServicePorts, ReservedIPv4: cfg.ReservedIPv4}}, nil
}

func (c *Controller) report(step Step, msg string, done bool) {
	if c.cfg.ProgressFn != nil {
		c.cfg.ProgressFn(Progress{Step: step, Message: msg, Done: done})
	}
}

// Up runs the six-step sequence in spec §4.6, each step fatal on
// failure. It generates all key material, provisions the server,
// writes local config, and verifies the tunnel with a ping. The whole
// sequence runs under an exclusive lock on the instance's state
// directory, so two invocations for the same name cannot race on the
// files it writes.
func (c *Controller) Up(ctx context.Context) error {
	return c.dir.WithLock(func() error {
		return c.up(ctx)
	})
}

func (c *Controller) up(ctx context.Context) error {
	clientKey, err := sshkey.Generate()
	if err != nil {
		return err
	}
	serverKey, err := sshkey.Generate()
	if err != nil {
		return err
	}
	c.instance.ClientSSHKey = clientKey
	c.instance.ServerSSHKey = serverKey

	localWGKey, err := wgkey.Generate()
	if err != nil {
		return err
	}
	remoteWGKey, err := wgkey.Generate()
	if err != nil {
		return err
	}

	alloc, err := subnet.Allocate(subnet.NetlinkAddrLister)
	if err != nil {
		return err
	}

	local := wgmodel.WireguardHost{
		Name: "local", Address: alloc.LocalAddr.String(), Keypair: localWGKey,
	}
	remote := wgmodel.WireguardHost{
		Name: "remote", Address: alloc.RemoteAddr.String(),
		ListenPort: wgmodel.DefaultListenPort, Keypair: remoteWGKey,
	}
	localDevice, remoteDevice := wgmodel.NewDeviceMirror(c.instance.Name, local, remote)

	remotePlainINI, err := wgrender.RenderPlain(remoteDevice)
	if err != nil {
		return err
	}
	nginxConf, err := wgrender.RenderNginxStream(local.Address, c.cfg.ServicePorts)
	if err != nil {
		return err
	}

	cloudInit, err := wgrender.RenderCloudInit(wgmodel.CloudConfig{
		Username:          sshUser,
		AuthorizedKeys:    []string{clientKey.AuthorizedKeyLine},
		ServerHostPublic:  serverKey.AuthorizedKeyLine,
		ServerHostPrivate: serverKey.PrivatePEM,
		WriteFiles:        wgrender.StandardWriteFiles(remotePlainINI, nginxConf),
	})
	if err != nil {
		return err
	}

	handle, err := c.provider.Create(ctx, provider.CreateRequest{
		Name:              c.instance.Name,
		CloudInitText:     cloudInit,
		AuthorizedSSHKeys: []string{clientKey.AuthorizedKeyLine},
	})
	if err != nil {
		return err
	}
	c.instance.Handle = handle

	remote.Endpoint = handle.PublicIPv4
	localDevice, remoteDevice = wgmodel.NewDeviceMirror(c.instance.Name, local, remote)
	c.instance.LocalDevice = localDevice
	c.instance.RemoteDevice = remoteDevice

	if c.cfg.ReservedIPv4 != "" {
		if err := c.provider.AssignReservedIP(ctx, handle, c.cfg.ReservedIPv4); err != nil {
			return err
		}
		remote.Endpoint = c.cfg.ReservedIPv4
		localDevice, remoteDevice = wgmodel.NewDeviceMirror(c.instance.Name, local, remote)
		c.instance.LocalDevice = localDevice
		c.instance.RemoteDevice = remoteDevice
	}

	if err := c.dir.WritePrivateKey(localstate.ClientPrivateKeyFile, clientKey.PrivatePEM); err != nil {
		return err
	}
	if err := c.dir.WritePublicKey(localstate.ClientPublicKeyFile, clientKey.AuthorizedKeyLine); err != nil {
		return err
	}
	if err := c.dir.WritePrivateKey(localstate.ServerPrivateKeyFile, serverKey.PrivatePEM); err != nil {
		return err
	}
	if err := c.dir.WritePublicKey(localstate.ServerPublicKeyFile, serverKey.AuthorizedKeyLine); err != nil {
		return err
	}
	if err := c.dir.WriteConfig(localstate.KnownHostsFile, localstate.FormatKnownHosts(remote.Endpoint, serverKey.AuthorizedKeyLine)); err != nil {
		return err
	}

	clientKeyPath := c.dir.Path() + "/" + localstate.ClientPrivateKeyFile
	knownHostsPath := c.dir.Path() + "/" + localstate.KnownHostsFile

	c.report(StepWaitSSH, "waiting for ssh on "+remote.Endpoint, false)
	if err := c.waitSSHReady(ctx, remote.Endpoint); err != nil {
		return err
	}
	c.report(StepWaitSSH, "ssh ready", true)

	c.report(StepWaitCloudInit, "waiting for cloud-init to finish", false)
	cloudInitCtx := ctx
	if c.cfg.ReadyTimeout > 0 {
		var cancel context.CancelFunc
		cloudInitCtx, cancel = context.WithTimeout(ctx, c.cfg.ReadyTimeout)
		defer cancel()
	}
	if err := c.runSSH(cloudInitCtx, remote.Endpoint, clientKeyPath, knownHostsPath, "cloud-init status --long --wait"); err != nil {
		return innisfreeerrors.Wrap(innisfreeerrors.Subprocess, "cloud-init did not finish cleanly", err)
	}
	c.report(StepWaitCloudInit, "cloud-init finished", true)

	c.report(StepWriteLocalConfig, "writing local wireguard config", false)
	filteredINI, err := wgrender.RenderFiltered(localDevice, c.cfg.ServicePorts)
	if err != nil {
		return err
	}
	localConfFile := localstate.ConfFile(c.instance.Name)
	if err := c.dir.WriteConfig(localConfFile, filteredINI); err != nil {
		return err
	}
	localConfPath := c.dir.Path() + "/" + localConfFile
	c.report(StepWriteLocalConfig, "wrote "+localConfPath, true)

	c.report(StepRemoteInterfaceUp, "bringing up remote interface", false)
	if err := c.runSSH(ctx, remote.Endpoint, clientKeyPath, knownHostsPath, "wg-quick up "+remoteWireguardPath); err != nil {
		return innisfreeerrors.Wrap(innisfreeerrors.Subprocess, "wg-quick up failed on remote", err)
	}
	c.report(StepRemoteInterfaceUp, "remote interface up", true)

	c.report(StepLocalInterfaceUp, "bringing up local interface", false)
	_ = runCommand(ctx, "wg-quick", "down", localConfPath)
	if err := runCommand(ctx, "wg-quick", "up", localConfPath); err != nil {
		return innisfreeerrors.Wrap(innisfreeerrors.Subprocess, "wg-quick up failed locally", err)
	}
	c.report(StepLocalInterfaceUp, "local interface up", true)

	c.report(StepVerifyPing, "verifying tunnel with ping", false)
	if err := runCommand(ctx, "ping", "-c1", "-w5", remote.Address); err != nil {
		return innisfreeerrors.Wrap(innisfreeerrors.Network, "tunnel verification ping failed", err)
	}
	c.report(StepVerifyPing, "tunnel verified", true)

	return nil
}

// LocalAddress returns the local WireGuard interface address, used by
// the proxy engine as its listen address.
func (c *Controller) LocalAddress() string {
	return c.instance.LocalDevice.Interface.Address
}

// RemoteAddress returns the remote tunnel endpoint's public IPv4.
func (c *Controller) RemoteAddress() string {
	return c.instance.Handle.PublicIPv4
}

// Instance exposes the built TunnelInstance for callers that need the
// full model (e.g. the CLI's up summary).
func (c *Controller) Instance() wgmodel.TunnelInstance {
	return c.instance
}

func (c *Controller) waitSSHReady(ctx context.Context, host string) error {
	return c.dialReady(ctx, host, "22")
}

// dialReady polls host:port until a TCP connection succeeds or the
// configured deadline/cancellation fires. Split out from waitSSHReady
// so tests can point it at a loopback listener instead of real port 22.
func (c *Controller) dialReady(ctx context.Context, host, port string) error {
	deadline := c.deadline()
	for {
		conn, err := net.DialTimeout("tcp", net.JoinHostPort(host, port), 5*time.Second)
		if err == nil {
			conn.Close()
			return nil
		}

		select {
		case <-ctx.Done():
			return innisfreeerrors.Wrap(innisfreeerrors.Cancelled, "wait for ssh readiness", ctx.Err())
		case <-deadline:
			return innisfreeerrors.New(innisfreeerrors.Network, "timed out waiting for ssh to become reachable")
		case <-time.After(c.cfg.PollInterval):
		}
	}
}

func (c *Controller) deadline() <-chan time.Time {
	if c.cfg.ReadyTimeout <= 0 {
		return nil
	}
	return time.After(c.cfg.ReadyTimeout)
}

// runSSH invokes ssh with the exact flag contract spec §4.6 mandates:
// -l innisfree, -i <client key>, -o UserKnownHostsFile=<path>,
// -o ConnectTimeout=5, the remote host, then the remote command.
func (c *Controller) runSSH(ctx context.Context, host, keyPath, knownHostsPath, remoteCmd string) error {
	args := []string{
		"-l", sshUser,
		"-i", keyPath,
		"-o", "UserKnownHostsFile=" + knownHostsPath,
		"-o", "ConnectTimeout=5",
		host,
		remoteCmd,
	}
	return runCommand(ctx, "ssh", args...)
}

func runCommand(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return innisfreeerrors.Wrap(innisfreeerrors.Subprocess, fmt.Sprintf("%s %v: %s", name, args, string(out)), err)
	}
	return nil
}

// Clean is the inverse of Up and is best-effort tolerant: it attempts
// every teardown step and continues past individual failures (spec
// §4.6). It is the sole mutator of the provider handle's lifetime. It
// runs under the same per-instance lock as Up.
func (c *Controller) Clean(ctx context.Context) error {
	return c.dir.WithLock(func() error {
		return c.clean(ctx)
	})
}

func (c *Controller) clean(ctx context.Context) error {
	localConfPath := c.dir.Path() + "/" + localstate.ConfFile(c.instance.Name)
	_ = runCommand(ctx, "wg-quick", "down", localConfPath)

	if c.instance.Handle.ID != "" {
		_ = c.provider.Destroy(ctx, c.instance.Handle)
	}

	return localstate.Clean(c.instance.Name)
}
