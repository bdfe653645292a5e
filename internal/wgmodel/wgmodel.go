// Package wgmodel holds the typed data model shared by the config
// renderer, the provider driver, and the tunnel controller (spec §3).
package wgmodel

import (
	"github.com/innisfree/innisfree/internal/provider"
	"github.com/innisfree/innisfree/internal/serviceport"
	"github.com/innisfree/innisfree/internal/sshkey"
	"github.com/innisfree/innisfree/internal/wgkey"
)

// DefaultListenPort is the UDP port the remote peer advertises for
// incoming tunnel traffic.
const DefaultListenPort = 51820

// WireguardHost is one side's address and key material within a /30.
type WireguardHost struct {
	Name string
	// Address is an IPv4 inside the tunnel's allocated /30.
	Address string
	// Endpoint is the remote public IPv4, present only on the remote
	// peer; the zero value means "absent" on the local peer.
	Endpoint string
	// ListenPort is 0 on the local side, DefaultListenPort on the
	// remote side.
	ListenPort int
	Keypair    wgkey.KeyPair
}

// WireguardDevice represents one side of the tunnel. Per spec §9 the
// peer is held by value: two independent WireguardDevice values mirror
// each other, there is no shared object or back-reference.
type WireguardDevice struct {
	Name      string
	Interface WireguardHost
	Peer      WireguardHost
}

// NewDeviceMirror builds the two mirrored WireguardDevices for a tunnel
// from the local and remote hosts. local.interface.keypair.public ==
// remote.peer.keypair.public holds by construction, symmetrically.
func NewDeviceMirror(name string, local, remote WireguardHost) (localDevice, remoteDevice WireguardDevice) {
	localDevice = WireguardDevice{Name: name, Interface: local, Peer: remote}
	remoteDevice = WireguardDevice{Name: name, Interface: remote, Peer: local}
	return localDevice, remoteDevice
}

// CloudConfigFile is one entry of a cloud-init write_files list.
type CloudConfigFile struct {
	Path        string
	Content     string
	Permissions string
	Owner       string
}

// CloudConfig is the typed input to the cloud-init renderer. See
// internal/wgrender for serialization.
type CloudConfig struct {
	Username          string
	AuthorizedKeys    []string
	ServerHostPublic  string
	ServerHostPrivate string
	WriteFiles        []CloudConfigFile
}

// TunnelInstance is the per-invocation root described in spec §3. It
// is created by the tunnel controller and destroyed by the supervisor;
// its lifetime bounds every subordinate resource (VM, SSH keys,
// WireGuard interfaces, local state directory).
type TunnelInstance struct {
	// Name is sanitized to match "innisfree-*" or the literal
	// "innisfree"; see internal/sanitize.
	Name string

	ClientSSHKey sshkey.KeyPair
	ServerSSHKey sshkey.KeyPair

	LocalDevice  WireguardDevice
	RemoteDevice WireguardDevice

	ServicePorts []serviceport.ServicePort

	// ReservedIPv4 is optional; empty means no floating IP was
	// requested.
	ReservedIPv4 string

	Handle provider.Handle
}
