package wgmodel

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/innisfree/innisfree/internal/wgkey"
)

func TestNewDeviceMirrorSharesKeysSymmetrically(t *testing.T) {
	local := WireguardHost{
		Name:    "local",
		Address: "10.50.0.1",
		Keypair: wgkey.KeyPair{PrivateKey: "local-priv", PublicKey: "local-pub"},
	}
	remote := WireguardHost{
		Name:       "remote",
		Address:    "10.50.0.2",
		Endpoint:   "203.0.113.9",
		ListenPort: DefaultListenPort,
		Keypair:    wgkey.KeyPair{PrivateKey: "remote-priv", PublicKey: "remote-pub"},
	}

	localDevice, remoteDevice := NewDeviceMirror("t1", local, remote)

	assert.Equal(t, localDevice.Interface.Keypair.PublicKey, remoteDevice.Peer.Keypair.PublicKey)
	assert.Equal(t, remoteDevice.Interface.Keypair.PublicKey, localDevice.Peer.Keypair.PublicKey)

	// Peer is held by value: mutating one device's peer must not affect
	// the other device's interface.
	localDevice.Peer.Address = "10.50.0.99"
	assert.Equal(t, "10.50.0.2", remoteDevice.Interface.Address)
}
