// Package sshkey generates the ED25519 keypair innisfree uses to
// authenticate to the provisioned droplet (spec §3, §4.2).
package sshkey

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"strings"

	"golang.org/x/crypto/ssh"

	innisfreeerrors "github.com/innisfree/innisfree/internal/errors"
)

// KeyPair is an ED25519 SSH keypair in the wire formats sshd and the
// ssh client expect.
type KeyPair struct {
	// PrivatePEM is the OpenSSH-format private key, PEM encoded, ending
	// in exactly one trailing newline.
	PrivatePEM string
	// AuthorizedKeyLine is the "ssh-ed25519 AAAA..." public key line
	// with no trailing whitespace, suitable for an authorized_keys file
	// or a cloud-init ssh_authorized_keys entry.
	AuthorizedKeyLine string
}

// Generate creates a new ED25519 KeyPair.
func Generate() (KeyPair, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return KeyPair{}, innisfreeerrors.Wrap(innisfreeerrors.LocalIO, "generate ssh key pair", err)
	}

	block, err := ssh.MarshalPrivateKey(priv, "")
	if err != nil {
		return KeyPair{}, innisfreeerrors.Wrap(innisfreeerrors.LocalIO, "marshal ssh private key", err)
	}
	privatePEM := string(pem.EncodeToMemory(block))

	sshPub, err := ssh.NewPublicKey(pub)
	if err != nil {
		return KeyPair{}, innisfreeerrors.Wrap(innisfreeerrors.LocalIO, "derive ssh public key", err)
	}
	authorizedLine := strings.TrimRight(string(ssh.MarshalAuthorizedKey(sshPub)), "\n")

	return KeyPair{
		PrivatePEM:        privatePEM,
		AuthorizedKeyLine: authorizedLine,
	}, nil
}
