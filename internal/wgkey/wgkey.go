// Package wgkey generates and validates WireGuard Curve25519 keypairs
// (spec §4.2).
package wgkey

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/curve25519"
	"golang.zx2c4.com/wireguard/wgctrl/wgtypes"

	innisfreeerrors "github.com/innisfree/innisfree/internal/errors"
)

// KeyPair is a WireGuard private/public key pair, base64 encoded as
// wg(8) itself renders them.
type KeyPair struct {
	PrivateKey string
	PublicKey  string
}

// Generate creates a new KeyPair from 32 bytes of crypto/rand, clamped
// per the Curve25519 key-agreement convention WireGuard requires.
func Generate() (KeyPair, error) {
	var priv [32]byte
	if _, err := rand.Read(priv[:]); err != nil {
		return KeyPair{}, innisfreeerrors.Wrap(innisfreeerrors.LocalIO, "generate wireguard private key", err)
	}

	priv[0] &= 248
	priv[31] &= 127
	priv[31] |= 64

	pub, err := curve25519.X25519(priv[:], curve25519.Basepoint)
	if err != nil {
		return KeyPair{}, innisfreeerrors.Wrap(innisfreeerrors.LocalIO, "derive wireguard public key", err)
	}

	return KeyPair{
		PrivateKey: base64.StdEncoding.EncodeToString(priv[:]),
		PublicKey:  base64.StdEncoding.EncodeToString(pub),
	}, nil
}

// DerivePublic returns the public key for a base64-encoded private key.
func DerivePublic(privateKey string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(privateKey)
	if err != nil {
		return "", innisfreeerrors.Wrap(innisfreeerrors.Config, "decode wireguard private key", err)
	}
	if len(raw) != 32 {
		return "", innisfreeerrors.New(innisfreeerrors.Config,
			fmt.Sprintf("wireguard private key must be 32 bytes, got %d", len(raw)))
	}

	pub, err := curve25519.X25519(raw, curve25519.Basepoint)
	if err != nil {
		return "", innisfreeerrors.Wrap(innisfreeerrors.LocalIO, "derive wireguard public key", err)
	}
	return base64.StdEncoding.EncodeToString(pub), nil
}

// Validate reports whether s is a syntactically valid WireGuard key,
// using wgctrl's own parser as the source of truth.
func Validate(s string) error {
	if _, err := wgtypes.ParseKey(s); err != nil {
		return innisfreeerrors.Wrap(innisfreeerrors.Config, fmt.Sprintf("invalid wireguard key %q", s), err)
	}
	return nil
}
