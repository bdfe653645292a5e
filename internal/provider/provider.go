// Package provider defines the pluggable cloud driver interface the
// tunnel controller provisions servers through (spec §4.4, §9).
package provider

import "context"

// CreateRequest carries everything a Provider needs to boot a server
// for one tunnel.
type CreateRequest struct {
	Name              string
	CloudInitText     string
	AuthorizedSSHKeys []string
	// Image, Region, Size override the provider's own defaults when
	// non-empty.
	Image  string
	Region string
	Size   string
}

// Handle identifies a server a Provider created. Its fields are
// provider-opaque except ID, which callers may log.
type Handle struct {
	ID         string
	Status     string
	PublicIPv4 string
}

// Provider is the capability set spec §4.4 and §9 describe: create,
// read the public IPv4, optionally bind a reserved IP, and destroy.
// Implementations are either a concrete driver (internal/provider/digitalocean)
// or the in-memory double (internal/provider/mock) used by tests.
type Provider interface {
	// Create provisions a new server with cloudInitText injected as
	// user-data and authorizedSSHKeys registered for login.
	Create(ctx context.Context, req CreateRequest) (Handle, error)

	// PublicIPv4 returns the server's public IPv4 address. It returns
	// an error if the provider has not yet assigned one.
	PublicIPv4(ctx context.Context, handle Handle) (string, error)

	// AssignReservedIP binds an IPv4 address the account already owns
	// to handle.
	AssignReservedIP(ctx context.Context, handle Handle, ip string) error

	// Destroy tears down the server. It is idempotent: destroying an
	// already-destroyed handle is not an error.
	Destroy(ctx context.Context, handle Handle) error
}
