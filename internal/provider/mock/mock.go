// Package mock provides an in-memory provider.Provider double for
// tests, modeled on the same functional-options, call-tracking shape
// used throughout this project's test doubles.
package mock

import (
	"context"
	"sync"

	"github.com/google/uuid"

	innisfreeerrors "github.com/innisfree/innisfree/internal/errors"
	"github.com/innisfree/innisfree/internal/provider"
)

// Provider is an in-memory implementation of provider.Provider.
type Provider struct {
	mu sync.Mutex

	servers map[string]*provider.Handle

	createError           error
	publicIPv4Error       error
	assignReservedIPError error
	destroyError          error

	CreateCalls           []provider.CreateRequest
	PublicIPv4Calls       []string
	AssignReservedIPCalls []AssignReservedIPCall
	DestroyCalls          []string
}

// AssignReservedIPCall records one AssignReservedIP invocation.
type AssignReservedIPCall struct {
	HandleID string
	IP       string
}

// Option configures a Provider at construction time.
type Option func(*Provider)

// New creates a mock Provider with no error injection.
func New(opts ...Option) *Provider {
	p := &Provider{servers: make(map[string]*provider.Handle)}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// WithCreateError makes Create always fail with err.
func WithCreateError(err error) Option {
	return func(p *Provider) { p.createError = err }
}

// WithPublicIPv4Error makes PublicIPv4 always fail with err.
func WithPublicIPv4Error(err error) Option {
	return func(p *Provider) { p.publicIPv4Error = err }
}

// WithAssignReservedIPError makes AssignReservedIP always fail with err.
func WithAssignReservedIPError(err error) Option {
	return func(p *Provider) { p.assignReservedIPError = err }
}

// WithDestroyError makes Destroy always fail with err.
func WithDestroyError(err error) Option {
	return func(p *Provider) { p.destroyError = err }
}

// Create registers a new handle, immediately marking it active with a
// fixed public IPv4 (203.0.113.10 for every handle, enough for
// assertions that just need "a" address).
func (p *Provider) Create(ctx context.Context, req provider.CreateRequest) (provider.Handle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.CreateCalls = append(p.CreateCalls, req)
	if p.createError != nil {
		return provider.Handle{}, p.createError
	}

	handle := provider.Handle{
		ID:         uuid.NewString(),
		Status:     "active",
		PublicIPv4: "203.0.113.10",
	}
	p.servers[handle.ID] = &handle
	return handle, nil
}

// PublicIPv4 returns the handle's recorded public IPv4.
func (p *Provider) PublicIPv4(ctx context.Context, handle provider.Handle) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.PublicIPv4Calls = append(p.PublicIPv4Calls, handle.ID)
	if p.publicIPv4Error != nil {
		return "", p.publicIPv4Error
	}

	server, ok := p.servers[handle.ID]
	if !ok {
		return "", innisfreeerrors.New(innisfreeerrors.Provider, "unknown handle "+handle.ID)
	}
	return server.PublicIPv4, nil
}

// AssignReservedIP records the (handle, ip) pair and, absent error
// injection, updates the handle's PublicIPv4 to ip.
func (p *Provider) AssignReservedIP(ctx context.Context, handle provider.Handle, ip string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.AssignReservedIPCalls = append(p.AssignReservedIPCalls, AssignReservedIPCall{HandleID: handle.ID, IP: ip})
	if p.assignReservedIPError != nil {
		return p.assignReservedIPError
	}

	server, ok := p.servers[handle.ID]
	if !ok {
		return innisfreeerrors.New(innisfreeerrors.Provider, "unknown handle "+handle.ID)
	}
	server.PublicIPv4 = ip
	return nil
}

// Destroy removes the handle. Destroying an unknown or
// already-destroyed handle is not an error, matching the idempotence
// spec §4.4 requires of every Provider implementation.
func (p *Provider) Destroy(ctx context.Context, handle provider.Handle) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.DestroyCalls = append(p.DestroyCalls, handle.ID)
	if p.destroyError != nil {
		return p.destroyError
	}

	delete(p.servers, handle.ID)
	return nil
}
