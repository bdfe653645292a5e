// Package digitalocean binds internal/provider.Provider to a
// DigitalOcean-shaped REST API via godo (spec §4.4).
package digitalocean

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/digitalocean/godo"

	innisfreeerrors "github.com/innisfree/innisfree/internal/errors"
	"github.com/innisfree/innisfree/internal/provider"
)

const (
	// DefaultImage, DefaultRegion, and DefaultSize are used unless a
	// CreateRequest overrides them (spec §4.4).
	DefaultImage  = "debian-11-x64"
	DefaultRegion = "sfo2"
	DefaultSize   = "s-1vcpu-1gb"

	pollInterval = 10 * time.Second
)

// TokenEnvVar is the environment variable holding the bearer token.
// Its absence is a fatal Config error before any network call.
const TokenEnvVar = "DIGITALOCEAN_API_TOKEN"

// Driver implements provider.Provider against the DigitalOcean API.
type Driver struct {
	client      *godo.Client
	sshKeyID    int
	pollTimeout time.Duration
}

// New builds a Driver from DIGITALOCEAN_API_TOKEN. pollTimeout bounds
// the readiness poll in Create; zero means no bound (§9's open
// question leaves this to the caller, the CLI layer supplies a
// default).
func New(pollTimeout time.Duration) (*Driver, error) {
	token := os.Getenv(TokenEnvVar)
	if token == "" {
		return nil, innisfreeerrors.New(innisfreeerrors.Config, TokenEnvVar+" is not set")
	}
	return &Driver{client: godo.NewFromToken(token), pollTimeout: pollTimeout}, nil
}

// Create registers req's SSH keys, creates a droplet with req's
// cloud-init text as user-data, and polls until it reports "active".
func (d *Driver) Create(ctx context.Context, req provider.CreateRequest) (provider.Handle, error) {
	keyIDs, err := d.registerKeys(ctx, req.Name, req.AuthorizedSSHKeys)
	if err != nil {
		return provider.Handle{}, err
	}

	image := req.Image
	if image == "" {
		image = DefaultImage
	}
	region := req.Region
	if region == "" {
		region = DefaultRegion
	}
	size := req.Size
	if size == "" {
		size = DefaultSize
	}

	createReq := &godo.DropletCreateRequest{
		Name:     req.Name,
		Region:   region,
		Size:     size,
		Image:    godo.DropletCreateImage{Slug: image},
		UserData: req.CloudInitText,
	}
	for _, id := range keyIDs {
		createReq.SSHKeys = append(createReq.SSHKeys, godo.DropletCreateSSHKey{ID: id})
	}

	droplet, _, err := d.client.Droplets.Create(ctx, createReq)
	if err != nil {
		return provider.Handle{}, innisfreeerrors.Wrap(innisfreeerrors.Provider, "create droplet", err)
	}
	d.sshKeyID = keyIDs[0]

	handle := provider.Handle{ID: fmt.Sprintf("%d", droplet.ID), Status: droplet.Status}
	return d.waitActive(ctx, handle)
}

func (d *Driver) registerKeys(ctx context.Context, name string, keys []string) ([]int, error) {
	ids := make([]int, 0, len(keys))
	for i, key := range keys {
		keyName := fmt.Sprintf("innisfree-%s-%d", name, i)
		created, _, err := d.client.Keys.Create(ctx, &godo.KeyCreateRequest{Name: keyName, PublicKey: key})
		if err != nil {
			return nil, innisfreeerrors.Wrap(innisfreeerrors.Provider, "register ssh key", err)
		}
		ids = append(ids, created.ID)
	}
	return ids, nil
}

// waitActive polls the droplet resource every pollInterval until its
// status is "active", at which point the public IPv4 field is
// populated. No maximum retry count is imposed here per spec §4.4;
// d.pollTimeout, when non-zero, bounds the wait per §9.
func (d *Driver) waitActive(ctx context.Context, handle provider.Handle) (provider.Handle, error) {
	id := dropletID(handle)

	var deadline <-chan time.Time
	if d.pollTimeout > 0 {
		timer := time.NewTimer(d.pollTimeout)
		defer timer.Stop()
		deadline = timer.C
	}

	for {
		droplet, _, err := d.client.Droplets.Get(ctx, id)
		if err != nil {
			return provider.Handle{}, innisfreeerrors.Wrap(innisfreeerrors.Provider, "poll droplet status", err)
		}

		if droplet.Status == "active" {
			ip, err := droplet.PublicIPv4()
			if err != nil {
				return provider.Handle{}, innisfreeerrors.Wrap(innisfreeerrors.Provider, "read droplet public ipv4", err)
			}
			return provider.Handle{ID: handle.ID, Status: droplet.Status, PublicIPv4: ip}, nil
		}

		select {
		case <-ctx.Done():
			return provider.Handle{}, innisfreeerrors.Wrap(innisfreeerrors.Cancelled, "wait for droplet readiness", ctx.Err())
		case <-deadline:
			return provider.Handle{}, innisfreeerrors.New(innisfreeerrors.Network, "timed out waiting for droplet to become active")
		case <-time.After(pollInterval):
		}
	}
}

// PublicIPv4 re-reads the droplet and returns its public IPv4.
func (d *Driver) PublicIPv4(ctx context.Context, handle provider.Handle) (string, error) {
	droplet, _, err := d.client.Droplets.Get(ctx, dropletID(handle))
	if err != nil {
		return "", innisfreeerrors.Wrap(innisfreeerrors.Provider, "read droplet", err)
	}
	ip, err := droplet.PublicIPv4()
	if err != nil {
		return "", innisfreeerrors.Wrap(innisfreeerrors.Provider, "droplet has no public ipv4 yet", err)
	}
	return ip, nil
}

// AssignReservedIP binds ip, which the account already owns, to
// handle by posting an assign action to the floating IP's actions
// endpoint.
func (d *Driver) AssignReservedIP(ctx context.Context, handle provider.Handle, ip string) error {
	_, _, err := d.client.FloatingIPActions.Assign(ctx, ip, dropletID(handle))
	if err != nil {
		return innisfreeerrors.Wrap(innisfreeerrors.Provider, "assign reserved ip "+ip, err)
	}
	return nil
}

// Destroy best-effort deletes the registered SSH key, then deletes the
// droplet. Destroying an already-gone droplet is not an error.
func (d *Driver) Destroy(ctx context.Context, handle provider.Handle) error {
	if d.sshKeyID != 0 {
		_, _ = d.client.Keys.DeleteByID(ctx, d.sshKeyID)
	}

	_, err := d.client.Droplets.Delete(ctx, dropletID(handle))
	if err != nil && !isNotFound(err) {
		return innisfreeerrors.Wrap(innisfreeerrors.Provider, "destroy droplet", err)
	}
	return nil
}

func dropletID(handle provider.Handle) int {
	var id int
	_, _ = fmt.Sscanf(handle.ID, "%d", &id)
	return id
}

func isNotFound(err error) bool {
	if resp, ok := err.(*godo.ErrorResponse); ok {
		return resp.Response != nil && resp.Response.StatusCode == 404
	}
	return false
}
