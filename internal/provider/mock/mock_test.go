package mock

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	innisfreeerrors "github.com/innisfree/innisfree/internal/errors"
	"github.com/innisfree/innisfree/internal/provider"
)

func TestCreateThenDestroyIsIdempotent(t *testing.T) {
	p := New()
	handle, err := p.Create(context.Background(), provider.CreateRequest{Name: "innisfree-t1"})
	require.NoError(t, err)

	require.NoError(t, p.Destroy(context.Background(), handle))
	require.NoError(t, p.Destroy(context.Background(), handle))

	assert.Len(t, p.DestroyCalls, 2)
}

func TestAssignReservedIPUpdatesPublicIPv4(t *testing.T) {
	p := New()
	handle, err := p.Create(context.Background(), provider.CreateRequest{Name: "t1"})
	require.NoError(t, err)

	require.NoError(t, p.AssignReservedIP(context.Background(), handle, "198.51.100.5"))

	ip, err := p.PublicIPv4(context.Background(), handle)
	require.NoError(t, err)
	assert.Equal(t, "198.51.100.5", ip)
}

func TestCreateErrorInjection(t *testing.T) {
	injected := innisfreeerrors.New(innisfreeerrors.Provider, "quota exceeded")
	p := New(WithCreateError(injected))

	_, err := p.Create(context.Background(), provider.CreateRequest{Name: "t1"})
	assert.Equal(t, injected, err)
}

func TestPublicIPv4UnknownHandle(t *testing.T) {
	p := New()
	_, err := p.PublicIPv4(context.Background(), provider.Handle{ID: "nope"})
	assert.Error(t, err)
}

func TestTwoTunnelsGetDistinctHandles(t *testing.T) {
	p := New()
	a, err := p.Create(context.Background(), provider.CreateRequest{Name: "t1"})
	require.NoError(t, err)
	b, err := p.Create(context.Background(), provider.CreateRequest{Name: "t2"})
	require.NoError(t, err)

	assert.NotEqual(t, a.ID, b.ID)

	require.NoError(t, p.Destroy(context.Background(), a))
	_, err = p.PublicIPv4(context.Background(), b)
	assert.NoError(t, err)
}
