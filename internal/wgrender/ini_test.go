package wgrender

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/innisfree/innisfree/internal/serviceport"
	"github.com/innisfree/innisfree/internal/wgkey"
	"github.com/innisfree/innisfree/internal/wgmodel"
)

func testDevice() wgmodel.WireguardDevice {
	local := wgmodel.WireguardHost{
		Name:    "local",
		Address: "10.50.0.1",
		Keypair: wgkey.KeyPair{PrivateKey: "priv_a", PublicKey: "pub_a"},
	}
	remote := wgmodel.WireguardHost{
		Name:       "remote",
		Address:    "10.50.0.2",
		Endpoint:   "203.0.113.9",
		ListenPort: wgmodel.DefaultListenPort,
		Keypair:    wgkey.KeyPair{PrivateKey: "priv_b", PublicKey: "pub_b"},
	}
	localDevice, _ := wgmodel.NewDeviceMirror("t1", local, remote)
	return localDevice
}

func TestRenderPlainContainsOwnPrivateAndPeerPublic(t *testing.T) {
	ini, err := RenderPlain(testDevice())
	require.NoError(t, err)

	assert.Contains(t, ini, "priv_a")
	assert.Contains(t, ini, "pub_b")
	assert.NotContains(t, ini, "priv_b")
	assert.NotContains(t, ini, "pub_a")
	assert.Contains(t, ini, "Interface")
	assert.Contains(t, ini, "PrivateKey = ")
}

func TestRenderFilteredAddsOneRulePerServicePort(t *testing.T) {
	ports, err := serviceport.ParseMany("80:8000,443:8443")
	require.NoError(t, err)

	ini, err := RenderFiltered(testDevice(), ports)
	require.NoError(t, err)

	assert.Equal(t, 2, countOccurrences(ini, "PostUp"))
	assert.Equal(t, 2, countOccurrences(ini, "PreDown"))
	assert.Contains(t, ini, "8000")
	assert.Contains(t, ini, "8443")
}

func TestRenderFilteredWithNoPortsEqualsPlain(t *testing.T) {
	plain, err := RenderPlain(testDevice())
	require.NoError(t, err)

	filtered, err := RenderFiltered(testDevice(), nil)
	require.NoError(t, err)

	assert.Equal(t, plain, filtered)
}

func countOccurrences(haystack, needle string) int {
	count := 0
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			count++
		}
	}
	return count
}
