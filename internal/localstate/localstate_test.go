package localstate

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	return home
}

func TestMakeIsIdempotent(t *testing.T) {
	withHome(t)

	d1, err := Make("innisfree-t1")
	require.NoError(t, err)
	d2, err := Make("innisfree-t1")
	require.NoError(t, err)

	assert.Equal(t, d1.Path(), d2.Path())
	assert.DirExists(t, d1.Path())
}

func TestCleanRemovesDirectory(t *testing.T) {
	withHome(t)

	d, err := Make("innisfree-t1")
	require.NoError(t, err)
	require.NoError(t, d.WriteConfig("innisfree-t1.conf", "data"))

	require.NoError(t, Clean("innisfree-t1"))
	assert.NoDirExists(t, d.Path())
}

func TestCleanOnMissingDirectoryIsNotError(t *testing.T) {
	withHome(t)
	assert.NoError(t, Clean("innisfree-never-made"))
}

func TestWritePrivateKeyPermissions(t *testing.T) {
	withHome(t)

	d, err := Make("innisfree-t1")
	require.NoError(t, err)
	require.NoError(t, d.WritePrivateKey(ClientPrivateKeyFile, "secret"))

	info, err := os.Stat(filepath.Join(d.Path(), ClientPrivateKeyFile))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestWritePublicKeyPermissions(t *testing.T) {
	withHome(t)

	d, err := Make("innisfree-t1")
	require.NoError(t, err)
	require.NoError(t, d.WritePublicKey(ClientPublicKeyFile, "pub"))

	info, err := os.Stat(filepath.Join(d.Path(), ClientPublicKeyFile))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0644), info.Mode().Perm())
}

func TestKnownHostsRoundTrip(t *testing.T) {
	withHome(t)

	d, err := Make("innisfree-t1")
	require.NoError(t, err)
	require.NoError(t, d.WriteConfig(KnownHostsFile, FormatKnownHosts("203.0.113.9", "ssh-ed25519 AAAA server")))

	ip, key, err := d.ReadKnownHosts()
	require.NoError(t, err)
	assert.Equal(t, "203.0.113.9", ip)
	assert.Equal(t, "ssh-ed25519 AAAA server", key)
}

func TestParseKnownHostsRejectsMalformedLine(t *testing.T) {
	_, _, err := ParseKnownHosts("no-space-here")
	assert.Error(t, err)
}

func TestNamesListsTunnelDirectories(t *testing.T) {
	withHome(t)

	_, err := Make("innisfree-t1")
	require.NoError(t, err)
	_, err = Make("innisfree-t2")
	require.NoError(t, err)

	names, err := Names()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"innisfree-t1", "innisfree-t2"}, names)
}

func TestNamesOnMissingStateRootIsEmpty(t *testing.T) {
	withHome(t)

	names, err := Names()
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestCleanAllRemovesEveryTunnel(t *testing.T) {
	withHome(t)

	d1, err := Make("innisfree-t1")
	require.NoError(t, err)
	d2, err := Make("innisfree-t2")
	require.NoError(t, err)

	require.NoError(t, CleanAll())
	assert.NoDirExists(t, d1.Path())
	assert.NoDirExists(t, d2.Path())
}

func TestWithLockRunsFn(t *testing.T) {
	withHome(t)

	d, err := Make("innisfree-t1")
	require.NoError(t, err)

	ran := false
	require.NoError(t, d.WithLock(func() error {
		ran = true
		return nil
	}))
	assert.True(t, ran)
}
