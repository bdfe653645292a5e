package sshkey

import (
	"strings"
	"testing"

	"golang.org/x/crypto/ssh"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateProducesParsablePrivateKey(t *testing.T) {
	kp, err := Generate()
	require.NoError(t, err)

	signer, err := ssh.ParsePrivateKey([]byte(kp.PrivatePEM))
	require.NoError(t, err)
	assert.Equal(t, ssh.KeyAlgoED25519, signer.PublicKey().Type())
}

func TestGeneratePrivateKeyEndsInOneNewline(t *testing.T) {
	kp, err := Generate()
	require.NoError(t, err)

	assert.True(t, strings.HasSuffix(kp.PrivatePEM, "\n"))
	assert.False(t, strings.HasSuffix(kp.PrivatePEM, "\n\n"))
}

func TestGenerateAuthorizedKeyLineHasNoTrailingWhitespace(t *testing.T) {
	kp, err := Generate()
	require.NoError(t, err)

	assert.Equal(t, strings.TrimRight(kp.AuthorizedKeyLine, " \t\n"), kp.AuthorizedKeyLine)
	assert.True(t, strings.HasPrefix(kp.AuthorizedKeyLine, "ssh-ed25519 "))
}

func TestGenerateAuthorizedKeyLineParsable(t *testing.T) {
	kp, err := Generate()
	require.NoError(t, err)

	_, _, _, _, err = ssh.ParseAuthorizedKey([]byte(kp.AuthorizedKeyLine))
	assert.NoError(t, err)
}

func TestGenerateKeyPairsAreDistinct(t *testing.T) {
	a, err := Generate()
	require.NoError(t, err)
	b, err := Generate()
	require.NoError(t, err)

	assert.NotEqual(t, a.AuthorizedKeyLine, b.AuthorizedKeyLine)
}
