package chatcrypt

import (
	"strings"
	"testing"

	"filippo.io/age"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCipher(t *testing.T) *Cipher {
	t.Helper()
	id, err := age.GenerateX25519Identity()
	require.NoError(t, err)
	c, err := New(id.String())
	require.NoError(t, err)
	return c
}

func TestCipher_RoundTrip(t *testing.T) {
	c := newTestCipher(t)

	ct, err := c.Encrypt("I feel anxious about tomorrow")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(ct, "-----BEGIN AGE ENCRYPTED FILE-----"))
	assert.NotContains(t, ct, "anxious")

	pt, err := c.Decrypt(ct)
	require.NoError(t, err)
	assert.Equal(t, "I feel anxious about tomorrow", pt)
}

func TestCipher_EmptyAndUnicode(t *testing.T) {
	c := newTestCipher(t)
	for _, msg := range []string{"", "नमस्ते 🙂"} {
		ct, err := c.Encrypt(msg)
		require.NoError(t, err)
		pt, err := c.Decrypt(ct)
		require.NoError(t, err)
		assert.Equal(t, msg, pt)
	}
}

func TestCipher_WrongKey(t *testing.T) {
	ct, err := newTestCipher(t).Encrypt("secret")
	require.NoError(t, err)

	_, err = newTestCipher(t).Decrypt(ct)
	assert.Error(t, err)

	_, err = newTestCipher(t).Decrypt("not armored")
	assert.Error(t, err)
}

func TestNew_InvalidKey(t *testing.T) {
	_, err := New("")
	assert.Error(t, err)
	_, err = New("AGE-SECRET-KEY-1NOTVALID")
	assert.Error(t, err)
}
