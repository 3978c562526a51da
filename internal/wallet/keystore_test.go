package wallet

import (
	"errors"
	"testing"

	"github.com/99designs/keyring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testKeystore returns a file-backed Keystore isolated to a temp directory.
// Using the FileBackend avoids OS keychain prompts in CI.
func testKeystore(t *testing.T) *Keystore {
	t.Helper()
	ring, err := keyring.Open(keyring.Config{
		ServiceName:      "donation-forwarder-test",
		AllowedBackends:  []keyring.BackendType{keyring.FileBackend},
		FileDir:          t.TempDir(),
		FilePasswordFunc: func(string) (string, error) { return "testpass", nil },
	})
	require.NoError(t, err)
	return NewKeystore(ring)
}

func TestKeystoreStoreRetrieve(t *testing.T) {
	ks := testKeystore(t)
	require.NoError(t, ks.Store("deployer", testPrivKeyHex))

	got, err := ks.Retrieve("deployer")
	require.NoError(t, err)
	assert.Equal(t, testPrivKeyHex, got)
}

func TestKeystoreRetrieveMissing(t *testing.T) {
	_, err := testKeystore(t).Retrieve("nope")
	require.Error(t, err)
}

func TestKeystoreNilRing(t *testing.T) {
	_, err := (&Keystore{}).Retrieve("deployer")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "keystore not available")
}

// ---------------------------------------------------------------------------
// ResolveKey
// ---------------------------------------------------------------------------

func TestResolveKeyPrefersEnv(t *testing.T) {
	opened := false
	key, err := ResolveKey("envkey", "deployer", func() (KeyRetriever, error) {
		opened = true
		return nil, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "envkey", key)
	assert.False(t, opened, "keystore must not be opened when PRIVATE_KEY is set")
}

func TestResolveKeyEmptyWithoutRef(t *testing.T) {
	key, err := ResolveKey("", "", func() (KeyRetriever, error) {
		return nil, errors.New("should not open")
	})
	require.NoError(t, err)
	assert.Equal(t, "", key)
}

func TestResolveKeyFromKeystore(t *testing.T) {
	ks := testKeystore(t)
	require.NoError(t, ks.Store("deployer", testPrivKeyHex))

	key, err := ResolveKey("", "deployer", func() (KeyRetriever, error) { return ks, nil })
	require.NoError(t, err)
	assert.Equal(t, testPrivKeyHex, key)
}

func TestResolveKeyOpenError(t *testing.T) {
	_, err := ResolveKey("", "deployer", func() (KeyRetriever, error) {
		return nil, errors.New("no keychain backend")
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no keychain backend")
}
