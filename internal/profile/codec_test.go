package profile

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAESCodecRoundTrip(t *testing.T) {
	codec, err := NewAESCodec("correct horse battery staple")
	require.NoError(t, err)

	plain := []byte(`{"p1":{"name":"p1"}}`)
	raw, err := codec.Encode(plain)
	require.NoError(t, err)
	assert.NotEqual(t, plain, raw)

	got, err := codec.Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, plain, got)
}

func TestAESCodecWrongPassphrase(t *testing.T) {
	enc, err := NewAESCodec("right")
	require.NoError(t, err)
	dec, err := NewAESCodec("wrong")
	require.NoError(t, err)

	raw, err := enc.Encode([]byte("secret document"))
	require.NoError(t, err)

	_, err = dec.Decode(raw)
	assert.Error(t, err)
}

func TestEncryptedStoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	codec, err := NewAESCodec("pass")
	require.NoError(t, err)

	s, err := Open(dir, codec)
	require.NoError(t, err)
	require.NoError(t, s.Create("p1", Info{Email: "a@b.com", Password: "hunter2", TwoFASecret: "JBSWY3DPEHPK3PXP"}))

	// The on-disk document must not be parseable JSON.
	raw, err := os.ReadFile(filepath.Join(dir, metadataFile))
	require.NoError(t, err)
	var doc map[string]Record
	assert.Error(t, json.Unmarshal(raw, &doc))

	// Reopening with the same passphrase yields identical records.
	codec2, err := NewAESCodec("pass")
	require.NoError(t, err)
	s2, err := Open(dir, codec2)
	require.NoError(t, err)

	rec, ok := s2.Get("p1")
	require.True(t, ok)
	assert.Equal(t, "hunter2", rec.Password)
	assert.Equal(t, "JBSWY3DPEHPK3PXP", rec.TwoFASecret)
}
