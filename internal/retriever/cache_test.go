package retriever

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fetch.cache")

	c := NewCache(0)
	c.Set("https://example.net/a", []byte("alpha"))
	c.Set("https://example.net/b", []byte("beta"))
	require.NoError(t, c.Save(path))

	loaded := NewCache(time.Hour)
	require.NoError(t, loaded.Load(path))
	assert.Equal(t, 2, loaded.ItemCount())

	body, ok := loaded.Get("https://example.net/b")
	require.True(t, ok)
	assert.Equal(t, "beta", string(body))

	loaded.Delete("https://example.net/b")
	_, ok = loaded.Get("https://example.net/b")
	assert.False(t, ok)
}

func TestCacheLoadMissingFile(t *testing.T) {
	c := NewCache(time.Minute)
	assert.NoError(t, c.Load(filepath.Join(t.TempDir(), "none")))
	assert.Zero(t, c.ItemCount())
}

func TestKeyIsStable(t *testing.T) {
	assert.Equal(t, Key("x"), Key("x"))
	assert.NotEqual(t, Key("x"), Key("y"))
	assert.Len(t, Key("x"), 32)
}
