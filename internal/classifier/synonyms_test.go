package classifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSynonymCache_RegisterThenLoad(t *testing.T) {
	dir := t.TempDir()
	cache := NewSynonymCache(dir)

	fresh, err := cache.Register("en-US", "celebrity", "Elon Musk", []string{"Elon Musk"})
	require.NoError(t, err)
	assert.True(t, fresh)

	entries, err := cache.Load("en-US")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "celebrity", entries[0].Entity)
}

func TestSynonymCache_RegisterIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	cache := NewSynonymCache(dir)

	fresh1, err := cache.Register("en-US", "celebrity", "Elon Musk", []string{"Elon Musk"})
	require.NoError(t, err)
	assert.True(t, fresh1)

	fresh2, err := cache.Register("en-US", "celebrity", "Elon Musk", []string{"Elon Musk"})
	require.NoError(t, err)
	assert.False(t, fresh2)

	entries, err := cache.Load("en-US")
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestSynonymCache_SeparatesLanguages(t *testing.T) {
	dir := t.TempDir()
	cache := NewSynonymCache(dir)

	_, err := cache.Register("en-US", "celebrity", "Elon Musk", nil)
	require.NoError(t, err)
	_, err = cache.Register("fr-FR", "celebrite", "Elon Musk", nil)
	require.NoError(t, err)

	enEntries, err := cache.Load("en-US")
	require.NoError(t, err)
	assert.Len(t, enEntries, 1)

	frEntries, err := cache.Load("fr-FR")
	require.NoError(t, err)
	assert.Len(t, frEntries, 1)
}
