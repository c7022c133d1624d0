package migrate

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersions_Embedded(t *testing.T) {
	got, err := Versions()
	require.NoError(t, err)
	require.NotEmpty(t, got)
	assert.Equal(t, "0001_init", got[0])
	assert.IsIncreasing(t, got)
}

func TestVersions_SortsAndFilters(t *testing.T) {
	fsys := fstest.MapFS{
		"migrations/0002_media.sql":  {Data: []byte("SELECT 1")},
		"migrations/0001_init.sql":   {Data: []byte("SELECT 1")},
		"migrations/README.md":       {Data: []byte("notes")},
		"migrations/0010_later.sql":  {Data: []byte("SELECT 1")},
		"migrations/archive/old.sql": {Data: []byte("SELECT 1")},
	}
	got, err := versions(fsys)
	require.NoError(t, err)
	assert.Equal(t, []string{"0001_init", "0002_media", "0010_later"}, got)
}

func TestVersions_MissingDir(t *testing.T) {
	_, err := versions(fstest.MapFS{})
	assert.Error(t, err)
}
