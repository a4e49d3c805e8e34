package textnorm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryDefaults(t *testing.T) {
	reg := NewRegistry()

	assert.Equal(t, []string{".cfg", ".dat", ".net", ".nmf", ".txt"}, reg.Extensions())

	for ext, want := range map[string]string{
		".txt": "generic",
		".cfg": "generic",
		".dat": "generic",
		".net": "netmodel",
		".nmf": "netmodel",
	} {
		c, ok := reg.Lookup(ext)
		require.True(t, ok, "extension %s", ext)
		assert.Equal(t, want, c.Name(), "extension %s", ext)
	}
}

func TestRegistryLookup(t *testing.T) {
	reg := NewRegistry()

	t.Run("extension matching is case-insensitive", func(t *testing.T) {
		c, ok := reg.Lookup(".TXT")
		require.True(t, ok)
		assert.Equal(t, "generic", c.Name())
	})

	t.Run("missing dot is tolerated", func(t *testing.T) {
		c, ok := reg.Lookup("net")
		require.True(t, ok)
		assert.Equal(t, "netmodel", c.Name())
	})

	t.Run("unknown extensions miss", func(t *testing.T) {
		_, ok := reg.Lookup(".xlsx")
		assert.False(t, ok)
	})

	t.Run("by path", func(t *testing.T) {
		c, ok := reg.ForPath("models/region-a/Case1.NET")
		require.True(t, ok)
		assert.Equal(t, "netmodel", c.Name())

		_, ok = reg.ForPath("README")
		assert.False(t, ok)
	})
}

func TestRegistryRegister(t *testing.T) {
	t.Run("last registration wins", func(t *testing.T) {
		reg := NewRegistry()
		reg.Register(".txt", NetModel())

		c, ok := reg.Lookup(".txt")
		require.True(t, ok)
		assert.Equal(t, "netmodel", c.Name())
		assert.Equal(t, 5, reg.Len())
	})

	t.Run("normalizes the extension", func(t *testing.T) {
		reg := NewEmptyRegistry()
		reg.Register("GDAT", Generic())

		c, ok := reg.Lookup(".gdat")
		require.True(t, ok)
		assert.Equal(t, "generic", c.Name())
	})

	t.Run("blank extensions are ignored", func(t *testing.T) {
		reg := NewEmptyRegistry()
		reg.Register("", Generic())
		reg.Register(".", Generic())
		reg.Register("  ", Generic())
		assert.Zero(t, reg.Len())
	})
}
