package imaging

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArena_Lifecycle(t *testing.T) {
	reg := NewRegistry(t.TempDir(), nil)

	arena, err := reg.NewArena()
	require.NoError(t, err)
	assert.Equal(t, 1, reg.Outstanding())

	img := halves(20, 10)
	paths := map[int]string{}
	for _, angle := range []int{30, 60, 90} {
		p, data, err := arena.Write(angle, Rotate(img, angle))
		require.NoError(t, err)
		assert.NotEmpty(t, data)
		paths[angle] = p
	}
	assert.Equal(t, 3, arena.Len())

	arena.ReleaseExcept(60)

	assert.Equal(t, 1, arena.Len())
	assert.FileExists(t, paths[60])
	assert.NoFileExists(t, paths[30])
	assert.NoFileExists(t, paths[90])

	arena.Close()

	assert.NoDirExists(t, arena.Dir())
	assert.Equal(t, 0, reg.Outstanding())
}

func TestRegistry_CloseRemovesEverything(t *testing.T) {
	reg := NewRegistry(t.TempDir(), nil)

	a1, err := reg.NewArena()
	require.NoError(t, err)
	_, _, err = a1.Write(90, Rotate(halves(10, 10), 90))
	require.NoError(t, err)

	dir, err := reg.TempDir("pdf_")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(dir+"/page-1.jpg", []byte("x"), 0o600))

	assert.Equal(t, 2, reg.Outstanding())

	require.NoError(t, reg.Close())

	assert.Equal(t, 0, reg.Outstanding())
	assert.NoDirExists(t, a1.Dir())
	assert.NoDirExists(t, dir)

	// Closing an already released arena is harmless.
	a1.Close()
	require.NoError(t, reg.Close())
}

func TestRegistry_RemoveUntracked(t *testing.T) {
	reg := NewRegistry(t.TempDir(), nil)
	keep := t.TempDir()

	require.NoError(t, reg.Remove(keep))
	assert.DirExists(t, keep)
}
