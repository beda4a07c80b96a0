package filestore

import (
	"archive/zip"
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixture = map[string][]byte{
	"game.js":          []byte("module.exports = {};"),
	"sprites/cat.png":  {0x89, 'P', 'N', 'G'},
	"bom.txt":          append([]byte{0xEF, 0xBB, 0xBF}, "hello"...),
	"utf16.txt":        {0xFF, 0xFE, 'h', 0, 'i', 0},
	"big.bin":          bytes.Repeat([]byte{7}, 3*chunkSize+11),
	"nested/deep/a.js": []byte("a"),
}

func dirFixture(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	for name, data := range fixture {
		p := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, data, 0o644))
	}
	return dir
}

func zipFixture(t *testing.T) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "game.zip")
	f, err := os.Create(p)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	for name, data := range fixture {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
	return p
}

func stores(t *testing.T) map[string]Store {
	t.Helper()
	dir, err := Open(dirFixture(t))
	require.NoError(t, err)
	archive, err := Open(zipFixture(t))
	require.NoError(t, err)
	t.Cleanup(func() {
		dir.Close()
		archive.Close()
	})
	return map[string]Store{"dir": dir, "zip": archive}
}

func TestOpenPicksVariant(t *testing.T) {
	s := stores(t)
	assert.IsType(t, &DirStore{}, s["dir"])
	assert.IsType(t, &ZipStore{}, s["zip"])
}

func TestReadBytes(t *testing.T) {
	for kind, s := range stores(t) {
		t.Run(kind, func(t *testing.T) {
			data, err := s.ReadBytes("sprites/cat.png")
			require.NoError(t, err)
			assert.Equal(t, fixture["sprites/cat.png"], data)

			data, err = s.ReadBytes("./nested/../nested/deep/a.js")
			require.NoError(t, err)
			assert.Equal(t, []byte("a"), data)
		})
	}
}

func TestReadStringDecodesBOM(t *testing.T) {
	for kind, s := range stores(t) {
		t.Run(kind, func(t *testing.T) {
			text, err := s.ReadString("bom.txt")
			require.NoError(t, err)
			assert.Equal(t, "hello", text)

			text, err = s.ReadString("utf16.txt")
			require.NoError(t, err)
			assert.Equal(t, "hi", text)
		})
	}
}

func TestMissingFileIsNotFound(t *testing.T) {
	for kind, s := range stores(t) {
		t.Run(kind, func(t *testing.T) {
			_, err := s.ReadBytes("missing.js")
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrNotFound)

			var ferr *Error
			require.True(t, errors.As(err, &ferr))
			assert.Equal(t, "read", ferr.Op)
			assert.Equal(t, "missing.js", ferr.Path)

			_, err = s.ReadString("missing.js")
			assert.ErrorIs(t, err, ErrNotFound)
			assert.False(t, s.Exists("missing.js"))
			assert.True(t, s.Exists("game.js"))
		})
	}
}

func TestDirectoryReadIsIOError(t *testing.T) {
	s := NewDirStore(dirFixture(t))
	_, err := s.ReadBytes("sprites")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.False(t, s.Exists("sprites"))
}

func TestStreamUsesBoundedChunks(t *testing.T) {
	for kind, s := range stores(t) {
		t.Run(kind, func(t *testing.T) {
			var got bytes.Buffer
			calls := 0
			err := s.Read("big.bin", func(chunk []byte) error {
				calls++
				assert.LessOrEqual(t, len(chunk), chunkSize)
				got.Write(chunk)
				return nil
			})
			require.NoError(t, err)
			assert.Equal(t, fixture["big.bin"], got.Bytes())
			assert.GreaterOrEqual(t, calls, 4)
		})
	}
}

func TestStreamSinkErrorStops(t *testing.T) {
	stop := errors.New("stop")
	s := NewDirStore(dirFixture(t))
	calls := 0
	err := s.Read("big.bin", func([]byte) error {
		calls++
		return stop
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, calls)
}

func TestOpenMissingRoot(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "nope"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestOpenInvalidArchive(t *testing.T) {
	p := filepath.Join(t.TempDir(), "broken.zip")
	require.NoError(t, os.WriteFile(p, []byte("not a zip"), 0o644))
	_, err := Open(p)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}
