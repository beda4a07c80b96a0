// Package filestore gives uniform read access to a game's files, whether they
// live in a plain directory or inside a single zip archive.
package filestore

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"strings"
	"sync"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// ErrNotFound reports that the logical path does not exist in the store.
var ErrNotFound = errors.New("file not found")

// Error describes a failed store operation on a logical path.
// Err is ErrNotFound for missing files and the underlying I/O error otherwise.
type Error struct {
	Op   string
	Path string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Store reads files by logical, slash-separated path.
type Store interface {
	ReadBytes(name string) ([]byte, error)
	ReadString(name string) (string, error)
	// Read streams the file to sink in bounded chunks. The chunk is only
	// valid for the duration of the sink call.
	Read(name string, sink func(chunk []byte) error) error
	Exists(name string) bool
	// Root describes the backing directory or archive for logs.
	Root() string
	Close() error
}

// Open picks the store variant for root: a directory yields a DirStore,
// a regular file is opened as a zip archive.
func Open(root string) (Store, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, wrapErr("open", root, err)
	}
	if info.IsDir() {
		return NewDirStore(root), nil
	}
	return OpenZipStore(root)
}

// chunkSize bounds every streamed read.
const chunkSize = 64 * 1024

var chunkPool = sync.Pool{
	New: func() any {
		b := make([]byte, chunkSize)
		return &b
	},
}

func cleanName(name string) (string, error) {
	name = strings.TrimPrefix(path.Clean("/"+strings.ReplaceAll(name, "\\", "/")), "/")
	if name == "" || !fs.ValidPath(name) {
		return "", fs.ErrInvalid
	}
	return name, nil
}

func wrapErr(op, name string, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return &Error{Op: op, Path: name, Err: ErrNotFound}
	}
	return &Error{Op: op, Path: name, Err: err}
}

func readBytes(fsys fs.FS, name string) ([]byte, error) {
	clean, err := cleanName(name)
	if err != nil {
		return nil, wrapErr("read", name, err)
	}
	data, err := fs.ReadFile(fsys, clean)
	if err != nil {
		return nil, wrapErr("read", name, err)
	}
	return data, nil
}

// decodeText strips a UTF-8 byte order mark and converts UTF-16 text that
// starts with a BOM to UTF-8.
func decodeText(name string, data []byte) (string, error) {
	out, _, err := transform.Bytes(unicode.BOMOverride(unicode.UTF8.NewDecoder()), data)
	if err != nil {
		return "", &Error{Op: "decode", Path: name, Err: err}
	}
	return string(out), nil
}

func stream(fsys fs.FS, name string, sink func([]byte) error) error {
	clean, err := cleanName(name)
	if err != nil {
		return wrapErr("read", name, err)
	}
	f, err := fsys.Open(clean)
	if err != nil {
		return wrapErr("read", name, err)
	}
	defer f.Close()

	bp := chunkPool.Get().(*[]byte)
	defer chunkPool.Put(bp)
	buf := *bp
	for {
		n, err := f.Read(buf)
		if n > 0 {
			if serr := sink(buf[:n]); serr != nil {
				return serr
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return wrapErr("read", name, err)
		}
	}
}

func exists(fsys fs.FS, name string) bool {
	clean, err := cleanName(name)
	if err != nil {
		return false
	}
	info, err := fs.Stat(fsys, clean)
	return err == nil && !info.IsDir()
}

// DirStore resolves logical paths relative to a base directory.
type DirStore struct {
	base string
	fsys fs.FS
}

func NewDirStore(base string) *DirStore {
	return &DirStore{base: base, fsys: os.DirFS(base)}
}

func (s *DirStore) ReadBytes(name string) ([]byte, error) { return readBytes(s.fsys, name) }

func (s *DirStore) ReadString(name string) (string, error) {
	data, err := readBytes(s.fsys, name)
	if err != nil {
		return "", err
	}
	return decodeText(name, data)
}

func (s *DirStore) Read(name string, sink func([]byte) error) error {
	return stream(s.fsys, name, sink)
}

func (s *DirStore) Exists(name string) bool { return exists(s.fsys, name) }
func (s *DirStore) Root() string            { return s.base }
func (s *DirStore) Close() error            { return nil }

// ZipStore resolves logical paths as entry names inside a read-only archive.
type ZipStore struct {
	path string
	zr   *zip.ReadCloser
}

func OpenZipStore(archive string) (*ZipStore, error) {
	zr, err := zip.OpenReader(archive)
	if err != nil {
		return nil, wrapErr("open", archive, err)
	}
	return &ZipStore{path: archive, zr: zr}, nil
}

func (s *ZipStore) ReadBytes(name string) ([]byte, error) { return readBytes(s.zr, name) }

func (s *ZipStore) ReadString(name string) (string, error) {
	data, err := readBytes(s.zr, name)
	if err != nil {
		return "", err
	}
	return decodeText(name, data)
}

func (s *ZipStore) Read(name string, sink func([]byte) error) error {
	return stream(s.zr, name, sink)
}

func (s *ZipStore) Exists(name string) bool { return exists(s.zr, name) }
func (s *ZipStore) Root() string            { return s.path }
func (s *ZipStore) Close() error            { return s.zr.Close() }
