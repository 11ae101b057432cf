package resolve

import (
	"io/fs"
	"os"
	"path/filepath"
)

// FileSystem is the file-system capability the resolver and the directory
// sweep need. OS binds it to the real file system; tests may substitute
// their own.
type FileSystem interface {
	Stat(name string) (fs.FileInfo, error)
	EvalSymlinks(path string) (string, error)
	ReadDir(name string) ([]fs.DirEntry, error)
}

type osFileSystem struct{}

// OS is the FileSystem backed by package os.
var OS FileSystem = osFileSystem{}

func (osFileSystem) Stat(name string) (fs.FileInfo, error)      { return os.Stat(name) }
func (osFileSystem) EvalSymlinks(path string) (string, error)   { return filepath.EvalSymlinks(path) }
func (osFileSystem) ReadDir(name string) ([]fs.DirEntry, error) { return os.ReadDir(name) }
