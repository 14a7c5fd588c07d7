package gallery

import (
	"fmt"
	"os"
	"path/filepath"
)

// Saver persists downloaded bytes under a filename.
type Saver interface {
	Save(filename string, data []byte) error
}

// DirSaver writes downloads into a directory.
type DirSaver struct {
	Dir string
}

func (s DirSaver) Save(filename string, data []byte) error {
	name := filepath.Base(filepath.Clean("/" + filename))
	if name == "/" || name == "." {
		return fmt.Errorf("invalid filename %q", filename)
	}
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(s.Dir, name), data, 0o644)
}
