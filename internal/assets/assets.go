// Package assets picks random sticker and animation files from disk.
package assets

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
)

// ErrEmpty is returned when a folder holds no usable file.
var ErrEmpty = errors.New("no assets available")

// Extensions accepted for each kind.
var (
	StickerExts   = []string{".webp", ".tgs", ".webm"}
	AnimationExts = []string{".gif", ".mp4"}
)

// Folder is a directory of interchangeable media files.
type Folder struct {
	dir  string
	exts []string
	intn func(n int) int
}

// NewFolder creates a Folder serving files with the given extensions.
// Files are listed on every call so the folder can change at runtime.
func NewFolder(dir string, exts []string) *Folder {
	return &Folder{dir: dir, exts: exts, intn: rand.IntN}
}

// Provider bundles the sticker and animation folders.
type Provider struct {
	Stickers   *Folder
	Animations *Folder
}

// NewProvider creates a Provider over the two folders.
func NewProvider(stickersDir, animationsDir string) *Provider {
	return &Provider{
		Stickers:   NewFolder(stickersDir, StickerExts),
		Animations: NewFolder(animationsDir, AnimationExts),
	}
}

// List returns the usable files in the folder, sorted by name.
func (f *Folder) List() ([]string, error) {
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read asset folder %s: %w", f.dir, err)
	}

	var files []string
	for _, e := range entries {
		if !e.Type().IsRegular() || !f.accepts(e.Name()) {
			continue
		}
		files = append(files, filepath.Join(f.dir, e.Name()))
	}
	return files, nil
}

// Random returns the path of a uniformly chosen file.
func (f *Folder) Random() (string, error) {
	files, err := f.List()
	if err != nil {
		return "", err
	}
	if len(files) == 0 {
		return "", ErrEmpty
	}
	return files[f.intn(len(files))], nil
}

func (f *Folder) accepts(name string) bool {
	if strings.HasPrefix(name, ".") {
		return false
	}
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range f.exts {
		if ext == e {
			return true
		}
	}
	return false
}
