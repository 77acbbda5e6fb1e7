// Package uploads stores raw audio recordings on local disk, one
// subdirectory per user. Filenames are generated server-side; client
// names are only consulted for their extension.
package uploads

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

var allowedExtensions = map[string]bool{
	".wav":  true,
	".mp3":  true,
	".webm": true,
	".m4a":  true,
	".ogg":  true,
}

// AllowedExtension reports whether the client filename carries a
// supported audio extension.
func AllowedExtension(name string) bool {
	return allowedExtensions[strings.ToLower(filepath.Ext(name))]
}

// Dir is a root directory for stored recordings.
type Dir struct {
	root string
}

func New(root string) (*Dir, error) {
	if root == "" {
		return nil, fmt.Errorf("uploads: root directory is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("uploads: create root: %w", err)
	}
	return &Dir{root: root}, nil
}

// SaveAudio writes r under the user's directory and returns the stored
// filename and its absolute path.
func (d *Dir) SaveAudio(userID, clientName string, r io.Reader) (string, string, error) {
	ext := strings.ToLower(filepath.Ext(clientName))
	if !allowedExtensions[ext] {
		return "", "", fmt.Errorf("uploads: unsupported extension %q", ext)
	}

	userDir := filepath.Join(d.root, userID)
	if err := os.MkdirAll(userDir, 0o755); err != nil {
		return "", "", fmt.Errorf("uploads: create user dir: %w", err)
	}

	filename := fmt.Sprintf("%s_%d%s", userID, time.Now().UnixNano(), ext)
	path := filepath.Join(userDir, filename)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", "", fmt.Errorf("uploads: create file: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return "", "", fmt.Errorf("uploads: write file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", "", fmt.Errorf("uploads: close file: %w", err)
	}
	return filename, path, nil
}

// AudioPath resolves a stored filename back to its path. Filenames with
// path separators are rejected.
func (d *Dir) AudioPath(userID, filename string) (string, error) {
	if filename == "" || filename != filepath.Base(filename) {
		return "", fmt.Errorf("uploads: invalid filename %q", filename)
	}
	return filepath.Join(d.root, userID, filename), nil
}

// Remove deletes a stored recording. Missing files are not an error.
func (d *Dir) Remove(userID, filename string) error {
	path, err := d.AudioPath(userID, filename)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
