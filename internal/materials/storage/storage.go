package storage

import (
	"fmt"
	"os"
	"path/filepath"
)

// ============================================================
// Upload Storage
// ============================================================

// FileStorage lays out uploaded manifests and their derived artifacts on
// disk. Metadata lives in the sqlite repository; this type only owns
// paths and bytes.
type FileStorage struct {
	root string
}

func New(root string) *FileStorage {
	return &FileStorage{root: root}
}

func (s *FileStorage) ManifestPath(fileID string) string {
	return filepath.Join(s.root, fileID+".bmm")
}

func (s *FileStorage) PayloadPath(fileID string) string {
	return filepath.Join(s.root, fileID+".model.json")
}

func (s *FileStorage) IdentifierMapPath(fileID string) string {
	return filepath.Join(s.root, fileID+".ids.json")
}

func (s *FileStorage) EnsureRoot() error {
	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return fmt.Errorf("mkdir uploads dir: %w", err)
	}
	return nil
}

// SaveManifest persists the raw uploaded manifest under its file id.
func (s *FileStorage) SaveManifest(fileID string, data []byte) error {
	if err := s.EnsureRoot(); err != nil {
		return err
	}
	return os.WriteFile(s.ManifestPath(fileID), data, 0o644)
}

func (s *FileStorage) ReadManifest(fileID string) ([]byte, error) {
	return os.ReadFile(s.ManifestPath(fileID))
}

// SaveDerived writes a derived artifact (geometry payload, identifier
// map) beside the manifest.
func (s *FileStorage) SaveDerived(path string, data []byte) error {
	if err := s.EnsureRoot(); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func (s *FileStorage) ReadDerived(path string) ([]byte, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}
	return data, true
}

// CleanupAll removes every stored manifest and derived artifact. Called
// on service shutdown; uploads are session-scoped, not archival.
func (s *FileStorage) CleanupAll() {
	for _, pattern := range []string{"*.bmm", "*.model.json", "*.ids.json"} {
		matches, err := filepath.Glob(filepath.Join(s.root, pattern))
		if err != nil {
			continue
		}
		for _, m := range matches {
			_ = os.Remove(m)
		}
	}
}
