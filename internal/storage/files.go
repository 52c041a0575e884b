package storage

import (
	"fmt"
	"os"
	"path/filepath"
)

// FileManager owns the data directory: meeting metadata, exported reports and
// scratch space for transcription.
type FileManager struct {
	baseDir string
	pdfDir  string
	tmpDir  string
}

func NewFileManager(baseDir string) (*FileManager, error) {
	fm := &FileManager{
		baseDir: baseDir,
		pdfDir:  filepath.Join(baseDir, "pdf"),
		tmpDir:  filepath.Join(baseDir, "tmp"),
	}

	dirs := []string{fm.baseDir, fm.pdfDir, fm.tmpDir}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create dir %s: %w", dir, err)
		}
	}

	return fm, nil
}

func (fm *FileManager) BaseDir() string { return fm.baseDir }

func (fm *FileManager) PDFPath(id string) string {
	return filepath.Join(fm.pdfDir, fmt.Sprintf("%s.pdf", id))
}

// ScratchDir creates a private working directory. The returned cleanup
// removes it and everything inside.
func (fm *FileManager) ScratchDir(prefix string) (string, func(), error) {
	dir, err := os.MkdirTemp(fm.tmpDir, prefix+"-*")
	if err != nil {
		return "", func() {}, fmt.Errorf("create scratch dir: %w", err)
	}
	return dir, func() { os.RemoveAll(dir) }, nil
}
