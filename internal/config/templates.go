package config

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/multierr"
)

//go:embed templates/*.yaml
var templateFS embed.FS

// WriteTemplates writes the example records into dir, creating it when
// needed. Existing files are never overwritten; each collision is reported
// in the returned error. It returns the paths written.
func WriteTemplates(dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create config folder: %w", err)
	}
	entries, err := fs.ReadDir(templateFS, "templates")
	if err != nil {
		return nil, fmt.Errorf("read templates: %w", err)
	}

	var (
		written []string
		errs    error
	)
	for _, e := range entries {
		data, err := templateFS.ReadFile("templates/" + e.Name())
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		path := filepath.Join(dir, e.Name())
		if err := writeNew(path, data); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("write template %s: %w", path, err))
			continue
		}
		written = append(written, path)
	}
	return written, errs
}

func writeNew(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
