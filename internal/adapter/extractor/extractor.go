// Package extractor converts local files into ingestion sources. It is a
// convenience for the CLI; the document extraction boundary proper is
// external, and callers embedding the database hand it Sources directly.
package extractor

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/hsaeed3/yosemite/internal/domain"
	"github.com/hsaeed3/yosemite/internal/usecase"
)

// FromFile reads a plain-text file into a Source, recording the path and
// modification time as metadata.
func FromFile(path string) (usecase.Source, error) {
	info, err := os.Stat(path)
	if err != nil {
		return usecase.Source{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return usecase.Source{}, err
	}
	return usecase.Source{
		URI:  path,
		Text: string(data),
		Metadata: map[string]domain.MetaValue{
			"source":   domain.String(path),
			"modified": domain.Time(info.ModTime()),
		},
	}, nil
}

// Walk returns the files under root matching any of the include globs,
// relative-path matched, in walk order.
func Walk(root string, includes []string) ([]string, error) {
	if len(includes) == 0 {
		includes = []string{"**/*"}
	}
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	var files []string
	err = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		for _, pattern := range includes {
			matched, err := doublestar.Match(pattern, rel)
			if err != nil {
				return fmt.Errorf("bad include pattern %q: %w", pattern, err)
			}
			if matched {
				files = append(files, path)
				break
			}
		}
		return nil
	})
	return files, err
}
