package extractor

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/hsaeed3/yosemite/internal/domain"
	"github.com/hsaeed3/yosemite/internal/usecase"
)

// FromCSV reads a dataset where each row is one document. The header row
// names the columns; contentColumn holds the document text and every other
// column becomes string metadata. idColumn, when non-empty, is recorded as
// the external id in metadata (the store still allocates its own ids).
func FromCSV(path, idColumn, contentColumn string) ([]usecase.Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	contentIdx := -1
	for i, name := range header {
		if name == contentColumn {
			contentIdx = i
		}
	}
	if contentIdx < 0 {
		return nil, fmt.Errorf("content column %q not found in CSV header", contentColumn)
	}

	var sources []usecase.Source
	row := 0
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV row %d: %w", row+1, err)
		}
		row++

		meta := map[string]domain.MetaValue{
			"source": domain.String(path),
		}
		uri := fmt.Sprintf("%s#%d", path, row)
		for i, name := range header {
			if i == contentIdx || i >= len(record) {
				continue
			}
			meta[name] = domain.String(record[i])
			if name == idColumn && record[i] != "" {
				uri = fmt.Sprintf("%s#%s", path, record[i])
			}
		}
		sources = append(sources, usecase.Source{
			URI:      uri,
			Text:     record[contentIdx],
			Metadata: meta,
		})
	}
	return sources, nil
}
