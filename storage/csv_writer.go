package storage

import (
	"bytes"
	"encoding/csv"
	"fmt"

	"showroom-kpi/models"
)

// utf8BOM lets spreadsheet tools detect the encoding of the export.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSVEncoder renders a table as UTF-8 CSV with a byte-order mark and the
// canonical header row.
type CSVEncoder struct{}

func (CSVEncoder) Encode(t *models.Table) ([]byte, error) {
	return EncodeCSV(t)
}

// EncodeCSV renders t; null cells become empty fields.
func EncodeCSV(t *models.Table) ([]byte, error) {
	var buf bytes.Buffer
	buf.Write(utf8BOM)

	w := csv.NewWriter(&buf)
	if err := w.Write(models.Header()); err != nil {
		return nil, fmt.Errorf("csv: write header: %w", err)
	}
	if t != nil {
		for i, row := range t.Rows {
			if err := w.Write(row.Strings()); err != nil {
				return nil, fmt.Errorf("csv: write row %d: %w", i, err)
			}
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("csv: flush: %w", err)
	}
	return buf.Bytes(), nil
}
