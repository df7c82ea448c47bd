package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"showroom-kpi/models"
)

const xlsxSheet = "KPI"

// XLSXWriter keeps a spreadsheet copy of each month next to the CSV.
// Integer and rate cells are written as numbers, nulls as blank cells.
type XLSXWriter struct {
	Dir string
}

// Path returns the spreadsheet path for a month.
func (x *XLSXWriter) Path(m models.Month) string {
	return filepath.Join(x.Dir, strings.TrimSuffix(m.ArtifactName(), ".csv")+".xlsx")
}

func (x *XLSXWriter) Save(_ context.Context, t *models.Table) error {
	if err := os.MkdirAll(x.Dir, 0o755); err != nil {
		return fmt.Errorf("xlsx: create output dir: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", xlsxSheet); err != nil {
		return fmt.Errorf("xlsx: rename sheet: %w", err)
	}

	header := models.Header()
	headerRow := make([]interface{}, len(header))
	for i, h := range header {
		headerRow[i] = h
	}
	if err := f.SetSheetRow(xlsxSheet, "A1", &headerRow); err != nil {
		return fmt.Errorf("xlsx: write header: %w", err)
	}

	for i, row := range t.Rows {
		cells := make([]interface{}, len(row))
		for j, v := range row {
			cells[j] = xlsxValue(v)
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("xlsx: row %d: %w", i, err)
		}
		if err := f.SetSheetRow(xlsxSheet, cell, &cells); err != nil {
			return fmt.Errorf("xlsx: write row %d: %w", i, err)
		}
	}

	path := x.Path(t.Month)
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("xlsx: save %q: %w", path, err)
	}
	return nil
}

func (x *XLSXWriter) Close() error { return nil }

func xlsxValue(v models.Value) interface{} {
	switch c := v.(type) {
	case nil:
		return nil
	case models.Int:
		return int64(c)
	case models.NullInt:
		if !c.Valid {
			return nil
		}
		return c.Int64
	case models.NullFloat:
		if !c.Valid {
			return nil
		}
		return c.Float64
	default:
		return v.String()
	}
}
