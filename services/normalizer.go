package services

import (
	"math"
	"strconv"
	"strings"

	"showroom-kpi/models"
	"showroom-kpi/utils"
)

// NormalizeResult is the Normalizer's output for one month.
type NormalizeResult struct {
	Table      *models.Table
	Input      int
	Duplicates int
}

// Normalizer deduplicates raw records and finalizes them into the export
// schema.
type Normalizer struct {
	mode   models.Mode
	logger *utils.Logger
}

// NewNormalizer creates a Normalizer for the given cleanup mode.
func NewNormalizer(mode models.Mode, logger *utils.Logger) *Normalizer {
	return &Normalizer{mode: mode, logger: logger}
}

// Mode returns the cleanup mode the Normalizer applies.
func (n *Normalizer) Mode() models.Mode { return n.mode }

// Normalize keeps the first record of each dedupe key, in scan order, and
// types every column according to the mode.
func (n *Normalizer) Normalize(month models.Month, raw []models.RawRecord) *NormalizeResult {
	table := &models.Table{Month: month, Mode: n.mode}
	res := &NormalizeResult{Table: table, Input: len(raw)}
	if len(raw) == 0 {
		return res
	}

	seen := utils.NewKeySet[models.DedupeKey]()
	table.Rows = make([]models.Row, 0, len(raw))

	for _, r := range raw {
		if !seen.Add(r.Key()) {
			n.logger.Debug("[normalizer] Duplicate skipped: %s", r.Key())
			continue
		}
		table.Rows = append(table.Rows, n.finalize(r))
	}

	res.Duplicates = len(raw) - len(table.Rows)
	if res.Duplicates > 0 {
		n.logger.Info("[normalizer] %s: removed %d duplicate records", month.Label(), res.Duplicates)
	}
	n.logger.Info("[normalizer] %s: normalized %d → %d records (%s mode)",
		month.Label(), len(raw), len(table.Rows), n.mode)
	return res
}

func (n *Normalizer) finalize(r models.RawRecord) models.Row {
	var row models.Row
	for i, cell := range r.Values() {
		row[i] = n.typeCell(i, cell)
	}
	// The duration is always a plain integer, whatever the mode.
	row[3] = models.Int(r.DurationMinutes)
	return row
}

func (n *Normalizer) typeCell(field int, cell string) models.Value {
	cell = strings.TrimSpace(cell)
	if n.mode != models.ModeStrict {
		return models.Text(cell)
	}
	switch models.Fields[field].Kind {
	case models.KindInt:
		return parseNullInt(cell)
	case models.KindRate:
		return parseNullRate(cell)
	default:
		return models.Text(cell)
	}
}

// isMissing reports the placeholders the report uses for "no data".
func isMissing(s string) bool {
	return s == "" || s == "-"
}

// parseNullInt reads an integer cell. Blank, "-" and anything that is not
// a whole number become null.
func parseNullInt(s string) models.NullInt {
	if isMissing(s) {
		return models.NullInt{}
	}
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return models.NullInt{Int64: v, Valid: true}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || f != math.Trunc(f) {
		return models.NullInt{}
	}
	// float64(math.MaxInt64) rounds up to 2^63, which int64 cannot hold.
	if f < math.MinInt64 || f >= math.MaxInt64 {
		return models.NullInt{}
	}
	return models.NullInt{Int64: int64(f), Valid: true}
}

// parseNullRate reads a percentage cell rounded to one decimal place.
func parseNullRate(s string) models.NullFloat {
	if isMissing(s) {
		return models.NullFloat{}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return models.NullFloat{}
	}
	return models.NullFloat{Float64: math.RoundToEven(f*10) / 10, Valid: true}
}
