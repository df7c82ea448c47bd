package showroom

import (
	"regexp"
	"strings"
	"time"

	"showroom-kpi/models"
)

// CellCount is the number of td.delim cells in a data row. The combined
// date/duration cell expands into two logical fields.
const CellCount = models.FieldCount - 1

// cleanFrom is the first logical field that strict mode strips of
// grouping commas and percent signs.
const cleanFrom = 6

var timestampRegexp = regexp.MustCompile(`\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}`)

// ExtractRow maps one table row's cell texts onto a RawRecord. Rows with
// the wrong number of cells are not data rows and report false.
func ExtractRow(cells []string, mode models.Mode) (models.RawRecord, bool) {
	if len(cells) != CellCount {
		return models.RawRecord{}, false
	}

	combined := strings.TrimSpace(cells[2])
	rec := models.RawRecord{
		AccountID:       strings.TrimSpace(cells[0]),
		RoomID:          strings.TrimSpace(cells[1]),
		StartedAt:       parseStartedAt(combined),
		DurationMinutes: ParseDuration(combined),
	}

	for i, p := range rec.Metrics() {
		field := 4 + i
		*p = cleanCell(cells[field-1], field, mode)
	}
	return rec, true
}

// parseStartedAt reformats the embedded YYYY-MM-DD HH:MM:SS timestamp to
// YYYY/MM/DD HH:MM:SS, or returns "" when none is present.
func parseStartedAt(text string) string {
	raw := timestampRegexp.FindString(text)
	if raw == "" {
		return ""
	}
	t, err := time.Parse("2006-01-02 15:04:05", raw)
	if err != nil {
		return ""
	}
	return t.Format("2006/01/02 15:04:05")
}

var strictReplacer = strings.NewReplacer(",", "", "%", "")

func cleanCell(value string, field int, mode models.Mode) string {
	value = strings.TrimSpace(value)
	if mode == models.ModeStrict && field >= cleanFrom {
		// The minus sign is data here, only separators go.
		value = strings.TrimSpace(strictReplacer.Replace(value))
	}
	return value
}
