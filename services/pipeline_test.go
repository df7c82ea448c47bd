package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"showroom-kpi/config"
	"showroom-kpi/models"
	"showroom-kpi/scraper/showroom"
	"showroom-kpi/storage"
)

// stubScraper returns canned walk results per month.
type stubScraper struct {
	results map[models.Month]models.WalkResult
	calls   []models.Month
}

func (s *stubScraper) ScrapeMonth(_ context.Context, m models.Month, _ *models.Events) models.WalkResult {
	s.calls = append(s.calls, m)
	r := s.results[m]
	r.Month = m
	return r
}

type failingDeliverer struct{ err error }

func (f failingDeliverer) Deliver(context.Context, string, []byte) (string, error) {
	return "", f.err
}

type recordingStore struct{ saved []models.Month }

func (r *recordingStore) Save(_ context.Context, t *models.Table) error {
	r.saved = append(r.saved, t.Month)
	return nil
}

func (r *recordingStore) Close() error { return nil }

var (
	apr2024 = models.Month{Year: 2024, Month: time.April}
	mar2024 = models.Month{Year: 2024, Month: time.March}
)

func TestPipelineDeliversAndSkips(t *testing.T) {
	dir := t.TempDir()
	stub := &stubScraper{results: map[models.Month]models.WalkResult{
		may2024: {Records: []models.RawRecord{
			record("acc-1", "2024/05/01 20:15:00", 13),
			record("acc-1", "2024/05/01 20:15:00", 13),
		}},
		apr2024: {Stop: models.StopNoRows},
	}}
	store := &recordingStore{}

	p := NewPipeline(stub, NewNormalizer(models.ModeStrict, newTestLogger()), storage.LocalDir{Dir: dir}, newTestLogger())
	p.AddStore(store)

	var warnings []string
	events := &models.Events{OnWarning: func(m models.Month, err error) { warnings = append(warnings, err.Error()) }}

	report := p.Run(context.Background(), []models.Month{may2024, apr2024}, events)

	require.Len(t, report.Outcomes, 2)
	may, apr := report.Outcomes[0], report.Outcomes[1]

	assert.Equal(t, models.MonthDelivered, may.Status)
	assert.Equal(t, 2, may.Scraped)
	assert.Equal(t, 1, may.Duplicates)
	assert.Equal(t, 1, may.Exported)
	assert.Equal(t, filepath.Join(dir, "2024-05_all_all.csv"), may.Path)

	assert.Equal(t, models.MonthSkipped, apr.Status)
	assert.ErrorIs(t, apr.Err, ErrNoData)

	assert.False(t, report.Success())
	assert.Equal(t, []models.Month{may2024}, store.saved)
	assert.Empty(t, warnings)

	data, err := os.ReadFile(may.Path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte{0xEF, 0xBB, 0xBF}))
	assert.Equal(t, 2, strings.Count(string(data), "\n"))

	_, err = os.Stat(filepath.Join(dir, "2024-04_all_all.csv"))
	assert.True(t, os.IsNotExist(err))
}

func TestPipelineDeliveryFailureIsolated(t *testing.T) {
	stub := &stubScraper{results: map[models.Month]models.WalkResult{
		may2024: {Records: []models.RawRecord{record("acc-1", "2024/05/01 20:15:00", 13)}},
		apr2024: {Records: []models.RawRecord{record("acc-2", "2024/04/01 20:15:00", 10)}},
	}}
	p := NewPipeline(stub, NewNormalizer(models.ModeStrict, newTestLogger()),
		failingDeliverer{err: errors.New("ftp: store /kpi/x.csv: 550")}, newTestLogger())

	report := p.Run(context.Background(), []models.Month{may2024, apr2024}, nil)

	assert.Equal(t, []models.Month{may2024, apr2024}, stub.calls)
	assert.Equal(t, 2, report.Count(models.MonthFailed))
	assert.ErrorContains(t, report.Outcomes[0].Err, "550")
	assert.False(t, report.Success())
}

func TestPipelineFetchErrorStillExportsCollectedRows(t *testing.T) {
	dir := t.TempDir()
	stub := &stubScraper{results: map[models.Month]models.WalkResult{
		may2024: {
			Records: []models.RawRecord{record("acc-1", "2024/05/01 20:15:00", 13)},
			Stop:    models.StopFetchError,
			Err:     errors.New("page 2: timeout"),
		},
	}}
	p := NewPipeline(stub, NewNormalizer(models.ModePreserve, newTestLogger()), storage.LocalDir{Dir: dir}, newTestLogger())

	var warned []models.Month
	report := p.Run(context.Background(), []models.Month{may2024}, &models.Events{
		OnWarning: func(m models.Month, err error) { warned = append(warned, m) },
	})

	require.Len(t, report.Outcomes, 1)
	assert.Equal(t, models.MonthDelivered, report.Outcomes[0].Status)
	assert.Len(t, report.Outcomes[0].Warnings, 1)
	assert.Equal(t, []models.Month{may2024}, warned)
	assert.True(t, report.Success())
}

func TestPipelineCancelledBetweenMonths(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	stub := &stubScraper{results: map[models.Month]models.WalkResult{}}

	p := NewPipeline(stub, NewNormalizer(models.ModeStrict, newTestLogger()), storage.LocalDir{Dir: t.TempDir()}, newTestLogger())
	events := &models.Events{OnMonthDone: func(models.MonthOutcome) { cancel() }}

	report := p.Run(ctx, []models.Month{may2024, apr2024, mar2024}, events)

	assert.Equal(t, []models.Month{may2024}, stub.calls)
	require.Len(t, report.Outcomes, 3)
	assert.ErrorIs(t, report.Outcomes[2].Err, context.Canceled)
}

// pageFetcher serves generated report pages keyed by page number.
type pageFetcher struct {
	rows    map[int]int
	pages   []int
	onFetch func(page int)
}

func (f *pageFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	var page int
	for _, kv := range strings.Split(url[strings.Index(url, "?")+1:], "&") {
		if strings.HasPrefix(kv, "page=") {
			fmt.Sscanf(kv, "page=%d", &page)
		}
	}
	f.pages = append(f.pages, page)
	if f.onFetch != nil {
		f.onFetch(page)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var b strings.Builder
	b.WriteString(`<table class="table-striped"><tbody>`)
	for r := 0; r < f.rows[page]; r++ {
		b.WriteString("<tr>")
		fmt.Fprintf(&b, `<td class="delim">acc-%d-%d</td><td class="delim">room</td>`, page, r)
		b.WriteString(`<td class="delim">2024-05-01 20:15:00 (12m30s)</td>`)
		for c := 3; c < showroom.CellCount; c++ {
			b.WriteString(`<td class="delim">1,234</td>`)
		}
		b.WriteString("</tr>")
	}
	b.WriteString(`</tbody></table>`)
	return []byte(b.String()), nil
}

func TestPipelineEndToEnd(t *testing.T) {
	dir := t.TempDir()
	fetcher := &pageFetcher{rows: map[int]int{1: 2, 2: 1, 3: 0, 4: 3}}
	cfg := &config.Config{
		Showroom: config.ShowroomConfig{KPIURL: "https://example.test/live_kpi"},
		Scrape:   config.ScrapeConfig{Mode: "strict", MaxPages: 5, MaxRetries: 1},
	}
	scraper := showroom.New(cfg, fetcher, newTestLogger())

	p := NewPipeline(scraper, NewNormalizer(models.ModeStrict, newTestLogger()), storage.LocalDir{Dir: dir}, newTestLogger())
	report := p.Run(context.Background(), []models.Month{may2024}, nil)

	assert.Equal(t, []int{1, 2, 3}, fetcher.pages)
	require.True(t, report.Success())
	assert.Equal(t, 3, report.Outcomes[0].Exported)
	assert.Equal(t, models.StopNoRows, report.Outcomes[0].Stop)

	data, err := os.ReadFile(report.Outcomes[0].Path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[1], `acc-1-0,room,2024/05/01 20:15:00,13,,"1,234",1234,`))
}

func TestPipelineFinishesStartedMonthOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dir := t.TempDir()
	fetcher := &pageFetcher{rows: map[int]int{1: 2, 2: 1}}
	fetcher.onFetch = func(page int) {
		if page == 2 {
			cancel()
		}
	}
	cfg := &config.Config{
		Showroom: config.ShowroomConfig{KPIURL: "https://example.test/live_kpi"},
		Scrape:   config.ScrapeConfig{Mode: "strict", MaxPages: 5, MaxRetries: 1},
	}
	scraper := showroom.New(cfg, fetcher, newTestLogger())

	p := NewPipeline(scraper, NewNormalizer(models.ModeStrict, newTestLogger()), storage.LocalDir{Dir: dir}, newTestLogger())
	report := p.Run(ctx, []models.Month{may2024, apr2024}, nil)

	assert.Equal(t, []int{1, 2, 3}, fetcher.pages, "april must not be fetched")
	require.Len(t, report.Outcomes, 2)

	may := report.Outcomes[0]
	assert.Equal(t, models.MonthDelivered, may.Status)
	assert.Equal(t, models.StopNoRows, may.Stop)
	assert.Equal(t, 3, may.Exported)
	assert.Empty(t, may.Warnings)

	data, err := os.ReadFile(may.Path)
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(string(data)), "\n"), 4)

	assert.Equal(t, models.MonthFailed, report.Outcomes[1].Status)
	assert.ErrorIs(t, report.Outcomes[1].Err, context.Canceled)
	assert.False(t, report.Success())
}

func TestRunReportPrint(t *testing.T) {
	report := &RunReport{
		Mode:    models.ModeStrict,
		Started: time.Now(),
		Outcomes: []models.MonthOutcome{
			{Month: may2024, Status: models.MonthDelivered, Scraped: 3, Exported: 3, Path: "/kpi/2024-05_all_all.csv"},
			{Month: apr2024, Status: models.MonthSkipped, Err: fmt.Errorf("2024/04: %w scraped", ErrNoData)},
		},
		Insights: []*models.MonthInsight{{
			Month: may2024, Broadcasts: 3, Rooms: 1,
			TopByViews: []models.RoomTotal{{RoomID: "r1", RoomName: "Room One", Views: 10, Broadcasts: 3}},
		}},
	}
	report.Finished = report.Started.Add(time.Second)

	var buf bytes.Buffer
	report.Print(&buf)
	out := buf.String()

	assert.Contains(t, out, "/kpi/2024-05_all_all.csv")
	assert.Contains(t, out, "Room One")
	assert.Contains(t, out, "1 delivered, 1 skipped, 0 failed")
}
