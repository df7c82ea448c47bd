package showroom

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"showroom-kpi/config"
	"showroom-kpi/models"
	"showroom-kpi/utils"
)

// DefaultMaxPages is how many report pages are read per month at most.
const DefaultMaxPages = 5

// Scraper walks the paginated live KPI report one month at a time.
type Scraper struct {
	baseURL  string
	maxPages int
	mode     models.Mode
	fetcher  Fetcher
	logger   *utils.Logger
	pacer    *utils.Pacer
	retry    *utils.RetryConfig
}

// New creates a Scraper from configuration. The mode must already be
// validated.
func New(cfg *config.Config, fetcher Fetcher, logger *utils.Logger) *Scraper {
	mode, _ := models.ParseMode(cfg.Scrape.Mode)
	maxPages := cfg.Scrape.MaxPages
	if maxPages < 1 {
		maxPages = DefaultMaxPages
	}
	return &Scraper{
		baseURL:  cfg.Showroom.KPIURL,
		maxPages: maxPages,
		mode:     mode,
		fetcher:  fetcher,
		logger:   logger,
		pacer:    utils.NewPacer(cfg.RateLimit()),
		retry: &utils.RetryConfig{
			MaxAttempts: cfg.Scrape.MaxRetries,
			BaseDelay:   2 * time.Second,
			Logger:      logger,
		},
	}
}

// PageURL builds the report URL for one page of a month.
func (s *Scraper) PageURL(month models.Month, page int) string {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("room_id", "")
	q.Set("from_date", month.Start())
	q.Set("to_date", month.End())
	return s.baseURL + "?" + q.Encode()
}

// ScrapeMonth fetches pages 1..maxPages for the month, stopping at the
// first page that fails, has no results table, or has no data rows.
// Records come back in page then row order.
func (s *Scraper) ScrapeMonth(ctx context.Context, month models.Month, events *models.Events) models.WalkResult {
	result := models.WalkResult{Month: month, Stop: models.StopPageBound}
	s.logger.Info("[showroom] %s: walking up to %d pages (%s - %s)",
		month.Label(), s.maxPages, month.Start(), month.End())

walk:
	for page := 1; page <= s.maxPages; page++ {
		if err := s.pacer.Wait(ctx); err != nil {
			result.Stop, result.Err = models.StopCancelled, err
			break
		}

		pageURL := s.PageURL(month, page)
		result.Pages = page
		s.logger.Debug("[showroom] %s: fetching page %d: %s", month.Label(), page, pageURL)

		started := time.Now()
		var body []byte
		err := s.retry.Do(ctx, "fetch page "+strconv.Itoa(page), func(ctx context.Context) error {
			var ferr error
			body, ferr = s.fetcher.Fetch(ctx, pageURL)
			return ferr
		})
		if err != nil {
			result.Stop = models.StopFetchError
			if errors.Is(err, context.Canceled) {
				result.Stop = models.StopCancelled
			}
			result.Err = fmt.Errorf("page %d: %w", page, err)
			s.logger.Warn("[showroom] %s: page %d request failed: %v", month.Label(), page, err)
			break
		}

		parsed, err := ParsePage(body, s.mode)
		if err != nil {
			result.Stop = models.StopFetchError
			result.Err = fmt.Errorf("page %d: %w", page, err)
			s.logger.Warn("[showroom] %s: page %d unreadable: %v", month.Label(), page, err)
			break
		}

		events.Page(models.PageEvent{
			Month:   month,
			Page:    page,
			URL:     pageURL,
			Rows:    len(parsed.Records),
			Skipped: parsed.Skipped,
			Elapsed: time.Since(started),
		})

		switch {
		case !parsed.HasTable:
			s.logger.Info("[showroom] %s: page %d has no results table, stopping", month.Label(), page)
			result.Stop = models.StopNoTable
			break walk
		case len(parsed.Records) == 0:
			s.logger.Info("[showroom] %s: page %d has no data rows, stopping", month.Label(), page)
			result.Stop = models.StopNoRows
			break walk
		}

		if parsed.Skipped > 0 {
			s.logger.Debug("[showroom] %s: page %d skipped %d non-data rows", month.Label(), page, parsed.Skipped)
		}
		result.Records = append(result.Records, parsed.Records...)
		s.logger.Info("[showroom] %s: page %d done, %d rows (%d so far)",
			month.Label(), page, len(parsed.Records), len(result.Records))
	}

	events.WalkStop(result)
	return result
}
