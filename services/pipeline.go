package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"showroom-kpi/models"
	"showroom-kpi/storage"
	"showroom-kpi/utils"
)

// MonthScraper walks the report pages of one month.
type MonthScraper interface {
	ScrapeMonth(ctx context.Context, month models.Month, events *models.Events) models.WalkResult
}

// ErrNoData marks a month that produced nothing to export.
var ErrNoData = errors.New("no data")

// Pipeline runs scrape → normalize → export → deliver for each month in
// turn. A failure in one month never stops the others.
type Pipeline struct {
	scraper    MonthScraper
	normalizer *Normalizer
	encoder    storage.Encoder
	deliverer  storage.Deliverer
	copies     []storage.Deliverer
	stores     []storage.TableStore
	insights   *InsightService
	logger     *utils.Logger
}

// NewPipeline wires the mandatory stages. Artifacts are CSV encoded.
func NewPipeline(scraper MonthScraper, normalizer *Normalizer, deliverer storage.Deliverer, logger *utils.Logger) *Pipeline {
	return &Pipeline{
		scraper:    scraper,
		normalizer: normalizer,
		encoder:    storage.CSVEncoder{},
		deliverer:  deliverer,
		insights:   NewInsightService(logger),
		logger:     logger,
	}
}

// AddCopy registers an extra destination for every artifact. Failures
// there are reported as warnings.
func (p *Pipeline) AddCopy(d storage.Deliverer) { p.copies = append(p.copies, d) }

// AddStore registers a secondary table backend. Failures there are
// reported as warnings.
func (p *Pipeline) AddStore(s storage.TableStore) { p.stores = append(p.stores, s) }

// Run processes months in the given order. Cancellation is honored between
// months only; months not started are reported as failed.
func (p *Pipeline) Run(ctx context.Context, months []models.Month, events *models.Events) *RunReport {
	report := &RunReport{Started: time.Now(), Mode: p.normalizer.Mode()}

	for i, month := range months {
		if err := ctx.Err(); err != nil {
			for _, m := range months[i:] {
				o := models.MonthOutcome{Month: m, Status: models.MonthFailed, Err: err}
				events.MonthDone(o)
				report.Outcomes = append(report.Outcomes, o)
			}
			break
		}

		outcome, insight := p.runMonth(ctx, month, events)
		report.Outcomes = append(report.Outcomes, outcome)
		if insight != nil {
			report.Insights = append(report.Insights, insight)
		}
	}

	report.Finished = time.Now()
	return report
}

func (p *Pipeline) runMonth(ctx context.Context, month models.Month, events *models.Events) (models.MonthOutcome, *models.MonthInsight) {
	// A started month always runs to completion so that no artifact is cut
	// short; Run checks for cancellation before the next month.
	ctx = context.WithoutCancel(ctx)

	outcome := models.MonthOutcome{Month: month}
	warn := func(err error) {
		outcome.Warnings = append(outcome.Warnings, err.Error())
		events.Warning(month, err)
	}
	done := func(status models.MonthStatus, err error) (models.MonthOutcome, *models.MonthInsight) {
		outcome.Status, outcome.Err = status, err
		events.MonthDone(outcome)
		return outcome, nil
	}

	events.MonthStart(month)
	p.logger.Info("[pipeline] %s: processing", month.Label())

	walk := p.scraper.ScrapeMonth(ctx, month, events)
	outcome.Stop = walk.Stop
	outcome.Scraped = len(walk.Records)
	if walk.Err != nil {
		warn(fmt.Errorf("%s: %w", month.Label(), walk.Err))
	}

	if len(walk.Records) == 0 {
		p.logger.Warn("[pipeline] %s: no records scraped, skipping", month.Label())
		return done(models.MonthSkipped, fmt.Errorf("%s: %w scraped", month.Label(), ErrNoData))
	}

	norm := p.normalizer.Normalize(month, walk.Records)
	outcome.Duplicates = norm.Duplicates
	outcome.Exported = norm.Table.Len()
	if norm.Table.Empty() {
		p.logger.Warn("[pipeline] %s: nothing left after normalization, skipping", month.Label())
		return done(models.MonthSkipped, fmt.Errorf("%s: %w after normalization", month.Label(), ErrNoData))
	}

	data, err := p.encoder.Encode(norm.Table)
	if err != nil {
		p.logger.Error("[pipeline] %s: export failed: %v", month.Label(), err)
		return done(models.MonthFailed, err)
	}

	path, err := p.deliverer.Deliver(ctx, month.ArtifactName(), data)
	if err != nil {
		p.logger.Error("[pipeline] %s: delivery failed: %v", month.Label(), err)
		return done(models.MonthFailed, err)
	}
	outcome.Path = path
	p.logger.Info("[pipeline] %s: delivered %d records to %s", month.Label(), outcome.Exported, path)

	for _, c := range p.copies {
		if copyPath, err := c.Deliver(ctx, month.ArtifactName(), data); err != nil {
			warn(err)
		} else {
			p.logger.Debug("[pipeline] %s: copy written to %s", month.Label(), copyPath)
		}
	}
	for _, s := range p.stores {
		if err := s.Save(ctx, norm.Table); err != nil {
			warn(err)
		}
	}

	insight := p.insights.Generate(norm.Table)
	outcome.Status = models.MonthDelivered
	events.MonthDone(outcome)
	return outcome, insight
}
