package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"showroom-kpi/config"
	"showroom-kpi/models"
	"showroom-kpi/scraper/showroom"
	"showroom-kpi/services"
	"showroom-kpi/storage"
	"showroom-kpi/utils"
)

type runOptions struct {
	months   []string
	all      bool
	mode     string
	delivery string
	schedule string
}

func newRunCmd() *cobra.Command {
	opts := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Scrape, normalize and deliver the selected months.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd.Context(), opts)
		},
	}
	f := cmd.Flags()
	f.StringSliceVarP(&opts.months, "months", "m", nil, "months to export as YYYY-MM (default: the newest month)")
	f.BoolVar(&opts.all, "all", false, "export every available month")
	f.StringVar(&opts.mode, "mode", "", "cleanup mode: strict or preserve (overrides SCRAPE_MODE)")
	f.StringVar(&opts.delivery, "delivery", "", "ftp or local (overrides DELIVERY)")
	f.StringVar(&opts.schedule, "schedule", "", "cron expression with seconds; re-exports the current and previous month on each tick")
	return cmd
}

func newMonthsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "months",
		Short: "List the months that can be exported, newest first.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			first, err := models.ParseMonth(cfg.Scrape.FirstMonth)
			if err != nil {
				return fmt.Errorf("FIRST_MONTH: %w", err)
			}
			for _, m := range models.TargetMonths(first, time.Now()) {
				fmt.Fprintln(cmd.OutOrStdout(), m.Label())
			}
			return nil
		},
	}
}

func runExport(ctx context.Context, opts *runOptions) error {
	logger := utils.NewLogger()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if opts.mode != "" {
		cfg.Scrape.Mode = opts.mode
	}
	if opts.delivery != "" {
		cfg.Output.Delivery = opts.delivery
	}
	if opts.schedule != "" {
		cfg.Schedule = opts.schedule
	}
	logger.SetLevel(utils.ParseLevel(cfg.LogLevel))

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration: %w", err)
	}
	mode, _ := models.ParseMode(cfg.Scrape.Mode)

	first, err := models.ParseMonth(cfg.Scrape.FirstMonth)
	if err != nil {
		return fmt.Errorf("FIRST_MONTH: %w", err)
	}
	months, err := selectMonths(opts, first, time.Now())
	if err != nil {
		return err
	}

	cookies := showroom.ParseCookieString(cfg.Showroom.AuthCookieString)
	if len(cookies) == 0 {
		return fmt.Errorf("configuration: SHOWROOM_COOKIE holds no name=value pairs")
	}

	var fetcher showroom.Fetcher
	switch cfg.Scrape.Fetcher {
	case "browser":
		bf := showroom.NewBrowserFetcher(cookies, cfg.RequestTimeout(), cfg.Scrape.ChromeBin)
		defer bf.Close()
		fetcher = bf
	default:
		fetcher = showroom.NewHTTPFetcher(cookies, cfg.RequestTimeout())
	}

	pipeline, closeStores, err := buildPipeline(cfg, mode, fetcher, logger)
	if err != nil {
		return err
	}
	defer closeStores()

	logger.Info("=== Live KPI export starting ===")
	logger.Info("Config: mode %s | pages/month %d | timeout %s | delivery %s | fetcher %s",
		mode, cfg.Scrape.MaxPages, cfg.RequestTimeout(), cfg.Output.Delivery, cfg.Scrape.Fetcher)

	events := logEvents(logger)

	if cfg.Schedule != "" {
		return runScheduled(ctx, cfg.Schedule, pipeline, events, logger)
	}

	logger.Info("Selected months: %s", joinLabels(months))
	report := pipeline.Run(ctx, months, events)
	report.Print(os.Stdout)
	if !report.Success() {
		return errPartial
	}
	return nil
}

func buildPipeline(cfg *config.Config, mode models.Mode, fetcher showroom.Fetcher, logger *utils.Logger) (*services.Pipeline, func(), error) {
	var deliverer storage.Deliverer
	var copies []storage.Deliverer
	switch cfg.Output.Delivery {
	case "local":
		deliverer = storage.LocalDir{Dir: cfg.Output.Dir}
	default:
		deliverer = &storage.FTPDeliverer{
			Host:     cfg.FTP.Host,
			User:     cfg.FTP.User,
			Password: cfg.FTP.Password,
			BasePath: cfg.FTP.TargetBasePath,
			Timeout:  cfg.FTPTimeout(),
		}
		if cfg.Output.Dir != "" {
			copies = append(copies, storage.LocalDir{Dir: cfg.Output.Dir})
		}
	}

	var stores []storage.TableStore
	closeAll := func() {
		for _, s := range stores {
			if err := s.Close(); err != nil {
				logger.Warn("Closing store: %v", err)
			}
		}
	}
	if cfg.Output.WriteXLSX {
		stores = append(stores, &storage.XLSXWriter{Dir: cfg.Output.Dir})
	}
	if cfg.Postgres.Enabled {
		pg, err := storage.NewPostgresStore(cfg.DSN())
		if err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
		}
		stores = append(stores, pg)
	}

	scraper := showroom.New(cfg, fetcher, logger)
	p := services.NewPipeline(scraper, services.NewNormalizer(mode, logger), deliverer, logger)
	for _, c := range copies {
		p.AddCopy(c)
	}
	for _, s := range stores {
		p.AddStore(s)
	}
	return p, closeAll, nil
}

// selectMonths resolves the --months/--all flags against the catalogue of
// available months. Without flags the newest month is chosen.
func selectMonths(opts *runOptions, first models.Month, now time.Time) ([]models.Month, error) {
	catalogue := models.TargetMonths(first, now)
	if len(catalogue) == 0 {
		return nil, fmt.Errorf("no months available since %s", first.Label())
	}
	if opts.all {
		return catalogue, nil
	}
	if len(opts.months) == 0 {
		return catalogue[:1], nil
	}

	available := make(map[models.Month]bool, len(catalogue))
	for _, m := range catalogue {
		available[m] = true
	}
	wanted := utils.NewKeySet[models.Month]()
	for _, s := range opts.months {
		m, err := models.ParseMonth(s)
		if err != nil {
			return nil, err
		}
		if !available[m] {
			return nil, fmt.Errorf("month %s is outside %s - %s", m.Label(), first.Label(), catalogue[0].Label())
		}
		wanted.Add(m)
	}

	// Keep the catalogue's newest-first order.
	var months []models.Month
	for _, m := range catalogue {
		if wanted.Contains(m) {
			months = append(months, m)
		}
	}
	return months, nil
}

func runScheduled(ctx context.Context, expr string, p *services.Pipeline, events *models.Events, logger *utils.Logger) error {
	c := cron.New(cron.WithSeconds(), cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))
	_, err := c.AddFunc(expr, func() {
		current := models.MonthOf(time.Now())
		months := []models.Month{current, current.Prev()}
		logger.Info("Scheduled export: %s", joinLabels(months))
		report := p.Run(ctx, months, events)
		report.Print(os.Stdout)
	})
	if err != nil {
		return fmt.Errorf("invalid schedule %q: %w", expr, err)
	}

	logger.Info("Scheduler started with schedule %q", expr)
	c.Start()
	<-ctx.Done()
	logger.Info("Shutting down scheduler...")
	<-c.Stop().Done()
	return nil
}

// logEvents reports pipeline progress through the logger.
func logEvents(logger *utils.Logger) *models.Events {
	return &models.Events{
		OnMonthStart: func(m models.Month) {
			logger.Info("📅 %s (%s - %s)", m.Label(), m.Start(), m.End())
		},
		OnPage: func(e models.PageEvent) {
			logger.Debug("%s page %d: %d rows, %d skipped in %s",
				e.Month.Label(), e.Page, e.Rows, e.Skipped, e.Elapsed.Round(time.Millisecond))
		},
		OnWalkStop: func(r models.WalkResult) {
			logger.Info("%s: walk ended after %d pages (%s), %d records", r.Month.Label(), r.Pages, r.Stop, len(r.Records))
		},
		OnWarning: func(m models.Month, err error) {
			logger.Warn("⚠️ %v", err)
		},
		OnMonthDone: func(o models.MonthOutcome) {
			switch o.Status {
			case models.MonthDelivered:
				logger.Info("✅ %s: %d records → %s", o.Month.Label(), o.Exported, o.Path)
			case models.MonthSkipped:
				logger.Warn("⚠️ %s skipped: %v", o.Month.Label(), o.Err)
			default:
				logger.Error("❌ %s failed: %v", o.Month.Label(), o.Err)
			}
		},
	}
}

func joinLabels(months []models.Month) string {
	labels := make([]string, len(months))
	for i, m := range months {
		labels[i] = m.Label()
	}
	return strings.Join(labels, ", ")
}
