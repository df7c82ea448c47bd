package services

import (
	"fmt"
	"io"
	"strings"
	"time"

	"showroom-kpi/models"
)

// RunReport is the outcome of a multi-month run.
type RunReport struct {
	Mode     models.Mode
	Started  time.Time
	Finished time.Time
	Outcomes []models.MonthOutcome
	Insights []*models.MonthInsight
}

// Success is true only when every selected month delivered a non-empty
// artifact.
func (r *RunReport) Success() bool {
	if len(r.Outcomes) == 0 {
		return false
	}
	for _, o := range r.Outcomes {
		if o.Status != models.MonthDelivered {
			return false
		}
	}
	return true
}

// Count returns how many months ended with the given status.
func (r *RunReport) Count(status models.MonthStatus) int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Status == status {
			n++
		}
	}
	return n
}

// Print writes a human-readable summary of the run.
func (r *RunReport) Print(w io.Writer) {
	sep := strings.Repeat("═", 60)
	thin := strings.Repeat("─", 60)

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n", sep)
	fmt.Fprintf(w, "\033[1;35m  📊 LIVE KPI EXPORT SUMMARY (%s mode)\033[0m\n", r.Mode)
	fmt.Fprintf(w, "\033[1;35m%s\033[0m\n\n", sep)

	fmt.Fprintf(w, "\033[1;33m  Months\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	for _, o := range r.Outcomes {
		color := "32"
		switch o.Status {
		case models.MonthSkipped:
			color = "33"
		case models.MonthFailed:
			color = "31"
		}
		fmt.Fprintf(w, "  %s  \033[1;%sm%-9s\033[0m scraped %4d  dup %3d  rows %4d",
			o.Month.Label(), color, o.Status, o.Scraped, o.Duplicates, o.Exported)
		if o.Path != "" {
			fmt.Fprintf(w, "  → %s", o.Path)
		}
		fmt.Fprintln(w)
		if o.Err != nil {
			fmt.Fprintf(w, "           %v\n", o.Err)
		}
		for _, warning := range o.Warnings {
			fmt.Fprintf(w, "           ⚠ %s\n", warning)
		}
	}
	fmt.Fprintln(w)

	for _, in := range r.Insights {
		fmt.Fprintf(w, "\033[1;33m  %s: %d broadcasts, %d rooms, %d min (avg %.1f)\033[0m\n",
			in.Month.Label(), in.Broadcasts, in.Rooms, in.TotalMinutes, in.AvgMinutes)
		fmt.Fprintf(w, "  %s\n", thin)
		for i, rt := range in.TopByViews {
			name := rt.RoomName
			if name == "" {
				name = rt.RoomID
			}
			fmt.Fprintf(w, "  \033[1m%d.\033[0m %-32s %10d views  %3d broadcasts\n",
				i+1, truncate(name, 30), rt.Views, rt.Broadcasts)
		}
		fmt.Fprintln(w)
	}

	if r.Success() {
		fmt.Fprintf(w, "  \033[1;32m🎉 All %d months exported\033[0m", len(r.Outcomes))
	} else {
		fmt.Fprintf(w, "  \033[1;33mFinished with problems: %d delivered, %d skipped, %d failed\033[0m",
			r.Count(models.MonthDelivered), r.Count(models.MonthSkipped), r.Count(models.MonthFailed))
	}
	fmt.Fprintf(w, " in %s\n", r.Finished.Sub(r.Started).Round(time.Millisecond))
	fmt.Fprintf(w, "\033[1;35m%s\033[0m\n\n", sep)
}
