package models

import "time"

// StopReason records why a month's page walk ended.
type StopReason int

const (
	StopPageBound StopReason = iota
	StopNoTable
	StopNoRows
	StopFetchError
	StopCancelled
)

func (r StopReason) String() string {
	switch r {
	case StopPageBound:
		return "page bound reached"
	case StopNoTable:
		return "no results table"
	case StopNoRows:
		return "no data rows"
	case StopFetchError:
		return "fetch error"
	case StopCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// WalkResult is the outcome of one month's page walk.
type WalkResult struct {
	Month   Month
	Records []RawRecord
	Pages   int // pages requested, including the one that stopped the walk
	Stop    StopReason
	Err     error // set when Stop is StopFetchError or StopCancelled
}

// PageEvent reports one fetched page.
type PageEvent struct {
	Month   Month
	Page    int
	URL     string
	Rows    int // valid rows on this page
	Skipped int // table rows rejected by the extractor
	Elapsed time.Duration
}

// MonthStatus is the final state of one month in a run.
type MonthStatus int

const (
	MonthDelivered MonthStatus = iota
	MonthSkipped
	MonthFailed
)

func (s MonthStatus) String() string {
	switch s {
	case MonthDelivered:
		return "delivered"
	case MonthSkipped:
		return "skipped"
	default:
		return "failed"
	}
}

// MonthOutcome summarizes one month of a run.
type MonthOutcome struct {
	Month      Month
	Status     MonthStatus
	Scraped    int
	Duplicates int
	Exported   int
	Stop       StopReason
	Path       string
	Warnings   []string
	Err        error
}

// Events lets callers observe pipeline progress. Any hook may be nil.
type Events struct {
	OnMonthStart func(m Month)
	OnPage       func(e PageEvent)
	OnWalkStop   func(r WalkResult)
	OnWarning    func(m Month, err error)
	OnMonthDone  func(o MonthOutcome)
}

func (e *Events) MonthStart(m Month) {
	if e != nil && e.OnMonthStart != nil {
		e.OnMonthStart(m)
	}
}

func (e *Events) Page(ev PageEvent) {
	if e != nil && e.OnPage != nil {
		e.OnPage(ev)
	}
}

func (e *Events) WalkStop(r WalkResult) {
	if e != nil && e.OnWalkStop != nil {
		e.OnWalkStop(r)
	}
}

func (e *Events) Warning(m Month, err error) {
	if e != nil && e.OnWarning != nil {
		e.OnWarning(m, err)
	}
}

func (e *Events) MonthDone(o MonthOutcome) {
	if e != nil && e.OnMonthDone != nil {
		e.OnMonthDone(o)
	}
}
