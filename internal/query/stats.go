package query

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kalambet/jobtrack/internal/job"
)

// MonthlyWindow is the maximum number of months in a monthly series.
const MonthlyWindow = 6

// StatusCounts holds a count for every known status, zero when absent.
type StatusCounts struct {
	Pending   int `json:"pending"`
	Interview int `json:"interview"`
	Declined  int `json:"declined"`
}

// Total returns the sum over all statuses.
func (c StatusCounts) Total() int {
	return c.Pending + c.Interview + c.Declined
}

// MonthBucket is one point of the monthly series.
type MonthBucket struct {
	Date  string `json:"date"` // e.g. "Jan 24"
	Count int    `json:"count"`
}

// Stats is the statistics view of one owner's records.
type Stats struct {
	Status  StatusCounts  `json:"stats"`
	Monthly []MonthBucket `json:"monthlyStats"`
}

// Stats computes the status breakdown and the monthly creation series for
// ownerID. The two groupings are issued concurrently.
func (e *Engine) Stats(ctx context.Context, ownerID string) (Stats, error) {
	f := Filter{OwnerID: ownerID}

	var (
		statusRows []StatusCount
		monthRows  []MonthCount
	)
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := e.store.CountJobsByStatus(gCtx, f)
		if err != nil {
			return fmt.Errorf("grouping jobs by status: %w", err)
		}
		statusRows = rows
		return nil
	})
	g.Go(func() error {
		rows, err := e.store.CountJobsByMonth(gCtx, f)
		if err != nil {
			return fmt.Errorf("grouping jobs by month: %w", err)
		}
		monthRows = rows
		return nil
	})
	if err := g.Wait(); err != nil {
		return Stats{}, err
	}

	return Stats{
		Status:  projectStatusCounts(statusRows),
		Monthly: monthlySeries(monthRows),
	}, nil
}

func projectStatusCounts(rows []StatusCount) StatusCounts {
	var c StatusCounts
	for _, r := range rows {
		st, ok := job.ParseStatus(r.Status)
		if !ok || r.Count <= 0 {
			continue
		}
		switch st {
		case job.StatusPending:
			c.Pending += r.Count
		case job.StatusInterview:
			c.Interview += r.Count
		case job.StatusDeclined:
			c.Declined += r.Count
		}
	}
	return c
}

// monthlySeries keeps the MonthlyWindow most recent non-empty months and
// returns them oldest first.
func monthlySeries(rows []MonthCount) []MonthBucket {
	recent := make([]MonthCount, 0, len(rows))
	for _, r := range rows {
		if r.Count > 0 {
			recent = append(recent, r)
		}
	}
	slices.SortFunc(recent, func(a, b MonthCount) int {
		if c := cmp.Compare(b.Year, a.Year); c != 0 {
			return c
		}
		return cmp.Compare(b.Month, a.Month)
	})
	if len(recent) > MonthlyWindow {
		recent = recent[:MonthlyWindow]
	}
	slices.Reverse(recent)

	series := make([]MonthBucket, len(recent))
	for i, r := range recent {
		series[i] = MonthBucket{Date: MonthLabel(r.Year, r.Month), Count: r.Count}
	}
	return series
}

// MonthLabel formats a year and 1-based month as "Jan 24".
func MonthLabel(year, month int) string {
	return time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC).Format("Jan 06")
}
