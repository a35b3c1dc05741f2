package query

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kalambet/jobtrack/internal/job"
)

// Store is the job record store the engine reads from. Implemented by
// storage.Store.
type Store interface {
	// CountJobs returns the number of records matching f.
	CountJobs(ctx context.Context, f Filter) (int, error)
	// FindJobs returns at most limit records matching f, ordered by o, after
	// skipping the first skip of them.
	FindJobs(ctx context.Context, f Filter, o Ordering, skip, limit int) ([]job.Record, error)
	// CountJobsByStatus groups the records matching f by status.
	CountJobsByStatus(ctx context.Context, f Filter) ([]StatusCount, error)
	// CountJobsByMonth groups the records matching f by the UTC calendar
	// month of their creation time.
	CountJobsByMonth(ctx context.Context, f Filter) ([]MonthCount, error)
}

// StatusCount is one row of a group-by-status result.
type StatusCount struct {
	Status string
	Count  int
}

// MonthCount is one row of a group-by-month result. Month is 1-based.
type MonthCount struct {
	Year  int
	Month int
	Count int
}

// Engine answers list and statistics requests for a single owner at a time.
// It holds no per-request state and is safe for concurrent use.
type Engine struct {
	store    Store
	maxLimit int
	logger   *slog.Logger
}

// NewEngine creates an Engine over store. When maxLimit is positive, page
// sizes above it are clamped to it; zero leaves page sizes unbounded.
func NewEngine(store Store, maxLimit int) *Engine {
	if maxLimit < 0 {
		maxLimit = 0
	}
	return &Engine{
		store:    store,
		maxLimit: maxLimit,
		logger:   slog.Default(),
	}
}

// ListResult is one page of an owner's records plus pagination metadata.
type ListResult struct {
	Jobs        []job.Record `json:"jobs"`
	TotalJobs   int          `json:"totalJobs"`
	TotalPages  int          `json:"totalPages"`
	CurrentPage int          `json:"currentPage"`
	Limit       int          `json:"limit"`
}

// List resolves p into a query scoped to ownerID, counts the matching
// records and fetches the requested page of them.
func (e *Engine) List(ctx context.Context, ownerID string, p Params) (ListResult, error) {
	q := Build(ownerID, p)
	if e.maxLimit > 0 && q.Page.Limit > e.maxLimit {
		q.Page = newPage(q.Page.Number, e.maxLimit)
	}

	total, err := e.store.CountJobs(ctx, q.Filter)
	if err != nil {
		return ListResult{}, fmt.Errorf("counting jobs: %w", err)
	}

	jobs, err := e.store.FindJobs(ctx, q.Filter, q.Ordering, q.Page.Skip, q.Page.Limit)
	if err != nil {
		return ListResult{}, fmt.Errorf("finding jobs: %w", err)
	}
	if jobs == nil {
		jobs = []job.Record{}
	}

	e.logger.Debug("jobs listed",
		"owner_id", ownerID,
		"sort", q.Sort,
		"page", q.Page.Number,
		"limit", q.Page.Limit,
		"total", total,
		"returned", len(jobs),
	)

	return ListResult{
		Jobs:        jobs,
		TotalJobs:   total,
		TotalPages:  TotalPages(total, q.Page.Limit),
		CurrentPage: q.Page.Number,
		Limit:       q.Page.Limit,
	}, nil
}
