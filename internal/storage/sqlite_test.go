package storage

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/kalambet/jobtrack/internal/job"
	"github.com/kalambet/jobtrack/internal/query"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func mustCreate(t *testing.T, s *Store, r job.Record) job.Record {
	t.Helper()
	created, err := s.CreateJob(context.Background(), r)
	if err != nil {
		t.Fatalf("CreateJob: %v", err)
	}
	return created
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 12, 0, 0, 0, time.UTC)
}

// TestMigrationsIdempotent runs Open twice on the same database and verifies
// the schema_version count stays correct (migration not re-applied).
func TestMigrationsIdempotent(t *testing.T) {
	dir := t.TempDir()

	s1, err := Open(dir)
	if err != nil {
		t.Fatalf("first Open failed: %v", err)
	}
	v1, err := s1.AppliedMigrations()
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}
	s1.Close()

	s2, err := Open(dir)
	if err != nil {
		t.Fatalf("second Open failed: %v", err)
	}
	defer s2.Close()

	v2, err := s2.AppliedMigrations()
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}
	if len(v1) != len(v2) {
		t.Errorf("migration count changed: %d -> %d", len(v1), len(v2))
	}
}

// TestMigrationsOrdered verifies migrations are applied in ascending numeric order.
func TestMigrationsOrdered(t *testing.T) {
	s := openTestStore(t)

	versions, err := s.AppliedMigrations()
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}
	if len(versions) != 2 {
		t.Fatalf("expected 2 applied migrations, got %v", versions)
	}
	for i := 1; i < len(versions); i++ {
		if versions[i] <= versions[i-1] {
			t.Errorf("migrations not in ascending order: %v", versions)
			break
		}
	}
}

func TestIndexesExist(t *testing.T) {
	s := openTestStore(t)

	for _, idx := range []string{"idx_jobs_owner_created", "idx_jobs_owner_status", "idx_jobs_owner_position"} {
		var count int
		err := s.DB().QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='index' AND name=?", idx).Scan(&count)
		if err != nil {
			t.Fatalf("querying index %s: %v", idx, err)
		}
		if count != 1 {
			t.Errorf("index %s not found", idx)
		}
	}
}

func TestCreateAndGetJob(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	created := mustCreate(t, s, job.Record{
		OwnerID:   "owner-1",
		Company:   "Acme Corp",
		Position:  "Engineer",
		Location:  "Berlin",
		Status:    job.StatusInterview,
		Type:      job.TypeRemote,
		CreatedAt: date(2024, time.March, 4),
	})
	if created.ID == "" {
		t.Fatal("expected generated id")
	}

	got, err := s.GetJob(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if got.Company != "Acme Corp" || got.Position != "Engineer" || got.Location != "Berlin" {
		t.Errorf("unexpected fields: %+v", got)
	}
	if got.Status != job.StatusInterview || got.Type != job.TypeRemote {
		t.Errorf("status/type = %q/%q", got.Status, got.Type)
	}
	if !got.CreatedAt.Equal(date(2024, time.March, 4)) {
		t.Errorf("CreatedAt = %v", got.CreatedAt)
	}
	if !got.UpdatedAt.Equal(got.CreatedAt) {
		t.Errorf("UpdatedAt = %v, want CreatedAt", got.UpdatedAt)
	}
}

func TestCreateJob_Defaults(t *testing.T) {
	s := openTestStore(t)

	created := mustCreate(t, s, job.Record{OwnerID: "o", Company: "c", Position: "p"})
	if created.Status != job.StatusPending {
		t.Errorf("Status = %q, want pending", created.Status)
	}
	if created.Type != job.TypeFullTime {
		t.Errorf("Type = %q, want full-time", created.Type)
	}
	if created.CreatedAt.IsZero() {
		t.Error("CreatedAt not set")
	}
}

func TestCreateJob_MissingOwner(t *testing.T) {
	s := openTestStore(t)

	_, err := s.CreateJob(context.Background(), job.Record{Company: "c", Position: "p"})
	if !errors.Is(err, ErrMissingOwner) {
		t.Errorf("expected ErrMissingOwner, got %v", err)
	}
}

func TestGetJobNotFound(t *testing.T) {
	s := openTestStore(t)

	_, err := s.GetJob(context.Background(), "nonexistent")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateJob(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	created := mustCreate(t, s, job.Record{OwnerID: "o", Company: "Acme", Position: "Dev", CreatedAt: date(2024, time.January, 1)})

	created.Status = job.StatusDeclined
	created.Company = "Acme GmbH"
	created.OwnerID = "somebody-else"
	updated, err := s.UpdateJob(ctx, created)
	if err != nil {
		t.Fatalf("UpdateJob: %v", err)
	}
	if updated.Status != job.StatusDeclined || updated.Company != "Acme GmbH" {
		t.Errorf("update not applied: %+v", updated)
	}
	if updated.OwnerID != "o" {
		t.Errorf("OwnerID changed to %q", updated.OwnerID)
	}
	if !updated.CreatedAt.Equal(date(2024, time.January, 1)) {
		t.Errorf("CreatedAt changed to %v", updated.CreatedAt)
	}
	if !updated.UpdatedAt.After(updated.CreatedAt) {
		t.Errorf("UpdatedAt %v not after CreatedAt", updated.UpdatedAt)
	}

	_, err = s.UpdateJob(ctx, job.Record{ID: "missing"})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteJob(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	created := mustCreate(t, s, job.Record{OwnerID: "o", Company: "c", Position: "p"})
	if err := s.DeleteJob(ctx, created.ID); err != nil {
		t.Fatalf("DeleteJob: %v", err)
	}
	if _, err := s.GetJob(ctx, created.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	if err := s.DeleteJob(ctx, created.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete: expected ErrNotFound, got %v", err)
	}
}

func TestAppStats(t *testing.T) {
	s := openTestStore(t)

	mustCreate(t, s, job.Record{OwnerID: "a", Company: "c", Position: "p"})
	mustCreate(t, s, job.Record{OwnerID: "a", Company: "c", Position: "p"})
	mustCreate(t, s, job.Record{OwnerID: "b", Company: "c", Position: "p"})

	st, err := s.AppStats(context.Background())
	if err != nil {
		t.Fatalf("AppStats: %v", err)
	}
	if st != (AppStats{TotalOwners: 2, TotalJobs: 3}) {
		t.Errorf("AppStats = %+v", st)
	}
}

func TestCountAndFind_OwnerIsolation(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	mustCreate(t, s, job.Record{OwnerID: "a", Company: "Acme", Position: "Dev"})
	mustCreate(t, s, job.Record{OwnerID: "b", Company: "Acme", Position: "Dev"})

	f := query.Build("a", query.Params{}).Filter
	n, err := s.CountJobs(ctx, f)
	if err != nil {
		t.Fatalf("CountJobs: %v", err)
	}
	if n != 1 {
		t.Errorf("CountJobs = %d, want 1", n)
	}

	jobs, err := s.FindJobs(ctx, f, query.Ordering{Field: query.FieldCreatedAt, Desc: true}, 0, 10)
	if err != nil {
		t.Fatalf("FindJobs: %v", err)
	}
	for _, j := range jobs {
		if j.OwnerID != "a" {
			t.Errorf("leaked record of owner %q", j.OwnerID)
		}
	}

	n, err = s.CountJobs(ctx, query.Build("nobody", query.Params{}).Filter)
	if err != nil {
		t.Fatalf("CountJobs: %v", err)
	}
	if n != 0 {
		t.Errorf("CountJobs for empty owner = %d, want 0", n)
	}
}

func TestCountJobs_SearchCaseInsensitive(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	mustCreate(t, s, job.Record{OwnerID: "o", Company: "Acme Corp", Position: "Engineer"})
	mustCreate(t, s, job.Record{OwnerID: "o", Company: "Other", Position: "Designer"})
	mustCreate(t, s, job.Record{OwnerID: "o", Company: "Globex", Position: "ACME liaison"})

	for _, term := range []string{"acme", "ACME", "Acme"} {
		n, err := s.CountJobs(ctx, query.Build("o", query.Params{Search: term}).Filter)
		if err != nil {
			t.Fatalf("CountJobs: %v", err)
		}
		if n != 2 {
			t.Errorf("search %q: count = %d, want 2", term, n)
		}
	}

	mustCreate(t, s, job.Record{OwnerID: "o", Company: "Škoda Auto", Position: "Tester"})
	mustCreate(t, s, job.Record{OwnerID: "o", Company: "Ärzte GmbH", Position: "Arzt"})
	mustCreate(t, s, job.Record{OwnerID: "o", Company: "Nordic", Position: "ÉQUIPE lead"})

	unicodeTerms := []struct {
		term string
		want int
	}{
		{"Škoda", 1},
		{"škoda", 1},
		{"ŠKODA AUTO", 1},
		{"Ärzte", 1},
		{"ärzte gmbh", 1},
		{"équipe", 1},
		{"zte", 1},
	}
	for _, tt := range unicodeTerms {
		n, err := s.CountJobs(ctx, query.Build("o", query.Params{Search: tt.term}).Filter)
		if err != nil {
			t.Fatalf("CountJobs: %v", err)
		}
		if n != tt.want {
			t.Errorf("search %q: count = %d, want %d", tt.term, n, tt.want)
		}
	}

	// LIKE wildcards are matched literally.
	n, err := s.CountJobs(ctx, query.Build("o", query.Params{Search: "%"}).Filter)
	if err != nil {
		t.Fatalf("CountJobs: %v", err)
	}
	if n != 0 {
		t.Errorf("search %%: count = %d, want 0", n)
	}
}

// TestSearch_StoreAgreesWithFilterMatch checks that the SQL predicate and
// Filter.Match select the same records.
func TestSearch_StoreAgreesWithFilterMatch(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	records := []job.Record{
		{OwnerID: "o", Company: "Acme Corp", Position: "Engineer"},
		{OwnerID: "o", Company: "Škoda Auto", Position: "Tester"},
		{OwnerID: "o", Company: "Ärzte GmbH", Position: "Arzt"},
		{OwnerID: "o", Company: "Globex", Position: "ÉQUIPE lead", Status: job.StatusInterview},
		{OwnerID: "o", Company: "İstanbul Tech", Position: "SRE"},
		{OwnerID: "other", Company: "Škoda Auto", Position: "Tester"},
	}
	var stored []job.Record
	for _, r := range records {
		stored = append(stored, mustCreate(t, s, r))
	}

	terms := []string{"acme", "ACME", "škoda", "ŠKODA", "ärzte", "ÄRZTE", "équipe", "Équipe", "a", "ist", "İst", "zzz", "%"}
	for _, term := range terms {
		f := query.Build("o", query.Params{Search: term}).Filter

		want := map[string]bool{}
		for _, r := range stored {
			if f.Match(r) {
				want[r.ID] = true
			}
		}

		got, err := s.FindJobs(ctx, f, query.Ordering{Field: query.FieldCreatedAt}, 0, 100)
		if err != nil {
			t.Fatalf("FindJobs(%q): %v", term, err)
		}
		n, err := s.CountJobs(ctx, f)
		if err != nil {
			t.Fatalf("CountJobs(%q): %v", term, err)
		}

		if len(got) != len(want) || n != len(want) {
			t.Errorf("search %q: store found %d (count %d), Match selects %d", term, len(got), n, len(want))
			continue
		}
		for _, r := range got {
			if !want[r.ID] {
				t.Errorf("search %q: store returned %q which Match rejects", term, r.Company)
			}
		}
	}
}

func TestCountJobs_StatusAndType(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	mustCreate(t, s, job.Record{OwnerID: "o", Company: "a", Position: "p", Status: job.StatusInterview, Type: job.TypeRemote})
	mustCreate(t, s, job.Record{OwnerID: "o", Company: "b", Position: "p", Status: job.StatusInterview, Type: job.TypeFullTime})
	mustCreate(t, s, job.Record{OwnerID: "o", Company: "c", Position: "p", Status: job.StatusPending, Type: job.TypeRemote})

	tests := []struct {
		params query.Params
		want   int
	}{
		{query.Params{Status: "interview"}, 2},
		{query.Params{Type: "remote"}, 2},
		{query.Params{Status: "interview", Type: "remote"}, 1},
		{query.Params{Status: "all", Type: "all"}, 3},
		{query.Params{Status: "declined"}, 0},
	}
	for _, tt := range tests {
		n, err := s.CountJobs(ctx, query.Build("o", tt.params).Filter)
		if err != nil {
			t.Fatalf("CountJobs: %v", err)
		}
		if n != tt.want {
			t.Errorf("%+v: count = %d, want %d", tt.params, n, tt.want)
		}
	}
}

func TestFindJobs_Orderings(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	mustCreate(t, s, job.Record{OwnerID: "o", Company: "c", Position: "Backend", CreatedAt: date(2024, time.February, 1)})
	mustCreate(t, s, job.Record{OwnerID: "o", Company: "c", Position: "Analyst", CreatedAt: date(2024, time.March, 1)})
	mustCreate(t, s, job.Record{OwnerID: "o", Company: "c", Position: "Chef", CreatedAt: date(2024, time.January, 1)})

	tests := []struct {
		sort string
		want []string
	}{
		{"newest", []string{"Analyst", "Backend", "Chef"}},
		{"oldest", []string{"Chef", "Backend", "Analyst"}},
		{"a-z", []string{"Analyst", "Backend", "Chef"}},
		{"z-a", []string{"Chef", "Backend", "Analyst"}},
	}
	for _, tt := range tests {
		q := query.Build("o", query.Params{Sort: tt.sort})
		jobs, err := s.FindJobs(ctx, q.Filter, q.Ordering, 0, 10)
		if err != nil {
			t.Fatalf("FindJobs: %v", err)
		}
		if len(jobs) != len(tt.want) {
			t.Fatalf("sort %s: got %d jobs, want %d", tt.sort, len(jobs), len(tt.want))
		}
		for i, j := range jobs {
			if j.Position != tt.want[i] {
				t.Errorf("sort %s: position[%d] = %q, want %q", tt.sort, i, j.Position, tt.want[i])
			}
		}
	}
}

func TestFindJobs_Pagination(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	base := date(2024, time.January, 1)
	for i := 0; i < 25; i++ {
		mustCreate(t, s, job.Record{
			OwnerID:   "o",
			Company:   "c",
			Position:  fmt.Sprintf("p%02d", i),
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		})
	}

	q := query.Build("o", query.Params{Page: "3"})
	jobs, err := s.FindJobs(ctx, q.Filter, q.Ordering, q.Page.Skip, q.Page.Limit)
	if err != nil {
		t.Fatalf("FindJobs: %v", err)
	}
	if len(jobs) != 5 {
		t.Fatalf("page 3: got %d jobs, want 5", len(jobs))
	}
	// Newest first: page 3 holds the five oldest records.
	if jobs[0].Position != "p04" || jobs[4].Position != "p00" {
		t.Errorf("page 3 = %s..%s, want p04..p00", jobs[0].Position, jobs[4].Position)
	}

	jobs, err = s.FindJobs(ctx, q.Filter, q.Ordering, 100, 10)
	if err != nil {
		t.Fatalf("FindJobs: %v", err)
	}
	if len(jobs) != 0 {
		t.Errorf("past the end: got %d jobs, want 0", len(jobs))
	}
}

func TestFindJobs_TieBreakOnID(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	at := date(2024, time.May, 5)
	for _, id := range []string{"b", "c", "a"} {
		mustCreate(t, s, job.Record{ID: id, OwnerID: "o", Company: "c", Position: "same", CreatedAt: at})
	}

	q := query.Build("o", query.Params{Sort: "oldest"})
	jobs, err := s.FindJobs(ctx, q.Filter, q.Ordering, 0, 10)
	if err != nil {
		t.Fatalf("FindJobs: %v", err)
	}
	got := []string{jobs[0].ID, jobs[1].ID, jobs[2].ID}
	if got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Errorf("ids = %v, want [a b c]", got)
	}
}

func TestCountJobsByStatus(t *testing.T) {
	s := openTestStore(t)

	mustCreate(t, s, job.Record{OwnerID: "o", Company: "c", Position: "p", Status: job.StatusPending})
	mustCreate(t, s, job.Record{OwnerID: "o", Company: "c", Position: "p", Status: job.StatusPending})
	mustCreate(t, s, job.Record{OwnerID: "o", Company: "c", Position: "p", Status: job.StatusDeclined})
	mustCreate(t, s, job.Record{OwnerID: "x", Company: "c", Position: "p", Status: job.StatusInterview})

	rows, err := s.CountJobsByStatus(context.Background(), query.Filter{OwnerID: "o"})
	if err != nil {
		t.Fatalf("CountJobsByStatus: %v", err)
	}
	got := map[string]int{}
	for _, r := range rows {
		got[r.Status] = r.Count
	}
	if len(got) != 2 || got["pending"] != 2 || got["declined"] != 1 {
		t.Errorf("status counts = %v", got)
	}
}

func TestCountJobsByMonth(t *testing.T) {
	s := openTestStore(t)

	mustCreate(t, s, job.Record{OwnerID: "o", Company: "c", Position: "p", CreatedAt: date(2024, time.January, 3)})
	mustCreate(t, s, job.Record{OwnerID: "o", Company: "c", Position: "p", CreatedAt: date(2024, time.January, 28)})
	mustCreate(t, s, job.Record{OwnerID: "o", Company: "c", Position: "p", CreatedAt: date(2023, time.December, 31)})
	// 23:30 at UTC-2 is already the next month in UTC.
	mustCreate(t, s, job.Record{OwnerID: "o", Company: "c", Position: "p",
		CreatedAt: time.Date(2024, time.February, 29, 23, 30, 0, 0, time.FixedZone("", -2*3600))})

	rows, err := s.CountJobsByMonth(context.Background(), query.Filter{OwnerID: "o"})
	if err != nil {
		t.Fatalf("CountJobsByMonth: %v", err)
	}
	want := []query.MonthCount{
		{Year: 2024, Month: 3, Count: 1},
		{Year: 2024, Month: 1, Count: 2},
		{Year: 2023, Month: 12, Count: 1},
	}
	if len(rows) != len(want) {
		t.Fatalf("got %d rows, want %d: %+v", len(rows), len(want), rows)
	}
	for i := range want {
		if rows[i] != want[i] {
			t.Errorf("row[%d] = %+v, want %+v", i, rows[i], want[i])
		}
	}
}

// TestEngineOverStore drives the query engine end to end against SQLite.
func TestEngineOverStore(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	mustCreate(t, s, job.Record{OwnerID: "o", Company: "Acme", Position: "Dev", Status: job.StatusInterview, CreatedAt: date(2024, time.January, 10)})
	mustCreate(t, s, job.Record{OwnerID: "o", Company: "Acme", Position: "Ops", CreatedAt: date(2024, time.January, 20)})
	mustCreate(t, s, job.Record{OwnerID: "o", Company: "Globex", Position: "QA", CreatedAt: date(2024, time.February, 2)})

	e := query.NewEngine(s, 100)

	res, err := e.List(ctx, "o", query.Params{Search: "acme", Limit: "1"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if res.TotalJobs != 2 || res.TotalPages != 2 || len(res.Jobs) != 1 {
		t.Errorf("List = total %d pages %d jobs %d", res.TotalJobs, res.TotalPages, len(res.Jobs))
	}
	if res.Jobs[0].Position != "Ops" {
		t.Errorf("first job = %q, want newest (Ops)", res.Jobs[0].Position)
	}

	st, err := e.Stats(ctx, "o")
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if st.Status != (query.StatusCounts{Pending: 2, Interview: 1}) {
		t.Errorf("Status = %+v", st.Status)
	}
	want := []query.MonthBucket{{Date: "Jan 24", Count: 2}, {Date: "Feb 24", Count: 1}}
	if len(st.Monthly) != len(want) {
		t.Fatalf("Monthly = %+v", st.Monthly)
	}
	for i := range want {
		if st.Monthly[i] != want[i] {
			t.Errorf("Monthly[%d] = %+v, want %+v", i, st.Monthly[i], want[i])
		}
	}
}
