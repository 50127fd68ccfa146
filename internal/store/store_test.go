package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"billing_monitor/internal/billing"
)

func openTest(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func rec(house, month string, amount float64) billing.Record {
	return billing.Record{
		HouseID:    house,
		OwnerName:  "N/A",
		Address:    "N/A",
		Month:      month,
		BillAmount: amount,
	}
}

func TestInsertBatchCountsDuplicates(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()
	now := time.Now().UTC()

	inserted, dupes, err := s.InsertBatch(ctx, []billing.Record{
		rec("H1", "January", 6000),
		rec("H2", "January", 7000),
	}, now)
	if err != nil {
		t.Fatal(err)
	}
	if inserted != 2 || dupes != 0 {
		t.Fatalf("first batch: inserted=%d dupes=%d", inserted, dupes)
	}

	// same key again plus one new record
	inserted, dupes, err = s.InsertBatch(ctx, []billing.Record{
		rec("H1", "January", 9999),
		rec("H1", "February", 6500),
	}, now)
	if err != nil {
		t.Fatal(err)
	}
	if inserted != 1 || dupes != 1 {
		t.Fatalf("second batch: inserted=%d dupes=%d", inserted, dupes)
	}

	count, err := s.Count(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if count != 3 {
		t.Fatalf("expected 3 rows, got %d", count)
	}

	// the duplicate must not have overwritten the original amount
	bills, err := s.Query(ctx, QueryFilter{Month: "January"})
	if err != nil {
		t.Fatal(err)
	}
	for _, b := range bills {
		if b.HouseID == "H1" && b.BillAmount != 6000 {
			t.Fatalf("existing record mutated: %+v", b)
		}
	}
}

func TestExists(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()
	if _, _, err := s.InsertBatch(ctx, []billing.Record{rec("H1", "Jan", 6000)}, time.Now()); err != nil {
		t.Fatal(err)
	}
	ok, err := s.Exists(ctx, "H1", "Jan")
	if err != nil || !ok {
		t.Fatalf("expected existing key, ok=%v err=%v", ok, err)
	}
	ok, _ = s.Exists(ctx, "H1", "January")
	if ok {
		t.Fatal("month vocabulary must not be coerced")
	}
}

func TestQuerySortAndLimit(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()
	_, _, err := s.InsertBatch(ctx, []billing.Record{
		rec("H1", "Jan", 6000),
		rec("H2", "Jan", 9000),
		rec("H3", "Feb", 7000),
	}, time.Now())
	if err != nil {
		t.Fatal(err)
	}

	bills, err := s.Query(ctx, QueryFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(bills) != 3 || bills[0].BillAmount != 9000 {
		t.Fatalf("default sort should be bill_amount desc: %+v", bills)
	}

	bills, err = s.Query(ctx, QueryFilter{SortBy: "house_id", Order: "asc", Limit: 2})
	if err != nil {
		t.Fatal(err)
	}
	if len(bills) != 2 || bills[0].HouseID != "H1" {
		t.Fatalf("asc sort with limit failed: %+v", bills)
	}

	// unknown sort column falls back instead of erroring
	if _, err := s.Query(ctx, QueryFilter{SortBy: "drop table"}); err != nil {
		t.Fatalf("whitelist fallback failed: %v", err)
	}

	bills, err = s.Query(ctx, QueryFilter{Month: "Feb"})
	if err != nil {
		t.Fatal(err)
	}
	if len(bills) != 1 || bills[0].HouseID != "H3" {
		t.Fatalf("month filter failed: %+v", bills)
	}
}

func TestSearch(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()
	recs := []billing.Record{
		{HouseID: "H1", OwnerName: "Asha Rao", Address: "12 Park Lane", Month: "Jan", BillAmount: 6000},
		{HouseID: "S2", OwnerName: "City Mart", Address: "Market Road", Month: "Jan", BillAmount: 9000},
	}
	if _, _, err := s.InsertBatch(ctx, recs, time.Now()); err != nil {
		t.Fatal(err)
	}

	bills, err := s.Search(ctx, "mart", nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(bills) != 1 || bills[0].HouseID != "S2" {
		t.Fatalf("owner search failed: %+v", bills)
	}

	min := 7000.0
	bills, err = s.Search(ctx, "", &min, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(bills) != 1 || bills[0].BillAmount != 9000 {
		t.Fatalf("amount bound failed: %+v", bills)
	}
}

func TestStatsAndMonths(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()
	recs := []billing.Record{
		rec("H1", "Feb", 6000),
		rec("H2", "Feb", 8000),
		rec("H1", "Jan", 7000),
	}
	recs[0].UnitsConsumed = 100
	recs[1].UnitsConsumed = 300
	if _, _, err := s.InsertBatch(ctx, recs, time.Now()); err != nil {
		t.Fatal(err)
	}

	overall, byMonth, err := s.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if overall.TotalBillAmount != 21000 || overall.AverageBillAmount != 7000 {
		t.Fatalf("unexpected overall %+v", overall)
	}
	if overall.MaxBillAmount != 8000 || overall.MinBillAmount != 6000 {
		t.Fatalf("unexpected overall %+v", overall)
	}
	if len(byMonth) != 2 || byMonth[0].Month != "Feb" || byMonth[0].Count != 2 {
		t.Fatalf("unexpected by-month %+v", byMonth)
	}

	months, err := s.Months(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(months) != 2 || months[0] != "Feb" || months[1] != "Jan" {
		t.Fatalf("unexpected months %v", months)
	}

	m, err := s.MonthlyStats(ctx, "Feb")
	if err != nil {
		t.Fatal(err)
	}
	if m.Count != 2 || m.TotalAmount != 14000 || m.TotalUnits != 400 {
		t.Fatalf("unexpected month stats %+v", m)
	}
	empty, err := s.MonthlyStats(ctx, "December")
	if err != nil {
		t.Fatal(err)
	}
	if empty.Count != 0 {
		t.Fatalf("missing month should count 0: %+v", empty)
	}

	houses, monthCount, err := s.UniqueCounts(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if houses != 2 || monthCount != 2 {
		t.Fatalf("unique counts: houses=%d months=%d", houses, monthCount)
	}
}

func TestTopBills(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()
	_, _, err := s.InsertBatch(ctx, []billing.Record{
		rec("H1", "Jan", 6000),
		rec("H2", "Jan", 9000),
		rec("H3", "Jan", 7000),
	}, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	bills, err := s.TopBills(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(bills) != 2 || bills[0].BillAmount != 9000 || bills[1].BillAmount != 7000 {
		t.Fatalf("unexpected top bills %+v", bills)
	}
}

func TestClear(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()
	if _, _, err := s.InsertBatch(ctx, []billing.Record{rec("H1", "Jan", 6000)}, time.Now()); err != nil {
		t.Fatal(err)
	}
	n, err := s.Clear(ctx)
	if err != nil || n != 1 {
		t.Fatalf("clear: n=%d err=%v", n, err)
	}
	count, _ := s.Count(ctx)
	if count != 0 {
		t.Fatalf("expected empty table, got %d", count)
	}
}

func TestSyncRunLifecycle(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()
	start := time.Now().UTC().Truncate(time.Second)

	id, err := s.StartSyncRun(ctx, start)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.FinishSyncRun(ctx, id, "success", 3, 10, 2, "", start.Add(time.Second)); err != nil {
		t.Fatal(err)
	}

	runs, err := s.RecentSyncRuns(ctx, 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected 1 run, got %d", len(runs))
	}
	r := runs[0]
	if r.Status != "success" || r.FilesProcessed != 3 || r.NewRecords != 10 || r.DuplicatesSkipped != 2 {
		t.Fatalf("unexpected run %+v", r)
	}
	if r.FinishedAt == nil {
		t.Fatal("finished_at not recorded")
	}
}

func TestTruncateError(t *testing.T) {
	long := ""
	for i := 0; i < 50; i++ {
		long += "0123456789"
	}
	if got := truncateError(long); len(got) != 240 {
		t.Fatalf("expected 240 chars, got %d", len(got))
	}
	if got := truncateError("  short  "); got != "short" {
		t.Fatalf("expected trimmed message, got %q", got)
	}
}

func TestHealth(t *testing.T) {
	s := openTest(t)
	if err := s.Health(context.Background()); err != nil {
		t.Fatal(err)
	}
}
