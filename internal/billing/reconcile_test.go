package billing

import (
	"errors"
	"strings"
	"testing"

	"billing_monitor/internal/sheet"
)

func TestReconcileAliases(t *testing.T) {
	tbl := &sheet.Table{
		Name:    "aliased.csv",
		Columns: []string{"Consumer_ID", "Name", "Billing_Month", "Amount", "Consumption"},
	}
	m := Reconcile(tbl)
	want := map[string]int{
		FieldHouseID: 0, FieldOwnerName: 1, FieldMonth: 2,
		FieldBillAmount: 3, FieldUnitsConsumed: 4,
	}
	for field, idx := range want {
		if m[field] != idx {
			t.Fatalf("%s: want %d got %d", field, idx, m[field])
		}
	}
}

func TestReconcileSpacesNormalized(t *testing.T) {
	tbl := &sheet.Table{Columns: []string{" House ID ", "Bill Amount"}}
	m := Reconcile(tbl)
	// " House ID " normalizes to House_ID, "Bill Amount" to Bill_Amount.
	if m[FieldHouseID] != 0 || m[FieldBillAmount] != 1 {
		t.Fatalf("space normalization failed: %v", m)
	}
}

func TestReconcileHeuristicFallback(t *testing.T) {
	tbl := &sheet.Table{Columns: []string{"MeterID", "CustType", "Amount"}}
	m := Reconcile(tbl)
	if m[FieldHouseID] != 0 {
		t.Fatalf("substring 'id' fallback failed: %v", m)
	}
	if m[FieldCategory] != 1 {
		t.Fatalf("substring 'type' fallback failed: %v", m)
	}
}

func TestRequireAdHocMissingColumns(t *testing.T) {
	tbl := &sheet.Table{Name: "bad.csv", Columns: []string{"Owner", "Month"}}
	m := Reconcile(tbl)
	err := m.RequireAdHoc(tbl)
	var missing *MissingColumnsError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingColumnsError, got %v", err)
	}
	if len(missing.Missing) != 2 {
		t.Fatalf("expected house_id and bill_amount missing, got %v", missing.Missing)
	}
	if !strings.Contains(err.Error(), "bad.csv") || !strings.Contains(err.Error(), "Owner") {
		t.Fatalf("error must name the file and found columns: %v", err)
	}
}

func TestRecordsCoercion(t *testing.T) {
	tbl := &sheet.Table{
		Name:    "mixed.csv",
		Columns: []string{"House_ID", "Month", "Bill_Amount", "Units_Consumed"},
		Rows: [][]string{
			{"H1", "Jan", "1,200.50", "250"},
			{"H2", "Jan", "0", "100"},      // non-positive amount
			{"", "Jan", "900", "50"},       // no identifier
			{"H3", "Feb", "junk", "10"},    // unparseable amount
			{"H4", "Feb", "800", "-5"},     // negative units clamp
			{"H5", "Mar", "700", "oops"},   // junk units default
		},
	}
	m := Reconcile(tbl)
	recs, stats := m.Records(tbl)
	if len(recs) != 3 {
		t.Fatalf("expected 3 kept records, got %d", len(recs))
	}
	if stats.Total != 6 || stats.Dropped != 3 || stats.MissingKey != 1 || stats.BadBillAmount != 2 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	if recs[0].BillAmount != 1200.50 {
		t.Fatalf("comma-separated amount not parsed: %v", recs[0].BillAmount)
	}
	if recs[0].OwnerName != "N/A" || recs[0].Address != "N/A" {
		t.Fatalf("missing optional fields should default to N/A: %+v", recs[0])
	}
	if recs[1].UnitsConsumed != 0 || recs[2].UnitsConsumed != 0 {
		t.Fatalf("bad units should clamp to 0: %+v %+v", recs[1], recs[2])
	}
}

func TestSyncRecordsStrictHeaders(t *testing.T) {
	tbl := &sheet.Table{
		Name:    "loose.csv",
		Columns: []string{"HouseID", "Amount", "Month"},
	}
	_, _, err := SyncRecords(tbl)
	var missing *MissingColumnsError
	if !errors.As(err, &missing) {
		t.Fatalf("alias headers must not satisfy the sync contract, got %v", err)
	}
}

func TestSyncRecordsDropsIncompleteRows(t *testing.T) {
	tbl := &sheet.Table{
		Name:    "sync.csv",
		Columns: []string{"House_ID", "Bill_Amount", "Month", "Owner_Name"},
		Rows: [][]string{
			{"H1", "6000", "January", "Asha"},
			{"H2", "7000", "", "Ravi"},  // no month
			{"H3", "-10", "February"},   // non-positive
			{"H4", "5500", "February"},  // short row, no owner
		},
	}
	recs, stats, err := SyncRecords(tbl)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2 kept records, got %+v", recs)
	}
	if stats.MissingKey != 1 || stats.BadBillAmount != 1 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	if recs[0].OwnerName != "Asha" {
		t.Fatalf("owner not carried: %+v", recs[0])
	}
	if recs[1].OwnerName != "N/A" {
		t.Fatalf("short row owner should default: %+v", recs[1])
	}
}
