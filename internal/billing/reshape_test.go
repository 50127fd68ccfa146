package billing

import (
	"testing"

	"billing_monitor/internal/sheet"
)

func wideTable() *sheet.Table {
	return &sheet.Table{
		Name: "wide.csv",
		Columns: []string{
			"S.No", "House_ID", "Address",
			"Jan_Bill", "Feb_Bill", "Mar_Bill", "Apr_Bill", "May_Bill", "Jun_Bill",
			"Jul_Bill", "Aug_Bill", "Sep_Bill", "Oct_Bill", "Nov_Bill", "Dec_Bill",
		},
		Rows: [][]string{
			{"1", "H1", "12 Park Lane", "1000", "1100", "1200", "1300", "1400", "1500", "1600", "1700", "1800", "1900", "2000", "2100"},
			{"2", "H2", "5 Hill Rd", "900", "950", "980", "1010", "1050", "1090", "1120", "1150", "1180", "1210", "1240", "1270"},
		},
	}
}

func TestIsWide(t *testing.T) {
	if !IsWide(wideTable()) {
		t.Fatal("twelve month columns should read as wide")
	}
	long := &sheet.Table{Columns: []string{"House_ID", "Month", "Bill_Amount"}}
	if IsWide(long) {
		t.Fatal("long layout misread as wide")
	}
	partial := &sheet.Table{Columns: []string{"House_ID", "Jan_Bill", "Feb_Bill", "Mar_Bill"}}
	if IsWide(partial) {
		t.Fatal("three month columns is not a wide layout")
	}
}

func TestToLongNonLossy(t *testing.T) {
	out := ToLong(wideTable())
	if len(out.Rows) != 24 {
		t.Fatalf("2 houses x 12 months should give 24 rows, got %d", len(out.Rows))
	}
	want := []string{"House_ID", "Address", "Month", "Bill_Amount", "Units_Consumed"}
	for i, col := range want {
		if out.Columns[i] != col {
			t.Fatalf("column %d: want %s got %s", i, col, out.Columns[i])
		}
	}
	if out.CellAt(0, 0) != "H1" || out.CellAt(0, 2) != "Jan" || out.CellAt(0, 3) != "1000" {
		t.Fatalf("unexpected first row %v", out.Rows[0])
	}
	if out.CellAt(0, 1) != "12 Park Lane" {
		t.Fatalf("address not carried: %v", out.Rows[0])
	}
}

func TestToLongPreservesFullMonthNames(t *testing.T) {
	in := &sheet.Table{
		Name:    "plain.csv",
		Columns: []string{"House_ID", "January", "February"},
		Rows:    [][]string{{"H1", "1200", "1500"}},
	}
	out := ToLong(in)
	if len(out.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(out.Rows))
	}
	if out.CellAt(0, 2) != "January" || out.CellAt(1, 2) != "February" {
		t.Fatalf("full month names must survive reshaping: %v %v", out.Rows[0], out.Rows[1])
	}
}

func TestToLongAbbreviatedMonthLabels(t *testing.T) {
	out := ToLong(wideTable())
	if out.CellAt(0, 2) != "Jan" {
		t.Fatalf("abbreviated header should keep abbreviated label, got %q", out.CellAt(0, 2))
	}
}

func TestToLongSkipsEmptyCells(t *testing.T) {
	in := &sheet.Table{
		Name:    "gaps.csv",
		Columns: []string{"House_ID", "Jan_Bill", "Feb_Bill"},
		Rows:    [][]string{{"H1", "1000", ""}},
	}
	out := ToLong(in)
	if len(out.Rows) != 1 {
		t.Fatalf("empty month cell must not emit a record, got %v", out.Rows)
	}
}

func TestToLongLastMatchWins(t *testing.T) {
	in := &sheet.Table{
		Name:    "dup.csv",
		Columns: []string{"House_ID", "Jan_Bill", "Jan_Bill_Revised"},
		Rows:    [][]string{{"H1", "1000", "1234"}},
	}
	out := ToLong(in)
	if len(out.Rows) != 1 || out.CellAt(0, 3) != "1234" {
		t.Fatalf("later matching column should win, got %v", out.Rows)
	}
}

func TestToLongUnitsColumns(t *testing.T) {
	in := &sheet.Table{
		Name:    "units.csv",
		Columns: []string{"House_ID", "Jan_Bill", "Jan_Units"},
		Rows:    [][]string{{"H1", "1000", "250"}},
	}
	out := ToLong(in)
	if out.CellAt(0, 4) != "250" {
		t.Fatalf("units column not paired with its month: %v", out.Rows)
	}
}

func TestHouseColumnFallsBackToSecondColumn(t *testing.T) {
	in := &sheet.Table{
		Name:    "anon.csv",
		Columns: []string{"Serial", "Meter", "Jan_Bill"},
		Rows:    [][]string{{"1", "M-9", "1000"}},
	}
	out := ToLong(in)
	if out.CellAt(0, 0) != "M-9" {
		t.Fatalf("expected second column as identifier fallback, got %q", out.CellAt(0, 0))
	}
}
