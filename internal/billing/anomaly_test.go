package billing

import (
	"math"
	"testing"
)

func TestIsHighBillBoundary(t *testing.T) {
	if IsHighBill(Record{BillAmount: 5000}) {
		t.Fatal("exactly 5000 is not high")
	}
	if !IsHighBill(Record{BillAmount: 5000.01}) {
		t.Fatal("5000.01 is high")
	}
}

func TestFilterHighBills(t *testing.T) {
	recs := []Record{
		{HouseID: "H1", BillAmount: 4999},
		{HouseID: "H2", BillAmount: 5001},
		{HouseID: "H3", BillAmount: 12000},
	}
	high := FilterHighBills(recs)
	if len(high) != 2 || high[0].HouseID != "H2" || high[1].HouseID != "H3" {
		t.Fatalf("unexpected filter result %+v", high)
	}
}

func TestClassifyAdHoc(t *testing.T) {
	recs := []Record{
		{HouseID: "H1", Month: "Jan", BillAmount: 400, Category: CategoryResidential},
		{HouseID: "H2", Month: "Jan", BillAmount: 2000, Category: CategoryResidential},
		{HouseID: "H3", Month: "Jan", BillAmount: 6000, Category: CategoryResidential},
		{HouseID: "S1", Month: "Jan", BillAmount: 300, Category: CategoryCommercial},
	}
	anomalies := ClassifyAdHoc(recs)
	if len(anomalies) != 2 {
		t.Fatalf("expected low and high anomalies only, got %+v", anomalies)
	}
	if anomalies[0].Severity != SeverityLow || anomalies[0].HouseID != "H1" {
		t.Fatalf("unexpected first anomaly %+v", anomalies[0])
	}
	if anomalies[0].Reason != "Bill amount 400.00 is below the normal minimum of 500.00" {
		t.Fatalf("unexpected reason %q", anomalies[0].Reason)
	}
	if anomalies[1].Severity != SeverityHigh || anomalies[1].HouseID != "H3" {
		t.Fatalf("unexpected second anomaly %+v", anomalies[1])
	}
	if anomalies[1].Reason != "Bill amount 6000.00 is above the normal maximum of 5000.00" {
		t.Fatalf("unexpected reason %q", anomalies[1].Reason)
	}
}

func TestClassifyAdHocBandBoundaries(t *testing.T) {
	recs := []Record{
		{HouseID: "H1", BillAmount: 500, Category: CategoryResidential},
		{HouseID: "H2", BillAmount: 5000, Category: CategoryResidential},
	}
	if got := ClassifyAdHoc(recs); len(got) != 0 {
		t.Fatalf("band endpoints are normal, got %+v", got)
	}
}

func TestDescribe(t *testing.T) {
	s := Describe([]float64{100, 200, 300, 400})
	if s.Count != 4 || s.Mean != 250 || s.Median != 250 || s.Min != 100 || s.Max != 400 {
		t.Fatalf("unexpected stats %+v", s)
	}
	if math.Abs(s.StdDev-111.803398875) > 1e-6 {
		t.Fatalf("unexpected std dev %v", s.StdDev)
	}

	odd := Describe([]float64{3, 1, 2})
	if odd.Median != 2 {
		t.Fatalf("odd-count median wrong: %v", odd.Median)
	}

	empty := Describe(nil)
	if empty.Count != 0 || empty.Mean != 0 {
		t.Fatalf("empty stats should be zero: %+v", empty)
	}
}

func TestCommercialStatsIgnoresResidential(t *testing.T) {
	recs := []Record{
		{HouseID: "H1", BillAmount: 1000, Category: CategoryResidential},
		{HouseID: "S1", BillAmount: 2000, Category: CategoryCommercial},
		{HouseID: "S2", BillAmount: 4000, Category: CategoryCommercial},
	}
	s := CommercialStats(recs)
	if s.Count != 2 || s.Mean != 3000 {
		t.Fatalf("unexpected commercial stats %+v", s)
	}
}
