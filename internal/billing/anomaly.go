package billing

import (
	"fmt"
	"math"
	"sort"
)

// Two classification policies coexist and must not be conflated. The
// sync path persists any record over HighBillThreshold regardless of
// category; the ad-hoc analysis path flags only Residential records
// outside the [NormalBandMin, NormalBandMax] band.
const (
	HighBillThreshold = 5000.0
	NormalBandMin     = 500.0
	NormalBandMax     = 5000.0
)

// IsHighBill applies the sync/persistence policy.
func IsHighBill(r Record) bool {
	return r.BillAmount > HighBillThreshold
}

// FilterHighBills keeps only persisted-tracking candidates.
func FilterHighBills(recs []Record) []Record {
	var out []Record
	for _, r := range recs {
		if IsHighBill(r) {
			out = append(out, r)
		}
	}
	return out
}

// ClassifyAdHoc applies the analysis policy to residential records.
// Records inside the normal band are not anomalies; commercial records
// are never flagged here (see CommercialStats).
func ClassifyAdHoc(recs []Record) []Anomaly {
	var out []Anomaly
	for _, r := range recs {
		if r.Category != CategoryResidential {
			continue
		}
		switch {
		case r.BillAmount < NormalBandMin:
			out = append(out, Anomaly{
				HouseID:    r.HouseID,
				Month:      r.Month,
				BillAmount: r.BillAmount,
				Severity:   SeverityLow,
				Reason:     fmt.Sprintf("Bill amount %.2f is below the normal minimum of %.2f", r.BillAmount, NormalBandMin),
			})
		case r.BillAmount > NormalBandMax:
			out = append(out, Anomaly{
				HouseID:    r.HouseID,
				Month:      r.Month,
				BillAmount: r.BillAmount,
				Severity:   SeverityHigh,
				Reason:     fmt.Sprintf("Bill amount %.2f is above the normal maximum of %.2f", r.BillAmount, NormalBandMax),
			})
		}
	}
	return out
}

// DescriptiveStats summarizes a set of bill amounts.
type DescriptiveStats struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	StdDev float64 `json:"std_dev"`
}

// CommercialStats describes commercial records without flagging them.
func CommercialStats(recs []Record) DescriptiveStats {
	var amounts []float64
	for _, r := range recs {
		if r.Category == CategoryCommercial {
			amounts = append(amounts, r.BillAmount)
		}
	}
	return Describe(amounts)
}

// Describe computes count/mean/median/min/max/std over amounts.
func Describe(amounts []float64) DescriptiveStats {
	s := DescriptiveStats{Count: len(amounts)}
	if s.Count == 0 {
		return s
	}
	sorted := append([]float64(nil), amounts...)
	sort.Float64s(sorted)
	s.Min = sorted[0]
	s.Max = sorted[len(sorted)-1]
	if n := len(sorted); n%2 == 1 {
		s.Median = sorted[n/2]
	} else {
		s.Median = (sorted[n/2-1] + sorted[n/2]) / 2
	}
	var sum float64
	for _, a := range amounts {
		sum += a
	}
	s.Mean = sum / float64(s.Count)
	var variance float64
	for _, a := range amounts {
		variance += (a - s.Mean) * (a - s.Mean)
	}
	s.StdDev = math.Sqrt(variance / float64(s.Count))
	return s
}
