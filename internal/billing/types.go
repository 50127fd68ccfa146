package billing

// Category of a billing consumer.
type Category string

const (
	CategoryResidential Category = "Residential"
	CategoryCommercial  Category = "Commercial"
)

// Severity of an anomaly in the ad-hoc analysis path.
type Severity string

const (
	SeverityLow  Severity = "low"
	SeverityHigh Severity = "high"
)

// Record is the canonical billing record produced by the reconciliation
// pass. The (HouseID, Month) pair is the dedup and storage uniqueness key.
// Month keeps whatever vocabulary the source used (full name or 3-letter
// abbreviation); the two are never coerced into each other.
type Record struct {
	HouseID       string   `json:"House_ID"`
	OwnerName     string   `json:"Owner_Name"`
	Address       string   `json:"Address"`
	Month         string   `json:"Month"`
	UnitsConsumed int      `json:"Units_Consumed"`
	BillAmount    float64  `json:"Bill_Amount"`
	Category      Category `json:"Category"`
}

// Anomaly is a residential record falling outside the normal band.
type Anomaly struct {
	HouseID    string   `json:"house_id"`
	Month      string   `json:"month"`
	BillAmount float64  `json:"bill_amount"`
	Severity   Severity `json:"severity"`
	Reason     string   `json:"reason"`
}

// MonthlyBill is one observation in a consumer's billing series.
type MonthlyBill struct {
	Month  string  `json:"month"`
	Amount float64 `json:"amount"`
}

// Spike marks a month-over-month or trailing-average jump in one
// consumer's series.
type Spike struct {
	ConsumerID         string  `json:"consumer_id"`
	ConsumerType       string  `json:"consumer_type"`
	Month              string  `json:"month"`
	BillAmount         float64 `json:"bill_amount"`
	PreviousBill       float64 `json:"previous_bill"`
	IncreasePercentage float64 `json:"increase_percentage"`
	Reason             string  `json:"reason"`
}

// ConsumerAnalysis is the per-consumer spike detection result.
type ConsumerAnalysis struct {
	HasSpikes      bool    `json:"has_spikes"`
	Spikes         []Spike `json:"spikes"`
	PatternSummary string  `json:"pattern_summary"`
}

// RowStats counts rows dropped during type coercion. Dropped rows never
// fail a file; they are reported alongside the result.
type RowStats struct {
	Total         int `json:"total"`
	Dropped       int `json:"dropped"`
	MissingKey    int `json:"missing_key"`
	BadBillAmount int `json:"bad_bill_amount"`
}
