package billing

import (
	"fmt"
	"strconv"
	"strings"

	"billing_monitor/internal/sheet"
)

// Canonical field names produced by reconciliation.
const (
	FieldHouseID       = "house_id"
	FieldOwnerName     = "owner_name"
	FieldAddress       = "address"
	FieldMonth         = "month"
	FieldUnitsConsumed = "units_consumed"
	FieldBillAmount    = "bill_amount"
	FieldCategory      = "category"
)

// aliasTable maps each canonical field to accepted header spellings.
// Matching is case-sensitive against the normalized header (trimmed,
// spaces replaced with underscores); the first alias that matches wins.
var aliasTable = []struct {
	field   string
	aliases []string
}{
	{FieldHouseID, []string{"House_ID", "HouseID", "house_id", "houseid", "House", "Consumer_ID", "ConsumerID", "consumer_id", "ID", "Id", "id"}},
	{FieldOwnerName, []string{"Owner_Name", "OwnerName", "owner_name", "Owner", "Consumer_Name", "Name"}},
	{FieldAddress, []string{"Address", "address", "Location", "location"}},
	{FieldMonth, []string{"Month", "month", "Billing_Month", "billing_month"}},
	{FieldUnitsConsumed, []string{"Units_Consumed", "UnitsConsumed", "units_consumed", "Units", "units", "Consumption", "consumption"}},
	{FieldBillAmount, []string{"Bill_Amount", "BillAmount", "bill_amount", "Amount", "amount", "Bill", "bill", "Total_Amount"}},
	{FieldCategory, []string{"Category", "category", "Consumer_Type", "ConsumerType", "consumer_type", "Type", "type"}},
}

// MissingColumnsError reports an input-shape failure: it names both the
// required columns that could not be resolved and the columns the file
// actually carried, so the caller never has to guess.
type MissingColumnsError struct {
	File    string
	Missing []string
	Found   []string
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("%s: missing required columns %v (found %v)",
		e.File, e.Missing, e.Found)
}

// Mapping resolves canonical fields to column indexes in a long-format
// table.
type Mapping map[string]int

// Reconcile maps a table's headers onto the canonical vocabulary via the
// alias table, with a heuristic fallback (substring on "id"/"type") for
// the identifier and category fields.
func Reconcile(t *sheet.Table) Mapping {
	normalized := make([]string, len(t.Columns))
	for i, col := range t.Columns {
		normalized[i] = strings.ReplaceAll(strings.TrimSpace(col), " ", "_")
	}

	m := Mapping{}
	for _, entry := range aliasTable {
		for _, alias := range entry.aliases {
			idx := -1
			for i, col := range normalized {
				if col == alias {
					idx = i
					break
				}
			}
			if idx >= 0 {
				m[entry.field] = idx
				break
			}
		}
	}

	if _, ok := m[FieldHouseID]; !ok {
		if idx := firstContaining(t.Columns, "id"); idx >= 0 {
			m[FieldHouseID] = idx
		}
	}
	if _, ok := m[FieldCategory]; !ok {
		if idx := firstContaining(t.Columns, "type"); idx >= 0 {
			m[FieldCategory] = idx
		}
	}
	return m
}

// RequireAdHoc validates the analysis-path contract: house_id and
// bill_amount must both resolve.
func (m Mapping) RequireAdHoc(t *sheet.Table) error {
	var missing []string
	for _, field := range []string{FieldHouseID, FieldBillAmount} {
		if _, ok := m[field]; !ok {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		return &MissingColumnsError{File: t.Name, Missing: missing, Found: append([]string(nil), t.Columns...)}
	}
	return nil
}

// Records coerces a reconciled long-format table into canonical records.
// Rows without a house identifier or with a non-positive or unparseable
// bill amount are dropped and counted; they never fail the file.
func (m Mapping) Records(t *sheet.Table) ([]Record, RowStats) {
	stats := RowStats{Total: len(t.Rows)}
	var out []Record
	for i := range t.Rows {
		rec, ok := m.record(t, i, &stats)
		if !ok {
			stats.Dropped++
			continue
		}
		out = append(out, rec)
	}
	return out, stats
}

func (m Mapping) record(t *sheet.Table, i int, stats *RowStats) (Record, bool) {
	rec := Record{OwnerName: "N/A", Address: "N/A"}

	rec.HouseID = m.cell(t, i, FieldHouseID)
	if rec.HouseID == "" {
		stats.MissingKey++
		return rec, false
	}

	amt, err := strconv.ParseFloat(strings.ReplaceAll(m.cell(t, i, FieldBillAmount), ",", ""), 64)
	if err != nil || amt <= 0 {
		stats.BadBillAmount++
		return rec, false
	}
	rec.BillAmount = amt

	if v := m.cell(t, i, FieldOwnerName); v != "" {
		rec.OwnerName = v
	}
	if v := m.cell(t, i, FieldAddress); v != "" {
		rec.Address = v
	}
	rec.Month = m.cell(t, i, FieldMonth)
	rec.UnitsConsumed = parseUnits(m.cell(t, i, FieldUnitsConsumed))
	rec.Category = Categorize(m.cell(t, i, FieldCategory), rec.HouseID, rec.Address)
	return rec, true
}

func (m Mapping) cell(t *sheet.Table, i int, field string) string {
	idx, ok := m[field]
	if !ok {
		return ""
	}
	return t.CellAt(i, idx)
}

// parseUnits coerces the units column, defaulting to 0 on absence or
// junk. Negative readings are meter noise and clamp to 0.
func parseUnits(raw string) int {
	if raw == "" {
		return 0
	}
	f, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", ""), 64)
	if err != nil || f < 0 {
		return 0
	}
	return int(f)
}

func firstContaining(columns []string, token string) int {
	for i, col := range columns {
		if strings.Contains(strings.ToLower(col), token) {
			return i
		}
	}
	return -1
}

// SyncRecords applies the stricter persisted-sync contract: the file
// must already carry exact House_ID, Bill_Amount and Month headers
// (post-trim, no alias table). Rows missing any of the three, or with
// an unparseable amount, are dropped and counted.
func SyncRecords(t *sheet.Table) ([]Record, RowStats, error) {
	var missing []string
	for _, col := range []string{"House_ID", "Bill_Amount", "Month"} {
		if t.ColumnIndex(col) < 0 {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, RowStats{}, &MissingColumnsError{File: t.Name, Missing: missing, Found: append([]string(nil), t.Columns...)}
	}

	houseIdx := t.ColumnIndex("House_ID")
	amountIdx := t.ColumnIndex("Bill_Amount")
	monthIdx := t.ColumnIndex("Month")
	ownerIdx := t.ColumnIndex("Owner_Name")
	addrIdx := t.ColumnIndex("Address")
	unitsIdx := t.ColumnIndex("Units_Consumed")

	stats := RowStats{Total: len(t.Rows)}
	var out []Record
	for i := range t.Rows {
		house := t.CellAt(i, houseIdx)
		month := t.CellAt(i, monthIdx)
		if house == "" || month == "" {
			stats.MissingKey++
			stats.Dropped++
			continue
		}
		amt, err := strconv.ParseFloat(strings.ReplaceAll(t.CellAt(i, amountIdx), ",", ""), 64)
		if err != nil || amt <= 0 {
			stats.BadBillAmount++
			stats.Dropped++
			continue
		}
		rec := Record{
			HouseID:       house,
			OwnerName:     "N/A",
			Address:       "N/A",
			Month:         month,
			BillAmount:    amt,
			UnitsConsumed: parseUnits(t.CellAt(i, unitsIdx)),
		}
		if v := t.CellAt(i, ownerIdx); ownerIdx >= 0 && v != "" {
			rec.OwnerName = v
		}
		if v := t.CellAt(i, addrIdx); addrIdx >= 0 && v != "" {
			rec.Address = v
		}
		rec.Category = Categorize("", rec.HouseID, rec.Address)
		out = append(out, rec)
	}
	return out, stats, nil
}
