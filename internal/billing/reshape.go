package billing

import (
	"strings"

	"billing_monitor/internal/sheet"
)

var monthAbbrevs = []string{"jan", "feb", "mar", "apr", "may", "jun", "jul", "aug", "sep", "oct", "nov", "dec"}

var monthNames = map[string]string{
	"jan": "January", "feb": "February", "mar": "March", "apr": "April",
	"may": "May", "jun": "June", "jul": "July", "aug": "August",
	"sep": "September", "oct": "October", "nov": "November", "dec": "December",
}

// IsWide reports whether a table uses the wide layout (one column per
// calendar month). A table is wide when at least 12 of its headers
// contain a recognized month token.
func IsWide(t *sheet.Table) bool {
	count := 0
	for _, col := range t.Columns {
		lower := strings.ToLower(col)
		for _, m := range monthAbbrevs {
			if strings.Contains(lower, m) {
				count++
				break
			}
		}
	}
	return count >= 12
}

// ToLong reshapes a wide table into long format: one row per (house,
// month) cell that actually holds a bill value. Months with no matching
// bill column for a row contribute nothing, never a zero record.
//
// When several columns match the same month/field pair, the last match
// in column order wins. That disambiguation is deliberate and covered
// by tests; see ToLong tests before changing it.
func ToLong(t *sheet.Table) *sheet.Table {
	houseIdx := houseColumn(t)
	addrIdx := addressColumn(t)

	out := &sheet.Table{
		Name:    t.Name,
		Columns: []string{"House_ID", "Address", "Month", "Bill_Amount", "Units_Consumed"},
	}

	type monthCols struct {
		label string
		bill  int
		units int
	}
	var plan []monthCols
	for _, abbr := range monthAbbrevs {
		billIdx, label := matchMonthColumn(t, abbr, []string{"bill", "amount"})
		unitsIdx, _ := matchMonthColumn(t, abbr, []string{"units"})
		if billIdx < 0 {
			continue
		}
		plan = append(plan, monthCols{label: label, bill: billIdx, units: unitsIdx})
	}

	for i := range t.Rows {
		house := t.CellAt(i, houseIdx)
		addr := ""
		if addrIdx >= 0 {
			addr = t.CellAt(i, addrIdx)
		}
		for _, mc := range plan {
			bill := t.CellAt(i, mc.bill)
			if bill == "" {
				continue
			}
			units := ""
			if mc.units >= 0 {
				units = t.CellAt(i, mc.units)
			}
			out.Rows = append(out.Rows, []string{house, addr, mc.label, bill, units})
		}
	}
	return out
}

// houseColumn resolves the identifier column: exact match against a
// priority list, then a substring fallback, then the second column on
// the assumption the first is a serial number.
func houseColumn(t *sheet.Table) int {
	for _, want := range []string{"house_id", "houseid", "house"} {
		for i, col := range t.Columns {
			if strings.ToLower(col) == want {
				return i
			}
		}
	}
	for i, col := range t.Columns {
		lower := strings.ToLower(col)
		if strings.Contains(lower, "id") || strings.Contains(lower, "house") ||
			strings.Contains(lower, "s.no") || strings.Contains(lower, "sno") {
			return i
		}
	}
	if len(t.Columns) > 1 {
		return 1
	}
	return 0
}

func addressColumn(t *sheet.Table) int {
	for i, col := range t.Columns {
		if strings.Contains(strings.ToLower(col), "address") {
			return i
		}
	}
	return -1
}

// matchMonthColumn finds the last column whose header contains the month
// token and any of the field hints. A header that is exactly the month
// name (plain wide files like "January", "Feb") also matches for the
// bill field when no hinted column exists.
func matchMonthColumn(t *sheet.Table, abbr string, hints []string) (int, string) {
	idx := -1
	label := monthLabel(abbr, "")
	for i, col := range t.Columns {
		lower := strings.ToLower(col)
		if !strings.Contains(lower, abbr) {
			continue
		}
		for _, h := range hints {
			if strings.Contains(lower, h) {
				idx = i
				label = monthLabel(abbr, lower)
			}
		}
	}
	if idx >= 0 {
		return idx, label
	}
	if !containsHint(hints, "units") {
		// plain month-name headers carry the bill value
		for i, col := range t.Columns {
			lower := strings.ToLower(col)
			if lower == abbr || lower == strings.ToLower(monthNames[abbr]) {
				idx = i
				label = monthLabel(abbr, lower)
			}
		}
	}
	return idx, label
}

// monthLabel preserves the source vocabulary: full month name when the
// header spelled it out, 3-letter abbreviation otherwise.
func monthLabel(abbr, header string) string {
	full := monthNames[abbr]
	if header != "" && strings.Contains(header, strings.ToLower(full)) {
		return full
	}
	return strings.ToUpper(abbr[:1]) + abbr[1:]
}

func containsHint(hints []string, want string) bool {
	for _, h := range hints {
		if h == want {
			return true
		}
	}
	return false
}
