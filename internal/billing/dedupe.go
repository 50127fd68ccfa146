package billing

// Dedupe collapses records sharing a (house_id, month) key, keeping the
// first occurrence in file-then-row order. Returns the kept records and
// how many duplicates were discarded. Idempotent: running it on its own
// output removes nothing further.
func Dedupe(recs []Record) ([]Record, int) {
	seen := make(map[string]struct{}, len(recs))
	out := make([]Record, 0, len(recs))
	dropped := 0
	for _, r := range recs {
		key := r.HouseID + "\x00" + r.Month
		if _, ok := seen[key]; ok {
			dropped++
			continue
		}
		seen[key] = struct{}{}
		out = append(out, r)
	}
	return out, dropped
}
