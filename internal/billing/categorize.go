package billing

import "strings"

// commercialKeywords is the fixed vocabulary scanned against identifier
// and address text when no explicit category column exists. Substring
// match, first hit wins. The list is best-effort, not authoritative: a
// residence on "Market Street" will misclassify, and that is accepted.
var commercialKeywords = []string{
	"shop", "store", "market", "mart", "plaza", "mall", "pharmacy",
	"clinic", "hospital", "salon", "restaurant", "cafe", "hotel",
	"baker", "business", "office", "workshop", "factory", "garage",
	"enterprise", "trading", "industries", "complex", "tower",
}

var residentialValues = map[string]struct{}{"Residential": {}, "Res": {}, "R": {}}
var commercialValues = map[string]struct{}{"Commercial": {}, "Com": {}, "C": {}}

// Categorize resolves the consumer category. An explicit value is
// normalized (trim + title-case) and mapped through the accepted
// spellings, defaulting to Residential when unrecognized. Absent a
// value, the house identifier and then the address are scanned for
// commercial keywords.
func Categorize(explicit, houseID, address string) Category {
	explicit = titleCase(strings.TrimSpace(explicit))
	if explicit != "" {
		if _, ok := commercialValues[explicit]; ok {
			return CategoryCommercial
		}
		if _, ok := residentialValues[explicit]; ok {
			return CategoryResidential
		}
		return CategoryResidential
	}

	for _, text := range []string{houseID, address} {
		lower := strings.ToLower(text)
		for _, kw := range commercialKeywords {
			if strings.Contains(lower, kw) {
				return CategoryCommercial
			}
		}
	}
	return CategoryResidential
}

// titleCase uppercases the first letter of each word, matching how the
// explicit category values are normalized before lookup.
func titleCase(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
