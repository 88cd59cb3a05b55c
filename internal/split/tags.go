package split

import "strings"

// Tags is the closed expense category vocabulary
var Tags = []string{
	"Bolletta Acqua",
	"Bolletta Luce",
	"Bolletta Gas",
	"Internet/Telefono",
	"Affitto",
	"Spesa Alimentare",
	"Trasporti",
	"Pranzo/Cena",
	"Salute",
	"Animali Domestici",
	"Svago/Intrattenimento",
	"Altro",
}

// NormalizeTag matches s case-insensitively against the vocabulary and returns the
// canonical spelling.
func NormalizeTag(s string) (string, bool) {
	s = strings.TrimSpace(s)
	for _, t := range Tags {
		if strings.EqualFold(t, s) {
			return t, true
		}
	}
	return "", false
}
