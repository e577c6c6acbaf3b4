package promo

import "strings"

const keySeparator = "|"

var keyEscaper = strings.NewReplacer("\\", "\\\\", keySeparator, "\\|")

// BuildKey derives the deterministic notification key for a promotion.
// The key is the de-duplication unit: it is announced to the channel at
// most once, no matter how many runs observe it. Separator occurrences
// inside a field are escaped so distinct promotions cannot collide.
func BuildKey(p Promotion) string {
	return strings.Join([]string{
		keyEscaper.Replace(p.Text),
		keyEscaper.Replace(p.LinkKey),
		keyEscaper.Replace(p.ImageKey),
	}, keySeparator)
}
