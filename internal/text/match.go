// Package text provides small text-matching helpers shared by the
// intent classifier and the criteria extractor.
package text

// ContainsWord reports whether kw occurs in text on word boundaries.
// Both arguments are expected to be lower-cased already. Plain
// substring matching is too loose for keyword vocabularies: "room"
// must not match inside "bedroom", nor "hi" inside "history".
func ContainsWord(text, kw string) bool {
	if kw == "" {
		return false
	}
	for idx := 0; idx+len(kw) <= len(text); idx++ {
		if text[idx:idx+len(kw)] != kw {
			continue
		}
		end := idx + len(kw)
		beforeOK := idx == 0 || !isWordChar(text[idx-1])
		afterOK := end == len(text) || !isWordChar(text[end])
		if beforeOK && afterOK {
			return true
		}
	}
	return false
}

func isWordChar(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= '0' && b <= '9'
}
