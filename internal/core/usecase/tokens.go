package usecase

import "strings"

// splitAlphaNumLower breaks s into lowercase alphanumeric runs.
func splitAlphaNumLower(s string) []string {
	if s == "" {
		return nil
	}

	tokens := make([]string, 0, 16)
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r + ('a' - 'A'))
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
		default:
			if b.Len() > 0 {
				tokens = append(tokens, b.String())
				b.Reset()
			}
		}
	}
	if b.Len() > 0 {
		tokens = append(tokens, b.String())
	}
	return tokens
}

// foldPlural maps a token to a rough singular form so "carrots" and
// "carrot" compare equal. Intentionally naive; it only needs to be
// consistent between query and recipe sides.
func foldPlural(token string) string {
	switch {
	case len(token) > 4 && strings.HasSuffix(token, "ies"):
		return token[:len(token)-3] + "y"
	case len(token) > 3 && strings.HasSuffix(token, "ses"):
		return token[:len(token)-2]
	case len(token) > 3 && strings.HasSuffix(token, "xes"),
		len(token) > 3 && strings.HasSuffix(token, "zes"):
		return token[:len(token)-2]
	case len(token) > 2 && strings.HasSuffix(token, "s") && !strings.HasSuffix(token, "ss"):
		return token[:len(token)-1]
	default:
		return token
	}
}

func toFoldedTokenSet(texts ...string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, text := range texts {
		for _, token := range splitAlphaNumLower(text) {
			out[foldPlural(token)] = struct{}{}
		}
	}
	return out
}

func dedupKeepOrder(tokens []string) []string {
	seen := make(map[string]struct{}, len(tokens))
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
