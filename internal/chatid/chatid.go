// Package chatid derives the canonical identifier of a two-party chat.
//
// The identifier depends only on the unordered pair of participants, so
// either user resolves the same thread without a lookup.
package chatid

import "strings"

const (
	prefix    = "chat_"
	separator = "_"
)

// Derive returns chat_<lo>_<hi> where lo and hi are a and b in lexicographic order.
func Derive(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return prefix + a + separator + b
}

// Participants splits a derived identifier back into its two participants.
// Participant ids must not contain the separator; UUIDs never do.
func Participants(id string) (a, b string, ok bool) {
	rest, found := strings.CutPrefix(id, prefix)
	if !found {
		return "", "", false
	}
	a, b, found = strings.Cut(rest, separator)
	if !found || a == "" || b == "" || strings.Contains(b, separator) || b < a {
		return "", "", false
	}
	return a, b, true
}

func Includes(id, userID string) bool {
	a, b, ok := Participants(id)
	return ok && (a == userID || b == userID)
}
