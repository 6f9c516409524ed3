package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode"
)

// ComputeTitleID computes a deterministic title_id using SHA256 over the
// normalized display name. Returns hex-encoded hash (64 characters).
// The same name always maps to the same id regardless of which source
// observed it first.
func ComputeTitleID(displayName string) string {
	hash := sha256.Sum256([]byte(NormalizeName(displayName)))
	return hex.EncodeToString(hash[:])
}

// NormalizeName lowers, trims, strips punctuation and leading articles, and
// collapses whitespace. Used both for id derivation and alias-index keys so
// "The Witcher 3: Wild Hunt" and "witcher 3 wild hunt" land on the same key.
func NormalizeName(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))

	for _, article := range []string{"the ", "a ", "an "} {
		if strings.HasPrefix(s, article) {
			s = s[len(article):]
			break
		}
	}

	var b strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsNumber(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}

	return strings.Join(strings.Fields(b.String()), " ")
}
