// Package classifier implements the restricted-content rule applied to post
// content on every write path. It is a pure function with no I/O so the rule
// can be unit-tested and swapped in isolation.
package classifier

import "regexp"

// restrictedWord matches a whole word that starts and ends with an uppercase
// letter (minimum two characters), e.g. "AbC" or "HELLO". This is a crude,
// deliberate heuristic for shouting/aggressive text, not a learned model.
var restrictedWord = regexp.MustCompile(`\b[A-Z][a-zA-Z]*[A-Z]\b`)

// Classify reports whether the given content should be flagged as restricted.
// It is applied when a post is created and whenever its content changes; the
// resulting flag can later be overridden directly by the owner or an admin.
func Classify(content string) bool {
	return restrictedWord.MatchString(content)
}
