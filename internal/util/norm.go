package util

import "golang.org/x/text/unicode/norm"

// Normalize applies NFKD normalization so that visually identical input
// (composed vs decomposed accents, fullwidth digits) derives the same bytes
// regardless of the keyboard that produced it.
func Normalize(s string) string {
	return norm.NFKD.String(s)
}
