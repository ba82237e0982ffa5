package search

import (
	"strings"
	"unicode"

	"tweetutil/pkg/twitter"
)

// Filter decides whether a post is kept
type Filter func(twitter.Tweet) bool

// KeepAll keeps every post
func KeepAll(twitter.Tweet) bool { return true }

// PlaceFilter keeps posts that look related to place. A post matches when
// its geo place or its author's profile location contains place, or when
// one of its hashtags equals place with spaces and punctuation removed.
// An empty place keeps everything.
func PlaceFilter(place string) Filter {
	needle := strings.ToLower(strings.TrimSpace(place))
	if needle == "" {
		return KeepAll
	}
	tag := squash(needle)

	return func(t twitter.Tweet) bool {
		if t.Place != nil {
			if containsFold(t.Place.Name, needle) || containsFold(t.Place.FullName, needle) {
				return true
			}
		}
		if t.Author != nil && containsFold(t.Author.Location, needle) {
			return true
		}
		if tag == "" {
			return false
		}
		for _, h := range t.Hashtags {
			if squash(h) == tag {
				return true
			}
		}
		return false
	}
}

// All keeps a post only when every filter keeps it
func All(filters ...Filter) Filter {
	return func(t twitter.Tweet) bool {
		for _, f := range filters {
			if f != nil && !f(t) {
				return false
			}
		}
		return true
	}
}

func containsFold(s, lowerNeedle string) bool {
	return s != "" && strings.Contains(strings.ToLower(s), lowerNeedle)
}

// squash lowercases s and drops everything but letters and digits
func squash(s string) string {
	var b strings.Builder
	for _, r := range strings.TrimPrefix(s, "#") {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}
