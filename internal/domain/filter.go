package domain

import "strings"

// CardFilter narrows a card listing. Zero fields match everything.
type CardFilter struct {
	Query      string
	CategoryID string
	Difficulty Difficulty
	Mastery    MasteryLevel
}

// Matches reports whether c satisfies every set field of f. Query is a
// case-insensitive substring match over the word, meaning, example and tags.
func (f CardFilter) Matches(c Card) bool {
	if f.CategoryID != "" && c.CategoryID != f.CategoryID {
		return false
	}
	if f.Difficulty != "" && c.Difficulty != f.Difficulty {
		return false
	}
	if f.Mastery != "" && c.MasteryLevel != f.Mastery {
		return false
	}

	q := strings.ToLower(strings.TrimSpace(f.Query))
	if q == "" {
		return true
	}
	if strings.Contains(strings.ToLower(c.Word), q) ||
		strings.Contains(strings.ToLower(c.Meaning), q) ||
		strings.Contains(strings.ToLower(c.Example), q) {
		return true
	}
	for _, tag := range c.Tags {
		if strings.Contains(strings.ToLower(tag), q) {
			return true
		}
	}
	return false
}
