package domain

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// MasteryLevel classifies how well a card is known.
type MasteryLevel string

const (
	MasteryNew      MasteryLevel = "new"
	MasteryLearning MasteryLevel = "learning"
	MasteryMastered MasteryLevel = "mastered"
)

// Valid reports whether m is one of the known mastery levels.
func (m MasteryLevel) Valid() bool {
	switch m {
	case MasteryNew, MasteryLearning, MasteryMastered:
		return true
	}
	return false
}

// ParseMasteryLevel converts a stored or user-supplied value into a MasteryLevel.
func ParseMasteryLevel(s string) (MasteryLevel, error) {
	m := MasteryLevel(strings.ToLower(strings.TrimSpace(s)))
	if !m.Valid() {
		return "", fmt.Errorf("%w: unknown mastery level %q", ErrInvalidArgument, s)
	}
	return m, nil
}

// Difficulty is the author-assigned difficulty of a word. It does not
// influence scheduling.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Card represents a single vocabulary entry together with its study statistics.
//
// StudyCount, CorrectCount, MasteryLevel and LastStudied are owned by the
// mastery tracker. Nothing else writes them.
type Card struct {
	ID            string     `json:"id"`
	Word          string     `json:"word"`
	Pronunciation string     `json:"pronunciation"`
	Meaning       string     `json:"meaning"`
	Example       string     `json:"example"`
	CategoryID    string     `json:"categoryId"`
	Difficulty    Difficulty `json:"difficulty"`
	Tags          []string   `json:"tags"`
	SourceID      *int64     `json:"sourceId,omitempty"`

	StudyCount   int          `json:"studyCount"`
	CorrectCount int          `json:"correctCount"`
	MasteryLevel MasteryLevel `json:"masteryLevel"`
	LastStudied  *time.Time   `json:"lastStudied"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewCard returns a card with fresh study statistics.
func NewCard(id string, now time.Time) Card {
	return Card{
		ID:           id,
		CategoryID:   DefaultCategoryID,
		Difficulty:   DifficultyMedium,
		MasteryLevel: MasteryNew,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// Clone returns a deep copy of the card.
func (c Card) Clone() Card {
	out := c
	out.Tags = slices.Clone(c.Tags)
	if c.SourceID != nil {
		v := *c.SourceID
		out.SourceID = &v
	}
	if c.LastStudied != nil {
		v := *c.LastStudied
		out.LastStudied = &v
	}
	return out
}

// ReviewLog records a single answered review of a card.
type ReviewLog struct {
	ID        string    `json:"id"`
	CardID    string    `json:"cardId"`
	Timestamp time.Time `json:"timestamp"`
	Correct   bool      `json:"correct"`
}

// DefaultCategoryID is assigned to cards created without a category.
const DefaultCategoryID = "basic"

// Category groups cards for browsing. It has no effect on scheduling.
type Category struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// DefaultCategories are seeded into an empty store.
func DefaultCategories() []Category {
	return []Category{
		{ID: "basic", Name: "Basic vocabulary", Description: "Everyday words"},
		{ID: "ielts", Name: "IELTS vocabulary", Description: "High-frequency IELTS exam words"},
		{ID: "business", Name: "Business English", Description: "Words for business settings"},
	}
}

// Statistics summarises the card pool.
type Statistics struct {
	Total        int     `json:"total"`
	New          int     `json:"new"`
	Learning     int     `json:"learning"`
	Mastered     int     `json:"mastered"`
	StudiedToday int     `json:"studiedToday"`
	Accuracy     float64 `json:"accuracy"`
}
