package mastery

import (
	"time"

	"github.com/conorfennell/wordcards/internal/domain"
)

// Thresholds holds the attempt and accuracy limits that decide a card's
// mastery level.
type Thresholds struct {
	MasteredMinAttempts int     // attempts needed before a card can be mastered
	MasteredMinAccuracy float64 // accuracy needed, inclusive, to be mastered
	LearningMinAttempts int     // attempts that move a card out of new
}

// DefaultThresholds returns the limits used by the review service.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MasteredMinAttempts: 5,
		MasteredMinAccuracy: 0.8,
		LearningMinAttempts: 2,
	}
}

// Tracker turns answered reviews into updated study statistics.
type Tracker struct {
	Thresholds Thresholds
	Now        func() time.Time
}

// NewTracker returns a Tracker with the default thresholds and the wall clock.
func NewTracker() *Tracker {
	return &Tracker{
		Thresholds: DefaultThresholds(),
		Now:        time.Now,
	}
}

// Record applies one attempt to card at the tracker's current time.
func (t *Tracker) Record(card domain.Card, correct bool) domain.Card {
	return t.Apply(card, correct, t.Now())
}

// Apply returns a copy of card with one more attempt recorded at the given
// time and the mastery level recomputed. The input card is not modified.
//
// A mastered card whose accuracy falls below the threshold drops back to
// learning; the level is never a one-way ratchet.
func (t *Tracker) Apply(card domain.Card, correct bool, at time.Time) domain.Card {
	next := card.Clone()

	next.StudyCount++
	if correct {
		next.CorrectCount++
	}
	studied := at
	next.LastStudied = &studied
	next.UpdatedAt = at

	next.MasteryLevel = t.Level(next)
	return next
}

// Level derives the mastery level from the card's counts. Cards below the
// learning threshold keep whatever level they already have.
func (t *Tracker) Level(card domain.Card) domain.MasteryLevel {
	accuracy := Accuracy(card)
	switch {
	case card.StudyCount >= t.Thresholds.MasteredMinAttempts && accuracy >= t.Thresholds.MasteredMinAccuracy:
		return domain.MasteryMastered
	case card.StudyCount >= t.Thresholds.LearningMinAttempts:
		return domain.MasteryLearning
	default:
		return card.MasteryLevel
	}
}

// Accuracy is the share of correct attempts, or 0 for an unstudied card.
func Accuracy(card domain.Card) float64 {
	if card.StudyCount == 0 {
		return 0
	}
	return float64(card.CorrectCount) / float64(card.StudyCount)
}
