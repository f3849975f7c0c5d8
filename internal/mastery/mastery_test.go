package mastery

import (
	"math/rand"
	"testing"
	"time"

	"github.com/conorfennell/wordcards/internal/domain"
)

var t0 = time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC)

func fixedTracker() *Tracker {
	tr := NewTracker()
	tr.Now = func() time.Time { return t0 }
	return tr
}

func cardWith(study, correct int, level domain.MasteryLevel) domain.Card {
	c := domain.NewCard("card", t0.Add(-24*time.Hour))
	c.StudyCount = study
	c.CorrectCount = correct
	c.MasteryLevel = level
	return c
}

func TestRecordCounts(t *testing.T) {
	tr := fixedTracker()

	t.Run("Correct answer", func(t *testing.T) {
		got := tr.Record(cardWith(3, 1, domain.MasteryLearning), true)
		if got.StudyCount != 4 || got.CorrectCount != 2 {
			t.Errorf("Expected counts 4/2, but got %d/%d", got.StudyCount, got.CorrectCount)
		}
	})

	t.Run("Wrong answer", func(t *testing.T) {
		got := tr.Record(cardWith(3, 1, domain.MasteryLearning), false)
		if got.StudyCount != 4 || got.CorrectCount != 1 {
			t.Errorf("Expected counts 4/1, but got %d/%d", got.StudyCount, got.CorrectCount)
		}
	})

	t.Run("Stamps last studied", func(t *testing.T) {
		got := tr.Record(cardWith(0, 0, domain.MasteryNew), false)
		if got.LastStudied == nil || !got.LastStudied.Equal(t0) {
			t.Errorf("Expected LastStudied to be %v, but got %v", t0, got.LastStudied)
		}
		if !got.UpdatedAt.Equal(t0) {
			t.Errorf("Expected UpdatedAt to be %v, but got %v", t0, got.UpdatedAt)
		}
	})

	t.Run("Leaves input untouched", func(t *testing.T) {
		in := cardWith(1, 1, domain.MasteryNew)
		tr.Record(in, true)
		if in.StudyCount != 1 || in.LastStudied != nil {
			t.Errorf("Expected input card to be unchanged, but got %+v", in)
		}
	})
}

func TestLevelTransitions(t *testing.T) {
	tr := fixedTracker()

	testCases := []struct {
		name     string
		card     domain.Card
		correct  bool
		expected domain.MasteryLevel
	}{
		{
			name:     "First attempt stays new",
			card:     cardWith(0, 0, domain.MasteryNew),
			correct:  true,
			expected: domain.MasteryNew,
		},
		{
			name:     "Second attempt moves to learning",
			card:     cardWith(1, 1, domain.MasteryNew),
			correct:  true,
			expected: domain.MasteryLearning,
		},
		{
			name:     "Five perfect attempts master the card",
			card:     cardWith(4, 4, domain.MasteryLearning),
			correct:  true,
			expected: domain.MasteryMastered,
		},
		{
			name:     "Exactly 0.8 accuracy masters the card",
			card:     cardWith(4, 3, domain.MasteryLearning),
			correct:  true,
			expected: domain.MasteryMastered,
		},
		{
			name:     "Below 0.8 at five attempts stays learning",
			card:     cardWith(4, 3, domain.MasteryLearning),
			correct:  false,
			expected: domain.MasteryLearning,
		},
		{
			name:     "Four attempts cannot master",
			card:     cardWith(3, 3, domain.MasteryLearning),
			correct:  true,
			expected: domain.MasteryLearning,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := tr.Record(tc.card, tc.correct)
			if got.MasteryLevel != tc.expected {
				t.Errorf("Expected mastery level %q, but got %q", tc.expected, got.MasteryLevel)
			}
		})
	}
}

func TestMasteredCardCanRegress(t *testing.T) {
	tr := fixedTracker()
	card := cardWith(5, 4, domain.MasteryMastered)

	for i := 0; i < 4; i++ {
		card = tr.Record(card, false)
	}

	if card.StudyCount != 9 || card.CorrectCount != 4 {
		t.Fatalf("Expected counts 9/4, but got %d/%d", card.StudyCount, card.CorrectCount)
	}
	if card.MasteryLevel != domain.MasteryLearning {
		t.Errorf("Expected mastered card to fall back to learning, but got %q", card.MasteryLevel)
	}
}

func TestCountsInvariant(t *testing.T) {
	tr := fixedTracker()
	rng := rand.New(rand.NewSource(42))
	card := cardWith(0, 0, domain.MasteryNew)

	for i := 0; i < 500; i++ {
		card = tr.Record(card, rng.Intn(2) == 0)
		if card.CorrectCount < 0 || card.CorrectCount > card.StudyCount {
			t.Fatalf("Expected 0 <= correct <= study, but got %d/%d after %d attempts", card.CorrectCount, card.StudyCount, i+1)
		}
		if card.StudyCount != i+1 {
			t.Fatalf("Expected study count %d, but got %d", i+1, card.StudyCount)
		}
		if card.MasteryLevel != tr.Level(card) {
			t.Fatalf("Expected stored level to match derived level, but got %q vs %q", card.MasteryLevel, tr.Level(card))
		}
	}
}

func TestAccuracy(t *testing.T) {
	if got := Accuracy(cardWith(0, 0, domain.MasteryNew)); got != 0 {
		t.Errorf("Expected accuracy of unstudied card to be 0, but got %.2f", got)
	}
	if got := Accuracy(cardWith(5, 4, domain.MasteryMastered)); got != 0.8 {
		t.Errorf("Expected accuracy 0.80, but got %.2f", got)
	}
}
