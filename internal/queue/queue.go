package queue

import (
	"fmt"
	"time"

	"github.com/conorfennell/wordcards/internal/domain"
)

// DefaultLimit is the queue length used when the caller does not ask for one.
const DefaultLimit = 10

// Policy holds the bucket quotas, as percentages of the requested limit, and
// the age after which a mastered card is due again.
type Policy struct {
	NewShare      int
	LearningShare int
	StaleShare    int
	StaleAfter    time.Duration
}

// DefaultPolicy returns the 50/30/20 split with a one week staleness window.
func DefaultPolicy() Policy {
	return Policy{
		NewShare:      50,
		LearningShare: 30,
		StaleShare:    20,
		StaleAfter:    7 * 24 * time.Hour,
	}
}

// Composer builds review queues from a snapshot of the card pool.
type Composer struct {
	Policy Policy
	Now    func() time.Time
}

// NewComposer returns a Composer with the default policy and the wall clock.
func NewComposer() *Composer {
	return &Composer{
		Policy: DefaultPolicy(),
		Now:    time.Now,
	}
}

// Compose selects up to limit cards from cards: new cards first, then
// learning cards, then mastered cards not studied within the staleness
// window. Each bucket contributes at most its quota, taken in input order.
// A bucket that cannot fill its quota leaves the slots empty; they are not
// handed to another bucket. cards is not modified.
func (c *Composer) Compose(cards []domain.Card, limit int) ([]domain.Card, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: queue limit must be positive, got %d", domain.ErrInvalidArgument, limit)
	}

	now := c.Now()
	newQuota := quota(limit, c.Policy.NewShare)
	learningQuota := quota(limit, c.Policy.LearningShare)
	staleQuota := quota(limit, c.Policy.StaleShare)

	var fresh, learning, stale []domain.Card
	for _, card := range cards {
		switch card.MasteryLevel {
		case domain.MasteryNew:
			if len(fresh) < newQuota {
				fresh = append(fresh, card)
			}
		case domain.MasteryLearning:
			if len(learning) < learningQuota {
				learning = append(learning, card)
			}
		case domain.MasteryMastered:
			if len(stale) < staleQuota && c.isStale(card, now) {
				stale = append(stale, card)
			}
		}
	}

	out := make([]domain.Card, 0, limit)
	out = append(out, fresh...)
	out = append(out, learning...)
	out = append(out, stale...)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// isStale reports whether a mastered card is due for another look. Cards
// that were never studied are not considered stale.
func (c *Composer) isStale(card domain.Card, now time.Time) bool {
	if card.LastStudied == nil {
		return false
	}
	return now.Sub(*card.LastStudied) > c.Policy.StaleAfter
}

// quota is ceil(limit * pct / 100) in integer arithmetic.
func quota(limit, pct int) int {
	if pct <= 0 {
		return 0
	}
	return (limit*pct + 99) / 100
}
