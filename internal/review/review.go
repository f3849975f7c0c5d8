package review

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/conorfennell/wordcards/internal/domain"
	"github.com/conorfennell/wordcards/internal/mastery"
	"github.com/conorfennell/wordcards/internal/queue"
)

// CardRepository is the persistence the scheduler needs. Implementations
// report unknown ids with domain.ErrNotFound and I/O failures with
// domain.ErrStorage. Save and SaveAttempt write only the study statistics,
// so content edits made while an attempt is in flight are kept.
type CardRepository interface {
	GetByID(ctx context.Context, id string) (domain.Card, error)
	ListAllCards(ctx context.Context) ([]domain.Card, error)
	Save(ctx context.Context, card domain.Card) error
}

// AttemptSaver is implemented by repositories that can store a card update
// together with its review log entry.
type AttemptSaver interface {
	SaveAttempt(ctx context.Context, card domain.Card, log domain.ReviewLog) error
}

// Service records review outcomes and composes study queues on top of a
// card repository. It holds no card state of its own.
type Service struct {
	repo     CardRepository
	tracker  *mastery.Tracker
	composer *queue.Composer
	logger   *slog.Logger
	locks    cardLocks
}

// NewService wires a repository to a tracker and a composer.
func NewService(repo CardRepository, tracker *mastery.Tracker, composer *queue.Composer, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:     repo,
		tracker:  tracker,
		composer: composer,
		logger:   logger,
	}
}

// RecordAttempt applies one answered review to the card with the given id
// and persists the result. The read-modify-write runs under a lock scoped to
// the card, so concurrent attempts on the same card are serialized while
// attempts on different cards proceed independently.
//
// Repository errors are returned as they are; the card is only reported
// updated once it has been saved.
func (s *Service) RecordAttempt(ctx context.Context, cardID string, correct bool) (domain.Card, error) {
	unlock := s.locks.lock(cardID)
	defer unlock()

	card, err := s.repo.GetByID(ctx, cardID)
	if err != nil {
		return domain.Card{}, err
	}

	updated := s.tracker.Record(card, correct)

	if saver, ok := s.repo.(AttemptSaver); ok {
		log := domain.ReviewLog{
			ID:        uuid.NewString(),
			CardID:    updated.ID,
			Timestamp: *updated.LastStudied,
			Correct:   correct,
		}
		err = saver.SaveAttempt(ctx, updated, log)
	} else {
		err = s.repo.Save(ctx, updated)
	}
	if err != nil {
		s.logger.Warn("failed to save review attempt", "card_id", cardID, "error", err)
		return domain.Card{}, err
	}

	if updated.MasteryLevel != card.MasteryLevel {
		s.logger.Info("mastery level changed",
			"card_id", cardID,
			"from", card.MasteryLevel,
			"to", updated.MasteryLevel,
			"study_count", updated.StudyCount,
			"correct_count", updated.CorrectCount,
		)
	}
	return updated, nil
}

// ComposeQueue reads the whole card pool and returns the next study queue.
func (s *Service) ComposeQueue(ctx context.Context, limit int) ([]domain.Card, error) {
	cards, err := s.repo.ListAllCards(ctx)
	if err != nil {
		return nil, err
	}
	return s.composer.Compose(cards, limit)
}
