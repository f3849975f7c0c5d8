package storage

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/conorfennell/wordcards/internal/cardid"
	"github.com/conorfennell/wordcards/internal/domain"
)

// Memory is an in-process card and category store. It keeps cards in
// insertion order and hands out copies, so callers never share state with it.
type Memory struct {
	mu         sync.RWMutex
	order      []string
	cards      map[string]domain.Card
	categories []domain.Category
	logs       []domain.ReviewLog
}

// NewMemory returns an empty store seeded with the default categories.
func NewMemory() *Memory {
	return &Memory{
		cards:      make(map[string]domain.Card),
		categories: domain.DefaultCategories(),
	}
}

// InsertCard adds a card. It fails with domain.ErrConflict when the id or the
// normalized word is already present.
func (m *Memory) InsertCard(ctx context.Context, card domain.Card) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.cards[card.ID]; ok {
		return fmt.Errorf("card %q: %w", card.Word, domain.ErrConflict)
	}
	word := cardid.Normalize(card.Word)
	for _, c := range m.cards {
		if cardid.Normalize(c.Word) == word {
			return fmt.Errorf("card %q: %w", card.Word, domain.ErrConflict)
		}
	}

	m.cards[card.ID] = card.Clone()
	m.order = append(m.order, card.ID)
	return nil
}

// GetByID returns a copy of the card with the given id.
func (m *Memory) GetByID(ctx context.Context, id string) (domain.Card, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.cards[id]
	if !ok {
		return domain.Card{}, fmt.Errorf("card %s: %w", id, domain.ErrNotFound)
	}
	return c.Clone(), nil
}

// ListAllCards returns copies of all cards in insertion order.
func (m *Memory) ListAllCards(ctx context.Context) ([]domain.Card, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]domain.Card, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.cards[id].Clone())
	}
	return out, nil
}

// Save stores the study statistics of an existing card.
func (m *Memory) Save(ctx context.Context, card domain.Card) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.cards[card.ID]
	if !ok {
		return fmt.Errorf("card %s: %w", card.ID, domain.ErrNotFound)
	}
	m.cards[card.ID] = withStats(stored, card)
	return nil
}

// SaveContent overwrites the content fields of an existing card and leaves
// its study statistics as they are.
func (m *Memory) SaveContent(ctx context.Context, card domain.Card) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.cards[card.ID]
	if !ok {
		return fmt.Errorf("card %s: %w", card.ID, domain.ErrNotFound)
	}
	m.cards[card.ID] = withContent(stored, card.Clone())
	return nil
}

// SaveAttempt stores the card's statistics and appends the review log entry.
func (m *Memory) SaveAttempt(ctx context.Context, card domain.Card, log domain.ReviewLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.cards[card.ID]
	if !ok {
		return fmt.Errorf("card %s: %w", card.ID, domain.ErrNotFound)
	}
	m.cards[card.ID] = withStats(stored, card)
	m.logs = append(m.logs, log)
	return nil
}

// DeleteCard removes a card and its review history.
func (m *Memory) DeleteCard(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.cards[id]; !ok {
		return fmt.Errorf("card %s: %w", id, domain.ErrNotFound)
	}
	delete(m.cards, id)
	m.order = slices.DeleteFunc(m.order, func(s string) bool { return s == id })
	m.logs = slices.DeleteFunc(m.logs, func(l domain.ReviewLog) bool { return l.CardID == id })
	return nil
}

// ReviewLogs returns the review history of a card, oldest first.
func (m *Memory) ReviewLogs(ctx context.Context, cardID string) ([]domain.ReviewLog, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []domain.ReviewLog
	for _, l := range m.logs {
		if l.CardID == cardID {
			out = append(out, l)
		}
	}
	return out, nil
}

// ListCategories returns all categories ordered by id.
func (m *Memory) ListCategories(ctx context.Context) ([]domain.Category, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := slices.Clone(m.categories)
	slices.SortFunc(out, func(a, b domain.Category) int {
		return strings.Compare(a.ID, b.ID)
	})
	return out, nil
}

// InsertCategory adds a category.
func (m *Memory) InsertCategory(ctx context.Context, c domain.Category) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.categories {
		if existing.ID == c.ID {
			return fmt.Errorf("category %q: %w", c.ID, domain.ErrConflict)
		}
	}
	m.categories = append(m.categories, c)
	return nil
}

func withContent(stored, from domain.Card) domain.Card {
	stored.Word = from.Word
	stored.Pronunciation = from.Pronunciation
	stored.Meaning = from.Meaning
	stored.Example = from.Example
	stored.CategoryID = from.CategoryID
	stored.Difficulty = from.Difficulty
	stored.Tags = from.Tags
	stored.SourceID = from.SourceID
	stored.UpdatedAt = from.UpdatedAt
	return stored
}

func withStats(stored, from domain.Card) domain.Card {
	stored.StudyCount = from.StudyCount
	stored.CorrectCount = from.CorrectCount
	stored.MasteryLevel = from.MasteryLevel
	if from.LastStudied != nil {
		t := *from.LastStudied
		stored.LastStudied = &t
	} else {
		stored.LastStudied = nil
	}
	stored.UpdatedAt = from.UpdatedAt
	return stored
}
