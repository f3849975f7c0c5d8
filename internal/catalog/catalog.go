package catalog

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/conorfennell/wordcards/internal/cardid"
	"github.com/conorfennell/wordcards/internal/domain"
	"github.com/conorfennell/wordcards/internal/mastery"
)

// Repository is the storage the catalog manages cards and categories in.
type Repository interface {
	InsertCard(ctx context.Context, card domain.Card) error
	GetByID(ctx context.Context, id string) (domain.Card, error)
	ListAllCards(ctx context.Context) ([]domain.Card, error)
	SaveContent(ctx context.Context, card domain.Card) error
	DeleteCard(ctx context.Context, id string) error
	ReviewLogs(ctx context.Context, cardID string) ([]domain.ReviewLog, error)
	ListCategories(ctx context.Context) ([]domain.Category, error)
	InsertCategory(ctx context.Context, c domain.Category) error
}

// NewCardInput is the content of a card being created.
type NewCardInput struct {
	Word          string            `json:"word" validate:"required,max=50"`
	Pronunciation string            `json:"pronunciation" validate:"max=100"`
	Meaning       string            `json:"meaning" validate:"required,min=5,max=500"`
	Example       string            `json:"example" validate:"max=200"`
	CategoryID    string            `json:"categoryId" validate:"omitempty,max=50"`
	Difficulty    domain.Difficulty `json:"difficulty" validate:"omitempty,oneof=easy medium hard"`
	Tags          []string          `json:"tags" validate:"max=5,dive,required,max=15"`
}

// UpdateCardInput holds the content fields to change. Nil fields are left
// alone. The headword is the card's identity and cannot be changed, and study
// statistics are not reachable from here.
type UpdateCardInput struct {
	Pronunciation *string            `json:"pronunciation" validate:"omitempty,max=100"`
	Meaning       *string            `json:"meaning" validate:"omitempty,min=5,max=500"`
	Example       *string            `json:"example" validate:"omitempty,max=200"`
	CategoryID    *string            `json:"categoryId" validate:"omitempty,min=1,max=50"`
	Difficulty    *domain.Difficulty `json:"difficulty" validate:"omitempty,oneof=easy medium hard"`
	Tags          []string           `json:"tags" validate:"omitempty,max=5,dive,required,max=15"`
}

// NewCategoryInput is a category being created.
type NewCategoryInput struct {
	ID          string `json:"id" validate:"required,max=50,slug"`
	Name        string `json:"name" validate:"required,max=50"`
	Description string `json:"description" validate:"max=200"`
}

// Service manages the card collection outside of study sessions.
type Service struct {
	repo     Repository
	validate *validator.Validate
	Now      func() time.Time
}

// NewService returns a catalog over repo.
func NewService(repo Repository) *Service {
	return &Service{
		repo:     repo,
		validate: NewValidator(),
		Now:      time.Now,
	}
}

// NewValidator returns a validator that reports fields by their JSON names.
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	if err := v.RegisterValidation("slug", func(fl validator.FieldLevel) bool {
		return slugPattern.MatchString(fl.Field().String())
	}); err != nil {
		panic(err)
	}
	return v
}

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:[-_][a-z0-9]+)*$`)

// CheckStruct validates s and turns validation failures into domain.ErrInvalidArgument.
func CheckStruct(v *validator.Validate, s any) error {
	err := v.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", domain.ErrInvalidArgument, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s fails %s=%s", fe.Field(), fe.Tag(), fe.Param()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s fails %s", fe.Field(), fe.Tag()))
		}
	}
	return fmt.Errorf("%w: %s", domain.ErrInvalidArgument, strings.Join(msgs, "; "))
}

// Create validates in and stores a new card with fresh study statistics. The
// headword is normalized first; a word that already exists fails with
// domain.ErrConflict.
func (s *Service) Create(ctx context.Context, in NewCardInput) (domain.Card, error) {
	in.Word = cardid.Normalize(in.Word)
	in.Meaning = strings.TrimSpace(in.Meaning)
	if err := CheckStruct(s.validate, in); err != nil {
		return domain.Card{}, err
	}

	card := domain.NewCard(cardid.FromWord(in.Word), s.Now())
	card.Word = in.Word
	card.Pronunciation = in.Pronunciation
	card.Meaning = in.Meaning
	card.Example = in.Example
	card.Tags = append([]string{}, in.Tags...)
	if in.CategoryID != "" {
		card.CategoryID = in.CategoryID
	}
	if in.Difficulty != "" {
		card.Difficulty = in.Difficulty
	}
	if err := s.checkCategory(ctx, card.CategoryID); err != nil {
		return domain.Card{}, err
	}

	if err := s.repo.InsertCard(ctx, card); err != nil {
		return domain.Card{}, err
	}
	return card, nil
}

// Get returns one card.
func (s *Service) Get(ctx context.Context, id string) (domain.Card, error) {
	return s.repo.GetByID(ctx, id)
}

// Update merges the set fields of in into the card's content.
func (s *Service) Update(ctx context.Context, id string, in UpdateCardInput) (domain.Card, error) {
	if err := CheckStruct(s.validate, in); err != nil {
		return domain.Card{}, err
	}

	card, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return domain.Card{}, err
	}
	if in.Pronunciation != nil {
		card.Pronunciation = *in.Pronunciation
	}
	if in.Meaning != nil {
		card.Meaning = strings.TrimSpace(*in.Meaning)
	}
	if in.Example != nil {
		card.Example = *in.Example
	}
	if in.CategoryID != nil {
		if err := s.checkCategory(ctx, *in.CategoryID); err != nil {
			return domain.Card{}, err
		}
		card.CategoryID = *in.CategoryID
	}
	if in.Difficulty != nil {
		card.Difficulty = *in.Difficulty
	}
	if in.Tags != nil {
		card.Tags = append([]string{}, in.Tags...)
	}
	card.UpdatedAt = s.Now()

	if err := s.repo.SaveContent(ctx, card); err != nil {
		return domain.Card{}, err
	}
	return s.repo.GetByID(ctx, id)
}

// Delete removes a card.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.DeleteCard(ctx, id)
}

// History returns the review log of a card.
func (s *Service) History(ctx context.Context, id string) ([]domain.ReviewLog, error) {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return s.repo.ReviewLogs(ctx, id)
}

// Search returns the cards matching f, in storage order.
func (s *Service) Search(ctx context.Context, f domain.CardFilter) ([]domain.Card, error) {
	cards, err := s.repo.ListAllCards(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Card, 0, len(cards))
	for _, c := range cards {
		if f.Matches(c) {
			out = append(out, c)
		}
	}
	return out, nil
}

// Statistics summarises the card pool. A card counts as studied today when
// its last attempt falls on the current calendar day in the clock's location.
func (s *Service) Statistics(ctx context.Context) (domain.Statistics, error) {
	cards, err := s.repo.ListAllCards(ctx)
	if err != nil {
		return domain.Statistics{}, err
	}
	return Summarize(cards, s.Now()), nil
}

// Summarize computes statistics for cards as of now.
func Summarize(cards []domain.Card, now time.Time) domain.Statistics {
	var (
		st             domain.Statistics
		study, correct int
	)
	y, m, d := now.Date()
	for _, c := range cards {
		st.Total++
		switch c.MasteryLevel {
		case domain.MasteryNew:
			st.New++
		case domain.MasteryLearning:
			st.Learning++
		case domain.MasteryMastered:
			st.Mastered++
		}
		if c.LastStudied != nil {
			ly, lm, ld := c.LastStudied.In(now.Location()).Date()
			if ly == y && lm == m && ld == d {
				st.StudiedToday++
			}
		}
		study += c.StudyCount
		correct += c.CorrectCount
	}
	st.Accuracy = mastery.Accuracy(domain.Card{StudyCount: study, CorrectCount: correct})
	return st
}

// Categories lists all categories.
func (s *Service) Categories(ctx context.Context) ([]domain.Category, error) {
	return s.repo.ListCategories(ctx)
}

// CreateCategory validates and stores a new category.
func (s *Service) CreateCategory(ctx context.Context, in NewCategoryInput) (domain.Category, error) {
	in.ID = strings.ToLower(strings.TrimSpace(in.ID))
	if err := CheckStruct(s.validate, in); err != nil {
		return domain.Category{}, err
	}
	c := domain.Category{ID: in.ID, Name: in.Name, Description: in.Description}
	if err := s.repo.InsertCategory(ctx, c); err != nil {
		return domain.Category{}, err
	}
	return c, nil
}

func (s *Service) checkCategory(ctx context.Context, id string) error {
	categories, err := s.repo.ListCategories(ctx)
	if err != nil {
		return err
	}
	for _, c := range categories {
		if c.ID == id {
			return nil
		}
	}
	return fmt.Errorf("%w: unknown category %q", domain.ErrInvalidArgument, id)
}
