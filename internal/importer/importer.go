// Package importer reconciles deck sources with the card repository. A
// source is a local directory or file, or a git repository that is checked
// out under the repos directory first. Cards are matched to existing ones by
// the id derived from their headword, so study statistics survive edits to a
// deck.
package importer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/conorfennell/wordcards/internal/cardid"
	"github.com/conorfennell/wordcards/internal/domain"
	"github.com/conorfennell/wordcards/internal/gitsource"
	"github.com/conorfennell/wordcards/internal/parser"
	"github.com/conorfennell/wordcards/internal/sheet"
	"github.com/conorfennell/wordcards/internal/storage"
)

// Report summarises one import run.
type Report struct {
	Sources  int      `json:"sources"`
	Parsed   int      `json:"parsed"`
	Inserted int      `json:"inserted"`
	Updated  int      `json:"updated"`
	Skipped  int      `json:"skipped"`
	Orphaned int      `json:"orphaned"`
	Errors   []string `json:"errors,omitempty"`
}

func (r *Report) add(o Report) {
	r.Sources += o.Sources
	r.Parsed += o.Parsed
	r.Inserted += o.Inserted
	r.Updated += o.Updated
	r.Skipped += o.Skipped
	r.Orphaned += o.Orphaned
	r.Errors = append(r.Errors, o.Errors...)
}

func (r *Report) fail(err error) {
	r.Errors = append(r.Errors, err.Error())
}

// Store is the persistence an import needs.
type Store interface {
	InsertCard(ctx context.Context, card domain.Card) error
	GetByID(ctx context.Context, id string) (domain.Card, error)
	GetCardsBySourceID(ctx context.Context, sourceID int64) ([]domain.Card, error)
	SaveContent(ctx context.Context, card domain.Card) error
	DeleteCard(ctx context.Context, id string) error
	ListCategories(ctx context.Context) ([]domain.Category, error)

	InsertSource(ctx context.Context, path, sourceType string) (int64, error)
	FindSourceByPath(ctx context.Context, path string) (storage.Source, error)
	GetAllSources(ctx context.Context) ([]storage.Source, error)
	UpdateSourceLastScanned(ctx context.Context, sourceID int64, at time.Time) error
	DeleteSource(ctx context.Context, sourceID int64) error
}

// Importer runs imports. Runs are serialized, so the periodic job, the API
// and the CLI never reconcile concurrently.
type Importer struct {
	db       Store
	reposDir string
	sheet    sheet.Options
	logger   *slog.Logger
	Now      func() time.Time

	mu sync.Mutex
}

// New returns an importer that checks git sources out under reposDir.
func New(db Store, reposDir string, sheetOpts sheet.Options, logger *slog.Logger) *Importer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Importer{
		db:       db,
		reposDir: reposDir,
		sheet:    sheetOpts,
		logger:   logger,
		Now:      time.Now,
	}
}

// Sources lists the registered sources.
func (im *Importer) Sources(ctx context.Context) ([]storage.Source, error) {
	return im.db.GetAllSources(ctx)
}

// AddSource registers a new source. Git URLs are stored as given; local paths
// are made absolute and must exist.
func (im *Importer) AddSource(ctx context.Context, path string) (storage.Source, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return storage.Source{}, fmt.Errorf("%w: source path is required", domain.ErrInvalidArgument)
	}

	sourceType := storage.SourceLocal
	if gitsource.IsURL(path) {
		sourceType = storage.SourceGit
	} else {
		abs, err := filepath.Abs(path)
		if err != nil {
			return storage.Source{}, fmt.Errorf("%w: %v", domain.ErrInvalidArgument, err)
		}
		if _, err := os.Stat(abs); err != nil {
			return storage.Source{}, fmt.Errorf("%w: source %s: %v", domain.ErrInvalidArgument, path, err)
		}
		path = abs
	}

	id, err := im.db.InsertSource(ctx, path, sourceType)
	if err != nil {
		return storage.Source{}, err
	}
	im.logger.Info("source added", "id", id, "type", sourceType, "path", path)
	return storage.Source{ID: id, Path: path, Type: sourceType}, nil
}

// DeleteSource unregisters a source. Its cards are kept.
func (im *Importer) DeleteSource(ctx context.Context, id int64) error {
	if err := im.db.DeleteSource(ctx, id); err != nil {
		return err
	}
	im.logger.Info("source deleted", "id", id)
	return nil
}

// ImportPath registers path as a source if it is not one already and
// reconciles it.
func (im *Importer) ImportPath(ctx context.Context, path string) (Report, error) {
	source, err := im.AddSource(ctx, path)
	if errors.Is(err, domain.ErrConflict) {
		key := strings.TrimSpace(path)
		if !gitsource.IsURL(key) {
			key, _ = filepath.Abs(key)
		}
		source, err = im.db.FindSourceByPath(ctx, key)
	}
	if err != nil {
		return Report{}, err
	}

	im.mu.Lock()
	defer im.mu.Unlock()
	return im.syncSource(ctx, source), nil
}

// RunSync reconciles every registered source. Failures of a single source
// are recorded in the report and do not stop the run.
func (im *Importer) RunSync(ctx context.Context) (Report, error) {
	im.mu.Lock()
	defer im.mu.Unlock()

	im.logger.Info("starting sync process for all sources")
	sources, err := im.db.GetAllSources(ctx)
	if err != nil {
		return Report{}, err
	}
	if len(sources) == 0 {
		im.logger.Info("no sources configured, add one with add-source <path/or/url.git>")
		return Report{}, nil
	}

	var report Report
	for _, source := range sources {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.add(im.syncSource(ctx, source))
	}
	im.logger.Info("sync process complete",
		"sources", report.Sources,
		"inserted", report.Inserted,
		"updated", report.Updated,
		"orphaned_deleted", report.Orphaned,
		"errors", len(report.Errors),
	)
	return report, nil
}

func (im *Importer) syncSource(ctx context.Context, source storage.Source) Report {
	im.logger.Info("syncing source", "id", source.ID, "type", source.Type, "path", source.Path)

	root := source.Path
	if source.Type == storage.SourceGit {
		localRepoPath, err := gitsource.LocalPath(im.reposDir, source.Path)
		if err != nil {
			im.logger.Error("error determining local path for git repo", "url", source.Path, "error", err)
			return Report{Errors: []string{err.Error()}}
		}
		if err := os.MkdirAll(filepath.Dir(localRepoPath), 0o755); err != nil {
			im.logger.Error("failed to create repos directory", "error", err)
			return Report{Errors: []string{err.Error()}}
		}
		if err := gitsource.Sync(ctx, im.logger, source.Path, localRepoPath); err != nil {
			im.logger.Error("error syncing git repo", "url", source.Path, "error", err)
			return Report{Errors: []string{err.Error()}}
		}
		root = localRepoPath
	}

	return im.reconcile(ctx, source.ID, root)
}

// reconcile brings the cards owned by a source in line with the deck files
// under root: new words are inserted, changed content is updated and cards
// whose word disappeared from the deck are deleted.
func (im *Importer) reconcile(ctx context.Context, sourceID int64, root string) Report {
	report := Report{Sources: 1}

	parsed, err := im.parseTree(root, &report)
	if err != nil {
		im.logger.Error("error walking directory", "path", root, "error", err)
		report.fail(err)
		return report
	}

	categories, err := im.categoryIDs(ctx)
	if err != nil {
		report.fail(err)
		return report
	}

	owned := make(map[string]bool)
	now := im.Now()
	for _, card := range parsed {
		card.Word = cardid.Normalize(card.Word)
		card.Meaning = strings.TrimSpace(card.Meaning)
		if card.Word == "" || card.Meaning == "" {
			report.Skipped++
			continue
		}
		card.ID = cardid.FromWord(card.Word)
		if owned[card.ID] {
			im.logger.Warn("duplicate word in source, keeping the first", "word", card.Word, "source_id", sourceID)
			report.Skipped++
			continue
		}
		if !categories[card.CategoryID] {
			card.CategoryID = domain.DefaultCategoryID
		}
		switch card.Difficulty {
		case domain.DifficultyEasy, domain.DifficultyMedium, domain.DifficultyHard:
		default:
			card.Difficulty = domain.DifficultyMedium
		}

		existing, err := im.db.GetByID(ctx, card.ID)
		switch {
		case errors.Is(err, domain.ErrNotFound):
			fresh := domain.NewCard(card.ID, now)
			fresh = withContent(fresh, card)
			fresh.SourceID = &sourceID
			if err := im.db.InsertCard(ctx, fresh); err != nil {
				report.fail(fmt.Errorf("db insert for %s: %w", card.Word, err))
				continue
			}
			im.logger.Info("new card found, inserting", "word", card.Word, "id", card.ID)
			owned[card.ID] = true
			report.Inserted++
		case err != nil:
			// The card may still be ours; keep it out of the orphan sweep.
			owned[card.ID] = true
			report.fail(fmt.Errorf("db check for %s: %w", card.Word, err))
		case existing.SourceID == nil || *existing.SourceID != sourceID:
			// Created by hand or owned by another source.
			report.Skipped++
		default:
			owned[card.ID] = true
			if sameContent(existing, card) {
				continue
			}
			updated := withContent(existing, card)
			updated.UpdatedAt = now
			if err := im.db.SaveContent(ctx, updated); err != nil {
				report.fail(fmt.Errorf("db update for %s: %w", card.Word, err))
				continue
			}
			report.Updated++
		}
	}

	dbCards, err := im.db.GetCardsBySourceID(ctx, sourceID)
	if err != nil {
		im.logger.Error("error getting cards for source", "source_id", sourceID, "error", err)
		report.fail(err)
		return report
	}
	for _, dbCard := range dbCards {
		if owned[dbCard.ID] {
			continue
		}
		im.logger.Info("orphaned card, deleting", "word", dbCard.Word, "id", dbCard.ID)
		if err := im.db.DeleteCard(ctx, dbCard.ID); err != nil {
			im.logger.Warn("failed to delete orphaned card", "id", dbCard.ID, "error", err)
			report.fail(err)
			continue
		}
		report.Orphaned++
	}

	if err := im.db.UpdateSourceLastScanned(ctx, sourceID, now); err != nil {
		im.logger.Warn("failed to update last scanned for source", "source_id", sourceID, "error", err)
	}

	im.logger.Info("reconciliation complete",
		"path", root,
		"parsed_cards", report.Parsed,
		"inserted", report.Inserted,
		"updated", report.Updated,
		"orphaned_deleted", report.Orphaned,
		"errors", len(report.Errors),
	)
	return report
}

// parseTree reads every .md and .xlsx deck under root. root may also be a
// single deck file. Files that fail to parse are recorded in the report.
func (im *Importer) parseTree(root string, report *Report) ([]domain.Card, error) {
	var cards []domain.Card
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}

		var fileCards []domain.Card
		var parseErr error
		switch strings.ToLower(filepath.Ext(d.Name())) {
		case ".md":
			fileCards, parseErr = parser.ParseFile(path)
		case ".xlsx":
			fileCards, parseErr = sheet.ParseFile(path, im.sheet)
		default:
			return nil
		}
		if parseErr != nil {
			report.fail(fmt.Errorf("parsing %s: %w", path, parseErr))
		}
		report.Parsed += len(fileCards)
		cards = append(cards, fileCards...)
		return nil
	})
	return cards, err
}

func (im *Importer) categoryIDs(ctx context.Context) (map[string]bool, error) {
	categories, err := im.db.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	ids := make(map[string]bool, len(categories))
	for _, c := range categories {
		ids[c.ID] = true
	}
	return ids, nil
}

func withContent(card, from domain.Card) domain.Card {
	card.Pronunciation = from.Pronunciation
	card.Meaning = from.Meaning
	card.Example = from.Example
	card.CategoryID = from.CategoryID
	card.Difficulty = from.Difficulty
	card.Tags = append([]string(nil), from.Tags...)
	if card.Word == "" {
		card.Word = from.Word
	}
	return card
}

func sameContent(a, b domain.Card) bool {
	return a.Pronunciation == b.Pronunciation &&
		a.Meaning == b.Meaning &&
		a.Example == b.Example &&
		a.CategoryID == b.CategoryID &&
		a.Difficulty == b.Difficulty &&
		slices.Equal(a.Tags, b.Tags)
}
