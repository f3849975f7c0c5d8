// Package sheet reads vocabulary decks kept as .xlsx workbooks.
package sheet

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/conorfennell/wordcards/internal/domain"
)

// Columns, in order: word, pronunciation, meaning, example, category,
// difficulty, tags. Tags are comma separated.
const (
	colWord = iota
	colPronunciation
	colMeaning
	colExample
	colCategory
	colDifficulty
	colTags
)

// Options selects what part of a workbook holds the deck.
type Options struct {
	// SheetName is the sheet to read. Empty means the first sheet.
	SheetName string
	// SkipHeader drops the first row.
	SkipHeader bool
}

// DefaultOptions reads the first sheet and skips its header row.
func DefaultOptions() Options {
	return Options{SkipHeader: true}
}

// ParseFile extracts cards from the workbook at path. Rows without a word
// are skipped. Only content fields are filled in.
func ParseFile(path string, opts Options) ([]domain.Card, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook %s: %w", path, err)
	}
	defer f.Close()

	return parse(f, opts)
}

func parse(f *excelize.File, opts Options) ([]domain.Card, error) {
	name := opts.SheetName
	if name == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, nil
		}
		name = sheets[0]
	}

	rows, err := f.GetRows(name)
	if err != nil {
		return nil, fmt.Errorf("failed to get rows of sheet %s: %w", name, err)
	}

	var cards []domain.Card
	for i, row := range rows {
		if i == 0 && opts.SkipHeader {
			continue
		}
		word := cell(row, colWord)
		if word == "" {
			continue
		}
		card := domain.Card{
			Word:          word,
			Pronunciation: cell(row, colPronunciation),
			Meaning:       cell(row, colMeaning),
			Example:       cell(row, colExample),
			CategoryID:    strings.ToLower(cell(row, colCategory)),
			Difficulty:    domain.Difficulty(strings.ToLower(cell(row, colDifficulty))),
		}
		for _, t := range strings.Split(cell(row, colTags), ",") {
			if t = strings.TrimSpace(t); t != "" {
				card.Tags = append(card.Tags, t)
			}
		}
		cards = append(cards, card)
	}
	return cards, nil
}

// GetRows trims trailing empty cells, so short rows are common.
func cell(row []string, idx int) string {
	if idx < len(row) {
		return strings.TrimSpace(row[idx])
	}
	return ""
}
