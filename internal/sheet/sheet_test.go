package sheet

import (
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/conorfennell/wordcards/internal/domain"
)

func writeWorkbook(t *testing.T, sheet string, rows [][]interface{}) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	if sheet != "Sheet1" {
		if _, err := f.NewSheet(sheet); err != nil {
			t.Fatalf("NewSheet() returned an unexpected error: %v", err)
		}
	}
	for i, row := range rows {
		cellName, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatal(err)
		}
		if err := f.SetSheetRow(sheet, cellName, &row); err != nil {
			t.Fatalf("SetSheetRow() returned an unexpected error: %v", err)
		}
	}

	path := filepath.Join(t.TempDir(), "deck.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("SaveAs() returned an unexpected error: %v", err)
	}
	return path
}

func TestParseFile(t *testing.T) {
	path := writeWorkbook(t, "Words", [][]interface{}{
		{"word", "pronunciation", "meaning", "example", "category", "difficulty", "tags"},
		{"Hello", "/həˈləʊ/", "int. a greeting", "Hello there!", "Basic", "Easy", "daily, greeting"},
		{"", "", "no word here"},
		{"world", "", "n. the earth"},
	})

	cards, err := ParseFile(path, Options{SheetName: "Words", SkipHeader: true})
	if err != nil {
		t.Fatalf("ParseFile() returned an unexpected error: %v", err)
	}
	if len(cards) != 2 {
		t.Fatalf("Expected 2 cards, but got %d", len(cards))
	}

	hello := cards[0]
	if hello.Word != "Hello" || hello.Meaning != "int. a greeting" || hello.Example != "Hello there!" {
		t.Errorf("Expected the first row's content, but got %+v", hello)
	}
	if hello.CategoryID != "basic" || hello.Difficulty != domain.DifficultyEasy {
		t.Errorf("Expected basic/easy, but got %s/%s", hello.CategoryID, hello.Difficulty)
	}
	if len(hello.Tags) != 2 || hello.Tags[0] != "daily" || hello.Tags[1] != "greeting" {
		t.Errorf("Expected tags [daily greeting], but got %v", hello.Tags)
	}

	world := cards[1]
	if world.Word != "world" || world.Meaning != "n. the earth" || world.Tags != nil || world.Difficulty != "" {
		t.Errorf("Expected a short row to leave trailing fields empty, but got %+v", world)
	}
}

func TestParseFileOptions(t *testing.T) {
	path := writeWorkbook(t, "Sheet1", [][]interface{}{
		{"alpha", "", "the first letter"},
	})

	t.Run("First sheet by default", func(t *testing.T) {
		cards, err := ParseFile(path, DefaultOptions())
		if err != nil {
			t.Fatalf("ParseFile() returned an unexpected error: %v", err)
		}
		if len(cards) != 0 {
			t.Errorf("Expected the only row to be taken as a header, but got %d cards", len(cards))
		}
	})

	t.Run("No header", func(t *testing.T) {
		cards, err := ParseFile(path, Options{})
		if err != nil {
			t.Fatalf("ParseFile() returned an unexpected error: %v", err)
		}
		if len(cards) != 1 {
			t.Errorf("Expected 1 card, but got %d", len(cards))
		}
	})

	t.Run("Unknown sheet", func(t *testing.T) {
		if _, err := ParseFile(path, Options{SheetName: "Missing"}); err == nil {
			t.Error("Expected an error for a missing sheet, but got nil")
		}
	})

	t.Run("Missing file", func(t *testing.T) {
		if _, err := ParseFile(filepath.Join(t.TempDir(), "none.xlsx"), DefaultOptions()); err == nil {
			t.Error("Expected an error for a missing file, but got nil")
		}
	})
}
