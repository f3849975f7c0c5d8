package parser

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/conorfennell/wordcards/internal/domain"
)

// Line prefixes of the vocabulary card format. A card starts at a word line
// and runs until the next word line, a separator or the end of the file:
//
//	W: serendipity
//	P: /ˌserənˈdɪpəti/
//	M: n. the occurrence of events by chance in a happy way
//	E: Finding that book was pure serendipity.
//	T: noun, ielts
//	C: ielts
//	---
const (
	wordPrefix          = "W:"
	pronunciationPrefix = "P:"
	meaningPrefix       = "M:"
	examplePrefix       = "E:"
	tagsPrefix          = "T:"
	categoryPrefix      = "C:"
	separator           = "---"
)

type state int

const (
	seeking state = iota
	readingWord
	readingPronunciation
	readingMeaning
	readingExample
	readingTags
	readingCategory
)

var prefixStates = []struct {
	prefix string
	state  state
}{
	{wordPrefix, readingWord},
	{pronunciationPrefix, readingPronunciation},
	{meaningPrefix, readingMeaning},
	{examplePrefix, readingExample},
	{tagsPrefix, readingTags},
	{categoryPrefix, readingCategory},
}

// ParseFile reads a file from the given path and extracts all cards.
func ParseFile(path string) ([]domain.Card, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return Parse(file)
}

// Parse reads from an io.Reader and extracts all cards. Only content fields
// are filled in; identity and study statistics are left to the caller.
// Continuation lines extend the meaning and example fields; the other fields
// are single line.
func Parse(r io.Reader) ([]domain.Card, error) {
	scanner := bufio.NewScanner(r)
	var cards []domain.Card
	var currentCard domain.Card
	var currentBlock []string
	currentState := seeking

	flushBlock := func() {
		if len(currentBlock) == 0 {
			return
		}
		content := strings.TrimSpace(strings.Join(currentBlock, "\n"))
		switch currentState {
		case readingWord:
			currentCard.Word = content
		case readingPronunciation:
			currentCard.Pronunciation = content
		case readingMeaning:
			currentCard.Meaning = content
		case readingExample:
			currentCard.Example = content
		case readingTags:
			currentCard.Tags = splitTags(content)
		case readingCategory:
			currentCard.CategoryID = strings.ToLower(content)
		}
		currentBlock = nil
	}

	finishCard := func() {
		flushBlock()
		if currentCard.Word != "" {
			cards = append(cards, currentCard)
		}
		currentCard = domain.Card{}
		currentState = seeking
	}

	for scanner.Scan() {
		line := scanner.Text()

		if strings.TrimSpace(line) == separator {
			finishCard()
			continue
		}

		next, content, ok := matchPrefix(line)
		if ok {
			flushBlock()
			if next == readingWord && currentState != seeking { // A new word always starts a new card
				finishCard()
			}
			currentState = next
			currentBlock = append(currentBlock, content)
		} else if currentState == readingMeaning || currentState == readingExample {
			currentBlock = append(currentBlock, line)
		}
	}

	finishCard() // Finish the very last card in the file

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return cards, nil
}

func matchPrefix(line string) (state, string, bool) {
	for _, p := range prefixStates {
		if strings.HasPrefix(line, p.prefix) {
			return p.state, strings.TrimPrefix(line[len(p.prefix):], " "), true
		}
	}
	return seeking, "", false
}

func splitTags(s string) []string {
	var tags []string
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}
