// Package wordlist loads a Peter Broda-format (WORD;SCORE) word list and
// indexes it the way pkg/solver needs: a dense, per-length word id space
// with each word's glyph sequence precomputed, plus pattern matching for
// populating a grid's initial slot options.
package wordlist

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/hoverbird/ingrid-core/pkg/solver"
)

// Word represents a word with its score.
type Word struct {
	Text  string
	Score int
}

// Alphabet is the glyph alphabet size this encoding uses: 'A'-'Z' map to
// glyphs 0-25.
const Alphabet = 26

func glyphOf(letter byte) solver.Glyph {
	return solver.Glyph(letter - 'A')
}

// Wordlist indexes words by length, each length's bucket sorted by score
// descending so that WordId 0 is always the best-scoring word of its
// length. A word's WordId is its index into that bucket.
type Wordlist struct {
	byLength map[int][]Word
	glyphs   map[int][]solver.Glyphs
}

// LoadBrodaWordlist loads a wordlist from a file in Peter Broda's format
// (WORD;SCORE). Each line should contain a word and its score separated by
// a semicolon. Words are uppercased, grouped by length, and sorted by score
// descending. Returns an error if the file is missing or malformed.
func LoadBrodaWordlist(path string) (*Wordlist, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open wordlist file: %w", err)
	}
	defer file.Close()

	wl := &Wordlist{byLength: make(map[int][]Word)}

	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		parts := strings.Split(line, ";")
		if len(parts) != 2 {
			return nil, fmt.Errorf("malformed line %d: expected format 'WORD;SCORE', got '%s'", lineNum, line)
		}

		text := strings.ToUpper(strings.TrimSpace(parts[0]))
		scoreStr := strings.TrimSpace(parts[1])
		if text == "" {
			return nil, fmt.Errorf("malformed line %d: empty word", lineNum)
		}
		for i := 0; i < len(text); i++ {
			if text[i] < 'A' || text[i] > 'Z' {
				return nil, fmt.Errorf("malformed line %d: word %q is not all letters", lineNum, text)
			}
		}

		score, err := strconv.Atoi(scoreStr)
		if err != nil {
			return nil, fmt.Errorf("malformed line %d: invalid score '%s': %w", lineNum, scoreStr, err)
		}

		length := len(text)
		wl.byLength[length] = append(wl.byLength[length], Word{Text: text, Score: score})
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading wordlist file: %w", err)
	}

	for length := range wl.byLength {
		sort.SliceStable(wl.byLength[length], func(i, j int) bool {
			return wl.byLength[length][i].Score > wl.byLength[length][j].Score
		})
	}

	wl.buildGlyphs()
	return wl, nil
}

func (wl *Wordlist) buildGlyphs() {
	wl.glyphs = make(map[int][]solver.Glyphs, len(wl.byLength))
	for length, words := range wl.byLength {
		table := make([]solver.Glyphs, len(words))
		for id, w := range words {
			g := make(solver.Glyphs, length)
			for cell := 0; cell < length; cell++ {
				g[cell] = glyphOf(w.Text[cell])
			}
			table[id] = g
		}
		wl.glyphs[length] = table
	}
}

// GetWordsOfLength returns all words of a specific length, sorted by score
// descending. Returns an empty slice if no words of that length exist.
func (wl *Wordlist) GetWordsOfLength(length int) []Word {
	words, exists := wl.byLength[length]
	if !exists {
		return []Word{}
	}
	return words
}

// Size returns the total number of words in the wordlist.
func (wl *Wordlist) Size() int {
	count := 0
	for _, words := range wl.byLength {
		count += len(words)
	}
	return count
}

// Text returns the uppercase text of the given word id at the given
// length, used to render a completed grid back to a string.
func (wl *Wordlist) Text(length int, id solver.WordId) string {
	return wl.byLength[length][id].Text
}

// Score returns the configured quality score of the given word id.
func (wl *Wordlist) Score(length int, id solver.WordId) int {
	return wl.byLength[length][id].Score
}

// Glyphs implements solver.WordTable.
func (wl *Wordlist) Glyphs(length int, id solver.WordId) solver.Glyphs {
	return wl.glyphs[length][id]
}

// Count implements solver.WordTable.
func (wl *Wordlist) Count(length int) int {
	return len(wl.byLength[length])
}

// MatchingIDs returns the word ids of length len(pattern) whose text
// matches pattern ('_' matches any letter) and whose score is at least
// minScore, in the table's canonical (score-descending) order.
func (wl *Wordlist) MatchingIDs(pattern string, minScore int) []solver.WordId {
	words := wl.byLength[len(pattern)]
	var ids []solver.WordId
	for id, w := range words {
		if w.Score >= minScore && matchesPattern(w.Text, pattern) {
			ids = append(ids, solver.WordId(id))
		}
	}
	return ids
}

// Match finds all words matching a pattern (e.g., "J__Z" matches JAZZ,
// JIZZ, etc.) Underscore '_' matches any letter. Returns words in the
// table's canonical score-descending order.
func (wl *Wordlist) Match(pattern string) []string {
	candidates, exists := wl.byLength[len(pattern)]
	if !exists {
		return []string{}
	}
	var matches []string
	for _, word := range candidates {
		if matchesPattern(word.Text, pattern) {
			matches = append(matches, word.Text)
		}
	}
	return matches
}

func matchesPattern(word, pattern string) bool {
	if len(word) != len(pattern) {
		return false
	}
	for i := 0; i < len(word); i++ {
		if pattern[i] != '_' && pattern[i] != word[i] {
			return false
		}
	}
	return true
}
