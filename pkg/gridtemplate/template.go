// Package gridtemplate parses a crossword grid template (a block of text
// where '.' or '#' marks a black square, '_' or '-' marks a blank square to
// be solved, a letter of either case marks a verbatim pre-filled square,
// and any other character is rejected) into a
// pkg/solver Config, and renders a completed solver.Config plus its chosen
// words back into the same textual form.
package gridtemplate

import (
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/hoverbird/ingrid-core/pkg/dupeindex"
	"github.com/hoverbird/ingrid-core/pkg/solver"
	"github.com/hoverbird/ingrid-core/pkg/wordlist"
)

// MinEntryLength is the shortest word slot this package will recognise;
// a lone white cell bounded by black squares on both sides isn't a slot.
const MinEntryLength = 2

// Direction distinguishes a slot's orientation in the grid.
type Direction int

const (
	Across Direction = iota
	Down
)

func (d Direction) String() string {
	if d == Down {
		return "down"
	}
	return "across"
}

// cell is one square of the parsed template.
type cell struct {
	row, col    int
	isBlack     bool
	fixedLetter byte // 0 if blank
}

// Entry is one word slot discovered in the template: its geometry, and the
// (row, col) of every cell it covers in order.
type Entry struct {
	Number    int
	Direction Direction
	StartRow  int
	StartCol  int
	Length    int
	Positions [][2]int
}

// Grid is a parsed template: its cell geometry plus the slots discovered
// in it, each slot already assigned a solver.SlotId equal to its index in
// Entries.
type Grid struct {
	Height, Width int
	cells         [][]cell
	Entries       []Entry
}

// Parse reads a template block (rows separated by newlines, all the same
// width) into a Grid. '.' and '#' mark black squares; '_' and '-' mark
// blank squares; any letter marks a verbatim pre-filled square.
func Parse(content string) (*Grid, error) {
	lines := strings.Split(strings.TrimRight(content, "\n"), "\n")
	if len(lines) == 0 {
		return nil, fmt.Errorf("gridtemplate: empty template")
	}
	width := len(lines[0])
	if width == 0 {
		return nil, fmt.Errorf("gridtemplate: empty first row")
	}
	for i, line := range lines {
		if len(line) != width {
			return nil, fmt.Errorf("gridtemplate: row %d has length %d, expected %d", i, len(line), width)
		}
	}

	g := &Grid{Height: len(lines), Width: width}
	g.cells = make([][]cell, g.Height)
	for row, line := range lines {
		g.cells[row] = make([]cell, width)
		for col := 0; col < width; col++ {
			ch := line[col]
			c := cell{row: row, col: col}
			switch {
			case ch == '.' || ch == '#':
				c.isBlack = true
			case ch == '_' || ch == '-':
				// blank, to be solved
			case ch >= 'a' && ch <= 'z':
				c.fixedLetter = ch - 'a' + 'A'
			case ch >= 'A' && ch <= 'Z':
				c.fixedLetter = ch
			default:
				return nil, fmt.Errorf("gridtemplate: row %d col %d has unrecognised character %q", row, col, ch)
			}
			g.cells[row][col] = c
		}
	}

	g.computeEntries()
	return g, nil
}

func (g *Grid) computeEntries() {
	g.Entries = nil

	clueNumber := 1
	for row := 0; row < g.Height; row++ {
		for col := 0; col < g.Width; col++ {
			if g.cells[row][col].isBlack {
				continue
			}

			startsAcross := (col == 0 || g.cells[row][col-1].isBlack) &&
				col+1 < g.Width && !g.cells[row][col+1].isBlack
			startsDown := (row == 0 || g.cells[row-1][col].isBlack) &&
				row+1 < g.Height && !g.cells[row+1][col].isBlack

			if !startsAcross && !startsDown {
				continue
			}
			number := clueNumber
			clueNumber++

			if startsAcross {
				positions := make([][2]int, 0, g.Width-col)
				for c := col; c < g.Width && !g.cells[row][c].isBlack; c++ {
					positions = append(positions, [2]int{row, c})
				}
				if len(positions) >= MinEntryLength {
					g.Entries = append(g.Entries, Entry{
						Number: number, Direction: Across,
						StartRow: row, StartCol: col,
						Length: len(positions), Positions: positions,
					})
				}
			}
			if startsDown {
				positions := make([][2]int, 0, g.Height-row)
				for r := row; r < g.Height && !g.cells[r][col].isBlack; r++ {
					positions = append(positions, [2]int{r, col})
				}
				if len(positions) >= MinEntryLength {
					g.Entries = append(g.Entries, Entry{
						Number: number, Direction: Down,
						StartRow: row, StartCol: col,
						Length: len(positions), Positions: positions,
					})
				}
			}
		}
	}
}

// ToConfig builds a solver.Config from this parsed grid against the given
// word table and dupe index: each slot's options are the words of its
// length scoring at least minScore and matching any verbatim letters
// already in its cells, crossings are derived from shared cell positions,
// and a slot whose template cells are entirely pre-filled is marked fixed.
func (g *Grid) ToConfig(words *wordlist.Wordlist, dupes *dupeindex.DupeIndex, minScore int, abort *atomic.Bool) (*solver.Config, error) {
	slotConfigs := make([]solver.SlotConfig, len(g.Entries))
	slotOptions := make([][]solver.WordId, len(g.Entries))
	fixedWord := make([]*solver.WordId, len(g.Entries))

	// ownersByCell lists every (slotID, cellIdx) touching a given template
	// cell, used to derive crossings below: a cell touched by exactly two
	// slots is a crossing between them.
	type owner struct {
		slotID  solver.SlotId
		cellIdx int
	}
	ownersByCell := make(map[[2]int][]owner)

	for i, entry := range g.Entries {
		slotID := solver.SlotId(i)
		pattern := make([]byte, entry.Length)
		for idx, pos := range entry.Positions {
			if fl := g.cells[pos[0]][pos[1]].fixedLetter; fl != 0 {
				pattern[idx] = fl
			} else {
				pattern[idx] = '_'
			}
			key := [2]int{pos[0], pos[1]}
			ownersByCell[key] = append(ownersByCell[key], owner{slotID: slotID, cellIdx: idx})
		}

		ids := words.MatchingIDs(string(pattern), minScore)
		if len(ids) == 0 {
			return nil, fmt.Errorf("gridtemplate: slot %d (%s %d) at row %d col %d has no matching words", i, entry.Direction, entry.Number, entry.StartRow, entry.StartCol)
		}
		slotOptions[i] = ids

		allFixed := true
		for _, b := range pattern {
			if b == '_' {
				allFixed = false
				break
			}
		}
		if allFixed {
			if len(ids) != 1 {
				return nil, fmt.Errorf("gridtemplate: slot %d is verbatim %q but matches %d words, expected exactly 1", i, pattern, len(ids))
			}
			id := ids[0]
			fixedWord[i] = &id
		}

		slotConfigs[i] = solver.SlotConfig{ID: slotID, Length: entry.Length, Crossings: make([]*solver.Crossing, entry.Length)}
	}

	crossingCount := 0
	for _, ownersAtCell := range ownersByCell {
		if len(ownersAtCell) != 2 {
			continue
		}
		a, b := ownersAtCell[0], ownersAtCell[1]
		crossingID := solver.CrossingId(crossingCount)
		crossingCount++
		slotConfigs[a.slotID].Crossings[a.cellIdx] = &solver.Crossing{CrossingID: crossingID, OtherSlotID: b.slotID, OtherSlotCell: b.cellIdx}
		slotConfigs[b.slotID].Crossings[b.cellIdx] = &solver.Crossing{CrossingID: crossingID, OtherSlotID: a.slotID, OtherSlotCell: a.cellIdx}
	}

	return &solver.Config{
		SlotConfigs:   slotConfigs,
		SlotOptions:   slotOptions,
		WordList:      words,
		DupeIndex:     dupes,
		CrossingCount: crossingCount,
		Alphabet:      wordlist.Alphabet,
		FixedWord:     fixedWord,
		Abort:         abort,
	}, nil
}

// Render writes the grid back to its textual form, substituting each
// slot's chosen word into its cells. Cells never covered by any slot
// (isolated black squares, or a lone un-crossed white cell the template
// never assigned a slot to) are rendered from the template as '.' for a
// black square, the uppercase pre-filled letter, or '_' for a blank.
func (g *Grid) Render(words *wordlist.Wordlist, choices []solver.Choice) string {
	out := make([][]byte, g.Height)
	for r := range out {
		out[r] = make([]byte, g.Width)
		for c := 0; c < g.Width; c++ {
			if g.cells[r][c].isBlack {
				out[r][c] = '.'
			} else if g.cells[r][c].fixedLetter != 0 {
				out[r][c] = g.cells[r][c].fixedLetter
			} else {
				out[r][c] = '_'
			}
		}
	}

	for _, choice := range choices {
		entry := g.Entries[choice.SlotID]
		text := words.Text(entry.Length, choice.WordID)
		for idx, pos := range entry.Positions {
			out[pos[0]][pos[1]] = text[idx]
		}
	}

	lines := make([]string, g.Height)
	for r, row := range out {
		lines[r] = string(row)
	}
	return strings.Join(lines, "\n")
}
