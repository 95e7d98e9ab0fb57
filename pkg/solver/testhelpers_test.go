package solver

import "sync/atomic"

// fakeWordTable is a minimal in-memory WordTable for tests: words are given
// as plain strings and mapped to glyphs by position in the alphabet string.
type fakeWordTable struct {
	alphabet string
	byLength map[int][]string
}

func newFakeWordTable(alphabet string, words ...string) *fakeWordTable {
	t := &fakeWordTable{alphabet: alphabet, byLength: make(map[int][]string)}
	for _, w := range words {
		t.byLength[len(w)] = append(t.byLength[len(w)], w)
	}
	return t
}

func (t *fakeWordTable) glyph(r byte) Glyph {
	for i := 0; i < len(t.alphabet); i++ {
		if t.alphabet[i] == r {
			return Glyph(i)
		}
	}
	panic("fakeWordTable: byte not in alphabet")
}

func (t *fakeWordTable) Glyphs(length int, word WordId) Glyphs {
	s := t.byLength[length][word]
	g := make(Glyphs, length)
	for i := 0; i < length; i++ {
		g[i] = t.glyph(s[i])
	}
	return g
}

func (t *fakeWordTable) Count(length int) int {
	return len(t.byLength[length])
}

func (t *fakeWordTable) wordID(word string) WordId {
	for i, w := range t.byLength[len(word)] {
		if w == word {
			return WordId(i)
		}
	}
	panic("fakeWordTable: word not registered: " + word)
}

func (t *fakeWordTable) allOptions(length int) []WordId {
	opts := make([]WordId, len(t.byLength[length]))
	for i := range opts {
		opts[i] = WordId(i)
	}
	return opts
}

// noDupeIndex reports no dupes at all, for tests that don't exercise
// singleton/dupe propagation.
type noDupeIndex struct{}

func (noDupeIndex) DupesByLength(int, WordId) map[int]map[WordId]struct{} {
	return nil
}

// selfDupeIndex treats every word as a dupe of itself, unlike the production
// index (which always excludes a word from its own dupe set). It exists to
// drive singleton propagation deterministically without depending on any
// particular alphabet of words.
type selfDupeIndex struct{}

func (selfDupeIndex) DupesByLength(length int, word WordId) map[int]map[WordId]struct{} {
	return map[int]map[WordId]struct{}{length: {word: struct{}{}}}
}

// tableDupeKey identifies one (length, word) pair for tableDupeIndex.
type tableDupeKey struct {
	length int
	word   WordId
}

// tableDupeIndex is an explicit word -> dupe-set mapping for tests that need
// precise, asymmetric control over which words are considered duplicates of
// which (entries need not be symmetric, unlike the production index).
type tableDupeIndex map[tableDupeKey]map[int]map[WordId]struct{}

func (d tableDupeIndex) DupesByLength(length int, word WordId) map[int]map[WordId]struct{} {
	return d[tableDupeKey{length: length, word: word}]
}

// slotSpec describes one slot's geometry in a hand-built test grid: its
// length, the word ids it's allowed to consider (nil means all words of
// that length), and its crossings keyed by cell index.
type slotSpec struct {
	length    int
	options   []WordId
	crossings map[int]Crossing
	fixed     *WordId
}

// buildConfig assembles a Config from a word table, dupe index, and a list
// of slot specs, computing CrossingId/CrossingCount densely by first
// appearance.
func buildConfig(words WordTable, dupes DupeIndex, specs []slotSpec) *Config {
	slotConfigs := make([]SlotConfig, len(specs))
	slotOptions := make([][]WordId, len(specs))
	fixedWord := make([]*WordId, len(specs))

	seenCrossing := make(map[[2]int]CrossingId)
	nextCrossingID := CrossingId(0)

	crossingRefs := make([][]*Crossing, len(specs))
	for i, spec := range specs {
		crossingRefs[i] = make([]*Crossing, spec.length)
	}

	for i, spec := range specs {
		for cell, c := range spec.crossings {
			key := [2]int{i, cell}
			otherKey := [2]int{int(c.OtherSlotID), c.OtherSlotCell}
			var id CrossingId
			if existing, ok := seenCrossing[otherKey]; ok {
				id = existing
			} else {
				id = nextCrossingID
				nextCrossingID++
			}
			seenCrossing[key] = id
			cc := Crossing{CrossingID: id, OtherSlotID: c.OtherSlotID, OtherSlotCell: c.OtherSlotCell}
			crossingRefs[i][cell] = &cc
		}
	}

	for i, spec := range specs {
		slotConfigs[i] = SlotConfig{ID: SlotId(i), Length: spec.length, Crossings: crossingRefs[i]}
		if spec.options != nil {
			slotOptions[i] = spec.options
		} else {
			slotOptions[i] = allOptionsFor(words, spec.length)
		}
		fixedWord[i] = spec.fixed
	}

	return &Config{
		SlotConfigs:   slotConfigs,
		SlotOptions:   slotOptions,
		WordList:      words,
		DupeIndex:     dupes,
		CrossingCount: int(nextCrossingID),
		Alphabet:      32,
		FixedWord:     fixedWord,
		Abort:         new(atomic.Bool),
	}
}

func allOptionsFor(words WordTable, length int) []WordId {
	n := words.Count(length)
	opts := make([]WordId, n)
	for i := range opts {
		opts[i] = WordId(i)
	}
	return opts
}

// buildDriverSlots constructs the driver-side Slot state for every slot in
// config, mirroring FindFill's own setup step.
func buildDriverSlots(config *Config) []*Slot {
	slots := make([]*Slot, len(config.SlotConfigs))
	for _, sc := range config.SlotConfigs {
		glyphCounts := BuildGlyphCountsByCell(sc.Length, config.Alphabet, glyphsOf(config, sc.Length, config.SlotOptions[sc.ID]))
		slots[sc.ID] = NewSlot(sc.ID, sc.Length, config.WordList.Count(sc.Length), config.SlotOptions[sc.ID], glyphCounts, config.FixedWord[sc.ID])
	}
	return slots
}

// nineWordLengthThreeList is the standard small word pool shared by several
// 3x3-grid tests.
func nineWordLengthThreeList() *fakeWordTable {
	return newFakeWordTable("ABCDEFGHIJKLMNOPQRSTUVWXYZ",
		"CAT", "CAR", "CAB", "ARK", "ARE", "ART", "TEN", "REN", "BEN")
}

// threeByThreeCrossings builds the six-slot (3 across rows, 3 down columns)
// crossing geometry for a fully open 3x3 grid: slot indices 0-2 are rows,
// 3-5 are columns, with row i cell j crossing column j cell i.
func threeByThreeCrossings() []map[int]Crossing {
	layout := make([]map[int]Crossing, 6)
	for i := 0; i < 3; i++ {
		row := map[int]Crossing{}
		for j := 0; j < 3; j++ {
			row[j] = Crossing{OtherSlotID: SlotId(3 + j), OtherSlotCell: i}
		}
		layout[i] = row
	}
	for j := 0; j < 3; j++ {
		col := map[int]Crossing{}
		for i := 0; i < 3; i++ {
			col[i] = Crossing{OtherSlotID: SlotId(i), OtherSlotCell: j}
		}
		layout[3+j] = col
	}
	return layout
}
