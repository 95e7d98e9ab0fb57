package solver

// Slot is the driver-side live state for one slot: its current
// eliminations (each tagged with the slot id of the choice that caused it,
// so it can be selectively undone on backtrack), its live option count, its
// live glyph counts, and whether it has been fixed (verbatim in the
// template) or chosen (by search).
type Slot struct {
	ID     SlotId
	Length int

	// eliminatedBy[word] holds the id of the slot whose choice caused this
	// word's elimination, or -1 if it was eliminated before any choice was
	// made (root-level/initial elimination). Whether a word is eliminated at
	// all is kept in the parallel eliminated slice, so the zero value of
	// eliminatedBy (slot 0) is never ambiguous.
	eliminated       []bool
	eliminatedBy     []SlotId
	remainingOptions int

	fixedWordID    *WordId
	glyphCounts    GlyphCountsByCell
	// fixedGlyphCounts holds the pristine pre-choice counts once the slot
	// becomes fixed/chosen, so ClearChoice can restore them in O(1) instead
	// of recomputing.
	fixedGlyphCounts *GlyphCountsByCell
}

// NewSlot builds the initial driver state for a slot with the given initial
// option list, whose glyph counts the caller has already built into
// glyphCounts, marking it fixed if fixedWordID is non-nil.
func NewSlot(id SlotId, length int, totalWordsOfLength int, initialOptions []WordId, glyphCounts GlyphCountsByCell, fixedWordID *WordId) *Slot {
	s := &Slot{
		ID:               id,
		Length:           length,
		eliminated:       make([]bool, totalWordsOfLength),
		eliminatedBy:     make([]SlotId, totalWordsOfLength),
		remainingOptions: len(initialOptions),
		glyphCounts:      glyphCounts,
	}
	if fixedWordID != nil {
		s.fixedWordID = fixedWordID
		fixed := glyphCounts.Clone()
		s.fixedGlyphCounts = &fixed
	}
	return s
}

// IsEliminated reports whether word has been eliminated for this slot.
func (s *Slot) IsEliminated(word WordId) bool {
	return s.eliminated[word]
}

// RemainingOptionCount returns the live option count, or 1 if the slot is
// fixed (fixed slots behave as a permanent singleton regardless of what
// remainingOptions tracks).
func (s *Slot) RemainingOptionCount() int {
	if s.fixedWordID != nil {
		return 1
	}
	return s.remainingOptions
}

// IsFixed reports whether this slot currently has a verbatim or chosen
// word.
func (s *Slot) IsFixed() bool {
	return s.fixedWordID != nil
}

// FixedWordID returns the slot's fixed word, if any.
func (s *Slot) FixedWordID() (WordId, bool) {
	if s.fixedWordID == nil {
		return 0, false
	}
	return *s.fixedWordID, true
}

// GlyphCounts returns the live counts to present to the arc-consistency
// engine; while a choice is held these are the chosen word's singleton
// counts. The engine mutates whatever it's handed as its own scratch copy,
// so this always clones rather than exposing the driver's live table.
func (s *Slot) GlyphCounts() GlyphCountsByCell {
	return s.glyphCounts.Clone()
}

// ChooseWord commits word as this slot's choice: it becomes fixed for the
// remainder of this subtree, its glyph counts collapse to a singleton, and
// its old live counts are preserved for O(1) unwinding via ClearChoice.
func (s *Slot) ChooseWord(config *Config, word WordId) {
	glyphs := config.WordList.Glyphs(s.Length, word)
	fixed := s.glyphCounts.Clone()
	s.fixedGlyphCounts = &fixed
	s.glyphCounts = NewGlyphCountsByCell(s.Length, config.Alphabet)
	for cell := 0; cell < s.Length; cell++ {
		s.glyphCounts.counts[cell][glyphs[cell]] = 1
	}
	id := word
	s.fixedWordID = &id
}

// ClearChoice undoes the most recent ChooseWord, restoring the pre-choice
// live glyph counts.
func (s *Slot) ClearChoice() {
	if s.fixedGlyphCounts != nil {
		s.glyphCounts = *s.fixedGlyphCounts
	}
	s.fixedGlyphCounts = nil
	s.fixedWordID = nil
}

// AddElimination records that word has been eliminated for this slot,
// blamed on blamedSlot (or unblamed, for root-level eliminations), and
// decrements the live option count and glyph counts.
func (s *Slot) AddElimination(config *Config, word WordId, blamedSlot SlotId, hasBlame bool) {
	if s.eliminated[word] {
		return
	}
	s.eliminated[word] = true
	if hasBlame {
		s.eliminatedBy[word] = blamedSlot
	} else {
		s.eliminatedBy[word] = -1
	}
	s.remainingOptions--

	glyphs := config.WordList.Glyphs(s.Length, word)
	for cell := 0; cell < s.Length; cell++ {
		s.glyphCounts.Decrement(cell, glyphs[cell])
	}
}

// RemoveElimination undoes a single AddElimination, used to unwind a
// provisional elimination that failed to propagate.
func (s *Slot) RemoveElimination(config *Config, word WordId) {
	if !s.eliminated[word] {
		return
	}
	s.eliminated[word] = false
	s.remainingOptions++

	glyphs := config.WordList.Glyphs(s.Length, word)
	for cell := 0; cell < s.Length; cell++ {
		s.glyphCounts.counts[cell][glyphs[cell]]++
	}
}

// ClearEliminations removes exactly those eliminations attributed to
// blamedSlot (selective undo on backtrack), restoring their contribution to
// the live option count and glyph counts.
func (s *Slot) ClearEliminations(config *Config, blamedSlot SlotId) {
	for word := range s.eliminated {
		if s.eliminated[word] && s.eliminatedBy[word] == blamedSlot {
			s.RemoveElimination(config, WordId(word))
		}
	}
}

// GetChoice returns the unique surviving word id if exactly one option
// remains (fixed or otherwise reduced to a singleton by propagation).
func (s *Slot) GetChoice(options []WordId) (WordId, bool) {
	if s.fixedWordID != nil {
		return *s.fixedWordID, true
	}
	if s.remainingOptions != 1 {
		return 0, false
	}
	for _, word := range options {
		if !s.eliminated[word] {
			return word, true
		}
	}
	return 0, false
}

// Clone deep-copies this slot's state, used when starting a new search seed
// without disturbing the caller's reference state.
func (s *Slot) Clone() *Slot {
	clone := &Slot{
		ID:               s.ID,
		Length:           s.Length,
		eliminated:       append([]bool(nil), s.eliminated...),
		eliminatedBy:     append([]SlotId(nil), s.eliminatedBy...),
		remainingOptions: s.remainingOptions,
		glyphCounts:      s.glyphCounts.Clone(),
	}
	if s.fixedWordID != nil {
		id := *s.fixedWordID
		clone.fixedWordID = &id
	}
	if s.fixedGlyphCounts != nil {
		fixed := s.fixedGlyphCounts.Clone()
		clone.fixedGlyphCounts = &fixed
	}
	return clone
}
