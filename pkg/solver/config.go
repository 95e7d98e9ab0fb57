package solver

import "sync/atomic"

// SlotConfig is the immutable geometry of one slot: its length and, for
// each cell, whether it crosses another slot.
type SlotConfig struct {
	ID        SlotId
	Length    int
	Crossings []*Crossing // len == Length; nil entry means an uncrossed cell
}

// WordTable exposes, for a given slot length, the glyph sequence of each
// known word id of that length.
type WordTable interface {
	// Glyphs returns the glyph sequence for a word of the given length.
	Glyphs(length int, word WordId) Glyphs
	// Count returns how many words of the given length are known in total
	// (the dense range of valid WordId values for that length is
	// [0, Count(length))).
	Count(length int) int
}

// DupeIndex maps a (length, word) pair to the set of word ids, grouped by
// length, considered duplicates of that word.
type DupeIndex interface {
	// DupesByLength returns, for the word of the given length and id, a map
	// from length to the set of word ids (of that length) considered
	// duplicates.
	DupesByLength(length int, word WordId) map[int]map[WordId]struct{}
}

// Config is the read-only per-run geometry and word data the engine and
// driver need: slots, their crossings, each slot's initial candidate list,
// the word table, the dupe index, and an optional cooperative-cancellation
// flag.
type Config struct {
	SlotConfigs   []SlotConfig
	SlotOptions   [][]WordId // SlotOptions[slotID] = initial candidate word ids
	WordList      WordTable
	DupeIndex     DupeIndex
	CrossingCount int
	Alphabet      int // alphabet size backing glyph/GlyphCountsByCell arrays

	// FixedWord[slotID] is non-nil when the slot's contents were given
	// verbatim in the template; such a slot must have a length-1 option
	// list and is never eliminated from.
	FixedWord []*WordId

	// Abort is a cooperative-cancellation flag the driver samples every
	// InterruptFrequency states. Nil means never cancel.
	Abort *atomic.Bool

	// OnProgress, if non-nil, is invoked every InterruptFrequency states
	// with a snapshot of the search statistics so far, at the same cadence
	// as the Abort check. Nil means no progress reporting.
	OnProgress func(Statistics)
}
