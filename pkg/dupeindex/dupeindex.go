// Package dupeindex precomputes, for every word in a wordlist, the set of
// other words considered too similar to coexist in the same grid: any pair
// sharing a contiguous substring at least as long as the configured
// threshold (e.g. BLACKBIRD and BLACKBIRDS sharing "BLACKBIRD") is treated
// as a dupe pair, mirroring the grid-construction convention that near-
// identical entries make for a bad puzzle even when they aren't literally
// the same word.
package dupeindex

import (
	"fmt"

	"github.com/hoverbird/ingrid-core/pkg/solver"
)

// MinSharedSubstring and MaxSharedSubstring bound the valid configuration
// range: below the minimum nearly every word would dupe every other word
// of the same length; above the maximum the rule stops catching realistic
// near-duplicates.
const (
	MinSharedSubstring = 3
	MaxSharedSubstring = 10
)

// Source supplies the text backing each (length, WordId) pair a dupe index
// is built over; pkg/wordlist's Wordlist satisfies this directly.
type Source interface {
	Count(length int) int
	Text(length int, id solver.WordId) string
}

// DupeIndex maps each word to the set of words, grouped by length,
// considered too similar to appear alongside it.
type DupeIndex struct {
	maxSharedSubstring int
	// dupes[length][id] holds the other (length, id) pairs sharing a
	// substring of length maxSharedSubstring with this word, grouped by
	// the dupe's own length.
	dupes map[int][]map[int]map[solver.WordId]struct{}
}

// Build indexes every word of every length present in source. lengths must
// list every word length source.Count reports words for.
func Build(source Source, lengths []int, maxSharedSubstring int) (*DupeIndex, error) {
	if maxSharedSubstring < MinSharedSubstring || maxSharedSubstring > MaxSharedSubstring {
		return nil, fmt.Errorf("dupeindex: max shared substring must be between %d and %d, got %d", MinSharedSubstring, MaxSharedSubstring, maxSharedSubstring)
	}

	// substringOwners[substring] lists every (length, id) whose text
	// contains it, so two words sharing any entry here are dupes.
	substringOwners := make(map[string][]ownerRef)

	for _, length := range lengths {
		if length < maxSharedSubstring {
			continue
		}
		count := source.Count(length)
		for id := 0; id < count; id++ {
			text := source.Text(length, solver.WordId(id))
			for start := 0; start+maxSharedSubstring <= len(text); start++ {
				sub := text[start : start+maxSharedSubstring]
				substringOwners[sub] = append(substringOwners[sub], ownerRef{length: length, id: solver.WordId(id)})
			}
		}
	}

	idx := &DupeIndex{
		maxSharedSubstring: maxSharedSubstring,
		dupes:              make(map[int][]map[int]map[solver.WordId]struct{}),
	}
	for _, length := range lengths {
		idx.dupes[length] = make([]map[int]map[solver.WordId]struct{}, source.Count(length))
	}

	for _, owners := range substringOwners {
		if len(owners) < 2 {
			continue
		}
		for _, a := range owners {
			for _, b := range owners {
				if a.length == b.length && a.id == b.id {
					continue
				}
				idx.addDupe(a, b)
			}
		}
	}

	return idx, nil
}

type ownerRef struct {
	length int
	id     solver.WordId
}

func (idx *DupeIndex) addDupe(owner, dupe ownerRef) {
	byLength := idx.dupes[owner.length][owner.id]
	if byLength == nil {
		byLength = make(map[int]map[solver.WordId]struct{})
		idx.dupes[owner.length][owner.id] = byLength
	}
	ids := byLength[dupe.length]
	if ids == nil {
		ids = make(map[solver.WordId]struct{})
		byLength[dupe.length] = ids
	}
	ids[dupe.id] = struct{}{}
}

// DupesByLength implements solver.DupeIndex.
func (idx *DupeIndex) DupesByLength(length int, word solver.WordId) map[int]map[solver.WordId]struct{} {
	if int(word) >= len(idx.dupes[length]) {
		return nil
	}
	return idx.dupes[length][word]
}
