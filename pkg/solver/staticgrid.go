package solver

// staticGridAdapter establishes arc consistency against a frozen grid: no
// eliminations exist yet, and glyph counts are built fresh from each slot's
// initial option list.
type staticGridAdapter struct {
	config *Config
}

func (a staticGridAdapter) IsWordEliminated(SlotId, WordId) bool {
	return false
}

func (a staticGridAdapter) GetGlyphCounts(slot SlotId) GlyphCountsByCell {
	sc := &a.config.SlotConfigs[slot]
	return BuildGlyphCountsByCell(sc.Length, a.config.Alphabet, glyphsOf(a.config, sc.Length, a.config.SlotOptions[slot]))
}

func (a staticGridAdapter) GetSingleOption(slot SlotId, eliminations *EliminationSet) (WordId, bool) {
	for _, word := range a.config.SlotOptions[slot] {
		if !eliminations.Contains(word) {
			return word, true
		}
	}
	return 0, false
}

func glyphsOf(config *Config, length int, words []WordId) []Glyphs {
	out := make([]Glyphs, len(words))
	for i, w := range words {
		out[i] = config.WordList.Glyphs(length, w)
	}
	return out
}

// EstablishArcConsistencyForStaticGrid applies EstablishArcConsistency to a
// grid with no prior driver state: uniform unit crossing weights, and slot
// weights equal to the count of each slot's non-fixed crossing neighbours
// (minimum 1.0, per the general slot-weight definition). It validates a
// pre-filled grid: two fixed slots whose words disagree at a shared cell
// fail with an empty weight-update map, before the engine runs.
func EstablishArcConsistencyForStaticGrid(config *Config) ([]*EliminationSet, *ArcConsistencyFailure) {
	for i, sc := range config.SlotConfigs {
		if config.FixedWord[i] == nil {
			continue
		}
		glyphs := config.WordList.Glyphs(sc.Length, *config.FixedWord[i])
		for cellIdx, crossing := range sc.Crossings {
			if crossing == nil || config.FixedWord[crossing.OtherSlotID] == nil {
				continue
			}
			other := config.WordList.Glyphs(config.SlotConfigs[crossing.OtherSlotID].Length, *config.FixedWord[crossing.OtherSlotID])
			if glyphs[cellIdx] != other[crossing.OtherSlotCell] {
				return nil, &ArcConsistencyFailure{WeightUpdates: map[CrossingId]float32{}}
			}
		}
	}

	slotLengths := make([]int, len(config.SlotConfigs))
	for i, sc := range config.SlotConfigs {
		slotLengths[i] = sc.Length
	}
	eliminationSets := BuildEliminationSets(slotLengths, config.WordList.Count)

	remainingOptionCounts := make([]int, len(config.SlotConfigs))
	fixedSlots := make([]bool, len(config.SlotConfigs))
	for i := range config.SlotConfigs {
		remainingOptionCounts[i] = len(config.SlotOptions[i])
		fixedSlots[i] = config.FixedWord[i] != nil
	}

	crossingWeights := make([]float32, config.CrossingCount)
	for i := range crossingWeights {
		crossingWeights[i] = 1.0
	}

	slotWeights := calculateSlotWeights(config, fixedSlots, crossingWeights)

	adapter := staticGridAdapter{config: config}

	failure := EstablishArcConsistency(
		config,
		adapter,
		remainingOptionCounts,
		crossingWeights,
		slotWeights,
		fixedSlots,
		nil,
		eliminationSets,
	)
	if failure != nil {
		return nil, failure
	}
	return eliminationSets, nil
}
