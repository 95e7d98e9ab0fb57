package solver

import "sort"

// ArcConsistencyFailure reports, for each crossing, its share of the blame
// for the domain wipeout that failed this engine call.
type ArcConsistencyFailure struct {
	WeightUpdates map[CrossingId]float32
}

func (f *ArcConsistencyFailure) Error() string {
	return "arc consistency failed: a slot's domain was wiped out"
}

// arcConsistencySlotState tracks one slot's progress through a single
// EstablishArcConsistency call.
type arcConsistencySlotState struct {
	slotID SlotId

	eliminations *EliminationSet
	blameCounts  []int // indexed by cell

	optionCount int

	glyphCounts     GlyphCountsByCell
	haveGlyphCounts bool

	queuedCellIdxs []int
	hasQueue       bool

	needsSingletonPropagation bool
}

func (s *arcConsistencySlotState) getGlyphCounts(adapter ArcConsistencyAdapter) GlyphCountsByCell {
	if !s.haveGlyphCounts {
		s.glyphCounts = adapter.GetGlyphCounts(s.slotID)
		s.haveGlyphCounts = true
	}
	return s.glyphCounts
}

func (s *arcConsistencySlotState) enqueueCell(cell int) {
	if !s.hasQueue {
		s.queuedCellIdxs = make([]int, 0, 4)
		s.hasQueue = true
	}
	for _, c := range s.queuedCellIdxs {
		if c == cell {
			return
		}
	}
	s.queuedCellIdxs = append(s.queuedCellIdxs, cell)
}

// EstablishArcConsistency determines which eliminations are needed to bring
// the grid into an arc-consistent state, alternating binary AC-3
// propagation with singleton (dupe) propagation until neither phase makes
// further progress. If the grid cannot be made consistent, it reports which
// crossings were responsible.
//
// eliminationSets is reset on entry and, on success, holds exactly the
// eliminations this call applied; on failure its contents are unspecified
// and must not be committed by the caller.
func EstablishArcConsistency(
	config *Config,
	adapter ArcConsistencyAdapter,
	initialOptionCounts []int,
	crossingWeights []float32,
	slotWeights []float32,
	fixedSlots []bool,
	evaluatingSlot *SlotId,
	eliminationSets []*EliminationSet,
) *ArcConsistencyFailure {
	slotStates := make([]arcConsistencySlotState, len(config.SlotConfigs))
	for i, sc := range config.SlotConfigs {
		eliminationSets[i].Reset()
		slotStates[i] = arcConsistencySlotState{
			slotID:       sc.ID,
			eliminations: eliminationSets[i],
			blameCounts:  make([]int, sc.Length),
			optionCount:  initialOptionCounts[sc.ID],
		}
	}

	var initialSlotIDs []SlotId
	if evaluatingSlot != nil {
		initialSlotIDs = []SlotId{*evaluatingSlot}
	} else {
		initialSlotIDs = make([]SlotId, len(config.SlotConfigs))
		for i := range config.SlotConfigs {
			initialSlotIDs[i] = SlotId(i)
		}
	}

	for _, slotID := range initialSlotIDs {
		st := &slotStates[slotID]
		if st.optionCount == 0 {
			return &ArcConsistencyFailure{WeightUpdates: map[CrossingId]float32{}}
		}

		queued := make([]int, 0, len(config.SlotConfigs[slotID].Crossings))
		for cellIdx, crossing := range config.SlotConfigs[slotID].Crossings {
			if crossing != nil && !fixedSlots[crossing.OtherSlotID] {
				queued = append(queued, cellIdx)
			}
		}
		st.queuedCellIdxs = queued
		st.hasQueue = true

		if st.optionCount == 1 {
			st.needsSingletonPropagation = true
		}
	}

	eliminate := func(slotID SlotId, word WordId, blamedCellIdx int, hasBlamedCell bool) *ArcConsistencyFailure {
		sc := &config.SlotConfigs[slotID]
		st := &slotStates[slotID]

		st.eliminations.Add(word)
		st.optionCount--
		if hasBlamedCell {
			st.blameCounts[blamedCellIdx]++
		}

		if st.optionCount == 0 {
			initialCount := float32(initialOptionCounts[slotID])
			updates := make(map[CrossingId]float32)
			for cellIdx, crossing := range sc.Crossings {
				if crossing == nil {
					continue
				}
				updates[crossing.CrossingID] = float32(st.blameCounts[cellIdx]) / initialCount
			}
			return &ArcConsistencyFailure{WeightUpdates: updates}
		}

		if st.optionCount == 1 {
			st.needsSingletonPropagation = true
		}

		glyphs := config.WordList.Glyphs(sc.Length, word)
		counts := st.getGlyphCounts(adapter)
		for cellIdx := 0; cellIdx < sc.Length; cellIdx++ {
			glyph := glyphs[cellIdx]
			counts.Decrement(cellIdx, glyph)

			if hasBlamedCell && blamedCellIdx == cellIdx {
				continue
			}

			if counts.At(cellIdx, glyph) == 0 {
				crossing := sc.Crossings[cellIdx]
				if crossing == nil || fixedSlots[crossing.OtherSlotID] {
					continue
				}
				otherCounts := slotStates[crossing.OtherSlotID].getGlyphCounts(adapter)
				if otherCounts.At(crossing.OtherSlotCell, glyph) > 0 {
					st.enqueueCell(cellIdx)
				}
			}
		}

		return nil
	}

	for {
		// Phase 1: binary AC-3.
		for {
			slotID, found := selectQueuedSlot(slotStates, slotWeights)
			if !found {
				break
			}

			st := &slotStates[slotID]
			cellIdxs := st.queuedCellIdxs
			st.queuedCellIdxs = nil
			st.hasQueue = false

			sort.SliceStable(cellIdxs, func(i, j int) bool {
				ci := config.SlotConfigs[slotID].Crossings[cellIdxs[i]].CrossingID
				cj := config.SlotConfigs[slotID].Crossings[cellIdxs[j]].CrossingID
				return crossingWeights[ci] > crossingWeights[cj]
			})

			for _, cellIdx := range cellIdxs {
				crossing := config.SlotConfigs[slotID].Crossings[cellIdx]
				otherSlotID := crossing.OtherSlotID
				otherSlotCell := crossing.OtherSlotCell
				otherSlotConfig := &config.SlotConfigs[otherSlotID]

				for _, otherWord := range config.SlotOptions[otherSlotID] {
					if adapter.IsWordEliminated(otherSlotID, otherWord) ||
						slotStates[otherSlotID].eliminations.Contains(otherWord) {
						continue
					}

					otherGlyphs := config.WordList.Glyphs(otherSlotConfig.Length, otherWord)
					glyph := otherGlyphs[otherSlotCell]

					matching := st.getGlyphCounts(adapter).At(cellIdx, glyph)
					if matching == 0 {
						if failure := eliminate(otherSlotID, otherWord, otherSlotCell, true); failure != nil {
							return failure
						}
					}
				}
			}
		}

		// Phase 2: singleton (dupe) propagation.
		var singletonSlotIDs []SlotId
		for i := range slotStates {
			if slotStates[i].needsSingletonPropagation {
				slotStates[i].needsSingletonPropagation = false
				singletonSlotIDs = append(singletonSlotIDs, slotStates[i].slotID)
			}
		}

		for _, slotID := range singletonSlotIDs {
			sc := &config.SlotConfigs[slotID]
			word, ok := adapter.GetSingleOption(slotID, slotStates[slotID].eliminations)
			if !ok {
				panic("solver: needsSingletonPropagation slot has no single option")
			}

			dupesByLength := config.DupeIndex.DupesByLength(sc.Length, word)

			for otherSlotID := range config.SlotConfigs {
				if SlotId(otherSlotID) == slotID || fixedSlots[otherSlotID] {
					continue
				}
				otherSlotConfig := &config.SlotConfigs[otherSlotID]
				dupeIDs, ok := dupesByLength[otherSlotConfig.Length]
				if !ok {
					continue
				}
				for _, otherWord := range config.SlotOptions[otherSlotID] {
					if adapter.IsWordEliminated(SlotId(otherSlotID), otherWord) {
						continue
					}
					if _, isDupe := dupeIDs[otherWord]; !isDupe {
						continue
					}
					if slotStates[otherSlotID].eliminations.Contains(otherWord) {
						continue
					}
					if failure := eliminate(SlotId(otherSlotID), otherWord, 0, false); failure != nil {
						return failure
					}
				}
			}
		}

		done := true
		for i := range slotStates {
			if slotStates[i].hasQueue || slotStates[i].needsSingletonPropagation {
				done = false
				break
			}
		}
		if done {
			break
		}
	}

	return nil
}

// selectQueuedSlot picks the queued slot minimizing option_count/slot_weight
// (dom/wdeg), breaking ties by the smallest SlotId (slots are iterated in
// id order, so the first minimum found is already the smallest id).
func selectQueuedSlot(slotStates []arcConsistencySlotState, slotWeights []float32) (SlotId, bool) {
	best := -1
	var bestRatio float32
	for i := range slotStates {
		if !slotStates[i].hasQueue {
			continue
		}
		ratio := float32(slotStates[i].optionCount) / slotWeights[i]
		if best == -1 || ratio < bestRatio {
			best = i
			bestRatio = ratio
		}
	}
	if best == -1 {
		return 0, false
	}
	return SlotId(best), true
}
