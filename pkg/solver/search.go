package solver

import (
	"math/rand"
)

// Tunables governing the restart-with-growth backtracking search. These are
// implementation choices, not semantic contracts: any monotone-non-increasing
// sampling distribution and any α∈(0,1), growth>1 pair will behave
// correctly, just with different search profiles.
var (
	// RandomSlotWeights biases variable selection heavily toward the
	// best-ranked candidate slot while still leaving room for the
	// occasional exploratory pick.
	RandomSlotWeights = []float64{100, 1, 1, 1, 1}
	// RandomWordWeights biases value selection the same way, over the
	// slot's surviving candidate words in canonical order.
	RandomWordWeights = []float64{100, 1, 1, 1, 1}
)

const (
	// WeightAgeFactor decays the influence of old crossing-weight bumps on
	// every failure, so the search doesn't keep refighting ancient battles.
	WeightAgeFactor = 0.99
	// RetryGrowthFactor scales max_backtracks after each exhausted retry.
	RetryGrowthFactor = 1.8
	// InterruptFrequency is how often, in states, the cooperative abort
	// flag is sampled and OnProgress is invoked.
	InterruptFrequency = 1000
	// MaxRetries bounds the restart loop.
	MaxRetries = 100000
	// initialMaxBacktracks is the starting backtrack budget for the first
	// retry.
	initialMaxBacktracks = 500
)

// Statistics describes the seed attempt that produced a result: the number
// of search states it visited and backjumps it took (both start from zero
// for each seed), and its retry index.
type Statistics struct {
	States     int
	Backtracks int
	Retries    int
}

// FailureKind distinguishes why a fill attempt did not succeed.
type FailureKind int

const (
	HardFailure FailureKind = iota
	ExceededBacktrackLimit
	Abort
)

// FillFailure is returned when a fill attempt could not produce a solution.
type FillFailure struct {
	Kind       FailureKind
	Backtracks int // populated when Kind == ExceededBacktrackLimit
}

func (f *FillFailure) Error() string {
	switch f.Kind {
	case ExceededBacktrackLimit:
		return "solver: exceeded backtrack limit"
	case Abort:
		return "solver: aborted"
	default:
		return "solver: grid is unfillable"
	}
}

// FillSuccess carries the winning assignment and the statistics gathered
// along the way.
type FillSuccess struct {
	Choices    []Choice
	Statistics Statistics
}

// arcConsistencyMode mirrors the three ways the driver invokes the engine:
// once up front against the template, then repeatedly either provisionally
// committing a choice or recording a refutation.
type arcConsistencyMode int

const (
	modeInitial arcConsistencyMode = iota
	modeChoice
	modeElimination
)

// slotAdapter is the ArcConsistencyAdapter backed by live driver Slot state,
// used for every engine call the driver makes, the initial one included.
type slotAdapter struct {
	config *Config
	slots  []*Slot
}

func (a slotAdapter) IsWordEliminated(slot SlotId, word WordId) bool {
	return a.slots[slot].IsEliminated(word)
}

func (a slotAdapter) GetGlyphCounts(slot SlotId) GlyphCountsByCell {
	return a.slots[slot].GlyphCounts()
}

func (a slotAdapter) GetSingleOption(slot SlotId, pending *EliminationSet) (WordId, bool) {
	if word, ok := a.slots[slot].FixedWordID(); ok {
		return word, true
	}
	for _, word := range a.config.SlotOptions[slot] {
		if !a.slots[slot].IsEliminated(word) && !pending.Contains(word) {
			return word, true
		}
	}
	return 0, false
}

// calculateSlotWeights derives, for every slot, the sum of incident
// crossing weights over non-fixed neighbours, floored at 1.0.
func calculateSlotWeights(config *Config, fixedSlots []bool, crossingWeights []float32) []float32 {
	weights := make([]float32, len(config.SlotConfigs))
	for i, sc := range config.SlotConfigs {
		var sum float32
		for _, crossing := range sc.Crossings {
			if crossing == nil || fixedSlots[crossing.OtherSlotID] {
				continue
			}
			sum += crossingWeights[crossing.CrossingID]
		}
		if sum < 1.0 {
			sum = 1.0
		}
		weights[i] = sum
	}
	return weights
}

// calculateSlotWeightsFromSlots is calculateSlotWeights but deriving
// fixedness from live Slot state instead of a static verbatim-only mask,
// used throughout the backtracking loop where a slot reduced to a
// singleton is treated as fixed too.
func calculateSlotWeightsFromSlots(config *Config, slots []*Slot, crossingWeights []float32) []float32 {
	fixed := make([]bool, len(slots))
	for i, s := range slots {
		fixed[i] = s.RemainingOptionCount() == 1
	}
	return calculateSlotWeights(config, fixed, crossingWeights)
}

// maintainArcConsistency runs one engine call in the given mode, applying
// its result to (or reverting it from) live slot state, and ages crossing
// weights on failure. It returns whether the call succeeded.
func maintainArcConsistency(
	config *Config,
	slots []*Slot,
	crossingWeights []float32,
	slotWeights []float32,
	mode arcConsistencyMode,
	choice Choice,
	blamedSlotID SlotId,
	hasBlamedSlot bool,
	eliminationSets []*EliminationSet,
) bool {
	switch mode {
	case modeChoice:
		slots[choice.SlotID].ChooseWord(config, choice.WordID)
	case modeElimination:
		slots[choice.SlotID].AddElimination(config, choice.WordID, blamedSlotID, hasBlamedSlot)
	}

	remainingOptionCounts := make([]int, len(slots))
	fixedSlots := make([]bool, len(slots))
	for i, s := range slots {
		remainingOptionCounts[i] = s.RemainingOptionCount()
		if mode == modeInitial {
			fixedSlots[i] = s.IsFixed()
		} else {
			fixedSlots[i] = remainingOptionCounts[i] == 1
		}
	}

	var startingSlotID *SlotId
	var blamedForApply *SlotId
	switch mode {
	case modeChoice:
		id := choice.SlotID
		startingSlotID = &id
		blamedForApply = &id
	case modeElimination:
		id := choice.SlotID
		startingSlotID = &id
		if hasBlamedSlot {
			b := blamedSlotID
			blamedForApply = &b
		}
	}

	adapter := slotAdapter{config: config, slots: slots}

	failure := EstablishArcConsistency(
		config,
		adapter,
		remainingOptionCounts,
		crossingWeights,
		slotWeights,
		fixedSlots,
		startingSlotID,
		eliminationSets,
	)

	if failure == nil {
		for slotID, set := range eliminationSets {
			for _, word := range set.EliminatedIDs() {
				if blamedForApply != nil {
					slots[slotID].AddElimination(config, word, *blamedForApply, true)
				} else {
					slots[slotID].AddElimination(config, word, 0, false)
				}
			}
		}
		return true
	}

	switch mode {
	case modeChoice:
		slots[choice.SlotID].ClearChoice()
	case modeElimination:
		slots[choice.SlotID].RemoveElimination(config, choice.WordID)
	}

	for i := range crossingWeights {
		update := failure.WeightUpdates[CrossingId(i)]
		crossingWeights[i] = 1.0 + (crossingWeights[i]-1.0)*WeightAgeFactor + update
	}
	return false
}

// FindFill runs the full restart-with-growth search for this grid: it
// establishes initial arc consistency against the template, then tries
// successive PRNG seeds with a growing backtrack budget until one succeeds
// or the retry budget is exhausted.
func FindFill(config *Config) (*FillSuccess, *FillFailure) {
	slots := make([]*Slot, len(config.SlotConfigs))
	for _, sc := range config.SlotConfigs {
		glyphCounts := BuildGlyphCountsByCell(sc.Length, config.Alphabet, glyphsOf(config, sc.Length, config.SlotOptions[sc.ID]))
		var fixedWordID *WordId
		if config.FixedWord[sc.ID] != nil {
			if len(config.SlotOptions[sc.ID]) != 1 {
				return nil, &FillFailure{Kind: HardFailure}
			}
			id := config.SlotOptions[sc.ID][0]
			fixedWordID = &id
		}
		slots[sc.ID] = NewSlot(sc.ID, sc.Length, config.WordList.Count(sc.Length), config.SlotOptions[sc.ID], glyphCounts, fixedWordID)
	}

	crossingWeights := make([]float32, config.CrossingCount)
	for i := range crossingWeights {
		crossingWeights[i] = 1.0
	}

	slotLengths := make([]int, len(config.SlotConfigs))
	for i, sc := range config.SlotConfigs {
		slotLengths[i] = sc.Length
	}
	eliminationSets := BuildEliminationSets(slotLengths, config.WordList.Count)

	initialSlotWeights := calculateSlotWeightsFromSlots(config, slots, crossingWeights)
	if !maintainArcConsistency(config, slots, crossingWeights, initialSlotWeights, modeInitial, Choice{}, 0, false, eliminationSets) {
		return nil, &FillFailure{Kind: HardFailure}
	}

	maxBacktracks := initialMaxBacktracks
	for retry := 0; retry < MaxRetries; retry++ {
		seedSlots := make([]*Slot, len(slots))
		for i, s := range slots {
			seedSlots[i] = s.Clone()
		}
		seedCrossingWeights := append([]float32(nil), crossingWeights...)

		result, failure := findFillForSeed(config, seedSlots, maxBacktracks, int64(retry), seedCrossingWeights, eliminationSets)
		if failure == nil {
			result.Statistics.Retries = retry
			copy(crossingWeights, seedCrossingWeights)
			return result, nil
		}
		if failure.Kind == ExceededBacktrackLimit {
			grown := int(float64(maxBacktracks) * RetryGrowthFactor)
			if maxBacktracks+1 > grown {
				grown = maxBacktracks + 1
			}
			maxBacktracks = grown
			copy(crossingWeights, seedCrossingWeights)
			continue
		}
		return nil, failure
	}
	return nil, &FillFailure{Kind: HardFailure}
}

// findFillForSeed runs one reproducible attempt: a single PRNG seed, its
// own cloned slot state, and a backtrack budget. Crossing weights are
// shared with the caller by reference so weight learning persists across
// seeds.
func findFillForSeed(
	config *Config,
	slots []*Slot,
	maxBacktracks int,
	seed int64,
	crossingWeights []float32,
	eliminationSets []*EliminationSet,
) (*FillSuccess, *FillFailure) {
	rng := rand.New(rand.NewSource(seed))
	var statistics Statistics

	choices := make([]Choice, 0, len(slots))

	var lastSlotID *SlotId
	var lastStartingWordIdx *int

	for {
		statistics.States++

		if statistics.States%InterruptFrequency == 0 {
			if config.Abort != nil && config.Abort.Load() {
				return nil, &FillFailure{Kind: Abort}
			}
			if config.OnProgress != nil {
				config.OnProgress(statistics)
			}
		}

		slotWeights := calculateSlotWeightsFromSlots(config, slots, crossingWeights)

		slotID, ok := chooseNextSlot(slots, slotWeights, lastSlotID, rng)
		if !ok {
			finalChoices := make([]Choice, len(slots))
			for i, s := range slots {
				word, found := s.GetChoice(config.SlotOptions[s.ID])
				if !found {
					return nil, &FillFailure{Kind: HardFailure}
				}
				finalChoices[i] = Choice{SlotID: s.ID, WordID: word}
			}
			statistics.Retries = 0
			return &FillSuccess{Choices: finalChoices, Statistics: statistics}, nil
		}

		startingWordIdx := 0
		if lastSlotID != nil && *lastSlotID == slotID && lastStartingWordIdx != nil {
			startingWordIdx = *lastStartingWordIdx
		}

		type candidate struct {
			idx  int
			word WordId
		}
		var candidates []candidate
		for i := startingWordIdx; i < len(config.SlotOptions[slotID]); i++ {
			word := config.SlotOptions[slotID][i]
			if slots[slotID].IsEliminated(word) {
				continue
			}
			candidates = append(candidates, candidate{idx: i, word: word})
			if len(candidates) == len(RandomWordWeights) {
				break
			}
		}

		if len(candidates) == 0 {
			return nil, &FillFailure{Kind: HardFailure}
		}

		pick := weightedSample(rng, RandomWordWeights[:len(candidates)])
		chosen := candidates[pick]

		lastSlotID = &slotID
		firstIdx := candidates[0].idx
		lastStartingWordIdx = &firstIdx

		choice := Choice{SlotID: slotID, WordID: chosen.word}

		if maintainArcConsistency(config, slots, crossingWeights, slotWeights, modeChoice, choice, 0, false, eliminationSets) {
			choices = append(choices, choice)
			continue
		}

		undoing := choice
		for {
			statistics.Backtracks++

			var blamed SlotId
			hasBlamed := len(choices) > 0
			if hasBlamed {
				blamed = choices[len(choices)-1].SlotID
			}

			if maintainArcConsistency(config, slots, crossingWeights, slotWeights, modeElimination, undoing, blamed, hasBlamed, eliminationSets) {
				break
			}

			if len(choices) == 0 {
				return nil, &FillFailure{Kind: HardFailure}
			}
			last := choices[len(choices)-1]
			choices = choices[:len(choices)-1]
			undoing = last

			slots[undoing.SlotID].ClearChoice()
			for _, s := range slots {
				if s.ID != undoing.SlotID && !s.IsFixed() {
					s.ClearEliminations(config, undoing.SlotID)
				}
			}

			if statistics.Backtracks > maxBacktracks {
				return nil, &FillFailure{Kind: ExceededBacktrackLimit, Backtracks: statistics.Backtracks}
			}

			lastSlotID = nil
			lastStartingWordIdx = nil
		}
	}
}

// chooseNextSlot ranks all unfixed slots by remaining_option_count /
// slot_weight ascending, takes the best few, and samples one by
// RandomSlotWeights — except it prefers the last-touched slot outright
// when that slot is still among the ranked window, since continuing the
// same slot costs nothing extra to re-examine.
func chooseNextSlot(slots []*Slot, slotWeights []float32, lastSlotID *SlotId, rng *rand.Rand) (SlotId, bool) {
	var candidates []ranked
	for _, s := range slots {
		if s.IsFixed() {
			continue
		}
		candidates = append(candidates, ranked{id: s.ID, ratio: float32(s.RemainingOptionCount()) / slotWeights[s.ID]})
	}
	if len(candidates) == 0 {
		return 0, false
	}

	sortRankedByRatio(candidates)

	window := len(RandomSlotWeights)
	if window > len(candidates) {
		window = len(candidates)
	}
	top := candidates[:window]

	if lastSlotID != nil {
		for _, c := range top {
			if c.id == *lastSlotID {
				return c.id, true
			}
		}
	}

	weights := make([]float64, window)
	for i := range top {
		weights[i] = RandomSlotWeights[i]
	}
	pick := weightedSample(rng, weights)
	return top[pick].id, true
}

// ranked pairs a slot id with its dom/wdeg ratio for selection ordering.
type ranked struct {
	id    SlotId
	ratio float32
}

func sortRankedByRatio(candidates []ranked) {
	for i := 1; i < len(candidates); i++ {
		for j := i; j > 0 && candidates[j].ratio < candidates[j-1].ratio; j-- {
			candidates[j], candidates[j-1] = candidates[j-1], candidates[j]
		}
	}
}

// weightedSample draws an index in [0, len(weights)) with probability
// proportional to each weight.
func weightedSample(rng *rand.Rand, weights []float64) int {
	var total float64
	for _, w := range weights {
		total += w
	}
	r := rng.Float64() * total
	var cumulative float64
	for i, w := range weights {
		cumulative += w
		if r < cumulative {
			return i
		}
	}
	return len(weights) - 1
}
