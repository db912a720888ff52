package market

import (
	"math/big"

	"versemarket/core/errors"
	"versemarket/core/events"
	"versemarket/core/fixedpoint"
	common "versemarket/native/common"
)

// ModuleName identifies this engine to the pause-gate interface.
const ModuleName = "market"

// Engine owns Verse/Proposal/PriceCache/GlobalConfig lifecycle operations.
// AMM pricing, safety gates, and position/chain/settlement logic read and
// write the same State through their own narrow interfaces; Engine itself
// never reaches across package boundaries.
type Engine struct {
	state   State
	pauses  common.PauseView
	emitter events.Emitter
}

// NewEngine constructs an Engine with a no-op emitter; call SetState and
// SetEmitter before use.
func NewEngine() *Engine {
	return &Engine{emitter: events.NoopEmitter{}}
}

// SetState injects the persistence layer.
func (e *Engine) SetState(s State) { e.state = s }

// SetPauses injects the pause-gate view.
func (e *Engine) SetPauses(p common.PauseView) { e.pauses = p }

// SetEmitter injects the event sink.
func (e *Engine) SetEmitter(em events.Emitter) {
	if em == nil {
		em = events.NoopEmitter{}
	}
	e.emitter = em
}

func (e *Engine) guard() error {
	return common.Guard(e.pauses, ModuleName)
}

// InitGlobalConfig creates the single process-wide GlobalConfig record. It
// rejects a second call with ErrAlreadyInitialized.
func (e *Engine) InitGlobalConfig(genesisSlot uint64, fees FeeParams) (*GlobalConfig, error) {
	if err := e.guard(); err != nil {
		return nil, err
	}
	if _, ok, err := e.state.GetGlobalConfig(); err != nil {
		return nil, err
	} else if ok {
		return nil, errors.ErrAlreadyInitialized
	}
	cfg := &GlobalConfig{
		Epoch:       0,
		GenesisSlot: genesisSlot,
		Fees:        fees,
		TotalVault:  fixedpoint.Zero6464(),
		TotalOI:     fixedpoint.Zero6464(),
		Coverage:    fixedpoint.One6464(),
	}
	if err := e.state.PutGlobalConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// CreateVerse registers a new Verse. parentID may be empty for a root verse.
func (e *Engine) CreateVerse(id, parentID string) (*Verse, error) {
	if err := e.guard(); err != nil {
		return nil, err
	}
	if id == "" {
		return nil, errors.ErrInvalidInput
	}
	if _, ok, err := e.state.GetVerse(id); err != nil {
		return nil, err
	} else if ok {
		return nil, errors.ErrAlreadyInitialized
	}
	depth := 0
	if parentID != "" {
		parent, ok, err := e.state.GetVerse(parentID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, errors.ErrInvalidInput
		}
		depth = parent.Depth + 1
	}
	v := &Verse{ID: id, ParentID: parentID, Depth: depth, Status: VerseActive}
	if err := e.state.PutVerse(v); err != nil {
		return nil, err
	}
	return v, nil
}

// CreateProposal registers a new Proposal under an active Verse with the
// supplied outcome shape and initial equal-probability prices. The AMM kind
// is assigned later by the selector (native/amm), not here.
func (e *Engine) CreateProposal(id, verseID string, shape OutcomeShape, numOutcomes int, settleSlot uint64, liquidityParam fixedpoint.U6464) (*Proposal, error) {
	if err := e.guard(); err != nil {
		return nil, err
	}
	if id == "" {
		return nil, errors.ErrInvalidInput
	}
	verse, ok, err := e.state.GetVerse(verseID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.ErrInvalidInput
	}
	if verse.Status != VerseActive {
		return nil, errors.ErrWrongStatus
	}
	if shape == ShapeDiscrete && (numOutcomes < 2 || numOutcomes > 64) {
		return nil, errors.ErrInvalidOutcomeShape
	}
	if shape == ShapeBinary {
		numOutcomes = 2
	}
	if _, ok, err := e.state.GetProposal(id); err != nil {
		return nil, err
	} else if ok {
		return nil, errors.ErrAlreadyInitialized
	}

	prices := make([]fixedpoint.U6464, numOutcomes)
	equal, err := fixedpoint.NewU6464FromRat(big.NewRat(1, int64(numOutcomes)))
	if err != nil {
		return nil, err
	}
	for i := range prices {
		prices[i] = equal
	}
	quantities := make([]fixedpoint.U6464, numOutcomes)

	p := &Proposal{
		ID:             id,
		VerseID:        verseID,
		Shape:          shape,
		NumOutcomes:    numOutcomes,
		SettleSlot:     settleSlot,
		Prices:         prices,
		Quantities:     quantities,
		LiquidityParam: liquidityParam,
		Status:         ProposalPending,
	}
	if err := e.state.PutProposal(p); err != nil {
		return nil, err
	}
	if err := e.state.PutPriceCache(&PriceCache{ProposalID: id, LastPrice: prices[0]}); err != nil {
		return nil, err
	}
	return p, nil
}

// OpenProposal transitions a Pending proposal to Open, making it tradeable.
func (e *Engine) OpenProposal(id string) (*Proposal, error) {
	if err := e.guard(); err != nil {
		return nil, err
	}
	p, ok, err := e.state.GetProposal(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.ErrInvalidInput
	}
	if p.Status != ProposalPending {
		return nil, errors.ErrWrongStatus
	}
	p.Status = ProposalOpen
	return p, e.state.PutProposal(p)
}

// CoverageLeverageTier is one band of the coverage→max-leverage table
// resolving spec.md §9 Open Question (a): the engine uses a single,
// documented piecewise table rather than the multiple conflicting slopes
// the source material implied. Coverage is vault ÷ open interest; lower
// coverage tightens the cap.
type CoverageLeverageTier struct {
	MinCoverageBps uint32 // coverage, in basis points of 1.0 (10000 = fully covered)
	MaxLeverage    int
}

// DefaultCoverageLeverageTiers is the canonical table. Separately, the
// circuit breaker (native/breaker) trips when coverage falls below 10000bp
// (1.0x); coverage below the lowest band here (5000bp) caps leverage at 1x.
var DefaultCoverageLeverageTiers = []CoverageLeverageTier{
	{MinCoverageBps: 15000, MaxLeverage: 100},
	{MinCoverageBps: 12000, MaxLeverage: 50},
	{MinCoverageBps: 10000, MaxLeverage: 25},
	{MinCoverageBps: 7500, MaxLeverage: 10},
	{MinCoverageBps: 5000, MaxLeverage: 3},
}

// MaxLeverageForCoverage maps a coverage ratio (in basis points of 1.0) to
// the highest leverage tier the ratio qualifies for, walking the table from
// the most generous band down. A coverage below every band's floor yields 1x.
func MaxLeverageForCoverage(coverageBps uint32, tiers []CoverageLeverageTier) int {
	if tiers == nil {
		tiers = DefaultCoverageLeverageTiers
	}
	for _, tier := range tiers {
		if coverageBps >= tier.MinCoverageBps {
			return tier.MaxLeverage
		}
	}
	return 1
}

// RecomputeCoverage derives cfg.Coverage from cfg.TotalVault/cfg.TotalOI.
// Callers that move either figure (credit deposits/refunds, position
// opens/closes) call this before persisting the config, so Coverage never
// drifts from the two totals it is defined over. Zero open interest reads
// as fully covered: there is nothing at risk to be under-covered against.
func RecomputeCoverage(cfg *GlobalConfig) error {
	if cfg.TotalOI.Cmp(fixedpoint.Zero6464()) == 0 {
		cfg.Coverage = fixedpoint.One6464()
		return nil
	}
	ratio, err := cfg.TotalVault.Div(cfg.TotalOI)
	if err != nil {
		return err
	}
	cfg.Coverage = ratio
	return nil
}
