package storage

import (
	"encoding/json"
	"fmt"
	"math/big"
	"sync"

	"versemarket/core/types"
	"versemarket/native/chain"
	"versemarket/native/credit"
	"versemarket/native/market"
	"versemarket/native/position"
)

// Store is the single persistence adapter backing every native engine's
// narrow State interface (market.State, position.State, chain.State,
// credit.State), keyed by the RecordHeader discriminator scheme of
// core/types and JSON-encoded payloads over a plain Database. Engines never
// see this type directly; they see only the interface their own package
// declares, per the teacher's narrow-state-port convention.
type Store struct {
	db Database

	mu              sync.Mutex
	openPositionIdx map[string][]string // "user\x00verseID" -> position IDs, rebuilt as positions are written
}

// NewStore wraps a Database with the JSON record encoding every engine
// state interface is implemented against.
func NewStore(db Database) *Store {
	return &Store{db: db, openPositionIdx: make(map[string][]string)}
}

func recordKey(disc types.Discriminator, id string) []byte {
	return append(types.RecordHeader{Discriminator: disc, Version: 1}.Encode(), []byte(id)...)
}

func (s *Store) put(disc types.Discriminator, id string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	header := types.RecordHeader{Discriminator: disc, Version: 1}.Encode()
	return s.db.Put(recordKey(disc, id), append(header, payload...))
}

// get looks up a record by discriminator and id. The underlying Database
// interface carries no typed not-found sentinel (MemDB and LevelDB each
// return their own generic error on a missing key), so any Get error here
// is treated as "not found" rather than a hard failure — consistent with
// how MemDB's own Get is implemented.
func (s *Store) get(disc types.Discriminator, id string, out any) (bool, error) {
	data, err := s.db.Get(recordKey(disc, id))
	if err != nil {
		return false, nil
	}
	_, payload, err := types.DecodeRecordHeader(data)
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return false, err
	}
	return true, nil
}

// --- native/market.State ---

func (s *Store) GetVerse(id string) (*market.Verse, bool, error) {
	v := &market.Verse{}
	ok, err := s.get(types.DiscriminatorVerse, id, v)
	if !ok || err != nil {
		return nil, ok, err
	}
	return v, true, nil
}

func (s *Store) PutVerse(v *market.Verse) error {
	return s.put(types.DiscriminatorVerse, v.ID, v)
}

func (s *Store) GetProposal(id string) (*market.Proposal, bool, error) {
	p := &market.Proposal{}
	ok, err := s.get(types.DiscriminatorProposal, id, p)
	if !ok || err != nil {
		return nil, ok, err
	}
	return p, true, nil
}

func (s *Store) PutProposal(p *market.Proposal) error {
	return s.put(types.DiscriminatorProposal, p.ID, p)
}

func (s *Store) GetPriceCache(proposalID string) (*market.PriceCache, bool, error) {
	c := &market.PriceCache{}
	ok, err := s.get(types.DiscriminatorPriceCache, proposalID, c)
	if !ok || err != nil {
		return nil, ok, err
	}
	return c, true, nil
}

func (s *Store) PutPriceCache(c *market.PriceCache) error {
	return s.put(types.DiscriminatorPriceCache, c.ProposalID, c)
}

// globalConfigKey is the fixed id under which the single process-wide
// GlobalConfig record lives; there is only ever one.
const globalConfigKey = "singleton"

func (s *Store) GetGlobalConfig() (*market.GlobalConfig, bool, error) {
	g := &market.GlobalConfig{}
	ok, err := s.get(types.DiscriminatorGlobalConfig, globalConfigKey, g)
	if !ok || err != nil {
		return nil, ok, err
	}
	return g, true, nil
}

func (s *Store) PutGlobalConfig(g *market.GlobalConfig) error {
	return s.put(types.DiscriminatorGlobalConfig, globalConfigKey, g)
}

// --- native/position.State ---

func (s *Store) GetPosition(id string) (*position.Position, bool, error) {
	p := &position.Position{}
	ok, err := s.get(types.DiscriminatorPosition, id, p)
	if !ok || err != nil {
		return nil, ok, err
	}
	return p, true, nil
}

func (s *Store) PutPosition(p *position.Position) error {
	if err := s.put(types.DiscriminatorPosition, p.ID, p); err != nil {
		return err
	}
	s.indexPosition(p)
	return nil
}

func (s *Store) indexPosition(p *position.Position) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := p.User + "\x00" + p.VerseID
	ids := s.openPositionIdx[key]
	for _, id := range ids {
		if id == p.ID {
			return
		}
	}
	s.openPositionIdx[key] = append(ids, p.ID)
}

// ListOpenPositions returns every position this process has persisted for
// (user, verseID) whose status is still Open or PartiallyLiquidated. The
// index is populated as positions are written via PutPosition, so it only
// reflects records seen by this process since it started — sufficient for
// the admin CLI, which never needs a cold historical scan.
func (s *Store) ListOpenPositions(user, verseID string) ([]*position.Position, error) {
	s.mu.Lock()
	ids := append([]string(nil), s.openPositionIdx[user+"\x00"+verseID]...)
	s.mu.Unlock()

	out := make([]*position.Position, 0, len(ids))
	for _, id := range ids {
		p, ok, err := s.GetPosition(id)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		if p.Status == position.StatusOpen || p.Status == position.StatusPartiallyLiquidated {
			out = append(out, p)
		}
	}
	return out, nil
}

// --- native/chain.State ---

func (s *Store) GetChain(id string) (*chain.Chain, bool, error) {
	c := &chain.Chain{}
	ok, err := s.get(types.DiscriminatorChain, id, c)
	if !ok || err != nil {
		return nil, ok, err
	}
	return c, true, nil
}

func (s *Store) PutChain(c *chain.Chain) error {
	return s.put(types.DiscriminatorChain, c.ID, c)
}

// --- native/credit.State ---

func creditKey(user, verseID string) string {
	return fmt.Sprintf("%s\x00%s", user, verseID)
}

func (s *Store) GetUserCredits(user, verseID string) (*credit.UserCredits, bool, error) {
	c := &credit.UserCredits{}
	ok, err := s.get(types.DiscriminatorUserCredits, creditKey(user, verseID), c)
	if !ok || err != nil {
		return nil, ok, err
	}
	return c, true, nil
}

func (s *Store) PutUserCredits(c *credit.UserCredits) error {
	return s.put(types.DiscriminatorUserCredits, creditKey(c.User, c.VerseID), c)
}

// --- native/position.KeeperRewardStore ---

func keeperRewardKey(keeper string, epoch uint64) string {
	return fmt.Sprintf("%s\x00%d", keeper, epoch)
}

// keeperRewardRecord is the JSON wire shape for position.KeeperRewardTotal;
// AccruedRaw is carried as a decimal string since big.Int has no native JSON
// encoding of its own.
type keeperRewardRecord struct {
	EpochID      uint64
	AccruedRaw   string
	Liquidations uint32
}

func (s *Store) LoadKeeperReward(keeper string, epoch uint64) (position.KeeperRewardTotal, bool, error) {
	var rec keeperRewardRecord
	ok, err := s.get(types.DiscriminatorKeeperReward, keeperRewardKey(keeper, epoch), &rec)
	if !ok || err != nil {
		return position.KeeperRewardTotal{}, ok, err
	}
	accrued, valid := new(big.Int).SetString(rec.AccruedRaw, 10)
	if !valid {
		return position.KeeperRewardTotal{}, false, fmt.Errorf("storage: invalid keeper reward accrual %q", rec.AccruedRaw)
	}
	return position.KeeperRewardTotal{EpochID: rec.EpochID, AccruedRaw: accrued, Liquidations: rec.Liquidations}, true, nil
}

func (s *Store) SaveKeeperReward(keeper string, epoch uint64, total position.KeeperRewardTotal) error {
	accrued := total.AccruedRaw
	if accrued == nil {
		accrued = big.NewInt(0)
	}
	rec := keeperRewardRecord{EpochID: total.EpochID, AccruedRaw: accrued.String(), Liquidations: total.Liquidations}
	return s.put(types.DiscriminatorKeeperReward, keeperRewardKey(keeper, epoch), rec)
}
