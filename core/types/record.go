package types

import "encoding/binary"

// Discriminator tags the concrete record type stored behind a key in
// storage.Database. The first 8 bytes of every persisted record are a
// discriminator; a version byte follows, per the persisted state layout.
type Discriminator uint64

const (
	DiscriminatorVerse Discriminator = iota + 1
	DiscriminatorProposal
	DiscriminatorPosition
	DiscriminatorUserCredits
	DiscriminatorChain
	DiscriminatorPriceCache
	DiscriminatorGlobalConfig
	DiscriminatorEventLog
	DiscriminatorKeeperReward
)

// RecordHeader is the fixed 9-byte prefix shared by every persisted record.
type RecordHeader struct {
	Discriminator Discriminator
	Version       uint8
}

// HeaderSize is the encoded size in bytes of RecordHeader.
const HeaderSize = 9

// Encode writes the header as an 8-byte big-endian discriminator followed by
// a single version byte.
func (h RecordHeader) Encode() []byte {
	buf := make([]byte, HeaderSize)
	binary.BigEndian.PutUint64(buf[:8], uint64(h.Discriminator))
	buf[8] = h.Version
	return buf
}

// DecodeRecordHeader parses the fixed prefix from a persisted record. It
// returns the header and the remaining payload bytes.
func DecodeRecordHeader(data []byte) (RecordHeader, []byte, error) {
	if len(data) < HeaderSize {
		return RecordHeader{}, nil, ErrShortRecord
	}
	h := RecordHeader{
		Discriminator: Discriminator(binary.BigEndian.Uint64(data[:8])),
		Version:       data[8],
	}
	return h, data[HeaderSize:], nil
}
