// Package fits implements the FITS container format.
//
// A FITS file is a sequence of units (HDUs). Each unit is an ASCII header made of
// 80-byte cards followed by a binary payload whose size is fully determined by
// the header. Headers and payloads are both padded to whole 2880-byte blocks.
//
// The package covers header card framing, the binary table field codec
// (including variable-length arrays stored in the trailing heap) and the
// ones'-complement CHECKSUM/DATASUM scheme. It describes structure and data
// only: no compression, tiling or coordinate handling.
package fits

// Format constants. These never change.
const (
	// BlockSize is the alignment quantum of every header and data payload.
	BlockSize = 2880

	// CardSize is the width of one header card.
	CardSize = 80

	// CardsPerBlock is the number of cards in one header block.
	CardsPerBlock = BlockSize / CardSize

	// KeywordSize is the width of the keyword field at the start of a card.
	KeywordSize = 8

	// valueFieldEnd is the column (exclusive, zero based) where fixed-format
	// numeric and logical values end.
	valueFieldEnd = 30
)

// UnitKind identifies how a unit's payload is interpreted.
type UnitKind uint8

const (
	KindPrimary UnitKind = iota
	KindImage
	KindBinTable
	KindOther
)

func (k UnitKind) String() string {
	switch k {
	case KindPrimary:
		return "PRIMARY"
	case KindImage:
		return "IMAGE"
	case KindBinTable:
		return "BINTABLE"
	case KindOther:
		return "OTHER"
	default:
		return "UNKNOWN"
	}
}
