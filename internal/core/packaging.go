package core

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// Packaging is the per-product metadata the unit conversion resolver works
// from. All conversions chain through PIECE as the common base unit and keep
// full precision internally; callers round at the output boundary with
// RoundQuantity.
type Packaging struct {
	PiecesPerCarton  decimal.Decimal
	CartonsPerPallet decimal.Decimal
	Size             string
	Kind             LineItemKind
}

// sizeToken matches the "60x60" / "120/60" / "30*60" convention: two integer
// side lengths in centimetres separated by a single delimiter.
var sizeToken = regexp.MustCompile(`(\d+)\s*[xX*/]\s*(\d+)`)

var cm2PerM2 = decimal.NewFromInt(10000)

// ParseArea derives the area of one piece in m² from a size token.
// Returns false when the string carries no parseable token.
func ParseArea(size string) (decimal.Decimal, bool) {
	m := sizeToken.FindStringSubmatch(size)
	if m == nil {
		return decimal.Zero, false
	}
	// Side lengths are centimetres; 60x60 → 0.36 m².
	a, err := decimal.NewFromString(m[1])
	if err != nil {
		return decimal.Zero, false
	}
	b, err := decimal.NewFromString(m[2])
	if err != nil {
		return decimal.Zero, false
	}
	area := a.Mul(b).Div(cm2PerM2)
	if area.IsZero() {
		return decimal.Zero, false
	}
	return area, true
}

// ClassifyLineItem computes the LineItemKind once at ingestion, from the
// naming conventions the catalog data actually uses. "FICHE" lines are
// reference sheets; transport and service charges are not physical goods.
func ClassifyLineItem(code, name string) LineItemKind {
	u := strings.ToUpper(code + " " + name)
	if strings.Contains(u, "FICHE") {
		return KindReferenceSheet
	}
	for _, kw := range []string{"TRANSPORT", "LIVRAISON", "SERVICE", "FRAIS"} {
		if strings.Contains(u, kw) {
			return KindService
		}
	}
	return KindPhysicalGood
}

// AreaPerPiece returns the m² covered by one piece, or
// ErrUnsupportedConversion when the size token is not parseable.
func (p Packaging) AreaPerPiece() (decimal.Decimal, error) {
	area, ok := ParseArea(p.Size)
	if !ok {
		return decimal.Zero, fmt.Errorf("no area derivable from size %q: %w", p.Size, ErrUnsupportedConversion)
	}
	return area, nil
}

// Convert expresses qty, given in the from unit, in the to unit.
//
// Non-physical lines (service charges, reference sheets) short-circuit: their
// quantity is already canonical and is returned unchanged, so a transport
// line never grows spurious carton or pallet numbers.
func (p Packaging) Convert(qty decimal.Decimal, from, to Unit) (decimal.Decimal, error) {
	if qty.IsNegative() {
		return decimal.Zero, fmt.Errorf("quantity %s: %w", qty, ErrInvalidQuantity)
	}
	if !ValidUnit(from) || !ValidUnit(to) {
		return decimal.Zero, fmt.Errorf("unit %q -> %q: %w", from, to, ErrUnsupportedConversion)
	}
	if p.Kind != KindPhysicalGood {
		return qty, nil
	}
	if from == to {
		return qty, nil
	}

	pieces, err := p.toPieces(qty, from)
	if err != nil {
		return decimal.Zero, err
	}
	return p.fromPieces(pieces, to)
}

func (p Packaging) toPieces(qty decimal.Decimal, from Unit) (decimal.Decimal, error) {
	switch from {
	case UnitPiece:
		return qty, nil
	case UnitSQM:
		area, err := p.AreaPerPiece()
		if err != nil {
			return decimal.Zero, err
		}
		return qty.Div(area), nil
	case UnitCarton:
		if p.PiecesPerCarton.IsZero() {
			return decimal.Zero, fmt.Errorf("pieces per carton undefined: %w", ErrMissingPackagingRatio)
		}
		return qty.Mul(p.PiecesPerCarton), nil
	case UnitPallet:
		if p.PiecesPerCarton.IsZero() || p.CartonsPerPallet.IsZero() {
			return decimal.Zero, fmt.Errorf("pallet ratios undefined: %w", ErrMissingPackagingRatio)
		}
		return qty.Mul(p.CartonsPerPallet).Mul(p.PiecesPerCarton), nil
	}
	return decimal.Zero, fmt.Errorf("unit %q: %w", from, ErrUnsupportedConversion)
}

func (p Packaging) fromPieces(pieces decimal.Decimal, to Unit) (decimal.Decimal, error) {
	switch to {
	case UnitPiece:
		return pieces, nil
	case UnitSQM:
		area, err := p.AreaPerPiece()
		if err != nil {
			return decimal.Zero, err
		}
		return pieces.Mul(area), nil
	case UnitCarton:
		if p.PiecesPerCarton.IsZero() {
			return decimal.Zero, fmt.Errorf("pieces per carton undefined: %w", ErrMissingPackagingRatio)
		}
		return pieces.Div(p.PiecesPerCarton), nil
	case UnitPallet:
		if p.PiecesPerCarton.IsZero() || p.CartonsPerPallet.IsZero() {
			return decimal.Zero, fmt.Errorf("pallet ratios undefined: %w", ErrMissingPackagingRatio)
		}
		return pieces.Div(p.PiecesPerCarton).Div(p.CartonsPerPallet), nil
	}
	return decimal.Zero, fmt.Errorf("unit %q: %w", to, ErrUnsupportedConversion)
}

// CartonPalletCounts derives the display carton and pallet counts for a
// quantity of pieces. Lines without ratios (or non-physical lines) count as
// zero rather than failing; these numbers are informational denormalization,
// not part of the authoritative quantity.
func (p Packaging) CartonPalletCounts(pieces decimal.Decimal) (cartons, pallets decimal.Decimal) {
	if p.Kind != KindPhysicalGood || p.PiecesPerCarton.IsZero() {
		return decimal.Zero, decimal.Zero
	}
	cartons = pieces.Div(p.PiecesPerCarton)
	if !p.CartonsPerPallet.IsZero() {
		pallets = cartons.Div(p.CartonsPerPallet)
	}
	return RoundQuantity(cartons), RoundQuantity(pallets)
}

// RoundQuantity applies the output-boundary rounding policy: two decimal
// places, applied once, after all chained conversions.
func RoundQuantity(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}
