package core_test

import (
	"errors"
	"testing"

	"tilestock/internal/core"

	"github.com/shopspring/decimal"
)

func physicalPackaging(ppc, cpp int64, size string) core.Packaging {
	return core.Packaging{
		PiecesPerCarton:  decimal.NewFromInt(ppc),
		CartonsPerPallet: decimal.NewFromInt(cpp),
		Size:             size,
		Kind:             core.KindPhysicalGood,
	}
}

func TestParseArea(t *testing.T) {
	tests := []struct {
		size string
		want string
		ok   bool
	}{
		{"60x60", "0.36", true},
		{"120/60", "0.72", true},
		{"30*60", "0.18", true},
		{"45X45", "0.2025", true},
		{"60 x 60", "0.36", true},
		{"TRANSPORT", "", false},
		{"", "", false},
		{"xx", "", false},
	}
	for _, tt := range tests {
		area, ok := core.ParseArea(tt.size)
		if ok != tt.ok {
			t.Errorf("ParseArea(%q): ok = %v, want %v", tt.size, ok, tt.ok)
			continue
		}
		if ok && !area.Equal(decimal.RequireFromString(tt.want)) {
			t.Errorf("ParseArea(%q) = %s, want %s", tt.size, area, tt.want)
		}
	}
}

func TestClassifyLineItem(t *testing.T) {
	tests := []struct {
		code, name string
		want       core.LineItemKind
	}{
		{"FICHE-001", "FICHE PRESENTOIR", core.KindReferenceSheet},
		{"TR01", "TRANSPORT ZONE 2", core.KindService},
		{"FR01", "FRAIS DE LIVRAISON", core.KindService},
		{"GC6060", "GRES CERAME BEIGE 60x60", core.KindPhysicalGood},
	}
	for _, tt := range tests {
		if got := core.ClassifyLineItem(tt.code, tt.name); got != tt.want {
			t.Errorf("ClassifyLineItem(%q, %q) = %s, want %s", tt.code, tt.name, got, tt.want)
		}
	}
}

func TestConvert_AreaBased(t *testing.T) {
	p := physicalPackaging(12, 40, "60x60")

	sqm, err := p.Convert(decimal.NewFromInt(100), core.UnitPiece, core.UnitSQM)
	if err != nil {
		t.Fatalf("PIECE->SQM failed: %v", err)
	}
	if !sqm.Equal(decimal.RequireFromString("36")) {
		t.Errorf("100 pieces of 60x60 = %s m², want 36", sqm)
	}

	pieces, err := p.Convert(sqm, core.UnitSQM, core.UnitPiece)
	if err != nil {
		t.Fatalf("SQM->PIECE failed: %v", err)
	}
	if !pieces.Equal(decimal.NewFromInt(100)) {
		t.Errorf("36 m² of 60x60 = %s pieces, want 100", pieces)
	}
}

// Round-trip property: PALLET→CARTON→PIECE→CARTON→PALLET returns the original
// quantity within the 0.01 output rounding tolerance.
func TestConvert_RoundTrip(t *testing.T) {
	tolerance := decimal.RequireFromString("0.01")
	ratios := []struct{ ppc, cpp int64 }{
		{12, 40}, {6, 32}, {3, 48}, {44, 30},
	}
	quantities := []string{"1", "2", "3.5", "0.25", "17"}

	for _, r := range ratios {
		p := physicalPackaging(r.ppc, r.cpp, "60x60")
		for _, qs := range quantities {
			start := decimal.RequireFromString(qs)

			cartons, err := p.Convert(start, core.UnitPallet, core.UnitCarton)
			if err != nil {
				t.Fatalf("ratios %d/%d qty %s PALLET->CARTON: %v", r.ppc, r.cpp, qs, err)
			}
			pieces, err := p.Convert(cartons, core.UnitCarton, core.UnitPiece)
			if err != nil {
				t.Fatalf("CARTON->PIECE: %v", err)
			}
			cartons2, err := p.Convert(pieces, core.UnitPiece, core.UnitCarton)
			if err != nil {
				t.Fatalf("PIECE->CARTON: %v", err)
			}
			pallets, err := p.Convert(cartons2, core.UnitCarton, core.UnitPallet)
			if err != nil {
				t.Fatalf("CARTON->PALLET: %v", err)
			}

			if core.RoundQuantity(pallets).Sub(start).Abs().GreaterThan(tolerance) {
				t.Errorf("ratios %d/%d: round trip of %s pallets came back as %s", r.ppc, r.cpp, qs, pallets)
			}
		}
	}
}

// The delivery scenario: 12 pieces per carton, 40 cartons per pallet, so an
// order of 2 pallets resolves to 960 pieces.
func TestConvert_PalletToPieces(t *testing.T) {
	p := physicalPackaging(12, 40, "60x60")

	pieces, err := p.Convert(decimal.NewFromInt(2), core.UnitPallet, core.UnitPiece)
	if err != nil {
		t.Fatalf("PALLET->PIECE failed: %v", err)
	}
	if !pieces.Equal(decimal.NewFromInt(960)) {
		t.Errorf("2 pallets = %s pieces, want 960", pieces)
	}
}

func TestConvert_MissingRatio(t *testing.T) {
	p := physicalPackaging(0, 40, "60x60")

	if _, err := p.Convert(decimal.NewFromInt(10), core.UnitPiece, core.UnitCarton); !errors.Is(err, core.ErrMissingPackagingRatio) {
		t.Errorf("PIECE->CARTON without ratio: got %v, want ErrMissingPackagingRatio", err)
	}
	if _, err := p.Convert(decimal.NewFromInt(1), core.UnitPallet, core.UnitPiece); !errors.Is(err, core.ErrMissingPackagingRatio) {
		t.Errorf("PALLET->PIECE without ratio: got %v, want ErrMissingPackagingRatio", err)
	}
}

func TestConvert_NoDerivableArea(t *testing.T) {
	p := physicalPackaging(12, 40, "SANS FORMAT")

	// Area-based conversions fail.
	if _, err := p.Convert(decimal.NewFromInt(10), core.UnitPiece, core.UnitSQM); !errors.Is(err, core.ErrUnsupportedConversion) {
		t.Errorf("PIECE->SQM without area: got %v, want ErrUnsupportedConversion", err)
	}

	// Piece-only operations still work.
	cartons, err := p.Convert(decimal.NewFromInt(24), core.UnitPiece, core.UnitCarton)
	if err != nil {
		t.Fatalf("PIECE->CARTON should not need an area: %v", err)
	}
	if !cartons.Equal(decimal.NewFromInt(2)) {
		t.Errorf("24 pieces = %s cartons, want 2", cartons)
	}
}

func TestConvert_ServiceLineShortCircuits(t *testing.T) {
	p := core.Packaging{Size: "", Kind: core.KindService}

	for _, to := range []core.Unit{core.UnitPiece, core.UnitSQM, core.UnitCarton, core.UnitPallet} {
		got, err := p.Convert(decimal.NewFromInt(3), core.UnitPiece, to)
		if err != nil {
			t.Fatalf("service line PIECE->%s: %v", to, err)
		}
		if !got.Equal(decimal.NewFromInt(3)) {
			t.Errorf("service line PIECE->%s = %s, want 3 (identity)", to, got)
		}
	}
}

func TestConvert_InvalidInput(t *testing.T) {
	p := physicalPackaging(12, 40, "60x60")

	if _, err := p.Convert(decimal.NewFromInt(-1), core.UnitPiece, core.UnitCarton); !errors.Is(err, core.ErrInvalidQuantity) {
		t.Errorf("negative quantity: got %v, want ErrInvalidQuantity", err)
	}
	if _, err := p.Convert(decimal.NewFromInt(1), core.Unit("CRATE"), core.UnitPiece); !errors.Is(err, core.ErrUnsupportedConversion) {
		t.Errorf("unknown unit: got %v, want ErrUnsupportedConversion", err)
	}
}

func TestCartonPalletCounts(t *testing.T) {
	p := physicalPackaging(12, 40, "60x60")

	cartons, pallets := p.CartonPalletCounts(decimal.NewFromInt(960))
	if !cartons.Equal(decimal.NewFromInt(80)) || !pallets.Equal(decimal.NewFromInt(2)) {
		t.Errorf("960 pieces: got %s cartons / %s pallets, want 80 / 2", cartons, pallets)
	}

	// Partial packaging rounds at the display boundary.
	cartons, pallets = p.CartonPalletCounts(decimal.NewFromInt(100))
	if !cartons.Equal(decimal.RequireFromString("8.33")) {
		t.Errorf("100 pieces: got %s cartons, want 8.33", cartons)
	}
	if !pallets.Equal(decimal.RequireFromString("0.21")) {
		t.Errorf("100 pieces: got %s pallets, want 0.21", pallets)
	}

	// No ratios, or a non-physical line: counts are zero, never an error.
	noRatio := physicalPackaging(0, 0, "60x60")
	cartons, pallets = noRatio.CartonPalletCounts(decimal.NewFromInt(500))
	if !cartons.IsZero() || !pallets.IsZero() {
		t.Errorf("no ratios: got %s / %s, want 0 / 0", cartons, pallets)
	}

	fiche := core.Packaging{Kind: core.KindReferenceSheet}
	cartons, pallets = fiche.CartonPalletCounts(decimal.NewFromInt(5))
	if !cartons.IsZero() || !pallets.IsZero() {
		t.Errorf("reference sheet: got %s / %s, want 0 / 0", cartons, pallets)
	}
}
