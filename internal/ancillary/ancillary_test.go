package ancillary

import (
	"math"
	"testing"
)

const (
	nblat = 3600
	nblon = 7200
)

func TestNewCMGIndexWrapsLongitudeAtAntimeridian(t *testing.T) {
	// S8: lat=89.975, lon=179.975 resolves to (lcmg, scmg) = (0, NBLON-1).
	ix := NewCMGIndex(89.975, 179.975, nblat, nblon)
	if ix.LCmg != 0 {
		t.Fatalf("LCmg = %d, want 0", ix.LCmg)
	}
	if ix.SCmg != nblon-1 {
		t.Fatalf("SCmg = %d, want %d", ix.SCmg, nblon-1)
	}
	if ix.SCmg1 != 0 {
		t.Fatalf("SCmg1 = %d, want 0 (longitude wraps)", ix.SCmg1)
	}
}

func TestNewCMGIndexClampsLatitudeAtSouthPole(t *testing.T) {
	// S9: lat=-89.975 resolves to lcmg=NBLAT-1; its neighbor clamps to the
	// same row instead of running off the grid.
	ix := NewCMGIndex(-89.975, 0, nblat, nblon)
	if ix.LCmg != nblat-1 {
		t.Fatalf("LCmg = %d, want %d", ix.LCmg, nblat-1)
	}
	if ix.LCmg1 != ix.LCmg {
		t.Fatalf("LCmg1 = %d, want %d (latitude clamps)", ix.LCmg1, ix.LCmg)
	}
}

func TestCMGIndexBilinearOnAntimeridianUsesFirstColumn(t *testing.T) {
	// S4: pixel at lon=179.9999 has scmg=NBLON-1 and scmg1=0; the
	// interpolated value should be a convex combination of the last and
	// first columns, not an out-of-bounds read.
	ix := NewCMGIndex(0, 179.9999, nblat, nblon)
	if ix.SCmg != nblon-1 || ix.SCmg1 != 0 {
		t.Fatalf("got SCmg=%d SCmg1=%d, want %d,0", ix.SCmg, ix.SCmg1, nblon-1)
	}
	grid := make([]float64, nblat*nblon)
	for l := 0; l < nblat; l++ {
		grid[l*nblon+(nblon-1)] = 10
		grid[l*nblon+0] = 20
	}
	got := ix.Bilinear(grid, nblon)
	if got < 10 || got > 20 {
		t.Fatalf("Bilinear = %g, want a convex combination of 10 and 20", got)
	}
}

func TestGuardAppliesDefaultFillOutsideRatioRange(t *testing.T) {
	// S6: a ratio pixel with rb1=0.05 triggers the default-fill branch.
	raw := RawRatioCell{
		ANDWI: 500, SNDWI: 300,
		B1: RawBandRatio{Mean: 50, Slope: 100, Intercept: 200},
		B2: RawBandRatio{Mean: 300, Slope: 50, Intercept: 300},
		B7: RawBandRatio{Mean: 400, Slope: 20, Intercept: 400},
	}
	g := Guard(raw)
	if g.B1.Slope != 0 || g.B1.Intercept != 0.550 {
		t.Fatalf("B1 = %+v, want default-fill slope=0 intercept=0.550", g.B1)
	}
	if g.B2.Slope != 0 || g.B2.Intercept != 0.600 {
		t.Fatalf("B2 = %+v, want default-fill slope=0 intercept=0.600", g.B2)
	}
	if g.B7.Slope != 0 || g.B7.Intercept != 2.000 {
		t.Fatalf("B7 = %+v, want default-fill slope=0 intercept=2.000", g.B7)
	}
}

func TestGuardIsIdempotent(t *testing.T) {
	// S6 continued: a second visit observes defaults and leaves them
	// unchanged, because Guard only ever reads its own raw input.
	raw := RawRatioCell{
		ANDWI: 500, SNDWI: 300,
		B1: RawBandRatio{Mean: 50, Slope: 100, Intercept: 200},
		B2: RawBandRatio{Mean: 300, Slope: 50, Intercept: 300},
		B7: RawBandRatio{Mean: 400, Slope: 20, Intercept: 400},
	}
	first := Guard(raw)
	second := Guard(raw)
	if first != second {
		t.Fatalf("Guard is not idempotent: %+v vs %+v", first, second)
	}
}

func TestGuardZerosSlopesOnLowNDWIPopulation(t *testing.T) {
	raw := RawRatioCell{
		ANDWI: 500, SNDWI: 100, // sndwi < 200
		B1: RawBandRatio{Mean: 500, Slope: 100, Intercept: 200},
		B2: RawBandRatio{Mean: 600, Slope: 50, Intercept: 300},
		B7: RawBandRatio{Mean: 700, Slope: 20, Intercept: 400},
	}
	g := Guard(raw)
	if g.B1.Slope != 0 || g.B1.Intercept != g.B1.Mean {
		t.Fatalf("B1 = %+v, want slope=0 intercept=mean(%g)", g.B1, g.B1.Mean)
	}
}

func TestGuardPassesThroughValidPopulatedCell(t *testing.T) {
	raw := RawRatioCell{
		ANDWI: 500, SNDWI: 300,
		B1: RawBandRatio{Mean: 500, Slope: 100, Intercept: 200},
		B2: RawBandRatio{Mean: 600, Slope: 50, Intercept: 300},
		B7: RawBandRatio{Mean: 700, Slope: 20, Intercept: 400},
	}
	g := Guard(raw)
	if g.B1.Slope != 0.1 || g.B1.Intercept != 0.2 {
		t.Fatalf("B1 = %+v, want slope=0.1 intercept=0.2 (no guard triggered)", g.B1)
	}
}

func TestSampleRatiosBlendsFourNeighbors(t *testing.T) {
	raw := make([]RawRatioCell, 4)
	for i := range raw {
		raw[i] = RawRatioCell{
			ANDWI: 0, SNDWI: 500,
			B1: RawBandRatio{Mean: 500, Slope: 0, Intercept: int32(100 * (i + 1))},
			B2: RawBandRatio{Mean: 500, Slope: 0, Intercept: 200},
			B7: RawBandRatio{Mean: 500, Slope: 0, Intercept: 300},
		}
	}
	grid, err := GuardGrid(2, 2, raw)
	if err != nil {
		t.Fatalf("GuardGrid: %v", err)
	}
	ix := CMGIndex{LCmg: 0, SCmg: 0, LCmg1: 1, SCmg1: 1, U: 0.5, V: 0.5}
	wr := grid.SampleRatios(ix)
	want := (0.1 + 0.2 + 0.3 + 0.4) / 4
	if math.Abs(wr.InterceptB1-want) > 1e-9 {
		t.Fatalf("InterceptB1 = %g, want %g", wr.InterceptB1, want)
	}
}

func TestComputeNDWIClampsToThresholds(t *testing.T) {
	got := ComputeNDWI(1.0, -10.0, -0.2, 0.2)
	if got != -0.2 {
		t.Fatalf("ComputeNDWI = %g, want clamped to -0.2", got)
	}
	got = ComputeNDWI(-10.0, 1.0, -0.2, 0.2)
	if got != 0.2 {
		t.Fatalf("ComputeNDWI = %g, want clamped to 0.2", got)
	}
}

func TestNewCMGGridRejectsMismatchedShape(t *testing.T) {
	if _, err := NewCMGGrid(2, 2, make([]float64, 3), make([]float64, 4), make([]float64, 4)); err == nil {
		t.Fatal("expected error for mismatched DEM grid length")
	}
}
