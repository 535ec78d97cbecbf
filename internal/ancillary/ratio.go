package ancillary

import "fmt"

// RawBandRatio is one band's mean/slope/intercept ratio record as supplied
// by the collaborator ratio-grid reader, scaled by 1000 (spec.md section
// 3).
type RawBandRatio struct {
	Mean, Slope, Intercept int32
}

// RawRatioCell is one band-ratio climatology cell in its native
// scaled-integer units, before the default-fill guard.
type RawRatioCell struct {
	ANDWI, SNDWI int32
	B1, B2, B7   RawBandRatio
}

// BandRatio is a band's mean/slope/intercept ratio in physical (unscaled)
// units, ready for the aerosol inverter's band-ratio model.
type BandRatio struct {
	Mean, Slope, Intercept float64
}

// GuardedRatioCell is a RawRatioCell after the spec.md section 4.3
// default-fill guard, converted to physical units.
type GuardedRatioCell struct {
	NDWIMean, NDWISigma float64
	B1, B2, B7          BandRatio
}

const (
	defaultSlope       = 0.0
	defaultInterceptB1 = 0.550
	defaultInterceptB2 = 0.600
	defaultInterceptB7 = 2.000
)

// Guard applies the ratio-grid default-fill and low-NDWI-population guard
// from spec.md section 4.3 to a single raw cell. Guard is a pure function
// of its input, so applying it once per cell in GuardGrid is equivalent to
// the reference implementation's repeated in-place overwrites during the
// pixel loop; a second application of Guard to the same raw cell always
// produces the same result.
func Guard(c RawRatioCell) GuardedRatioCell {
	rb1 := float64(c.B1.Mean) * 0.001
	rb2 := float64(c.B2.Mean) * 0.001

	g := GuardedRatioCell{
		NDWIMean:  float64(c.ANDWI),
		NDWISigma: float64(c.SNDWI),
		B1:        BandRatio{Mean: rb1, Slope: float64(c.B1.Slope) * 0.001, Intercept: float64(c.B1.Intercept) * 0.001},
		B2:        BandRatio{Mean: rb2, Slope: float64(c.B2.Slope) * 0.001, Intercept: float64(c.B2.Intercept) * 0.001},
		B7:        BandRatio{Mean: float64(c.B7.Mean) * 0.001, Slope: float64(c.B7.Slope) * 0.001, Intercept: float64(c.B7.Intercept) * 0.001},
	}

	if rb1 < 0.1 || rb1 > 1.0 || rb2 < 0.1 || rb2 > 1.0 {
		g.B1.Slope, g.B1.Intercept = defaultSlope, defaultInterceptB1
		g.B2.Slope, g.B2.Intercept = defaultSlope, defaultInterceptB2
		g.B7.Slope, g.B7.Intercept = defaultSlope, defaultInterceptB7
		return g
	}
	if g.NDWISigma < 200 {
		g.B1.Slope, g.B1.Intercept = 0, g.B1.Mean
		g.B2.Slope, g.B2.Intercept = 0, g.B2.Mean
		g.B7.Slope, g.B7.Intercept = 0, g.B7.Mean
	}
	return g
}

// RatioGrid is the guarded band-ratio climatology grid, precomputed once
// per scene.
type RatioGrid struct {
	NBLat, NBLon int
	Cells        []GuardedRatioCell
}

// GuardGrid runs Guard over every cell of a raw ratio grid, producing the
// read-only grid the aerosol inverter samples.
func GuardGrid(nblat, nblon int, raw []RawRatioCell) (*RatioGrid, error) {
	if len(raw) != nblat*nblon {
		return nil, fmt.Errorf("ancillary: ratio grid has %d cells, want %d (%dx%d)", len(raw), nblat*nblon, nblat, nblon)
	}
	cells := make([]GuardedRatioCell, len(raw))
	for i, c := range raw {
		cells[i] = Guard(c)
	}
	return &RatioGrid{NBLat: nblat, NBLon: nblon, Cells: cells}, nil
}

func (g *RatioGrid) at(lcmg, scmg int) GuardedRatioCell {
	return g.Cells[lcmg*g.NBLon+scmg]
}

// WindowRatios is the resampled band-ratio state for a single aerosol
// window center (spec.md section 4.4 steps 3-4).
type WindowRatios struct {
	SlopeB1, SlopeB2, SlopeB7             float64
	InterceptB1, InterceptB2, InterceptB7 float64
	NDWIThreshLo, NDWIThreshHi            float64
}

// SampleRatios bilinearly combines the ratio grid's four neighbors at ix
// and computes the NDWI thresholds from the (lcmg, scmg) neighbor alone,
// per spec.md section 4.3 ("at ratio_pix11").
func (g *RatioGrid) SampleRatios(ix CMGIndex) WindowRatios {
	c11 := g.at(ix.LCmg, ix.SCmg)
	c12 := g.at(ix.LCmg, ix.SCmg1)
	c21 := g.at(ix.LCmg1, ix.SCmg)
	c22 := g.at(ix.LCmg1, ix.SCmg1)

	u, v := ix.U, ix.V
	w11 := (1 - u) * (1 - v)
	w12 := (1 - u) * v
	w21 := u * (1 - v)
	w22 := u * v

	blend := func(b11, b12, b21, b22 BandRatio) (slope, intercept float64) {
		slope = w11*b11.Slope + w12*b12.Slope + w21*b21.Slope + w22*b22.Slope
		intercept = w11*b11.Intercept + w12*b12.Intercept + w21*b21.Intercept + w22*b22.Intercept
		return
	}

	var wr WindowRatios
	wr.SlopeB1, wr.InterceptB1 = blend(c11.B1, c12.B1, c21.B1, c22.B1)
	wr.SlopeB2, wr.InterceptB2 = blend(c11.B2, c12.B2, c21.B2, c22.B2)
	wr.SlopeB7, wr.InterceptB7 = blend(c11.B7, c12.B7, c21.B7, c22.B7)
	wr.NDWIThreshHi = (c11.NDWIMean + 2*c11.NDWISigma) * 0.001
	wr.NDWIThreshLo = (c11.NDWIMean - 2*c11.NDWISigma) * 0.001
	return wr
}

// ComputeNDWI computes the normalized difference water index from TOA band
// 5 and band 7 reflectance, clamped to [lo, hi] (spec.md section 4.4 step
// 4).
func ComputeNDWI(b5, b7, lo, hi float64) float64 {
	xndwi := (b5 - 0.5*b7) / (b5 + 0.5*b7)
	if xndwi < lo {
		return lo
	}
	if xndwi > hi {
		return hi
	}
	return xndwi
}
