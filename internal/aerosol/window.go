package aerosol

import (
	"math"

	lasrc "github.com/usgs-eros/lasrc-go"
	"github.com/usgs-eros/lasrc-go/internal/ancillary"
	"github.com/usgs-eros/lasrc-go/internal/atmos"
)

// Scene bundles everything the window-center inversion needs that is
// constant across the whole scene (spec.md section 4.4): the ancillary
// grids, the per-band fast-path coefficients, geometry, and the TOA
// snapshots captured before the climatology correction.
type Scene struct {
	NLines, NSamps int
	Geolocator     lasrc.Geolocator
	CMG            *ancillary.CMGGrid
	Ratios         *ancillary.RatioGrid
	FastParams     []atmos.FastParams // indexed by lasrc.Band
	AOTGrid        []float64
	Tunables       lasrc.Tunables
	Geometry       lasrc.Geometry

	IsFill func(pix int) bool

	AeroB1, AeroB2, AeroB4, AeroB5, AeroB7 []float32
}

func (s *Scene) pix(line, samp int) int { return line*s.NSamps + samp }

// Output holds the window-center aerosol retrieval state, one entry per
// pixel. Only window-center indices are meaningfully populated until the
// filler and window interpolator stages run.
type Output struct {
	IPFlag []uint8
	Taero  []float32
	Teps   []float32
}

func newOutput(npix int) *Output {
	return &Output{
		IPFlag: make([]uint8, npix),
		Taero:  make([]float32, npix),
		Teps:   make([]float32, npix),
	}
}

// InvertWindows runs the aerosol inverter over every window center in the
// scene and returns the per-pixel output arrays (only window centers are
// written). half is LHALF_AERO_WINDOW, stride is LAERO_WINDOW.
func (s *Scene) InvertWindows() *Output {
	out := newOutput(s.NLines * s.NSamps)
	half := s.Tunables.HalfWindow()
	stride := s.Tunables.AeroWindow

	for cl := half; cl < s.NLines; cl += stride {
		for cs := half; cs < s.NSamps; cs += stride {
			s.invertOneWindow(out, cl, cs, half)
		}
	}
	return out
}

// invertOneWindow implements spec.md section 4.4 steps 1-10 for a single
// window centered at (cl, cs).
func (s *Scene) invertOneWindow(out *Output, cl, cs, half int) {
	centerPix := s.pix(cl, cs)

	radPix, ok := s.substitutePixel(cl, cs, half)
	if !ok {
		out.IPFlag[centerPix] = 1 << lasrc.IPFlagFill
		return
	}

	img := lasrc.ImgCoord{Line: float64(cl) - 0.5, Sample: float64(cs) + 0.5}
	geo, err := s.Geolocator.FromSpace(img)
	if err != nil {
		out.IPFlag[centerPix] = 0
		return
	}
	lat, lon := geo.LatRad*lasrc.Rad2Deg, geo.LonRad*lasrc.Rad2Deg

	_, _, _, ix := s.CMG.Sample(lat, lon)
	wr := s.Ratios.SampleRatios(ix)

	b5 := float64(s.AeroB5[radPix])
	b7 := float64(s.AeroB7[radPix])
	xndwi := ancillary.ComputeNDWI(b5, b7, wr.NDWIThreshLo, wr.NDWIThreshHi)

	var c Constraint
	for i := range c.Erelc {
		c.Erelc[i] = -1
	}
	c.Erelc[lasrc.BandCoastalAerosol] = xndwi*wr.SlopeB1 + wr.InterceptB1
	c.Erelc[lasrc.BandBlue] = xndwi*wr.SlopeB2 + wr.InterceptB2
	c.Erelc[lasrc.BandRed] = 1.0
	c.Erelc[lasrc.BandSWIR2] = xndwi*wr.SlopeB7 + wr.InterceptB7
	c.Troatm[lasrc.BandCoastalAerosol] = float64(s.AeroB1[radPix])
	c.Troatm[lasrc.BandBlue] = float64(s.AeroB2[radPix])
	c.Troatm[lasrc.BandRed] = float64(s.AeroB4[radPix])
	c.Troatm[lasrc.BandSWIR2] = b7

	t := s.Tunables
	state := &SearchState{}
	raot1, r1 := SubAeroRetNew(state, s.AOTGrid, s.FastParams, lasrc.BandRed, c, t.LowEps)
	_, r2 := SubAeroRetNew(state, s.AOTGrid, s.FastParams, lasrc.BandRed, c, t.ModEps)
	raot3, r3 := SubAeroRetNew(state, s.AOTGrid, s.FastParams, lasrc.BandRed, c, t.HighEps)

	epsMin, inRange := EpsilonMinimize(t, t.LowEps, t.ModEps, t.HighEps, r1, r2, r3)

	var raot, residual, eps float64
	switch {
	case inRange:
		raot, residual = SubAeroRetNew(state, s.AOTGrid, s.FastParams, lasrc.BandRed, c, epsMin)
		eps = epsMin
	case epsMin <= t.LowEps:
		raot, residual, eps = raot1, r1, t.LowEps
	default:
		raot, residual, eps = raot3, r3, t.HighEps
	}

	corf := raot / s.Geometry.Xmus
	thresholdLand := thresholdLandFor(raot, s.Geometry.Xmus, c.Troatm[lasrc.BandSWIR2])

	ros5 := atmos.Evaluate(s.FastParams[lasrc.BandNIR], raot, eps, b5)
	ros4 := atmos.Evaluate(s.FastParams[lasrc.BandRed], raot, eps, c.Troatm[lasrc.BandRed])
	ipflag := landWaterFlag(residual, thresholdLand, ros5, ros4)

	if ipflag == 1<<lasrc.IPFlagWater {
		raot, residual, eps, ipflag = s.retrieveWater(radPix, corf, state)
	}

	out.IPFlag[centerPix] = ipflag
	out.Taero[centerPix] = float32(raot)
	out.Teps[centerPix] = float32(eps)
}

// retrieveWater implements spec.md section 4.4 step 9: the water-specific
// retrieval that either confirms the WATER|CLEAR classification or
// invalidates it (likely urban).
func (s *Scene) retrieveWater(radPix int, corf float64, state *SearchState) (raot, residual, eps float64, ipflag uint8) {
	var c Constraint
	for i := range c.Erelc {
		c.Erelc[i] = -1
	}
	c.Erelc[lasrc.BandCoastalAerosol] = 1.0
	c.Erelc[lasrc.BandRed] = 1.0
	c.Erelc[lasrc.BandNIR] = 1.0
	c.Erelc[lasrc.BandSWIR2] = 1.0
	c.Troatm[lasrc.BandCoastalAerosol] = float64(s.AeroB1[radPix])
	c.Troatm[lasrc.BandRed] = float64(s.AeroB4[radPix])
	c.Troatm[lasrc.BandNIR] = float64(s.AeroB5[radPix])
	c.Troatm[lasrc.BandSWIR2] = float64(s.AeroB7[radPix])

	eps = s.Tunables.WaterEps
	raot, residual = SubAeroRetNew(state, s.AOTGrid, s.FastParams, lasrc.BandRed, c, eps)

	ros1 := atmos.Evaluate(s.FastParams[lasrc.BandCoastalAerosol], raot, eps, c.Troatm[lasrc.BandCoastalAerosol])
	thresholdWater := thresholdWaterFor(corf)

	if residual > thresholdWater || ros1 < 0 {
		return raot, residual, eps, 0
	}
	return raot, residual, eps, (1 << lasrc.IPFlagClear) | (1 << lasrc.IPFlagWater)
}

// thresholdLandFor computes threshold_land (spec.md section 4.4 step 8).
func thresholdLandFor(raot, xmus, troatmB7 float64) float64 {
	corf := raot / xmus
	return 0.015 + 0.005*corf + 0.10*troatmB7
}

// thresholdWaterFor computes threshold_water (spec.md section 4.4 step 9).
func thresholdWaterFor(corf float64) float64 {
	return 0.010 + 0.005*corf
}

// landWaterFlag implements the CLEAR/WATER decision of spec.md section 4.4
// step 8: a coarse NDVI sanity check on bands 5 and 4 distinguishes
// vegetated/land surfaces from water once the band-ratio residual is below
// threshold_land.
func landWaterFlag(residual, thresholdLand, ros5, ros4 float64) uint8 {
	if residual < thresholdLand {
		if ros5 > 0.1 && (ros5-ros4)/(ros5+ros4) > 0 {
			return 1 << lasrc.IPFlagClear
		}
	}
	return 1 << lasrc.IPFlagWater
}

// substitutePixel implements spec.md section 4.4 step 1: if the window
// center is fill, search the window for the nearest non-fill pixel and
// return its index instead.
func (s *Scene) substitutePixel(cl, cs, half int) (int, bool) {
	center := s.pix(cl, cs)
	if !s.IsFill(center) {
		return center, true
	}
	best, bestDist := -1, math.MaxFloat64
	for l := cl - half; l <= cl+half; l++ {
		if l < 0 || l >= s.NLines {
			continue
		}
		for c := cs - half; c <= cs+half; c++ {
			if c < 0 || c >= s.NSamps {
				continue
			}
			p := s.pix(l, c)
			if s.IsFill(p) {
				continue
			}
			dl, dc := float64(l-cl), float64(c-cs)
			d := dl*dl + dc*dc
			if d < bestDist {
				best, bestDist = p, d
			}
		}
	}
	if best < 0 {
		return 0, false
	}
	return best, true
}
