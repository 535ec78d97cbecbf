package pipeline

import (
	"math"
	"testing"

	lasrc "github.com/usgs-eros/lasrc-go"
	"github.com/usgs-eros/lasrc-go/internal/ancillary"
	"github.com/usgs-eros/lasrc-go/internal/lut"
)

func idx3(d lut.Dims, band, pres, aot int) int {
	return (band*d.NumPressure+pres)*d.NumAOT + aot
}

func idx4(d lut.Dims, band, pres, aot, ang int) int {
	return ((band*d.NumPressure+pres)*d.NumAOT+aot)*d.NumSolarZenith + ang
}

func testTables(t *testing.T) *lut.Tables {
	d := lut.Dims{
		NumBands:          int(lasrc.NumReflBands),
		NumPressure:       3,
		NumAOT:            6,
		NumViewZenith:     1,
		NumSolarZenith:    5,
		ViewZenithMinDeg:  0,
		ViewZenithStep:    2,
		SolarZenithMinDeg: 0,
		SolarZenithStep:   4,
	}
	bandConsts := make([]lut.BandConstants, d.NumBands)
	for ib := range bandConsts {
		bandConsts[ib] = lut.BandConstants{
			TauRay: 0.05, OzTransA: 0.001, WvTransA: 0.02, WvTransB: 0.8,
			OgTransA1: 0.01, OgTransB0: 0.01, OgTransB1: 0.005,
		}
	}
	tab, err := lut.NewTables(d, bandConsts)
	if err != nil {
		t.Fatalf("NewTables: %v", err)
	}
	aotGrid := []float64{0.01, 0.05, 0.1, 0.2, 0.4, 0.8}
	presGrid := []float64{1013, 900, 800}
	copy(tab.AOT550nm, aotGrid)
	copy(tab.Pres, presGrid)

	for ib := 0; ib < d.NumBands; ib++ {
		for ip := 0; ip < d.NumPressure; ip++ {
			for ia := 0; ia < d.NumAOT; ia++ {
				aot := tab.AOT550nm[ia]
				tab.Sphalbt[idx3(d, ib, ip, ia)] = float32(0.05 + 0.02*aot)
				tab.Normext[idx3(d, ib, ip, ia)] = float32(1.0 + 0.1*aot)
				for isz := 0; isz < d.NumSolarZenith; isz++ {
					tab.Rolutt[idx4(d, ib, ip, ia, isz)] = float32(0.01 + 0.02*aot)
					tab.Transt[idx4(d, ib, ip, ia, isz)] = float32(math.Exp(-0.03 * aot))
				}
			}
		}
	}
	for i := range tab.Tsmax {
		tab.Tsmax[i] = 180
		tab.Tsmin[i] = 0
		tab.Ttv[i] = 1
		tab.Nbfi[i] = 8
		tab.Nbfic[i] = 8
	}
	return tab
}

func testAncillary(t *testing.T) (*ancillary.CMGGrid, *ancillary.RatioGrid) {
	const nblat, nblon = 4, 4
	n := nblat * nblon
	ozone := make([]float64, n)
	wv := make([]float64, n)
	dem := make([]float64, n)
	for i := range ozone {
		ozone[i] = 0.28
		wv[i] = 1.5
	}
	cmg, err := ancillary.NewCMGGrid(nblat, nblon, dem, ozone, wv)
	if err != nil {
		t.Fatalf("NewCMGGrid: %v", err)
	}
	raw := make([]ancillary.RawRatioCell, n)
	for i := range raw {
		raw[i] = ancillary.RawRatioCell{
			ANDWI: 0, SNDWI: 500,
			B1: ancillary.RawBandRatio{Mean: 550, Slope: 50, Intercept: 550},
			B2: ancillary.RawBandRatio{Mean: 600, Slope: 40, Intercept: 600},
			B7: ancillary.RawBandRatio{Mean: 700, Slope: 10, Intercept: 2000},
		}
	}
	ratios, err := ancillary.GuardGrid(nblat, nblon, raw)
	if err != nil {
		t.Fatalf("GuardGrid: %v", err)
	}
	return cmg, ratios
}

func TestSceneRunProducesValidSurfaceReflectanceEverywhere(t *testing.T) {
	tun := lasrc.DefaultTunables()
	tun.AeroWindow = 3
	nlines, nsamps := 9, 9
	npix := nlines * nsamps

	var toa [lasrc.NumReflBands][]float32
	for ib := range toa {
		band := make([]float32, npix)
		for i := range band {
			band[i] = float32(0.05 + 0.01*float64(ib))
		}
		toa[ib] = band
	}
	isFill := func(int) bool { return false }

	cmg, ratios := testAncillary(t)
	sc := &Scene{
		NLines: nlines, NSamps: nsamps,
		Geometry:   lasrc.NewNadirGeometry(30),
		Geolocator: lasrc.AffineGeolocator{OriginLat: 40, OriginLon: -100, LineStepDeg: -0.0003, SampleStepDeg: 0.0003},
		Tables:     testTables(t),
		CMG:        cmg,
		Ratios:     ratios,
		Pres:       1013, Uoz: 0.28, Uwv: 1.5,
		SceneAOT: 0.05, SceneEps: 1.5,
		Tunables: tun,
	}

	result, err := sc.Run(Input{TOA: toa, IsFill: isFill})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	for ib := 0; ib < int(lasrc.NumReflBands); ib++ {
		for p := 0; p < npix; p++ {
			v := result.SBand[ib][p]
			if v < tun.MinValidRefl || v > tun.MaxValidRefl {
				t.Fatalf("band %d pixel %d sband=%g out of valid range", ib, p, v)
			}
		}
	}
	if len(result.Taero) != npix || len(result.Teps) != npix || len(result.IPFlag) != npix {
		t.Fatalf("result arrays have unexpected length")
	}
}

func TestSceneRunRetainsLandWaterClassificationAtWindowCenters(t *testing.T) {
	tun := lasrc.DefaultTunables()
	tun.AeroWindow = 3
	nlines, nsamps := 9, 9
	npix := nlines * nsamps

	var toa [lasrc.NumReflBands][]float32
	for ib := range toa {
		band := make([]float32, npix)
		for i := range band {
			band[i] = 0.1
		}
		toa[ib] = band
	}
	isFill := func(int) bool { return false }

	cmg, ratios := testAncillary(t)
	sc := &Scene{
		NLines: nlines, NSamps: nsamps,
		Geometry:   lasrc.NewNadirGeometry(30),
		Geolocator: lasrc.AffineGeolocator{OriginLat: 40, OriginLon: -100, LineStepDeg: -0.0003, SampleStepDeg: 0.0003},
		Tables:     testTables(t),
		CMG:        cmg,
		Ratios:     ratios,
		Pres:       1013, Uoz: 0.28, Uwv: 1.5,
		SceneAOT: 0.05, SceneEps: 1.5,
		Tunables: tun,
	}

	result, err := sc.Run(Input{TOA: toa, IsFill: isFill})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	// AeroWindow=3 puts the first window center at (line=1, sample=1), a
	// non-fill pixel with a valid geolocation. Every band has the same TOA
	// and the same tables, so the water retrieval's residual is zero and the
	// inverter keeps a CLEAR or WATER bit there (a water retrieval whose
	// residual exceeds its threshold would reset the flag to zero
	// instead). That classification bit must survive into the
	// pipeline's final ipflag array alongside the AERO1/AERO2 bits
	// FinalCorrect adds, not be overwritten by it.
	centerPix := 1*nsamps + 1
	flag := result.IPFlag[centerPix]
	if !lasrc.IsClear(flag) && !lasrc.IsWater(flag) {
		t.Fatalf("ipflag[%d] = %08b, want CLEAR or WATER bit set", centerPix, flag)
	}
}

func TestSceneRunLeavesFillPixelsAtFillValue(t *testing.T) {
	tun := lasrc.DefaultTunables()
	tun.AeroWindow = 3
	nlines, nsamps := 9, 9
	npix := nlines * nsamps

	var toa [lasrc.NumReflBands][]float32
	for ib := range toa {
		band := make([]float32, npix)
		for i := range band {
			band[i] = 0.1
		}
		toa[ib] = band
	}
	isFill := func(p int) bool { return p == 0 }

	cmg, ratios := testAncillary(t)
	sc := &Scene{
		NLines: nlines, NSamps: nsamps,
		Geometry:   lasrc.NewNadirGeometry(30),
		Geolocator: lasrc.AffineGeolocator{OriginLat: 40, OriginLon: -100, LineStepDeg: -0.0003, SampleStepDeg: 0.0003},
		Tables:     testTables(t),
		CMG:        cmg,
		Ratios:     ratios,
		Pres:       1013, Uoz: 0.28, Uwv: 1.5,
		SceneAOT: 0.05, SceneEps: 1.5,
		Tunables: tun,
	}

	result, err := sc.Run(Input{TOA: toa, IsFill: isFill})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	for ib := 0; ib < int(lasrc.NumReflBands); ib++ {
		if result.SBand[ib][0] != tun.FillValue {
			t.Fatalf("band %d fill pixel = %g, want FillValue %g", ib, result.SBand[ib][0], tun.FillValue)
		}
	}
	if !lasrc.IsFill(result.IPFlag[0]) {
		t.Fatalf("ipflag[0] = %08b, want FILL bit set", result.IPFlag[0])
	}
}
