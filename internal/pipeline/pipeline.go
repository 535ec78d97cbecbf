/*
Copyright © 2024 the lasrc-go authors.
This file is part of lasrc-go.

lasrc-go is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

lasrc-go is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with lasrc-go.  If not, see <http://www.gnu.org/licenses/>.
*/

// Package pipeline sequences the eight stages named in spec.md section 2
// into a single scene-level run: LUT store, atmospheric kernel, coefficient
// cache, ancillary resampler, aerosol inverter, invalid-retrieval filler,
// window interpolator, final correction. Each stage is an independent
// internal subpackage; this package only wires them together and logs their
// progress, the way sr/sr.go sequences the teacher's source-receptor matrix
// stages behind a single Log field.
package pipeline

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	lasrc "github.com/usgs-eros/lasrc-go"
	"github.com/usgs-eros/lasrc-go/internal/aerosol"
	"github.com/usgs-eros/lasrc-go/internal/ancillary"
	"github.com/usgs-eros/lasrc-go/internal/atmos"
	"github.com/usgs-eros/lasrc-go/internal/coeff"
	"github.com/usgs-eros/lasrc-go/internal/correct"
	"github.com/usgs-eros/lasrc-go/internal/fill"
	"github.com/usgs-eros/lasrc-go/internal/lut"
)

// Scene bundles everything a single correction run needs: the scene-constant
// LUT and ancillary grids, the scene geometry and atmospheric scalars, the
// raster shape, and the tunables a configuration may have overridden.
type Scene struct {
	NLines, NSamps int
	Geometry       lasrc.Geometry
	Geolocator     lasrc.Geolocator
	Tables         *lut.Tables
	CMG            *ancillary.CMGGrid
	Ratios         *ancillary.RatioGrid

	Pres, Uoz, Uwv float64 // scene-center surface pressure, ozone, water vapor

	// SceneAOT, SceneEps are the nominal (AOT, epsilon) the climatology
	// correction that produced the input sband was evaluated at (spec.md
	// section 4.7 step 1). When the caller has no better estimate, the
	// tunables' default AOT/epsilon are a reasonable scene-nominal pair.
	SceneAOT, SceneEps float64

	Tunables lasrc.Tunables

	Log logrus.FieldLogger
}

// Input holds every reflective band's raw TOA reflectance and the scene's
// fill mask.
type Input struct {
	TOA    [lasrc.NumReflBands][]float32
	IsFill func(pix int) bool
}

// Result holds everything the final correction stage produced.
type Result struct {
	SBand  [lasrc.NumReflBands][]float32
	IPFlag []uint8
	Taero  []float32
	Teps   []float32
}

// Run executes the full pipeline against in for the scene s, returning the
// per-band surface reflectance, the aerosol QA byte, and the per-pixel
// (AOT, epsilon) the interpolator produced.
func (s *Scene) Run(in Input) (*Result, error) {
	log := s.Log
	if log == nil {
		log = logrus.New()
	}
	npix := s.NLines * s.NSamps

	gi := lut.NewGeometryIndex(s.Tables, s.Geometry.Xtv, s.Geometry.Xts)
	kernel := atmos.NewKernel(s.Tables)

	cacheStart := time.Now()
	cache, err := coeff.Build(log, kernel, s.Tables, s.Geometry, gi, s.Pres, s.Uoz, s.Uwv)
	if err != nil {
		return nil, fmt.Errorf("pipeline: building coefficient cache: %w", err)
	}
	log.WithFields(logrus.Fields{"stage": "coeff", "duration": time.Since(cacheStart)}).Info("coefficient cache built")

	fastParams := make([]atmos.FastParams, lasrc.NumReflBands)
	for ib := range fastParams {
		fastParams[ib] = cache.Entries[ib].FastParams(cache.AOTMax[ib])
	}

	corrector := &correct.Corrector{
		NLines: s.NLines, NSamps: s.NSamps,
		FastParams: fastParams,
		Tunables:   s.Tunables,
		SceneAOT:   s.SceneAOT, SceneEps: s.SceneEps,
	}

	initStart := time.Now()
	var sband [lasrc.NumReflBands][]float32
	for ib := 0; ib < int(lasrc.NumReflBands); ib++ {
		sband[ib] = corrector.InitialCorrect(in.TOA[ib], lasrc.Band(ib), in.IsFill)
		for p := 0; p < npix; p++ {
			if in.IsFill(p) {
				sband[ib][p] = s.Tunables.FillValue
			}
		}
	}
	log.WithFields(logrus.Fields{"stage": "initial-correct", "duration": time.Since(initStart)}).Info("climatology-corrected sband seeded")

	aeroScene := &aerosol.Scene{
		NLines: s.NLines, NSamps: s.NSamps,
		Geolocator: s.Geolocator,
		CMG:        s.CMG,
		Ratios:     s.Ratios,
		FastParams: fastParams,
		AOTGrid:    s.Tables.AOT550nm,
		Tunables:   s.Tunables,
		Geometry:   s.Geometry,
		IsFill:     in.IsFill,
		// The TOA-reflectance snapshots spec.md section 3's Lifecycle note
		// requires (aerob1, aerob2, aerob4, aerob5, aerob7), captured before
		// the climatology correction overwrites sband.
		AeroB1: in.TOA[lasrc.BandCoastalAerosol],
		AeroB2: in.TOA[lasrc.BandBlue],
		AeroB4: in.TOA[lasrc.BandRed],
		AeroB5: in.TOA[lasrc.BandNIR],
		AeroB7: in.TOA[lasrc.BandSWIR2],
	}

	invertStart := time.Now()
	out := aeroScene.InvertWindows()
	log.WithFields(logrus.Fields{"stage": "aerosol-inverter", "duration": time.Since(invertStart)}).Info("window centers inverted")

	fillGrid := fill.NewGrid(s.NLines, s.NSamps, s.Tunables, out.IPFlag, out.Taero, out.Teps)
	fillStart := time.Now()
	fill.FillInvalidCenters(fillGrid, s.Tunables)
	log.WithFields(logrus.Fields{"stage": "filler", "duration": time.Since(fillStart), "windows": fillGrid.Rows * fillGrid.Cols}).Info("invalid window centers filled")

	medianTaero, medianTeps := fill.SceneMedians(fillGrid, s.Tunables)
	interpStart := time.Now()
	taero, teps := fill.Interpolate(fillGrid, in.IsFill, float32(medianTaero), float32(medianTeps))
	log.WithFields(logrus.Fields{"stage": "interpolator", "duration": time.Since(interpStart)}).Info("aerosol lattice interpolated to every pixel")

	finalStart := time.Now()
	ipflag := make([]uint8, npix)
	// out.IPFlag carries the CLEAR/WATER classification spec.md section 4.4
	// assigns at each window center; FinalCorrect only ever adds the AERO1/
	// AERO2 bits, so the classification bits have to survive into the final
	// array on their own.
	for p := range ipflag {
		ipflag[p] |= out.IPFlag[p]
	}
	for ib := 0; ib < int(lasrc.NumReflBands); ib++ {
		corrector.FinalCorrect(sband[ib], taero, teps, ipflag, lasrc.Band(ib), in.IsFill)
	}
	log.WithFields(logrus.Fields{"stage": "final-correct", "duration": time.Since(finalStart)}).Info("final surface reflectance written")

	for p := 0; p < npix; p++ {
		if in.IsFill(p) {
			ipflag[p] |= 1 << lasrc.IPFlagFill
		}
	}

	return &Result{SBand: sband, IPFlag: ipflag, Taero: taero, Teps: teps}, nil
}
