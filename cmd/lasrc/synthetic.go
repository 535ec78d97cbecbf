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

package main

import (
	"fmt"
	"math"

	lasrc "github.com/usgs-eros/lasrc-go"
	"github.com/usgs-eros/lasrc-go/internal/ancillary"
	"github.com/usgs-eros/lasrc-go/internal/lut"
)

// idx3/idx4 duplicate lut.Dims' row-major flattening contract (documented in
// internal/lut/lut.go: "All slices are row-major flattened using Dims' idx
// helpers"), since those idx helpers are package-private and a synthetic LUT
// has no archive to decode the arrays from.
func idx3(d lut.Dims, band, pres, aot int) int {
	return (band*d.NumPressure+pres)*d.NumAOT + aot
}

func idx4(d lut.Dims, band, pres, aot, ang int) int {
	return ((band*d.NumPressure+pres)*d.NumAOT+aot)*d.NumSolarZenith + ang
}

// synthAOT550nm and synthTPres are the literal AOT and pressure grids
// spec.md section 3 names; a synthetic run still samples at the real grid
// points even though the tables' radiative-transfer content is fabricated.
var synthAOT550nm = []float64{0.01, 0.05, 0.10, 0.15, 0.20, 0.30, 0.40, 0.60, 0.80, 1.00, 1.20, 1.40, 1.60, 1.80, 2.00, 2.30, 2.60, 3.00, 3.50, 4.00, 4.50, 5.00}
var synthTPres = []float64{1050, 1013, 900, 800, 700, 600, 500}

// synthesizeTables builds a small, internally consistent LUT used by the
// correct command when no LUTPath is configured: smooth, monotonic-in-AOT
// functions standing in for a real 6S-model precomputation, exercised only
// by examples and smoke runs, never by a real scene.
func synthesizeTables() *lut.Tables {
	d := lut.Dims{
		NumBands:          int(lasrc.NumReflBands),
		NumPressure:       len(synthTPres),
		NumAOT:            len(synthAOT550nm),
		NumViewZenith:     1,
		NumSolarZenith:    19,
		ViewZenithMinDeg:  0,
		ViewZenithStep:    2,
		SolarZenithMinDeg: 0,
		SolarZenithStep:   4,
	}
	bandConsts := make([]lut.BandConstants, d.NumBands)
	for ib := range bandConsts {
		bandConsts[ib] = lut.BandConstants{
			TauRay:    0.1 - 0.01*float64(ib),
			OzTransA:  0.002 + 0.0002*float64(ib),
			WvTransA:  0.03,
			WvTransB:  0.8,
			OgTransA1: 0.01,
			OgTransB0: 0.01,
			OgTransB1: 0.005,
		}
	}
	t, err := lut.NewTables(d, bandConsts)
	if err != nil {
		panic(fmt.Sprintf("lasrc: synthesizeTables: %v", err))
	}
	copy(t.AOT550nm, synthAOT550nm)
	copy(t.Pres, synthTPres)

	for ib := 0; ib < d.NumBands; ib++ {
		for ip := 0; ip < d.NumPressure; ip++ {
			presScale := t.Pres[ip] / t.Pres[0]
			for ia := 0; ia < d.NumAOT; ia++ {
				aot := t.AOT550nm[ia]
				sphalbt := 0.1 + 0.05*aot*presScale
				normext := 1.0 + 0.2*aot
				t.Sphalbt[idx3(d, ib, ip, ia)] = float32(sphalbt)
				t.Normext[idx3(d, ib, ip, ia)] = float32(normext)
				for isz := 0; isz < d.NumSolarZenith; isz++ {
					angScale := 1.0 + 0.3*float64(isz)/float64(d.NumSolarZenith)
					rolutt := 0.02 + 0.03*aot*angScale*presScale
					transt := math.Exp(-0.05 * aot * angScale)
					t.Rolutt[idx4(d, ib, ip, ia, isz)] = float32(rolutt)
					t.Transt[idx4(d, ib, ip, ia, isz)] = float32(transt)
				}
			}
		}
	}
	for i := 0; i < d.NumViewZenith*d.NumSolarZenith; i++ {
		t.Tsmax[i] = 180
		t.Tsmin[i] = 0
		t.Ttv[i] = 1
		t.Nbfi[i] = 8
		t.Nbfic[i] = 8
	}
	return t
}

// synthesizeAncillary builds a flat CMG and ratio grid: uniform ozone/water
// vapor/DEM, and a ratio climatology with a populated NDWI statistic so the
// aerosol inverter's guard takes its ordinary (non-default-fill) path.
func synthesizeAncillary() (*ancillary.CMGGrid, *ancillary.RatioGrid) {
	const nblat, nblon = 8, 8
	n := nblat * nblon
	dem := make([]float64, n)
	ozone := make([]float64, n)
	wv := make([]float64, n)
	for i := range ozone {
		ozone[i] = 0.28
		wv[i] = 1.5
	}
	cmg, err := ancillary.NewCMGGrid(nblat, nblon, dem, ozone, wv)
	if err != nil {
		panic(fmt.Sprintf("lasrc: synthesizeAncillary: %v", err))
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
		panic(fmt.Sprintf("lasrc: synthesizeAncillary: %v", err))
	}
	return cmg, ratios
}
