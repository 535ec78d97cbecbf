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

// Package lut owns the 6S-style radiative transfer lookup table and the
// scattering-geometry envelope tables described in spec.md section 3. It is
// immutable after construction and is shared read-only across the pixel-
// parallel stages of the pipeline.
package lut

import "fmt"

// Dims describes the shape of the lookup tables, mirroring the array shapes
// named in spec.md section 3. NumSolarZenith sizes both the intrinsic
// reflectance (rolutt) and transmission (transt) tables' angle axis and the
// solar-zenith axis of the scattering-angle envelope tables
// (tsmax/tsmin/ttv/nbfi/nbfic); there is no separate solar-angle axis.
type Dims struct {
	NumBands         int
	NumPressure      int
	NumAOT           int
	NumViewZenith    int
	NumSolarZenith   int // also the rolutt/transt angle axis, see above
	ViewZenithMinDeg float64
	ViewZenithStep   float64
	SolarZenithMinDeg float64
	SolarZenithStep   float64
}

func (d Dims) idx4(band, pres, aot, ang int) int {
	return ((band*d.NumPressure+pres)*d.NumAOT+aot)*d.NumSolarZenith + ang
}

func (d Dims) idx3(band, pres, aot int) int {
	return (band*d.NumPressure+pres)*d.NumAOT + aot
}

func (d Dims) idx2(viewZenith, solarZenith int) int {
	return viewZenith*d.NumSolarZenith + solarZenith
}

// BandConstants are the per-band analytic gas-absorption and Rayleigh
// coefficients from spec.md section 3 ("Per-band analytic constants").
type BandConstants struct {
	TauRay    float64 // Rayleigh optical depth coefficient
	OzTransA  float64
	WvTransA  float64
	WvTransB  float64
	OgTransA1 float64
	OgTransB0 float64
	OgTransB1 float64
}

// Tables holds the full set of immutable, scene-constant LUT arrays. All
// slices are row-major flattened using Dims' idx helpers.
type Tables struct {
	Dims Dims

	Rolutt  []float32 // [band][pres][aot][solar angle] intrinsic reflectance
	Transt  []float32 // [band][pres][aot][solar angle] total transmission
	Sphalbt []float32 // [band][pres][aot] spherical albedo
	Normext []float32 // [band][pres][aot] normalized aerosol extinction (550nm)

	Tsmax []float64 // [viewZenith][solarZenith] max scattering angle
	Tsmin []float64 // [viewZenith][solarZenith] min scattering angle
	Ttv   []float64 // [viewZenith][solarZenith] view angle table
	Nbfi  []float64 // [viewZenith][solarZenith] azimuth angle count
	Nbfic []float64 // [viewZenith][solarZenith] cumulative azimuth angle count

	AOT550nm []float64 // NumAOT strictly increasing AOT grid, nm=550
	Pres     []float64 // NumPressure strictly decreasing pressure grid, hPa

	// Band holds the per-band analytic constants, indexed by lasrc.Band.
	Band []BandConstants
}

// NewTables allocates zeroed tables of the given shape. Callers (typically a
// Loader) populate the slices.
func NewTables(d Dims, bandConsts []BandConstants) (*Tables, error) {
	if d.NumBands <= 0 || d.NumPressure <= 0 || d.NumAOT <= 0 || d.NumViewZenith <= 0 || d.NumSolarZenith <= 0 {
		return nil, fmt.Errorf("lut: invalid dims %+v", d)
	}
	if len(bandConsts) != d.NumBands {
		return nil, fmt.Errorf("lut: got %d band constants, want %d", len(bandConsts), d.NumBands)
	}
	t := &Tables{
		Dims:     d,
		Rolutt:   make([]float32, d.NumBands*d.NumPressure*d.NumAOT*d.NumSolarZenith),
		Transt:   make([]float32, d.NumBands*d.NumPressure*d.NumAOT*d.NumSolarZenith),
		Sphalbt:  make([]float32, d.NumBands*d.NumPressure*d.NumAOT),
		Normext:  make([]float32, d.NumBands*d.NumPressure*d.NumAOT),
		Tsmax:    make([]float64, d.NumViewZenith*d.NumSolarZenith),
		Tsmin:    make([]float64, d.NumViewZenith*d.NumSolarZenith),
		Ttv:      make([]float64, d.NumViewZenith*d.NumSolarZenith),
		Nbfi:     make([]float64, d.NumViewZenith*d.NumSolarZenith),
		Nbfic:    make([]float64, d.NumViewZenith*d.NumSolarZenith),
		AOT550nm: make([]float64, d.NumAOT),
		Pres:     make([]float64, d.NumPressure),
		Band:     bandConsts,
	}
	return t, nil
}

// Validate checks the monotonicity invariants from spec.md section 3: the
// AOT grid strictly increasing, the pressure grid strictly decreasing.
func (t *Tables) Validate() error {
	for i := 1; i < len(t.AOT550nm); i++ {
		if t.AOT550nm[i] <= t.AOT550nm[i-1] {
			return fmt.Errorf("lut: aot550nm must be strictly increasing, got %v at index %d", t.AOT550nm, i)
		}
	}
	for i := 1; i < len(t.Pres); i++ {
		if t.Pres[i] >= t.Pres[i-1] {
			return fmt.Errorf("lut: tpres must be strictly decreasing, got %v at index %d", t.Pres, i)
		}
	}
	return nil
}

// bracket finds the bracketing grid indices (lo, hi) and interpolation
// weight w such that value = (1-w)*grid[lo] + w*grid[hi], clamping to the
// grid endpoints when value is out of range (spec.md section 4.1: "Out-of-
// grid AOT or pressure is clamped to the nearest endpoint").
func bracket(grid []float64, value float64, increasing bool) (lo, hi int, w float64) {
	n := len(grid)
	if n == 1 {
		return 0, 0, 0
	}
	if increasing {
		if value <= grid[0] {
			return 0, 0, 0
		}
		if value >= grid[n-1] {
			return n - 1, n - 1, 0
		}
		for i := 1; i < n; i++ {
			if grid[i] >= value {
				lo, hi = i-1, i
				w = (value - grid[lo]) / (grid[hi] - grid[lo])
				return
			}
		}
		return n - 1, n - 1, 0
	}
	// decreasing grid (pressure)
	if value >= grid[0] {
		return 0, 0, 0
	}
	if value <= grid[n-1] {
		return n - 1, n - 1, 0
	}
	for i := 1; i < n; i++ {
		if grid[i] <= value {
			lo, hi = i-1, i
			w = (grid[lo] - value) / (grid[lo] - grid[hi])
			return
		}
	}
	return n - 1, n - 1, 0
}

// AOTBracket brackets raot550nm in the AOT grid.
func (t *Tables) AOTBracket(raot550nm float64) (lo, hi int, w float64) {
	return bracket(t.AOT550nm, raot550nm, true)
}

// PresBracket brackets pres in the pressure grid.
func (t *Tables) PresBracket(pres float64) (lo, hi int, w float64) {
	return bracket(t.Pres, pres, false)
}

// GeometryIndex is the scene-constant solar/view angle lookup computed once
// per scene from the scattering-angle envelope tables (spec.md section
// 4.1). Because the core only ever evaluates atmcorlamb2 at the scene-
// center geometry (view nadir, zero relative azimuth), this index never
// changes during a scene and is computed a single time.
type GeometryIndex struct {
	ViewZenithIdx           int
	SolarAngleLo, SolarAngleHi int
	SolarAngleWeight        float64
}

// NewGeometryIndex computes the scene geometry index from the scattering-
// angle envelope tables for the given view/solar zenith (degrees).
func NewGeometryIndex(t *Tables, xtv, xts float64) GeometryIndex {
	d := t.Dims
	iv := int((xtv - d.ViewZenithMinDeg) / d.ViewZenithStep)
	if iv < 0 {
		iv = 0
	}
	if iv >= d.NumViewZenith {
		iv = d.NumViewZenith - 1
	}
	lo, hi, w := bracket(solarZenithGrid(d), xts, true)
	return GeometryIndex{ViewZenithIdx: iv, SolarAngleLo: lo, SolarAngleHi: hi, SolarAngleWeight: w}
}

func solarZenithGrid(d Dims) []float64 {
	g := make([]float64, d.NumSolarZenith)
	for i := range g {
		g[i] = d.SolarZenithMinDeg + float64(i)*d.SolarZenithStep
	}
	return g
}

// Envelope returns the bilinearly interpolated scattering-angle envelope
// (tsmax, tsmin, ttv, nbfi, nbfic) at the scene geometry index.
func (t *Tables) Envelope(gi GeometryIndex) (tsmax, tsmin, ttv, nbfi, nbfic float64) {
	d := t.Dims
	lo := d.idx2(gi.ViewZenithIdx, gi.SolarAngleLo)
	hi := d.idx2(gi.ViewZenithIdx, gi.SolarAngleHi)
	w := gi.SolarAngleWeight
	lerp := func(arr []float64) float64 { return (1-w)*arr[lo] + w*arr[hi] }
	return lerp(t.Tsmax), lerp(t.Tsmin), lerp(t.Ttv), lerp(t.Nbfi), lerp(t.Nbfic)
}

// RoluttAt returns the intrinsic reflectance bilinearly interpolated over
// pressure and AOT at the scene's (fixed) solar-angle index, for band ib.
func (t *Tables) RoluttAt(ib, presLo, presHi int, presW float64, aotLo, aotHi int, aotW float64, gi GeometryIndex) float64 {
	return t.lookup4(t.Rolutt, ib, presLo, presHi, presW, aotLo, aotHi, aotW, gi)
}

// TranstAt returns the total transmission bilinearly interpolated over
// pressure and AOT at the scene's (fixed) solar-angle index, for band ib.
func (t *Tables) TranstAt(ib, presLo, presHi int, presW float64, aotLo, aotHi int, aotW float64, gi GeometryIndex) float64 {
	return t.lookup4(t.Transt, ib, presLo, presHi, presW, aotLo, aotHi, aotW, gi)
}

func (t *Tables) lookup4(arr []float32, ib, presLo, presHi int, presW float64, aotLo, aotHi int, aotW float64, gi GeometryIndex) float64 {
	d := t.Dims
	at := func(pres, aot, ang int) float64 { return float64(arr[d.idx4(ib, pres, aot, ang)]) }
	interpAngle := func(pres, aot int) float64 {
		lo := at(pres, aot, gi.SolarAngleLo)
		hi := at(pres, aot, gi.SolarAngleHi)
		return (1-gi.SolarAngleWeight)*lo + gi.SolarAngleWeight*hi
	}
	v00 := interpAngle(presLo, aotLo)
	v01 := interpAngle(presLo, aotHi)
	v10 := interpAngle(presHi, aotLo)
	v11 := interpAngle(presHi, aotHi)
	v0 := (1-aotW)*v00 + aotW*v01
	v1 := (1-aotW)*v10 + aotW*v11
	return (1-presW)*v0 + presW*v1
}

// SphalbtAt returns the spherical albedo bilinearly interpolated over
// pressure and AOT for band ib.
func (t *Tables) SphalbtAt(ib, presLo, presHi int, presW float64, aotLo, aotHi int, aotW float64) float64 {
	return t.lookup3(t.Sphalbt, ib, presLo, presHi, presW, aotLo, aotHi, aotW)
}

// NormextAt returns the normalized aerosol extinction bilinearly
// interpolated over pressure and AOT for band ib.
func (t *Tables) NormextAt(ib, presLo, presHi int, presW float64, aotLo, aotHi int, aotW float64) float64 {
	return t.lookup3(t.Normext, ib, presLo, presHi, presW, aotLo, aotHi, aotW)
}

func (t *Tables) lookup3(arr []float32, ib, presLo, presHi int, presW float64, aotLo, aotHi int, aotW float64) float64 {
	d := t.Dims
	at := func(pres, aot int) float64 { return float64(arr[d.idx3(ib, pres, aot)]) }
	v0 := (1-aotW)*at(presLo, aotLo) + aotW*at(presLo, aotHi)
	v1 := (1-aotW)*at(presHi, aotLo) + aotW*at(presHi, aotHi)
	return (1-presW)*v0 + presW*v1
}

// NormextP0A3 returns normext[ib][0][3], the AOT-index-3 extinction at the
// highest pressure sample (pressure index 0, since the LUT's pressure grid
// is stored strictly decreasing), used by the coefficient cache as
// normext_p0a3_arr (spec.md section 4.2).
func (t *Tables) NormextP0A3(ib int) float64 {
	d := t.Dims
	aotIdx := 3
	if aotIdx >= d.NumAOT {
		aotIdx = d.NumAOT - 1
	}
	return float64(t.Normext[d.idx3(ib, 0, aotIdx)])
}
