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

// Package atmos implements the atmospheric correction kernel (atmcorlamb2
// and its per-pixel fast path, atmcorlamb2_new, in spec.md section 4.1): LUT
// interpolation, analytic gas-transmission formulas, and the Lambertian
// surface reflectance inversion.
package atmos

import (
	"fmt"
	"math"

	"github.com/usgs-eros/lasrc-go"
	"github.com/usgs-eros/lasrc-go/internal/lut"
)

// BaselineEpsilon is the Ångström exponent the raw LUT tables (rolutt,
// sphalbt) are assumed to have been precomputed at. The kernel scales its
// aerosol extinction relative to this baseline whenever it is called with a
// different epsilon; RefEpsilon documents the coefficient cache's own
// baseline, which differs (spec.md section 4.2 always samples the kernel at
// HIGH_EPS=2.5 when building the polynomial fits).
const BaselineEpsilon = 1.0

// Result holds the atmospheric quantities atmcorlamb2 produces for one
// (band, pressure, AOT, epsilon) evaluation.
type Result struct {
	RhoAtm      float64
	TauAtmTotal float64
	SAlbedo     float64
	TauGasOther float64
	RhoRayleigh float64
}

// Invert applies the closed-form Lambertian inversion (spec.md section 4.1)
// to a TOA reflectance, returning the surface reflectance implied by r.
func (r Result) Invert(rhoTOA float64) float64 {
	rp := rhoTOA/r.TauGasOther - r.RhoAtm
	return rp / (r.TauAtmTotal + r.SAlbedo*rp)
}

// Kernel evaluates atmcorlamb2 against a scene's LUT. A Kernel is immutable
// and safe for concurrent use by multiple pixel workers.
type Kernel struct {
	Tables *lut.Tables
}

// NewKernel binds a Kernel to an already-validated set of LUT tables.
func NewKernel(t *lut.Tables) *Kernel {
	return &Kernel{Tables: t}
}

// Correct evaluates the kernel for band ib at the scene geometry index gi,
// surface pressure pres, AOT raot550nm and Ångström exponent eps, with
// ozone uoz and water vapor uwv column amounts. It returns a typed error
// only for an out-of-range band index; out-of-grid AOT or pressure are
// clamped to the nearest LUT endpoint.
func (k *Kernel) Correct(geom lasrc.Geometry, gi lut.GeometryIndex, pres, raot550nm float64, ib lasrc.Band, eps, uoz, uwv float64) (Result, error) {
	if int(ib) < 0 || int(ib) >= k.Tables.Dims.NumBands {
		return Result{}, fmt.Errorf("atmos: Correct: invalid band index %d", ib)
	}
	bc := k.Tables.Band[ib]

	presLo, presHi, presW := k.Tables.PresBracket(pres)
	aotLo, aotHi, aotW := k.Tables.AOTBracket(raot550nm)

	rolutt := k.Tables.RoluttAt(int(ib), presLo, presHi, presW, aotLo, aotHi, aotW, gi)
	transt := k.Tables.TranstAt(int(ib), presLo, presHi, presW, aotLo, aotHi, aotW, gi)
	sphalbt := k.Tables.SphalbtAt(int(ib), presLo, presHi, presW, aotLo, aotHi, aotW)
	normext := k.Tables.NormextAt(int(ib), presLo, presHi, presW, aotLo, aotHi, aotW)

	extRatio := math.Pow(normext, eps/BaselineEpsilon)

	zeroLo, zeroHi, zeroW := k.Tables.AOTBracket(0)
	rhoRayleigh := k.Tables.RoluttAt(int(ib), presLo, presHi, presW, zeroLo, zeroHi, zeroW, gi)

	tgo := gasTransmission(bc, geom, uoz, uwv)

	return Result{
		RhoAtm:      rolutt * extRatio,
		TauAtmTotal: transt,
		SAlbedo:     sphalbt * extRatio,
		TauGasOther: tgo,
		RhoRayleigh: rhoRayleigh,
	}, nil
}

// gasTransmission evaluates the analytic ozone, water-vapor and other-gas
// transmission forms, combining them into a single "other gas" transmission
// factor tgo, the 6S-style parameterization spec.md section 4.1 names.
func gasTransmission(bc lut.BandConstants, geom lasrc.Geometry, uoz, uwv float64) float64 {
	airmass := 1/geom.Xmus + 1/geom.Xmuv

	tOz := math.Exp(-bc.OzTransA * uoz * airmass)

	wv := uwv * airmass
	tWv := 1.0 - bc.WvTransA*math.Pow(wv, bc.WvTransB)
	if tWv < 0 {
		tWv = 0
	}

	tOg := math.Exp(-bc.OgTransA1*airmass) * (1.0 - bc.OgTransB0 - bc.OgTransB1*airmass)
	if tOg < 0 {
		tOg = 0
	}

	tgo := tOz * tWv * tOg
	return math.Max(tgo, 1e-6)
}

// RayleighOpticalDepth returns the Rayleigh optical depth for band ib,
// scaled from the analytic tauray coefficient to the scene's surface
// pressure (spec.md section 4.1: "tauray provides Rayleigh optical depth").
func RayleighOpticalDepth(bc lut.BandConstants, pres float64) float64 {
	const referencePressure = 1013.25
	return bc.TauRay * (pres / referencePressure)
}
