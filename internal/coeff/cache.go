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

// Package coeff builds the per-band, scene-constant coefficient cache:
// cubic polynomial fits in AOT of rho_atm, tau_atm_total and s_albedo,
// evaluated at the coefficient cache's reference epsilon (spec.md section
// 4.2). The cache is what lets the aerosol inverter and the final
// correction stage avoid a LUT lookup on every pixel.
package coeff

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"

	lasrc "github.com/usgs-eros/lasrc-go"
	"github.com/usgs-eros/lasrc-go/internal/atmos"
	"github.com/usgs-eros/lasrc-go/internal/lut"
)

// ReferenceEpsilon is the Ångström exponent the coefficient cache always
// samples the kernel at when building the cubic fits (spec.md section 4.2,
// step 1: "AOT = aot550nm[ia], eps = 2.5").
const ReferenceEpsilon = 2.5

// MonotonicityTolerance is the forward difference in roatm_arr that must be
// exceeded to count as still increasing; spec.md section 4.2 calls this
// epsilon_tiny.
const MonotonicityTolerance = 1e-6

// Entry is the fitted coefficient cache for a single reflectance band.
type Entry struct {
	Tgo         float64
	RoatmArr    []float64
	TtatmgArr   []float64
	SatmArr     []float64
	IaMax       int
	RoatmPoly   atmos.Poly
	TtatmgPoly  atmos.Poly
	SatmPoly    atmos.Poly
	NormextP0A3 float64
}

// FastParams adapts the entry into the parameters atmos.Evaluate needs for
// the per-pixel fast path.
func (e Entry) FastParams(aotMax float64) atmos.FastParams {
	return atmos.FastParams{
		Tgo:         e.Tgo,
		RoatmPoly:   e.RoatmPoly,
		TtatmgPoly:  e.TtatmgPoly,
		SatmPoly:    e.SatmPoly,
		NormextP0A3: e.NormextP0A3,
		AOTMax:      aotMax,
		RefEpsilon:  ReferenceEpsilon,
	}
}

// Cache holds one Entry per reflectance band.
type Cache struct {
	Entries []Entry
	AOTMax  []float64 // aot550nm[iaMax] per band, the fast-path clamp ceiling
}

// Build runs the coefficient cache construction described in spec.md section
// 4.2 for every band in t, using the scene-center geometry, pressure, ozone
// and water vapor.
func Build(log logrus.FieldLogger, k *atmos.Kernel, t *lut.Tables, geom lasrc.Geometry, gi lut.GeometryIndex, pres, uoz, uwv float64) (*Cache, error) {
	if log == nil {
		log = logrus.New()
	}
	nb := t.Dims.NumBands
	nAOT := t.Dims.NumAOT
	c := &Cache{Entries: make([]Entry, nb), AOTMax: make([]float64, nb)}

	for ib := 0; ib < nb; ib++ {
		roatm := make([]float64, nAOT)
		ttatmg := make([]float64, nAOT)
		satm := make([]float64, nAOT)
		var tgo float64

		for ia := 0; ia < nAOT; ia++ {
			res, err := k.Correct(geom, gi, pres, t.AOT550nm[ia], lasrc.Band(ib), ReferenceEpsilon, uoz, uwv)
			if err != nil {
				return nil, fmt.Errorf("coeff: building band %d: %w", ib, err)
			}
			roatm[ia] = res.RhoAtm
			ttatmg[ia] = res.TauAtmTotal
			satm[ia] = res.SAlbedo
			tgo = res.TauGasOther
		}

		iaMax := monotonicIaMax(roatm)

		roatmPoly, err := fitCubic(t.AOT550nm[:iaMax+1], roatm[:iaMax+1])
		if err != nil {
			return nil, fmt.Errorf("coeff: fitting roatm for band %d: %w", ib, err)
		}
		ttatmgPoly, err := fitCubic(t.AOT550nm, ttatmg)
		if err != nil {
			return nil, fmt.Errorf("coeff: fitting ttatmg for band %d: %w", ib, err)
		}
		satmPoly, err := fitCubic(t.AOT550nm, satm)
		if err != nil {
			return nil, fmt.Errorf("coeff: fitting satm for band %d: %w", ib, err)
		}

		c.Entries[ib] = Entry{
			Tgo:         tgo,
			RoatmArr:    roatm,
			TtatmgArr:   ttatmg,
			SatmArr:     satm,
			IaMax:       iaMax,
			RoatmPoly:   roatmPoly,
			TtatmgPoly:  ttatmgPoly,
			SatmPoly:    satmPoly,
			NormextP0A3: t.NormextP0A3(ib),
		}
		c.AOTMax[ib] = t.AOT550nm[iaMax]

		log.WithFields(logrus.Fields{
			"band":  lasrc.Band(ib),
			"iaMax": iaMax,
		}).Debug("coeff: band coefficients fitted")
	}
	return c, nil
}

// monotonicIaMax scans roatm_arr for the largest index up to which it is
// strictly increasing by more than MonotonicityTolerance, per spec.md section
// 4.2 step 2.
func monotonicIaMax(roatm []float64) int {
	iaMax := len(roatm) - 1
	for ia := 1; ia < len(roatm); ia++ {
		if roatm[ia]-roatm[ia-1] <= MonotonicityTolerance {
			iaMax = ia - 1
			break
		}
	}
	if iaMax < 0 {
		iaMax = 0
	}
	return iaMax
}

// fitCubic least-squares fits a 3rd-order polynomial y = p0 + p1*x + p2*x^2
// + p3*x^3 through the given samples, the reference implementation's
// get_3rd_order_poly_coeff.
func fitCubic(x, y []float64) (atmos.Poly, error) {
	n := len(x)
	if n < 2 {
		return atmos.Poly{}, fmt.Errorf("coeff: need at least 2 samples to fit a polynomial, got %d", n)
	}
	degree := 3
	if n <= degree {
		degree = n - 1
	}

	a := mat.NewDense(n, degree+1, nil)
	for i := 0; i < n; i++ {
		xp := 1.0
		for j := 0; j <= degree; j++ {
			a.Set(i, j, xp)
			xp *= x[i]
		}
	}
	b := mat.NewDense(n, 1, y)

	var coef mat.Dense
	if err := coef.Solve(a, b); err != nil {
		return atmos.Poly{}, fmt.Errorf("coeff: least-squares solve: %w", err)
	}

	var p atmos.Poly
	for j := 0; j <= degree; j++ {
		p[j] = coef.At(j, 0)
	}
	return p, nil
}
