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

// Package aerosol implements the windowed per-pixel aerosol inversion
// (spec.md section 4.4): a three-epsilon-trial, band-ratio-constrained
// search for (AOT, Angstrom exponent), followed by land/water
// classification and an optional water-specific retrieval.
package aerosol

import (
	"math"

	lasrc "github.com/usgs-eros/lasrc-go"
	"github.com/usgs-eros/lasrc-go/internal/atmos"
)

// Constraint is the band-ratio model for one subaeroret_new call: Erelc[ib]
// is the expected surface-reflectance ratio of band ib to iband1, or -1 if
// band ib is not part of the constraint set (spec.md section 4.4 step 5 and
// step 9).
type Constraint struct {
	Erelc  [lasrc.NumReflBands]float64
	Troatm [lasrc.NumReflBands]float64
}

// SearchState is the shared grid index subaeroret_new advances across
// successive calls at different epsilon values, so that each call resumes
// its AOT bracket search near the previous call's answer instead of
// restarting from the bottom of the grid (spec.md section 4.4 step 6: "it
// advances a shared grid index iaots across the three eps calls").
type SearchState struct {
	IAOTs int
}

// parabolicVertex returns the vertex of the parabola through (x1,y1),
// (x2,y2), (x3,y3), the same 3-point formula spec.md section 4.4 step 7
// uses for the epsilon minimization and subaeroret_new's AOT refine step.
func parabolicVertex(x1, x2, x3, y1, y2, y3 float64) (float64, bool) {
	xa := (y1 - y3) * (x2 - x3)
	xb := (y2 - y3) * (x1 - x3)
	denom := xa - xb
	if denom == 0 {
		return 0, false
	}
	return 0.5 * (xa*(x2+x3) - xb*(x1+x3)) / denom, true
}

// residualAt evaluates the RMS band-ratio residual at a candidate AOT,
// comparing each constrained band's Lambertian surface reflectance against
// iband1's, scaled by the expected ratio (spec.md section 4.4 step 6).
func residualAt(fp []atmos.FastParams, iband1 lasrc.Band, c Constraint, eps, raot float64) float64 {
	ros1 := atmos.Evaluate(fp[iband1], raot, eps, c.Troatm[iband1])
	var sumSq float64
	var n int
	for ib := 0; ib < int(lasrc.NumReflBands); ib++ {
		if ib == int(iband1) || c.Erelc[ib] < 0 {
			continue
		}
		ros := atmos.Evaluate(fp[ib], raot, eps, c.Troatm[ib])
		diff := ros - c.Erelc[ib]*ros1
		sumSq += diff * diff
		n++
	}
	if n == 0 {
		return 0
	}
	return math.Sqrt(sumSq / float64(n))
}

// SubAeroRetNew finds the AOT at which the band-ratio-constrained system in
// c is best satisfied for band iband1, at Angstrom exponent eps, starting
// its search from state's shared grid index and leaving state advanced to
// the bracket it converged on.
func SubAeroRetNew(state *SearchState, aotGrid []float64, fp []atmos.FastParams, iband1 lasrc.Band, c Constraint, eps float64) (raot, residual float64) {
	n := len(aotGrid)
	idx := state.IAOTs
	if idx < 0 {
		idx = 0
	}
	if idx > n-1 {
		idx = n - 1
	}

	resAt := func(i int) float64 { return residualAt(fp, iband1, c, eps, aotGrid[i]) }

	cur := resAt(idx)
	dir := 0
	if idx+1 < n {
		if r := resAt(idx + 1); r < cur {
			dir, cur, idx = 1, r, idx+1
		}
	}
	if dir == 0 && idx-1 >= 0 {
		if r := resAt(idx - 1); r < cur {
			dir, cur, idx = -1, r, idx-1
		}
	}
	for dir != 0 {
		next := idx + dir
		if next < 0 || next >= n {
			break
		}
		r := resAt(next)
		if r >= cur {
			break
		}
		cur, idx = r, next
	}
	state.IAOTs = idx

	lo, hi := idx-1, idx+1
	if lo < 0 {
		lo = 0
	}
	if hi > n-1 {
		hi = n - 1
	}
	if hi == lo {
		return aotGrid[idx], cur
	}

	vertex, ok := parabolicVertex(aotGrid[lo], aotGrid[idx], aotGrid[hi], resAt(lo), cur, resAt(hi))
	if !ok {
		return aotGrid[idx], cur
	}
	if vertex < aotGrid[lo] {
		vertex = aotGrid[lo]
	} else if vertex > aotGrid[hi] {
		vertex = aotGrid[hi]
	}
	return vertex, residualAt(fp, iband1, c, eps, vertex)
}

// EpsilonMinimize implements spec.md section 4.4 step 7: given three
// (epsilon, residual) samples at LOW_EPS, MOD_EPS and HIGH_EPS, returns the
// parabolic-vertex epsilon estimate clamped into (LOW_EPS, HIGH_EPS), and
// reports whether the vertex landed strictly inside that range (in which
// case the caller should rerun SubAeroRetNew at the returned epsilon).
// Collinear samples have no vertex; the endpoint with the lower residual
// (LOW_EPS or HIGH_EPS) is returned.
func EpsilonMinimize(t lasrc.Tunables, eps1, eps2, eps3, r1, r2, r3 float64) (epsMin float64, inRange bool) {
	xa := (r1 - r3) * (eps2 - eps3)
	xb := (r2 - r3) * (eps1 - eps3)
	if math.Abs(xa-xb) <= 1e-9*(math.Abs(xa)+math.Abs(xb)) {
		if r1 <= r3 {
			return t.LowEps, false
		}
		return t.HighEps, false
	}
	vertex, _ := parabolicVertex(eps1, eps2, eps3, r1, r2, r3)
	if vertex <= t.LowEps {
		return t.LowEps, false
	}
	if vertex >= t.HighEps {
		return t.HighEps, false
	}
	return vertex, true
}
