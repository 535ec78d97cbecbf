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

// Package correct implements spec.md section 4.7: the final per-pixel
// Lambertian correction and aerosol QA bit derivation. It also seeds the
// initial, scene-nominal surface reflectance that the aerosol inverter's
// snapshots and the final correction's TOA reconstruction both depend on.
package correct

import (
	"math"
	"runtime"
	"sync"

	lasrc "github.com/usgs-eros/lasrc-go"
	"github.com/usgs-eros/lasrc-go/internal/atmos"
)

// Corrector holds the scene-constant state the final correction stage needs:
// the per-band fast-path coefficients and the nominal (AOT, eps) pair the
// initial correction pass (and thus the stored sband it later reconstructs
// from) was evaluated at.
type Corrector struct {
	NLines, NSamps     int
	FastParams         []atmos.FastParams // per band
	Tunables           lasrc.Tunables
	SceneAOT, SceneEps float64
}

// sceneCoefficients evaluates band ib's fast-path polynomials at the scene's
// nominal (AOT, eps), the (btgo, broatm, bttatmg, bsatm) of spec.md section
// 4.7 step 1.
func (c *Corrector) sceneCoefficients(ib lasrc.Band) atmos.SceneCoefficients {
	return atmos.EvaluateCoefficients(c.FastParams[ib], c.SceneAOT, c.SceneEps)
}

// InitialCorrect seeds sband with the scene-nominal surface reflectance for
// band ib, before the aerosol inverter captures its aerob snapshots and
// before any per-pixel (AOT, eps) is known.
func (c *Corrector) InitialCorrect(toa []float32, ib lasrc.Band, isFill func(int) bool) []float32 {
	sr := make([]float32, len(toa))
	coef := c.sceneCoefficients(ib)
	forEachLine(c.NLines, func(l int) {
		for s := 0; s < c.NSamps; s++ {
			p := l*c.NSamps + s
			if isFill(p) {
				continue
			}
			sr[p] = float32(coef.Invert(float64(toa[p])))
		}
	})
	return sr
}

// FinalCorrect implements spec.md section 4.7 steps 1-4 for band ib:
// reconstructs the pre-correction TOA from the currently stored sband using
// the scene-nominal coefficients, re-derives the surface reflectance at the
// pixel's retrieved (taero, teps), accumulates AERO QA bits into ipflag on
// band 1, clamps, and writes sband in place.
func (c *Corrector) FinalCorrect(sband []float32, taero, teps []float32, ipflag []uint8, ib lasrc.Band, isFill func(int) bool) {
	coef := c.sceneCoefficients(ib)
	t := c.Tunables

	forEachLine(c.NLines, func(l int) {
		for s := 0; s < c.NSamps; s++ {
			p := l*c.NSamps + s
			if isFill(p) {
				continue
			}

			rsurf := float64(sband[p])
			rhoTOA := coef.ReconstructTOA(rsurf)
			roslamb := atmos.Evaluate(c.FastParams[ib], float64(taero[p]), float64(teps[p]), rhoTOA)

			if ib == lasrc.BandCoastalAerosol {
				ipflag[p] |= aeroQABits(math.Abs(rsurf-roslamb), t)
			}

			sband[p] = lasrc.ClampF32(float32(roslamb), t.MinValidRefl, t.MaxValidRefl)
		}
	})
}

// aeroQABits implements spec.md section 4.7 step 3's three-way threshold.
func aeroQABits(delta float64, t lasrc.Tunables) uint8 {
	switch {
	case delta <= t.LowAeroThresh:
		return 1 << lasrc.IPFlagAero1
	case delta < t.AvgAeroThresh:
		return 1 << lasrc.IPFlagAero2
	default:
		return (1 << lasrc.IPFlagAero1) | (1 << lasrc.IPFlagAero2)
	}
}

// forEachLine partitions the [0, nlines) range across GOMAXPROCS workers,
// each striding by the worker count, and blocks until every worker has
// finished its share. Each worker only ever touches the pixel indices of the
// lines it owns, so no locking is needed (spec.md section 5).
func forEachLine(nlines int, f func(l int)) {
	ncpu := runtime.GOMAXPROCS(0)
	var wg sync.WaitGroup
	wg.Add(ncpu)
	for p := 0; p < ncpu; p++ {
		go func(p int) {
			defer wg.Done()
			for l := p; l < nlines; l += ncpu {
				f(l)
			}
		}(p)
	}
	wg.Wait()
}
