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

// Package fill replaces invalid aerosol-window-center retrievals with a
// local neighbor mean (spec.md section 4.5), then bilinearly interpolates
// the window-center (AOT, epsilon) lattice out to every pixel (spec.md
// section 4.6).
package fill

import (
	"sort"

	lasrc "github.com/usgs-eros/lasrc-go"
)

// Grid addresses the coarse lattice of aerosol-window centers by (center
// row, center column) rather than by full-resolution pixel index.
type Grid struct {
	NLines, NSamps int
	Stride, Half   int
	Rows, Cols     int
	IPFlag         []uint8
	Taero          []float32
	Teps           []float32
}

// NewGrid wraps the per-pixel output arrays the aerosol inverter produced,
// computing the coarse lattice shape implied by t.
func NewGrid(nlines, nsamps int, t lasrc.Tunables, ipflag []uint8, taero, teps []float32) *Grid {
	half := t.HalfWindow()
	stride := t.AeroWindow
	var rows, cols int
	for l := half; l < nlines; l += stride {
		rows++
	}
	for s := half; s < nsamps; s += stride {
		cols++
	}
	return &Grid{
		NLines: nlines, NSamps: nsamps, Stride: stride, Half: half,
		Rows: rows, Cols: cols, IPFlag: ipflag, Taero: taero, Teps: teps,
	}
}

func (g *Grid) centerLine(ri int) int { return g.Half + ri*g.Stride }
func (g *Grid) centerSamp(ci int) int { return g.Half + ci*g.Stride }
func (g *Grid) pix(ri, ci int) int    { return g.centerLine(ri)*g.NSamps + g.centerSamp(ci) }

// FillInvalidCenters implements spec.md section 4.5: every center whose
// ipflag is neither FILL nor a successful CLEAR/WATER retrieval is replaced
// by the mean of valid neighbors within the smallest box radius that
// contains at least one. Centers with no valid neighbor at any radius fall
// back to the scene median, preferring the clear-center population over
// the water-center population over the hardcoded default.
func FillInvalidCenters(g *Grid, t lasrc.Tunables) {
	medianTaero, medianTeps := SceneMedians(g, t)
	for ri := 0; ri < g.Rows; ri++ {
		for ci := 0; ci < g.Cols; ci++ {
			p := g.pix(ri, ci)
			if g.IPFlag[p] != 0 {
				continue
			}
			if taero, teps, ok := meanOfExpandingNeighbors(g, ri, ci); ok {
				g.Taero[p] = taero
				g.Teps[p] = teps
			} else {
				g.Taero[p] = float32(medianTaero)
				g.Teps[p] = float32(medianTeps)
			}
		}
	}
}

// meanOfExpandingNeighbors searches box rings of increasing Chebyshev
// radius around (ri, ci) and averages every valid (CLEAR or WATER,
// non-fill) center found at the first radius with any match.
func meanOfExpandingNeighbors(g *Grid, ri, ci int) (float32, float32, bool) {
	maxRadius := g.Rows
	if g.Cols > maxRadius {
		maxRadius = g.Cols
	}
	for r := 1; r <= maxRadius; r++ {
		var sumTaero, sumTeps float64
		var n int
		for dr := -r; dr <= r; dr++ {
			for dc := -r; dc <= r; dc++ {
				if dr > -r && dr < r && dc > -r && dc < r {
					continue // interior of this box was already checked at a smaller radius
				}
				nr, nc := ri+dr, ci+dc
				if nr < 0 || nr >= g.Rows || nc < 0 || nc >= g.Cols {
					continue
				}
				p := g.pix(nr, nc)
				if lasrc.IsValidRetrieval(g.IPFlag[p]) {
					sumTaero += float64(g.Taero[p])
					sumTeps += float64(g.Teps[p])
					n++
				}
			}
		}
		if n > 0 {
			return float32(sumTaero / float64(n)), float32(sumTeps / float64(n)), true
		}
	}
	return 0, 0, false
}

// SceneMedians computes the scene-median (taero, teps) fallback population
// spec.md section 4.5 describes: the CLEAR-center median, falling back to
// the WATER-center median, falling back to the hardcoded default. The
// window interpolator uses the same pair as its fill-pixel default (spec.md
// section 4.6).
func SceneMedians(g *Grid, t lasrc.Tunables) (taero, teps float64) {
	if pop := collect(g, lasrc.IsClear); len(pop.taero) > 0 {
		return median(pop.taero), median(pop.teps)
	}
	if pop := collect(g, lasrc.IsWater); len(pop.taero) > 0 {
		return median(pop.taero), median(pop.teps)
	}
	return float64(t.DefaultTaero), float64(t.DefaultTeps)
}

type population struct{ taero, teps []float64 }

func collect(g *Grid, pred func(uint8) bool) population {
	var p population
	for ri := 0; ri < g.Rows; ri++ {
		for ci := 0; ci < g.Cols; ci++ {
			idx := g.pix(ri, ci)
			if pred(g.IPFlag[idx]) {
				p.taero = append(p.taero, float64(g.Taero[idx]))
				p.teps = append(p.teps, float64(g.Teps[idx]))
			}
		}
	}
	return p
}

func median(xs []float64) float64 {
	s := append([]float64(nil), xs...)
	sort.Float64s(s)
	n := len(s)
	if n%2 == 1 {
		return s[n/2]
	}
	return (s[n/2-1] + s[n/2]) / 2
}
