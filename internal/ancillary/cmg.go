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

// Package ancillary bilinearly resamples the scene-wide CMG DEM, ozone,
// water-vapor and band-ratio climatology grids for a pixel's (lat, lon)
// (spec.md section 4.3). The ratio-grid default-fill guard is applied once
// per grid cell in a precomputation pass rather than during the per-pixel
// loop, breaking the reference implementation's in-place-mutation data
// hazard (spec.md section 9) while leaving the pixel loop read-only.
package ancillary

import "fmt"

// CMGIndex is the bilinear resampling index into a 0.05x0.05 degree CMG
// grid for a single (lat, lon) location.
type CMGIndex struct {
	LCmg, SCmg, LCmg1, SCmg1 int
	U, V                     float64
}

// NewCMGIndex computes the CMG bilinear resampling index for lat/lon
// (degrees) against a grid of nblat rows by nblon columns, per spec.md
// section 4.3.
func NewCMGIndex(lat, lon float64, nblat, nblon int) CMGIndex {
	ycmg := (89.975 - lat) * 20
	xcmg := (179.975 + lon) * 20
	lcmg := int(ycmg)
	scmg := int(xcmg)

	if lcmg < 0 {
		lcmg = 0
	} else if lcmg > nblat-1 {
		lcmg = nblat - 1
	}
	if scmg < 0 {
		scmg = 0
	} else if scmg > nblon-1 {
		scmg = nblon - 1
	}

	scmg1 := scmg + 1
	if scmg >= nblon-1 {
		scmg1 = 0
	}
	lcmg1 := lcmg + 1
	if lcmg >= nblat-1 {
		lcmg1 = lcmg
	}

	return CMGIndex{
		LCmg: lcmg, SCmg: scmg, LCmg1: lcmg1, SCmg1: scmg1,
		U: ycmg - float64(lcmg),
		V: xcmg - float64(scmg),
	}
}

// Bilinear samples a row-major grid of nblon columns at the index's four
// neighbors.
func (ix CMGIndex) Bilinear(grid []float64, nblon int) float64 {
	v11 := grid[ix.LCmg*nblon+ix.SCmg]
	v12 := grid[ix.LCmg*nblon+ix.SCmg1]
	v21 := grid[ix.LCmg1*nblon+ix.SCmg]
	v22 := grid[ix.LCmg1*nblon+ix.SCmg1]
	u, v := ix.U, ix.V
	return (1-u)*(1-v)*v11 + (1-u)*v*v12 + u*(1-v)*v21 + u*v*v22
}

// CMGGrid bundles the three scalar ancillary rasters a scene needs: DEM,
// ozone and water vapor, all on the same CMG lattice.
type CMGGrid struct {
	NBLat, NBLon           int
	DEM, Ozone, WaterVapor []float64
}

// NewCMGGrid validates that the three rasters match the declared shape.
func NewCMGGrid(nblat, nblon int, dem, ozone, wv []float64) (*CMGGrid, error) {
	n := nblat * nblon
	for name, g := range map[string][]float64{"dem": dem, "ozone": ozone, "water vapor": wv} {
		if len(g) != n {
			return nil, fmt.Errorf("ancillary: %s grid has %d cells, want %d (%dx%d)", name, len(g), n, nblat, nblon)
		}
	}
	return &CMGGrid{NBLat: nblat, NBLon: nblon, DEM: dem, Ozone: ozone, WaterVapor: wv}, nil
}

// Sample bilinearly resamples DEM, ozone and water vapor at lat/lon and
// returns the CMG index used, so callers can reuse it against the ratio
// grid without recomputing it.
func (g *CMGGrid) Sample(lat, lon float64) (dem, ozone, wv float64, ix CMGIndex) {
	ix = NewCMGIndex(lat, lon, g.NBLat, g.NBLon)
	dem = ix.Bilinear(g.DEM, g.NBLon)
	ozone = ix.Bilinear(g.Ozone, g.NBLon)
	wv = ix.Bilinear(g.WaterVapor, g.NBLon)
	return
}
