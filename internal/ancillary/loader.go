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

package ancillary

import (
	"fmt"

	"github.com/ctessum/cdf"
)

// GridReader reads the scene-wide CMG and band-ratio climatology grids out
// of a NetCDF archive that some upstream ancillary-data producer (out of
// scope per spec.md section 1) has already written. It never computes
// DEM/ozone/water-vapor/NDWI itself; it only ingests fixed-shape float64 and
// int32 variables by name, the same narrow contract as internal/lut.Loader
// against the LUT archive.
type GridReader struct {
	File cdf.File
}

// NewGridReader opens an ancillary-grid archive for reading.
func NewGridReader(r cdf.ReaderWriterAt) (*GridReader, error) {
	f, err := cdf.Open(r)
	if err != nil {
		return nil, fmt.Errorf("ancillary: opening grid archive: %w", err)
	}
	return &GridReader{File: *f}, nil
}

// ReadCMGGrid reads the "dem", "ozone" and "water_vapor" variables, each
// shaped [cmg_lat][cmg_lon], into a CMGGrid.
func (r *GridReader) ReadCMGGrid() (*CMGGrid, error) {
	nblat := int(r.dimLen("cmg_lat"))
	nblon := int(r.dimLen("cmg_lon"))

	dem, err := r.readFloat64("dem", nblat*nblon)
	if err != nil {
		return nil, err
	}
	ozone, err := r.readFloat64("ozone", nblat*nblon)
	if err != nil {
		return nil, err
	}
	wv, err := r.readFloat64("water_vapor", nblat*nblon)
	if err != nil {
		return nil, err
	}
	return NewCMGGrid(nblat, nblon, dem, ozone, wv)
}

// ReadRatioGrid reads the "andwi"/"sndwi" and the per-band mean/slope/
// intercept variables for bands 1, 2 and 7, each shaped [ratio_lat]
// [ratio_lon], applies the default-fill guard, and returns the grid the
// aerosol inverter samples.
func (r *GridReader) ReadRatioGrid() (*RatioGrid, error) {
	nblat := int(r.dimLen("ratio_lat"))
	nblon := int(r.dimLen("ratio_lon"))
	n := nblat * nblon

	andwi, err := r.readInt32("andwi", n)
	if err != nil {
		return nil, err
	}
	sndwi, err := r.readInt32("sndwi", n)
	if err != nil {
		return nil, err
	}
	b1, err := r.readBandRatio("b1", n)
	if err != nil {
		return nil, err
	}
	b2, err := r.readBandRatio("b2", n)
	if err != nil {
		return nil, err
	}
	b7, err := r.readBandRatio("b7", n)
	if err != nil {
		return nil, err
	}

	raw := make([]RawRatioCell, n)
	for i := range raw {
		raw[i] = RawRatioCell{
			ANDWI: andwi[i], SNDWI: sndwi[i],
			B1: b1[i], B2: b2[i], B7: b7[i],
		}
	}
	return GuardGrid(nblat, nblon, raw)
}

func (r *GridReader) readBandRatio(prefix string, n int) ([]RawBandRatio, error) {
	mean, err := r.readInt32(prefix+"_mean", n)
	if err != nil {
		return nil, err
	}
	slope, err := r.readInt32(prefix+"_slope", n)
	if err != nil {
		return nil, err
	}
	intercept, err := r.readInt32(prefix+"_intercept", n)
	if err != nil {
		return nil, err
	}
	out := make([]RawBandRatio, n)
	for i := range out {
		out[i] = RawBandRatio{Mean: mean[i], Slope: slope[i], Intercept: intercept[i]}
	}
	return out, nil
}

func (r *GridReader) dimLen(name string) int64 {
	lens := r.File.Header.Lengths("")
	for i, d := range r.File.Header.Dimensions("") {
		if d == name && i < len(lens) {
			return int64(lens[i])
		}
	}
	return 0
}

func (r *GridReader) readFloat64(name string, want int) ([]float64, error) {
	if len(r.File.Header.Lengths(name)) == 0 {
		return nil, fmt.Errorf("ancillary: missing variable %s", name)
	}
	rdr := r.File.Reader(name, nil, nil)
	buf := rdr.Zero(-1)
	if _, err := rdr.Read(buf); err != nil {
		return nil, fmt.Errorf("ancillary: reading %s: %w", name, err)
	}
	v, ok := buf.([]float64)
	if !ok {
		return nil, fmt.Errorf("ancillary: variable %s is not float64", name)
	}
	if len(v) != want {
		return nil, fmt.Errorf("ancillary: variable %s has %d elements, want %d", name, len(v), want)
	}
	return v, nil
}

func (r *GridReader) readInt32(name string, want int) ([]int32, error) {
	rdr := r.File.Reader(name, nil, nil)
	buf := rdr.Zero(-1)
	if _, err := rdr.Read(buf); err != nil {
		return nil, fmt.Errorf("ancillary: reading %s: %w", name, err)
	}
	v, ok := buf.([]int32)
	if !ok {
		return nil, fmt.Errorf("ancillary: variable %s is not int32", name)
	}
	if len(v) != want {
		return nil, fmt.Errorf("ancillary: variable %s has %d elements, want %d", name, len(v), want)
	}
	return v, nil
}
