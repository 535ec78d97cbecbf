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
	"os"

	"github.com/ctessum/cdf"

	lasrc "github.com/usgs-eros/lasrc-go"
)

// sceneTOA holds the calibrated per-band TOA reflectance and fill mask a
// scene archive supplies; this is the "calibrated TOA reflectance per band"
// spec.md section 1 lists as the core's input, already produced by the
// out-of-scope Level-1 calibration collaborator (internal/toa reproduces
// that collaborator's contract for examples, but the CLI reads its output
// directly here rather than re-deriving it from raw DN).
type sceneTOA struct {
	NLines, NSamps int
	Bands          [lasrc.NumReflBands][]float32
	Fill           []uint8
}

func (s *sceneTOA) isFill(pix int) bool { return s.Fill[pix] != 0 }

// readSceneArchive reads "toa_b1".."toa_b7" (float32, [nlines][nsamps]) and
// "fill_mask" (uint8, [nlines][nsamps]) out of a NetCDF scene archive.
func readSceneArchive(path string) (*sceneTOA, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("lasrc: opening scene archive: %w", err)
	}
	defer f.Close()

	file, err := cdf.Open(f)
	if err != nil {
		return nil, fmt.Errorf("lasrc: decoding scene archive: %w", err)
	}

	lens := file.Header.Lengths("toa_b1")
	if len(lens) != 2 {
		return nil, fmt.Errorf("lasrc: scene archive toa_b1 must be 2-D [nlines][nsamps]")
	}
	nlines, nsamps := int(lens[0]), int(lens[1])
	npix := nlines * nsamps

	s := &sceneTOA{NLines: nlines, NSamps: nsamps}
	for ib := lasrc.Band(0); ib < lasrc.NumReflBands; ib++ {
		name := fmt.Sprintf("toa_%s", toLowerBand(ib))
		r := file.Reader(name, nil, nil)
		buf := r.Zero(-1)
		if _, err := r.Read(buf); err != nil {
			return nil, fmt.Errorf("lasrc: reading %s: %w", name, err)
		}
		v, ok := buf.([]float32)
		if !ok || len(v) != npix {
			return nil, fmt.Errorf("lasrc: variable %s has unexpected shape", name)
		}
		s.Bands[ib] = v
	}

	fr := file.Reader("fill_mask", nil, nil)
	fbuf := fr.Zero(-1)
	if _, err := fr.Read(fbuf); err != nil {
		return nil, fmt.Errorf("lasrc: reading fill_mask: %w", err)
	}
	fv, ok := fbuf.([]uint8)
	if !ok || len(fv) != npix {
		return nil, fmt.Errorf("lasrc: variable fill_mask has unexpected shape")
	}
	s.Fill = fv
	return s, nil
}

func toLowerBand(ib lasrc.Band) string {
	switch ib {
	case lasrc.BandCoastalAerosol:
		return "b1"
	case lasrc.BandBlue:
		return "b2"
	case lasrc.BandGreen:
		return "b3"
	case lasrc.BandRed:
		return "b4"
	case lasrc.BandNIR:
		return "b5"
	case lasrc.BandSWIR1:
		return "b6"
	case lasrc.BandSWIR2:
		return "b7"
	default:
		return "invalid"
	}
}

// synthesizeScene builds a small TOA scene matching the AeroWindow stride so
// the correct command can run end-to-end without a scene archive: flat
// mid-range reflectance everywhere, a single fill pixel in the corner.
func synthesizeScene(tun lasrc.Tunables) *sceneTOA {
	nlines, nsamps := 4*tun.AeroWindow, 4*tun.AeroWindow
	npix := nlines * nsamps
	s := &sceneTOA{NLines: nlines, NSamps: nsamps, Fill: make([]uint8, npix)}
	for ib := range s.Bands {
		band := make([]float32, npix)
		base := float32(0.05 + 0.02*float64(ib))
		for i := range band {
			band[i] = base
		}
		s.Bands[ib] = band
	}
	s.Fill[0] = 1
	return s
}
