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
	"os"
	"testing"

	"github.com/ctessum/cdf"
)

// writeTestGridArchive builds a tiny 2x2 CMG grid and 2x2 ratio grid NetCDF
// archive, the same way sr/sr.go assembles an output file: define a header,
// cdf.Create it against a temp file, then write each variable's data.
func writeTestGridArchive(t *testing.T) *os.File {
	h := cdf.NewHeader(
		[]string{"cmg_lat", "cmg_lon", "ratio_lat", "ratio_lon"},
		[]int{2, 2, 2, 2},
	)
	h.AddVariable("dem", []string{"cmg_lat", "cmg_lon"}, []float64{0})
	h.AddVariable("ozone", []string{"cmg_lat", "cmg_lon"}, []float64{0})
	h.AddVariable("water_vapor", []string{"cmg_lat", "cmg_lon"}, []float64{0})
	h.AddVariable("andwi", []string{"ratio_lat", "ratio_lon"}, []int32{0})
	h.AddVariable("sndwi", []string{"ratio_lat", "ratio_lon"}, []int32{0})
	for _, prefix := range []string{"b1", "b2", "b7"} {
		h.AddVariable(prefix+"_mean", []string{"ratio_lat", "ratio_lon"}, []int32{0})
		h.AddVariable(prefix+"_slope", []string{"ratio_lat", "ratio_lon"}, []int32{0})
		h.AddVariable(prefix+"_intercept", []string{"ratio_lat", "ratio_lon"}, []int32{0})
	}
	h.Define()
	if errs := h.Check(); len(errs) > 0 {
		t.Fatalf("header check: %v", errs[0])
	}

	f, err := os.CreateTemp(t.TempDir(), "ancillary-*.nc")
	if err != nil {
		t.Fatalf("CreateTemp: %v", err)
	}
	cf, err := cdf.Create(f, h)
	if err != nil {
		t.Fatalf("cdf.Create: %v", err)
	}

	writeF64 := func(name string, v []float64) {
		w := cf.Writer(name, []int{0, 0}, []int{2, 2})
		if _, err := w.Write(v); err != nil {
			t.Fatalf("writing %s: %v", name, err)
		}
	}
	writeI32 := func(name string, v []int32) {
		w := cf.Writer(name, []int{0, 0}, []int{2, 2})
		if _, err := w.Write(v); err != nil {
			t.Fatalf("writing %s: %v", name, err)
		}
	}

	writeF64("dem", []float64{100, 200, 300, 400})
	writeF64("ozone", []float64{0.28, 0.28, 0.30, 0.30})
	writeF64("water_vapor", []float64{1.5, 1.5, 1.8, 1.8})

	writeI32("andwi", []int32{0, 0, 0, 0})
	writeI32("sndwi", []int32{500, 500, 500, 500})
	writeI32("b1_mean", []int32{550, 550, 550, 550})
	writeI32("b1_slope", []int32{50, 50, 50, 50})
	writeI32("b1_intercept", []int32{550, 550, 550, 550})
	writeI32("b2_mean", []int32{600, 600, 600, 600})
	writeI32("b2_slope", []int32{40, 40, 40, 40})
	writeI32("b2_intercept", []int32{600, 600, 600, 600})
	writeI32("b7_mean", []int32{700, 700, 700, 700})
	writeI32("b7_slope", []int32{10, 10, 10, 10})
	writeI32("b7_intercept", []int32{2000, 2000, 2000, 2000})

	if err := f.Close(); err != nil {
		t.Fatalf("closing archive: %v", err)
	}
	reopened, err := os.Open(f.Name())
	if err != nil {
		t.Fatalf("reopening archive: %v", err)
	}
	t.Cleanup(func() { reopened.Close() })
	return reopened
}

func TestGridReaderReadsCMGAndRatioGrids(t *testing.T) {
	f := writeTestGridArchive(t)

	reader, err := NewGridReader(f)
	if err != nil {
		t.Fatalf("NewGridReader: %v", err)
	}

	cmg, err := reader.ReadCMGGrid()
	if err != nil {
		t.Fatalf("ReadCMGGrid: %v", err)
	}
	if cmg.NBLat != 2 || cmg.NBLon != 2 {
		t.Fatalf("CMGGrid shape = %dx%d, want 2x2", cmg.NBLat, cmg.NBLon)
	}
	if cmg.DEM[0] != 100 || cmg.DEM[3] != 400 {
		t.Fatalf("DEM = %v, want [100 200 300 400]", cmg.DEM)
	}
	if cmg.Ozone[2] != 0.30 {
		t.Fatalf("Ozone[2] = %v, want 0.30", cmg.Ozone[2])
	}
	if cmg.WaterVapor[3] != 1.8 {
		t.Fatalf("WaterVapor[3] = %v, want 1.8", cmg.WaterVapor[3])
	}

	ratios, err := reader.ReadRatioGrid()
	if err != nil {
		t.Fatalf("ReadRatioGrid: %v", err)
	}
	if ratios.NBLat != 2 || ratios.NBLon != 2 {
		t.Fatalf("RatioGrid shape = %dx%d, want 2x2", ratios.NBLat, ratios.NBLon)
	}
	if len(ratios.Cells) != 4 {
		t.Fatalf("len(Cells) = %d, want 4", len(ratios.Cells))
	}
}

func TestGridReaderRejectsMissingVariable(t *testing.T) {
	h := cdf.NewHeader([]string{"cmg_lat", "cmg_lon"}, []int{2, 2})
	h.AddVariable("dem", []string{"cmg_lat", "cmg_lon"}, []float64{0})
	h.Define()
	if errs := h.Check(); len(errs) > 0 {
		t.Fatalf("header check: %v", errs[0])
	}

	f, err := os.CreateTemp(t.TempDir(), "ancillary-bad-*.nc")
	if err != nil {
		t.Fatalf("CreateTemp: %v", err)
	}
	cf, err := cdf.Create(f, h)
	if err != nil {
		t.Fatalf("cdf.Create: %v", err)
	}
	w := cf.Writer("dem", []int{0, 0}, []int{2, 2})
	if _, err := w.Write([]float64{1, 2, 3, 4}); err != nil {
		t.Fatalf("writing dem: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("closing archive: %v", err)
	}
	reopened, err := os.Open(f.Name())
	if err != nil {
		t.Fatalf("reopening archive: %v", err)
	}
	t.Cleanup(func() { reopened.Close() })

	reader, err := NewGridReader(reopened)
	if err != nil {
		t.Fatalf("NewGridReader: %v", err)
	}
	if _, err := reader.ReadCMGGrid(); err == nil {
		t.Fatal("expected error reading CMG grid with missing ozone/water_vapor variables")
	}
}
