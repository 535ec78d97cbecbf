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
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/ctessum/cdf"

	lasrc "github.com/usgs-eros/lasrc-go"
)

// writeTestLUTArchive builds a minimal NetCDF LUT archive, the same way
// sr/sr.go assembles an output file, and returns its raw bytes.
func writeTestLUTArchive(t *testing.T) []byte {
	nbands := int(lasrc.NumReflBands)
	h := cdf.NewHeader(
		[]string{"band", "pressure", "aot", "view_zenith", "solar_zenith"},
		[]int{nbands, 2, 2, 1, 1},
	)
	h.AddVariable("rolutt", []string{"band", "pressure", "aot", "solar_zenith"}, []float32{0})
	h.AddVariable("transt", []string{"band", "pressure", "aot", "solar_zenith"}, []float32{0})
	h.AddVariable("sphalbt", []string{"band", "pressure", "aot"}, []float32{0})
	h.AddVariable("normext", []string{"band", "pressure", "aot"}, []float32{0})
	h.AddVariable("tsmax", []string{"view_zenith", "solar_zenith"}, []float64{0})
	h.AddVariable("tsmin", []string{"view_zenith", "solar_zenith"}, []float64{0})
	h.AddVariable("ttv", []string{"view_zenith", "solar_zenith"}, []float64{0})
	h.AddVariable("nbfi", []string{"view_zenith", "solar_zenith"}, []float64{0})
	h.AddVariable("nbfic", []string{"view_zenith", "solar_zenith"}, []float64{0})
	h.AddVariable("aot550nm", []string{"aot"}, []float64{0})
	h.AddVariable("tpres", []string{"pressure"}, []float64{0})
	h.Define()
	if errs := h.Check(); len(errs) > 0 {
		t.Fatalf("header check: %v", errs[0])
	}

	f, err := os.CreateTemp(t.TempDir(), "lut-*.nc")
	if err != nil {
		t.Fatalf("CreateTemp: %v", err)
	}
	cf, err := cdf.Create(f, h)
	if err != nil {
		t.Fatalf("cdf.Create: %v", err)
	}

	writeF32 := func(name string, n int) {
		v := make([]float32, n)
		for i := range v {
			v[i] = 0.1
		}
		if _, err := cf.Writer(name, nil, nil).Write(v); err != nil {
			t.Fatalf("writing %s: %v", name, err)
		}
	}
	writeF64 := func(name string, v []float64) {
		if _, err := cf.Writer(name, nil, nil).Write(v); err != nil {
			t.Fatalf("writing %s: %v", name, err)
		}
	}

	writeF32("rolutt", nbands*2*2*1)
	writeF32("transt", nbands*2*2*1)
	writeF32("sphalbt", nbands*2*2)
	writeF32("normext", nbands*2*2)
	writeF64("tsmax", []float64{180})
	writeF64("tsmin", []float64{0})
	writeF64("ttv", []float64{1})
	writeF64("nbfi", []float64{8})
	writeF64("nbfic", []float64{8})
	writeF64("aot550nm", []float64{0.01, 0.5})
	writeF64("tpres", []float64{1013, 900})

	if err := f.Close(); err != nil {
		t.Fatalf("closing archive: %v", err)
	}
	b, err := os.ReadFile(f.Name())
	if err != nil {
		t.Fatalf("reading archive back: %v", err)
	}
	return b
}

func TestLoadOrSynthesizeTablesFetchesRemoteLUTOverHTTP(t *testing.T) {
	archive := writeTestLUTArchive(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(archive)
	}))
	defer srv.Close()

	tables, err := loadOrSynthesizeTables(&ConfigData{LUTPath: srv.URL})
	if err != nil {
		t.Fatalf("loadOrSynthesizeTables: %v", err)
	}
	if tables.Dims.NumBands != int(lasrc.NumReflBands) {
		t.Fatalf("NumBands = %d, want %d", tables.Dims.NumBands, lasrc.NumReflBands)
	}
	if tables.Dims.NumPressure != 2 || tables.Dims.NumAOT != 2 {
		t.Fatalf("unexpected dims %+v", tables.Dims)
	}
}

func TestIsRemoteURL(t *testing.T) {
	cases := map[string]bool{
		"https://example.com/lut.nc": true,
		"http://example.com/lut.nc":  true,
		"/local/path/lut.nc":         false,
		"lut.nc":                     false,
	}
	for path, want := range cases {
		if got := isRemoteURL(path); got != want {
			t.Errorf("isRemoteURL(%q) = %v, want %v", path, got, want)
		}
	}
}
