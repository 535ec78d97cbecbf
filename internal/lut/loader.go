package lut

import (
	"fmt"
	"io"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/ctessum/cdf"
)

// Loader reads a Tables value from a NetCDF-formatted LUT archive, the
// format the 6S-model precomputation step is assumed to emit. This mirrors
// the teacher's sr.Reader (sr/srreader.go), which also reads fixed-shape
// float64 variables out of a cdf.File by name.
type Loader struct {
	File cdf.File
}

// NewLoader opens a LUT archive for reading.
func NewLoader(r cdf.ReaderWriterAt) (*Loader, error) {
	f, err := cdf.Open(r)
	if err != nil {
		return nil, fmt.Errorf("lut: opening LUT archive: %w", err)
	}
	return &Loader{File: *f}, nil
}

// Load reads the full set of LUT arrays named in spec.md section 3 out of
// the archive and returns an immutable Tables.
func (l *Loader) Load(bandConsts []BandConstants) (*Tables, error) {
	d := Dims{
		NumBands:          int(l.dimLen("band")),
		NumPressure:       int(l.dimLen("pressure")),
		NumAOT:            int(l.dimLen("aot")),
		NumViewZenith:     int(l.dimLen("view_zenith")),
		NumSolarZenith:    int(l.dimLen("solar_zenith")),
		ViewZenithMinDeg:  0,
		ViewZenithStep:    2,
		SolarZenithMinDeg: 0,
		SolarZenithStep:   4,
	}
	t, err := NewTables(d, bandConsts)
	if err != nil {
		return nil, err
	}
	for name, dst := range map[string]interface{}{
		"rolutt":  &t.Rolutt,
		"transt":  &t.Transt,
		"sphalbt": &t.Sphalbt,
		"normext": &t.Normext,
	} {
		if err := l.readFloat32(name, dst.(*[]float32)); err != nil {
			return nil, err
		}
	}
	for name, dst := range map[string]interface{}{
		"tsmax":    &t.Tsmax,
		"tsmin":    &t.Tsmin,
		"ttv":      &t.Ttv,
		"nbfi":     &t.Nbfi,
		"nbfic":    &t.Nbfic,
		"aot550nm": &t.AOT550nm,
		"tpres":    &t.Pres,
	} {
		if err := l.readFloat64(name, dst.(*[]float64)); err != nil {
			return nil, err
		}
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

func (l *Loader) dimLen(name string) int64 {
	lens := l.File.Header.Lengths("")
	for i, d := range l.File.Header.Dimensions("") {
		if d == name && i < len(lens) {
			return int64(lens[i])
		}
	}
	return 0
}

func (l *Loader) readFloat32(name string, dst *[]float32) error {
	r := l.File.Reader(name, nil, nil)
	buf := r.Zero(-1)
	if _, err := r.Read(buf); err != nil {
		return fmt.Errorf("lut: reading %s: %w", name, err)
	}
	v, ok := buf.([]float32)
	if !ok {
		return fmt.Errorf("lut: variable %s is not float32", name)
	}
	*dst = v
	return nil
}

func (l *Loader) readFloat64(name string, dst *[]float64) error {
	r := l.File.Reader(name, nil, nil)
	buf := r.Zero(-1)
	if _, err := r.Read(buf); err != nil {
		return fmt.Errorf("lut: reading %s: %w", name, err)
	}
	v, ok := buf.([]float64)
	if !ok {
		return fmt.Errorf("lut: variable %s is not float64", name)
	}
	*dst = v
	return nil
}

// FetchArchive retries a remote LUT-archive fetch with exponential backoff,
// for use by cmd/lasrc when a scene configuration points at a LUT archive
// stored on flaky remote storage rather than a local file.
func FetchArchive(fetch func() (io.ReadSeeker, error), maxElapsed time.Duration) (io.ReadSeeker, error) {
	var rs io.ReadSeeker
	op := func() error {
		r, err := fetch()
		if err != nil {
			return err
		}
		rs = r
		return nil
	}
	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = maxElapsed
	if err := backoff.Retry(op, b); err != nil {
		return nil, fmt.Errorf("lut: fetching archive: %w", err)
	}
	return rs, nil
}
