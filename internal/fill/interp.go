package fill

// Interpolate implements spec.md section 4.6: bilinear interpolation of
// taero/teps from the window-center lattice to every non-fill pixel. Edge
// windows clamp to the nearest center rather than extrapolating past the
// lattice. Fill pixels retain the scene-median defaults.
func Interpolate(g *Grid, isFill func(pix int) bool, medianTaero, medianTeps float32) (taero, teps []float32) {
	n := g.NLines * g.NSamps
	taero = make([]float32, n)
	teps = make([]float32, n)

	for l := 0; l < g.NLines; l++ {
		for s := 0; s < g.NSamps; s++ {
			p := l*g.NSamps + s
			if isFill(p) {
				taero[p] = medianTaero
				teps[p] = medianTeps
				continue
			}

			riF := (float64(l) - float64(g.Half)) / float64(g.Stride)
			ciF := (float64(s) - float64(g.Half)) / float64(g.Stride)
			ri0, ri1, ru := bracketCenter(riF, g.Rows)
			ci0, ci1, cu := bracketCenter(ciF, g.Cols)

			t00, e00 := g.Taero[g.pix(ri0, ci0)], g.Teps[g.pix(ri0, ci0)]
			t01, e01 := g.Taero[g.pix(ri0, ci1)], g.Teps[g.pix(ri0, ci1)]
			t10, e10 := g.Taero[g.pix(ri1, ci0)], g.Teps[g.pix(ri1, ci0)]
			t11, e11 := g.Taero[g.pix(ri1, ci1)], g.Teps[g.pix(ri1, ci1)]

			taero[p] = float32(bilerp(float64(t00), float64(t01), float64(t10), float64(t11), ru, cu))
			teps[p] = float32(bilerp(float64(e00), float64(e01), float64(e10), float64(e11), ru, cu))
		}
	}
	return taero, teps
}

// bracketCenter finds the bracketing lattice indices and weight for a
// fractional center-row/column coordinate, clamping out-of-range
// coordinates to the nearest edge center.
func bracketCenter(f float64, n int) (lo, hi int, w float64) {
	if n <= 1 {
		return 0, 0, 0
	}
	if f <= 0 {
		return 0, 0, 0
	}
	if f >= float64(n-1) {
		return n - 1, n - 1, 0
	}
	lo = int(f)
	hi = lo + 1
	w = f - float64(lo)
	return lo, hi, w
}

func bilerp(v00, v01, v10, v11, u, v float64) float64 {
	a := (1-v)*v00 + v*v01
	b := (1-v)*v10 + v*v11
	return (1-u)*a + u*b
}
