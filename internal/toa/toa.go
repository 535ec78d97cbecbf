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

// Package toa reproduces compute_landsat_toa_refl's contract: calibrating
// raw Level-1 digital numbers into per-pixel sun-angle-corrected TOA
// reflectance for bands 1-9 and brightness temperature for bands 10-11. It
// is an ambient convenience that lets the core pipeline run end-to-end on
// synthetic DN inputs; it is not itself part of the aerosol/SR core and
// never touches real Level-1 metadata.
package toa

import (
	"math"

	lasrc "github.com/usgs-eros/lasrc-go"
)

// MinValidThermal and MaxValidThermal bound the brightness-temperature
// clamp, mirroring MIN_VALID_REFL/MAX_VALID_REFL's role for the reflective
// bands. LaSRC does not derive these from the LUT; they are fixed Kelvin
// bounds wide enough to cover any physically sensible Earth-surface scene.
const (
	MinValidThermal = 150.0
	MaxValidThermal = 350.0
)

// ReflectiveCalibration holds refl_mult/refl_add (gain/bias) for one
// reflective band (1-9), taken from Level-1 metadata by the caller.
type ReflectiveCalibration struct {
	Gain float64
	Bias float64
}

// ThermalCalibration holds the radiance gain/bias and the Planck inversion
// constants (K1, K2) for one thermal band (10 or 11).
type ThermalCalibration struct {
	Gain, Bias float64
	K1, K2     float64
}

// ReflectanceToTOA converts one band's raw DN values into per-pixel TOA
// reflectance, applying the per-pixel sun-angle correction and clamping to
// [minValid, maxValid]. sza is in degrees; fill pixels are passed through as
// fillValue without evaluating the sun angle.
func ReflectanceToTOA(dn []uint16, sza []float64, cal ReflectiveCalibration, isFill func(int) bool, minValid, maxValid, fillValue float32) []float32 {
	out := make([]float32, len(dn))
	for i := range dn {
		if isFill(i) {
			out[i] = fillValue
			continue
		}
		xmus := math.Cos(sza[i] * lasrc.Deg2Rad)
		rotoa := (float64(dn[i])*cal.Gain + cal.Bias) / xmus
		out[i] = lasrc.ClampF32(float32(rotoa), minValid, maxValid)
	}
	return out
}

// BrightnessTemperature converts one thermal band's raw DN values into TOA
// brightness temperature (Kelvin), clamped to [MinValidThermal,
// MaxValidThermal]. Not consumed by the aerosol/SR core; carried only
// because the original calibration pass computes it in the same loop.
func BrightnessTemperature(dn []uint16, cal ThermalCalibration, isFill func(int) bool, fillValue float32) []float32 {
	out := make([]float32, len(dn))
	for i := range dn {
		if isFill(i) {
			out[i] = fillValue
			continue
		}
		radiance := cal.Gain*float64(dn[i]) + cal.Bias
		bt := cal.K2 / math.Log(cal.K1/radiance+1.0)
		out[i] = lasrc.ClampF32(float32(bt), MinValidThermal, MaxValidThermal)
	}
	return out
}
