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

// Package lasrc implements the aerosol retrieval and atmospheric correction
// engine used to turn calibrated Landsat 8/9 top-of-atmosphere reflectance
// into Lambertian surface reflectance. It inverts Rayleigh scattering,
// aerosol, ozone, water vapor, and other gaseous absorption effects using a
// 6S-style radiative transfer lookup table together with a windowed aerosol
// optical thickness (AOT) and Angstrom exponent retrieval.
//
// The package is organized as a pipeline of independent stages, each living
// in its own internal subpackage: internal/lut (table storage), internal/atmos
// (the radiative transfer kernel), internal/coeff (per-band polynomial
// fits), internal/ancillary (climatology resampling), internal/aerosol (the
// windowed inversion), internal/fill (invalid-retrieval repair and
// interpolation), and internal/correct (the final per-pixel correction).
// internal/pipeline sequences them.
package lasrc

// Version is the package version string, reported by the cmd/lasrc CLI.
const Version = "0.1.0"
