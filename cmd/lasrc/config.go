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
	"bufio"
	"fmt"
	"io/ioutil"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	lasrc "github.com/usgs-eros/lasrc-go"
)

// TunablesConfig mirrors lasrc.Tunables with every field optional; zero
// values are left at DefaultTunables().
type TunablesConfig struct {
	AeroWindow       int
	LowEps           float64
	ModEps           float64
	HighEps          float64
	WaterEps         float64
	LowAeroThresh    float64
	AvgAeroThresh    float64
	MinValidRefl     float32
	MaxValidRefl     float32
	FillValue        float32
	DefaultTaero     float32
	DefaultTeps      float32
	EpsilonTolerance float64
}

// merge overlays the non-zero fields of c onto the defaults.
func (c TunablesConfig) merge(t lasrc.Tunables) lasrc.Tunables {
	if c.AeroWindow != 0 {
		t.AeroWindow = c.AeroWindow
	}
	if c.LowEps != 0 {
		t.LowEps = c.LowEps
	}
	if c.ModEps != 0 {
		t.ModEps = c.ModEps
	}
	if c.HighEps != 0 {
		t.HighEps = c.HighEps
	}
	if c.WaterEps != 0 {
		t.WaterEps = c.WaterEps
	}
	if c.LowAeroThresh != 0 {
		t.LowAeroThresh = c.LowAeroThresh
	}
	if c.AvgAeroThresh != 0 {
		t.AvgAeroThresh = c.AvgAeroThresh
	}
	if c.MinValidRefl != 0 {
		t.MinValidRefl = c.MinValidRefl
	}
	if c.MaxValidRefl != 0 {
		t.MaxValidRefl = c.MaxValidRefl
	}
	if c.FillValue != 0 {
		t.FillValue = c.FillValue
	}
	if c.DefaultTaero != 0 {
		t.DefaultTaero = c.DefaultTaero
	}
	if c.DefaultTeps != 0 {
		t.DefaultTeps = c.DefaultTeps
	}
	if c.EpsilonTolerance != 0 {
		t.EpsilonTolerance = c.EpsilonTolerance
	}
	return t
}

// ConfigData holds the TOML configuration for a single correct run, the
// lasrc-go analogue of inmap/cmd/config.go's ConfigData.
type ConfigData struct {
	// Satellite and Instrument identify the scene, for logging only; the
	// core itself is satellite-agnostic given the right LUT.
	Satellite  string
	Instrument string

	// LUTPath is a local file path or URL to the NetCDF LUT archive. If
	// empty, the correct command runs against a small synthetic LUT
	// suitable for examples and smoke tests.
	LUTPath string

	// AncillaryPath is a local file path to the NetCDF CMG/ratio archive.
	// If empty, a flat synthetic ancillary grid is used instead.
	AncillaryPath string

	// ScenePath is a local file path to the NetCDF scene archive holding
	// per-band calibrated TOA reflectance and the fill mask.
	ScenePath string

	// SolarZenithDeg, ViewZenithDeg are the scene-center geometry angles.
	SolarZenithDeg float64
	ViewZenithDeg  float64

	// Pres, Ozone, WaterVapor are the scene-center surface pressure (hPa),
	// ozone and water-vapor column amounts the coefficient cache is built
	// at.
	Pres       float64
	Ozone      float64
	WaterVapor float64

	// SceneAOT, SceneEps are the nominal (AOT, epsilon) the input sband was
	// climatology-corrected at (spec.md section 4.7 step 1).
	SceneAOT float64
	SceneEps float64

	Tunables TunablesConfig

	// OutputVariables are govaluate expressions over sr1..sr7, aot, eps,
	// evaluated per pixel alongside the final correction (spec.md's
	// configurable-output convenience, see internal/correct.OutputVariables).
	OutputVariables map[string]string
}

// ReadConfigFile reads and parses a TOML scene configuration, the same
// bufio-read-then-toml.Decode shape as inmap/cmd/config.go's
// ReadConfigFile, with environment-variable expansion on every path field.
func ReadConfigFile(filename string) (*ConfigData, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("lasrc: the configuration file %q does not appear to exist: %w", filename, err)
	}
	defer file.Close()

	reader := bufio.NewReader(file)
	bytes, err := ioutil.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("lasrc: reading configuration file: %w", err)
	}

	config := new(ConfigData)
	if _, err := toml.Decode(string(bytes), config); err != nil {
		return nil, fmt.Errorf("lasrc: parsing configuration file: %w", err)
	}

	config.LUTPath = os.ExpandEnv(config.LUTPath)
	config.AncillaryPath = os.ExpandEnv(config.AncillaryPath)
	config.ScenePath = os.ExpandEnv(config.ScenePath)

	for k, v := range config.OutputVariables {
		v = strings.Replace(v, "\r\n", " ", -1)
		config.OutputVariables[k] = strings.Replace(v, "\n", " ", -1)
	}

	if config.Satellite == "" {
		return nil, fmt.Errorf("lasrc: you need to specify a Satellite in the configuration file")
	}
	return config, nil
}
