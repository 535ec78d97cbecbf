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
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/ctessum/cdf"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	lasrc "github.com/usgs-eros/lasrc-go"
	"github.com/usgs-eros/lasrc-go/internal/ancillary"
	"github.com/usgs-eros/lasrc-go/internal/correct"
	"github.com/usgs-eros/lasrc-go/internal/lut"
	"github.com/usgs-eros/lasrc-go/internal/pipeline"
)

func init() {
	RootCmd.AddCommand(correctCmd)
}

var correctCmd = &cobra.Command{
	Use:   "correct",
	Short: "Run the aerosol retrieval and atmospheric correction pipeline for one scene.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCorrect(config)
	},
}

func runCorrect(c *ConfigData) error {
	tun := c.Tunables.merge(lasrc.DefaultTunables())

	tables, err := loadOrSynthesizeTables(c)
	if err != nil {
		return err
	}
	cmg, ratios, err := loadOrSynthesizeAncillary(c)
	if err != nil {
		return err
	}
	scene, err := loadOrSynthesizeScene(c, tun)
	if err != nil {
		return err
	}

	geom := lasrc.NewNadirGeometry(valueOr(c.SolarZenithDeg, 30))

	sc := &pipeline.Scene{
		NLines: scene.NLines, NSamps: scene.NSamps,
		Geometry:   geom,
		Geolocator: lasrc.AffineGeolocator{OriginLat: 40, OriginLon: -100, LineStepDeg: -0.0003, SampleStepDeg: 0.0003},
		Tables:     tables,
		CMG:        cmg,
		Ratios:     ratios,
		Pres:       valueOr(c.Pres, 1013),
		Uoz:        valueOr(c.Ozone, 0.28),
		Uwv:        valueOr(c.WaterVapor, 1.5),
		SceneAOT:   valueOr(c.SceneAOT, float64(tun.DefaultTaero)),
		SceneEps:   valueOr(c.SceneEps, float64(tun.DefaultTeps)),
		Tunables:   tun,
		Log:        log,
	}

	start := time.Now()
	result, err := sc.Run(pipeline.Input{TOA: scene.Bands, IsFill: scene.isFill})
	if err != nil {
		return fmt.Errorf("lasrc: %w", err)
	}
	log.WithFields(logrus.Fields{"duration": time.Since(start), "pixels": scene.NLines * scene.NSamps}).Info("correction complete")

	if len(c.OutputVariables) > 0 {
		if err := reportOutputVariables(c.OutputVariables, scene, result); err != nil {
			return err
		}
	}
	return nil
}

func valueOr(v, fallback float64) float64 {
	if v == 0 {
		return fallback
	}
	return v
}

func loadOrSynthesizeTables(c *ConfigData) (*lut.Tables, error) {
	if c.LUTPath == "" {
		log.Info("no LUTPath configured, using a synthetic LUT")
		return synthesizeTables(), nil
	}
	if isRemoteURL(c.LUTPath) {
		return loadRemoteTables(c.LUTPath)
	}
	f, err := os.Open(c.LUTPath)
	if err != nil {
		return nil, fmt.Errorf("lasrc: opening LUT archive: %w", err)
	}
	defer f.Close()
	loader, err := lut.NewLoader(f)
	if err != nil {
		return nil, err
	}
	bandConsts := make([]lut.BandConstants, lasrc.NumReflBands)
	return loader.Load(bandConsts)
}

func isRemoteURL(path string) bool {
	u, err := url.Parse(path)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https")
}

// loadRemoteTables fetches a LUT archive from flaky remote storage via
// lut.FetchArchive's exponential-backoff retry, then decodes it the same
// way loadOrSynthesizeTables decodes a local file.
func loadRemoteTables(rawURL string) (*lut.Tables, error) {
	rs, err := lut.FetchArchive(func() (io.ReadSeeker, error) {
		return fetchToTempFile(rawURL)
	}, 2*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("lasrc: fetching LUT archive: %w", err)
	}
	rw, ok := rs.(cdf.ReaderWriterAt)
	if !ok {
		return nil, fmt.Errorf("lasrc: fetched LUT archive does not support random-access decoding")
	}
	loader, err := lut.NewLoader(rw)
	if err != nil {
		return nil, err
	}
	bandConsts := make([]lut.BandConstants, lasrc.NumReflBands)
	return loader.Load(bandConsts)
}

// fetchToTempFile downloads rawURL to a temp file and rewinds it, giving
// lut.FetchArchive's retry loop a fresh ReaderWriterAt-capable handle on
// each attempt.
func fetchToTempFile(rawURL string) (io.ReadSeeker, error) {
	resp, err := http.Get(rawURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("lasrc: fetching %s: %s", rawURL, resp.Status)
	}
	f, err := os.CreateTemp("", "lasrc-lut-*.nc")
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		return nil, err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}

func loadOrSynthesizeAncillary(c *ConfigData) (*ancillary.CMGGrid, *ancillary.RatioGrid, error) {
	if c.AncillaryPath == "" {
		log.Info("no AncillaryPath configured, using a synthetic ancillary grid")
		cmg, ratios := synthesizeAncillary()
		return cmg, ratios, nil
	}
	f, err := os.Open(c.AncillaryPath)
	if err != nil {
		return nil, nil, fmt.Errorf("lasrc: opening ancillary archive: %w", err)
	}
	defer f.Close()
	reader, err := ancillary.NewGridReader(f)
	if err != nil {
		return nil, nil, err
	}
	cmg, err := reader.ReadCMGGrid()
	if err != nil {
		return nil, nil, err
	}
	ratios, err := reader.ReadRatioGrid()
	if err != nil {
		return nil, nil, err
	}
	return cmg, ratios, nil
}

func loadOrSynthesizeScene(c *ConfigData, tun lasrc.Tunables) (*sceneTOA, error) {
	if c.ScenePath == "" {
		log.Info("no ScenePath configured, using a synthetic scene")
		return synthesizeScene(tun), nil
	}
	return readSceneArchive(c.ScenePath)
}

func reportOutputVariables(vars map[string]string, scene *sceneTOA, result *pipeline.Result) error {
	compiled, err := correct.OutputVariables(vars).Compile()
	if err != nil {
		return fmt.Errorf("lasrc: compiling output variables: %w", err)
	}
	npix := scene.NLines * scene.NSamps
	sums := make(map[string]float64, len(vars))
	counts := make(map[string]int, len(vars))
	for p := 0; p < npix; p++ {
		if scene.isFill(p) {
			continue
		}
		var sr [lasrc.NumReflBands]float64
		for ib := range sr {
			sr[ib] = float64(result.SBand[ib][p])
		}
		pv := correct.PixelVariables(sr, float64(result.Taero[p]), float64(result.Teps[p]))
		vals, err := correct.EvaluateAll(compiled, pv)
		if err != nil {
			continue
		}
		for k, v := range vals {
			sums[k] += v
			counts[k]++
		}
	}
	for k := range vars {
		if counts[k] == 0 {
			continue
		}
		log.WithFields(logrus.Fields{"variable": k, "mean": sums[k] / float64(counts[k])}).Info("output variable summarized")
	}
	return nil
}
