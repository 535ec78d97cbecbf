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

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	lasrc "github.com/usgs-eros/lasrc-go"
)

var (
	configFile string

	// config holds the global configuration data, read by RootCmd's
	// PersistentPreRunE before any subcommand runs.
	config *ConfigData

	log = logrus.New()
)

// RootCmd is the main command.
var RootCmd = &cobra.Command{
	Use:   "lasrc",
	Short: "Landsat surface reflectance aerosol retrieval and atmospheric correction.",
	Long: `lasrc inverts Rayleigh scattering, aerosol, ozone, water vapor and other gas
absorption effects out of calibrated Landsat 8/9 top-of-atmosphere reflectance,
producing Lambertian surface reflectance and a per-pixel aerosol QA byte.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return startup(configFile)
	},
}

func startup(configFile string) error {
	var err error
	config, err = ReadConfigFile(configFile)
	if err != nil {
		return err
	}
	log.WithFields(logrus.Fields{
		"satellite":  config.Satellite,
		"instrument": config.Instrument,
	}).Info("configuration loaded")
	return nil
}

func init() {
	RootCmd.AddCommand(versionCmd)
	RootCmd.PersistentFlags().StringVar(&configFile, "config", "./lasrc.toml", "configuration file location")
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of lasrc-go",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("lasrc-go v%s\n", lasrc.Version)
	},
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
}
