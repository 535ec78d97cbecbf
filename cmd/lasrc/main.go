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

// Command lasrc runs the Landsat surface reflectance aerosol retrieval and
// atmospheric correction pipeline from a TOML scene configuration.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
