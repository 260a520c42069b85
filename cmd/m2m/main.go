/*
Copyright © 2019 the m2m authors.
This file is part of m2m.

m2m is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

m2m is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with m2m.  If not, see <http://www.gnu.org/licenses/>.
*/

// Command m2m is a command-line interface for retrieving data from the
// OOI M2M interface.
package main

import (
	"fmt"
	"os"

	"github.com/spatialmodel/m2m/m2mutil"
)

func main() {
	if err := m2mutil.Root.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(-1)
	}
}
