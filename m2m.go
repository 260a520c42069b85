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

// Package m2m retrieves oceanographic sensor time series from the Ocean
// Observatories Initiative (OOI) machine-to-machine (M2M) interface.
//
// A typical retrieval submits an asynchronous export request for one
// instrument stream, waits for the export to complete, collects the
// NetCDF files listed in the catalog that the export generates, merges
// them into a single time-ordered dataset, and rewrites the structure of
// that dataset into a CF/IOOS station time series:
//
//	c, err := m2m.NewClient(cfg)
//	job, err := c.Request(ctx, ref, m2m.TimeRange{})
//	err = c.Wait(ctx, job)
//	merged, err := c.Collect(ctx, job, `.*\.nc$`)
//	out, err := m2m.UpdateDataset(merged, depth)
package m2m

import (
	"fmt"
	"strings"
)

// Version gives the version number.
const Version = "0.1.0"

// M2M API endpoints, relative to Config.BaseURL.
const (
	AnnotationPath = "12580/anno/"
	AssetPath      = "12587/asset/"
	DeployPath     = "12587/events/deployment/inv/"
	SensorPath     = "12576/sensor/inv/"
	VocabPath      = "12586/vocab/inv/"
	StreamPath     = "12575/stream/byname/"
	ParameterPath  = "12575/parameter/"
)

// InstrumentRef identifies one data stream of one instrument.
type InstrumentRef struct {
	// Site is the reference designator of the site, for example "CE02SHSM".
	Site string

	// Node is the node the instrument is attached to, for example "RID27".
	Node string

	// Sensor is the instrument designator, for example "04-DOSTAD000".
	Sensor string

	// Method is the delivery method, for example "telemetered" or
	// "recovered_host".
	Method string

	// Stream is the name of the data stream.
	Stream string
}

// Validate checks that all fields of r are set.
func (r InstrumentRef) Validate() error {
	var missing []string
	for _, f := range []struct{ name, val string }{
		{"site", r.Site}, {"node", r.Node}, {"sensor", r.Sensor},
		{"method", r.Method}, {"stream", r.Stream},
	} {
		if f.val == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("m2m: instrument reference is missing %s", strings.Join(missing, ", "))
	}
	return nil
}

func (r InstrumentRef) String() string {
	return strings.Join([]string{r.Site, r.Node, r.Sensor, r.Method, r.Stream}, "/")
}

// TimeRange bounds a data request. Start and Stop are ISO-8601 time
// stamps, for example "2019-01-01T00:00:00.000Z". An empty Start requests
// data from the beginning of the record and an empty Stop requests data
// through the latest available.
type TimeRange struct {
	Start, Stop string
}
