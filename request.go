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

package m2m

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ExportJob describes an asynchronous export started by Request.
type ExportJob struct {
	RequestUUID     uuid.UUID `json:"requestUUID"`
	OutputURL       string    `json:"outputURL"`
	AllURLs         []string  `json:"allURLs"`
	SizeCalculation int64     `json:"sizeCalculation"`
	TimeCalculation int64     `json:"timeCalculation"`
	NumberOfSubJobs int       `json:"numberOfSubJobs"`
}

// CatalogURL returns the URL of the THREDDS catalog listing the
// exported files.
func (j *ExportJob) CatalogURL() string { return j.AllURLs[0] }

// StatusURL returns the URL that becomes available once the export
// is complete.
func (j *ExportJob) StatusURL() string { return j.AllURLs[1] + "/status.txt" }

// decodeExportJob decodes the response to an export request.
func decodeExportJob(b []byte) (*ExportJob, error) {
	j := new(ExportJob)
	if err := json.Unmarshal(b, j); err != nil {
		return nil, fmt.Errorf("decoding export response: %v", err)
	}
	if len(j.AllURLs) < 2 {
		return nil, fmt.Errorf("export response has %d URLs; it should have at least 2", len(j.AllURLs))
	}
	return j, nil
}

// ExportQuery returns the query string of an export request covering
// tr. A missing start time requests data from the beginning of the record,
// and a missing stop time requests data through the latest available.
func ExportQuery(tr TimeRange) string {
	v := url.Values{}
	if tr.Start == "" {
		v.Set("beginDT", "0")
	} else {
		v.Set("beginDT", tr.Start)
	}
	if tr.Stop != "" {
		v.Set("endDT", tr.Stop)
	}
	v.Set("format", "application/netcdf")
	return "?" + v.Encode()
}

// Request starts an export of the data from the given instrument stream
// within tr. The export runs asynchronously on the server; use Wait to
// wait for it to complete.
func (c *Client) Request(ctx context.Context, ref InstrumentRef, tr TimeRange) (*ExportJob, error) {
	if err := ref.Validate(); err != nil {
		return nil, err
	}
	u := c.endpoint(SensorPath, ref.Site, ref.Node, ref.Sensor, ref.Method, ref.Stream) + ExportQuery(tr)
	c.log.WithFields(logrus.Fields{
		"instrument": ref.String(),
		"begin":      tr.Start,
		"end":        tr.Stop,
	}).Info("m2m: requesting export")
	b, err := c.get(ctx, u, true)
	if err != nil {
		return nil, fmt.Errorf("m2m: requesting export of %s: %w", ref, err)
	}
	j, err := decodeExportJob(b)
	if err != nil {
		return nil, fmt.Errorf("m2m: requesting export of %s: %v", ref, err)
	}
	c.log.WithFields(logrus.Fields{
		"instrument": ref.String(),
		"request":    j.RequestUUID.String(),
		"catalog":    j.CatalogURL(),
	}).Info("m2m: export started")
	return j, nil
}
