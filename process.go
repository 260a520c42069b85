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
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/m2m/dataset"
)

// catalogMarker is the part of a catalog file reference that is
// replaced to create a download URL.
const catalogMarker = "catalog.html?dataset="

// bookkeepingVars are removed from each downloaded file.
var bookkeepingVars = []string{
	"obs", "id", "driver_timestamp", "ingestion_timestamp",
	"port_timestamp", "preferred_timestamp",
}

// removedAttrs are global attributes that no longer apply after
// NormalizeFile.
var removedAttrs = []string{
	"DODS.strlen", "DODS.dimName", "DODS_EXTRA.Unlimited_Dimension",
	"_NCProperties", "feature_Type",
}

// fileAttrs are global attributes set by NormalizeFile.
var fileAttrs = dataset.Attributes{
	{Name: "cdm_data_type", Value: "Station"},
	{Name: "featureType", Value: "timeSeries"},
	{Name: "acknowledgement", Value: "National Science Foundation"},
	{Name: "comment", Value: "Data collected from the OOI M2M API and reworked for use in locally stored NetCDF files."},
	{Name: "publisher_email", Value: "ooice.platforms@gmail.com"},
	{Name: "creator_email", Value: "ooice.platforms@gmail.com"},
}

// DataURL converts a file reference from an export catalog into the URL
// the file can be downloaded from.
func (c *Client) DataURL(catalogFile string) string {
	return strings.Replace(catalogFile, catalogMarker, c.cfg.DataURL, 1)
}

// ProcessFile downloads the file referred to by catalogFile, decodes it,
// and normalizes it with NormalizeFile.
func (c *Client) ProcessFile(ctx context.Context, catalogFile string) (*dataset.Dataset, error) {
	return c.processURL(ctx, c.DataURL(catalogFile))
}

func (c *Client) processURL(ctx context.Context, url string) (*dataset.Dataset, error) {
	c.log.WithFields(logrus.Fields{"url": url}).Info("m2m: downloading file")
	b, err := c.get(ctx, url, false)
	if err != nil {
		return nil, fmt.Errorf("m2m: downloading file: %w", err)
	}
	d, err := dataset.DecodeBytes(b)
	if err != nil {
		return nil, fmt.Errorf("m2m: reading %s: %v", url, err)
	}
	d, err = NormalizeFile(d)
	if err != nil {
		return nil, fmt.Errorf("m2m: processing %s: %v", url, err)
	}
	return d, nil
}

// NormalizeFile prepares a single exported file for merging. The obs
// dimension is replaced by time, with time values decoded from their
// CF units if necessary. Ingestion bookkeeping variables are removed,
// the data are sorted by time, and the global attributes are updated to
// describe a station time series.
func NormalizeFile(d *dataset.Dataset) (*dataset.Dataset, error) {
	var err error
	if d.HasDim("obs") {
		if d, err = d.SwapDims("obs", "time"); err != nil {
			return nil, err
		}
	} else if !d.HasDim("time") {
		return nil, fmt.Errorf("dataset has neither an obs nor a time dimension")
	}
	if t := d.Var("time"); t != nil {
		if _, ok := t.Data.(dataset.Times); !ok {
			if d, err = d.DecodeTimes("time"); err != nil {
				return nil, err
			}
		}
	}
	d = d.Drop(bookkeepingVars...)
	if d, err = d.SortBy("time"); err != nil {
		return nil, err
	}
	d.Attrs.Delete(removedAttrs...)
	for _, a := range fileAttrs {
		d.Attrs.Set(a.Name, a.Value)
	}
	return d, nil
}
