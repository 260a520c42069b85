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
	"net/url"

	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/m2m/dataset"
)

// SchemaError is returned by Merge when the datasets to be merged do not
// have the same variables.
type SchemaError = dataset.SchemaError

// Merge concatenates datasets prepared by NormalizeFile along the time
// dimension and sorts the result by time. All datasets must have the same
// variables, with the same dimensions and data types. Variables without a
// time dimension, and the global attributes, are taken from the first
// dataset. Observations that appear in more than one dataset are kept.
func Merge(ds ...*dataset.Dataset) (*dataset.Dataset, error) {
	if len(ds) == 0 {
		return nil, ErrNoFiles
	}
	d, err := dataset.Concat("time", ds...)
	if err != nil {
		return nil, fmt.Errorf("m2m: merging files: %w", err)
	}
	if d, err = d.SortBy("time"); err != nil {
		return nil, fmt.Errorf("m2m: merging files: %v", err)
	}
	return d, nil
}

// Collect downloads the files of a completed export whose names match
// tag, normalizes each of them with NormalizeFile, and merges them.
// ErrNoFiles is returned if no files match.
func (c *Client) Collect(ctx context.Context, job *ExportJob, tag string) (*dataset.Dataset, error) {
	catalog := job.CatalogURL()
	files, err := c.ListFiles(ctx, catalog, tag)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w matching %q in %s", ErrNoFiles, tag, catalog)
	}
	base, err := url.Parse(catalog)
	if err != nil {
		return nil, fmt.Errorf("m2m: parsing catalog URL: %v", err)
	}
	c.log.WithFields(logrus.Fields{
		"catalog": catalog,
		"files":   len(files),
	}).Info("m2m: collecting files")
	ds := make([]*dataset.Dataset, len(files))
	for i, f := range files {
		u, err := base.Parse(c.DataURL(f))
		if err != nil {
			return nil, fmt.Errorf("m2m: invalid file reference %q: %v", f, err)
		}
		if ds[i], err = c.processURL(ctx, u.String()); err != nil {
			return nil, err
		}
	}
	return Merge(ds...)
}
