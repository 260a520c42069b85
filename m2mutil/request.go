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

package m2mutil

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/m2m"
	"github.com/spatialmodel/m2m/dataset"
)

// RequestOptions specify the data to be retrieved by Request and
// how it should be processed.
type RequestOptions struct {
	// Ref identifies the instrument stream.
	Ref m2m.InstrumentRef

	// TimeRange is the requested time span. Empty fields are filled in
	// from the deployment given by Deploy, if there is one.
	TimeRange m2m.TimeRange

	// Deploy is the deployment number, or zero for none.
	Deploy int

	// Depth is the instrument depth in meters. If it is zero, the
	// depth of deployment Deploy is used.
	Depth float64

	// Tag selects the exported files to be collected.
	Tag string

	// Burst specifies whether to burst average the observations
	// into intervals of BurstInterval.
	Burst         bool
	BurstInterval time.Duration

	// OutputFile is the local path or blob storage location where the
	// result is written.
	OutputFile string
}

// Request retrieves the data described by o, converts it to a CF/IOOS
// station time series and writes it to o.OutputFile in NetCDF format.
func Request(ctx context.Context, c *m2m.Client, o RequestOptions) error {
	if err := o.Ref.Validate(); err != nil {
		return err
	}
	if o.OutputFile == "" {
		return fmt.Errorf("m2m: outfile must be specified")
	}
	log := logrus.WithFields(logrus.Fields{"instrument": o.Ref.String()})

	if o.Deploy != 0 {
		d, err := c.DeploymentInfo(ctx, o.Ref.Site, o.Ref.Node, o.Ref.Sensor, o.Deploy)
		if err != nil {
			return err
		}
		tr := d[0].TimeRange(time.Now())
		if o.TimeRange.Start == "" {
			o.TimeRange.Start = tr.Start
		}
		if o.TimeRange.Stop == "" {
			o.TimeRange.Stop = tr.Stop
		}
		if o.Depth == 0 {
			o.Depth = d[0].Location.Depth
		}
	}
	if !(o.Depth > 0) {
		return fmt.Errorf("m2m: instrument depth must be positive, not %g; set depth or deploy", o.Depth)
	}

	job, err := c.Request(ctx, o.Ref, o.TimeRange)
	if err != nil {
		return err
	}
	log.WithFields(logrus.Fields{
		"request": job.RequestUUID.String(),
		"start":   o.TimeRange.Start,
		"stop":    o.TimeRange.Stop,
	}).Info("m2m: waiting for export")
	if err := c.Wait(ctx, job); err != nil {
		return err
	}
	d, err := c.Collect(ctx, job, o.Tag)
	if err != nil {
		return err
	}
	if o.Burst {
		interval := o.BurstInterval
		if interval == 0 {
			interval = m2m.DefaultBurstInterval
		}
		if d, err = m2m.BurstAverage(d, interval); err != nil {
			return err
		}
	}
	if d, err = m2m.UpdateDataset(d, o.Depth); err != nil {
		return err
	}
	if err := writeOutput(ctx, o.OutputFile, d); err != nil {
		return err
	}
	log.WithFields(logrus.Fields{"file": o.OutputFile}).Info("m2m: output written")
	return nil
}

// writeOutput writes d to path, which may be a blob storage location.
func writeOutput(ctx context.Context, path string, d *dataset.Dataset) error {
	u := new(uploader)
	local := u.maybeUpload(path)
	if u.err != nil {
		return fmt.Errorf("m2m: preparing output file: %v", u.err)
	}
	if u.dir != "" {
		defer os.RemoveAll(u.dir)
	}
	f, err := os.Create(local)
	if err != nil {
		return fmt.Errorf("m2m: creating output file: %v", err)
	}
	if err := dataset.EncodeFile(f, d); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("m2m: closing output file: %v", err)
	}
	return u.uploadOutput(ctx)
}
