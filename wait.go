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
	"time"

	"github.com/cenkalti/backoff"
	"github.com/sirupsen/logrus"
)

// Wait blocks until the export described by job is complete, checking
// its status URL up to Config.PollAttempts times, Config.PollInterval
// apart. Any unsuccessful response, including 404, is taken to mean that
// the export is still being processed. If the export is not complete
// after the last check, the returned error is a *PollError matching
// ErrExportTimeout. If ctx is done first, its error is returned.
func (c *Client) Wait(ctx context.Context, job *ExportJob) error {
	status := job.StatusURL()
	start := time.Now()
	attempt := 0
	var last error
	check := func() error {
		attempt++
		_, last = c.get(ctx, status, false)
		return last
	}
	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(c.cfg.PollInterval), uint64(c.cfg.PollAttempts-1)),
		ctx,
	)
	err := backoff.RetryNotify(check, b, func(err error, d time.Duration) {
		c.log.WithFields(logrus.Fields{
			"attempt": attempt,
			"max":     c.cfg.PollAttempts,
			"elapsed": time.Since(start).Round(time.Second).String(),
			"status":  err.Error(),
		}).Info("m2m: waiting for export to complete")
	})
	if err == nil {
		c.log.WithFields(logrus.Fields{
			"attempts": attempt,
			"elapsed":  time.Since(start).Round(time.Second).String(),
		}).Info("m2m: export complete")
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("m2m: waiting for export %s: %w", job.RequestUUID, ctxErr)
	}
	return &PollError{Attempts: attempt, Last: last}
}
