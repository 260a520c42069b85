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
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNotFound is returned when the M2M service responds with
	// HTTP status 404.
	ErrNotFound = errors.New("m2m: not found")

	// ErrNoCredentials is returned when no M2M credentials can be found.
	ErrNoCredentials = errors.New("m2m: no credentials available")

	// ErrExportTimeout is matched by the error returned when an export
	// does not complete within the allowed number of status checks.
	ErrExportTimeout = errors.New("m2m: export did not complete")

	// ErrNoFiles is returned when there are no files to merge.
	ErrNoFiles = errors.New("m2m: no files to merge")

	// ErrAlreadyNormalized is returned by UpdateDataset when its input
	// already has a station dimension.
	ErrAlreadyNormalized = errors.New("m2m: dataset already has a station dimension")
)

// StatusError is returned when the M2M service responds with an
// unsuccessful HTTP status other than 404.
type StatusError struct {
	URL  string
	Code int

	// Body holds the beginning of the response body.
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("m2m: %s: %d %s", e.URL, e.Code, http.StatusText(e.Code))
	}
	return fmt.Sprintf("m2m: %s: %d %s: %s", e.URL, e.Code, http.StatusText(e.Code), e.Body)
}

// Temporary returns whether the request may succeed if it is retried.
func (e *StatusError) Temporary() bool {
	return e.Code >= 500 || e.Code == http.StatusTooManyRequests
}

// TransportError is returned when a request could not be completed.
type TransportError struct {
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("m2m: %s: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// PollError is returned when an export is not ready after the maximum
// number of status checks.
type PollError struct {
	// Attempts is the number of status checks made.
	Attempts int

	// Last is the outcome of the final status check.
	Last error
}

func (e *PollError) Error() string {
	return fmt.Sprintf("m2m: export not ready after %d status checks: %v", e.Attempts, e.Last)
}

// Is makes PollError match ErrExportTimeout.
func (e *PollError) Is(target error) bool { return target == ErrExportTimeout }

func (e *PollError) Unwrap() error { return e.Last }
