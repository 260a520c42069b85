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
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// Config holds the settings used by a Client.
type Config struct {
	// BaseURL is the root of the M2M API.
	BaseURL string

	// DataURL is the prefix of direct file downloads from the THREDDS
	// server. It replaces the "catalog.html?dataset=" part of the file
	// references listed in an export catalog.
	DataURL string

	// Credentials are used to authenticate M2M API requests.
	Credentials Credentials

	// PollAttempts is the maximum number of times the status of an
	// export is checked before giving up.
	PollAttempts int

	// PollInterval is the time to wait between status checks.
	PollInterval time.Duration

	// RequestTimeout bounds the duration of each HTTP request. Zero
	// means no limit.
	RequestTimeout time.Duration

	// CacheSize is the number of metadata responses kept in memory.
	CacheSize int

	// CacheDir, if set, is a directory where metadata responses are
	// also cached.
	CacheDir string

	// HTTPClient is used for all requests. If nil, a client with
	// RequestTimeout set as its timeout is used.
	HTTPClient *http.Client

	// Log receives progress messages. If nil, the logrus standard
	// logger is used.
	Log logrus.FieldLogger
}

// DefaultConfig returns the default configuration. Credentials are
// not set.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:        "https://ooinet.oceanobservatories.org/api/m2m/",
		DataURL:        "https://opendap.oceanobservatories.org/thredds/fileServer/",
		PollAttempts:   200,
		PollInterval:   3 * time.Second,
		RequestTimeout: 2 * time.Minute,
		CacheSize:      100,
		Log:            logrus.StandardLogger(),
	}
}
