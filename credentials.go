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
	"fmt"
	"net/url"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/sirupsen/logrus"
)

// Credentials authenticate requests to the M2M API. Username is the API
// user name and Token is the API token, both available from the user
// profile page of the OOI data portal.
type Credentials struct {
	Username string `toml:"username"`
	Token    string `toml:"token"`
}

// IsZero returns whether neither field of c is set.
func (c Credentials) IsZero() bool {
	return c.Username == "" && c.Token == ""
}

// credentialsFile is the format of a credentials file, for example:
//
//	[machine."ooinet.oceanobservatories.org"]
//	username = "OOIAPI-XXXXXXXXXXXXXX"
//	token = "XXXXXXXXXXXX"
//
//	[shared]
//	username = "OOIAPI-YYYYYYYYYYYYYY"
//	token = "YYYYYYYYYYYY"
type credentialsFile struct {
	Machine map[string]Credentials `toml:"machine"`
	Shared  *Credentials           `toml:"shared"`
}

// ResolveCredentials determines the credentials to use for requests to
// the M2M API at baseURL. explicit credentials are used if they are set.
// Otherwise, the entry for the host of baseURL is looked up in the TOML
// credentials file at path, if path is not empty. The shared entry of
// the credentials file is only used when allowShared is true, and a
// warning is logged when it is. ErrNoCredentials is returned if no
// credentials are found.
func ResolveCredentials(explicit Credentials, path, baseURL string, allowShared bool, log logrus.FieldLogger) (Credentials, error) {
	if !explicit.IsZero() {
		if explicit.Username == "" || explicit.Token == "" {
			return Credentials{}, fmt.Errorf("m2m: both a username and a token are required")
		}
		return explicit, nil
	}
	if path == "" {
		return Credentials{}, ErrNoCredentials
	}
	var f credentialsFile
	if _, err := toml.DecodeFile(os.ExpandEnv(path), &f); err != nil {
		if os.IsNotExist(err) {
			return Credentials{}, ErrNoCredentials
		}
		return Credentials{}, fmt.Errorf("m2m: reading credentials file: %v", err)
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return Credentials{}, fmt.Errorf("m2m: parsing base URL: %v", err)
	}
	if c, ok := f.Machine[u.Hostname()]; ok && !c.IsZero() {
		return c, nil
	}
	if allowShared && f.Shared != nil && !f.Shared.IsZero() {
		if log == nil {
			log = logrus.StandardLogger()
		}
		log.WithFields(logrus.Fields{
			"file": path,
			"host": u.Hostname(),
		}).Warn("m2m: using shared credentials; request your own at https://ooinet.oceanobservatories.org")
		return *f.Shared, nil
	}
	return Credentials{}, ErrNoCredentials
}
