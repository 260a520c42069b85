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
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
)

const testCredentials = `
[machine."ooinet.oceanobservatories.org"]
username = "OOIAPI-MINE"
token = "mytoken"

[shared]
username = "OOIAPI-SHARED"
token = "sharedtoken"
`

func TestResolveCredentials(t *testing.T) {
	dir, err := ioutil.TempDir("", "m2m_credentials")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)
	path := filepath.Join(dir, "credentials.toml")
	if err := ioutil.WriteFile(path, []byte(testCredentials), 0600); err != nil {
		t.Fatal(err)
	}
	log := logrus.New()
	log.Out = ioutil.Discard

	ooinet := "https://ooinet.oceanobservatories.org/api/m2m/"
	other := "https://ooinet-dev-03.oceanobservatories.org/api/m2m/"
	explicit := Credentials{Username: "OOIAPI-FLAG", Token: "flagtoken"}

	tests := []struct {
		name        string
		explicit    Credentials
		path, url   string
		allowShared bool
		want        Credentials
		err         error
	}{
		{name: "explicit", explicit: explicit, path: path, url: ooinet, want: explicit},
		{name: "machine", path: path, url: ooinet, allowShared: true,
			want: Credentials{Username: "OOIAPI-MINE", Token: "mytoken"}},
		{name: "shared not allowed", path: path, url: other, err: ErrNoCredentials},
		{name: "shared", path: path, url: other, allowShared: true,
			want: Credentials{Username: "OOIAPI-SHARED", Token: "sharedtoken"}},
		{name: "no file", url: ooinet, allowShared: true, err: ErrNoCredentials},
		{name: "missing file", path: filepath.Join(dir, "missing.toml"), url: ooinet, err: ErrNoCredentials},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			c, err := ResolveCredentials(test.explicit, test.path, test.url, test.allowShared, log)
			if test.err != nil {
				if !errors.Is(err, test.err) {
					t.Fatalf("expected %v, got %v", test.err, err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if c != test.want {
				t.Errorf("%+v != %+v", c, test.want)
			}
		})
	}

	if _, err := ResolveCredentials(Credentials{Username: "x"}, path, ooinet, false, log); err == nil {
		t.Error("expected an error for a username without a token")
	}
	bad := filepath.Join(dir, "bad.toml")
	if err := ioutil.WriteFile(bad, []byte("[machine"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := ResolveCredentials(Credentials{}, bad, ooinet, false, log); err == nil || errors.Is(err, ErrNoCredentials) {
		t.Errorf("expected a parse error, got %v", err)
	}
}
