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
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/m2m/dataset"
)

// seconds between 1900-01-01 and 2019-01-01.
const since1900 = 2208988800 + 1546300800

// t2019 is 2019-01-01 00:00:00 UTC in nanoseconds since 1970.
const t2019 = 1546300800 * int64(time.Second)

func testConfig(url string) *Config {
	cfg := DefaultConfig()
	cfg.BaseURL = url + "/api/m2m/"
	cfg.DataURL = url + "/thredds/fileServer/"
	cfg.Credentials = Credentials{Username: "OOIAPI-TEST", Token: "secret"}
	cfg.PollInterval = time.Millisecond
	cfg.RequestTimeout = 5 * time.Second
	log := logrus.New()
	log.Out = ioutil.Discard
	cfg.Log = log
	return cfg
}

func testClient(t *testing.T, h http.Handler) (*Client, *httptest.Server) {
	srv := httptest.NewServer(h)
	c, err := NewClient(testConfig(srv.URL))
	if err != nil {
		srv.Close()
		t.Fatal(err)
	}
	return c, srv
}

// rawFile returns a dataset laid out like a file exported by the M2M
// service, with one observation per minute offset in minutes, given in
// the order listed.
func rawFile(t *testing.T, minutes ...int) *dataset.Dataset {
	n := len(minutes)
	tm := make([]float64, n)
	obs := make([]int32, n)
	temp := make([]float32, n)
	lat := make([]float64, n)
	lon := make([]float64, n)
	deploy := make([]int32, n)
	executed := make([]int32, n)
	results := make([]int32, n)
	ingest := make([]float64, n)
	preferred := make(dataset.Chars, 0, 4*n)
	for i, m := range minutes {
		tm[i] = since1900 + float64(m*60)
		obs[i] = int32(i)
		temp[i] = 10 + float32(m)/10
		lat[i] = 44.6598
		lon[i] = -124.095
		deploy[i] = 7
		executed[i] = 29
		results[i] = 13
		ingest[i] = tm[i] + 3600
		preferred = append(preferred, "port"...)
	}
	d, err := dataset.New(
		[]dataset.Dim{{Name: "obs", Len: n}, {Name: "string4", Len: 4}},
		dataset.Attributes{
			{Name: "subsite", Value: "CE01ISSM"},
			{Name: "node", Value: "SBD17"},
			{Name: "DODS.strlen", Value: []int32{36}},
			{Name: "_NCProperties", Value: "version=1|netcdflibversion=4.4.1"},
			{Name: "feature_Type", Value: "point"},
		},
		&dataset.Variable{Name: "obs", Dims: []string{"obs"}, Data: obs},
		&dataset.Variable{Name: "time", Dims: []string{"obs"}, Data: tm,
			Attrs: dataset.Attributes{
				{Name: "units", Value: "seconds since 1900-01-01 0:0:0"},
				{Name: "calendar", Value: "gregorian"},
				{Name: "long_name", Value: "time"},
			}},
		&dataset.Variable{Name: "deployment", Dims: []string{"obs"}, Data: deploy},
		&dataset.Variable{Name: "id", Dims: []string{"obs"}, Data: obs},
		&dataset.Variable{Name: "ingestion_timestamp", Dims: []string{"obs"}, Data: ingest},
		&dataset.Variable{Name: "preferred_timestamp", Dims: []string{"obs", "string4"}, Data: preferred},
		&dataset.Variable{Name: "lat", Dims: []string{"obs"}, Data: lat},
		&dataset.Variable{Name: "lon", Dims: []string{"obs"}, Data: lon},
		&dataset.Variable{Name: "sea_water_temperature", Dims: []string{"obs"}, Data: temp,
			Attrs: dataset.Attributes{
				{Name: "units", Value: "ºC"},
				{Name: "standard_name", Value: "sea_water_temperature"},
			}},
		&dataset.Variable{Name: "sea_water_temperature_qc_executed", Dims: []string{"obs"}, Data: executed},
		&dataset.Variable{Name: "sea_water_temperature_qc_results", Dims: []string{"obs"}, Data: results},
	)
	if err != nil {
		t.Fatal(err)
	}
	return d
}

// encode returns d in NetCDF classic format.
func encode(t *testing.T, d *dataset.Dataset) []byte {
	b := dataset.NewBuffer(nil)
	if err := dataset.Encode(b, d); err != nil {
		t.Fatal(err)
	}
	return b.Bytes()
}

func normalized(t *testing.T, minutes ...int) *dataset.Dataset {
	d, err := NormalizeFile(rawFile(t, minutes...))
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func times(t *testing.T, d *dataset.Dataset) dataset.Times {
	v := d.Var("time")
	if v == nil {
		t.Fatal("no time variable")
	}
	tm, ok := v.Data.(dataset.Times)
	if !ok {
		t.Fatalf("time has type %s", v.Type())
	}
	return tm
}
