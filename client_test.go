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
	"errors"
	"fmt"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"os"
	"reflect"
	"sync"
	"testing"
	"time"
)

func TestNewClient(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BaseURL = ""
	if _, err := NewClient(cfg); err == nil {
		t.Error("expected an error for a missing base URL")
	}
	cfg = DefaultConfig()
	cfg.PollAttempts = 0
	if _, err := NewClient(cfg); err == nil {
		t.Error("expected an error for zero poll attempts")
	}
	c, err := NewClient(nil)
	if err != nil {
		t.Fatal(err)
	}
	if c.Config().BaseURL != DefaultConfig().BaseURL {
		t.Errorf("base URL = %s", c.Config().BaseURL)
	}
}

func TestResponseTaxonomy(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/ok", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "payload")
	})
	mux.HandleFunc("/busy", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "try again later", http.StatusServiceUnavailable)
	})
	mux.HandleFunc("/denied", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad token", http.StatusUnauthorized)
	})
	c, srv := testClient(t, mux)
	ctx := context.Background()

	b, err := c.get(ctx, srv.URL+"/ok", false)
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != "payload" {
		t.Errorf("body = %q", b)
	}

	_, err = c.get(ctx, srv.URL+"/missing", false)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	var se *StatusError
	_, err = c.get(ctx, srv.URL+"/busy", false)
	if !errors.As(err, &se) {
		t.Fatalf("expected a status error, got %v", err)
	}
	if se.Code != http.StatusServiceUnavailable || !se.Temporary() || se.Body != "try again later\n" {
		t.Errorf("unexpected status error %+v", se)
	}
	_, err = c.get(ctx, srv.URL+"/denied", true)
	if !errors.As(err, &se) || se.Temporary() {
		t.Errorf("expected a permanent status error, got %v", err)
	}

	srv.Close()
	var te *TransportError
	_, err = c.get(ctx, srv.URL+"/ok", false)
	if !errors.As(err, &te) {
		t.Errorf("expected a transport error, got %v", err)
	}
}

func TestNoCredentials(t *testing.T) {
	cfg := testConfig("http://localhost")
	cfg.Credentials = Credentials{}
	c, err := NewClient(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.Nodes(context.Background(), "CE01ISSM"); !errors.Is(err, ErrNoCredentials) {
		t.Errorf("expected ErrNoCredentials, got %v", err)
	}
}

// countingHandler counts the requests made for each path.
type countingHandler struct {
	mu     sync.Mutex
	counts map[string]int
	h      http.Handler
}

func (c *countingHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c.mu.Lock()
	c.counts[r.URL.Path]++
	c.mu.Unlock()
	c.h.ServeHTTP(w, r)
}

func (c *countingHandler) count(path string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts[path]
}

func metadataServer(t *testing.T) *countingHandler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/m2m/"+DeployPath+"CE01ISSM", func(w http.ResponseWriter, r *http.Request) {
		if u, p, ok := r.BasicAuth(); !ok || u != "OOIAPI-TEST" || p != "secret" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		fmt.Fprint(w, `["MFC35", "MFD35", "SBD17"]`)
	})
	mux.HandleFunc("/api/m2m/"+StreamPath+"ctdbp_cdef_dcl_instrument", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"name": "ctdbp_cdef_dcl_instrument", "id": 923}`)
	})
	mux.HandleFunc("/api/m2m/"+DeployPath+"CE01ISSM/SBD17/06-CTDBPC000/7", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"deploymentNumber": 7, "eventStartTime": 1500000000000, "eventStopTime": 1510000000000,
			"location": {"depth": 7.0, "latitude": 44.6598, "longitude": -124.095}}]`)
	})
	mux.HandleFunc("/api/m2m/"+DeployPath+"CE01ISSM/SBD17/06-CTDBPC000/99", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[]`)
	})
	return &countingHandler{counts: make(map[string]int), h: mux}
}

func TestMetadata(t *testing.T) {
	h := metadataServer(t)
	c, srv := testClient(t, h)
	defer srv.Close()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		nodes, err := c.Nodes(ctx, "CE01ISSM")
		if err != nil {
			t.Fatal(err)
		}
		want := []interface{}{"MFC35", "MFD35", "SBD17"}
		if !reflect.DeepEqual(nodes, want) {
			t.Errorf("%v != %v", nodes, want)
		}
	}
	if n := h.count("/api/m2m/" + DeployPath + "CE01ISSM"); n != 1 {
		t.Errorf("made %d requests for a cached response", n)
	}

	info, err := c.StreamInformation(ctx, "ctdbp_cdef_dcl_instrument")
	if err != nil {
		t.Fatal(err)
	}
	if id := info.(map[string]interface{})["id"]; id != 923.0 {
		t.Errorf("id = %v", id)
	}

	for i := 0; i < 2; i++ {
		if _, err := c.Sensors(ctx, "CE01ISSM", "XXX"); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	}
	if n := h.count("/api/m2m/" + DeployPath + "CE01ISSM/XXX"); n != 2 {
		t.Errorf("failed request should not be cached; made %d requests", n)
	}
}

func TestMetadataDiskCache(t *testing.T) {
	dir, err := ioutil.TempDir("", "m2m_cache")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)

	h := metadataServer(t)
	srv := httptest.NewServer(h)
	defer srv.Close()
	for i := 0; i < 2; i++ {
		cfg := testConfig(srv.URL)
		cfg.CacheDir = dir
		c, err := NewClient(cfg)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := c.Nodes(context.Background(), "CE01ISSM"); err != nil {
			t.Fatal(err)
		}
	}
	if n := h.count("/api/m2m/" + DeployPath + "CE01ISSM"); n != 1 {
		t.Errorf("made %d requests with a disk cache", n)
	}
}

func TestDeploymentInfo(t *testing.T) {
	c, srv := testClient(t, metadataServer(t))
	defer srv.Close()
	ctx := context.Background()

	d, err := c.DeploymentInfo(ctx, "CE01ISSM", "SBD17", "06-CTDBPC000", 7)
	if err != nil {
		t.Fatal(err)
	}
	if len(d) != 1 || d[0].DeploymentNumber != 7 || d[0].Location.Depth != 7 {
		t.Errorf("unexpected deployment %+v", d)
	}
	tr, err := c.DeploymentDates(ctx, "CE01ISSM", "SBD17", "06-CTDBPC000", 7)
	if err != nil {
		t.Fatal(err)
	}
	want := TimeRange{Start: "2017-07-14T02:40:00.000Z", Stop: "2017-11-06T20:26:40.000Z"}
	if tr != want {
		t.Errorf("%+v != %+v", tr, want)
	}

	if _, err := c.DeploymentInfo(ctx, "CE01ISSM", "SBD17", "06-CTDBPC000", 99); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for an empty result, got %v", err)
	}
}

func TestDeploymentTimeRange(t *testing.T) {
	start := int64(1546300800500)
	d := Deployment{EventStartTime: &start}
	now := time.Date(2019, 6, 1, 12, 0, 0, 999, time.UTC)
	want := TimeRange{Start: "2019-01-01T00:00:00.000Z", Stop: "2019-06-01T12:00:00.000Z"}
	if tr := d.TimeRange(now); tr != want {
		t.Errorf("%+v != %+v", tr, want)
	}
}

func TestEndpoint(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BaseURL = "https://example.org/api/m2m"
	c, err := NewClient(cfg)
	if err != nil {
		t.Fatal(err)
	}
	got := c.endpoint(SensorPath, "CE01ISSM", "SBD17", "a b")
	if want := "https://example.org/api/m2m/12576/sensor/inv/CE01ISSM/SBD17/a%20b"; got != want {
		t.Errorf("%s != %s", got, want)
	}
}
