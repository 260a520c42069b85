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
	"io"
	"io/ioutil"
	"net/http"
	"os"

	"github.com/ctessum/requestcache"
	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/m2m/internal/hash"
)

// maxErrorBody is the number of bytes of an unsuccessful response
// body that are kept in a StatusError.
const maxErrorBody = 512

// Client makes requests to the M2M API.
type Client struct {
	cfg   Config
	http  *http.Client
	log   logrus.FieldLogger
	cache *requestcache.Cache
}

// NewClient creates a new client from the given configuration.
// cfg is copied, so later changes to it have no effect on the client.
func NewClient(cfg *Config) (*Client, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	c := &Client{cfg: *cfg, http: cfg.HTTPClient, log: cfg.Log}
	if c.http == nil {
		c.http = &http.Client{Timeout: cfg.RequestTimeout}
	}
	if c.log == nil {
		c.log = logrus.StandardLogger()
	}
	if c.cfg.BaseURL == "" {
		return nil, fmt.Errorf("m2m: base URL is not set")
	}
	if c.cfg.PollAttempts <= 0 {
		return nil, fmt.Errorf("m2m: the number of poll attempts must be positive, not %d", c.cfg.PollAttempts)
	}
	if c.cfg.CacheSize <= 0 {
		c.cfg.CacheSize = DefaultConfig().CacheSize
	}

	// requestcache.Deduplicate is not used because it never releases
	// the key of a failed request.
	caches := []requestcache.CacheFunc{requestcache.Memory(c.cfg.CacheSize)}
	if c.cfg.CacheDir != "" {
		dir := os.ExpandEnv(c.cfg.CacheDir)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("m2m: creating cache directory: %v", err)
		}
		caches = append(caches, requestcache.Disk(dir, marshalBody, unmarshalBody))
	}
	c.cache = requestcache.NewCache(c.fetchMetadata, 1, caches...)
	return c, nil
}

// Config returns a copy of the client configuration.
func (c *Client) Config() Config { return c.cfg }

// get performs an HTTP GET request and returns the response body. If
// auth is true, the request is authenticated with the client
// credentials. The returned error is ErrNotFound, a *StatusError or a
// *TransportError.
func (c *Client) get(ctx context.Context, url string, auth bool) ([]byte, error) {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, &TransportError{URL: url, Err: err}
	}
	req = req.WithContext(ctx)
	if auth {
		if c.cfg.Credentials.IsZero() {
			return nil, ErrNoCredentials
		}
		req.SetBasicAuth(c.cfg.Credentials.Username, c.cfg.Credentials.Token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &TransportError{URL: url, Err: err}
	}
	defer resp.Body.Close()
	switch {
	case resp.StatusCode == http.StatusOK:
		b, err := ioutil.ReadAll(resp.Body)
		if err != nil {
			return nil, &TransportError{URL: url, Err: err}
		}
		return b, nil
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", ErrNotFound, url)
	default:
		b, _ := ioutil.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &StatusError{URL: url, Code: resp.StatusCode, Body: string(b)}
	}
}

// metadataRequest is the payload of a cached metadata request.
type metadataRequest struct {
	url string
}

func (c *Client) fetchMetadata(ctx context.Context, payload interface{}) (interface{}, error) {
	r := payload.(metadataRequest)
	c.log.WithFields(logrus.Fields{"url": r.url}).Debug("m2m: metadata request")
	return c.get(ctx, r.url, true)
}

// getMetadata returns the body of the authenticated response from url,
// from the cache if possible. Unsuccessful requests are not cached.
func (c *Client) getMetadata(ctx context.Context, url string) ([]byte, error) {
	key := hash.Key(url, c.cfg.Credentials.Username)
	r, err := c.cache.NewRequest(ctx, metadataRequest{url: url}, key).Result()
	if err != nil {
		return nil, err
	}
	return r.([]byte), nil
}

// marshalBody and unmarshalBody store cached response bodies on disk
// as-is.
func marshalBody(data interface{}) ([]byte, error) {
	if p, ok := data.(*interface{}); ok {
		data = *p
	}
	b, ok := data.([]byte)
	if !ok {
		return nil, fmt.Errorf("m2m: cannot cache %T", data)
	}
	return b, nil
}

func unmarshalBody(b []byte) (interface{}, error) { return b, nil }
