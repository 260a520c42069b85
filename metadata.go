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
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// DateFormat is the format of time stamps used in M2M requests.
const DateFormat = "2006-01-02T15:04:05.000Z"

// FormatTime formats t for use in a TimeRange. Fractions of a second
// are dropped.
func FormatTime(t time.Time) string {
	return t.UTC().Truncate(time.Second).Format(DateFormat)
}

// Nodes lists the nodes available at the given site.
func (c *Client) Nodes(ctx context.Context, site string) (interface{}, error) {
	return c.metadata(ctx, DeployPath, site)
}

// Sensors lists the sensors available on the given node.
func (c *Client) Sensors(ctx context.Context, site, node string) (interface{}, error) {
	return c.metadata(ctx, DeployPath, site, node)
}

// Methods lists the data delivery methods available for the given sensor.
func (c *Client) Methods(ctx context.Context, site, node, sensor string) (interface{}, error) {
	return c.metadata(ctx, SensorPath, site, node, sensor)
}

// Streams lists the data streams available for the given sensor and
// delivery method.
func (c *Client) Streams(ctx context.Context, site, node, sensor, method string) (interface{}, error) {
	return c.metadata(ctx, SensorPath, site, node, sensor, method)
}

// Deployments lists the deployment numbers of the given sensor.
func (c *Client) Deployments(ctx context.Context, site, node, sensor string) (interface{}, error) {
	return c.metadata(ctx, DeployPath, site, node, sensor)
}

// Vocabulary returns the vocabulary of the given sensor.
func (c *Client) Vocabulary(ctx context.Context, site, node, sensor string) (interface{}, error) {
	return c.metadata(ctx, VocabPath, site, node, sensor)
}

// StreamInformation describes the contents of the named stream.
func (c *Client) StreamInformation(ctx context.Context, stream string) (interface{}, error) {
	return c.metadata(ctx, StreamPath, stream)
}

// ParameterInformation describes the parameter with the given ID.
func (c *Client) ParameterInformation(ctx context.Context, id string) (interface{}, error) {
	return c.metadata(ctx, ParameterPath, id)
}

func (c *Client) metadata(ctx context.Context, endpoint string, parts ...string) (interface{}, error) {
	var v interface{}
	if err := c.metadataJSON(ctx, &v, endpoint, parts...); err != nil {
		return nil, err
	}
	return v, nil
}

// metadataJSON decodes the JSON response from the given endpoint into v.
func (c *Client) metadataJSON(ctx context.Context, v interface{}, endpoint string, parts ...string) error {
	u := c.endpoint(endpoint, parts...)
	b, err := c.getMetadata(ctx, u)
	if err != nil {
		return fmt.Errorf("m2m: requesting %s: %w", strings.Join(parts, "/"), err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("m2m: decoding response from %s: %v", u, err)
	}
	return nil
}

// endpoint returns the URL of the given endpoint, with parts appended
// as path elements.
func (c *Client) endpoint(endpoint string, parts ...string) string {
	esc := make([]string, len(parts))
	for i, p := range parts {
		esc[i] = url.PathEscape(p)
	}
	return strings.TrimSuffix(c.cfg.BaseURL, "/") + "/" + endpoint + strings.Join(esc, "/")
}

// Deployment describes one deployment of an instrument.
type Deployment struct {
	DeploymentNumber int `json:"deploymentNumber"`

	// EventStartTime and EventStopTime are in milliseconds since
	// 1970-01-01. EventStopTime is nil for a deployment that is still
	// active.
	EventStartTime *int64 `json:"eventStartTime"`
	EventStopTime  *int64 `json:"eventStopTime"`

	Location Location `json:"location"`
}

// Location is the deployed position of an instrument. Depth is in meters.
type Location struct {
	Depth     float64 `json:"depth"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// DeploymentInfo returns information about the given deployment of a
// sensor. ErrNotFound is returned if there is none.
func (c *Client) DeploymentInfo(ctx context.Context, site, node, sensor string, deploy int) ([]Deployment, error) {
	var d []Deployment
	if err := c.metadataJSON(ctx, &d, DeployPath, site, node, sensor, strconv.Itoa(deploy)); err != nil {
		return nil, err
	}
	if len(d) == 0 {
		return nil, fmt.Errorf("%w: deployment %d of %s/%s/%s", ErrNotFound, deploy, site, node, sensor)
	}
	return d, nil
}

// DeploymentDates returns the start and stop times of the given
// deployment, formatted for use in a TimeRange. The stop time of a
// deployment that is still active is the current time.
func (c *Client) DeploymentDates(ctx context.Context, site, node, sensor string, deploy int) (TimeRange, error) {
	d, err := c.DeploymentInfo(ctx, site, node, sensor, deploy)
	if err != nil {
		return TimeRange{}, err
	}
	return d[0].TimeRange(time.Now()), nil
}

// TimeRange returns the time span of d. now is used as the stop time
// of an active deployment.
func (d Deployment) TimeRange(now time.Time) TimeRange {
	var tr TimeRange
	if d.EventStartTime != nil {
		tr.Start = FormatTime(millis(*d.EventStartTime))
	}
	if d.EventStopTime != nil {
		tr.Stop = FormatTime(millis(*d.EventStopTime))
	} else {
		tr.Stop = FormatTime(now)
	}
	return tr
}

func millis(ms int64) time.Time {
	return time.Unix(0, ms*int64(time.Millisecond)).UTC()
}
