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

package dataset

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Seconds converts t to floating point seconds since 1970-01-01.
func (t Times) Seconds() []float64 {
	o := make([]float64, len(t))
	for i, ns := range t {
		o[i] = float64(ns) / 1e9
	}
	return o
}

// Time returns element i of t as a time.Time in UTC.
func (t Times) Time(i int) time.Time {
	return time.Unix(0, t[i]).UTC()
}

// FromSeconds converts floating point seconds since 1970-01-01 to Times.
func FromSeconds(s []float64) Times {
	o := make(Times, len(s))
	for i, v := range s {
		o[i] = secondsToNanos(v, 0)
	}
	return o
}

// secondsToNanos converts v seconds after the reference time ref
// (in nanoseconds since 1970) to nanoseconds since 1970. The whole and
// fractional seconds are converted separately to avoid losing precision.
func secondsToNanos(v float64, ref int64) int64 {
	whole := math.Floor(v)
	frac := v - whole
	return ref + int64(whole)*int64(time.Second) + int64(math.Round(frac*1e9))
}

var unitScale = map[string]float64{
	"days":         86400,
	"day":          86400,
	"d":            86400,
	"hours":        3600,
	"hour":         3600,
	"h":            3600,
	"minutes":      60,
	"minute":       60,
	"min":          60,
	"seconds":      1,
	"second":       1,
	"s":            1,
	"milliseconds": 1e-3,
	"millisecond":  1e-3,
	"ms":           1e-3,
	"microseconds": 1e-6,
	"microsecond":  1e-6,
	"us":           1e-6,
}

// ParseTimeUnits parses a CF time units string of the form
// "<unit> since <reference time>", for example
// "seconds since 1900-01-01 0:0:0", and returns the number of seconds
// per unit and the reference time. Time zone offsets are not supported;
// reference times are taken to be UTC.
func ParseTimeUnits(units string) (scale float64, ref time.Time, err error) {
	parts := strings.SplitN(strings.TrimSpace(units), " since ", 2)
	if len(parts) != 2 {
		return 0, ref, fmt.Errorf("dataset: invalid time units %q", units)
	}
	scale, ok := unitScale[strings.ToLower(strings.TrimSpace(parts[0]))]
	if !ok {
		return 0, ref, fmt.Errorf("dataset: invalid time unit %q in %q", parts[0], units)
	}
	fields := strings.Fields(strings.Replace(parts[1], "T", " ", 1))
	if len(fields) == 0 {
		return 0, ref, fmt.Errorf("dataset: missing reference time in %q", units)
	}
	var y, mo, d int
	if _, err := fmt.Sscanf(fields[0], "%d-%d-%d", &y, &mo, &d); err != nil {
		return 0, ref, fmt.Errorf("dataset: invalid reference date in %q: %v", units, err)
	}
	var h, mi int
	var s float64
	if len(fields) > 1 {
		clock := strings.TrimSuffix(fields[1], "Z")
		if _, err := fmt.Sscanf(clock, "%d:%d:%g", &h, &mi, &s); err != nil {
			if _, err := fmt.Sscanf(clock, "%d:%d", &h, &mi); err != nil {
				return 0, ref, fmt.Errorf("dataset: invalid reference time in %q: %v", units, err)
			}
		}
	}
	whole := math.Floor(s)
	ns := int(math.Round((s - whole) * 1e9))
	ref = time.Date(y, time.Month(mo), d, h, mi, int(whole), ns, time.UTC)
	return scale, ref, nil
}

// DecodeTimes returns a copy of d in which the named numeric variable,
// which must have a CF "units" attribute, is converted to Times. The
// "units" and "calendar" attributes are removed from the variable because
// they no longer describe its values.
func (d *Dataset) DecodeTimes(name string) (*Dataset, error) {
	v := d.Var(name)
	if v == nil {
		return nil, fmt.Errorf("dataset: decoding times: no variable %s", name)
	}
	if _, ok := v.Data.(Times); ok {
		return d.Clone(), nil
	}
	units, ok := v.Attrs.String("units")
	if !ok {
		return nil, fmt.Errorf("dataset: decoding times: variable %s has no units", name)
	}
	scale, ref, err := ParseTimeUnits(units)
	if err != nil {
		return nil, err
	}
	vals, err := v.Float64s()
	if err != nil {
		return nil, fmt.Errorf("dataset: decoding times: %v", err)
	}
	refNS := ref.UnixNano()
	t := make(Times, len(vals))
	for i, x := range vals {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return nil, fmt.Errorf("dataset: decoding times: variable %s has invalid value at index %d", name, i)
		}
		t[i] = secondsToNanos(x*scale, refNS)
	}
	attrs := v.Attrs.Clone()
	attrs.Delete("units", "calendar")
	return d.WithVar(&Variable{Name: name, Dims: v.Dims, Data: t, Attrs: attrs})
}
