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
	"math"
	"reflect"
	"regexp"
	"strings"
	"unicode"

	"github.com/spatialmodel/m2m/dataset"
	"github.com/spf13/cast"
)

var (
	qcPattern       = regexp.MustCompile(`^.+_qc_.+$`)
	executedPattern = regexp.MustCompile(`^.+_qc_executed$`)
	resultsPattern  = regexp.MustCompile(`^.+_qc_results$`)
)

// QCFlagMasks are the bit masks of the flags held in QC variables.
var QCFlagMasks = []uint8{1, 2, 4, 8, 16, 32, 64, 128}

const (
	// QCExecutedMeanings names the QC tests recorded by the bits of a
	// *_qc_executed variable.
	QCExecutedMeanings = "global_range_test local_range_test spike_test poly_trend_test " +
		"stuck_value_test gradient_test propagate_flags"

	// QCResultsMeanings names the QC test outcomes recorded by the bits of
	// a *_qc_results variable.
	QCResultsMeanings = "global_range_test_passed local_range_test_passed spike_test_passed " +
		"poly_trend_test_passed stuck_value_test_passed gradient_test_passed all_tests_passed"

	qcExecutedComment = "Automated QC tests executed for the associated named variable."
	qcResultsComment  = "QC result flags are set to true (1) if the test passed. Otherwise, if " +
		"the test failed or was not executed, the flag is set to false (0)."

	// TimeUnits are the units of the time coordinate of an updated dataset.
	TimeUnits = "seconds since 1970-01-01 00:00:00 0:00"
)

// UpdateDataset converts a dataset created by Merge into a CF/IOOS
// station time series. A station dimension of length one is added to
// all data variables, along with station, lon, lat and z coordinate
// variables. The position is taken from the first value of the lat and
// lon variables if they exist, and from the lat and lon global attributes
// otherwise; the source of the position is removed. depth is the
// deployment depth in meters and must be positive. QC variables are
// converted to bytes with flag attributes, and time is converted to
// seconds since 1970.
//
// The dataset must have a subsite global attribute. UpdateDataset cannot
// be applied twice: ErrAlreadyNormalized is returned if d already has a
// station dimension.
func UpdateDataset(d *dataset.Dataset, depth float64) (*dataset.Dataset, error) {
	if d.HasDim("station") {
		return nil, ErrAlreadyNormalized
	}
	if !(depth > 0) {
		return nil, fmt.Errorf("m2m: deployment depth must be positive, not %g", depth)
	}
	subsite, ok := d.Attrs.String("subsite")
	if !ok {
		return nil, fmt.Errorf("m2m: dataset has no subsite attribute")
	}
	tv := d.Var("time")
	if tv == nil {
		return nil, fmt.Errorf("m2m: dataset has no time variable")
	}
	times, ok := tv.Data.(dataset.Times)
	if !ok {
		return nil, fmt.Errorf("m2m: time variable has type %s; it should hold decoded times", tv.Type())
	}

	lat, lon, d, err := position(d)
	if err != nil {
		return nil, err
	}
	if d, err = d.ExpandDims("station"); err != nil {
		return nil, err
	}
	coords, err := dataset.New([]dataset.Dim{{Name: "station", Len: 1}}, nil,
		&dataset.Variable{Name: "station", Dims: []string{"station"}, Data: []int32{0},
			Attrs: dataset.Attributes{
				{Name: "cf_role", Value: "timeseries_id"},
				{Name: "long_name", Value: "Station Identifier"},
				{Name: "comment", Value: strings.ToUpper(subsite)},
			}},
		&dataset.Variable{Name: "lon", Dims: []string{"station"}, Data: []float64{lon},
			Attrs: dataset.Attributes{
				{Name: "long_name", Value: "Longitude"},
				{Name: "standard_name", Value: "longitude"},
				{Name: "units", Value: "degrees_east"},
				{Name: "axis", Value: "X"},
				{Name: "comment", Value: "Deployment location"},
			}},
		&dataset.Variable{Name: "lat", Dims: []string{"station"}, Data: []float64{lat},
			Attrs: dataset.Attributes{
				{Name: "long_name", Value: "Latitude"},
				{Name: "standard_name", Value: "latitude"},
				{Name: "units", Value: "degrees_north"},
				{Name: "axis", Value: "Y"},
				{Name: "comment", Value: "Deployment location"},
			}},
		&dataset.Variable{Name: "z", Dims: []string{"station"}, Data: []float64{depth},
			Attrs: dataset.Attributes{
				{Name: "long_name", Value: "Depth"},
				{Name: "standard_name", Value: "depth"},
				{Name: "units", Value: "m"},
				{Name: "comment", Value: "Instrument deployment depth"},
				{Name: "positive", Value: "down"},
				{Name: "axis", Value: "Z"},
			}},
	)
	if err != nil {
		return nil, err
	}
	if d, err = d.Combine(coords); err != nil {
		return nil, fmt.Errorf("m2m: adding station coordinates: %v", err)
	}

	// d is now a copy owned by this function, so its variables are
	// updated in place.
	for _, v := range d.Vars {
		switch v.Name {
		case "time", "lat", "lon", "z", "station":
		default:
			v.Attrs.Set("coordinates", "time lon lat z")
		}
	}
	if v := d.Var("deployment"); v != nil {
		v.Attrs.Set("long_name", "Deployment Number")
	}
	for i, v := range d.Vars {
		if !qcPattern.MatchString(v.Name) {
			continue
		}
		if d.Vars[i], err = qcVariable(d, v); err != nil {
			return nil, err
		}
	}
	*d.Var("time") = dataset.Variable{
		Name: "time",
		Dims: []string{"time"},
		Data: times.Seconds(),
		Attrs: dataset.Attributes{
			{Name: "long_name", Value: "Time"},
			{Name: "standard_name", Value: "time"},
			{Name: "units", Value: TimeUnits},
			{Name: "axis", Value: "T"},
			{Name: "calendar", Value: "gregorian"},
		},
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return d, nil
}

// position returns the deployment latitude and longitude and a copy of d
// with the source of the position removed.
func position(d *dataset.Dataset) (lat, lon float64, o *dataset.Dataset, err error) {
	latV, lonV := d.Var("lat"), d.Var("lon")
	if latV != nil || lonV != nil {
		if latV == nil || lonV == nil {
			return 0, 0, nil, fmt.Errorf("m2m: dataset must have both lat and lon variables or neither")
		}
		if lat, err = firstValue(latV); err != nil {
			return 0, 0, nil, err
		}
		if lon, err = firstValue(lonV); err != nil {
			return 0, 0, nil, err
		}
		return lat, lon, d.Drop("lat", "lon"), nil
	}
	latA, ok := d.Attrs.Get("lat")
	if !ok {
		return 0, 0, nil, fmt.Errorf("m2m: dataset has no lat variable or attribute")
	}
	lonA, ok := d.Attrs.Get("lon")
	if !ok {
		return 0, 0, nil, fmt.Errorf("m2m: dataset has no lon variable or attribute")
	}
	if lat, err = attrFloat(latA); err != nil {
		return 0, 0, nil, fmt.Errorf("m2m: lat attribute: %v", err)
	}
	if lon, err = attrFloat(lonA); err != nil {
		return 0, 0, nil, fmt.Errorf("m2m: lon attribute: %v", err)
	}
	o = d.Clone()
	o.Attrs.Delete("lat", "lon")
	return lat, lon, o, nil
}

func firstValue(v *dataset.Variable) (float64, error) {
	vals, err := v.Float64s()
	if err != nil {
		return 0, fmt.Errorf("m2m: %v", err)
	}
	if len(vals) == 0 {
		return 0, fmt.Errorf("m2m: variable %s is empty", v.Name)
	}
	return vals[0], nil
}

// attrFloat converts a numeric or string attribute value to a float.
// The first element of an array is used.
func attrFloat(v interface{}) (float64, error) {
	if _, ok := v.(string); !ok {
		rv := reflect.ValueOf(v)
		if rv.Kind() == reflect.Slice {
			if rv.Len() == 0 {
				return 0, fmt.Errorf("empty value")
			}
			v = rv.Index(0).Interface()
		}
	}
	return cast.ToFloat64E(v)
}

// qcVariable converts a QC variable to bytes dimensioned by
// (station, time) and sets its flag attributes. The attributes of the
// input variable are not kept, except for coordinates.
func qcVariable(d *dataset.Dataset, v *dataset.Variable) (*dataset.Variable, error) {
	if len(v.Dims) != 2 || v.Dims[0] != "station" || v.Dims[1] != "time" {
		return nil, fmt.Errorf("m2m: QC variable %s has dimensions %v; it should have dimensions (station, time)", v.Name, v.Dims)
	}
	vals, err := v.Float64s()
	if err != nil {
		return nil, fmt.Errorf("m2m: QC variable %s: %v", v.Name, err)
	}
	flags := make([]uint8, len(vals))
	for i, x := range vals {
		if math.IsNaN(x) || x < 0 || x > 255 || x != math.Trunc(x) {
			return nil, fmt.Errorf("m2m: QC variable %s has value %g at index %d, which does not fit in a byte", v.Name, x, i)
		}
		flags[i] = uint8(x)
	}
	o := &dataset.Variable{
		Name: v.Name,
		Dims: []string{"station", "time"},
		Data: flags,
		Attrs: dataset.Attributes{
			{Name: "long_name", Value: qcLongName(v.Name)},
			// NetCDF classic bytes are signed unless marked otherwise.
			{Name: "_Unsigned", Value: "true"},
		},
	}

	var suffix, meanings, comment, stdSuffix string
	switch {
	case executedPattern.MatchString(v.Name):
		suffix, meanings, comment, stdSuffix = "_qc_executed", QCExecutedMeanings, qcExecutedComment, " qc_tests_executed"
	case resultsPattern.MatchString(v.Name):
		suffix, meanings, comment, stdSuffix = "_qc_results", QCResultsMeanings, qcResultsComment, " qc_tests_results"
	}
	if suffix != "" {
		o.Attrs.Set("flag_masks", append([]uint8(nil), QCFlagMasks...))
		o.Attrs.Set("flag_meanings", meanings)
		o.Attrs.Set("comment", comment)
		ancillary := strings.Replace(v.Name, suffix, "", -1)
		o.Attrs.Set("ancillary_variables", ancillary)
		if av := d.Var(ancillary); av != nil {
			if std, ok := av.Attrs.String("standard_name"); ok {
				o.Attrs.Set("standard_name", std+stdSuffix)
			}
		}
	}
	if c, ok := v.Attrs.Get("coordinates"); ok {
		o.Attrs.Set("coordinates", c)
	}
	return o, nil
}

// qcLongName creates a descriptive name for a QC variable, for example
// "Temp QC Executed" for "temp_qc_executed".
func qcLongName(name string) string {
	return strings.Replace(strings.Replace(title(name), "_", " ", -1), "Qc", "QC", -1)
}

// title returns s with the first letter of each run of letters in upper
// case and the other letters in lower case.
func title(s string) string {
	r := []rune(s)
	prevLetter := false
	for i, c := range r {
		if unicode.IsLetter(c) {
			if prevLetter {
				r[i] = unicode.ToLower(c)
			} else {
				r[i] = unicode.ToUpper(c)
			}
			prevLetter = true
		} else {
			prevLetter = false
		}
	}
	return string(r)
}
