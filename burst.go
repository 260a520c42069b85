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
	"sort"
	"time"

	"github.com/spatialmodel/m2m/dataset"
	"gonum.org/v1/gonum/stat"
)

// DefaultBurstInterval is the default width of the bins used by
// BurstAverage.
const DefaultBurstInterval = 15 * time.Minute

// BurstAverage bins the observations in d, which must have a decoded time
// coordinate, into intervals of the given width aligned to the Unix
// epoch. Each bin is labelled with its start time. Floating-point
// variables hold the median of the non-NaN values in each bin, and other
// variables hold the value of the first observation in the bin. Bins
// without observations are omitted.
func BurstAverage(d *dataset.Dataset, interval time.Duration) (*dataset.Dataset, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("m2m: burst averaging: interval must be positive, not %v", interval)
	}
	tv := d.Var("time")
	if tv == nil || len(tv.Dims) != 1 || tv.Dims[0] != "time" {
		return nil, fmt.Errorf("m2m: burst averaging: dataset has no time coordinate")
	}
	if _, ok := tv.Data.(dataset.Times); !ok {
		return nil, fmt.Errorf("m2m: burst averaging: time variable has type %s; it should hold decoded times", tv.Type())
	}
	if !d.IsSorted("time") {
		var err error
		if d, err = d.SortBy("time"); err != nil {
			return nil, err
		}
	}
	times := d.Var("time").Data.(dataset.Times)
	if len(times) == 0 {
		return d.Clone(), nil
	}

	width := int64(interval)
	var starts []int   // index of the first observation in each bin
	var labels []int64 // start time of each bin
	for i, t := range times {
		bin := floorDiv(t, width) * width
		if len(labels) == 0 || labels[len(labels)-1] != bin {
			starts = append(starts, i)
			labels = append(labels, bin)
		}
	}
	o, err := d.Take("time", starts)
	if err != nil {
		return nil, err
	}
	ends := make([]int, len(starts))
	copy(ends, starts[1:])
	ends[len(ends)-1] = len(times)

	for i, v := range o.Vars {
		if v.Name == "time" {
			v.Data = dataset.Times(labels)
			continue
		}
		axis := -1
		for j, dim := range v.Dims {
			if dim == "time" {
				axis = j
			}
		}
		if axis < 0 {
			continue
		}
		src := d.Var(v.Name)
		switch data := src.Data.(type) {
		case []float64:
			o.Vars[i].Data = binMedians(data, shapeOf(d, src), axis, starts, ends)
		case []float32:
			vals, _ := src.Float64s()
			m := binMedians(vals, shapeOf(d, src), axis, starts, ends)
			f := make([]float32, len(m))
			for k, x := range m {
				f[k] = float32(x)
			}
			o.Vars[i].Data = f
		}
	}
	if err := o.Validate(); err != nil {
		return nil, err
	}
	return o, nil
}

// binMedians returns the median of the non-NaN values in each bin along
// axis. Bin k covers the indices [starts[k], ends[k]).
func binMedians(data []float64, shape []int, axis int, starts, ends []int) []float64 {
	outer, inner := 1, 1
	for _, s := range shape[:axis] {
		outer *= s
	}
	for _, s := range shape[axis+1:] {
		inner *= s
	}
	n := shape[axis]
	o := make([]float64, outer*len(starts)*inner)
	buf := make([]float64, 0, n)
	for a := 0; a < outer; a++ {
		for k := range starts {
			for c := 0; c < inner; c++ {
				buf = buf[:0]
				for t := starts[k]; t < ends[k]; t++ {
					x := data[(a*n+t)*inner+c]
					if !math.IsNaN(x) {
						buf = append(buf, x)
					}
				}
				o[(a*len(starts)+k)*inner+c] = median(buf)
			}
		}
	}
	return o
}

// median returns the median of x, which it sorts, or NaN if x is empty.
func median(x []float64) float64 {
	switch n := len(x); {
	case n == 0:
		return math.NaN()
	case n%2 == 1:
		sort.Float64s(x)
		return stat.Quantile(0.5, stat.Empirical, x, nil)
	default:
		sort.Float64s(x)
		return stat.Mean(x[n/2-1:n/2+1], nil)
	}
}

func shapeOf(d *dataset.Dataset, v *dataset.Variable) []int {
	s := make([]int, len(v.Dims))
	for i, dim := range v.Dims {
		s[i], _ = d.DimLen(dim)
	}
	return s
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}
