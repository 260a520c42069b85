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
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/spatialmodel/m2m/dataset"
)

func TestBurstAverage(t *testing.T) {
	minute := int64(time.Minute)
	nan := math.NaN()
	d, err := dataset.New([]dataset.Dim{{Name: "time", Len: 6}, {Name: "bin", Len: 2}}, nil,
		&dataset.Variable{Name: "time", Dims: []string{"time"},
			Data: dataset.Times{t2019 + 40*minute, t2019, t2019 + 5*minute, t2019 + 10*minute, t2019 + 15*minute, t2019 + 20*minute}},
		&dataset.Variable{Name: "temp", Dims: []string{"time"}, Data: []float32{7, 1, 5, 3, 2, 4}},
		&dataset.Variable{Name: "oxygen", Dims: []string{"time"}, Data: []float64{3, nan, 1, 2, nan, nan}},
		&dataset.Variable{Name: "velocity", Dims: []string{"time", "bin"},
			Data: []float64{6, 60, 1, 10, 2, 20, 3, 30, 4, 40, 5, 50}},
		&dataset.Variable{Name: "deployment", Dims: []string{"time"}, Data: []int32{3, 1, 1, 1, 2, 2}},
		&dataset.Variable{Name: "bin", Dims: []string{"bin"}, Data: []int16{1, 2}},
	)
	if err != nil {
		t.Fatal(err)
	}
	b, err := BurstAverage(d, DefaultBurstInterval)
	if err != nil {
		t.Fatal(err)
	}
	if want := (dataset.Times{t2019, t2019 + 15*minute, t2019 + 30*minute}); !reflect.DeepEqual(b.Var("time").Data, want) {
		t.Errorf("time = %v", b.Var("time").Data)
	}
	if want := []float32{3, 3, 7}; !reflect.DeepEqual(b.Var("temp").Data, want) {
		t.Errorf("temp = %v", b.Var("temp").Data)
	}
	oxy := b.Var("oxygen").Data.([]float64)
	if len(oxy) != 3 || oxy[0] != 1.5 || !math.IsNaN(oxy[1]) || oxy[2] != 3 {
		t.Errorf("oxygen = %v", oxy)
	}
	if want := []float64{2, 20, 4.5, 45, 6, 60}; !reflect.DeepEqual(b.Var("velocity").Data, want) {
		t.Errorf("velocity = %v", b.Var("velocity").Data)
	}
	if want := []int32{1, 2, 3}; !reflect.DeepEqual(b.Var("deployment").Data, want) {
		t.Errorf("deployment = %v", b.Var("deployment").Data)
	}
	if want := []int16{1, 2}; !reflect.DeepEqual(b.Var("bin").Data, want) {
		t.Errorf("bin = %v", b.Var("bin").Data)
	}
	if n, _ := b.DimLen("time"); n != 3 {
		t.Errorf("time length = %d", n)
	}
}

func TestBurstAverageErrors(t *testing.T) {
	d := normalized(t, 0, 1)
	if _, err := BurstAverage(d, 0); err == nil {
		t.Error("expected an error for a zero interval")
	}
	u, err := UpdateDataset(d, 7)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := BurstAverage(u, time.Minute); err == nil {
		t.Error("expected an error for numeric times")
	}
}

func TestMedian(t *testing.T) {
	for _, test := range []struct {
		x    []float64
		want float64
	}{
		{[]float64{3, 1, 2}, 2},
		{[]float64{4, 1, 3, 2}, 2.5},
		{[]float64{5}, 5},
	} {
		if got := median(test.x); got != test.want {
			t.Errorf("median(%v) = %g, want %g", test.x, got, test.want)
		}
	}
	if !math.IsNaN(median(nil)) {
		t.Error("median of nothing should be NaN")
	}
}
