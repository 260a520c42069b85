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
	"errors"
	"io/ioutil"
	"os"
	"reflect"
	"strings"
	"testing"

	"github.com/batchatco/go-native-netcdf/netcdf"
	"github.com/batchatco/go-native-netcdf/netcdf/api"
)

type testAttrs struct {
	keys []string
	vals map[string]interface{}
}

func (a testAttrs) Keys() []string { return a.keys }

func (a testAttrs) Get(key string) (interface{}, bool) {
	v, ok := a.vals[key]
	return v, ok
}

func (a testAttrs) GetType(key string) (string, bool) { return "", false }

func (a testAttrs) GetGoType(key string) (string, bool) { return "", false }

func attrs(kv ...interface{}) api.AttributeMap {
	a := testAttrs{vals: make(map[string]interface{})}
	for i := 0; i < len(kv); i += 2 {
		k := kv[i].(string)
		a.keys = append(a.keys, k)
		a.vals[k] = kv[i+1]
	}
	return a
}

type testGroup struct {
	names []string
	vars  map[string]*api.Variable
	attrs api.AttributeMap
}

func (g *testGroup) ListVariables() []string { return g.names }

func (g *testGroup) GetVariable(name string) (*api.Variable, error) {
	v, ok := g.vars[name]
	if !ok {
		return nil, errors.New("no such variable")
	}
	return v, nil
}

func (g *testGroup) Attributes() api.AttributeMap { return g.attrs }

func (g *testGroup) add(name string, values interface{}, dims []string, a api.AttributeMap) *testGroup {
	if g.vars == nil {
		g.vars = make(map[string]*api.Variable)
	}
	g.names = append(g.names, name)
	g.vars[name] = &api.Variable{Values: values, Dimensions: dims, Attributes: a}
	return g
}

func TestFromGroup(t *testing.T) {
	g := &testGroup{attrs: attrs(
		"title", "CTD",
		"lat", 44.66,
		"DODS.strlen", int32(36),
		"_Netcdf4Dimid", int32(0),
	)}
	g.add("time", []float64{1, 2, 3}, []string{"obs"}, attrs("units", "seconds since 1900-01-01"))
	g.add("temp", [][]float32{{1, 2}, {3, 4}, {5, 6}}, []string{"obs", "bin"}, nil)
	g.add("bin", []float32{0, 0}, []string{"bin"}, attrs("NAME", dimensionOnly+"         2"))
	g.add("qc", []int8{-1, 0, 1}, []string{"obs"}, nil)
	g.add("flags", []uint16{1, 2, 65535}, []string{"obs"}, nil)
	g.add("ingest", []int64{10, 20, 30}, []string{"obs"}, attrs("valid_max", uint32(7)))
	g.add("port", []string{"ab", "c", "de"}, []string{"obs", "strlen"}, nil)
	g.add("id", []string{"x", "y", "z"}, []string{"obs"}, nil)

	d, err := fromGroup(g)
	if err != nil {
		t.Fatal(err)
	}
	wantDims := []Dim{{"obs", 3}, {"bin", 2}, {"strlen", 2}, {"id_strlen", 1}}
	if !reflect.DeepEqual(d.Dims, wantDims) {
		t.Errorf("dims = %v, want %v", d.Dims, wantDims)
	}
	if want := []string{"time", "temp", "qc", "flags", "ingest", "port", "id"}; !reflect.DeepEqual(d.VarNames(), want) {
		t.Errorf("variables = %v", d.VarNames())
	}
	for name, want := range map[string]interface{}{
		"time":   []float64{1, 2, 3},
		"temp":   []float32{1, 2, 3, 4, 5, 6},
		"qc":     []int16{-1, 0, 1},
		"flags":  []int32{1, 2, 65535},
		"ingest": []float64{10, 20, 30},
		"port":   Chars("abc\x00de"),
		"id":     Chars("xyz"),
	} {
		if got := d.Var(name).Data; !reflect.DeepEqual(got, want) {
			t.Errorf("%s = %#v, want %#v", name, got, want)
		}
	}
	if want := []string{"obs", "strlen"}; !reflect.DeepEqual(d.Var("port").Dims, want) {
		t.Errorf("port dims = %v", d.Var("port").Dims)
	}
	if u, _ := d.Var("time").Attrs.String("units"); u != "seconds since 1900-01-01" {
		t.Errorf("time units = %q", u)
	}
	if v, _ := d.Var("ingest").Attrs.Get("valid_max"); !reflect.DeepEqual(v, []float64{7}) {
		t.Errorf("valid_max = %#v", v)
	}
	if want := []string{"title", "lat", "DODS.strlen"}; !reflect.DeepEqual(d.Attrs.Names(), want) {
		t.Errorf("global attributes = %v", d.Attrs.Names())
	}
	if v, _ := d.Attrs.Get("lat"); !reflect.DeepEqual(v, []float64{44.66}) {
		t.Errorf("lat = %#v", v)
	}
	if v, _ := d.Attrs.Get("DODS.strlen"); !reflect.DeepEqual(v, []int32{36}) {
		t.Errorf("DODS.strlen = %#v", v)
	}
}

func TestFromGroupErrors(t *testing.T) {
	tests := []struct {
		name string
		g    *testGroup
		err  string
	}{
		{
			name: "ragged",
			g:    new(testGroup).add("x", [][]float64{{1}, {1, 2}}, []string{"a", "b"}, nil),
			err:  "ragged",
		},
		{
			name: "dimension length",
			g: new(testGroup).
				add("x", []float64{1, 2, 3}, []string{"obs"}, nil).
				add("y", []float64{1, 2}, []string{"obs"}, nil),
			err: "dimension obs has length 2 != 3",
		},
		{
			name: "dimension count",
			g:    new(testGroup).add("x", []float64{1, 2}, []string{"a", "b"}, nil),
			err:  "2 dimensions for 1-dimensional values",
		},
		{
			name: "type",
			g:    new(testGroup).add("x", []complex64{1}, []string{"a"}, nil),
			err:  "unsupported element type",
		},
		{
			name: "long string",
			g: new(testGroup).
				add("x", []string{"abc"}, []string{"obs", "n"}, nil).
				add("y", [][]int16{{1, 2}}, []string{"obs", "n"}, nil),
			err: "longer than 2",
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := fromGroup(test.g)
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(err.Error(), test.err) {
				t.Errorf("error %q should contain %q", err, test.err)
			}
		})
	}
}

func TestIsHDF5(t *testing.T) {
	header := []byte(hdf5Magic + "\x00\x00\x00\x00")
	if !isHDF5(NewBuffer(header), int64(len(header))) {
		t.Error("HDF5 signature not detected")
	}
	userBlock := append(make([]byte, 512), header...)
	if !isHDF5(NewBuffer(userBlock), int64(len(userBlock))) {
		t.Error("HDF5 signature after a user block not detected")
	}
	classic := NewBuffer(nil)
	if err := Encode(classic, encodeTestDataset(t)); err != nil {
		t.Fatal(err)
	}
	if isHDF5(classic, classic.Len()) {
		t.Error("classic file detected as HDF5")
	}

	// A truncated HDF5 file is passed to the NetCDF-4 reader.
	_, err := DecodeBytes(append([]byte(hdf5Magic), make([]byte, 64)...))
	if err == nil {
		t.Fatal("expected an error decoding a truncated file")
	}
	if !strings.Contains(err.Error(), "netcdf-4") {
		t.Errorf("error %q should come from the netcdf-4 reader", err)
	}
}

// TestNativeReader reads a file written by Encode through go-native-netcdf,
// which reads classic files as well as NetCDF-4.
func TestNativeReader(t *testing.T) {
	f, err := ioutil.TempFile("", "m2m_dataset")
	if err != nil {
		t.Fatal(err)
	}
	defer os.Remove(f.Name())
	if err := EncodeFile(f, encodeTestDataset(t)); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
	g, err := netcdf.Open(f.Name())
	if err != nil {
		t.Fatal(err)
	}
	defer g.Close()
	d, err := fromGroup(g)
	if err != nil {
		t.Fatal(err)
	}
	for _, dim := range []Dim{{"time", 3}, {"n", 2}} {
		if n, _ := d.DimLen(dim.Name); n != dim.Len {
			t.Errorf("%s length = %d, want %d", dim.Name, n, dim.Len)
		}
	}
	for name, want := range map[string]interface{}{
		"time":  []float64{1, 2, 3},
		"temp":  []float32{1, 2, 3, 4, 5, 6},
		"count": []int32{7, 8, 9},
		"depth": []int16{-1, 300},
	} {
		if got := d.Var(name).Data; !reflect.DeepEqual(got, want) {
			t.Errorf("%s = %#v, want %#v", name, got, want)
		}
	}
	if u, _ := d.Var("time").Attrs.String("units"); u != "seconds since 1970-01-01" {
		t.Errorf("time units = %q", u)
	}
}
