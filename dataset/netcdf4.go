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
	"io"
	"io/ioutil"
	"os"
	"reflect"
	"strings"

	"github.com/batchatco/go-native-netcdf/netcdf"
	"github.com/batchatco/go-native-netcdf/netcdf/api"
)

// hdf5Magic is the signature of an HDF5 file, which holds NetCDF-4 data.
const hdf5Magic = "\x89HDF\r\n\x1a\n"

// isHDF5 reports whether r holds an HDF5 file. The signature may follow a
// user block of 512 bytes or a larger power of two.
func isHDF5(r io.ReaderAt, size int64) bool {
	b := make([]byte, len(hdf5Magic))
	for off := int64(0); off+int64(len(b)) <= size; off = nextBlock(off) {
		if _, err := r.ReadAt(b, off); err != nil {
			return false
		}
		if string(b) == hdf5Magic {
			return true
		}
		if off >= 4096 {
			break
		}
	}
	return false
}

func nextBlock(off int64) int64 {
	if off == 0 {
		return 512
	}
	return 2 * off
}

// decodeNetCDF4 reads a NetCDF-4 file held in r. The HDF5 reader needs a
// named file, so the contents are first copied to a temporary file.
func decodeNetCDF4(r io.ReaderAt, size int64) (*Dataset, error) {
	f, err := ioutil.TempFile("", "m2m_netcdf4")
	if err != nil {
		return nil, fmt.Errorf("dataset: reading netcdf-4 file: %v", err)
	}
	defer os.Remove(f.Name())
	if _, err := io.Copy(f, io.NewSectionReader(r, 0, size)); err != nil {
		f.Close()
		return nil, fmt.Errorf("dataset: reading netcdf-4 file: %v", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("dataset: reading netcdf-4 file: %v", err)
	}
	g, err := netcdf.Open(f.Name())
	if err != nil {
		return nil, fmt.Errorf("dataset: reading netcdf-4 file: %v", err)
	}
	defer g.Close()
	return fromGroup(g)
}

// group is the part of api.Group used by fromGroup.
type group interface {
	ListVariables() []string
	GetVariable(name string) (*api.Variable, error)
	Attributes() api.AttributeMap
}

// hiddenAttrs are HDF5 bookkeeping attributes of NetCDF-4 files.
var hiddenAttrs = map[string]bool{
	"CLASS": true, "NAME": true, "REFERENCE_LIST": true, "DIMENSION_LIST": true,
	"_Netcdf4Dimid": true, "_Netcdf4Coordinates": true, "_nc3_strict": true,
}

// dimensionOnly is the NAME attribute of an HDF5 dimension scale that is
// not also a NetCDF variable.
const dimensionOnly = "This is a netCDF dimension but not a netCDF variable"

type nativeVar struct {
	v     *Variable
	flat  reflect.Value
	shape []int
	chars bool // flat holds strings; the last dimension is their length
}

// fromGroup converts the variables and attributes of a NetCDF group read
// by go-native-netcdf. Nested value slices are flattened into row-major
// order, and element types without a NetCDF classic equivalent are
// widened: int8 to int16, uint16 to int32, and 64-bit or unsigned 32-bit
// integers to float64.
func fromGroup(g group) (*Dataset, error) {
	o := new(Dataset)
	attrs, err := nativeAttributes(g.Attributes())
	if err != nil {
		return nil, fmt.Errorf("dataset: reading netcdf-4 global attributes: %v", err)
	}
	o.Attrs = attrs

	dims := make(map[string]int)
	var vars []nativeVar
	for _, name := range g.ListVariables() {
		nv, err := g.GetVariable(name)
		if err != nil {
			return nil, fmt.Errorf("dataset: reading netcdf-4 variable %s: %v", name, err)
		}
		if s, ok := attrString(nv.Attributes, "NAME"); ok && strings.HasPrefix(s, dimensionOnly) {
			continue
		}
		va, err := nativeAttributes(nv.Attributes)
		if err != nil {
			return nil, fmt.Errorf("dataset: reading netcdf-4 variable %s: %v", name, err)
		}
		flat, shape, err := flatten(nv.Values)
		if err != nil {
			return nil, fmt.Errorf("dataset: reading netcdf-4 variable %s: %v", name, err)
		}
		x := nativeVar{
			v:     &Variable{Name: name, Dims: append([]string(nil), nv.Dimensions...), Attrs: va},
			flat:  flat,
			shape: shape,
			chars: flat.Type().Elem().Kind() == reflect.String,
		}
		n := len(shape)
		if x.chars {
			if len(x.v.Dims) == n {
				x.v.Dims = append(x.v.Dims, name+"_strlen")
			}
			n++
		}
		if len(x.v.Dims) != n {
			return nil, fmt.Errorf("dataset: reading netcdf-4 variable %s: %d dimensions for %d-dimensional values",
				name, len(x.v.Dims), n)
		}
		for i, l := range shape {
			dim := x.v.Dims[i]
			if have, ok := dims[dim]; ok && have != l {
				return nil, fmt.Errorf("dataset: reading netcdf-4 variable %s: dimension %s has length %d != %d",
					name, dim, l, have)
			} else if !ok {
				dims[dim] = l
				o.Dims = append(o.Dims, Dim{Name: dim, Len: l})
			}
		}
		vars = append(vars, x)
	}

	// String lengths are only known once every variable has been seen.
	for _, x := range vars {
		if !x.chars {
			continue
		}
		dim := x.v.Dims[len(x.v.Dims)-1]
		if _, ok := dims[dim]; !ok {
			l := 0
			for i := 0; i < x.flat.Len(); i++ {
				if n := len(x.flat.Index(i).String()); n > l {
					l = n
				}
			}
			dims[dim] = l
			o.Dims = append(o.Dims, Dim{Name: dim, Len: l})
		}
	}

	for _, x := range vars {
		if x.chars {
			data, err := padStrings(x.flat, dims[x.v.Dims[len(x.v.Dims)-1]])
			if err != nil {
				return nil, fmt.Errorf("dataset: reading netcdf-4 variable %s: %v", x.v.Name, err)
			}
			x.v.Data = data
		} else {
			data, err := classicData(x.flat)
			if err != nil {
				return nil, fmt.Errorf("dataset: reading netcdf-4 variable %s: %v", x.v.Name, err)
			}
			x.v.Data = data
		}
		o.Vars = append(o.Vars, x.v)
	}
	if err := o.Validate(); err != nil {
		return nil, err
	}
	return o, nil
}

// flatten returns the elements of the possibly nested slice values in
// row-major order, along with its shape. A scalar has an empty shape.
func flatten(values interface{}) (reflect.Value, []int, error) {
	v := reflect.ValueOf(values)
	if !v.IsValid() {
		return reflect.Value{}, nil, fmt.Errorf("no values")
	}
	depth := 0
	leaf := v.Type()
	for leaf.Kind() == reflect.Slice {
		depth++
		leaf = leaf.Elem()
	}
	flat := reflect.MakeSlice(reflect.SliceOf(leaf), 0, 0)
	if depth == 0 {
		return reflect.Append(flat, v), nil, nil
	}
	shape := make([]int, depth)
	for i := range shape {
		shape[i] = -1
	}
	var walk func(v reflect.Value, level int) error
	walk = func(v reflect.Value, level int) error {
		if shape[level] == -1 {
			shape[level] = v.Len()
		} else if shape[level] != v.Len() {
			return fmt.Errorf("ragged array: length %d != %d at level %d", v.Len(), shape[level], level)
		}
		if level == depth-1 {
			flat = reflect.AppendSlice(flat, v)
			return nil
		}
		for i := 0; i < v.Len(); i++ {
			if err := walk(v.Index(i), level+1); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(v, 0); err != nil {
		return reflect.Value{}, nil, err
	}
	for i, s := range shape {
		if s == -1 {
			shape[i] = 0
		}
	}
	return flat, shape, nil
}

// classicData converts a flat slice to one of the element types of a
// NetCDF classic file.
func classicData(flat reflect.Value) (interface{}, error) {
	switch s := flat.Interface().(type) {
	case []float64, []float32, []int32, []int16, []uint8:
		return s, nil
	case []int8:
		o := make([]int16, len(s))
		for i, x := range s {
			o[i] = int16(x)
		}
		return o, nil
	case []uint16:
		o := make([]int32, len(s))
		for i, x := range s {
			o[i] = int32(x)
		}
		return o, nil
	}
	o := make([]float64, flat.Len())
	switch flat.Type().Elem().Kind() {
	case reflect.Int, reflect.Int64:
		for i := range o {
			o[i] = float64(flat.Index(i).Int())
		}
		return o, nil
	case reflect.Uint, reflect.Uint32, reflect.Uint64:
		for i := range o {
			o[i] = float64(flat.Index(i).Uint())
		}
		return o, nil
	}
	return nil, fmt.Errorf("unsupported element type %s", flat.Type().Elem())
}

// padStrings stores strings as characters, each padded with zeros to n.
func padStrings(flat reflect.Value, n int) (Chars, error) {
	o := make(Chars, flat.Len()*n)
	for i := 0; i < flat.Len(); i++ {
		s := flat.Index(i).String()
		if len(s) > n {
			return nil, fmt.Errorf("string %q is longer than %d characters", s, n)
		}
		copy(o[i*n:], s)
	}
	return o, nil
}

func attrString(m api.AttributeMap, key string) (string, bool) {
	if m == nil {
		return "", false
	}
	v, ok := m.Get(key)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// nativeAttributes converts attributes read by go-native-netcdf. Numeric
// scalars become one-element slices.
func nativeAttributes(m api.AttributeMap) (Attributes, error) {
	if m == nil {
		return nil, nil
	}
	var o Attributes
	for _, key := range m.Keys() {
		if hiddenAttrs[key] {
			continue
		}
		val, _ := m.Get(key)
		switch v := val.(type) {
		case string:
			o = append(o, Attribute{Name: key, Value: v})
			continue
		case []string:
			o = append(o, Attribute{Name: key, Value: strings.Join(v, "\n")})
			continue
		}
		flat, _, err := flatten(val)
		if err != nil {
			return nil, fmt.Errorf("attribute %s: %v", key, err)
		}
		data, err := classicData(flat)
		if err != nil {
			return nil, fmt.Errorf("attribute %s: %v", key, err)
		}
		o = append(o, Attribute{Name: key, Value: data})
	}
	return o, nil
}
