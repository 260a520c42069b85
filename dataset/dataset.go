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

// Package dataset holds an in-memory representation of a NetCDF-style
// dataset: named dimensions, variables stored as flat row-major slices,
// and variable and global attributes. It reads NetCDF classic and
// NetCDF-4 files and writes the NetCDF classic format.
//
// Operations on a Dataset never modify the receiver; they return a new
// Dataset that shares no memory with the original.
package dataset

import (
	"fmt"
	"reflect"
	"strings"
)

// Dim is a named dimension of a Dataset.
type Dim struct {
	Name string
	Len  int
}

// Chars holds the values of a NetCDF CHAR variable.
type Chars []byte

// Times holds decoded time values as nanoseconds since
// 1970-01-01 00:00:00 UTC.
type Times []int64

// Variable is a named, dimensioned array of values. Data holds the values
// in row-major order and must be one of []float64, []float32, []int32,
// []int16, []uint8, Chars or Times.
type Variable struct {
	Name  string
	Dims  []string
	Data  interface{}
	Attrs Attributes
}

// Len returns the number of values held by v.
func (v *Variable) Len() int {
	return reflect.ValueOf(v.Data).Len()
}

// Type returns a short description of the data type of v.
func (v *Variable) Type() string {
	switch v.Data.(type) {
	case []float64:
		return "double"
	case []float32:
		return "float"
	case []int32:
		return "int"
	case []int16:
		return "short"
	case []uint8:
		return "byte"
	case Chars:
		return "char"
	case Times:
		return "time"
	}
	return fmt.Sprintf("%T", v.Data)
}

// HasDim returns whether v is dimensioned by dim.
func (v *Variable) HasDim(dim string) bool {
	return v.axis(dim) >= 0
}

func (v *Variable) axis(dim string) int {
	for i, d := range v.Dims {
		if d == dim {
			return i
		}
	}
	return -1
}

func (v *Variable) clone() *Variable {
	o := &Variable{
		Name:  v.Name,
		Dims:  append([]string(nil), v.Dims...),
		Data:  cloneSlice(v.Data),
		Attrs: v.Attrs.Clone(),
	}
	return o
}

// Dataset is a collection of dimensions, variables and global attributes.
// A variable whose name matches the name of a dimension is a coordinate
// variable.
type Dataset struct {
	Dims  []Dim
	Vars  []*Variable
	Attrs Attributes
}

// New creates a new Dataset and checks it for consistency.
func New(dims []Dim, attrs Attributes, vars ...*Variable) (*Dataset, error) {
	d := &Dataset{
		Dims:  append([]Dim(nil), dims...),
		Vars:  vars,
		Attrs: attrs,
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return d.Clone(), nil
}

// Validate checks that every variable refers only to existing dimensions,
// that the amount of data in each variable matches its dimensions, and
// that variable data and attribute values are of supported types.
func (d *Dataset) Validate() error {
	dims := make(map[string]int)
	for _, dim := range d.Dims {
		if _, ok := dims[dim.Name]; ok {
			return fmt.Errorf("dataset: repeated dimension %s", dim.Name)
		}
		if dim.Len < 0 {
			return fmt.Errorf("dataset: dimension %s has negative length", dim.Name)
		}
		dims[dim.Name] = dim.Len
	}
	names := make(map[string]struct{})
	for _, v := range d.Vars {
		if _, ok := names[v.Name]; ok {
			return fmt.Errorf("dataset: repeated variable %s", v.Name)
		}
		names[v.Name] = struct{}{}
		if !validData(v.Data) {
			return fmt.Errorf("dataset: variable %s has unsupported data type %T", v.Name, v.Data)
		}
		n := 1
		for _, dim := range v.Dims {
			l, ok := dims[dim]
			if !ok {
				return fmt.Errorf("dataset: variable %s refers to missing dimension %s", v.Name, dim)
			}
			n *= l
		}
		if l := v.Len(); l != n {
			return fmt.Errorf("dataset: variable %s has %d values but its dimensions %v hold %d",
				v.Name, l, v.Dims, n)
		}
		if err := v.Attrs.validate(); err != nil {
			return fmt.Errorf("dataset: variable %s: %v", v.Name, err)
		}
	}
	if err := d.Attrs.validate(); err != nil {
		return fmt.Errorf("dataset: global attributes: %v", err)
	}
	return nil
}

// Clone returns a deep copy of d.
func (d *Dataset) Clone() *Dataset {
	o := &Dataset{
		Dims:  append([]Dim(nil), d.Dims...),
		Vars:  make([]*Variable, len(d.Vars)),
		Attrs: d.Attrs.Clone(),
	}
	for i, v := range d.Vars {
		o.Vars[i] = v.clone()
	}
	return o
}

// Var returns the variable with the given name, or nil if
// there is no such variable.
func (d *Dataset) Var(name string) *Variable {
	for _, v := range d.Vars {
		if v.Name == name {
			return v
		}
	}
	return nil
}

// VarNames returns the names of the variables in d, in order.
func (d *Dataset) VarNames() []string {
	o := make([]string, len(d.Vars))
	for i, v := range d.Vars {
		o[i] = v.Name
	}
	return o
}

// DimLen returns the length of the named dimension and whether it exists.
func (d *Dataset) DimLen(name string) (int, bool) {
	for _, dim := range d.Dims {
		if dim.Name == name {
			return dim.Len, true
		}
	}
	return 0, false
}

// HasDim returns whether d has a dimension with the given name.
func (d *Dataset) HasDim(name string) bool {
	_, ok := d.DimLen(name)
	return ok
}

// IsCoord returns whether the named variable is a coordinate variable.
func (d *Dataset) IsCoord(name string) bool {
	return d.HasDim(name)
}

func (d *Dataset) shape(v *Variable) []int {
	s := make([]int, len(v.Dims))
	for i, dim := range v.Dims {
		s[i], _ = d.DimLen(dim)
	}
	return s
}

// String returns a summary of d in a format similar to ncdump -h.
func (d *Dataset) String() string {
	var b strings.Builder
	b.WriteString("dimensions:\n")
	for _, dim := range d.Dims {
		fmt.Fprintf(&b, "\t%s = %d ;\n", dim.Name, dim.Len)
	}
	b.WriteString("variables:\n")
	for _, v := range d.Vars {
		fmt.Fprintf(&b, "\t%s %s(%s) ;\n", v.Type(), v.Name, strings.Join(v.Dims, ", "))
		for _, a := range v.Attrs {
			fmt.Fprintf(&b, "\t\t%s:%s = %v ;\n", v.Name, a.Name, a.Value)
		}
	}
	b.WriteString("// global attributes:\n")
	for _, a := range d.Attrs {
		fmt.Fprintf(&b, "\t\t:%s = %v ;\n", a.Name, a.Value)
	}
	return b.String()
}

func validData(data interface{}) bool {
	switch data.(type) {
	case []float64, []float32, []int32, []int16, []uint8, Chars, Times:
		return true
	}
	return false
}

// cloneSlice returns a copy of a slice of any type, preserving
// named slice types.
func cloneSlice(s interface{}) interface{} {
	if s == nil {
		return nil
	}
	v := reflect.ValueOf(s)
	if v.Kind() != reflect.Slice {
		return s
	}
	o := reflect.MakeSlice(v.Type(), v.Len(), v.Len())
	reflect.Copy(o, v)
	return o.Interface()
}

// Float64s returns the values of v converted to float64. CHAR variables
// cannot be converted.
func (v *Variable) Float64s() ([]float64, error) {
	switch data := v.Data.(type) {
	case []float64:
		return append([]float64(nil), data...), nil
	case []float32:
		o := make([]float64, len(data))
		for i, x := range data {
			o[i] = float64(x)
		}
		return o, nil
	case []int32:
		o := make([]float64, len(data))
		for i, x := range data {
			o[i] = float64(x)
		}
		return o, nil
	case []int16:
		o := make([]float64, len(data))
		for i, x := range data {
			o[i] = float64(x)
		}
		return o, nil
	case []uint8:
		o := make([]float64, len(data))
		for i, x := range data {
			o[i] = float64(x)
		}
		return o, nil
	case Times:
		o := make([]float64, len(data))
		for i, x := range data {
			o[i] = float64(x)
		}
		return o, nil
	}
	return nil, fmt.Errorf("dataset: variable %s of type %s is not numeric", v.Name, v.Type())
}
