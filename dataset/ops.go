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
	"reflect"
	"sort"
)

// SchemaError is returned when datasets that are expected to share
// the same set of variables do not.
type SchemaError struct {
	// Index is the position of the offending dataset.
	Index int

	// Var is the name of the offending variable.
	Var string

	Reason string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("dataset: schema mismatch in dataset %d, variable %s: %s", e.Index, e.Var, e.Reason)
}

// SwapDims renames dimension oldDim to newDim everywhere it is used.
// There must be a one-dimensional variable named newDim along oldDim,
// which becomes the coordinate variable of the new dimension.
func (d *Dataset) SwapDims(oldDim, newDim string) (*Dataset, error) {
	if !d.HasDim(oldDim) {
		return nil, fmt.Errorf("dataset: swapping dimensions: no dimension %s", oldDim)
	}
	if d.HasDim(newDim) {
		return nil, fmt.Errorf("dataset: swapping dimensions: dimension %s already exists", newDim)
	}
	v := d.Var(newDim)
	if v == nil || len(v.Dims) != 1 || v.Dims[0] != oldDim {
		return nil, fmt.Errorf("dataset: swapping dimensions: %s is not a 1-dimensional variable along %s",
			newDim, oldDim)
	}
	o := d.Clone()
	for i, dim := range o.Dims {
		if dim.Name == oldDim {
			o.Dims[i].Name = newDim
		}
	}
	for _, v := range o.Vars {
		for i, dim := range v.Dims {
			if dim == oldDim {
				v.Dims[i] = newDim
			}
		}
	}
	return o, nil
}

// Drop returns a copy of d without the named variables.
// Names of variables that don't exist are ignored.
func (d *Dataset) Drop(names ...string) *Dataset {
	del := make(map[string]struct{}, len(names))
	for _, n := range names {
		del[n] = struct{}{}
	}
	o := &Dataset{
		Dims:  append([]Dim(nil), d.Dims...),
		Attrs: d.Attrs.Clone(),
	}
	for _, v := range d.Vars {
		if _, ok := del[v.Name]; !ok {
			o.Vars = append(o.Vars, v.clone())
		}
	}
	return o
}

// WithVar returns a copy of d with v added, or replacing the variable
// of the same name.
func (d *Dataset) WithVar(v *Variable) (*Dataset, error) {
	o := d.Clone()
	v = v.clone()
	replaced := false
	for i, vv := range o.Vars {
		if vv.Name == v.Name {
			o.Vars[i] = v
			replaced = true
		}
	}
	if !replaced {
		o.Vars = append(o.Vars, v)
	}
	if err := o.Validate(); err != nil {
		return nil, err
	}
	return o, nil
}

// Take returns a copy of d where each variable along dim holds only the
// elements at the given indices along that dimension, in the given order.
func (d *Dataset) Take(dim string, idx []int) (*Dataset, error) {
	n, ok := d.DimLen(dim)
	if !ok {
		return nil, fmt.Errorf("dataset: take: no dimension %s", dim)
	}
	for _, i := range idx {
		if i < 0 || i >= n {
			return nil, fmt.Errorf("dataset: take: index %d out of range along %s (length %d)", i, dim, n)
		}
	}
	o := &Dataset{
		Dims:  append([]Dim(nil), d.Dims...),
		Vars:  make([]*Variable, len(d.Vars)),
		Attrs: d.Attrs.Clone(),
	}
	for i := range o.Dims {
		if o.Dims[i].Name == dim {
			o.Dims[i].Len = len(idx)
		}
	}
	for i, v := range d.Vars {
		axis := v.axis(dim)
		if axis < 0 {
			o.Vars[i] = v.clone()
			continue
		}
		o.Vars[i] = &Variable{
			Name:  v.Name,
			Dims:  append([]string(nil), v.Dims...),
			Data:  takeAxis(v.Data, d.shape(v), axis, idx),
			Attrs: v.Attrs.Clone(),
		}
	}
	return o, nil
}

// SortBy returns a copy of d sorted in ascending order by the values
// of the named one-dimensional variable. The sort is stable.
func (d *Dataset) SortBy(name string) (*Dataset, error) {
	v := d.Var(name)
	if v == nil {
		return nil, fmt.Errorf("dataset: sort: no variable %s", name)
	}
	if len(v.Dims) != 1 {
		return nil, fmt.Errorf("dataset: sort: variable %s has %d dimensions; it must have 1", name, len(v.Dims))
	}
	idx, err := argsort(v.Data)
	if err != nil {
		return nil, fmt.Errorf("dataset: sort by %s: %v", name, err)
	}
	return d.Take(v.Dims[0], idx)
}

// IsSorted returns whether the values of the named one-dimensional
// variable are in non-decreasing order.
func (d *Dataset) IsSorted(name string) bool {
	v := d.Var(name)
	if v == nil {
		return false
	}
	if t, ok := v.Data.(Times); ok {
		return sort.SliceIsSorted(t, func(i, j int) bool { return t[i] < t[j] })
	}
	vals, err := v.Float64s()
	if err != nil {
		return false
	}
	return sort.Float64sAreSorted(vals)
}

// ExpandDims returns a copy of d with a new outermost dimension of length
// one added to the dataset and to every variable that is not a
// coordinate variable.
func (d *Dataset) ExpandDims(dim string) (*Dataset, error) {
	if d.HasDim(dim) {
		return nil, fmt.Errorf("dataset: expanding dimensions: dimension %s already exists", dim)
	}
	o := d.Clone()
	o.Dims = append([]Dim{{Name: dim, Len: 1}}, o.Dims...)
	for _, v := range o.Vars {
		if d.IsCoord(v.Name) || v.Name == dim {
			continue
		}
		v.Dims = append([]string{dim}, v.Dims...)
	}
	return o, nil
}

// Combine returns the union of the dimensions and variables of d and
// other. Dimensions with the same name must have the same length, and
// variables with the same name must hold the same values. Global
// attributes and the attributes of shared variables are taken from d.
func (d *Dataset) Combine(other *Dataset) (*Dataset, error) {
	o := d.Clone()
	for _, dim := range other.Dims {
		l, ok := o.DimLen(dim.Name)
		if ok && l != dim.Len {
			return nil, fmt.Errorf("dataset: combining: dimension %s has length %d and %d", dim.Name, l, dim.Len)
		}
		if !ok {
			o.Dims = append(o.Dims, dim)
		}
	}
	for _, v := range other.Vars {
		if ov := o.Var(v.Name); ov != nil {
			if !reflect.DeepEqual(ov.Dims, v.Dims) || !reflect.DeepEqual(ov.Data, v.Data) {
				return nil, fmt.Errorf("dataset: combining: conflicting values for variable %s", v.Name)
			}
			continue
		}
		o.Vars = append(o.Vars, v.clone())
	}
	if err := o.Validate(); err != nil {
		return nil, err
	}
	return o, nil
}

// Concat joins datasets along the named dimension. All datasets must
// have the same variables, with the same dimensions and data types.
// Variables that are not dimensioned by dim, and the global attributes,
// are taken from the first dataset.
func Concat(dim string, ds ...*Dataset) (*Dataset, error) {
	if len(ds) == 0 {
		return nil, fmt.Errorf("dataset: concatenating along %s: no datasets", dim)
	}
	first := ds[0]
	for i, d := range ds {
		if !d.HasDim(dim) {
			return nil, &SchemaError{Index: i, Var: dim, Reason: "missing concatenation dimension"}
		}
		if err := sameSchema(first, d, dim); err != nil {
			err.Index = i
			return nil, err
		}
	}
	total := 0
	for _, d := range ds {
		n, _ := d.DimLen(dim)
		total += n
	}
	o := &Dataset{
		Dims:  append([]Dim(nil), first.Dims...),
		Vars:  make([]*Variable, len(first.Vars)),
		Attrs: first.Attrs.Clone(),
	}
	for i := range o.Dims {
		if o.Dims[i].Name == dim {
			o.Dims[i].Len = total
		}
	}
	for i, v := range first.Vars {
		axis := v.axis(dim)
		if axis < 0 {
			o.Vars[i] = v.clone()
			continue
		}
		parts := make([]interface{}, len(ds))
		shapes := make([][]int, len(ds))
		for j, d := range ds {
			dv := d.Var(v.Name)
			parts[j] = dv.Data
			shapes[j] = d.shape(dv)
		}
		o.Vars[i] = &Variable{
			Name:  v.Name,
			Dims:  append([]string(nil), v.Dims...),
			Data:  concatAxis(parts, shapes, axis),
			Attrs: v.Attrs.Clone(),
		}
	}
	if err := o.Validate(); err != nil {
		return nil, err
	}
	return o, nil
}

// sameSchema checks that b has the same variables as a, with the same
// dimensions and data types. Dimension lengths must match except along
// the concatenation dimension dim.
func sameSchema(a, b *Dataset, dim string) *SchemaError {
	if len(a.Vars) != len(b.Vars) {
		for _, v := range a.Vars {
			if b.Var(v.Name) == nil {
				return &SchemaError{Var: v.Name, Reason: "variable missing"}
			}
		}
		for _, v := range b.Vars {
			if a.Var(v.Name) == nil {
				return &SchemaError{Var: v.Name, Reason: "unexpected variable"}
			}
		}
	}
	for _, v := range a.Vars {
		bv := b.Var(v.Name)
		if bv == nil {
			return &SchemaError{Var: v.Name, Reason: "variable missing"}
		}
		if !reflect.DeepEqual(v.Dims, bv.Dims) {
			return &SchemaError{Var: v.Name, Reason: fmt.Sprintf("dimensions %v != %v", bv.Dims, v.Dims)}
		}
		if reflect.TypeOf(v.Data) != reflect.TypeOf(bv.Data) {
			return &SchemaError{Var: v.Name, Reason: fmt.Sprintf("type %s != %s", bv.Type(), v.Type())}
		}
		as, bs := a.shape(v), b.shape(bv)
		for i, name := range v.Dims {
			if name != dim && as[i] != bs[i] {
				return &SchemaError{Var: v.Name, Reason: fmt.Sprintf("dimension %s has length %d != %d", name, bs[i], as[i])}
			}
		}
	}
	return nil
}

// takeAxis selects the elements at idx along the given axis of row-major
// data with the given shape.
func takeAxis(data interface{}, shape []int, axis int, idx []int) interface{} {
	src := reflect.ValueOf(data)
	outer, inner := 1, 1
	for _, s := range shape[:axis] {
		outer *= s
	}
	for _, s := range shape[axis+1:] {
		inner *= s
	}
	n, m := shape[axis], len(idx)
	dst := reflect.MakeSlice(src.Type(), outer*m*inner, outer*m*inner)
	for o := 0; o < outer; o++ {
		for j, i := range idx {
			s := (o*n + i) * inner
			t := (o*m + j) * inner
			reflect.Copy(dst.Slice(t, t+inner), src.Slice(s, s+inner))
		}
	}
	return dst.Interface()
}

// concatAxis joins row-major arrays along the given axis. All arrays
// must have the same shape except along axis.
func concatAxis(parts []interface{}, shapes [][]int, axis int) interface{} {
	outer, inner := 1, 1
	for _, s := range shapes[0][:axis] {
		outer *= s
	}
	for _, s := range shapes[0][axis+1:] {
		inner *= s
	}
	total := 0
	for _, s := range shapes {
		total += s[axis]
	}
	dst := reflect.MakeSlice(reflect.TypeOf(parts[0]), outer*total*inner, outer*total*inner)
	t := 0
	for o := 0; o < outer; o++ {
		for k, p := range parts {
			src := reflect.ValueOf(p)
			n := shapes[k][axis] * inner
			s := o * n
			reflect.Copy(dst.Slice(t, t+n), src.Slice(s, s+n))
			t += n
		}
	}
	return dst.Interface()
}

// argsort returns the indices that would stably sort data.
func argsort(data interface{}) ([]int, error) {
	var n int
	var less func(i, j int) bool
	switch x := data.(type) {
	case Times:
		n, less = len(x), func(i, j int) bool { return x[i] < x[j] }
	case []float64:
		n, less = len(x), func(i, j int) bool { return x[i] < x[j] }
	case []float32:
		n, less = len(x), func(i, j int) bool { return x[i] < x[j] }
	case []int32:
		n, less = len(x), func(i, j int) bool { return x[i] < x[j] }
	case []int16:
		n, less = len(x), func(i, j int) bool { return x[i] < x[j] }
	case []uint8:
		n, less = len(x), func(i, j int) bool { return x[i] < x[j] }
	default:
		return nil, fmt.Errorf("cannot sort values of type %T", data)
	}
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return less(idx[a], idx[b]) })
	return idx, nil
}
