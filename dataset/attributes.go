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

import "fmt"

// Attribute is a named metadata value. Value must be one of
// string, []uint8, []int16, []int32, []float32 or []float64,
// the types that can be stored in a NetCDF classic file.
type Attribute struct {
	Name  string
	Value interface{}
}

// Attributes is an ordered set of attributes.
type Attributes []Attribute

// Get returns the value of the named attribute and whether it exists.
func (a Attributes) Get(name string) (interface{}, bool) {
	for _, at := range a {
		if at.Name == name {
			return at.Value, true
		}
	}
	return nil, false
}

// Has returns whether the named attribute exists.
func (a Attributes) Has(name string) bool {
	_, ok := a.Get(name)
	return ok
}

// String returns the named attribute if it exists and holds a string.
func (a Attributes) String(name string) (string, bool) {
	v, ok := a.Get(name)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Names returns the attribute names in order.
func (a Attributes) Names() []string {
	o := make([]string, len(a))
	for i, at := range a {
		o[i] = at.Name
	}
	return o
}

// Set sets the named attribute, replacing the value of an existing
// attribute in place or appending a new one.
func (a *Attributes) Set(name string, value interface{}) {
	for i, at := range *a {
		if at.Name == name {
			(*a)[i].Value = value
			return
		}
	}
	*a = append(*a, Attribute{Name: name, Value: value})
}

// Delete removes the named attributes. Names that don't exist are ignored.
func (a *Attributes) Delete(names ...string) {
	del := make(map[string]struct{}, len(names))
	for _, n := range names {
		del[n] = struct{}{}
	}
	o := make(Attributes, 0, len(*a))
	for _, at := range *a {
		if _, ok := del[at.Name]; !ok {
			o = append(o, at)
		}
	}
	*a = o
}

// Clone returns a deep copy of a.
func (a Attributes) Clone() Attributes {
	if a == nil {
		return nil
	}
	o := make(Attributes, len(a))
	for i, at := range a {
		o[i] = Attribute{Name: at.Name, Value: cloneSlice(at.Value)}
	}
	return o
}

func (a Attributes) validate() error {
	seen := make(map[string]struct{}, len(a))
	for _, at := range a {
		if _, ok := seen[at.Name]; ok {
			return fmt.Errorf("repeated attribute %s", at.Name)
		}
		seen[at.Name] = struct{}{}
		switch at.Value.(type) {
		case string, []uint8, []int16, []int32, []float32, []float64:
		default:
			return fmt.Errorf("attribute %s has unsupported type %T", at.Name, at.Value)
		}
	}
	return nil
}
