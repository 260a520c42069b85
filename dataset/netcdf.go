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
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/ctessum/cdf"
)

// Decode reads a complete NetCDF classic or NetCDF-4 file from rw, which
// holds size bytes. All variable data is loaded into memory. Record
// variables are given a dimension length equal to the number of records
// in the file.
func Decode(rw cdf.ReaderWriterAt, size int64) (*Dataset, error) {
	if isHDF5(rw, size) {
		return decodeNetCDF4(rw, size)
	}
	f, err := cdf.Open(rw)
	if err != nil {
		return nil, fmt.Errorf("dataset: reading netcdf header: %v", err)
	}
	h := f.Header
	if errs := h.Check(); len(errs) > 0 {
		return nil, fmt.Errorf("dataset: invalid netcdf header: %v", errs[0])
	}
	nrec, err := numRecs(rw, h, size)
	if err != nil {
		return nil, err
	}

	o := new(Dataset)
	names := h.Dimensions("")
	lengths := h.Lengths("")
	for i, name := range names {
		l := lengths[i]
		if l == 0 {
			l = nrec
		}
		o.Dims = append(o.Dims, Dim{Name: name, Len: l})
	}
	o.Attrs = readAttributes(h, "")

	for _, name := range h.Variables() {
		v := &Variable{
			Name:  name,
			Dims:  h.Dimensions(name),
			Attrs: readAttributes(h, name),
		}
		shape := o.shape(v)
		n := 1
		for _, s := range shape {
			n *= s
		}
		if n == 0 {
			v.Data = emptyData(h.ZeroValue(name, 0))
			o.Vars = append(o.Vars, v)
			continue
		}
		var end []int
		if h.IsRecordVariable(name) {
			end = make([]int, len(shape))
			for i, s := range shape {
				end[i] = s - 1
			}
		}
		r := f.Reader(name, nil, end)
		buf := r.Zero(n)
		if _, err := r.Read(buf); err != nil && err != io.EOF {
			return nil, fmt.Errorf("dataset: reading netcdf variable %s: %v", name, err)
		}
		if h.ZeroValue(name, 0) == "" { // CHAR variables read into []uint8.
			v.Data = Chars(buf.([]uint8))
		} else {
			v.Data = buf
		}
		o.Vars = append(o.Vars, v)
	}
	if err := o.Validate(); err != nil {
		return nil, err
	}
	return o, nil
}

// numRecs returns the number of records in the file, using the count
// stored in the header unless the file was written in streaming mode.
func numRecs(r io.ReaderAt, h *cdf.Header, size int64) (int, error) {
	var b [4]byte
	if _, err := r.ReadAt(b[:], numRecsOffset); err != nil {
		return 0, fmt.Errorf("dataset: reading netcdf record count: %v", err)
	}
	n := int32(binary.BigEndian.Uint32(b[:]))
	if n < 0 {
		return int(h.NumRecs(size)), nil
	}
	return int(n), nil
}

// numRecsOffset is the position of the record count in a NetCDF
// classic header.
const numRecsOffset = 4

// DecodeBytes reads a complete NetCDF classic or NetCDF-4 file held in b.
func DecodeBytes(b []byte) (*Dataset, error) {
	return Decode(NewBuffer(b), int64(len(b)))
}

func emptyData(zero interface{}) interface{} {
	if _, ok := zero.(string); ok {
		return Chars{}
	}
	return zero
}

func readAttributes(h *cdf.Header, v string) Attributes {
	names := h.Attributes(v)
	if len(names) == 0 {
		return nil
	}
	o := make(Attributes, len(names))
	for i, a := range names {
		o[i] = Attribute{Name: a, Value: cloneSlice(h.GetAttribute(v, a))}
	}
	return o
}

// Encode writes d to rw in NetCDF classic format. Time variables must be
// converted to numeric values before encoding, and every dimension must
// have a non-zero length. All dimensions are written as fixed-length
// dimensions.
func Encode(rw cdf.ReaderWriterAt, d *Dataset) error {
	if err := d.Validate(); err != nil {
		return err
	}
	names := make([]string, len(d.Dims))
	lengths := make([]int, len(d.Dims))
	for i, dim := range d.Dims {
		if dim.Len == 0 {
			return fmt.Errorf("dataset: writing netcdf: dimension %s has zero length", dim.Name)
		}
		names[i], lengths[i] = dim.Name, dim.Len
	}
	h := cdf.NewHeader(names, lengths)
	for _, a := range d.Attrs {
		h.AddAttribute("", a.Name, a.Value)
	}
	for _, v := range d.Vars {
		var zero interface{}
		switch v.Data.(type) {
		case Times:
			return fmt.Errorf("dataset: writing netcdf: time variable %s must be converted to numeric values", v.Name)
		case Chars:
			zero = ""
		default:
			zero = v.Data
		}
		h.AddVariable(v.Name, v.Dims, zero)
		for _, a := range v.Attrs {
			h.AddAttribute(v.Name, a.Name, a.Value)
		}
	}
	h.Define()

	f, err := cdf.Create(rw, h)
	if err != nil {
		return fmt.Errorf("dataset: writing netcdf header: %v", err)
	}
	if len(d.Vars) > 0 {
		// Pad the final variable to a 4-byte boundary.
		last := d.Vars[len(d.Vars)-1]
		if last.Len()*elemSize(last.Data)%4 != 0 {
			if err := f.Fill(last.Name); err != nil {
				return fmt.Errorf("dataset: writing netcdf variable %s: %v", last.Name, err)
			}
		}
	}
	for _, v := range d.Vars {
		data := v.Data
		if c, ok := data.(Chars); ok {
			data = []uint8(c)
		}
		w := f.Writer(v.Name, nil, nil)
		if _, err := w.Write(data); err != nil && err != io.EOF {
			return fmt.Errorf("dataset: writing netcdf variable %s: %v", v.Name, err)
		}
	}
	var b [4]byte // no record dimension
	if _, err := rw.WriteAt(b[:], numRecsOffset); err != nil {
		return fmt.Errorf("dataset: writing netcdf record count: %v", err)
	}
	return nil
}

func elemSize(data interface{}) int {
	switch data.(type) {
	case []float64:
		return 8
	case []float32, []int32:
		return 4
	case []int16:
		return 2
	}
	return 1
}

// EncodeFile replaces the contents of f with d in NetCDF classic format.
func EncodeFile(f *os.File, d *Dataset) error {
	if err := f.Truncate(0); err != nil {
		return fmt.Errorf("dataset: writing netcdf file: %v", err)
	}
	return Encode(f, d)
}

// Buffer is an in-memory cdf.ReaderWriterAt.
type Buffer struct {
	b []byte
}

// NewBuffer returns a Buffer holding b.
func NewBuffer(b []byte) *Buffer { return &Buffer{b: b} }

// ReadAt implements io.ReaderAt.
func (m *Buffer) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, fmt.Errorf("dataset: negative offset %d", off)
	}
	if off >= int64(len(m.b)) {
		return 0, io.EOF
	}
	n := copy(p, m.b[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// WriteAt implements io.WriterAt, growing the buffer as needed.
func (m *Buffer) WriteAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, fmt.Errorf("dataset: negative offset %d", off)
	}
	if end := off + int64(len(p)); end > int64(len(m.b)) {
		if end > int64(cap(m.b)) {
			nb := make([]byte, end, 2*end)
			copy(nb, m.b)
			m.b = nb
		} else {
			m.b = m.b[:end]
		}
	}
	return copy(m.b[off:], p), nil
}

// Bytes returns the contents of the buffer.
func (m *Buffer) Bytes() []byte { return m.b }

// Len returns the size of the buffer in bytes.
func (m *Buffer) Len() int64 { return int64(len(m.b)) }
