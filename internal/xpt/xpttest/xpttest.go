// Package xpttest builds SAS transport files in memory for tests.
//
// The builder produces minimal but structurally complete XPORT v5 files:
// library and member headers, NAMESTR entries, and packed observation rows
// with IBM-format numerics. Tests in the xpt and convert packages use it to
// exercise decoding without shipping binary fixtures.
package xpttest

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
)

const recordSize = 80

// Variable describes one column of a test dataset.
type Variable struct {
	// Name is the SAS variable name, at most 8 characters.
	Name string

	// Label is the variable label, at most 40 characters.
	Label string

	// Numeric selects a numeric (IBM double) field; otherwise character.
	Numeric bool

	// Length is the field width. Numeric fields use 8 when zero.
	Length int
}

// Dataset describes a single-member test transport file.
type Dataset struct {
	// Name is the dataset name, at most 8 characters.
	Name string

	// Label is the dataset label, at most 40 characters.
	Label string

	// Variables are the columns in order.
	Variables []Variable

	// Rows hold one value per variable: float64 for numeric fields,
	// string for character fields, or nil for a missing numeric.
	Rows [][]any
}

// Build serializes the dataset as a SAS transport file.
// It panics on malformed input; it is a test helper.
func Build(ds Dataset) []byte {
	var buf bytes.Buffer

	writeRecord(&buf, "HEADER RECORD*******LIBRARY HEADER RECORD!!!!!!!"+zeros(30)+"  ")
	writeRecord(&buf, pad("SAS     SAS     SASLIB  9.4     Linux", recordSize))
	writeRecord(&buf, pad("01JAN22:00:00:00", recordSize))

	writeRecord(&buf, "HEADER RECORD*******MEMBER  HEADER RECORD!!!!!!!"+zeros(17)+"1600000000140  ")
	writeRecord(&buf, "HEADER RECORD*******DSCRPTR HEADER RECORD!!!!!!!"+zeros(30)+"  ")
	writeRecord(&buf, "SAS     "+pad(ds.Name, 8)+"SASDATA "+"9.4     "+pad("Linux", 8)+pad("", 24)+"01JAN22:00:00:00")
	writeRecord(&buf, "01JAN22:00:00:00"+pad("", 16)+pad(ds.Label, 40)+pad("", 8))

	writeRecord(&buf, "HEADER RECORD*******NAMESTR HEADER RECORD!!!!!!!"+fmt.Sprintf("%010d", len(ds.Variables))+zeros(20)+"  ")

	// NAMESTR entries, packed and padded to a record boundary.
	var ns bytes.Buffer
	pos := 0
	for i, v := range ds.Variables {
		length := v.Length
		if length == 0 {
			if !v.Numeric {
				panic("xpttest: character variable needs a length")
			}
			length = 8
		}
		ns.Write(namestr(v, i+1, length, pos))
		pos += length
	}
	padToRecord(&ns, ' ')
	buf.Write(ns.Bytes())

	writeRecord(&buf, "HEADER RECORD*******OBS     HEADER RECORD!!!!!!!"+zeros(30)+"  ")

	// Observation rows, packed and padded to a record boundary.
	var obs bytes.Buffer
	for _, row := range ds.Rows {
		if len(row) != len(ds.Variables) {
			panic("xpttest: row width does not match variables")
		}
		for i, v := range ds.Variables {
			length := v.Length
			if length == 0 {
				length = 8
			}
			writeValue(&obs, v, length, row[i])
		}
	}
	padToRecord(&obs, ' ')
	buf.Write(obs.Bytes())

	return buf.Bytes()
}

// namestr builds one 140-byte NAMESTR entry.
func namestr(v Variable, num, length, pos int) []byte {
	ns := make([]byte, 140)

	vtype := uint16(2)
	if v.Numeric {
		vtype = 1
	}
	binary.BigEndian.PutUint16(ns[0:2], vtype)
	binary.BigEndian.PutUint16(ns[4:6], uint16(length))
	binary.BigEndian.PutUint16(ns[6:8], uint16(num))
	copy(ns[8:16], pad(v.Name, 8))
	copy(ns[16:56], pad(v.Label, 40))
	binary.BigEndian.PutUint32(ns[84:88], uint32(pos))

	return ns
}

// writeValue appends one packed field value.
func writeValue(w *bytes.Buffer, v Variable, length int, value any) {
	if v.Numeric {
		switch x := value.(type) {
		case nil:
			// SAS standard missing value.
			field := make([]byte, length)
			field[0] = '.'
			w.Write(field)
		case float64:
			b := ibmFromFloat(x)
			w.Write(b[:length])
		case int:
			b := ibmFromFloat(float64(x))
			w.Write(b[:length])
		default:
			panic(fmt.Sprintf("xpttest: numeric variable %s got %T", v.Name, value))
		}
		return
	}

	s, ok := value.(string)
	if !ok {
		panic(fmt.Sprintf("xpttest: character variable %s got %T", v.Name, value))
	}
	if len(s) > length {
		panic(fmt.Sprintf("xpttest: value %q exceeds length %d", s, length))
	}
	w.WriteString(pad(s, length))
}

// ibmFromFloat converts an IEEE 754 double to the IBM format used in
// transport files.
func ibmFromFloat(f float64) [8]byte {
	var out [8]byte
	if f == 0 {
		return out
	}

	var sign uint64
	if f < 0 {
		sign = 0x8000000000000000
		f = -f
	}

	// Normalize to fraction * 16^exp with fraction in [1/16, 1).
	m, exp2 := math.Frexp(f) // f = m * 2^exp2, m in [0.5, 1)
	exp16 := exp2 / 4
	shift := exp2 - exp16*4
	if shift > 0 {
		exp16++
		shift -= 4
	}
	frac := m * math.Ldexp(1, shift) // in [1/16, 1)

	mant := uint64(math.Round(frac * (1 << 56)))
	bits := sign | uint64(exp16+64)<<56 | mant
	binary.BigEndian.PutUint64(out[:], bits)
	return out
}

// writeRecord writes one 80-byte record, padding with spaces.
func writeRecord(w *bytes.Buffer, s string) {
	if len(s) > recordSize {
		panic(fmt.Sprintf("xpttest: record longer than %d bytes: %q", recordSize, s))
	}
	w.WriteString(pad(s, recordSize))
}

// padToRecord pads the buffer to an 80-byte boundary with the given byte.
func padToRecord(w *bytes.Buffer, c byte) {
	for w.Len()%recordSize != 0 {
		w.WriteByte(c)
	}
}

func pad(s string, n int) string {
	for len(s) < n {
		s += " "
	}
	return s
}

func zeros(n int) string {
	return fmt.Sprintf("%0*d", n, 0)
}
