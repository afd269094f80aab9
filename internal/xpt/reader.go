package xpt

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

// recordSize is the fixed size of every transport file record.
const recordSize = 80

// Header record prefixes. Each header structure in a transport file starts
// with one of these 48-byte markers.
const (
	libraryHeader = "HEADER RECORD*******LIBRARY HEADER RECORD!!!!!!!"
	memberHeader  = "HEADER RECORD*******MEMBER  HEADER RECORD!!!!!!!"
	dscrptrHeader = "HEADER RECORD*******DSCRPTR HEADER RECORD!!!!!!!"
	namestrHeader = "HEADER RECORD*******NAMESTR HEADER RECORD!!!!!!!"
	obsHeader     = "HEADER RECORD*******OBS     HEADER RECORD!!!!!!!"
)

// VarType is the storage type of a transport variable.
type VarType int

// Transport variable types. The on-disk NAMESTR encoding uses 1 for
// numeric and 2 for character.
const (
	Numeric   VarType = 1
	Character VarType = 2
)

// Variable describes one column of a transport dataset.
type Variable struct {
	// Name is the SAS variable name (at most 8 characters in XPORT v5).
	Name string

	// Label is the descriptive variable label, possibly empty.
	Label string

	// Type is Numeric or Character.
	Type VarType

	// Length is the field width in the observation record, in bytes.
	Length int

	// Position is the zero-based byte offset of the field in the
	// observation record.
	Position int
}

// Dataset describes the single member of a transport file.
type Dataset struct {
	// Name is the SAS dataset name (e.g. "DEMO_J").
	Name string

	// Label is the dataset label, possibly empty.
	Label string

	// Variables are the dataset's columns in declaration order.
	Variables []Variable
}

// Columns returns the variable names in declaration order.
func (d *Dataset) Columns() []string {
	cols := make([]string, len(d.Variables))
	for i, v := range d.Variables {
		cols[i] = v.Name
	}
	return cols
}

// Reader decodes a SAS transport file.
// NewReader parses the header structures eagerly so that Dataset is
// available before any row is read; Read then streams observation rows.
type Reader struct {
	src     io.Reader
	dataset *Dataset
	rowLen  int
	decoder *encoding.Decoder
}

// NewReader parses the transport headers from r and returns a Reader
// positioned at the first observation row.
func NewReader(r io.Reader) (*Reader, error) {
	xr := &Reader{
		src:     r,
		decoder: charmap.Windows1252.NewDecoder(),
	}
	if err := xr.parseHeaders(); err != nil {
		return nil, err
	}
	return xr, nil
}

// Dataset returns the decoded member description.
func (r *Reader) Dataset() *Dataset {
	return r.dataset
}

// parseHeaders consumes the library, member, NAMESTR and OBS header
// structures, leaving the reader at the first observation byte.
func (r *Reader) parseHeaders() error {
	rec, err := r.readRecord()
	if err != nil {
		return ErrNotTransport
	}
	if !bytes.HasPrefix(rec, []byte(libraryHeader)) {
		return ErrNotTransport
	}

	// Two real header records follow the library header: SAS version/OS
	// information and the modification timestamp. Neither affects decoding.
	for i := 0; i < 2; i++ {
		if _, err := r.readRecord(); err != nil {
			return ErrTruncated
		}
	}

	// Member header carries the NAMESTR entry size (140, or 136 for files
	// written on VAX/VMS).
	rec, err = r.readRecord()
	if err != nil {
		return ErrTruncated
	}
	if !bytes.HasPrefix(rec, []byte(memberHeader)) {
		return fmt.Errorf("%w: expected member header", ErrBadHeader)
	}
	nsSize, err := parseRecordInt(rec[74:78])
	if err != nil || nsSize < 88 {
		return fmt.Errorf("%w: bad NAMESTR size", ErrBadHeader)
	}

	rec, err = r.readRecord()
	if err != nil {
		return ErrTruncated
	}
	if !bytes.HasPrefix(rec, []byte(dscrptrHeader)) {
		return fmt.Errorf("%w: expected descriptor header", ErrBadHeader)
	}

	// First member description record: "SAS" + dataset name + "SASDATA"
	// + version + OS + created date.
	rec, err = r.readRecord()
	if err != nil {
		return ErrTruncated
	}
	ds := &Dataset{Name: r.decodeText(rec[8:16])}

	// Second member description record: modified date + dataset label + type.
	rec, err = r.readRecord()
	if err != nil {
		return ErrTruncated
	}
	ds.Label = r.decodeText(rec[32:72])

	// NAMESTR header carries the variable count.
	rec, err = r.readRecord()
	if err != nil {
		return ErrTruncated
	}
	if !bytes.HasPrefix(rec, []byte(namestrHeader)) {
		return fmt.Errorf("%w: expected NAMESTR header", ErrBadHeader)
	}
	varCount, err := parseRecordInt(rec[48:58])
	if err != nil {
		return fmt.Errorf("%w: bad variable count", ErrBadHeader)
	}
	if varCount <= 0 {
		return ErrNoVariables
	}

	// NAMESTR entries are packed together and padded to a record boundary.
	nsBytes := varCount * nsSize
	if rem := nsBytes % recordSize; rem != 0 {
		nsBytes += recordSize - rem
	}
	buf := make([]byte, nsBytes)
	if _, err := io.ReadFull(r.src, buf); err != nil {
		return ErrTruncated
	}

	ds.Variables = make([]Variable, varCount)
	for i := 0; i < varCount; i++ {
		ns := buf[i*nsSize : i*nsSize+nsSize]
		v := Variable{
			Name:     r.decodeText(ns[8:16]),
			Label:    r.decodeText(ns[16:56]),
			Type:     VarType(binary.BigEndian.Uint16(ns[0:2])),
			Length:   int(binary.BigEndian.Uint16(ns[4:6])),
			Position: int(binary.BigEndian.Uint32(ns[84:88])),
		}
		if v.Type != Numeric && v.Type != Character {
			return fmt.Errorf("%w: variable %q has unknown type %d", ErrBadHeader, v.Name, v.Type)
		}
		if v.Length <= 0 {
			return fmt.Errorf("%w: variable %q has invalid length %d", ErrBadHeader, v.Name, v.Length)
		}
		ds.Variables[i] = v
		if end := v.Position + v.Length; end > r.rowLen {
			r.rowLen = end
		}
	}

	rec, err = r.readRecord()
	if err != nil {
		return ErrTruncated
	}
	if !bytes.HasPrefix(rec, []byte(obsHeader)) {
		return fmt.Errorf("%w: expected observation header", ErrBadHeader)
	}

	r.dataset = ds
	return nil
}

// Read returns the next observation row with one string per variable.
// Numeric values are formatted with the shortest representation that
// round-trips; missing numerics are empty strings. Character values are
// right-trimmed and decoded from Windows-1252.
//
// Read returns io.EOF when the observations are exhausted. The trailing
// blank padding that rounds the file out to a record boundary is not
// returned as a row.
func (r *Reader) Read() ([]string, error) {
	buf := make([]byte, r.rowLen)
	n, err := io.ReadFull(r.src, buf)
	switch {
	case err == io.EOF:
		return nil, io.EOF
	case err == io.ErrUnexpectedEOF:
		// A short tail of blanks is record padding; anything else means
		// the file was cut off mid-row.
		if allBlank(buf[:n]) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("observation row cut short after %d bytes: %w", n, err)
	case err != nil:
		return nil, err
	}

	if allBlank(buf) {
		// A fully blank row is almost always the trailing padding, but a
		// row whose character fields are all empty looks identical. It is
		// padding only when nothing but blanks remains.
		rest, err := io.ReadAll(r.src)
		if err != nil {
			return nil, err
		}
		if allBlank(rest) {
			return nil, io.EOF
		}
		r.src = io.MultiReader(bytes.NewReader(rest), r.src)
	}

	return r.decodeRow(buf)
}

// ReadAll returns all remaining observation rows.
func (r *Reader) ReadAll() ([][]string, error) {
	var rows [][]string
	for {
		row, err := r.Read()
		if err == io.EOF {
			return rows, nil
		}
		if err != nil {
			return rows, err
		}
		rows = append(rows, row)
	}
}

// decodeRow converts one packed observation record into field strings.
func (r *Reader) decodeRow(buf []byte) ([]string, error) {
	row := make([]string, len(r.dataset.Variables))
	for i, v := range r.dataset.Variables {
		field := buf[v.Position : v.Position+v.Length]
		if v.Type == Numeric {
			if isMissing(field) {
				continue
			}
			row[i] = strconv.FormatFloat(ibmToFloat(field), 'g', -1, 64)
			continue
		}
		row[i] = r.decodeText(field)
	}
	return row, nil
}

// decodeText trims a fixed-width field and decodes it from Windows-1252.
func (r *Reader) decodeText(b []byte) string {
	s := strings.TrimRight(string(b), " \x00")
	decoded, err := r.decoder.String(s)
	if err != nil {
		// Undecodable bytes keep their raw form rather than failing the row.
		return s
	}
	return decoded
}

// readRecord reads one fixed-size record.
func (r *Reader) readRecord() ([]byte, error) {
	rec := make([]byte, recordSize)
	if _, err := io.ReadFull(r.src, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// parseRecordInt parses a zero-padded integer field from a header record.
func parseRecordInt(b []byte) (int, error) {
	s := strings.TrimSpace(string(b))
	if s == "" {
		return 0, strconv.ErrSyntax
	}
	return strconv.Atoi(s)
}

// allBlank reports whether every byte is an ASCII space.
func allBlank(b []byte) bool {
	for _, c := range b {
		if c != ' ' {
			return false
		}
	}
	return true
}
