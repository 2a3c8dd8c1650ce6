package ingest

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"io"
	"strings"
)

const bom = "\ufeff"

// Metadata is the ordered key/value block from a file header. Keys keep the
// position of their first appearance; a repeated key overwrites the value.
type Metadata struct {
	keys   []string
	values map[string]string
}

// NewMetadata returns an empty Metadata.
func NewMetadata() *Metadata {
	return &Metadata{values: make(map[string]string)}
}

// Set stores value under key.
func (m *Metadata) Set(key, value string) {
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = value
}

// Get returns the value stored under key.
func (m *Metadata) Get(key string) (string, bool) {
	v, ok := m.values[key]
	return v, ok
}

// First returns the first non-empty value among keys, tried in order.
func (m *Metadata) First(keys ...string) string {
	for _, k := range keys {
		if v, _ := m.Get(k); v != "" {
			return v
		}
	}
	return ""
}

// Clone returns an independent copy.
func (m *Metadata) Clone() *Metadata {
	c := NewMetadata()
	for _, k := range m.keys {
		c.Set(k, m.values[k])
	}
	return c
}

// MarshalJSON encodes the metadata as a JSON object in header order.
func (m *Metadata) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range m.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(m.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// lineReader yields physical lines with the byte-order mark and line
// terminators removed. Line numbers start at 1.
type lineReader struct {
	r    *bufio.Reader
	line int
}

func newLineReader(r io.Reader) *lineReader {
	return &lineReader{r: bufio.NewReader(r)}
}

func (lr *lineReader) next() (string, error) {
	s, err := lr.r.ReadString('\n')
	if err == io.EOF && s == "" {
		return "", io.EOF
	}
	if err != nil && err != io.EOF {
		return "", err
	}
	lr.line++
	if lr.line == 1 {
		s = strings.TrimPrefix(s, bom)
	}
	return strings.TrimRight(s, "\r\n"), nil
}

// splitFields splits one line on commas, honouring double quotes.
func splitFields(line string) []string {
	if line == "" {
		return nil
	}
	cr := csv.NewReader(strings.NewReader(line))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	fields, err := cr.Read()
	if err != nil {
		return strings.Split(line, ",")
	}
	return fields
}

func isBoundary(fields []string) bool {
	if len(fields) == 0 {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(fields[0])) {
	case "date/time", "date time":
		return true
	}
	return false
}

// ParseHeader reads the metadata block from r and returns it with the 1-based
// line number of the data-section boundary ("Date/Time" or "Date Time").
// A missing boundary is a *FormatError.
func ParseHeader(r io.Reader) (*Metadata, int, error) {
	md := NewMetadata()
	lr := newLineReader(r)
	for {
		line, err := lr.next()
		if errors.Is(err, io.EOF) {
			return nil, 0, &FormatError{Reason: "no data section header (Date/Time) found"}
		}
		if err != nil {
			return nil, 0, err
		}

		fields := splitFields(line)
		if len(fields) == 0 {
			continue
		}
		if isBoundary(fields) {
			return md, lr.line, nil
		}

		switch {
		case len(fields) >= 2:
			key := strings.TrimRight(strings.TrimSpace(fields[0]), ":")
			md.Set(key, strings.TrimSpace(fields[1]))
		case strings.Contains(fields[0], ":"):
			key, value, _ := strings.Cut(fields[0], ":")
			md.Set(strings.TrimSpace(key), strings.TrimSpace(value))
		}
	}
}

// Row is one raw line of the data section.
type Row struct {
	Line      int
	TimeText  string
	Unit      string
	ValueText string
}

// ReadRows returns the data rows following the boundary at dataStart. Lines
// with fewer than three fields or an empty time or value are skipped.
func ReadRows(r io.Reader, dataStart int) ([]Row, error) {
	var rows []Row
	lr := newLineReader(r)
	for {
		line, err := lr.next()
		if errors.Is(err, io.EOF) {
			return rows, nil
		}
		if err != nil {
			return nil, err
		}
		if lr.line <= dataStart {
			continue
		}

		fields := splitFields(line)
		if len(fields) < 3 {
			continue
		}
		row := Row{
			Line:      lr.line,
			TimeText:  strings.TrimSpace(fields[0]),
			Unit:      strings.TrimSpace(fields[1]),
			ValueText: strings.TrimSpace(fields[2]),
		}
		if row.TimeText == "" || row.ValueText == "" {
			continue
		}
		rows = append(rows, row)
	}
}
