package records

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// BOM is written at the start of every CSV so spreadsheet tools pick UTF-8.
const BOM = "\uFEFF"

func writeTable(w io.Writer, header []string, n int, row func(i int) []string) error {
	if _, err := io.WriteString(w, BOM); err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		if err := cw.Write(row(i)); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteSpeechesCSV writes rows with the SpeechColumns header.
func WriteSpeechesCSV(w io.Writer, rows []Speech) error {
	return writeTable(w, SpeechColumns, len(rows), func(i int) []string { return rows[i].Row() })
}

// WriteMeetingsCSV writes rows with the MeetingColumns header.
func WriteMeetingsCSV(w io.Writer, rows []Meeting) error {
	return writeTable(w, MeetingColumns, len(rows), func(i int) []string { return rows[i].Row() })
}

// SpeechReader streams Speech rows from a CSV written by WriteSpeechesCSV or
// any CSV sharing its column names. Columns are matched by header name, so
// extra columns are ignored and missing ones read as empty.
type SpeechReader struct {
	cr  *csv.Reader
	idx map[string]int
}

// NewSpeechReader consumes the optional BOM and the header line.
func NewSpeechReader(r io.Reader) (*SpeechReader, error) {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(BOM)); err == nil && bytes.Equal(head, []byte(BOM)) {
		if _, err := br.Discard(len(BOM)); err != nil {
			return nil, err
		}
	}
	cr := csv.NewReader(br)
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("csv has no header")
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	idx := make(map[string]int, len(header))
	for i, col := range header {
		idx[strings.TrimSpace(col)] = i
	}
	return &SpeechReader{cr: cr, idx: idx}, nil
}

// HasColumn reports whether the header named col.
func (sr *SpeechReader) HasColumn(col string) bool {
	_, ok := sr.idx[col]
	return ok
}

// Next returns the next row, or io.EOF at the end of input.
func (sr *SpeechReader) Next() (Speech, error) {
	rec, err := sr.cr.Read()
	if err != nil {
		return Speech{}, err
	}
	return speechFromFields(sr.idx, rec), nil
}

// ReadSpeechesCSV reads every row of r.
func ReadSpeechesCSV(r io.Reader) ([]Speech, error) {
	sr, err := NewSpeechReader(r)
	if err != nil {
		return nil, err
	}
	var out []Speech
	for {
		s, err := sr.Next()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", len(out)+1, err)
		}
		out = append(out, s)
	}
}
