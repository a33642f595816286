package fetcher

import (
	"encoding/csv"
	"errors"
	"io"
	"os"
	"strings"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"
)

// CSVOptions configures the CSV decoder.
type CSVOptions struct {
	Delimiter rune // default ','
	Comment   rune // comment character (0 = none)
	TrimSpace bool
}

// ReadCSVFile opens path and decodes it with ReadCSV.
func ReadCSVFile[T any](path string, opts CSVOptions) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "csv: open %s", path)
	}
	defer f.Close() //nolint:errcheck
	return ReadCSV[T](f, opts)
}

// ReadCSV decodes a headed CSV stream into records of T. An empty input
// yields no records.
func ReadCSV[T any](r io.Reader, opts CSVOptions) ([]T, error) {
	reader := csv.NewReader(r)
	if opts.Delimiter != 0 {
		reader.Comma = opts.Delimiter
	}
	if opts.Comment != 0 {
		reader.Comment = opts.Comment
	}
	reader.FieldsPerRecord = -1 // allow ragged rows

	var src csvutil.Reader = reader
	if opts.TrimSpace {
		src = &trimReader{r: reader}
	}
	return decodeRecords[T](src, "csv")
}

// decodeRecords drains a csvutil.Reader whose first row is the header.
func decodeRecords[T any](src csvutil.Reader, kind string) ([]T, error) {
	dec, err := csvutil.NewDecoder(src)
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "%s: read header", kind)
	}

	var out []T
	for line := 2; ; line++ {
		var rec T
		err := dec.Decode(&rec)
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, eris.Wrapf(err, "%s: decode row %d", kind, line)
		}
		out = append(out, rec)
	}
}

// trimReader trims whitespace from every field.
type trimReader struct {
	r csvutil.Reader
}

func (t *trimReader) Read() ([]string, error) {
	rec, err := t.r.Read()
	if err != nil {
		return nil, err
	}
	for i := range rec {
		rec[i] = strings.TrimSpace(rec[i])
	}
	return rec, nil
}

// WriteCSV encodes records as a headed CSV document. An empty slice still
// yields the header line.
func WriteCSV[T any](w io.Writer, records []T) error {
	if len(records) == 0 {
		var zero T
		header, err := csvutil.Header(zero, "csv")
		if err != nil {
			return eris.Wrap(err, "csv: header")
		}
		cw := csv.NewWriter(w)
		if err := cw.Write(header); err != nil {
			return eris.Wrap(err, "csv: write header")
		}
		cw.Flush()
		return eris.Wrap(cw.Error(), "csv: write header")
	}
	b, err := csvutil.Marshal(records)
	if err != nil {
		return eris.Wrap(err, "csv: marshal records")
	}
	_, err = w.Write(b)
	return eris.Wrap(err, "csv: write records")
}
