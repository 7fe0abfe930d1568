package dataset

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/matzehuels/spikeraster/pkg/errors"
)

// Format identifies a dataset file format.
type Format string

// Supported formats.
const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatCSV  Format = "csv"
)

// Formats lists every supported format.
var Formats = []Format{FormatJSON, FormatYAML, FormatCSV}

// ParseFormat parses a format name such as "json" or "yml".
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(s, ".")) {
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "csv":
		return FormatCSV, nil
	}
	return "", errors.New(errors.ErrCodeInvalidFormat, "unsupported dataset format %q (must be json, yaml or csv)", s)
}

// FormatForPath infers the format from a file extension.
func FormatForPath(path string) (Format, error) {
	ext := filepath.Ext(path)
	if ext == "" {
		return "", errors.New(errors.ErrCodeInvalidFormat, "cannot infer dataset format from %q", path)
	}
	return ParseFormat(ext)
}

// ReadFile reads a dataset file, choosing the format from its extension.
// CSV times are read in DefaultUnit.
func ReadFile(path string) (*Dataset, error) {
	return ReadFileUnit(path, DefaultUnit)
}

// ReadFileUnit is like ReadFile but reads CSV times in csvUnit.
// JSON and YAML files name their own unit.
func ReadFileUnit(path string, csvUnit Unit) (*Dataset, error) {
	format, err := FormatForPath(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "dataset %s", path)
		}
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()

	ds, err := ReadUnit(f, format, csvUnit)
	if err != nil {
		return nil, err
	}
	if ds.Name == "" {
		ds.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return ds, nil
}

// Read decodes a dataset from r. CSV times are read in DefaultUnit.
func Read(r io.Reader, format Format) (*Dataset, error) {
	return ReadUnit(r, format, DefaultUnit)
}

// ReadUnit decodes a dataset from r, reading CSV times in csvUnit.
func ReadUnit(r io.Reader, format Format, csvUnit Unit) (*Dataset, error) {
	switch format {
	case FormatJSON:
		var doc Document
		dec := json.NewDecoder(r)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&doc); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidDataset, err, "decode json dataset")
		}
		return FromDocument(doc)
	case FormatYAML:
		var doc Document
		dec := yaml.NewDecoder(r)
		dec.KnownFields(true)
		if err := dec.Decode(&doc); err != nil {
			if err == io.EOF {
				return FromDocument(Document{})
			}
			return nil, errors.Wrap(errors.ErrCodeInvalidDataset, err, "decode yaml dataset")
		}
		return FromDocument(doc)
	case FormatCSV:
		return ReadCSV(r, csvUnit)
	}
	return nil, errors.New(errors.ErrCodeInvalidFormat, "unsupported dataset format %q", format)
}

// Parse decodes a dataset held in memory.
func Parse(data []byte, format Format) (*Dataset, error) {
	return Read(bytes.NewReader(data), format)
}

// CSV column names.
const (
	ColumnTime  = "time"
	ColumnTrial = "trial"
	ColumnGroup = "group"
)

// ReadCSV reads one event per record. The header must name a time column;
// trial and group columns are optional. Empty trial or group cells are
// missing values. If the trial column is absent the dataset has no trial
// assignment; likewise for groups.
func ReadCSV(r io.Reader, unit Unit) (*Dataset, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return nil, errors.New(errors.ErrCodeInvalidDataset, "csv dataset has no header")
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidDataset, err, "read csv header")
	}

	timeCol, trialCol, groupCol := -1, -1, -1
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case ColumnTime:
			timeCol = i
		case ColumnTrial:
			trialCol = i
		case ColumnGroup:
			groupCol = i
		}
	}
	if timeCol < 0 {
		return nil, errors.New(errors.ErrCodeInvalidDataset, "csv header must contain a %q column", ColumnTime)
	}

	var doc Document
	doc.Unit = string(unit)
	doc.Timestamps = []float64{}
	line := 1
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidDataset, err, "read csv line %d", line)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(cell(rec, timeCol)), 64)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidDataset, err, "csv line %d: invalid time", line)
		}
		doc.Timestamps = append(doc.Timestamps, v)
		if trialCol >= 0 {
			doc.Trials = append(doc.Trials, optionalCell(rec, trialCol))
		}
		if groupCol >= 0 {
			doc.Groups = append(doc.Groups, optionalCell(rec, groupCol))
		}
	}
	return FromDocument(doc)
}

func cell(rec []string, i int) string {
	if i < len(rec) {
		return rec[i]
	}
	return ""
}

func optionalCell(rec []string, i int) *string {
	s := strings.TrimSpace(cell(rec, i))
	if s == "" {
		return nil
	}
	return &s
}

// Write encodes d to w. CSV output drops the reference and declared
// categories, which have no column in the format.
func Write(w io.Writer, d *Dataset, format Format) error {
	doc := ToDocument(d)
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return err
		}
		return enc.Close()
	case FormatCSV:
		return writeCSV(w, doc)
	}
	return errors.New(errors.ErrCodeInvalidFormat, "unsupported dataset format %q", format)
}

func writeCSV(w io.Writer, doc Document) error {
	cw := csv.NewWriter(w)
	header := []string{ColumnTime}
	hasTrials, hasGroups := len(doc.Trials) > 0, len(doc.Groups) > 0
	if hasTrials {
		header = append(header, ColumnTrial)
	}
	if hasGroups {
		header = append(header, ColumnGroup)
	}
	if err := cw.Write(header); err != nil {
		return err
	}
	for i, t := range doc.Timestamps {
		rec := []string{strconv.FormatFloat(t, 'g', -1, 64)}
		if hasTrials {
			rec = append(rec, deref(doc.Trials, i))
		}
		if hasGroups {
			rec = append(rec, deref(doc.Groups, i))
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func deref(vs []*string, i int) string {
	if i < len(vs) && vs[i] != nil {
		return *vs[i]
	}
	return ""
}

// WriteFile writes d to path, choosing the format from its extension.
func WriteFile(path string, d *Dataset) error {
	format, err := FormatForPath(path)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := Write(&buf, d, format); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}
