package features

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"go.uber.org/multierr"

	"cardfraud/internal/data"
)

var (
	ErrMissingColumn  = errors.New("missing column")
	ErrNonBinaryLabel = errors.New("label is not 0/1")
	ErrBadValue       = errors.New("value is not a finite number")
	ErrSchemaMismatch = errors.New("train and test feature sets differ")
	ErrUnknownSchema  = errors.New("unknown feature schema")
)

// Schema is the ordered set of numeric columns a model sees at fit and inference time.
type Schema struct {
	Name    string
	Columns []string
}

// Default keeps the card id with amount and both coordinate pairs.
var Default = Schema{
	Name:    "default",
	Columns: []string{"cc_num", "amt", "lat", "long", "merch_lat", "merch_long"},
}

// Local is what remains after dropping identity and free-text columns without selecting.
var Local = Schema{
	Name:    "local",
	Columns: []string{"amt", "lat", "long", "city_pop", "unix_time", "merch_lat", "merch_long"},
}

func SchemaByName(name string) (Schema, error) {
	switch strings.ToLower(name) {
	case "", Default.Name:
		return Default, nil
	case Local.Name:
		return Local, nil
	}
	return Schema{}, fmt.Errorf("%w: %q", ErrUnknownSchema, name)
}

func (s Schema) Width() int { return len(s.Columns) }

// Vectorize lays one decoded JSON record out in schema order. Absent and null
// columns are missing, never zero; every problem is reported at once.
func Vectorize(rec map[string]any, s Schema) ([]float64, error) {
	var err error
	vec := make([]float64, len(s.Columns))
	for j, c := range s.Columns {
		raw, ok := rec[c]
		if !ok || raw == nil {
			err = multierr.Append(err, fmt.Errorf("%w: %q", ErrMissingColumn, c))
			continue
		}
		v, ok := raw.(float64)
		if !ok || !finite(v) {
			err = multierr.Append(err, fmt.Errorf("column %q: %w: %v", c, ErrBadValue, raw))
			continue
		}
		vec[j] = v
	}
	if err != nil {
		return nil, err
	}
	return vec, nil
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

// Reduce drops the leading index column, keeps only the schema columns in schema
// order and splits off the label.
func Reduce(fr *data.Frame, s Schema) (*Dataset, error) {
	pos := make(map[string]int, len(fr.Header))
	for i := 1; i < len(fr.Header); i++ {
		pos[fr.Header[i]] = i
	}
	var err error
	cols := make([]int, len(s.Columns))
	for j, c := range s.Columns {
		i, ok := pos[c]
		if !ok {
			err = multierr.Append(err, fmt.Errorf("%w: %q", ErrMissingColumn, c))
			continue
		}
		cols[j] = i
	}
	labelAt, ok := pos[data.LabelColumn]
	if !ok {
		err = multierr.Append(err, fmt.Errorf("%w: %q", ErrMissingColumn, data.LabelColumn))
	}
	if err != nil {
		return nil, err
	}

	ds := &Dataset{
		Features: slices.Clone(s.Columns),
		X:        make([][]float64, 0, len(fr.Rows)),
		Y:        make([]int, 0, len(fr.Rows)),
	}
	for r, row := range fr.Rows {
		if len(row) != len(fr.Header) {
			return nil, fmt.Errorf("row %d has %d fields, header has %d: %w", r+1, len(row), len(fr.Header), ErrBadValue)
		}
		vec := make([]float64, len(cols))
		for j, i := range cols {
			v, perr := strconv.ParseFloat(strings.TrimSpace(row[i]), 64)
			if perr != nil || !finite(v) {
				return nil, fmt.Errorf("row %d column %q: %w", r+1, s.Columns[j], ErrBadValue)
			}
			vec[j] = v
		}
		lbl, perr := strconv.ParseFloat(strings.TrimSpace(row[labelAt]), 64)
		if perr != nil || (lbl != 0 && lbl != 1) {
			return nil, fmt.Errorf("row %d: %w: %q", r+1, ErrNonBinaryLabel, row[labelAt])
		}
		ds.X = append(ds.X, vec)
		ds.Y = append(ds.Y, int(lbl))
	}
	return ds, nil
}

// ReducePair reduces both frames with the same schema, reporting every
// problem from either side at once.
func ReducePair(train, test *data.Frame, s Schema) (*Dataset, *Dataset, error) {
	tr, errTrain := Reduce(train, s)
	if errTrain != nil {
		errTrain = fmt.Errorf("train: %w", errTrain)
	}
	te, errTest := Reduce(test, s)
	if errTest != nil {
		errTest = fmt.Errorf("test: %w", errTest)
	}
	if err := multierr.Combine(errTrain, errTest); err != nil {
		return nil, nil, err
	}
	if err := CheckAligned(tr, te); err != nil {
		return nil, nil, err
	}
	return tr, te, nil
}

func CheckAligned(a, b *Dataset) error {
	if !slices.Equal(a.Features, b.Features) {
		return fmt.Errorf("%w: %v vs %v", ErrSchemaMismatch, a.Features, b.Features)
	}
	return nil
}
