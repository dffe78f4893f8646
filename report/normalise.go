package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/ordinario/contahub-app-sheets/log"
)

// Record is a single row as returned by the ContaHub query API.
type Record map[string]any

// Row is a normalised record, one scalar per module column.
type Row []any

var ErrNotNumeric = errors.New("not a number")
var ErrNotScalar = errors.New("not a scalar value")

// RecordError is a per-record conversion failure. The record is skipped, the batch is not.
type RecordError struct {
	Index int
	Field string
	Err   error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("record %d: field '%v' (%v)", e.Index, e.Field, e.Err)
}

func (e *RecordError) Unwrap() error {
	return e.Err
}

// Normalise converts the records for the named module to worksheet rows. Records that cannot
// be converted are logged and skipped.
func Normalise(module string, records []Record) ([]Row, error) {
	m, err := Lookup(module)
	if err != nil {
		return nil, err
	}

	rows, errs := m.Normalise(records)
	for _, err := range errs {
		log.Warnf("%-10v skipping %v", m.Name, err)
	}

	return rows, nil
}

// Normalise converts each record to a Row, returning the converted rows along with the
// errors for the records that were skipped.
func (m Module) Normalise(records []Record) ([]Row, []error) {
	rows := []Row{}
	errs := []error{}

	for i, record := range records {
		row, err := m.Row(record)
		if err != nil {
			var re *RecordError
			if errors.As(err, &re) {
				re.Index = i
			}

			errs = append(errs, err)
			continue
		}

		rows = append(rows, row)
	}

	return rows, errs
}

// Row converts a single record. Absent and null text fields become "", absent, null and
// empty numeric fields become 0.0.
func (m Module) Row(record Record) (Row, error) {
	row := make(Row, len(m.Columns))

	for i, c := range m.Columns {
		v, err := convert(record[c.Field], c.Kind)
		if err != nil {
			return nil, &RecordError{Field: c.Field, Err: err}
		}

		row[i] = v
	}

	return row, nil
}

func convert(v any, kind Kind) (any, error) {
	if kind == Number {
		return number(v)
	}

	return text(v)
}

func text(v any) (any, error) {
	switch t := v.(type) {
	case nil:
		return "", nil

	case string, bool, float64, float32, int, int64:
		return t, nil

	case json.Number:
		if n, err := t.Int64(); err == nil {
			return n, nil
		} else if f, err := t.Float64(); err == nil && !strings.ContainsAny(t.String(), "eE") {
			return f, nil
		}
		return t.String(), nil

	default:
		return nil, fmt.Errorf("%w (%T)", ErrNotScalar, v)
	}
}

func number(v any) (float64, error) {
	switch t := v.(type) {
	case nil:
		return 0.0, nil

	case float64:
		return finite(t, v)

	case float32:
		return finite(float64(t), v)

	case int:
		return float64(t), nil

	case int64:
		return float64(t), nil

	case bool:
		if t {
			return 1.0, nil
		}
		return 0.0, nil

	case json.Number:
		return decimal(t.String())

	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return 0.0, nil
		}

		return decimal(s)

	default:
		return 0.0, fmt.Errorf("%w (%T)", ErrNotScalar, v)
	}
}

// decimal parses a plain decimal number. NaN, infinities and hex floats are rejected because
// the Sheets API cannot encode them.
func decimal(s string) (float64, error) {
	if s == "" || strings.ContainsFunc(s, func(r rune) bool { return !strings.ContainsRune("0123456789+-.eE", r) }) {
		return 0.0, fmt.Errorf("%w '%v'", ErrNotNumeric, s)
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0.0, fmt.Errorf("%w '%v'", ErrNotNumeric, s)
	}

	return finite(f, s)
}

func finite(f float64, v any) (float64, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0.0, fmt.Errorf("%w '%v'", ErrNotNumeric, v)
	}

	return f, nil
}
