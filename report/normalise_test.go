package report

import (
	"encoding/json"
	"errors"
	"math"
	"reflect"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormaliseAnalitico(t *testing.T) {
	expected := []Row{
		{"Sex", "21", int64(1001), "Mesa 4", "Salão", int64(1), int64(7), "Turno", "A", "V", "Local", int64(2025), int64(5),
			"2025-05-23", "ana", int64(300), "Chopp", "Bebidas", "Bar", 2.0, 0.0, 25.8, 7.5, "", "", ""},
	}

	records := decode(t, `[{"dia_semana":"Sex","semana":"21","vd":1001,"vd_mesadesc":"Mesa 4","vd_localizacao":"Salão",
		"itm":1,"trn":7,"trn_desc":"Turno","prefixo":"A","tipo":"V","tipovenda":"Local","ano":2025,"mes":5,
		"vd_dtgerencial":"2025-05-23","usr_lancou":"ana","prd":300,"prd_desc":"Chopp","grp_desc":"Bebidas",
		"loc_desc":"Bar","qtd":2,"desconto":null,"valorfinal":25.8,"custo":"7.5","itm_obs":null}]`)

	rows, err := Normalise("analitico", records)
	if err != nil {
		t.Fatalf("Unexpected error normalising records (%v)", err)
	}

	if !reflect.DeepEqual(rows, expected) {
		t.Errorf("Incorrect rows\n   expected: %v\n   got:      %v\n", expected, rows)
	}
}

func TestNormaliseMissingFields(t *testing.T) {
	for _, name := range Modules() {
		m, err := Lookup(name)
		require.NoError(t, err)

		row, err := m.Row(Record{})
		require.NoError(t, err)
		require.Len(t, row, len(m.Columns))

		for i, c := range m.Columns {
			switch c.Kind {
			case Number:
				assert.Equal(t, 0.0, row[i], "%v.%v", name, c.Field)
			default:
				assert.Equal(t, "", row[i], "%v.%v", name, c.Field)
			}
		}
	}
}

func TestNormaliseSkipsInvalidRecord(t *testing.T) {
	m, err := Lookup("analitico")
	require.NoError(t, err)

	records := []Record{
		{"vd": "1", "qtd": 1.0},
		{"vd": "2", "qtd": "abc"},
		{"vd": "3", "qtd": json.Number("3")},
	}

	rows, errs := m.Normalise(records)

	require.Len(t, rows, 2)
	assert.Equal(t, "1", rows[0][2])
	assert.Equal(t, 1.0, rows[0][19])
	assert.Equal(t, "3", rows[1][2])
	assert.Equal(t, 3.0, rows[1][19])

	require.Len(t, errs, 1)

	var re *RecordError
	require.True(t, errors.As(errs[0], &re))
	assert.Equal(t, 1, re.Index)
	assert.Equal(t, "qtd", re.Field)
	assert.ErrorIs(t, errs[0], ErrNotNumeric)
}

func TestNormaliseSkipsNonFiniteNumbers(t *testing.T) {
	records := []Record{
		{"vd": "1", "qtd": "NaN"},
		{"vd": "2", "qtd": "Inf"},
		{"vd": "3", "qtd": "0x1p-2"},
		{"vd": "4", "qtd": 2.0},
	}

	rows, err := Normalise("analitico", records)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	assert.Equal(t, "4", rows[0][2])
	assert.Equal(t, 2.0, rows[0][19])

	_, err = json.Marshal(rows)
	assert.NoError(t, err)
}

func TestNormaliseSkipsNonScalar(t *testing.T) {
	m, err := Lookup("periodo")
	require.NoError(t, err)

	rows, errs := m.Normalise([]Record{
		{"vd": map[string]any{"id": 1}},
		{"vd": "2", "pessoas": "4"},
	})

	require.Len(t, rows, 1)
	assert.Equal(t, 4.0, rows[0][9])
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], ErrNotScalar)
}

func TestNormaliseUnknownModule(t *testing.T) {
	_, err := Normalise("vendas", []Record{{}})

	assert.ErrorIs(t, err, ErrUnknownModule)
}

func TestNumber(t *testing.T) {
	tests := []struct {
		value    any
		expected float64
		err      error
	}{
		{nil, 0.0, nil},
		{"", 0.0, nil},
		{" 12.5 ", 12.5, nil},
		{json.Number("7"), 7.0, nil},
		{42, 42.0, nil},
		{true, 1.0, nil},
		{false, 0.0, nil},
		{"abc", 0.0, ErrNotNumeric},
		{"NaN", 0.0, ErrNotNumeric},
		{"Inf", 0.0, ErrNotNumeric},
		{"-Infinity", 0.0, ErrNotNumeric},
		{"0x1p-2", 0.0, ErrNotNumeric},
		{"1e400", 0.0, ErrNotNumeric},
		{json.Number("1e400"), 0.0, ErrNotNumeric},
		{math.NaN(), 0.0, ErrNotNumeric},
		{math.Inf(1), 0.0, ErrNotNumeric},
		{"-1.5e2", -150.0, nil},
		{[]any{1}, 0.0, ErrNotScalar},
	}

	for _, test := range tests {
		v, err := number(test.value)
		if test.err != nil {
			if !errors.Is(err, test.err) {
				t.Errorf("number(%#v): expected error %v, got %v", test.value, test.err, err)
			}
			continue
		}

		if err != nil {
			t.Errorf("number(%#v): unexpected error (%v)", test.value, err)
		} else if v != test.expected {
			t.Errorf("number(%#v): expected %v, got %v", test.value, test.expected, v)
		}
	}
}

func decode(t *testing.T, s string) []Record {
	t.Helper()

	records := []Record{}
	d := json.NewDecoder(strings.NewReader(s))
	d.UseNumber()

	require.NoError(t, d.Decode(&records))

	return records
}
