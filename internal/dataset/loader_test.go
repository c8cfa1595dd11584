package dataset

import (
	"encoding/csv"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "churnlab/internal/errors"
)

func customerHeader() []string {
	cols := []string{
		ColID, ColChannelSales, ColHasGas, ColOriginUp, ColChurn,
		ColDateActiv, ColDateEnd, ColDateModifProd, ColDateRenewal,
	}
	return append(cols, NumericColumns()...)
}

// customerRow builds a row with every numeric column set to value, then
// applies overrides by column name.
func customerRow(id string, value string, overrides map[string]string) string {
	header := customerHeader()
	base := map[string]string{
		ColID:            id,
		ColChannelSales:  "foosdfpfkusacimwkcsosbicdxkicaua",
		ColHasGas:        "f",
		ColOriginUp:      "lxidpiddsbxsbosboudacockeimpuepw",
		ColChurn:         "0",
		ColDateActiv:     "2012-11-07",
		ColDateEnd:       "2016-11-06",
		ColDateModifProd: "2012-11-07",
		ColDateRenewal:   "2015-11-09",
	}
	cells := make([]string, len(header))
	for i, col := range header {
		v, ok := base[col]
		if !ok {
			v = value
		}
		if o, ok := overrides[col]; ok {
			v = o
		}
		cells[i] = v
	}
	return strings.Join(cells, ",")
}

func TestReadCustomers(t *testing.T) {
	csvData := "\xEF\xBB\xBF" + strings.Join(customerHeader(), ",") + "\n" +
		customerRow("a1", "10", map[string]string{ColChurn: "1", ColHasGas: "t"}) + "\n" +
		customerRow("b2", "", map[string]string{ColDateRenewal: ""}) + "\n"

	customers, err := ReadCustomers(strings.NewReader(csvData))
	require.NoError(t, err)
	require.Len(t, customers, 2)

	a := customers[0]
	assert.Equal(t, "a1", a.ID)
	assert.Equal(t, 1, a.Churn)
	assert.Equal(t, "t", a.HasGas)
	assert.Equal(t, 10.0, a.Cons12m)
	assert.Equal(t, 10.0, a.PowMax)
	assert.Equal(t, time.Date(2012, 11, 7, 0, 0, 0, 0, time.UTC), a.DateActiv)

	b := customers[1]
	assert.True(t, math.IsNaN(b.Cons12m), "empty numeric cells load as NaN")
	assert.True(t, b.DateRenewal.IsZero())

	v, ok := a.Numeric("net_margin")
	assert.True(t, ok)
	assert.Equal(t, 10.0, v)
	_, ok = a.Numeric("unknown")
	assert.False(t, ok)
}

func TestReadCustomers_Errors(t *testing.T) {
	header := strings.Join(customerHeader(), ",")

	tests := []struct {
		name       string
		data       string
		wantRecord string
		wantColumn string
	}{
		{
			name:       "missing column",
			data:       "id,churn\na1,0\n",
			wantColumn: ColChannelSales,
		},
		{
			name:       "bad date",
			data:       header + "\n" + customerRow("a1", "1", map[string]string{ColDateEnd: "06/11/2016"}) + "\n",
			wantRecord: "a1",
			wantColumn: ColDateEnd,
		},
		{
			name:       "bad number",
			data:       header + "\n" + customerRow("a1", "1", map[string]string{"pow_max": "lots"}) + "\n",
			wantRecord: "a1",
			wantColumn: "pow_max",
		},
		{
			name:       "bad churn label",
			data:       header + "\n" + customerRow("a1", "1", map[string]string{ColChurn: "yes"}) + "\n",
			wantRecord: "a1",
			wantColumn: ColChurn,
		},
		{
			name:       "empty id",
			data:       header + "\n" + customerRow("", "1", nil) + "\n",
			wantRecord: "line 2",
			wantColumn: ColID,
		},
		{
			name:       "truncated row",
			data:       header + "\n" + customerRow("a1", "1", nil) + "\n" + "b2,foosdfpfkusacimwkcsosbicdxkicaua,f\n",
			wantRecord: "line 3",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadCustomers(strings.NewReader(tt.data))
			require.Error(t, err)
			assert.True(t, apperrors.IsType(err, apperrors.ErrTypeInputFormat))

			appErr := apperrors.Locate(err)
			require.NotNil(t, appErr)
			assert.Equal(t, tt.wantRecord, appErr.Record)
			assert.Equal(t, tt.wantColumn, appErr.Column)
		})
	}
}

func TestReadPrices(t *testing.T) {
	csvData := `id,price_date,price_off_peak_var,price_peak_var,price_mid_peak_var,price_off_peak_fix,price_peak_fix,price_mid_peak_fix
a1,2015-01-01,0.10,0.09,0.08,44.3,0,0
a1,2015-12-01,0.15,,0.07,44.4,0,0
`
	obs, err := ReadPrices(strings.NewReader(csvData))
	require.NoError(t, err)
	require.Len(t, obs, 2)

	assert.Equal(t, "a1", obs[0].ID)
	assert.Equal(t, 0.10, obs[0].Prices[OffPeakVar])
	assert.Equal(t, 44.3, obs[0].Prices[OffPeakFix])
	assert.True(t, math.IsNaN(obs[1].Prices[PeakVar]))
	assert.Equal(t, time.Date(2015, 12, 1, 0, 0, 0, 0, time.UTC), obs[1].Month())
}

func TestReadPrices_Errors(t *testing.T) {
	header := "id,price_date,price_off_peak_var,price_peak_var,price_mid_peak_var,price_off_peak_fix,price_peak_fix,price_mid_peak_fix\n"

	t.Run("malformed date", func(t *testing.T) {
		_, err := ReadPrices(strings.NewReader(header + "a1,2015-13-01,1,1,1,1,1,1\n"))
		require.Error(t, err)
		appErr := apperrors.Locate(err)
		require.NotNil(t, appErr)
		assert.Equal(t, apperrors.ErrTypeInputFormat, appErr.Type)
		assert.Equal(t, ColPriceDate, appErr.Column)
		assert.Equal(t, "a1", appErr.Record)
	})

	t.Run("empty date", func(t *testing.T) {
		_, err := ReadPrices(strings.NewReader(header + "a1,,1,1,1,1,1,1\n"))
		assert.True(t, apperrors.IsType(err, apperrors.ErrTypeInputFormat))
	})

	t.Run("missing component column", func(t *testing.T) {
		_, err := ReadPrices(strings.NewReader("id,price_date\na1,2015-01-01\n"))
		appErr := apperrors.Locate(err)
		require.NotNil(t, appErr)
		assert.Equal(t, ColPriceOffPeakVar, appErr.Column)
	})

	t.Run("empty file", func(t *testing.T) {
		_, err := ReadPrices(strings.NewReader(""))
		assert.True(t, apperrors.IsType(err, apperrors.ErrTypeInputFormat))
	})

	t.Run("truncated row", func(t *testing.T) {
		obs, err := ReadPrices(strings.NewReader(header + "c1,2015-01-01,0.1\n"))
		require.Error(t, err)
		assert.Nil(t, obs)
		appErr := apperrors.Locate(err)
		require.NotNil(t, appErr)
		assert.Equal(t, apperrors.ErrTypeInputFormat, appErr.Type)
		assert.Equal(t, "line 2", appErr.Record)
		assert.ErrorIs(t, err, csv.ErrFieldCount)
	})

	t.Run("extra cell", func(t *testing.T) {
		_, err := ReadPrices(strings.NewReader(header + "c1,2015-01-01,1,1,1,1,1,1,9\n"))
		assert.True(t, apperrors.IsType(err, apperrors.ErrTypeInputFormat))
	})
}

func TestLoadPrices_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "price_data.csv")
	require.NoError(t, os.WriteFile(path, []byte(
		"id,price_date,price_off_peak_var,price_peak_var,price_mid_peak_var,price_off_peak_fix,price_peak_fix,price_mid_peak_fix\n"+
			"a1,2015-01-01 00:00:00,0.1,0,0,40,0,0\n"), 0644))

	obs, err := LoadPrices(path)
	require.NoError(t, err)
	require.Len(t, obs, 1)
	assert.Equal(t, 2015, obs[0].Date.Year())

	_, err = LoadPrices(filepath.Join(t.TempDir(), "missing.csv"))
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeInputFormat))
}
