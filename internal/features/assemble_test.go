package features

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"churnlab/internal/dataset"
	apperrors "churnlab/internal/errors"
)

func customer(id string) dataset.CustomerRecord {
	c := dataset.CustomerRecord{
		ID:            id,
		ChannelSales:  "foosdfpfkusacimwkcsosbicdxkicaua",
		HasGas:        "f",
		OriginUp:      "kamkkxfxxuwbdslkwifmmcsiusiuosws",
		DateActiv:     day(2012, 1, 1),
		DateEnd:       day(2016, 6, 15),
		DateModifProd: day(2014, 1, 1),
		DateRenewal:   day(2015, 7, 1),
	}
	for _, f := range c.NumericFields() {
		*f.Value = 9
	}
	return c
}

func twelveMonths(id string) []dataset.PriceObservation {
	var out []dataset.PriceObservation
	for m := 1; m <= 12; m++ {
		out = append(out, obs(id, day(2015, 1, 1).AddDate(0, m-1, 0), float64(m)))
	}
	return out
}

func TestAssemble(t *testing.T) {
	customers := []dataset.CustomerRecord{customer("a"), customer("no-prices"), customer("b")}
	customers[2].Churn = 1
	customers[2].HasGas = "t"
	customers[2].ChannelSales = "epumfxlbckeskwekxbiuasklxalciiuu"

	prices := append(twelveMonths("a"), twelveMonths("b")...)
	deltas, err := BuildPriceDeltas(prices)
	require.NoError(t, err)

	asm := NewAssembler(day(2016, 1, 1), nil)
	m, err := asm.Assemble(context.Background(), customers, deltas)
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b"}, m.IDs, "customers without price history never appear")
	assert.Equal(t, asm.Columns(), m.Columns)
	for _, row := range m.Rows {
		assert.Len(t, row, len(m.Columns))
	}
	assert.Equal(t, LabelColumn, m.Columns[len(m.Columns)-1])

	get := func(id, col string) float64 {
		row, ok := m.Row(id)
		require.True(t, ok)
		j := m.ColumnIndex(col)
		require.GreaterOrEqual(t, j, 0, col)
		return row[j]
	}

	assert.InDelta(t, 1.0, get("a", "cons_12m"), 1e-12, "skew corrected")
	assert.Equal(t, 9.0, get("a", "net_margin"), "not skew corrected")
	assert.Equal(t, 0.0, get("a", ColHasGas))
	assert.Equal(t, 1.0, get("b", ColHasGas))
	assert.InDelta(t, 11.0, get("a", ColOffpeakDiffDecJanEnergy), 1e-12)
	assert.Equal(t, 4.0, get("a", ColTenure))
	assert.Equal(t, 48.0, get("a", ColMonthsActiv))
	assert.Equal(t, 5.0, get("a", ColMonthsToEnd))
	assert.Equal(t, 1.0, get("b", LabelColumn))

	channelSum := func(id string) float64 {
		var s float64
		for _, col := range NewChannelEncoder().Columns() {
			s += get(id, col)
		}
		return s
	}
	assert.Equal(t, 1.0, channelSum("a"))
	assert.Equal(t, 0.0, channelSum("b"), "excluded channel encodes as all zeros")
	assert.Equal(t, 1.0, get("a", "origin_up_kamkkxfxxuwbdslkwifmmcsiusiuosws"))
}

func TestAssemble_SingleMonthCustomerExcluded(t *testing.T) {
	deltas, err := BuildPriceDeltas([]dataset.PriceObservation{obs("a", day(2015, 1, 1), 1)})
	require.NoError(t, err)

	m, err := NewAssembler(day(2016, 1, 1), nil).Assemble(context.Background(),
		[]dataset.CustomerRecord{customer("a")}, deltas)
	require.NoError(t, err)
	assert.Equal(t, 0, m.Len())
}

func TestAssemble_JoinIntegrity(t *testing.T) {
	deltas, err := BuildPriceDeltas(twelveMonths("a"))
	require.NoError(t, err)
	asm := NewAssembler(day(2016, 1, 1), nil)

	t.Run("duplicate customer", func(t *testing.T) {
		_, err := asm.Assemble(context.Background(), []dataset.CustomerRecord{customer("a"), customer("a")}, deltas)
		require.Error(t, err)
		assert.True(t, apperrors.IsType(err, apperrors.ErrTypeJoinIntegrity))
		assert.Equal(t, "a", apperrors.Locate(err).Record)
	})

	t.Run("duplicate price feature row", func(t *testing.T) {
		dup := *deltas
		dup.MeanDiffs = append(append([]PeriodDeltas(nil), deltas.MeanDiffs...), deltas.MeanDiffs...)
		_, err := asm.Assemble(context.Background(), []dataset.CustomerRecord{customer("a")}, &dup)
		assert.True(t, apperrors.IsType(err, apperrors.ErrTypeJoinIntegrity))
	})
}

func TestAssemble_Errors(t *testing.T) {
	deltas, err := BuildPriceDeltas(twelveMonths("a"))
	require.NoError(t, err)
	asm := NewAssembler(day(2016, 1, 1), nil)

	t.Run("bad gas flag", func(t *testing.T) {
		c := customer("a")
		c.HasGas = "maybe"
		_, err := asm.Assemble(context.Background(), []dataset.CustomerRecord{c}, deltas)
		appErr := apperrors.Locate(err)
		require.NotNil(t, appErr)
		assert.Equal(t, apperrors.ErrTypeInputFormat, appErr.Type)
		assert.Equal(t, "a", appErr.Record)
		assert.Equal(t, dataset.ColHasGas, appErr.Column)
	})

	t.Run("skew domain", func(t *testing.T) {
		c := customer("a")
		c.ConsLastMonth = -2
		_, err := asm.Assemble(context.Background(), []dataset.CustomerRecord{c}, deltas)
		appErr := apperrors.Locate(err)
		require.NotNil(t, appErr)
		assert.Equal(t, apperrors.ErrTypeNumericDomain, appErr.Type)
		assert.Equal(t, "cons_last_month", appErr.Column)
	})
}

func TestMatrix_DropIncompleteAndRecords(t *testing.T) {
	m := &Matrix{
		IDs:     []string{"a", "b", "c"},
		Columns: []string{"x", LabelColumn},
		Rows:    [][]float64{{1.5, 0}, {math.NaN(), 1}, {math.Inf(1), 0}},
	}

	clean, dropped := m.DropIncomplete()
	assert.Equal(t, 2, dropped)
	assert.Equal(t, []string{"a"}, clean.IDs)
	assert.Equal(t, 3, m.Len(), "source matrix is unchanged")

	row, col, ok := m.FirstNonFinite()
	require.True(t, ok)
	assert.Equal(t, 1, row)
	assert.Equal(t, 0, col)
	_, _, ok = clean.FirstNonFinite()
	assert.False(t, ok)

	assert.Equal(t, []string{"id", "x", LabelColumn}, m.Header())
	records := m.Records()
	assert.Equal(t, []string{"a", "1.5", "0"}, records[0])
	assert.Equal(t, []string{"b", "", "1"}, records[1])

	labels, ok := m.Column(LabelColumn)
	require.True(t, ok)
	assert.Equal(t, []float64{0, 1, 0}, labels)
}
