package features

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"churnlab/internal/dataset"
)

func TestBuildPriceDeltas_DecJanuary(t *testing.T) {
	jan := obs("x", day(2015, 1, 1), 0)
	jan.Prices[dataset.OffPeakVar] = 0.10
	jan.Prices[dataset.OffPeakFix] = 40.0
	dec := obs("x", day(2015, 12, 1), 0)
	dec.Prices[dataset.OffPeakVar] = 0.15
	dec.Prices[dataset.OffPeakFix] = 44.0

	deltas, err := BuildPriceDeltas([]dataset.PriceObservation{dec, jan, obs("lonely", day(2015, 5, 1), 1)})
	require.NoError(t, err)

	require.Len(t, deltas.DecJan, 1)
	assert.Equal(t, "x", deltas.DecJan[0].ID)
	assert.InDelta(t, 0.05, deltas.DecJan[0].Energy, 1e-12)
	assert.InDelta(t, 4.0, deltas.DecJan[0].Power, 1e-12)

	// Every customer with price history has mean and max-monthly rows
	assert.Len(t, deltas.MeanDiffs, 2)
	assert.Len(t, deltas.MaxMonthlyDiffs, 2)
}

func TestMeanPeriodDeltas(t *testing.T) {
	y := YearlyPriceAggregate{ID: "a"}
	y.Means = [dataset.NumComponents]float64{0.12, 0.10, 0.07, 44, 24, 16}

	d := MeanPeriodDeltas([]YearlyPriceAggregate{y})
	require.Len(t, d, 1)

	cols := PeriodDiffColumns(MeanDiffSuffix)
	want := map[string]float64{
		"off_peak_peak_var_mean_diff":     0.02,
		"peak_mid_peak_var_mean_diff":     0.03,
		"off_peak_mid_peak_var_mean_diff": 0.05,
		"off_peak_peak_fix_mean_diff":     20,
		"peak_mid_peak_fix_mean_diff":     8,
		"off_peak_mid_peak_fix_mean_diff": 28,
	}
	for i, col := range cols {
		assert.InDelta(t, want[col], d[0].Values[i], 1e-12, col)
	}
}

func TestPeriodDeltas_MissingComponentIsNaN(t *testing.T) {
	y := YearlyPriceAggregate{ID: "a"}
	y.Means = [dataset.NumComponents]float64{0.12, math.NaN(), 0.07, 44, 24, 16}

	d := MeanPeriodDeltas([]YearlyPriceAggregate{y})
	assert.True(t, math.IsNaN(d[0].Values[0]), "off_peak - peak with missing peak")
	assert.True(t, math.IsNaN(d[0].Values[1]), "peak - mid_peak with missing peak")
	assert.InDelta(t, 0.05, d[0].Values[2], 1e-12)
}

func TestMaxMonthlyPeriodDeltas(t *testing.T) {
	month := func(m int, offPeakVar, peakVar float64) MonthlyPriceAggregate {
		agg := MonthlyPriceAggregate{ID: "a", Month: day(2015, 1, 1).AddDate(0, m, 0)}
		agg.Means = [dataset.NumComponents]float64{offPeakVar, peakVar, math.NaN(), 1, 1, 1}
		return agg
	}

	d := MaxMonthlyPeriodDeltas([]MonthlyPriceAggregate{
		month(0, 0.10, 0.08),
		month(1, 0.20, math.NaN()), // skipped for off_peak_peak_var
		month(2, 0.15, 0.05),
	})
	require.Len(t, d, 1)
	assert.InDelta(t, 0.10, d[0].Values[0], 1e-12)
	assert.True(t, math.IsNaN(d[0].Values[1]), "mid_peak missing in every month")
	assert.Equal(t, 0.0, d[0].Values[3])
}

func TestPeriodDiffColumns(t *testing.T) {
	cols := PeriodDiffColumns(MaxMonthlyDiffSuffix)
	assert.Equal(t, []string{
		"off_peak_peak_var_max_monthly_diff",
		"peak_mid_peak_var_max_monthly_diff",
		"off_peak_mid_peak_var_max_monthly_diff",
		"off_peak_peak_fix_max_monthly_diff",
		"peak_mid_peak_fix_max_monthly_diff",
		"off_peak_mid_peak_fix_max_monthly_diff",
	}, cols)
}
