package features

import (
	"churnlab/internal/dataset"
)

// December/January off-peak delta columns
const (
	ColOffpeakDiffDecJanEnergy = "offpeak_diff_dec_january_energy"
	ColOffpeakDiffDecJanPower  = "offpeak_diff_dec_january_power"
)

// periodPair is a consecutive-period difference minuend - subtrahend
type periodPair struct {
	name       string
	minuend    int
	subtrahend int
}

var periodPairs = []periodPair{
	{"off_peak_peak_var", dataset.OffPeakVar, dataset.PeakVar},
	{"peak_mid_peak_var", dataset.PeakVar, dataset.MidPeakVar},
	{"off_peak_mid_peak_var", dataset.OffPeakVar, dataset.MidPeakVar},
	{"off_peak_peak_fix", dataset.OffPeakFix, dataset.PeakFix},
	{"peak_mid_peak_fix", dataset.PeakFix, dataset.MidPeakFix},
	{"off_peak_mid_peak_fix", dataset.OffPeakFix, dataset.MidPeakFix},
}

// NumPeriodDiffs is the number of consecutive-period differences per family
const NumPeriodDiffs = 6

// Column name suffixes of the two period-difference families
const (
	MeanDiffSuffix       = "_mean_diff"
	MaxMonthlyDiffSuffix = "_max_monthly_diff"
)

// PeriodDiffColumns returns the six column names of a period-difference family
func PeriodDiffColumns(suffix string) []string {
	cols := make([]string, len(periodPairs))
	for i, p := range periodPairs {
		cols[i] = p.name + suffix
	}
	return cols
}

// DecJanDelta is the December minus January off-peak price for one customer
type DecJanDelta struct {
	ID     string
	Energy float64
	Power  float64
}

// PeriodDeltas holds one value per consecutive-period pair, in
// PeriodDiffColumns order
type PeriodDeltas struct {
	ID     string
	Values [NumPeriodDiffs]float64
}

// PriceDeltaFeatures is the full set of per-customer price volatility
// features. Each table is ordered by customer id.
type PriceDeltaFeatures struct {
	DecJan          []DecJanDelta
	MeanDiffs       []PeriodDeltas
	MaxMonthlyDiffs []PeriodDeltas
}

// BuildPriceDeltas aggregates the observations and derives every price
// difference family from them
func BuildPriceDeltas(observations []dataset.PriceObservation) (*PriceDeltaFeatures, error) {
	monthly, err := AggregateMonthly(observations)
	if err != nil {
		return nil, err
	}

	return &PriceDeltaFeatures{
		DecJan:          DecJanDeltas(FirstLast(monthly)),
		MeanDiffs:       MeanPeriodDeltas(AggregateYearly(observations)),
		MaxMonthlyDiffs: MaxMonthlyPeriodDeltas(monthly),
	}, nil
}

// DecJanDeltas computes the last-month minus first-month off-peak variable
// (energy) and fixed (power) price. A missing component yields NaN.
func DecJanDeltas(pairs []MonthPair) []DecJanDelta {
	deltas := make([]DecJanDelta, len(pairs))
	for i, p := range pairs {
		deltas[i] = DecJanDelta{
			ID:     p.ID,
			Energy: p.Last.Means[dataset.OffPeakVar] - p.First.Means[dataset.OffPeakVar],
			Power:  p.Last.Means[dataset.OffPeakFix] - p.First.Means[dataset.OffPeakFix],
		}
	}
	return deltas
}

// MeanPeriodDeltas computes the consecutive-period differences of each
// customer's yearly means
func MeanPeriodDeltas(yearly []YearlyPriceAggregate) []PeriodDeltas {
	deltas := make([]PeriodDeltas, len(yearly))
	for i, y := range yearly {
		deltas[i] = PeriodDeltas{ID: y.ID, Values: periodDiffs(y.Means)}
	}
	return deltas
}

// MaxMonthlyPeriodDeltas computes the consecutive-period differences for
// every month, then keeps the per-customer maximum. NaN months are ignored;
// the maximum is NaN only when every month is NaN.
func MaxMonthlyPeriodDeltas(monthly []MonthlyPriceAggregate) []PeriodDeltas {
	var deltas []PeriodDeltas
	for start := 0; start < len(monthly); {
		end := start
		var series [NumPeriodDiffs][]float64
		for end < len(monthly) && monthly[end].ID == monthly[start].ID {
			diffs := periodDiffs(monthly[end].Means)
			for k, v := range diffs {
				series[k] = append(series[k], v)
			}
			end++
		}

		row := PeriodDeltas{ID: monthly[start].ID}
		for k := range series {
			row.Values[k] = nanMax(series[k])
		}
		deltas = append(deltas, row)
		start = end
	}
	return deltas
}

func periodDiffs(means [dataset.NumComponents]float64) [NumPeriodDiffs]float64 {
	var out [NumPeriodDiffs]float64
	for i, p := range periodPairs {
		out[i] = means[p.minuend] - means[p.subtrahend]
	}
	return out
}
