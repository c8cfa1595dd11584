package features

import (
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"churnlab/internal/dataset"
	apperrors "churnlab/internal/errors"
)

// MonthlyPriceAggregate is the mean of each price component for one customer
// and one calendar month. A component with no readings in the month is NaN.
type MonthlyPriceAggregate struct {
	ID    string
	Month time.Time
	Means [dataset.NumComponents]float64
}

// YearlyPriceAggregate is the mean of each price component over all of a
// customer's observations.
type YearlyPriceAggregate struct {
	ID    string
	Means [dataset.NumComponents]float64
}

// MonthPair holds a customer's chronologically first and last monthly
// aggregates. With one year of monthly data these are January and December.
type MonthPair struct {
	ID    string
	First MonthlyPriceAggregate
	Last  MonthlyPriceAggregate
}

type monthKey struct {
	id    string
	month time.Time
}

// componentSeries collects readings per component for one group
type componentSeries [dataset.NumComponents][]float64

func (s *componentSeries) add(prices [dataset.NumComponents]float64) {
	for i, v := range prices {
		if !math.IsNaN(v) {
			s[i] = append(s[i], v)
		}
	}
}

func (s *componentSeries) means() [dataset.NumComponents]float64 {
	var out [dataset.NumComponents]float64
	for i, values := range s {
		out[i] = nanMean(values)
	}
	return out
}

// AggregateMonthly groups observations by (customer, month) and averages
// each component, collapsing duplicate readings. The result has exactly one
// row per distinct (id, month) pair, ordered by id then month.
func AggregateMonthly(observations []dataset.PriceObservation) ([]MonthlyPriceAggregate, error) {
	groups := make(map[monthKey]*componentSeries)
	for _, obs := range observations {
		if obs.Date.IsZero() {
			return nil, apperrors.NewInputFormatError("observation without date", nil).
				WithRecord(obs.ID).WithColumn(dataset.ColPriceDate)
		}
		key := monthKey{id: obs.ID, month: obs.Month()}
		series, ok := groups[key]
		if !ok {
			series = &componentSeries{}
			groups[key] = series
		}
		series.add(obs.Prices)
	}

	monthly := make([]MonthlyPriceAggregate, 0, len(groups))
	for key, series := range groups {
		monthly = append(monthly, MonthlyPriceAggregate{
			ID:    key.id,
			Month: key.month,
			Means: series.means(),
		})
	}
	sort.Slice(monthly, func(i, j int) bool {
		if monthly[i].ID != monthly[j].ID {
			return monthly[i].ID < monthly[j].ID
		}
		return monthly[i].Month.Before(monthly[j].Month)
	})

	return monthly, nil
}

// AggregateYearly averages every component over each customer's full history
func AggregateYearly(observations []dataset.PriceObservation) []YearlyPriceAggregate {
	groups := make(map[string]*componentSeries)
	for _, obs := range observations {
		series, ok := groups[obs.ID]
		if !ok {
			series = &componentSeries{}
			groups[obs.ID] = series
		}
		series.add(obs.Prices)
	}

	yearly := make([]YearlyPriceAggregate, 0, len(groups))
	for id, series := range groups {
		yearly = append(yearly, YearlyPriceAggregate{ID: id, Means: series.means()})
	}
	sort.Slice(yearly, func(i, j int) bool { return yearly[i].ID < yearly[j].ID })

	return yearly
}

// FirstLast returns, per customer, the first and last monthly aggregate.
// monthly must be ordered as AggregateMonthly returns it. Customers with
// fewer than two distinct months have no pair.
func FirstLast(monthly []MonthlyPriceAggregate) []MonthPair {
	var pairs []MonthPair
	for start := 0; start < len(monthly); {
		end := start
		for end < len(monthly) && monthly[end].ID == monthly[start].ID {
			end++
		}
		if end-start >= 2 {
			pairs = append(pairs, MonthPair{
				ID:    monthly[start].ID,
				First: monthly[start],
				Last:  monthly[end-1],
			})
		}
		start = end
	}
	return pairs
}

// nanMean is the mean of values, or NaN when there are none
func nanMean(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	return stat.Mean(values, nil)
}

// nanMax is the maximum of the non-NaN values, or NaN when all are NaN
func nanMax(values []float64) float64 {
	present := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			present = append(present, v)
		}
	}
	if len(present) == 0 {
		return math.NaN()
	}
	return floats.Max(present)
}
