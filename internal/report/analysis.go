package report

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"churnlab/internal/classifier"
	"churnlab/internal/dataset"
	apperrors "churnlab/internal/errors"
)

// DefaultBins is the histogram resolution of the distribution charts
const DefaultBins = 50

// Series names shared by every churn breakdown
const (
	SeriesRetention = "Retention"
	SeriesChurn     = "Churn"
)

// ConsumptionColumns are the usage fields charted during analysis
var ConsumptionColumns = []string{"cons_12m", "cons_gas_12m", "cons_last_month", "imp_cons"}

// Analyse records the exploratory charts for the raw customer table:
// overall churn share, churn share by sales channel and by gas contract,
// churn-stacked consumption histograms and their spread.
func Analyse(ctx context.Context, r Reporter, customers []dataset.CustomerRecord) error {
	share, err := ChurnShare(customers)
	if err != nil {
		return err
	}
	specs := []ChartSpec{share}

	channel, err := ChurnByCategory("channel_churn", "Sales channel", dataset.ColChannelSales, customers,
		func(c *dataset.CustomerRecord) string { return c.ChannelSales })
	if err != nil {
		return err
	}
	specs = append(specs, channel)

	gas, err := ChurnByCategory("gas_churn", "Contract type (with gas)", dataset.ColHasGas, customers,
		func(c *dataset.CustomerRecord) string { return c.HasGas })
	if err != nil {
		return err
	}
	specs = append(specs, gas)

	dists, err := consumptionHistograms(customers, "", "")
	if err != nil {
		return err
	}
	specs = append(specs, dists...)

	spread, err := Spread("consumption_spread", "Consumption spread", customers, ConsumptionColumns)
	if err != nil {
		return err
	}
	specs = append(specs, spread)

	return recordAll(ctx, r, specs)
}

// AnalyseCorrected records the consumption histograms after skew correction
func AnalyseCorrected(ctx context.Context, r Reporter, corrected []dataset.CustomerRecord) error {
	specs, err := consumptionHistograms(corrected, "_log", " (log10)")
	if err != nil {
		return err
	}
	return recordAll(ctx, r, specs)
}

// ImportanceChart draws the feature ranking as horizontal bars
func ImportanceChart(scores []classifier.FeatureScore) ChartSpec {
	spec := ChartSpec{
		Name:          "feature_importance",
		Title:         "Feature importance",
		Kind:          Bar,
		CategoryLabel: "feature",
		ValueLabel:    "importance",
		Categories:    make([]string, len(scores)),
		Series:        []Series{{Name: "importance", Values: make([]float64, len(scores))}},
	}
	for i, s := range scores {
		spec.Categories[i] = s.Name
		spec.Series[0].Values[i] = s.Score
	}
	return spec
}

// ChurnShare gives the percentage of retained and churned companies
func ChurnShare(customers []dataset.CustomerRecord) (ChartSpec, error) {
	var counts [2]float64
	for i := range customers {
		counts[customers[i].Churn]++
	}
	pct, err := percentages(counts)
	if err != nil {
		return ChartSpec{}, err
	}
	return ChartSpec{
		Name:          "churn_share",
		Title:         "Churning status",
		Kind:          StackedColumn,
		CategoryLabel: "Companies",
		ValueLabel:    "Company base (%)",
		Categories:    []string{"Companies"},
		Series: []Series{
			{Name: SeriesRetention, Values: []float64{pct[0]}},
			{Name: SeriesChurn, Values: []float64{pct[1]}},
		},
	}, nil
}

// ChurnByCategory gives, per value of key, the percentage of retained and
// churned companies. Categories are ordered by churn share, highest first.
func ChurnByCategory(name, title, label string, customers []dataset.CustomerRecord,
	key func(*dataset.CustomerRecord) string) (ChartSpec, error) {

	counts := make(map[string]*[2]float64)
	for i := range customers {
		k := key(&customers[i])
		if k == "" {
			k = "(empty)"
		}
		if counts[k] == nil {
			counts[k] = new([2]float64)
		}
		counts[k][customers[i].Churn]++
	}

	type row struct {
		category string
		pct      [2]float64
	}
	rows := make([]row, 0, len(counts))
	for k, c := range counts {
		pct, err := percentages(*c)
		if err != nil {
			return ChartSpec{}, apperrors.Locate(err).WithColumn(label).WithContext("category", k)
		}
		rows = append(rows, row{k, pct})
	}
	if len(rows) == 0 {
		return ChartSpec{}, apperrors.NewNumericDomainError("no customers to break down").WithColumn(label)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].pct[1] != rows[j].pct[1] {
			return rows[i].pct[1] > rows[j].pct[1]
		}
		return rows[i].category < rows[j].category
	})

	spec := ChartSpec{
		Name:          name,
		Title:         title,
		Kind:          StackedColumn,
		CategoryLabel: label,
		ValueLabel:    "Company base (%)",
		Series: []Series{
			{Name: SeriesRetention, Values: make([]float64, len(rows))},
			{Name: SeriesChurn, Values: make([]float64, len(rows))},
		},
	}
	for i, r := range rows {
		spec.Categories = append(spec.Categories, r.category)
		spec.Series[0].Values[i] = r.pct[0]
		spec.Series[1].Values[i] = r.pct[1]
	}
	return spec, nil
}

// Distribution is a histogram of column with retained and churned companies
// stacked in each bin. Empty cells are skipped; keep filters the rows.
func Distribution(name, column string, customers []dataset.CustomerRecord, bins int,
	keep func(*dataset.CustomerRecord) bool) (ChartSpec, error) {

	if bins < 1 {
		return ChartSpec{}, fmt.Errorf("histogram of %s needs at least one bin, got %d", column, bins)
	}
	var classes [2][]float64
	for i := range customers {
		c := &customers[i]
		if keep != nil && !keep(c) {
			continue
		}
		v, ok := c.Numeric(column)
		if !ok {
			return ChartSpec{}, apperrors.NewInputFormatError("unknown numeric column", nil).WithColumn(column)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		classes[c.Churn] = append(classes[c.Churn], v)
	}

	all := append(append([]float64(nil), classes[0]...), classes[1]...)
	if len(all) == 0 {
		return ChartSpec{}, apperrors.NewNumericDomainError("no values to bin").WithColumn(column)
	}
	dividers := binEdges(floats.Min(all), floats.Max(all), bins)

	spec := ChartSpec{
		Name:          name,
		Title:         column,
		Kind:          StackedColumn,
		CategoryLabel: column,
		ValueLabel:    "Frequency",
		Categories:    make([]string, bins),
	}
	for i := 0; i < bins; i++ {
		spec.Categories[i] = strconv.FormatFloat(dividers[i], 'g', 4, 64)
	}
	for cls, label := range []string{SeriesRetention, SeriesChurn} {
		sort.Float64s(classes[cls])
		spec.Series = append(spec.Series, Series{
			Name:   label,
			Values: stat.Histogram(nil, dividers, classes[cls], nil),
		})
	}
	return spec, nil
}

// Spread summarises each column by its minimum, quartiles and maximum, the
// numbers behind a box plot
func Spread(name, title string, customers []dataset.CustomerRecord, columns []string) (ChartSpec, error) {
	stats := []struct {
		label string
		p     float64
	}{
		{"Min", 0}, {"Q1", 0.25}, {"Median", 0.5}, {"Q3", 0.75}, {"Max", 1},
	}

	spec := ChartSpec{
		Name:          name,
		Title:         title,
		Kind:          Column,
		CategoryLabel: "column",
		ValueLabel:    "value",
		Categories:    columns,
		Series:        make([]Series, len(stats)),
	}
	for k, s := range stats {
		spec.Series[k] = Series{Name: s.label, Values: make([]float64, len(columns))}
	}

	for j, column := range columns {
		var values []float64
		for i := range customers {
			if v, ok := customers[i].Numeric(column); ok && !math.IsNaN(v) {
				values = append(values, v)
			}
		}
		if len(values) == 0 {
			return ChartSpec{}, apperrors.NewNumericDomainError("no values to summarise").WithColumn(column)
		}
		sort.Float64s(values)
		for k, s := range stats {
			spec.Series[k].Values[j] = stat.Quantile(s.p, stat.Empirical, values, nil)
		}
	}
	return spec, nil
}

func consumptionHistograms(customers []dataset.CustomerRecord, suffix, titleSuffix string) ([]ChartSpec, error) {
	hasGas := func(c *dataset.CustomerRecord) bool { return c.HasGas == "t" }

	specs := make([]ChartSpec, 0, len(ConsumptionColumns))
	for _, column := range ConsumptionColumns {
		var keep func(*dataset.CustomerRecord) bool
		if column == "cons_gas_12m" {
			keep = hasGas
		}
		spec, err := Distribution(column+suffix, column, customers, DefaultBins, keep)
		if err != nil {
			return nil, err
		}
		spec.Title = column + titleSuffix
		specs = append(specs, spec)
	}
	return specs, nil
}

// binEdges returns bins+1 ascending dividers covering [lo, hi]. The top edge
// is nudged up so hi lands in the last bin.
func binEdges(lo, hi float64, bins int) []float64 {
	if hi <= lo {
		hi = lo + 1
	}
	dividers := floats.Span(make([]float64, bins+1), lo, hi)
	dividers[bins] = math.Nextafter(hi, math.Inf(1))
	return dividers
}

// percentages converts class counts into shares of their total
func percentages(counts [2]float64) ([2]float64, error) {
	total := counts[0] + counts[1]
	if total == 0 {
		return [2]float64{}, apperrors.NewNumericDomainError("percentage of an empty group")
	}
	return [2]float64{counts[0] / total * 100, counts[1] / total * 100}, nil
}

func recordAll(ctx context.Context, r Reporter, specs []ChartSpec) error {
	for _, spec := range specs {
		if err := r.Record(ctx, spec); err != nil {
			return fmt.Errorf("record %s: %w", spec.Name, err)
		}
	}
	return nil
}
