package features

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"churnlab/internal/dataset"
	apperrors "churnlab/internal/errors"
)

// Contract date feature columns
const (
	ColTenure          = "tenure"
	ColMonthsActiv     = "months_activ"
	ColMonthsToEnd     = "months_to_end"
	ColMonthsModifProd = "months_modif_prod"
	ColMonthsRenewal   = "months_renewal"
)

const (
	daysPerYear  = 365.2425
	daysPerMonth = daysPerYear / 12
)

// Assembler joins customers with their price features and encodes the
// result into a Matrix
type Assembler struct {
	referenceDate time.Time
	channels      *OneHotEncoder
	origins       *OneHotEncoder
	logger        *slog.Logger
}

// NewAssembler creates an assembler. referenceDate anchors the months_*
// contract features.
func NewAssembler(referenceDate time.Time, logger *slog.Logger) *Assembler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Assembler{
		referenceDate: referenceDate,
		channels:      NewChannelEncoder(),
		origins:       NewOriginEncoder(),
		logger:        logger,
	}
}

// Columns returns the matrix column order
func (a *Assembler) Columns() []string {
	cols := dataset.NumericColumns()
	cols = append(cols, ColHasGas,
		ColTenure, ColMonthsActiv, ColMonthsToEnd, ColMonthsModifProd, ColMonthsRenewal,
		ColOffpeakDiffDecJanEnergy, ColOffpeakDiffDecJanPower)
	cols = append(cols, PeriodDiffColumns(MeanDiffSuffix)...)
	cols = append(cols, PeriodDiffColumns(MaxMonthlyDiffSuffix)...)
	cols = append(cols, a.channels.Columns()...)
	cols = append(cols, a.origins.Columns()...)
	return append(cols, LabelColumn)
}

// Assemble inner-joins customers with the Dec/Jan, yearly-mean and
// max-monthly tables on customer id, then encodes categories and corrects
// skew. Customers missing from any price table are left out. Duplicate ids
// on either side of a join are a JoinIntegrityError.
func (a *Assembler) Assemble(ctx context.Context, customers []dataset.CustomerRecord, deltas *PriceDeltaFeatures) (*Matrix, error) {
	if _, err := indexCustomers(customers); err != nil {
		return nil, err
	}
	decJan, err := indexDecJan(deltas.DecJan)
	if err != nil {
		return nil, err
	}
	meanDiffs, err := indexPeriodDeltas(deltas.MeanDiffs, "mean_diffs")
	if err != nil {
		return nil, err
	}
	maxDiffs, err := indexPeriodDeltas(deltas.MaxMonthlyDiffs, "max_monthly_diffs")
	if err != nil {
		return nil, err
	}

	m := &Matrix{Columns: a.Columns()}
	excluded := 0
	for _, c := range customers {
		dj, ok1 := decJan[c.ID]
		md, ok2 := meanDiffs[c.ID]
		xd, ok3 := maxDiffs[c.ID]
		if !ok1 || !ok2 || !ok3 {
			excluded++
			continue
		}

		row, err := a.buildRow(c, dj, md, xd)
		if err != nil {
			return nil, err
		}
		if len(row) != len(m.Columns) {
			return nil, apperrors.NewJoinIntegrityError(
				fmt.Sprintf("row has %d values, expected %d", len(row), len(m.Columns))).WithRecord(c.ID)
		}
		m.IDs = append(m.IDs, c.ID)
		m.Rows = append(m.Rows, row)
	}

	a.logger.InfoContext(ctx, "feature matrix assembled",
		slog.Int("customers", len(customers)),
		slog.Int("rows", m.Len()),
		slog.Int("columns", len(m.Columns)),
		slog.Int("excluded_without_price_history", excluded),
		slog.String("channel_schema", ChannelSchemaVersion))

	return m, nil
}

func (a *Assembler) buildRow(c dataset.CustomerRecord, dj DecJanDelta, md, xd PeriodDeltas) ([]float64, error) {
	corrected, err := CorrectRecord(c)
	if err != nil {
		return nil, err
	}

	gas, err := EncodeGasFlag(c.HasGas)
	if err != nil {
		return nil, apperrors.Locate(err).WithRecord(c.ID)
	}

	row := make([]float64, 0, 64)
	for _, f := range corrected.NumericFields() {
		row = append(row, *f.Value)
	}
	row = append(row, gas,
		yearsBetween(c.DateActiv, c.DateEnd),
		monthsBetween(c.DateActiv, a.referenceDate),
		monthsBetween(a.referenceDate, c.DateEnd),
		monthsBetween(c.DateModifProd, a.referenceDate),
		monthsBetween(c.DateRenewal, a.referenceDate),
		dj.Energy, dj.Power)
	row = append(row, md.Values[:]...)
	row = append(row, xd.Values[:]...)
	row = append(row, a.channels.Encode(c.ChannelSales)...)
	row = append(row, a.origins.Encode(c.OriginUp)...)
	row = append(row, float64(c.Churn))
	return row, nil
}

// yearsBetween is the whole number of years from start to end, NaN when
// either date is unknown
func yearsBetween(start, end time.Time) float64 {
	if start.IsZero() || end.IsZero() {
		return math.NaN()
	}
	return math.Trunc(end.Sub(start).Hours() / 24 / daysPerYear)
}

// monthsBetween is the whole number of months from start to end, NaN when
// either date is unknown
func monthsBetween(start, end time.Time) float64 {
	if start.IsZero() || end.IsZero() {
		return math.NaN()
	}
	return math.Trunc(end.Sub(start).Hours() / 24 / daysPerMonth)
}

func indexCustomers(customers []dataset.CustomerRecord) (map[string]int, error) {
	idx := make(map[string]int, len(customers))
	for i, c := range customers {
		if _, dup := idx[c.ID]; dup {
			return nil, apperrors.NewJoinIntegrityError("duplicate customer id").
				WithRecord(c.ID).WithContext("table", "customers")
		}
		idx[c.ID] = i
	}
	return idx, nil
}

func indexDecJan(rows []DecJanDelta) (map[string]DecJanDelta, error) {
	idx := make(map[string]DecJanDelta, len(rows))
	for _, r := range rows {
		if _, dup := idx[r.ID]; dup {
			return nil, apperrors.NewJoinIntegrityError("duplicate customer id").
				WithRecord(r.ID).WithContext("table", "dec_january")
		}
		idx[r.ID] = r
	}
	return idx, nil
}

func indexPeriodDeltas(rows []PeriodDeltas, table string) (map[string]PeriodDeltas, error) {
	idx := make(map[string]PeriodDeltas, len(rows))
	for _, r := range rows {
		if _, dup := idx[r.ID]; dup {
			return nil, apperrors.NewJoinIntegrityError("duplicate customer id").
				WithRecord(r.ID).WithContext("table", table)
		}
		idx[r.ID] = r
	}
	return idx, nil
}
