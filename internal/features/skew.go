package features

import (
	"fmt"
	"math"

	"churnlab/internal/dataset"
	apperrors "churnlab/internal/errors"
)

// SkewedColumns are the heavy-tailed customer fields that are log-transformed
var SkewedColumns = []string{
	"cons_12m",
	"cons_gas_12m",
	"cons_last_month",
	"forecast_cons_12m",
	"forecast_cons_year",
	"forecast_discount_energy",
	"forecast_meter_rent_12m",
	"forecast_price_energy_off_peak",
	"forecast_price_energy_peak",
	"forecast_price_pow_off_peak",
}

// SkewCorrect returns log10(x+1). Values below -1 are outside the domain;
// NaN propagates.
func SkewCorrect(x float64) (float64, error) {
	if math.IsNaN(x) {
		return x, nil
	}
	if x < -1 {
		return 0, apperrors.NewNumericDomainError(fmt.Sprintf("log10(x+1) undefined for x=%g", x))
	}
	return math.Log10(x + 1), nil
}

// CorrectRecord returns a copy of rec with every SkewedColumns field
// transformed. Errors name the customer and the column.
func CorrectRecord(rec dataset.CustomerRecord) (dataset.CustomerRecord, error) {
	out := rec
	skewed := make(map[string]bool, len(SkewedColumns))
	for _, c := range SkewedColumns {
		skewed[c] = true
	}

	for _, f := range out.NumericFields() {
		if !skewed[f.Name] {
			continue
		}
		v, err := SkewCorrect(*f.Value)
		if err != nil {
			return rec, apperrors.Locate(err).WithRecord(rec.ID).WithColumn(f.Name)
		}
		*f.Value = v
	}
	return out, nil
}
