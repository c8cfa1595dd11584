package dataset

import (
	"math"
	"time"
)

// DateLayout is the layout of every date column in both input tables
const DateLayout = "2006-01-02"

// Customer table columns
const (
	ColID            = "id"
	ColChannelSales  = "channel_sales"
	ColHasGas        = "has_gas"
	ColOriginUp      = "origin_up"
	ColChurn         = "churn"
	ColDateActiv     = "date_activ"
	ColDateEnd       = "date_end"
	ColDateModifProd = "date_modif_prod"
	ColDateRenewal   = "date_renewal"
)

// Price table columns
const (
	ColPriceDate       = "price_date"
	ColPriceOffPeakVar = "price_off_peak_var"
	ColPricePeakVar    = "price_peak_var"
	ColPriceMidPeakVar = "price_mid_peak_var"
	ColPriceOffPeakFix = "price_off_peak_fix"
	ColPricePeakFix    = "price_peak_fix"
	ColPriceMidPeakFix = "price_mid_peak_fix"
)

// PriceComponents lists the six price columns in storage order
var PriceComponents = []string{
	ColPriceOffPeakVar,
	ColPricePeakVar,
	ColPriceMidPeakVar,
	ColPriceOffPeakFix,
	ColPricePeakFix,
	ColPriceMidPeakFix,
}

// Component indexes into PriceObservation.Prices
const (
	OffPeakVar = iota
	PeakVar
	MidPeakVar
	OffPeakFix
	PeakFix
	MidPeakFix
	NumComponents
)

// CustomerRecord is one row of the customer table. Numeric fields that were
// empty in the source hold NaN.
type CustomerRecord struct {
	ID           string
	ChannelSales string
	HasGas       string
	OriginUp     string
	Churn        int

	// Zero when the source cell was empty
	DateActiv     time.Time
	DateEnd       time.Time
	DateModifProd time.Time
	DateRenewal   time.Time

	Cons12m                    float64
	ConsGas12m                 float64
	ConsLastMonth              float64
	ForecastCons12m            float64
	ForecastConsYear           float64
	ForecastDiscountEnergy     float64
	ForecastMeterRent12m       float64
	ForecastPriceEnergyOffPeak float64
	ForecastPriceEnergyPeak    float64
	ForecastPricePowOffPeak    float64
	ImpCons                    float64
	MarginGrossPowEle          float64
	MarginNetPowEle            float64
	NbProdAct                  float64
	NetMargin                  float64
	NumYearsAntig              float64
	PowMax                     float64
}

// NumericField binds a customer column name to its struct field
type NumericField struct {
	Name  string
	Value *float64
}

// NumericFields returns the numeric columns of c in feature-matrix order.
// The pointers alias c, so callers may write through them.
func (c *CustomerRecord) NumericFields() []NumericField {
	return []NumericField{
		{"cons_12m", &c.Cons12m},
		{"cons_gas_12m", &c.ConsGas12m},
		{"cons_last_month", &c.ConsLastMonth},
		{"forecast_cons_12m", &c.ForecastCons12m},
		{"forecast_cons_year", &c.ForecastConsYear},
		{"forecast_discount_energy", &c.ForecastDiscountEnergy},
		{"forecast_meter_rent_12m", &c.ForecastMeterRent12m},
		{"forecast_price_energy_off_peak", &c.ForecastPriceEnergyOffPeak},
		{"forecast_price_energy_peak", &c.ForecastPriceEnergyPeak},
		{"forecast_price_pow_off_peak", &c.ForecastPricePowOffPeak},
		{"imp_cons", &c.ImpCons},
		{"margin_gross_pow_ele", &c.MarginGrossPowEle},
		{"margin_net_pow_ele", &c.MarginNetPowEle},
		{"nb_prod_act", &c.NbProdAct},
		{"net_margin", &c.NetMargin},
		{"num_years_antig", &c.NumYearsAntig},
		{"pow_max", &c.PowMax},
	}
}

// Numeric returns the value of the named numeric column
func (c *CustomerRecord) Numeric(name string) (float64, bool) {
	for _, f := range c.NumericFields() {
		if f.Name == name {
			return *f.Value, true
		}
	}
	return math.NaN(), false
}

// NumericColumns returns the numeric customer column names in order
func NumericColumns() []string {
	var c CustomerRecord
	fields := c.NumericFields()
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name
	}
	return names
}

// PriceObservation is one row of the price table. Missing components are NaN.
type PriceObservation struct {
	ID     string
	Date   time.Time
	Prices [NumComponents]float64
}

// Month returns the first day of the observation's month
func (p PriceObservation) Month() time.Time {
	return time.Date(p.Date.Year(), p.Date.Month(), 1, 0, 0, 0, 0, time.UTC)
}
