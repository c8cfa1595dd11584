// Package features turns the raw customer and price tables into the numeric
// feature matrix the churn classifier trains on.
//
// The stages run leaf first:
//
//	AggregateMonthly / AggregateYearly   price observations -> per-period means
//	BuildPriceDeltas                     Dec/Jan, yearly-mean and max-monthly deltas
//	EncodeGasFlag / OneHotEncoder        categorical columns -> indicators
//	SkewCorrect                          log10(x+1) on heavy-tailed fields
//	Assembler                            inner joins on customer id -> Matrix
//
// Every derived table is computed once and never mutated. Missing readings
// stay NaN all the way through; deciding what to do with them is the
// classifier's job.
package features
