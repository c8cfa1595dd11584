package features

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"churnlab/internal/dataset"
	apperrors "churnlab/internal/errors"
)

func TestSkewCorrect(t *testing.T) {
	tests := []struct {
		name    string
		in      float64
		want    float64
		wantErr bool
	}{
		{"zero", 0, 0, false},
		{"nine", 9, 1, false},
		{"ninety nine", 99, 2, false},
		{"lower bound", -0.5, math.Log10(0.5), false},
		{"below domain", -1.5, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SkewCorrect(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, apperrors.IsType(err, apperrors.ErrTypeNumericDomain))
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-12)
		})
	}

	t.Run("NaN propagates", func(t *testing.T) {
		got, err := SkewCorrect(math.NaN())
		require.NoError(t, err)
		assert.True(t, math.IsNaN(got))
	})

	t.Run("strictly increasing over the domain", func(t *testing.T) {
		xs := []float64{-0.99, -0.9, -0.5, -0.1, 0}
		for x := 1e-3; x <= 1e6; x *= 1.5 {
			xs = append(xs, x)
		}
		xs = append(xs, 1e6)

		prev := math.Inf(-1)
		for _, x := range xs {
			got, err := SkewCorrect(x)
			require.NoError(t, err, "x=%g", x)
			assert.False(t, math.IsInf(got, 0), "x=%g", x)
			assert.Greater(t, got, prev, "x=%g", x)
			prev = got
		}
	})
}

func TestCorrectRecord(t *testing.T) {
	rec := dataset.CustomerRecord{ID: "c1", Cons12m: 9, ConsGas12m: 0, ImpCons: 9, NetMargin: 99}

	out, err := CorrectRecord(rec)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, out.Cons12m, 1e-12)
	assert.Equal(t, 0.0, out.ConsGas12m)
	assert.Equal(t, 9.0, out.ImpCons, "imp_cons is not in the skewed set")
	assert.Equal(t, 99.0, out.NetMargin)
	assert.Equal(t, 9.0, rec.Cons12m, "input record is not modified")

	rec.ForecastMeterRent12m = -3
	_, err = CorrectRecord(rec)
	require.Error(t, err)
	appErr := apperrors.Locate(err)
	require.NotNil(t, appErr)
	assert.Equal(t, "c1", appErr.Record)
	assert.Equal(t, "forecast_meter_rent_12m", appErr.Column)
}
