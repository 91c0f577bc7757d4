package utils

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecimalToCents(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    int64
		wantErr error
	}{
		{"whole dollars", "500", 50000, nil},
		{"two decimals", "500.00", 50000, nil},
		{"cents", "12.34", 1234, nil},
		{"zero", "0", 0, nil},
		{"trailing zeros beyond cents", "1.2300", 123, nil},
		{"sub cent", "1.234", 0, ErrAmountTooPrecise},
		{"negative", "-1", 0, ErrAmountNegative},
		{"at limit", "999999.99", MaxAmountCents, nil},
		{"above limit", "1000000.00", 0, ErrAmountTooLarge},
		{"overflowing", "92233720368547758.08", 0, ErrAmountTooLarge},
		{"exponent form", "1.5e3", 150000, nil},
		{"exponent form above limit", "1e7", 0, ErrAmountTooLarge},
		{"huge exponent", "1e100000000", 0, ErrAmountTooLarge},
		{"tiny exponent", "1e-100000000", 0, ErrAmountTooPrecise},
		{"zero with tiny exponent", "0e-100000000", 0, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecimalToCents(decimal.RequireFromString(tt.in))
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPositiveCentsExtremeExponentsReturnPromptly(t *testing.T) {
	for _, raw := range []string{"1e100000000", "1e-100000000"} {
		done := make(chan error, 1)
		go func() {
			_, err := PositiveCents(decimal.RequireFromString(raw))
			done <- err
		}()
		select {
		case err := <-done:
			assert.Error(t, err, raw)
		case <-time.After(2 * time.Second):
			t.Fatalf("PositiveCents(%s) did not return", raw)
		}
	}
}

func TestPositiveCentsRejectsZero(t *testing.T) {
	_, err := PositiveCents(decimal.Zero)
	require.ErrorIs(t, err, ErrAmountNotPositive)

	cents, err := PositiveCents(decimal.RequireFromString("0.01"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), cents)
}

func TestCentsToDecimal(t *testing.T) {
	assert.Equal(t, "500.00", CentsToDecimal(50000).StringFixed(2))
	assert.Equal(t, "0.07", CentsToDecimal(7).StringFixed(2))
}
