package quality

import (
	"fmt"

	"github.com/inferloop/autoeda/pkg/constants"
	"github.com/inferloop/autoeda/pkg/errors"
)

// Options holds the pipeline thresholds
type Options struct {
	NumericRatio         float64 `json:"numeric_ratio" mapstructure:"numeric_ratio"`
	DateLikeRatio        float64 `json:"date_like_ratio" mapstructure:"date_like_ratio"`
	DatetimeRatio        float64 `json:"datetime_ratio" mapstructure:"datetime_ratio"`
	CorrelationThreshold float64 `json:"correlation_threshold" mapstructure:"correlation_threshold"`
	SkewThreshold        float64 `json:"skew_threshold" mapstructure:"skew_threshold"`
	IQRMultiplier        float64 `json:"iqr_multiplier" mapstructure:"iqr_multiplier"`
}

// DefaultOptions returns the standard thresholds
func DefaultOptions() Options {
	return Options{
		NumericRatio:         constants.NumericRatioThreshold,
		DateLikeRatio:        constants.DateLikeRatioThreshold,
		DatetimeRatio:        constants.DatetimeRatioThreshold,
		CorrelationThreshold: constants.CorrelationThreshold,
		SkewThreshold:        constants.SkewThreshold,
		IQRMultiplier:        constants.IQRMultiplier,
	}
}

// Validate checks that every ratio lies in (0, 1] and the multipliers are positive
func (o Options) Validate() error {
	verrs := errors.NewValidationErrors("invalid pipeline options")
	ratios := map[string]float64{
		"numeric_ratio":         o.NumericRatio,
		"date_like_ratio":       o.DateLikeRatio,
		"datetime_ratio":        o.DatetimeRatio,
		"correlation_threshold": o.CorrelationThreshold,
	}
	for _, field := range []string{"numeric_ratio", "date_like_ratio", "datetime_ratio", "correlation_threshold"} {
		v := ratios[field]
		if v <= 0 || v > 1 {
			verrs.Add(field, errors.CodeInvalidParameter, fmt.Sprintf("must be in (0, 1], got %v", v), v)
		}
	}
	if o.SkewThreshold <= 0 {
		verrs.Add("skew_threshold", errors.CodeInvalidParameter, "must be positive", o.SkewThreshold)
	}
	if o.IQRMultiplier <= 0 {
		verrs.Add("iqr_multiplier", errors.CodeInvalidParameter, "must be positive", o.IQRMultiplier)
	}
	if verrs.HasErrors() {
		return verrs.AsAppError()
	}
	return nil
}
