package quality

import (
	"regexp"
	"strings"
	"time"

	"github.com/inferloop/autoeda/internal/tabular"
	"github.com/inferloop/autoeda/internal/utils/math"
	"github.com/inferloop/autoeda/pkg/constants"
	"github.com/inferloop/autoeda/pkg/models"
)

var dateLikePattern = regexp.MustCompile(`\d{2,4}[-/]\d{1,2}[-/]\d{1,2}`)

// datetimeLayouts are tried in order; naive values are read as UTC
var datetimeLayouts = []string{
	"2006-1-2",
	"2006/1/2",
	"2006-1-2 15:04:05",
	"2006-1-2T15:04:05",
	"2006-1-2 15:04",
	"2006-1-2T15:04",
	"2006/1/2 15:04:05",
	"2006/1/2 15:04",
	time.RFC3339Nano,
	"2006-1-2T15:04:05Z07:00",
	"2006-1-2 15:04:05Z07:00",
	"2006-1-2 15:04:05-0700",
	"2006-1-2 15:04:05 -0700",
	"1/2/2006",
	"1-2-2006",
	"1/2/2006 15:04:05",
	"1/2/2006 15:04",
	"1/2/06",
}

// ParseDatetime parses s against the supported layouts
func ParseDatetime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range datetimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// InferTypes converts text columns that are predominantly numeric or
// datetime. The input table is not modified.
func InferTypes(t *models.Table, opts Options) (*models.Table, []models.TypeConversion) {
	out := t
	conversions := []models.TypeConversion{}

	for i, col := range t.Columns {
		if col.Type != models.ColumnText {
			continue
		}
		nonMissing := len(col.Values) - col.MissingCount()
		if nonMissing == 0 {
			continue
		}

		if converted, ratio := coerceNumeric(col, nonMissing); ratio >= opts.NumericRatio {
			out = out.WithColumn(i, converted)
			conversions = append(conversions, models.TypeConversion{
				Column:     col.Name,
				From:       models.ColumnText,
				To:         models.ColumnNumeric,
				Confidence: math.Round(ratio, constants.ConfidenceDecimals),
			})
			continue
		}

		// parse datetimes only for columns that look date-like
		if dateLikeRatio(col, nonMissing) < opts.DateLikeRatio {
			continue
		}
		if converted, ratio := coerceDatetime(col, nonMissing); ratio >= opts.DatetimeRatio {
			out = out.WithColumn(i, converted)
			conversions = append(conversions, models.TypeConversion{
				Column:     col.Name,
				From:       models.ColumnText,
				To:         models.ColumnDatetime,
				Confidence: math.Round(ratio, constants.ConfidenceDecimals),
			})
		}
	}

	return out, conversions
}

func coerceNumeric(col *models.Column, nonMissing int) (*models.Column, float64) {
	values := make([]models.Value, len(col.Values))
	ok := 0
	for i, v := range col.Values {
		if v.IsMissing() {
			continue
		}
		if f, parsed := tabular.ParseNumber(v.Str); parsed {
			values[i] = models.Number(f)
			ok++
		}
	}
	return &models.Column{Name: col.Name, Type: models.ColumnNumeric, Values: values}, float64(ok) / float64(nonMissing)
}

func coerceDatetime(col *models.Column, nonMissing int) (*models.Column, float64) {
	values := make([]models.Value, len(col.Values))
	ok := 0
	for i, v := range col.Values {
		if v.IsMissing() {
			continue
		}
		if ts, parsed := ParseDatetime(v.Str); parsed {
			values[i] = models.Timestamp(ts)
			ok++
		}
	}
	return &models.Column{Name: col.Name, Type: models.ColumnDatetime, Values: values}, float64(ok) / float64(nonMissing)
}

func dateLikeRatio(col *models.Column, nonMissing int) float64 {
	matches := 0
	for _, v := range col.Values {
		if !v.IsMissing() && dateLikePattern.MatchString(v.Str) {
			matches++
		}
	}
	return float64(matches) / float64(nonMissing)
}
