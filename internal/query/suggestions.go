package query

import (
	"fmt"

	"github.com/inferloop/autoeda/pkg/models"
)

// BuildSuggestions returns starter queries for the dataset table
func BuildSuggestions(table *models.Table) []models.QuerySuggestion {
	numeric := table.ColumnsOfType(models.ColumnNumeric)
	categorical := table.ColumnsOfType(models.ColumnText, models.ColumnBoolean)
	names := sqlNames(table)

	suggestions := []models.QuerySuggestion{
		{Name: "Preview rows", SQL: "SELECT * FROM dataset LIMIT 25"},
		{Name: "Row count", SQL: "SELECT COUNT(*) AS row_count FROM dataset"},
	}

	if len(numeric) > 0 {
		n := sqlIdent(names[numeric[0]])
		suggestions = append(suggestions, models.QuerySuggestion{
			Name: "Distribution stats for " + numeric[0].Name,
			SQL: fmt.Sprintf("SELECT MIN(%s) AS min_value, AVG(%s) AS avg_value, MAX(%s) AS max_value FROM dataset",
				n, n, n),
		})
	}

	if len(categorical) > 0 && len(numeric) > 0 {
		c := sqlIdent(names[categorical[0]])
		suggestions = append(suggestions, models.QuerySuggestion{
			Name: "Grouped mean by " + categorical[0].Name,
			SQL: fmt.Sprintf("SELECT %s, AVG(%s) AS avg_metric FROM dataset GROUP BY %s ORDER BY avg_metric DESC LIMIT 20",
				c, sqlIdent(names[numeric[0]]), c),
		})
	}

	if len(numeric) >= 2 {
		a, b := sqlIdent(names[numeric[0]]), sqlIdent(names[numeric[1]])
		// SQLite has no CORR aggregate
		suggestions = append(suggestions, models.QuerySuggestion{
			Name: fmt.Sprintf("Correlation proxy: %s vs %s", numeric[0].Name, numeric[1].Name),
			SQL: fmt.Sprintf("SELECT (AVG(%[1]s * %[2]s) - AVG(%[1]s) * AVG(%[2]s)) / "+
				"(SQRT(AVG(%[1]s * %[1]s) - AVG(%[1]s) * AVG(%[1]s)) * SQRT(AVG(%[2]s * %[2]s) - AVG(%[2]s) * AVG(%[2]s))) "+
				"AS correlation_value FROM dataset WHERE %[1]s IS NOT NULL AND %[2]s IS NOT NULL", a, b),
		})
	}

	return suggestions
}
