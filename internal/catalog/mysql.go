package catalog

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/iliyamo/restaurant-reservation/internal/model"
)

// restaurantsQuery reads the restaurants table.  Hours are formatted as
// HH:MM regardless of whether the columns are TIME or VARCHAR.  Nullable
// columns come back as empty strings so a NULL fails row validation rather
// than the scan.
const restaurantsQuery = `SELECT id, COALESCE(name, ''), COALESCE(cuisine, ''), COALESCE(location, ''),
       COALESCE(price_range, ''), COALESCE(capacity, ''), COALESCE(rating, ''),
       COALESCE(TIME_FORMAT(opening_time, '%H:%i'), ''), COALESCE(TIME_FORMAT(closing_time, '%H:%i'), ''),
       COALESCE(special_features, '')
FROM restaurants
ORDER BY id`

// LoadFromDB reads the catalog from the restaurants table.  The rows pass
// through the same parsing and validation as the CSV loader.
func LoadFromDB(ctx context.Context, db *sql.DB) (*Catalog, error) {
	rows, err := db.QueryContext(ctx, restaurantsQuery)
	if err != nil {
		return nil, fmt.Errorf("query restaurants: %w", err)
	}
	defer rows.Close()

	var out []model.Restaurant
	n := 0
	for rows.Next() {
		n++
		vals := make([]string, len(columns))
		dest := make([]any, len(columns))
		for i := range vals {
			dest[i] = &vals[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan restaurant row %d: %w", n, err)
		}
		byName := make(map[string]string, len(columns))
		for i, col := range columns {
			byName[col] = vals[i]
		}
		r, err := rowFromFields(func(name string) string { return byName[name] })
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: %v", ErrInvalidRow, n, err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate restaurants: %w", err)
	}
	return New(out)
}
