package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/iliyamo/restaurant-reservation/internal/model"
)

// columns lists the catalog columns.  special_features is the only optional one.
var columns = []string{
	"id", "name", "cuisine", "location", "price_range",
	"capacity", "rating", "opening_time", "closing_time", "special_features",
}

// LoadCSV reads the catalog from a CSV file with a header row.
func LoadCSV(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()
	return ReadCSV(f)
}

// ReadCSV parses catalog rows from r.  Columns are located by header name,
// so their order in the file does not matter.
func ReadCSV(r io.Reader) (*Catalog, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: missing header", ErrInvalidRow)
		}
		return nil, fmt.Errorf("read catalog header: %w", err)
	}
	pos := make(map[string]int, len(header))
	for i, h := range header {
		pos[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	for _, col := range columns[:len(columns)-1] {
		if _, ok := pos[col]; !ok {
			return nil, fmt.Errorf("%w: missing column %q", ErrInvalidRow, col)
		}
	}

	var rows []model.Restaurant
	line := 1
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("read catalog line %d: %w", line, err)
		}
		field := func(name string) string {
			i, ok := pos[name]
			if !ok || i >= len(rec) {
				return ""
			}
			return strings.TrimSpace(rec[i])
		}
		row, err := rowFromFields(field)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrInvalidRow, line, err)
		}
		rows = append(rows, row)
	}
	return New(rows)
}

// rowFromFields converts raw column text into a Restaurant.  Shared by the
// CSV and SQL loaders so both apply identical parsing.
func rowFromFields(field func(string) string) (model.Restaurant, error) {
	id, err := strconv.Atoi(field("id"))
	if err != nil {
		return model.Restaurant{}, fmt.Errorf("id: %w", err)
	}
	capacity, err := strconv.Atoi(field("capacity"))
	if err != nil {
		return model.Restaurant{}, fmt.Errorf("capacity: %w", err)
	}
	rating, err := strconv.ParseFloat(field("rating"), 64)
	if err != nil {
		return model.Restaurant{}, fmt.Errorf("rating: %w", err)
	}
	price, err := model.ParsePriceRange(field("price_range"))
	if err != nil {
		return model.Restaurant{}, err
	}
	return model.Restaurant{
		ID:              id,
		Name:            field("name"),
		Cuisine:         field("cuisine"),
		Location:        field("location"),
		PriceRange:      price,
		Capacity:        capacity,
		Rating:          rating,
		OpeningTime:     field("opening_time"),
		ClosingTime:     field("closing_time"),
		SpecialFeatures: field("special_features"),
	}, nil
}
