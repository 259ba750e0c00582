package catalog

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/restaurant-reservation/internal/model"
)

const sampleCSV = `id,name,cuisine,location,price_range,capacity,rating,opening_time,closing_time,special_features
1,Bella Notte,Italian,Downtown,$$,40,4.5,11:00,22:00,"Outdoor seating, Wine bar"
2,Sakura House,Japanese,Uptown,$$$,25,4.8,12:00,23:00,Sushi bar
3,Casa Verde,Mexican,downtown east,$,60,4.1,10:00,21:00,
4,Le Jardin,French Fusion,Riverside,$$$$,20,4.8,17:00,23:30,Tasting menu
`

func loadSample(t *testing.T) *Catalog {
	t.Helper()
	c, err := ReadCSV(strings.NewReader(sampleCSV))
	require.NoError(t, err)
	return c
}

func TestReadCSV(t *testing.T) {
	c := loadSample(t)
	require.Equal(t, 4, c.Len())

	r, ok := c.ByID(1)
	require.True(t, ok)
	assert.Equal(t, "Bella Notte", r.Name)
	assert.Equal(t, model.PriceModerate, r.PriceRange)
	assert.Equal(t, 40, r.Capacity)
	assert.InDelta(t, 4.5, r.Rating, 1e-9)
	assert.Equal(t, []string{"Outdoor seating", "Wine bar"}, r.Features())

	_, ok = c.ByID(99)
	assert.False(t, ok)
	_, err := c.Get(99)
	assert.ErrorIs(t, err, ErrRestaurantNotFound)
}

func TestReadCSV_ColumnOrderIndependent(t *testing.T) {
	in := "name,id,capacity,rating,price_range,opening_time,closing_time,cuisine,location\n" +
		"Bistro,7,12,3.9,$$,08:00,15:00,Cafe,Old Town\n"
	c, err := ReadCSV(strings.NewReader(in))
	require.NoError(t, err)
	r, ok := c.ByID(7)
	require.True(t, ok)
	assert.Equal(t, "Bistro", r.Name)
	assert.Equal(t, "", r.SpecialFeatures)
}

func TestReadCSV_Rejects(t *testing.T) {
	header := "id,name,cuisine,location,price_range,capacity,rating,opening_time,closing_time,special_features\n"
	cases := map[string]string{
		"empty":          "",
		"missing column": "id,name\n1,x\n",
		"bad capacity":   header + "1,A,Thai,X,$$,lots,4,11:00,22:00,\n",
		"zero capacity":  header + "1,A,Thai,X,$$,0,4,11:00,22:00,\n",
		"bad tier":       header + "1,A,Thai,X,cheap,10,4,11:00,22:00,\n",
		"duplicate id":   header + "1,A,Thai,X,$$,10,4,11:00,22:00,\n1,B,Thai,X,$$,10,4,11:00,22:00,\n",
		"hours inverted": header + "1,A,Thai,X,$$,10,4,22:00,11:00,\n",
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ReadCSV(strings.NewReader(in))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidRow), "got %v", err)
		})
	}
}

func TestLoadCSV_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "restaurants.csv")
	require.NoError(t, os.WriteFile(path, []byte(sampleCSV), 0o644))

	c, err := LoadCSV(path)
	require.NoError(t, err)
	assert.Equal(t, 4, c.Len())

	_, err = LoadCSV(filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}

func TestSearch(t *testing.T) {
	c := loadSample(t)

	ids := func(rs []model.Restaurant) []int {
		out := make([]int, 0, len(rs))
		for _, r := range rs {
			out = append(out, r.ID)
		}
		return out
	}

	cases := []struct {
		name   string
		filter Filter
		want   []int
	}{
		{"no filter keeps catalog order", Filter{}, []int{1, 2, 3, 4}},
		{"location substring case-insensitive", Filter{Location: "DOWNTOWN"}, []int{1, 3}},
		{"cuisine substring", Filter{Cuisine: "fusion"}, []int{4}},
		{"min rating", Filter{MinRating: 4.5}, []int{1, 2, 4}},
		{"price tier exact", Filter{PriceRange: "$$"}, []int{1}},
		{"min capacity", Filter{MinCapacity: 40}, []int{1, 3}},
		{"combined", Filter{Location: "town", MinRating: 4.2}, []int{1, 2}},
		{"nothing matches", Filter{Cuisine: "Ethiopian"}, []int{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ids(c.Search(tc.filter)))
		})
	}
}

func TestSearch_ReturnsCopy(t *testing.T) {
	c := loadSample(t)
	all := c.Search(Filter{})
	require.Len(t, all, 4)
	all[0].Name = "changed"
	r, _ := c.ByID(1)
	assert.Equal(t, "Bella Notte", r.Name)
}

func TestLoadFromDB(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	cols := []string{"id", "name", "cuisine", "location", "price_range", "capacity", "rating", "opening_time", "closing_time", "special_features"}
	mock.ExpectQuery("SELECT (.+) FROM restaurants").WillReturnRows(
		sqlmock.NewRows(cols).
			AddRow("1", "Bella Notte", "Italian", "Downtown", "$$", "40", "4.5", "11:00", "22:00", "Wine bar").
			AddRow("2", "Sakura House", "Japanese", "Uptown", "$$$", "25", "4.8", "12:00", "23:00", ""),
	)

	c, err := LoadFromDB(context.Background(), db)
	require.NoError(t, err)
	assert.Equal(t, 2, c.Len())
	r, ok := c.ByID(2)
	require.True(t, ok)
	assert.Equal(t, "Sakura House", r.Name)
	assert.Equal(t, 25, r.Capacity)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadFromDB_NullColumnsFailValidation(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	// The query coalesces nullable columns, so a NULL name arrives as "".
	cols := []string{"id", "name", "cuisine", "location", "price_range", "capacity", "rating", "opening_time", "closing_time", "special_features"}
	mock.ExpectQuery(`SELECT id, COALESCE\(name, ''\), COALESCE\(cuisine, ''\), COALESCE\(location, ''\)`).WillReturnRows(
		sqlmock.NewRows(cols).AddRow("1", "", "", "", "$$", "40", "4.5", "11:00", "22:00", ""),
	)

	_, err = LoadFromDB(context.Background(), db)
	assert.ErrorIs(t, err, ErrInvalidRow)
	assert.Contains(t, err.Error(), "name is required")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadFromDB_InvalidRow(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	cols := []string{"id", "name", "cuisine", "location", "price_range", "capacity", "rating", "opening_time", "closing_time", "special_features"}
	mock.ExpectQuery("SELECT (.+) FROM restaurants").WillReturnRows(
		sqlmock.NewRows(cols).AddRow("1", "Bella Notte", "Italian", "Downtown", "$$", "-3", "4.5", "11:00", "22:00", ""),
	)

	_, err = LoadFromDB(context.Background(), db)
	assert.ErrorIs(t, err, ErrInvalidRow)
}
