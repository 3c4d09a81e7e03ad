package persistence

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm/clause"
)

func TestSorting_OrderBy(t *testing.T) {
	tests := []struct {
		name string
		s    sorting
		key  string
		dir  string
		col  string
		desc bool
	}{
		{"price ascending", productSorting, "price", "asc", "price", false},
		{"direction is case insensitive", productSorting, " stock ", "ASC", "stock", false},
		{"empty key uses the default", productSorting, "", "", "created_at", true},
		{"unknown direction sorts descending", productSorting, "name", "sideways", "name", true},
		{"alias maps to its column", orderSorting, "number", "asc", "order_number", false},
		{"email is not sortable", orderSorting, "email", "asc", "created_at", false},
		{"column names are case sensitive", orderSorting, "TOTAL", "desc", "created_at", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.s.orderBy(tt.key, tt.dir)
			assert.Equal(t, []clause.OrderByColumn{
				{Column: clause.Column{Table: tt.s.table, Name: tt.col}, Desc: tt.desc},
				{Column: clause.Column{Table: tt.s.table, Name: "id"}, Desc: tt.desc},
			}, got.Columns)
		})
	}
}

func TestSorting_RejectsInjection(t *testing.T) {
	for _, payload := range []string{
		"price; DROP TABLE orders;--",
		"price' OR '1'='1",
		"price, (SELECT password_hash FROM users)",
		"CASE WHEN 1=1 THEN price ELSE name END",
		"price\n; DELETE FROM products",
	} {
		got := productSorting.orderBy(payload, payload)
		assert.Equal(t, "created_at", got.Columns[0].Column.Name, payload)
		assert.True(t, got.Columns[0].Desc, payload)
	}
}
