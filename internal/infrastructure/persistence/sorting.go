package persistence

import (
	"strings"

	"gorm.io/gorm/clause"
)

// sorting maps the sort keys a list endpoint accepts to table columns.
// Unknown keys fall back to the default column, so user input never
// reaches the ORDER BY clause.
type sorting struct {
	table    string
	columns  map[string]string
	fallback string
}

var productSorting = sorting{
	table: "products",
	columns: map[string]string{
		"created_at": "created_at",
		"updated_at": "updated_at",
		"name":       "name",
		"price":      "price",
		"stock":      "stock",
	},
	fallback: "created_at",
}

// customer email is filterable but not sortable
var orderSorting = sorting{
	table: "orders",
	columns: map[string]string{
		"created_at":   "created_at",
		"updated_at":   "updated_at",
		"order_number": "order_number",
		"number":       "order_number",
		"total":        "total",
		"status":       "status",
	},
	fallback: "created_at",
}

// orderBy sorts by the requested key, then by id so pages stay stable when
// the key has ties. Only "asc" (any case) sorts ascending.
func (s sorting) orderBy(key, dir string) clause.OrderBy {
	col, ok := s.columns[strings.TrimSpace(key)]
	if !ok {
		col = s.fallback
	}
	desc := !strings.EqualFold(strings.TrimSpace(dir), "asc")
	return clause.OrderBy{Columns: []clause.OrderByColumn{
		{Column: clause.Column{Table: s.table, Name: col}, Desc: desc},
		{Column: clause.Column{Table: s.table, Name: "id"}, Desc: desc},
	}}
}
