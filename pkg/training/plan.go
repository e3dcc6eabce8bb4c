package training

import (
	"fmt"
	"sort"
	"strings"
)

// ColumnInfo is one row of information_schema.columns (or the sqlite equivalent).
type ColumnInfo struct {
	Database string `db:"table_schema"`
	Table    string `db:"table_name"`
	Column   string `db:"column_name"`
	Type     string `db:"data_type"`
	Nullable string `db:"is_nullable"`
	Key      string `db:"column_key"`
	Comment  string `db:"column_comment"`
}

// Plan turns information schema rows into one documentation item per table. Rows may arrive in any
// order; tables are emitted sorted by schema and name, columns in the order they were read.
func Plan(columns []ColumnInfo, source string) ([]Item, error) {
	type tableKey struct{ db, table string }
	grouped := make(map[tableKey][]ColumnInfo)
	var keys []tableKey
	for _, c := range columns {
		k := tableKey{c.Database, c.Table}
		if _, ok := grouped[k]; !ok {
			keys = append(keys, k)
		}
		grouped[k] = append(grouped[k], c)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].db != keys[j].db {
			return keys[i].db < keys[j].db
		}
		return keys[i].table < keys[j].table
	})

	items := make([]Item, 0, len(keys))
	for _, k := range keys {
		var b strings.Builder
		if k.db != "" {
			fmt.Fprintf(&b, "The following columns are in the %s table in the %s database:\n\n", k.table, k.db)
		} else {
			fmt.Fprintf(&b, "The following columns are in the %s table:\n\n", k.table)
		}
		b.WriteString("| column | type | nullable | key | comment |\n")
		b.WriteString("|---|---|---|---|---|\n")
		for _, c := range grouped[k] {
			fmt.Fprintf(&b, "| %s | %s | %s | %s | %s |\n", c.Column, c.Type, c.Nullable, c.Key, c.Comment)
		}
		it, err := NewItem(KindDocumentation, "", b.String(), source)
		if err != nil {
			return nil, fmt.Errorf("plan item for %s: %w", k.table, err)
		}
		items = append(items, it)
	}
	return items, nil
}
