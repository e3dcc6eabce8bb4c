package database

const (
	listTablesMySQLSQL = `
SELECT table_name
FROM information_schema.tables
WHERE table_schema = DATABASE() AND table_type = 'BASE TABLE'
ORDER BY table_name
`
	listTablesPostgresSQL = `
SELECT tablename FROM pg_tables WHERE schemaname = 'public' ORDER BY tablename
`
	listTablesSQLiteSQL = `
SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name
`
	columnsMySQLSQL = `
SELECT
	table_schema AS table_schema,
	table_name AS table_name,
	column_name AS column_name,
	column_type AS data_type,
	is_nullable AS is_nullable,
	column_key AS column_key,
	column_comment AS column_comment
FROM information_schema.columns
WHERE table_schema = DATABASE()
ORDER BY table_name, ordinal_position
`
	columnsPostgresSQL = `
SELECT
	c.table_schema,
	c.table_name,
	c.column_name,
	c.data_type,
	c.is_nullable,
	COALESCE(
		(SELECT CASE tc.constraint_type WHEN 'PRIMARY KEY' THEN 'PRI' WHEN 'UNIQUE' THEN 'UNI' ELSE '' END
		FROM information_schema.key_column_usage k
		JOIN information_schema.table_constraints tc
			ON tc.constraint_name = k.constraint_name AND tc.table_schema = k.table_schema
		WHERE k.table_schema = c.table_schema AND k.table_name = c.table_name AND k.column_name = c.column_name
		ORDER BY tc.constraint_type
		LIMIT 1),
		'') AS column_key,
	COALESCE(col_description((quote_ident(c.table_schema) || '.' || quote_ident(c.table_name))::regclass, c.ordinal_position), '') AS column_comment
FROM information_schema.columns c
WHERE c.table_schema NOT IN ('pg_catalog', 'information_schema')
ORDER BY c.table_schema, c.table_name, c.ordinal_position
`
	columnsSQLiteSQL = `
SELECT
	'' AS table_schema,
	m.name AS table_name,
	p.name AS column_name,
	p.type AS data_type,
	CASE p."notnull" WHEN 1 THEN 'NO' ELSE 'YES' END AS is_nullable,
	CASE WHEN p.pk > 0 THEN 'PRI' ELSE '' END AS column_key,
	'' AS column_comment
FROM sqlite_master m
JOIN pragma_table_info(m.name) p
WHERE m.type = 'table' AND m.name NOT LIKE 'sqlite_%'
ORDER BY m.name, p.cid
`
)
