package vector

const (
	createExtensionSQL = `
CREATE EXTENSION IF NOT EXISTS vector
`
	trainingSchemaSQL = `
CREATE TABLE IF NOT EXISTS training_data (
	id TEXT PRIMARY KEY,
	kind TEXT NOT NULL,
	question TEXT NOT NULL DEFAULT '',
	content TEXT NOT NULL,
	source TEXT NOT NULL,
	created_at TIMESTAMP WITHOUT TIME ZONE NOT NULL,
	embedding VECTOR(%d) NOT NULL
)
`
	trainingKindIndexSQL = `
CREATE INDEX IF NOT EXISTS training_data_kind_idx ON training_data (kind)
`
	storeTrainingSQL = `
INSERT INTO training_data
	(id, kind, question, content, source, created_at, embedding)
VALUES
	(:id, :kind, :question, :content, :source, :created_at, :embedding)
`
	similarTrainingSQL = `
SELECT
	id, kind, question, content, source, created_at
FROM training_data
WHERE kind = $1
ORDER BY
	embedding <-> $2
LIMIT $3
`
	listTrainingSQL = `
SELECT
	id, kind, question, content, source, created_at
FROM training_data
ORDER BY created_at, id
`
	removeTrainingSQL = `
DELETE FROM training_data WHERE id = $1
`
	countTrainingSQL = `
SELECT COUNT(*) FROM training_data
`

	sqliteTrainingSchemaSQL = `
CREATE TABLE IF NOT EXISTS training_data (
	id TEXT PRIMARY KEY,
	kind TEXT NOT NULL,
	question TEXT NOT NULL DEFAULT '',
	content TEXT NOT NULL,
	source TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL,
	embedding TEXT NOT NULL
)
`
	sqliteStoreTrainingSQL = `
INSERT INTO training_data
	(id, kind, question, content, source, created_at, embedding)
VALUES
	(?, ?, ?, ?, ?, ?, ?)
`
	sqliteKindTrainingSQL = `
SELECT
	id, kind, question, content, source, created_at, embedding
FROM training_data
WHERE kind = ?
`
	sqliteListTrainingSQL = `
SELECT
	id, kind, question, content, source, created_at
FROM training_data
ORDER BY created_at, id
`
	sqliteRemoveTrainingSQL = `
DELETE FROM training_data WHERE id = ?
`
)
