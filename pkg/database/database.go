package database

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"github.com/doubletabai/tabsql/pkg/config"
	"github.com/doubletabai/tabsql/pkg/sqltext"
	"github.com/doubletabai/tabsql/pkg/training"
)

var (
	ErrNotConnected      = errors.New("no database connection configured")
	ErrWriteNotAllowed   = errors.New("statement modifies data and writes are not allowed")
	ErrUnsupportedDriver = errors.New("unsupported database driver")
)

type Config struct {
	Driver   string
	Host     string
	Port     int
	Name     string
	User     string
	Password string
	// Params are driver specific, e.g. "parseTime=true" for mysql or "sslmode=disable" for postgres.
	Params string
	// Path is the database file for sqlite.
	Path        string
	AllowWrites bool
}

func FromConfig(cfg *config.Config) Config {
	return Config{
		Driver:      cfg.DBDriver,
		Host:        cfg.DBHost,
		Port:        cfg.DBPort,
		Name:        cfg.DBName,
		User:        cfg.DBUser,
		Password:    cfg.DBPassword,
		Params:      cfg.DBParams,
		Path:        cfg.DBPath,
		AllowWrites: cfg.AllowWrites,
	}
}

// DSN renders the driver name and data source name for cfg.
func (c Config) DSN() (string, string, error) {
	switch c.Driver {
	case "mysql":
		mc := mysql.NewConfig()
		mc.User = c.User
		mc.Passwd = c.Password
		mc.Net = "tcp"
		mc.Addr = net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
		mc.DBName = c.Name
		mc.ParseTime = true
		dsn := mc.FormatDSN()
		if c.Params != "" {
			// Appended params are parsed by the driver and override the defaults above.
			if strings.Contains(dsn, "?") {
				dsn += "&" + c.Params
			} else {
				dsn += "?" + c.Params
			}
		}
		return "mysql", dsn, nil
	case "postgres":
		dsn := fmt.Sprintf("host='%s' port='%d' dbname='%s' user='%s' password='%s'",
			c.Host, c.Port, c.Name, c.User, c.Password)
		if c.Params != "" {
			dsn += " " + strings.ReplaceAll(c.Params, "&", " ")
		}
		return "postgres", dsn, nil
	case "sqlite":
		return "sqlite", c.Path, nil
	}
	return "", "", fmt.Errorf("%w: %q", ErrUnsupportedDriver, c.Driver)
}

// DB is the relational database questions are answered against.
type DB struct {
	X           *sqlx.DB
	AllowWrites bool
}

// Connect opens the database and pings it, so bad credentials or an unreachable host fail here
// rather than on the first question.
func Connect(ctx context.Context, cfg Config) (*DB, error) {
	driver, dsn, err := cfg.DSN()
	if err != nil {
		return nil, err
	}
	x, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", driver, err)
	}
	if driver == "sqlite" {
		// One connection, so ":memory:" databases are shared across calls.
		x.SetMaxOpenConns(1)
	}
	db, err := New(ctx, x, cfg.AllowWrites)
	if err != nil {
		x.Close()
		return nil, err
	}
	log.Debug().Str("driver", driver).Str("host", cfg.Host).Str("database", cfg.Name).Msg("Connected to database")
	return db, nil
}

// New wraps an open handle and verifies it is reachable.
func New(ctx context.Context, x *sqlx.DB, allowWrites bool) (*DB, error) {
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := x.PingContext(pingCtx); err != nil {
		return nil, fmt.Errorf("failed to connect to %s database: %w", x.DriverName(), err)
	}
	return &DB{X: x, AllowWrites: allowWrites}, nil
}

func (db *DB) Close() error {
	if db == nil || db.X == nil {
		return nil
	}
	return db.X.Close()
}

func (db *DB) Driver() string {
	return db.X.DriverName()
}

type Result struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
	// Truncated is set when more rows were available than the limit allowed.
	Truncated bool `json:"truncated,omitempty"`
}

// Run executes a generated statement. Statements that modify data are refused unless writes are
// allowed; those return an empty result with no columns.
func (db *DB) Run(ctx context.Context, query string, maxRows int) (*Result, error) {
	if db == nil || db.X == nil {
		return nil, ErrNotConnected
	}
	if !IsReadOnly(query) {
		if !db.AllowWrites {
			return nil, ErrWriteNotAllowed
		}
		if _, err := db.X.ExecContext(ctx, query); err != nil {
			return nil, err
		}
		return &Result{Columns: []string{}, Rows: [][]any{}}, nil
	}

	rows, err := db.X.QueryxContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	res := &Result{Columns: cols, Rows: make([][]any, 0)}
	for rows.Next() {
		if maxRows > 0 && len(res.Rows) >= maxRows {
			res.Truncated = true
			break
		}
		row, err := rows.SliceScan()
		if err != nil {
			return nil, err
		}
		for i, v := range row {
			if b, ok := v.([]byte); ok {
				row[i] = string(b)
			}
		}
		res.Rows = append(res.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

// Tables lists the base tables of the connected database.
func (db *DB) Tables(ctx context.Context) ([]string, error) {
	if db == nil || db.X == nil {
		return nil, ErrNotConnected
	}
	var query string
	switch db.Driver() {
	case "mysql":
		query = listTablesMySQLSQL
	case "postgres":
		query = listTablesPostgresSQL
	case "sqlite":
		query = listTablesSQLiteSQL
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, db.Driver())
	}
	tables := make([]string, 0)
	if err := db.X.SelectContext(ctx, &tables, query); err != nil {
		return nil, err
	}
	return tables, nil
}

// Columns reads the column catalogue used to build a training plan.
func (db *DB) Columns(ctx context.Context) ([]training.ColumnInfo, error) {
	if db == nil || db.X == nil {
		return nil, ErrNotConnected
	}
	cols := make([]training.ColumnInfo, 0)
	switch db.Driver() {
	case "mysql":
		if err := db.X.SelectContext(ctx, &cols, columnsMySQLSQL); err != nil {
			return nil, err
		}
	case "postgres":
		if err := db.X.SelectContext(ctx, &cols, columnsPostgresSQL); err != nil {
			return nil, err
		}
	case "sqlite":
		if err := db.X.SelectContext(ctx, &cols, columnsSQLiteSQL); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, db.Driver())
	}
	return cols, nil
}

var (
	readStatements = map[string]bool{
		"SELECT": true, "WITH": true, "VALUES": true, "TABLE": true,
		"SHOW": true, "DESCRIBE": true, "DESC": true, "EXPLAIN": true,
	}
	writeStatements = map[string]bool{
		"INSERT": true, "UPDATE": true, "DELETE": true, "MERGE": true, "REPLACE": true, "UPSERT": true,
		"CREATE": true, "ALTER": true, "DROP": true, "TRUNCATE": true, "RENAME": true,
		"GRANT": true, "REVOKE": true, "CALL": true, "EXECUTE": true, "DO": true,
		"COPY": true, "LOAD": true, "SET": true, "LOCK": true,
	}
	// Words that may sit between EXPLAIN and the explained statement.
	explainOptions = map[string]bool{
		"ANALYZE": true, "ANALYSE": true, "VERBOSE": true, "EXTENDED": true, "PARTITIONS": true,
		"QUERY": true, "PLAN": true,
	}
)

// IsReadOnly reports whether every statement in query only reads data. Comments and quoted text are
// ignored. Queries that write through INTO (a file, a variable or a new table), data-modifying CTEs
// and EXPLAIN of anything but a read are refused, since EXPLAIN ANALYZE runs the statement.
func IsReadOnly(query string) bool {
	seen := false
	for _, stmt := range sqltext.Split(query) {
		masked := strings.ToUpper(sqltext.Mask(stmt))
		if strings.TrimSpace(masked) == "" {
			continue
		}
		if !isReadOnlyStatement(masked) {
			return false
		}
		seen = true
	}
	return seen
}

// isReadOnlyStatement expects a masked, upper-cased statement.
func isReadOnlyStatement(q string) bool {
	q = strings.TrimLeft(q, "( \t\r\n")
	word := firstWord(q)
	switch word {
	case "SHOW", "DESCRIBE", "DESC":
		return true
	case "EXPLAIN":
		return isReadOnlyExplain(q[len(word):])
	case "SELECT", "VALUES", "TABLE":
		return !containsWord(q, "INTO")
	case "WITH":
		for _, w := range []string{"INSERT", "UPDATE", "DELETE", "MERGE", "INTO"} {
			if containsWord(q, w) {
				return false
			}
		}
		return true
	}
	return false
}

func isReadOnlyExplain(rest string) bool {
	analyze := false
	for {
		rest = strings.TrimSpace(rest)
		if strings.HasPrefix(rest, "(") {
			if readStatements[firstWord(strings.TrimLeft(rest, "( \t\r\n"))] {
				return isReadOnlyStatement(rest)
			}
			// PostgreSQL option list
			end := strings.IndexByte(rest, ')')
			if end < 0 {
				return false
			}
			analyze = analyze || containsWord(rest[:end], "ANALYZE") || containsWord(rest[:end], "ANALYSE")
			rest = rest[end+1:]
			continue
		}

		word := firstWord(rest)
		switch {
		case word == "":
			return false
		case explainOptions[word]:
			analyze = analyze || word == "ANALYZE" || word == "ANALYSE"
			rest = rest[len(word):]
		case word == "FORMAT":
			rest = strings.TrimPrefix(strings.TrimSpace(rest[len(word):]), "=")
			rest = strings.TrimSpace(rest)
			rest = rest[len(firstWord(rest)):]
		case readStatements[word]:
			return isReadOnlyStatement(rest)
		default:
			// EXPLAIN <table> describes a table in MySQL.
			return !analyze && !writeStatements[word]
		}
	}
}

func firstWord(s string) string {
	i := 0
	for i < len(s) && isIdentChar(s[i]) {
		i++
	}
	return s[:i]
}

func isIdentChar(c byte) bool {
	return c == '_' || (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9')
}

func containsWord(s, word string) bool {
	for i := 0; ; {
		j := strings.Index(s[i:], word)
		if j < 0 {
			return false
		}
		start := i + j
		end := start + len(word)
		before := start == 0 || !isIdentChar(s[start-1])
		after := end == len(s) || !isIdentChar(s[end])
		if before && after {
			return true
		}
		i = end
	}
}
