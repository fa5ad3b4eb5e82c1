package database

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"

	"github.com/baely/bezos/internal/common/errors"
)

// Supported drivers
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

type dialect struct {
	createTable string
	// rebind rewrites ? placeholders into the driver's syntax
	rebind func(query string) string
	// isUniqueViolation reports a duplicate merchant name
	isUniqueViolation func(err error) bool
}

var dialects = map[string]dialect{
	DriverSQLite: {
		createTable: `CREATE TABLE IF NOT EXISTS merchant (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			merchant TEXT NOT NULL UNIQUE,
			is_bezos_related BOOLEAN NOT NULL DEFAULT 1
		)`,
		rebind: func(q string) string { return q },
		isUniqueViolation: func(err error) bool {
			var sqliteErr sqlite3.Error
			return errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
		},
	},
	DriverPostgres: {
		createTable: `CREATE TABLE IF NOT EXISTS merchant (
			id SERIAL PRIMARY KEY,
			merchant TEXT NOT NULL UNIQUE,
			is_bezos_related BOOLEAN NOT NULL DEFAULT TRUE
		)`,
		rebind: numberedPlaceholders,
		isUniqueViolation: func(err error) bool {
			var pqErr *pq.Error
			return errors.As(err, &pqErr) && pqErr.Code == "23505"
		},
	},
}

func numberedPlaceholders(q string) string {
	var b strings.Builder
	n := 0
	for _, c := range q {
		if c == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(c)
	}
	return b.String()
}

// PostgresDSN builds a lib/pq connection string from its parts
func PostgresDSN(user, password, host, port, db string) string {
	return fmt.Sprintf("user=%s password=%s host=%s port=%s dbname=%s sslmode=disable", user, password, host, port, db)
}
