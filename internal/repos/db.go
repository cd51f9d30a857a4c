package repos

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Supported values for the database.driver setting.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
)

var ErrUnsupportedDriver = errors.New("unsupported database driver")

// OpenDB connects to the configured database. It does not touch the schema;
// that is the migrator's job.
func OpenDB(driver, dsn string) (*sqlx.DB, error) {
	switch driver {
	case DriverSQLite, DriverPostgres:
	case DriverMySQL:
		var err error
		if dsn, err = mysqlDSN(dsn); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, driver)
	}

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	if err = db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connecting to %s: %w", driver, err)
	}

	if driver == DriverSQLite {
		// single writer; also keeps :memory: databases on one connection
		db.SetMaxOpenConns(1)
		if _, err := db.Exec(`PRAGMA foreign_keys = ON`); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return db, nil
}

// mysqlDSN enables what migrations and the importer rely on: multi-statement
// scripts and DATETIME scanning.
func mysqlDSN(dsn string) (string, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("parsing mysql dsn: %w", err)
	}
	cfg.MultiStatements = true
	cfg.ParseTime = true
	return cfg.FormatDSN(), nil
}

// QueryExecutor runs raw SQL against the active connection.
type QueryExecutor struct{ DB *sqlx.DB }

func NewQueryExecutor(db *sqlx.DB) *QueryExecutor { return &QueryExecutor{DB: db} }

// DriverName reports the engine behind the connection.
func (q *QueryExecutor) DriverName() string { return q.DB.DriverName() }

// Exec runs sql as-is. Multi-statement scripts are passed through to the driver.
func (q *QueryExecutor) Exec(ctx context.Context, sql string) (int64, error) {
	res, err := q.DB.ExecContext(ctx, sql)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		// some drivers can't report it for scripts
		return 0, nil
	}
	return n, nil
}
