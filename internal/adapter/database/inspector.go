package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"

	"github.com/semmidev/daydump/internal/domain"
)

const localAddr = "localhost:3306"

// MySQLInspector checks that configured tables and their date columns exist
// before anything is dumped.
type MySQLInspector struct {
	db       *sql.DB
	database string
}

func OpenMySQL(database, user, password string) (*MySQLInspector, error) {
	cfg := mysql.NewConfig()
	cfg.User = user
	cfg.Passwd = password
	cfg.DBName = database
	cfg.Net = "tcp"
	cfg.Addr = localAddr

	db, err := sql.Open("mysql", cfg.FormatDSN())
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}
	return NewInspector(db, database), nil
}

func NewInspector(db *sql.DB, database string) *MySQLInspector {
	return &MySQLInspector{db: db, database: database}
}

func (i *MySQLInspector) Ping(ctx context.Context) error {
	if err := i.db.PingContext(ctx); err != nil {
		return fmt.Errorf("mysql ping failed: %w", err)
	}
	return nil
}

func (i *MySQLInspector) CheckTables(ctx context.Context, tables []domain.Table) error {
	existing, err := i.listTables(ctx)
	if err != nil {
		return err
	}

	var problems []error
	for _, t := range tables {
		name := t.TableName()
		if !existing[name] {
			problems = append(problems, fmt.Errorf("table %s does not exist in %s", name, i.database))
			continue
		}

		daily, ok := t.(domain.DailyTable)
		if !ok {
			continue
		}
		found, err := i.hasColumn(ctx, name, daily.DateField)
		if err != nil {
			return err
		}
		if !found {
			problems = append(problems, fmt.Errorf("table %s has no column %s", name, daily.DateField))
		}
	}

	return errors.Join(problems...)
}

func (i *MySQLInspector) Close() error {
	return i.db.Close()
}

func (i *MySQLInspector) listTables(ctx context.Context) (map[string]bool, error) {
	query := "SELECT TABLE_NAME FROM information_schema.TABLES WHERE TABLE_SCHEMA = ?"
	rows, err := i.db.QueryContext(ctx, query, i.database)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()

	tables := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan table name: %w", err)
		}
		tables[name] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	return tables, nil
}

func (i *MySQLInspector) hasColumn(ctx context.Context, table, column string) (bool, error) {
	query := "SELECT COUNT(*) FROM information_schema.COLUMNS WHERE TABLE_SCHEMA = ? AND TABLE_NAME = ? AND COLUMN_NAME = ?"
	var count int
	if err := i.db.QueryRowContext(ctx, query, i.database, table, column).Scan(&count); err != nil {
		return false, fmt.Errorf("look up column %s.%s: %w", table, column, err)
	}
	return count > 0, nil
}
