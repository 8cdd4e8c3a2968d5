// Package sqlitewriter exports the merged rows to a SQLite database file.
//
// The file is a one-shot export: the target table is dropped and recreated on
// every write. Computed numeric columns are REAL, everything else is TEXT.
package sqlitewriter

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/ginjaninja78/model-merger/internal/report"
	"github.com/ginjaninja78/model-merger/internal/types"

	_ "modernc.org/sqlite"
)

// DefaultTable is the table written when none is configured.
const DefaultTable = "merged_data"

// ErrNoColumns is returned for an empty layout.
var ErrNoColumns = errors.New("sqlitewriter: layout has no columns")

// Write stores rows in table inside the database at path, creating the file
// if needed. An empty table name means DefaultTable.
func Write(ctx context.Context, path, table string, layout report.Layout, rows []types.AggregatedRow) (err error) {
	if len(layout.Columns) == 0 {
		return ErrNoColumns
	}
	if table == "" {
		table = DefaultTable
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer db.Close()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	defs := make([]string, len(layout.Columns))
	names := make([]string, len(layout.Columns))
	for i, c := range layout.Columns {
		names[i] = quoteIdent(c.Header)
		defs[i] = names[i] + " " + columnType(c.Kind)
	}

	if _, err = tx.ExecContext(ctx, `DROP TABLE IF EXISTS `+quoteIdent(table)); err != nil {
		return fmt.Errorf("drop %s: %w", table, err)
	}
	if _, err = tx.ExecContext(ctx, `CREATE TABLE `+quoteIdent(table)+` (`+strings.Join(defs, ",")+`)`); err != nil {
		return fmt.Errorf("create %s: %w", table, err)
	}

	ph := strings.TrimRight(strings.Repeat("?,", len(names)), ",")
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO `+quoteIdent(table)+` (`+strings.Join(names, ",")+`) VALUES (`+ph+`)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, row := range rows {
		if _, err = stmt.ExecContext(ctx, layout.Values(row)...); err != nil {
			return fmt.Errorf("insert %q: %w", row.Identifier, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func columnType(kind report.Kind) string {
	switch kind {
	case report.KindNumber, report.KindMoney:
		return "REAL"
	default:
		return "TEXT"
	}
}

// quoteIdent quotes a SQL identifier, doubling embedded quotes.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
