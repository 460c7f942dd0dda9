package writers

import (
	"database/sql"
	"fmt"
	"os"

	"github.com/Masterminds/squirrel"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-fx/internal/ledger"
	"github.com/rxtech-lab/argo-fx/pkg/errors"
)

// Restore reads the parquet files of a run folder into a snapshot. Missing
// files are skipped. When week is set, stream rows are limited to that week;
// the price series, cash ledger and periods table are always read whole.
func Restore(dir string, week optional.Option[ledger.WeekTag]) (ledger.Snapshot, error) {
	var snapshot ledger.Snapshot

	db, err := sql.Open("duckdb", ":memory:")
	if err != nil {
		return snapshot, errors.Wrap(errors.ErrCodeLedgerRestore, "failed to open DuckDB connection", err)
	}
	defer db.Close()

	sq := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question)

	for _, t := range tables {
		path := ParquetPath(dir, t.name)
		if _, err := os.Stat(path); err != nil {
			continue
		}

		names := make([]string, len(t.columns))
		for i, c := range t.columns {
			names[i] = c.name
		}

		builder := sq.Select(names...).
			From(fmt.Sprintf("read_parquet('%s')", escape(path))).
			OrderBy(t.orderBy + " ASC")

		if week.IsSome() && t.tagged && t.name != TableHistorical && t.name != TableCashBalance {
			builder = builder.Where(squirrel.Eq{"market_open_time": week.Unwrap().MarketOpen.UTC()})
		}

		query, args, err := builder.ToSql()
		if err != nil {
			return snapshot, errors.Wrapf(errors.ErrCodeLedgerRestore, err, "failed to build query for %s", t.name)
		}

		if err := readTable(db, query, args, scanners[t.name], &snapshot); err != nil {
			return snapshot, errors.Wrapf(errors.ErrCodeLedgerRestore, err, "failed to read %s", path)
		}
	}

	return snapshot, nil
}

func readTable(db *sql.DB, query string, args []any, scan scanner, snapshot *ledger.Snapshot) error {
	rows, err := db.Query(query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		if err := scan(rows, snapshot); err != nil {
			return err
		}
	}

	return rows.Err()
}
