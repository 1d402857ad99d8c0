// Package historydb queries recorded decision history with DuckDB.
package historydb

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"

	_ "github.com/duckdb/duckdb-go/v2"
)

// Open returns an in-memory DuckDB with a "decisions" view over every
// finished history file under roots. Files still in a tmp/ directory are
// skipped.
func Open(roots []string) (*sql.DB, error) {
	db, err := sql.Open("duckdb", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}

	globs := make([]string, 0, len(roots))
	for _, root := range roots {
		root = strings.TrimSpace(root)
		if root == "" {
			continue
		}
		glob := filepath.Join(root, "**", "history_*.parquet")
		globs = append(globs, "'"+escapeSQLString(glob)+"'")
	}
	if len(globs) == 0 {
		_ = db.Close()
		return nil, fmt.Errorf("no history roots given")
	}

	view := `CREATE OR REPLACE VIEW decisions AS
		SELECT * FROM read_parquet([` + strings.Join(globs, ",") + `], filename=true, union_by_name=true)
		WHERE NOT contains(filename, '/tmp/history_')`
	if _, err := db.Exec(view); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create decisions view: %w", err)
	}
	return db, nil
}

func escapeSQLString(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

// LabelStat aggregates the decisions of one candidate kind.
type LabelStat struct {
	Label    string
	Count    int64
	AvgDelta float64
	AvgSwing float64
}

func Labels(ctx context.Context, db *sql.DB) ([]LabelStat, error) {
	rows, err := db.QueryContext(ctx, `SELECT
			label,
			COUNT(*) AS n,
			AVG(delta)::DOUBLE,
			AVG(swing)::DOUBLE
		FROM decisions
		GROUP BY label
		ORDER BY n DESC, label`)
	if err != nil {
		return nil, fmt.Errorf("query labels: %w", err)
	}
	defer rows.Close()

	var out []LabelStat
	for rows.Next() {
		var s LabelStat
		if err := rows.Scan(&s.Label, &s.Count, &s.AvgDelta, &s.AvgSwing); err != nil {
			return nil, fmt.Errorf("scan label row: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// RunStat summarizes one game.
type RunStat struct {
	RunID       string
	Turns       int64
	Fallbacks   int64
	Truncations int64
	MaxElapsed  int64
	FinalOwn    int64
	FinalEnemy  int64
}

func Runs(ctx context.Context, db *sql.DB) ([]RunStat, error) {
	rows, err := db.QueryContext(ctx, `SELECT
			run_id,
			COUNT(DISTINCT turn),
			COUNT(DISTINCT CASE WHEN fallback THEN turn END),
			COUNT(DISTINCT CASE WHEN truncated THEN turn END),
			MAX(elapsed_us),
			arg_max(own_score, turn),
			arg_max(enemy_score, turn)
		FROM decisions
		GROUP BY run_id
		ORDER BY run_id`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []RunStat
	for rows.Next() {
		var s RunStat
		if err := rows.Scan(&s.RunID, &s.Turns, &s.Fallbacks, &s.Truncations, &s.MaxElapsed, &s.FinalOwn, &s.FinalEnemy); err != nil {
			return nil, fmt.Errorf("scan run row: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
