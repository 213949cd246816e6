package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"

	"github.com/AlexMuzzy/sample-crud-kotlin-app/internal/config"
	dom "github.com/AlexMuzzy/sample-crud-kotlin-app/internal/domain"
)

// titleLowerMigration adds todos.title_lower and fills it with dom.FoldTitle.
// It is a Go migration because SQLite's LOWER only folds ASCII.
func titleLowerMigration(driver string) *goose.Migration {
	update := `UPDATE todos SET title_lower = ? WHERE id = ?`
	if driver == config.DriverPostgres {
		update = `UPDATE todos SET title_lower = $1 WHERE id = $2`
	}

	up := func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `ALTER TABLE todos ADD COLUMN title_lower TEXT NOT NULL DEFAULT ''`); err != nil {
			return fmt.Errorf("add title_lower: %w", err)
		}
		titles, err := loadTitles(ctx, tx)
		if err != nil {
			return err
		}
		for id, title := range titles {
			if _, err := tx.ExecContext(ctx, update, dom.FoldTitle(title), id); err != nil {
				return fmt.Errorf("backfill title_lower for %d: %w", id, err)
			}
		}
		return nil
	}
	down := func(ctx context.Context, tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `ALTER TABLE todos DROP COLUMN title_lower`)
		return err
	}
	return goose.NewGoMigration(2, &goose.GoFunc{RunTx: up}, &goose.GoFunc{RunTx: down})
}

// loadTitles reads every title before any update runs on the same transaction.
func loadTitles(ctx context.Context, tx *sql.Tx) (map[int64]string, error) {
	rows, err := tx.QueryContext(ctx, `SELECT id, title FROM todos`)
	if err != nil {
		return nil, fmt.Errorf("read titles: %w", err)
	}
	defer rows.Close()

	titles := map[int64]string{}
	for rows.Next() {
		var (
			id    int64
			title string
		)
		if err := rows.Scan(&id, &title); err != nil {
			return nil, err
		}
		titles[id] = title
	}
	return titles, rows.Err()
}
