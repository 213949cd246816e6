package repo

import (
	"context"
	"errors"

	dom "github.com/AlexMuzzy/sample-crud-kotlin-app/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const todoColumns = `id, title, description, completed, created_at, updated_at`

// PGTodoRepo is the hand-written SQL store for PostgreSQL.
type PGTodoRepo struct {
	db *pgxpool.Pool
}

func NewPGTodoRepo(db *pgxpool.Pool) *PGTodoRepo {
	return &PGTodoRepo{db: db}
}

func (r *PGTodoRepo) Insert(ctx context.Context, t dom.Todo) (dom.Todo, error) {
	query := `
		INSERT INTO todos (title, title_lower, description, completed, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + todoColumns
	return scanTodo(r.db.QueryRow(ctx, query,
		t.Title, dom.FoldTitle(t.Title), t.Description, t.Completed, t.CreatedAt, t.UpdatedAt))
}

func (r *PGTodoRepo) InsertAll(ctx context.Context, list []dom.Todo) error {
	batch := &pgx.Batch{}
	for _, t := range list {
		batch.Queue(`
			INSERT INTO todos (title, title_lower, description, completed, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			t.Title, dom.FoldTitle(t.Title), t.Description, t.Completed, t.CreatedAt, t.UpdatedAt)
	}
	return r.db.SendBatch(ctx, batch).Close()
}

func (r *PGTodoRepo) FindByID(ctx context.Context, id int64) (dom.Todo, bool, error) {
	query := `SELECT ` + todoColumns + ` FROM todos WHERE id = $1`
	t, err := scanTodo(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return dom.Todo{}, false, nil
	}
	if err != nil {
		return dom.Todo{}, false, err
	}
	return t, true, nil
}

func (r *PGTodoRepo) FindAll(ctx context.Context) ([]dom.Todo, error) {
	return r.list(ctx, `SELECT `+todoColumns+` FROM todos ORDER BY id`)
}

func (r *PGTodoRepo) FindByCompleted(ctx context.Context, completed bool) ([]dom.Todo, error) {
	return r.list(ctx, `SELECT `+todoColumns+` FROM todos WHERE completed = $1 ORDER BY id`, completed)
}

func (r *PGTodoRepo) FindByTitleContains(ctx context.Context, q string) ([]dom.Todo, error) {
	return r.list(ctx,
		`SELECT `+todoColumns+` FROM todos WHERE title_lower LIKE $1 ESCAPE '\' ORDER BY id`,
		containsPattern(q))
}

func (r *PGTodoRepo) Update(ctx context.Context, t dom.Todo) error {
	_, err := r.db.Exec(ctx,
		`UPDATE todos SET title = $2, title_lower = $3, description = $4, completed = $5, updated_at = $6 WHERE id = $1`,
		t.ID, t.Title, dom.FoldTitle(t.Title), t.Description, t.Completed, t.UpdatedAt)
	return err
}

func (r *PGTodoRepo) Delete(ctx context.Context, id int64) error {
	_, err := r.db.Exec(ctx, `DELETE FROM todos WHERE id = $1`, id)
	return err
}

func (r *PGTodoRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM todos`).Scan(&n)
	return n, err
}

func (r *PGTodoRepo) list(ctx context.Context, query string, args ...any) ([]dom.Todo, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := make([]dom.Todo, 0)
	for rows.Next() {
		t, err := scanTodo(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, t)
	}
	return list, rows.Err()
}

func scanTodo(row pgx.Row) (dom.Todo, error) {
	var t dom.Todo
	err := row.Scan(&t.ID, &t.Title, &t.Description, &t.Completed, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}
