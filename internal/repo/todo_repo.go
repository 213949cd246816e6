package repo

import (
	"context"
	"strings"
	"time"

	dom "github.com/AlexMuzzy/sample-crud-kotlin-app/internal/domain"

	"gorm.io/gorm"
)

// TodoRepo is the store behind the todo service. FindByID reports a missing
// row through the bool, never through the error. Update and Delete expect the
// caller to have checked that the row exists.
type TodoRepo interface {
	Insert(ctx context.Context, t dom.Todo) (dom.Todo, error)
	InsertAll(ctx context.Context, list []dom.Todo) error
	FindByID(ctx context.Context, id int64) (dom.Todo, bool, error)
	FindAll(ctx context.Context) ([]dom.Todo, error)
	FindByCompleted(ctx context.Context, completed bool) ([]dom.Todo, error)
	FindByTitleContains(ctx context.Context, q string) ([]dom.Todo, error)
	Update(ctx context.Context, t dom.Todo) error
	Delete(ctx context.Context, id int64) error
	Count(ctx context.Context) (int64, error)
}

// todoRow maps the todos table. Timestamps are owned by the service, so gorm's
// automatic CreatedAt/UpdatedAt handling is switched off.
type todoRow struct {
	ID          int64     `gorm:"primaryKey;autoIncrement"`
	Title       string    `gorm:"not null"`
	TitleLower  string    `gorm:"column:title_lower;not null"`
	Description string    `gorm:"not null"`
	Completed   bool      `gorm:"not null"`
	CreatedAt   time.Time `gorm:"not null;autoCreateTime:false"`
	UpdatedAt   time.Time `gorm:"not null;autoUpdateTime:false"`
}

func (todoRow) TableName() string { return "todos" }

func rowFromTodo(t dom.Todo) todoRow {
	return todoRow{
		ID:          t.ID,
		Title:       t.Title,
		TitleLower:  dom.FoldTitle(t.Title),
		Description: t.Description,
		Completed:   t.Completed,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

func (r todoRow) todo() dom.Todo {
	return dom.Todo{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description,
		Completed:   r.Completed,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

func rowsToTodos(rows []todoRow) []dom.Todo {
	list := make([]dom.Todo, len(rows))
	for i := range rows {
		list[i] = rows[i].todo()
	}
	return list
}

// GormTodoRepo is the ORM-backed store. It works against any dialect gorm was
// opened with.
type GormTodoRepo struct {
	db *gorm.DB
}

func NewGormTodoRepo(db *gorm.DB) *GormTodoRepo {
	return &GormTodoRepo{db: db}
}

func (r *GormTodoRepo) Insert(ctx context.Context, t dom.Todo) (dom.Todo, error) {
	row := rowFromTodo(t)
	row.ID = 0
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return dom.Todo{}, err
	}
	return row.todo(), nil
}

func (r *GormTodoRepo) InsertAll(ctx context.Context, list []dom.Todo) error {
	if len(list) == 0 {
		return nil
	}
	rows := make([]todoRow, len(list))
	for i := range list {
		rows[i] = rowFromTodo(list[i])
		rows[i].ID = 0
	}
	return r.db.WithContext(ctx).Create(&rows).Error
}

func (r *GormTodoRepo) FindByID(ctx context.Context, id int64) (dom.Todo, bool, error) {
	var rows []todoRow
	err := r.db.WithContext(ctx).Where("id = ?", id).Limit(1).Find(&rows).Error
	if err != nil {
		return dom.Todo{}, false, err
	}
	if len(rows) == 0 {
		return dom.Todo{}, false, nil
	}
	return rows[0].todo(), true, nil
}

func (r *GormTodoRepo) FindAll(ctx context.Context) ([]dom.Todo, error) {
	var rows []todoRow
	if err := r.db.WithContext(ctx).Order("id").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rowsToTodos(rows), nil
}

func (r *GormTodoRepo) FindByCompleted(ctx context.Context, completed bool) ([]dom.Todo, error) {
	var rows []todoRow
	err := r.db.WithContext(ctx).Where("completed = ?", completed).Order("id").Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rowsToTodos(rows), nil
}

func (r *GormTodoRepo) FindByTitleContains(ctx context.Context, q string) ([]dom.Todo, error) {
	var rows []todoRow
	err := r.db.WithContext(ctx).
		Where(`title_lower LIKE ? ESCAPE '\'`, containsPattern(q)).
		Order("id").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rowsToTodos(rows), nil
}

// Update writes the mutable columns only; created_at is never touched.
func (r *GormTodoRepo) Update(ctx context.Context, t dom.Todo) error {
	return r.db.WithContext(ctx).
		Model(&todoRow{}).
		Where("id = ?", t.ID).
		Updates(map[string]any{
			"title":       t.Title,
			"title_lower": dom.FoldTitle(t.Title),
			"description": t.Description,
			"completed":   t.Completed,
			"updated_at":  t.UpdatedAt,
		}).Error
}

func (r *GormTodoRepo) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Delete(&todoRow{}, id).Error
}

func (r *GormTodoRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&todoRow{}).Count(&n).Error
	return n, err
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern builds a LIKE pattern for title_lower matching q anywhere,
// with LIKE wildcards in q taken literally.
func containsPattern(q string) string {
	return "%" + likeEscaper.Replace(dom.FoldTitle(q)) + "%"
}
