// Package seed fills an empty todos table with sample rows.
package seed

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	dom "github.com/AlexMuzzy/sample-crud-kotlin-app/internal/domain"
	"github.com/AlexMuzzy/sample-crud-kotlin-app/internal/repo"
)

// Todos returns the sample rows with timestamps relative to now.
func Todos(now time.Time) []dom.Todo {
	now = now.UTC().Truncate(time.Microsecond)
	twoDaysAgo := now.Add(-48 * time.Hour)
	return []dom.Todo{
		{
			Title:       "Buy groceries",
			Description: "Milk, eggs, bread",
			Completed:   false,
			CreatedAt:   twoDaysAgo,
			UpdatedAt:   twoDaysAgo,
		},
		{
			Title:       "Write report",
			Description: "Q4 financial report",
			Completed:   true,
			CreatedAt:   now.Add(-5 * time.Hour),
			UpdatedAt:   now.Add(-3 * time.Hour),
		},
	}
}

// Run inserts the sample rows when the table is empty and returns how many
// rows it wrote.
func Run(ctx context.Context, r repo.TodoRepo, logger *log.Logger, now time.Time) (int, error) {
	n, err := r.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count todos: %w", err)
	}
	if n > 0 {
		logger.Info("Database already seeded", "rows", n)
		return 0, nil
	}
	todos := Todos(now)
	logger.Info(fmt.Sprintf("Saving %d todos", len(todos)))
	if err := r.InsertAll(ctx, todos); err != nil {
		return 0, fmt.Errorf("insert seed todos: %w", err)
	}
	return len(todos), nil
}
