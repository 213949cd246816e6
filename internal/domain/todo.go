package domain

import (
	"strings"
	"time"
)

// Todo is the domain entity. It knows nothing about gin, gorm, Postgres or Redis.
type Todo struct {
	ID          int64
	Title       string
	Description string
	Completed   bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// FoldTitle is the case folding used for title search. Stores persist it next
// to the title so every dialect matches the same way.
func FoldTitle(title string) string {
	return strings.ToLower(title)
}
