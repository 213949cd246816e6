package dto

import (
	"time"

	dom "github.com/AlexMuzzy/sample-crud-kotlin-app/internal/domain"
)

// TodoRequest is the body of create and update. Clients may send a full
// TodoResponse; id, createdAt and updatedAt are unknown fields here and the
// decoder skips them whatever their shape.
type TodoRequest struct {
	Title       string  `json:"title" binding:"required"`
	Description *string `json:"description" binding:"required"`
	Completed   bool    `json:"completed"`
}

// ToDomain keeps only the client-controlled fields.
func (r TodoRequest) ToDomain() dom.Todo {
	t := dom.Todo{Title: r.Title, Completed: r.Completed}
	if r.Description != nil {
		t.Description = *r.Description
	}
	return t
}

type TodoResponse struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Completed   bool      `json:"completed"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func FromDomain(t dom.Todo) TodoResponse {
	return TodoResponse{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Completed:   t.Completed,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

// FromDomainList never returns nil so empty results encode as [].
func FromDomainList(list []dom.Todo) []TodoResponse {
	out := make([]TodoResponse, len(list))
	for i := range list {
		out[i] = FromDomain(list[i])
	}
	return out
}

// ErrorResponse is the body of every 400 and 500 answer.
type ErrorResponse struct {
	Error string `json:"error"`
}
