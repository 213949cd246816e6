package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"

	"github.com/AlexMuzzy/sample-crud-kotlin-app/internal/dto"
	"github.com/AlexMuzzy/sample-crud-kotlin-app/internal/service"
)

type TodoHandler struct {
	svc    *service.TodoService
	logger *log.Logger
}

func NewTodoHandler(svc *service.TodoService, logger *log.Logger) *TodoHandler {
	return &TodoHandler{svc: svc, logger: logger}
}

// Create godoc
// @Summary      Create a todo
// @Description  id, createdAt and updatedAt in the body are ignored.
// @Tags         todos
// @Accept       json
// @Produce      json
// @Param        body  body      dto.TodoRequest  true  "Todo body"
// @Success      201   {object}  dto.TodoResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      500   {object}  dto.ErrorResponse
// @Router       /todos [post]
func (h *TodoHandler) Create(c *gin.Context) {
	var req dto.TodoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	t, err := h.svc.Create(c.Request.Context(), req.ToDomain())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.FromDomain(t))
}

// List godoc
// @Summary      List all todos
// @Tags         todos
// @Produce      json
// @Success      200  {array}   dto.TodoResponse
// @Failure      500  {object}  dto.ErrorResponse
// @Router       /todos [get]
func (h *TodoHandler) List(c *gin.Context) {
	list, err := h.svc.List(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FromDomainList(list))
}

// GetByID godoc
// @Summary      Get a todo by ID
// @Tags         todos
// @Produce      json
// @Param        id   path      int  true  "Todo ID"
// @Success      200  {object}  dto.TodoResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      404
// @Failure      500  {object}  dto.ErrorResponse
// @Router       /todos/{id} [get]
func (h *TodoHandler) GetByID(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	t, found, err := h.svc.Find(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if !found {
		c.Status(http.StatusNotFound)
		return
	}
	c.JSON(http.StatusOK, dto.FromDomain(t))
}

// ListByStatus godoc
// @Summary      List todos by completion status
// @Tags         todos
// @Produce      json
// @Param        completed  query     bool  true  "Completion flag"
// @Success      200        {array}   dto.TodoResponse
// @Failure      400        {object}  dto.ErrorResponse
// @Failure      500        {object}  dto.ErrorResponse
// @Router       /todos/status [get]
func (h *TodoHandler) ListByStatus(c *gin.Context) {
	raw, ok := c.GetQuery("completed")
	if !ok {
		badRequest(c, "missing query parameter: completed")
		return
	}
	completed, err := strconv.ParseBool(raw)
	if err != nil {
		badRequest(c, "completed must be true or false")
		return
	}
	list, err := h.svc.ListByStatus(c.Request.Context(), completed)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FromDomainList(list))
}

// Search godoc
// @Summary      Search todos by title
// @Description  Case-insensitive substring match. An empty title matches every todo.
// @Tags         todos
// @Produce      json
// @Param        title  query     string  true  "Title fragment"
// @Success      200    {array}   dto.TodoResponse
// @Failure      400    {object}  dto.ErrorResponse
// @Failure      500    {object}  dto.ErrorResponse
// @Router       /todos/search [get]
func (h *TodoHandler) Search(c *gin.Context) {
	q, ok := c.GetQuery("title")
	if !ok {
		badRequest(c, "missing query parameter: title")
		return
	}
	list, err := h.svc.SearchByTitle(c.Request.Context(), q)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FromDomainList(list))
}

// Update godoc
// @Summary      Replace title, description and completed of a todo
// @Tags         todos
// @Accept       json
// @Produce      json
// @Param        id    path      int              true  "Todo ID"
// @Param        body  body      dto.TodoRequest  true  "New values"
// @Success      200   {object}  dto.TodoResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404
// @Failure      500   {object}  dto.ErrorResponse
// @Router       /todos/{id} [put]
func (h *TodoHandler) Update(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req dto.TodoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	t, err := h.svc.Update(c.Request.Context(), id, req.ToDomain())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FromDomain(t))
}

// Complete godoc
// @Summary      Mark a todo as completed
// @Tags         todos
// @Produce      json
// @Param        id   path      int  true  "Todo ID"
// @Success      200  {object}  dto.TodoResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      404
// @Failure      500  {object}  dto.ErrorResponse
// @Router       /todos/{id}/complete [patch]
func (h *TodoHandler) Complete(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	t, err := h.svc.Complete(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FromDomain(t))
}

// Delete godoc
// @Summary      Delete a todo
// @Tags         todos
// @Param        id   path  int  true  "Todo ID"
// @Success      204
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      404
// @Failure      500  {object}  dto.ErrorResponse
// @Router       /todos/{id} [delete]
func (h *TodoHandler) Delete(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// respondError answers 404 with no body for a missing todo and 500 otherwise.
func (h *TodoHandler) respondError(c *gin.Context, err error) {
	if errors.Is(err, service.ErrNotFound) {
		c.Status(http.StatusNotFound)
		return
	}
	h.logger.Error("request failed",
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
		"err", err,
	)
	c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "internal server error"})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: msg})
}

// parseID only rejects ids that are not integers. Zero and negative ids are
// valid lookups that find nothing.
func parseID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil {
		badRequest(c, "invalid id")
		return 0, false
	}
	return id, true
}
