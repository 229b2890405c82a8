package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/takify/backend/api/transport"
	"github.com/takify/backend/domain"
	"github.com/takify/backend/pkg/httpcontext"
	"github.com/takify/backend/repository"
	"github.com/takify/backend/usecase/tasks"
)

type TaskHandler struct {
	baseHandler
	registry *tasks.Registry
	activity repository.ActivityRepository
}

func NewTaskHandler(registry *tasks.Registry, activity repository.ActivityRepository, adapter *httpcontext.Adapter, logger *zap.Logger) *TaskHandler {
	return &TaskHandler{
		baseHandler: newBaseHandler(adapter, logger),
		registry:    registry,
		activity:    activity,
	}
}

// @Summary Current task projection
// @Tags tasks
// @Router /api/v1/tasks [get]
func (h *TaskHandler) GetTasks(ctx *fasthttp.RequestCtx) {
	vm, ok := h.viewModel(ctx)
	if !ok {
		return
	}

	if f := string(ctx.QueryArgs().Peek("filter")); f != "" {
		if err := vm.SetFilter(tasks.Filter(f)); err != nil {
			h.respondError(ctx, err)
			return
		}
	}
	// explicit sort selection; refreshing the same URL must not change the
	// view, so the direction-flip semantics stay on the sort route
	if s := string(ctx.QueryArgs().Peek("sort")); s != "" {
		direction := tasks.SortDirection(ctx.QueryArgs().Peek("direction"))
		if direction == "" {
			direction = tasks.Descending
		}
		if err := vm.SetOrder(tasks.SortField(s), direction); err != nil {
			h.respondError(ctx, err)
			return
		}
	}

	filter, field, direction := vm.View()
	h.respondSuccess(ctx, http.StatusOK, transport.ProjectionResponse{
		Filter:    string(filter),
		SortField: string(field),
		Direction: string(direction),
		Tasks:     vm.Projection(),
	})
}

// @Summary Create task
// @Tags tasks
// @Router /api/v1/tasks [post]
func (h *TaskHandler) CreateTask(ctx *fasthttp.RequestCtx) {
	vm, ok := h.viewModel(ctx)
	if !ok {
		return
	}

	var req transport.TaskCreateRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		h.respondJSON(ctx, http.StatusBadRequest, transport.NewError(string(domain.ErrCodeInvalid), "invalid payload", nil))
		return
	}

	var deadline *time.Time
	if req.Deadline != "" {
		parsed, err := time.Parse(time.RFC3339, req.Deadline)
		if err != nil {
			h.respondJSON(ctx, http.StatusBadRequest, transport.NewError(string(domain.ErrCodeInvalid), "deadline must be RFC3339", nil))
			return
		}
		deadline = &parsed
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	created, err := vm.Add(stdCtx, tasks.Draft{
		Title:       req.Title,
		Description: req.Description,
		Category:    domain.Category(req.Category),
		Priority:    domain.Priority(req.Priority),
		Deadline:    deadline,
	})
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusCreated, created)
}

// @Summary Toggle task completion
// @Tags tasks
// @Router /api/v1/tasks/{id}/toggle [post]
func (h *TaskHandler) ToggleTask(ctx *fasthttp.RequestCtx) {
	vm, ok := h.viewModel(ctx)
	if !ok {
		return
	}
	id, ok := h.taskID(ctx)
	if !ok {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	if err := vm.ToggleCompletion(stdCtx, id); err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusNoContent, nil)
}

// @Summary Set task progress
// @Tags tasks
// @Router /api/v1/tasks/{id}/progress [put]
func (h *TaskHandler) SetProgress(ctx *fasthttp.RequestCtx) {
	vm, ok := h.viewModel(ctx)
	if !ok {
		return
	}
	id, ok := h.taskID(ctx)
	if !ok {
		return
	}

	var req transport.ProgressRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		h.respondJSON(ctx, http.StatusBadRequest, transport.NewError(string(domain.ErrCodeInvalid), "invalid payload", nil))
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	if err := vm.SetProgress(stdCtx, id, req.Progress); err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusNoContent, nil)
}

// @Summary Delete task
// @Tags tasks
// @Router /api/v1/tasks/{id} [delete]
func (h *TaskHandler) DeleteTask(ctx *fasthttp.RequestCtx) {
	vm, ok := h.viewModel(ctx)
	if !ok {
		return
	}
	id, ok := h.taskID(ctx)
	if !ok {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	if err := vm.Remove(stdCtx, id); err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusNoContent, nil)
}

// @Summary Select the projection filter
// @Tags tasks
// @Router /api/v1/tasks/filter [put]
func (h *TaskHandler) SetFilter(ctx *fasthttp.RequestCtx) {
	vm, ok := h.viewModel(ctx)
	if !ok {
		return
	}

	var req transport.FilterRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		h.respondJSON(ctx, http.StatusBadRequest, transport.NewError(string(domain.ErrCodeInvalid), "invalid payload", nil))
		return
	}

	if err := vm.SetFilter(tasks.Filter(req.Filter)); err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusNoContent, nil)
}

// @Summary Select the sort field (re-selecting flips direction)
// @Tags tasks
// @Router /api/v1/tasks/sort [post]
func (h *TaskHandler) SetSort(ctx *fasthttp.RequestCtx) {
	vm, ok := h.viewModel(ctx)
	if !ok {
		return
	}

	var req transport.SortRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		h.respondJSON(ctx, http.StatusBadRequest, transport.NewError(string(domain.ErrCodeInvalid), "invalid payload", nil))
		return
	}

	if err := vm.SetSort(tasks.SortField(req.Field)); err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusNoContent, nil)
}

// @Summary Task mutation history for the current owner
// @Tags tasks
// @Router /api/v1/tasks/activity [get]
func (h *TaskHandler) GetActivity(ctx *fasthttp.RequestCtx) {
	userID := h.userID(ctx)
	if userID == "" {
		return
	}

	filter := repository.ActivityFilter{
		OwnerID: userID,
		TaskID:  string(ctx.QueryArgs().Peek("task_id")),
		Limit:   parseInt(string(ctx.QueryArgs().Peek("limit")), 50),
		Offset:  parseInt(string(ctx.QueryArgs().Peek("offset")), 0),
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	events, err := h.activity.List(stdCtx, filter)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, events)
}

func (h *TaskHandler) viewModel(ctx *fasthttp.RequestCtx) (*tasks.ViewModel, bool) {
	userID := h.userID(ctx)
	if userID == "" {
		return nil, false
	}
	vm, err := h.registry.Acquire(userID)
	if err != nil {
		h.respondError(ctx, err)
		return nil, false
	}
	return vm, true
}

func (h *TaskHandler) taskID(ctx *fasthttp.RequestCtx) (string, bool) {
	id, _ := ctx.UserValue("id").(string)
	if id == "" {
		h.respondJSON(ctx, http.StatusBadRequest, transport.NewError(string(domain.ErrCodeInvalid), "missing task id", nil))
		return "", false
	}
	return id, true
}

func parseInt(value string, fallback int) int {
	if v, err := strconv.Atoi(value); err == nil {
		return v
	}
	return fallback
}
