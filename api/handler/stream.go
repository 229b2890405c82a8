package handler

import (
	"bufio"
	"context"
	"encoding/json"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/takify/backend/api/transport"
	"github.com/takify/backend/usecase/tasks"
)

const streamHeartbeat = 30 * time.Second

// @Summary Live projection stream (server-sent events)
// @Tags tasks
// @Router /api/v1/tasks/stream [get]
func (h *TaskHandler) Stream(ctx *fasthttp.RequestCtx) {
	vm, ok := h.viewModel(ctx)
	if !ok {
		return
	}

	ctx.Response.Header.SetContentType("text/event-stream")
	ctx.Response.Header.Set("Cache-Control", "no-cache")
	ctx.Response.Header.Set("Connection", "keep-alive")

	logger := h.logger
	ctx.SetBodyStreamWriter(func(w *bufio.Writer) {
		streamCtx, cancel := context.WithCancel(context.Background())
		defer cancel()

		updates := vm.Watch(streamCtx)
		ticker := time.NewTicker(streamHeartbeat)
		defer ticker.Stop()

		if err := writeProjection(w, vm); err != nil {
			return
		}

		for {
			select {
			case <-updates:
				if err := writeProjection(w, vm); err != nil {
					logger.Debug("sse client gone", zap.Error(err))
					return
				}
			case <-ticker.C:
				// comment line keeps intermediaries from closing the stream
				if _, err := w.WriteString(": ping\n\n"); err != nil {
					return
				}
				if err := w.Flush(); err != nil {
					return
				}
			}
		}
	})
}

func writeProjection(w *bufio.Writer, vm *tasks.ViewModel) error {
	filter, field, direction := vm.View()
	payload, err := json.Marshal(transport.ProjectionResponse{
		Filter:    string(filter),
		SortField: string(field),
		Direction: string(direction),
		Tasks:     vm.Projection(),
	})
	if err != nil {
		return err
	}
	if _, err := w.WriteString("event: projection\ndata: "); err != nil {
		return err
	}
	if _, err := w.Write(payload); err != nil {
		return err
	}
	if _, err := w.WriteString("\n\n"); err != nil {
		return err
	}
	return w.Flush()
}
