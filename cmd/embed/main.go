package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"embed-service/internal/app"
	"embed-service/internal/embed"
	"embed-service/internal/httputil"
	"embed-service/internal/metrics"
	"embed-service/internal/usage"
)

const shutdownTimeout = 10 * time.Second

type embedRequest struct {
	Input     json.RawMessage `json:"input" validate:"required"`
	InputType *string         `json:"input_type" validate:"omitempty,oneof=query passage"`
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, err := app.Build(ctx)
	if err != nil {
		slog.Default().Error("failed to build dependencies", "err", err)
		os.Exit(1)
	}
	defer func() {
		if err := deps.Close(); err != nil {
			deps.Log.Warn("failed to close dependencies", "err", err)
		}
	}()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", deps.Config.Port),
		Handler:           newRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		deps.Log.Info("embedding service listening", "addr", srv.Addr, "model", deps.Service.Model())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		deps.Log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		deps.Log.Error("embedding service stopped", "err", err)
		os.Exit(1)
	}
	deps.Log.Info("server stopped gracefully")
}

func newRouter(deps app.Deps) *chi.Mux {
	r := httputil.NewRouter(deps.Log)

	r.Get("/health", httputil.HealthHandler(deps.Service.Model()))
	r.Post("/embed", embedHandler(deps))
	r.Get("/usage", usageHandler(deps))
	r.Handle("/metrics", metrics.Handler())
	return r
}

func embedHandler(deps app.Deps) http.HandlerFunc {
	model := deps.Service.Model()
	recorder := deps.Usage
	if recorder == nil {
		recorder = usage.Noop{}
	}

	return func(w http.ResponseWriter, r *http.Request) {
		var req embedRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			metrics.EmbedRequestsTotal.WithLabelValues(model, "invalid").Inc()
			httputil.Fail(deps.Log, w, "invalid JSON body", err, http.StatusUnprocessableEntity)
			return
		}
		if err := httputil.Validator.Struct(&req); err != nil {
			metrics.EmbedRequestsTotal.WithLabelValues(model, "invalid").Inc()
			httputil.ValidationError(deps.Log, w, err)
			return
		}

		input, err := embed.ParseInput(req.Input)
		if err != nil {
			metrics.EmbedRequestsTotal.WithLabelValues(model, "invalid").Inc()
			httputil.Fail(deps.Log, w, embed.ErrInvalidInput.Error(), err, http.StatusUnprocessableEntity)
			return
		}
		inputType, err := embed.ParseInputType(req.InputType)
		if err != nil {
			metrics.EmbedRequestsTotal.WithLabelValues(model, "invalid").Inc()
			httputil.Fail(deps.Log, w, embed.ErrInvalidInputType.Error(), err, http.StatusUnprocessableEntity)
			return
		}

		resp, err := deps.Service.Embed(r.Context(), embed.Request{Input: input, InputType: inputType})
		switch {
		case errors.Is(err, embed.ErrEmptyInput):
			metrics.EmbedRequestsTotal.WithLabelValues(model, "empty_input").Inc()
			httputil.Fail(deps.Log, w, embed.ErrEmptyInput.Error(), err, http.StatusBadRequest)
			return
		case errors.Is(err, embed.ErrBatchTooLarge):
			metrics.EmbedRequestsTotal.WithLabelValues(model, "batch_too_large").Inc()
			httputil.Fail(deps.Log, w, embed.ErrBatchTooLarge.Error(), err, http.StatusRequestEntityTooLarge)
			return
		case err != nil:
			metrics.EmbedRequestsTotal.WithLabelValues(model, "error").Inc()
			httputil.Fail(deps.Log, w, "internal server error", err, http.StatusInternalServerError)
			return
		}

		metrics.EmbedRequestsTotal.WithLabelValues(model, "ok").Inc()
		metrics.EmbedTextsPerRequest.Observe(float64(len(resp.Data)))
		metrics.EmbedTokensTotal.WithLabelValues(model).Add(float64(resp.Usage.TotalTokens))
		httputil.WriteJSON(w, http.StatusOK, resp)

		tokens := make([]int, len(resp.Data))
		for i, item := range resp.Data {
			tokens[i] = item.Tokens
		}
		ev := usage.NewEvent(resp.Model, inputType.String(), tokens)
		if err := recorder.Record(context.WithoutCancel(r.Context()), ev); err != nil {
			deps.Log.Warn("failed to record usage", "event_id", ev.ID, "err", err)
		}
	}
}

func usageHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.Counter == nil {
			httputil.Fail(deps.Log, w, "usage counting is not configured", nil, http.StatusNotFound)
			return
		}

		day := time.Now().UTC()
		if raw := r.URL.Query().Get("date"); raw != "" {
			parsed, err := time.Parse(time.DateOnly, raw)
			if err != nil {
				httputil.Fail(deps.Log, w, "date must be YYYY-MM-DD", err, http.StatusUnprocessableEntity)
				return
			}
			day = parsed
		}

		daily, err := deps.Counter.Daily(r.Context(), deps.Service.Model(), day)
		if err != nil {
			httputil.Fail(deps.Log, w, "internal server error", err, http.StatusInternalServerError)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, daily)
	}
}
