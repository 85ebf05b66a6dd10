package cli

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"

	"github.com/previewforge/previewforge/pkg/errors"
	"github.com/previewforge/previewforge/pkg/export"
	"github.com/previewforge/previewforge/pkg/pipeline"
	"github.com/previewforge/previewforge/pkg/platform"
)

// serveCommand creates the serve command running the pipeline as a local
// HTTP service.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr    string
		noCache bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the pipeline as an HTTP service",
		Long: `Run the preview pipeline as an HTTP service.

Endpoints:
  POST /render     pipeline options as JSON, returns image/png
  GET  /platforms  supported platform profiles as JSON
  GET  /healthz    liveness probe

POST /render accepts ?platform=<name> to return a re-targeted rendering
and ?manifest=1 to return the composition manifest as JSON instead of
pixels.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runServe(cmd.Context(), addr, noCache)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the stage cache")
	return cmd
}

// runServe starts the HTTP server and blocks until the context is
// cancelled or the listener fails.
func (c *CLI) runServe(ctx context.Context, addr string, noCache bool) error {
	runner, err := c.newRunner(ctx, noCache)
	if err != nil {
		return err
	}
	defer runner.Close()

	srv := &http.Server{
		Addr:              addr,
		Handler:           c.routes(runner),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		c.Logger.Infof("Listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

// routes builds the chi router over a shared runner.
func (c *CLI) routes(runner *pipeline.Runner) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/platforms", func(w http.ResponseWriter, _ *http.Request) {
		type profileJSON struct {
			Name   string `json:"name"`
			Width  int    `json:"width"`
			Height int    `json:"height"`
		}
		out := make([]profileJSON, 0)
		for _, name := range platform.Names() {
			p, err := platform.Lookup(name)
			if err != nil {
				continue
			}
			out = append(out, profileJSON{Name: p.Name, Width: p.Width, Height: p.Height})
		}
		writeJSON(w, http.StatusOK, out)
	})

	r.Post("/render", c.handleRender(runner))

	return r
}

// handleRender decodes pipeline options from the request body, runs the
// pipeline, and streams back the requested artifact.
func (c *CLI) handleRender(runner *pipeline.Runner) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var opts pipeline.Options
		if err := json.NewDecoder(r.Body).Decode(&opts); err != nil {
			writeError(w, errors.New(errors.ErrCodeInvalidInput, "decode request: %v", err))
			return
		}
		opts.Logger = c.Logger

		target := r.URL.Query().Get("platform")
		if target != "" {
			opts.Platforms = []string{target}
		}

		result, err := runner.Execute(r.Context(), opts)
		if err != nil {
			writeError(w, err)
			return
		}
		winner := result.Winner()

		if r.URL.Query().Get("manifest") != "" {
			m := export.NewManifest(result.RunID, opts.URL, winner.Rendered, winner.Report, result.DNA.Degraded)
			writeJSON(w, http.StatusOK, m)
			return
		}

		data := result.Artifacts["png"]
		if target != "" {
			platformData, ok := result.Artifacts[target]
			if !ok {
				writeError(w, errors.New(errors.ErrCodeInternal, "platform %q produced no artifact", target))
				return
			}
			data = platformData
		}

		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("X-Run-Id", result.RunID)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	}
}

// writeJSON writes v as a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// errorResponse is the JSON error body.
type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// writeError maps pipeline error codes to HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	code := errors.GetCode(err)
	status := http.StatusInternalServerError
	switch {
	case strings.HasPrefix(string(code), "INVALID"), code == errors.ErrCodeTextOverflow:
		status = http.StatusBadRequest
	case code == errors.ErrCodeTimeout:
		status = http.StatusGatewayTimeout
	case code == errors.ErrCodeNotFound:
		status = http.StatusNotFound
	}
	writeJSON(w, status, errorResponse{Code: string(code), Message: err.Error()})
}
