package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/goliatone/go-viewkit"
)

type serveOptions struct {
	addr          string
	shutdownGrace time.Duration
}

func newServeCmd(flags *globalFlags) *cobra.Command {
	opts := &serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve composed pages and the asset cache over HTTP",
		Long: `Serve composed pages over HTTP. GET /{view} renders that view, GET /
renders the views listed in ?view= parameters. ?theme= and ?layout= select the
theme and layout; every other query parameter is passed to the template. The
asset cache directory is served under /<cache base>/.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, flags, opts)
		},
	}

	addSettingFlags(cmd)
	cmd.Flags().StringVar(&opts.addr, "addr", ":8080", "listen address")
	cmd.Flags().DurationVar(&opts.shutdownGrace, "shutdown-grace", 5*time.Second, "graceful shutdown timeout")
	return cmd
}

func runServe(cmd *cobra.Command, flags *globalFlags, opts *serveOptions) error {
	settings, err := loadSettings(cmd, flags)
	if err != nil {
		return err
	}
	logger, err := newLogger(flags)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	options, err := composerOptions(flags, logger)
	if err != nil {
		return err
	}
	handler, err := newRouter(settings, options, logger)
	if err != nil {
		return err
	}

	eg, egctx := errgroup.WithContext(cmd.Context())
	srv := &http.Server{
		Addr:    opts.addr,
		Handler: handler,
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	eg.Go(func() error {
		logger.Info("serving pages", zap.String("addr", opts.addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), opts.shutdownGrace)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return eg.Wait()
}

// newRouter validates settings once and returns the page and asset routes.
// Every request renders with its own Composer.
func newRouter(settings map[string]any, options []viewkit.Option, logger *zap.Logger) (http.Handler, error) {
	probe, err := viewkit.New(settings, options...)
	if err != nil {
		return nil, err
	}
	resolved := probe.Settings()

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.Recoverer)

	if base := resolved.CacheBase(); base != "" {
		prefix := "/" + base + "/"
		r.Handle(prefix+"*", http.StripPrefix(prefix, http.FileServer(http.Dir(resolved.AssetsPath))))
	}
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	pages := &pageHandler{settings: settings, options: options, logger: logger}
	r.Get("/", pages.ServeHTTP)
	r.Get("/{view}", pages.ServeHTTP)
	return r, nil
}

type pageHandler struct {
	settings map[string]any
	options  []viewkit.Option
	logger   *zap.Logger
}

func (h *pageHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	views := query["view"]
	if view := chi.URLParam(r, "view"); view != "" {
		views = []string{view}
	}

	c, err := viewkit.New(h.settings, h.options...)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	prepare(c, query.Get("theme"))

	params := make(map[string]any, len(query))
	for key, values := range query {
		switch key {
		case "view", "theme", "layout":
			continue
		}
		if len(values) > 0 && !strings.ContainsAny(key, ".-") {
			params[key] = values[0]
		}
	}
	if layout := query.Get("layout"); layout != "" {
		c.SetLayout(layout, params)
	}
	for _, view := range views {
		c.AddView(view, nil)
	}

	page, err := c.Render(r.Context(), params)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(page))
}

func (h *pageHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, fs.ErrNotExist):
		status = http.StatusNotFound
	case errors.Is(err, viewkit.ErrValidation):
		status = http.StatusBadRequest
	}
	h.logger.Warn("page render failed",
		zap.String("path", r.URL.Path),
		zap.String("request_id", middleware.GetReqID(r.Context())),
		zap.Int("status", status),
		zap.Error(err),
	)
	http.Error(w, http.StatusText(status), status)
}
