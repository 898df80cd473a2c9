package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/crime-cli/internal/crime"
	"github.com/sells-group/crime-cli/internal/model"
	"github.com/sells-group/crime-cli/internal/monitoring"
	"github.com/sells-group/crime-cli/internal/report"
	"github.com/sells-group/crime-cli/internal/store"
)

var (
	servePort int
	serveLive bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve area stats and series as a JSON API",
	Long: `Starts an HTTP server exposing per-area stats and chart series as JSON.

Areas are read from the local cache unless --live is set. Each area is
fetched on first request and kept in memory for the life of the process.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx, "serve")
		if err != nil {
			return err
		}
		defer env.Close()

		reg := newAreaRegistry(env, !serveLive)
		reg.warm(ctx)

		if cfg.Monitoring.Enabled {
			checker := monitoring.NewChecker(
				monitoring.NewCollector(env.Store, cfg.Monitoring.StaleAfter()),
				monitoring.NewAlerter(cfg.Monitoring),
				cfg.Monitoring,
			)
			go checker.Run(ctx)
		}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           newRouter(reg, cfg.Server.AllowedOrigins),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", port), zap.Bool("live", serveLive))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	serveCmd.Flags().BoolVar(&serveLive, "live", false, "fetch areas from the datastore instead of the cache")
	rootCmd.AddCommand(serveCmd)
}

// areaRegistry builds each area once and keeps it for later requests.
type areaRegistry struct {
	env    *appEnv
	cached bool

	mu    sync.Mutex
	areas map[string]*crime.Area
}

func newAreaRegistry(env *appEnv, cached bool) *areaRegistry {
	env.Current.Subscribe(func(key string) {
		zap.L().Info("current category changed", zap.String("category", key))
	})
	return &areaRegistry{env: env, cached: cached, areas: make(map[string]*crime.Area)}
}

// get returns the fetched area for key. A failed fetch is retried on the
// next call.
func (reg *areaRegistry) get(ctx context.Context, key string) (*crime.Area, error) {
	reg.mu.Lock()
	a, ok := reg.areas[key]
	reg.mu.Unlock()

	if !ok {
		built, err := reg.env.area(ctx, key, reg.cached)
		if err != nil {
			return nil, err
		}
		reg.mu.Lock()
		if a, ok = reg.areas[key]; !ok {
			a = built
			reg.areas[key] = a
		}
		reg.mu.Unlock()
	}

	if err := a.FetchData(ctx); err != nil {
		return nil, err
	}
	return a, nil
}

// warm loads the neighborhood table and the city before serving. Failures
// are logged; the affected requests retry them.
func (reg *areaRegistry) warm(ctx context.Context) {
	log := zap.L().With(zap.String("component", "serve.warm"))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		_, err := reg.env.neighborhoods(gctx)
		return err
	})
	g.Go(func() error {
		_, err := reg.get(gctx, model.CityKey)
		return err
	})
	if err := g.Wait(); err != nil {
		log.Warn("warm-up incomplete", zap.Error(err))
		return
	}
	log.Info("warm-up complete")
}

func newRouter(reg *areaRegistry, origins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPut, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/categories", reg.handleCategories)
		r.Get("/category", reg.handleGetCategory)
		r.Put("/category", reg.handleSetCategory)
		r.Get("/neighborhoods", reg.handleNeighborhoods)
		r.Get("/areas/{key}/stats", reg.handleStats)
		r.Get("/areas/{key}/series/{kind}", reg.handleSeries)
	})
	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		zap.L().Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func (reg *areaRegistry) handleCategories(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"current":    reg.env.Current.Current(),
		"categories": reg.env.Categories.All(),
	})
}

func (reg *areaRegistry) handleGetCategory(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"category": reg.env.Current.Current()})
}

func (reg *areaRegistry) handleSetCategory(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Category string `json:"category"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !reg.env.Categories.Has(req.Category) {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown category %q", req.Category))
		return
	}
	reg.env.Current.Set(req.Category)
	writeJSON(w, http.StatusOK, map[string]string{"category": req.Category})
}

func (reg *areaRegistry) handleNeighborhoods(w http.ResponseWriter, r *http.Request) {
	ns, err := reg.env.neighborhoods(r.Context())
	if err != nil {
		writeAreaError(w, err)
		return
	}
	if ns == nil {
		ns = []model.Neighborhood{}
	}
	writeJSON(w, http.StatusOK, ns)
}

func (reg *areaRegistry) handleStats(w http.ResponseWriter, r *http.Request) {
	cats := splitList(r.URL.Query().Get("category"))
	if err := reg.env.checkCategories(cats); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	a, err := reg.get(r.Context(), chi.URLParam(r, "key"))
	if err != nil {
		writeAreaError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report.Build(a, reg.env.Categories, report.Options{
		Categories:  cats,
		SummaryOnly: true,
	}))
}

func (reg *areaRegistry) handleSeries(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	category := q.Get("category")
	if category != "" {
		if err := reg.env.checkCategories([]string{category}); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	years := 1
	if s := q.Get("years"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "years must be an integer")
			return
		}
		years = n
	}

	a, err := reg.get(r.Context(), chi.URLParam(r, "key"))
	if err != nil {
		writeAreaError(w, err)
		return
	}

	kind := chi.URLParam(r, "kind")
	points, err := buildSeries(a.Engine(), kind, category, years)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if category == "" {
		category = reg.env.Current.Current()
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"area":     a.Key(),
		"category": category,
		"kind":     kind,
		"points":   points,
	})
}

func writeAreaError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errUnknownArea), errors.Is(err, store.ErrNotCached):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		zap.L().Error("area request failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, "failed to load area data")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
