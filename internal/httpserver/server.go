// Package httpserver wires the HTTP surface described in §6.1/§4.8: route
// registration, per-(style,scale) renderer pool management, and the
// handlers that turn a request into a render/fetch job and an HTTP
// response.
package httpserver

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"github.com/kartoza/tileserve/internal/config"
	"github.com/kartoza/tileserve/internal/filesource"
	"github.com/kartoza/tileserve/internal/render"
	"github.com/kartoza/tileserve/internal/style"
	"github.com/kartoza/tileserve/internal/worker"
)

// Server holds every long-lived component a route handler needs: the
// loaded config and catalog, the shared file-source pool, the lazily-built
// renderer pools, and the icon loader used by static-map marker
// compositing (§5: renderer pools are keyed by (style id, scale) and
// shared between the tile and static-map endpoints).
type Server struct {
	cfg     *config.Config
	catalog *style.Catalog
	src     *filesource.Source
	icons   *render.IconLoader
	engine  render.Factory

	router     *mux.Router
	httpServer *http.Server

	poolsMu sync.Mutex
	pools   map[string]map[int]*worker.Pool[render.Handle]
}

// NewServer builds the router and registers every route in §6.1. The
// renderer pools themselves are built lazily on first use per (style,
// scale), per §4.3's "elastic" pool contract.
func NewServer(cfg *config.Config, catalog *style.Catalog, src *filesource.Source, icons *render.IconLoader, engine render.Factory) *Server {
	s := &Server{
		cfg:     cfg,
		catalog: catalog,
		src:     src,
		icons:   icons,
		engine:  engine,
		router:  mux.NewRouter(),
		pools:   make(map[string]map[int]*worker.Pool[render.Handle]),
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.router.HandleFunc("/", s.handleLanding).Methods(http.MethodGet)

	styles := s.router.PathPrefix("/styles/{id}").Subrouter()
	styles.HandleFunc("/style.json", s.handleStyleJSON).Methods(http.MethodGet)
	styles.HandleFunc("/sprite{suffix:(?:@[0-9]+x)?}.{ext:json|png}", s.handleSprite).Methods(http.MethodGet)
	styles.HandleFunc("/wmts.xml", s.handleWMTS).Methods(http.MethodGet)
	styles.HandleFunc("/static/{spec:.+}", s.handleStatic).Methods(http.MethodGet)
	styles.HandleFunc("/{z:[0-9]+}/{x:[0-9]+}/{y:[0-9]+}{suffix:(?:@[0-9]+x)?}.{ext:png|jpg|jpeg|webp}", s.handleTile).Methods(http.MethodGet)
	s.router.HandleFunc("/styles/{id}.json", s.handleStyleTileJSON).Methods(http.MethodGet)

	s.router.HandleFunc("/data/{id}/{z:[0-9]+}/{x:[0-9]+}/{y:[0-9]+}.{ext:pbf|png|jpg|jpeg|webp|geojson}", s.handleDataTile).Methods(http.MethodGet)
	s.router.HandleFunc("/data/{id}.json", s.handleDataTileJSON).Methods(http.MethodGet)

	s.router.HandleFunc("/fonts/{fontstack}/{rng}.pbf", s.handleFont).Methods(http.MethodGet)
}

// getRendererPool lazily constructs the pool for a (style, scale) pair,
// sizing it from options.min/maxRendererPoolSizes indexed by scale-1, with
// a (0, 4) fallback when the config omits an entry for that scale (§4.3:
// "min/max ... configured per scale factor").
func (s *Server) getRendererPool(ctx context.Context, styleID string, scale int) (*worker.Pool[render.Handle], error) {
	s.poolsMu.Lock()
	if byScale, ok := s.pools[styleID]; ok {
		if p, ok := byScale[scale]; ok {
			s.poolsMu.Unlock()
			return p, nil
		}
	} else {
		s.pools[styleID] = make(map[int]*worker.Pool[render.Handle])
	}
	s.poolsMu.Unlock()

	entry, ok := s.catalog.Styles[styleID]
	if !ok {
		return nil, fmt.Errorf("httpserver: unknown style %q", styleID)
	}

	min, max := s.poolSizesFor(scale)
	resolved := s.catalog.ResolveForRender(entry)
	factory := render.NewHandleFactory(s.engine, resolved)

	pool, err := worker.NewPool(ctx, min, max, factory, render.TeardownHandle)
	if err != nil {
		return nil, fmt.Errorf("httpserver: build renderer pool for %s@%dx: %w", styleID, scale, err)
	}

	s.poolsMu.Lock()
	defer s.poolsMu.Unlock()
	if existing, ok := s.pools[styleID][scale]; ok {
		pool.Dispose()
		return existing, nil
	}
	s.pools[styleID][scale] = pool
	return pool, nil
}

func (s *Server) poolSizesFor(scale int) (min, max int) {
	min, max = 0, 4
	idx := scale - 1
	if idx >= 0 && idx < len(s.cfg.Options.MinRendererPoolSizes) {
		min = s.cfg.Options.MinRendererPoolSizes[idx]
	}
	if idx >= 0 && idx < len(s.cfg.Options.MaxRendererPoolSizes) {
		max = s.cfg.Options.MaxRendererPoolSizes[idx]
	}
	if max < min {
		max = min
	}
	return min, max
}

// Start runs the HTTP server, blocking until it stops or fails (§5:
// process lifecycle).
func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
	}
	log.Printf("httpserver: listening on %s", addr)
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Stop gracefully shuts the HTTP server down and disposes every renderer
// pool, per §5's shutdown semantics.
func (s *Server) Stop(ctx context.Context) error {
	var shutdownErr error
	if s.httpServer != nil {
		shutdownErr = s.httpServer.Shutdown(ctx)
	}

	s.poolsMu.Lock()
	for _, byScale := range s.pools {
		for _, p := range byScale {
			p.Dispose()
		}
	}
	s.poolsMu.Unlock()

	return shutdownErr
}
