// Package server exposes the content tree, statement, question and batch
// operations over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/http"
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/abhisek/mcqforge/internal/batch"
	"github.com/abhisek/mcqforge/internal/contenttree"
	"github.com/abhisek/mcqforge/internal/logger"
	"github.com/abhisek/mcqforge/internal/mcq"
	"github.com/abhisek/mcqforge/internal/store"
)

// Outliner creates and extends chapter outlines.
type Outliner interface {
	Build(ctx context.Context, in contenttree.ChapterInput) (*contenttree.Tree, error)
	Expand(ctx context.Context, tree *contenttree.Tree, in contenttree.ChapterInput) (*contenttree.Tree, error)
}

// Deps are the collaborators behind the routes. A nil dependency disables
// the routes that need it.
type Deps struct {
	Mappings    store.MappingRepo
	MCQs        store.MCQRepo
	Outliner    Outliner
	Statements  batch.StatementSource
	Transformer *mcq.Transformer
	Catalog     *mcq.Catalog
	Reviewer    batch.Reviewer
	Producer    *batch.Producer
	Hub         *batch.Hub
}

// Config configures the HTTP listener.
type Config struct {
	Addr        string
	CORSOrigins []string
	// Heartbeat is the idle interval between SSE keep-alive comments.
	Heartbeat time.Duration
}

// Server is the HTTP API.
type Server struct {
	cfg      Config
	deps     Deps
	engine   *gin.Engine
	selector *contenttree.Selector
	log      *logger.Logger
}

// New builds the router.
func New(cfg Config, deps Deps, log *logger.Logger) *Server {
	if cfg.Heartbeat <= 0 {
		cfg.Heartbeat = 15 * time.Second
	}
	seed := uint64(time.Now().UnixNano())
	s := &Server{
		cfg:      cfg,
		deps:     deps,
		selector: contenttree.NewSelector(rand.New(rand.NewPCG(seed, seed>>1))),
		log:      logger.OrNop(log).With("component", "server"),
	}
	s.engine = s.routes()
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is done, then shuts down gracefully and cancels
// running batch sessions.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening", "addr", s.cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}

	if s.deps.Producer != nil {
		s.deps.Producer.Sessions().CancelAll()
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger(s.log))
	r.Use(cors.New(corsConfig(s.cfg.CORSOrigins)))

	r.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	api := r.Group("/api")
	{
		if s.deps.Mappings != nil {
			trees := api.Group("/trees/:category/:chapter")
			trees.GET("", s.getTree)
			trees.PUT("", s.putTree)
			trees.DELETE("", s.deleteTree)
			trees.POST("/merge", s.mergeTree)
			trees.GET("/random-node", s.randomNode)
			if s.deps.Outliner != nil {
				trees.POST("/generate", s.generateTree)
				trees.POST("/expand", s.expandTree)
			}
			api.GET("/trees", s.listTrees)
		}

		if s.deps.Statements != nil {
			api.POST("/statements", s.generateStatements)
		}
		if s.deps.Transformer != nil {
			api.POST("/mcq/transform", s.transform)
		}
		if s.deps.Catalog != nil {
			api.GET("/catalog", s.catalog)
		}
		if s.deps.Reviewer != nil {
			api.POST("/mcq/evaluate", s.evaluate)
		}

		if s.deps.MCQs != nil {
			api.GET("/mcqs", s.listMCQs)
			api.GET("/mcqs/:id", s.getMCQ)
		}

		if s.deps.Producer != nil {
			api.POST("/batches", s.startBatch)
			api.GET("/batches", s.listBatches)
			api.GET("/batches/:id", s.getBatch)
			api.DELETE("/batches/:id", s.cancelBatch)
			if s.deps.Hub != nil {
				api.GET("/batches/:id/events", s.batchEvents)
			}
		}
	}

	return r
}

// corsConfig allows the listed origins with credentials. No origins, or
// "*", allows every origin without credentials.
func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Content-Type", "Authorization", "X-Requested-With"},
		MaxAge:       12 * time.Hour,
	}
	if len(origins) == 0 || slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	cfg.AllowCredentials = true
	return cfg
}

func requestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info("request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"latency_ms", time.Since(start).Milliseconds(),
		)
	}
}
