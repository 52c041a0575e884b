package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"meetingrec/internal/app"
	"meetingrec/internal/dashboard"
	"meetingrec/internal/logging"
)

// No uploads are accepted; request bodies are small forms or empty.
const maxRequestBody = 1 << 20

type Server struct {
	engine *gin.Engine
	app    *app.App
}

func NewServer(a *app.App) (*Server, error) {
	gin.SetMode(gin.ReleaseMode)

	engine, err := newEngine(a)
	if err != nil {
		return nil, err
	}
	return &Server{engine: engine, app: a}, nil
}

func newEngine(a *app.App) (*gin.Engine, error) {
	tmpl, err := dashboard.Templates()
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	engine := gin.New()
	engine.SetHTMLTemplate(tmpl)
	engine.Use(gin.Recovery())
	engine.Use(RequestLogger(logging.Component(a.Log, "http")))
	engine.Use(MaxBodySize(maxRequestBody))
	engine.Use(CORS())
	engine.Use(Sessions(a.Sessions, a.Config.SessionTTL))

	api := NewAPI(a)
	registerRoutes(engine, api)
	return engine, nil
}

func (s *Server) Handler() http.Handler { return s.engine }

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", s.app.Config.Port),
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.app.Log.Info().Str("addr", srv.Addr).Msg("server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.app.Log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
