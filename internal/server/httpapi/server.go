// Package httpapi exposes the remote store over authenticated JSON/HTTP:
// account and token endpoints, per-user encryption metadata, and storage of
// encrypted analysis records.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"phishvault/internal/logging"
	"phishvault/internal/server/models"
	"phishvault/internal/server/services"
)

const shutdownTimeout = 5 * time.Second

// The service contracts the handlers need. Declared here so tests can swap
// in fakes without a database.
type userService interface {
	Register(ctx context.Context, username, password string) (*models.User, error)
	Login(ctx context.Context, username, password string) (string, *services.TokenPair, error)
	RefreshToken(ctx context.Context, refreshToken string) (string, *services.TokenPair, error)
}

type encryptionService interface {
	Status(ctx context.Context, userID string) (*services.EncryptionStatus, error)
	SaveSalt(ctx context.Context, userID string, salt []byte) error
	SaveAttempts(ctx context.Context, userID string, attempts int) error
	LockUser(ctx context.Context, userID string, lockedUntil time.Time, attempts int) error
}

type analysisService interface {
	Save(ctx context.Context, userID string, a *models.EncryptedAnalysis) error
	List(ctx context.Context, userID string, limit int) ([]*models.EncryptedAnalysis, error)
}

type HTTPServer struct {
	address    string
	logger     logging.Logger
	users      userService
	encryption encryptionService
	analyses   analysisService
	jwtSecret  []byte
}

func NewHTTPServer(a string, l logging.Logger, us userService, es encryptionService, as analysisService, secretKey string) *HTTPServer {
	return &HTTPServer{
		address:    a,
		logger:     l.With("module", "http_server"),
		users:      us,
		encryption: es,
		analyses:   as,
		jwtSecret:  []byte(secretKey),
	}
}

func (s *HTTPServer) routes() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/ping", s.pingHandler).Methods("GET")

	r.HandleFunc("/auth/register", s.registerHandler).Methods("POST")
	r.HandleFunc("/auth/login", s.loginHandler).Methods("POST")
	r.HandleFunc("/auth/refresh", s.refreshHandler).Methods("POST")

	r.HandleFunc("/encryption/status", s.withAuth(s.statusHandler)).Methods("GET")
	r.HandleFunc("/encryption/salt", s.withAuth(s.saveSaltHandler)).Methods("POST")
	r.HandleFunc("/encryption/save-attempts", s.withAuth(s.saveAttemptsHandler)).Methods("POST")
	r.HandleFunc("/encryption/lock-user", s.withAuth(s.lockUserHandler)).Methods("POST")

	r.HandleFunc("/analyses", s.withAuth(s.listAnalysesHandler)).Methods("GET")
	r.HandleFunc("/analyses", s.withAuth(s.saveAnalysisHandler)).Methods("POST")

	return r
}

// Handler exposes the routed handler, mostly for tests.
func (s *HTTPServer) Handler() http.Handler {
	return s.routes()
}

func (s *HTTPServer) Run(ctx context.Context) error {

	srv := &http.Server{
		Addr:    s.address,
		Handler: s.routes(),
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, err.Error())
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}
