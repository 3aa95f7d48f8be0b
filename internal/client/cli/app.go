package cli

import (
	"bufio"
	"context"
	"log/slog"
	"os"

	_ "modernc.org/sqlite"

	"phishvault/internal/client/client"
	"phishvault/internal/client/config"
	"phishvault/internal/client/services"
	"phishvault/internal/logging"
)

// App bundles the CLI's collaborators: the HTTP API client, the encryption
// session, and the analysis service over the local SQLite stores.
type App struct {
	config   *config.Config
	api      *client.HTTPClient
	session  *services.Session
	analyses services.AnalysisService
	limiter  *services.RateLimiter
	repos    *client.Repositories
	logger   logging.Logger
	reader   *bufio.Reader
}

func NewApp(cfg *config.Config) (*App, error) {
	ctx := context.Background()

	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	})))

	repos, err := client.InitDatabase(ctx, cfg.DatabaseDSN)
	if err != nil {
		return nil, err
	}

	api := client.NewHTTPClient(cfg.ServerEndpointAddr, cfg.RequestTimeout)

	broadcaster := services.NewBroadcaster()
	limiter := services.NewRateLimiter(repos.LocalState, api, broadcaster, logger)
	salts := services.NewSaltStore(api)
	session := services.NewSession(api, salts, repos.KeyVault, limiter, broadcaster, logger)
	analyses := services.NewAnalysisService(api, api, session, logger)

	return &App{
		config:   cfg,
		api:      api,
		session:  session,
		analyses: analyses,
		limiter:  limiter,
		repos:    repos,
		logger:   logger,
		reader:   bufio.NewReader(os.Stdin),
	}, nil
}

// Run starts the REPL and blocks until the user exits. On return, in-flight
// lockout mirroring is drained and the local database is closed.
func (a *App) Run(ctx context.Context) {
	watchCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go a.session.Watch(watchCtx)

	scanner := bufio.NewScanner(os.Stdin)
	runREPL(ctx, a, a.getStatus, scanner)

	a.limiter.Wait()
	_ = a.api.Close()
	_ = a.repos.DB.Close()
}

func (a *App) isLoggedIn() bool {
	return a.api.UserID() != ""
}

func (a *App) isUnlocked() bool {
	return a.session.Status().IsUnlocked
}

func (a *App) getStatus() string {
	if !a.isLoggedIn() {
		return "logged out"
	}
	return string(a.session.Status().State)
}
