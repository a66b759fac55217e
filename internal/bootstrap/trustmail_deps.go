// Package bootstrap wires configuration, infrastructure and services into a
// runnable API server.
package bootstrap

import (
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver for database/sql
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"trustmail_server/adapter/out/persistence"
	"trustmail_server/adapter/out/provider"
	"trustmail_server/config"
	"trustmail_server/core/service/analysis"
	"trustmail_server/core/service/auth"
	"trustmail_server/core/service/inbox"
	"trustmail_server/infra/database"
	"trustmail_server/pkg/logger"
)

type Dependencies struct {
	Config *config.Config
	DB     *pgxpool.Pool
	SQLDB  *sqlx.DB
	Redis  *redis.Client

	// Adapters
	GmailProvider *provider.GmailAdapter
	OAuthRepo     *persistence.OAuthAdapter
	SessionStore  *persistence.RedisSessionStore
	StateStore    *persistence.RedisOAuthStateStore

	// Services
	Analyzer     *analysis.Analyzer
	InboxService *inbox.Service
	OAuthService *auth.OAuthService
}

func NewDependencies(cfg *config.Config) (*Dependencies, func(), error) {
	deps := &Dependencies{Config: cfg}
	var cleanups []func()

	// Database (pgxpool)
	db, err := database.NewPostgres(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	deps.DB = db
	cleanups = append(cleanups, func() { db.Close() })

	// Database (sqlx for the repository adapters)
	sqlxURL := cfg.DatabaseURL
	if strings.Contains(sqlxURL, "?") {
		sqlxURL += "&default_query_exec_mode=simple_protocol"
	} else {
		sqlxURL += "?default_query_exec_mode=simple_protocol"
	}
	sqlDB, err := sqlx.Connect("pgx", sqlxURL)
	if err != nil {
		cleanup(cleanups)
		return nil, nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)
	deps.SQLDB = sqlDB
	cleanups = append(cleanups, func() { sqlDB.Close() })

	// Redis
	redisClient, err := database.NewRedis(cfg.RedisURL)
	if err != nil {
		cleanup(cleanups)
		return nil, nil, err
	}
	deps.Redis = redisClient
	cleanups = append(cleanups, func() { redisClient.Close() })

	// Outbound adapters
	deps.GmailProvider = provider.NewGmailAdapter(&provider.GmailConfig{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  cfg.GoogleRedirectURL,
	})
	deps.OAuthRepo = persistence.NewOAuthAdapter(sqlDB)
	deps.SessionStore = persistence.NewRedisSessionStore(redisClient, cfg.SessionTTL)
	deps.StateStore = persistence.NewRedisOAuthStateStore(redisClient)

	// Trust analyzer, with the LLM fallback only when a key is configured
	var analyzerOpts []analysis.Option
	if scorer := analysis.NewLLMScorer(analysis.LLMConfig{
		APIKey:  cfg.OpenAIAPIKey,
		Model:   cfg.LLMModel,
		Timeout: time.Duration(cfg.LLMTimeoutSec) * time.Second,
	}); scorer != nil {
		analyzerOpts = append(analyzerOpts, analysis.WithLLMScorer(scorer))
		logger.Info("LLM trust scoring enabled (model: %s)", cfg.LLMModel)
	} else {
		logger.Info("LLM trust scoring disabled, heuristics only")
	}
	deps.Analyzer = analysis.NewAnalyzer(analyzerOpts...)

	// Services
	deps.InboxService = inbox.NewService(deps.GmailProvider, deps.Analyzer)
	deps.OAuthService = auth.NewOAuthService(
		deps.GmailProvider, // authenticator
		deps.GmailProvider, // provider profile lookup
		deps.OAuthRepo,
		deps.SessionStore,
	)

	return deps, func() { cleanup(cleanups) }, nil
}

func cleanup(fns []func()) {
	for i := len(fns) - 1; i >= 0; i-- {
		fns[i]()
	}
}
