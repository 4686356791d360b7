package main

import (
	"context"
	"database/sql"
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"dokan/internal/adapters/api"
	"dokan/internal/adapters/db/memory"
	pgrepo "dokan/internal/adapters/db/postgres"
	appauth "dokan/internal/application/auth"
	"dokan/internal/config"
	domainauth "dokan/internal/domain/auth"
)

//	@title			Dokan Issuer API
//	@version		1.0
//	@description	Token issuer backing the Dokan storefront session

//	@license.name	MIT
//	@license.url	https://opensource.org/licenses/MIT

//	@host		localhost:8080
//	@BasePath	/api/v1

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Type "Bearer" followed by a space and JWT token.

func main() {
	// Configure zerolog
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg := config.LoadConfig()
	if cfg.Issuer.AccessSecret == "" {
		log.Fatal().Msg("JWT_SECRET_KEY is required")
	}

	log.Info().
		Str("http_port", cfg.HTTPPort).
		Bool("db_enabled", cfg.Database.Enabled).
		Dur("access_ttl", cfg.Issuer.AccessTTL).
		Dur("refresh_ttl", cfg.Issuer.RefreshTTL).
		Msg("Starting Dokan issuer")

	var accountRepo domainauth.Repository
	if cfg.Database.Enabled {
		log.Info().Msg("Initializing Postgres repositories")
		db, err := sql.Open("postgres", cfg.Database.DSN)
		if err != nil {
			log.Fatal().Err(err).Msg("open postgres")
		}
		defer db.Close()
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(30 * time.Minute)

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := db.PingContext(ctx); err != nil {
			log.Fatal().Err(err).Msg("ping postgres")
		}
		if err := pgrepo.RunMigrations(ctx, db, cfg.Database.Migrations); err != nil {
			log.Fatal().Err(err).Msg("run migrations")
		}
		cancel()
		accountRepo = pgrepo.NewAccountRepository(db)
	} else {
		log.Warn().Msg("DB disabled - using in-memory repositories")
		accountRepo = memory.NewAccountRepository()
	}

	authService := appauth.NewService(&cfg.Issuer, accountRepo)
	handler := api.NewHandler(authService)

	gin.SetMode(gin.ReleaseMode)
	r := gin.Default()
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
	}))

	handler.RegisterRoutes(r)

	log.Info().Msgf("Starting Dokan issuer on port %s", cfg.HTTPPort)
	if err := r.Run(":" + cfg.HTTPPort); err != nil {
		log.Fatal().Err(err).Msg("Failed to start server")
	}
}
