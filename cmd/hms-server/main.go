package main

import (
	"context"
	crypto_rand "crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/hms/hms/internal/config"
	"github.com/hms/hms/internal/domain/access"
	"github.com/hms/hms/internal/domain/identity"
	"github.com/hms/hms/internal/domain/tenancy"
	"github.com/hms/hms/internal/platform/db"
	"github.com/hms/hms/internal/platform/middleware"
	"github.com/hms/hms/internal/platform/token"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "hms-server",
		Short: "Hospital management API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(orgCmd())
	rootCmd.AddCommand(userCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			count, err := migrator.Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			statuses, err := migrator.Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			for _, s := range statuses {
				status := "pending"
				appliedAt := ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	}
	statusCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(statusCmd)

	return cmd
}

func orgCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "org",
		Short: "Manage organizations",
	}

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new organization",
		RunE: func(cmd *cobra.Command, args []string) error {
			name, _ := cmd.Flags().GetString("name")
			subdomain, _ := cmd.Flags().GetString("subdomain")
			if name == "" || subdomain == "" {
				return fmt.Errorf("--name and --subdomain are required")
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			orgRepo := tenancy.NewOrganizationRepo(pool)
			org := &tenancy.Organization{Name: name, Subdomain: subdomain, Active: true}
			if err := orgRepo.Create(ctx, org); err != nil {
				return err
			}
			fmt.Printf("Organization created: %s (subdomain %s)\n", org.ID, subdomain)
			return nil
		},
	}
	createCmd.Flags().String("name", "", "Organization display name")
	createCmd.Flags().String("subdomain", "", "Organization subdomain")
	cmd.AddCommand(createCmd)

	return cmd
}

func userCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage accounts",
	}

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create an account",
		RunE: func(cmd *cobra.Command, args []string) error {
			email, _ := cmd.Flags().GetString("email")
			password, _ := cmd.Flags().GetString("password")
			role, _ := cmd.Flags().GetString("role")
			orgIDStr, _ := cmd.Flags().GetString("org")
			if email == "" || password == "" {
				return fmt.Errorf("--email and --password are required")
			}

			var orgID *uuid.UUID
			if orgIDStr != "" {
				id, err := uuid.Parse(orgIDStr)
				if err != nil {
					return fmt.Errorf("invalid --org: %w", err)
				}
				orgID = &id
			}
			if orgID == nil && role != identity.RoleSuperAdmin {
				return fmt.Errorf("--org is required for role %s", role)
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			hash, err := identity.HashPassword(password)
			if err != nil {
				return err
			}

			acct := &identity.Account{
				OrganizationID: orgID,
				Email:          identity.NormalizeEmail(email),
				Role:           role,
				Active:         true,
			}
			if err := identity.NewAccountRepo(pool).Create(ctx, acct); err != nil {
				return err
			}
			if _, err := pool.Exec(ctx,
				`UPDATE app_user SET password_hash = $2 WHERE id = $1`, acct.ID, hash); err != nil {
				return err
			}
			fmt.Printf("Account created: %s (%s)\n", acct.ID, role)
			return nil
		},
	}
	createCmd.Flags().String("email", "", "Account email")
	createCmd.Flags().String("password", "", "Initial password")
	createCmd.Flags().String("role", identity.RoleAdmin, "Account role")
	createCmd.Flags().String("org", "", "Organization id (omit for super_admin)")
	cmd.AddCommand(createCmd)

	return cmd
}

func runServer() error {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	signingKey := cfg.JWTSigningKey
	if signingKey == "" {
		// Development only; Validate rejects a missing key in production.
		buf := make([]byte, 32)
		if _, err := crypto_rand.Read(buf); err != nil {
			logger.Fatal().Err(err).Msg("failed to generate signing key")
		}
		signingKey = hex.EncodeToString(buf)
		logger.Warn().Msg("JWT_SIGNING_KEY not set; using an ephemeral key, tokens will not survive restarts")
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	var revoked token.RevocationStore
	if cfg.RedisURL != "" {
		store, err := token.NewRedisRevocationStore(cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to redis")
		}
		revoked = store
		logger.Info().Msg("using redis-backed token revocation")
	} else {
		store := token.NewMemoryRevocationStore()
		defer store.Close()
		revoked = store
		logger.Warn().Msg("REDIS_URL not set; revoked tokens are tracked in memory only")
	}

	tokenSvc := token.NewService([]byte(signingKey), cfg.JWTIssuer, cfg.AccessTTL(), cfg.RefreshTTL(), revoked)

	accountRepo := identity.NewAccountRepo(pool)
	identitySvc := identity.NewService(accountRepo, tokenSvc, tokenSvc, identity.NewPasswordVerifier(pool))
	identityHandler := identity.NewHandler(identitySvc, tokenSvc)

	orgRepo := tenancy.NewOrganizationRepo(pool)
	locRepo := tenancy.NewLocationRepo(pool)
	tenancySvc := tenancy.NewService(orgRepo, locRepo, accountRepo, logger)
	tenancyHandler := tenancy.NewHandler(tenancySvc)

	gate := access.NewGate(accountRepo, access.NewRecordRepo(pool), logger)
	accessHandler := access.NewHandler(gate)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID", "X-Organization-Subdomain"},
	}))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": "0.1.0",
		})
	})

	apiV1 := e.Group("/api/v1")
	authed := apiV1.Group("", token.Middleware(tokenSvc))
	scoped := authed.Group("", tenancy.ScopeMiddleware(tenancySvc))

	identityHandler.RegisterRoutes(apiV1, authed)
	tenancyHandler.RegisterRoutes(authed)
	accessHandler.RegisterRoutes(scoped)

	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("server starting")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server stopped")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
