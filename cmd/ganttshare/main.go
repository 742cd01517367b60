package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/webapi"
	"go.uber.org/zap"

	"github.com/xxxsen/ganttshare/internal/config"
	"github.com/xxxsen/ganttshare/internal/db"
	"github.com/xxxsen/ganttshare/internal/handler"
	"github.com/xxxsen/ganttshare/internal/job"
	"github.com/xxxsen/ganttshare/internal/middleware"
	"github.com/xxxsen/ganttshare/internal/model"
	"github.com/xxxsen/ganttshare/internal/pkg/jwt"
	"github.com/xxxsen/ganttshare/internal/pkg/timeutil"
	"github.com/xxxsen/ganttshare/internal/repo"
	"github.com/xxxsen/ganttshare/internal/schedule"
	"github.com/xxxsen/ganttshare/internal/service"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "ganttshare",
		Short: "public gantt share link service",
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config.json")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run share link server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, conn, err := bootstrap(configPath)
			if err != nil {
				return err
			}
			defer conn.Close()
			return runServer(cfg, conn)
		},
	}

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "apply database migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, conn, err := bootstrap(configPath)
			if err != nil {
				return err
			}
			defer conn.Close()
			logutil.GetLogger(cmd.Context()).Info("migrations applied")
			return nil
		},
	}

	var projectID, ownerID, projectName string
	projectCmd := &cobra.Command{
		Use:   "project-register",
		Short: "register or update a project owner mirrored from the project backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			if projectID == "" || ownerID == "" {
				return fmt.Errorf("--project and --owner are required")
			}
			_, conn, err := bootstrap(configPath)
			if err != nil {
				return err
			}
			defer conn.Close()
			return repo.NewProjectRepo(conn).Upsert(cmd.Context(), &model.Project{
				ID:      projectID,
				OwnerID: ownerID,
				Name:    projectName,
				Ctime:   timeutil.NowUnix(),
			})
		},
	}
	projectCmd.Flags().StringVar(&projectID, "project", "", "project id")
	projectCmd.Flags().StringVar(&ownerID, "owner", "", "owner user id")
	projectCmd.Flags().StringVar(&projectName, "name", "", "project display name")

	var userID string
	var ttl time.Duration
	tokenCmd := &cobra.Command{
		Use:   "sign-token",
		Short: "sign an owner bearer token for operational use",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			if userID == "" {
				return fmt.Errorf("--user is required")
			}
			token, err := jwt.GenerateToken(userID, []byte(cfg.JWTSecret), ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	tokenCmd.Flags().StringVar(&userID, "user", "", "owner user id")
	tokenCmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")

	retentionCmd := &cobra.Command{
		Use:   "retention-run",
		Short: "delete links revoked or expired longer than retention.keep_days ago",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, conn, err := bootstrap(configPath)
			if err != nil {
				return err
			}
			defer conn.Close()
			scheduler := schedule.NewCronScheduler()
			retention := newRetentionJob(cfg, repo.NewShareTokenRepo(conn, timeutil.SystemClock()), timeutil.SystemClock())
			if err := scheduler.AddJob(retention, cfg.Retention.Cron); err != nil {
				return err
			}
			return scheduler.RunNow(cmd.Context(), retention.Name())
		},
	}

	rootCmd.AddCommand(runCmd, migrateCmd, projectCmd, tokenCmd, retentionCmd)

	if err := rootCmd.Execute(); err != nil {
		logutil.GetLogger(context.Background()).Fatal("startup error", zap.Error(err))
	}
}

func loadConfig(configPath string) (*config.Config, error) {
	if configPath == "" {
		return nil, fmt.Errorf("--config is required")
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	logger.Init(
		cfg.LogConfig.File,
		cfg.LogConfig.Level,
		int(cfg.LogConfig.FileCount),
		int(cfg.LogConfig.FileSize),
		int(cfg.LogConfig.KeepDays),
		cfg.LogConfig.Console,
	)
	logutil.GetLogger(context.Background()).Info("config loaded", zap.String("config", configPath))
	return cfg, nil
}

func bootstrap(configPath string) (*config.Config, *sqlx.DB, error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, nil, err
	}
	conn, err := db.Open(cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.ApplyMigrations(conn); err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("migrations: %w", err)
	}
	return cfg, conn, nil
}

func newRetentionJob(cfg *config.Config, tokens *repo.ShareTokenRepo, clock timeutil.Clock) *job.ShareRetentionJob {
	keep := time.Duration(cfg.Retention.KeepDays) * 24 * time.Hour
	return job.NewShareRetentionJob(tokens, keep, clock)
}

func runServer(cfg *config.Config, conn *sqlx.DB) error {
	logutil.GetLogger(context.Background()).Info(
		"starting server",
		zap.Int("port", cfg.Port),
		zap.String("db_driver", cfg.Database.Driver),
	)

	clock := timeutil.SystemClock()
	tokenRepo := repo.NewShareTokenRepo(conn, clock)
	projectRepo := repo.NewProjectRepo(conn)

	authority := service.NewRepoAuthority(projectRepo)
	shareService := service.NewShareService(tokenRepo, authority, clock, service.ShareOptions{
		URLPrefix:        cfg.Share.URLPrefix,
		MaxExpiresInDays: cfg.Share.MaxExpiresInDays,
		ListAuthority: service.WrapLruCacheToAuthority(
			authority,
			cfg.AuthorityCache.Size,
			time.Duration(cfg.AuthorityCache.TTLSeconds)*time.Second,
		),
	})

	deps := handler.RouterDeps{
		Shares:          handler.NewShareHandler(shareService),
		JWTSecret:       []byte(cfg.JWTSecret),
		PublicRateLimit: time.Duration(cfg.PublicRateLimitMs) * time.Millisecond,
	}

	engine, err := webapi.NewEngine(
		"/api/v1",
		fmt.Sprintf("0.0.0.0:%d", cfg.Port),
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.RequestID(),
			middleware.CORS(cfg.CORSAllowlist),
			gzip.Gzip(gzip.DefaultCompression),
		),
	)
	if err != nil {
		return fmt.Errorf("init web engine: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scheduler := schedule.NewCronScheduler()
	if cfg.Retention.KeepDays > 0 {
		if err := scheduler.AddJob(newRetentionJob(cfg, tokenRepo, clock), cfg.Retention.Cron); err != nil {
			return fmt.Errorf("schedule retention: %w", err)
		}
	}
	scheduler.Start(ctx)
	defer scheduler.Stop()

	logutil.GetLogger(context.Background()).Info("http server listening", zap.String("addr", fmt.Sprintf("0.0.0.0:%d", cfg.Port)))
	go func() {
		if err := engine.Run(); err != nil && err != http.ErrServerClosed {
			logutil.GetLogger(context.Background()).Error("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logutil.GetLogger(context.Background()).Info("server stopping...")
	return nil
}
