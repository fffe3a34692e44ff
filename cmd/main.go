package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/redis/go-redis/v9"

	httpapi "github.com/gradewatch/gradewatch-server/internal/api/http"
	"github.com/gradewatch/gradewatch-server/internal/browser"
	"github.com/gradewatch/gradewatch-server/internal/config"
	"github.com/gradewatch/gradewatch-server/internal/coursesearch"
	"github.com/gradewatch/gradewatch-server/internal/crypto"
	"github.com/gradewatch/gradewatch-server/internal/logger"
	"github.com/gradewatch/gradewatch-server/internal/model"
	"github.com/gradewatch/gradewatch-server/internal/notify"
	sendgridmail "github.com/gradewatch/gradewatch-server/internal/notify/sendgrid"
	"github.com/gradewatch/gradewatch-server/internal/portal"
	"github.com/gradewatch/gradewatch-server/internal/queue"
	"github.com/gradewatch/gradewatch-server/internal/repository/postgres"
	"github.com/gradewatch/gradewatch-server/internal/scheduler"
	storage "github.com/gradewatch/gradewatch-server/internal/storage/minio"
	"github.com/gradewatch/gradewatch-server/internal/token"
	"github.com/gradewatch/gradewatch-server/internal/worker"
)

var (
	buildVersion = "N/A" // set by ldflags
	buildDate    = "N/A" // set by ldflags
	buildCommit  = "N/A" // set by ldflags
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT, os.Interrupt)
	defer stop()

	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}
	logger := logger.New(cfg.LogLevel, cfg.LogFormat)

	db, err := postgres.NewConnection(ctx, cfg.Database.DSN)
	if err != nil {
		logger.Fatal("failed to initialize storage", "error", err)
	}
	defer db.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal("failed to reach redis", "error", err)
	}
	defer redisClient.Close()

	userRepo := postgres.NewUserRepository(db)
	snapshotRepo := postgres.NewSnapshotRepository(db)
	cipher, err := crypto.NewAESCipher(cfg.Secrets.CredentialKey)
	if err != nil {
		logger.Fatal("failed to initialize credential cipher", "error", err)
	}

	archive := newArchive(ctx, cfg, logger)

	sessions := worker.NewSessions(browser.NewManager(browser.Options{
		ExecPath:      cfg.Browser.ExecPath,
		ProfileParent: cfg.Browser.ProfileParent,
		Headless:      cfg.Browser.Headless,
		SingleProcess: cfg.Browser.SingleProcessEnabled(),
	}, logger))

	loginURL := cfg.Portal.BaseURL + cfg.Portal.LoginPath
	auth := portal.NewAuthenticator(loginURL, cfg.Portal.WaitTimeout, logger)
	fetcher := portal.NewFetcher(cfg.Portal.FetchConcurrency, logger)
	newClient := func(cookies []model.Cookie) worker.PortalClient {
		return portal.NewClient(cfg.Portal.BaseURL, cfg.Portal.HTTPTimeout, cookies)
	}

	sink := sendgridmail.NewSink(cfg.Mail.APIKey, cfg.Mail.FromName, cfg.Mail.FromEmail, logger)
	dispatcher := notify.NewDispatcher(sink, logger)

	checker := worker.NewGradeChecker(worker.GradeCheckerParams{
		Sessions:  sessions,
		Auth:      auth,
		NewClient: newClient,
		Fetcher:   fetcher,
		Users:     userRepo,
		Snapshots: snapshotRepo,
		Cipher:    cipher,
		Notifier:  dispatcher,
		Archive:   archive,
		SoftLimit: cfg.Scheduler.SoftTimeLimit,
		Logger:    logger,
	})

	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}
	policy := queue.RetryPolicy{
		MaxRedeliveries:   cfg.Scheduler.MaxRedeliveries,
		VisibilityTimeout: cfg.Scheduler.HardTimeLimit,
	}

	queueClient := queue.NewClient(redisOpt, policy, logger)
	defer queueClient.Close()

	sweep := scheduler.New(userRepo, queueClient, cfg.Scheduler.BatchSize, logger)
	periodic, err := scheduler.NewPeriodic(redisOpt, cfg.Scheduler.CronSpec)
	if err != nil {
		logger.Fatal("failed to build periodic scheduler", "error", err)
	}

	gradeMux := asynq.NewServeMux()
	gradeMux.HandleFunc(queue.TaskGradeCheck, checker.HandleTask)

	generalMux := asynq.NewServeMux()
	generalMux.HandleFunc(queue.TaskGradeTrigger, sweep.HandleTrigger)

	// Schedule auto-complete needs the external course catalog; without
	// one configured the task is left unregistered.
	if cfg.Courses.BaseURL != "" {
		search := coursesearch.NewClient(cfg.Courses.BaseURL, cfg.Courses.Timeout)
		completer := worker.NewAutoCompleter(sessions, auth, userRepo, cipher, search,
			cfg.Portal.BaseURL+cfg.Portal.SchedulePath, cfg.Portal.WaitTimeout, logger)
		generalMux.HandleFunc(queue.TaskAutoComplete, completer.HandleTask)
	} else {
		logger.Info("course search not configured, schedule auto-complete disabled")
	}

	gradeServer := queue.NewGradeServer(redisOpt, cfg.Scheduler.GradeConcurrency, logger)
	generalServer := queue.NewGeneralServer(redisOpt, 0, logger)

	verifier := token.NewVerifier(cfg.HTTP.JWTSecret, cfg.HTTP.JWTIssuer)
	apiServer := httpapi.NewServer(cfg.HTTP.Addr, checker, verifier, map[string]httpapi.Pinger{
		"postgres": db.Ping,
		"redis": func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		},
	}, logger)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		logger.Info("starting grade worker", "queue", queue.QueueGrades, "concurrency", cfg.Scheduler.GradeConcurrency)
		if err := gradeServer.Run(gradeMux); err != nil {
			logger.Error("grade worker stopped", "error", err)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		logger.Info("starting general worker")
		if err := generalServer.Run(generalMux); err != nil {
			logger.Error("general worker stopped", "error", err)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		logger.Info("starting periodic trigger", "cron", cfg.Scheduler.CronSpec)
		if err := periodic.Run(); err != nil {
			logger.Error("periodic trigger stopped", "error", err)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := apiServer.Run(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server stopped", "error", err)
		}
	}()

	logAppVersion()

	<-ctx.Done()
	logger.Info("received interruption signal, shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("error during http server shutdown", "error", err)
	}
	periodic.Shutdown()
	gradeServer.Shutdown()
	generalServer.Shutdown()

	wg.Wait()
	logger.Info("shutdown complete")
}

// newArchive builds the optional raw payload archive. A missing
// endpoint disables archival entirely.
func newArchive(ctx context.Context, cfg *config.Config, logger *logger.Logger) worker.Archiver {
	if cfg.Archive.Endpoint == "" {
		logger.Info("raw payload archive disabled")
		return nil
	}

	minioClient, err := minio.New(cfg.Archive.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.Archive.AccessKey, cfg.Archive.SecretKey, ""),
		Secure: cfg.Archive.UseSSL,
	})
	if err != nil {
		logger.Fatal("failed to create minio client", "error", err)
	}
	archive, err := storage.NewArchive(ctx, minioClient, cfg.Archive.Bucket)
	if err != nil {
		logger.Fatal("failed to initialize archive", "error", err)
	}
	return archive
}

func logAppVersion() {
	tmpl := `
Build version: %s
Build date: %s
Build commit: %s
`

	fmt.Printf(tmpl, buildVersion, buildDate, buildCommit)
}
