package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/gin-gonic/gin"

	googleauth "fileforge-backend/internal/auth"
	"fileforge-backend/internal/engine"
	"fileforge-backend/internal/files"
	"fileforge-backend/internal/jobs"
	"fileforge-backend/internal/queue"
	"fileforge-backend/internal/shared/config"
	"fileforge-backend/internal/shared/server"
	"fileforge-backend/internal/shared/storage/db"
	"fileforge-backend/internal/shared/storage/object"
	localstore "fileforge-backend/internal/shared/storage/object/local"
	s3store "fileforge-backend/internal/shared/storage/object/s3"
	"fileforge-backend/internal/staging"
	"fileforge-backend/internal/usage"
	"fileforge-backend/internal/users"
)

// App holds shared dependencies for the API server and the queue worker.
type App struct {
	Config config.Config
	Router *gin.Engine
	DB     *sql.DB
	Store  object.ObjectStore
	Queue  queue.Client

	FilesRepo files.FilesRepo
	JobsRepo  jobs.Repo
	UsersRepo users.Repo

	FilesService *files.Service
	JobsService  *jobs.Service
	UsageService *usage.Service
	UsersService *users.Service

	// JobProcessor allows callers to override job processing for tests.
	JobProcessor JobProcessor

	FilesHandler *files.Handler
	JobsHandler  *jobs.Handler
	UsageHandler *usage.Handler
	UsersHandler *users.Handler
	GoogleAuth   *googleauth.GoogleService
}

// JobProcessor consumes a queued job id and drives it to a terminal state.
type JobProcessor interface {
	ProcessJob(ctx context.Context, jobID string) error
}

// Build prepares shared dependencies and the router.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}
	ctx := context.Background()

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	queueClient, err := buildQueue(ctx)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config: cfg,
		DB:     sqlDB,
		Store:  store,
		Queue:  queueClient,
	}

	if err := buildServices(app); err != nil {
		return nil, err
	}

	app.Router = server.NewRouter(server.RouterDeps{
		Config:       app.Config,
		FilesHandler: app.FilesHandler,
		JobsHandler:  app.JobsHandler,
		UsageHandler: app.UsageHandler,
		UsersHandler: app.UsersHandler,
		GoogleAuth:   app.GoogleAuth,
	})

	return app, nil
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: DATABASE_URL empty; using in-memory repositories")
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	var (
		sqlDB *sql.DB
		err   error
	)
	if db.IsLambdaRuntime() {
		opts := db.OptionsFromEnv(db.DefaultLambdaOptions())
		sqlDB, err = db.GetSingleton(ctx, cfg.DatabaseURL, opts)
	} else {
		opts := db.OptionsFromEnv(db.DefaultServerOptions())
		sqlDB, err = db.Connect(ctx, cfg.DatabaseURL, opts)
	}
	if err != nil {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: database connect failed; using in-memory repositories: %v", err)
			return nil, nil
		}
		return nil, err
	}

	if err := db.RunMigrations(ctx, sqlDB); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func buildQueue(ctx context.Context) (queue.Client, error) {
	if strings.TrimSpace(os.Getenv("FF_SQS_QUEUE_URL")) == "" {
		return nil, nil
	}
	return queue.NewSQSClient(ctx)
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}

func buildStager(cfg config.Config, store object.ObjectStore) (staging.Stager, error) {
	maxBytes := cfg.MaxUploadMB << 20

	httpStager, err := staging.NewHTTPStager(store, cfg.EngineBaseURL, cfg.EngineToken, maxBytes, cfg.StagingTimeout)
	if err != nil {
		return nil, err
	}

	if cfg.StagingTransport == "presign" {
		presigner, ok := store.(object.Presigner)
		if !ok {
			log.Printf("bootstrap: STAGING_TRANSPORT=presign needs an S3 store; falling back to upload")
			return staging.WithRetry(httpStager, nil), nil
		}
		presignStager, err := staging.NewPresignStager(presigner, maxBytes, 0)
		if err != nil {
			return nil, err
		}
		return staging.WithRetry(presignStager, httpStager), nil
	}

	return staging.WithRetry(httpStager, nil), nil
}

func buildServices(app *App) error {
	var filesRepo files.FilesRepo
	var jobsRepo jobs.Repo
	var usersRepo users.Repo

	if app.DB != nil {
		filesRepo = &files.PGRepo{DB: app.DB}
		jobsRepo = &jobs.PGRepo{DB: app.DB}
		usersRepo = &users.PGRepo{DB: app.DB}
	} else {
		filesRepo = files.NewMemoryRepo()
		jobsRepo = jobs.NewMemoryRepo()
		usersRepo = users.NewMemoryRepo()
	}

	cfg := app.Config
	maxBytes := cfg.MaxUploadMB << 20

	filesSvc := &files.Service{
		Store:    app.Store,
		Repo:     filesRepo,
		MaxBytes: maxBytes,
	}

	var usageSvc *usage.Service
	if app.DB != nil {
		usageSvc = usage.NewPostgresService(usage.NewPGStore(app.DB), cfg.DailyJobLimit)
	} else {
		usageSvc = usage.NewService(cfg.DailyJobLimit)
	}

	engineClient, err := engine.NewClient(cfg.EngineBaseURL, cfg.EngineToken, cfg.EngineTimeout)
	if err != nil {
		return err
	}

	stager, err := buildStager(cfg, app.Store)
	if err != nil {
		return err
	}

	jobsSvc := &jobs.Service{
		Repo:   jobsRepo,
		Files:  filesRepo,
		Store:  app.Store,
		Stager: stager,
		Engine: engineClient,
		Usage:  usageSvc,
		Queue:  app.Queue,
	}

	userSvc := users.NewService(usersRepo)
	googleAuthSvc := googleauth.NewGoogleService(
		cfg.GoogleClientID,
		cfg.GoogleClientSecret,
		cfg.GoogleRedirectURL,
		cfg.UIRedirectURL,
		userSvc,
	)

	app.FilesRepo = filesRepo
	app.JobsRepo = jobsRepo
	app.UsersRepo = usersRepo
	app.FilesService = filesSvc
	app.JobsService = jobsSvc
	app.UsageService = usageSvc
	app.UsersService = userSvc
	app.JobProcessor = jobsSvc
	app.FilesHandler = files.NewHandler(filesSvc)
	app.JobsHandler = jobs.NewHandler(jobsSvc)
	app.UsageHandler = usage.NewHandler(usageSvc)
	app.UsersHandler = users.NewHandler(userSvc)
	app.GoogleAuth = googleAuthSvc

	return nil
}
