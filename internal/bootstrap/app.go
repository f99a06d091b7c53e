package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"os"
	"strings"

	"github.com/gin-gonic/gin"

	"feedback-translator/internal/analyses"
	googleauth "feedback-translator/internal/auth"
	"feedback-translator/internal/llm"
	"feedback-translator/internal/llm/gemini"
	"feedback-translator/internal/patterns"
	"feedback-translator/internal/queue"
	"feedback-translator/internal/shared/config"
	"feedback-translator/internal/shared/server"
	"feedback-translator/internal/shared/storage/db"
	"feedback-translator/internal/users"
)

const memoryQueueBuffer = 128

var errDatabaseRequired = errors.New("DATABASE_URL is required")

// App holds shared dependencies for the API and worker binaries.
type App struct {
	Config          config.Config
	Router          *gin.Engine
	DB              *sql.DB
	Queue           queue.Client
	MemoryQueue     *queue.MemoryClient
	AnalysesRepo    analyses.Repo
	UsersRepo       users.Repo
	AnalysesService *analyses.Service
	PatternsService *patterns.Service
	UsersService    *users.Service
	AnalysisHandler *analyses.Handler
	PatternsHandler *patterns.Handler
	UsersHandler    *users.Handler
	GoogleAuth      *googleauth.GoogleService
}

// Build prepares shared dependencies and wires the router.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	ctx := context.Background()

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config: cfg,
		DB:     sqlDB,
	}

	if err := buildQueue(ctx, app); err != nil {
		return nil, err
	}
	if err := buildServices(app); err != nil {
		return nil, err
	}

	app.Router = server.NewRouter(server.RouterDeps{
		Config:          app.Config,
		AnalysisHandler: app.AnalysisHandler,
		PatternsHandler: app.PatternsHandler,
		UsersHandler:    app.UsersHandler,
		GoogleAuth:      app.GoogleAuth,
	})

	return app, nil
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: DATABASE_URL empty; using in-memory repositories")
			return nil, nil
		}
		return nil, errDatabaseRequired
	}

	opts := db.OptionsFromEnv(db.DefaultServerOptions())
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, opts)
	if err != nil {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: database connect failed; using in-memory repositories: %v", err)
			return nil, nil
		}
		return nil, err
	}

	if err := db.RunMigrations(ctx, sqlDB); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return sqlDB, nil
}

func buildQueue(ctx context.Context, app *App) error {
	if strings.TrimSpace(app.Config.QueueURL) != "" {
		sqsClient, err := queue.NewSQSClient(ctx)
		if err != nil {
			return err
		}
		app.Queue = sqsClient
		return nil
	}

	// No SQS configured: dispatch through an in-process channel drained by a
	// consumer goroutine in the API binary.
	mem := queue.NewMemoryClient(memoryQueueBuffer)
	app.Queue = mem
	app.MemoryQueue = mem
	return nil
}

func buildServices(app *App) error {
	var analysisRepo analyses.Repo
	var userRepo users.Repo
	var patternStore patterns.Store
	if app.DB != nil {
		analysisRepo = &analyses.PGRepo{DB: app.DB}
		userRepo = &users.PGRepo{DB: app.DB}
		patternStore = &patterns.PGStore{DB: app.DB}
	} else {
		analysisRepo = analyses.NewMemoryRepo()
		userRepo = users.NewMemoryRepo()
		patternStore = patterns.NewMemoryStore()
	}

	llmClient := llm.Client(llm.PlaceholderClient{})
	if app.Config.LLMProvider == "gemini" {
		geminiClient, err := gemini.NewClient(os.Getenv("GEMINI_API_KEY"), app.Config.LLMModel)
		if err != nil {
			if isDevLike(app.Config.Env) {
				log.Printf("bootstrap: gemini not configured; using placeholder LLM: %v", err)
			} else {
				return err
			}
		} else {
			llmClient = geminiClient
		}
	}

	patternSvc := patterns.NewService(llmClient, patternStore)
	analysisSvc := &analyses.Service{
		Repo:       analysisRepo,
		Translator: analyses.NewTranslator(llmClient),
		JobQueue:   app.Queue,
		Patterns:   patternSvc,
	}
	userSvc := users.NewService(userRepo)

	googleAuthSvc := googleauth.NewGoogleService(
		app.Config.GoogleClientID,
		app.Config.GoogleClientSecret,
		app.Config.GoogleRedirectURL,
		app.Config.UIRedirectURL,
		userSvc,
	)

	app.AnalysesRepo = analysisRepo
	app.UsersRepo = userRepo
	app.AnalysesService = analysisSvc
	app.PatternsService = patternSvc
	app.UsersService = userSvc
	app.AnalysisHandler = analyses.NewHandler(analysisSvc)
	app.PatternsHandler = patterns.NewHandler(patternSvc)
	app.UsersHandler = users.NewHandler(userSvc)
	app.GoogleAuth = googleAuthSvc
	return nil
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}
