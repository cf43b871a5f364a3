package bootstrap

import (
	"context"
	"fmt"
	"log"

	"github.com/go-redis/redis/v8"

	"github.com/dinhkhaphancs/live-quiz-runtime/internal/config"
	"github.com/dinhkhaphancs/live-quiz-runtime/internal/quizstore"
	"github.com/dinhkhaphancs/live-quiz-runtime/internal/store"
	"github.com/dinhkhaphancs/live-quiz-runtime/pkg/dispatch"
)

// App represents the application
type App struct {
	config      *config.Config
	server      *Server
	redisClient *redis.Client
	hub         *dispatch.RedisHub
	cancelHub   context.CancelFunc
}

// NewApp creates a new application instance
func NewApp() (*App, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.GetAddr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx, cancelHub := context.WithCancel(context.Background())
	if _, err := redisClient.Ping(ctx).Result(); err != nil {
		cancelHub()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	log.Println("Connected to Redis")

	sessionStore := store.NewRedisStore(redisClient, cfg.Session.SessionTTL(), cfg.Session.MaxParticipantsPerSession)

	quizzes := quizstore.NewMemoryStore()
	if cfg.Session.QuizSeedFile != "" {
		if err := quizstore.LoadSeedFile(quizzes, cfg.Session.QuizSeedFile); err != nil {
			log.Printf("Warning: failed to load quiz seed file: %v", err)
		} else {
			log.Printf("Loaded quiz catalog from %s", cfg.Session.QuizSeedFile)
		}
	}

	hub := dispatch.NewRedisHub(ctx, redisClient)
	go hub.Run(ctx)
	log.Println("Started connection hub")

	components := NewComponents(sessionStore, quizzes, hub, cfg.Server.PublicBaseURL)
	router := SetupRouter(components)
	server := NewServer(cfg, router)

	return &App{
		config:      cfg,
		server:      server,
		redisClient: redisClient,
		hub:         hub,
		cancelHub:   cancelHub,
	}, nil
}

// Start starts the application
func (a *App) Start() {
	a.server.Start()
}

// Stop gracefully stops the application
func (a *App) Stop() {
	a.cancelHub()

	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			log.Printf("Error closing Redis client: %v", err)
		}
	}
}
