package app

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/gogotex/gogotex/backend/auth-service/internal/config"
	"github.com/gogotex/gogotex/backend/auth-service/internal/database"
	"github.com/gogotex/gogotex/backend/auth-service/internal/history"
	"github.com/gogotex/gogotex/backend/auth-service/internal/users"
	"github.com/gogotex/gogotex/backend/auth-service/pkg/logger"
)

const mongoAttempts = 5

// Storage holds the repositories of the configured backend.
type Storage struct {
	Users   users.Repository
	History history.Repository
	Close   func(context.Context) error
}

// OpenStorage connects the backend named in cfg.Storage.Backend.
func OpenStorage(ctx context.Context, cfg *config.Config) (*Storage, error) {
	switch cfg.Storage.Backend {
	case config.BackendMongo:
		return openMongo(ctx, cfg.MongoDB)
	case config.BackendPostgres:
		pool, err := database.ConnectPostgres(ctx, cfg.Postgres.DSN, cfg.Postgres.Timeout)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		return &Storage{
			Users:   users.NewPostgresRepository(pool),
			History: history.NewPostgresRepository(pool),
			Close:   func(context.Context) error { pool.Close(); return nil },
		}, nil
	case config.BackendMemory:
		logger.Warnf("memory storage backend: accounts are lost on restart")
		return &Storage{
			Users:   users.NewMemoryRepository(),
			History: history.NewMemoryRepository(),
			Close:   func(context.Context) error { return nil },
		}, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

// openMongo retries with a doubling backoff; the database often starts
// after the service in compose setups.
func openMongo(ctx context.Context, cfg config.MongoDBConfig) (*Storage, error) {
	backoff := time.Second
	var client *mongo.Client
	var err error
	for attempt := 1; attempt <= mongoAttempts; attempt++ {
		client, err = database.ConnectMongo(ctx, cfg.URI, cfg.Timeout)
		if err == nil {
			break
		}
		logger.Warnf("attempt %d/%d: failed to connect to MongoDB: %v", attempt, mongoAttempts, err)
		if attempt < mongoAttempts {
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			backoff *= 2
		}
	}
	if err != nil {
		return nil, fmt.Errorf("connect mongo after %d attempts: %w", mongoAttempts, err)
	}

	db := client.Database(cfg.Database)
	ur := users.NewMongoRepository(db)
	if err := ur.EnsureIndexes(ctx); err != nil {
		return nil, fmt.Errorf("user indexes: %w", err)
	}
	hr := history.NewMongoRepository(db)
	if err := hr.EnsureIndexes(ctx); err != nil {
		return nil, fmt.Errorf("history indexes: %w", err)
	}
	return &Storage{Users: ur, History: hr, Close: client.Disconnect}, nil
}
