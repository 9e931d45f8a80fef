package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"golang.org/x/oauth2"

	"github.com/gogotex/gogotex/backend/auth-service/handlers"
	"github.com/gogotex/gogotex/backend/auth-service/internal/accounts"
	"github.com/gogotex/gogotex/backend/auth-service/internal/app"
	"github.com/gogotex/gogotex/backend/auth-service/internal/config"
	"github.com/gogotex/gogotex/backend/auth-service/internal/database"
	"github.com/gogotex/gogotex/backend/auth-service/internal/history"
	"github.com/gogotex/gogotex/backend/auth-service/internal/oauth"
	"github.com/gogotex/gogotex/backend/auth-service/internal/oidc"
	"github.com/gogotex/gogotex/backend/auth-service/internal/ratelimit"
	"github.com/gogotex/gogotex/backend/auth-service/internal/sessions"
	"github.com/gogotex/gogotex/backend/auth-service/internal/tokens"
	"github.com/gogotex/gogotex/backend/auth-service/internal/users"
	"github.com/gogotex/gogotex/backend/auth-service/pkg/logger"
	"github.com/gogotex/gogotex/backend/auth-service/pkg/metrics"
	"github.com/gogotex/gogotex/backend/auth-service/pkg/middleware"
)

func main() {
	logger.Init(os.Getenv("LOG_LEVEL"))

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	logger.Init(cfg.Server.LogLevel)
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	logger.Infof("config loaded: storage=%s redis=%s token_location=%v", cfg.Storage.Backend, cfg.Redis.Addr(), cfg.JWT.TokenLocation)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tokenRedis := redisClient(ctx, cfg.Redis, cfg.Redis.DB)
	defer tokenRedis.Close()
	limitRedis := redisClient(ctx, cfg.Redis, cfg.Redis.RateLimitDB)
	defer limitRedis.Close()

	storage, err := app.OpenStorage(ctx, cfg)
	if err != nil {
		logger.Fatalf("storage: %v", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := storage.Close(closeCtx); err != nil {
			logger.Warnf("storage close: %v", err)
		}
	}()

	userSvc := users.NewService(storage.Users)
	if err := userSvc.SeedRoles(ctx, cfg.Roles.Initial); err != nil {
		logger.Fatalf("seed roles: %v", err)
	}

	store := sessions.NewRedisStore(tokenRedis, "")
	issuer := tokens.NewIssuer(cfg.JWT.Secret, cfg.JWT.AccessTokenTTL, cfg.JWT.RefreshTokenTTL, store)
	acc := accounts.NewService(userSvc, issuer, store, history.NewService(storage.History), accounts.Config{
		DefaultRole: cfg.Roles.DefaultUserRole,
		PremiumRole: cfg.Roles.PremiumRole,
	})
	gate := middleware.NewGate(issuer, store, cfg.JWT)
	limit := middleware.RateLimit(ratelimit.NewFixedWindow(limitRedis, cfg.RateLimit.RequestsPerMinute, "rl:"))
	public := middleware.IPRateLimit(cfg.RateLimit.PublicRPS, cfg.RateLimit.PublicBurst)

	metrics.RegisterCollectors(prometheus.DefaultRegisterer)

	r := handlers.NewRouter(handlers.Router{
		Auth:  handlers.NewAuthHandler(cfg.JWT, acc, gate, limit, public),
		OAuth: handlers.NewOAuthHandler(cfg.JWT, providers(ctx, cfg.OAuth), acc, public),
		Roles: handlers.NewRolesHandler(userSvc, gate, limit),
		Ready: map[string]handlers.Pinger{
			"redis":   func(ctx context.Context) error { return tokenRedis.Ping(ctx).Err() },
			"storage": userSvc.Ping,
		},
	})

	srv := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	go func() {
		logger.Infof("auth service listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Infof("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("shutdown: %v", err)
	}
}

// redisClient connects to a logical db. When Redis is down at startup the
// client is returned anyway: token checks fail open and it reconnects later.
func redisClient(ctx context.Context, cfg config.RedisConfig, db int) *redis.Client {
	client, err := database.ConnectRedis(ctx, cfg.Addr(), cfg.Password, db, 5*time.Second)
	if err != nil {
		logger.Warnf("redis unavailable at startup: %v", err)
		return redis.NewClient(&redis.Options{Addr: cfg.Addr(), Password: cfg.Password, DB: db})
	}
	return client
}

// providers builds the registry of OAuth providers that have credentials.
func providers(ctx context.Context, cfg config.OAuthConfig) *oauth.Registry {
	var list []oauth.Provider
	if cfg.Google.Enabled() {
		var v *oidc.Verifier
		if cfg.AllowInsecureToken {
			logger.Warnf("ALLOW_INSECURE_TOKEN set: Google id_token signatures are not checked")
			v = oidc.NewInsecureVerifier(cfg.GoogleIssuer, cfg.Google.ClientID)
		} else {
			var err error
			v, err = oidc.NewVerifier(ctx, cfg.GoogleIssuer, cfg.Google.ClientID)
			if err != nil {
				logger.Errorf("google signin disabled: %v", err)
			}
		}
		if v != nil {
			list = append(list, oauth.NewGoogle(cfg.Google.ClientID, cfg.Google.ClientSecret, callbackURL(cfg, oauth.ProviderGoogle), oauth2.Endpoint{}, v))
		}
	}
	if cfg.Yandex.Enabled() {
		list = append(list, oauth.NewYandex(cfg.Yandex.ClientID, cfg.Yandex.ClientSecret, callbackURL(cfg, oauth.ProviderYandex), cfg.YandexUserInfoURL, oauth2.Endpoint{}))
	}
	reg := oauth.NewRegistry(list...)
	logger.Infof("oauth providers: %v", reg.Names())
	return reg
}

func callbackURL(cfg config.OAuthConfig, provider string) string {
	return cfg.RedirectBaseURL + "/api/v1/" + provider + "/callback"
}
