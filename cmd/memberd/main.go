package main

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/ebasak22/Fitness/internal/adapter/cache"
	"github.com/ebasak22/Fitness/internal/config"
	"github.com/ebasak22/Fitness/internal/docstore"
	httptransport "github.com/ebasak22/Fitness/internal/http"
	"github.com/ebasak22/Fitness/internal/http/handler"
	httpmiddleware "github.com/ebasak22/Fitness/internal/http/middleware"
	"github.com/ebasak22/Fitness/internal/identity"
	apimiddleware "github.com/ebasak22/Fitness/internal/middleware"
	"github.com/ebasak22/Fitness/internal/member"
	"github.com/ebasak22/Fitness/internal/payment"
	"github.com/ebasak22/Fitness/internal/profile"
	"github.com/ebasak22/Fitness/internal/server"
	"github.com/ebasak22/Fitness/internal/session"
	"github.com/ebasak22/Fitness/internal/telemetry"
)

func main() {
	app := fx.New(
		fx.Provide(
			newConfig,
			newLogger,
			newTelemetry,
			newSnowflake,
			newRedisClient,
			newDocumentStore,
			newSessionStore,
			newIdentityProvider,
			newPaymentGateway,
			newBootstrap,
			newMemberService,
			newSyncFactory,
			newRateLimiter,
			newAuthMiddleware,
			handler.NewSessionHandler,
			handler.NewProfileHandler,
			handler.NewMembershipHandler,
			handler.NewAddressHandler,
			handler.NewShoppingHandler,
			httptransport.NewRouter,
			server.NewHTTPServer,
		),
		fx.Invoke(useTelemetry, startHTTPServer),
	)

	app.Run()
}

func newConfig() (config.Config, error) {
	return config.Load()
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	var (
		logger *zap.Logger
		err    error
	)
	if cfg.Environment == "development" {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return nil, err
	}
	zap.ReplaceGlobals(logger)
	return logger, nil
}

func newTelemetry(lc fx.Lifecycle, cfg config.Config, logger *zap.Logger) (*telemetry.Provider, error) {
	provider, err := telemetry.New(context.Background(), cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("telemetry init: %w", err)
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			return provider.Shutdown(stopCtx)
		},
	})

	return provider, nil
}

func newSnowflake() (*snowflake.Node, error) {
	node, err := snowflake.NewNode(1)
	return node, err
}

func newRedisClient(lc fx.Lifecycle, cfg config.Config) (redis.UniversalClient, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return client.Close()
		},
	})
	return client, nil
}

func newDocumentStore(client redis.UniversalClient, logger *zap.Logger) docstore.Store {
	return docstore.NewRedisStore(client, logger)
}

func newSessionStore(client redis.UniversalClient) session.Store {
	return cache.NewRedisSessionStore(client)
}

func newIdentityProvider(cfg config.Config) identity.Provider {
	return identity.NewHTTPProvider(cfg.IdentityBaseURL, cfg.IdentityAPIKey, nil)
}

func newPaymentGateway(cfg config.Config) payment.Gateway {
	return payment.NewHTTPGateway(cfg.PaymentBaseURL, cfg.PaymentKeyID, cfg.PaymentKeySecret, nil)
}

func newBootstrap(provider identity.Provider, docs docstore.Store, sessions session.Store, node *snowflake.Node, logger *zap.Logger, cfg config.Config) *session.Bootstrap {
	return session.NewBootstrap(provider, docs, sessions, node, logger, session.Options{
		ResendInterval: cfg.OTPResendInterval,
		SessionTTL:     cfg.SessionTTL,
	})
}

func newMemberService(docs docstore.Store, gateway payment.Gateway, node *snowflake.Node, logger *zap.Logger) *member.Service {
	return member.NewService(docs, gateway, node, logger)
}

func newSyncFactory(docs docstore.Store, logger *zap.Logger, cfg config.Config) handler.SyncFactory {
	return func() *profile.Sync {
		return profile.NewSync(docs, logger, profile.Options{
			FetchTimeout: cfg.ProfileFetchTimeout,
			RetryBackoff: cfg.ProfileRetryBackoff,
			MaxRetries:   cfg.ProfileMaxRetries,
		})
	}
}

func newRateLimiter(cfg config.Config) *apimiddleware.RateLimiter {
	return apimiddleware.NewRateLimiter(cfg.RateLimitRPM)
}

func newAuthMiddleware(bootstrap *session.Bootstrap) *httpmiddleware.Auth {
	return &httpmiddleware.Auth{Sessions: bootstrap}
}

func startHTTPServer(lc fx.Lifecycle, srv *server.HTTPServer, cfg config.Config, logger *zap.Logger) {
	addr := ":" + cfg.HTTPPort
	var (
		cancel context.CancelFunc
		done   chan struct{}
	)

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			runCtx, stop := context.WithCancel(context.Background())
			cancel = stop
			done = make(chan struct{})

			go func() {
				if err := srv.Run(runCtx, addr); err != nil {
					logger.Error("http server stopped", zap.Error(err))
				}
				close(done)
			}()

			return nil
		},
		OnStop: func(ctx context.Context) error {
			if cancel != nil {
				cancel()
			}
			if done == nil {
				return nil
			}
			select {
			case <-done:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		},
	})
}

func useTelemetry(*telemetry.Provider) {}
