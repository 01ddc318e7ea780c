package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/SwissDataScienceCenter/plantcare-gateway/internal/authclient"
	"github.com/SwissDataScienceCenter/plantcare-gateway/internal/config"
	"github.com/SwissDataScienceCenter/plantcare-gateway/internal/db"
	"github.com/SwissDataScienceCenter/plantcare-gateway/internal/login"
	"github.com/SwissDataScienceCenter/plantcare-gateway/internal/revproxy"
	"github.com/SwissDataScienceCenter/plantcare-gateway/internal/sessions"
	"github.com/SwissDataScienceCenter/plantcare-gateway/internal/views"
	"github.com/getsentry/sentry-go"
	sentryecho "github.com/getsentry/sentry-go/echo"
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

// gateway is the assembled server with the background work it owns
type gateway struct {
	echo    *echo.Echo
	metrics *echo.Echo
	clients *sessions.ClientPool
}

func newGateway(gwConfig config.Config) (*gateway, error) {
	e := echo.New()
	e.Pre(requestID, middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover())
	// The banner and the port do not respect the logger formatting we set below so we remove them
	// the port will be logged further down when the server starts.
	e.HideBanner = true
	e.HidePort = true
	// Setup template renderer
	tr, err := views.NewTemplateRenderer()
	if err != nil {
		return nil, fmt.Errorf("template renderer initialization failed: %w", err)
	}
	tr.Register(e)
	// Rate limiting
	if gwConfig.Server.RateLimits.Enabled {
		e.Use(rateLimiter(gwConfig.Server.RateLimits))
	}
	// CORS
	if len(gwConfig.Server.AllowOrigin) > 0 {
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins:     gwConfig.Server.AllowOrigin,
			AllowCredentials: true,
		}))
	}
	// Sentry
	if gwConfig.Monitoring.Sentry.Enabled {
		err := sentry.Init(sentry.ClientOptions{
			Dsn:              string(gwConfig.Monitoring.Sentry.Dsn),
			TracesSampleRate: gwConfig.Monitoring.Sentry.SampleRate,
			Environment:      gwConfig.Monitoring.Sentry.Environment,
		})
		if err != nil {
			slog.Error("GATEWAY", "message", "sentry initialization failed", "error", err)
		}
		e.Use(sentryecho.New(sentryecho.Options{Repanic: true}))
	}
	gw := &gateway{echo: e}
	// Prometheus
	if gwConfig.Monitoring.Prometheus.Enabled {
		err := authclient.RegisterMetrics(prometheus.DefaultRegisterer)
		if err != nil {
			return nil, err
		}
		e.Use(echoprometheus.NewMiddleware("plantcare"))
		gw.metrics = echo.New()
		gw.metrics.HideBanner = true
		gw.metrics.HidePort = true
		gw.metrics.GET("/metrics", echoprometheus.NewHandler())
	}
	// Health check
	e.GET("/health", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	// Version endpoint
	buildInfo, ok := debug.ReadBuildInfo()
	version := ""
	if ok && buildInfo != nil {
		version = buildInfo.Main.Version
	}
	e.GET("/version", func(c echo.Context) error {
		return c.String(http.StatusOK, version)
	})
	// Initialize the db adapter, it holds both the sessions and their credentials
	dbOptions := []db.RedisAdapterOption{db.WithRedisConfig(gwConfig.Redis)}
	encryption := gwConfig.Sessions.CredentialsEncryption
	if encryption.Enabled && encryption.SecretKey != "" {
		slog.Info("GATEWAY", "message", "credentials encryption is enabled")
		dbOptions = append(dbOptions, db.WithEncryption(string(encryption.SecretKey)))
	}
	if gwConfig.Sessions.MaxSessionTTLSeconds > 0 {
		dbOptions = append(dbOptions, db.WithCredentialsTTL(time.Duration(gwConfig.Sessions.MaxSessionTTLSeconds)*time.Second))
	}
	dbAdapter, err := db.NewRedisAdapter(dbOptions...)
	if err != nil {
		return nil, fmt.Errorf("DB adapter initialization failed: %w", err)
	}
	// Create session store
	sessionStore, err := sessions.NewSessionStore(
		sessions.WithSessionRepository(dbAdapter),
		sessions.WithCredentialsRepository(dbAdapter),
		sessions.WithConfig(gwConfig.Sessions),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize sessions: %w", err)
	}
	// One authenticated backend client per session, the factory removes ended sessions from the pool
	clientFactory := sessions.NewSessionClientFactory(
		gwConfig.Backend.URL,
		gwConfig.Client,
		dbAdapter,
		dbAdapter,
		func() *sessions.ClientPool { return gw.clients },
		nil,
	)
	gw.clients, err = sessions.NewClientPool(
		sessions.WithClientFactory(clientFactory),
		sessions.WithClientIdleTTL(time.Duration(gwConfig.Sessions.ClientIdleTTLSeconds)*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize the client pool: %w", err)
	}
	// Add the session store to the common middlewares
	gwMiddlewares := append(commonMiddlewares, sessionStore.Middleware())
	// Initialize the reverse proxy
	proxy, err := revproxy.NewServer(
		revproxy.WithConfig(gwConfig.Backend),
		revproxy.WithSessionStore(sessionStore),
		revproxy.WithClientPool(gw.clients),
		revproxy.WithLoginPath(login.LoginPath),
	)
	if err != nil {
		return nil, fmt.Errorf("revproxy handlers initialization failed: %w", err)
	}
	proxy.RegisterHandlers(e, gwMiddlewares...)
	// Initialize login server
	loginServer, err := login.NewLoginServer(login.WithSessionStore(sessionStore), login.WithClientPool(gw.clients))
	if err != nil {
		return nil, fmt.Errorf("login handlers initialization failed: %w", err)
	}
	loginServer.RegisterHandlers(e, gwMiddlewares...)
	return gw, nil
}
