package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/joho/godotenv"
	"github.com/jrsteele09/go-catalogue-editor/assets"
	"github.com/jrsteele09/go-catalogue-editor/catalogue"
	"github.com/jrsteele09/go-catalogue-editor/images"
	"github.com/jrsteele09/go-catalogue-editor/internal/config"
	"github.com/jrsteele09/go-catalogue-editor/internal/logging"
	"github.com/jrsteele09/go-catalogue-editor/internal/metrics"
	"github.com/jrsteele09/go-catalogue-editor/server"
	"github.com/jrsteele09/go-catalogue-editor/server/authflowrepo"
	"github.com/jrsteele09/go-catalogue-editor/sessions"
	"github.com/jrsteele09/go-catalogue-editor/sessions/redisrepo"
	"github.com/jrsteele09/go-catalogue-editor/taxonomy"
	"github.com/jrsteele09/go-catalogue-editor/token"
	"github.com/jrsteele09/go-catalogue-editor/token/refresh"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const authFlowTTL = 10 * time.Minute

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "failed to load .env: %v\n", err)
	}

	c := config.New()
	logging.Setup(c.GetLogLevel(), c.GetEnv())

	if err := run(c); err != nil {
		log.Fatal().Err(err).Msg("Error running server")
	}
	log.Info().Msg("Server stopped")
}

func run(c config.Config) (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Str("stack", string(debug.Stack())).Msg("Recovered from panic")
			returnError = errors.New("panic recovered")
		}
	}()

	displayAppname(c.GetAppName())

	handler, closeStores, err := build(c)
	if err != nil {
		return err
	}
	defer closeStores()

	srv := &http.Server{Addr: c.GetPort(), Handler: handler, ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() { errCh <- listenAndServe(srv) }()

	select {
	case err := <-errCh:
		return err
	case <-waitForStopSignal():
	}
	return shutdown(srv)
}

// build wires the stores, token manager and catalogue services behind the HTTP server.
func build(c config.Config) (http.Handler, func(), error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	mt := metrics.New(reg)

	var (
		sessionRepo sessions.Repo
		flows       authflowrepo.Repo
		closeStores = func() {}
	)
	if addr := c.GetRedisAddr(); addr != "" {
		rdb := redisrepo.NewClient(addr, c.GetRedisPassword(), c.GetRedisDB())
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return nil, nil, fmt.Errorf("redis ping %s: %w", addr, err)
		}
		sessionRepo = redisrepo.New(rdb, c.GetMaxSessionAge())
		flows = authflowrepo.NewRedisRepo(rdb, authFlowTTL)
		closeStores = func() { closeRedis(rdb) }
		log.Info().Str("addr", addr).Msg("using redis session store")
	} else {
		sessionRepo = sessions.NewInMemoryRepo(c.GetMaxSessionAge())
		flows = authflowrepo.NewInMemoryRepo(authFlowTTL)
		log.Warn().Msg("REDIS_ADDR not set, sessions are kept in memory for this instance only")
	}

	renewer := refresh.NewClient(c.GetTokenEndpoint(), c.GetClientID(), c.GetClientSecret(), refresh.WithScopes(c.GetScopes()...))
	tokens := token.NewManager(sessionRepo, renewer, token.WithSkew(c.GetTokenExpirySkew()), token.WithMetrics(mt))

	cookies, err := token.NewCookieSigner(c.GetSessionSecret(), c.GetAppName(), c.GetMaxSessionAge())
	if err != nil {
		closeStores()
		return nil, nil, fmt.Errorf("session cookie signer: %w", err)
	}

	client, err := catalogue.New(c.GetBackendURL(), catalogue.WithMetrics(mt))
	if err != nil {
		closeStores()
		return nil, nil, fmt.Errorf("catalogue client: %w", err)
	}

	s, err := server.New(c, server.Deps{
		Tokens:     tokens,
		Cookies:    cookies,
		AuthFlows:  flows,
		Assets:     assets.NewService(client, assets.WithDefaultLimit(c.GetDefaultPageLimit())),
		Taxonomies: taxonomy.NewService(client, c.GetTaxonomyRevalidate()),
		Images:     images.NewProxy(client, c.GetMaxImageSize()),
		Metrics:    reg,
	})
	if err != nil {
		closeStores()
		return nil, nil, err
	}
	return s, closeStores, nil
}

func closeRedis(rdb *redis.Client) {
	if err := rdb.Close(); err != nil {
		log.Error().Err(err).Msg("failed to close redis client")
	}
}

func listenAndServe(server *http.Server) error {
	log.Info().Str("addr", server.Addr).Msg("Server listening")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func waitForStopSignal() <-chan os.Signal {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	return stop
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
