// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jason-s-yu/songquiz/internal/auth"
	"github.com/jason-s-yu/songquiz/internal/cache"
	"github.com/jason-s-yu/songquiz/internal/catalog"
	"github.com/jason-s-yu/songquiz/internal/config"
	"github.com/jason-s-yu/songquiz/internal/database"
	"github.com/jason-s-yu/songquiz/internal/handlers"
	"github.com/jason-s-yu/songquiz/internal/lobby"
	"github.com/jason-s-yu/songquiz/internal/middleware"
	_ "github.com/joho/godotenv/autoload"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger, err := cfg.NewLogger()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ttl, err := auth.ParseTTL(cfg.Auth.TokenExpireTime)
	if err != nil {
		logger.Fatalf("invalid TOKEN_EXPIRE_TIME: %v", err)
	}
	issuer, err := auth.NewIssuer(ttl)
	if err != nil {
		logger.Fatalf("failed to create signing keys: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := database.Migrate(cfg.PostgresURL(), logger); err != nil {
		logger.Fatalf("migrations: %v", err)
	}
	if err := database.ConnectDB(ctx, cfg.PostgresURL()); err != nil {
		logger.Fatalf("database: %v", err)
	}
	defer database.Close()

	rdb, err := cache.ConnectRedis(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		logger.Fatalf("redis: %v", err)
	}
	defer rdb.Close()

	var fetcher catalog.Fetcher = catalog.Unavailable{}
	if cfg.SpotifyEnabled() {
		spotify := catalog.NewSpotify(ctx, catalog.SpotifyConfig{
			ClientID:     cfg.Spotify.ClientID,
			ClientSecret: cfg.Spotify.ClientSecret,
			TokenURL:     cfg.Spotify.TokenURL,
			APIURL:       cfg.Spotify.APIURL,
			Market:       cfg.Spotify.Market,
			Timeout:      5 * time.Second,
		})
		fetcher = catalog.NewCached(spotify, rdb, cfg.Redis.TrackCacheTTL, logger.WithField("component", "catalog"))
	} else {
		logger.Warn("spotify credentials missing, song selection will fail")
	}

	store := lobby.NewStore(lobby.Options{
		Modes:        cfg.Game.Modes,
		Fetcher:      fetcher,
		Journal:      cache.NewJournal(rdb, cfg.Redis.Queue),
		Results:      database.Results{},
		Logger:       logger,
		RoomExpiry:   cfg.Game.RoomExpiry,
		Intermission: cfg.Game.Intermission,
	})
	defer store.Shutdown()

	srv := handlers.NewServer(store, issuer, logger, cfg.Server.AllowedOrigins)
	logged := middleware.LogMiddleware(logger)

	mux := http.NewServeMux()

	// user endpoints
	mux.Handle("/user/create", logged(http.HandlerFunc(srv.CreateUserHandler)))
	mux.Handle("/user/login", logged(http.HandlerFunc(srv.LoginHandler)))
	mux.Handle("/user/guest", logged(http.HandlerFunc(srv.GuestHandler)))
	mux.Handle("/user/claim", logged(http.HandlerFunc(srv.ClaimGuestHandler)))
	mux.Handle("/user/profile", logged(http.HandlerFunc(srv.ProfileHandler)))

	// lobby ws
	mux.Handle("/lobby/ws", logged(srv.LobbyWSHandler()))

	httpServer := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: mux,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Errorf("shutdown: %v", err)
		}
	}()

	logger.Infof("Running on %s", httpServer.Addr)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatalf("server exited: %v", err)
	}
}
