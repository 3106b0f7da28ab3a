// Command mergegame starts the merge game server.
//
// It supports two modes:
//  1. "server" (default) – runs the HTTP server exposing REST API, WebSocket, and an /mcp HTTP endpoint
//  2. "stdio-mcp" – runs an MCP stdio server and spins up an internal HTTP API if none is available
//
// Flags control host/port, config and session directories, the results
// database, logging, session tokens and optional ngrok tunneling. Every flag
// can also be set from the environment or a .env file.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"
	"golang.org/x/sync/errgroup"

	"github.com/wricardo/mcp-training/mergegame/api"
	"github.com/wricardo/mcp-training/mergegame/game/config"
	"github.com/wricardo/mcp-training/mergegame/game/results"
	"github.com/wricardo/mcp-training/mergegame/game/service"
	"github.com/wricardo/mcp-training/mergegame/game/session"
	"github.com/wricardo/mcp-training/mergegame/transport/mcp"
	"github.com/wricardo/mcp-training/mergegame/transport/websocket"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Merge Game Server"
)

const (
	cleanupInterval = time.Hour
	syncInterval    = 5 * time.Second
)

func newCommand() *cli.Command {
	return &cli.Command{
		Name:    "mergegame",
		Usage:   AppName,
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "host", Value: "localhost", Usage: "HTTP server host", Sources: cli.EnvVars("HOST")},
			&cli.IntFlag{Name: "port", Value: 8080, Usage: "HTTP server port", Sources: cli.EnvVars("PORT")},
			&cli.StringFlag{Name: "config-dir", Value: "configs", Usage: "Directory containing game configurations", Sources: cli.EnvVars("CONFIG_DIR")},
			&cli.StringFlag{Name: "default-config", Usage: "Config id used when a session names none (default classic)", Sources: cli.EnvVars("DEFAULT_CONFIG")},
			&cli.StringFlag{Name: "sessions-dir", Value: "sessions", Usage: "Directory for persisted sessions", Sources: cli.EnvVars("SESSIONS_DIR")},
			&cli.StringFlag{Name: "db", Value: "data/results.db", Usage: "SQLite file for finished games (empty disables)", Sources: cli.EnvVars("RESULTS_DB")},
			&cli.DurationFlag{Name: "session-ttl", Value: 24 * time.Hour, Usage: "Drop sessions idle for longer than this", Sources: cli.EnvVars("SESSION_TTL")},
			&cli.StringFlag{Name: "jwt-secret", Usage: "Require session tokens signed with this secret", Sources: cli.EnvVars("JWT_SECRET")},
			&cli.BoolFlag{Name: "debug", Usage: "Enable debug logging", Sources: cli.EnvVars("DEBUG")},
			&cli.StringFlag{Name: "log-level", Value: "info", Usage: "Log level (debug, info, warn, error)", Sources: cli.EnvVars("LOG_LEVEL")},
			&cli.BoolFlag{Name: "ngrok", Usage: "Enable ngrok tunnel", Sources: cli.EnvVars("NGROK_ENABLED")},
			&cli.StringFlag{Name: "ngrok-auth", Usage: "Ngrok auth token", Sources: cli.EnvVars("NGROK_AUTHTOKEN", "NGROK_AUTH_TOKEN")},
			&cli.StringFlag{Name: "ngrok-domain", Usage: "Custom ngrok domain (optional)", Sources: cli.EnvVars("NGROK_DOMAIN")},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			setupLogging(cmd.Bool("debug"), cmd.String("log-level"))
			return ctx, nil
		},
		DefaultCommand: "server",
		Commands: []*cli.Command{
			{
				Name:    "server",
				Aliases: []string{"http"},
				Usage:   "Run HTTP server with API, WebSocket, and MCP endpoint",
				Action:  runHTTPServer,
			},
			{
				Name:    "stdio-mcp",
				Aliases: []string{"mcp-stdio", "mcp"},
				Usage:   "Run MCP stdio server, with an internal HTTP server when no API is reachable",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "api-url", Value: "http://localhost:8080", Usage: "Existing API to proxy to", Sources: cli.EnvVars("MCP_API_URL")},
				},
				Action: runStdioMCP,
			},
		},
	}
}

// main loads .env, then parses flags and starts the selected mode.
func main() {
	if err := godotenv.Load(); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Warn().Err(err).Msg("error loading .env file")
		}
	} else {
		log.Debug().Msg("loaded environment variables from .env file")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newCommand().Run(ctx, os.Args); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}

// setupLogging configures the global zerolog logger. Debug mode switches to
// a human-readable console writer. Logs always go to stderr so stdio MCP
// keeps stdout to itself.
func setupLogging(debug bool, level string) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	if debug {
		lvl = zerolog.DebugLevel
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	} else {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
	zerolog.SetGlobalLevel(lvl)
}

// serviceOptions selects where state lives
type serviceOptions struct {
	ConfigDir     string
	DefaultConfig string
	SessionsDir   string
	DBPath        string
}

func serviceOptionsFrom(cmd *cli.Command) serviceOptions {
	return serviceOptions{
		ConfigDir:     cmd.String("config-dir"),
		DefaultConfig: cmd.String("default-config"),
		SessionsDir:   cmd.String("sessions-dir"),
		DBPath:        cmd.String("db"),
	}
}

// services bundles everything the transports need
type services struct {
	game        service.GameService
	configs     *config.Manager
	sessions    *session.Manager
	persistence session.SessionPersistence
	results     *results.Store
}

// initializeServices wires config, session and result stores into the game service
func initializeServices(opts serviceOptions) (*services, error) {
	configManager, err := config.NewManager(opts.ConfigDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create config manager: %w", err)
	}
	if opts.DefaultConfig != "" {
		if err := configManager.SetDefault(opts.DefaultConfig); err != nil {
			return nil, fmt.Errorf("default config: %w", err)
		}
		// a reload reselects classic
		configManager.OnReload = func() {
			if err := configManager.SetDefault(opts.DefaultConfig); err != nil {
				log.Warn().Err(err).Str("config", opts.DefaultConfig).Msg("default config gone after reload")
			}
		}
	}
	available, _ := configManager.ListConfigs()
	log.Info().
		Str("dir", configManager.Dir()).
		Int("configs", len(available)).
		Str("default", configManager.GetDefault().Name).
		Msg("game configs loaded")

	persistence, err := session.NewFilePersistence(opts.SessionsDir, configManager)
	if err != nil {
		return nil, fmt.Errorf("failed to create session persistence: %w", err)
	}

	sessionManager := session.NewManagerWithPersistence(persistence)
	if err := sessionManager.LoadPersistedSessions(); err != nil {
		log.Warn().Err(err).Msg("failed to load persisted sessions")
	}

	s := &services{
		configs:     configManager,
		sessions:    sessionManager,
		persistence: persistence,
	}

	var serviceOpts []service.Option
	if opts.DBPath != "" {
		store, err := results.Open(opts.DBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open results store: %w", err)
		}
		s.results = store
		serviceOpts = append(serviceOpts, service.WithResultRecorder(store))
	}

	s.game = service.NewGameService(sessionManager, configManager, serviceOpts...)
	return s, nil
}

// Close flushes sessions and closes the results store
func (s *services) Close() error {
	if err := s.sessions.SaveAllSessions(); err != nil {
		log.Warn().Err(err).Msg("failed to save sessions on shutdown")
	}
	if s.results != nil {
		return s.results.Close()
	}
	return nil
}

func (s *services) apiOptions(jwtSecret string) []api.Option {
	var opts []api.Option
	if jwtSecret != "" {
		opts = append(opts, api.WithTokenIssuer(api.NewTokenIssuer([]byte(jwtSecret), 0)))
	}
	if s.results != nil {
		opts = append(opts, api.WithTotals(s.results))
	}
	return opts
}

// runHTTPServer starts the HTTP server with REST API, WebSocket hub, and an /mcp proxy endpoint.
// If ngrok is enabled, it also provisions a public tunnel.
func runHTTPServer(ctx context.Context, cmd *cli.Command) error {
	svc, err := initializeServices(serviceOptionsFrom(cmd))
	if err != nil {
		return err
	}
	defer svc.Close()

	addr := fmt.Sprintf("%s:%d", cmd.String("host"), cmd.Int("port"))

	hub := websocket.NewHub()
	apiServer := api.NewServer(svc.game, hub, svc.apiOptions(cmd.String("jwt-secret"))...)
	mcpClient := mcp.NewClient("http://" + addr)

	mainRouter := http.NewServeMux()
	mainRouter.Handle("/", apiServer)
	mainRouter.Handle("/mcp", mcpHandler(mcpClient.GetMCPServer()))

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      mainRouter,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})

	g.Go(func() error {
		log.Info().
			Str("addr", addr).
			Str("api", "http://"+addr+"/api").
			Str("ws", "ws://"+addr+"/ws?session=<session_id>").
			Str("mcp", "http://"+addr+"/mcp").
			Bool("tokens", cmd.String("jwt-secret") != "").
			Msg("HTTP server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("HTTP server shutdown error")
		}
		return nil
	})

	g.Go(func() error {
		if err := svc.configs.Watch(gctx); err != nil {
			log.Warn().Err(err).Msg("config hot reload disabled")
		}
		return nil
	})

	ttl := cmd.Duration("session-ttl")
	g.Go(func() error {
		runEvery(gctx, cleanupInterval, func() {
			if removed := svc.game.ExpireSessions(gctx, ttl); removed > 0 {
				log.Info().Int("removed", removed).Msg("cleaned up expired sessions")
			}
		})
		return nil
	})

	g.Go(func() error {
		runEvery(gctx, syncInterval, func() {
			if pruned := pruneOrphanedSessions(svc.sessions, svc.persistence); pruned > 0 {
				log.Info().Int("pruned", pruned).Msg("filesystem sync pruned orphaned sessions")
			}
		})
		return nil
	})

	if cmd.Bool("ngrok") {
		g.Go(func() error {
			runNgrok(gctx, mainRouter, cmd.String("ngrok-auth"), cmd.String("ngrok-domain"))
			return nil
		})
	}

	err = g.Wait()
	log.Info().Msg("server stopped")
	return err
}

// mcpHandler serves single JSON-RPC messages over HTTP POST
func mcpHandler(mcpServer *server.MCPServer) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "Failed to read request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		response := mcpServer.HandleMessage(r.Context(), body)

		responseData, err := json.Marshal(response)
		if err != nil {
			http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(responseData)
	})
}

// runNgrok exposes handler through an ngrok tunnel until ctx is done. A
// tunnel failure is logged and leaves the local server running.
func runNgrok(ctx context.Context, handler http.Handler, authToken, domain string) {
	if authToken == "" {
		log.Warn().Msg("ngrok enabled but no auth token provided (use --ngrok-auth or NGROK_AUTHTOKEN)")
		return
	}

	var tunnel ngrokConfig.Tunnel
	if domain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(domain))
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	log.Info().Str("domain", domain).Msg("starting ngrok tunnel")
	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(authToken))
	if err != nil {
		log.Error().Err(err).Msg("failed to start ngrok tunnel")
		return
	}

	ngrokURL := tun.URL()
	log.Info().
		Str("url", ngrokURL).
		Str("api", ngrokURL+"/api").
		Str("mcp", ngrokURL+"/mcp").
		Msg("ngrok tunnel established")

	srv := &http.Server{Handler: handler}
	go func() {
		<-ctx.Done()
		srv.Close()
	}()
	if err := srv.Serve(tun); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Warn().Err(err).Msg("ngrok server error")
	}
	log.Info().Msg("ngrok tunnel closed")
}

// runEvery calls fn on every tick until ctx is done
func runEvery(ctx context.Context, interval time.Duration, fn func()) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn()
		}
	}
}

// pruneOrphanedSessions drops in-memory sessions whose files were deleted
// from the sessions directory.
func pruneOrphanedSessions(manager *session.Manager, persistence session.SessionPersistence) int {
	if persistence == nil {
		return 0
	}

	pruned := 0
	for _, sess := range manager.List() {
		if persistence.Exists(sess.ID) {
			continue
		}
		if err := manager.DeleteFromMemory(sess.ID); err == nil {
			pruned++
			log.Debug().Str("session", sess.ID).Msg("pruned session from memory (file deleted)")
		}
	}
	return pruned
}

// apiAvailable reports whether baseURL answers the health endpoint
func apiAvailable(ctx context.Context, baseURL string) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(baseURL, "/")+"/api/health", nil)
	if err != nil {
		return false
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode < 500
}

// runStdioMCP runs an MCP stdio server. It reuses an external API when one
// answers at --api-url; otherwise it starts an internal HTTP API on a random
// loopback port and targets that.
func runStdioMCP(ctx context.Context, cmd *cli.Command) error {
	externalURL := cmd.String("api-url")
	if apiAvailable(ctx, externalURL) {
		log.Info().Str("url", externalURL).Msg("using external API server for MCP")
		return serveStdio(ctx, mcp.NewClient(externalURL))
	}

	log.Info().Msg("no external API server found, starting internal HTTP server")
	svc, err := initializeServices(serviceOptionsFrom(cmd))
	if err != nil {
		return err
	}
	defer svc.Close()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return fmt.Errorf("failed to get available port: %w", err)
	}
	internalAddr := listener.Addr().String()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	hub := websocket.NewHub()
	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})

	httpServer := &http.Server{Handler: api.NewServer(svc.game, hub, svc.apiOptions(cmd.String("jwt-secret"))...)}
	g.Go(func() error {
		if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("internal HTTP server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		defer cancel()
		defer httpServer.Close()
		log.Info().Str("addr", internalAddr).Msg("MCP stdio server ready (using internal HTTP server)")
		return serveStdio(gctx, mcp.NewClient("http://"+internalAddr))
	})

	return g.Wait()
}

func serveStdio(ctx context.Context, client *mcp.Client) error {
	stdio := server.NewStdioServer(client.GetMCPServer())
	if err := stdio.Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("MCP stdio server error: %w", err)
	}
	return nil
}
