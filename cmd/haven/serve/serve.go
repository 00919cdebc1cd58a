// Package servecmder provides the serve command that runs the haven API server.
package servecmder

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/papercomputeco/haven/api"
	"github.com/papercomputeco/haven/api/mcp"
	"github.com/papercomputeco/haven/pkg/chat"
	"github.com/papercomputeco/haven/pkg/config"
	"github.com/papercomputeco/haven/pkg/embeddings"
	embeddingutils "github.com/papercomputeco/haven/pkg/embeddings/utils"
	"github.com/papercomputeco/haven/pkg/eventstream"
	"github.com/papercomputeco/haven/pkg/eventstream/kafka"
	"github.com/papercomputeco/haven/pkg/eventstream/nop"
	"github.com/papercomputeco/haven/pkg/journal"
	"github.com/papercomputeco/haven/pkg/logger"
	"github.com/papercomputeco/haven/pkg/sse"
	"github.com/papercomputeco/haven/pkg/storage"
	"github.com/papercomputeco/haven/pkg/storage/inmemory"
	"github.com/papercomputeco/haven/pkg/storage/postgres"
	"github.com/papercomputeco/haven/pkg/storage/redis"
	"github.com/papercomputeco/haven/pkg/storage/sqlite"
	"github.com/papercomputeco/haven/pkg/transport"
	"github.com/papercomputeco/haven/pkg/transport/canned"
	"github.com/papercomputeco/haven/pkg/transport/gateway"
	"github.com/papercomputeco/haven/pkg/vector"
	vectorutils "github.com/papercomputeco/haven/pkg/vector/utils"
	"github.com/papercomputeco/haven/pkg/worker"
)

// store is what every storage backend provides: entries and sessions.
type store interface {
	storage.Driver
	storage.SessionDriver
}

type serveCommander struct {
	flags config.FlagSet

	listen          string
	gatewayProvider string
	gatewayURL      string
	gatewayModel    string
	rateLimit       float64
	rateBurst       int
	sqlitePath      string
	postgresDSN     string
	redisAddr       string
	vectorProvider  string
	vectorTarget    string
	embedProvider   string
	embedTarget     string
	embedModel      string
	embedDims       uint
	kafkaBrokers    string
	kafkaTopic      string
	maxRecoveries   int

	logFile string
	debug   bool

	viper  *viper.Viper
	logger *slog.Logger
}

var serveFlags = []string{
	config.FlagListen,
	config.FlagGatewayProvider,
	config.FlagGatewayURL,
	config.FlagGatewayModel,
	config.FlagRateLimit,
	config.FlagRateBurst,
	config.FlagMaxRecoveries,
	config.FlagSQLite,
	config.FlagPostgres,
	config.FlagRedis,
	config.FlagVectorStoreProv,
	config.FlagVectorStoreTgt,
	config.FlagEmbeddingProv,
	config.FlagEmbeddingTgt,
	config.FlagEmbeddingModel,
	config.FlagEmbeddingDims,
	config.FlagKafkaBrokers,
	config.FlagKafkaTopic,
}

const serveLongDesc string = `Run the haven API server.

The server streams chat replies through the configured LLM gateway, stores
journal entries and chat sessions, analyzes emotional drift across entries and
serves MCP tools at /mcp.

Storage is chosen by what is configured: a PostgreSQL DSN wins over a SQLite
path, and with neither everything is kept in memory. A Redis address moves chat
sessions to Redis. Journal recall needs a vector store provider and an embedder.

Settings come from flags, HAVEN_* environment variables, the .haven config.toml
and defaults, in that order. Rate limit changes in config.toml are applied
without a restart.`

const serveShortDesc string = "Run the haven API server"

func NewServeCmd() *cobra.Command {
	cmder := &serveCommander{
		flags: config.Flags,
	}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			v, err := config.InitViper(configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			config.BindRegisteredFlags(v, cmd, cmder.flags, serveFlags)
			cmder.viper = v
			cmder.load()
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			return cmder.run(cmd.Context())
		},
	}

	config.AddStringFlag(cmd, cmder.flags, config.FlagListen, &cmder.listen)
	config.AddStringFlag(cmd, cmder.flags, config.FlagGatewayProvider, &cmder.gatewayProvider)
	config.AddStringFlag(cmd, cmder.flags, config.FlagGatewayURL, &cmder.gatewayURL)
	config.AddStringFlag(cmd, cmder.flags, config.FlagGatewayModel, &cmder.gatewayModel)
	config.AddFloatFlag(cmd, cmder.flags, config.FlagRateLimit, &cmder.rateLimit)
	config.AddIntFlag(cmd, cmder.flags, config.FlagRateBurst, &cmder.rateBurst)
	config.AddIntFlag(cmd, cmder.flags, config.FlagMaxRecoveries, &cmder.maxRecoveries)
	config.AddStringFlag(cmd, cmder.flags, config.FlagSQLite, &cmder.sqlitePath)
	config.AddStringFlag(cmd, cmder.flags, config.FlagPostgres, &cmder.postgresDSN)
	config.AddStringFlag(cmd, cmder.flags, config.FlagRedis, &cmder.redisAddr)
	config.AddStringFlag(cmd, cmder.flags, config.FlagVectorStoreProv, &cmder.vectorProvider)
	config.AddStringFlag(cmd, cmder.flags, config.FlagVectorStoreTgt, &cmder.vectorTarget)
	config.AddStringFlag(cmd, cmder.flags, config.FlagEmbeddingProv, &cmder.embedProvider)
	config.AddStringFlag(cmd, cmder.flags, config.FlagEmbeddingTgt, &cmder.embedTarget)
	config.AddStringFlag(cmd, cmder.flags, config.FlagEmbeddingModel, &cmder.embedModel)
	config.AddUintFlag(cmd, cmder.flags, config.FlagEmbeddingDims, &cmder.embedDims)
	config.AddStringFlag(cmd, cmder.flags, config.FlagKafkaBrokers, &cmder.kafkaBrokers)
	config.AddStringFlag(cmd, cmder.flags, config.FlagKafkaTopic, &cmder.kafkaTopic)
	cmd.Flags().StringVar(&cmder.logFile, "log-file", "", "Also write JSON logs to this file")

	return cmd
}

// decoderOptions configures every gateway stream decoder the server runs.
func (c *serveCommander) decoderOptions() []sse.Option {
	return []sse.Option{sse.WithMaxRecoveries(c.maxRecoveries)}
}

// load copies the resolved settings out of viper.
func (c *serveCommander) load() {
	v := c.viper
	c.listen = v.GetString("api.listen")
	c.gatewayProvider = v.GetString("gateway.provider")
	c.gatewayURL = v.GetString("gateway.url")
	c.gatewayModel = v.GetString("gateway.model")
	c.rateLimit = v.GetFloat64("api.rate_limit")
	c.rateBurst = v.GetInt("api.rate_burst")
	c.maxRecoveries = v.GetInt("decoder.max_recoveries")
	c.sqlitePath = v.GetString("storage.sqlite_path")
	c.postgresDSN = v.GetString("storage.postgres_dsn")
	c.redisAddr = v.GetString("storage.redis_addr")
	c.vectorProvider = v.GetString("vector_store.provider")
	c.vectorTarget = v.GetString("vector_store.target")
	c.embedProvider = v.GetString("embedding.provider")
	c.embedTarget = v.GetString("embedding.target")
	c.embedModel = v.GetString("embedding.model")
	c.embedDims = v.GetUint("embedding.dimensions")
	c.kafkaTopic = v.GetString("kafka.topic")

	// kafka.brokers is a TOML array in config.toml and a comma separated
	// string from flags and the environment.
	var brokers []string
	for _, b := range v.GetStringSlice("kafka.brokers") {
		brokers = append(brokers, config.SplitList(b)...)
	}
	c.kafkaBrokers = strings.Join(brokers, ",")
}

func (c *serveCommander) run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	closeLog, err := c.setupLogger()
	if err != nil {
		return err
	}
	defer closeLog()

	st, err := c.newStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	sessions, err := c.newSessionStore(ctx, st)
	if err != nil {
		return err
	}
	if sessions != storage.SessionDriver(st) {
		defer sessions.Close()
	}

	tr, analyzer, err := c.newGateway()
	if err != nil {
		return err
	}

	embedder, vectors, err := c.newRecall(ctx)
	if err != nil {
		return err
	}
	if vectors != nil {
		defer vectors.Close()
		defer embedder.Close()
	}

	publisher, err := c.newPublisher()
	if err != nil {
		return err
	}
	defer publisher.Close()

	pool, err := worker.NewPool(&worker.Config{
		VectorDriver: vectors,
		Embedder:     embedder,
		Publisher:    publisher,
		Logger:       c.logger,
	})
	if err != nil {
		return fmt.Errorf("creating worker pool: %w", err)
	}
	// Close drains queued jobs before the stores and publisher close.
	defer pool.Close()

	journalService, err := journal.NewService(journal.ServiceConfig{
		Store:    st,
		Analyzer: analyzer,
		Indexer:  pool,
		Notifier: pool,
		Embedder: embedder,
		Vectors:  vectors,
		Logger:   c.logger,
	})
	if err != nil {
		return fmt.Errorf("creating journal service: %w", err)
	}

	orchestrator, err := chat.New(chat.Config{
		Transport:      tr,
		Store:          sessions,
		Observer:       pool,
		Model:          c.gatewayModel,
		DecoderOptions: c.decoderOptions(),
		Logger:         c.logger,
	})
	if err != nil {
		return fmt.Errorf("creating chat orchestrator: %w", err)
	}

	mcpServer, err := mcp.NewServer(mcp.Config{
		Journal:  journalService,
		Sessions: sessions,
		Logger:   c.logger,
	})
	if err != nil {
		return fmt.Errorf("creating MCP server: %w", err)
	}

	server, err := api.NewServer(api.Config{
		ListenAddr: c.listen,
		RateLimit:  c.rateLimit,
		RateBurst:  c.rateBurst,
		Chat:       orchestrator,
		Sessions:   sessions,
		Journal:    journalService,
		Transport:  tr,
		MCP:        mcpServer,

		DecoderOptions: c.decoderOptions(),
	}, c.logger)
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	c.watchConfig(server)

	errChan := make(chan error, 1)
	go func() {
		if err := server.Run(); err != nil {
			errChan <- fmt.Errorf("API server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		c.logger.Info("received signal, shutting down", "signal", sig.String())
	case <-ctx.Done():
		c.logger.Info("context done, shutting down")
	}

	if err := server.Shutdown(); err != nil {
		c.logger.Error("shutting down API server", "error", err)
	}
	return nil
}

// setupLogger logs pretty to stderr and, with --log-file, JSON to the file.
func (c *serveCommander) setupLogger() (func(), error) {
	console := logger.New(
		logger.WithDebug(c.debug),
		logger.WithPretty(true),
		logger.WithWriter(os.Stderr),
	)

	if c.logFile == "" {
		c.logger = console
		return func() {}, nil
	}

	f, err := os.OpenFile(c.logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}

	c.logger = logger.Multi(console, logger.New(
		logger.WithDebug(c.debug),
		logger.WithJSON(true),
		logger.WithWriter(f),
	))
	return func() { f.Close() }, nil
}

func (c *serveCommander) newStore(ctx context.Context) (store, error) {
	switch {
	case c.postgresDSN != "":
		driver, err := postgres.NewDriver(ctx, c.postgresDSN)
		if err != nil {
			return nil, fmt.Errorf("failed to create PostgreSQL store: %w", err)
		}
		c.logger.Info("using PostgreSQL storage")
		return driver, nil

	case c.sqlitePath != "":
		driver, err := sqlite.NewDriver(ctx, c.sqlitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to create SQLite store: %w", err)
		}
		c.logger.Info("using SQLite storage", "path", c.sqlitePath)
		return driver, nil

	default:
		c.logger.Info("using in-memory storage")
		return inmemory.NewDriver(), nil
	}
}

func (c *serveCommander) newSessionStore(ctx context.Context, st store) (storage.SessionDriver, error) {
	if c.redisAddr == "" {
		return st, nil
	}

	driver, err := redis.NewSessionDriver(ctx, redis.Config{Addr: c.redisAddr}, c.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create Redis session store: %w", err)
	}
	c.logger.Info("using Redis for chat sessions", "addr", c.redisAddr)
	return driver, nil
}

// newGateway returns the chat transport and drift analyzer. The canned
// provider answers chat offline and leaves drift analysis unavailable.
func (c *serveCommander) newGateway() (transport.Transport, journal.Analyzer, error) {
	apiKey := c.viper.GetString("gateway.api_key")

	switch c.gatewayProvider {
	case config.GatewayCanned:
		c.logger.Warn("using canned chat replies; drift analysis is unavailable")
		return canned.New(), journal.Unavailable{}, nil

	case config.GatewayDefault, "":
		tr, err := gateway.New(gateway.Config{
			BaseURL: c.gatewayURL,
			APIKey:  apiKey,
			Model:   c.gatewayModel,
			Logger:  c.logger,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("creating gateway transport: %w", err)
		}

		analyzer, err := journal.NewGatewayAnalyzer(journal.GatewayConfig{
			BaseURL: c.gatewayURL,
			APIKey:  apiKey,
			Model:   c.gatewayModel,
			Logger:  c.logger,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("creating drift analyzer: %w", err)
		}

		c.logger.Info("using LLM gateway", "url", tr.URL(), "model", c.gatewayModel)
		return tr, analyzer, nil

	default:
		return nil, nil, fmt.Errorf("unsupported gateway provider: %s", c.gatewayProvider)
	}
}

// newRecall returns nil drivers when no vector store is configured, which
// leaves journal recall disabled.
func (c *serveCommander) newRecall(ctx context.Context) (embeddings.Embedder, vector.Driver, error) {
	if c.vectorProvider == "" {
		c.logger.Info("journal recall disabled: no vector store configured")
		return nil, nil, nil
	}

	embedder, err := embeddingutils.NewEmbedder(&embeddingutils.NewEmbedderOpts{
		ProviderType: c.embedProvider,
		TargetURL:    c.embedTarget,
		Model:        c.embedModel,
		APIKey:       c.viper.GetString("embedding.api_key"),
		Dimensions:   c.embedDims,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("creating embedder: %w", err)
	}

	vectors, err := vectorutils.NewVectorDriver(ctx, &vectorutils.NewVectorDriverOpts{
		ProviderType: c.vectorProvider,
		TargetURL:    c.vectorTarget,
		SQLitePath:   c.sqlitePath,
		Dimensions:   c.embedDims,
		Logger:       c.logger,
	})
	if err != nil {
		embedder.Close()
		return nil, nil, fmt.Errorf("creating vector store: %w", err)
	}

	c.logger.Info("journal recall enabled",
		"vector_store", c.vectorProvider,
		"embedding_provider", c.embedProvider,
		"embedding_model", c.embedModel,
	)
	return embedder, vectors, nil
}

func (c *serveCommander) newPublisher() (eventstream.Publisher, error) {
	brokers := config.SplitList(c.kafkaBrokers)
	if len(brokers) == 0 {
		return nop.NewPublisher(), nil
	}

	p, err := kafka.NewPublisher(kafka.Config{
		Brokers: brokers,
		Topic:   c.kafkaTopic,
	}, c.logger)
	if err != nil {
		return nil, fmt.Errorf("creating Kafka publisher: %w", err)
	}
	c.logger.Info("publishing events to Kafka", "brokers", brokers, "topic", c.kafkaTopic)
	return p, nil
}

// watchConfig re-applies rate limits when config.toml changes. Other settings
// need a restart.
func (c *serveCommander) watchConfig(server *api.Server) {
	if c.viper.ConfigFileUsed() == "" {
		return
	}

	c.viper.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}

		limit := c.viper.GetFloat64("api.rate_limit")
		burst := c.viper.GetInt("api.rate_burst")
		if limit < 0 {
			c.logger.Warn("ignoring negative rate limit from config", "file", e.Name, "rate_limit", limit)
			return
		}
		if limit == c.rateLimit && burst == c.rateBurst {
			c.logger.Debug("config changed", "file", e.Name)
			return
		}

		c.rateLimit, c.rateBurst = limit, burst
		server.SetRateLimit(limit, burst)
	})
	c.viper.WatchConfig()
}
