package main

import (
	"context"
	"fmt"
	"github.com/OpenTransitTools/transitping/app/ping-analytics/analytics"
	"github.com/OpenTransitTools/transitping/business/data/ping"
	"github.com/OpenTransitTools/transitping/foundation/database"
	"github.com/ardanlabs/conf"
	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"
	logger "log"
	"os"
	"os/signal"
	"syscall"
	"time"
)

var build = "develop"

func main() {
	log := logger.New(os.Stdout, "PING_ANALYTICS : ", logger.LstdFlags|logger.Lmicroseconds|logger.Lshortfile)
	if err := run(log); err != nil {
		log.Printf("main: error: %v", err)
		os.Exit(1)
	}
}

func run(log *logger.Logger) error {
	var cfg struct {
		conf.Version
		Args conf.Args
		DB   struct {
			User         string `conf:"default:postgres"`
			Password     string `conf:"default:postgres,noprint"`
			Host         string `conf:"default:0.0.0.0"`
			Name         string `conf:"default:postgres"`
			DisableTLS   bool   `conf:"default:true"`
			MaxOpenConns int    `conf:"default:8"`
		}
		Web struct {
			HttpPort               int           `conf:"default:8080"`
			StoreQueryTimeout      time.Duration `conf:"default:30s"`
			RegionQueryConcurrency int           `conf:"default:1"`
		}
		NATS struct {
			Enabled             bool   `conf:"default:false"`
			Url                 string `conf:"default:nats://localhost:4222"`
			SpeedResultsSubject string `conf:"default:line-speed-results"`
		}
	}
	cfg.Version.SVN = build
	cfg.Version.Desc = "Serve trip, ping and line speed exports for drawn regions"

	// values in a local .env file are applied before flags and environment are parsed
	_ = godotenv.Load()

	const prefix = "ANALYTICS"
	if err := conf.Parse(os.Args[1:], prefix, &cfg); err != nil {
		switch err {
		case conf.ErrHelpWanted:
			usage, err := conf.Usage(prefix, &cfg)
			if err != nil {
				return fmt.Errorf("generating config usage: %w", err)
			}
			fmt.Println(usage)
			return nil
		case conf.ErrVersionWanted:
			version, err := conf.VersionString(prefix, &cfg)
			if err != nil {
				return fmt.Errorf("generating config version: %w", err)
			}
			fmt.Println(version)
			return nil
		}
		return fmt.Errorf("parsing config: %w", err)
	}

	// =========================================================================
	// App Starting

	log.Printf("main : Started : Application initializing : version %s", build)
	defer log.Println("main: Completed")

	out, err := conf.String(&cfg)
	if err != nil {
		return fmt.Errorf("generating config for output: %w", err)
	}
	log.Printf("main: Config :\n%v\n", out)

	// =========================================================================
	// Start Database

	log.Println("main: Initializing database support")

	db, err := database.Open(database.Config{
		User:         cfg.DB.User,
		Password:     cfg.DB.Password,
		Host:         cfg.DB.Host,
		Name:         cfg.DB.Name,
		DisableTLS:   cfg.DB.DisableTLS,
		MaxOpenConns: cfg.DB.MaxOpenConns,
	})
	if err != nil {
		return fmt.Errorf("connecting to db: %w", err)
	}
	defer func() {
		log.Printf("main: Database Stopping : %s", cfg.DB.Host)
		err = db.Close()
		if err != nil {
			log.Printf("main: error closing database: %v", err)
		}
	}()

	if err = database.StatusCheck(context.Background(), db); err != nil {
		return fmt.Errorf("checking database status: %w", err)
	}

	// =========================================================================
	// Start NATS

	var publisher analytics.MessagePublisher
	if cfg.NATS.Enabled {
		log.Printf("main: Connecting to NATS at %s", cfg.NATS.Url)
		natsConn, err := nats.Connect(cfg.NATS.Url,
			nats.Name("ping-analytics"),
			nats.DisconnectHandler(func(_ *nats.Conn) {
				log.Printf("nats disconnected")
			}),
			nats.ReconnectHandler(func(_ *nats.Conn) {
				log.Printf("nats reconnected")
			}),
			nats.ClosedHandler(func(_ *nats.Conn) {
				log.Printf("nats closed")
			}),
		)
		if err != nil {
			return fmt.Errorf("connecting to nats: %w", err)
		}
		defer func() {
			if err := natsConn.Drain(); err != nil {
				log.Printf("main: error draining nats connection: %v", err)
			}
		}()
		publisher = natsConn
	}

	// Make a channel to listen for an interrupt or terminate signal from the OS.
	// Use a buffered channel because the signal package requires it.
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	analytics.StartServices(log, ping.NewStore(db), publisher, analytics.Conf{
		HttpPort:               cfg.Web.HttpPort,
		StoreQueryTimeout:      cfg.Web.StoreQueryTimeout,
		RegionQueryConcurrency: cfg.Web.RegionQueryConcurrency,
		SpeedResultsSubject:    cfg.NATS.SpeedResultsSubject,
	}, shutdown)
	return nil
}
