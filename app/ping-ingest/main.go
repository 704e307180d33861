package main

import (
	"context"
	"fmt"
	"github.com/OpenTransitTools/transitping/app/ping-ingest/ingest"
	"github.com/OpenTransitTools/transitping/business/data/ping"
	"github.com/OpenTransitTools/transitping/foundation/database"
	"github.com/ardanlabs/conf"
	"github.com/joho/godotenv"
	logger "log"
	"os"
	"os/signal"
	"syscall"
	"time"
)

var build = "develop"

func main() {
	log := logger.New(os.Stdout, "PING_INGEST : ", logger.LstdFlags|logger.Lmicroseconds|logger.Lshortfile)
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
			User       string `conf:"default:postgres"`
			Password   string `conf:"default:postgres,noprint"`
			Host       string `conf:"default:0.0.0.0"`
			Name       string `conf:"default:postgres"`
			DisableTLS bool   `conf:"default:true"`
		}
		GTFS struct {
			VehiclePositionsUrl   string        `conf:"default:https://developer.trimet.org/ws/V1/VehiclePositions"`
			LoadEverySeconds      int           `conf:"default:15"`
			ExpirePositionSeconds int           `conf:"default:900"`
			FetchTimeout          time.Duration `conf:"default:20s"`
			TimeZone              string        `conf:"default:America/Los_Angeles"`
		}
	}
	cfg.Version.SVN = build
	cfg.Version.Desc = "Record gtfs-rt vehicle positions as pings for region analytics"

	_ = godotenv.Load()

	const prefix = "INGEST"
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

	location, err := time.LoadLocation(cfg.GTFS.TimeZone)
	if err != nil {
		return fmt.Errorf("loading agency time zone %s: %w", cfg.GTFS.TimeZone, err)
	}

	// =========================================================================
	// Start Database

	log.Println("main: Initializing database support")

	db, err := database.Open(database.Config{
		User:       cfg.DB.User,
		Password:   cfg.DB.Password,
		Host:       cfg.DB.Host,
		Name:       cfg.DB.Name,
		DisableTLS: cfg.DB.DisableTLS,
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

	switch cfg.Args.Num(0) {
	case "init":
		if err = ping.CreateSchema(context.Background(), db); err != nil {
			return fmt.Errorf("creating ping schema: %w", err)
		}
		log.Printf("main: ping schema is ready")
		return nil

	case "run":
		// Make a channel to listen for an interrupt or terminate signal from the OS.
		// Use a buffered channel because the signal package requires it.
		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

		return ingest.RunIngestLoop(log, db, ingest.Conf{
			VehiclePositionsUrl:   cfg.GTFS.VehiclePositionsUrl,
			LoadEverySeconds:      cfg.GTFS.LoadEverySeconds,
			ExpirePositionSeconds: cfg.GTFS.ExpirePositionSeconds,
			FetchTimeout:          cfg.GTFS.FetchTimeout,
			Location:              location,
		}, shutdown)

	default:
		fmt.Println("init: create the ping table and indexes if they don't exist")
		fmt.Println("run: poll the vehicle positions feed and record pings until shut down")
		usage, err := conf.Usage(prefix, &cfg)
		if err != nil {
			return fmt.Errorf("generating config usage: %w", err)
		}
		fmt.Println(usage)
	}
	return nil
}
