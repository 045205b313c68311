package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"event-ticketing/internal/config"
	"event-ticketing/internal/database"
	"event-ticketing/internal/database/migrations"
	"event-ticketing/internal/logger"

	"github.com/joho/godotenv"
)

func usage() {
	fmt.Fprintln(os.Stderr, "usage: migrate [-to N] up|down|version")
	flag.PrintDefaults()
}

func main() {
	to := flag.Uint("to", 0, "migrate to this exact version instead of the latest")
	flag.Usage = usage
	flag.Parse()
	if flag.NArg() != 1 {
		usage()
		os.Exit(2)
	}

	_ = godotenv.Load()
	cfg := config.Load()
	log := logger.NewLogger()

	bunDB, err := database.Open(context.Background(), cfg.Database, log)
	if err != nil {
		log.Fatal("DATABASE", err.Error())
	}
	defer bunDB.Close()

	runner := migrations.NewRunner(bunDB, log)
	defer runner.Close()

	switch flag.Arg(0) {
	case "up":
		if *to > 0 {
			err = runner.MigrateTo(*to)
		} else {
			err = runner.MigrateUp()
		}
	case "down":
		err = runner.MigrateDown()
	case "version":
		var version uint
		var dirty bool
		version, dirty, err = runner.Version()
		if err == nil {
			fmt.Printf("version=%d dirty=%t\n", version, dirty)
		}
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		log.Fatal("MIGRATE", err.Error())
	}
	log.Info("MIGRATE", fmt.Sprintf("%s complete", flag.Arg(0)))
}
