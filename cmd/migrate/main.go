package main

import (
	"flag"
	"log"

	"github.com/pressly/goose/v3"

	"github.com/xralks/Bancodealimentos/pkg/config"
	"github.com/xralks/Bancodealimentos/pkg/database"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	dir := flag.String("dir", cfg.Migrations.Dir, "directory with migration files")
	flag.Parse()
	args := flag.Args()
	if len(args) < 1 {
		log.Fatal("usage: migrate [-dir migrations] up|down|status")
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer db.Close() //nolint:errcheck

	if err := goose.SetDialect("postgres"); err != nil {
		log.Fatalf("failed to set dialect: %v", err)
	}

	switch args[0] {
	case "up":
		err = goose.Up(db.DB, *dir)
	case "down":
		err = goose.Down(db.DB, *dir)
	case "status":
		err = goose.Status(db.DB, *dir)
	default:
		log.Fatalf("unknown command %q", args[0])
	}
	if err != nil {
		log.Fatalf("migrate %s failed: %v", args[0], err)
	}
}
