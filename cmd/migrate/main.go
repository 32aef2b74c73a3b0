package main

import (
	"flag"
	"log"

	"github.com/xela07ax/gad-tramites/internal/db/migrate"
	"github.com/xela07ax/gad-tramites/internal/infra"
)

func main() {
	direction := flag.String("direction", "up", "up | down")
	configDir := flag.String("config", "", "каталог с config.yaml")
	flag.Parse()

	var paths []string
	if *configDir != "" {
		paths = append(paths, *configDir)
	}
	cfg, err := infra.LoadConfig(paths...)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.Database.URL == "" {
		log.Fatal("database.url (DATABASE_URL) is required")
	}

	if err := migrate.Run(cfg.Database.URL, *direction); err != nil {
		log.Fatalf("migrate %s: %v", *direction, err)
	}
	log.Printf("migrations applied: %s", *direction)
}
