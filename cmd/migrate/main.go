// Command migrate applies the stub server's schema to the configured
// database without starting the server.
package main

import (
	"fmt"
	"log"

	"vibio/internal/config"
	"vibio/internal/stubserver"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Connect applies the schema as part of opening the database.
	if _, err := stubserver.Connect(cfg); err != nil {
		return fmt.Errorf("migrations failed: %w", err)
	}
	log.Printf("schema applied to %s", cfg.DBPath)
	return nil
}
