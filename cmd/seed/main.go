// Command seed fills the stub server's database with demo data.
package main

import (
	"flag"
	"log"

	"vibio/internal/config"
	"vibio/internal/stubserver"
)

func main() {
	numUsers := flag.Int("users", 8, "Number of users to create")
	numPosts := flag.Int("posts", 24, "Number of posts to create")
	maxDays := flag.Int("max-days", 30, "Spread post timestamps over this many days")
	password := flag.String("password", "password", "Password for every seeded account")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := stubserver.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	opts := stubserver.SeedOptions{
		Users:    *numUsers,
		Posts:    *numPosts,
		MaxDays:  *maxDays,
		Password: *password,
	}
	if err := stubserver.Seed(db, opts); err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}
	log.Printf("Seeded %d users and %d posts into %s", *numUsers, *numPosts, cfg.DBPath)
}
