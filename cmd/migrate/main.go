package main

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/mysql"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/DanielHaim/PanicDeck/internal/pkg/env"
)

// Schema runner for the migrations/ directory. The server itself
// auto-migrates on boot; this binary is for controlled rollouts and
// rollbacks against a shared database.
func main() {
	env.SetupEnvFile()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	dbURL := fmt.Sprintf("mysql://%s:%s@tcp(%s:%s)/%s?multiStatements=true",
		env.GetEnv("DB_USER", "panicdeck"),
		env.GetEnv("DB_PASSWORD", "panicdeck"),
		env.GetEnv("DB_HOST", "127.0.0.1"),
		env.GetEnv("DB_PORT", "3306"),
		env.GetEnv("DB_NAME", "panicdeck_db"),
	)

	m, err := migrate.New("file://migrations", dbURL)
	if err != nil {
		log.Fatalf("Opening migration source failed: %v", err)
	}
	defer func() {
		if sourceErr, dbErr := m.Close(); sourceErr != nil || dbErr != nil {
			log.Printf("Closing migration resources failed: %v / %v", sourceErr, dbErr)
		}
	}()

	switch os.Args[1] {
	case "up":
		switch err := m.Up(); err {
		case nil:
			log.Println("Schema is migrated")
		case migrate.ErrNoChange:
			log.Println("Schema already up to date")
		default:
			log.Fatalf("Migration failed: %v", err)
		}

	case "down":
		if err := m.Steps(-1); err != nil {
			log.Fatalf("Rolling back one migration failed: %v", err)
		}
		log.Println("Rolled back one migration")

	case "goto":
		if len(os.Args) < 3 {
			log.Fatal("goto needs a target version")
		}
		version, err := strconv.ParseUint(os.Args[2], 10, 64)
		if err != nil {
			log.Fatalf("Invalid target version %q: %v", os.Args[2], err)
		}
		if err := m.Migrate(uint(version)); err != nil && err != migrate.ErrNoChange {
			log.Fatalf("Migrating to version %d failed: %v", version, err)
		}
		log.Printf("Schema is at version %d", version)

	case "status":
		version, dirty, err := m.Version()
		if err == migrate.ErrNilVersion {
			log.Println("No migrations applied yet")
			return
		}
		if err != nil {
			log.Fatalf("Reading schema version failed: %v", err)
		}
		if dirty {
			log.Printf("Schema version %d (dirty, fix manually before migrating further)", version)
			return
		}
		log.Printf("Schema version %d", version)

	default:
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("usage: migrate <command>")
	fmt.Println("  up      apply all pending migrations")
	fmt.Println("  down    roll back the most recent migration")
	fmt.Println("  goto N  migrate to schema version N")
	fmt.Println("  status  print the current schema version")
}
