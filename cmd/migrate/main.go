package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"

	log "github.com/sirupsen/logrus"

	"github.com/kdimtricp/faik/internal/database"
)

func main() {
	var (
		dbType         = flag.String("db", "postgres", "Database type (postgres or sqlite)")
		host           = flag.String("host", "localhost", "Database host")
		port           = flag.Int("port", 5432, "Database port")
		user           = flag.String("user", "faik", "Database user")
		password       = flag.String("password", "faik_dev", "Database password")
		dbName         = flag.String("name", "faik", "Database name")
		sqlitePath     = flag.String("path", "./faik.db", "SQLite database path")
		migrationsPath = flag.String("migrations", "./migrations", "Path to migrations directory")
		status         = flag.Bool("status", false, "Show migration status only")
	)
	flag.Parse()

	config := database.Config{
		Type:       *dbType,
		Host:       *host,
		Port:       *port,
		User:       *user,
		Password:   *password,
		Name:       *dbName,
		SQLitePath: *sqlitePath,
	}

	// Environment overrides flags
	if env := os.Getenv("DB_TYPE"); env != "" {
		config.Type = env
	}
	if env := os.Getenv("DB_HOST"); env != "" {
		config.Host = env
	}
	if env := os.Getenv("DB_PORT"); env != "" {
		p, err := strconv.Atoi(env)
		if err != nil {
			log.Fatal("Invalid DB_PORT: ", err)
		}
		config.Port = p
	}
	if env := os.Getenv("DB_USER"); env != "" {
		config.User = env
	}
	if env := os.Getenv("DB_PASSWORD"); env != "" {
		config.Password = env
	}
	if env := os.Getenv("DB_NAME"); env != "" {
		config.Name = env
	}
	if env := os.Getenv("DB_PATH"); env != "" {
		config.SQLitePath = env
	}
	if env := os.Getenv("MIGRATIONS_PATH"); env != "" {
		*migrationsPath = env
	}

	db, err := database.NewDB(config)
	if err != nil {
		log.Fatal("Failed to connect to database: ", err)
	}
	defer db.Close()

	ctx := context.Background()
	migrator := database.NewMigrator(db)

	if *status {
		if err := migrator.Initialize(ctx); err != nil {
			log.Fatal("Failed to initialize migrator: ", err)
		}

		applied, err := migrator.AppliedMigrations(ctx)
		if err != nil {
			log.Fatal("Failed to get applied migrations: ", err)
		}

		migrations, err := database.LoadMigrations(*migrationsPath)
		if err != nil {
			log.Fatal("Failed to load migrations: ", err)
		}

		fmt.Println("Migration Status:")
		fmt.Println("=================")
		for _, m := range migrations {
			state := "pending"
			if applied[m.Version] {
				state = "applied"
			}
			fmt.Printf("%s - %s [%s]\n", m.Version, m.Name, state)
		}
		return
	}

	fmt.Printf("Running migrations from %s...\n", *migrationsPath)
	n, err := migrator.Run(ctx, *migrationsPath)
	if err != nil {
		log.Fatal("Failed to run migrations: ", err)
	}
	fmt.Printf("Migrations completed successfully! (%d applied)\n", n)
}
