package main

import (
	"devcamp/cmd/migration/versions"
	"flag"
	"fmt"
	"log"
	"net/url"
	"os"
	"strings"

	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Applies pending schema migrations without starting the server. The server
// runs the same migrations at startup, this exists so that schema changes can
// be applied (or rolled back) independently of a deploy.

func postgresDsn(databaseUri string) string {
	parts, err := url.Parse(databaseUri)
	if err != nil {
		log.Fatalf("error parsing db uri: %v", err)
	}
	pwd, _ := parts.User.Password()
	dbname := strings.TrimPrefix(parts.Path, "/")
	return fmt.Sprintf("host=%v user=%v password=%v dbname=%v port=%v", parts.Hostname(), parts.User.Username(), pwd, dbname, parts.Port())
}

func main() {
	envFile := flag.String("env", "", "File to load env variables from.")
	rollbackTo := flag.String("rollback-to", "", "Roll the schema back to the given migration id instead of migrating forward.")

	flag.Parse()

	if *envFile != "" {
		if err := godotenv.Load(*envFile); err != nil {
			log.Fatalf("error loading .env file '%v': %v", *envFile, err)
		}
	}

	databaseUri := os.Getenv("DATABASE_URI")
	if databaseUri == "" {
		log.Fatal("DATABASE_URI env var must be specified")
	}

	db, err := gorm.Open(postgres.Open(postgresDsn(databaseUri)), &gorm.Config{})
	if err != nil {
		log.Fatalf("error opening database connection: %v", err)
	}

	migrator := gormigrate.New(db, gormigrate.DefaultOptions, versions.Migrations)

	if *rollbackTo != "" {
		if err := migrator.RollbackTo(*rollbackTo); err != nil {
			log.Fatalf("error rolling back to migration %v: %v", *rollbackTo, err)
		}
		log.Printf("schema rolled back to migration %v", *rollbackTo)
		return
	}

	if err := migrator.Migrate(); err != nil {
		log.Fatalf("error migrating db schema: %v", err)
	}
	log.Println("schema migrations complete")
}
