package versions

import (
	"devcamp/schema"
	"log"

	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

func migrateInitialSchema(txn *gorm.DB) error {
	log.Println("creating initial schema")

	err := txn.AutoMigrate(
		&schema.User{}, &schema.Bootcamp{}, &schema.Course{}, &schema.Review{},
	)
	if err != nil {
		return err
	}

	log.Println("initial schema created")

	return nil
}

func rollbackInitialSchema(txn *gorm.DB) error {
	return txn.Migrator().DropTable(
		&schema.Review{}, &schema.Course{}, &schema.Bootcamp{}, &schema.User{},
	)
}

// Migrations is the ordered list applied at startup and by the migration cmd.
var Migrations = []*gormigrate.Migration{
	{
		ID:       "20250801000001_initial_schema",
		Migrate:  migrateInitialSchema,
		Rollback: rollbackInitialSchema,
	},
}
