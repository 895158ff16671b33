package cli

import (
	"fmt"

	"github.com/BookHut/BookHut-Backend/src/config"
	"github.com/BookHut/BookHut-Backend/src/db"
	"gorm.io/gorm"
)

// openDatabase loads the configuration and returns a migrated database.
func openDatabase(opts *RootOptions) (*config.Config, *gorm.DB, error) {
	cfg, err := config.Load(opts.EnvFile)
	if err != nil {
		return nil, nil, err
	}

	gdb, err := db.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to database: %w", err)
	}

	if err := db.Migrate(gdb); err != nil {
		_ = db.Close(gdb)
		return nil, nil, fmt.Errorf("migrating database: %w", err)
	}
	return cfg, gdb, nil
}
