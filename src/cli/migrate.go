package cli

import (
	"log"

	"github.com/BookHut/BookHut-Backend/src/db"
	"github.com/spf13/cobra"
)

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gdb, err := openDatabase(opts)
			if err != nil {
				return err
			}
			defer db.Close(gdb)

			log.Println("Migration completed")
			return nil
		},
	}
}
