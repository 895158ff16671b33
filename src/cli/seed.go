package cli

import (
	"github.com/BookHut/BookHut-Backend/src/db"
	"github.com/BookHut/BookHut-Backend/src/seed"
	"github.com/BookHut/BookHut-Backend/src/services"
	"github.com/spf13/cobra"
)

// NewSeedCommand creates the seed command.
func NewSeedCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Insert sample books and testimonials",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gdb, err := openDatabase(opts)
			if err != nil {
				return err
			}
			defer db.Close(gdb)

			bookService := services.NewBookService(gdb)
			defer bookService.Close()

			return seed.Seed(cmd.Context(), gdb, bookService, services.NewUserCardService(gdb))
		},
	}
}
