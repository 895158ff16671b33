package cli

import (
	"fmt"
	"os"

	"github.com/BookHut/BookHut-Backend/src/db"
	"github.com/BookHut/BookHut-Backend/src/services"
	"github.com/spf13/cobra"
)

// NewImportBooksCommand creates the import-books command.
func NewImportBooksCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import-books <file.xlsx>",
		Short: "Add books from an Excel workbook",
		Long: `Add books from the first sheet of an .xlsx workbook.

The first row names the columns: name, author, category, quantity, rating,
image, shortDescription. Only name is required. Rows that fail validation are
reported and skipped.

Example:
  bookhut import-books ./catalog.xlsx`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer file.Close()

			_, gdb, err := openDatabase(opts)
			if err != nil {
				return err
			}
			defer db.Close(gdb)

			bookService := services.NewBookService(gdb)
			defer bookService.Close()

			result, err := bookService.ImportBooksFromExcel(cmd.Context(), file)
			if result != nil {
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "imported %d books\n", result.Imported)
				for _, rowErr := range result.Errors {
					fmt.Fprintf(out, "  %s\n", rowErr)
				}
			}
			return err
		},
	}
}
