package dtos

// ImportResultDTO summarizes a spreadsheet import.
type ImportResultDTO struct {
	Imported int      `json:"imported"`
	Errors   []string `json:"errors"`
}
