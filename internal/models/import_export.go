package models

type ImportStatus string

const (
	ImportCompleted ImportStatus = "completed"
	ImportFailed    ImportStatus = "failed"
)

// ImportValidationError describes one rejected cell or row of a
// tabular import.
type ImportValidationError struct {
	Row     int    `json:"row"`
	Column  string `json:"column"`
	Message string `json:"message"`
	Value   string `json:"value"`
}

// ImportResult summarizes one bank import. Imports are all-or-nothing:
// a failed import leaves the previous bank untouched, so Status is the
// only signal callers need to check before re-reading the bank.
type ImportResult struct {
	JobID        string                  `json:"job_id"`
	Mode         Mode                    `json:"mode"`
	FileType     string                  `json:"file_type"`
	TotalRows    int                     `json:"total_rows"`
	SuccessCount int                     `json:"success_count"`
	ErrorCount   int                     `json:"error_count"`
	Errors       []ImportValidationError `json:"errors,omitempty"`
	Status       ImportStatus            `json:"status"`
}

// ExportTable is one named table of string/number cells handed to the
// export formatter. XLSX exports map each table to a sheet; CSV exports
// take exactly one table.
type ExportTable struct {
	Name string
	Rows [][]string
}
