package dto

import "fiado-ledger/internal/domain/backup"

type ImportSummaryResponse struct {
	Added   int  `json:"added"`
	Updated int  `json:"updated"`
	Errors  int  `json:"errors"`
	Wiped   bool `json:"wiped"`
}

func NewImportSummaryResponse(summary backup.ImportSummary) ImportSummaryResponse {
	return ImportSummaryResponse{
		Added:   summary.Added,
		Updated: summary.Updated,
		Errors:  summary.Errors,
		Wiped:   summary.Wiped,
	}
}
