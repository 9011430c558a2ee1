package constants

import (
	"path/filepath"
	"strings"
)

// MIME types served or accepted by the API
const (
	MimeTypeJSON      = "application/json"
	MimeTypeCSV       = "text/csv"
	MimeTypeText      = "text/plain"
	MimeTypeOctet     = "application/octet-stream"
	MimeTypeExcelCSV  = "application/vnd.ms-excel"
	MimeTypeMultipart = "multipart/form-data"
)

// CSVContentTypes lists content types browsers send for .csv uploads
var CSVContentTypes = []string{MimeTypeCSV, MimeTypeText, MimeTypeOctet, MimeTypeExcelCSV}

// IsCSVFile reports whether name carries the ingestible extension
func IsCSVFile(name string) bool {
	return strings.EqualFold(filepath.Ext(name), IngestibleExt)
}
