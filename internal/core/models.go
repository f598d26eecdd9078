package core

import (
	"time"
)

// ConnectionProfile is a saved PostgreSQL connection. Requests carry a copy of it.
type ConnectionProfile struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Host     string `json:"host"`
	Port     Port   `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	Database string `json:"database"`
}

type ProductDefinition struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	GTIN string `json:"gtin"`
}

// Settings is the persisted application configuration.
// A normalized Settings never holds nil containers.
type Settings struct {
	Connections []ConnectionProfile `json:"connections"`
	Products    []ProductDefinition `json:"products"`
	FieldLabels map[string]string   `json:"fieldLabels"`
}

// DefaultSettings returns the empty structure used when nothing can be loaded.
func DefaultSettings() Settings {
	return Settings{
		Connections: []ConnectionProfile{},
		Products:    []ProductDefinition{},
		FieldLabels: map[string]string{},
	}
}

// Normalize replaces nil members with empty containers.
func (s Settings) Normalize() Settings {
	if s.Connections == nil {
		s.Connections = []ConnectionProfile{}
	}
	if s.Products == nil {
		s.Products = []ProductDefinition{}
	}
	if s.FieldLabels == nil {
		s.FieldLabels = map[string]string{}
	}
	return s
}

// Clone returns a deep copy so callers never share the cached containers.
func (s Settings) Clone() Settings {
	out := Settings{
		Connections: make([]ConnectionProfile, len(s.Connections)),
		Products:    make([]ProductDefinition, len(s.Products)),
		FieldLabels: make(map[string]string, len(s.FieldLabels)),
	}
	copy(out.Connections, s.Connections)
	copy(out.Products, s.Products)
	for k, v := range s.FieldLabels {
		out.FieldLabels[k] = v
	}
	return out
}

// ProductName returns the saved product name for a GTIN, if any.
func (s Settings) ProductName(gtin string) string {
	for _, p := range s.Products {
		if p.GTIN == gtin {
			return p.Name
		}
	}
	return ""
}

type DateField string

const (
	DateFieldProduction DateField = "production_date"
	DateFieldInserted   DateField = "dtime_ins"
)

func (f DateField) Valid() bool {
	return f == DateFieldProduction || f == DateFieldInserted
}

// All is the sentinel meaning "no filter" for GTIN and status.
const All = "all"

// QueryFilter holds the per-request filter dimensions.
type QueryFilter struct {
	SelectedGTIN string     `json:"selectedGtin"`
	StartDate    string     `json:"startDate"`
	EndDate      *string    `json:"endDate"`
	DateField    DateField  `json:"dateField"`
	Status       FlexString `json:"status"`
}

// HasEndDate reports whether the filter is an inclusive range.
func (f QueryFilter) HasEndDate() bool {
	return f.EndDate != nil && *f.EndDate != ""
}

func (f QueryFilter) FiltersGTIN() bool {
	return f.SelectedGTIN != "" && f.SelectedGTIN != All
}

func (f QueryFilter) FiltersStatus() bool {
	return f.Status != "" && string(f.Status) != All
}

type SummaryRequest struct {
	Connection *ConnectionDescriptor `json:"connection"`
	QueryFilter
}

type FullExportRequest struct {
	Connection *ConnectionDescriptor `json:"connection"`
	QueryFilter
	Limit          Limit    `json:"limit"`
	ExportAll      bool     `json:"exportAll"`
	Columns        []string `json:"columns"`
	MarkAsExported bool     `json:"markAsExported"`
}

// CodeColumns are the only columns of the codes table the tool ever references.
var CodeColumns = []string{
	"id", "dtime_ins", "code", "status",
	"dtime_status", "grcode", "dtime_grcode",
	"sscc", "dtime_sscc", "production_date",
}

// StatusExported is the status written to rows after a marked export.
const StatusExported = 9

type GTINCount struct {
	GTIN  string `json:"gtin"`
	Count int64  `json:"count"`
}

type SummaryResult struct {
	Rows           []GTINCount `json:"rows"`
	TotalCount     int64       `json:"totalCount"`
	PrefixCount    int64       `json:"prefixCount"`
	NonPrefixCount int64       `json:"nonPrefixCount"`
}

// HistoryEntry is one journaled report run.
type HistoryEntry struct {
	ID             int64     `json:"id"`
	Timestamp      time.Time `json:"timestamp"`
	Report         string    `json:"report"`
	ConnectionName string    `json:"connectionName"`
	Host           string    `json:"host"`
	Database       string    `json:"database"`
	DateField      string    `json:"dateField"`
	StartDate      string    `json:"startDate"`
	EndDate        string    `json:"endDate"`
	SelectedGTIN   string    `json:"selectedGtin"`
	Status         string    `json:"status"`
	RowCount       int64     `json:"rowCount"`
	MarkedCount    int64     `json:"markedCount"`
	DurationMs     int64     `json:"durationMs"`
	Outcome        string    `json:"outcome"`
	ErrorMessage   string    `json:"errorMessage"`
}

const (
	ReportSummary = "summary"
	ReportFull    = "full"

	OutcomeSuccess = "SUCCESS"
	OutcomeError   = "ERROR"
)
