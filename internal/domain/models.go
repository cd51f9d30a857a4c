package domain

import "database/sql"

// Content object classes accepted by the fixture importer.
const (
	ClassDataTable    = "DataTable"
	ClassTest         = "Test"
	ClassViewTemplate = "ViewTemplate"
)

// ContentObject is a piece of panel content (table, test, template) owned by a user.
type ContentObject struct {
	ID          string         `db:"id"`
	ClassName   string         `db:"class_name"`
	Name        string         `db:"name"`
	Description string         `db:"description"`
	Category    string         `db:"category"`
	OwnerID     sql.NullString `db:"owner_id"`
	Payload     string         `db:"payload"` // raw JSON of the fixture entry
}

// ImportResult is the outcome of importing one fixture entry.
type ImportResult struct {
	ClassName string   `json:"class_name"`
	Name      string   `json:"name"`
	Errors    bool     `json:"errors"`
	Messages  []string `json:"messages,omitempty"`
}
