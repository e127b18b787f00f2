package model

// DiscrepancyCode names one way a project's on-disk state can disagree
// with its declared account.
type DiscrepancyCode string

const (
	MissingGitDirectory DiscrepancyCode = "MissingGitDirectory"
	UserMismatch        DiscrepancyCode = "UserMismatch"
	MissingKeyFile      DiscrepancyCode = "MissingKeyFile"
	NoAccountAssigned   DiscrepancyCode = "NoAccountAssigned"
)

// Discrepancy is a single validation finding.
type Discrepancy struct {
	Code   DiscrepancyCode `json:"code"`
	Detail string          `json:"detail"`
}

// ValidationReport is the result of validating one project.
type ValidationReport struct {
	ProjectID     int64         `json:"project_id,omitempty"`
	Path          string        `json:"path"`
	Valid         bool          `json:"valid"`
	Discrepancies []Discrepancy `json:"discrepancies"`
}

// Add records a discrepancy and marks the report invalid.
func (r *ValidationReport) Add(code DiscrepancyCode, detail string) {
	r.Discrepancies = append(r.Discrepancies, Discrepancy{Code: code, Detail: detail})
	r.Valid = false
}

// Codes returns the discrepancy codes in the order they were found.
func (r ValidationReport) Codes() []DiscrepancyCode {
	codes := make([]DiscrepancyCode, 0, len(r.Discrepancies))
	for _, d := range r.Discrepancies {
		codes = append(codes, d.Code)
	}
	return codes
}
