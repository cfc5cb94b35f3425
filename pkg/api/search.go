package api

// SearchMode selects how a similar-case query is interpreted.
type SearchMode string

const (
	SearchModeDescription SearchMode = "description"
	SearchModeCaseNumber  SearchMode = "case_number"
)

type SimilarCaseRequest struct {
	Mode      SearchMode `json:"mode"`
	Query     string     `json:"query"`
	Limit     int        `json:"limit"`
	Threshold float64    `json:"threshold"`
}

// SimilarCaseRaw mirrors the backend's response shape. Nested fields may be
// null or missing; the search orchestrator normalizes defensively.
type SimilarCaseRaw struct {
	CaseId     string   `json:"case_id"`
	Score      *float64 `json:"score"`
	Document   *struct {
		Title      string `json:"title"`
		CaseNumber string `json:"case_number"`
		Court      string `json:"court"`
		Date       string `json:"date"`
	} `json:"document"`
	Highlights []string `json:"highlights"`
}

type SimilarCaseSearchResponse struct {
	Results []SimilarCaseRaw `json:"results"`
	Total   int              `json:"total"`
}

// SimilarCase is the normalized client-side shape.
type SimilarCase struct {
	CaseId     string   `json:"case_id"`
	Score      float64  `json:"score"`
	Title      string   `json:"title"`
	CaseNumber string   `json:"case_number"`
	Court      string   `json:"court"`
	Date       string   `json:"date"`
	Highlights []string `json:"highlights"`
}

type SummaryRequest struct {
	CaseNumber string `json:"case_number"`
}

type SummaryResponse struct {
	CaseNumber string `json:"case_number"`
	Summary    string `json:"summary"`
}
