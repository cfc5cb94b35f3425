package api

import "time"

// BitacoraEntry is a single audit-log record as returned by the backend.
type BitacoraEntry struct {
	Id        string    `json:"id"`
	UserId    string    `json:"user_id"`
	UserName  string    `json:"user_name"`
	Action    string    `json:"action"`
	Module    string    `json:"module"`
	Detail    string    `json:"detail"`
	Timestamp time.Time `json:"timestamp"`
}

// BitacoraQuery holds the filter parameters for audit-log listings.
// Encoded as URL query params (gorilla/schema tags on the server side).
type BitacoraQuery struct {
	UserId string `json:"user_id,omitempty" schema:"user_id"`
	Module string `json:"module,omitempty" schema:"module"`
	From   string `json:"from,omitempty" schema:"from"`
	To     string `json:"to,omitempty" schema:"to"`
	Limit  int    `json:"limit,omitempty" schema:"limit"`
	Offset int    `json:"offset,omitempty" schema:"offset"`
}

type BitacoraResponse struct {
	Entries []BitacoraEntry `json:"entries"`
	Total   int             `json:"total"`
}
