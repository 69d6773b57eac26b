package handlers

// Error codes carried by ErrorResponse. Clients branch on these rather than on
// the message text.
const (
	ErrCodeNotFound         = "not_found"
	ErrCodeMethodNotAllowed = "method_not_allowed"
)
