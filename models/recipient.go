package models

// Recipient is one row of the input list after normalization.
// Email is the unique key within a campaign run.
type Recipient struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}
