package models

// Group is a set of members who share receipts and settle debts with each other.
type Group struct {
	// ID is the unique identifier for the group (UUID format).
	ID string

	// Name is the display name of the group (e.g., "Roommates", "Lisbon trip").
	Name string

	// Members are the member identifiers belonging to the group.
	Members []string

	// CreatedAt is the Unix timestamp when the group was created.
	CreatedAt int64
}
