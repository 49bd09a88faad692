package store

// Grant allows one external user to talk to the relay. UserID is the
// external platform identifier.
type Grant struct {
	UserID      string
	DisplayName string
	GrantedBy   string
	CreatedTs   int64
}

type FindGrant struct {
	UserID *string
}

type DeleteGrant struct {
	UserID string
}
