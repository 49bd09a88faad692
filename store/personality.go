package store

// Personality is a named system-prompt text. Conversations point at
// personalities by name; deleting one falls affected conversations back to
// the default persona at resolution time.
type Personality struct {
	Name      string
	Prompt    string
	CreatedTs int64
	UpdatedTs int64
}

type FindPersonality struct {
	Name *string
}

type DeletePersonality struct {
	Name string
}
