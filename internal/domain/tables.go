package domain

// Tables - rows of every public table. Used for snapshots, restores and changesets.
type Tables struct {
	Users        []User              `json:"users"`
	Polls        []Poll              `json:"polls"`
	Options      []PollOption        `json:"poll_options"`
	Votes        []Vote              `json:"votes"`
	Presentation []PresentationState `json:"presentation_state"`
}

// Len returns the total number of rows.
func (t Tables) Len() int {
	return len(t.Users) + len(t.Polls) + len(t.Options) + len(t.Votes) + len(t.Presentation)
}
