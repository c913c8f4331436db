package domain

// Poll - structure for storing information about poll.
// Polls are created inactive, at most one poll is active at a time.
type Poll struct {
	ID       uint64 `json:"id"`
	Question string `json:"question"`
	IsActive bool   `json:"is_active"`
	// CreatedAt - microseconds since epoch.
	CreatedAt int64 `json:"created_at"`
}

// PollOption - one answer of a poll. ID is scoped to the poll.
type PollOption struct {
	ID     uint64 `json:"option_id"`
	PollID uint64 `json:"poll_id"`
	Text   string `json:"text"`
}

// OptionKey - primary key of PollOption.
type OptionKey struct {
	PollID   uint64
	OptionID uint64
}

func (o PollOption) Key() OptionKey {
	return OptionKey{PollID: o.PollID, OptionID: o.ID}
}

// Vote - structure for connecting the user and their choice in the poll.
type Vote struct {
	ID       uint64 `json:"vote_id"`
	PollID   uint64 `json:"poll_id"`
	UserID   string `json:"user_id"`
	OptionID uint64 `json:"option_id"`
	VotedAt  int64  `json:"voted_at"`
}

// VoterKey - at most one vote exists per key.
type VoterKey struct {
	PollID uint64
	UserID string
}

func (v Vote) VoterKey() VoterKey {
	return VoterKey{PollID: v.PollID, UserID: v.UserID}
}

func NewPoll(id uint64, question string, createdAt int64) Poll {
	return Poll{
		ID:        id,
		Question:  question,
		IsActive:  false,
		CreatedAt: createdAt,
	}
}

// OptionTally - votes count of a single option.
type OptionTally struct {
	OptionID uint64 `json:"option_id"`
	Text     string `json:"text"`
	Votes    int    `json:"votes"`
}

// PollResults - read-side view of a poll with per option counts, in option order.
type PollResults struct {
	Poll    Poll          `json:"poll"`
	Options []OptionTally `json:"options"`
	Total   int           `json:"total"`
}
