package dispatch

// ActionCard is a suggested follow-up operation presented alongside an
// assistant response.
type ActionCard struct {
	Label       string `json:"label"`
	Description string `json:"description,omitempty"`
	Target      string `json:"target"`
}

// MaxCards bounds the suggested follow-ups per response.
const MaxCards = 3

// Response is the user-facing outcome of a dispatched intent.
type Response struct {
	// Text is the human-readable result message.
	Text string

	// Cards are up to three suggested follow-up actions.
	Cards []ActionCard

	// Navigate is an optional navigation target (a conversation id or a
	// surface name like "orders").
	Navigate string

	// Handled is false when the intent fell through to the generic
	// conversational path.
	Handled bool
}

// withCards attaches cards, truncating to the limit.
func (r Response) withCards(cards ...ActionCard) Response {
	if len(cards) > MaxCards {
		cards = cards[:MaxCards]
	}
	r.Cards = cards
	return r
}
