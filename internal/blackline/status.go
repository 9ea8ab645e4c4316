package blackline

// Status is the turn state machine for a redaction session.
type Status string

const (
	StatusWaiting   Status = "waiting"
	StatusRedacting Status = "redacting"
	StatusGuessing  Status = "guessing"
	StatusReveal    Status = "reveal"
)

var transitions = map[Status][]Status{
	StatusWaiting:   {StatusRedacting},
	StatusRedacting: {StatusGuessing},
	StatusGuessing:  {StatusReveal},
	StatusReveal:    {StatusRedacting},
}

func (s Status) canAdvance(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}
