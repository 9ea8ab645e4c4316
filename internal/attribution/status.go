package attribution

// Status is the turn state machine for an attribution session.
type Status string

const (
	StatusWaiting  Status = "waiting"
	StatusGuessing Status = "guessing"
	StatusReveal   Status = "reveal"
)

var transitions = map[Status][]Status{
	StatusWaiting:  {StatusGuessing},
	StatusGuessing: {StatusReveal},
	StatusReveal:   {StatusGuessing},
}

func (s Status) canAdvance(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}
