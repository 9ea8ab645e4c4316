package anarchy

// Status is the round state machine for a Quote Anarchy session.
type Status string

const (
	StatusWaiting    Status = "waiting"
	StatusCollecting Status = "collecting"
	StatusJudging    Status = "judging"
	StatusReveal     Status = "reveal"
)

// transitions is the legal edge set. Reveal loops back to collecting on the
// next round, or to waiting when a mid-game leave resets the session.
var transitions = map[Status][]Status{
	StatusWaiting:    {StatusCollecting},
	StatusCollecting: {StatusCollecting, StatusJudging},
	StatusJudging:    {StatusReveal},
	StatusReveal:     {StatusCollecting, StatusWaiting},
}

func (s Status) canAdvance(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}
