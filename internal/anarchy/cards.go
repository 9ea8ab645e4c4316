package anarchy

import (
	"encoding/json"
	"math/rand"
	"os"
	"strings"
)

// defaultBlackCards keeps the game playable when no curated list is shipped.
var defaultBlackCards = []string{
	"This meeting could have been an email, but instead we got ____.",
	"The group chat exploded after someone posted ____.",
	"My entire personality this week is just ____.",
	"The real reason we were late: ____.",
	"At 2am, all good ideas become ____.",
}

// loadBlackCards reads the curated prompt list from a JSON array of strings.
// Any problem with the file falls back to the defaults.
func loadBlackCards(path string) []string {
	if path == "" {
		return defaultBlackCards
	}
	payload, err := os.ReadFile(path)
	if err != nil {
		return defaultBlackCards
	}
	var raw []string
	if err := json.Unmarshal(payload, &raw); err != nil {
		return defaultBlackCards
	}
	cards := make([]string, 0, len(raw))
	for _, item := range raw {
		card := strings.TrimSpace(item)
		if card == "" {
			continue
		}
		cards = append(cards, strings.ReplaceAll(card, `\n`, "\n"))
	}
	if len(cards) == 0 {
		return defaultBlackCards
	}
	return cards
}

func (s *Service) drawBlackCard() string {
	if len(s.blackCards) == 0 {
		return "The best response to this moment is ____."
	}
	return s.blackCards[rand.Intn(len(s.blackCards))]
}
