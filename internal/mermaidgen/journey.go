package mermaidgen

import (
	"fmt"
	"strings"

	"github.com/archviz/diagramsvc/internal/model"
)

const syntaxRulesJourney = `journey
    title <title>
    section <section name>
      Task name: score: Actor
Score is an integer 1-5 (satisfaction). Multiple actors on one line are
comma-separated.`

var examplesJourney = []string{
	"journey\n    title Onboarding\n    section Signup\n      Create account: 4: User\n      Verify email: 3: User",
	"journey\n    title Checkout\n    section Cart\n      Add item: 5: Shopper\n    section Payment\n      Enter card: 2: Shopper",
	"journey\n    title Support Call\n    section Triage\n      Explain issue: 3: Customer, Agent\n      Diagnose: 4: Agent",
}

// buildJourney places each data_point as a step, using Value (clamped 1-5)
// as the satisfaction score and Description as the actor, grouped into a
// single section (spec.md gives journey no further structural hint).
func buildJourney(req model.DiagramRequest) string {
	var b strings.Builder
	title := req.Content
	if title == "" {
		title = "Journey"
	}
	fmt.Fprintf(&b, "journey\n    title %s\n    section Steps\n", escapeLabel(title))
	if len(req.DataPoints) == 0 {
		b.WriteString("      Step: 3: User\n")
		return b.String()
	}
	for _, dp := range req.DataPoints {
		score := 3
		if dp.Value != nil {
			score = int(*dp.Value)
			if score < 1 {
				score = 1
			}
			if score > 5 {
				score = 5
			}
		}
		actor := dp.Description
		if actor == "" {
			actor = "User"
		}
		fmt.Fprintf(&b, "      %s: %d: %s\n", escapeLabel(dp.Label), score, escapeLabel(actor))
	}
	return b.String()
}
