package mermaidgen

import (
	"fmt"
	"strings"

	"github.com/archviz/diagramsvc/internal/model"
)

const syntaxRulesSequence = `sequenceDiagram
    participant A
    participant B
    A->>B: message
    B-->>A: reply
->> is a solid arrow (call), -->> is a dotted arrow (return). Activations use
activate/deactivate; notes use "Note over A,B: text".`

var examplesSequence = []string{
	"sequenceDiagram\n    participant Client\n    participant Server\n    Client->>Server: request\n    Server-->>Client: response",
	"sequenceDiagram\n    participant User\n    participant API\n    participant DB\n    User->>API: submit\n    API->>DB: write\n    DB-->>API: ack\n    API-->>User: 200 OK",
	"sequenceDiagram\n    participant A\n    participant B\n    A->>B: ping\n    activate B\n    B-->>A: pong\n    deactivate B",
}

// buildSequence treats each data_point's Label as the message text and its
// Description, if present, as "From:To" participants; otherwise messages
// alternate between two default participants.
func buildSequence(req model.DiagramRequest) string {
	var b strings.Builder
	b.WriteString("sequenceDiagram\n")

	participants := map[string]bool{}
	type msg struct{ from, to, text string }
	var msgs []msg

	for i, dp := range req.DataPoints {
		from, to := "ActorA", "ActorB"
		if parts := strings.SplitN(dp.Description, ":", 2); len(parts) == 2 {
			from, to = strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
		} else if i%2 == 1 {
			from, to = to, from
		}
		participants[from] = true
		participants[to] = true
		msgs = append(msgs, msg{from, to, dp.Label})
	}
	if len(msgs) == 0 {
		participants["ActorA"] = true
		participants["ActorB"] = true
		msgs = append(msgs, msg{"ActorA", "ActorB", req.Content})
	}

	ordered := sortedKeys(participants)
	for _, p := range ordered {
		fmt.Fprintf(&b, "    participant %s\n", sanitizeID(p))
	}
	for _, m := range msgs {
		fmt.Fprintf(&b, "    %s->>%s: %s\n", sanitizeID(m.from), sanitizeID(m.to), escapeLabel(m.text))
	}
	return b.String()
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	// stable insertion order isn't guaranteed by map iteration; a simple
	// sort keeps the DSL output deterministic for the same input.
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1] > out[j]; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}

func sanitizeID(s string) string {
	var b strings.Builder
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "P"
	}
	return b.String()
}
