package genealogy

import (
	"io"
	"log/slog"
	"strings"

	"github.com/dukerupert/kinship/internal/model"
)

func newTestBuilder() *Builder {
	return NewBuilder(nil, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// member builds a raw record; kv holds extra key/value pairs.
func member(id string, generation int, kv ...any) model.RawRecord {
	r := model.RawRecord{
		"id":         id,
		"firstName":  id,
		"generation": generation,
	}
	for i := 0; i+1 < len(kv); i += 2 {
		r[kv[i].(string)] = kv[i+1]
	}
	return r
}

// outline renders a node as "A+B(C,D+E(F))".
func outline(n *Node) string {
	if n == nil {
		return ""
	}
	var sb strings.Builder
	sb.WriteString(n.Person.ID)
	if n.Spouse != nil {
		sb.WriteString("+" + n.Spouse.ID)
	}
	if len(n.Children) > 0 {
		kids := make([]string, len(n.Children))
		for i, c := range n.Children {
			kids[i] = outline(c)
		}
		sb.WriteString("(" + strings.Join(kids, ",") + ")")
	}
	return sb.String()
}

func outlines(nodes []*Node) []string {
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, outline(n))
	}
	return out
}
