package turns

import (
	"fmt"
	"io"
)

// FprintHistory prints a history in a readable form to the provided writer.
// It renders common block kinds similarly to a chat transcript.
func FprintHistory(w io.Writer, h History) {
	for _, b := range h.blocks {
		switch b.Kind {
		case BlockKindSystem:
			if txt, ok := b.Payload[PayloadKeyText].(string); ok {
				fmt.Fprintf(w, "system: %s\n", txt)
			} else {
				fmt.Fprintln(w, "system: <no text>")
			}
		case BlockKindUser:
			if txt, ok := b.Payload[PayloadKeyText].(string); ok {
				fmt.Fprintf(w, "user: %s\n", txt)
			} else {
				fmt.Fprintln(w, "user: <no text>")
			}
		case BlockKindLLMText:
			agent, _ := b.Metadata[MetaKeyAgent].(string)
			prefix := "assistant"
			if agent != "" {
				prefix = fmt.Sprintf("assistant[%s]", agent)
			}
			if txt, ok := b.Payload[PayloadKeyText].(string); ok {
				fmt.Fprintf(w, "%s: %s\n", prefix, txt)
			} else if r, ok := b.Payload[PayloadKeyRefusal].(string); ok {
				fmt.Fprintf(w, "%s: <refused: %s>\n", prefix, r)
			} else {
				fmt.Fprintf(w, "%s: <no text>\n", prefix)
			}
		case BlockKindReasoning:
			if txt, ok := b.Payload[PayloadKeyText].(string); ok && txt != "" {
				fmt.Fprintf(w, "reasoning: %s\n", txt)
			} else {
				fmt.Fprintln(w, "reasoning: <no content>")
			}
		case BlockKindOther:
			fmt.Fprintln(w, "other block kind")
		}
	}
}
