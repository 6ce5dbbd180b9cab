package events

import (
	"fmt"
	"io"

	"github.com/ThreeDotsLabs/watermill/message"
	"gopkg.in/yaml.v3"
)

// StepPrinterFunc returns a handler that prints a one line summary per event,
// followed by the stage output as YAML once a stage completes.
func StepPrinterFunc(w io.Writer) func(msg *message.Message) error {
	return func(msg *message.Message) error {
		defer msg.Ack()

		e, err := NewEventFromJson(msg.Payload)
		if err != nil {
			return err
		}
		meta := e.Metadata()

		switch p_ := e.(type) {
		case *EventRunStarted:
			_, err = fmt.Fprintf(w, "[%s] run started: %q\n", meta.RunID, p_.Input)
		case *EventStageStarted:
			_, err = fmt.Fprintf(w, "[%s] %s: calling %s (%s), %d items in history\n",
				meta.RunID, meta.Stage, meta.Agent, p_.Model, meta.HistoryLen)
		case *EventStageCompleted:
			_, err = fmt.Fprintf(w, "[%s] %s: done, %d new items\n", meta.RunID, meta.Stage, p_.NewItems)
			if err != nil {
				return err
			}
			var v interface{}
			if yerr := yaml.Unmarshal([]byte(p_.OutputText), &v); yerr == nil {
				out, yerr := yaml.Marshal(v)
				if yerr == nil {
					_, err = fmt.Fprintf(w, "%s", out)
				}
			}
		case *EventStageFailed:
			_, err = fmt.Fprintf(w, "[%s] %s: failed: %s\n", meta.RunID, meta.Stage, p_.Error())
		case *EventGateDecided:
			verdict := "denied"
			if p_.Approved {
				verdict = "approved"
			}
			_, err = fmt.Fprintf(w, "[%s] gate: %s\n", meta.RunID, verdict)
		case *EventRunCompleted:
			_, err = fmt.Fprintf(w, "[%s] run finished: %s\n", meta.RunID, meta.State)
		case *EventRunFailed:
			_, err = fmt.Fprintf(w, "[%s] run failed: %s\n", meta.RunID, p_.Error())
		default:
			_, err = fmt.Fprintf(w, "[%s] %s\n", meta.RunID, e.Type())
		}
		return err
	}
}
