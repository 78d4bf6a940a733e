package notify

import (
	"context"
	"log"
)

// LogNotifier writes alerts to the process log. Mostly useful headless,
// where no websocket or webhook consumer is attached.
type LogNotifier struct {
	id string
}

func NewLogNotifier(id string) *LogNotifier {
	return &LogNotifier{id: id}
}

func (ln *LogNotifier) ID() string {
	return ln.id
}

func (ln *LogNotifier) Type() string {
	return "log"
}

func (ln *LogNotifier) Notify(ctx context.Context, alert Alert) error {
	log.Printf("[ALERT] lab=%s session=%s t=%.2f %s: %s %s",
		alert.Lab, alert.SessionID, alert.SimTime, alert.Type, alert.Name, alert.Detail)
	return nil
}

func (ln *LogNotifier) Close() error {
	return nil
}
