package notify

import (
	"context"
	"encoding/json"
)

// HubNotifier forwards alerts into an existing broadcast fan-out, normally
// the server's spectator hub. Each alert lands in the room of the session
// that raised it, wrapped in an {"alert": ...} envelope so stream consumers
// can tell it apart from snapshot frames.
type HubNotifier struct {
	id   string
	send func(room string, payload []byte)
}

// NewHubNotifier wraps a broadcast func. send must not block; the hub drops
// frames under pressure, which suits alerts, since the retry layer above
// only re-delivers on error, not on drop.
func NewHubNotifier(id string, send func(room string, payload []byte)) *HubNotifier {
	return &HubNotifier{id: id, send: send}
}

func (hn *HubNotifier) ID() string   { return hn.id }
func (hn *HubNotifier) Type() string { return "hub" }

func (hn *HubNotifier) Notify(ctx context.Context, alert Alert) error {
	payload, err := json.Marshal(struct {
		Alert Alert `json:"alert"`
	}{alert})
	if err != nil {
		return err
	}
	hn.send(alert.SessionID, payload)
	return nil
}

func (hn *HubNotifier) Close() error { return nil }
