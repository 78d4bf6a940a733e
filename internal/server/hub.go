package server

import (
	"context"
)

// frame is one serialized snapshot addressed to every spectator of a session.
type frame struct {
	session string
	payload []byte
}

// Hub maintains the set of active spectator connections, grouped by session
// ID, and fans snapshot frames out to them. All room state is owned by the
// Run goroutine; the channels are the only way in.
type Hub struct {
	rooms      map[string]map[*Client]bool
	broadcast  chan frame
	register   chan *Client
	unregister chan *Client
	closeRoom  chan string
	log        *Logger
}

// NewHub initializes a hub. Run must be started before clients connect.
func NewHub(log *Logger) *Hub {
	return &Hub{
		rooms:      make(map[string]map[*Client]bool),
		broadcast:  make(chan frame, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		closeRoom:  make(chan string, 16),
		log:        log,
	}
}

// Run is the hub's main loop, handling connections and broadcasts until the
// context is canceled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			for id := range h.rooms {
				h.dropRoom(id)
			}
			h.log.Infof("websocket hub shut down")
			return
		case client := <-h.register:
			room := h.rooms[client.session]
			if room == nil {
				room = make(map[*Client]bool)
				h.rooms[client.session] = room
			}
			room[client] = true
			h.log.Infof("spectator joined session %s (%d watching)", client.session, len(room))
		case client := <-h.unregister:
			if room, ok := h.rooms[client.session]; ok {
				if _, ok := room[client]; ok {
					delete(room, client)
					close(client.send)
					if len(room) == 0 {
						delete(h.rooms, client.session)
					}
					h.log.Infof("spectator left session %s", client.session)
				}
			}
		case id := <-h.closeRoom:
			h.dropRoom(id)
		case f := <-h.broadcast:
			for client := range h.rooms[f.session] {
				select {
				case client.send <- f.payload:
				default:
					// Slow spectators are dropped rather than
					// allowed to back up the stream.
					close(client.send)
					delete(h.rooms[f.session], client)
					h.log.Warnf("dropped slow spectator on session %s", f.session)
				}
			}
		}
	}
}

func (h *Hub) dropRoom(id string) {
	room, ok := h.rooms[id]
	if !ok {
		return
	}
	for client := range room {
		close(client.send)
	}
	delete(h.rooms, id)
}

// Broadcast queues one frame for every spectator of the session. It never
// blocks: the tick loop calls this, and a saturated hub loses frames instead
// of stalling the simulation.
func (h *Hub) Broadcast(sessionID string, payload []byte) {
	select {
	case h.broadcast <- frame{session: sessionID, payload: payload}:
	default:
		h.log.Debugf("hub saturated, dropped frame for session %s", sessionID)
	}
}

// CloseRoom disconnects every spectator of a session. Called when the
// session is deleted.
func (h *Hub) CloseRoom(sessionID string) {
	select {
	case h.closeRoom <- sessionID:
	default:
	}
}
