package server

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/arvi-k/physlab/internal/core"
	"github.com/arvi-k/physlab/internal/labs"
)

var startTime = time.Now()

func (s *Server) handleHealth() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": "physlab",
			"uptime":  time.Since(startTime).String(),
		})
	}
}

type knobInfo struct {
	Name    string  `json:"name"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Default float64 `json:"default"`
}

type labInfo struct {
	Name    string            `json:"name"`
	Tagline string            `json:"tagline"`
	Kinds   map[string]string `json:"kinds"`
	Phases  []string          `json:"phases"`
	Knobs   []knobInfo        `json:"knobs"`
}

func (s *Server) handleListLabs() gin.HandlerFunc {
	return func(c *gin.Context) {
		var out []labInfo
		for _, lab := range labs.All() {
			def := lab.Definition()

			info := labInfo{
				Name:    lab.Name,
				Tagline: lab.Tagline,
				Kinds:   make(map[string]string, len(lab.Kinds)),
			}
			for k, name := range lab.Kinds {
				info.Kinds[k.String()] = name
			}
			for _, p := range def.Phases {
				info.Phases = append(info.Phases, p.Name)
			}
			for _, k := range def.Knobs {
				info.Knobs = append(info.Knobs, knobInfo{
					Name:    k.Name,
					Min:     k.Min,
					Max:     k.Max,
					Default: k.Default,
				})
			}
			out = append(out, info)
		}
		c.JSON(http.StatusOK, gin.H{"labs": out})
	}
}

func (s *Server) handleListSessions() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"sessions": s.mgr.List()})
	}
}

func (s *Server) handleCreateSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Lab   string             `json:"lab" binding:"required"`
			Seed  int64              `json:"seed"`
			Rate  float64            `json:"rate"`
			Knobs map[string]float64 `json:"knobs"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: lab name required"})
			return
		}

		info, err := s.mgr.Create(req.Lab, req.Seed, req.Rate, req.Knobs)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusCreated, info)
	}
}

func (s *Server) handleGetSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		snap, err := s.mgr.Snapshot(c.Param("id"))
		if errors.Is(err, ErrSessionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}
		c.JSON(http.StatusOK, snap)
	}
}

// intentSpec is the wire form of one queued intent.
type intentSpec struct {
	Type   string  `json:"type"`
	Name   string  `json:"name,omitempty"`
	Value  float64 `json:"value,omitempty"`
	Kind   string  `json:"kind,omitempty"`
	Count  int     `json:"count,omitempty"`
	Energy float64 `json:"energy,omitempty"`
}

func (in intentSpec) intent() (core.Intent, error) {
	switch in.Type {
	case "set_knob":
		if in.Name == "" {
			return nil, fmt.Errorf("set_knob intent needs a knob name")
		}
		return core.SetKnob{Name: in.Name, Value: in.Value}, nil
	case "inject":
		kind, err := core.ParseKind(in.Kind)
		if err != nil {
			return nil, err
		}
		count := in.Count
		if count <= 0 {
			count = 1
		}
		return core.Inject{Kind: kind, Count: count, Energy: in.Energy}, nil
	case "reset":
		return core.ResetRun{}, nil
	default:
		return nil, fmt.Errorf("unknown intent type %q", in.Type)
	}
}

func (s *Server) handleQueueIntents() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Intents []intentSpec `json:"intents" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: intents list required"})
			return
		}

		intents := make([]core.Intent, 0, len(req.Intents))
		for i, spec := range req.Intents {
			in, err := spec.intent()
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("intent %d: %v", i, err)})
				return
			}
			intents = append(intents, in)
		}

		if err := s.mgr.Queue(c.Param("id"), intents...); err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"queued": len(intents)})
	}
}

func (s *Server) handleDeleteSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := s.mgr.Stop(c.Param("id")); err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "stopped"})
	}
}

func (s *Server) handleListRuns() gin.HandlerFunc {
	return func(c *gin.Context) {
		runs, err := s.repo.List(c.Request.Context())
		if err != nil {
			s.log.Errorf("failed to list runs: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list runs"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"runs": runs})
	}
}

func (s *Server) handleGetRun() gin.HandlerFunc {
	return func(c *gin.Context) {
		runID := c.Param("id")
		rec, err := s.repo.Get(c.Request.Context(), runID)
		if errors.Is(err, ErrRunNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
			return
		}
		if err != nil {
			s.log.Errorf("failed to load run %s: %v", runID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load run"})
			return
		}

		events, err := s.repo.Events(c.Request.Context(), runID)
		if err != nil {
			s.log.Errorf("failed to load events for run %s: %v", runID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load run events"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"run": rec, "events": events})
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // spectator stream carries no credentials
	},
}

func (s *Server) handleSpectate() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		snap, err := s.mgr.Snapshot(id)
		if errors.Is(err, ErrSessionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			s.log.Warnf("websocket upgrade failed: %v", err)
			return
		}

		client := NewClient(s.hub, id, conn)
		client.Prime(snap)
		client.Register()

		go client.WritePump()
		go client.ReadPump()
	}
}
