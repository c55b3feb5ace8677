package handler

import (
	"encoding/json"
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gradesync-go-api/internal/dto"
	"github.com/noah-isme/gradesync-go-api/internal/service"
)

// Dashboard websocket actions accepted from clients.
const (
	dashboardActionSnapshot = "snapshot"
	dashboardActionSearch   = "search"
	dashboardActionOpen     = "open"
)

type dashboardCommand struct {
	Action       string `json:"action"`
	Query        string `json:"query"`
	SubmissionID uint   `json:"submission_id"`
}

type dashboardFrame struct {
	Type  string                  `json:"type"`
	Query string                  `json:"query,omitempty"`
	Items []dto.SubmissionSummary `json:"items,omitempty"`
	Event *dto.SubmissionEvent    `json:"event,omitempty"`
	Error string                  `json:"error,omitempty"`
}

// DashboardHandler streams the reconciled submission working set to examiner
// dashboards over a websocket.
type DashboardHandler struct {
	reconciler *service.Reconciler
	search     *service.SubmissionSearch
	logger     zerolog.Logger
}

// NewDashboardHandler builds a dashboard handler instance.
func NewDashboardHandler(reconciler *service.Reconciler, search *service.SubmissionSearch, logger zerolog.Logger) *DashboardHandler {
	return &DashboardHandler{
		reconciler: reconciler,
		search:     search,
		logger:     logger.With().Str("component", "dashboard_handler").Logger(),
	}
}

// Register binds the websocket route under the provided router group.
func (h *DashboardHandler) Register(router fiber.Router) {
	router.Use("/dashboard", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	router.Get("/dashboard", websocket.New(h.handleConnection))
}

func (h *DashboardHandler) handleConnection(conn *websocket.Conn) {
	userID := userIDFromLocals(conn)
	h.logger.Info().Uint("user_id", userID).Msg("dashboard websocket connected")

	var writeMu sync.Mutex
	send := func(frame dashboardFrame) {
		writeMu.Lock()
		defer writeMu.Unlock()
		if err := conn.WriteJSON(frame); err != nil {
			h.logger.Debug().Err(err).Msg("dashboard write failed")
		}
	}

	send(dashboardFrame{Type: "snapshot", Items: h.reconciler.Snapshot()})
	if err := h.reconciler.Degraded(); err != nil {
		send(dashboardFrame{Type: "degraded", Error: err.Error()})
	}

	stream, cleanup := h.reconciler.Subscribe()
	defer cleanup()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for event := range stream {
			forwarded := event
			send(dashboardFrame{Type: "event", Event: &forwarded})
		}
	}()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			break
		}

		var command dashboardCommand
		if err := json.Unmarshal(message, &command); err != nil {
			send(dashboardFrame{Type: "error", Error: "invalid command"})
			continue
		}

		switch command.Action {
		case dashboardActionSnapshot:
			send(dashboardFrame{Type: "snapshot", Items: h.reconciler.Snapshot()})
		case dashboardActionSearch:
			h.search.Schedule(command.Query, func(query string, results []dto.SubmissionSummary) {
				send(dashboardFrame{Type: "search", Query: query, Items: results})
			})
		case dashboardActionOpen:
			if command.SubmissionID == 0 {
				h.reconciler.SetOpenSubmission(nil)
			} else {
				id := command.SubmissionID
				h.reconciler.SetOpenSubmission(&id)
			}
		default:
			send(dashboardFrame{Type: "error", Error: "unknown action"})
		}
	}

	h.logger.Info().Uint("user_id", userID).Msg("dashboard websocket disconnected")
}

func userIDFromLocals(conn *websocket.Conn) uint {
	if value := conn.Locals("user_id"); value != nil {
		switch v := value.(type) {
		case uint:
			return v
		case int:
			if v > 0 {
				return uint(v)
			}
		case float64:
			if v > 0 {
				return uint(v)
			}
		}
	}
	return 0
}
