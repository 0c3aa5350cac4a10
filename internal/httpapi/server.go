package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/antoniostano/crux/internal/config"
	"github.com/antoniostano/crux/internal/game"
	"github.com/antoniostano/crux/internal/observability"
	"github.com/antoniostano/crux/internal/protocol"
	"github.com/antoniostano/crux/internal/store"
)

// Orchestrator runs one game session over one channel.
type Orchestrator interface {
	Run(ctx context.Context, sessionID string, ch game.Channel) error
}

type Server struct {
	cfg          config.Config
	store        store.Store
	orchestrator Orchestrator
	metrics      *observability.Metrics
	upgrader     websocket.Upgrader
}

func New(cfg config.Config, st store.Store, orchestrator Orchestrator, metrics *observability.Metrics) *Server {
	return &Server{
		cfg:          cfg,
		store:        st,
		orchestrator: orchestrator,
		metrics:      metrics,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				// Only same-origin browser connections unless explicitly opened
				// up; non-browser clients without an Origin header pass.
				if cfg.AllowAnyOrigin {
					return true
				}
				origin := strings.TrimSpace(r.Header.Get("Origin"))
				if origin == "" {
					return true
				}
				u, err := url.Parse(origin)
				if err != nil {
					return false
				}
				if u.Scheme != "http" && u.Scheme != "https" {
					return false
				}
				return strings.EqualFold(u.Host, r.Host)
			},
		},
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", s.handleHealth)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})

	r.Get("/v1/scenarios", s.handleListScenarios)
	r.Post("/v1/scenarios", s.handleCreateScenario)
	r.Post("/v1/game/start/{scenarioID}", s.handleStartGame)
	r.Get("/v1/game/ws", s.handleGameWS)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (s *Server) handleListScenarios(w http.ResponseWriter, r *http.Request) {
	scenarios, err := s.store.ListScenarios(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "store_error", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, scenarios)
}

type createScenarioRequest struct {
	Title             string `json:"title"`
	CharacterName     string `json:"character_name"`
	CharacterGender   string `json:"character_gender"`
	PersonalityPrompt string `json:"personality_prompt"`
	InitialDialogue   string `json:"initial_dialogue"`
}

func (s *Server) handleCreateScenario(w http.ResponseWriter, r *http.Request) {
	var req createScenarioRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if strings.TrimSpace(req.Title) == "" || strings.TrimSpace(req.PersonalityPrompt) == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "title and personality_prompt are required")
		return
	}

	sc, err := s.store.CreateScenario(r.Context(), store.Scenario{
		ID:                slugify(req.Title),
		Title:             req.Title,
		CharacterName:     req.CharacterName,
		CharacterGender:   req.CharacterGender,
		PersonalityPrompt: req.PersonalityPrompt,
		InitialDialogue:   req.InitialDialogue,
		IsCustom:          true,
	})
	if err != nil {
		respondError(w, http.StatusInternalServerError, "store_error", err.Error())
		return
	}
	respondJSON(w, http.StatusCreated, sc)
}

type startGameRequest struct {
	UserID string `json:"user_id"`
}

func (s *Server) handleStartGame(w http.ResponseWriter, r *http.Request) {
	scenarioID := chi.URLParam(r, "scenarioID")

	var req startGameRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if strings.TrimSpace(req.UserID) == "" {
		req.UserID = "anonymous"
	}

	sc, err := s.store.GetScenario(r.Context(), scenarioID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondError(w, http.StatusNotFound, "scenario_not_found", "scenario "+scenarioID+" not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "store_error", err.Error())
		return
	}

	sess, err := s.store.CreateSession(r.Context(), req.UserID, sc)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "store_error", err.Error())
		return
	}
	s.metrics.SessionEvents.WithLabelValues("created").Inc()

	respondJSON(w, http.StatusCreated, map[string]any{
		"session_id":           sess.ID,
		"scenario":             sc,
		"conversation_history": sess.History,
	})
}

func (s *Server) handleGameWS(w http.ResponseWriter, r *http.Request) {
	sessionID := strings.TrimSpace(r.URL.Query().Get("session_id"))
	if sessionID == "" {
		respondError(w, http.StatusBadRequest, "missing_session_id", "query parameter session_id is required")
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	s.metrics.SessionEvents.WithLabelValues("ws_connected").Inc()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	ch := game.NewPipeChannel(256)
	defer ch.Close()

	runDone := make(chan struct{})
	var runErr error
	go func() {
		defer close(runDone)
		runErr = s.orchestrator.Run(ctx, sessionID, ch)
	}()

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		defer cancel()
		defer ch.Close()
		for {
			select {
			case v := <-ch.Outbound():
				if !s.writeFrame(conn, v) {
					return
				}
			case <-runDone:
				// flush what the orchestrator queued before it returned,
				// then close the socket from our side
				for {
					select {
					case v := <-ch.Outbound():
						if !s.writeFrame(conn, v) {
							return
						}
					default:
						s.writeClose(conn, runErr)
						return
					}
				}
			}
		}
	}()

	conn.SetReadLimit(2 << 20)
readLoop:
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		switch msgType {
		case websocket.TextMessage:
			control, err := protocol.ParseClientControl(data)
			if err != nil {
				log.Printf("[%s] bad control frame: %v", sessionID, err)
				_ = ch.SendControl(protocol.ErrorEvent{Status: protocol.StatusError, Message: "Invalid control message."})
				continue
			}
			s.metrics.WSMessages.WithLabelValues("inbound", string(control.Action)).Inc()
			if err := ch.Push(ctx, game.Frame{Control: &control}); err != nil {
				break readLoop
			}
		case websocket.BinaryMessage:
			s.metrics.WSMessages.WithLabelValues("inbound", "audio").Inc()
			if err := ch.Push(ctx, game.Frame{Audio: data}); err != nil {
				break readLoop
			}
		}
	}

	ch.Close()
	cancel()
	<-runDone
	<-writerDone
	s.metrics.SessionEvents.WithLabelValues("ws_disconnected").Inc()
}

// writeFrame sends one outbound value: []byte as a binary frame,
// anything else as JSON. Reports whether the write succeeded.
func (s *Server) writeFrame(conn *websocket.Conn, v any) bool {
	_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	if audio, ok := v.([]byte); ok {
		if err := conn.WriteMessage(websocket.BinaryMessage, audio); err != nil {
			return false
		}
		s.metrics.WSMessages.WithLabelValues("outbound", "audio").Inc()
		return true
	}
	if err := conn.WriteJSON(v); err != nil {
		return false
	}
	if status, ok := protocol.StatusOf(v); ok {
		s.metrics.WSMessages.WithLabelValues("outbound", string(status)).Inc()
	}
	return true
}

func (s *Server) writeClose(conn *websocket.Conn, runErr error) {
	code := websocket.CloseNormalClosure
	reason := ""
	if errors.Is(runErr, game.ErrSessionLoad) {
		code = websocket.ClosePolicyViolation
		reason = "Invalid session"
	}
	_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason))
}

var errEmptyBody = errors.New("empty body")

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return errEmptyBody
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		return err
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return errEmptyBody
	}
	return json.Unmarshal(body, out)
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, map[string]string{"error": code, "message": message})
}

var (
	slugNonWord  = regexp.MustCompile(`[^\w\s-]`)
	slugSpacing  = regexp.MustCompile(`[-\s]+`)
	slugCustomRe = regexp.MustCompile(`\s*\(custom\)\s*`)
)

// slugify derives a stable scenario identifier from a title.
func slugify(title string) string {
	id := strings.ToLower(strings.TrimSpace(title))
	id = slugCustomRe.ReplaceAllString(id, "")
	id = slugNonWord.ReplaceAllString(id, "")
	id = slugSpacing.ReplaceAllString(id, "_")
	return strings.Trim(id, "_")
}
