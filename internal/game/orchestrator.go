package game

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/antoniostano/crux/internal/dialogue"
	"github.com/antoniostano/crux/internal/observability"
	"github.com/antoniostano/crux/internal/protocol"
	"github.com/antoniostano/crux/internal/reliability"
	"github.com/antoniostano/crux/internal/store"
	"github.com/antoniostano/crux/internal/voice"
)

// ErrSessionLoad wraps failures to resolve a session or its scenario
// before the game can go active. The transport layer closes the
// connection with a policy violation when it sees this.
var ErrSessionLoad = errors.New("session load failed")

const evaluationFallback = "The session could not be scored."

// Orchestrator runs game sessions. One Run call owns one connection for
// its whole lifetime; the orchestrator itself is stateless and shared.
type Orchestrator struct {
	store   store.Store
	engine  *dialogue.Engine
	stt     voice.SpeechToText
	tts     voice.TextToSpeech
	metrics *observability.Metrics

	loadAttempts int
	loadDelay    time.Duration
}

func NewOrchestrator(
	st store.Store,
	engine *dialogue.Engine,
	stt voice.SpeechToText,
	tts voice.TextToSpeech,
	metrics *observability.Metrics,
	loadAttempts int,
	loadDelay time.Duration,
) *Orchestrator {
	if loadAttempts < 1 {
		loadAttempts = 1
	}
	return &Orchestrator{
		store:        st,
		engine:       engine,
		stt:          stt,
		tts:          tts,
		metrics:      metrics,
		loadAttempts: loadAttempts,
		loadDelay:    loadDelay,
	}
}

// sessionRun is the per-connection state of one live game.
type sessionRun struct {
	o  *Orchestrator
	ch Channel
	id string

	session     *store.Session
	scenario    *store.Scenario
	state       State
	transcriber *transcription
}

// Run drives one session until the game finishes or the client goes
// away. A nil return on the normal path means the game_over frame was
// the last thing sent.
func (o *Orchestrator) Run(ctx context.Context, sessionID string, ch Channel) error {
	r := &sessionRun{o: o, ch: ch, id: sessionID, state: StateLoading}

	if err := r.load(ctx); err != nil {
		o.metrics.SessionEvents.WithLabelValues("load_failed").Inc()
		return fmt.Errorf("%w: %v", ErrSessionLoad, err)
	}

	r.advance(StateActive)
	o.metrics.ActiveSessions.Inc()
	o.metrics.SessionEvents.WithLabelValues("started").Inc()
	defer func() {
		o.metrics.ActiveSessions.Dec()
		r.cleanup(ctx)
	}()

	if len(r.session.History) > 0 {
		if err := r.speak(ctx, r.session.History[0].Message); err != nil {
			return r.finishTransport(err)
		}
	}

	for r.state == StateActive {
		frame, err := r.ch.Receive(ctx)
		if err != nil {
			return r.finishTransport(err)
		}

		switch {
		case frame.Control != nil:
			if err := r.handleControl(ctx, frame.Control.Action); err != nil {
				return r.finishTransport(err)
			}
		case len(frame.Audio) > 0:
			if err := r.transcriber.feed(ctx, frame.Audio); err != nil {
				log.Printf("[%s] audio forward failed: %v", r.id, err)
				o.metrics.ProviderErrors.WithLabelValues("stt", "send").Inc()
			}
		}
	}

	o.metrics.SessionEvents.WithLabelValues("finished").Inc()
	return nil
}

// load resolves the session and scenario with a bounded fixed-delay
// retry. This is the only retried operation in the whole session.
func (r *sessionRun) load(ctx context.Context) error {
	return reliability.Do(ctx, r.o.loadAttempts, r.o.loadDelay, func(ctx context.Context) error {
		session, err := r.o.store.GetSession(ctx, r.id)
		if err != nil {
			return fmt.Errorf("session %s: %w", r.id, err)
		}
		scenario, err := r.o.store.GetScenario(ctx, session.ScenarioID)
		if err != nil {
			return fmt.Errorf("scenario %s: %w", session.ScenarioID, err)
		}
		r.session = session
		r.scenario = scenario
		return nil
	})
}

func (r *sessionRun) handleControl(ctx context.Context, action protocol.Action) error {
	switch action {
	case protocol.ActionStartSpeaking:
		return r.startSpeaking(ctx)
	case protocol.ActionStopSpeaking:
		return r.stopSpeaking(ctx)
	case protocol.ActionEndGame:
		return r.endGame(ctx)
	}
	return nil
}

// startSpeaking arms a fresh transcriber. An already-armed one is closed
// first and its partial transcript discarded.
func (r *sessionRun) startSpeaking(ctx context.Context) error {
	if r.transcriber != nil {
		if _, err := r.transcriber.stop(ctx); err != nil {
			log.Printf("[%s] discarding stale transcriber: %v", r.id, err)
		}
		r.transcriber = nil
	}
	t, err := newTranscription(ctx, r.o.stt)
	if err != nil {
		// swallowed: audio arriving before the next start_speaking is dropped
		log.Printf("[%s] transcription start failed: %v", r.id, err)
		r.o.metrics.ProviderErrors.WithLabelValues("stt", "start").Inc()
		return nil
	}
	r.transcriber = t
	return nil
}

func (r *sessionRun) stopSpeaking(ctx context.Context) error {
	t := r.transcriber
	r.transcriber = nil

	transcript, err := t.stop(ctx)
	if err != nil {
		log.Printf("[%s] transcription stop failed: %v", r.id, err)
		r.o.metrics.ProviderErrors.WithLabelValues("stt", "stop").Inc()
	}
	if transcript == "" {
		return r.ch.SendControl(protocol.StatusEvent{Status: protocol.StatusAIFinishedSpeaking})
	}
	return r.processTranscript(ctx, transcript)
}

// processTranscript runs one full user turn: record the utterance, ask
// the dialogue engine for the character's reply, then deliver it either
// plain or as an escalation burst.
func (r *sessionRun) processTranscript(ctx context.Context, transcript string) error {
	log.Printf("[%s] user said: %q", r.id, transcript)

	if err := r.ch.SendControl(protocol.TextEvent{Status: protocol.StatusUserResponseText, Text: transcript}); err != nil {
		return err
	}
	r.appendHistory(store.RoleUser, transcript)

	if err := r.ch.SendControl(protocol.StatusEvent{Status: protocol.StatusAIThinking}); err != nil {
		return err
	}

	reply, err := r.o.engine.NextTurn(ctx, r.session.History, r.scenario)
	if err != nil {
		log.Printf("[%s] generation failed: %v", r.id, err)
		r.o.metrics.ProviderErrors.WithLabelValues("dialogue", "generate").Inc()
		return r.ch.SendControl(protocol.ErrorEvent{Status: protocol.StatusError, Message: "Error processing AI response."})
	}
	r.appendHistory(store.RoleAI, reply)

	// the raw reply, delimiters included, is what the client displays;
	// synthesis works from the stripped per-segment text
	if err := r.ch.SendControl(protocol.TextEvent{Status: protocol.StatusAIResponseText, Text: reply}); err != nil {
		return err
	}

	if isEscalation(reply) {
		segments := splitEscalation(reply)
		if len(segments) == 0 {
			return r.ch.SendControl(protocol.StatusEvent{Status: protocol.StatusAIFinishedSpeaking})
		}
		return r.escalate(ctx, segments)
	}
	return r.speak(ctx, reply)
}

// endGame evaluates the conversation and always terminates with exactly
// one game_over frame, falling back to a zero score when scoring or
// persistence fails.
func (r *sessionRun) endGame(ctx context.Context) error {
	r.advance(StateEvaluating)
	if err := r.ch.SendControl(protocol.StatusEvent{Status: protocol.StatusEvaluating}); err != nil {
		return err
	}

	result, err := r.o.engine.Evaluate(ctx, r.session.History, r.scenario)
	if err != nil {
		log.Printf("[%s] evaluation failed: %v", r.id, err)
		r.o.metrics.ProviderErrors.WithLabelValues("dialogue", "evaluate").Inc()
		if sendErr := r.ch.SendControl(protocol.ErrorEvent{Status: protocol.StatusError, Message: "Error finalizing game."}); sendErr != nil {
			r.advance(StateFinished)
			return sendErr
		}
		result = dialogue.Evaluation{Score: 0, Justification: evaluationFallback}
	}

	if err := r.o.store.FinishSession(ctx, r.id, result.Score, result.Justification); err != nil {
		log.Printf("[%s] persist final score failed: %v", r.id, err)
		r.o.metrics.ProviderErrors.WithLabelValues("store", "finish").Inc()
	}

	over := protocol.GameOver{
		Status:        protocol.StatusGameOver,
		Score:         result.Score,
		Justification: result.Justification,
	}
	if err := r.ch.SendControl(over); err != nil {
		r.advance(StateFinished)
		return err
	}
	r.advance(StateFinished)
	return nil
}

func (r *sessionRun) appendHistory(role store.Role, message string) {
	r.session.History = append(r.session.History, store.ConversationEntry{
		Role:      role,
		Message:   message,
		Timestamp: time.Now().UTC(),
	})
}

func (r *sessionRun) gender() voice.Gender {
	if strings.EqualFold(r.scenario.CharacterGender, string(voice.GenderMale)) {
		return voice.GenderMale
	}
	return voice.GenderFemale
}

func (r *sessionRun) advance(to State) {
	next, err := Transition(r.state, to)
	if err != nil {
		log.Printf("[%s] %v", r.id, err)
		return
	}
	r.state = next
}

// finishTransport normalizes loop-ending transport errors. A client
// disconnect is a normal way for a session to end.
func (r *sessionRun) finishTransport(err error) error {
	r.advance(StateDisconnected)
	r.o.metrics.SessionEvents.WithLabelValues("disconnected").Inc()
	if errors.Is(err, ErrDisconnected) {
		log.Printf("[%s] client disconnected", r.id)
		return nil
	}
	return err
}

// cleanup releases the live transcriber if the loop ended mid-utterance.
func (r *sessionRun) cleanup(ctx context.Context) {
	if r.transcriber == nil {
		return
	}
	if _, err := r.transcriber.stop(ctx); err != nil {
		log.Printf("[%s] transcriber cleanup: %v", r.id, err)
	}
	r.transcriber = nil
}
