package game

import (
	"context"
	"io"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/antoniostano/crux/internal/protocol"
)

const audioChunkSize = 4096

// speak delivers one plain AI line: ai_speaking, the audio stream in
// chunks, then ai_finished_speaking.
func (r *sessionRun) speak(ctx context.Context, text string) error {
	if err := r.ch.SendControl(protocol.StatusEvent{Status: protocol.StatusAISpeaking}); err != nil {
		return err
	}

	start := time.Now()
	stream, err := r.o.tts.Synthesize(ctx, stripEmphasis(text), r.gender())
	if err != nil {
		log.Printf("[%s] synthesis failed: %v", r.id, err)
		r.o.metrics.ProviderErrors.WithLabelValues("tts", "synthesize").Inc()
		return r.ch.SendControl(protocol.ErrorEvent{Status: protocol.StatusError, Message: "Error generating AI audio."})
	}
	defer stream.Close()

	first := true
	buf := make([]byte, audioChunkSize)
	for {
		n, readErr := stream.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			if err := r.ch.SendBinary(chunk); err != nil {
				return err
			}
			if first {
				first = false
				r.o.metrics.ObserveFirstAudioLatency(time.Since(start))
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			log.Printf("[%s] synthesis stream failed: %v", r.id, readErr)
			r.o.metrics.ProviderErrors.WithLabelValues("tts", "stream").Inc()
			return r.ch.SendControl(protocol.ErrorEvent{Status: protocol.StatusError, Message: "Error generating AI audio."})
		}
	}

	return r.ch.SendControl(protocol.StatusEvent{Status: protocol.StatusAIFinishedSpeaking})
}

// escalate delivers a burst turn: announce the streak, synthesize every
// segment concurrently, then emit text plus one audio blob per segment
// strictly in original order.
func (r *sessionRun) escalate(ctx context.Context, segments []string) error {
	total := len(segments)
	r.o.metrics.EscalationSegments.Observe(float64(total))

	if err := r.ch.SendControl(protocol.SpamStreak{Status: protocol.StatusAngrySpamStreak, MessageCount: total}); err != nil {
		return err
	}

	blobs := make([][]byte, total)
	g, gctx := errgroup.WithContext(ctx)
	for i, segment := range segments {
		g.Go(func() error {
			stream, err := r.o.tts.Synthesize(gctx, stripEmphasis(segment), r.gender())
			if err != nil {
				return err
			}
			defer stream.Close()
			blob, err := io.ReadAll(stream)
			if err != nil {
				return err
			}
			blobs[i] = blob
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.Printf("[%s] escalation synthesis failed: %v", r.id, err)
		r.o.metrics.ProviderErrors.WithLabelValues("tts", "synthesize").Inc()
		if err := r.ch.SendControl(protocol.ErrorEvent{Status: protocol.StatusError, Message: "Error generating AI audio."}); err != nil {
			return err
		}
		return r.ch.SendControl(protocol.StatusEvent{Status: protocol.StatusSpamStreakComplete})
	}

	for i, segment := range segments {
		msg := protocol.SpamMessage{
			Status: protocol.StatusSpamMessage,
			Index:  i,
			Total:  total,
			Text:   segment,
		}
		if err := r.ch.SendControl(msg); err != nil {
			return err
		}
		if err := r.ch.SendBinary(blobs[i]); err != nil {
			return err
		}
	}

	return r.ch.SendControl(protocol.StatusEvent{Status: protocol.StatusSpamStreakComplete})
}
