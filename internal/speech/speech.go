// Package speech voices bot replies. The widget performs the actual audio
// synthesis; this package prepares utterances and serializes them so a new
// reply always silences the one still playing.
package speech

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
	"sync"
)

// Synthesizer turns a prepared utterance into audio on the client side.
// Implementations push the utterance to the widget transport.
type Synthesizer interface {
	// Synthesize voices the utterance. Cancel the context to stop playback.
	Synthesize(ctx context.Context, utterance string) error
}

var (
	markdownEmphasis = regexp.MustCompile(`[*_~` + "`" + `#>]+`)
	markdownLink     = regexp.MustCompile(`\[([^\]]*)\]\([^)]*\)`)
	whitespaceRun    = regexp.MustCompile(`\s+`)
)

// StripMarkup removes markdown decoration so the synthesizer does not read
// asterisks and link targets aloud.
func StripMarkup(text string) string {
	text = markdownLink.ReplaceAllString(text, "$1")
	text = markdownEmphasis.ReplaceAllString(text, "")
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(text, " "))
}

// Speaker serializes utterances: speaking a new reply cancels the previous
// one before the next starts.
type Speaker struct {
	mu     sync.Mutex
	synth  Synthesizer
	cancel context.CancelFunc
	log    *slog.Logger
}

// NewSpeaker wraps a synthesizer. A nil synthesizer yields a silent speaker.
func NewSpeaker(synth Synthesizer, log *slog.Logger) *Speaker {
	if log == nil {
		log = slog.Default()
	}

	return &Speaker{synth: synth, log: log}
}

// Speak voices text after stripping markup. The previous utterance, if still
// playing, is cancelled first.
func (s *Speaker) Speak(ctx context.Context, text string) {
	if s == nil || s.synth == nil {
		return
	}

	utterance := StripMarkup(text)
	if utterance == "" {
		return
	}

	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	speakCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	s.mu.Unlock()

	go func() {
		defer cancel()
		if err := s.synth.Synthesize(speakCtx, utterance); err != nil && speakCtx.Err() == nil {
			s.log.Warn("speech synthesis failed", slog.Any("error", err))
		}
	}()
}

// Stop cancels the current utterance, if any.
func (s *Speaker) Stop() {
	if s == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}
