// Package render prints structured answers and session snapshots as
// terminal text.
//
// Text fields sometimes arrive as HTML fragments; those are converted to
// markdown before printing. Colours follow github.com/fatih/color, which
// disables itself when stdout is not a terminal or NO_COLOR is set.
package render

import (
	"fmt"
	"io"
	"regexp"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/fatih/color"

	"github.com/leofalp/agentspace/core/session"
	"github.com/leofalp/agentspace/providers/ai"
)

var htmlTag = regexp.MustCompile(`</?[a-zA-Z][a-zA-Z0-9]*(\s[^<>]*)?/?>`)

// Markdown converts text containing HTML tags to markdown. Text without
// tags, or that fails to convert, is returned trimmed but otherwise as is.
func Markdown(text string) string {
	trimmed := strings.TrimSpace(text)
	if !htmlTag.MatchString(trimmed) {
		return trimmed
	}
	markdown, err := htmltomarkdown.ConvertString(trimmed)
	if err != nil {
		return trimmed
	}
	return strings.TrimSpace(markdown)
}

// Option is a functional option for configuring a Renderer.
type Option func(*Renderer)

// WithColor forces colours on or off regardless of the terminal.
func WithColor(enabled bool) Option {
	return func(renderer *Renderer) {
		for _, style := range renderer.styles() {
			if enabled {
				style.EnableColor()
			} else {
				style.DisableColor()
			}
		}
	}
}

// Renderer writes answers and snapshots.
type Renderer struct {
	header  *color.Color
	section *color.Color
	success *color.Color
	failure *color.Color
	muted   *color.Color
}

// New creates a Renderer. Colour follows fatih/color's terminal detection
// unless WithColor overrides it.
func New(opts ...Option) *Renderer {
	renderer := &Renderer{
		header:  color.New(color.FgCyan, color.Bold),
		section: color.New(color.Bold),
		success: color.New(color.FgGreen),
		failure: color.New(color.FgRed),
		muted:   color.New(color.Faint),
	}
	for _, opt := range opts {
		opt(renderer)
	}
	return renderer
}

func (renderer *Renderer) styles() []*color.Color {
	return []*color.Color{renderer.header, renderer.section, renderer.success, renderer.failure, renderer.muted}
}

// Answer writes one provider's answer with all its sections. Empty
// sections are left out.
func (renderer *Renderer) Answer(w io.Writer, provider string, answer *ai.StructuredAnswer) error {
	var builder strings.Builder

	if provider != "" {
		builder.WriteString(renderer.header.Sprintf("── %s ──", provider))
		builder.WriteString("\n")
	}
	if answer == nil {
		builder.WriteString(renderer.muted.Sprint("No response"))
		builder.WriteString("\n")
		_, err := io.WriteString(w, builder.String())
		return err
	}

	if text := Markdown(answer.Answer); text != "" {
		builder.WriteString(text)
		builder.WriteString("\n")
	}

	if answer.Code != nil && strings.TrimSpace(*answer.Code) != "" {
		language := ""
		if answer.Language != nil {
			language = *answer.Language
		}
		fmt.Fprintf(&builder, "\n```%s\n%s\n```\n", language, strings.TrimRight(*answer.Code, "\n"))
	}

	if answer.Explanation != nil {
		if text := Markdown(*answer.Explanation); text != "" {
			renderer.writeSection(&builder, "Explanation")
			builder.WriteString(text)
			builder.WriteString("\n")
		}
	}

	if len(answer.Sources) > 0 {
		renderer.writeSection(&builder, "Sources")
		for i, source := range answer.Sources {
			title := ""
			if source.Title != nil {
				title = strings.TrimSpace(*source.Title)
			}
			if title == "" || title == source.URL {
				fmt.Fprintf(&builder, "  [%d] %s\n", i+1, source.URL)
				continue
			}
			fmt.Fprintf(&builder, "  [%d] %s - %s\n", i+1, title, source.URL)
		}
	}

	if len(answer.Facts) > 0 {
		renderer.writeSection(&builder, "Facts")
		for _, fact := range answer.Facts {
			fmt.Fprintf(&builder, "  • %s\n", Markdown(fact))
		}
	}

	if len(answer.Actions) > 0 {
		renderer.writeSection(&builder, "Actions")
		for _, action := range answer.Actions {
			fmt.Fprintf(&builder, "  %s(%s)", action.Tool, strings.Join(action.Parameters, ", "))
			if action.Result != nil {
				fmt.Fprintf(&builder, " → %s", *action.Result)
			}
			builder.WriteString("\n")
		}
	}

	if len(answer.NerdStats) > 0 {
		renderer.writeSection(&builder, "Nerd stats")
		for _, stat := range answer.NerdStats {
			builder.WriteString(renderer.muted.Sprintf("  %s: %s", stat.Key, stat.Value))
			builder.WriteString("\n")
		}
	}

	_, err := io.WriteString(w, builder.String())
	return err
}

func (renderer *Renderer) writeSection(builder *strings.Builder, title string) {
	builder.WriteString("\n")
	builder.WriteString(renderer.section.Sprint(title))
	builder.WriteString("\n")
}

// Progress returns a one-line summary of every provider in the turn, e.g.
// "Sonar ✓ | Gemini streaming (12 chars) | R1 ✗".
func (renderer *Renderer) Progress(snapshot session.Snapshot) string {
	parts := make([]string, 0, len(snapshot.Responses))
	for _, state := range snapshot.Responses {
		parts = append(parts, renderer.phase(state))
	}
	return strings.Join(parts, " | ")
}

func (renderer *Renderer) phase(state session.ProviderState) string {
	switch state.Phase {
	case session.PhaseCompleted:
		return state.Provider + " " + renderer.success.Sprint("✓")
	case session.PhaseErrored:
		return state.Provider + " " + renderer.failure.Sprint("✗")
	case session.PhaseStreaming:
		length := 0
		if state.Document != nil {
			length = len([]rune(state.Document.Answer))
		}
		return fmt.Sprintf("%s %s", state.Provider, renderer.muted.Sprintf("streaming (%d chars)", length))
	default:
		return state.Provider + " " + renderer.muted.Sprint("…")
	}
}

// Snapshot writes every settled response of the current turn in selection
// order. Errored providers show their failure document.
func (renderer *Renderer) Snapshot(w io.Writer, snapshot session.Snapshot) error {
	for i, state := range snapshot.Responses {
		if i > 0 {
			if _, err := io.WriteString(w, "\n"); err != nil {
				return err
			}
		}
		if state.Phase == session.PhaseErrored {
			if _, err := io.WriteString(w, renderer.failure.Sprintf("── %s failed ──\n", state.Provider)); err != nil {
				return err
			}
			if err := renderer.Answer(w, "", state.Document); err != nil {
				return err
			}
			continue
		}
		if err := renderer.Answer(w, state.Provider, state.Document); err != nil {
			return err
		}
	}
	return nil
}
