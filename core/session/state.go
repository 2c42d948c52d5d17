package session

import (
	"github.com/leofalp/agentspace/providers/ai"
	"github.com/leofalp/agentspace/providers/memory"
)

// Phase is where one provider's stream is within a turn.
type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhaseLoading   Phase = "loading"   // request sent, nothing received yet
	PhaseStreaming Phase = "streaming" // at least one delta applied
	PhaseCompleted Phase = "completed"
	PhaseErrored   Phase = "errored"
)

// IsTerminal reports whether no further transition can leave the phase.
func (phase Phase) IsTerminal() bool {
	return phase == PhaseCompleted || phase == PhaseErrored
}

// ProviderState is one provider's part of a turn.
type ProviderState struct {
	Provider     string               `json:"provider"`
	Phase        Phase                `json:"phase"`
	Document     *ai.StructuredAnswer `json:"response"`
	ErrorMessage string               `json:"error_message,omitempty"`
}

func (state ProviderState) clone() ProviderState {
	state.Document = state.Document.Clone()
	return state
}

// ViewMode is the layout a UI should use: the centered landing view before
// anything happened, the chat view afterwards.
type ViewMode string

const (
	ViewCenter ViewMode = "center"
	ViewChat   ViewMode = "chat"
)

// Snapshot is an immutable copy of the session state.
type Snapshot struct {
	// Version increases by one with every published change.
	Version           uint64                `json:"version"`
	TurnID            string                `json:"turn_id,omitempty"`
	Input             string                `json:"input"`
	Mode              ai.Mode               `json:"mode"`
	SelectedProviders []string              `json:"selected_providers"`
	Responses         []ProviderState       `json:"responses"`
	Loading           []string              `json:"loading"`
	LastQuestion      string                `json:"last_question"`
	IsStreaming       bool                  `json:"is_streaming"`
	HasStartedChat    bool                  `json:"has_started_chat"`
	History           []memory.Message      `json:"history"`
	ToShow            []memory.DisplayEntry `json:"to_show"`
	ViewMode          ViewMode              `json:"view_mode"`
}

// Response returns the state of provider in the current turn.
func (snapshot Snapshot) Response(provider string) (ProviderState, bool) {
	for _, state := range snapshot.Responses {
		if state.Provider == provider {
			return state, true
		}
	}
	return ProviderState{}, false
}

func viewModeFor(responses []ProviderState, history []memory.Message, loading []string) ViewMode {
	if len(history) > 0 || len(loading) > 0 {
		return ViewChat
	}
	for _, state := range responses {
		if state.Document != nil {
			return ViewChat
		}
	}
	return ViewCenter
}
