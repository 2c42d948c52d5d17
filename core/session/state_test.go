package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leofalp/agentspace/providers/ai"
)

func TestSetMode_SelectionGuard(t *testing.T) {
	tests := []struct {
		name     string
		selected []string
		expected []string
	}{
		{"none selected", nil, []string{}},
		{"one selected", []string{"Gemini"}, []string{"Gemini"}},
		{"two selected", []string{"Sonar", "Gemini"}, []string{}},
		{"all selected", []string{"Sonar", "Gemini", "R1", "Qwen"}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session := New(newScriptedStreamer())
			require.NoError(t, session.SetSelectedModels(tt.selected))

			require.NoError(t, session.SetMode(ai.ModeConversation))

			assert.Equal(t, tt.expected, session.SelectedModels())
			assert.Equal(t, ai.ModeConversation, session.Mode())
		})
	}
}

func TestSetMode_Invalid(t *testing.T) {
	session := New(newScriptedStreamer())
	assert.ErrorIs(t, session.SetMode("chatty"), ErrInvalidMode)
	assert.Equal(t, ai.ModeOneLiner, session.Mode())
}

func TestSetMode_SameModeIsNoOp(t *testing.T) {
	session := New(newScriptedStreamer())
	version := session.Snapshot().Version

	require.NoError(t, session.SetMode(ai.ModeOneLiner))
	assert.Equal(t, version, session.Snapshot().Version)
}

func TestSetSelectedModels(t *testing.T) {
	session := New(newScriptedStreamer())

	require.NoError(t, session.SetSelectedModels([]string{"Gemini", "R1", "Gemini"}))
	assert.Equal(t, []string{"Gemini", "R1"}, session.SelectedModels())

	err := session.SetSelectedModels([]string{"Gemini", "Claude"})
	require.ErrorIs(t, err, ErrUnknownProvider)
	assert.Equal(t, []string{"Gemini", "R1"}, session.SelectedModels(), "failed call leaves selection")
}

func TestSetSelectedModels_ConversationTakesOne(t *testing.T) {
	session := New(newScriptedStreamer())
	require.NoError(t, session.SetMode(ai.ModeConversation))

	assert.ErrorIs(t, session.SetSelectedModels([]string{"Sonar", "Gemini"}), ErrTooManyProviders)
	require.NoError(t, session.SetSelectedModels([]string{"Qwen"}))
	assert.Equal(t, []string{"Qwen"}, session.SelectedModels())
}

func TestSetSelectedModels_ConversationChangeClearsHistory(t *testing.T) {
	streamer := newScriptedStreamer("Sonar")
	session := New(streamer)
	require.NoError(t, session.SetMode(ai.ModeConversation))

	done := submitAsync(session, "hi")
	streamer.send("Sonar", &ai.StructuredAnswer{Answer: "hello"})
	streamer.finish("Sonar")
	waitDone(t, done)
	require.Len(t, session.Snapshot().History, 2)

	require.NoError(t, session.SetSelectedModels([]string{"Sonar"}))
	assert.Len(t, session.Snapshot().History, 2, "unchanged selection keeps history")

	require.NoError(t, session.SetSelectedModels([]string{"Gemini"}))
	assert.Empty(t, session.Snapshot().History)
}

func TestSnapshot_IsDeepCopy(t *testing.T) {
	streamer := newScriptedStreamer("Sonar")
	session := New(streamer)

	done := submitAsync(session, "hi")
	streamer.send("Sonar", &ai.StructuredAnswer{Answer: "original", Facts: []string{"f"}})
	streamer.finish("Sonar")
	waitDone(t, done)

	snapshot := session.Snapshot()
	state, _ := snapshot.Response("Sonar")
	state.Document.Answer = "mutated"
	state.Document.Facts[0] = "mutated"
	snapshot.SelectedProviders[0] = "mutated"

	fresh, _ := session.Snapshot().Response("Sonar")
	assert.Equal(t, "original", fresh.Document.Answer)
	assert.Equal(t, []string{"f"}, fresh.Document.Facts)
	assert.Equal(t, []string{"Sonar"}, session.SelectedModels())
}

func TestSubscribe_LatestWins(t *testing.T) {
	session := New(newScriptedStreamer())
	updates, unsubscribe := session.Subscribe()
	defer unsubscribe()

	initial := <-updates
	assert.Equal(t, "", initial.Input)

	// nobody reads while these are published
	session.SetInput("a")
	session.SetInput("ab")
	session.SetInput("abc")

	select {
	case latest := <-updates:
		assert.Equal(t, "abc", latest.Input)
		assert.Equal(t, initial.Version+3, latest.Version)
	case <-time.After(waitFor):
		t.Fatal("no snapshot delivered")
	}

	select {
	case extra := <-updates:
		t.Fatalf("unexpected extra snapshot %+v", extra)
	default:
	}
}

func TestSubscribe_UnsubscribeClosesChannel(t *testing.T) {
	session := New(newScriptedStreamer())
	updates, unsubscribe := session.Subscribe()
	<-updates

	unsubscribe()
	unsubscribe()

	_, open := <-updates
	assert.False(t, open)

	// publishing after unsubscribe must not panic
	session.SetInput("x")
}

func TestSubscribe_SeesSettlementWithFoldedHistory(t *testing.T) {
	streamer := newScriptedStreamer("Sonar")
	session := New(streamer)
	require.NoError(t, session.SetMode(ai.ModeConversation))

	updates, unsubscribe := session.Subscribe()
	defer unsubscribe()

	done := submitAsync(session, "hi")
	streamer.send("Sonar", &ai.StructuredAnswer{Answer: "hello"})
	streamer.finish("Sonar")
	waitDone(t, done)

	var last Snapshot
	for {
		select {
		case snapshot := <-updates:
			last = snapshot
			continue
		default:
		}
		break
	}
	assert.False(t, last.IsStreaming)
	assert.Len(t, last.History, 2, "settled snapshot already carries the folded history")
}

func TestViewMode_ChatOnceAnythingHappened(t *testing.T) {
	streamer := newScriptedStreamer("Sonar")
	session := New(streamer)
	assert.Equal(t, ViewCenter, session.Snapshot().ViewMode)

	done := submitAsync(session, "hi")
	streamer.finish("Sonar")
	waitDone(t, done)

	snapshot := session.Snapshot()
	assert.Empty(t, snapshot.History, "one-liner history is cleared")
	assert.Equal(t, ViewChat, snapshot.ViewMode, "settled responses keep the chat view")
}
