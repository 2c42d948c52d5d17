package observability

// --- HTTP Attributes ---

const (
	AttrHTTPMethod           = "http.method"
	AttrHTTPStatusCode       = "http.status_code"
	AttrHTTPURL              = "http.url"
	AttrHTTPRequestBodySize  = "http.request.body.size"
	AttrHTTPResponseBodySize = "http.response.body.size"
	AttrHTTPDuration         = "http.request.duration"
)

// --- Stream Attributes ---

const (
	// AttrProvider is the provider name as shown to the user (e.g. "Sonar")
	AttrProvider = "agentspace.provider"

	// AttrProviders is the list of providers selected for a turn
	AttrProviders = "agentspace.providers"

	// AttrTurnID identifies the turn a stream belongs to
	AttrTurnID = "agentspace.turn.id"

	// AttrMode is the chat mode ("one-liner" or "conversation")
	AttrMode = "agentspace.mode"

	// AttrPhase is a provider stream phase
	AttrPhase = "agentspace.phase"

	// AttrEvent is the SSE event name of a frame
	AttrEvent = "sse.event"

	// AttrFramesSkipped is the number of malformed frames dropped by the decoder
	AttrFramesSkipped = "sse.frames.skipped"

	// AttrAnswerLength is the byte length of an accumulated answer
	AttrAnswerLength = "agentspace.answer.length"

	// AttrHistoryLength is the number of messages sent as history
	AttrHistoryLength = "agentspace.history.length"
)

// --- Memory Attributes ---

const (
	AttrMemoryMessageRole   = "memory.message.role"
	AttrMemoryMessageLength = "memory.message.length"
	AttrMemoryTotalMessages = "memory.total_messages"
)

// --- General Attributes ---

const (
	AttrError             = "error"
	AttrDuration          = "duration"
	AttrStatus            = "status"
	AttrStatusDescription = "status_description"
)

// --- Span Names ---

const (
	SpanTurn           = "agentspace.turn"
	SpanProviderStream = "agentspace.provider.stream"
	SpanChatRequest    = "agentspace.chat.request"
)

// --- Event Names ---

const (
	EventStreamOpened    = "stream.opened"
	EventStreamFirstByte = "stream.first_delta"
	EventStreamSettled   = "stream.settled"
	EventTurnSettled     = "turn.settled"
	EventTurnSuperseded  = "turn.superseded"
	EventMemoryAppend    = "memory.append"
	EventMemoryClear     = "memory.clear"
)

// --- Metric Names ---

const (
	MetricTurns            = "agentspace.turns"
	MetricProviderFailures = "agentspace.provider.failures"
	MetricFramesSkipped    = "agentspace.frames.skipped"
	MetricProviderDuration = "agentspace.provider.duration_ms"
)
