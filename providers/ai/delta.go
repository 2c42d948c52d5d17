package ai

// DeltaKind identifies what a Delta does to a StructuredAnswer.
type DeltaKind string

const (
	// DeltaNone carries nothing applicable, e.g. an empty legacy frame.
	DeltaNone DeltaKind = "none"
	// DeltaAppendToken appends Text to the answer.
	DeltaAppendToken DeltaKind = "append_token"
	// DeltaMergeMetadata shallow-merges Metadata into the document.
	DeltaMergeMetadata DeltaKind = "merge_metadata"
	// DeltaReplaceUsageStats replaces nerd_stats with Stats.
	DeltaReplaceUsageStats DeltaKind = "replace_usage_stats"
	// DeltaComplete ends the stream successfully.
	DeltaComplete DeltaKind = "complete"
	// DeltaFail ends the stream with Message.
	DeltaFail DeltaKind = "fail"
)

// Metadata is the set of non-answer fields a metadata frame may carry. It
// deliberately has no answer field: decoding a payload into it strips the
// answer, so a metadata frame never clobbers accumulated text. A nil field
// was absent (or null) on the wire and leaves the document untouched.
type Metadata struct {
	Code        *string    `json:"code"`
	Language    *string    `json:"language"`
	Explanation *string    `json:"explanation"`
	Sources     []Source   `json:"sources"`
	Facts       []string   `json:"facts"`
	Actions     []Action   `json:"actions"`
	NerdStats   []KeyValue `json:"nerd_stats"`
}

// IsEmpty reports whether no field is present.
func (metadata Metadata) IsEmpty() bool {
	return metadata.Code == nil && metadata.Language == nil && metadata.Explanation == nil &&
		metadata.Sources == nil && metadata.Facts == nil && metadata.Actions == nil && metadata.NerdStats == nil
}

// Delta is the semantic change one stream frame makes. Only the field
// matching Kind is meaningful.
type Delta struct {
	Kind     DeltaKind
	Text     string
	Metadata Metadata
	Stats    []KeyValue
	Message  string
}

// None returns a Delta that changes nothing.
func None() Delta { return Delta{Kind: DeltaNone} }

// AppendToken returns a Delta appending text to the answer.
func AppendToken(text string) Delta { return Delta{Kind: DeltaAppendToken, Text: text} }

// MergeMetadata returns a Delta merging metadata into the document.
func MergeMetadata(metadata Metadata) Delta {
	return Delta{Kind: DeltaMergeMetadata, Metadata: metadata}
}

// ReplaceUsageStats returns a Delta replacing nerd_stats wholesale.
func ReplaceUsageStats(stats []KeyValue) Delta {
	return Delta{Kind: DeltaReplaceUsageStats, Stats: stats}
}

// Complete returns the terminal success Delta.
func Complete() Delta { return Delta{Kind: DeltaComplete} }

// Fail returns the terminal failure Delta.
func Fail(message string) Delta { return Delta{Kind: DeltaFail, Message: message} }

// IsTerminal reports whether the delta ends the stream.
func (delta Delta) IsTerminal() bool {
	return delta.Kind == DeltaComplete || delta.Kind == DeltaFail
}

// Apply folds delta into document and returns the result as a new value;
// document itself is never modified, so a previously published snapshot
// stays valid. A nil document is treated as empty. Complete, Fail and None
// return an unchanged copy: terminal signals are handled by the caller.
func Apply(document *StructuredAnswer, delta Delta) *StructuredAnswer {
	next := document.Clone()
	if next == nil {
		next = &StructuredAnswer{}
	}

	switch delta.Kind {
	case DeltaAppendToken:
		next.Answer += delta.Text

	case DeltaMergeMetadata:
		metadata := delta.Metadata
		if metadata.Code != nil {
			next.Code = clonePointer(metadata.Code)
		}
		if metadata.Language != nil {
			next.Language = clonePointer(metadata.Language)
		}
		if metadata.Explanation != nil {
			next.Explanation = clonePointer(metadata.Explanation)
		}
		if metadata.Sources != nil {
			next.Sources = cloneSources(metadata.Sources)
		}
		if metadata.Facts != nil {
			next.Facts = cloneSlice(metadata.Facts)
		}
		if metadata.Actions != nil {
			next.Actions = cloneActions(metadata.Actions)
		}
		if metadata.NerdStats != nil {
			next.NerdStats = cloneSlice(metadata.NerdStats)
		}

	case DeltaReplaceUsageStats:
		stats := cloneSlice(delta.Stats)
		if stats == nil {
			stats = []KeyValue{}
		}
		next.NerdStats = stats
	}

	return next
}
