// Package parse recovers a StructuredAnswer from the loosely shaped bodies
// the non-streaming chat endpoint returns. The "response" field may be the
// answer object itself, a JSON string holding it (often wrapped in a
// markdown code fence or slightly malformed), or plain prose. Malformed JSON
// is fixed with jsonrepair before giving up and treating the text as the
// answer.
//
// The generic entry point is [ParseObjectAs]; [ParseAnswer] and
// [AnswerFromText] build on it for the answer document.
package parse
