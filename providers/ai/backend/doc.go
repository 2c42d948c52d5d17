// Package backend is the HTTP client for the agent backend: one streaming
// endpoint and one request/response endpoint per provider, plus the
// multi-agent and feedback endpoints.
//
// A streaming call decodes the SSE body with utils.SSEScanner, maps every
// frame to a delta with dialect.Interpret and folds it with ai.Apply, so the
// resulting [ai.AnswerStream] yields one immutable snapshot per applied
// delta:
//
//	client := backend.New(backend.WithBaseURL("http://localhost:8000"))
//	stream, err := client.StreamAnswer(ctx, "Sonar", ai.ChatRequest{Message: "ping", Mode: ai.ModeOneLiner})
//	if err != nil { ... }
//	for snapshot, err := range stream.Iter() { ... }
package backend
