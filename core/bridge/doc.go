// Package bridge exposes a Session over HTTP and a websocket so that an
// external UI can drive it.
//
// Routes:
//
//	GET  /api/providers   provider names
//	GET  /api/state       current snapshot
//	POST /api/turns       {"text": "..."}, or {} to submit the pending input; runs in the background (202)
//	PUT  /api/selection   {"providers": ["Sonar"]}
//	PUT  /api/mode        {"mode": "conversation"}
//	PUT  /api/input       {"text": "..."}
//	GET  /ws              snapshot push and client commands
//
// Every snapshot published by the session is pushed to websocket clients as
// {"type":"snapshot","state":{...}}. Clients send commands of the form
// {"type":"submit"|"select"|"mode"|"input", ...} carrying the same fields as
// the HTTP bodies.
package bridge
