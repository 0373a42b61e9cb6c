/*
Package server implements the IPC surface of the entity lookup service.

Clients write requests to stdin and read responses from stdout, either as JSON
lines or as a stream of msgpack messages. Every request carries a command and
an optional id that is echoed back; the server assigns one when it is missing.

A lookup request:

	{"id": "r1", "command": "lookup", "name": "Obama", "limit": 10, "kg": "wikidata", "fuzzy": false, "types": ["Q5"], "ids": ["Q76"]}

is answered with the candidates keyed by the normalized mention:

	{"id": "r1", "results": {"obama": [{"id": "Q76", "name": "Barack Obama", ...}]}, "count": 1, "time_ms": 12}

"batch" takes "names" instead of "name" and returns one entry per distinct mention.
"health" answers {"status": "ok"} and "info" describes the service and its knowledge graphs.

Invalid parameters produce an error with status 400, pipeline failures status 500:

	{"id": "r2", "error": "limit 5000 exceeds maximum of 1000", "status": 400}
*/
package server

import "github.com/bastiangx/linkserve/pkg/lookup"

// Commands understood by the server.
const (
	CommandLookup = "lookup"
	CommandBatch  = "batch"
	CommandHealth = "health"
	CommandInfo   = "info"
)

// Request is any client message. Only the fields of its command are read.
type Request struct {
	ID      string   `json:"id,omitempty" msgpack:"id,omitempty"`
	Command string   `json:"command" msgpack:"command"`
	Name    string   `json:"name,omitempty" msgpack:"name,omitempty"`
	Names   []string `json:"names,omitempty" msgpack:"names,omitempty"`
	Limit   int      `json:"limit,omitempty" msgpack:"limit,omitempty"`
	KG      string   `json:"kg,omitempty" msgpack:"kg,omitempty"`
	Fuzzy   bool     `json:"fuzzy,omitempty" msgpack:"fuzzy,omitempty"`
	Types   []string `json:"types,omitempty" msgpack:"types,omitempty"`
	IDs     []string `json:"ids,omitempty" msgpack:"ids,omitempty"`
}

// LookupResponse carries the candidates of one or more mentions.
type LookupResponse struct {
	ID        string                        `json:"id" msgpack:"id"`
	Results   map[string][]lookup.Candidate `json:"results" msgpack:"results"`
	Count     int                           `json:"count" msgpack:"count"`
	TimeTaken int64                         `json:"time_ms" msgpack:"time_ms"`
}

// StatusResponse answers health checks and announces readiness.
type StatusResponse struct {
	ID     string `json:"id,omitempty" msgpack:"id,omitempty"`
	Status string `json:"status" msgpack:"status"`
}

// InfoResponse describes the running service.
type InfoResponse struct {
	ID          string   `json:"id" msgpack:"id"`
	Title       string   `json:"title" msgpack:"title"`
	Description string   `json:"description" msgpack:"description"`
	Version     string   `json:"version" msgpack:"version"`
	KGs         []string `json:"kgs" msgpack:"kgs"`
	MaxLimit    int      `json:"max_limit" msgpack:"max_limit"`
}

// ErrorResponse reports a failed request with an HTTP-like status.
type ErrorResponse struct {
	ID     string `json:"id,omitempty" msgpack:"id,omitempty"`
	Error  string `json:"error" msgpack:"error"`
	Status int    `json:"status" msgpack:"status"`
}
