package server

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/bastiangx/linkserve/pkg/config"
	"github.com/bastiangx/linkserve/pkg/lookup"
	"github.com/bastiangx/linkserve/pkg/search"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
)

type fakeLookup struct {
	mu     sync.Mutex
	params []lookup.Params
	names  [][]string
	err    error
}

func (f *fakeLookup) Lookup(_ context.Context, p lookup.Params) (map[string][]lookup.Candidate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.params = append(f.params, p)
	if f.err != nil {
		return nil, f.err
	}
	key := strings.ToLower(strings.TrimSpace(p.Name))
	return map[string][]lookup.Candidate{key: {{ID: "Q76", Name: "Barack Obama"}}}, nil
}

func (f *fakeLookup) LookupBatch(_ context.Context, names []string, p lookup.Params) (map[string][]lookup.Candidate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.params = append(f.params, p)
	f.names = append(f.names, names)
	if f.err != nil {
		return nil, f.err
	}
	out := make(map[string][]lookup.Candidate)
	for _, n := range names {
		out[strings.ToLower(n)] = []lookup.Candidate{{ID: "Q1", Name: n}}
	}
	return out, nil
}

type fakeGraphs []string

func (g fakeGraphs) Has(kg string) bool { return slices.Contains(g, kg) }
func (g fakeGraphs) KGs() []string      { return g }

func testLimits() config.ServerConfig {
	return config.ServerConfig{
		Codec:         config.CodecJSON,
		DefaultLimit:  100,
		MaxLimit:      1000,
		DefaultKG:     "wikidata",
		MaxNameLength: 20,
		Workers:       1,
	}
}

// runJSON feeds lines to a JSON server and returns every decoded response
// after the ready message.
func runJSON(t *testing.T, lk lookup.ILookup, lines ...string) []map[string]any {
	t.Helper()
	in := strings.NewReader(strings.Join(lines, "\n") + "\n")
	var out bytes.Buffer

	srv, err := NewServer(Options{
		Lookup: lk, Graphs: fakeGraphs{"wikidata", "dbpedia"},
		Limits: testLimits(), Version: "test", In: in, Out: &out,
	})
	require.NoError(t, err)
	require.NoError(t, srv.Start(context.Background()))

	var responses []map[string]any
	scanner := bufio.NewScanner(&out)
	for scanner.Scan() {
		var m map[string]any
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &m))
		responses = append(responses, m)
	}
	require.NotEmpty(t, responses)
	assert.Equal(t, "ready", responses[0]["status"])
	return responses[1:]
}

func TestLookupRequest(t *testing.T) {
	lk := &fakeLookup{}
	resp := runJSON(t, lk,
		`{"id":"r1","command":"lookup","name":"Obama","limit":10,"kg":"wikidata","types":["Q5"],"ids":["Q76"],"fuzzy":true}`)
	require.Len(t, resp, 1)

	assert.Equal(t, "r1", resp[0]["id"])
	assert.EqualValues(t, 1, resp[0]["count"])
	results, ok := resp[0]["results"].(map[string]any)
	require.True(t, ok)
	require.Contains(t, results, "obama")

	require.Len(t, lk.params, 1)
	assert.Equal(t, lookup.Params{
		Name: "Obama", Limit: 10, KG: "wikidata", Fuzzy: true,
		Types: []string{"Q5"}, IDs: []string{"Q76"},
	}, lk.params[0])
}

func TestLookupDefaults(t *testing.T) {
	lk := &fakeLookup{}
	resp := runJSON(t, lk, `{"command":"lookup","name":"Paris","limit":0}`)
	require.Len(t, resp, 1)

	// an id is assigned when the client sends none
	assert.NotEmpty(t, resp[0]["id"])
	require.Len(t, lk.params, 1)
	assert.Equal(t, 100, lk.params[0].Limit)
	assert.Equal(t, "wikidata", lk.params[0].KG)
}

func TestLookupValidation(t *testing.T) {
	testCases := []struct {
		name    string
		line    string
		message string
	}{
		{"missing name", `{"id":"a","command":"lookup"}`, "Missing 'name' parameter"},
		{"blank name", `{"id":"a","command":"lookup","name":"   "}`, "Missing 'name' parameter"},
		{"limit too large", `{"id":"a","command":"lookup","name":"x","limit":5000}`, "exceeds maximum of 1000"},
		{"unknown kg", `{"id":"a","command":"lookup","name":"x","kg":"yago"}`, "Unknown knowledge graph: yago"},
		{"name too long", `{"id":"a","command":"lookup","name":"aaaaaaaaaaaaaaaaaaaaaaaaa"}`, "exceeds maximum length of 20"},
		{"batch without names", `{"id":"a","command":"batch"}`, "Missing 'name' parameter"},
		{"unknown command", `{"id":"a","command":"complete"}`, "Unknown command: complete"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			lk := &fakeLookup{}
			resp := runJSON(t, lk, tc.line)
			require.Len(t, resp, 1)
			assert.Equal(t, "a", resp[0]["id"])
			assert.EqualValues(t, http.StatusBadRequest, resp[0]["status"])
			assert.Contains(t, resp[0]["error"], tc.message)
			assert.Empty(t, lk.params)
		})
	}
}

func TestLookupFailures(t *testing.T) {
	t.Run("pipeline error", func(t *testing.T) {
		resp := runJSON(t, &fakeLookup{err: errors.New("index unreachable")}, `{"id":"a","command":"lookup","name":"x"}`)
		require.Len(t, resp, 1)
		assert.EqualValues(t, http.StatusInternalServerError, resp[0]["status"])
		assert.Contains(t, resp[0]["error"], "index unreachable")
	})

	t.Run("graph disappeared", func(t *testing.T) {
		err := fmt.Errorf("%w: wikidata", search.ErrUnknownKG)
		resp := runJSON(t, &fakeLookup{err: err}, `{"id":"a","command":"lookup","name":"x"}`)
		require.Len(t, resp, 1)
		assert.EqualValues(t, http.StatusBadRequest, resp[0]["status"])
	})
}

func TestMalformedLineKeepsServing(t *testing.T) {
	lk := &fakeLookup{}
	resp := runJSON(t, lk, `{not json`, ``, `{"id":"h","command":"health"}`)
	require.Len(t, resp, 2)
	assert.EqualValues(t, http.StatusBadRequest, resp[0]["status"])
	assert.Equal(t, "h", resp[1]["id"])
	assert.Equal(t, "ok", resp[1]["status"])
}

func TestBatchRequest(t *testing.T) {
	lk := &fakeLookup{}
	resp := runJSON(t, lk, `{"id":"b","command":"batch","names":["Obama","Paris"],"limit":5}`)
	require.Len(t, resp, 1)

	results, ok := resp[0]["results"].(map[string]any)
	require.True(t, ok)
	assert.Len(t, results, 2)
	assert.EqualValues(t, 2, resp[0]["count"])
	require.Len(t, lk.names, 1)
	assert.Equal(t, []string{"Obama", "Paris"}, lk.names[0])
	assert.Equal(t, 5, lk.params[0].Limit)
}

func TestInfoRequest(t *testing.T) {
	resp := runJSON(t, &fakeLookup{}, `{"id":"i","command":"info"}`)
	require.Len(t, resp, 1)
	assert.Equal(t, "test", resp[0]["version"])
	assert.EqualValues(t, 1000, resp[0]["max_limit"])
	assert.Equal(t, []any{"wikidata", "dbpedia"}, resp[0]["kgs"])
}

func TestUpdateLimits(t *testing.T) {
	lk := &fakeLookup{}
	srv, err := NewServer(Options{Lookup: lk, Limits: testLimits(), In: strings.NewReader(""), Out: io.Discard})
	require.NoError(t, err)

	limits := testLimits()
	limits.DefaultLimit = 7
	limits.Codec = config.CodecMsgpack
	srv.UpdateLimits(limits)

	got := srv.limits.Load()
	assert.Equal(t, 7, got.DefaultLimit)
	assert.Equal(t, config.CodecJSON, got.Codec)

	params, err := srv.validate(Request{Name: "x"}, []string{"x"})
	require.NoError(t, err)
	assert.Equal(t, 7, params.Limit)
}

func TestMsgpackCodec(t *testing.T) {
	var in bytes.Buffer
	enc := msgpack.NewEncoder(&in)
	require.NoError(t, enc.Encode(Request{ID: "m1", Command: CommandLookup, Name: "Obama", Limit: 3}))
	require.NoError(t, enc.Encode(Request{ID: "m2", Command: CommandHealth}))

	var out bytes.Buffer
	limits := testLimits()
	limits.Codec = config.CodecMsgpack
	lk := &fakeLookup{}
	srv, err := NewServer(Options{Lookup: lk, Limits: limits, In: &in, Out: &out})
	require.NoError(t, err)
	require.NoError(t, srv.Start(context.Background()))

	dec := msgpack.NewDecoder(&out)
	var ready StatusResponse
	require.NoError(t, dec.Decode(&ready))
	assert.Equal(t, "ready", ready.Status)

	var found LookupResponse
	require.NoError(t, dec.Decode(&found))
	assert.Equal(t, "m1", found.ID)
	require.Contains(t, found.Results, "obama")
	assert.Equal(t, "Q76", found.Results["obama"][0].ID)

	var health StatusResponse
	require.NoError(t, dec.Decode(&health))
	assert.Equal(t, "m2", health.ID)
	assert.Equal(t, "ok", health.Status)
}

func TestUnknownCodec(t *testing.T) {
	limits := testLimits()
	limits.Codec = "xml"
	_, err := NewServer(Options{Limits: limits, In: strings.NewReader(""), Out: io.Discard})
	require.Error(t, err)
}
