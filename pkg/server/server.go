package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/bastiangx/linkserve/internal/logger"
	"github.com/bastiangx/linkserve/internal/utils"
	"github.com/bastiangx/linkserve/pkg/config"
	"github.com/bastiangx/linkserve/pkg/lookup"
	"github.com/bastiangx/linkserve/pkg/search"
	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

// Graphs tells which knowledge graphs can be searched.
type Graphs interface {
	Has(kg string) bool
	KGs() []string
}

// Options wire a Server.
type Options struct {
	Lookup  lookup.ILookup
	Graphs  Graphs
	Limits  config.ServerConfig
	Version string
	In      io.Reader
	Out     io.Writer
}

// Server answers lookup requests read from In on Out, one at a time.
type Server struct {
	lookup  lookup.ILookup
	graphs  Graphs
	limits  atomic.Pointer[config.ServerConfig]
	codec   codec
	version string
	log     *log.Logger
}

// NewServer builds a server speaking the codec named in opts.Limits.
func NewServer(opts Options) (*Server, error) {
	c, err := newCodec(opts.Limits.Codec, opts.In, opts.Out)
	if err != nil {
		return nil, err
	}
	s := &Server{
		lookup:  opts.Lookup,
		graphs:  opts.Graphs,
		codec:   c,
		version: opts.Version,
		log:     logger.New("server"),
	}
	limits := opts.Limits
	s.limits.Store(&limits)
	return s, nil
}

// UpdateLimits swaps the request limits. The codec of a running server never changes.
func (s *Server) UpdateLimits(limits config.ServerConfig) {
	current := s.limits.Load()
	limits.Codec = current.Codec
	s.limits.Store(&limits)
	s.log.Debug("Applied new limits", "default_limit", limits.DefaultLimit, "max_limit", limits.MaxLimit)
}

// Start announces readiness and serves until the input ends or ctx is done.
func (s *Server) Start(ctx context.Context) error {
	s.log.Debug("Starting server")
	if err := s.codec.Encode(StatusResponse{Status: "ready"}); err != nil {
		return fmt.Errorf("write ready: %w", err)
	}

	for {
		if err := ctx.Err(); err != nil {
			return nil
		}

		var req Request
		err := s.codec.Decode(&req)
		switch {
		case err == nil:
		case errors.Is(err, io.EOF):
			return nil
		case errors.Is(err, errMalformed):
			s.log.Errorf("Unmarshaling request: %v", err)
			s.sendError("", "Invalid request", http.StatusBadRequest)
			continue
		default:
			s.log.Errorf("Reading request: %v", err)
			s.sendError("", "Invalid request", http.StatusBadRequest)
			return err
		}

		s.handleRequest(ctx, req)
	}
}

// handleRequest dispatches on the command.
func (s *Server) handleRequest(ctx context.Context, req Request) {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	switch req.Command {
	case CommandLookup:
		s.handleLookup(ctx, req)
	case CommandBatch:
		s.handleBatch(ctx, req)
	case CommandHealth:
		s.sendResponse(StatusResponse{ID: req.ID, Status: "ok"})
	case CommandInfo:
		s.sendResponse(s.info(req.ID))
	default:
		s.sendError(req.ID, fmt.Sprintf("Unknown command: %s", req.Command), http.StatusBadRequest)
	}
}

func (s *Server) handleLookup(ctx context.Context, req Request) {
	params, err := s.validate(req, []string{req.Name})
	if err != nil {
		s.sendError(req.ID, err.Error(), http.StatusBadRequest)
		return
	}

	start := time.Now()
	results, err := s.lookup.Lookup(ctx, params)
	if err != nil {
		s.sendLookupError(req.ID, err)
		return
	}
	s.sendResults(req.ID, results, time.Since(start))
}

func (s *Server) handleBatch(ctx context.Context, req Request) {
	params, err := s.validate(req, req.Names)
	if err != nil {
		s.sendError(req.ID, err.Error(), http.StatusBadRequest)
		return
	}

	start := time.Now()
	results, err := s.lookup.LookupBatch(ctx, req.Names, params)
	if err != nil {
		s.sendLookupError(req.ID, err)
		return
	}
	s.sendResults(req.ID, results, time.Since(start))
}

// validate checks the shared parameters and every name, filling defaults.
func (s *Server) validate(req Request, names []string) (lookup.Params, error) {
	limits := s.limits.Load()

	if len(names) == 0 {
		return lookup.Params{}, errors.New("Missing 'name' parameter")
	}
	for _, name := range names {
		if utils.IsBlank(name) {
			return lookup.Params{}, errors.New("Missing 'name' parameter")
		}
		if utils.RuneLen(name) > limits.MaxNameLength {
			return lookup.Params{}, fmt.Errorf("Name %q exceeds maximum length of %d characters",
				utils.Truncate(name, 32), limits.MaxNameLength)
		}
	}

	limit := req.Limit
	if limit < 1 {
		limit = limits.DefaultLimit
	}
	if limit > limits.MaxLimit {
		return lookup.Params{}, fmt.Errorf("limit %d exceeds maximum of %d", limit, limits.MaxLimit)
	}

	kg := req.KG
	if kg == "" {
		kg = limits.DefaultKG
	}
	if s.graphs != nil && !s.graphs.Has(kg) {
		return lookup.Params{}, fmt.Errorf("Unknown knowledge graph: %s", kg)
	}

	var name string
	if len(names) == 1 {
		name = names[0]
	}
	return lookup.Params{
		Name:  name,
		Limit: limit,
		KG:    kg,
		Fuzzy: req.Fuzzy,
		Types: req.Types,
		IDs:   req.IDs,
	}, nil
}

func (s *Server) info(id string) InfoResponse {
	var kgs []string
	if s.graphs != nil {
		kgs = s.graphs.KGs()
	}
	return InfoResponse{
		ID:          id,
		Title:       "LinkServe",
		Description: "Entity candidate retrieval for mentions against knowledge graph indexes",
		Version:     s.version,
		KGs:         kgs,
		MaxLimit:    s.limits.Load().MaxLimit,
	}
}

func (s *Server) sendResults(id string, results map[string][]lookup.Candidate, elapsed time.Duration) {
	count := 0
	for _, candidates := range results {
		count += len(candidates)
	}
	s.sendResponse(LookupResponse{
		ID:        id,
		Results:   results,
		Count:     count,
		TimeTaken: elapsed.Milliseconds(),
	})
}

// sendLookupError maps pipeline failures. A kg that vanished between validation
// and search is still the caller's mistake.
func (s *Server) sendLookupError(id string, err error) {
	if errors.Is(err, search.ErrUnknownKG) {
		s.sendError(id, err.Error(), http.StatusBadRequest)
		return
	}
	s.log.Errorf("Lookup %s failed: %v", id, err)
	s.sendError(id, fmt.Sprintf("Lookup failed: %v", err), http.StatusInternalServerError)
}

// sendResponse encodes response on the output stream.
func (s *Server) sendResponse(response any) {
	if err := s.codec.Encode(response); err != nil {
		s.log.Errorf("Encoding response: %v", err)
	}
}

// sendError sends an error response
func (s *Server) sendError(id, message string, code int) {
	s.sendResponse(ErrorResponse{ID: id, Error: message, Status: code})
}
