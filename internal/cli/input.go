// Package cli handles cmd line input and prints candidates for DBG and testing the lookup pipeline
package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/bastiangx/linkserve/internal/utils"
	"github.com/bastiangx/linkserve/pkg/lookup"
	"github.com/charmbracelet/log"
)

// maxMentionLength guards the interactive mode against pasted documents.
const maxMentionLength = 500

// InputHandler reads mentions line by line and prints their candidates.
// Lines starting with ':' change the session settings:
//
//	:limit 20
//	:kg dbpedia
//	:fuzzy on
//	:types Q5 Q515
//	:ids Q76
type InputHandler struct {
	lookup lookup.ILookup
	params lookup.Params
	in     io.Reader
	out    *log.Logger
}

// NewInputHandler handles initialization of the InputHandler with basic parameters
func NewInputHandler(lk lookup.ILookup, limit int, kg string, fuzzy bool, in io.Reader, out io.Writer) *InputHandler {
	logger := log.NewWithOptions(out, log.Options{ReportTimestamp: false})
	logger.SetLevel(log.GetLevel())
	return &InputHandler{
		lookup: lk,
		params: lookup.Params{Limit: limit, KG: kg, Fuzzy: fuzzy},
		in:     in,
		out:    logger,
	}
}

// Start begins the interface loop. It returns nil when the input ends.
func (h *InputHandler) Start(ctx context.Context) error {
	h.out.Print("LinkServe CLI [BETA]")
	h.out.Print("type a mention and press Enter to see its candidates (Ctrl+C to exit):")
	reader := bufio.NewReader(h.in)

	for {
		h.out.Print("> ")
		line, err := reader.ReadString('\n')
		line = strings.TrimSpace(line)
		if line != "" {
			h.handleInput(ctx, line)
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// handleInput treats line as a setting change or a mention to look up.
func (h *InputHandler) handleInput(ctx context.Context, line string) {
	if strings.HasPrefix(line, ":") {
		if err := h.setOption(line[1:]); err != nil {
			h.out.Error(err.Error())
		}
		return
	}

	if utils.RuneLen(line) > maxMentionLength {
		h.out.Errorf("Mention too long: %s", utils.Truncate(line, 32))
		return
	}

	p := h.params
	p.Name = line
	log.Debug("Processing request for", "mention", line, "kg", p.KG, "limit", p.Limit)

	start := time.Now()
	results, err := h.lookup.Lookup(ctx, p)
	if err != nil {
		h.out.Errorf("Lookup failed: %v", err)
		return
	}
	log.Debugf("Took [ %v ] for mention '%s'", time.Since(start), line)

	for mention, candidates := range results {
		if len(candidates) == 0 {
			h.out.Warnf("No candidates found for mention: '%s'", mention)
			continue
		}
		h.out.Printf("Found %d candidates for mention '%s':", len(candidates), mention)
		for i, c := range candidates {
			h.out.Print(formatCandidate(i+1, c))
		}
	}
}

func (h *InputHandler) setOption(option string) error {
	fields := strings.Fields(option)
	if len(fields) == 0 {
		return fmt.Errorf("empty option")
	}
	args := fields[1:]

	switch fields[0] {
	case "limit":
		if len(args) != 1 {
			return fmt.Errorf("usage: :limit <n>")
		}
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 1 {
			return fmt.Errorf("invalid limit %q", args[0])
		}
		h.params.Limit = n
	case "kg":
		if len(args) != 1 {
			return fmt.Errorf("usage: :kg <name>")
		}
		h.params.KG = args[0]
	case "fuzzy":
		if len(args) != 1 {
			return fmt.Errorf("usage: :fuzzy on|off")
		}
		h.params.Fuzzy = args[0] == "on" || args[0] == "true"
	case "types":
		h.params.Types = args
	case "ids":
		h.params.IDs = args
	default:
		return fmt.Errorf("unknown option %q", fields[0])
	}
	h.out.Info("Updated session", "kg", h.params.KG, "limit", h.params.Limit, "fuzzy", h.params.Fuzzy,
		"types", h.params.Types, "ids", h.params.IDs)
	return nil
}
