package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	contractx "github.com/tanpawarit/albaqer-concierge/agent/contract"
)

const maxLineBytes = 64 << 10

type queryHandler interface {
	Handle(ctx context.Context, q contractx.Query) (contractx.ChatResponse, error)
}

type errorReply struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

// serve reads one query per line and writes one JSON reply per line. A line
// holding a JSON object is decoded as a Query; anything else is query text.
func serve(ctx context.Context, h queryHandler, in io.Reader, out io.Writer, sessionID string) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 4096), maxLineBytes)
	enc := json.NewEncoder(out)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		q, err := parseLine(line, sessionID)
		if err != nil {
			if err := enc.Encode(errorReply{Error: err.Error(), Kind: "invalid"}); err != nil {
				return err
			}
			continue
		}

		resp, err := h.Handle(ctx, q)
		if err != nil {
			if err := enc.Encode(errorReply{Error: err.Error(), Kind: errorKind(err)}); err != nil {
				return err
			}
			continue
		}
		// Keep the session across lines when the caller did not pin one.
		if sessionID == "" {
			sessionID = resp.SessionID
		}
		if err := enc.Encode(resp); err != nil {
			return err
		}
	}
	return scanner.Err()
}

func parseLine(line, sessionID string) (contractx.Query, error) {
	if !strings.HasPrefix(line, "{") {
		return contractx.Query{Text: line, SessionID: sessionID}, nil
	}
	var q contractx.Query
	if err := json.Unmarshal([]byte(line), &q); err != nil {
		return contractx.Query{}, fmt.Errorf("%w: decode query: %v", contractx.ErrValidation, err)
	}
	if q.SessionID == "" {
		q.SessionID = sessionID
	}
	return q, nil
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, contractx.ErrValidation):
		return "invalid"
	case errors.Is(err, contractx.ErrBackendsUnavailable):
		return "unavailable"
	default:
		return "internal"
	}
}
