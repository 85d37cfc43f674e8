// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package stream decodes the server's event stream into discrete events.
//
// The wire format is SSE-style: each event is a single line of the form
// "data: <json>" and the literal "data: [DONE]" terminates the stream.
// A JSON payload may carry a "response" text fragment, a "metadata"
// object with detected links and language, or both on the same line.
package stream

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
)

// =============================================================================
// CONSTANTS
// =============================================================================

// MaxLineSize is the maximum allowed size for a single stream line (64KB).
// Longer lines are treated like malformed payloads: skipped, not fatal.
const MaxLineSize = 64 * 1024

// doneSentinel is the literal payload that terminates the stream.
var doneSentinel = []byte("[DONE]")

// dataPrefix marks a recognized event line.
var dataPrefix = []byte("data:")

// =============================================================================
// EVENT TYPES
// =============================================================================

// Kind discriminates decoded events.
type Kind int

const (
	// KindFragment carries a partial piece of assistant response text.
	KindFragment Kind = iota
	// KindMetadata carries the side-channel link/language payload.
	KindMetadata
	// KindDone marks normal stream termination.
	KindDone
)

// Event is one decoded stream event.
type Event struct {
	Kind Kind

	// Text is set for KindFragment.
	Text string

	// Links and Language are set for KindMetadata.
	Links    []string
	Language string
}

// payload is the JSON shape of a data line. Response and Metadata may
// both be present on the same line.
type payload struct {
	Response *string `json:"response"`
	Metadata *struct {
		Links    []string `json:"links"`
		Language string   `json:"language"`
	} `json:"metadata"`
}

// =============================================================================
// DECODER
// =============================================================================

// Decoder turns a raw byte stream into a sequence of events.
//
// The sequence is lazy and forward-only: call Next until it returns
// io.EOF (normal termination, after a KindDone event) or another error.
// A context cancellation surfaces as ctx.Err() so the caller can
// distinguish a user abort from a closed stream.
type Decoder struct {
	reader  *bufio.Reader
	pending []Event
	done    bool
}

// NewDecoder creates a decoder reading from r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{reader: bufio.NewReader(r)}
}

// Next returns the next event from the stream.
//
// Returns io.EOF once the stream has terminated, either via the [DONE]
// sentinel (after the KindDone event has been delivered) or because the
// producer closed the connection. Malformed JSON lines are logged and
// skipped; decoding continues with the next line.
func (d *Decoder) Next(ctx context.Context) (Event, error) {
	for {
		if len(d.pending) > 0 {
			ev := d.pending[0]
			d.pending = d.pending[1:]
			return ev, nil
		}
		if d.done {
			return Event{}, io.EOF
		}
		if err := ctx.Err(); err != nil {
			return Event{}, err
		}

		line, err := d.readLine()
		if err != nil {
			// A cancelled HTTP body read reports a transport error;
			// report the cancellation itself so the caller can tell
			// an abort apart from a stream failure.
			if ctxErr := ctx.Err(); ctxErr != nil {
				return Event{}, ctxErr
			}
			if err == io.EOF {
				d.done = true
				return Event{}, io.EOF
			}
			return Event{}, fmt.Errorf("read stream: %w", err)
		}

		d.decodeLine(line)
	}
}

// readLine reads one newline-terminated line, enforcing MaxLineSize.
// The trailing newline and carriage return are stripped.
func (d *Decoder) readLine() ([]byte, error) {
	var line []byte
	for {
		chunk, err := d.reader.ReadSlice('\n')
		line = append(line, chunk...)
		if err == nil {
			break
		}
		if err == bufio.ErrBufferFull {
			if len(line) > MaxLineSize {
				// Drain the oversized line, then report it as skippable.
				if drainErr := d.drainLine(); drainErr != nil {
					return nil, drainErr
				}
				log.Printf("stream: dropping oversized line (%d bytes)", len(line))
				return nil, nil
			}
			continue
		}
		if err == io.EOF && len(line) > 0 {
			// Process a final unterminated line before reporting EOF.
			break
		}
		return nil, err
	}
	return bytes.TrimRight(line, "\r\n"), nil
}

// drainLine discards input up to and including the next newline.
func (d *Decoder) drainLine() error {
	for {
		_, err := d.reader.ReadSlice('\n')
		if err == nil {
			return nil
		}
		if err == bufio.ErrBufferFull {
			continue
		}
		return err
	}
}

// decodeLine parses one line and queues the resulting events.
// Lines without the data prefix, empty payloads, and malformed JSON are
// skipped without ending the stream.
func (d *Decoder) decodeLine(line []byte) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 || !bytes.HasPrefix(line, dataPrefix) {
		return
	}
	data := bytes.TrimSpace(line[len(dataPrefix):])
	if len(data) == 0 {
		return
	}

	if bytes.Equal(data, doneSentinel) {
		d.pending = append(d.pending, Event{Kind: KindDone})
		d.done = true
		return
	}

	var p payload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Printf("stream: skipping malformed line: %v", err)
		return
	}

	// A single line can produce both a fragment and a metadata event;
	// the fragment is delivered first to preserve display order.
	if p.Response != nil {
		d.pending = append(d.pending, Event{Kind: KindFragment, Text: *p.Response})
	}
	if p.Metadata != nil {
		d.pending = append(d.pending, Event{
			Kind:     KindMetadata,
			Links:    p.Metadata.Links,
			Language: p.Metadata.Language,
		})
	}
}
