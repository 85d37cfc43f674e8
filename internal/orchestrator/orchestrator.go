// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package orchestrator drives one request/response cycle end to end.
//
// For each submitted prompt it opens the backend stream, routes decoded
// fragments into the typewriter, captures the one-time link/language
// metadata, finalizes the transcript, resolves link titles, and persists
// the exchange. All network and decode errors stop here: the caller sees
// a terminal Result, never a propagated stream failure.
package orchestrator

import (
	"context"
	"errors"
	"io"
	"log"
	"time"

	"github.com/jeranaias/vchat-tui/internal/model"
	"github.com/jeranaias/vchat-tui/internal/store"
	"github.com/jeranaias/vchat-tui/internal/stream"
	"github.com/jeranaias/vchat-tui/internal/typewriter"
)

// AbortSuffix is appended to partial text when the user cancels
// mid-stream, both on screen and in the persisted record.
const AbortSuffix = " [aborted]"

// ErrBusy is returned when a request is submitted while another is in
// flight for the same session.
var ErrBusy = errors.New("a request is already in flight")

// errorMessages are the generic localized failure strings rendered and
// persisted when a stream fails for any reason other than cancellation.
var errorMessages = map[string]string{
	"en": "An error occurred. Please try again later.",
	"fr": "Une erreur est survenue. Veuillez réessayer plus tard.",
}

// =============================================================================
// STATES
// =============================================================================

// State is the per-request state machine position.
type State int

const (
	StateIdle State = iota
	StateSending
	StateStreaming
	StateFinalizing
	StateCompleted
	StateAborted
	StateFailed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSending:
		return "sending"
	case StateStreaming:
		return "streaming"
	case StateFinalizing:
		return "finalizing"
	case StateCompleted:
		return "completed"
	case StateAborted:
		return "aborted"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether the state ends a request.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateAborted || s == StateFailed
}

// =============================================================================
// COLLABORATOR INTERFACES
// =============================================================================

// Backend opens the event stream for one prompt.
type Backend interface {
	OpenConversationStream(ctx context.Context, conversationID, prompt string, history []model.Item) (io.ReadCloser, error)
}

// TitleResolver resolves link titles, nil per failed lookup.
type TitleResolver interface {
	ResolveAll(ctx context.Context, links []string) []*string
}

// Indexer receives persisted conversations for search indexing.
type Indexer interface {
	IndexConversation(conv *model.Conversation) error
}

// Settings supplies the tunables read at the start of every request.
// Implementations may return different values between requests, which
// is how a config reload reaches in-flight sessions.
type Settings interface {
	TypingDelay() time.Duration
	Language() string
}

// =============================================================================
// RESULT
// =============================================================================

// Result describes the terminal outcome of one request. Exactly one of
// the three terminal states is reached; displayed partial text is always
// committed to the store in some form.
type Result struct {
	State    State
	Text     string    // final assistant text (or error text for StateFailed)
	Links    []string  // captured link payload, if any
	Titles   []*string // resolved titles, index-aligned with Links
	Language string    // normalized detected language
	Err      error     // underlying stream error for StateFailed, for logging
}

// =============================================================================
// ORCHESTRATOR
// =============================================================================

// Config wires the orchestrator's collaborators.
type Config struct {
	Backend  Backend
	Store    *store.ConversationStore
	Titles   TitleResolver
	Index    Indexer // optional
	Renderer Renderer

	// TypingDelay is the typewriter inter-rune delay; zero means the
	// typewriter default.
	TypingDelay time.Duration

	// DefaultLanguage localizes error strings when the stream reported
	// no language ("en" if empty).
	DefaultLanguage string

	// Settings, when set, overrides TypingDelay and DefaultLanguage with
	// values re-read at the start of each request.
	Settings Settings
}

// Orchestrator runs request/response cycles against one backend/store.
type Orchestrator struct {
	backend  Backend
	store    *store.ConversationStore
	titles   TitleResolver
	index    Indexer
	renderer Renderer
	delay    time.Duration
	language string
	settings Settings
}

// New creates an orchestrator. A nil Renderer falls back to NullRenderer.
func New(cfg Config) *Orchestrator {
	renderer := cfg.Renderer
	if renderer == nil {
		renderer = NullRenderer{}
	}
	language := cfg.DefaultLanguage
	if language == "" {
		language = "en"
	}
	return &Orchestrator{
		backend:  cfg.Backend,
		store:    cfg.Store,
		titles:   cfg.Titles,
		index:    cfg.Index,
		renderer: renderer,
		delay:    cfg.TypingDelay,
		language: language,
		settings: cfg.Settings,
	}
}

// Send runs one full request/response cycle for the session.
//
// Returns ErrBusy without side effects if a request is already in
// flight. Any other outcome is a terminal Result: stream errors and
// cancellations are folded into it rather than returned.
func (o *Orchestrator) Send(ctx context.Context, sess *Session, prompt string) (Result, error) {
	if prompt == "" {
		return Result{}, errors.New("empty prompt")
	}
	if !sess.Lock.TryAcquire() {
		return Result{}, ErrBusy
	}
	defer sess.Lock.Release()
	defer sess.clearCancel()

	ctx = sess.BindCancel(ctx)

	// Tunables are re-read here so a live config reload applies to the
	// next request, not only after a restart.
	delay, language := o.delay, o.language
	if o.settings != nil {
		delay = o.settings.TypingDelay()
		if l := o.settings.Language(); l != "" {
			language = l
		}
	}

	// Idle -> Sending
	if err := o.store.Create(sess.ConversationID); err != nil {
		log.Printf("orchestrator: create conversation: %v", err)
	}
	history := o.history(sess.ConversationID)
	o.renderer.ShowUserMessage(prompt)
	o.renderer.ShowPlaceholder(false)

	body, err := o.backend.OpenConversationStream(ctx, sess.ConversationID, prompt, history)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return o.finishAborted(sess, prompt, ""), nil
		}
		return o.finishFailed(sess, prompt, language, err), nil
	}
	defer body.Close()

	// Sending -> Streaming
	dec := stream.NewDecoder(body)
	tw := typewriter.New(o.renderer.AppendAssistantFragment, delay)

	var links []string
	metaCaptured := false

	var streamErr error
	for {
		ev, err := dec.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			streamErr = err
			break
		}

		switch ev.Kind {
		case stream.KindFragment:
			tw.Enqueue(ev.Text)
		case stream.KindMetadata:
			// First non-empty link payload wins; later metadata lines
			// are ignored (the upstream protocol does not meaningfully
			// re-send it).
			if !metaCaptured && len(ev.Links) > 0 {
				metaCaptured = true
				links = ev.Links
				language = model.NormalizeLanguage(ev.Language)
				o.renderer.ShowPlaceholder(true)
			}
		case stream.KindDone:
			// The decoder reports io.EOF on the next read.
		}
	}

	// Streaming -> Finalizing -> terminal
	if streamErr != nil {
		if errors.Is(streamErr, context.Canceled) {
			return o.finishAborted(sess, prompt, tw.Finalize()), nil
		}
		tw.Finalize() // stop the pacing loop; text is discarded
		return o.finishFailed(sess, prompt, language, streamErr), nil
	}

	final := tw.Finalize()
	o.persist(sess.ConversationID,
		model.NewUserItem(prompt),
		model.NewAssistantItem(final),
	)

	result := Result{State: StateCompleted, Text: final, Language: language}
	if len(links) > 0 {
		result.Links = links
		result.Titles = o.resolveTitles(ctx, links)
		o.persist(sess.ConversationID, model.NewVideoItem(model.VideoContent{
			Links:    links,
			Language: language,
			ScrollY:  o.renderer.ScrollPosition(),
			Titles:   result.Titles,
		}))
		o.renderer.ShowLinks(links, result.Titles)
	}

	o.refreshIndex(sess.ConversationID)
	return result, nil
}

// =============================================================================
// TERMINAL PATHS
// =============================================================================

// finishAborted commits the partial text with the abort marker. An
// abort before any text arrived persists only the user item; there is
// no partial to mark.
func (o *Orchestrator) finishAborted(sess *Session, prompt, partial string) Result {
	items := []model.Item{model.NewUserItem(prompt)}
	var final string
	if partial != "" {
		final = partial + AbortSuffix
		o.renderer.AppendAssistantFragment(final)
		items = append(items, model.NewAssistantItem(final))
	}
	o.persist(sess.ConversationID, items...)
	o.refreshIndex(sess.ConversationID)
	return Result{State: StateAborted, Text: final}
}

// finishFailed commits the generic localized error string. The user's
// prompt is still persisted; partial assistant text is discarded in
// favor of the error message.
func (o *Orchestrator) finishFailed(sess *Session, prompt, language string, cause error) Result {
	message, ok := errorMessages[language]
	if !ok {
		message = errorMessages["en"]
	}
	log.Printf("orchestrator: stream failed: %v", cause)
	o.renderer.ShowError(message)
	o.persist(sess.ConversationID,
		model.NewUserItem(prompt),
		model.NewAssistantItem(message),
	)
	o.refreshIndex(sess.ConversationID)
	return Result{State: StateFailed, Text: message, Err: cause}
}

// =============================================================================
// HELPERS
// =============================================================================

// history loads the prior transcript; a missing record is an empty one.
func (o *Orchestrator) history(conversationID string) []model.Item {
	conv, err := o.store.Load(conversationID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			log.Printf("orchestrator: load history: %v", err)
		}
		return nil
	}
	return conv.History()
}

// persist appends items, logging instead of failing: the in-memory
// transcript stays authoritative for the session if the store is sick.
func (o *Orchestrator) persist(conversationID string, items ...model.Item) {
	if err := o.store.Append(conversationID, items...); err != nil {
		log.Printf("orchestrator: persist conversation %s: %v", conversationID, err)
	}
}

// resolveTitles runs the title fan-out with a fresh timeout so an
// aborted-later context cannot cancel enrichment mid-flight.
func (o *Orchestrator) resolveTitles(ctx context.Context, links []string) []*string {
	if o.titles == nil {
		return make([]*string, len(links))
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()
	return o.titles.ResolveAll(ctx, links)
}

// refreshIndex pushes the updated conversation into the search index.
func (o *Orchestrator) refreshIndex(conversationID string) {
	if o.index == nil {
		return
	}
	conv, err := o.store.Load(conversationID)
	if err != nil {
		return
	}
	if err := o.index.IndexConversation(conv); err != nil {
		log.Printf("orchestrator: index conversation %s: %v", conversationID, err)
	}
}
