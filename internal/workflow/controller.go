package workflow

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"reviews_dashboard/internal/engine"
	"reviews_dashboard/internal/wbapi"
	"reviews_dashboard/pkg/metrics"
)

// State of the reply workflow for a single feedback.
type State string

const (
	StateNoDraft    State = "no_draft"
	StateGenerating State = "generating"
	StateDraft      State = "draft"
	StateSending    State = "sending"
)

var (
	// ErrUnknownFeedback is returned for an id not present in the loaded collection.
	ErrUnknownFeedback = errors.New("workflow: unknown feedback id")
	// ErrAlreadyAnswered blocks generation for feedbacks with a marketplace reply.
	ErrAlreadyAnswered = errors.New("workflow: feedback already answered")
	// ErrNoDraft is returned when editing or sending without a draft.
	ErrNoDraft = errors.New("workflow: no draft for feedback")
	// ErrBusy is returned when the same item is already generating or sending.
	ErrBusy = errors.New("workflow: operation already in progress for feedback")
	// ErrEmptyDraft blocks sending a blank reply.
	ErrEmptyDraft = errors.New("workflow: draft text is empty")
)

// Generator produces a reply draft for a feedback.
type Generator interface {
	Generate(ctx context.Context, fb wbapi.Feedback, instructions string) (string, error)
}

// Sender submits a reply to the marketplace.
type Sender interface {
	Answer(ctx context.Context, id, text string) error
}

// Draft is a locally held, editable candidate reply.
type Draft struct {
	Text    string `json:"text"`
	Editing bool   `json:"editing"`
}

// Controller drives the per-feedback reply state machine:
// NoDraft -> Generating -> Draft -> Sending -> gone (sent items leave the
// collection). Generation and sending are serialized per feedback id, not
// globally: other items stay actionable while one is in flight.
type Controller struct {
	generator Generator
	sender    Sender
	eng       *engine.Engine
	log       *zap.SugaredLogger

	mu         sync.Mutex
	drafts     map[string]*Draft
	generating map[string]struct{}
	sending    map[string]struct{}
	stats      wbapi.Stats
	hasStats   bool
}

// New constructs a Controller over the given engine and API clients.
func New(generator Generator, sender Sender, eng *engine.Engine, log *zap.SugaredLogger) *Controller {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Controller{
		generator:  generator,
		sender:     sender,
		eng:        eng,
		log:        log,
		drafts:     map[string]*Draft{},
		generating: map[string]struct{}{},
		sending:    map[string]struct{}{},
	}
}

// Generate produces a draft for the feedback. An existing draft is
// overwritten (regeneration, not an error); a feedback that already has a
// marketplace-side answer is rejected. On failure the previous draft state
// is left untouched.
func (c *Controller) Generate(ctx context.Context, id, instructions string) (string, error) {
	fb, ok := c.eng.Item(id)
	if !ok {
		return "", ErrUnknownFeedback
	}
	if fb.IsAnswered() {
		return "", ErrAlreadyAnswered
	}

	c.mu.Lock()
	if _, busy := c.generating[id]; busy {
		c.mu.Unlock()
		return "", ErrBusy
	}
	c.generating[id] = struct{}{}
	c.mu.Unlock()

	text, err := c.generator.Generate(ctx, fb, instructions)

	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.generating, id)
	if err != nil {
		metrics.GeneratedReplies.WithLabelValues("failed").Inc()
		metrics.IncrementAPIError("openai", "generate")
		return "", err
	}
	c.drafts[id] = &Draft{Text: text}
	metrics.GeneratedReplies.WithLabelValues("ok").Inc()
	c.log.Infow("reply generated", "feedback_id", id, "len", len(text))
	return text, nil
}

// UpdateDraft replaces the draft text. There is no separate commit step:
// the UI pushes the text on every edit.
func (c *Controller) UpdateDraft(id, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	d, ok := c.drafts[id]
	if !ok {
		return ErrNoDraft
	}
	d.Text = text
	return nil
}

// ToggleEdit flips the editing flag of the draft.
func (c *Controller) ToggleEdit(id string) (Draft, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	d, ok := c.drafts[id]
	if !ok {
		return Draft{}, ErrNoDraft
	}
	d.Editing = !d.Editing
	return *d, nil
}

// Send submits the draft to the marketplace. On success the feedback leaves
// the engine collection, the draft is deleted and the unanswered counter is
// decremented (floored at zero). On failure the draft survives and the item
// stays in the collection.
func (c *Controller) Send(ctx context.Context, id string) error {
	c.mu.Lock()
	d, ok := c.drafts[id]
	if !ok {
		c.mu.Unlock()
		return ErrNoDraft
	}
	if d.Text == "" {
		c.mu.Unlock()
		return ErrEmptyDraft
	}
	if _, busy := c.sending[id]; busy {
		c.mu.Unlock()
		return ErrBusy
	}
	c.sending[id] = struct{}{}
	text := d.Text
	c.mu.Unlock()

	err := c.sender.Answer(ctx, id, text)

	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.sending, id)
	if err != nil {
		metrics.SentReplies.WithLabelValues("failed").Inc()
		metrics.IncrementAPIError("wb", "answer")
		return err
	}

	delete(c.drafts, id)
	c.eng.RemoveItem(id)
	if c.hasStats && c.stats.CountUnanswered > 0 {
		c.stats.CountUnanswered--
	}
	metrics.SentReplies.WithLabelValues("ok").Inc()
	c.log.Infow("reply sent", "feedback_id", id)
	return nil
}

// DraftFor returns the current draft and workflow state for the feedback.
func (c *Controller) DraftFor(id string) (Draft, State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.generating[id]; ok {
		return Draft{}, StateGenerating
	}
	if _, ok := c.sending[id]; ok {
		if d, ok := c.drafts[id]; ok {
			return *d, StateSending
		}
		return Draft{}, StateSending
	}
	if d, ok := c.drafts[id]; ok {
		return *d, StateDraft
	}
	return Draft{}, StateNoDraft
}

// Drafts returns a copy of the whole draft map, keyed by feedback id.
func (c *Controller) Drafts() map[string]Draft {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]Draft, len(c.drafts))
	for id, d := range c.drafts {
		out[id] = *d
	}
	return out
}

// Prune drops drafts whose feedback is no longer in the loaded collection,
// e.g. after a tab switch or refresh replaced it wholesale.
func (c *Controller) Prune() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id := range c.drafts {
		if _, ok := c.eng.Item(id); !ok {
			delete(c.drafts, id)
		}
	}
}

// SetStats replaces the aggregate stats wholesale (after a successful fetch).
func (c *Controller) SetStats(s wbapi.Stats) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats = s
	c.hasStats = true
}

// Stats returns the current aggregate stats and whether any were fetched yet.
func (c *Controller) Stats() (wbapi.Stats, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats, c.hasStats
}
