package session

import "github.com/google/uuid"

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Turn struct {
	Role Role
	Text string
}

// History is the per-session chat log. It is append-only: a turn's
// position never changes once appended, and the only in-place mutation
// is the progressive extension of an assistant turn through a Reveal.
// One History belongs to exactly one session and is owned by its caller.
type History struct {
	ID    string
	turns []Turn
}

func New() *History {
	return &History{ID: uuid.NewString()}
}

func (h *History) AppendUser(text string) {
	h.turns = append(h.turns, Turn{Role: RoleUser, Text: text})
}

// Turns returns a snapshot of the log.
func (h *History) Turns() []Turn {
	out := make([]Turn, len(h.turns))
	copy(out, h.turns)
	return out
}

func (h *History) Len() int { return len(h.turns) }

// Reveal extends one assistant turn toward its final text in fixed-size
// steps. Every intermediate state is a prefix of the final text and the
// turn always converges to exactly the final text. Pacing between steps
// is the caller's concern (the TUI drives Advance from a timer), not a
// sleep in here.
type Reveal struct {
	history     *History
	index       int
	final       []rune
	granularity int
	shown       int
}

const defaultGranularity = 200

// StartAssistant appends an empty assistant turn and returns the reveal
// cursor that fills it in.
func (h *History) StartAssistant(final string, granularity int) *Reveal {
	if granularity <= 0 {
		granularity = defaultGranularity
	}
	h.turns = append(h.turns, Turn{Role: RoleAssistant})
	return &Reveal{
		history:     h,
		index:       len(h.turns) - 1,
		final:       []rune(final),
		granularity: granularity,
	}
}

// Advance extends the turn by one step and reports whether more text
// remains to reveal.
func (r *Reveal) Advance() bool {
	r.shown += r.granularity
	if r.shown > len(r.final) {
		r.shown = len(r.final)
	}
	r.history.turns[r.index].Text = string(r.final[:r.shown])
	return r.shown < len(r.final)
}

func (r *Reveal) Done() bool { return r.shown >= len(r.final) }
