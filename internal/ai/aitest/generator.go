// Package aitest provides a scripted ai.Generator for tests.
package aitest

import (
	"context"
	"errors"
	"sync"
)

// ErrUnexpectedCall is returned when the script has no reply left.
var ErrUnexpectedCall = errors.New("aitest: unexpected call")

// Call records one request made to the generator.
type Call struct {
	Instruction string
	Payload     string
}

// Reply is a scripted response.
type Reply struct {
	Text string
	Err  error
}

// Generator replays replies in order. A Respond func, when set, takes
// precedence over the queue.
type Generator struct {
	mu      sync.Mutex
	replies []Reply
	calls   []Call

	Respond func(instruction, payload string) (string, error)
}

// New returns a generator that answers with the given replies in order.
func New(replies ...Reply) *Generator {
	return &Generator{replies: replies}
}

// Text is shorthand for a successful reply.
func Text(s string) Reply {
	return Reply{Text: s}
}

// Fail is shorthand for a failing reply.
func Fail(err error) Reply {
	return Reply{Err: err}
}

func (g *Generator) GenerateJSON(ctx context.Context, instruction, payload string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	g.mu.Lock()
	g.calls = append(g.calls, Call{Instruction: instruction, Payload: payload})
	respond := g.Respond
	if respond != nil {
		g.mu.Unlock()
		return respond(instruction, payload)
	}
	defer g.mu.Unlock()

	if len(g.replies) == 0 {
		return "", ErrUnexpectedCall
	}
	reply := g.replies[0]
	g.replies = g.replies[1:]
	return reply.Text, reply.Err
}

func (g *Generator) Model() string {
	return "scripted"
}

// Calls returns a copy of the recorded requests.
func (g *Generator) Calls() []Call {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]Call, len(g.calls))
	copy(out, g.calls)
	return out
}
