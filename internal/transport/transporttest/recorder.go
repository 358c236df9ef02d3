// Package transporttest provides an in-memory transport.Adapter for tests.
package transporttest

import (
	"context"
	"sync"

	kit "crontrol/internal/transport"
)

// Sent is one recorded SendText or EditText call.
type Sent struct {
	Edit bool
	Ref  kit.MessageRef
	Text string
	Opt  kit.SendOptions
}

// Recorder records outgoing calls. The zero value is ready to use.
type Recorder struct {
	mu      sync.Mutex
	nextID  int
	sent    []Sent
	answers map[string][]string
}

var _ kit.Adapter = (*Recorder)(nil)

func (r *Recorder) Start(context.Context, chan<- kit.Update) error { return nil }
func (r *Recorder) Stop(context.Context) error                     { return nil }

func (r *Recorder) SendText(_ context.Context, to kit.ChatTarget, text string, opt *kit.SendOptions) (kit.MessageRef, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	ref := to.At(r.nextID)
	r.sent = append(r.sent, Sent{Ref: ref, Text: text, Opt: deref(opt)})
	return ref, nil
}

func (r *Recorder) EditText(_ context.Context, ref kit.MessageRef, text string, opt *kit.SendOptions) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, Sent{Edit: true, Ref: ref, Text: text, Opt: deref(opt)})
	return nil
}

func (r *Recorder) AnswerCallback(_ context.Context, id string, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.answers == nil {
		r.answers = map[string][]string{}
	}
	r.answers[id] = append(r.answers[id], text)
	return nil
}

// Sent returns a copy of every recorded send/edit.
func (r *Recorder) Sent() []Sent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Sent(nil), r.sent...)
}

// Last returns the most recent send/edit.
func (r *Recorder) Last() (Sent, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.sent) == 0 {
		return Sent{}, false
	}
	return r.sent[len(r.sent)-1], true
}

// Answers returns the texts answered for a callback id.
func (r *Recorder) Answers(id string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.answers[id]...)
}

func deref(opt *kit.SendOptions) kit.SendOptions {
	if opt == nil {
		return kit.SendOptions{}
	}
	return *opt
}
