// Package callbacks records which Go functions are attached to a hook and
// renders a readable descriptor for each of them.
package callbacks

import (
	"fmt"
	"path/filepath"
	"reflect"
	"regexp"
	"runtime"
	"sort"
	"strings"
	"sync"
)

// Callback is one registration of a function on a hook.
type Callback struct {
	Hook     string
	Priority int
	// Name is the fully-qualified function or method name, or a closure
	// descriptor.
	Name string
	File string
	Line int
	// Err is set when the registration itself is broken (e.g. the target
	// could not be resolved).
	Err error

	seq      int
	declared bool
}

// Descriptor is the human-readable name shown in listings.
func (c Callback) Descriptor() string { return c.Name }

// Registry is a hook → callbacks table. Safe for concurrent use.
//
// Every registration is kept; the same function added at two priorities is
// listed twice.
type Registry struct {
	mu    sync.RWMutex
	hooks map[string][]Callback
	seq   int
}

func NewRegistry() *Registry {
	return &Registry{hooks: map[string][]Callback{}}
}

// Add attaches fn to hook. fn must be a func value.
func (r *Registry) Add(hook string, priority int, fn any) error {
	name, file, line, err := describe(fn)
	if err != nil {
		return err
	}
	r.add(Callback{Hook: hook, Priority: priority, Name: name, File: file, Line: line})
	return nil
}

// AddError records a callback that could not be resolved.
func (r *Registry) AddError(hook string, priority int, name string, cause error) {
	r.add(Callback{Hook: hook, Priority: priority, Name: name, Err: cause})
}

func (r *Registry) add(cb Callback) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	cb.seq = r.seq
	r.hooks[cb.Hook] = append(r.hooks[cb.Hook], cb)
}

// Declared is a callback known only by name, attached by the process that
// runs the events rather than by this one.
type Declared struct {
	Hook     string
	Priority int
	Name     string
}

// SetDeclared replaces every callback previously set through SetDeclared.
// Callbacks added with Add or AddError are kept.
func (r *Registry) SetDeclared(list []Declared) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for hook, cbs := range r.hooks {
		kept := cbs[:0]
		for _, cb := range cbs {
			if !cb.declared {
				kept = append(kept, cb)
			}
		}
		if len(kept) == 0 {
			delete(r.hooks, hook)
		} else {
			r.hooks[hook] = kept
		}
	}
	for _, d := range list {
		r.seq++
		r.hooks[d.Hook] = append(r.hooks[d.Hook], Callback{
			Hook:     d.Hook,
			Priority: d.Priority,
			Name:     d.Name,
			seq:      r.seq,
			declared: true,
		})
	}
}

// Remove drops every registration on hook.
func (r *Registry) Remove(hook string) {
	r.mu.Lock()
	delete(r.hooks, hook)
	r.mu.Unlock()
}

// Lookup returns the callbacks on hook ordered by priority, then
// registration order. No callbacks is a valid result.
func (r *Registry) Lookup(hook string) []Callback {
	r.mu.RLock()
	src := r.hooks[hook]
	out := make([]Callback, len(src))
	copy(out, src)
	r.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority < out[j].Priority
		}
		return out[i].seq < out[j].seq
	})
	return out
}

// Hooks returns every hook with at least one callback, sorted.
func (r *Registry) Hooks() []string {
	r.mu.RLock()
	out := make([]string, 0, len(r.hooks))
	for h, cbs := range r.hooks {
		if len(cbs) > 0 {
			out = append(out, h)
		}
	}
	r.mu.RUnlock()
	sort.Strings(out)
	return out
}

var reClosure = regexp.MustCompile(`\.(func|gowrap)\d+(\.\d+)*$`)

// describe derives a stable display name for fn.
func describe(fn any) (name, file string, line int, err error) {
	if fn == nil {
		return "", "", 0, fmt.Errorf("callbacks: nil function")
	}
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func {
		return "", "", 0, fmt.Errorf("callbacks: %T is not a function", fn)
	}
	if v.IsNil() {
		return "", "", 0, fmt.Errorf("callbacks: nil function")
	}
	rf := runtime.FuncForPC(v.Pointer())
	if rf == nil {
		return "", "", 0, fmt.Errorf("callbacks: cannot resolve %T", fn)
	}
	full := rf.Name()
	file, line = rf.FileLine(rf.Entry())

	if reClosure.MatchString(full) {
		return fmt.Sprintf("Closure on line %d of %s", line, filepath.Base(file)), file, line, nil
	}
	return shortName(full) + "()", file, line, nil
}

// shortName trims the import path and the method-value suffix:
// "crontrol/internal/jobs.(*Cleaner).Run-fm" → "jobs.(*Cleaner).Run".
func shortName(full string) string {
	full = strings.TrimSuffix(full, "-fm")
	if i := strings.LastIndex(full, "/"); i >= 0 {
		full = full[i+1:]
	}
	return full
}
