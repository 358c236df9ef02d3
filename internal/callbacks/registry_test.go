package callbacks

import (
	"errors"
	"strings"
	"testing"
)

type sampleJob struct{}

func (*sampleJob) Run() {}

func sampleHook() {}

func TestDescriptors(t *testing.T) {
	t.Parallel()

	job := &sampleJob{}
	r := NewRegistry()
	if err := r.Add("tick", 10, sampleHook); err != nil {
		t.Fatalf("Add func: %v", err)
	}
	if err := r.Add("tick", 10, job.Run); err != nil {
		t.Fatalf("Add method: %v", err)
	}
	if err := r.Add("tick", 10, func() {}); err != nil {
		t.Fatalf("Add closure: %v", err)
	}

	got := r.Lookup("tick")
	if len(got) != 3 {
		t.Fatalf("len = %d", len(got))
	}
	if got[0].Descriptor() != "callbacks.sampleHook()" {
		t.Fatalf("func descriptor = %q", got[0].Descriptor())
	}
	if got[1].Descriptor() != "callbacks.(*sampleJob).Run()" {
		t.Fatalf("method descriptor = %q", got[1].Descriptor())
	}
	d := got[2].Descriptor()
	if !strings.HasPrefix(d, "Closure on line ") || !strings.HasSuffix(d, "of registry_test.go") {
		t.Fatalf("closure descriptor = %q", d)
	}
}

func TestLookupOrderAndDuplicates(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	_ = r.Add("h", 20, sampleHook)
	_ = r.Add("h", 5, sampleHook)
	r.AddError("h", 10, "missing_function", errors.New("function does not exist"))
	_ = r.Add("h", 5, (*sampleJob).Run)

	got := r.Lookup("h")
	if len(got) != 4 {
		t.Fatalf("duplicates should be kept, len = %d", len(got))
	}
	wantPrio := []int{5, 5, 10, 20}
	for i, cb := range got {
		if cb.Priority != wantPrio[i] {
			t.Fatalf("order[%d] priority = %d, want %d", i, cb.Priority, wantPrio[i])
		}
	}
	if got[0].Descriptor() != "callbacks.sampleHook()" {
		t.Fatalf("insertion order lost at same priority: %q", got[0].Descriptor())
	}
	if got[2].Err == nil || got[2].Name != "missing_function" {
		t.Fatalf("error registration = %+v", got[2])
	}
}

func TestLookupEmptyAndInvalid(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	if got := r.Lookup("nothing"); len(got) != 0 {
		t.Fatalf("expected no callbacks, got %d", len(got))
	}
	if err := r.Add("h", 1, "not a func"); err == nil {
		t.Fatal("expected error for non-function")
	}
	var nilFn func()
	if err := r.Add("h", 1, nilFn); err == nil {
		t.Fatal("expected error for nil function")
	}
	if len(r.Hooks()) != 0 {
		t.Fatalf("failed adds must not register hooks: %v", r.Hooks())
	}

	_ = r.Add("b", 1, sampleHook)
	_ = r.Add("a", 1, sampleHook)
	if strings.Join(r.Hooks(), ",") != "a,b" {
		t.Fatalf("hooks = %v", r.Hooks())
	}
	r.Remove("a")
	if strings.Join(r.Hooks(), ",") != "b" {
		t.Fatalf("hooks after remove = %v", r.Hooks())
	}
}

func TestSetDeclaredReplacesOnlyDeclared(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	_ = r.Add("h", 10, sampleHook)
	r.SetDeclared([]Declared{
		{Hook: "h", Priority: 5, Name: "Mailer::flush"},
		{Hook: "other", Priority: 10, Name: "cleanup"},
	})

	got := r.Lookup("h")
	if len(got) != 2 || got[0].Descriptor() != "Mailer::flush" || got[1].Descriptor() != "callbacks.sampleHook()" {
		t.Fatalf("h = %+v", got)
	}

	r.SetDeclared([]Declared{{Hook: "h", Priority: 20, Name: "Mailer::retry"}})
	got = r.Lookup("h")
	if len(got) != 2 || got[0].Descriptor() != "callbacks.sampleHook()" || got[1].Descriptor() != "Mailer::retry" {
		t.Fatalf("h after replace = %+v", got)
	}
	if hooks := r.Hooks(); len(hooks) != 1 || hooks[0] != "h" {
		t.Fatalf("hooks = %v", hooks)
	}
}
