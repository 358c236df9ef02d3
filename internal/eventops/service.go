// Package eventops performs the mutating follow-up requests built from row
// actions: run now, delete and reschedule.
//
// Every operation re-reads the event, re-evaluates the authorizer against
// the acting principal and writes an audit entry, whatever the outcome.
package eventops

import (
	"context"
	"errors"
	"fmt"
	"time"

	"crontrol/internal/actiontoken"
	"crontrol/internal/authz"
	"crontrol/internal/event"
	"crontrol/internal/schedule"
	"crontrol/internal/storage"
	logx "crontrol/pkg/logx"
)

// Surfaces recorded in the audit log.
const (
	SurfaceTelegram = "telegram"
	SurfaceHTTP     = "http"
	SurfaceCLI      = "cli"
)

// Verifier checks confirmation tokens.
type Verifier interface {
	Verify(token string) (*actiontoken.Claims, error)
	VerifyFor(token, kind, hook, sig string, at int64) (*actiontoken.Claims, error)
}

type Service struct {
	store  storage.Store
	tokens Verifier
	log    logx.Logger
	now    func() time.Time
}

func New(store storage.Store, tokens Verifier, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{store: store, tokens: tokens, log: log, now: time.Now}
}

// Actor is who performs an operation and through which surface.
type Actor struct {
	Principal authz.Principal
	Surface   string
}

// Result describes a completed operation. Event is the state after the
// mutation (zero for deletes).
type Result struct {
	Kind  authz.Kind  `json:"kind"`
	Event event.Event `json:"event"`
}

// Confirm performs the run/delete a token was issued for.
func (s *Service) Confirm(ctx context.Context, actor Actor, token string) (Result, error) {
	c, err := s.tokens.Verify(token)
	if err != nil {
		return Result{}, err
	}
	kind, ok := authz.ParseKind(c.Kind)
	if !ok || kind == authz.KindEdit {
		return Result{}, fmt.Errorf("%w: kind %q cannot be confirmed", actiontoken.ErrInvalidToken, c.Kind)
	}
	return s.confirmed(ctx, actor, kind, c.Hook, c.Sig, c.At)
}

// RunNow moves the event's next run to now. token must be a run token for
// exactly this event.
func (s *Service) RunNow(ctx context.Context, actor Actor, hook, sig string, at int64, token string) (Result, error) {
	if _, err := s.tokens.VerifyFor(token, string(authz.KindRun), hook, sig, at); err != nil {
		return Result{}, err
	}
	return s.confirmed(ctx, actor, authz.KindRun, hook, sig, at)
}

// Delete removes the event. token must be a delete token for exactly this event.
func (s *Service) Delete(ctx context.Context, actor Actor, hook, sig string, at int64, token string) (Result, error) {
	if _, err := s.tokens.VerifyFor(token, string(authz.KindDelete), hook, sig, at); err != nil {
		return Result{}, err
	}
	return s.confirmed(ctx, actor, authz.KindDelete, hook, sig, at)
}

func (s *Service) confirmed(ctx context.Context, actor Actor, kind authz.Kind, hook, sig string, at int64) (Result, error) {
	res := Result{Kind: kind}
	err := s.authorized(ctx, actor, kind, hook, sig, at, func(event.Event) error {
		switch kind {
		case authz.KindRun:
			ev, err := s.store.RunNow(ctx, hook, sig, at)
			res.Event = ev
			return err
		case authz.KindDelete:
			return s.store.Delete(ctx, hook, sig, at)
		}
		return authz.ErrNotPermitted
	})
	return res, err
}

// Reschedule sets a new recurrence. A zero sched makes the event a one-off.
// Edit does not require a confirmation token.
func (s *Service) Reschedule(ctx context.Context, actor Actor, hook, sig string, at int64, sched schedule.Schedule) (Result, error) {
	res := Result{Kind: authz.KindEdit}
	err := s.authorized(ctx, actor, authz.KindEdit, hook, sig, at, func(event.Event) error {
		ev, err := s.store.Reschedule(ctx, hook, sig, at, sched.Name, int64(sched.Interval/time.Second))
		res.Event = ev
		return err
	})
	return res, err
}

// authorized requires the list capability, loads the event, checks kind
// against the actor's capabilities and the store's current core hooks, runs
// mutate and audits the outcome.
func (s *Service) authorized(ctx context.Context, actor Actor, kind authz.Kind, hook, sig string, at int64, mutate func(event.Event) error) error {
	err := func() error {
		if !actor.Principal.Capabilities.Has(authz.CapManageOptions) {
			return authz.ErrNotPermitted
		}
		ev, err := s.store.Get(ctx, hook, sig, at)
		if err != nil {
			return err
		}
		if err := authz.Check(kind, ev, actor.Principal.Capabilities, s.store.CoreHooks()); err != nil {
			return err
		}
		return mutate(ev)
	}()
	s.audit(ctx, actor, kind, hook, sig, at, err)
	if err != nil {
		return fmt.Errorf("%s %s: %w", kind, hook, err)
	}
	return nil
}

func (s *Service) audit(ctx context.Context, actor Actor, kind authz.Kind, hook, sig string, at int64, opErr error) {
	e := storage.AuditEntry{
		At:      s.now().UTC(),
		Actor:   actor.Principal.Name,
		Surface: actor.Surface,
		Action:  string(kind),
		Hook:    hook,
		Sig:     sig,
		Time:    at,
		OK:      opErr == nil,
	}
	if opErr != nil {
		e.Error = opErr.Error()
	}
	fields := []logx.Field{
		logx.String("actor", e.Actor),
		logx.String("surface", e.Surface),
		logx.String("action", e.Action),
		logx.Event(hook, sig, at),
	}
	switch {
	case opErr == nil:
		s.log.Info("event action", fields...)
	case errors.Is(opErr, authz.ErrNotPermitted), errors.Is(opErr, storage.ErrNotFound):
		s.log.Warn("event action rejected", append(fields, logx.Err(opErr))...)
	default:
		s.log.Error("event action failed", append(fields, logx.Err(opErr))...)
	}
	if err := s.store.AppendAudit(ctx, e); err != nil {
		s.log.Warn("audit write failed", logx.Err(err))
	}
}
