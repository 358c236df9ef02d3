package authz

import (
	"crypto/subtle"
	"strings"
	"sync"
)

// Capability names.
const (
	// CapManageOptions is required to see the event list at all.
	CapManageOptions = "manage_options"
	// CapEditFiles gates editing and deleting user-authored code events.
	CapEditFiles = "edit_files"
)

// Capabilities is the predicate set held by the acting principal.
type Capabilities interface {
	Has(name string) bool
}

// Set is a static capability set.
type Set map[string]struct{}

func NewSet(names ...string) Set {
	s := make(Set, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n != "" {
			s[n] = struct{}{}
		}
	}
	return s
}

func (s Set) Has(name string) bool {
	_, ok := s[name]
	return ok
}

// None is the empty capability set.
var None Capabilities = Set(nil)

// Principal is an operator identity with its capabilities.
type Principal struct {
	Name         string
	TelegramID   int64
	Token        string
	Capabilities Set
}

// Directory resolves principals by Telegram id or bearer token.
//
// Update swaps the whole directory so config reloads take effect without
// restarting the surfaces.
type Directory struct {
	mu      sync.RWMutex
	byID    map[int64]Principal
	byToken []Principal
}

func NewDirectory(principals []Principal) *Directory {
	d := &Directory{}
	d.Update(principals)
	return d
}

func (d *Directory) Update(principals []Principal) {
	byID := make(map[int64]Principal, len(principals))
	byToken := make([]Principal, 0, len(principals))
	for _, p := range principals {
		if p.Capabilities == nil {
			p.Capabilities = Set{}
		}
		if p.TelegramID != 0 {
			byID[p.TelegramID] = p
		}
		if strings.TrimSpace(p.Token) != "" {
			byToken = append(byToken, p)
		}
	}
	d.mu.Lock()
	d.byID = byID
	d.byToken = byToken
	d.mu.Unlock()
}

// ByTelegramID returns the principal registered for a Telegram user.
func (d *Directory) ByTelegramID(id int64) (Principal, bool) {
	if d == nil || id == 0 {
		return Principal{}, false
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	p, ok := d.byID[id]
	return p, ok
}

// ByToken returns the principal owning a bearer token (constant-time compare).
func (d *Directory) ByToken(token string) (Principal, bool) {
	token = strings.TrimSpace(token)
	if d == nil || token == "" {
		return Principal{}, false
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, p := range d.byToken {
		if subtle.ConstantTimeCompare([]byte(p.Token), []byte(token)) == 1 {
			return p, true
		}
	}
	return Principal{}, false
}

// Len returns the number of distinct principals.
func (d *Directory) Len() int {
	if d == nil {
		return 0
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	seen := map[string]struct{}{}
	for _, p := range d.byID {
		seen[p.Name] = struct{}{}
	}
	for _, p := range d.byToken {
		seen[p.Name] = struct{}{}
	}
	return len(seen)
}
