package actiontoken

import (
	"errors"
	"testing"
	"time"
)

func TestSignVerifyRoundTrip(t *testing.T) {
	t.Parallel()

	iss := New("test-secret", time.Minute)
	tok, err := iss.Sign("delete", "my_task", "abc123", 1700000000)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	c, err := iss.VerifyFor(tok, "delete", "my_task", "abc123", 1700000000)
	if err != nil {
		t.Fatalf("VerifyFor: %v", err)
	}
	if c.Kind != "delete" || c.Hook != "my_task" || c.Sig != "abc123" || c.At != 1700000000 {
		t.Fatalf("claims = %+v", c)
	}
}

func TestVerifyRejects(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	iss := New("secret-a", time.Minute)
	iss.SetClock(func() time.Time { return now })

	tok, err := iss.Sign("run", "h", "s", 10)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	t.Run("mismatch", func(t *testing.T) {
		if _, err := iss.VerifyFor(tok, "delete", "h", "s", 10); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("err = %v", err)
		}
		if _, err := iss.VerifyFor(tok, "run", "h", "s", 11); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("err = %v", err)
		}
	})

	t.Run("other secret", func(t *testing.T) {
		other := New("secret-b", time.Minute)
		other.SetClock(func() time.Time { return now })
		if _, err := other.Verify(tok); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("err = %v", err)
		}
	})

	t.Run("expired", func(t *testing.T) {
		later := New("secret-a", time.Minute)
		later.SetClock(func() time.Time { return now.Add(2 * time.Minute) })
		if _, err := later.Verify(tok); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("err = %v", err)
		}
	})

	t.Run("garbage", func(t *testing.T) {
		if _, err := iss.Verify("not.a.token"); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("err = %v", err)
		}
	})
}

func TestRandomSecretDefaults(t *testing.T) {
	t.Parallel()

	a := New("", 0)
	b := New("", 0)
	if a.ttl != DefaultTTL {
		t.Fatalf("ttl = %v", a.ttl)
	}
	tok, err := a.Sign("run", "h", "s", 1)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if _, err := b.Verify(tok); err == nil {
		t.Fatal("random secrets should differ")
	}
}
