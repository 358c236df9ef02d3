package config

import (
	"errors"
	"testing"
	"time"
)

func TestParseDurationField(t *testing.T) {
	t.Parallel()

	cases := []struct {
		raw     string
		def     time.Duration
		want    time.Duration
		wantErr bool
	}{
		{"", time.Minute, time.Minute, false},
		{"0s", time.Minute, time.Minute, false},
		{" 90s ", time.Minute, 90 * time.Second, false},
		{"-1s", time.Minute, 0, true},
		{"soon", time.Minute, 0, true},
	}
	for _, tc := range cases {
		got, err := ParseDurationOrDefault("tokens.ttl", tc.raw, tc.def)
		if (err != nil) != tc.wantErr || got != tc.want {
			t.Fatalf("%q: got %v, %v", tc.raw, got, err)
		}
		var fe *FieldError
		if err != nil && (!errors.As(err, &fe) || fe.Path != "tokens.ttl") {
			t.Fatalf("%q: error %v is not a tokens.ttl FieldError", tc.raw, err)
		}
	}
}

func TestStorageDriverAndTimezone(t *testing.T) {
	t.Parallel()

	for raw, want := range map[string]string{"": "memory", "File": "file", "sqlite3": "sqlite"} {
		if got, err := StorageDriver(raw); err != nil || got != want {
			t.Fatalf("StorageDriver(%q) = %q, %v", raw, got, err)
		}
	}
	if _, err := StorageDriver("redis"); err == nil {
		t.Fatal("expected unknown driver error")
	}

	if loc, err := ParseTimezone(""); err != nil || loc != time.Local {
		t.Fatalf("empty tz = %v, %v", loc, err)
	}
	if loc, err := ParseTimezone("UTC"); err != nil || loc.String() != "UTC" {
		t.Fatalf("UTC = %v, %v", loc, err)
	}
	if _, err := ParseTimezone("Mars/Olympus"); err == nil {
		t.Fatal("expected bad timezone error")
	}
}
