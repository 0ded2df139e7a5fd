package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestInt(t *testing.T) {
	t.Setenv("ADVANCE_NOTICE_MINUTES", "90")
	n, err := Int("ADVANCE_NOTICE_MINUTES", 120, 0, 1440)
	if err != nil || n != 90 {
		t.Fatalf("expected 90, got %d (%v)", n, err)
	}

	t.Setenv("ADVANCE_NOTICE_MINUTES", "")
	n, err = Int("ADVANCE_NOTICE_MINUTES", 120, 0, 1440)
	if err != nil || n != 120 {
		t.Fatalf("expected fallback 120, got %d (%v)", n, err)
	}

	t.Setenv("ADVANCE_NOTICE_MINUTES", "5000")
	if _, err := Int("ADVANCE_NOTICE_MINUTES", 120, 0, 1440); err == nil {
		t.Fatal("expected out of range error")
	}
}

func TestBoolAndDuration(t *testing.T) {
	t.Setenv("MIGRATE_ON_START", "true")
	b, err := Bool("MIGRATE_ON_START", false)
	if err != nil || !b {
		t.Fatalf("expected true, got %v (%v)", b, err)
	}
	t.Setenv("OUTBOX_POLL", "3s")
	d, err := Duration("OUTBOX_POLL", time.Second)
	if err != nil || d != 3*time.Second {
		t.Fatalf("expected 3s, got %s (%v)", d, err)
	}
	t.Setenv("OUTBOX_POLL", "soon")
	if _, err := Duration("OUTBOX_POLL", time.Second); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLocation(t *testing.T) {
	loc, err := Location("SHOP_TIMEZONE_UNSET_FOR_TEST", "UTC")
	if err != nil || loc != time.UTC {
		t.Fatalf("expected UTC, got %v (%v)", loc, err)
	}
	t.Setenv("SHOP_TIMEZONE", "Not/AZone")
	if _, err := Location("SHOP_TIMEZONE", "UTC"); err == nil {
		t.Fatal("expected invalid zone error")
	}
}

func TestList(t *testing.T) {
	t.Setenv("CORS_ALLOWED_ORIGINS", " https://a.example , ,https://b.example")
	got := List("CORS_ALLOWED_ORIGINS")
	if len(got) != 2 || got[0] != "https://a.example" || got[1] != "https://b.example" {
		t.Fatalf("unexpected list: %#v", got)
	}
}

func TestLoadDotenv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")
	if err := os.WriteFile(path, []byte("RESERVA_DOTENV_PROBE=loaded\n"), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Setenv("RESERVA_DOTENV_PROBE", "")
	os.Unsetenv("RESERVA_DOTENV_PROBE")

	if err := LoadDotenv(path, filepath.Join(dir, "missing.env")); err != nil {
		t.Fatalf("LoadDotenv: %v", err)
	}
	if got := os.Getenv("RESERVA_DOTENV_PROBE"); got != "loaded" {
		t.Fatalf("expected loaded, got %q", got)
	}
}
