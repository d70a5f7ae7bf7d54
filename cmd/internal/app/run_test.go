package app

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"authkit/cmd/authz/privilege"
	"authkit/cmd/internal/auth/token"

	"github.com/prometheus/client_golang/prometheus"
)

func TestRun_UsageErrors(t *testing.T) {
	t.Setenv("AUTHKIT_DATABASE_URL", "")

	cases := [][]string{
		nil,
		{"-env", "", "nope"},
		{"-env", "", "grant", "1"},
		{"-env", "", "grant", "x", "read:article"},
		{"-env", "", "expire", "1", "read:article", "tomorrow"},
		{"-env", "", "revoke", "-expire-before", "2030-01-01T00:00:00Z", "1", "read:article"},
		{"-unknown-flag"},
	}
	for _, args := range cases {
		err := Run(args, &bytes.Buffer{})
		if !errors.Is(err, ErrUsage) {
			t.Fatalf("Run(%q): expected ErrUsage, got %v", args, err)
		}
	}
}

func TestRun_InvalidPrivilege(t *testing.T) {
	err := Run([]string{"-env", "", "grant", "1", "Read:article"}, &bytes.Buffer{})
	if !errors.Is(err, privilege.ErrInvalidFormat) {
		t.Fatalf("expected ErrInvalidFormat, got %v", err)
	}
}

func TestRun_DatabaseCommandsNeedURL(t *testing.T) {
	t.Setenv("AUTHKIT_DATABASE_URL", "")

	for _, cmd := range []string{"migrate", "purge-sessions", "metrics"} {
		if err := Run([]string{"-env", "", cmd}, &bytes.Buffer{}); !errors.Is(err, ErrNoDatabase) {
			t.Fatalf("%s: expected ErrNoDatabase, got %v", cmd, err)
		}
	}
	if err := Run([]string{"-env", "", "check", "1", "read:article"}, &bytes.Buffer{}); !errors.Is(err, ErrNoDatabase) {
		t.Fatalf("check: expected ErrNoDatabase, got %v", err)
	}
}

func TestRun_Keygen(t *testing.T) {
	var out bytes.Buffer
	if err := Run([]string{"-env", "", "keygen", "-bits", "1024"}, &out); err != nil {
		t.Fatalf("keygen: %v", err)
	}

	head, pemData, ok := strings.Cut(out.String(), "\n")
	if !ok || !strings.HasPrefix(head, "AUTHKIT_RSA_KEY_ID=") {
		t.Fatalf("unexpected keygen output %q", out.String())
	}
	if _, err := token.ParsePrivateKeyPEM(pemData); err != nil {
		t.Fatalf("keygen PEM does not parse: %v", err)
	}
}

func TestParsePrivilegeCommand(t *testing.T) {
	got, err := parsePrivilegeCommand("check", []string{"-expire-before", "2030-01-01T02:00:00+02:00", "42", "edit:comment@7"})
	if err != nil {
		t.Fatalf("parsePrivilegeCommand: %v", err)
	}
	if got.userID != 42 || !got.priv.Equal(privilege.New("edit", "comment").WithResID(7)) {
		t.Fatalf("unexpected args: %+v", got)
	}
	want := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	if got.at == nil || !got.at.Equal(want) || got.at.Location() != time.UTC {
		t.Fatalf("at=%v want %v in UTC", got.at, want)
	}

	got, err = parsePrivilegeCommand("list", []string{"9"})
	if err != nil || got.userID != 9 || got.at != nil {
		t.Fatalf("list: %+v, %v", got, err)
	}
}

func TestWriteMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := prometheus.NewCounter(prometheus.CounterOpts{Namespace: "authkit", Name: "test_total", Help: "test counter"})
	reg.MustRegister(c)
	c.Add(3)

	var out bytes.Buffer
	if err := writeMetrics(&out, reg); err != nil {
		t.Fatalf("writeMetrics: %v", err)
	}
	for _, want := range []string{"# HELP authkit_test_total test counter", "# TYPE authkit_test_total counter", "authkit_test_total 3"} {
		if !strings.Contains(out.String(), want) {
			t.Fatalf("output %q missing %q", out.String(), want)
		}
	}
}
