package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/communiconnect/backend/internal/auth"
)

func TestRunRejectsUnknownCommands(t *testing.T) {
	if err := Run(context.Background(), nil); err == nil {
		t.Fatal("expected error without a command")
	}
	if err := Run(context.Background(), []string{"explode"}); err == nil || !strings.Contains(err.Error(), "explode") {
		t.Fatalf("expected unknown command error got %v", err)
	}
	if err := Run(context.Background(), []string{"migrate", "down"}); err == nil {
		t.Fatal("expected down migrations to be rejected")
	}
}

func TestIssueToken(t *testing.T) {
	t.Setenv("COMMUNICONNECT_JWT_SECRET", "cli-secret")

	var out bytes.Buffer
	if err := issueToken([]string{"user-1", "5m"}, &out); err != nil {
		t.Fatalf("issue token: %v", err)
	}

	subject, err := auth.NewTokens("cli-secret").Verify(strings.TrimSpace(out.String()))
	if err != nil {
		t.Fatalf("verify issued token: %v", err)
	}
	if subject != "user-1" {
		t.Fatalf("expected subject user-1 got %q", subject)
	}

	if err := issueToken([]string{"user-1", "soon"}, &out); err == nil {
		t.Fatal("expected malformed ttl to be rejected")
	}
	if err := issueToken(nil, &out); err == nil {
		t.Fatal("expected missing user id to be rejected")
	}
}

func TestListSQLFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"0002_b.sql", "0001_a.sql", "README.md"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("--"), 0o600); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "0003_dir.sql"), 0o700); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	got, err := listSQLFiles(dir)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	want := []string{"0001_a.sql", "0002_b.sql"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v got %v", want, got)
	}
}

func TestRepositoryMigrationsAreOrdered(t *testing.T) {
	got, err := listSQLFiles(filepath.Join("..", "..", "migrations"))
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) < 2 || !strings.Contains(got[0], "users") || !strings.Contains(got[1], "friendships") {
		t.Fatalf("expected users migration before friendships got %v", got)
	}
}

func TestSeedFileName(t *testing.T) {
	tests := map[string]string{
		"dev":          "dev_seed.sql",
		"dev_seed.sql": "dev_seed.sql",
		"custom.sql":   "custom.sql",
	}
	for in, want := range tests {
		if got := seedFileName(in); got != want {
			t.Fatalf("seedFileName(%q) = %q want %q", in, got, want)
		}
	}
}

func TestMigrationBackoff(t *testing.T) {
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{attempt: 1, want: migrationBaseBackoff},
		{attempt: 2, want: 2 * migrationBaseBackoff},
		{attempt: 10, want: migrationMaxBackoff},
	}
	for _, tt := range tests {
		if got := migrationBackoff(tt.attempt); got != tt.want {
			t.Fatalf("attempt %d: expected %s got %s", tt.attempt, tt.want, got)
		}
	}
}

func TestShouldRetryMigration(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "serialization failure", err: &pgconn.PgError{Code: "40001"}, want: true},
		{name: "wrapped deadlock", err: fmt.Errorf("apply: %w", &pgconn.PgError{Code: "40P01"}), want: true},
		{name: "syntax error", err: &pgconn.PgError{Code: "42601"}, want: false},
		{name: "deadline", err: context.DeadlineExceeded, want: true},
		{name: "tx closed", err: pgx.ErrTxClosed, want: true},
		{name: "other", err: errors.New("boom"), want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := shouldRetryMigration(tt.err); got != tt.want {
				t.Fatalf("expected %v got %v", tt.want, got)
			}
		})
	}
}
