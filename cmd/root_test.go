package cmd

import (
	"context"
	"strings"
	"testing"
)

// TestExecute_Version verifies --version prints a version string.
func TestExecute_Version(t *testing.T) {
	err := Execute(context.Background(), []string{"--version"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// TestExecute_Help verifies --help returns without error.
func TestExecute_Help(t *testing.T) {
	err := Execute(context.Background(), []string{"--help"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// TestExecute_NoArgs verifies a bare invocation is a usage error, not
// a clean exit.
func TestExecute_NoArgs(t *testing.T) {
	err := Execute(context.Background(), nil)
	if err == nil {
		t.Fatal("expected usage error")
	}
	if !strings.Contains(err.Error(), "server") {
		t.Errorf("error should mention the missing server: %v", err)
	}
}

// TestExecute_DryRun verifies --dry-run validates and exits cleanly.
func TestExecute_DryRun(t *testing.T) {
	err := Execute(context.Background(), []string{
		"--dry-run", "vasya@chat.example.com", "lobby",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// TestExecute_DryRunMissingRoom verifies --dry-run still catches bad
// configs.
func TestExecute_DryRunMissingRoom(t *testing.T) {
	err := Execute(context.Background(), []string{
		"--dry-run", "vasya@chat.example.com",
	})
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(err.Error(), "room") {
		t.Errorf("error should mention room: %v", err)
	}
}

// TestExecute_BadTarget verifies target parse failures surface.
func TestExecute_BadTarget(t *testing.T) {
	err := Execute(context.Background(), []string{
		"--dry-run", "vasya@chat.example.com:99999", "lobby",
	})
	if err == nil {
		t.Fatal("expected error for out-of-range port")
	}
}

// TestExecute_TunnelSpec verifies -T is parsed into tunnel settings.
func TestExecute_TunnelSpec(t *testing.T) {
	err := Execute(context.Background(), []string{
		"--dry-run", "-T", "admin@bastion.example.com:2222",
		"vasya@chat.example.com", "lobby",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// TestExecute_BadTunnelSpec verifies tunnel parse failures surface.
func TestExecute_BadTunnelSpec(t *testing.T) {
	err := Execute(context.Background(), []string{
		"--dry-run", "-T", "admin@bastion:notaport extra",
		"vasya@chat.example.com", "lobby",
	})
	if err == nil {
		t.Fatal("expected error for bad tunnel spec")
	}
}

// TestExecute_InvalidFlags verifies unknown flags produce an error.
func TestExecute_InvalidFlags(t *testing.T) {
	err := Execute(context.Background(), []string{"--nonexistent-flag"})
	if err == nil {
		t.Fatal("expected error for unknown flag")
	}
}

// TestExecute_TooManyArgs verifies extra positionals are rejected.
func TestExecute_TooManyArgs(t *testing.T) {
	err := Execute(context.Background(), []string{
		"--dry-run", "chat.example.com", "lobby", "extra",
	})
	if err == nil {
		t.Fatal("expected error for extra arguments")
	}
}
