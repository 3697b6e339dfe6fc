package mcp

import (
	"context"
	"testing"

	"github.com/forest6511/deskvault/internal/logging"
	"github.com/forest6511/deskvault/pkg/store"
	"github.com/forest6511/deskvault/pkg/vault"
)

const testPassword = "testpassword123"

// testSession creates an unlocked vault session over an in-memory store.
func testSession(t *testing.T) *vault.Session {
	t.Helper()
	sess := vault.New(store.New(store.NewMemory()), vault.WithLogger(logging.Discard()))
	if err := sess.Create(context.Background(), []byte(testPassword), []byte(testPassword)); err != nil {
		t.Fatalf("failed to create vault: %v", err)
	}
	return sess
}

// testServer returns a server whose policy allows every tool.
func testServer(t *testing.T) (*Server, *vault.Session) {
	t.Helper()
	sess := testSession(t)
	dir := t.TempDir()
	writePolicy(t, dir, "version: 1\ndefault_action: allow\n", 0600)

	srv, err := NewServer(sess, &ServerOptions{PolicyDir: dir, Logger: logging.Discard()})
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}
	return srv, sess
}

func TestNewServer_LockedSession(t *testing.T) {
	sess := vault.New(store.New(store.NewMemory()), vault.WithLogger(logging.Discard()))
	if _, err := NewServer(sess, nil); err == nil {
		t.Fatal("expected error for a locked session")
	}
}

func TestNewServer_DefaultPolicy(t *testing.T) {
	sess := testSession(t)

	srv, err := NewServer(sess, &ServerOptions{PolicyDir: t.TempDir(), Logger: logging.Discard()})
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}
	if ok, _ := srv.policy.IsToolAllowed("task_add"); ok {
		t.Error("without a policy file task_add should be denied")
	}
	if ok, _ := srv.policy.IsToolAllowed("task_list"); !ok {
		t.Error("without a policy file task_list should be allowed")
	}
}

func TestNewServer_BadPolicyFallsBack(t *testing.T) {
	sess := testSession(t)
	dir := t.TempDir()
	writePolicy(t, dir, "version: 7\n", 0600)

	srv, err := NewServer(sess, &ServerOptions{PolicyDir: dir, Logger: logging.Discard()})
	if err != nil {
		t.Fatalf("a broken policy should not stop the server: %v", err)
	}
	if ok, _ := srv.policy.IsToolAllowed("task_move"); ok {
		t.Error("a broken policy should fall back to read-only")
	}
}

func TestNewServer_LoadsPolicy(t *testing.T) {
	srv, _ := testServer(t)
	if srv.policy.DefaultAction != ActionAllow {
		t.Errorf("expected the policy file to be used, got %+v", srv.policy)
	}
}

func TestServer_CloseLocksSession(t *testing.T) {
	srv, sess := testServer(t)
	if err := srv.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if sess.State() != vault.StateLocked {
		t.Errorf("state after Close = %s, want locked", sess.State())
	}
}
