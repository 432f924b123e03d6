package main

import (
	"encoding/json"
	"testing"

	"lingo/internal/services/backend"
)

func TestKeysLifecycle(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := env.run(t, "keys", "list")
	if err != nil {
		t.Fatalf("keys list: %v", err)
	}
	requireContains(t, out, "No API keys")

	out, _, err = env.run(t, "--json", "keys", "create", "--name", "ci", "--scope", "translate_text,translate_audio")
	if err != nil {
		t.Fatalf("keys create: %v", err)
	}
	var created backend.CreatedKey
	if err := json.Unmarshal([]byte(out), &created); err != nil {
		t.Fatalf("decode: %v (%s)", err, out)
	}
	if created.Secret == "" || created.ID == "" {
		t.Fatalf("expected id and secret, got %+v", created)
	}

	out, _, err = env.run(t, "keys", "list")
	if err != nil {
		t.Fatalf("keys list: %v", err)
	}
	requireContains(t, out, created.ID)
	requireContains(t, out, "Translate Audio")
	requireNotContains(t, out, created.Secret)

	out, _, err = env.run(t, "keys", "delete", created.ID)
	if err != nil {
		t.Fatalf("keys delete: %v", err)
	}
	requireContains(t, out, "Deleted key "+created.ID)

	_, _, err = env.run(t, "keys", "delete", created.ID)
	if err == nil {
		t.Fatal("expected error deleting a missing key")
	}
	requireContains(t, err.Error(), "not found")
}

func TestKeysCreatePrintsSecretOnce(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := env.run(t, "keys", "create", "--name", "staging")
	if err != nil {
		t.Fatalf("keys create: %v", err)
	}
	requireContains(t, out, `Created key "staging"`)
	requireContains(t, out, "Scopes: translate_text")
	requireContains(t, out, "Secret: lk_live_fake")
	requireContains(t, out, "cannot be shown again")
}

func TestKeysCreateValidatesInput(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := env.run(t, "keys", "create", "--name", "x", "--scope", "translate_everything")
	if err == nil {
		t.Fatal("expected unknown scope error")
	}
	requireContains(t, err.Error(), "unknown scope")

	_, _, err = env.run(t, "keys", "create")
	if err == nil {
		t.Fatal("expected missing name error")
	}
	requireContains(t, err.Error(), "--name is required")

	if n := len(env.backend.Requests()); n != 0 {
		t.Fatalf("expected no backend requests, got %d", n)
	}
}
