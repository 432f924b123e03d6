package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"lingo/internal/history"
)

func TestGlossaryCommands(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := env.run(t, "--json", "glossary", "add", "Dashboard", "--category", "UI", "--tr", "hindi=डैशबोर्ड", "--tr", "fr=tableau de bord")
	if err != nil {
		t.Fatalf("glossary add: %v", err)
	}
	var term history.Term
	if err := json.Unmarshal([]byte(out), &term); err != nil {
		t.Fatalf("decode: %v (%s)", err, out)
	}
	if term.Category != "ui" || term.Translations["hi"] != "डैशबोर्ड" {
		t.Fatalf("unexpected term %+v", term)
	}

	_, _, err = env.run(t, "glossary", "add", "dashboard")
	if err == nil {
		t.Fatal("expected duplicate term error")
	}
	requireContains(t, err.Error(), "already exists")

	if _, _, err := env.run(t, "glossary", "set", term.ID, "German", "Übersicht"); err != nil {
		t.Fatalf("glossary set: %v", err)
	}

	out, _, err = env.run(t, "glossary", "list", "dash")
	if err != nil {
		t.Fatalf("glossary list: %v", err)
	}
	requireContains(t, out, "Dashboard")
	requireContains(t, out, "de=Übersicht")

	out, _, err = env.run(t, "glossary", "remove", term.ID)
	if err != nil {
		t.Fatalf("glossary remove: %v", err)
	}
	requireContains(t, out, "Removed glossary term")

	out, _, err = env.run(t, "glossary", "list")
	if err != nil {
		t.Fatalf("glossary list: %v", err)
	}
	requireContains(t, out, "Glossary is empty")
}

func TestGlossaryRejectsMalformedTranslation(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := env.run(t, "glossary", "add", "Upload", "--tr", "hindi")
	if err == nil {
		t.Fatal("expected malformed --tr error")
	}
	requireContains(t, err.Error(), "want lang=value")
}

func TestFeedbackCommands(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := env.run(t, "feedback", "submit", "subtitles", "drift", "after", "ten", "minutes", "--category", "bug", "--email", "qa@example.com")
	if err != nil {
		t.Fatalf("feedback submit: %v", err)
	}
	requireContains(t, out, "Saved bug feedback")

	_, _, err = env.run(t, "feedback", "submit", "hello", "--category", "praise")
	if err == nil {
		t.Fatal("expected invalid category error")
	}
	requireContains(t, err.Error(), "feedback category")

	out, _, err = env.run(t, "feedback", "list")
	if err != nil {
		t.Fatalf("feedback list: %v", err)
	}
	requireContains(t, out, "subtitles drift after ten minutes")
	requireContains(t, out, "qa@example.com")
}

func TestLanguagesAndScopesCommands(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := env.run(t, "languages")
	if err != nil {
		t.Fatalf("languages: %v", err)
	}
	requireContains(t, out, "Hindi")
	requireContains(t, out, "Chinese (Simplified)")
	requireContains(t, out, "--to ALL22")

	out, _, err = env.run(t, "--json", "scopes")
	if err != nil {
		t.Fatalf("scopes: %v", err)
	}
	var scopes []struct {
		ID      string `json:"id"`
		Default bool   `json:"default"`
	}
	if err := json.Unmarshal([]byte(out), &scopes); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(scopes) != 4 || scopes[0].ID != "translate_text" || !scopes[0].Default {
		t.Fatalf("unexpected scopes %+v", scopes)
	}
}

func TestConfigCommands(t *testing.T) {
	env := setupCLITestEnv(t)

	target := filepath.Join(env.baseDir, "generated", "config.toml")
	out, _, err := runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration to "+target)
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected sample config: %v", err)
	}
	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err == nil {
		t.Fatal("expected error when config exists")
	}

	out, _, err = env.run(t, "config", "validate")
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Config path: "+env.configPath)
	requireContains(t, out, "Configuration valid")

	out, _, err = env.run(t, "config", "show")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	requireContains(t, out, env.backend.URL())
	requireContains(t, out, "********-key")
	requireNotContains(t, out, `"`+testAPIKey+`"`)
}

func TestDoctorCommand(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, _ := env.run(t, "--json", "doctor")
	var results []struct {
		Name   string `json:"name"`
		Passed bool   `json:"passed"`
	}
	if err := json.Unmarshal([]byte(out), &results); err != nil {
		t.Fatalf("decode: %v (%s)", err, out)
	}
	passed := map[string]bool{}
	for _, r := range results {
		passed[r.Name] = r.Passed
	}
	for _, name := range []string{"Configuration", "Backend", "API key"} {
		if !passed[name] {
			t.Fatalf("expected %s check to pass: %+v", name, results)
		}
	}

	_, _, err := env.run(t, "--key", "bogus", "doctor")
	if err == nil {
		t.Fatal("expected doctor to fail with a rejected key")
	}
	requireContains(t, err.Error(), "checks failed")
}
