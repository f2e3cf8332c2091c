package whitelist_test

import (
	"os"
	"path/filepath"
	"testing"

	"git.sr.ht/~jakintosh/attest/internal/whitelist"
)

func writeWhitelist(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clients")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("failed to write whitelist file: %v", err)
	}
	return path
}

func TestLoad_AllowsListedClients(t *testing.T) {
	t.Parallel()
	path := writeWhitelist(t, "web-app\nmobile-app\n")

	w, err := whitelist.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if !w.IsAllowed("web-app") || !w.IsAllowed("mobile-app") {
		t.Error("listed clients should be allowed")
	}
	if w.IsAllowed("rogue-app") {
		t.Error("unlisted client should be rejected")
	}
}

func TestLoad_IgnoresCommentsAndBlankLines(t *testing.T) {
	t.Parallel()
	path := writeWhitelist(t, "# first-party clients\n\nweb-app\n  \n# disabled\n#old-app\n")

	w, err := whitelist.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if !w.IsAllowed("web-app") {
		t.Error("listed client should be allowed")
	}
	if w.IsAllowed("old-app") || w.IsAllowed("#old-app") {
		t.Error("commented client should be rejected")
	}
	if w.IsAllowed("") {
		t.Error("empty client id should be rejected")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()
	_, err := whitelist.Load(filepath.Join(t.TempDir(), "does-not-exist"))
	if err == nil {
		t.Error("expected error for missing whitelist file")
	}
}
