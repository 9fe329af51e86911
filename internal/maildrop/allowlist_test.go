package maildrop

import (
	"os"
	"path/filepath"
	"testing"
)

func writeAllowlist(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "allowlist.txt")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestAllowlistExactMatch(t *testing.T) {
	path := writeAllowlist(t, "jane@acmetrading.co.uk\n")
	al, err := LoadAllowlist(path)
	if err != nil {
		t.Fatal(err)
	}

	if !al.IsAllowed("jane@acmetrading.co.uk") {
		t.Error("exact address should be allowed")
	}
	if al.IsAllowed("eve@globex.com") {
		t.Error("unknown address should be blocked")
	}
}

func TestAllowlistDomainWildcard(t *testing.T) {
	path := writeAllowlist(t, "@acmetrading.co.uk\n")
	al, err := LoadAllowlist(path)
	if err != nil {
		t.Fatal(err)
	}

	if !al.IsAllowed("anyone@acmetrading.co.uk") {
		t.Error("domain wildcard should match any user at the domain")
	}
	if al.IsAllowed("anyone@globex.com") {
		t.Error("other domains should be blocked")
	}
}

func TestAllowlistCaseInsensitive(t *testing.T) {
	path := writeAllowlist(t, "Jane@AcmeTrading.co.uk\n")
	al, err := LoadAllowlist(path)
	if err != nil {
		t.Fatal(err)
	}

	if !al.IsAllowed("JANE@acmetrading.CO.UK") {
		t.Error("matching must ignore case")
	}
}

func TestAllowlistCommentsAndBlanks(t *testing.T) {
	path := writeAllowlist(t, "# debtor contacts\n\njane@acmetrading.co.uk\n  \n# end\n")
	al, err := LoadAllowlist(path)
	if err != nil {
		t.Fatal(err)
	}

	if !al.IsAllowed("jane@acmetrading.co.uk") {
		t.Error("address should be allowed")
	}
	if al.IsAllowed("# debtor contacts") {
		t.Error("comment lines are not patterns")
	}
}

func TestAllowlistMissingFile(t *testing.T) {
	if _, err := LoadAllowlist(filepath.Join(t.TempDir(), "absent.txt")); err == nil {
		t.Error("expected error for missing allowlist file")
	}
}
