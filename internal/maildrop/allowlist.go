package maildrop

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// Allowlist decides which sender addresses may create jobs. Debt-collection
// inboxes receive plenty of spam and out-of-office noise from unknown
// addresses; only configured debtor contacts get through.
type Allowlist struct {
	exact   map[string]bool
	domains []string
}

// LoadAllowlist reads an allowlist file, one pattern per line. Lines starting
// with # are comments, blank lines are skipped. A pattern is either an exact
// email address or an @domain.com wildcard matching every user at the domain.
func LoadAllowlist(path string) (*Allowlist, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open allowlist: %w", err)
	}
	defer func() { _ = f.Close() }()

	al := &Allowlist{exact: make(map[string]bool)}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.ToLower(strings.TrimSpace(scanner.Text()))
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "@") {
			al.domains = append(al.domains, line)
		} else {
			al.exact[line] = true
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read allowlist: %w", err)
	}
	return al, nil
}

// IsAllowed reports whether the sender matches the allowlist.
// Matching is case-insensitive.
func (a *Allowlist) IsAllowed(sender string) bool {
	sender = strings.ToLower(sender)
	if a.exact[sender] {
		return true
	}
	for _, d := range a.domains {
		if strings.HasSuffix(sender, d) {
			return true
		}
	}
	return false
}
