package audit

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
)

// VerifyResult reports whether a verdict log's hash chain is intact.
type VerifyResult struct {
	Valid     bool   `json:"valid"`
	Lines     int    `json:"lines"`
	Error     string `json:"error,omitempty"`
	ErrorLine int    `json:"error_line,omitempty"`
}

func broken(line int, format string, args ...any) VerifyResult {
	return VerifyResult{Error: fmt.Sprintf(format, args...), ErrorLine: line}
}

// Verify walks a JSONL verdict log and checks every entry's prev_hash
// against the hash of the line before it. Tampering with, deleting, or
// inserting any line breaks the chain at or after that line. An empty log
// is a valid chain of length zero.
func Verify(path string) VerifyResult {
	f, err := os.Open(path)
	if err != nil {
		return VerifyResult{Error: fmt.Sprintf("open: %v", err)}
	}
	defer f.Close()

	var (
		n    int
		prev []byte
	)
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		n++

		// The scanner reuses its buffer between reads; prev must survive
		// the next Scan.
		line := append([]byte(nil), sc.Bytes()...)

		var e Entry
		if err := json.Unmarshal(line, &e); err != nil {
			return broken(n, "parse error: %v", err)
		}

		switch {
		case n == 1:
			if e.PrevHash != GenesisHash {
				return broken(1, "first entry prev_hash is %q, expected genesis hash", e.PrevHash)
			}
		default:
			if want := HashLine(prev); e.PrevHash != want {
				return broken(n, "hash mismatch: expected %s, got %s", want, e.PrevHash)
			}
		}
		prev = line
	}
	if err := sc.Err(); err != nil {
		return VerifyResult{Error: fmt.Sprintf("scan: %v", err)}
	}

	return VerifyResult{Valid: true, Lines: n}
}
