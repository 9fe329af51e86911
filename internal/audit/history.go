package audit

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"
)

// HistoryFilter selects entries for one party and optional time range.
type HistoryFilter struct {
	PartyCode string
	From      time.Time // zero value = no lower bound
	To        time.Time // zero value = no upper bound
}

// HistorySummary holds decision counts for the selected entries.
type HistorySummary struct {
	Total          int     `json:"total"`
	PassCount      int     `json:"pass_count"`
	WarnCount      int     `json:"warn_count"`
	BlockCount     int     `json:"block_count"`
	MinAccuracy    float64 `json:"min_accuracy"`
	FirstTimestamp string  `json:"first_timestamp"`
	LastTimestamp  string  `json:"last_timestamp"`
}

// HistoryResult holds filtered entries and their summary.
type HistoryResult struct {
	PartyCode string         `json:"party_code"`
	Entries   []Entry        `json:"entries"`
	Summary   HistorySummary `json:"summary"`
}

// History reads the verdict log and returns entries matching the filter.
// Malformed lines are skipped; Verify is the integrity check, not this.
func History(path string, filter HistoryFilter) (*HistoryResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open verdict log: %w", err)
	}
	defer f.Close()

	result := &HistoryResult{
		PartyCode: filter.PartyCode,
		Summary:   HistorySummary{MinAccuracy: 1.0},
	}

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var entry Entry
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			continue
		}

		if filter.PartyCode != "" && entry.PartyCode != filter.PartyCode {
			continue
		}

		if !filter.From.IsZero() || !filter.To.IsZero() {
			ts, err := time.Parse(TimestampFormat, entry.Timestamp)
			if err != nil {
				continue
			}
			if !filter.From.IsZero() && ts.Before(filter.From) {
				continue
			}
			if !filter.To.IsZero() && ts.After(filter.To) {
				continue
			}
		}

		result.Entries = append(result.Entries, entry)
		updateSummary(&result.Summary, entry)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read verdict log: %w", err)
	}

	return result, nil
}

func updateSummary(s *HistorySummary, entry Entry) {
	s.Total++

	switch strings.ToLower(entry.Decision) {
	case DecisionPass:
		s.PassCount++
	case DecisionWarn:
		s.WarnCount++
	case DecisionBlock:
		s.BlockCount++
	}

	if entry.FactualAccuracy < s.MinAccuracy {
		s.MinAccuracy = entry.FactualAccuracy
	}

	if s.FirstTimestamp == "" {
		s.FirstTimestamp = entry.Timestamp
	}
	s.LastTimestamp = entry.Timestamp
}
