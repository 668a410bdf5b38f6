package conversation

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Store persists summaries and session transcripts under the user data
// directory. Files are read at session start and rewritten wholesale at
// session end; concurrent sessions against the same files are out of
// scope and not guarded.
type Store struct {
	root string
}

// NewStore creates a store rooted at the user data directory.
func NewStore(root string) *Store {
	return &Store{root: root}
}

func (s *Store) summaryPath(initiatorID, participantID int32) string {
	return filepath.Join(s.root, "conversations", "summaries",
		fmt.Sprintf("%d_%d.json", initiatorID, participantID))
}

// LoadSummaries returns the summary list for an (initiator, participant)
// pair sorted newest-first, regardless of on-disk order. A missing file
// is an empty list.
func (s *Store) LoadSummaries(initiatorID, participantID int32) ([]Summary, error) {
	data, err := os.ReadFile(s.summaryPath(initiatorID, participantID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read summaries: %w", err)
	}

	var summaries []Summary
	if err := json.Unmarshal(data, &summaries); err != nil {
		return nil, fmt.Errorf("parse summaries: %w", err)
	}

	SortSummaries(summaries)
	return summaries, nil
}

// PrependSummary adds a summary at the head of the pair's list and
// rewrites the file. Empty-content summaries are never persisted.
func (s *Store) PrependSummary(initiatorID, participantID int32, summary Summary) error {
	if strings.TrimSpace(summary.Content) == "" {
		return nil
	}

	existing, err := s.LoadSummaries(initiatorID, participantID)
	if err != nil {
		return err
	}
	summaries := append([]Summary{summary}, existing...)

	path := s.summaryPath(initiatorID, participantID)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create summaries dir: %w", err)
	}
	data, err := json.MarshalIndent(summaries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal summaries: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write summaries: %w", err)
	}
	return nil
}

// WriteHistory writes one flat transcript file for a finished session:
// a header line with the in-world date, then "Name: content" blocks.
func (s *Store) WriteHistory(initiatorID, participantID int32, date string, msgs []Message) error {
	dir := filepath.Join(s.root, "conversations", "history")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create history dir: %w", err)
	}

	var sb strings.Builder
	sb.WriteString(date)
	sb.WriteString("\n\n")
	for _, m := range msgs {
		name := m.Name
		if name == "" {
			name = string(m.Role)
		}
		sb.WriteString(name)
		sb.WriteString(": ")
		sb.WriteString(m.Content)
		sb.WriteString("\n")
	}

	path := filepath.Join(dir, fmt.Sprintf("%d_%d_%d.txt", initiatorID, participantID, time.Now().UnixNano()))
	if err := os.WriteFile(path, []byte(sb.String()), 0644); err != nil {
		return fmt.Errorf("write history: %w", err)
	}
	return nil
}

// SortSummaries orders summaries newest-first by in-world date. Dates
// that fail to parse sort last, preserving their relative order.
func SortSummaries(summaries []Summary) {
	sort.SliceStable(summaries, func(i, j int) bool {
		return compareGameDates(summaries[i].Date, summaries[j].Date) > 0
	})
}

// compareGameDates compares two "Y.M.D" in-world dates, returning >0 if a
// is later than b. Unparseable dates compare as earliest.
func compareGameDates(a, b string) int {
	pa, okA := parseGameDate(a)
	pb, okB := parseGameDate(b)
	switch {
	case !okA && !okB:
		return 0
	case !okA:
		return -1
	case !okB:
		return 1
	}
	for i := 0; i < 3; i++ {
		if pa[i] != pb[i] {
			if pa[i] > pb[i] {
				return 1
			}
			return -1
		}
	}
	return 0
}

func parseGameDate(s string) ([3]int, bool) {
	var out [3]int
	parts := strings.Split(strings.TrimSpace(s), ".")
	if len(parts) != 3 {
		return out, false
	}
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return out, false
		}
		out[i] = n
	}
	return out, true
}
