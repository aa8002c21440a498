// Package ledger records every secret and access instruction generated
// during a bootstrap run.
//
// The ledger is append-only within a run. It is flushed to disk once at
// process end (also printed to the operator) — even when the run aborts, so
// partial progress is never silently lost.
package ledger

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Standard record categories, in the order they usually appear in a run.
const (
	CategoryOS          = "OS CREDENTIALS"
	CategoryKubernetes  = "KUBERNETES ACCESS"
	CategorySecretStore = "SECRET STORE"
	CategoryGitOps      = "GITOPS CONTROLLER CREDENTIALS"
	CategoryRepository  = "GITOPS REPOSITORY"
)

// Record is one credential or access instruction issued to the operator.
// Either Secret (the literal value) or Reference (where the value is stored)
// is set, never both.
type Record struct {
	Category     string    `yaml:"category"`
	Instructions string    `yaml:"instructions"`
	Secret       string    `yaml:"secret,omitempty"`
	Reference    string    `yaml:"reference,omitempty"`
	GeneratedAt  time.Time `yaml:"generated_at"`
}

// Ledger is the append-only credential record for one bootstrap run. It has a
// single writer (the phase executor); phases never run concurrently.
type Ledger struct {
	records []Record
}

// New returns an empty ledger.
func New() *Ledger {
	return &Ledger{}
}

// Append adds a record, stamping GeneratedAt if unset.
func (l *Ledger) Append(r Record) {
	if r.GeneratedAt.IsZero() {
		r.GeneratedAt = time.Now().UTC()
	}
	l.records = append(l.records, r)
}

// Records returns a copy of all records in insertion order.
func (l *Ledger) Records() []Record {
	out := make([]Record, len(l.records))
	copy(out, l.records)
	return out
}

// Len returns the number of records.
func (l *Ledger) Len() int {
	return len(l.records)
}

// Render produces the flat human-readable report: records grouped by
// category, categories in first-appearance order, records in insertion order.
func (l *Ledger) Render() string {
	var b strings.Builder
	b.WriteString("BOOTSTRAP CREDENTIALS\n")
	b.WriteString("=====================\n")

	var categories []string
	seen := map[string]bool{}
	for _, r := range l.records {
		if !seen[r.Category] {
			seen[r.Category] = true
			categories = append(categories, r.Category)
		}
	}

	for _, cat := range categories {
		b.WriteString("\n")
		b.WriteString(cat)
		b.WriteString("\n")
		b.WriteString(strings.Repeat("-", len(cat)))
		b.WriteString("\n")
		for _, r := range l.records {
			if r.Category != cat {
				continue
			}
			fmt.Fprintf(&b, "  %s\n", r.Instructions)
			if r.Secret != "" {
				fmt.Fprintf(&b, "    value: %s\n", r.Secret)
			}
			if r.Reference != "" {
				fmt.Fprintf(&b, "    stored at: %s\n", r.Reference)
			}
			fmt.Fprintf(&b, "    generated: %s\n", r.GeneratedAt.Format(time.RFC3339))
		}
	}

	return b.String()
}

// Flush writes the rendered report to path with operator-only permissions.
func (l *Ledger) Flush(path string) error {
	if err := os.WriteFile(path, []byte(l.Render()), 0o600); err != nil {
		return fmt.Errorf("failed to write credentials ledger: %w", err)
	}
	return nil
}
