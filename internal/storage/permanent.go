package storage

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rcliao/mnemo/internal/model"
)

// PermanentStore is the long-lived markdown memory file. The body is free
// prose; the engine appends entries as list items under date headings and
// carries machine metadata in trailing HTML comments.
type PermanentStore struct {
	Path string
}

var kindLabels = map[model.Kind]string{
	model.KindDecision: "**Decided:**",
	model.KindIssue:    "**Issue:**",
	model.KindLearning: "**Learned:**",
	model.KindProblem:  "**Problem:**",
	model.KindProgress: "**Progress:**",
	model.KindGotcha:   "**Gotcha:**",
}

// Read returns the full store text. A missing file reads as empty.
func (p *PermanentStore) Read() (string, error) {
	data, _, err := readFile(p.Path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Fingerprint hashes the current store content. A missing store yields the
// empty fingerprint, matching a zero state record.
func (p *PermanentStore) Fingerprint() (string, error) {
	data, ok, err := readFile(p.Path)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", nil
	}
	return Fingerprint(data), nil
}

// Size returns the store file size in bytes, 0 when missing.
func (p *PermanentStore) Size() int64 {
	info, err := os.Stat(p.Path)
	if err != nil {
		return 0
	}
	return info.Size()
}

// Append writes entries as list items under today's date heading, creating
// the heading (and the file) as needed. The whole store is rewritten
// atomically; a failure leaves the previous content intact.
func (p *PermanentStore) Append(entries []model.Entry, now time.Time) error {
	if len(entries) == 0 {
		return nil
	}

	text, err := p.Read()
	if err != nil {
		return err
	}

	var b strings.Builder
	b.WriteString(text)
	if text != "" && !strings.HasSuffix(text, "\n") {
		b.WriteString("\n")
	}
	if text == "" {
		b.WriteString("# Project Memory\n")
	}

	heading := "## " + now.Format("2006-01-02")
	if !hasTrailingHeading(text, heading) {
		b.WriteString("\n" + heading + "\n\n")
	}

	for _, e := range entries {
		b.WriteString(FormatEntry(e))
		b.WriteString("\n")
	}

	return WriteFileAtomic(p.Path, []byte(b.String()))
}

// FormatEntry renders one entry as a store line.
func FormatEntry(e model.Entry) string {
	label := kindLabels[e.Kind]
	meta := fmt.Sprintf("<!-- id:%s conf:%.2f -->", e.ID, e.Confidence)
	return fmt.Sprintf("- %s %s %s", label, e.Text, meta)
}

// SetSupersededBy records a back-reference on an existing entry line. This is
// the single permitted mutation of written entries.
func (p *PermanentStore) SetSupersededBy(oldID, newID string) error {
	text, err := p.Read()
	if err != nil {
		return err
	}

	marker := "id:" + oldID
	lines := strings.Split(text, "\n")
	found := false
	for i, line := range lines {
		if !strings.Contains(line, marker) || !strings.Contains(line, "<!--") {
			continue
		}
		if strings.Contains(line, "superseded-by:") {
			found = true
			break
		}
		lines[i] = strings.Replace(line, " -->",
			fmt.Sprintf(" superseded-by:%s -->", newID), 1)
		found = true
		break
	}
	if !found {
		return fmt.Errorf("entry %s not found in %s", oldID, p.Path)
	}

	return WriteFileAtomic(p.Path, []byte(strings.Join(lines, "\n")))
}

// hasTrailingHeading reports whether the last heading in text is heading,
// meaning new entries can be appended under it directly.
func hasTrailingHeading(text, heading string) bool {
	lines := strings.Split(text, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		trimmed := strings.TrimSpace(lines[i])
		if strings.HasPrefix(trimmed, "## ") {
			return strings.HasPrefix(trimmed, heading)
		}
	}
	return false
}
