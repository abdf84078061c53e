package storage

import (
	"strings"

	"github.com/rcliao/mnemo/internal/model"
)

// BufferStore is the ephemeral session-notes file: a markdown document with
// exactly four fixed section headings, cleared when the buffer is promoted.
type BufferStore struct {
	Path string
}

var bufferSections = []struct {
	Heading  string
	Category model.Category
}{
	{"## Experience", model.CategoryExperience},
	{"## Blockers", model.CategoryBlocker},
	{"## Rejected", model.CategoryRejected},
	{"## Assumptions", model.CategoryAssumption},
}

// Read parses the buffer file. A missing file yields an empty buffer.
func (s *BufferStore) Read() (*model.Buffer, error) {
	data, ok, err := readFile(s.Path)
	if err != nil {
		return nil, err
	}
	buf := &model.Buffer{}
	if !ok {
		return buf, nil
	}

	var current model.Category
	for _, line := range strings.Split(string(data), "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "## ") {
			current = ""
			for _, sec := range bufferSections {
				if strings.EqualFold(trimmed, sec.Heading) {
					current = sec.Category
					break
				}
			}
			continue
		}
		if current == "" {
			continue
		}
		if item, ok := strings.CutPrefix(trimmed, "- "); ok {
			item = strings.TrimSpace(item)
			if item != "" {
				buf.Add(current, item)
			}
		}
	}
	return buf, nil
}

// Append adds one line to the given category section, creating the file with
// its section skeleton on first use.
func (s *BufferStore) Append(cat model.Category, line string) error {
	buf, err := s.Read()
	if err != nil {
		return err
	}
	buf.Add(cat, strings.TrimSpace(line))
	return s.write(buf)
}

// Clear rewrites the buffer to its empty section skeleton. Callers invoke
// this only after every promoted entry has been durably written.
func (s *BufferStore) Clear() error {
	return s.write(&model.Buffer{})
}

func (s *BufferStore) write(buf *model.Buffer) error {
	var b strings.Builder
	b.WriteString("# Session Notes\n")
	for _, sec := range bufferSections {
		b.WriteString("\n" + sec.Heading + "\n")
		for _, line := range buf.Lines(sec.Category) {
			b.WriteString("- " + line + "\n")
		}
	}
	return WriteFileAtomic(s.Path, []byte(b.String()))
}
