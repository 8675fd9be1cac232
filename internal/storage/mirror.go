package storage

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// MirrorExt is the extension of text mirror files.
const MirrorExt = ".md"

// maxTitleRunes bounds the title part of a mirror file name.
const maxTitleRunes = 50

// createdLayout is the timestamp layout of the Created header line.
const createdLayout = "2006-01-02 15:04:05"

var (
	unsafeTitleChars = regexp.MustCompile(`[^\p{L}\p{M}\p{N}_\s-]`)
	titleSeparators  = regexp.MustCompile(`[-\s]+`)
	// Ids written before UUIDs: "<YYYYMMDD>_<HHMMSS>_<hash>".
	legacyID = regexp.MustCompile(`^(\d{8}_\d{6}_\d+)(?:_|$)`)
)

// Header labels. The Korean forms are read for mirrors written by older versions.
var (
	categoryLabels = []string{"**Category:**", "**카테고리:**"}
	tagLabels      = []string{"**Tags:**", "**태그:**"}
	createdLabels  = []string{"**Created:**", "**생성일:**"}
	updatedLabels  = []string{"**Updated:**", "**수정일:**"}
)

var errEmptyMirror = errors.New("empty mirror file")

// SanitizeTitle turns a title into a file-name fragment: characters other
// than letters, digits, underscores, spaces and hyphens are dropped, runs of
// spaces and hyphens become a single underscore, and the result is truncated.
func SanitizeTitle(title string) string {
	safe := strings.TrimSpace(unsafeTitleChars.ReplaceAllString(title, ""))
	safe = titleSeparators.ReplaceAllString(safe, "_")
	if utf8.RuneCountInString(safe) > maxTitleRunes {
		safe = string([]rune(safe)[:maxTitleRunes])
	}
	if safe == "" {
		return "untitled"
	}
	return safe
}

// MirrorFileName returns "<id>_<sanitized title>.md" for UUID and legacy
// ids. Any other id names the whole file, "<id>.md", so that
// IDFromFileName reads it back unchanged.
func MirrorFileName(id, title string) string {
	if !structuredID(id) {
		return id + MirrorExt
	}
	return id + "_" + SanitizeTitle(title) + MirrorExt
}

// IDFromFileName derives the document id from a mirror file name: a legacy
// id prefix, then a UUID before the first underscore, otherwise the whole
// file stem.
func IDFromFileName(name string) string {
	base := strings.TrimSuffix(filepath.Base(name), MirrorExt)
	if m := legacyID.FindStringSubmatch(base); m != nil {
		return m[1]
	}
	prefix, _, _ := strings.Cut(base, "_")
	if _, err := uuid.Parse(prefix); err == nil && len(prefix) == 36 {
		return prefix
	}
	return base
}

func structuredID(id string) bool {
	if m := legacyID.FindStringSubmatch(id); m != nil && m[1] == id {
		return true
	}
	_, err := uuid.Parse(id)
	return err == nil && len(id) == 36
}

// RenderMarkdown serializes a document in the text mirror format.
func RenderMarkdown(doc Document) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "# %s\n\n", doc.Title)
	fmt.Fprintf(&b, "%s %s\n", categoryLabels[0], doc.Category)
	fmt.Fprintf(&b, "%s %s\n", tagLabels[0], doc.Tags)
	fmt.Fprintf(&b, "%s %s\n\n", createdLabels[0], doc.CreatedAt.Local().Format(createdLayout))
	b.WriteString("---\n\n")
	b.WriteString(doc.Content)
	return b.Bytes()
}

// ParseMarkdown reads a text mirror file. The id comes from the file name.
// A file without a "---" separator is taken whole as the content.
func ParseMarkdown(name string, data []byte) (Document, error) {
	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	if strings.TrimSpace(text) == "" {
		return Document{}, errEmptyMirror
	}

	lines := strings.Split(text, "\n")
	doc := Document{
		ID:       IDFromFileName(name),
		Title:    strings.TrimSuffix(filepath.Base(name), MirrorExt),
		Category: CategoryOther,
	}
	if strings.HasPrefix(lines[0], "# ") {
		doc.Title = strings.TrimSpace(strings.TrimPrefix(lines[0], "# "))
	}

	var updated time.Time
	contentStart := 0
	for i, line := range lines {
		if v, ok := cutLabel(line, categoryLabels); ok {
			doc.Category = v
		} else if v, ok := cutLabel(line, tagLabels); ok {
			doc.Tags = v
		} else if v, ok := cutLabel(line, createdLabels); ok {
			doc.CreatedAt = parseTime(v)
		} else if v, ok := cutLabel(line, updatedLabels); ok {
			updated = parseTime(v)
		} else if strings.TrimSpace(line) == "---" {
			contentStart = i + 1
			break
		}
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = updated
	}
	doc.Content = strings.TrimSpace(strings.Join(lines[contentStart:], "\n"))
	return doc, nil
}

func cutLabel(line string, labels []string) (string, bool) {
	for _, label := range labels {
		if rest, ok := strings.CutPrefix(line, label); ok {
			return strings.TrimSpace(rest), true
		}
	}
	return "", false
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	createdLayout,
}

// parseTime accepts RFC 3339 and the naive layouts older mirrors used.
// Naive timestamps are read as local time. Unparseable input yields zero.
func parseTime(s string) time.Time {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t
		}
	}
	return time.Time{}
}
