package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeTitle(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"CT 스캔 기본 프로토콜", "CT_스캔_기본_프로토콜"},
		{"조영제 (부작용) 대응!", "조영제_부작용_대응"},
		{"  multi -- dash  title ", "multi_dash_title"},
		{"under_score kept", "under_score_kept"},
		{"???", "untitled"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SanitizeTitle(tt.in), tt.in)
	}
}

func TestSanitizeTitleTruncates(t *testing.T) {
	long := ""
	for i := 0; i < 80; i++ {
		long += "가"
	}
	assert.Equal(t, maxTitleRunes, len([]rune(SanitizeTitle(long))))
}

func TestIDFromFileName(t *testing.T) {
	assert.Equal(t, "0190f0a2-7c1e-7b5a-9d3e-3c1f2a4b5c6d",
		IDFromFileName("0190f0a2-7c1e-7b5a-9d3e-3c1f2a4b5c6d_CT_스캔.md"))
	assert.Equal(t, "20240501_083000_1234", IDFromFileName("20240501_083000_1234_외부_문서.md"))
	assert.Equal(t, "20240501_083000_1234", IDFromFileName("20240501_083000_1234.md"))
	assert.Equal(t, "notes", IDFromFileName("notes.md"))
	assert.Equal(t, "ct_safety", IDFromFileName("ct_safety.md"))
	assert.Equal(t, "abc_ok", IDFromFileName("abc_ok.md"))
	assert.Equal(t, "0190f0a2_notes", IDFromFileName("0190f0a2_notes.md"))
}

func TestMirrorFileNameRoundTrip(t *testing.T) {
	for _, id := range []string{
		"0190f0a2-7c1e-7b5a-9d3e-3c1f2a4b5c6d",
		"20240501_083000_1234",
		"ct_safety",
		"r1",
	} {
		assert.Equal(t, id, IDFromFileName(MirrorFileName(id, "CT 안전 수칙")), id)
	}
	assert.Equal(t, "ct_safety.md", MirrorFileName("ct_safety", "CT safety"))
	assert.Equal(t, "20240501_083000_1234_CT_안전_수칙.md", MirrorFileName("20240501_083000_1234", "CT 안전 수칙"))
}

func TestRenderParseRoundTrip(t *testing.T) {
	created := time.Date(2025, 6, 1, 14, 30, 5, 0, time.Local)
	doc := Document{
		ID:        "abc",
		Title:     "조영제 부작용 대응",
		Content:   "**경미한 반응:**\n- 구역\n\n---\n\n즉시 호출",
		Category:  CategoryEmergency,
		Tags:      "조영제, 응급",
		CreatedAt: created,
	}

	data := RenderMarkdown(doc)
	assert.Contains(t, string(data), "**Created:** 2025-06-01 14:30:05\n")

	parsed, err := ParseMarkdown(MirrorFileName(doc.ID, doc.Title), data)
	require.NoError(t, err)
	assert.Equal(t, doc.ID, parsed.ID)
	assert.Equal(t, doc.Title, parsed.Title)
	assert.Equal(t, doc.Category, parsed.Category)
	assert.Equal(t, doc.Tags, parsed.Tags)
	// Only the first separator ends the header; later ones belong to the body.
	assert.Equal(t, doc.Content, parsed.Content)
	assert.True(t, created.Equal(parsed.CreatedAt))
}

func TestParseMarkdownWithoutHeader(t *testing.T) {
	parsed, err := ParseMarkdown("x_free.md", []byte("just some notes\nsecond line\n"))
	require.NoError(t, err)
	assert.Equal(t, "x_free", parsed.ID)
	assert.Equal(t, "x_free", parsed.Title)
	assert.Equal(t, CategoryOther, parsed.Category)
	assert.Equal(t, "just some notes\nsecond line", parsed.Content)
	assert.True(t, parsed.CreatedAt.IsZero())
}

func TestParseMarkdownUpdatedFallback(t *testing.T) {
	data := "# t\n\n**카테고리:** 프로토콜\n**태그:** \n**수정일:** 2024-01-02 03:04:05\n\n---\n\nbody"
	parsed, err := ParseMarkdown("id_t.md", []byte(data))
	require.NoError(t, err)
	assert.Equal(t, CategoryProtocol, parsed.Category)
	assert.Equal(t, "", parsed.Tags)
	assert.Equal(t, 2024, parsed.CreatedAt.Year())
}

func TestParseMarkdownEmpty(t *testing.T) {
	_, err := ParseMarkdown("id_t.md", []byte("\n\n"))
	assert.Error(t, err)
}
