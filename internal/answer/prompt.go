// Package answer turns search results into a natural-language answer with
// an LLM, within a usage quota.
package answer

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/radpushman/ct-knowledge/internal/search"
)

// DefaultMaxTokens is the maximum context length before truncation (in tokens).
const DefaultMaxTokens = 16000

const promptTemplate = `당신은 CT실 전문 지식 어시스턴트입니다.

다음 참고자료를 바탕으로 질문에 답변해주세요:

참고자료:
%s

질문: %s

답변 규칙:
1. 한국어로 답변
2. CT실 직원이 이해하기 쉽게 설명
3. 참고자료에 없는 내용은 추측하지 말고 "참고자료에 없음"이라고 명시
4. 중요한 안전사항이 있으면 강조
5. 단계별로 설명이 필요한 경우 번호를 매겨서 설명`

// Prompt fills the instruction template with context and question.
func Prompt(context, question string) string {
	return fmt.Sprintf(promptTemplate, context, strings.TrimSpace(question))
}

// BuildContext joins the bodies of the retrieved documents.
func BuildContext(results []search.Result) string {
	bodies := make([]string, 0, len(results))
	for _, r := range results {
		bodies = append(bodies, r.Content)
	}
	return strings.Join(bodies, "\n\n")
}

// truncateContext truncates context to fit within token limits.
// Uses rough estimate of 4 characters per token.
func truncateContext(context string, maxTokens int, logger *slog.Logger) string {
	maxChars := maxTokens * 4
	runes := []rune(context)
	if len(runes) <= maxChars {
		return context
	}

	logger.Warn("Truncating answer context",
		"from_chars", len(runes),
		"to_chars", maxChars,
		"max_tokens", maxTokens,
	)
	return string(runes[:maxChars])
}
