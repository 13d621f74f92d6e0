package engine

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// safeChunkLen is the longest text the nano model reliably phonemizes in one
// call. Longer inputs are synthesized per chunk and concatenated.
const safeChunkLen = 180

// sanitizeForModel reduces text to the ASCII subset the model's phonemizer
// accepts: decompose accents (NFKD), drop the combining marks, map anything
// outside letters/digits/basic punctuation to a space, collapse whitespace.
func sanitizeForModel(text string) string {
	decomposed := norm.NFKD.String(text)
	var b strings.Builder
	b.Grow(len(decomposed))
	for _, r := range decomposed {
		if r > 127 {
			continue
		}
		if isModelSafe(byte(r)) {
			b.WriteByte(byte(r))
		} else {
			b.WriteByte(' ')
		}
	}
	return collapseSpaces(b.String())
}

func isModelSafe(c byte) bool {
	switch {
	case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9':
		return true
	}
	switch c {
	case ' ', '.', ',', '!', '?', ';', ':', '\'', '"', '(', ')', '-':
		return true
	}
	return false
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// splitSafeChunks breaks text into pieces of at most maxLen characters,
// preferring sentence boundaries and falling back to word boundaries for
// run-on sentences. The result is never empty for non-empty input.
func splitSafeChunks(text string, maxLen int) []string {
	if len(text) <= maxLen {
		return []string{text}
	}

	var chunks []string
	current := ""
	for _, sentence := range splitSentences(text) {
		if len(sentence) > maxLen {
			if current != "" {
				chunks = append(chunks, current)
				current = ""
			}
			chunks = append(chunks, splitWords(sentence, maxLen)...)
			continue
		}
		candidate := joinWithSpace(current, sentence)
		if len(candidate) <= maxLen {
			current = candidate
		} else {
			if current != "" {
				chunks = append(chunks, current)
			}
			current = sentence
		}
	}
	if current != "" {
		chunks = append(chunks, current)
	}
	if len(chunks) == 0 {
		// Input here is sanitized ASCII, so byte slicing cannot split a rune.
		return []string{text[:maxLen]}
	}
	return chunks
}

// splitSentences cuts after '.', '!' or '?' followed by whitespace.
func splitSentences(text string) []string {
	var out []string
	start := 0
	for i := 0; i < len(text)-1; i++ {
		c := text[i]
		if (c == '.' || c == '!' || c == '?') && isSpace(text[i+1]) {
			if s := strings.TrimSpace(text[start : i+1]); s != "" {
				out = append(out, s)
			}
			start = i + 1
		}
	}
	if s := strings.TrimSpace(text[start:]); s != "" {
		out = append(out, s)
	}
	return out
}

func splitWords(sentence string, maxLen int) []string {
	var out []string
	current := ""
	for _, word := range strings.Fields(sentence) {
		candidate := joinWithSpace(current, word)
		if len(candidate) <= maxLen {
			current = candidate
			continue
		}
		if current != "" {
			out = append(out, current)
		}
		current = word
	}
	if current != "" {
		out = append(out, current)
	}
	return out
}

func joinWithSpace(a, b string) string {
	if a == "" {
		return b
	}
	return a + " " + b
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}
