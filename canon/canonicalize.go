// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package canon

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

const (
	// MaxEmbedChars is the maximum number of characters kept after canonicalization.
	MaxEmbedChars = 2000

	// CodeHeadLines is the number of lines kept from the start of a long code block.
	CodeHeadLines = 20

	// CodeTailLines is the number of lines kept from the end of a long code block.
	CodeTailLines = 10
)

var (
	reImage      = regexp.MustCompile(`!\[([^\]]*)\]\([^)]*\)`)
	reLink       = regexp.MustCompile(`\[([^\]]*)\]\([^)]*\)`)
	reHeader     = regexp.MustCompile(`(?m)^#{1,6}[ \t]*`)
	reBlockquote = regexp.MustCompile(`(?m)^[ \t]*(?:>[ \t]?)+`)
	reOrdered    = regexp.MustCompile(`(?m)^[ \t]*\d+\.[ \t]+`)
	reUnordered  = regexp.MustCompile(`(?m)^[ \t]*[-*+][ \t]+`)
	reBold       = regexp.MustCompile(`\*\*([^*]+)\*\*`)
	reBoldAlt    = regexp.MustCompile(`__([^_]+)__`)
	reItalic     = regexp.MustCompile(`\*([^*\n]+)\*`)
	reItalicAlt  = regexp.MustCompile(`\b_([^_\n]+)_\b`)
	reInlineCode = regexp.MustCompile("`([^`]*)`")
	reWhitespace = regexp.MustCompile(`\s+`)
)

// lowSignal lists acknowledgement phrases that carry no searchable meaning.
// Compared after lowercasing and stripping trailing punctuation.
var lowSignal = map[string]struct{}{
	"ok": {}, "okay": {}, "k": {}, "kk": {},
	"done": {}, "got it": {}, "will do": {}, "sounds good": {},
	"yes": {}, "yep": {}, "yeah": {}, "no": {}, "nope": {}, "sure": {},
}

// Canonicalize normalizes text for embedding: NFC Unicode normalization,
// markdown stripping, code block collapsing, whitespace normalization,
// low-signal filtering, and truncation to MaxEmbedChars.
//
// Returns "" for input that canonicalizes to nothing worth embedding.
func Canonicalize(text string) string {
	if text == "" {
		return ""
	}

	text = norm.NFC.String(text)

	var parts []string
	for _, segment := range splitCodeBlocks(text) {
		if segment.code {
			parts = append(parts, renderCodeBlock(segment.lang, segment.body))
		} else {
			parts = append(parts, stripMarkdown(segment.body))
		}
	}

	result := strings.TrimSpace(reWhitespace.ReplaceAllString(strings.Join(parts, " "), " "))

	if isLowSignal(result) {
		return ""
	}

	runes := []rune(result)
	if len(runes) > MaxEmbedChars {
		result = string(runes[:MaxEmbedChars])
	}
	return result
}

type segment struct {
	code bool
	lang string
	body string
}

// splitCodeBlocks separates fenced code blocks from prose so markdown
// stripping never touches code content. An unclosed fence runs to the end.
func splitCodeBlocks(text string) []segment {
	lines := strings.Split(text, "\n")
	var segments []segment
	var buf []string
	inCode := false
	lang := ""

	flush := func(code bool) {
		if len(buf) == 0 {
			return
		}
		segments = append(segments, segment{code: code, lang: lang, body: strings.Join(buf, "\n")})
		buf = nil
	}

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") {
			if inCode {
				flush(true)
				inCode = false
				lang = ""
			} else {
				flush(false)
				inCode = true
				lang = strings.TrimSpace(strings.TrimPrefix(trimmed, "```"))
			}
			continue
		}
		buf = append(buf, line)
	}
	flush(inCode)

	return segments
}

// renderCodeBlock replaces a fenced block with a language marker and a
// head/tail sample of its lines. Long blocks are collapsed so a pasted log
// or file dump does not dominate the embedding.
func renderCodeBlock(lang, body string) string {
	marker := "[code]"
	if lang != "" {
		marker = "[code: " + lang + "]"
	}

	lines := strings.Split(body, "\n")
	if len(lines) <= CodeHeadLines+CodeTailLines {
		return marker + " " + strings.Join(lines, " ")
	}

	omitted := len(lines) - CodeHeadLines - CodeTailLines
	kept := make([]string, 0, CodeHeadLines+CodeTailLines+1)
	kept = append(kept, lines[:CodeHeadLines]...)
	kept = append(kept, fmt.Sprintf("... %d lines omitted ...", omitted))
	kept = append(kept, lines[len(lines)-CodeTailLines:]...)
	return marker + " " + strings.Join(kept, " ")
}

func stripMarkdown(text string) string {
	text = reImage.ReplaceAllString(text, "$1")
	text = reLink.ReplaceAllString(text, "$1")
	text = reHeader.ReplaceAllString(text, "")
	text = reBlockquote.ReplaceAllString(text, "")
	text = reOrdered.ReplaceAllString(text, "")
	text = reUnordered.ReplaceAllString(text, "")
	text = reBold.ReplaceAllString(text, "$1")
	text = reBoldAlt.ReplaceAllString(text, "$1")
	text = reItalic.ReplaceAllString(text, "$1")
	text = reItalicAlt.ReplaceAllString(text, "$1")
	text = reInlineCode.ReplaceAllString(text, "$1")
	return text
}

func isLowSignal(text string) bool {
	key := strings.ToLower(strings.TrimRight(text, ".!?"))
	key = strings.TrimSpace(key)
	_, found := lowSignal[key]
	return found
}
