package canon

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUnicodeNFCNormalization(t *testing.T) {
	composed := "caf\u00e9"
	decomposed := "cafe\u0301"
	assert.NotEqual(t, composed, decomposed)

	assert.Equal(t, Canonicalize(composed), Canonicalize(decomposed))
	assert.Equal(t, ContentHash(Canonicalize(composed)), ContentHash(Canonicalize(decomposed)))
}

func TestCanonicalizeDeterministic(t *testing.T) {
	text := "**Hello** _world_!\n\nThis is a [link](http://example.com)."
	assert.Equal(t, Canonicalize(text), Canonicalize(text))
}

func TestStripMarkdownBoldItalic(t *testing.T) {
	canonical := Canonicalize("**bold** and *italic* and __also bold__")
	assert.NotContains(t, canonical, "**")
	assert.NotContains(t, canonical, "__")
	assert.Contains(t, canonical, "bold")
	assert.Contains(t, canonical, "italic")
}

func TestStripMarkdownLinks(t *testing.T) {
	canonical := Canonicalize("Check out [this link](http://example.com) for more info.")
	assert.Contains(t, canonical, "this link")
	assert.NotContains(t, canonical, "http://example.com")
}

func TestStripMarkdownHeaders(t *testing.T) {
	canonical := Canonicalize("# Header 1\n## Header 2\n### Header 3")
	assert.Contains(t, canonical, "Header 1")
	assert.Contains(t, canonical, "Header 2")
	assert.Contains(t, canonical, "Header 3")
	assert.NotContains(t, canonical, "#")
}

func TestCodeBlockShort(t *testing.T) {
	canonical := Canonicalize("```go\nfunc main() {\n\tfmt.Println(\"Hello\")\n}\n```")
	assert.Contains(t, canonical, "[code: go]")
	assert.Contains(t, canonical, "func main()")
}

func TestCodeBlockCollapseLong(t *testing.T) {
	lines := make([]string, 50)
	for i := range lines {
		lines[i] = fmt.Sprintf("line %d", i)
	}
	code := "```python\n" + strings.Join(lines, "\n") + "\n```"
	canonical := Canonicalize(code)

	assert.Contains(t, canonical, "line 0")
	assert.Contains(t, canonical, "line 19")
	assert.Contains(t, canonical, "line 40")
	assert.Contains(t, canonical, "line 49")
	assert.Contains(t, canonical, "lines omitted")
	assert.NotContains(t, canonical, "line 25")
}

func TestWhitespaceNormalization(t *testing.T) {
	canonical := Canonicalize("hello    world\n\n\nwith   multiple   spaces")
	assert.NotContains(t, canonical, "  ")
	assert.Contains(t, canonical, "hello")
	assert.Contains(t, canonical, "world")
}

func TestLowSignalFiltered(t *testing.T) {
	assert.Equal(t, "", Canonicalize("OK"))
	assert.Equal(t, "", Canonicalize("Done."))
	assert.Equal(t, "", Canonicalize("Got it."))
	assert.Equal(t, "Thanks!", Canonicalize("Thanks!"))
}

func TestTruncation(t *testing.T) {
	long := strings.Repeat("a", 5000)
	assert.Len(t, []rune(Canonicalize(long)), MaxEmbedChars)
}

func TestEmptyInput(t *testing.T) {
	assert.Equal(t, "", Canonicalize(""))
}

func TestListMarkersStripped(t *testing.T) {
	canonical := Canonicalize("1. First item\n2. Second item\n10. Tenth item")
	assert.Contains(t, canonical, "First item")
	assert.Contains(t, canonical, "Second item")
	assert.Contains(t, canonical, "Tenth item")
}

func TestNumbersNotListMarkersPreserved(t *testing.T) {
	assert.Contains(t, Canonicalize("3.14159 is pi"), "3.14159")
}

func TestBlockquote(t *testing.T) {
	canonical := Canonicalize("> This is a quote\n> spanning multiple lines")
	assert.Contains(t, canonical, "This is a quote")
	assert.NotContains(t, canonical, ">")
}

func TestInlineCode(t *testing.T) {
	canonical := Canonicalize("Use `func main()` to start.")
	assert.Contains(t, canonical, "func main()")
	assert.NotContains(t, canonical, "`")
}

func TestEmojiPreserved(t *testing.T) {
	canonical := Canonicalize("Hello 👋 World 🌍")
	assert.Contains(t, canonical, "👋")
	assert.Contains(t, canonical, "🌍")
}

func TestMixedContent(t *testing.T) {
	text := "# Welcome\n\n**Bold** and *italic* text.\n\n```go\nfunc hello() {\n\tfmt.Println(\"Hello!\")\n}\n```\n\nSee [docs](http://example.org) for more.\n"
	canonical := Canonicalize(text)
	assert.Contains(t, canonical, "Welcome")
	assert.NotContains(t, canonical, "**")
	assert.Contains(t, canonical, "Bold")
	assert.Contains(t, canonical, "[code: go]")
	assert.Contains(t, canonical, "docs")
	assert.NotContains(t, canonical, "http://example.org")
}

func TestUnbalancedLinkPreservesContent(t *testing.T) {
	canonical := Canonicalize("Check [link](url( unbalanced. Next sentence.")
	assert.Contains(t, canonical, "Next sentence")
	assert.Contains(t, canonical, "unbalanced")
}

func TestContentHashDeterministic(t *testing.T) {
	assert.Equal(t, ContentHash("Hello, world!"), ContentHash("Hello, world!"))
	assert.NotEqual(t, ContentHash("Hello"), ContentHash("World"))
}

func TestContentHashHex(t *testing.T) {
	hex := ContentHashHex("test")
	assert.Len(t, hex, 64)
	for _, c := range hex {
		assert.Contains(t, "0123456789abcdef", string(c))
	}
}
