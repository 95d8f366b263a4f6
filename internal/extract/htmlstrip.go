package extract

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// HTMLStripper turns HTML markup into plain text. Implementations must never
// fail on malformed markup; the worst allowed outcome is noisier text.
type HTMLStripper interface {
	Strip(markup string) string
}

// RegexStripper removes markup syntactically: script and style blocks first,
// then every remaining tag, then entity decoding and whitespace collapse.
// It does not build a document tree, so malformed HTML only degrades output.
type RegexStripper struct{}

var (
	scriptRe = regexp.MustCompile(`(?is)<script\b.*?</script>`)
	styleRe  = regexp.MustCompile(`(?is)<style\b.*?</style>`)
	tagRe    = regexp.MustCompile(`(?s)<[^>]*>`)
	spaceRe  = regexp.MustCompile(`[ \t\r\f\v]+`)
	blankRe  = regexp.MustCompile(`\n{3,}`)
)

func (RegexStripper) Strip(markup string) string {
	text := scriptRe.ReplaceAllString(markup, " ")
	text = styleRe.ReplaceAllString(text, " ")
	text = tagRe.ReplaceAllString(text, " ")
	text = decodeEntities(text)
	return collapseWhitespace(text)
}

// TokenStripper extracts text using the x/net/html tokenizer. It is more
// precise on nested markup than RegexStripper and is tolerant of malformed
// input by construction (the tokenizer never returns a parse error, only
// EOF).
type TokenStripper struct{}

func (TokenStripper) Strip(markup string) string {
	z := html.NewTokenizer(strings.NewReader(markup))
	var b strings.Builder
	skipDepth := 0
	for {
		switch z.Next() {
		case html.ErrorToken:
			return collapseWhitespace(b.String())
		case html.StartTagToken:
			name, _ := z.TagName()
			if tag := strings.ToLower(string(name)); tag == "script" || tag == "style" {
				skipDepth++
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			if tag := strings.ToLower(string(name)); tag == "script" || tag == "style" {
				if skipDepth > 0 {
					skipDepth--
				}
			}
		case html.TextToken:
			if skipDepth == 0 {
				b.Write(z.Text())
				b.WriteByte(' ')
			}
		}
	}
}

var entityReplacer = strings.NewReplacer(
	"&nbsp;", " ",
	"&amp;", "&",
	"&lt;", "<",
	"&gt;", ">",
	"&quot;", `"`,
	"&#39;", "'",
	"&apos;", "'",
)

func decodeEntities(text string) string {
	return entityReplacer.Replace(text)
}

func collapseWhitespace(text string) string {
	text = spaceRe.ReplaceAllString(text, " ")
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	text = strings.Join(lines, "\n")
	text = blankRe.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
