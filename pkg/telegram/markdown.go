package telegram

import (
	"regexp"
	"strings"

	"github.com/russross/blackfriday"
)

// Telegram accepts only a small HTML subset, so the blackfriday output is
// mapped onto it and everything else is stripped.
var tagReplacer = strings.NewReplacer(
	"<p>", "",
	"</p>", "\n",
	"<strong>", "<b>",
	"</strong>", "</b>",
	"<em>", "<i>",
	"</em>", "</i>",
	"<del>", "<s>",
	"</del>", "</s>",
	"<li>", "• ",
	"</li>", "\n",
	"<br>", "\n",
	"<br/>", "\n",
	"<br />", "\n",
)

var (
	headingRe    = regexp.MustCompile(`</?h[1-6]>`)
	codeBlockRe  = regexp.MustCompile(`<pre><code(?: class="language-([^"]*)")?>`)
	unknownTagRe = regexp.MustCompile(`</?(?:ul|ol|blockquote|hr|table|thead|tbody|tr|th|td|img[^>]*)/?>`)
)

func renderHTML(text string) string {
	html := string(blackfriday.MarkdownCommon([]byte(text)))

	html = codeBlockRe.ReplaceAllString(html, `<pre>`)
	html = strings.ReplaceAll(html, "</code></pre>", "</pre>")
	html = headingRe.ReplaceAllString(html, "")
	html = tagReplacer.Replace(html)
	html = unknownTagRe.ReplaceAllString(html, "")

	return strings.TrimSpace(html)
}
