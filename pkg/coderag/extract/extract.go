// Package extract implements the HTML extractor: turning a fetched
// documentation page into a sequence of typed content blocks (prose,
// headings, code examples) ready for the chunker.
//
// Grounded on the teacher's pkg/tools/builtin/fetch.go, which already
// wires golang.org/x/net/html plus html-to-markdown and html2text for a
// `format=markdown`/`format=text` fetch tool; extract.go generalizes that
// single pass into a DOM walk that classifies blocks instead of
// flattening the whole page into one string.
package extract

import (
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/k3a/html2text"
	"golang.org/x/net/html"

	"github.com/coderag/coderag/pkg/coderag/types"
)

// chromeTags are elements stripped entirely before content is walked:
// navigation, footers, sidebars, and other non-content chrome.
var chromeTags = map[string]bool{
	"nav":      true,
	"footer":   true,
	"header":   true,
	"aside":    true,
	"script":   true,
	"style":    true,
	"noscript": true,
	"iframe":   true,
	"form":     true,
}

// chromeClasses are substrings checked against an element's class/id
// attributes to catch chrome that isn't in a semantic tag (cookie
// banners, breadcrumbs, sidebars built from divs).
var chromeClasses = []string{
	"cookie", "banner", "breadcrumb", "sidebar", "navbar", "nav-",
	"footer", "advert", "promo", "subscribe", "social-share",
}

// Block is one extracted content unit, pre-chunking. Kind mirrors the
// content classification the chunker ultimately assigns to a Chunk.
type Block struct {
	Kind     types.ContentType
	Heading  string // nearest enclosing heading's text, for Section
	Text     string // rendered markdown/plain text for prose blocks
	Code     string // raw code for code blocks
	Language string // detected language, code blocks only
	Title    string // the page <title>, repeated on every block
}

// Page is the result of extracting one fetched HTML document.
type Page struct {
	Title  string
	Blocks []Block
}

// Extract parses rawHTML and returns its content blocks with chrome
// stripped.
func Extract(rawHTML string) (Page, error) {
	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return Page{}, err
	}

	w := &walker{title: findTitle(doc)}
	w.walk(doc, "")

	return Page{Title: w.title, Blocks: w.blocks}, nil
}

type walker struct {
	title      string
	blocks     []Block
	curHeading string
}

func (w *walker) walk(n *html.Node, heading string) {
	if n.Type == html.ElementNode {
		if chromeTags[n.Data] {
			return
		}
		if isChromeByClass(n) {
			return
		}

		switch n.Data {
		case "h1", "h2", "h3", "h4", "h5", "h6":
			text := textContent(n)
			if text != "" {
				w.curHeading = text
			}
			return
		case "pre":
			code, lang := extractCodeBlock(n)
			if strings.TrimSpace(code) != "" {
				kind := types.ContentCodeExample
				if classifyCode(code) == "api_reference" {
					kind = types.ContentAPIReference
				}
				w.blocks = append(w.blocks, Block{
					Kind:     kind,
					Heading:  heading,
					Code:     code,
					Language: lang,
					Title:    w.title,
				})
			}
			return
		case "p", "li", "td", "th", "blockquote":
			text := strings.TrimSpace(renderInline(n))
			if text != "" {
				w.blocks = append(w.blocks, Block{
					Kind:    types.ContentProse,
					Heading: heading,
					Text:    text,
					Title:   w.title,
				})
			}
			return
		}
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		w.walk(c, w.curHeading)
	}
}

func isChromeByClass(n *html.Node) bool {
	for _, attr := range n.Attr {
		if attr.Key != "class" && attr.Key != "id" {
			continue
		}
		lower := strings.ToLower(attr.Val)
		for _, bad := range chromeClasses {
			if strings.Contains(lower, bad) {
				return true
			}
		}
	}
	return false
}

// extractCodeBlock returns the raw text of a <pre> block and its
// language, read from a `language-xxx`/`lang-xxx` class on <pre> or its
// child <code>, falling back to lexical detection (see lang.go) when no
// class hint is present.
func extractCodeBlock(pre *html.Node) (code string, lang string) {
	code = textContent(pre)

	lang = classLanguage(pre)
	if lang == "" {
		for c := pre.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && c.Data == "code" {
				if l := classLanguage(c); l != "" {
					lang = l
					break
				}
			}
		}
	}
	if lang == "" {
		lang = detectLanguage(code)
	}
	return code, lang
}

func classLanguage(n *html.Node) string {
	for _, attr := range n.Attr {
		if attr.Key != "class" {
			continue
		}
		for _, cls := range strings.Fields(attr.Val) {
			if l, ok := strings.CutPrefix(cls, "language-"); ok {
				return l
			}
			if l, ok := strings.CutPrefix(cls, "lang-"); ok {
				return l
			}
		}
	}
	return ""
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

// renderInline converts n's inner HTML to markdown-ish text via
// html-to-markdown, falling back to plain-text rendering (k3a/html2text)
// if conversion fails — the same fallback pair fetch.go uses for
// format=markdown vs format=text.
func renderInline(n *html.Node) string {
	var raw strings.Builder
	if err := html.Render(&raw, n); err != nil {
		return textContent(n)
	}

	md, err := htmltomarkdown.ConvertString(raw.String())
	if err != nil || strings.TrimSpace(md) == "" {
		return html2text.HTML2Text(raw.String())
	}
	return md
}

func findTitle(doc *html.Node) string {
	var title string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if title != "" {
			return
		}
		if n.Type == html.ElementNode && n.Data == "title" {
			title = strings.TrimSpace(textContent(n))
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return title
}
