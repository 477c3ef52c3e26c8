package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coderag/coderag/pkg/coderag/types"
)

const samplePage = `
<html>
<head><title>Widgets</title></head>
<body>
<nav>Home | Docs | About</nav>
<header class="site-header">cookie banner here</header>
<main>
<h1>Getting started</h1>
<p>Widgets make your app faster.</p>
<h2>Usage</h2>
<p>Call <code>New()</code> to create a widget.</p>
<pre><code class="language-go">package main

func main() {
	w := widget.New()
	w.Run()
}</code></pre>
</main>
<footer>copyright 2026</footer>
</body>
</html>
`

func TestExtractStripsChromeAndCapturesHeadings(t *testing.T) {
	page, err := Extract(samplePage)
	require.NoError(t, err)

	assert.Equal(t, "Widgets", page.Title)

	var sawNav, sawFooter bool
	for _, b := range page.Blocks {
		if b.Text == "Home | Docs | About" {
			sawNav = true
		}
		if b.Text == "copyright 2026" {
			sawFooter = true
		}
	}
	assert.False(t, sawNav)
	assert.False(t, sawFooter)

	var foundCode bool
	for _, b := range page.Blocks {
		if b.Kind == types.ContentCodeExample {
			foundCode = true
			assert.Equal(t, "go", b.Language)
			assert.Equal(t, "Usage", b.Heading)
		}
	}
	assert.True(t, foundCode)
}

func TestExtractDetectsLanguageWithoutClassHint(t *testing.T) {
	html := `<pre><code>def hello():
    print("hi")</code></pre>`
	page, err := Extract(html)
	require.NoError(t, err)
	require.Len(t, page.Blocks, 1)
	assert.Equal(t, "python", page.Blocks[0].Language)
}

func TestClassifyCodeDistinguishesReferenceFromExample(t *testing.T) {
	assert.Equal(t, "api_reference", classifyCode("type Widget interface {\n  Run() error\n}"))
	assert.Equal(t, "code_example", classifyCode("w := widget.New()\nw.Run()"))
}
