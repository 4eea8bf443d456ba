package render

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// FormulaAttr marks an element whose value is an inline TeX formula.
const FormulaAttr = "data-value"

// mathTags are the MathML elements kept by the sanitizer.
var mathTags = []string{"math", "mrow", "mi", "mo", "mn"}

// Renderer turns question markup into displayable HTML.
type Renderer interface {
	Render(markup string) string
}

// MathRenderer sanitizes markup and swaps formula markers for an inline-math widget.
type MathRenderer struct {
	policy *bluemonday.Policy
}

func NewMathRenderer() *MathRenderer {
	p := bluemonday.UGCPolicy()
	p.AllowElements(mathTags...)
	p.AllowNoAttrs().OnElements(mathTags...)
	p.AllowAttrs(FormulaAttr).Globally()
	return &MathRenderer{policy: p}
}

// Render strips active content, then replaces every element carrying
// FormulaAttr with <span class="math-inline">\(value\)</span>.
func (r *MathRenderer) Render(markup string) string {
	clean := r.policy.Sanitize(markup)
	if !strings.Contains(clean, FormulaAttr) {
		return clean
	}

	container := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
	nodes, err := html.ParseFragment(strings.NewReader(clean), container)
	if err != nil {
		return clean
	}

	var b strings.Builder
	for _, n := range nodes {
		n = substituteFormulas(n)
		if err := html.Render(&b, n); err != nil {
			return clean
		}
	}
	return b.String()
}

func substituteFormulas(n *html.Node) *html.Node {
	if n.Type == html.ElementNode {
		if value, ok := attr(n, FormulaAttr); ok {
			return formulaWidget(value)
		}
	}
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		if replaced := substituteFormulas(c); replaced != c {
			n.InsertBefore(replaced, c)
			n.RemoveChild(c)
		}
		c = next
	}
	return n
}

func formulaWidget(tex string) *html.Node {
	span := &html.Node{
		Type:     html.ElementNode,
		Data:     "span",
		DataAtom: atom.Span,
		Attr:     []html.Attribute{{Key: "class", Val: "math-inline"}},
	}
	span.AppendChild(&html.Node{Type: html.TextNode, Data: `\(` + tex + `\)`})
	return span
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// Plain leaves markup untouched; for tests and trusted fixtures.
type Plain struct{}

func (Plain) Render(markup string) string { return markup }
