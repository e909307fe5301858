package htmlutil

import (
	"bytes"
	"regexp"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// SelectionText returns the text a browser would render for every node of
// sel: text nodes are separated by a space, script and style contents are
// skipped and whitespace is collapsed.
func SelectionText(sel *goquery.Selection) string {
	var buffer bytes.Buffer
	for _, n := range sel.Nodes {
		visibleText(n, &buffer)
		buffer.WriteByte(' ')
	}
	return Clean(buffer.String())
}

func visibleText(node *html.Node, buffer *bytes.Buffer) {
	if node == nil {
		return
	}
	if node.Type == html.TextNode {
		buffer.WriteString(node.Data)
		buffer.WriteByte(' ')
		return
	}
	if node.Type == html.ElementNode {
		switch node.DataAtom {
		case atom.Script, atom.Style, atom.Noscript, atom.Template:
			return
		}
	}
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		visibleText(child, buffer)
	}
}

var innerWhitespace = regexp.MustCompile(`\s\s+`)

// Clean turns every unicode space (including no-break spaces) into an ascii
// space, drops non-printable runes, trims and collapses inner whitespace.
func Clean(s string) string {
	newStr := strings.Builder{}
	for _, c := range s {
		if unicode.IsSpace(c) {
			newStr.WriteRune(' ')
			continue
		}
		if unicode.IsPrint(c) {
			newStr.WriteRune(c)
		}
	}
	out := strings.Trim(newStr.String(), " ")
	return innerWhitespace.ReplaceAllString(out, " ")
}
