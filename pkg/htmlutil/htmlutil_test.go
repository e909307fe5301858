package htmlutil

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
)

func parse(t testing.TB, markup string) *goquery.Document {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	require.NoError(t, err)
	return doc
}

func TestSelectionTextIsVisibleText(t *testing.T) {
	testCases := []struct {
		name     string
		markup   string
		expected string
	}{
		{
			name:     "adjacent spans are separated",
			markup:   `<div id="x"><span>7:00 AM</span><span>10:30 AM</span></div>`,
			expected: "7:00 AM 10:30 AM",
		},
		{
			name:     "script and style are skipped",
			markup:   `<div id="x">Delta<script>var a = 1;</script><style>.a{}</style></div>`,
			expected: "Delta",
		},
		{
			name:     "narrow no-break space becomes a space",
			markup:   "<div id=\"x\">7:00\u202fAM</div>",
			expected: "7:00 AM",
		},
		{
			name:     "whitespace is collapsed",
			markup:   "<div id=\"x\">\n\t  1 stop \n\n</div>",
			expected: "1 stop",
		},
	}

	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			doc := parse(t, test.markup)
			require.Equal(t, test.expected, SelectionText(doc.Find("#x")))
		})
	}
}

func TestSelectionText(t *testing.T) {
	doc := parse(t, `<ul><li>one</li><li>two</li></ul>`)
	require.Equal(t, "one two", SelectionText(doc.Find("li")))
}

func TestClean(t *testing.T) {
	require.Equal(t, "a b", Clean("  a  b\x00 "))
	require.Equal(t, "", Clean(" \n "))
}
