package processor

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/ZaguanLabs/sitetrans"
	"golang.org/x/net/html"
)

// DefaultIgnoredTags are elements whose text is never translated.
var DefaultIgnoredTags = []string{"script", "style", "noscript", "iframe"}

// NoTranslateAttr excludes an element and its subtree from translation.
const NoTranslateAttr = "data-no-translate"

// HTMLProcessor extracts the visible text of a page body and writes
// translations back by position.
type HTMLProcessor struct {
	ignoredTags map[string]bool
}

// NewHTMLProcessor creates a new HTML processor with default ignored tags.
func NewHTMLProcessor() *HTMLProcessor {
	return NewHTMLProcessorWithIgnoredTags(DefaultIgnoredTags)
}

// NewHTMLProcessorWithIgnoredTags creates a new HTML processor with custom ignored tags.
func NewHTMLProcessorWithIgnoredTags(tags []string) *HTMLProcessor {
	ignored := make(map[string]bool)
	for _, tag := range tags {
		ignored[strings.ToLower(tag)] = true
	}
	return &HTMLProcessor{
		ignoredTags: ignored,
	}
}

// parsedHTML holds the parsed document and its text nodes in document order.
type parsedHTML struct {
	doc   *goquery.Document
	nodes []*html.Node
}

// Extract parses HTML and returns the trimmed text of every non-blank body
// text node, in document order. Repeated texts are returned at every
// position.
func (p *HTMLProcessor) Extract(content string) (any, []string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return nil, nil, &sitetrans.ProcessorError{
			Message:     "failed to parse HTML",
			Cause:       err,
			ContentType: p.ContentType(),
		}
	}

	ph := &parsedHTML{doc: doc}
	var texts []string

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && p.skip(n) {
			return
		}

		if n.Type == html.TextNode {
			if trimmed := strings.TrimSpace(n.Data); trimmed != "" {
				ph.nodes = append(ph.nodes, n)
				texts = append(texts, trimmed)
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	doc.Find("body").Each(func(i int, s *goquery.Selection) {
		for _, n := range s.Nodes {
			walk(n)
		}
	})

	return ph, texts, nil
}

// Apply replaces each extracted text node with the translation at the same
// position, keeping its surrounding whitespace, and sets the lang attribute
// of the <html> element.
func (p *HTMLProcessor) Apply(parsed any, translations []string, targetLang string) (string, error) {
	ph, ok := parsed.(*parsedHTML)
	if !ok {
		return "", &sitetrans.ProcessorError{
			Message:     "invalid parsed content type",
			ContentType: p.ContentType(),
		}
	}

	if len(translations) != len(ph.nodes) {
		return "", &sitetrans.ProcessorError{
			Message:     "cannot apply translations",
			Cause:       &sitetrans.CountMismatchError{Expected: len(ph.nodes), Got: len(translations)},
			ContentType: p.ContentType(),
		}
	}

	for i, n := range ph.nodes {
		n.Data = preserveWhitespace(n.Data, translations[i])
	}

	if targetLang != "" {
		ph.doc.Find("html").SetAttr("lang", sitetrans.ToHTMLLang(targetLang))
	}

	out, err := ph.doc.Html()
	if err != nil {
		return "", &sitetrans.ProcessorError{
			Message:     "failed to serialize HTML",
			Cause:       err,
			ContentType: p.ContentType(),
		}
	}

	return out, nil
}

// ContentType returns "html".
func (p *HTMLProcessor) ContentType() string {
	return "html"
}

func (p *HTMLProcessor) skip(n *html.Node) bool {
	if p.ignoredTags[strings.ToLower(n.Data)] {
		return true
	}
	for _, attr := range n.Attr {
		if attr.Key == NoTranslateAttr {
			return true
		}
	}
	return false
}

// preserveWhitespace preserves the original leading/trailing whitespace.
func preserveWhitespace(original, translated string) string {
	leadingLen := len(original) - len(strings.TrimLeft(original, " \t\n\r"))
	leading := original[:leadingLen]

	trailingLen := len(original) - len(strings.TrimRight(original, " \t\n\r"))
	trailing := ""
	if trailingLen > 0 {
		trailing = original[len(original)-trailingLen:]
	}

	return leading + translated + trailing
}

// Verify HTMLProcessor implements ContentProcessor
var _ ContentProcessor = (*HTMLProcessor)(nil)
