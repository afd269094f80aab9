package crawler

import (
	"io"
	"net/url"
	"sort"
	"strings"

	"golang.org/x/net/html"
)

// Parser extracts information from NHANES data portal HTML.
// It identifies .XPT data file links on component listing pages and dataset
// titles on documentation pages.
type Parser struct {
	// baseURL is the URL of the page being parsed, used for resolving
	// relative file links.
	baseURL *url.URL
}

// NewParser creates a new HTML parser with the given base URL.
// The base URL is used to resolve relative links.
func NewParser(baseURL string) (*Parser, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}
	return &Parser{baseURL: u}, nil
}

// DataFileLinks parses a component listing page and returns the absolute
// URLs of all linked .XPT files, sorted and deduplicated.
//
// The extension match is case-insensitive: the portal links both ".XPT"
// and ".xpt" depending on the cycle.
func (p *Parser) DataFileLinks(content io.Reader) ([]string, error) {
	doc, err := html.Parse(content)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var links []string

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			if href, ok := attr(n, "href"); ok && isDataFileLink(href) {
				if abs := p.resolve(href); abs != "" && !seen[abs] {
					seen[abs] = true
					links = append(links, abs)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	sort.Strings(links)
	return links, nil
}

// DatasetTitle parses an NHANES documentation page and returns the dataset
// title: the text of the first <h3> under the page header element, with a
// trailing parenthetical (the dataset short name) stripped.
//
// Returns an empty string when the page has no recognizable title.
func DatasetTitle(content io.Reader) (string, error) {
	doc, err := html.Parse(content)
	if err != nil {
		return "", err
	}

	header := findByID(doc, "PageHeader")
	if header == nil {
		// Older documentation pages put the title in a bare <h3>.
		header = doc
	}

	h3 := findElement(header, "h3")
	if h3 == nil {
		return "", nil
	}

	title := strings.TrimSpace(text(h3))
	if i := strings.LastIndex(title, "("); i > 0 {
		title = strings.TrimSpace(title[:i])
	}
	return title, nil
}

// resolve turns a possibly relative href into an absolute URL string.
func (p *Parser) resolve(href string) string {
	u, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return ""
	}
	return p.baseURL.ResolveReference(u).String()
}

// isDataFileLink reports whether an href points at a transport data file.
func isDataFileLink(href string) bool {
	return strings.HasSuffix(strings.ToUpper(strings.TrimSpace(href)), ".XPT")
}

// attr returns the value of the named attribute on an element node.
func attr(n *html.Node, name string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val, true
		}
	}
	return "", false
}

// findByID returns the first node with the given id attribute.
func findByID(n *html.Node, id string) *html.Node {
	if n.Type == html.ElementNode {
		if v, ok := attr(n, "id"); ok && v == id {
			return n
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findByID(c, id); found != nil {
			return found
		}
	}
	return nil
}

// findElement returns the first element node with the given tag name.
func findElement(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, tag); found != nil {
			return found
		}
	}
	return nil
}

// text concatenates all text content beneath a node.
func text(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}
