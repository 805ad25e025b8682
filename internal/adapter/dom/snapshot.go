// Package dom provides the raw page-DOM access collaborators: building a
// structural snapshot tree out of HTML, either handed over inline or
// fetched from a URL. Static HTML has no layout, so element boxes are
// synthesized as visible; the hidden/aria-hidden/inline-style markers are
// preserved for the selector's second pruning pass.
package dom

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"pagequiz/internal/domain"

	"golang.org/x/net/html"
)

// nominalBox is the synthetic bounding box applied to parsed elements.
const nominalBox = 1.0

// Parse builds a PageNode snapshot from an HTML document.
func Parse(r io.Reader) (*domain.PageNode, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, domain.NewInvalidInputError("could not parse HTML: " + err.Error())
	}
	root := convert(doc)
	if root == nil {
		return nil, domain.NewInvalidInputError("HTML document is empty")
	}
	return root, nil
}

// ParseString is a convenience wrapper for inline HTML payloads.
func ParseString(s string) (*domain.PageNode, error) {
	return Parse(strings.NewReader(s))
}

func convert(n *html.Node) *domain.PageNode {
	switch n.Type {
	case html.DocumentNode:
		// Unwrap down to the first element, normally <html>.
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if node := convert(c); node != nil {
				return node
			}
		}
		return nil
	case html.ElementNode:
		node := &domain.PageNode{
			Tag:    strings.ToLower(n.Data),
			Width:  nominalBox,
			Height: nominalBox,
		}
		for _, attr := range n.Attr {
			switch strings.ToLower(attr.Key) {
			case "class":
				node.Class = attr.Val
			case "id":
				node.ID = attr.Val
			case "style":
				node.Style = attr.Val
			case "role":
				node.Role = attr.Val
			case "hidden":
				node.Hidden = true
			case "aria-hidden":
				node.AriaHidden = strings.EqualFold(attr.Val, "true")
			}
		}
		var texts []string
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			switch c.Type {
			case html.TextNode:
				if t := strings.TrimSpace(c.Data); t != "" {
					texts = append(texts, t)
				}
			case html.ElementNode:
				if child := convert(c); child != nil {
					node.Children = append(node.Children, child)
				}
			}
		}
		node.Text = strings.Join(texts, " ")
		return node
	default:
		return nil
	}
}

// HTTPPageSource fetches a URL and snapshots its DOM. It implements
// domain.PageSource for UI surfaces that send a page address instead of
// the page itself.
type HTTPPageSource struct {
	client  *http.Client
	url     string
	maxBody int64
}

func NewHTTPPageSource(url string, timeout time.Duration, maxBody int64) *HTTPPageSource {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if maxBody <= 0 {
		maxBody = 4 * 1024 * 1024
	}
	return &HTTPPageSource{
		client:  &http.Client{Timeout: timeout},
		url:     url,
		maxBody: maxBody,
	}
}

var _ domain.PageSource = (*HTTPPageSource)(nil)

// Snapshot fetches the page and parses it into a snapshot tree.
func (s *HTTPPageSource) Snapshot(ctx context.Context) (*domain.PageNode, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, domain.NewInvalidInputError("invalid page URL: " + err.Error())
	}
	req.Header.Set("Accept", "text/html")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, domain.NewInternalError("failed to fetch page", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, domain.NewInternalError(
			fmt.Sprintf("page fetch returned status %d", resp.StatusCode), nil)
	}
	return Parse(io.LimitReader(resp.Body, s.maxBody))
}

// StaticPageSource wraps an already-built snapshot, used when the display
// surface ships the page HTML inline.
type StaticPageSource struct {
	Root *domain.PageNode
}

func (s *StaticPageSource) Snapshot(ctx context.Context) (*domain.PageNode, error) {
	if s.Root == nil {
		return nil, domain.NewInvalidInputError("page snapshot is empty")
	}
	return s.Root, nil
}
