package domain

import "context"

// PageNode is one element in the structural snapshot of a page the DOM
// collaborator hands over. The tree is treated as immutable: content
// selection builds pruned copies and never mutates the nodes it was given.
type PageNode struct {
	Tag        string
	Class      string
	ID         string
	Style      string
	Hidden     bool
	AriaHidden bool
	Role       string
	// Width and Height describe the visible bounding box. Zero on both
	// axes means the element is not rendered.
	Width  float64
	Height float64
	// Text is the text carried directly by this node, not including
	// descendants.
	Text     string
	Children []*PageNode
}

// PageExtract is the cleaned main-content text selected from a page.
type PageExtract struct {
	Text      string
	WordCount int
	Title     string
}

// PageSource is the raw page-DOM access primitive: it returns a snapshot of
// the visible content tree on request. The core never fetches pages itself.
type PageSource interface {
	Snapshot(ctx context.Context) (*PageNode, error)
}
