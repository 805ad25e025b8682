package content

import (
	"regexp"
	"strings"

	"pagequiz/internal/domain"
)

// minLineLength filters nav crumbs and stray labels out of the cleaned
// text: lines shorter than this are dropped during normalization.
const minLineLength = 20

// minCandidateTextLength keeps trivially small regions (empty articles,
// decorative mains) out of the candidate pool.
const minCandidateTextLength = 200

// noiseTags are removed from the selected region wholesale.
var noiseTags = map[string]bool{
	"nav":      true,
	"header":   true,
	"footer":   true,
	"aside":    true,
	"script":   true,
	"style":    true,
	"noscript": true,
	"iframe":   true,
	"object":   true,
	"embed":    true,
	"form":     true,
	"button":   true,
	"svg":      true,
	"canvas":   true,
	"video":    true,
	"audio":    true,
}

// noiseTokens prune any element whose class or id contains one of these as
// a whole word, case-insensitively. Matching substrings would be too eager:
// "content" contains "ad" but is exactly what we want to keep.
var noiseTokens = map[string]bool{
	"ad":            true,
	"ads":           true,
	"advert":        true,
	"advertisement": true,
	"nav":           true,
	"navbar":        true,
	"menu":          true,
	"sidebar":       true,
	"header":        true,
	"footer":        true,
	"cookie":        true,
	"banner":        true,
	"modal":         true,
	"popup":         true,
	"overlay":       true,
	"share":         true,
	"social":        true,
	"comment":       true,
	"comments":      true,
	"related":       true,
	"recommended":   true,
	"promo":         true,
	"newsletter":    true,
	"subscribe":     true,
	"breadcrumb":    true,
	"breadcrumbs":   true,
	"pagination":    true,
	"widget":        true,
	"toolbar":       true,
}

var tokenSplit = regexp.MustCompile(`[^a-z0-9]+`)

// candidateSelector is one entry of the fixed priority list of structural
// selectors used to locate the main content region.
type candidateSelector func(n *domain.PageNode) bool

var candidateSelectors = []candidateSelector{
	func(n *domain.PageNode) bool { return n.Tag == "article" },
	func(n *domain.PageNode) bool { return n.Tag == "main" },
	func(n *domain.PageNode) bool { return strings.EqualFold(n.Role, "main") },
	func(n *domain.PageNode) bool { return hasClassToken(n, "content") },
	func(n *domain.PageNode) bool { return hasClassToken(n, "article") },
	func(n *domain.PageNode) bool { return hasClassToken(n, "post") },
	func(n *domain.PageNode) bool { return hasClassToken(n, "entry") },
	func(n *domain.PageNode) bool { return hasClassToken(n, "story") },
}

// Selector finds the most plausible main-content region of a page snapshot
// and emits cleaned text. It is a pure read of the provided tree: pruning
// operates on copies and never mutates the caller's nodes.
type Selector struct{}

func NewSelector() *Selector {
	return &Selector{}
}

// Select evaluates the priority selector list against the snapshot, scores
// every visible, non-trivial candidate with the density heuristic
// (visible text length / direct child count) and keeps the winner, falling
// back to the body (or the root itself) when no candidate qualifies.
func (s *Selector) Select(root *domain.PageNode) (domain.PageExtract, error) {
	if root == nil {
		return domain.PageExtract{}, domain.NewInvalidInputError("page snapshot is empty")
	}

	region := bestCandidate(root)
	if region == nil {
		region = findFirst(root, func(n *domain.PageNode) bool { return n.Tag == "body" })
	}
	if region == nil {
		region = root
	}

	pruned := pruneNoise(region)
	pruned = dropHidden(pruned)

	text := normalizeText(collectText(pruned))
	return domain.PageExtract{
		Text:      text,
		WordCount: len(strings.Fields(text)),
		Title:     findTitle(root),
	}, nil
}

// bestCandidate returns the highest-scoring qualifying region, or nil.
func bestCandidate(root *domain.PageNode) *domain.PageNode {
	var best *domain.PageNode
	var bestScore float64

	for _, matches := range candidateSelectors {
		walk(root, func(n *domain.PageNode) {
			if !matches(n) || !isVisible(n) {
				return
			}
			textLen := visibleTextLength(n)
			if textLen < minCandidateTextLength {
				return
			}
			// Density heuristic: rewards text-dense, markup-light
			// regions and penalizes link-heavy containers.
			children := len(n.Children)
			if children == 0 {
				children = 1
			}
			score := float64(textLen) / float64(children)
			if best == nil || score > bestScore {
				best, bestScore = n, score
			}
		})
	}
	return best
}

// pruneNoise returns a copy of the tree with noise subtrees removed, both
// by tag denylist and by class/id token denylist.
func pruneNoise(n *domain.PageNode) *domain.PageNode {
	if n == nil || noiseTags[n.Tag] || hasNoiseToken(n) {
		return nil
	}
	out := *n
	out.Children = nil
	for _, child := range n.Children {
		if kept := pruneNoise(child); kept != nil {
			out.Children = append(out.Children, kept)
		}
	}
	return &out
}

// dropHidden removes elements hidden via inline style or explicit
// hidden/aria-hidden markers. This runs as a second pass because computed
// styles are unavailable on a detached snapshot; only inline markers can be
// inspected here.
func dropHidden(n *domain.PageNode) *domain.PageNode {
	if n == nil || n.Hidden || n.AriaHidden || styleHides(n.Style) {
		return nil
	}
	out := *n
	out.Children = nil
	for _, child := range n.Children {
		if kept := dropHidden(child); kept != nil {
			out.Children = append(out.Children, kept)
		}
	}
	return &out
}

func styleHides(style string) bool {
	s := strings.ToLower(strings.ReplaceAll(style, " ", ""))
	return strings.Contains(s, "display:none") || strings.Contains(s, "visibility:hidden")
}

func isVisible(n *domain.PageNode) bool {
	if n.Hidden || n.AriaHidden || styleHides(n.Style) {
		return false
	}
	return n.Width > 0 && n.Height > 0
}

func visibleTextLength(n *domain.PageNode) int {
	total := len(strings.TrimSpace(n.Text))
	for _, child := range n.Children {
		if !child.Hidden && !child.AriaHidden && !styleHides(child.Style) {
			total += visibleTextLength(child)
		}
	}
	return total
}

func hasNoiseToken(n *domain.PageNode) bool {
	for _, token := range classTokens(n) {
		if noiseTokens[token] {
			return true
		}
	}
	return false
}

func hasClassToken(n *domain.PageNode, want string) bool {
	for _, token := range classTokens(n) {
		if token == want {
			return true
		}
	}
	return false
}

func classTokens(n *domain.PageNode) []string {
	joined := strings.ToLower(n.Class + " " + n.ID)
	var tokens []string
	for _, t := range tokenSplit.Split(joined, -1) {
		if t != "" {
			tokens = append(tokens, t)
		}
	}
	return tokens
}

// collectText joins the text carried by the tree, one node per line, in
// document order.
func collectText(n *domain.PageNode) string {
	if n == nil {
		return ""
	}
	var b strings.Builder
	walk(n, func(node *domain.PageNode) {
		if t := strings.TrimSpace(node.Text); t != "" {
			b.WriteString(t)
			b.WriteString("\n")
		}
	})
	return b.String()
}

// normalizeText collapses internal whitespace per line, trims, drops lines
// shorter than minLineLength and rejoins.
func normalizeText(raw string) string {
	var lines []string
	for _, line := range strings.Split(raw, "\n") {
		collapsed := strings.Join(strings.Fields(line), " ")
		if len(collapsed) >= minLineLength {
			lines = append(lines, collapsed)
		}
	}
	return strings.Join(lines, "\n")
}

func findTitle(root *domain.PageNode) string {
	if n := findFirst(root, func(n *domain.PageNode) bool { return n.Tag == "title" }); n != nil {
		if t := strings.TrimSpace(n.Text); t != "" {
			return t
		}
	}
	if n := findFirst(root, func(n *domain.PageNode) bool { return n.Tag == "h1" }); n != nil {
		return strings.Join(strings.Fields(collectText(n)), " ")
	}
	return ""
}

func findFirst(n *domain.PageNode, pred func(*domain.PageNode) bool) *domain.PageNode {
	if n == nil {
		return nil
	}
	if pred(n) {
		return n
	}
	for _, child := range n.Children {
		if found := findFirst(child, pred); found != nil {
			return found
		}
	}
	return nil
}

func walk(n *domain.PageNode, visit func(*domain.PageNode)) {
	if n == nil {
		return
	}
	visit(n)
	for _, child := range n.Children {
		walk(child, visit)
	}
}
