package dom

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"pagequiz/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func findByTag(root *domain.PageNode, tag string) *domain.PageNode {
	if root == nil {
		return nil
	}
	if root.Tag == tag {
		return root
	}
	for _, child := range root.Children {
		if found := findByTag(child, tag); found != nil {
			return found
		}
	}
	return nil
}

func TestParseString_AttributesAndText(t *testing.T) {
	root, err := ParseString(`<html><head><title>Page Title</title></head>
<body>
  <article class="post story" id="main-article" style="color: black" role="main">
    <p>First paragraph of the article body.</p>
    <div hidden>invisible block</div>
    <span aria-hidden="true">decoration</span>
    <span aria-hidden="false">still visible</span>
  </article>
</body></html>`)
	require.NoError(t, err)
	assert.Equal(t, "html", root.Tag)

	title := findByTag(root, "title")
	require.NotNil(t, title)
	assert.Equal(t, "Page Title", title.Text)

	article := findByTag(root, "article")
	require.NotNil(t, article)
	assert.Equal(t, "post story", article.Class)
	assert.Equal(t, "main-article", article.ID)
	assert.Equal(t, "color: black", article.Style)
	assert.Equal(t, "main", article.Role)
	assert.Greater(t, article.Width, 0.0)
	assert.Greater(t, article.Height, 0.0)

	para := findByTag(article, "p")
	require.NotNil(t, para)
	assert.Equal(t, "First paragraph of the article body.", para.Text)

	div := findByTag(article, "div")
	require.NotNil(t, div)
	assert.True(t, div.Hidden)

	var spans []*domain.PageNode
	for _, child := range article.Children {
		if child.Tag == "span" {
			spans = append(spans, child)
		}
	}
	require.Len(t, spans, 2)
	assert.True(t, spans[0].AriaHidden)
	assert.False(t, spans[1].AriaHidden, `aria-hidden="false" must not hide`)
}

func TestParseString_JoinsInterleavedText(t *testing.T) {
	root, err := ParseString(`<p>before <b>bold</b> after</p>`)
	require.NoError(t, err)

	para := findByTag(root, "p")
	require.NotNil(t, para)
	assert.Equal(t, "before after", para.Text)

	bold := findByTag(para, "b")
	require.NotNil(t, bold)
	assert.Equal(t, "bold", bold.Text)
}

func TestHTTPPageSource_Snapshot(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.Header.Get("Accept"), "text/html")
		w.Write([]byte(`<html><body><article><p>Fetched content lives here.</p></article></body></html>`))
	}))
	defer server.Close()

	source := NewHTTPPageSource(server.URL, time.Second, 1<<20)
	root, err := source.Snapshot(context.Background())
	require.NoError(t, err)

	para := findByTag(root, "p")
	require.NotNil(t, para)
	assert.Equal(t, "Fetched content lives here.", para.Text)
}

func TestHTTPPageSource_NonSuccessStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	source := NewHTTPPageSource(server.URL, time.Second, 1<<20)
	_, err := source.Snapshot(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestStaticPageSource(t *testing.T) {
	root := &domain.PageNode{Tag: "body"}
	source := &StaticPageSource{Root: root}

	got, err := source.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Same(t, root, got)

	_, err = (&StaticPageSource{}).Snapshot(context.Background())
	require.Error(t, err)
}
