package content

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const feedXML = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Shop News</title>
    <item>
      <title>Sale &amp; Savings</title>
      <link>https://shop.example/sale</link>
      <guid>sale-1</guid>
      <description>&lt;p&gt;Big &lt;b&gt;discounts&lt;/b&gt; today&lt;/p&gt;</description>
      <pubDate>Mon, 02 Jan 2006 15:04:05 GMT</pubDate>
    </item>
    <item>
      <title>New Arrivals</title>
      <link>https://shop.example/new</link>
      <description>Fresh stock</description>
    </item>
    <item>
      <title>Old Post</title>
      <link>https://shop.example/old</link>
    </item>
  </channel>
</rss>`

func TestFetchItemsNormalizesFeed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprint(w, feedXML)
	}))
	defer srv.Close()

	src := NewRSSSource()
	items, err := src.FetchItems(context.Background(), srv.URL, 0)
	require.NoError(t, err)
	require.Len(t, items, 3)

	assert.Equal(t, "sale-1", items[0].GUID)
	assert.Equal(t, "Sale & Savings", items[0].Title)
	assert.Equal(t, "Big discounts today", items[0].Description, "markup stripped, entities decoded")
	assert.Equal(t, time.Date(2006, 1, 2, 15, 4, 5, 0, time.UTC), items[0].PubDate.UTC())

	// GUID falls back to the link.
	assert.Equal(t, "https://shop.example/new", items[1].GUID)
	// Missing dates fall back to now.
	assert.False(t, items[2].PubDate.IsZero())
}

func TestFetchItemsCapsAtMax(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, feedXML)
	}))
	defer srv.Close()

	src := NewRSSSource()
	items, err := src.FetchItems(context.Background(), srv.URL, 2)
	require.NoError(t, err)
	assert.Len(t, items, 2)
}

func TestFetchItemsPropagatesFetchError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	src := NewRSSSource()
	_, err := src.FetchItems(context.Background(), srv.URL, 0)
	assert.Error(t, err)
}

func TestBuildBodyRendersDigestWithPlainLinks(t *testing.T) {
	items := []Item{
		{Title: "A & B", Link: "https://shop.example/a", Description: "first"},
		{Title: "C", Link: "https://shop.example/c", ImageURL: "https://img.example/c.png"},
	}

	got := BuildBody("Weekly Digest", items)

	assert.Contains(t, got, "<h1>Weekly Digest</h1>")
	assert.Contains(t, got, `<a href="https://shop.example/a">A &amp; B</a>`)
	assert.Contains(t, got, "<p>first</p>")
	assert.Contains(t, got, `<img src="https://img.example/c.png" alt=""/>`)
	// Two items, each with a headline link and a read-more link.
	assert.Equal(t, 2, strings.Count(got, `<a href="https://shop.example/a"`))
	assert.Equal(t, 2, strings.Count(got, `<a href="https://shop.example/c"`))
}
