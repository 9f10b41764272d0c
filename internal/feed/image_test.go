package feed

import (
	"strings"
	"testing"

	"github.com/mmcdole/gofeed"
	ext "github.com/mmcdole/gofeed/extensions"
)

func mediaContent(url string) ext.Extensions {
	return ext.Extensions{
		"media": {
			"content": {{Name: "content", Attrs: map[string]string{"url": url}}},
		},
	}
}

func TestResolveImage(t *testing.T) {
	tests := []struct {
		name string
		item *gofeed.Item
		want string
	}{
		{
			name: "enclosure wins",
			item: &gofeed.Item{
				Enclosures: []*gofeed.Enclosure{{URL: "http://i/enc.jpg", Type: "image/jpeg"}},
				Extensions: mediaContent("http://i/media.jpg"),
				Content:    `<img src="http://i/inline.png">`,
			},
			want: "http://i/enc.jpg",
		},
		{
			name: "empty enclosure skipped",
			item: &gofeed.Item{
				Enclosures: []*gofeed.Enclosure{{URL: ""}},
				Extensions: mediaContent("http://i/media.jpg"),
			},
			want: "http://i/media.jpg",
		},
		{
			name: "media content",
			item: &gofeed.Item{
				Extensions: mediaContent("http://i/media.jpg"),
				Content:    `<img src="http://i/inline.png">`,
			},
			want: "http://i/media.jpg",
		},
		{
			name: "media group",
			item: &gofeed.Item{
				Extensions: ext.Extensions{
					"media": {
						"group": {{Name: "group", Children: map[string][]ext.Extension{
							"content": {{Name: "content", Attrs: map[string]string{"url": "http://i/group.jpg"}}},
						}}},
					},
				},
			},
			want: "http://i/group.jpg",
		},
		{
			name: "inline img",
			item: &gofeed.Item{Content: `<p><img src="http://i/1.png"></p>`},
			want: "http://i/1.png",
		},
		{
			name: "inline img single quotes",
			item: &gofeed.Item{Content: `<figure><img alt='x' src='http://i/2.png'></figure>`},
			want: "http://i/2.png",
		},
		{
			name: "picture source",
			item: &gofeed.Item{Content: `<picture><source srcset="http://i/3.webp 1x, http://i/3@2x.webp 2x"></picture>`},
			want: "http://i/3.webp",
		},
		{
			name: "json image field",
			item: &gofeed.Item{Content: `{"headline":"x","image" : "http://i/4.jpg"}`},
			want: "http://i/4.jpg",
		},
		{
			name: "description used when content empty",
			item: &gofeed.Item{Description: `Text <img class="lead" src="http://i/5.png"/>`},
			want: "http://i/5.png",
		},
	}
	for _, tt := range tests {
		got, ok := ResolveImage(tt.item)
		if !ok || got != tt.want {
			t.Errorf("%s: ResolveImage = %q, %v; want %q", tt.name, got, ok, tt.want)
		}
	}
}

func TestResolveImageNone(t *testing.T) {
	item := &gofeed.Item{Title: "t", Link: "https://x/a", Content: "<p>no pictures</p>"}
	if got, ok := ResolveImage(item); ok {
		t.Errorf("expected no image, got %q", got)
	}
}

func TestPlaceholderImage(t *testing.T) {
	a := PlaceholderImage("https://x/a")
	again := PlaceholderImage("https://x/a")
	b := PlaceholderImage("https://x/b")

	if a != again {
		t.Error("same URL should produce the same placeholder")
	}
	if a == b {
		t.Error("different URLs should produce different placeholders")
	}
	if !strings.HasPrefix(a, "https://picsum.photos/seed/") {
		t.Errorf("unexpected placeholder %q", a)
	}
}
