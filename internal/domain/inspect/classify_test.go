package inspect

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyRules(t *testing.T) {
	tests := []struct {
		name        string
		base        string
		entries     []string
		preview     Preview
		play        string
		livePreview string
	}{
		{
			name:        "only index.html falls back to html preview",
			base:        "demo",
			entries:     []string{"index.html"},
			preview:     Preview{Kind: PreviewHTML, Entry: "index.html"},
			play:        "index.html",
			livePreview: "index.html",
		},
		{
			name:    "archive-named image beats info.txt",
			base:    "foo",
			entries: []string{"info.txt", "foo.png"},
			preview: Preview{Kind: PreviewImage, Entry: "foo.png"},
		},
		{
			name:    "info.txt wins without an archive-named image",
			base:    "foo",
			entries: []string{"other.png", "info.txt"},
			preview: Preview{Kind: PreviewText, Entry: "info.txt"},
		},
		{
			name:    "archive-named text beats readme",
			base:    "Foo",
			entries: []string{"README.TXT", "foo.txt"},
			preview: Preview{Kind: PreviewText, Entry: "foo.txt"},
		},
		{
			name:        "any image beats any text and play entry",
			base:        "game",
			entries:     []string{"Index.HTML", "notes/changes.txt", "img/shot.JPEG"},
			preview:     Preview{Kind: PreviewImage, Entry: "img/shot.JPEG"},
			play:        "Index.HTML",
			livePreview: "Index.HTML",
		},
		{
			name:    "any text",
			base:    "game",
			entries: []string{"data.json", "docs/license.txt"},
			preview: Preview{Kind: PreviewText, Entry: "docs/license.txt"},
		},
		{
			name:        "other html becomes live preview without play entry",
			base:        "game",
			entries:     []string{"scripts/main.js", "game.html", "help.html"},
			preview:     Preview{Kind: PreviewHTML, Entry: "game.html"},
			livePreview: "game.html",
		},
		{
			name:    "page behind an earlier preview is not a live preview",
			base:    "game",
			entries: []string{"cover.png", "game.html"},
			preview: Preview{Kind: PreviewImage, Entry: "cover.png"},
		},
		{
			name:    "nothing previewable",
			base:    "game",
			entries: []string{"data.bin", "dir/"},
			preview: Preview{Kind: PreviewNone},
		},
		{
			name:        "nested index.html is not the play entry",
			base:        "game",
			entries:     []string{"www/index.html"},
			preview:     Preview{Kind: PreviewHTML, Entry: "www/index.html"},
			livePreview: "www/index.html",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Classify(tt.entries, tt.base)
			assert.Equal(t, tt.preview, c.Preview)
			assert.Equal(t, tt.play, c.Play)
			assert.Equal(t, tt.livePreview, c.LivePreview)
			assert.Equal(t, tt.entries, c.Entries)
		})
	}
}
