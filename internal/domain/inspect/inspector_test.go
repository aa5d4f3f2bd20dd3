package inspect

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/browserpike/backend/internal/domain/tree"
	"github.com/browserpike/backend/internal/remote"
	"github.com/browserpike/backend/internal/shared/faults"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const repo = "http://repo/content/"

type fakeSource struct {
	objects map[string]*remote.Object
	errs    map[string]error
}

func (f *fakeSource) Archive(ctx context.Context, url string) (*remote.Object, error) {
	return f.Fetch(ctx, url, remote.KindArchive)
}

func (f *fakeSource) Fetch(_ context.Context, url string, _ remote.Kind) (*remote.Object, error) {
	if err, ok := f.errs[url]; ok {
		return nil, err
	}
	if obj, ok := f.objects[url]; ok {
		return obj, nil
	}
	return nil, &remote.StatusError{URL: url, Code: 404}
}

func (f *fakeSource) Resolve(path string) string {
	return repo + path
}

type outcomes []string

func (o *outcomes) RecordInspection(outcome string, _ int64) {
	*o = append(*o, outcome)
}

func repoTree(paths ...string) *tree.Node {
	root := tree.NewDir()
	for _, p := range paths {
		node := root
		parts := tree.Segments(p)
		for i, part := range parts {
			child, ok := node.Children[part]
			if !ok {
				child = tree.NewFile()
				child.Dir = i < len(parts)-1
				node.Children[part] = child
			}
			node = child
		}
	}
	return root
}

func TestInspectDemoArchive(t *testing.T) {
	modified := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	src := &fakeSource{objects: map[string]*remote.Object{
		repo + "demo.zip": {Body: makeZip(t, files("index.html")...), LastModified: modified},
	}}
	var rec outcomes

	res, err := New(src, nil, &rec).Inspect(context.Background(), "demo.zip", repoTree("demo.zip"))
	require.NoError(t, err)

	c := res.Classification
	assert.Equal(t, "index.html", c.Play)
	assert.Equal(t, Preview{Kind: PreviewHTML, Entry: "index.html"}, c.Preview)
	assert.Equal(t, "index.html", c.LivePreview)
	assert.Equal(t, "Demo", res.Title)
	require.NotNil(t, res.Uploaded)
	assert.True(t, modified.Equal(*res.Uploaded))
	assert.NotNil(t, res.Archive)
	assert.Equal(t, outcomes{"ok"}, rec)
}

func TestInspectResolvesSiblings(t *testing.T) {
	root := repoTree(
		"games/againstTheCrowd.zip",
		"games/againstTheCrowd.txt",
		"games/againstTheCrowd.png",
		"games/againstTheCrowd.c3p",
		"games/againstTheCrowd_win.zip",
		"games/againstTheCrowd_icon.png",
		"other/againstTheCrowd_mac.zip",
	)
	src := &fakeSource{objects: map[string]*remote.Object{
		repo + "games/againstTheCrowd.zip": {Body: makeZip(t, files("index.html", "info.txt")...)},
		repo + "games/againstTheCrowd.txt": {Body: []byte("title: Against\ndescription: Run.")},
	}}

	res, err := New(src, nil, nil).Inspect(context.Background(), "games/againstTheCrowd.zip", root)
	require.NoError(t, err)

	s := res.Siblings
	require.NotNil(t, s.Text)
	assert.Equal(t, "games/againstTheCrowd.txt", s.Text.Path)
	require.NotNil(t, s.Image)
	assert.Equal(t, repo+"games/againstTheCrowd.png", s.Image.URL)
	require.NotNil(t, s.Project)
	assert.Equal(t, "againstTheCrowd.c3p", s.Project.Name)
	assert.Nil(t, s.Capx)
	assert.NotNil(t, s.Win)
	assert.Nil(t, s.Mac)
	assert.NotNil(t, s.Icon)

	assert.Equal(t, "Against The Crowd", res.Title)
	assert.Equal(t, s.Image, res.Surface.Image)
	require.NotNil(t, res.Surface.Note)
	assert.Equal(t, "Against", res.Surface.Note.Title)
	assert.Equal(t, Preview{Kind: PreviewText, Entry: "info.txt"}, res.Classification.Preview)
}

func TestInspectPrefersGifSibling(t *testing.T) {
	root := repoTree("a.zip", "a.gif", "a.png")
	src := &fakeSource{objects: map[string]*remote.Object{
		repo + "a.zip": {Body: makeZip(t, files("index.html")...)},
	}}

	res, err := New(src, nil, nil).Inspect(context.Background(), "a.zip", root)
	require.NoError(t, err)
	assert.Equal(t, "a.gif", res.Siblings.Image.Name)
}

func TestInspectNoteFailureIsNotFatal(t *testing.T) {
	root := repoTree("a.zip", "a.txt")
	src := &fakeSource{
		objects: map[string]*remote.Object{repo + "a.zip": {Body: makeZip(t, files("index.html")...)}},
		errs:    map[string]error{repo + "a.txt": errors.New("connection reset")},
	}

	res, err := New(src, nil, nil).Inspect(context.Background(), "a.zip", root)
	require.NoError(t, err)
	assert.Nil(t, res.Surface.Note)
	assert.Equal(t, noteUnavailable, res.Surface.NoteError)
}

func TestInspectFailures(t *testing.T) {
	tests := []struct {
		name    string
		src     *fakeSource
		want    *faults.Error
		outcome string
	}{
		{
			name:    "fetch error",
			src:     &fakeSource{errs: map[string]error{repo + "a.zip": fmt.Errorf("HTTP 500")}},
			want:    faults.ErrArchiveFetch,
			outcome: "archive_fetch_error",
		},
		{
			name:    "timeout",
			src:     &fakeSource{errs: map[string]error{repo + "a.zip": faults.New(faults.KindTimeout, "remote.get", repo+"a.zip", context.DeadlineExceeded)}},
			want:    faults.ErrTimeout,
			outcome: "timeout",
		},
		{
			name:    "decode error",
			src:     &fakeSource{objects: map[string]*remote.Object{repo + "a.zip": {Body: []byte("garbage")}}},
			want:    faults.ErrArchiveDecode,
			outcome: "archive_decode_error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var rec outcomes
			_, err := New(tt.src, nil, &rec).Inspect(context.Background(), "a.zip", repoTree("a.zip"))
			require.Error(t, err)
			assert.Equal(t, tt.want.Kind, faults.KindOf(err))
			assert.Equal(t, outcomes{tt.outcome}, rec)
		})
	}
}

func TestInspectMatchesDecodedBaseName(t *testing.T) {
	src := &fakeSource{objects: map[string]*remote.Object{
		repo + "My%20Game.zip": {Body: makeZip(t, files("readme.txt", "my game.png")...)},
	}}

	res, err := New(src, nil, nil).Inspect(context.Background(), "My%20Game.zip", repoTree("My%20Game.zip"))
	require.NoError(t, err)
	assert.Equal(t, Preview{Kind: PreviewImage, Entry: "my game.png"}, res.Classification.Preview)
	assert.Equal(t, "My Game.zip", res.FileName)
	assert.Equal(t, "My Game", res.Title)
}
