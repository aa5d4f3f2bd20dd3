package tree

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFindSibling(t *testing.T) {
	root := build("games/a.zip", "games/a.txt", "top.zip", "top.png")

	got, ok := FindSibling(root, "games/a.zip", "a.txt")
	assert.True(t, ok)
	assert.Equal(t, "games/a.txt", got)

	got, ok = FindSibling(root, "top.zip", "top.png")
	assert.True(t, ok)
	assert.Equal(t, "top.png", got)

	_, ok = FindSibling(root, "games/a.zip", "a.gif")
	assert.False(t, ok)

	_, ok = FindSibling(root, "missing/a.zip", "a.txt")
	assert.False(t, ok)
}

func TestAncestors(t *testing.T) {
	assert.Equal(t, []string{"games", "games/sub"}, Ancestors("games/sub/a.zip"))
	assert.Equal(t, []string{}, Ancestors("a.zip"))
}

func TestBanner(t *testing.T) {
	assert.Equal(t, base+"banner.png", Banner(build("banner.png", "banner.gif"), base))
	assert.Equal(t, base+"banner.gif", Banner(build("banner.gif"), base))
	assert.Empty(t, Banner(build("games/banner.png"), base))
}

func TestLookup(t *testing.T) {
	root := build("games/sub/a.zip")

	assert.NotNil(t, Lookup(root, "games/sub/a.zip"))
	assert.NotNil(t, Lookup(root, "/games/sub/"))
	assert.Nil(t, Lookup(root, "games/other/a.zip"))
	assert.Same(t, root, Lookup(root, ""))
}

func TestDirAndBase(t *testing.T) {
	assert.Equal(t, "games/", Dir("games/a.zip"))
	assert.Equal(t, "", Dir("a.zip"))
	assert.Equal(t, "a.zip", Base("games/a.zip"))
}
