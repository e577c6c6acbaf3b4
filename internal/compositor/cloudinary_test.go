package compositor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComposeBuildsFetchURL(t *testing.T) {
	t.Parallel()

	c := New("demo", "fe8d10")
	got := c.Compose("https://cdn.example.com/banner.jpg")
	assert.Equal(t,
		"https://res.cloudinary.com/demo/image/fetch/b_rgb:fe8d10,f_jpg/https%3A%2F%2Fcdn.example.com%2Fbanner.jpg",
		got,
	)
}

func TestComposeEmptyInput(t *testing.T) {
	t.Parallel()

	c := New("demo", "fe8d10")
	assert.Equal(t, "", c.Compose(""))
}

func TestComposeUnconfiguredPassesThrough(t *testing.T) {
	t.Parallel()

	c := New("", "fe8d10")
	assert.Equal(t, "https://cdn.example.com/banner.jpg", c.Compose("https://cdn.example.com/banner.jpg"))
}
