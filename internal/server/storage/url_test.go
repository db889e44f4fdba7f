package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsImage(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"photo.JPG", true},
		{"photo.jpeg", true},
		{"anim.gif", true},
		{"pic.WebP", true},
		{"dir/nested/shot.png", true},
		{"archive.tar.png", true},
		{"doc.pdf", false},
		{"noext", false},
		{"png", false},
		{"trailingdot.", false},
		{"image.png.txt", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsImage(tt.name))
		})
	}
}

func TestEscapeKey(t *testing.T) {
	assert.Equal(t, "a.txt", EscapeKey("a.txt"))
	assert.Equal(t, "dir/my%20file%231.txt", EscapeKey("dir/my file#1.txt"))
	assert.Equal(t, "caf%C3%A9.png", EscapeKey("café.png"))
}

func TestURLBuilder(t *testing.T) {
	b := newURLBuilder(Options{Provider: "do-spaces", Bucket: "files", Region: "sfo3"})
	assert.Equal(t, "https://files.sfo3.digitaloceanspaces.com/photos/cat.jpg", b.objectURL("photos/cat.jpg"))

	b = newURLBuilder(Options{Provider: "generic", Bucket: "files", Endpoint: "http://localhost:9000"})
	assert.Equal(t, "http://localhost:9000/files/cat.jpg", b.objectURL("cat.jpg"))
}
