package youtube

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveIdentity(t *testing.T) {
	const id = "dQw4w9WgXcQ"

	testCases := []struct {
		name     string
		input    string
		expected string
		ok       bool
	}{
		{"watch page", "https://www.youtube.com/watch?v=dQw4w9WgXcQ", id, true},
		{"watch page no www", "https://youtube.com/watch?v=dQw4w9WgXcQ", id, true},
		{"watch page mobile", "https://m.youtube.com/watch?v=dQw4w9WgXcQ&t=42s", id, true},
		{"watch page v not first", "https://www.youtube.com/watch?feature=share&v=dQw4w9WgXcQ", id, true},
		{"watch page no scheme", "youtube.com/watch?v=dQw4w9WgXcQ", id, true},
		{"music", "https://music.youtube.com/watch?v=dQw4w9WgXcQ&list=RD", id, true},
		{"short link", "https://youtu.be/dQw4w9WgXcQ", id, true},
		{"short link with share id", "https://youtu.be/dQw4w9WgXcQ?si=abcdef", id, true},
		{"shorts", "https://www.youtube.com/shorts/dQw4w9WgXcQ", id, true},
		{"shorts with query", "https://youtube.com/shorts/dQw4w9WgXcQ?feature=share", id, true},
		{"embed", "https://www.youtube.com/embed/dQw4w9WgXcQ", id, true},
		{"nocookie embed", "https://www.youtube-nocookie.com/embed/dQw4w9WgXcQ", id, true},
		{"live", "https://www.youtube.com/live/dQw4w9WgXcQ", id, true},
		{"bare id", "dQw4w9WgXcQ", id, true},
		{"bare id with dash and underscore", "a-b_c-d_e-f", "a-b_c-d_e-f", true},
		{"surrounding whitespace", "  https://youtu.be/dQw4w9WgXcQ \n", id, true},
		{"shared text", "watch this https://youtu.be/dQw4w9WgXcQ", id, true},

		{"not a url", "not a url", "", false},
		{"empty", "", "", false},
		{"other host", "https://example.com/watch?v=dQw4w9WgXcQ", "", false},
		{"lookalike host", "https://notyoutube.com/watch?v=dQw4w9WgXcQ", "", false},
		{"id too short", "https://youtu.be/abc", "", false},
		{"id too long", "https://youtu.be/dQw4w9WgXcQQ", "", false},
		{"bare too long", "dQw4w9WgXcQQ", "", false},
		{"bare bad alphabet", "dQw4w9WgXc!", "", false},
		{"channel page", "https://www.youtube.com/@rickastley", "", false},
		{"playlist only", "https://www.youtube.com/playlist?list=PL1234567890", "", false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ResolveIdentity(tc.input)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.expected, got)
			assert.Equal(t, tc.ok, IsValidURL(tc.input))
		})
	}
}

func TestResolveIdentityEquivalentShapes(t *testing.T) {
	shapes := []string{
		"https://www.youtube.com/watch?v=jNQXAC9IVRw",
		"https://youtu.be/jNQXAC9IVRw",
		"https://www.youtube.com/shorts/jNQXAC9IVRw",
		"jNQXAC9IVRw",
	}

	for _, shape := range shapes {
		got, ok := ResolveIdentity(shape)
		assert.True(t, ok, shape)
		assert.Equal(t, "jNQXAC9IVRw", got, shape)

		again, _ := ResolveIdentity(shape)
		assert.Equal(t, got, again, "resolution must be deterministic")
	}
}
