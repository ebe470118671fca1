package filedrive_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/jmalhotra/filedrive"
)

func TestParseID(t *testing.T) {
	t.Run("valid uuid", func(t *testing.T) {
		want := uuid.New()
		got, err := filedrive.ParseID(want.String())
		assert.NoError(t, err)
		assert.Equal(t, want, got)
	})

	t.Run("malformed values map to invalid input", func(t *testing.T) {
		for _, s := range []string{"", "abc", "123", "not-a-uuid", "0000-0000"} {
			_, err := filedrive.ParseID(s)
			assert.ErrorIs(t, err, filedrive.ErrInvalidInput, "input %q", s)
		}
	})
}

func TestIsAlphanumeric(t *testing.T) {
	tt := []struct {
		Name  string
		Input string
		Want  bool
	}{
		{Name: "letters only", Input: "jdoe", Want: true},
		{Name: "letters and digits", Input: "jdoe42", Want: true},
		{Name: "mixed case", Input: "JDoe", Want: true},
		{Name: "empty", Input: "", Want: false},
		{Name: "contains space", Input: "j doe", Want: false},
		{Name: "contains underscore", Input: "j_doe", Want: false},
		{Name: "contains dash", Input: "j-doe", Want: false},
		{Name: "contains unicode letter", Input: "jdoé", Want: false},
	}

	for _, tc := range tt {
		t.Run(tc.Name, func(t *testing.T) {
			assert.Equal(t, tc.Want, filedrive.IsAlphanumeric(tc.Input))
		})
	}
}

func TestSafeBaseName(t *testing.T) {
	tt := []struct {
		Name  string
		Input string
		Want  string
	}{
		{Name: "plain name", Input: "report.pdf", Want: "report.pdf"},
		{Name: "strips directories", Input: "a/b/report.pdf", Want: "report.pdf"},
		{Name: "strips windows directories", Input: `a\b\report.pdf`, Want: "report.pdf"},
		{Name: "strips traversal", Input: "../../etc/passwd", Want: "passwd"},
		{Name: "strips control characters", Input: "re\x00port\n.pdf", Want: "report.pdf"},
		{Name: "trims whitespace", Input: "  report.pdf  ", Want: "report.pdf"},
		{Name: "empty collapses to file", Input: "", Want: "file"},
		{Name: "dot collapses to file", Input: ".", Want: "file"},
		{Name: "double dot collapses to file", Input: "..", Want: "file"},
		{Name: "control-only collapses to file", Input: "\x01\x02", Want: "file"},
	}

	for _, tc := range tt {
		t.Run(tc.Name, func(t *testing.T) {
			assert.Equal(t, tc.Want, filedrive.SafeBaseName(tc.Input))
		})
	}
}
