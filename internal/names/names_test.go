package names

import (
	"strings"
	"testing"

	"github.com/jason-s-yu/automatch/internal/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeBounds(t *testing.T) {
	f := NewFilter(3, 8, false, nil)

	_, err := f.Normalize("  ab  ")
	assert.ErrorIs(t, err, apperr.ErrNameTooShort)

	_, err = f.Normalize("abcdefghi")
	assert.ErrorIs(t, err, apperr.ErrNameTooLong)

	got, err := f.Normalize("  Zoë  ")
	require.NoError(t, err)
	assert.Equal(t, "Zoë", got)

	// length is counted in characters, not bytes
	got, err = f.Normalize("ééééééé")
	require.NoError(t, err)
	assert.Equal(t, "ééééééé", got)
}

func TestNormalizeBoundsDisabled(t *testing.T) {
	f := NewFilter(0, 0, false, nil)
	got, err := f.Normalize("")
	require.NoError(t, err)
	assert.Empty(t, got)

	long := strings.Repeat("x", 500)
	got, err = f.Normalize(long)
	require.NoError(t, err)
	assert.Equal(t, long, got)
}

func TestNormalizeFoldsCompatibilityForms(t *testing.T) {
	f := NewFilter(1, 32, false, nil)
	got, err := f.Normalize("ｆｏｏ")
	require.NoError(t, err)
	assert.Equal(t, "foo", got)
}

func TestMask(t *testing.T) {
	f := NewFilter(1, 64, true, []string{"admin", "Moderator"})

	tests := []struct {
		in, want string
	}{
		{"the admin", "the *****"},
		{"ADMIN-bob", "*****-bob"},
		{"Ádmin", "*****"},
		{"administrator", "administrator"},
		{"hello moderator!", "hello *********!"},
		{"plain", "plain"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, f.Mask(tt.in))
		})
	}

	got, err := f.Normalize(" real admin ")
	require.NoError(t, err)
	assert.Equal(t, "real *****", got)
}

func TestMaskOnlyWhenCleaning(t *testing.T) {
	f := NewFilter(1, 64, false, []string{"admin"})
	got, err := f.Normalize("admin")
	require.NoError(t, err)
	assert.Equal(t, "admin", got)
}

func TestCleaningFallsBackToDefaultWords(t *testing.T) {
	f := NewFilter(1, 64, true, nil)
	got, err := f.Normalize("Official Staff")
	require.NoError(t, err)
	assert.Equal(t, "******** *****", got)

	custom := NewFilter(1, 64, true, []string{"foo"})
	got, err = custom.Normalize("official foo")
	require.NoError(t, err)
	assert.Equal(t, "official ***", got)
}

func TestGenerate(t *testing.T) {
	f := NewFilter(3, 32, false, nil)
	for i := 0; i < 50; i++ {
		name := f.Generate()
		got, err := f.Normalize(name)
		require.NoError(t, err)
		assert.Equal(t, name, got)
		assert.True(t, strings.HasPrefix(name, "The "))
	}

	short := NewFilter(0, 6, false, nil)
	assert.LessOrEqual(t, len([]rune(short.Generate())), 6)
}
