package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"chatd/pkg/models"
)

func TestUserID(t *testing.T) {
	require.NoError(t, UserID("alice"))
	require.NoError(t, UserID("user-123_x"))

	require.Error(t, UserID(""))
	require.Error(t, UserID(strings.Repeat("a", 129)))
	require.Error(t, UserID("a|b"))
	require.Error(t, UserID("a:b"))
	require.Error(t, UserID("a b"))
}

func TestEmoji(t *testing.T) {
	require.NoError(t, Emoji("👍"))
	require.Error(t, Emoji(""))
	require.Error(t, Emoji(strings.Repeat("x", 100)))
	require.Error(t, Emoji(string([]byte{0xff, 0xfe})))
}

func TestContent(t *testing.T) {
	require.NoError(t, Content(models.KindText, "hi", "", nil))
	require.NoError(t, Content(models.KindImage, "", "https://cdn/p.png", nil))
	require.NoError(t, Content(models.KindGif, "", "", &models.GifRef{URL: "https://giphy/x"}))

	require.Error(t, Content(models.KindText, "", "", nil))
	require.Error(t, Content(models.KindImage, "", "", nil))
	require.Error(t, Content(models.KindGif, "", "", nil))
	require.Error(t, Content(models.KindGif, "", "", &models.GifRef{}))
	require.Error(t, Content("voice", "x", "", nil))
}
