package negotiate

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParsePreferenceEmpty(t *testing.T) {
	pref, err := ParsePreference("   ")
	require.NoError(t, err)
	require.Nil(t, pref)
}

func TestParsePreferenceAlternativesAndModifiers(t *testing.T) {
	pref, err := ParsePreference("opus[abr<=160]/m4a/bestaudio")
	require.NoError(t, err)
	require.Len(t, pref.Alternatives, 3)
	require.Len(t, pref.Alternatives[0].Filters, 2)
	require.Equal(t, "codec", pref.Alternatives[0].Filters[0].Key)
	require.Equal(t, "abr", pref.Alternatives[0].Filters[1].Key)
	require.Empty(t, pref.Alternatives[2].Filters)
}

func TestParsePreferenceNumericID(t *testing.T) {
	pref, err := ParsePreference("251/18")
	require.NoError(t, err)
	require.Len(t, pref.Alternatives, 2)
	require.Equal(t, "id", pref.Alternatives[0].Filters[0].Key)
	require.Equal(t, "251", pref.Alternatives[0].Filters[0].Value)
}

func TestParsePreferenceRejectsGarbage(t *testing.T) {
	for _, expr := range []string{"ogg-vorbis-maybe", "opus[abr<=]", "opus[zzz=1]", "opus[abr<=128", "//"} {
		_, err := ParsePreference(expr)
		require.Error(t, err, "expr=%s", expr)
	}
}

func TestBaseCodecStripsProfile(t *testing.T) {
	require.Equal(t, "mp4a", baseCodec("mp4a.40.2"))
	require.Equal(t, "opus", baseCodec(" OPUS "))
}
