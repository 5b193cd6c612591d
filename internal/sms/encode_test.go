package sms

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFormEncode(t *testing.T) {
	t.Parallel()

	require.Equal(t, "a+b", FormEncode("a b"))
	require.Equal(t, "sms%5Fsubmit%5B%5Ftoken%5D", FormEncode("sms_submit[_token]"))
	require.Equal(t, "%2B37060000000", FormEncode("+37060000000"))
	require.Equal(t, "%C4%AF", FormEncode("į"))
	require.Equal(t, "%2A%2D%2E%5F%7E", FormEncode("*-._~"))
	require.Empty(t, FormEncode(""))
}

// TestFormEncode_RoundTrip decodes every ASCII byte back with the standard decoder.
func TestFormEncode_RoundTrip(t *testing.T) {
	t.Parallel()

	all := make([]byte, 0, 128)
	for c := range 128 {
		all = append(all, byte(c))
	}

	inputs := []string{
		string(all),
		"boiler-room temp 58.5C: pranešta",
		"100% & more = less?",
	}

	for _, in := range inputs {
		decoded, err := url.QueryUnescape(FormEncode(in))
		require.NoError(t, err)
		require.Equal(t, in, decoded)
	}
}
