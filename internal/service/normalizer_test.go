package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	n := NewCodeNormalizer([]string{"sh", "SZ", " bj "})
	cases := []struct {
		raw, code, market string
	}{
		{"SH600000", "600000", "SH"},
		{"sz000001", "000001", "SZ"},
		{"BJ430047", "430047", "BJ"},
		{"600000.SH", "600000", "SH"},
		{"000001.sz", "000001", "SZ"},
		{"SH.600000", "600000", "SH"},
		{"sz:000001", "000001", "SZ"},
		{" 600000 ", "600000", ""},
	}
	for _, tc := range cases {
		code, market, err := n.Normalize(tc.raw)
		require.NoError(t, err, tc.raw)
		assert.Equal(t, tc.code, code, tc.raw)
		assert.Equal(t, tc.market, market, tc.raw)
	}
}

func TestNormalizeRejects(t *testing.T) {
	n := NewCodeNormalizer([]string{"SH", "SZ", "BJ"})
	for _, raw := range []string{"", "SH", "HK00700", "60000A", "SH60000012345678901", "SZ-000001"} {
		_, _, err := n.Normalize(raw)
		assert.Error(t, err, raw)
	}
}

// SH000001 (上证指数) 与 SZ000001 (平安银行) 规范化后相同
func TestNormalizeCollapsesMarkets(t *testing.T) {
	n := NewCodeNormalizer([]string{"SH", "SZ"})
	a, _, err := n.Normalize("SH000001")
	require.NoError(t, err)
	b, _, err := n.Normalize("SZ000001")
	require.NoError(t, err)
	assert.Equal(t, a, b)
}
