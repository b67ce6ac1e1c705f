package phone

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"international plus format", "+7 (700) 123-45-67", "77001234567"},
		{"cis local 8 prefix", "8 (700) 123-45-67", "77001234567"},
		{"double zero prefix", "00375 29 123 45 67", "375291234567"},
		{"already normalized", "77001234567", "77001234567"},
		{"ten digits", "7001234567", "7001234567"},
		{"fifteen digits", "123456789012345", "123456789012345"},
		{"too short", "123", ""},
		{"sixteen digits", "1234567890123456", ""},
		{"letters only", "abc", ""},
		{"empty", "", ""},
		{"whitespace", "   ", ""},
		{"digits with letters", "phone: 8-700-123-45-67", "77001234567"},
		// "8"改写只针对11位号码
		{"eight prefix twelve digits", "870012345678", "870012345678"},
		// "00"前缀可能重复出现，必须全部剥离
		{"repeated double zero prefix", "000012345678", ""},
		{"double zero then valid number", "0000375291234567", "375291234567"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.raw))
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{
		"+7 (700) 123-45-67",
		"8 (700) 123-45-67",
		"00375 29 123 45 67",
		"0000375 29 123 45 67",
		"7001234567",
		"123456789012345",
	}
	for _, raw := range inputs {
		once := Normalize(raw)
		if once == "" {
			continue
		}
		assert.Equal(t, once, Normalize(once), "Normalize must be idempotent for %q", raw)
	}
}

func TestNormalizeList(t *testing.T) {
	got := NormalizeList([]string{
		"+7 700 111 22 33",
		"8 700 111 22 33", // 与上一条规范化后相同 -> 去重
		"",
		"123", // 无效 -> 丢弃
		"0037529 123 45 67",
	})
	assert.Equal(t, []string{"77001112233", "375291234567"}, got)
}

func TestIsNormalized(t *testing.T) {
	assert.True(t, IsNormalized("77001234567"))
	assert.True(t, IsNormalized("375291234567"))
	assert.False(t, IsNormalized("87001234567")) // 会被改写为 7
	assert.False(t, IsNormalized("123"))
	assert.False(t, IsNormalized("7700123456a"))
	assert.False(t, IsNormalized(""))
}
