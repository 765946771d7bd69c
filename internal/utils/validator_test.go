package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type usernamePayload struct {
	Username string `validate:"username"`
}

func TestUsernameRule(t *testing.T) {
	v := NewValidator(Limits{UsernameMaxLen: 150})

	valid := []string{
		"alice",
		"alice.bob",
		"alice@host",
		"a+b-c_d",
		"Me",
	}
	for _, name := range valid {
		assert.NoError(t, v.Struct(usernamePayload{Username: name}), name)
	}

	invalid := []string{
		"",
		"me",
		"space name",
		"comma,name",
		"решка",
		strings.Repeat("a", 151),
	}
	for _, name := range invalid {
		assert.Error(t, v.Struct(usernamePayload{Username: name}), name)
	}
}

func TestUsernameRuleHonorsLimit(t *testing.T) {
	v := NewValidator(Limits{UsernameMaxLen: 5})

	require.NoError(t, v.Struct(usernamePayload{Username: "abcde"}))
	require.Error(t, v.Struct(usernamePayload{Username: "abcdef"}))
}
