package flow

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testChain(t *testing.T) *Chain {
	t.Helper()
	chain := newChain()
	chain.entries["login"] = json.RawMessage(`{
		"response": {"body": {"token": "abc", "user": {"id": 7, "name": "ada"}}, "headers": {"x-request-id": "r1"}},
		"request": {"headers": {}, "body": {}, "parameters": {"page": "2"}}
	}`)
	return chain
}

func TestResolver_Text(t *testing.T) {
	vars := []Variable{
		{Key: "host", Value: "api.example.com", Checked: true},
		{Key: "off", Value: "x", Checked: false},
		{Key: "blank", Value: " ", Checked: true},
	}
	var warnings []string
	res := NewResolver(vars, testChain(t), func(format string, args ...any) {
		warnings = append(warnings, fmt.Sprintf(format, args...))
	})

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"variable", "https://{{host}}/v1", "https://api.example.com/v1"},
		{"variable with spaces", "{{ host }}", "api.example.com"},
		{"chain reference", "Bearer {{$$login.response.body.token}}", "Bearer abc"},
		{"chain number", "{{$$login.response.body.user.id}}", "7"},
		{"expression", "id=[*$[ $$login.response.body.user.name ]$*]", "id=ada"},
		{"unchecked variable stays", "{{off}}", "{{off}}"},
		{"blank variable stays", "{{blank}}", "{{blank}}"},
		{"unknown reference stays", "{{$$nobody.token}}", "{{$$nobody.token}}"},
		{"unknown expression is empty", "a[*$[ $$login.missing ]$*]b", "ab"},
		{"plain text", "no refs here", "no refs here"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, res.Text(tt.input))
		})
	}

	assert.Contains(t, warnings, "unresolved variable: off")
	assert.Contains(t, warnings, "unresolved reference: $$nobody.token")
	assert.Contains(t, warnings, "unresolved expression: $$login.missing")
}

func TestResolver_JSON(t *testing.T) {
	res := NewResolver(nil, testChain(t), nil)

	out := res.JSON(`{"user": [*$[ $$login.response.body.user ]$*], "token": [*$[ $$login.response.body.token ]$*], "n": "{{$$login.response.body.user.id}}"}`)

	require.True(t, json.Valid([]byte(out)), out)
	assert.JSONEq(t, `{"user": {"id": 7, "name": "ada"}, "token": "abc", "n": "7"}`, out)
}

func TestResolver_NilChain(t *testing.T) {
	res := NewResolver([]Variable{{Key: "a", Value: "1", Checked: true}}, nil, nil)

	assert.Equal(t, "1 {{$$x.y}}", res.Text("{{a}} {{$$x.y}}"))
}

func TestChain_Lookup(t *testing.T) {
	chain := testChain(t)

	v, ok := chain.Lookup("$$login.request.parameters.page")
	require.True(t, ok)
	assert.Equal(t, "2", v.String())

	whole, ok := chain.Lookup("$$login")
	require.True(t, ok)
	assert.True(t, whole.IsObject())

	_, ok = chain.Lookup("login.response")
	assert.False(t, ok)

	_, ok = chain.Lookup("$$login.response.body.nope")
	assert.False(t, ok)
}

func TestSanitizeName(t *testing.T) {
	assert.Equal(t, "Get_user_1_", sanitizeName("Get user(1)"))
	assert.Equal(t, "login", sanitizeName("login"))
}

func TestBodyKind(t *testing.T) {
	tests := map[string]string{
		"application/json; charset=utf-8": BodyJSON,
		"application/problem+json":        BodyJSON,
		"text/html":                       BodyHTML,
		"application/xml":                 BodyXML,
		"text/javascript":                 BodyJavaScript,
		"image/png":                       BodyImage,
		"text/plain":                      BodyText,
		"":                                BodyText,
	}
	for contentType, want := range tests {
		assert.Equal(t, want, bodyKind(contentType), contentType)
	}
}
