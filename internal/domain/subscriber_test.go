package domain

import (
	"errors"
	"math/rand"
	"reflect"
	"strings"
	"testing"
	"testing/quick"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"256 grapheme name", strings.Repeat("ё", 256), false},
		{"257 chars", strings.Repeat("a", 257), true},
		{"whitespace only", "   \t ", true},
		{"empty", "", true},
		{"parenthesis", "Ursula (Le Guin)", true},
		{"slash", "a/b", true},
		{"angle brackets", "<script>", true},
		{"braces", "{x}", true},
		{"backslash", `a\b`, true},
		{"quote", `"a"`, true},
		{"regular", "Ursula Le Guin", false},
		{"combining marks count once", strings.Repeat("e\u0301", 256), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseName(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				var verr *ValidationError
				assert.True(t, errors.As(err, &verr))
				assert.Equal(t, "name", verr.Field)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.input, got.String())
		})
	}
}

func TestParseEmail_Rejects(t *testing.T) {
	for _, raw := range []string{
		"",
		"ursuladomain.com",
		"@domain.com",
		"ursula@",
		"ursula@domain..com",
		`ursula\@domain.com`,
		"ursula@@domain.com",
		"ursula@localhost",
	} {
		t.Run(raw, func(t *testing.T) {
			_, err := ParseEmail(raw)
			require.Error(t, err)
			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, "email", verr.Field)
		})
	}
}

type validEmail string

const (
	localAlphabet  = "abcdefghijklmnopqrstuvwxyz0123456789._+-"
	domainAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
)

func randomFrom(r *rand.Rand, alphabet string, n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = alphabet[r.Intn(len(alphabet))]
	}
	return string(b)
}

// Generate builds addresses like "abc@def.gh". Local parts never start or end
// with a dot and never contain two in a row.
func (validEmail) Generate(r *rand.Rand, _ int) reflect.Value {
	local := randomFrom(r, domainAlphabet, 1) + randomFrom(r, domainAlphabet, r.Intn(10))
	if r.Intn(2) == 0 {
		local += randomFrom(r, "._+-", 1) + randomFrom(r, domainAlphabet, 1+r.Intn(5))
	}
	domain := randomFrom(r, domainAlphabet, 1+r.Intn(12))
	tld := randomFrom(r, "abcdefghijklmnopqrstuvwxyz", 2+r.Intn(4))
	return reflect.ValueOf(validEmail(local + "@" + domain + "." + tld))
}

func TestParseEmail_AcceptsGeneratedAddresses(t *testing.T) {
	f := func(e validEmail) bool {
		got, err := ParseEmail(string(e))
		return err == nil && got.String() == string(e)
	}
	require.NoError(t, quick.Check(f, &quick.Config{MaxCount: 200}))
}
