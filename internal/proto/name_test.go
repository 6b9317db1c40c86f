package proto

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckName(t *testing.T) {
	cases := []struct {
		name    string
		in      string
		wantErr error
	}{
		{"valid", "default", nil},
		{"valid-chars", "a.b-c_d;e$f()+/0", nil},
		{"empty", "", ErrNameEmpty},
		{"too-long", strings.Repeat("a", MaxNameLen+1), ErrNameTooLong},
		{"max-len-ok", strings.Repeat("a", MaxNameLen), nil},
		{"bad-prefix", "-tube", ErrNameBadPrefix},
		{"bad-char", "tube name", ErrNameBadChar},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			err := CheckName(c.in)
			if c.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			var nerr NameError
			assert.ErrorAs(t, err, &nerr)
			assert.ErrorIs(t, err, c.wantErr)
		})
	}
}
