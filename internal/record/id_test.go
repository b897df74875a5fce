package record

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestID_StringForm(t *testing.T) {
	assert.Equal(t, "7", IntID(7).String())
	assert.Equal(t, "abc", StringID("abc").String())
	assert.True(t, IntID(7).Equal(StringID("7")))
	assert.False(t, IntID(7).Equal(StringID("07")))
}

func TestID_Int(t *testing.T) {
	tests := []struct {
		name   string
		id     ID
		want   int64
		wantOK bool
	}{
		{"integer", IntID(12), 12, true},
		{"numeric string", StringID("12"), 12, true},
		{"word", StringID("kw-12"), 0, false},
		{"empty string", StringID(""), 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, ok := tt.id.Int()
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, n)
		})
	}
}

func TestParseID(t *testing.T) {
	tests := []struct {
		in   string
		want ID
	}{
		{"42", IntID(42)},
		{"-3", IntID(-3)},
		{"0", IntID(0)},
		{"u-42", StringID("u-42")},
		{"007", StringID("007")},
		{"+5", StringID("+5")},
		{"-0", StringID("-0")},
		{"", StringID("")},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := ParseID(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.in, got.String(), "text form survives parsing")
		})
	}
}

func TestID_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		in      string
		want    ID
		wantErr bool
	}{
		{`3`, IntID(3), false},
		{`3.0`, IntID(3), false},
		{`1e2`, IntID(100), false},
		{`"x1"`, StringID("x1"), false},
		{`3.5`, ID{}, true},
		{`true`, ID{}, true},
		{`{}`, ID{}, true},
		{`null`, ID{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var id ID
			err := json.Unmarshal([]byte(tt.in), &id)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, id)
		})
	}
}

func TestID_MarshalJSON(t *testing.T) {
	data, err := json.Marshal([]ID{IntID(1), StringID("a")})
	require.NoError(t, err)
	assert.Equal(t, `[1,"a"]`, string(data))
}
