package record

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_DropsIDField(t *testing.T) {
	r := New(IntID(1), map[string]any{"id": 99, "keyword": "seo"})
	assert.Equal(t, IntID(1), r.ID)
	_, ok := r.Get("id")
	assert.False(t, ok)
	v, ok := r.Get("keyword")
	require.True(t, ok)
	assert.Equal(t, "seo", v)
}

func TestNew_CopiesFields(t *testing.T) {
	fields := map[string]any{"name": "A"}
	r := New(IntID(1), fields)
	fields["name"] = "B"
	assert.Equal(t, "A", r.Fields["name"])
}

func TestMerge_Shallow(t *testing.T) {
	r := New(IntID(1), map[string]any{"name": "A", "score": 1, "meta": map[string]any{"x": 1}})
	merged := r.Merge(map[string]any{"score": 2, "meta": map[string]any{"y": 2}, "id": 50})

	assert.Equal(t, IntID(1), merged.ID)
	assert.Equal(t, "A", merged.Fields["name"])
	assert.Equal(t, 2, merged.Fields["score"])
	assert.Equal(t, map[string]any{"y": 2}, merged.Fields["meta"])

	// original untouched
	assert.Equal(t, 1, r.Fields["score"])
}

func TestRecord_MarshalJSON_IDFirstSortedFields(t *testing.T) {
	r := New(IntID(2), map[string]any{"zeta": true, "keyword": "ppc", "alpha": 1})
	data, err := json.Marshal(r)
	require.NoError(t, err)
	assert.Equal(t, `{"id":2,"alpha":1,"keyword":"ppc","zeta":true}`, string(data))
}

func TestRecord_UnmarshalJSON(t *testing.T) {
	var r Record
	err := json.Unmarshal([]byte(`{"keyword":"seo","id":"k-1","volume":10}`), &r)
	require.NoError(t, err)
	assert.Equal(t, StringID("k-1"), r.ID)
	assert.Equal(t, "seo", r.Fields["keyword"])
	assert.Equal(t, float64(10), r.Fields["volume"])
	_, hasID := r.Fields["id"]
	assert.False(t, hasID)
}

func TestRecord_UnmarshalJSON_MissingID(t *testing.T) {
	var r Record
	err := json.Unmarshal([]byte(`{"keyword":"seo"}`), &r)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoID))
}

func TestRecord_UnmarshalJSON_BadID(t *testing.T) {
	var r Record
	err := json.Unmarshal([]byte(`{"id":[1]}`), &r)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidID))
}

func TestSnapshot_RoundTrip(t *testing.T) {
	in := []Record{
		New(IntID(2), map[string]any{"keyword": "ppc"}),
		New(IntID(1), map[string]any{"keyword": "seo"}),
	}
	data, err := EncodeSnapshot(in)
	require.NoError(t, err)
	assert.Equal(t, `[{"id":2,"keyword":"ppc"},{"id":1,"keyword":"seo"}]`, string(data))

	out, err := DecodeSnapshot(data)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, in[0].ID, out[0].ID)
	assert.Equal(t, "seo", out[1].Fields["keyword"])
}

func TestSnapshot_EmptyForms(t *testing.T) {
	for _, in := range []string{"", "  ", "null", "[]"} {
		out, err := DecodeSnapshot([]byte(in))
		require.NoError(t, err, "input %q", in)
		assert.NotNil(t, out)
		assert.Empty(t, out)
	}

	data, err := EncodeSnapshot(nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))
}

func TestSnapshot_Corrupt(t *testing.T) {
	for _, in := range []string{"{not json", `{"id":1}`, `[{"name":"no id"}]`, `[1,2]`} {
		_, err := DecodeSnapshot([]byte(in))
		assert.Error(t, err, "input %q", in)
	}
}

func TestIndexOf_StringCompared(t *testing.T) {
	records := []Record{
		New(StringID("5"), nil),
		New(IntID(5), nil),
		New(IntID(6), nil),
	}
	assert.Equal(t, 0, IndexOf(records, IntID(5)), "first match wins")
	assert.Equal(t, 2, IndexOf(records, StringID("6")))
	assert.Equal(t, -1, IndexOf(records, IntID(7)))
}

func TestValidateKey(t *testing.T) {
	valid := []string{"users", "keywords", "asset_types", "qc-runs", "a1"}
	for _, k := range valid {
		got, err := ValidateKey(k)
		assert.NoError(t, err, k)
		assert.Equal(t, k, got)
	}

	invalid := []string{"", "Users", "1users", "has space", "slash/es", "ünicode"}
	for _, k := range invalid {
		_, err := ValidateKey(k)
		assert.ErrorIs(t, err, ErrInvalidKey, k)
	}
}

type keyword struct {
	Keyword string  `json:"keyword"`
	Volume  float64 `json:"volume,omitempty"`
}

func TestTyped_RoundTrip(t *testing.T) {
	r := New(IntID(3), map[string]any{"keyword": "seo", "volume": 1200.0, "extra": "kept"})

	typed, err := As[keyword](r)
	require.NoError(t, err)
	assert.Equal(t, IntID(3), typed.ID)
	assert.Equal(t, "seo", typed.Payload.Keyword)
	assert.Equal(t, 1200.0, typed.Payload.Volume)

	back, err := From(typed)
	require.NoError(t, err)
	assert.Equal(t, IntID(3), back.ID)
	assert.Equal(t, "seo", back.Fields["keyword"])
}

func TestFieldsOf_RejectsNonObject(t *testing.T) {
	_, err := FieldsOf("just a string")
	assert.Error(t, err)
}

func TestAsAll(t *testing.T) {
	records := []Record{
		New(IntID(2), map[string]any{"keyword": "ppc"}),
		New(IntID(1), map[string]any{"keyword": "seo"}),
	}
	typed, err := AsAll[keyword](records)
	require.NoError(t, err)
	require.Len(t, typed, 2)
	assert.Equal(t, "ppc", typed[0].Payload.Keyword)

	_, err = AsAll[keyword]([]Record{New(IntID(1), map[string]any{"keyword": 5})})
	assert.Error(t, err)
}
