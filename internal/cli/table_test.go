package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/mops/internal/coordinator"
	"github.com/roach88/mops/internal/record"
)

func TestColumnTitle(t *testing.T) {
	assert.Equal(t, "Keyword", columnTitle("keyword"))
	assert.Equal(t, "Asset Type Id", columnTitle("asset_type_id"))
	assert.Equal(t, "Records", columnTitle("records"))
}

func TestFormatValue(t *testing.T) {
	assert.Equal(t, "", formatValue(nil))
	assert.Equal(t, "seo", formatValue("seo"))
	assert.Equal(t, "1200", formatValue(float64(1200)))
	assert.Equal(t, "0.5", formatValue(0.5))
	assert.Equal(t, "true", formatValue(true))
	assert.Equal(t, `["a","b"]`, formatValue([]any{"a", "b"}))
	assert.Equal(t, `{"k":1}`, formatValue(map[string]any{"k": 1}))
}

func TestRecordTable_UnionOfColumns(t *testing.T) {
	buf := &bytes.Buffer{}
	table := recordTable{
		record.New(record.IntID(2), map[string]any{"keyword": "ppc", "volume": float64(90)}),
		record.New(record.StringID("x1"), map[string]any{"keyword": "seo", "status": "live"}),
	}

	require.NoError(t, table.renderText(buf))
	assert.Equal(t,
		"ID  Keyword  Status  Volume\n"+
			"2   ppc              90\n"+
			"x1  seo      live    \n",
		buf.String())
}

func TestRecordTable_Empty(t *testing.T) {
	buf := &bytes.Buffer{}
	require.NoError(t, recordTable{}.renderText(buf))
	assert.Equal(t, "(no records)\n", buf.String())
}

func TestStatusTable(t *testing.T) {
	buf := &bytes.Buffer{}
	table := statusTable{
		{Key: "keywords", Mode: "local", Count: 2},
		{Key: "users", Mode: coordinator.ModeRemote.String(), Count: 10},
	}

	require.NoError(t, table.renderText(buf))
	assert.Equal(t,
		"Collection  Mode    Records\n"+
			"keywords    local   2\n"+
			"users       remote  10\n",
		buf.String())
}
