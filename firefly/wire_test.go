package firefly

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlexDecimal(t *testing.T) {
	testCases := []struct {
		raw   string
		want  string
		valid bool
	}{
		{raw: `"12.30"`, want: "12.3", valid: true},
		{raw: `-4.5`, want: "-4.5", valid: true},
		{raw: `" 7 "`, want: "7", valid: true},
		{raw: `null`, valid: false},
		{raw: `""`, valid: false},
		{raw: `"n/a"`, valid: false},
		{raw: `{"amount":1}`, valid: false},
	}

	for _, tc := range testCases {
		t.Run(tc.raw, func(t *testing.T) {
			var d flexDecimal
			require.NoError(t, json.Unmarshal([]byte(tc.raw), &d))
			assert.Equal(t, tc.valid, d.Valid)
			if tc.valid {
				assert.Equal(t, tc.want, d.Value.String())
				require.NotNil(t, d.Ptr())
			} else {
				assert.Nil(t, d.Ptr())
			}
		})
	}
}

func TestDecodeResources_SkipsIncompleteItems(t *testing.T) {
	body := []byte(`{"data":[
		{"id":"1","attributes":{"name":"ok"}},
		{"id":"","attributes":{"name":"no id"}},
		{"id":"3"},
		{"id":"4","attributes":"broken"},
		{"id":5,"attributes":{"name":"numeric id"}}
	]}`)

	items, err := decodeResources[categoryAttributes](body)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "1", items[0].ID.String())
	assert.Equal(t, "5", items[1].ID.String())
}

func TestDecodeResources_RejectsMissingEnvelope(t *testing.T) {
	for _, body := range []string{`{}`, `{"data":null}`, `{"data":{"id":"1"}}`, `[]`} {
		_, err := decodeResources[categoryAttributes]([]byte(body))
		assert.ErrorIs(t, err, ErrMalformedResponse, body)
	}
}

func TestParseTime(t *testing.T) {
	for _, s := range []string{"2024-03-01", "2024-03-01T10:00:00+01:00", "2024-03-01T10:00:00", "2024-03-01T10:00:00.123456Z"} {
		_, ok := parseTime(s)
		assert.True(t, ok, s)
	}
	_, ok := parseTime("01/03/2024")
	assert.False(t, ok)
}
