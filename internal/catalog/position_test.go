package catalog

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePosition(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Position
		wantErr bool
	}{
		{name: "plain", input: "30, 50", want: Position{X: 30, Y: 50}},
		{name: "no space", input: "30,50", want: Position{X: 30, Y: 50}},
		{name: "with sub", input: "30, 50-a", want: Position{X: 30, Y: 50, Sub: "a"}},
		{name: "spaced sub", input: "30 , 50 - bb", want: Position{X: 30, Y: 50, Sub: "bb"}},
		{name: "bounds", input: "0, 100", want: Position{X: 0, Y: 100}},
		{name: "out of range", input: "101, 5", wantErr: true},
		{name: "negative", input: "-1, 5", wantErr: true},
		{name: "decimal", input: "10.5, 5", wantErr: true},
		{name: "missing y", input: "10,", wantErr: true},
		{name: "empty sub", input: "10, 5-", wantErr: true},
		{name: "garbage", input: "abc", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePosition(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidPosition)
				assert.Contains(t, err.Error(), tt.input)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPositionRoundTrip(t *testing.T) {
	inputs := []string{"0,0", "30, 50", "30 ,50-a", "99,1 - zz", "7,7-b_2"}
	for _, in := range inputs {
		first, err := ParsePosition(in)
		require.NoError(t, err, in)

		second, err := ParsePosition(first.String())
		require.NoError(t, err, in)
		assert.Equal(t, first, second, in)
	}
}

func TestPositionKeys(t *testing.T) {
	plain := Position{X: 30, Y: 50}
	stacked := Position{X: 30, Y: 50, Sub: "a"}

	assert.Equal(t, "30,50", plain.BaseKey())
	assert.Equal(t, "30,50", plain.FullKey())
	assert.Equal(t, "30,50", stacked.BaseKey())
	assert.Equal(t, "30,50-a", stacked.FullKey())
	assert.Equal(t, "30, 50-a", stacked.String())
}

func TestPositionUnmarshalJSON(t *testing.T) {
	t.Run("object with null sub", func(t *testing.T) {
		var p Position
		require.NoError(t, json.Unmarshal([]byte(`{"x":30,"y":50,"sub":null}`), &p))
		assert.Equal(t, Position{X: 30, Y: 50}, p)
	})

	t.Run("object with sub", func(t *testing.T) {
		var p Position
		require.NoError(t, json.Unmarshal([]byte(`{"x":30,"y":50,"sub":"b"}`), &p))
		assert.Equal(t, Position{X: 30, Y: 50, Sub: "b"}, p)
	})

	t.Run("legacy string", func(t *testing.T) {
		var p Position
		require.NoError(t, json.Unmarshal([]byte(`"15, 60"`), &p))
		assert.Equal(t, Position{X: 15, Y: 60}, p)
	})

	t.Run("bad legacy string", func(t *testing.T) {
		var p Position
		assert.ErrorIs(t, json.Unmarshal([]byte(`"left side"`), &p), ErrInvalidPosition)
	})

	t.Run("object out of range", func(t *testing.T) {
		for _, doc := range []string{`{"x":500,"y":50}`, `{"x":30,"y":-1}`, `{"x":101,"y":101,"sub":"a"}`} {
			var p Position
			assert.ErrorIs(t, json.Unmarshal([]byte(doc), &p), ErrInvalidPosition, doc)
		}
	})
}

func TestSubToken(t *testing.T) {
	assert.Equal(t, "", SubToken(0))
	assert.Equal(t, "a", SubToken(1))
	assert.Equal(t, "c", SubToken(3))
	assert.Equal(t, "z", SubToken(26))
	assert.Equal(t, "aa", SubToken(27))
	assert.Equal(t, "az", SubToken(52))
	assert.Equal(t, "ba", SubToken(53))
}

func TestImageListUnmarshal(t *testing.T) {
	var images map[string]ImageList
	data := `{"a-1":"data:image/png;base64,AAA","a-2":["u1","u2"],"a-3":""}`
	require.NoError(t, json.Unmarshal([]byte(data), &images))

	assert.Equal(t, ImageList{"data:image/png;base64,AAA"}, images["a-1"])
	assert.Equal(t, ImageList{"u1", "u2"}, images["a-2"])
	assert.Empty(t, images["a-3"])
}
