package bridge

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNetworkConstants(t *testing.T) {
	tests := []struct {
		name     string
		constant uint64
		want     uint64
	}{
		{"MainNetworkID", MainNetworkID, 0xbeef},
		{"TestNetworkID", TestNetworkID, 0xbeef2},
		{"FakeNetworkID", FakeNetworkID, 0xbeef3},
		{"DefaultBlockWaitPeriod", uint64(DefaultBlockWaitPeriod), 45},
		{"DefaultCompletionWindow", uint64(DefaultCompletionWindow), 256},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.constant != tt.want {
				t.Errorf("%s = %d, want %d", tt.name, tt.constant, tt.want)
			}
		})
	}
}

func TestPresetsAreValid(t *testing.T) {
	for _, r := range []Rules{MainNetRules(), TestNetRules(), FakeNetRules()} {
		t.Run(r.Name, func(t *testing.T) {
			require.NoError(t, r.Validate())
			got, err := RulesByName(r.Name)
			require.NoError(t, err)
			require.Equal(t, r, got)
		})
	}
	_, err := RulesByName("moon")
	require.Error(t, err)
}

func TestRequiredSignatures(t *testing.T) {
	lc := DefaultLightClientRules()
	tests := []struct {
		setLen uint64
		want   uint64
	}{
		{1, 1},
		{3, 2},
		{4, 3},
		{100, 67},
		{200, 134},
	}
	for _, tt := range tests {
		if got := lc.RequiredSignatures(tt.setLen); got != tt.want {
			t.Errorf("RequiredSignatures(%d) = %d, want %d", tt.setLen, got, tt.want)
		}
	}

	lc.Threshold = Fraction{1, 1}
	assert.EqualValues(t, 200, lc.RequiredSignatures(200))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Rules)
		err    error
	}{
		{"below third", func(r *Rules) { r.LightClient.Threshold = Fraction{1, 4} }, ErrInvalidThreshold},
		{"above one", func(r *Rules) { r.LightClient.Threshold = Fraction{4, 3} }, ErrInvalidThreshold},
		{"zero denominator", func(r *Rules) { r.LightClient.Threshold = Fraction{0, 0} }, ErrInvalidThreshold},
		{"exactly third", func(r *Rules) { r.LightClient.Threshold = Fraction{1, 3} }, nil},
		{"zero window", func(r *Rules) { r.LightClient.CompletionWindow = 0 }, ErrInvalidWindow},
		{"window beyond horizon", func(r *Rules) { r.LightClient.CompletionWindow = 257 }, ErrInvalidWindow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := MainNetRules().Copy()
			tt.modify(&r)
			err := r.Validate()
			if tt.err == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.err)
			}
		})
	}
}

func TestFraction_Text(t *testing.T) {
	f, err := ParseFraction(" 2 / 3 ")
	require.NoError(t, err)
	require.Equal(t, Fraction{2, 3}, f)

	for _, bad := range []string{"", "2", "a/3", "2/0", "2/b"} {
		_, err := ParseFraction(bad)
		assert.ErrorIsf(t, err, ErrInvalidFraction, "input %q", bad)
	}

	var back Fraction
	txt, err := f.MarshalText()
	require.NoError(t, err)
	require.NoError(t, back.UnmarshalText(txt))
	require.Equal(t, f, back)
}

func TestRulesString(t *testing.T) {
	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(MainNetRules().String()), &decoded))
	lc := decoded["LightClient"].(map[string]interface{})
	assert.Equal(t, "2/3", lc["Threshold"])
	assert.Equal(t, "main", decoded["Name"])
}
