package returns

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeReturnOption(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    ReturnOption
		wantErr bool
	}{
		{
			name: "tagged actionable",
			raw:  `{"kind":"actionable","id":"mail","label":"Mail it back","cta":"Print label"}`,
			want: ActionableOption{Method: MethodMail, Label: "Mail it back", CTA: "Print label"},
		},
		{
			name: "untagged without url is actionable",
			raw:  `{"id":"dropoff","label":"Drop off","cta":"Find a store"}`,
			want: ActionableOption{Method: MethodDropoff, Label: "Drop off", CTA: "Find a store"},
		},
		{
			name: "untagged with url is external",
			raw:  `{"id":"merchant","label":"Merchant portal","cta":"Open","url":"https://shop.example.com/returns"}`,
			want: ExternalOption{Label: "Merchant portal", CTA: "Open", URL: "https://shop.example.com/returns"},
		},
		{
			name:    "unknown method",
			raw:     `{"kind":"actionable","id":"usps_pickup","label":"Pickup"}`,
			wantErr: true,
		},
		{
			name:    "actionable without label",
			raw:     `{"kind":"actionable","id":"mail"}`,
			wantErr: true,
		},
		{
			name:    "external with bad url",
			raw:     `{"kind":"external","label":"Portal","url":"not a url"}`,
			wantErr: true,
		},
		{
			name:    "unknown kind",
			raw:     `{"kind":"coupon","label":"Coupon"}`,
			wantErr: true,
		},
		{
			name:    "not an object",
			raw:     `"mail"`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeReturnOption(json.RawMessage(tt.raw))
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrMalformedPayload))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeReturnOptionsSkipsInvalidEntries(t *testing.T) {
	raws := []json.RawMessage{
		json.RawMessage(`{"id":"mail","label":"Mail"}`),
		json.RawMessage(`{"id":"usps_pickup","label":"Pickup"}`),
		json.RawMessage(`{"label":"Portal","url":"https://example.com"}`),
	}

	opts, skipped := DecodeReturnOptions(raws)

	require.Len(t, opts, 2)
	assert.Equal(t, KindActionable, opts[0].Kind())
	assert.Equal(t, KindExternal, opts[1].Kind())
	require.Len(t, skipped, 1)
	assert.ErrorIs(t, skipped[0], ErrMalformedPayload)
}

func TestReturnOptionMarshalJSON(t *testing.T) {
	view := OrderView{
		Options: []ReturnOption{
			ActionableOption{Method: MethodMail, Label: "Mail", CTA: "Print"},
			ExternalOption{Label: "Portal", CTA: "Open", URL: "https://example.com"},
		},
	}

	data, err := json.Marshal(view.Options)
	require.NoError(t, err)
	assert.JSONEq(t, `[
		{"kind":"actionable","id":"mail","label":"Mail","cta":"Print"},
		{"kind":"external","label":"Portal","cta":"Open","url":"https://example.com"}
	]`, string(data))
}
