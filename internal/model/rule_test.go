package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTier(t *testing.T) {
	tests := []struct {
		input   string
		want    Tier
		wantErr bool
	}{
		{input: "HIGH", want: TierHigh},
		{input: "medium", want: TierMedium},
		{input: " Low ", want: TierLow},
		{input: "urgent", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseTier(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTier_RankAndAction(t *testing.T) {
	assert.Greater(t, TierHigh.Rank(), TierMedium.Rank())
	assert.Greater(t, TierMedium.Rank(), TierLow.Rank())
	assert.Equal(t, 0, Tier("other").Rank())

	assert.Equal(t, ActionAutoMove, TierHigh.Action())
	assert.Equal(t, ActionSuggest, TierMedium.Action())
	assert.Equal(t, ActionManualReview, TierLow.Action())
	assert.Equal(t, ActionManualReview, Tier("other").Action())
}

func TestTier_UnmarshalText(t *testing.T) {
	var tier Tier
	require.NoError(t, tier.UnmarshalText([]byte("medium")))
	assert.Equal(t, TierMedium, tier)
	assert.Error(t, tier.UnmarshalText([]byte("nope")))
}

func TestStats_SuccessRate(t *testing.T) {
	assert.Zero(t, Stats{}.SuccessRate())
	assert.InDelta(t, 0.75, Stats{FilesIndexed: 4, FilesReadable: 3}.SuccessRate(), 0.0001)
}

func TestFileRecord_Name(t *testing.T) {
	f := FileRecord{Path: "/inbox/Invoice.PDF"}
	assert.Equal(t, "Invoice.PDF", f.Name())
	assert.Equal(t, "pdf", ExtensionOf(f.Path))
	assert.Equal(t, "", ExtensionOf("/inbox/README"))
}
