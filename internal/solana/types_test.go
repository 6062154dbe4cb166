package solana

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccountKey_UnmarshalJSON(t *testing.T) {
	var keys []AccountKey
	raw := `["plainKey", {"pubkey": "parsedKey", "signer": true, "writable": false, "source": "transaction"}]`
	require.NoError(t, json.Unmarshal([]byte(raw), &keys))

	require.Len(t, keys, 2)
	assert.Equal(t, "plainKey", keys[0].Pubkey)
	assert.Equal(t, "parsedKey", keys[1].Pubkey)
	assert.True(t, keys[1].Signer)

	var bad []AccountKey
	assert.Error(t, json.Unmarshal([]byte(`[{"signer": true}]`), &bad))
	assert.Error(t, json.Unmarshal([]byte(`[42]`), &bad))
}

func TestUITokenAmount_Value(t *testing.T) {
	f := 2.25
	assert.Equal(t, "1.000001", UITokenAmount{UIAmountString: "1.000001", UIAmount: &f}.Value().String())
	assert.Equal(t, "2.25", UITokenAmount{UIAmount: &f}.Value().String())
	assert.True(t, UITokenAmount{}.Value().IsZero())
	assert.Equal(t, "2.25", UITokenAmount{UIAmountString: "garbage", UIAmount: &f}.Value().String())
}
