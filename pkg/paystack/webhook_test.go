package paystack

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifySignature(t *testing.T) {
	body := []byte(`{"event":"charge.success","data":{"reference":"AGRO-1","amount":1000}}`)
	sig := Sign("sk_test", body)
	assert.Len(t, sig, 128)

	assert.True(t, VerifySignature("sk_test", body, sig))
	assert.True(t, VerifySignature("sk_test", body, strings.ToUpper(sig)))
	assert.False(t, VerifySignature("sk_other", body, sig))
	assert.False(t, VerifySignature("sk_test", append(body, ' '), sig))
	assert.False(t, VerifySignature("sk_test", body, ""))
	assert.False(t, VerifySignature("", body, sig))
}

func TestParseEvent(t *testing.T) {
	evt, err := ParseEvent([]byte(`{"event":"charge.success","data":{"status":"success","reference":"AGRO-9","amount":20000,"metadata":{"payment_type":"wallet_topup"}}}`))
	require.NoError(t, err)
	assert.Equal(t, EventChargeSuccess, evt.Event)
	assert.Equal(t, "AGRO-9", evt.Data.Reference)
	assert.Equal(t, int64(20000), evt.Data.AmountKobo)

	_, err = ParseEvent([]byte(`{"data":{}}`))
	assert.Error(t, err)
	_, err = ParseEvent([]byte(`not json`))
	assert.Error(t, err)
}
