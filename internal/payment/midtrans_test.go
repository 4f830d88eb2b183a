package payment

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func midtransBody(t *testing.T, serverKey, orderID, status, gross string) []byte {
	t.Helper()
	mac := hmac.New(sha512.New, []byte(serverKey))
	mac.Write([]byte(orderID))
	mac.Write([]byte("200"))
	mac.Write([]byte(gross))
	mac.Write([]byte(serverKey))
	body, err := json.Marshal(map[string]string{
		"transaction_id":     "txn-1",
		"order_id":           orderID,
		"status_code":        "200",
		"gross_amount":       gross,
		"transaction_status": status,
		"signature_key":      hex.EncodeToString(mac.Sum(nil)),
	})
	require.NoError(t, err)
	return body
}

func TestMidtransVerifyWebhook(t *testing.T) {
	m := Midtrans{ServerKey: "sk-test"}
	body := midtransBody(t, "sk-test", "order-1", "settlement", "176500")
	req := httptest.NewRequest("POST", "/webhooks/midtrans", nil)

	result, err := m.VerifyWebhook(req, body)
	require.NoError(t, err)
	require.True(t, result.Valid)
	require.Equal(t, "order-1", result.OrderID)
	require.EqualValues(t, 176500, result.Amount)
	require.Equal(t, StatusPaid, result.Status)
	require.NotEmpty(t, result.EventID)
}

func TestMidtransRejectsBadSignature(t *testing.T) {
	m := Midtrans{ServerKey: "sk-test"}
	body := midtransBody(t, "wrong-key", "order-1", "settlement", "176500")
	req := httptest.NewRequest("POST", "/webhooks/midtrans", nil)

	result, err := m.VerifyWebhook(req, body)
	require.NoError(t, err)
	require.False(t, result.Valid)
}

func TestMidtransStatusNormalisation(t *testing.T) {
	require.Equal(t, StatusPaid, normaliseMidtransStatus("capture"))
	require.Equal(t, StatusFailed, normaliseMidtransStatus("deny"))
	require.Equal(t, StatusExpired, normaliseMidtransStatus("expire"))
	require.Equal(t, StatusPending, normaliseMidtransStatus("pending"))
	require.Equal(t, StatusPending, normaliseMidtransStatus("something-else"))
}
