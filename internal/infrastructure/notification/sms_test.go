package notification

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dronehub/backend/internal/domain/notification"
	"github.com/dronehub/backend/internal/domain/setting"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSMSGateway_Send(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "Bearer sms-token", r.Header.Get("Authorization"))
		assert.Equal(t, "48600100200", r.PostForm.Get("to"))
		assert.Equal(t, "DroneHub", r.PostForm.Get("from"))
		assert.Equal(t, "json", r.PostForm.Get("format"))
		w.Write([]byte(`{"count":1,"list":[{"id":"1","number":"48600100200","status":"QUEUE"}]}`))
	}))
	defer server.Close()

	g := NewSMSGateway(staticSettings{
		setting.SMSEnabled:    "true",
		setting.SMSAPIURL:     server.URL,
		setting.SMSAPIToken:   "sms-token",
		setting.SMSSenderName: "DroneHub",
	}, server.Client(), zap.NewNop())

	assert.True(t, g.Enabled(context.Background()))
	require.NoError(t, g.Send(context.Background(), notification.SMS{To: "+48 600-100-200", Text: "Paczka w drodze"}))
}

func TestSMSGateway_ErrorInBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error":101,"message":"Authorization failed"}`))
	}))
	defer server.Close()

	g := NewSMSGateway(staticSettings{
		setting.SMSEnabled:  "true",
		setting.SMSAPIURL:   server.URL,
		setting.SMSAPIToken: "bad",
	}, server.Client(), zap.NewNop())

	err := g.Send(context.Background(), notification.SMS{To: "600100200", Text: "x"})
	require.ErrorIs(t, err, notification.ErrDeliveryFailed)
	assert.Contains(t, err.Error(), "Authorization failed")
}

func TestSMSGateway_Disabled(t *testing.T) {
	g := NewSMSGateway(staticSettings{setting.SMSAPIToken: "t"}, nil, zap.NewNop())
	assert.False(t, g.Enabled(context.Background()))
	assert.ErrorIs(t, g.Send(context.Background(), notification.SMS{To: "600100200"}), notification.ErrNotConfigured)
}

func TestNormalizeMSISDN(t *testing.T) {
	tests := map[string]string{
		"600100200":        "48600100200",
		"+48 600 100 200":  "48600100200",
		"0048600100200":    "0048600100200",
		"+49 151 23456789": "4915123456789",
		"12345":            "",
	}
	for in, want := range tests {
		assert.Equal(t, want, NormalizeMSISDN(in), in)
	}
}
