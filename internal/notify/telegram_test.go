package notify

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/promowatch/promowatch/internal/promo"
)

func newTestTelegram(t *testing.T, handler http.HandlerFunc) *Telegram {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	tg, err := NewTelegram(TelegramConfig{
		Token:   "test-token",
		ChatID:  "12345",
		BaseURL: srv.URL,
	}, zap.NewNop())
	require.NoError(t, err)
	return tg
}

func fullNotification() promo.Notification {
	return promo.Notification{
		Key:      "k1",
		Text:     "Hasta 50% dcto",
		Variant:  promo.VariantFull,
		ImageURL: "https://res.cloudinary.com/demo/image/fetch/banner.jpg",
		LinkURL:  "https://www.buscalibre.cl/ofertas",
	}
}

func TestSendPhotoForFullVariant(t *testing.T) {
	t.Parallel()

	var gotPath string
	var gotForm map[string][]string
	tg := newTestTelegram(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, r.ParseForm())
		gotForm = r.PostForm
		w.WriteHeader(http.StatusOK)
	})

	require.NoError(t, tg.Send(context.Background(), fullNotification()))

	assert.Equal(t, "/bottest-token/sendPhoto", gotPath)
	assert.Equal(t, "12345", gotForm["chat_id"][0])
	assert.Equal(t, "Markdown", gotForm["parse_mode"][0])
	assert.Equal(t, "https://res.cloudinary.com/demo/image/fetch/banner.jpg", gotForm["photo"][0])
	assert.Contains(t, gotForm["caption"][0], "HASTA 50% DCTO")
	assert.Contains(t, gotForm["reply_markup"][0], "https://www.buscalibre.cl/ofertas")
}

func TestSendMessageForTextOnlyVariant(t *testing.T) {
	t.Parallel()

	var gotPath string
	var gotForm map[string][]string
	tg := newTestTelegram(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, r.ParseForm())
		gotForm = r.PostForm
		w.WriteHeader(http.StatusOK)
	})

	n := fullNotification()
	n.Variant = promo.VariantTextOnly
	n.ImageURL = ""
	require.NoError(t, tg.Send(context.Background(), n))

	assert.Equal(t, "/bottest-token/sendMessage", gotPath)
	assert.Contains(t, gotForm["text"][0], "HASTA 50% DCTO")
	assert.Empty(t, gotForm["photo"])
}

func TestReturnToBaselineCaption(t *testing.T) {
	t.Parallel()

	var caption string
	tg := newTestTelegram(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		caption = r.PostForm.Get("caption")
		w.WriteHeader(http.StatusOK)
	})

	n := fullNotification()
	n.ReturnToBaseline = true
	require.NoError(t, tg.Send(context.Background(), n))

	assert.Contains(t, caption, "PROMO FINALIZADA")
	assert.NotContains(t, caption, "NUEVA PROMO")
}

func TestSendRetriesServerErrors(t *testing.T) {
	t.Parallel()

	var calls int
	tg := newTestTelegram(t, func(w http.ResponseWriter, _ *http.Request) {
		calls++
		if calls < 2 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	require.NoError(t, tg.Send(context.Background(), fullNotification()))
	assert.Equal(t, 2, calls)
}

func TestSendDoesNotRetryClientErrors(t *testing.T) {
	t.Parallel()

	var calls int
	tg := newTestTelegram(t, func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"ok":false,"description":"Bad Request"}`))
	})

	err := tg.Send(context.Background(), fullNotification())
	require.Error(t, err)

	var dispatchErr *promo.DispatchError
	assert.ErrorAs(t, err, &dispatchErr)
	assert.True(t, strings.Contains(err.Error(), "400"))
	assert.Equal(t, 1, calls)
}

func TestNewTelegramRequiresCredentials(t *testing.T) {
	t.Parallel()

	_, err := NewTelegram(TelegramConfig{Token: "", ChatID: "x"}, zap.NewNop())
	assert.Error(t, err)

	_, err = NewTelegram(TelegramConfig{Token: "x", ChatID: ""}, zap.NewNop())
	assert.Error(t, err)
}
