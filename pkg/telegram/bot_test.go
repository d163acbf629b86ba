package telegram

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAlerter_SendsToChat(t *testing.T) {
	var gotChat, gotText, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		gotPath = r.URL.Path
		gotChat = r.PostForm.Get("chat_id")
		gotText = r.PostForm.Get("text")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	bot := NewBot("token")
	bot.baseURL = srv.URL
	alerter := NewAlerter(bot, "42")

	require.NoError(t, alerter.Alert(context.Background(), "mall-1 is full"))
	assert.Equal(t, "/sendMessage", gotPath)
	assert.Equal(t, "42", gotChat)
	assert.Equal(t, "mall-1 is full", gotText)
}

func TestBot_ReportsAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	bot := NewBot("bad")
	bot.baseURL = srv.URL

	err := bot.SendMessage(context.Background(), "42", "hi")
	assert.ErrorContains(t, err, "telegram API error")
}
