package middleware

import (
	"context"
	"net/http"

	"github.com/mssola/user_agent"
)

// BotDetect classifies the request's user agent and stores the result in the
// request context. Bots skip geo resolution downstream and get the default
// branch, so crawlers never trigger provider lookups.
func BotDetect(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ua := user_agent.New(r.Header.Get("User-Agent"))
		ctx := context.WithValue(r.Context(), botKey, ua.Bot())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// IsBot reports whether the request was classified as a bot.
func IsBot(ctx context.Context) bool {
	if isBot, ok := ctx.Value(botKey).(bool); ok {
		return isBot
	}
	return false
}
