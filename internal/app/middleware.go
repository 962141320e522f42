package app

import (
	"fmt"
	"net/http"
	"strings"
)

func (app *application) recoverPanic(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				w.Header().Set("Connection", "close")

				app.serverErrorResponse(w, r, fmt.Errorf("%s", err))
			}
		}()

		next.ServeHTTP(w, r)
	})
}

// ensureSession commits an empty guest session so the checkout has a stable
// session token from the first request on.
func (app *application) ensureSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sessionId := app.sessionManager.Token(r.Context())

		if sessionId == "" {
			app.sessionManager.Put(r.Context(), SessionKeyGuest.String(), true)

			_, _, err := app.sessionManager.Commit(r.Context())
			if err != nil {
				app.serverErrorResponse(w, r, err)
				return
			}
		}

		next.ServeHTTP(w, r)
	})
}

// captureBearer stores the caller's bearer token in the session. Provider
// redirects come back without the header and use the stored token.
func (app *application) captureBearer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")

		token, ok := strings.CutPrefix(header, "Bearer ")
		token = strings.TrimSpace(token)

		if ok && token != "" {
			current := app.sessionManager.GetString(r.Context(), SessionKeyBearer.String())
			if current != token {
				app.sessionManager.Put(r.Context(), SessionKeyBearer.String(), token)
				app.checkouts.invalidateTokens(app.sessionManager.Token(r.Context()))
			}
		}

		next.ServeHTTP(w, r)
	})
}
