package main

import (
	"context"
	"net/http"

	"github.com/adminguard/adminguard/internal/session"
)

const sessCookieName = "adminguard_session"

// gate is a middleware that intercepts requests to the admin surface.
// Requests without a session are sent to the login view; authenticated
// but unverified sessions are sent to the OTP verification view after
// recording the URL they were headed to.
func gate(app *App) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, err := getSession(app, r)
			if err != nil {
				http.Redirect(w, r, app.constants.LoginURL, http.StatusFound)
				return
			}

			if !sess.Verified {
				sess.NextURL = r.URL.RequestURI()
				if err := app.store.Put(sess.ID, sess); err != nil {
					app.lo.Error("error saving session", "error", err)
				}
				http.Redirect(w, r, app.constants.VerifyURL, http.StatusFound)
				return
			}

			ctx := context.WithValue(r.Context(), "session", sess)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// wrap is a middleware that wraps HTTP handlers and injects the "app" context.
func wrap(app *App, next http.HandlerFunc) http.HandlerFunc {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), "app", app)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// getSession reads the session cookie and loads the session record.
func getSession(app *App, r *http.Request) (session.Session, error) {
	ck, err := r.Cookie(sessCookieName)
	if err != nil {
		return session.Session{}, session.ErrNotExist
	}
	return app.store.Get(ck.Value)
}

// setSessionCookie writes the session cookie on the response.
func setSessionCookie(app *App, w http.ResponseWriter, id string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessCookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   int(app.constants.SessionTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// clearSessionCookie expires the session cookie.
func clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
