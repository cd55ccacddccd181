package main

import (
	"net/http"

	"github.com/adminguard/adminguard/internal/session"
	"golang.org/x/crypto/bcrypt"
)

// handleLoginView renders the primary username/password login form and
// processes submissions. A successful login creates an unverified
// session and moves on to OTP verification.
func handleLoginView(w http.ResponseWriter, r *http.Request) {
	var (
		app = r.Context().Value("app").(*App)
		msg = ""
	)

	// Already logged in? The gate decides where they go next.
	if _, err := getSession(app, r); err == nil {
		http.Redirect(w, r, app.constants.AdminPrefix, http.StatusFound)
		return
	}

	if r.Method == http.MethodPost {
		var (
			login    = r.FormValue("login")
			password = r.FormValue("password")
		)

		u, ok := app.users[login]
		if ok && bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil {
			id, err := generateRandomString(32, alphaNumChars)
			if err != nil {
				app.lo.Error("error generating session ID", "error", err)
				renderMessage(app, w, "Internal error", "Please try later.")
				return
			}

			if err := app.store.Put(id, session.Session{
				Login: u.Login,
				Email: u.Email,
			}); err != nil {
				app.lo.Error("error creating session", "error", err)
				renderMessage(app, w, "Internal error", "Please try later.")
				return
			}

			setSessionCookie(app, w, id)
			http.Redirect(w, r, app.constants.VerifyURL, http.StatusFound)
			return
		}

		app.lo.Debug("failed login attempt", "login", login)
		msg = "Invalid username or password."
	}

	app.tpl.ExecuteTemplate(w, "login", webviewTpl{
		App:     app.constants,
		Title:   "Admin login",
		Message: msg,
	})
}

// handleLogout destroys the session.
func handleLogout(w http.ResponseWriter, r *http.Request) {
	var (
		app = r.Context().Value("app").(*App)
	)

	if ck, err := r.Cookie(sessCookieName); err == nil {
		if err := app.store.Delete(ck.Value); err != nil {
			app.lo.Error("error deleting session", "error", err)
		}
	}

	clearSessionCookie(w)
	http.Redirect(w, r, app.constants.LoginURL, http.StatusFound)
}
