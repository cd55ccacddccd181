package main

import (
	"bytes"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/adminguard/adminguard/internal/session"
	"github.com/adminguard/adminguard/pkg/models"
	"github.com/adminguard/adminguard/pkg/token"
)

const (
	alphaChars    = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"
	numChars      = "0123456789"
	alphaNumChars = alphaChars + numChars
)

type httpResp struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

type webviewTpl struct {
	Title       string
	Description string

	Login      string
	Email      string
	Message    string
	ShowResend bool
	MaxOTPLen  int

	App constants
}

type pushTpl struct {
	Email  string
	OTP    string
	OTPTTL time.Duration
}

func handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	var (
		app = r.Context().Value("app").(*App)
	)

	if err := app.store.Ping(); err != nil {
		sendErrorResponse(w, "Unable to reach store.", http.StatusServiceUnavailable, nil)
		return
	}

	sendResponse(w, "OK")
}

// handleVerifyView issues an OTP, e-mails it to the logged-in user, and
// renders the verification form. Revisiting the view is how a user
// requests a new code; the throttle decides whether one is actually
// issued.
func handleVerifyView(w http.ResponseWriter, r *http.Request) {
	var (
		app = r.Context().Value("app").(*App)
	)

	sess, err := getSession(app, r)
	if err != nil {
		http.Redirect(w, r, app.constants.LoginURL, http.StatusFound)
		return
	}
	if sess.Verified {
		http.Redirect(w, r, app.constants.AdminPrefix, http.StatusFound)
		return
	}

	m, err := restoreManager(app, &sess)
	if err != nil {
		app.lo.Error("error restoring token state", "error", err)
		renderMessage(app, w, "Internal error", "Please try later.")
		return
	}

	var (
		msg  = ""
		save = true
	)
	switch err := m.Issue(sess.Email); {
	case err == nil:
		if err := push(app, sess.Email, m); err != nil {
			app.lo.Error("error sending OTP", "error", err, "provider", app.provider.ID())
			msg = "Error sending the code. Please retry."

			// The code never reached the user. Persisting it would
			// throttle-lock the retry, so keep the session's old state.
			save = false
		}
	case errors.Is(err, token.ErrThrottled):
		msg = fmt.Sprintf("A code was sent recently. Please wait %.0f seconds before requesting a new one.",
			math.Ceil(m.ThrottleWait().Seconds()))
	default:
		app.lo.Error("error issuing OTP", "error", err)
		renderMessage(app, w, "Internal error", "Please try later.")
		return
	}

	if save {
		if err := saveManager(app, &sess, m); err != nil {
			app.lo.Error("error saving session", "error", err)
			renderMessage(app, w, "Internal error", "Please try later.")
			return
		}
	}

	renderVerify(app, w, sess, msg, false)
}

// handleVerifySubmit checks the submitted code and either unlocks the
// session or re-renders the form with the verdict.
func handleVerifySubmit(w http.ResponseWriter, r *http.Request) {
	var (
		app    = r.Context().Value("app").(*App)
		otpVal = r.FormValue("otp")
	)

	sess, err := getSession(app, r)
	if err != nil {
		http.Redirect(w, r, app.constants.LoginURL, http.StatusFound)
		return
	}
	if sess.Verified {
		http.Redirect(w, r, app.constants.AdminPrefix, http.StatusFound)
		return
	}

	if otpVal == "" {
		renderVerify(app, w, sess, "Please enter the code.", false)
		return
	}

	m, err := restoreManager(app, &sess)
	if err != nil {
		app.lo.Error("error restoring token state", "error", err)
		renderMessage(app, w, "Internal error", "Please try later.")
		return
	}

	verr := m.Verify(otpVal)
	if verr == nil {
		// Verified. Destroy the token and unlock the session.
		sess.Verified = true
		sess.Token = ""
		next := sess.NextURL
		sess.NextURL = ""
		if err := app.store.Put(sess.ID, sess); err != nil {
			app.lo.Error("error saving session", "error", err)
			renderMessage(app, w, "Internal error", "Please try later.")
			return
		}

		if next == "" {
			next = app.constants.AdminPrefix
		}
		http.Redirect(w, r, next, http.StatusFound)
		return
	}

	// Record the attempt made against the token.
	if err := saveManager(app, &sess, m); err != nil {
		app.lo.Error("error saving session", "error", err)
		renderMessage(app, w, "Internal error", "Please try later.")
		return
	}

	var (
		msg        = ""
		showResend = false
	)
	switch {
	case errors.Is(verr, token.ErrNotIssued):
		// No pending code for this session; start over.
		http.Redirect(w, r, app.constants.VerifyURL, http.StatusFound)
		return
	case errors.Is(verr, token.ErrExpired):
		msg = "The code has expired. Please request a new one."
		showResend = true
	case errors.Is(verr, token.ErrNoMoreRetries):
		msg = "Too many incorrect attempts. Please request a new code."
		showResend = true
	case errors.Is(verr, token.ErrIncorrect):
		msg = "Incorrect code. Please try again."
	default:
		app.lo.Error("error verifying OTP", "error", verr)
		msg = "Error verifying the code. Please retry."
	}

	renderVerify(app, w, sess, msg, showResend)
}

// handleAdminIndex renders the protected admin landing view. The gate
// guarantees the session in the context is verified.
func handleAdminIndex(w http.ResponseWriter, r *http.Request) {
	var (
		app  = r.Context().Value("app").(*App)
		sess = r.Context().Value("session").(session.Session)
	)

	app.tpl.ExecuteTemplate(w, "index", webviewTpl{
		App:   app.constants,
		Title: "Admin",
		Login: sess.Login,
		Email: sess.Email,
	})
}

// restoreManager rebuilds the token manager from the token state stored
// in the session. A session with no token state gets a fresh manager.
func restoreManager(app *App, sess *session.Session) (*token.Manager, error) {
	var st token.State
	ok, err := sess.GetToken(&st)
	if err != nil {
		return nil, err
	}
	if !ok {
		return token.New(app.gen, app.constants.OtpPolicy), nil
	}
	return token.Restore(app.gen, app.constants.OtpPolicy, st), nil
}

// saveManager stashes the manager's token state back into the session
// and persists it.
func saveManager(app *App, sess *session.Session, m *token.Manager) error {
	st, issued := m.State()
	if issued {
		if err := sess.SetToken(st); err != nil {
			return err
		}
	}
	return app.store.Put(sess.ID, *sess)
}

// push renders the e-mail subject and body for the current token and
// hands them to the delivery provider.
func push(app *App, to string, m *token.Manager) error {
	st, issued := m.State()
	if !issued {
		return errors.New("no token to push")
	}

	if err := app.provider.ValidateAddress(to); err != nil {
		return fmt.Errorf("invalid e-mail address %s: %w", to, err)
	}

	var (
		subj = &bytes.Buffer{}
		out  = &bytes.Buffer{}

		data = pushTpl{
			Email:  to,
			OTP:    st.OTP,
			OTPTTL: app.constants.OtpPolicy.Expiration,
		}
	)

	if err := app.providerTpl.subject.Execute(subj, data); err != nil {
		return err
	}

	if app.providerTpl.body != nil {
		if err := app.providerTpl.body.Execute(out, data); err != nil {
			return err
		}
	} else {
		fmt.Fprintf(out, "Your OTP code is: %s", st.OTP)
	}

	app.lo.Debug("sending otp", "to", to, "provider", app.provider.ID())
	return app.provider.Push(models.Message{To: to, OTP: st.OTP}, subj.String(), out.Bytes())
}

func renderVerify(app *App, w http.ResponseWriter, sess session.Session, msg string, showResend bool) {
	app.tpl.ExecuteTemplate(w, "otp", webviewTpl{
		App:        app.constants,
		Title:      "Verify your e-mail",
		Email:      sess.Email,
		Message:    msg,
		ShowResend: showResend,
		MaxOTPLen:  app.provider.MaxOTPLen(),
	})
}

func renderMessage(app *App, w http.ResponseWriter, title, desc string) {
	app.tpl.ExecuteTemplate(w, "message", webviewTpl{
		App:         app.constants,
		Title:       title,
		Description: desc,
	})
}

// sendResponse sends a JSON envelope to the HTTP response.
func sendResponse(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	out, err := json.Marshal(httpResp{Status: "success", Data: data})
	if err != nil {
		sendErrorResponse(w, "Internal Server Error.", http.StatusInternalServerError, nil)
		return
	}

	w.Write(out)
}

// sendErrorResponse sends a JSON error envelope to the HTTP response.
func sendErrorResponse(w http.ResponseWriter, message string, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)

	resp := httpResp{Status: "error",
		Message: message,
		Data:    data}
	out, _ := json.Marshal(resp)
	w.Write(out)
}

// generateRandomString generates a cryptographically random,
// alphanumeric string of length n.
func generateRandomString(totalLen int, chars string) (string, error) {
	bytes := make([]byte, totalLen)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	for k, v := range bytes {
		bytes[k] = chars[v%byte(len(chars))]
	}
	return string(bytes), nil
}
