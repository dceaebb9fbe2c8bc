// Package sitetwin is an in-memory stand-in for the najdi.si pages the client
// uses: the login form, the SMS page and the SMS form submit.
package sitetwin

import (
	"embed"
	"encoding/json"
	"html/template"
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

const (
	SessionCookie = "JSESSIONID"

	LoginPath    = "/prijava"
	LoginAction  = "/prijava.jsecloginform"
	SmsPath      = "/najdi/sms"
	SmsAction    = "/najdi.shortcutplaceholder.freesmsshortcut.smsform"
	LogoutPath   = "/odjava"
	rememberDays = 14
)

var DefaultAreaCodes = []string{"030", "031", "040", "041", "051", "064", "068", "069", "070", "071"}

//go:embed templates/*.html
var templateFS embed.FS

var pages = template.Must(template.ParseFS(templateFS, "templates/*.html"))

type Config struct {
	Accounts  []Account
	AreaCodes []string
}

// Twin serves the simulated site.
type Twin struct {
	Store  *Store
	router chi.Router

	mu         sync.Mutex
	faultCode  int
	faultCount int
}

func New(cfg Config) *Twin {
	areaCodes := cfg.AreaCodes
	if len(areaCodes) == 0 {
		areaCodes = DefaultAreaCodes
	}
	t := &Twin{Store: NewStore(areaCodes, cfg.Accounts...)}

	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(t.requestLog)
	r.Use(t.injectFaults)
	t.Routes(r)
	t.router = r
	return t
}

func (t *Twin) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	t.router.ServeHTTP(w, r)
}

// Routes mounts the site routes and the admin extras.
func (t *Twin) Routes(r chi.Router) {
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, SmsPath, http.StatusFound)
	})
	r.Get(LoginPath, t.GetLogin)
	r.Post(LoginAction, t.PostLogin)
	r.Get(SmsPath, t.GetSms)
	r.Post(SmsAction, t.PostSms)
	r.Get(LogoutPath, t.Logout)

	r.Route("/admin", func(r chi.Router) {
		r.Get("/messages", t.ListMessages)
		r.Get("/requests", t.ListRequests)
		r.Post("/sessions/expire", t.ExpireSessions)
		r.Post("/fault", t.SetFault)
		r.Post("/reset", t.Reset)
	})
}

type pageData struct {
	Title     string
	Account   *Account
	Token     string
	AreaCodes []string
	Error     string
	Notice    string
}

// GetLogin handles GET /prijava.
func (t *Twin) GetLogin(w http.ResponseWriter, r *http.Request) {
	t.renderLogin(w, r, http.StatusOK, "")
}

// PostLogin handles the login form. Any previous session ends; bad
// credentials re-render the login page with an error, as the real site does.
func (t *Twin) PostLogin(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(SessionCookie); err == nil {
		t.Store.DropSession(c.Value)
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if !t.Store.ConsumeToken(r.PostForm.Get("t:formdata")) {
		t.renderLogin(w, r, http.StatusOK, "Obrazec je potekel, poskusite znova.")
		return
	}

	username := r.PostForm.Get("jsecLogin")
	if !t.Store.Authenticate(username, r.PostForm.Get("jsecPassword")) {
		t.renderLogin(w, r, http.StatusOK, "Napačno uporabniško ime ali geslo.")
		return
	}

	rememberMe := r.PostForm.Get("jsecRememberMe") == "on"
	cookie := &http.Cookie{
		Name:     SessionCookie,
		Value:    t.Store.NewSession(username, rememberMe),
		Path:     "/",
		HttpOnly: true,
	}
	if rememberMe {
		cookie.MaxAge = int((rememberDays * 24 * time.Hour).Seconds())
	}
	http.SetCookie(w, cookie)
	http.Redirect(w, r, SmsPath, http.StatusFound)
}

// GetSms handles GET /najdi/sms.
func (t *Twin) GetSms(w http.ResponseWriter, r *http.Request) {
	data := pageData{Title: "SMS"}
	if account, ok := t.account(r); ok {
		data.Account = &account
		data.Token = t.Store.IssueToken()
		data.AreaCodes = t.Store.AreaCodes()
	}
	t.render(w, http.StatusOK, "sms", data)
}

// PostSms handles the Tapestry zone submit of the SMS form and answers with
// the refreshed zone as JSON.
func (t *Twin) PostSms(w http.ResponseWriter, r *http.Request) {
	account, ok := t.account(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"redirectURL": LoginPath})
		return
	}
	if r.Header.Get("X-Requested-With") != "XMLHttpRequest" {
		writeError(w, http.StatusBadRequest, "zone submit must be an XHR")
		return
	}
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	form := r.PostForm

	tokens := form["t:formdata"]
	if len(tokens) != 2 || tokens[0] != tokens[1] || !t.Store.ConsumeToken(tokens[0]) {
		writeError(w, http.StatusBadRequest, "invalid t:formdata")
		return
	}
	if form.Get("t:submit") != `["send","send"]` || form.Get("t:zoneid") != "smsZone" {
		writeError(w, http.StatusBadRequest, "unknown submit action")
		return
	}
	if _, ok := form["hidden"]; !ok {
		writeError(w, http.StatusBadRequest, "missing hidden field")
		return
	}

	areaCode := form.Get("areaCodeRecipient")
	phoneNumber := form.Get("phoneNumberRecipient")
	text := form.Get("text")
	switch {
	case !slices.Contains(t.Store.AreaCodes(), areaCode):
		writeError(w, http.StatusBadRequest, "unknown area code")
		return
	case len(phoneNumber) != 6 || strings.Trim(phoneNumber, "0123456789") != "":
		writeError(w, http.StatusBadRequest, "invalid phone number")
		return
	case utf8.RuneCountInString(text) > 160:
		writeError(w, http.StatusBadRequest, "text too long")
		return
	}

	if _, err := t.Store.Send(account.Username, areaCode, phoneNumber, text); err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}

	account, _ = t.Store.Account(account.Username)
	var zone strings.Builder
	err := pages.ExecuteTemplate(&zone, "zone", pageData{
		Account:   &account,
		Token:     t.Store.IssueToken(),
		AreaCodes: t.Store.AreaCodes(),
		Notice:    "Sporočilo je bilo poslano.",
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"zones": map[string]string{"smsZone": zone.String()},
	})
}

// Logout handles GET /odjava.
func (t *Twin) Logout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(SessionCookie); err == nil {
		t.Store.DropSession(c.Value)
	}
	http.SetCookie(w, &http.Cookie{Name: SessionCookie, Value: "", Path: "/", MaxAge: -1})
	http.Redirect(w, r, LoginPath, http.StatusFound)
}

// ListMessages handles GET /admin/messages.
func (t *Twin) ListMessages(w http.ResponseWriter, r *http.Request) {
	messages := t.Store.Messages()
	writeJSON(w, http.StatusOK, map[string]any{
		"messages": messages,
		"total":    len(messages),
	})
}

// ListRequests handles GET /admin/requests. Admin requests are not recorded.
func (t *Twin) ListRequests(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"requests": t.Store.Requests()})
}

// ExpireSessions handles POST /admin/sessions/expire.
func (t *Twin) ExpireSessions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"expired": t.Store.ExpireSessions()})
}

// SetFault handles POST /admin/fault?status=429&count=1: the next count site
// requests are answered with status.
func (t *Twin) SetFault(w http.ResponseWriter, r *http.Request) {
	code, err := strconv.Atoi(r.URL.Query().Get("status"))
	if err != nil || code < 400 || code > 599 {
		writeError(w, http.StatusBadRequest, "status must be 400-599")
		return
	}
	count := 1
	if c := r.URL.Query().Get("count"); c != "" {
		if count, err = strconv.Atoi(c); err != nil || count < 1 {
			writeError(w, http.StatusBadRequest, "count must be a positive integer")
			return
		}
	}
	t.Fail(code, count)
	writeJSON(w, http.StatusOK, map[string]any{"status": code, "count": count})
}

// Reset handles POST /admin/reset.
func (t *Twin) Reset(w http.ResponseWriter, r *http.Request) {
	t.Fail(0, 0)
	t.Store.Reset()
	writeJSON(w, http.StatusOK, map[string]any{"reset": true})
}

// Fail makes the next count site requests answer with status code.
func (t *Twin) Fail(code, count int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.faultCode, t.faultCount = code, count
}

func (t *Twin) account(r *http.Request) (Account, bool) {
	c, err := r.Cookie(SessionCookie)
	if err != nil {
		return Account{}, false
	}
	username, ok := t.Store.SessionUser(c.Value)
	if !ok {
		return Account{}, false
	}
	return t.Store.Account(username)
}

func (t *Twin) renderLogin(w http.ResponseWriter, r *http.Request, code int, message string) {
	data := pageData{
		Title: "Prijava",
		Token: t.Store.IssueToken(),
		Error: message,
	}
	if account, ok := t.account(r); ok {
		data.Account = &account
	}
	t.render(w, code, "login", data)
}

func (t *Twin) render(w http.ResponseWriter, code int, name string, data pageData) {
	var body strings.Builder
	if err := pages.ExecuteTemplate(&body, name, data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(code)
	_, _ = w.Write([]byte(body.String()))
}

func (t *Twin) requestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		if !strings.HasPrefix(r.URL.Path, "/admin") {
			t.Store.RecordRequest(r.Method, r.URL.Path)
		}

		next.ServeHTTP(ww, r)

		slog.Debug("twin request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
		)
	})
}

func (t *Twin) injectFaults(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/admin") {
			t.mu.Lock()
			code := 0
			if t.faultCount > 0 {
				code = t.faultCode
				t.faultCount--
			}
			t.mu.Unlock()
			if code != 0 {
				http.Error(w, http.StatusText(code), code)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, map[string]any{"error": message})
}
