package sitetwin

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	ErrQuotaExhausted = errors.New("daily sms quota exhausted")
	ErrNoSender       = errors.New("sender phone number not configured")
	ErrUnknownUser    = errors.New("unknown user")
)

// Account is a najdi.si user known to the twin.
type Account struct {
	Username string `json:"username"`
	Password string `json:"-"`
	Name     string `json:"name"`
	// Sender is the verified sender label, e.g. "041 / 123456 - 789". Empty
	// means the account cannot send.
	Sender string `json:"sender"`
	Used   int    `json:"used"`
	Limit  int    `json:"limit"`
}

type Message struct {
	ID          int       `json:"id"`
	Username    string    `json:"username"`
	AreaCode    string    `json:"areaCode"`
	PhoneNumber string    `json:"phoneNumber"`
	Text        string    `json:"text"`
	SentAt      time.Time `json:"sentAt"`
}

// RequestRecord is one request the twin received.
type RequestRecord struct {
	Method string    `json:"method"`
	Path   string    `json:"path"`
	At     time.Time `json:"at"`
}

type session struct {
	username   string
	rememberMe bool
}

// Store holds all twin state behind one mutex.
type Store struct {
	mu        sync.Mutex
	accounts  map[string]*Account
	sessions  map[string]session
	tokens    map[string]bool
	messages  []Message
	requests  []RequestRecord
	areaCodes []string
	seed      []Account
}

func NewStore(areaCodes []string, accounts ...Account) *Store {
	s := &Store{
		areaCodes: slices.Clone(areaCodes),
		seed:      slices.Clone(accounts),
	}
	s.Reset()
	return s
}

// Reset drops sessions, messages and recorded requests and restores the
// seeded accounts.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts = make(map[string]*Account, len(s.seed))
	for _, a := range s.seed {
		s.accounts[a.Username] = &a
	}
	s.sessions = make(map[string]session)
	s.tokens = make(map[string]bool)
	s.messages = nil
	s.requests = nil
}

func (s *Store) AddAccount(a Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seed = append(s.seed, a)
	s.accounts[a.Username] = &a
}

func (s *Store) Account(username string) (Account, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[username]
	if !ok {
		return Account{}, false
	}
	return *a, true
}

func (s *Store) AreaCodes() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.areaCodes)
}

func (s *Store) Authenticate(username, password string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[username]
	return ok && a.Password == password
}

// IssueToken returns a single-use form token.
func (s *Store) IssueToken() string {
	token := uuid.NewString()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[token] = true
	return token
}

// ConsumeToken reports whether token was issued and not yet used.
func (s *Store) ConsumeToken(token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.tokens[token] {
		return false
	}
	delete(s.tokens, token)
	return true
}

func (s *Store) NewSession(username string, rememberMe bool) string {
	id := uuid.NewString()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[id] = session{username: username, rememberMe: rememberMe}
	return id
}

func (s *Store) SessionUser(id string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	return sess.username, ok
}

func (s *Store) DropSession(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

// ExpireSessions logs everyone out and returns how many sessions were dropped.
func (s *Store) ExpireSessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.sessions)
	s.sessions = make(map[string]session)
	return n
}

// Send records a message for username and counts it against the quota.
func (s *Store) Send(username, areaCode, phoneNumber, text string) (Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[username]
	switch {
	case !ok:
		return Message{}, fmt.Errorf("%w: %s", ErrUnknownUser, username)
	case a.Sender == "":
		return Message{}, ErrNoSender
	case a.Used >= a.Limit:
		return Message{}, ErrQuotaExhausted
	}
	a.Used++
	m := Message{
		ID:          len(s.messages) + 1,
		Username:    username,
		AreaCode:    areaCode,
		PhoneNumber: phoneNumber,
		Text:        text,
		SentAt:      time.Now(),
	}
	s.messages = append(s.messages, m)
	return m, nil
}

func (s *Store) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.messages)
}

func (s *Store) RecordRequest(method, path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, RequestRecord{Method: method, Path: path, At: time.Now()})
}

func (s *Store) Requests() []RequestRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.requests)
}
