// internal/handlers/user.go
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/jason-s-yu/songquiz/internal/database"
	"github.com/jason-s-yu/songquiz/internal/models"
)

const (
	maxNameLength  = 32
	minPasswordLen = 8
)

type createUserRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Username string `json:"username"`
	Nickname string `json:"nickname"`
}

func (req *createUserRequest) validate() string {
	req.Username = strings.TrimSpace(req.Username)
	req.Nickname = strings.TrimSpace(req.Nickname)
	if _, err := mail.ParseAddress(req.Email); err != nil {
		return "invalid email"
	}
	if !validName(req.Username) {
		return "invalid username"
	}
	if req.Nickname != "" && !validName(req.Nickname) {
		return "invalid nickname"
	}
	if len(req.Password) < minPasswordLen {
		return "password too short"
	}
	return ""
}

func validName(s string) bool {
	n := utf8.RuneCountInString(s)
	return n > 0 && n <= maxNameLength && !strings.ContainsAny(s, "<>")
}

// publicUser is the user as returned by the HTTP API.
type publicUser struct {
	ID          string `json:"id"`
	Email       string `json:"email,omitempty"`
	Username    string `json:"username"`
	Nickname    string `json:"nickname"`
	IsEphemeral bool   `json:"is_ephemeral"`
}

func publicOf(u *models.User) publicUser {
	return publicUser{
		ID:          u.ID.String(),
		Email:       u.Email,
		Username:    u.Username,
		Nickname:    u.Nickname,
		IsEphemeral: u.IsEphemeral,
	}
}

type tokenResponse struct {
	Token string     `json:"token"`
	User  publicUser `json:"user"`
}

// CreateUserHandler registers a user.
//
// Request payload:
//
//	{
//	  "email": "someone@example.com",
//	  "password": "password",
//	  "username": "someone",
//	  "nickname": "Some One"
//	}
func (s *Server) CreateUserHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	if msg := req.validate(); msg != "" {
		http.Error(w, msg, http.StatusBadRequest)
		return
	}

	user := models.User{
		Email:    req.Email,
		Password: req.Password,
		Username: req.Username,
		Nickname: req.Nickname,
	}
	if err := database.CreateUser(r.Context(), &user); err != nil {
		if errors.Is(err, database.ErrUserExists) {
			http.Error(w, "email or username already exists", http.StatusConflict)
			return
		}
		s.Log.Errorf("create user %s: %v", req.Username, err)
		http.Error(w, "error creating user", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, publicOf(&user))
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginHandler checks credentials and answers with a token, also set as the auth_token cookie.
//
// Response payload:
//
//	{
//	  "token": "{jwt}",
//	  "user": {...}
//	}
func (s *Server) LoginHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request payload", http.StatusBadRequest)
		return
	}

	u, err := database.AuthenticateUser(r.Context(), req.Email, req.Password)
	if err != nil {
		if !errors.Is(err, database.ErrInvalidCredentials) {
			s.Log.Errorf("failed to authenticate user: %v", err)
		}
		http.Error(w, "authentication failed", http.StatusForbidden)
		return
	}
	s.issueToken(w, u)
}

type guestRequest struct {
	Nickname string `json:"nickname"`
}

// GuestHandler creates an ephemeral user. Guests may join rooms but not create them.
func (s *Server) GuestHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req guestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	req.Nickname = strings.TrimSpace(req.Nickname)
	if !validName(req.Nickname) {
		http.Error(w, "invalid nickname", http.StatusBadRequest)
		return
	}

	u, err := database.CreateGuest(r.Context(), req.Nickname)
	if err != nil {
		s.Log.Errorf("create guest: %v", err)
		http.Error(w, "error creating guest", http.StatusInternalServerError)
		return
	}
	s.issueToken(w, u)
}

// ClaimGuestHandler turns the calling guest into a registered user.
func (s *Server) ClaimGuestHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id, err := s.Issuer.AuthenticateJWT(tokenFromRequest(r))
	if err != nil {
		http.Error(w, "invalid token", http.StatusForbidden)
		return
	}
	u, err := s.LoadUser(r.Context(), id)
	if err != nil {
		http.Error(w, "user not found", http.StatusNotFound)
		return
	}
	if !u.IsEphemeral {
		http.Error(w, "user is not a guest", http.StatusBadRequest)
		return
	}

	var req createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid claim payload", http.StatusBadRequest)
		return
	}
	req.Username = u.Username
	if msg := req.validate(); msg != "" {
		http.Error(w, msg, http.StatusBadRequest)
		return
	}

	u.Email = req.Email
	u.Password = req.Password
	if err := database.UpdateUserCredentials(r.Context(), u); err != nil {
		s.Log.Errorf("claim guest %s: %v", u.ID, err)
		http.Error(w, "failed to finalize guest user", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, publicOf(u))
}

const profileResults = 20

type profileResponse struct {
	User    publicUser          `json:"user"`
	Rating  models.Rating       `json:"rating"`
	Results []models.GameResult `json:"results"`
}

// ProfileHandler answers with the caller's rating and most recent games.
func (s *Server) ProfileHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id, err := s.Issuer.AuthenticateJWT(tokenFromRequest(r))
	if err != nil {
		http.Error(w, "invalid token", http.StatusForbidden)
		return
	}
	u, err := s.LoadUser(r.Context(), id)
	if err != nil {
		http.Error(w, "user not found", http.StatusNotFound)
		return
	}

	rating, err := database.GetUserRating(r.Context(), u.ID)
	if err != nil {
		s.Log.Errorf("load rating of %s: %v", u.ID, err)
		http.Error(w, "failed to load profile", http.StatusInternalServerError)
		return
	}
	results, err := database.GetUserResults(r.Context(), u.ID, profileResults)
	if err != nil {
		s.Log.Errorf("load results of %s: %v", u.ID, err)
		http.Error(w, "failed to load profile", http.StatusInternalServerError)
		return
	}
	if results == nil {
		results = []models.GameResult{}
	}
	writeJSON(w, http.StatusOK, profileResponse{User: publicOf(u), Rating: rating, Results: results})
}

func (s *Server) issueToken(w http.ResponseWriter, u *models.User) {
	token, err := s.Issuer.CreateJWT(u.ID)
	if err != nil {
		s.Log.Errorf("create jwt for %s: %v", u.ID, err)
		http.Error(w, "failed to create token", http.StatusInternalServerError)
		return
	}
	setAuthCookie(w, token, s.Issuer.TTL())
	writeJSON(w, http.StatusOK, tokenResponse{Token: token, User: publicOf(u)})
}
