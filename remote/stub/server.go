// Package stub is an in-memory implementation of the FitLife auth service
// HTTP contract. It backs the CLI's serve-stub command and the remote client
// tests, and can be switched unavailable to simulate an outage.
package stub

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fitlife/fitAuth/account"
	"github.com/fitlife/fitAuth/localauth"
	"github.com/fitlife/fitAuth/password"
	"github.com/fitlife/fitAuth/remote"
	"github.com/fitlife/fitAuth/token"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

type claimsContextKey struct{}

type user struct {
	account.User
	passwordHash string
}

// Server is the stand-in auth service.
type Server struct {
	issuer *token.Issuer
	hasher password.Hasher
	now    func() time.Time

	available atomic.Bool
	calls     atomic.Int64

	mu      sync.RWMutex
	byEmail map[string]*user
	revoked map[string]struct{}
}

// New returns a Server holding the given seed accounts.
func New(issuer *token.Issuer, hasher password.Hasher, seeds []localauth.Seed) (*Server, error) {
	s := &Server{
		issuer:  issuer,
		hasher:  hasher,
		now:     time.Now,
		byEmail: make(map[string]*user),
		revoked: make(map[string]struct{}),
	}
	s.available.Store(true)

	for _, seed := range seeds {
		hash, err := hasher.Hash(seed.Password)
		if err != nil {
			return nil, err
		}
		now := s.now()
		s.byEmail[account.NormalizeEmail(seed.Email)] = &user{
			User: account.User{
				ID:        seed.ID,
				Email:     account.NormalizeEmail(seed.Email),
				Name:      seed.Name,
				Role:      seed.Role,
				Profile:   account.DefaultProfile(),
				CreatedAt: now,
				UpdatedAt: now,
			},
			passwordHash: hash,
		}
	}
	return s, nil
}

// SetAvailable toggles the simulated outage. While unavailable every route
// answers 503.
func (s *Server) SetAvailable(v bool) {
	s.available.Store(v)
}

// Calls returns the number of requests received, including rejected ones.
func (s *Server) Calls() int64 {
	return s.calls.Load()
}

// Router returns the HTTP handler.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		middleware.Recoverer,
		s.availability,
	)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", s.login)
		r.Post("/register", s.register)
		r.Group(func(r chi.Router) {
			r.Use(s.requireAuth)
			r.Get("/profile", s.profile)
			r.Put("/profile", s.updateProfile)
			r.Post("/logout", s.logout)
		})
	})
	return r
}

func (s *Server) availability(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.calls.Add(1)
		if !s.available.Load() {
			writeError(w, http.StatusServiceUnavailable, "service unavailable")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tok, ok := bearerToken(r.Header.Get("Authorization"))
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		s.mu.RLock()
		_, revoked := s.revoked[tok]
		s.mu.RUnlock()
		if revoked {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		claims, err := s.issuer.Parse(tok)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		ctx := context.WithValue(r.Context(), claimsContextKey{}, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func claimsFrom(ctx context.Context) *token.Claims {
	c, _ := ctx.Value(claimsContextKey{}).(*token.Claims)
	return c
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}
	tok := value[len(bearer):]
	if tok == "" {
		return "", false
	}
	return tok, true
}

func (s *Server) issue(u account.User) (remote.AuthResponse, error) {
	access, err := s.issuer.Issue(u.ID, u.Email, string(u.Role))
	if err != nil {
		return remote.AuthResponse{}, err
	}
	refresh, err := token.NewRefreshToken()
	if err != nil {
		return remote.AuthResponse{}, err
	}
	return remote.AuthResponse{User: u, Token: access, RefreshToken: refresh}, nil
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req remote.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	s.mu.RLock()
	u, ok := s.byEmail[account.NormalizeEmail(req.Email)]
	s.mu.RUnlock()
	if !ok {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	match, err := s.hasher.Verify(req.Password, u.passwordHash)
	if err != nil || !match {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	resp, err := s.issue(u.User)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create token")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var req remote.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	email := account.NormalizeEmail(req.Email)
	req.Name = strings.TrimSpace(req.Name)
	if email == "" || req.Name == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "missing required fields")
		return
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create user")
		return
	}

	now := s.now()
	u := &user{
		User: account.User{
			ID:        uuid.NewString(),
			Email:     email,
			Name:      req.Name,
			Role:      account.RoleUser,
			Profile:   req.Profile.WithDefaults(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		passwordHash: hash,
	}

	s.mu.Lock()
	if _, exists := s.byEmail[email]; exists {
		s.mu.Unlock()
		writeError(w, http.StatusConflict, "email already registered")
		return
	}
	s.byEmail[email] = u
	s.mu.Unlock()

	resp, err := s.issue(u.User)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create token")
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

var errNoUser = errors.New("user not found")

func (s *Server) lookup(id string) (*user, error) {
	for _, u := range s.byEmail {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, errNoUser
}

func (s *Server) profile(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())

	s.mu.RLock()
	defer s.mu.RUnlock()

	u, err := s.lookup(claims.UID)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	writeJSON(w, http.StatusOK, u.User)
}

func (s *Server) updateProfile(w http.ResponseWriter, r *http.Request) {
	var patch account.ProfilePatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	claims := claimsFrom(r.Context())

	s.mu.Lock()
	defer s.mu.Unlock()

	u, err := s.lookup(claims.UID)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	u.User = patch.Apply(u.User, s.now())
	writeJSON(w, http.StatusOK, u.User)
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	tok, _ := bearerToken(r.Header.Get("Authorization"))
	s.mu.Lock()
	s.revoked[tok] = struct{}{}
	s.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}
