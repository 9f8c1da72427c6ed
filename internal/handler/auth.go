package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gearguard/backend/internal/domain"
	amqp "github.com/rabbitmq/amqp091-go"
	"golang.org/x/crypto/bcrypt"
)

func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FirstName   string         `json:"first_name"`
		LastName    string         `json:"last_name"`
		Email       string         `json:"email" validate:"required,email"`
		Password    string         `json:"password" validate:"required"`
		Age         *int32         `json:"age" validate:"omitempty,gte=0"`
		Gender      *domain.Gender `json:"gender" validate:"omitempty,oneof=male female other"`
		Address     *string        `json:"address"`
		Designation *string        `json:"designation" validate:"omitempty,max=100"`
		Department  *string        `json:"department" validate:"omitempty,max=100"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.validationFailed(w, r, h.validationDetails(err))
		return
	}

	// the unique index still backstops this check when two signups race
	isExists, err := h.store.CheckEmailIfExists(req.Email)
	if err != nil {
		h.signupFailed(w, r, err)
		return
	}
	if isExists {
		h.validationFailed(w, r, map[string]string{"email": "user with this email already exists."})
		return
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		h.signupFailed(w, r, err)
		return
	}

	user := &domain.User{
		Email:        req.Email,
		Username:     req.Email, // no separate username, the address doubles as one
		PasswordHash: string(passwordHash),
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Age:          req.Age,
		Gender:       req.Gender,
		Address:      req.Address,
		Designation:  req.Designation,
		Department:   req.Department,
		IsActive:     true,
	}

	if err := h.store.CreateUser(user); err != nil {
		h.signupFailed(w, r, err)
		return
	}

	h.publishWelcomeMail(user)

	h.writeJSON(w, r, http.StatusCreated, envelope{
		"message": "User created successfully",
		"user": envelope{
			"id":         user.ID,
			"first_name": user.FirstName,
			"last_name":  user.LastName,
			"email":      user.Email,
			"username":   user.Username,
		},
	})
}

// signupFailed answers the signup 500 with the raw error text in "details".
// Existing clients depend on that field, so it is kept even though it exposes
// internals; the error is logged here as well.
func (h *Handler) signupFailed(w http.ResponseWriter, r *http.Request, err error) {
	h.logInternalServerError(r, err)
	h.writeJSON(w, r, http.StatusInternalServerError, envelope{
		"error":   "Internal server error during signup",
		"details": err.Error(),
	})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Username string `json:"username"`
		Password string `json:"password"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err.Error())
		return
	}

	// email wins when both are supplied
	identifier := req.Email
	if identifier == "" {
		identifier = req.Username
	}

	if identifier == "" || req.Password == "" {
		h.badRequest(w, r, "Please provide email/username and password.")
		return
	}

	user, err := h.store.GetUserByEmailOrUsername(identifier)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			h.invalidCredentials(w, r)
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	if !user.IsActive {
		h.invalidCredentials(w, r)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		switch {
		case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
			h.invalidCredentials(w, r)
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	tokens, err := h.tokens.Issue(user)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), time.Duration(h.config.Redis.OperationExpiration)*time.Second)
	defer cancel()

	sid, err := h.sessions.Create(ctx, user.ID)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	cookie := &http.Cookie{
		Name:     h.config.Session.CookieName,
		Value:    sid,
		Expires:  time.Now().Add(time.Duration(h.config.Session.Expiration) * time.Second),
		Path:     "/",
		HttpOnly: true,
		Secure:   false,
	}

	if h.config.Environment == "production" {
		cookie.Secure = true
		cookie.SameSite = http.SameSiteStrictMode
	}

	http.SetCookie(w, cookie)

	if err := h.store.TouchLastLogin(user.ID); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, envelope{
		"message": "Login successful",
		"user": envelope{
			"id":       user.ID,
			"username": user.Username,
			"email":    user.Email,
		},
		"tokens": tokens,
	})
}

// invalidCredentials is the one answer for unknown identifier, wrong password
// and inactive account, so callers cannot probe which emails exist.
func (h *Handler) invalidCredentials(w http.ResponseWriter, r *http.Request) {
	h.unauthorized(w, r, "Invalid email/username or password")
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(h.config.Session.CookieName); err == nil {
		ctx, cancel := context.WithTimeout(r.Context(), time.Duration(h.config.Redis.OperationExpiration)*time.Second)
		defer cancel()

		// logout succeeds regardless, a dead session store only gets logged
		if err := h.sessions.Delete(ctx, cookie.Value); err != nil {
			h.logInternalServerError(r, err)
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:    h.config.Session.CookieName,
		Value:   "",
		Expires: time.Now().Add(-time.Hour),
		Path:    "/",
	})

	h.writeJSON(w, r, http.StatusOK, envelope{"message": "Logout successful"})
}

func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value(UserIDCtxKey).(int64)

	user, err := h.store.GetUserByID(userID)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			h.unauthorized(w, r, "Authentication required")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	h.writeJSON(w, r, http.StatusOK, envelope{
		"id":       user.ID,
		"username": user.Username,
	})
}

func (h *Handler) publishWelcomeMail(user *domain.User) {
	mailMessage := domain.MailMessage{
		Type: "welcome",
		To:   user.Email,
		Data: domain.WelcomeMailData{
			FirstName: user.FirstName,
			Email:     user.Email,
		},
	}

	mailData, err := json.Marshal(mailMessage)
	if err != nil {
		slog.Warn("welcome mail not queued", "email", user.Email, "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(h.config.RabbitMQ.PublishTimeout)*time.Second)
	defer cancel()

	// best effort: the account exists either way
	if err := h.mailCh.PublishWithContext(
		ctx,
		"",
		"email_queue",
		true,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        mailData,
		},
	); err != nil {
		slog.Warn("welcome mail not queued", "email", user.Email, "error", err)
	}
}
