package handler

import (
	"context"
	"reflect"
	"strings"

	"github.com/gearguard/backend/internal/config"
	"github.com/gearguard/backend/internal/domain"
	"github.com/gearguard/backend/internal/token"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	amqp "github.com/rabbitmq/amqp091-go"
)

// UserStore is the credential store as the handlers see it. The postgres
// repository implements it; the tests use an in-memory one.
type UserStore interface {
	CreateUser(user *domain.User) error
	GetUserByEmailOrUsername(identifier string) (*domain.User, error)
	GetUserByID(id int64) (*domain.User, error)
	TouchLastLogin(id int64) error
	CheckEmailIfExists(email string) (bool, error)
}

// SessionStore holds the server-side logged-in marker.
type SessionStore interface {
	Create(ctx context.Context, userID int64) (string, error)
	UserID(ctx context.Context, sid string) (int64, error)
	Delete(ctx context.Context, sid string) error
}

// MailPublisher is satisfied by *amqp.Channel.
type MailPublisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

type Handler struct {
	validate   *validator.Validate
	translator ut.Translator
	config     *config.Config
	store      UserStore
	tokens     *token.Issuer
	sessions   SessionStore
	mailCh     MailPublisher

	Mux *chi.Mux
}

func NewHandler(cfg *config.Config, store UserStore, tokens *token.Issuer, sessions SessionStore, mailCh MailPublisher) (*Handler, error) {
	validate := validator.New(validator.WithRequiredStructEnabled())

	// validation details are keyed by the wire field names
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	enLocale := en.New()
	uni := ut.New(enLocale, enLocale)
	trans, _ := uni.GetTranslator("en")
	if err := en_translations.RegisterDefaultTranslations(validate, trans); err != nil {
		return nil, err
	}

	return &Handler{
		validate:   validate,
		translator: trans,
		config:     cfg,
		store:      store,
		tokens:     tokens,
		sessions:   sessions,
		mailCh:     mailCh,

		Mux: chi.NewRouter(),
	}, nil
}

func (h *Handler) RegisterRoutes() {
	h.Mux.Use(h.logger)
	h.Mux.Use(h.recoverer)

	h.Mux.Route("/auth", func(r chi.Router) {
		r.Post("/signup", h.Signup)
		r.Post("/login", h.Login)
		r.Post("/logout", h.Logout)
		r.With(h.auth).Get("/profile", h.Profile)
	})
}
