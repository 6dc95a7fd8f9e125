package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/fwojciec/secretary"
	"github.com/fwojciec/secretary/backend"
	"github.com/fwojciec/secretary/chat"
	secemail "github.com/fwojciec/secretary/email"
	"github.com/fwojciec/secretary/fs"
	"github.com/fwojciec/secretary/gorm"
	"github.com/fwojciec/secretary/handler"
	"github.com/fwojciec/secretary/jwt"
	"github.com/fwojciec/secretary/lifecycle"
	"github.com/fwojciec/secretary/router"
	"github.com/fwojciec/secretary/sqlite"
	"github.com/fwojciec/secretary/store"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// keyJWTSecret holds the generated signing secret in the medium.
const keyJWTSecret = secretary.KeyPrefix + "jwt-secret"

// app is the wired object graph for one invocation.
type app struct {
	cfg      Config
	log      logrus.FieldLogger
	medium   *fs.Medium
	db       *sqlite.DB
	mysql    *gorm.ProfileStore
	store    *store.Store
	tokens   *jwt.Provider
	session  *lifecycle.Manager
	backend  *backend.Adapter
	backendN string
	chat     *chat.Service
	mailer   secretary.Mailer
}

func newApp(ctx context.Context, cfg Config, log logrus.FieldLogger) (*app, error) {
	a := &app{cfg: cfg, log: log}

	var err error
	if a.medium, err = fs.New(cfg.DataDir); err != nil {
		return nil, err
	}
	if a.db, err = sqlite.Open(cfg.DataDir); err != nil {
		return nil, err
	}
	var profiles secretary.ProfileStore = a.db
	if cfg.ProfileStore == profilesMySQL {
		if a.mysql, err = gorm.Open(cfg.MySQLDSN); err != nil {
			a.Close()
			return nil, err
		}
		profiles = a.mysql
	}

	a.store = store.New(
		store.WithMedium(a.medium),
		store.WithMaxMessages(cfg.MaxMessages),
		store.WithLogger(log),
	)

	secret, err := a.jwtSecret()
	if err != nil {
		a.Close()
		return nil, err
	}
	a.tokens, err = jwt.New(secret, localIdentity(cfg), jwt.WithMedium(a.medium))
	if err != nil {
		a.Close()
		return nil, err
	}
	a.session = lifecycle.New(a.tokens, a.store,
		lifecycle.WithProfileStore(profiles),
		lifecycle.WithMedium(a.medium),
		lifecycle.WithLogger(log),
	)
	// A persisted token binds the session through the provider event.
	if err := a.tokens.Restore(); err != nil {
		a.Close()
		return nil, err
	}

	transport, name, err := resolveTransport(ctx, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.backendN = name
	a.backend = backend.New(transport,
		backend.WithMaxAttempts(cfg.MaxRetries),
		backend.WithSystemPrompt(handler.SystemPrompt()),
		backend.WithLogger(log),
	)

	hs := handler.New(a.backend,
		handler.WithCalendar(a.db),
		handler.WithContacts(a.db),
		handler.WithLogger(log),
	)
	ropts := []router.Option{router.WithLogger(log)}
	for _, intent := range secretary.Intents() {
		ropts = append(ropts, router.WithHandler(intent, hs[intent]))
	}
	a.chat = chat.New(router.New(hs[secretary.IntentGeneral], ropts...), a.session, a.store, chat.WithLogger(log))

	if cfg.SMTPEnabled() {
		var opts []secemail.Option
		if cfg.SMTPUser != "" {
			opts = append(opts, secemail.WithAuth(cfg.SMTPUser, cfg.SMTPPassword))
		}
		m, err := secemail.New(cfg.SMTPAddr, cfg.SMTPFrom, opts...)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.mailer = m
	}
	return a, nil
}

// jwtSecret returns the configured secret, or the one generated for this
// data directory on first use.
func (a *app) jwtSecret() ([]byte, error) {
	if a.cfg.JWTSecret != "" {
		return []byte(a.cfg.JWTSecret), nil
	}
	data, err := a.medium.Load(keyJWTSecret)
	if err == nil && len(data) > 0 {
		return data, nil
	}
	if err != nil && !errors.Is(err, secretary.ErrNotFound) {
		return nil, err
	}
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return nil, fmt.Errorf("generate jwt secret: %w", err)
	}
	secret := []byte(hex.EncodeToString(raw))
	if err := a.medium.Save(keyJWTSecret, secret); err != nil {
		return nil, err
	}
	return secret, nil
}

// localIdentity is the single user of a local installation. Its id is
// stable for a given name and email.
func localIdentity(cfg Config) secretary.Identity {
	seed := strings.ToLower(cfg.UserEmail)
	if seed == "" {
		seed = cfg.UserName
	}
	return secretary.Identity{
		ID:          uuid.NewSHA1(uuid.NameSpaceOID, []byte("secretary-plus:"+seed)).String(),
		DisplayName: cfg.UserName,
		Email:       cfg.UserEmail,
	}
}

// restore loads persisted history without signing in.
func (a *app) restore() error {
	if err := a.store.Restore(); err != nil {
		return fmt.Errorf("restore history: %w", err)
	}
	return nil
}

// Close releases the databases and stops event subscriptions.
func (a *app) Close() {
	if a.session != nil {
		a.session.Close()
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.log.WithError(err).Warn("close database")
		}
	}
	if a.mysql != nil {
		if err := a.mysql.Close(); err != nil {
			a.log.WithError(err).Warn("close profile store")
		}
	}
}
