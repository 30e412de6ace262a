package app

import (
	"smartsession/internal/domain"
	"smartsession/internal/store"
)

// App is the view of the wired graph that commands use.
type App struct {
	Session  domain.SessionController
	Accounts domain.AccountService
	Chain    domain.Chain

	// Sealed reports whether persisted session records are encrypted.
	Sealed bool
}

// New returns the command-facing view of w.
func New(w *Wire) *App {
	return &App{
		Session:  w.Session,
		Accounts: w.Accounts,
		Chain:    w.Config.Chain,
		Sealed:   store.Sealed(w.Store),
	}
}
