package bootstrap

import (
	"github.com/dinhkhaphancs/live-quiz-runtime/internal/admin"
	"github.com/dinhkhaphancs/live-quiz-runtime/internal/game"
	"github.com/dinhkhaphancs/live-quiz-runtime/internal/quizstore"
	"github.com/dinhkhaphancs/live-quiz-runtime/internal/store"
	"github.com/dinhkhaphancs/live-quiz-runtime/internal/wsapi"
	"github.com/dinhkhaphancs/live-quiz-runtime/pkg/dispatch"
)

// Components holds every wired collaborator the HTTP router needs.
type Components struct {
	Sessions store.SessionStore
	Quizzes  quizstore.Store
	Game     *game.Controller
	Hub      *dispatch.RedisHub
	WS       *wsapi.Service
	Admin    *admin.Handler
}

// NewComponents wires the session store, quiz catalog, game controller,
// connection hub, and HTTP handlers into one bundle.
func NewComponents(sessions store.SessionStore, quizzes quizstore.Store, hub *dispatch.RedisHub, publicBaseURL string) *Components {
	controller := game.NewController(sessions, quizzes)
	return &Components{
		Sessions: sessions,
		Quizzes:  quizzes,
		Game:     controller,
		Hub:      hub,
		WS:       wsapi.NewService(sessions, controller, hub),
		Admin:    admin.NewHandler(sessions, quizzes, controller, hub, publicBaseURL),
	}
}
