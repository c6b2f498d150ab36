package main

import (
	"log/slog"
	"net/http"

	"github.com/AdamBeresnev/bracket-engine/internal/bracket"
	"github.com/AdamBeresnev/bracket-engine/internal/httputil"
	"github.com/AdamBeresnev/bracket-engine/internal/middleware"
	"github.com/AdamBeresnev/bracket-engine/internal/service"
	"github.com/AdamBeresnev/bracket-engine/internal/store"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type app struct {
	tournaments  *service.TournamentService
	participants *service.ParticipantService
	brackets     *service.BracketService
	matches      *service.MatchService
}

func newApp(db *sqlx.DB, opts ...service.Option) *app {
	tournamentStore := store.NewTournamentStore(db)
	bracketStore := store.NewBracketStore(db)
	tournaments := service.NewTournamentService(db, tournamentStore, opts...)

	return &app{
		tournaments:  tournaments,
		participants: service.NewParticipantService(db, tournamentStore, opts...),
		brackets:     service.NewBracketService(db, bracketStore, tournaments, opts...),
		matches:      service.NewMatchService(db, bracketStore, tournaments, opts...),
	}
}

func newRouter(a *app, gatherer prometheus.Gatherer, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(middleware.RequestLogger(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"https://*", "http://*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		MaxAge:         300,
	}))

	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/tournaments", func(r chi.Router) {
		r.Post("/", a.createTournament)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", a.getTournament)
			r.Post("/registration", a.openRegistration)
			r.Get("/participants", a.listParticipants)
			r.Post("/participants", a.importRoster)
			r.Post("/bracket", a.generateBracket)
			r.Get("/bracket", a.getBracket)
			r.Post("/byes", a.advanceByes)
		})
	})

	r.Route("/matches/{id}", func(r chi.Router) {
		r.Post("/start", a.startMatch)
		r.Post("/result", a.reportResult)
		r.Put("/result", a.correctResult)
	})

	return r
}

// idParam parses the {id} URL parameter, writing a 400 when it is not a UUID.
func idParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.BadRequest(w, r, "Invalid id", err)
		return uuid.Nil, false
	}
	return id, true
}

func (a *app) createTournament(w http.ResponseWriter, r *http.Request) {
	var input service.CreateTournamentInput
	if err := httputil.ReadJSON(w, r, &input); err != nil {
		httputil.BadRequest(w, r, err.Error(), nil)
		return
	}

	tournament, err := a.tournaments.CreateTournament(r.Context(), input)
	if err != nil {
		httputil.Error(w, r, "Failed to create tournament", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, tournament)
}

func (a *app) getTournament(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}

	tournament, err := a.tournaments.GetTournament(r.Context(), id)
	if err != nil {
		httputil.Error(w, r, "Failed to get tournament", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, tournament)
}

func (a *app) openRegistration(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}

	tournament, err := a.tournaments.OpenRegistration(r.Context(), id)
	if err != nil {
		httputil.Error(w, r, "Failed to open registration", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, tournament)
}

func (a *app) listParticipants(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}

	participants, err := a.participants.ListParticipants(r.Context(), id)
	if err != nil {
		httputil.Error(w, r, "Failed to list participants", err)
		return
	}
	if participants == nil {
		participants = []bracket.Participant{}
	}
	httputil.WriteJSON(w, http.StatusOK, participants)
}

func (a *app) importRoster(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}

	var input struct {
		Roster string `json:"roster"`
	}
	if err := httputil.ReadJSON(w, r, &input); err != nil {
		httputil.BadRequest(w, r, err.Error(), nil)
		return
	}

	participants, err := a.participants.ImportRoster(r.Context(), id, input.Roster)
	if err != nil {
		httputil.Error(w, r, "Failed to import roster", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, participants)
}

func (a *app) generateBracket(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}

	res, err := a.brackets.GenerateBracket(r.Context(), id)
	if err != nil {
		httputil.Error(w, r, "Failed to generate bracket", err)
		return
	}
	middleware.LoggerFromContext(r.Context()).Info("bracket generated via api", "tournament_id", id, "matches", res.MatchCount)
	httputil.WriteJSON(w, http.StatusCreated, res)
}

func (a *app) getBracket(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}

	stages, err := a.brackets.GetBracket(r.Context(), id)
	if err != nil {
		httputil.Error(w, r, "Failed to get bracket", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"stages": stages})
}

func (a *app) advanceByes(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}

	resolved, err := a.matches.AdvanceByes(r.Context(), id)
	if err != nil {
		httputil.Error(w, r, "Failed to advance byes", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]int{"resolved": resolved})
}

func (a *app) startMatch(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}

	match, err := a.matches.StartMatch(r.Context(), id)
	if err != nil {
		httputil.Error(w, r, "Failed to start match", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, match)
}

// readResult decodes a result body for the match named in the URL.
func readResult(w http.ResponseWriter, r *http.Request) (service.ReportInput, bool) {
	var input service.ReportInput
	id, ok := idParam(w, r)
	if !ok {
		return input, false
	}
	if err := httputil.ReadJSON(w, r, &input); err != nil {
		httputil.BadRequest(w, r, err.Error(), nil)
		return input, false
	}
	input.MatchID = id
	return input, true
}

func (a *app) reportResult(w http.ResponseWriter, r *http.Request) {
	input, ok := readResult(w, r)
	if !ok {
		return
	}

	outcome, err := a.matches.ReportResult(r.Context(), input)
	if err != nil {
		httputil.Error(w, r, "Failed to report result", err)
		return
	}
	if outcome.TournamentCompleted {
		middleware.LoggerFromContext(r.Context()).Info("final reported", "match_id", input.MatchID)
	}
	httputil.WriteJSON(w, http.StatusOK, outcome)
}

func (a *app) correctResult(w http.ResponseWriter, r *http.Request) {
	input, ok := readResult(w, r)
	if !ok {
		return
	}

	match, err := a.matches.CorrectResult(r.Context(), input)
	if err != nil {
		httputil.Error(w, r, "Failed to correct result", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, match)
}
