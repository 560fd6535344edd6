// internal/httpserver/routes_rounds.go
//
// HTTP routes for playing rounds and reading round history.
//   - POST /round/new        → validate the human's number, start an engine
//   - POST /round/feedback   → apply a lower/greater hint, return next guess
//   - GET  /round/{id}       → current snapshot of a live round
//   - GET  /round/{id}/watch → websocket stream of snapshots
//   - GET  /leaderboard      → targets that took the most rounds to find
//   - GET  /stats/me, /rounds/mine (auth required, mounted in auth.go)
//
// Live rounds sit in the session store; SQL rows follow them best effort.
// Only a round's owner (its user, or the guest holding the anon cookie) can
// send feedback. Solved rounds are closed in SQL and dropped from the live
// store; rounds replaced by a newer one are marked abandoned. Either way
// their watchers are disconnected.

package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/guessnumber/internal/feed"
	"github.com/robalobadob/guessnumber/internal/game"
	"github.com/robalobadob/guessnumber/internal/results"
	"github.com/robalobadob/guessnumber/internal/seed"
	"github.com/robalobadob/guessnumber/internal/store"
)

// contradictionMessage is shown to a human whose hint contradicts their number.
const contradictionMessage = "Don't lie! You know that this is wrong..."

// targetInput accepts the target as a JSON number or a string of digits,
// the way a text field would submit it.
type targetInput string

func (t *targetInput) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*t = targetInput(s)
		return nil
	}
	// anything else is kept verbatim and rejected by ParseTarget
	*t = targetInput(b)
	return nil
}

// newRoundReq is the payload for POST /round/new.
type newRoundReq struct {
	Target   targetInput   `json:"target"`
	Strategy game.Strategy `json:"strategy"` // "random" | "bisect"; empty uses the server default
}

// roundRes is returned by every round endpoint.
type roundRes struct {
	game.Snapshot
	Target int `json:"target,omitempty"` // only once solved: the game-over summary
}

// handleNewRound validates the human's number, starts an engine and
// registers the round. Any earlier live round of the same owner is dropped.
func (s *Server) handleNewRound(w http.ResponseWriter, r *http.Request) {
	var req newRoundReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", "")
		return
	}
	target, err := game.ParseTarget(string(req.Target))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_target", "Number has to be a number between 1 and 99.")
		return
	}
	strategy := req.Strategy
	if strategy == "" {
		strategy = s.cfg.DefaultStrategy
	}

	id := game.NewID()
	picker, err := s.pickerFor(strategy, id)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_strategy", err.Error())
		return
	}
	e, err := game.New(target, game.WithID(id), game.WithPicker(picker))
	if err != nil {
		log.Error().Err(err).Str("roundId", id).Msg("start engine")
		writeError(w, http.StatusInternalServerError, "engine_failed", "")
		return
	}

	rec := results.Record{
		ID:        id,
		Target:    target,
		Strategy:  string(strategy),
		Guesses:   e.Rounds(),
		StartedAt: time.Now().UTC(),
	}
	owner := ""
	if me := userFrom(r.Context()); me != nil {
		rec.UserID, owner = me.ID, me.ID
	} else {
		rec.AnonymousID = s.ensureAnonID(w, r)
		owner = rec.AnonymousID
	}

	sess := &store.Session{Engine: e, Target: target, Owner: owner, Strategy: strategy, Started: rec.StartedAt}
	replaced, err := s.store.Save(r.Context(), sess)
	if err != nil {
		log.Error().Err(err).Msg("save round")
		writeError(w, http.StatusInternalServerError, "save_failed", "")
		return
	}
	if replaced != "" {
		s.abandonRound(r.Context(), replaced)
	}
	if err := s.results.Start(r.Context(), rec); err != nil {
		log.Warn().Err(err).Str("roundId", id).Msg("insert round row")
	}
	log.Debug().Str("roundId", id).Str("strategy", string(strategy)).Int("guess", e.Current()).Msg("round started")

	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(roundRes{Snapshot: e.Snapshot()})
}

// pickerFor builds the candidate picker for a new round. With a round salt
// configured, random rounds are seeded from their ID so they can be replayed.
func (s *Server) pickerFor(strategy game.Strategy, roundID string) (game.Picker, error) {
	if strategy == game.StrategyRandom && s.cfg.RoundSalt != "" {
		return game.NewRandomPicker(seed.ForRound(s.cfg.RoundSalt, roundID)), nil
	}
	return game.NewPicker(strategy)
}

// feedbackReq is the payload for POST /round/feedback.
type feedbackReq struct {
	RoundID   string         `json:"roundId"`
	Direction game.Direction `json:"direction"` // "lower" | "greater"
}

// handleFeedback applies the human's hint to the round's engine.
//
//   - Rounds the caller does not own → 404, same as unknown rounds.
//   - Contradicting hints → 409 with the "don't lie" message; nothing changes.
//   - Solved rounds → 409 round_solved.
//   - On the solving guess the response carries the target and round count,
//     and the round is closed in SQL and dropped from the live store.
func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request) {
	var req feedbackReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", "")
		return
	}

	var res roundRes
	var solved bool
	err := s.store.Update(r.Context(), req.RoundID, func(sess *store.Session) error {
		if !ownsRound(r, sess.Owner) {
			return store.ErrNotFound
		}
		step, err := sess.Engine.Next(req.Direction, sess.Target)
		if err != nil {
			return err
		}
		res = roundRes{Snapshot: sess.Engine.Snapshot()}
		if step.Solved {
			solved = true
			res.Target = sess.Target
		}
		return nil
	})
	switch {
	case err == nil:
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", "")
		return
	case errors.Is(err, game.ErrContradiction):
		writeError(w, http.StatusConflict, "contradiction", contradictionMessage)
		return
	case errors.Is(err, game.ErrSolved):
		writeError(w, http.StatusConflict, "round_solved", "")
		return
	case errors.Is(err, game.ErrInvalidDirection):
		writeError(w, http.StatusBadRequest, "invalid_direction", err.Error())
		return
	default:
		// ErrExhaustedInterval and friends are engine defects.
		log.Error().Err(err).Str("roundId", req.RoundID).Msg("engine step")
		writeError(w, http.StatusInternalServerError, "engine_failed", "")
		return
	}

	s.hub.Publish(r.Context(), res.Snapshot)
	s.recordStep(r.Context(), res.ID, res.Rounds, solved)

	_ = json.NewEncoder(w).Encode(res)
}

// recordStep persists progress (best effort) and retires solved rounds.
func (s *Server) recordStep(ctx context.Context, id string, rounds int, solved bool) {
	if !solved {
		if err := s.results.Progress(ctx, id, rounds); err != nil {
			log.Warn().Err(err).Str("roundId", id).Msg("update round progress")
		}
		return
	}
	if err := s.results.Finish(ctx, id, rounds, time.Now()); err != nil {
		log.Warn().Err(err).Str("roundId", id).Msg("finish round")
	}
	if err := s.store.Delete(ctx, id); err != nil {
		log.Warn().Err(err).Str("roundId", id).Msg("drop solved round")
	}
	s.hub.Close(id)
	log.Info().Str("roundId", id).Int("rounds", rounds).Msg("round solved")
}

// abandonRound closes a live round that a newer round of its owner replaced.
func (s *Server) abandonRound(ctx context.Context, id string) {
	if err := s.results.Abandon(ctx, id, time.Now()); err != nil {
		log.Warn().Err(err).Str("roundId", id).Msg("abandon round")
	}
	s.hub.Close(id)
	log.Debug().Str("roundId", id).Msg("round abandoned")
}

// ownsRound reports whether the caller is owner: the signed-in user, or the
// guest holding the matching anon cookie.
func ownsRound(r *http.Request, owner string) bool {
	if owner == "" {
		return false
	}
	if me := userFrom(r.Context()); me != nil && me.ID == owner {
		return true
	}
	c, err := r.Cookie(anonCookieName)
	return err == nil && c.Value == owner
}

// handleGetRound returns the live round's snapshot.
func (s *Server) handleGetRound(w http.ResponseWriter, r *http.Request) {
	snap, err := s.store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "not_found", "")
		return
	}
	_ = json.NewEncoder(w).Encode(roundRes{Snapshot: snap})
}

// handleWatch upgrades to a websocket streaming the round's snapshots.
func (s *Server) handleWatch(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	snap, err := s.store.Get(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusNotFound, "not_found", "")
		return
	}
	if err := s.hub.Serve(w, r, id, snap); !feed.Handled(err) {
		log.Warn().Err(err).Str("roundId", id).Msg("watch ended")
	}
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	rows, err := s.results.Leaderboard(r.Context(), limit)
	if err != nil {
		log.Error().Err(err).Msg("leaderboard")
		writeError(w, http.StatusInternalServerError, "db_error", "")
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]any{"toughest": rows})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	me := userFrom(r.Context())
	st, err := s.results.Stats(r.Context(), me.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "db_error", "")
		return
	}
	_ = json.NewEncoder(w).Encode(st)
}

func (s *Server) handleMine(w http.ResponseWriter, r *http.Request) {
	me := userFrom(r.Context())
	rows, err := s.results.Mine(r.Context(), me.ID, 50)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "db_error", "")
		return
	}
	_ = json.NewEncoder(w).Encode(rows)
}
