// internal/api/handlers.go
package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"github.com/rovshanmuradov/launchpad/internal/domain"
	"github.com/rovshanmuradov/launchpad/internal/events"
	"github.com/rovshanmuradov/launchpad/internal/launchpad"
	"github.com/rovshanmuradov/launchpad/internal/storage"
)

// RateResponse is the body of /oracle/rate.
type RateResponse struct {
	Rate decimal.Decimal `json:"rate"`
}

// BalancesResponse is the body of /launches/{id}/balances/{address}.
type BalancesResponse struct {
	Address domain.Address `json:"address"`
	Native  uint64         `json:"native"`
	Tokens  uint64         `json:"tokens"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleParams(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.cfg.Launchpad.Params())
}

func (s *Server) handleRate(w http.ResponseWriter, r *http.Request) {
	rate := s.cfg.Launchpad.DisplayRate(r.Context())
	if !rate.IsPositive() {
		writeJSON(w, http.StatusServiceUnavailable, ErrorBody{
			Error: "no rate available",
			Code:  domain.CodeOracleUnavailable,
			Kind:  domain.KindLedger.String(),
		})
		return
	}
	writeJSON(w, http.StatusOK, RateResponse{Rate: rate})
}

func (s *Server) handleListLaunches(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var f launchpad.Filter

	switch kind := domain.LaunchKind(strings.ToUpper(q.Get("kind"))); kind {
	case "", domain.KindProjectRaise, domain.KindInstantLaunch:
		f.Kind = kind
	default:
		badRequest(w, domain.CodeBadParams, "kind must be PROJECT_RAISE or INSTANT_LAUNCH")
		return
	}
	if v := q.Get("founder"); v != "" {
		addr, err := domain.ParseAddress(v)
		if err != nil {
			writeError(w, err)
			return
		}
		f.Founder = addr
	}
	if v := q.Get("graduated"); v != "" {
		g, err := strconv.ParseBool(v)
		if err != nil {
			badRequest(w, domain.CodeBadParams, "graduated must be a boolean")
			return
		}
		f.Graduated = &g
	}
	var ok bool
	if f.Offset, ok = intParam(w, q.Get("offset")); !ok {
		return
	}
	if f.Limit, ok = intParam(w, q.Get("limit")); !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.cfg.Launchpad.Launches(f))
}

func (s *Server) handleLaunch(w http.ResponseWriter, r *http.Request) {
	id, ok := launchParam(w, r)
	if !ok {
		return
	}
	info, err := s.cfg.Launchpad.Launch(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) handleRaise(w http.ResponseWriter, r *http.Request) {
	id, ok := launchParam(w, r)
	if !ok {
		return
	}
	info, err := s.cfg.Launchpad.Raise(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) handlePool(w http.ResponseWriter, r *http.Request) {
	id, ok := launchParam(w, r)
	if !ok {
		return
	}
	info, err := s.cfg.Launchpad.Pool(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request) {
	id, ok := launchParam(w, r)
	if !ok {
		return
	}
	var side launchpad.Side
	switch v := launchpad.Side(mux.Vars(r)["side"]); v {
	case launchpad.SideBuy, launchpad.SideSell:
		side = v
	default:
		badRequest(w, domain.CodeBadParams, "side must be buy or sell")
		return
	}
	amount, err := strconv.ParseUint(r.URL.Query().Get("amount"), 10, 64)
	if err != nil || amount == 0 {
		badRequest(w, domain.CodeBadAmount, "amount must be a positive integer in base units")
		return
	}
	q, err := s.cfg.Launchpad.Quote(id, side, amount)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

func (s *Server) handleVesting(w http.ResponseWriter, r *http.Request) {
	id, ok := launchParam(w, r)
	if !ok {
		return
	}
	info, err := s.cfg.Launchpad.Vesting(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) handleFees(w http.ResponseWriter, r *http.Request) {
	id, ok := launchParam(w, r)
	if !ok {
		return
	}
	st, err := s.cfg.Launchpad.Fees(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleClaimable(w http.ResponseWriter, r *http.Request) {
	id, ok := launchParam(w, r)
	if !ok {
		return
	}
	addr, err := domain.ParseAddress(mux.Vars(r)["address"])
	if err != nil {
		writeError(w, err)
		return
	}
	c, err := s.cfg.Launchpad.Claimable(r.Context(), id, addr)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleBalances(w http.ResponseWriter, r *http.Request) {
	id, ok := launchParam(w, r)
	if !ok {
		return
	}
	addr, err := domain.ParseAddress(mux.Vars(r)["address"])
	if err != nil {
		writeError(w, err)
		return
	}
	if _, err := s.cfg.Launchpad.Launch(id); err != nil {
		writeError(w, err)
		return
	}
	native, tokens := s.cfg.Launchpad.Balances(id, addr)
	writeJSON(w, http.StatusOK, BalancesResponse{Address: addr, Native: native, Tokens: tokens})
}

// handleEvents pages the durable log of one launch: ?after=<seq>&limit=&type=a,b
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	id, ok := launchParam(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	query := storage.Query{Launch: id}
	if v := q.Get("after"); v != "" {
		after, err := strconv.ParseInt(v, 10, 64)
		if err != nil || after < 0 {
			badRequest(w, domain.CodeBadParams, "after must be a non-negative sequence number")
			return
		}
		query.AfterSeq = after
	}
	if query.Limit, ok = intParam(w, q.Get("limit")); !ok {
		return
	}
	if v := q.Get("type"); v != "" {
		for _, t := range strings.Split(v, ",") {
			query.Types = append(query.Types, events.EventType(strings.TrimSpace(t)))
		}
	}

	recs, err := s.cfg.Store.List(r.Context(), query)
	if err != nil {
		writeError(w, domain.LedgerFailure(domain.CodeLedgerUnavailable, err))
		return
	}
	if recs == nil {
		recs = []storage.Record{}
	}
	writeJSON(w, http.StatusOK, recs)
}

func launchParam(w http.ResponseWriter, r *http.Request) (domain.LaunchID, bool) {
	id, err := domain.ParseAddress(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return domain.LaunchID{}, false
	}
	return id, true
}

func intParam(w http.ResponseWriter, v string) (int, bool) {
	if v == "" {
		return 0, true
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		badRequest(w, domain.CodeBadParams, "offset and limit must be non-negative integers")
		return 0, false
	}
	return n, true
}
