// Copyright (c) 2026 Finscope. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package profile

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/finscope/internal/auth"
	"github.com/taibuivan/finscope/internal/backend"
	requestutil "github.com/taibuivan/finscope/internal/platform/request"
	"github.com/taibuivan/finscope/internal/platform/respond"
	"github.com/taibuivan/finscope/internal/platform/validate"
)

// SessionControl translates backend failures and ends sessions. [*auth.Handler] satisfies it.
type SessionControl interface {
	RespondError(writer http.ResponseWriter, request *http.Request, err error)
	EndSession(writer http.ResponseWriter, request *http.Request, reason string) error
}

// Handler exposes the profile page and the watchlist API.
//
// Every call forwards the caller's session to the backend. Without a token the
// call fails locally with NO_SESSION_TOKEN; a token the backend rejects ends
// the session and sends the browser to the login page.
type Handler struct {
	profileService *Service
	sessions       SessionControl
}

func NewHandler(service *Service, sessions SessionControl) *Handler {
	return &Handler{profileService: service, sessions: sessions}
}

// Routes returns the API routes, mounted under /api.
//
// # Endpoints
//   - GET    /profile
//   - GET    /watchlist
//   - POST   /watchlist
//   - DELETE /watchlist/{cik}
//   - GET    /watchlist/financials
//   - GET    /stocks
//   - DELETE /account
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	router.Get("/profile", handler.profile)
	router.Get("/watchlist", handler.watchlist)
	router.Post("/watchlist", handler.track)
	router.Get("/watchlist/financials", handler.financials)
	router.Delete("/watchlist/{cik}", handler.untrack)
	router.Get("/stocks", handler.stocks)
	router.Delete("/account", handler.deleteAccount)

	return router
}

type trackRequest struct {
	CIKs []int64 `json:"ciks"`
}

/*
Page serves the data of the profile page.

GET /profile

Description: Guarded route. Loads the backend profile and the saved companies.

Response:
  - 200: Overview
  - 303: Redirect to /login when the backend rejects the session
*/
func (handler *Handler) Page(writer http.ResponseWriter, request *http.Request) {
	overview, err := handler.profileService.Overview(request.Context(), sessionOf(request))
	if err != nil {
		handler.sessions.RespondError(writer, request, err)
		return
	}
	respond.OK(writer, overview)
}

func (handler *Handler) profile(writer http.ResponseWriter, request *http.Request) {
	profile, err := handler.profileService.Profile(request.Context(), sessionOf(request))
	if err != nil {
		handler.sessions.RespondError(writer, request, err)
		return
	}
	respond.OK(writer, profile)
}

func (handler *Handler) watchlist(writer http.ResponseWriter, request *http.Request) {
	companies, err := handler.profileService.Watchlist(request.Context(), sessionOf(request))
	if err != nil {
		handler.sessions.RespondError(writer, request, err)
		return
	}
	respond.OK(writer, companies)
}

/*
Track adds companies to the watchlist.

POST /api/watchlist

Request:
  - Body: {"ciks": [320193, 789019]}

Response:
  - 200: TrackResult (added and skipped CIKs)
  - 400: VALIDATION_ERROR
  - 401: NO_SESSION_TOKEN
*/
func (handler *Handler) track(writer http.ResponseWriter, request *http.Request) {
	var input trackRequest

	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	result, err := handler.profileService.Track(request.Context(), sessionOf(request), input.CIKs)
	if err != nil {
		handler.sessions.RespondError(writer, request, err)
		return
	}
	respond.OK(writer, result)
}

func (handler *Handler) untrack(writer http.ResponseWriter, request *http.Request) {
	cik, err := requestutil.Int64Param(request, FieldCIK)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.profileService.Untrack(request.Context(), sessionOf(request), cik); err != nil {
		handler.sessions.RespondError(writer, request, err)
		return
	}
	respond.NoContent(writer)
}

func (handler *Handler) financials(writer http.ResponseWriter, request *http.Request) {
	rows, err := handler.profileService.Financials(request.Context(), sessionOf(request))
	if err != nil {
		handler.sessions.RespondError(writer, request, err)
		return
	}
	respond.OK(writer, rows)
}

func (handler *Handler) stocks(writer http.ResponseWriter, request *http.Request) {
	stocks, err := handler.profileService.Stocks(request.Context(), sessionOf(request))
	if err != nil {
		handler.sessions.RespondError(writer, request, err)
		return
	}
	respond.OK(writer, stocks)
}

/*
DeleteAccount removes the account and ends the session.

DELETE /api/account

Response:
  - 204: No Content, cookie cleared
  - 401: NO_SESSION_TOKEN
*/
func (handler *Handler) deleteAccount(writer http.ResponseWriter, request *http.Request) {
	if err := handler.profileService.DeleteAccount(request.Context(), sessionOf(request)); err != nil {
		handler.sessions.RespondError(writer, request, err)
		return
	}

	if err := handler.sessions.EndSession(writer, request, auth.ReasonAccountDeleted); err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.NoContent(writer)
}

// sessionOf returns the caller's session, or nil for anonymous requests.
func sessionOf(request *http.Request) backend.Session {
	if view := auth.SessionFrom(request.Context()); view != nil {
		return view
	}
	return nil
}
