// Copyright (c) 2026 Finscope. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package profile serves the signed-in user's profile and company watchlist by
// calling the backend on behalf of the session.
package profile

import (
	"context"
	"log/slog"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/taibuivan/finscope/internal/backend"
	"github.com/taibuivan/finscope/internal/platform/ctxutil"
	"github.com/taibuivan/finscope/internal/platform/validate"
)

const (
	FieldCIKs = "ciks"
	FieldCIK  = "cik"

	// MaxTrackBatch caps how many companies one request may add.
	MaxTrackBatch = 100
)

// Backend is the part of the backend API used by this package.
type Backend interface {
	Me(ctx context.Context, session backend.Session) (*backend.Profile, error)
	SavedCompanies(ctx context.Context, session backend.Session) ([]backend.SavedCompany, error)
	TrackCompanies(ctx context.Context, session backend.Session, ciks []int64) (*backend.TrackResult, error)
	UntrackCompany(ctx context.Context, session backend.Session, cik int64) error
	CompanyFinancials(ctx context.Context, session backend.Session) ([]backend.CompanyFinancials, error)
	Stocks(ctx context.Context, session backend.Session) ([]backend.Stock, error)
	DeleteAccount(ctx context.Context, session backend.Session) error
}

// Overview is everything the profile page shows.
type Overview struct {
	Profile   *backend.Profile       `json:"profile"`
	Companies []backend.SavedCompany `json:"companies"`
}

type Service struct {
	backend Backend
}

func NewService(backendAPI Backend) *Service {
	return &Service{backend: backendAPI}
}

// Overview loads the profile and the watchlist concurrently.
func (service *Service) Overview(ctx context.Context, session backend.Session) (*Overview, error) {
	var overview Overview
	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		profile, err := service.backend.Me(groupCtx, session)
		overview.Profile = profile
		return err
	})
	group.Go(func() error {
		companies, err := service.backend.SavedCompanies(groupCtx, session)
		overview.Companies = companies
		return err
	})

	if err := group.Wait(); err != nil {
		return nil, err
	}
	return &overview, nil
}

func (service *Service) Profile(ctx context.Context, session backend.Session) (*backend.Profile, error) {
	return service.backend.Me(ctx, session)
}

func (service *Service) Watchlist(ctx context.Context, session backend.Session) ([]backend.SavedCompany, error) {
	return service.backend.SavedCompanies(ctx, session)
}

// Track adds companies to the watchlist. Duplicate CIKs in the request are collapsed.
func (service *Service) Track(ctx context.Context, session backend.Session, ciks []int64) (*backend.TrackResult, error) {
	ciks = slices.Clone(ciks)
	slices.Sort(ciks)
	ciks = slices.Compact(ciks)

	validator := &validate.Validator{}
	validator.NotEmpty(FieldCIKs, len(ciks)).Positive(FieldCIKs, ciks...)
	if len(ciks) > MaxTrackBatch {
		return nil, validate.RequiredError(FieldCIKs, "Too many companies in one request")
	}
	if err := validator.Err(); err != nil {
		return nil, err
	}

	result, err := service.backend.TrackCompanies(ctx, session, ciks)
	if err != nil {
		return nil, err
	}

	ctxutil.GetLogger(ctx).InfoContext(ctx, "watchlist_tracked",
		slog.Int("added", len(result.Added)),
		slog.Int("skipped", len(result.Skipped)),
	)
	return result, nil
}

func (service *Service) Untrack(ctx context.Context, session backend.Session, cik int64) error {
	validator := &validate.Validator{}
	if err := validator.Positive(FieldCIK, cik).Err(); err != nil {
		return err
	}
	return service.backend.UntrackCompany(ctx, session, cik)
}

func (service *Service) Financials(ctx context.Context, session backend.Session) ([]backend.CompanyFinancials, error) {
	return service.backend.CompanyFinancials(ctx, session)
}

func (service *Service) Stocks(ctx context.Context, session backend.Session) ([]backend.Stock, error) {
	return service.backend.Stocks(ctx, session)
}

// DeleteAccount removes the account on the backend. The caller ends the session.
func (service *Service) DeleteAccount(ctx context.Context, session backend.Session) error {
	if err := service.backend.DeleteAccount(ctx, session); err != nil {
		return err
	}
	ctxutil.GetLogger(ctx).WarnContext(ctx, "account_deleted", slog.String("subject_id", ctxutil.GetSubjectID(ctx)))
	return nil
}
