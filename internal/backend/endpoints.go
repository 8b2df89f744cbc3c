// Copyright (c) 2026 Finscope. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package backend

import (
	"context"
	"net/http"
)

// # Public endpoints

// Login exchanges credentials for a backend token.
func (client *Client) Login(ctx context.Context, email, password string) (*TokenResponse, error) {
	var response TokenResponse
	if err := client.Do(ctx, nil, http.MethodPost, PathLogin, LoginRequest{Email: email, Password: password}, &response); err != nil {
		return nil, err
	}
	return &response, nil
}

// Register creates a credentials account and returns its first token.
func (client *Client) Register(ctx context.Context, input RegisterRequest) (*TokenResponse, error) {
	var response TokenResponse
	if err := client.Do(ctx, nil, http.MethodPost, PathRegister, input, &response); err != nil {
		return nil, err
	}
	return &response, nil
}

// UpsertOAuth finds or creates the account for a provider identity.
func (client *Client) UpsertOAuth(ctx context.Context, user OAuthUser) (*TokenResponse, error) {
	var response TokenResponse
	if err := client.Do(ctx, nil, http.MethodPost, PathOAuth, user, &response); err != nil {
		return nil, err
	}
	return &response, nil
}

// # Session-bearing endpoints

// Logout notifies the backend that the token is being abandoned.
func (client *Client) Logout(ctx context.Context, session Session) error {
	return client.Do(ctx, session, http.MethodPost, PathLogout, nil, nil)
}

// Me returns the profile encoded in the session's token.
func (client *Client) Me(ctx context.Context, session Session) (*Profile, error) {
	var profile Profile
	if err := client.Do(ctx, session, http.MethodGet, PathMe, nil, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// SavedCompanies lists the watchlist with the latest cash and debt figures.
func (client *Client) SavedCompanies(ctx context.Context, session Session) ([]SavedCompany, error) {
	companies := []SavedCompany{}
	if err := client.Do(ctx, session, http.MethodGet, PathCompanies, nil, &companies); err != nil {
		return nil, err
	}
	return companies, nil
}

// TrackCompanies adds companies to the watchlist. Already tracked CIKs are skipped.
func (client *Client) TrackCompanies(ctx context.Context, session Session, ciks []int64) (*TrackResult, error) {
	var result TrackResult
	if err := client.Do(ctx, session, http.MethodPost, PathCompanies, TrackRequest{CIKs: ciks}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// UntrackCompany removes one company from the watchlist.
func (client *Client) UntrackCompany(ctx context.Context, session Session, cik int64) error {
	return client.Do(ctx, session, http.MethodDelete, PathCompanies, UntrackRequest{CIK: cik}, nil)
}

// CompanyFinancials returns the latest balance-sheet figures of every tracked company.
func (client *Client) CompanyFinancials(ctx context.Context, session Session) ([]CompanyFinancials, error) {
	rows := []CompanyFinancials{}
	if err := client.Do(ctx, session, http.MethodGet, PathFinancials, nil, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// Stocks lists the companies that can be added to a watchlist.
func (client *Client) Stocks(ctx context.Context, session Session) ([]Stock, error) {
	stocks := []Stock{}
	if err := client.Do(ctx, session, http.MethodGet, PathStocks, nil, &stocks); err != nil {
		return nil, err
	}
	return stocks, nil
}

// DeleteAccount removes the account and its watchlist on the backend.
func (client *Client) DeleteAccount(ctx context.Context, session Session) error {
	return client.Do(ctx, session, http.MethodDelete, PathDeleteUser, nil, nil)
}

// Ping checks that the backend answers at all. Any HTTP status counts as reachable.
func (client *Client) Ping(ctx context.Context) error {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, client.baseURL.String()+"/", nil)
	if err != nil {
		return err
	}
	response, err := client.httpClient.Do(request)
	if err != nil {
		return err
	}
	return response.Body.Close()
}
