// Copyright (c) 2026 Finscope. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package backend

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// CIK is an SEC Central Index Key. The backend sends it as a number on some
// routes and as a string on others.
type CIK string

// UnmarshalJSON accepts both JSON numbers and strings.
func (c *CIK) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*c = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var text string
		if err := json.Unmarshal(data, &text); err != nil {
			return err
		}
		*c = CIK(text)
		return nil
	}

	var number json.Number
	if err := json.Unmarshal(data, &number); err != nil {
		return fmt.Errorf("backend: invalid cik %s", data)
	}
	*c = CIK(number.String())
	return nil
}

// Int64 returns the numeric form expected by the write endpoints.
func (c CIK) Int64() (int64, error) {
	return strconv.ParseInt(string(c), 10, 64)
}

// # Authentication

// LoginRequest is the body of POST /users/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterRequest is the body of POST /users/register.
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// OAuthUser is the body of POST /users/oauth.
type OAuthUser struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Provider string `json:"provider"`
}

// TokenResponse is returned by the login, register and OAuth endpoints.
// UserID is absent on register.
type TokenResponse struct {
	Token  string      `json:"token"`
	UserID json.Number `json:"user_id,omitempty"`
}

// # Profile

// Profile is the reply of GET /users/me.
type Profile struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Provider string `json:"provider,omitempty"`
	Username string `json:"username"`
}

// # Watchlist

// SavedCompany is one row of GET /users/companies, joined with the latest
// reported financials.
type SavedCompany struct {
	CIK                CIK         `json:"cik"`
	Ticker             string      `json:"ticker"`
	CompanyName        string      `json:"companyname"`
	Year               int         `json:"year"`
	Month              int         `json:"month"`
	CashAndEquivalents json.Number `json:"cash_and_equivalents,omitempty"`
	LongTermDebt       json.Number `json:"long_term_debt,omitempty"`
}

// TrackRequest is the body of POST /users/companies.
type TrackRequest struct {
	CIKs []int64 `json:"ciks"`
}

// TrackResult reports which companies were newly tracked.
type TrackResult struct {
	Message string  `json:"message"`
	Added   []int64 `json:"added"`
	Skipped []int64 `json:"skipped"`
}

// UntrackRequest is the body of DELETE /users/companies.
type UntrackRequest struct {
	CIK int64 `json:"cik"`
}

// CompanyFinancials is one row of GET /users/companies/data.
type CompanyFinancials struct {
	CIK                CIK      `json:"cik"`
	Year               int      `json:"year"`
	Month              int      `json:"month"`
	AccountsPayable    *float64 `json:"accounts_payable"`
	Assets             *float64 `json:"assets"`
	Liabilities        *float64 `json:"liabilities"`
	Cash               *float64 `json:"cash"`
	AccountsReceivable *float64 `json:"accounts_receivable"`
	Inventory          *float64 `json:"inventory"`
	LongTermDebt       *float64 `json:"long_term_debt"`
}

// Stock is one entry of GET /api/stocks.
type Stock struct {
	CIK         CIK    `json:"cik"`
	Ticker      string `json:"ticker"`
	CompanyName string `json:"companyname"`
}
