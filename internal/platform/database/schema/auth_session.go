// Copyright (c) 2026 Finscope. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package schema names the tables and columns created by the migrations so
// queries never repeat raw identifiers.
package schema

import "strings"

// AuthSessionTable represents the 'auth.session' table
type AuthSessionTable struct {
	Table        string
	ID           string
	SubjectID    string
	Email        string
	DisplayName  string
	Provider     string
	BackendToken string
	CreatedAt    string
	ExpiresAt    string
}

// AuthSession is the schema definition for auth.session
var AuthSession = AuthSessionTable{
	Table:        "auth.session",
	ID:           "id",
	SubjectID:    "subject_id",
	Email:        "email",
	DisplayName:  "display_name",
	Provider:     "provider",
	BackendToken: "backend_token",
	CreatedAt:    "created_at",
	ExpiresAt:    "expires_at",
}

// Columns returns all standard column names in insert and scan order.
func (t AuthSessionTable) Columns() []string {
	return []string{
		t.ID, t.SubjectID, t.Email, t.DisplayName, t.Provider, t.BackendToken, t.CreatedAt, t.ExpiresAt,
	}
}

// ColumnList returns [AuthSessionTable.Columns] joined for a SELECT or INSERT clause.
func (t AuthSessionTable) ColumnList() string {
	return strings.Join(t.Columns(), ", ")
}
