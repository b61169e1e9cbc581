package model

import "context"

// Role identifiers seeded by the migrations.
const (
	RoleEditor = 1
	RoleViewer = 2
)

// Role is a named permission set.
type Role struct {
	Name string
	ID   int
}

// RoleStore looks up role master data.
type RoleStore interface {
	GetByID(ctx context.Context, id int) (Role, error)
}
