package model

import (
	"time"

	"bengkel/shared/model"
)

const (
	TableName  = "dealers"
	EntityName = "dealer"

	FieldID        = "id"
	FieldName      = "name"
	FieldUsername  = "username"
	FieldPassword  = "password"
	FieldAddress   = "address"
	FieldActive    = "active"
	FieldLastLogin = "last_login"
)

type Dealer struct {
	ID        string     `db:"id"`
	Name      string     `db:"name"`
	Username  string     `db:"username"`
	Password  string     `db:"password"`
	Address   *string    `db:"address"`
	Active    bool       `db:"active"`
	LastLogin *time.Time `db:"last_login"`
	model.Metadata
}
