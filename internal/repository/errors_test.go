package repository

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestCheckUnique(t *testing.T) {
	dup := checkUnique(&pgconn.PgError{Code: "23505", ConstraintName: "categories_name_key"})
	assert.ErrorIs(t, dup, ErrDuplicate)
	assert.Contains(t, dup.Error(), "categories_name_key")

	fk := &pgconn.PgError{Code: "23503"}
	assert.Same(t, fk, checkUnique(fk))
	assert.ErrorIs(t, checkUnique(pgx.ErrNoRows), pgx.ErrNoRows)
	assert.NoError(t, checkUnique(nil))
	assert.False(t, errors.Is(checkUnique(errors.New("boom")), ErrDuplicate))
}
