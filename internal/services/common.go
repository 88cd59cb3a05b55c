package services

import (
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/localnerve/gestionale/internal/types"
	"gorm.io/gorm"
)

const (
	defaultLimit = 100
	maxLimit     = 500
)

// Page is an offset window over a listing
type Page struct {
	Skip  int
	Limit int
}

// Normalize clamps the window to sane values, using def when no limit was given
func (p Page) Normalize(def int) Page {
	if p.Skip < 0 {
		p.Skip = 0
	}
	if def <= 0 {
		def = defaultLimit
	}
	if p.Limit <= 0 {
		p.Limit = def
	}
	if p.Limit > maxLimit {
		p.Limit = maxLimit
	}
	return p
}

func (p Page) scope(def int) func(*gorm.DB) *gorm.DB {
	n := p.Normalize(def)
	return func(db *gorm.DB) *gorm.DB {
		return db.Offset(n.Skip).Limit(n.Limit)
	}
}

// NewShareToken returns 64 hex characters drawn from two random UUIDs
func NewShareToken() string {
	return strings.ReplaceAll(uuid.NewString()+uuid.NewString(), "-", "")
}

// storeError maps a store failure onto the error taxonomy. A missing row becomes
// NotFound(resource); a unique index violation becomes Conflict.
func storeError(err error, resource string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return types.NotFound(resource)
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return types.Conflict("%s already exists", resource)
	}
	if isKind(err) {
		return err
	}
	return types.Dependency(err)
}

func isKind(err error) bool {
	for _, k := range []error{
		types.ErrUnauthenticated, types.ErrForbidden, types.ErrNotFound,
		types.ErrConflict, types.ErrValidation, types.ErrDependency,
	} {
		if errors.Is(err, k) {
			return true
		}
	}
	return false
}
