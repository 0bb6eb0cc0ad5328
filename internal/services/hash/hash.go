package hash

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

var ErrFailedToHashPassword = errors.New("failed to hash password")

type HashService struct {
	cost  int
	dummy []byte
}

// NewHashService returns a bcrypt hasher. A cost outside bcrypt's accepted
// range falls back to bcrypt.DefaultCost.
func NewHashService(cost int) *HashService {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	dummy, _ := bcrypt.GenerateFromPassword([]byte("finance-service-dummy"), cost)
	return &HashService{
		cost:  cost,
		dummy: dummy,
	}
}

func (hs *HashService) HashPassword(password string) ([]byte, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), hs.cost)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFailedToHashPassword, err)
	}
	return hash, nil
}

func (hs *HashService) CheckPasswordHash(password string, hash []byte) bool {
	return bcrypt.CompareHashAndPassword(hash, []byte(password)) == nil
}

// BurnCompare spends the same time as a real comparison. Login calls it when
// no user matches so response timing does not reveal which emails exist.
func (hs *HashService) BurnCompare(password string) {
	_ = bcrypt.CompareHashAndPassword(hs.dummy, []byte(password))
}
