package token

import (
	"velum/internal/platform/middleware"
)

// Adapter narrows the token service to the claim set the auth middleware
// consumes.
type Adapter struct {
	service *Service
}

func NewAdapter(service *Service) *Adapter {
	return &Adapter{service: service}
}

func (a *Adapter) ValidateToken(tokenString string) (*middleware.JWTClaims, error) {
	claims, err := a.service.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	return &middleware.JWTClaims{
		Subject: claims.Subject,
		Role:    claims.Role,
	}, nil
}
