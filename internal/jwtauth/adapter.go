package jwtauth

import (
	"tradeledger/internal/platform/middleware"
)

// MiddlewareAdapter narrows Service to what the auth middleware needs.
type MiddlewareAdapter struct {
	service *Service
}

func NewMiddlewareAdapter(service *Service) *MiddlewareAdapter {
	return &MiddlewareAdapter{service: service}
}

func (a *MiddlewareAdapter) ValidateToken(tokenString string) (*middleware.Claims, error) {
	claims, err := a.service.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	return &middleware.Claims{Sender: claims.Sender}, nil
}
