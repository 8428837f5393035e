package jwttoken

import (
	authmw "cinregistry/pkg/platform/middleware/auth"
)

// Validator exposes a JWTService as the auth middleware's JWTValidator.
type Validator struct {
	service *JWTService
}

func NewJWTServiceAdapter(service *JWTService) *Validator {
	return &Validator{service: service}
}

func (v *Validator) ValidateToken(tokenString string) (*authmw.JWTClaims, error) {
	claims, err := v.service.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	return &authmw.JWTClaims{Actor: claims.Actor, TokenID: claims.ID}, nil
}
