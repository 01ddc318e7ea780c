package authclient

import (
	"fmt"

	"github.com/SwissDataScienceCenter/plantcare-gateway/internal/config"
	"github.com/SwissDataScienceCenter/plantcare-gateway/internal/gwerrors"
	"github.com/SwissDataScienceCenter/plantcare-gateway/internal/models"
)

// RotationPolicy decides what happens to the stored refresh token after a successful refresh
type RotationPolicy string

const (
	// RotationAuto keeps the rotated refresh token when the endpoint returns one, the old one otherwise
	RotationAuto RotationPolicy = RotationPolicy(config.RotationAuto)
	// RotationNever always keeps the stored refresh token
	RotationNever RotationPolicy = RotationPolicy(config.RotationNever)
	// RotationAlways requires the endpoint to return a new refresh token on every refresh
	RotationAlways RotationPolicy = RotationPolicy(config.RotationAlways)
)

func ParseRotationPolicy(value string) (RotationPolicy, error) {
	switch policy := RotationPolicy(value); policy {
	case RotationAuto, RotationNever, RotationAlways:
		return policy, nil
	case "":
		return RotationAuto, nil
	default:
		return "", fmt.Errorf("unknown refresh token rotation policy %q", value)
	}
}

// apply computes the credentials to store after the refresh endpoint returned pair
func (r RotationPolicy) apply(current models.Credentials, pair models.TokenPair) (models.Credentials, error) {
	if pair.AccessToken == "" {
		return models.Credentials{}, gwerrors.ErrInvalidCredentialsResponse
	}
	next := models.Credentials{AccessToken: pair.AccessToken, RefreshToken: current.RefreshToken}
	switch r {
	case RotationNever:
	case RotationAlways:
		if pair.RefreshToken == "" || pair.RefreshToken == current.RefreshToken {
			return models.Credentials{}, gwerrors.ErrRefreshTokenNotRotated
		}
		next.RefreshToken = pair.RefreshToken
	default:
		if pair.RefreshToken != "" {
			next.RefreshToken = pair.RefreshToken
		}
	}
	return next, nil
}
