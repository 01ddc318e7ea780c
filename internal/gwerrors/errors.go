// Package gwerrors contains all common errors used by the gateway and the authenticated client.
package gwerrors

import "fmt"

var ErrSessionParse = fmt.Errorf("cannot parse session from context")
var ErrSessionNotFound = fmt.Errorf("cannot find the session")
var ErrSessionExpired = fmt.Errorf("the session is expired")
var ErrNotFound = fmt.Errorf("the requested resource cannot be found")
var ErrMissingCredentials = fmt.Errorf("the required credentials cannot be found")
var ErrMissingDBResource = fmt.Errorf("the requested resource cannot be found in the DB")
var ErrRefreshFailed = fmt.Errorf("the credentials could not be refreshed")
var ErrRefreshTokenNotRotated = fmt.Errorf("the refresh endpoint did not return a new refresh token")
var ErrInvalidCredentialsResponse = fmt.Errorf("the credential endpoint returned an invalid response")
