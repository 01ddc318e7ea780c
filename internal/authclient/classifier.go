package authclient

import (
	"net/http"
	"strings"
)

type disposition int

const (
	passThrough disposition = iota
	refreshAndRetry
)

func (d disposition) String() string {
	switch d {
	case refreshAndRetry:
		return "refreshAndRetry"
	default:
		return "passThrough"
	}
}

// classifier decides whether the outcome of an attempt should trigger a refresh
type classifier struct {
	unauthorizedStatus int
	// paths of the endpoints that issue credentials, they never trigger a refresh
	credentialPaths []string
}

func (c classifier) classify(p *pendingRequest, resp *http.Response, err error) disposition {
	if err != nil || resp == nil {
		return passThrough
	}
	if resp.StatusCode != c.unauthorizedStatus {
		return passThrough
	}
	if c.isCredentialEndpoint(p.original) {
		return passThrough
	}
	if p.alreadyRetried {
		return passThrough
	}
	return refreshAndRetry
}

func (c classifier) isCredentialEndpoint(req *http.Request) bool {
	path := strings.TrimSuffix(req.URL.Path, "/")
	for _, credentialPath := range c.credentialPaths {
		if path == strings.TrimSuffix(credentialPath, "/") {
			return true
		}
	}
	return false
}
