package authclient

import (
	"context"
	"net/http"
	"time"

	"github.com/SwissDataScienceCenter/plantcare-gateway/internal/credentials"
)

const authorizationHeader string = "Authorization"

// dispatcher sends single attempts of a pending request, with the current access token attached
type dispatcher struct {
	store          credentials.Store
	next           http.RoundTripper
	requestTimeout time.Duration
}

// dispatch sends one attempt of p. When token is empty the access token is read from the store.
// A request is sent without any Authorization header, also one set by the caller, when there is
// no token at all.
func (d *dispatcher) dispatch(p *pendingRequest, token string) (*http.Response, error) {
	ctx := p.original.Context()
	if token == "" {
		creds, err := d.store.Get(ctx)
		if err != nil {
			return nil, err
		}
		token = creds.AccessToken
	}
	var cancel context.CancelFunc = func() {}
	if d.requestTimeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, d.requestTimeout)
	}
	req := p.attempt(ctx)
	if token != "" {
		req.Header.Set(authorizationHeader, "Bearer "+token)
	} else {
		req.Header.Del(authorizationHeader)
	}
	p.sentToken = token
	resp, err := d.next.RoundTrip(req)
	if err != nil {
		cancel()
		return nil, err
	}
	resp.Body = cancelOnCloseBody{ReadCloser: resp.Body, cancel: cancel}
	return resp, nil
}
