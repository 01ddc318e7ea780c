package authclient

import (
	"bytes"
	"context"
	"io"
	"net/http"
)

// pendingRequest is one logical call made through the transport. The body is buffered once
// so that the call can be sent again after a refresh.
type pendingRequest struct {
	original *http.Request
	body     []byte
	hasBody  bool
	// token sent with the most recent attempt, empty when none was attached
	sentToken      string
	alreadyRetried bool
}

func newPendingRequest(req *http.Request) (*pendingRequest, error) {
	p := &pendingRequest{original: req}
	if req.Body == nil || req.Body == http.NoBody {
		return p, nil
	}
	defer req.Body.Close()
	buf, err := io.ReadAll(req.Body)
	if err != nil {
		return nil, err
	}
	p.body = buf
	p.hasBody = true
	return p, nil
}

// attempt returns a fresh copy of the original request bound to ctx
func (p *pendingRequest) attempt(ctx context.Context) *http.Request {
	req := p.original.Clone(ctx)
	if !p.hasBody {
		return req
	}
	req.Body = io.NopCloser(bytes.NewReader(p.body))
	req.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(p.body)), nil
	}
	req.ContentLength = int64(len(p.body))
	return req
}

// cancelOnCloseBody releases the per-attempt deadline once the caller is done with the response
type cancelOnCloseBody struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (b cancelOnCloseBody) Close() error {
	err := b.ReadCloser.Close()
	b.cancel()
	return err
}

// bufferResponse reads the whole body of resp so that the response can still be handed to the
// caller after other calls were made. The original body is closed.
func bufferResponse(resp *http.Response) (*http.Response, error) {
	if resp.Body == nil {
		return resp, nil
	}
	defer resp.Body.Close()
	buf, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	resp.Body = io.NopCloser(bytes.NewReader(buf))
	return resp, nil
}
