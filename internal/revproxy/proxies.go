package revproxy

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/SwissDataScienceCenter/plantcare-gateway/internal/utils"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// loginRedirect is the body sent to script clients whose session was ended
type loginRedirect struct {
	Redirect string `json:"redirect"`
}

// proxy forwards requests to the backend, sending them through the authenticated client
// attached by sessionClient
func (r *Revproxy) proxy() echo.MiddlewareFunc {
	mwconfig := middleware.ProxyConfig{
		Balancer: middleware.NewRoundRobinBalancer([]*middleware.ProxyTarget{
			{
				Name: r.config.URL.String(),
				URL:  r.config.URL,
			}}),
		Transport:      sessionTransport{fallback: http.DefaultTransport},
		ModifyResponse: r.modifyResponse,
	}
	return middleware.ProxyWithConfig(mwconfig)
}

// sessionTransport dispatches each proxied request to the transport of its session's client
type sessionTransport struct {
	fallback http.RoundTripper
}

func (t sessionTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	state := stateFromContext(req.Context())
	if state == nil || state.client == nil {
		return t.fallback.RoundTrip(req)
	}
	return state.client.Transport().RoundTrip(req)
}

// modifyResponse turns the final rejection of a request whose session was just ended into a
// redirect to the login page
func (r *Revproxy) modifyResponse(res *http.Response) error {
	if res.StatusCode != http.StatusUnauthorized || res.Request == nil {
		return nil
	}
	state := stateFromContext(res.Request.Context())
	if state == nil || state.client == nil {
		return nil
	}
	// the attempt context may already be done once the rejection was buffered
	authenticated, err := state.client.Authenticated(context.WithoutCancel(res.Request.Context()))
	if err != nil {
		return err
	}
	if authenticated {
		return nil
	}
	state.terminated = true
	if res.Body != nil {
		res.Body.Close()
	}
	header := http.Header{}
	expired := r.sessions.ExpiredCookie()
	header.Add("Set-Cookie", expired.String())
	header.Set(echo.HeaderCacheControl, "no-store")
	var body []byte
	if isNavigation(res.Request) {
		res.StatusCode = http.StatusFound
		header.Set(echo.HeaderLocation, r.loginURL(res.Request))
	} else {
		body, err = json.Marshal(loginRedirect{Redirect: r.loginPath})
		if err != nil {
			return err
		}
		header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	header.Set(echo.HeaderContentLength, strconv.Itoa(len(body)))
	res.Status = strconv.Itoa(res.StatusCode) + " " + http.StatusText(res.StatusCode)
	res.Header = header
	res.Body = io.NopCloser(bytes.NewReader(body))
	res.ContentLength = int64(len(body))
	slog.Debug(
		"REVPROXY",
		"message",
		"rewrote backend rejection into a login redirect",
		"status",
		res.StatusCode,
		"traceID",
		utils.GetTraceIDFromHTTPRequest(res.Request),
	)
	return nil
}

// loginURL points to the login page, which sends the user agent back to the page it was on
func (r *Revproxy) loginURL(req *http.Request) string {
	target := url.URL{Path: r.loginPath}
	back := r.config.APIPathPrefix + req.URL.Path
	if r.config.URL.Path != "" && r.config.URL.Path != "/" {
		back = r.config.APIPathPrefix + "/" + strings.TrimPrefix(strings.TrimPrefix(req.URL.Path, r.config.URL.Path), "/")
	}
	target.RawQuery = url.Values{"redirect_url": []string{back}}.Encode()
	return target.String()
}

// isNavigation is true for page loads, as opposed to requests made by scripts
func isNavigation(req *http.Request) bool {
	if req.Header.Get("X-Requested-With") == "XMLHttpRequest" {
		return false
	}
	if mode := req.Header.Get("Sec-Fetch-Mode"); mode != "" {
		return mode == "navigate"
	}
	return strings.Contains(req.Header.Get(echo.HeaderAccept), echo.MIMETextHTML)
}
