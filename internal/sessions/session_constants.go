package sessions

// Note the UI may depend on some of these values, changing them will cause breaking changes
const (
	SessionCookieName = "_plantcare_session"
	SessionCtxKey     = "plantcare_session"
)
