// Package guard evaluates client navigation attempts against the caller's
// authentication state. The decision function is pure: callers resolve auth
// state first (a readiness gate outside this package) and the guard only
// applies the rule table.
package guard

// Well-known client routes.
const (
	RouteLogin       = "/login"
	RouteRegister    = "/register"
	RouteVerified    = "/verified"
	RouteVerifyEmail = "/verify-email"
	RouteProfile     = "/profile"
	RoutePlayer      = "/player"
	RouteLeaderboard = "/leaderboard"
	RouteAdmin       = "/admin"
)

var publicRoutes = map[string]struct{}{
	RouteLogin:       {},
	RouteRegister:    {},
	RouteVerified:    {},
	RouteVerifyEmail: {},
}

var adminRoutes = map[string]struct{}{
	RouteAdmin:         {},
	"/analytics":       {},
	"/user-management": {},
}

// State is the caller's resolved auth state at evaluation time.
type State struct {
	Authenticated bool
	EmailVerified bool
	IsAdmin       bool
}

// Decision is the guard verdict for one navigation attempt.
type Decision struct {
	Allow      bool   `json:"allow"`
	RedirectTo string `json:"redirect_to,omitempty"`
}

func allow() Decision             { return Decision{Allow: true} }
func redirect(to string) Decision { return Decision{RedirectTo: to} }

// Decide applies the rule table in order, first match wins, and always
// produces a decision. The default when no rule matches is allow.
func Decide(s State, target string) Decision {
	_, public := publicRoutes[target]
	_, admin := adminRoutes[target]

	// 1. Signed in but unverified: everything non-public funnels to
	//    verification.
	if s.Authenticated && !s.EmailVerified && !public {
		return redirect(RouteVerifyEmail)
	}

	// 2. Signed-in users have no business on login/register pages.
	if public && s.Authenticated {
		return redirect(RouteProfile)
	}

	// 3. Anonymous users only get the public set.
	if !s.Authenticated && !public {
		return redirect(RouteLogin)
	}

	// 4. Admin surface requires the admin claim.
	if admin && !s.IsAdmin {
		return redirect(RoutePlayer)
	}

	// 5. Leaderboard requires a session. Unreachable after rule 3, kept as
	//    explicit defense.
	if target == RouteLeaderboard && !s.Authenticated {
		return redirect(RouteLogin)
	}

	return allow()
}
