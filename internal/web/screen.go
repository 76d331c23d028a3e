package web

// Screen names one of the app's top-level views. Navigation is a small state
// machine: every session sits on exactly one screen and moves along the
// edges below, nowhere else.
type Screen string

const (
	ScreenLogin     Screen = "LOGIN"
	ScreenDashboard Screen = "DASHBOARD"
	ScreenCalendar  Screen = "CALENDAR"
)

// Valid reports whether s names a known screen.
func (s Screen) Valid() bool {
	switch s {
	case ScreenLogin, ScreenDashboard, ScreenCalendar:
		return true
	}
	return false
}

// CanTransition reports whether a session on from may move to to.
//
// LOGIN only leads to DASHBOARD (a successful login). DASHBOARD and
// CALENDAR lead to each other. Logging out returns to LOGIN from anywhere,
// and staying put is always allowed.
func CanTransition(from, to Screen) bool {
	if !from.Valid() || !to.Valid() {
		return false
	}
	if from == to || to == ScreenLogin {
		return true
	}
	switch from {
	case ScreenLogin:
		return to == ScreenDashboard
	case ScreenDashboard:
		return to == ScreenCalendar
	case ScreenCalendar:
		return to == ScreenDashboard
	}
	return false
}
