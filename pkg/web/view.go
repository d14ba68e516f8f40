package web

import (
	"net/http"
	"time"
)

// cookie names for the persisted view preferences.
const (
	themeCookie   = "dealdesk_theme"
	sidebarCookie = "dealdesk_sidebar"
)

// ViewState is the presentation state of the dashboard page. it is owned by the page,
// never by the form store.
type ViewState struct {
	DarkMode    bool
	SidebarOpen bool
	// ThemeExplicit is false when neither the query nor a cookie chose a theme; the page
	// then follows the browser's prefers-color-scheme.
	ThemeExplicit bool
}

// Theme returns "dark" or "light".
func (v ViewState) Theme() string {
	if v.DarkMode {
		return "dark"
	}
	return "light"
}

// viewStateFrom reads the view state from ?theme=dark|light and ?sidebar=open|closed, falling back
// to cookies and then to the defaults. query values are persisted as cookies on w.
func viewStateFrom(w http.ResponseWriter, r *http.Request, darkDefault bool) ViewState {
	v := ViewState{DarkMode: darkDefault, SidebarOpen: true}

	theme := r.URL.Query().Get("theme")
	if theme == "dark" || theme == "light" {
		setPrefCookie(w, themeCookie, theme)
	} else if c, err := r.Cookie(themeCookie); err == nil && theme == "" {
		theme = c.Value
	}
	switch theme {
	case "dark":
		v.DarkMode, v.ThemeExplicit = true, true
	case "light":
		v.DarkMode, v.ThemeExplicit = false, true
	}

	sidebar := r.URL.Query().Get("sidebar")
	if sidebar == "open" || sidebar == "closed" {
		setPrefCookie(w, sidebarCookie, sidebar)
	} else if c, err := r.Cookie(sidebarCookie); err == nil && sidebar == "" {
		sidebar = c.Value
	}
	if sidebar == "closed" {
		v.SidebarOpen = false
	}
	return v
}

func setPrefCookie(w http.ResponseWriter, name, value string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int((365 * 24 * time.Hour).Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
