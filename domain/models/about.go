package models

// About describes the remote server. A non-empty Version means the
// server is reachable and the credentials are accepted.
type About struct {
	Version    string `json:"version"`
	APIVersion string `json:"api_version,omitempty"`
	OS         string `json:"os"`
}

func (a *About) ObjectType() ObjectType { return TypeAbout }

// Connected reports whether the server answered with a version.
func (a *About) Connected() bool {
	return a != nil && a.Version != ""
}

// Preferences holds the user-level server settings this adapter needs.
type Preferences struct {
	DefaultCurrency Currency `json:"default_currency"`
	// FiscalYearStart is YYYY-MM-DD.
	FiscalYearStart string `json:"fiscal_year_start"`
}

func (p *Preferences) ObjectType() ObjectType { return TypePreferences }

// Suggestion is an autocomplete entry offered while configuring filters.
type Suggestion struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Label string `json:"label"`
	Type  string `json:"type,omitempty"`
}
