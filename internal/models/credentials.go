package models

// ProviderCredentials stores static auth material for one provider.
// Values come from configuration and are immutable after construction.
type ProviderCredentials struct {
	Provider     string `json:"provider"`
	BaseURL      string `json:"base_url"`
	APIKey       string `json:"api_key,omitempty"`
	ClientID     string `json:"client_id,omitempty"`
	ClientSecret string `json:"client_secret,omitempty"`
	RedirectURI  string `json:"redirect_uri,omitempty"`
	UserAgent    string `json:"user_agent,omitempty"`
}

// HasAPIKey reports whether key-based auth is configured.
func (c ProviderCredentials) HasAPIKey() bool {
	return c.APIKey != ""
}

// HasOAuthClient reports whether delegated auth is configured.
func (c ProviderCredentials) HasOAuthClient() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}
