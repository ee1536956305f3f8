package models

// StatusResponse is the API's generic mutation envelope.
type StatusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// OK reports whether the envelope signals success.
func (r StatusResponse) OK() bool {
	return r.Status == "success" || r.Status == "ok"
}

// AuthResponse is the envelope returned by login, register, confirm-email
// and profile-setup. On failure Message and Errors describe the rejection.
type AuthResponse struct {
	Status  string              `json:"status"`
	Token   string              `json:"token,omitempty"`
	Message string              `json:"message,omitempty"`
	Errors  map[string][]string `json:"errors,omitempty"`
	User    *User               `json:"user,omitempty"`
}

// ProfileResponse wraps profile mutations that return the updated user.
type ProfileResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	User    *User  `json:"user,omitempty"`
}
