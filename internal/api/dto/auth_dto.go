package dto

import "time"

// HelperLoginRequest payload.
type HelperLoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// HelperLoginResponse returns the session token alongside the cookie.
type HelperLoginResponse struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}
