package dto

// IssueTokenRequest mints an access token for local testing.
type IssueTokenRequest struct {
	UserID string `json:"userId" validate:"required"`
	Role   string `json:"role" validate:"required,oneof=ADMIN REGISTRY FINANCE LIBRARY ACADEMIC STUDENT"`
	Name   string `json:"name"`
	Email  string `json:"email" validate:"omitempty,email"`
	StdNo  *int64 `json:"stdNo,omitempty"`
}

// IssueTokenResponse carries a minted token.
type IssueTokenResponse struct {
	AccessToken string `json:"accessToken"`
	ExpiresAt   string `json:"expiresAt"`
}
