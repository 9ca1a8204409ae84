package contracts

// LoginUser is the payload for the login-user pattern.
type LoginUser struct {
	UsernameOrEmail string `json:"usernameOrEmail"`
	Password        string `json:"password"`
}

// RegisterUser is the payload for the register-user pattern.
type RegisterUser struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// UpdateUser is the payload for the update-user pattern. Optional fields
// are left untouched when nil.
type UpdateUser struct {
	ID       int64   `json:"id"`
	Email    *string `json:"email,omitempty"`
	Username *string `json:"username,omitempty"`
	Password *string `json:"password,omitempty"`
}

// RefreshToken is the payload for the refresh-token pattern.
type RefreshToken struct {
	RefreshToken string `json:"refreshToken"`
}

// AuthResponse is the reply for login-user, register-user and refresh-token.
type AuthResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    string `json:"expiresIn"`
}

// ListedUser is one element of the find-all-users reply.
type ListedUser struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

// MessageResponse is the generic {message} reply shape.
type MessageResponse struct {
	Message string `json:"message"`
}
