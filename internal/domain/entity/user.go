package entity

import "strings"

type User struct {
	ID        string `json:"id" firestore:"id" yaml:"id"`
	Username  string `json:"username" firestore:"username" yaml:"username"`
	Email     string `json:"email" firestore:"email" yaml:"email"`
	FirstName string `json:"first_name" firestore:"firstName" yaml:"first_name"`
	LastName  string `json:"last_name" firestore:"lastName" yaml:"last_name"`
	Role      string `json:"role,omitempty" firestore:"role" yaml:"role"`
}

// UserProfile is the public projection of a user, also the shape of an authenticated identity.
type UserProfile struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

func (u *User) Profile() *UserProfile {
	return &UserProfile{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
	}
}

func (u *User) IsAdmin() bool {
	return u.Role == "admin"
}

// ProfileFromClaims builds an identity from standard OIDC token claims.
func ProfileFromClaims(subject string, claims map[string]interface{}) *UserProfile {
	str := func(key string) string {
		v, _ := claims[key].(string)
		return v
	}

	profile := &UserProfile{
		ID:        subject,
		Email:     str("email"),
		Username:  str("preferred_username"),
		FirstName: str("given_name"),
		LastName:  str("family_name"),
	}
	if profile.Username == "" {
		profile.Username = str("name")
	}
	if profile.Username == "" && profile.Email != "" {
		profile.Username = strings.SplitN(profile.Email, "@", 2)[0]
	}
	return profile
}
