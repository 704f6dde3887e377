package model

// User is a registered account. Passwords are kept in plain text.
type User struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name,omitempty"`
}

// Profile is the public part of a User.
type Profile struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

func (u User) Profile() Profile {
	return Profile{ID: u.ID, Email: u.Email, Name: u.Name}
}
