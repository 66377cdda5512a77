package models

import "time"

type User struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	ProfileImage *string
	PhoneNumber  *string
	CountryCode  *string
	UniqueLink   string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Profile is the user representation exposed over the API. It never carries
// the password hash.
type Profile struct {
	ID           int64   `json:"id"`
	Username     string  `json:"username"`
	Email        string  `json:"email"`
	ProfileImage *string `json:"profile_image"`
	PhoneNumber  *string `json:"phone_number"`
	CountryCode  *string `json:"country_code"`
	UniqueLink   string  `json:"unique_link"`
}

func (u *User) Profile() Profile {
	return Profile{
		ID:           u.ID,
		Username:     u.Username,
		Email:        u.Email,
		ProfileImage: u.ProfileImage,
		PhoneNumber:  u.PhoneNumber,
		CountryCode:  u.CountryCode,
		UniqueLink:   u.UniqueLink,
	}
}

type ProfileUpdate struct {
	ProfileImage *string `json:"profile_image"`
	PhoneNumber  *string `json:"phone_number"`
	CountryCode  *string `json:"country_code"`
}
