package models

import "time"

// SocialIdentity is the profile a provider vouches for after the OAuth
// handshake. It is never stored, only used to find or create a User.
type SocialIdentity struct {
	Provider      string `json:"provider"`
	Subject       string `json:"sub"`
	Name          string `json:"name"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
}

// GoogleUser is the subset of Google id_token claims the service reads.
type GoogleUser struct {
	Sub           string `json:"sub"`
	Name          string `json:"name"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
}

func (g GoogleUser) Identity() SocialIdentity {
	return SocialIdentity{Provider: "google", Subject: g.Sub, Name: g.Name, Email: g.Email, EmailVerified: g.EmailVerified}
}

// YandexUser is the Yandex ID user-info payload.
type YandexUser struct {
	ID           string `json:"id"`
	Login        string `json:"login"`
	RealName     string `json:"real_name"`
	DefaultEmail string `json:"default_email"`
}

// Identity maps the payload. Yandex only returns addresses it has confirmed,
// so a present default_email counts as verified.
func (y YandexUser) Identity() SocialIdentity {
	name := y.Login
	if name == "" {
		name = y.RealName
	}
	return SocialIdentity{Provider: "yandex", Subject: y.ID, Name: name, Email: y.DefaultEmail, EmailVerified: y.DefaultEmail != ""}
}

// ActionEntry is one row of a user's action history.
type ActionEntry struct {
	ID         string    `bson:"_id" json:"id"`
	UserID     string    `bson:"userId" json:"user_id"`
	Action     string    `bson:"action" json:"action"`
	DeviceInfo string    `bson:"deviceInfo" json:"device_info"`
	CreatedAt  time.Time `bson:"createdAt" json:"created_at"`
}
