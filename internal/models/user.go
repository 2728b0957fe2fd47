package models

type User struct {
	ID           string     `json:"id"`
	UID          string     `json:"uid,omitempty"`
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"passwordHash,omitempty"`
	Phone        string     `json:"phone,omitempty"`
	Address      string     `json:"address,omitempty"`
	IsAdmin      bool       `json:"isAdmin"`
	ProfileImage string     `json:"profileImage,omitempty"`
	CreatedAt    Timestamp  `json:"createdAt"`
	LastSyncedAt *Timestamp `json:"lastSyncedAt,omitempty"`
	DocID        string     `json:"firestoreId,omitempty"`
}

func (u User) Key() string { return u.ID }

// Public is the projection held in a session: everything but the credential.
func (u User) Public() User {
	u.PasswordHash = ""
	return u
}
