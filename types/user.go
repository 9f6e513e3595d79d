package types

type User struct {
	ID          string  `json:"id"`
	DisplayName string  `json:"displayName"`
	Handle      string  `json:"handle"`
	AvatarURL   *string `json:"avatarUrl"`
	Verified    bool    `json:"verified"`
}
