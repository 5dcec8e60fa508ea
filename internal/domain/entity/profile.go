package entity

// Profile is the display data of a user, owned by the profile service.
type Profile struct {
	ID        string `json:"id" firestore:"id"`
	Name      string `json:"name" firestore:"name"`
	AvatarURL string `json:"avatar,omitempty" firestore:"avatarUrl"`
}
