// Package directory carries the slim directory surface around the auth
// core: viewer profiles and the crafts/skills reference data. Public reads
// list accepted profiles only; every write that changes what the public
// sees (acceptance, deletion, reference data) sits behind the admin gate.
package directory

import "time"

// Profile is a viewer's public directory entry. Invisible to the public
// until an admin accepts it.
type Profile struct {
	ID        string    `json:"id"`
	ViewerID  string    `json:"viewer_id"`
	Name      string    `json:"name"`
	Craft     string    `json:"craft"`
	Location  string    `json:"location"`
	Bio       string    `json:"bio"`
	Accepted  bool      `json:"accepted"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Craft is a reference-data entry maintained by admins.
type Craft struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Skill is a reference-data entry maintained by admins.
type Skill struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// CreateProfileRequest holds the data submitted to POST /api/profile.
type CreateProfileRequest struct {
	Name     string `json:"name"`
	Craft    string `json:"craft"`
	Location string `json:"location"`
	Bio      string `json:"bio"`
}

// NameRequest holds the payload for craft/skill create and update calls.
type NameRequest struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
}
