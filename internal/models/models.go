package models

import (
	"slices"
	"time"
)

// User represents a registered account
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Bio       string    `json:"bio"`
	Following []string  `json:"following"`
	Followers []string  `json:"followers"`
	PushToken *string   `json:"push_token,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Principal is the authenticated actor of a call
type Principal struct {
	ID          string
	DisplayName string
}

// MediaRef points at the image of a photo. At most one of the fields is
// expected to be set, the first present one in Resolve order wins.
type MediaRef struct {
	ResourceID string `json:"resource_id,omitempty"`
	FilePath   string `json:"file_path,omitempty"`
	URL        string `json:"url,omitempty"`
}

// MediaSource identifies which reference a MediaRef resolved to
type MediaSource int

const (
	MediaNone MediaSource = iota
	MediaRemote
	MediaFile
	MediaResource
)

// Resolve returns the reference a client should render.
func (m MediaRef) Resolve() (MediaSource, string) {
	switch {
	case m.URL != "":
		return MediaRemote, m.URL
	case m.FilePath != "":
		return MediaFile, m.FilePath
	case m.ResourceID != "":
		return MediaResource, m.ResourceID
	default:
		return MediaNone, ""
	}
}

// Photo is a gallery entry. A photo without ID lives only in the local cache.
type Photo struct {
	ID          string    `json:"id,omitempty"`
	AuthorID    string    `json:"author_id,omitempty"`
	AuthorName  string    `json:"author_name,omitempty"`
	Media       MediaRef  `json:"media"`
	Description string    `json:"description,omitempty"`
	LikeCount   int       `json:"like_count"`
	LikedBy     []string  `json:"liked_by"`
	CreatedAt   time.Time `json:"created_at"`
}

// IsLegacy reports whether the photo has no remote record.
func (p *Photo) IsLegacy() bool {
	return p.ID == ""
}

// IsAuthor reports whether userID authored the photo. Photos without an
// author have no author.
func (p *Photo) IsAuthor(userID string) bool {
	return p.AuthorID != "" && p.AuthorID == userID
}

// IsLikedBy reports whether username is in the liker set.
func (p *Photo) IsLikedBy(username string) bool {
	return slices.Contains(p.LikedBy, username)
}

// SetLiked adds or removes username from the liker set and moves the
// counter with it. The counter never drops below zero. It returns false
// when the membership already matched.
func (p *Photo) SetLiked(username string, liked bool) bool {
	if p.IsLikedBy(username) == liked {
		return false
	}
	if liked {
		p.LikedBy = append(p.LikedBy, username)
		p.LikeCount++
		return true
	}
	p.LikedBy = slices.DeleteFunc(p.LikedBy, func(u string) bool { return u == username })
	if p.LikeCount > 0 {
		p.LikeCount--
	}
	return true
}

// Normalize removes duplicate likers after a load. Each dropped duplicate
// takes one from the counter, which never goes below zero. A nil liker set
// stays nil.
func (p *Photo) Normalize() {
	seen := make(map[string]struct{}, len(p.LikedBy))
	dropped := 0
	if p.LikedBy != nil {
		p.LikedBy = slices.DeleteFunc(p.LikedBy, func(u string) bool {
			if _, ok := seen[u]; ok {
				dropped++
				return true
			}
			seen[u] = struct{}{}
			return false
		})
	}
	p.LikeCount = max(p.LikeCount-dropped, 0)
}

// Gallery is the ordered photo list a user keeps on the device
type Gallery struct {
	OwnerID string   `json:"owner_id"`
	Photos  []*Photo `json:"photos"`
}

// Index returns the position of p in the gallery or -1.
func (g *Gallery) Index(p *Photo) int {
	return slices.Index(g.Photos, p)
}

// Remove drops p from the gallery.
func (g *Gallery) Remove(p *Photo) bool {
	i := g.Index(p)
	if i < 0 {
		return false
	}
	g.Photos = slices.Delete(g.Photos, i, i+1)
	return true
}

// Move relocates the photo at from to position to.
func (g *Gallery) Move(from, to int) bool {
	if from < 0 || from >= len(g.Photos) || to < 0 || to >= len(g.Photos) {
		return false
	}
	p := g.Photos[from]
	g.Photos = slices.Delete(g.Photos, from, from+1)
	g.Photos = slices.Insert(g.Photos, to, p)
	return true
}

// SamplePhotos returns the bundled photos a new gallery starts with.
func SamplePhotos(now time.Time) []*Photo {
	samples := []struct{ res, desc string }{
		{"sample_photo_1", "My first photo"},
		{"sample_photo_2", "Another cute cat"},
		{"sample_photo_3", ""},
		{"sample_photo_4", "Just chillin'"},
	}
	out := make([]*Photo, 0, len(samples))
	for _, s := range samples {
		out = append(out, &Photo{
			Media:       MediaRef{ResourceID: s.res},
			Description: s.desc,
			LikedBy:     []string{},
			CreatedAt:   now,
		})
	}
	return out
}
