package handler

import (
	"time"

	"github.com/hactazia/reileta/internal/core/domain"
)

// UserView is the wire form of a user.
type UserView struct {
	ID        string   `json:"id"`
	Username  string   `json:"username"`
	Display   string   `json:"display,omitempty"`
	Server    string   `json:"server"`
	Tags      []string `json:"tags"`
	Home      string   `json:"home,omitempty"`
	Thumbnail string   `json:"thumbnail,omitempty"`
	Banner    string   `json:"banner,omitempty"`
}

func viewUser(u *domain.User, self string) UserView {
	server := u.Server
	if u.Internal || server == "" {
		server = self
	}
	tags := u.Tags
	if tags == nil {
		tags = []string{}
	}
	return UserView{
		ID:        u.ID,
		Username:  u.Username,
		Display:   u.Display,
		Server:    server,
		Tags:      tags,
		Home:      u.Home,
		Thumbnail: u.Thumbnail,
		Banner:    u.Banner,
	}
}

// WorldView is the wire form of a world.
type WorldView struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Owner       string   `json:"owner,omitempty"`
	Server      string   `json:"server"`
	Tags        []string `json:"tags"`
	Version     string   `json:"version,omitempty"`
	Capacity    int      `json:"capacity,omitempty"`
	Thumbnail   string   `json:"thumbnail,omitempty"`
}

func viewWorld(w *domain.World, self string) WorldView {
	server := w.Server
	if w.Internal || server == "" {
		server = self
	}
	tags := w.Tags
	if tags == nil {
		tags = []string{}
	}
	return WorldView{
		ID:          w.ID,
		Title:       w.Title,
		Description: w.Description,
		Owner:       w.OwnerIDs,
		Server:      server,
		Tags:        tags,
		Version:     w.Version,
		Capacity:    w.Capacity,
		Thumbnail:   w.Thumbnail,
	}
}

// InstanceView is the wire form of an instance.
type InstanceView struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Title       string   `json:"title,omitempty"`
	Description string   `json:"description,omitempty"`
	Owner       string   `json:"owner,omitempty"`
	World       string   `json:"world"`
	Server      string   `json:"server"`
	Capacity    int      `json:"capacity"`
	Tags        []string `json:"tags"`
}

func viewInstance(i *domain.Instance, self string) InstanceView {
	server := i.Server
	if i.Internal || server == "" {
		server = self
	}
	tags := i.Tags
	if tags == nil {
		tags = []string{}
	}
	return InstanceView{
		ID:          i.ID,
		Name:        i.Name,
		Title:       i.Title,
		Description: i.Description,
		Owner:       i.OwnerIDs,
		World:       i.WorldIDs,
		Server:      server,
		Capacity:    i.EffectiveCapacity(),
		Tags:        tags,
	}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	User      UserView  `json:"user"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

type registerRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Display  string `json:"display"`
}

type createInstanceRequest struct {
	World    string   `json:"world"`
	Name     string   `json:"name"`
	Title    string   `json:"title"`
	Capacity int      `json:"capacity"`
	Tags     []string `json:"tags"`
}

type createWorldRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Capacity    int      `json:"capacity"`
	Tags        []string `json:"tags"`
}

// makeIntegrityRequest is the peer-facing issue request.
type makeIntegrityRequest struct {
	User string `json:"user"`
}

// requestIntegrityRequest is the user-facing request to obtain a
// grant on a foreign server.
type requestIntegrityRequest struct {
	Server string `json:"server"`
}
