package platform

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Result is the normalized outcome of one publish attempt on one
// platform. Adapter failures are carried here, never panicked or
// propagated as Go errors, so one platform can never abort another.
type Result struct {
	Success bool   `json:"success"`
	PostID  string `json:"post_id,omitempty"`
	Kind    string `json:"type,omitempty"`
	Err     string `json:"error,omitempty"`
}

func ok(postID, kind string) Result {
	return Result{Success: true, PostID: postID, Kind: kind}
}

func fail(msg string) Result {
	return Result{Success: false, Err: msg}
}

// Credentials identify one destination account on a platform.
type Credentials struct {
	AccessToken string
	AccountID   string
}

// Empty reports whether no usable credentials resolved.
func (c Credentials) Empty() bool { return c.AccessToken == "" }

// Adapter translates normalized publish requests into one platform's
// API calls. Implementations must honor ctx and never panic.
type Adapter interface {
	Name() string
	PostImage(ctx context.Context, creds Credentials, imageURL, caption string) Result
	PostCarousel(ctx context.Context, creds Credentials, imageURLs []string, caption string) Result
	PostVideo(ctx context.Context, creds Credentials, videoURL, caption string) Result
	PostStory(ctx context.Context, creds Credentials, imageURL string) Result
	PostText(ctx context.Context, creds Credentials, text string) Result
}

// Registry maps base platform names to adapters.
type Registry map[string]Adapter

// NewRegistry builds the production adapter set.
func NewRegistry(log *zap.Logger) Registry {
	client := &http.Client{Timeout: 30 * time.Second}
	return Registry{
		"instagram": NewInstagram(client, log),
		"facebook":  NewFacebook(client, log),
		"linkedin":  NewLinkedIn(client, log),
	}
}
