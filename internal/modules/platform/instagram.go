package platform

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	reelPollAttempts = 30
	reelPollDelay    = 2 * time.Second
)

// Instagram publishes via the Graph API container create + publish flow.
type Instagram struct {
	client *http.Client
	log    *zap.Logger
}

func NewInstagram(client *http.Client, log *zap.Logger) *Instagram {
	return &Instagram{client: client, log: log.Named("instagram")}
}

func (ig *Instagram) Name() string { return "instagram" }

func (ig *Instagram) PostImage(ctx context.Context, creds Credentials, imageURL, caption string) Result {
	containerID, errMsg := ig.createContainer(ctx, creds, url.Values{
		"image_url": {imageURL},
		"caption":   {caption},
	}, "failed to create media container")
	if errMsg != "" {
		return fail(errMsg)
	}
	return ig.publish(ctx, creds, containerID, "image")
}

func (ig *Instagram) PostCarousel(ctx context.Context, creds Credentials, imageURLs []string, caption string) Result {
	children := make([]string, 0, len(imageURLs))
	for _, u := range imageURLs {
		id, errMsg := ig.createContainer(ctx, creds, url.Values{
			"image_url":        {u},
			"is_carousel_item": {"true"},
		}, "failed to create carousel item")
		if errMsg != "" {
			return fail("failed to create carousel item: " + errMsg)
		}
		children = append(children, id)
	}

	containerID, errMsg := ig.createContainer(ctx, creds, url.Values{
		"media_type": {"CAROUSEL"},
		"children":   {strings.Join(children, ",")},
		"caption":    {caption},
	}, "failed to create carousel")
	if errMsg != "" {
		return fail(errMsg)
	}
	return ig.publish(ctx, creds, containerID, "carousel")
}

func (ig *Instagram) PostStory(ctx context.Context, creds Credentials, imageURL string) Result {
	containerID, errMsg := ig.createContainer(ctx, creds, url.Values{
		"image_url":  {imageURL},
		"media_type": {"STORIES"},
	}, "failed to create story")
	if errMsg != "" {
		return fail(errMsg)
	}
	return ig.publish(ctx, creds, containerID, "story")
}

// PostVideo publishes a reel. The Graph API processes video
// asynchronously, so the container is polled until FINISHED.
func (ig *Instagram) PostVideo(ctx context.Context, creds Credentials, videoURL, caption string) Result {
	containerID, errMsg := ig.createContainer(ctx, creds, url.Values{
		"video_url":  {videoURL},
		"media_type": {"REELS"},
		"caption":    {caption},
	}, "failed to create reel")
	if errMsg != "" {
		return fail(errMsg)
	}

	for i := 0; i < reelPollAttempts; i++ {
		status, err := graphGet(ctx, ig.client, "/"+containerID, url.Values{
			"fields":       {"status_code"},
			"access_token": {creds.AccessToken},
		})
		if err != nil {
			return fail(err.Error())
		}
		if status.StatusCode == "FINISHED" {
			break
		}
		if status.StatusCode == "ERROR" {
			return fail("video processing failed")
		}
		select {
		case <-ctx.Done():
			return fail(ctx.Err().Error())
		case <-time.After(reelPollDelay):
		}
	}

	return ig.publish(ctx, creds, containerID, "video")
}

func (ig *Instagram) PostText(ctx context.Context, creds Credentials, text string) Result {
	return fail("instagram requires an image or video")
}

func (ig *Instagram) createContainer(ctx context.Context, creds Credentials, form url.Values, fallback string) (string, string) {
	form.Set("access_token", creds.AccessToken)
	resp, err := graphPost(ctx, ig.client, "/"+creds.AccountID+"/media", form)
	if err != nil {
		return "", err.Error()
	}
	if resp.ID == "" {
		return "", resp.errMessage(fallback)
	}
	return resp.ID, ""
}

func (ig *Instagram) publish(ctx context.Context, creds Credentials, containerID, kind string) Result {
	resp, err := graphPost(ctx, ig.client, "/"+creds.AccountID+"/media_publish", url.Values{
		"creation_id":  {containerID},
		"access_token": {creds.AccessToken},
	})
	if err != nil {
		return fail(err.Error())
	}
	if resp.ID == "" {
		return fail(resp.errMessage("failed to publish"))
	}
	return ok(resp.ID, kind)
}
