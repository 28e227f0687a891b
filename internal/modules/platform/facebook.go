package platform

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"go.uber.org/zap"
)

// Facebook publishes to a page via the Graph API.
type Facebook struct {
	client *http.Client
	log    *zap.Logger
}

func NewFacebook(client *http.Client, log *zap.Logger) *Facebook {
	return &Facebook{client: client, log: log.Named("facebook")}
}

func (fb *Facebook) Name() string { return "facebook" }

func (fb *Facebook) PostImage(ctx context.Context, creds Credentials, imageURL, caption string) Result {
	resp, err := graphPost(ctx, fb.client, "/"+creds.AccountID+"/photos", url.Values{
		"url":          {imageURL},
		"message":      {caption},
		"access_token": {creds.AccessToken},
	})
	if err != nil {
		return fail(err.Error())
	}
	if resp.ID == "" {
		return fail(resp.errMessage("failed to post image"))
	}
	return ok(resp.ID, "image")
}

func (fb *Facebook) PostText(ctx context.Context, creds Credentials, text string) Result {
	resp, err := graphPost(ctx, fb.client, "/"+creds.AccountID+"/feed", url.Values{
		"message":      {text},
		"access_token": {creds.AccessToken},
	})
	if err != nil {
		return fail(err.Error())
	}
	if resp.ID == "" {
		return fail(resp.errMessage("failed to post text"))
	}
	return ok(resp.ID, "text")
}

func (fb *Facebook) PostVideo(ctx context.Context, creds Credentials, videoURL, caption string) Result {
	resp, err := graphPost(ctx, fb.client, "/"+creds.AccountID+"/videos", url.Values{
		"file_url":     {videoURL},
		"description":  {caption},
		"access_token": {creds.AccessToken},
	})
	if err != nil {
		return fail(err.Error())
	}
	if resp.ID == "" {
		return fail(resp.errMessage("failed to post video"))
	}
	return ok(resp.ID, "video")
}

// PostStory uploads the photo unpublished, then attaches it to the
// page's story endpoint.
func (fb *Facebook) PostStory(ctx context.Context, creds Credentials, imageURL string) Result {
	photo, err := graphPost(ctx, fb.client, "/"+creds.AccountID+"/photos", url.Values{
		"url":          {imageURL},
		"published":    {"false"},
		"access_token": {creds.AccessToken},
	})
	if err != nil {
		return fail(err.Error())
	}
	if photo.ID == "" {
		return fail("failed to upload story photo")
	}

	story, err := graphPost(ctx, fb.client, "/"+creds.AccountID+"/photo_stories", url.Values{
		"photo_id":     {photo.ID},
		"access_token": {creds.AccessToken},
	})
	if err != nil {
		return fail(err.Error())
	}
	if story.ID == "" {
		return fail(story.errMessage("failed to publish story"))
	}
	return ok(story.ID, "story")
}

// PostCarousel uploads each photo unpublished, then creates one feed
// post referencing them all.
func (fb *Facebook) PostCarousel(ctx context.Context, creds Credentials, imageURLs []string, caption string) Result {
	var photoIDs []string
	for _, u := range imageURLs {
		resp, err := graphPost(ctx, fb.client, "/"+creds.AccountID+"/photos", url.Values{
			"url":          {u},
			"published":    {"false"},
			"access_token": {creds.AccessToken},
		})
		if err != nil {
			return fail(err.Error())
		}
		if resp.ID != "" {
			photoIDs = append(photoIDs, resp.ID)
		}
	}
	if len(photoIDs) == 0 {
		return fail("no photos uploaded")
	}

	form := url.Values{
		"message":      {caption},
		"access_token": {creds.AccessToken},
	}
	for i, pid := range photoIDs {
		form.Set(fmt.Sprintf("attached_media[%d]", i), fmt.Sprintf(`{"media_fbid":"%s"}`, pid))
	}

	resp, err := graphPost(ctx, fb.client, "/"+creds.AccountID+"/feed", form)
	if err != nil {
		return fail(err.Error())
	}
	if resp.ID == "" {
		return fail(resp.errMessage("failed to post multiple images"))
	}
	return ok(resp.ID, "carousel")
}
