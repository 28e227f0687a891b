package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"
)

const linkedinBase = "https://api.linkedin.com/v2"

// LinkedIn publishes member shares via the ugcPosts API. Media goes
// through the register-upload / binary-put / share flow.
type LinkedIn struct {
	client *http.Client
	log    *zap.Logger
}

func NewLinkedIn(client *http.Client, log *zap.Logger) *LinkedIn {
	return &LinkedIn{client: client, log: log.Named("linkedin")}
}

func (li *LinkedIn) Name() string { return "linkedin" }

func (li *LinkedIn) PostText(ctx context.Context, creds Credentials, text string) Result {
	author, errMsg := li.personURN(ctx, creds)
	if errMsg != "" {
		return fail(errMsg)
	}
	return li.createShare(ctx, creds, sharePayload(author, text, "NONE", ""), "text")
}

func (li *LinkedIn) PostImage(ctx context.Context, creds Credentials, imageURL, caption string) Result {
	return li.postMedia(ctx, creds, imageURL, caption, "feedshare-image", "IMAGE", "image")
}

func (li *LinkedIn) PostVideo(ctx context.Context, creds Credentials, videoURL, caption string) Result {
	return li.postMedia(ctx, creds, videoURL, caption, "feedshare-video", "VIDEO", "video")
}

// PostCarousel degrades to a single-image share; LinkedIn has no
// multi-image ugc primitive in this API version.
func (li *LinkedIn) PostCarousel(ctx context.Context, creds Credentials, imageURLs []string, caption string) Result {
	if len(imageURLs) == 0 {
		return fail("no images supplied")
	}
	return li.PostImage(ctx, creds, imageURLs[0], caption)
}

func (li *LinkedIn) PostStory(ctx context.Context, creds Credentials, imageURL string) Result {
	return fail("linkedin does not support stories")
}

func (li *LinkedIn) postMedia(ctx context.Context, creds Credentials, mediaURL, caption, recipe, category, kind string) Result {
	author, errMsg := li.personURN(ctx, creds)
	if errMsg != "" {
		return fail(errMsg)
	}

	uploadURL, asset, errMsg := li.registerUpload(ctx, creds, author, recipe)
	if errMsg != "" {
		return fail(errMsg)
	}

	data, errMsg := li.download(ctx, mediaURL)
	if errMsg != "" {
		return fail(errMsg)
	}

	if errMsg := li.upload(ctx, creds, uploadURL, data); errMsg != "" {
		return fail(errMsg)
	}

	payload := sharePayload(author, caption, category, asset)
	return li.createShare(ctx, creds, payload, kind)
}

func (li *LinkedIn) personURN(ctx context.Context, creds Credentials) (string, string) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, linkedinBase+"/userinfo", nil)
	if err != nil {
		return "", err.Error()
	}
	req.Header.Set("Authorization", "Bearer "+creds.AccessToken)

	resp, err := li.client.Do(req)
	if err != nil {
		return "", err.Error()
	}
	defer resp.Body.Close()

	var info struct {
		Sub string `json:"sub"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil || info.Sub == "" {
		return "", "could not get linkedin user profile"
	}
	return "urn:li:person:" + info.Sub, ""
}

func (li *LinkedIn) registerUpload(ctx context.Context, creds Credentials, owner, recipe string) (string, string, string) {
	payload := map[string]interface{}{
		"registerUploadRequest": map[string]interface{}{
			"recipes": []string{"urn:li:digitalmediaRecipe:" + recipe},
			"owner":   owner,
			"serviceRelationships": []map[string]string{{
				"relationshipType": "OWNER",
				"identifier":       "urn:li:userGeneratedContent",
			}},
		},
	}

	body, _ := json.Marshal(payload)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, linkedinBase+"/assets?action=registerUpload", bytes.NewReader(body))
	if err != nil {
		return "", "", err.Error()
	}
	req.Header.Set("Authorization", "Bearer "+creds.AccessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := li.client.Do(req)
	if err != nil {
		return "", "", err.Error()
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", "", "failed to register upload"
	}

	var out struct {
		Value struct {
			UploadMechanism struct {
				Request struct {
					UploadURL string `json:"uploadUrl"`
				} `json:"com.linkedin.digitalmedia.uploading.MediaUploadHttpRequest"`
			} `json:"uploadMechanism"`
			Asset string `json:"asset"`
		} `json:"value"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", "", "failed to decode upload registration"
	}
	return out.Value.UploadMechanism.Request.UploadURL, out.Value.Asset, ""
}

func (li *LinkedIn) download(ctx context.Context, mediaURL string) ([]byte, string) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, mediaURL, nil)
	if err != nil {
		return nil, err.Error()
	}
	resp, err := li.client.Do(req)
	if err != nil {
		return nil, err.Error()
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err.Error()
	}
	return data, ""
}

func (li *LinkedIn) upload(ctx context.Context, creds Credentials, uploadURL string, data []byte) string {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, uploadURL, bytes.NewReader(data))
	if err != nil {
		return err.Error()
	}
	req.Header.Set("Authorization", "Bearer "+creds.AccessToken)
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := li.client.Do(req)
	if err != nil {
		return err.Error()
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "failed to upload media to linkedin"
	}
	return ""
}

func (li *LinkedIn) createShare(ctx context.Context, creds Credentials, payload map[string]interface{}, kind string) Result {
	body, _ := json.Marshal(payload)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, linkedinBase+"/ugcPosts", bytes.NewReader(body))
	if err != nil {
		return fail(err.Error())
	}
	req.Header.Set("Authorization", "Bearer "+creds.AccessToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Restli-Protocol-Version", "2.0.0")

	resp, err := li.client.Do(req)
	if err != nil {
		return fail(err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated {
		return ok(resp.Header.Get("x-restli-id"), kind)
	}

	var errBody struct {
		Message string `json:"message"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&errBody)
	if errBody.Message != "" {
		return fail(errBody.Message)
	}
	return fail(fmt.Sprintf("status %d", resp.StatusCode))
}

func sharePayload(author, text, category, asset string) map[string]interface{} {
	content := map[string]interface{}{
		"shareCommentary":    map[string]string{"text": text},
		"shareMediaCategory": category,
	}
	if asset != "" {
		content["media"] = []map[string]string{{
			"status": "READY",
			"media":  asset,
		}}
	}
	return map[string]interface{}{
		"author":         author,
		"lifecycleState": "PUBLISHED",
		"specificContent": map[string]interface{}{
			"com.linkedin.ugc.ShareContent": content,
		},
		"visibility": map[string]string{
			"com.linkedin.ugc.MemberNetworkVisibility": "PUBLIC",
		},
	}
}
