package publish

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/social-agent/core/internal/config"
	"github.com/social-agent/core/internal/models"
	"github.com/social-agent/core/internal/modules/platform"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ErrNotFound is returned when the target post does not exist.
var ErrNotFound = errors.New("post not found")

var videoMarkers = []string{".mp4", ".mov", ".avi", "/video/"}

// Dispatcher publishes one post to every platform it requests. Platform
// failures are isolated: each token gets its own result and log row, and
// the aggregate publish_state is posted only when all of them succeeded.
type Dispatcher struct {
	db             *gorm.DB
	registry       platform.Registry
	fallback       config.PlatformsConfig
	adapterTimeout time.Duration
	log            *zap.Logger
}

func NewDispatcher(db *gorm.DB, registry platform.Registry, cfg *config.AppConfig, log *zap.Logger) *Dispatcher {
	timeout := cfg.Scheduler.AdapterTimeout()
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &Dispatcher{
		db:             db,
		registry:       registry,
		fallback:       cfg.Platforms,
		adapterTimeout: timeout,
		log:            log.Named("dispatcher"),
	}
}

// Publish attempts every requested platform token for a post. It writes
// one log row per token, the aggregate publish_state, and a creator
// notification on failure in a single transaction, then returns the full
// per-token result map. workflow_state is never touched here.
func (d *Dispatcher) Publish(ctx context.Context, post *models.PostModel) (map[string]platform.Result, error) {
	caption := post.Caption
	if caption == "" {
		caption = post.Topic
	}

	images, videoURL := classifyMedia(post.MediaURLs)

	type attempt struct {
		token  string
		result platform.Result
	}

	tokens := make([]string, 0, len(post.Platforms))
	for _, t := range post.Platforms {
		if t = strings.TrimSpace(t); t != "" {
			tokens = append(tokens, t)
		}
	}

	results := make(map[string]platform.Result, len(tokens))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, token := range tokens {
		wg.Add(1)
		go func(token string) {
			defer wg.Done()
			res := d.publishOne(ctx, post, token, images, videoURL, caption)
			mu.Lock()
			results[token] = res
			mu.Unlock()
		}(token)
	}
	wg.Wait()

	allSuccess := len(results) > 0
	for _, r := range results {
		if !r.Success {
			allSuccess = false
			break
		}
	}
	state := models.PublishFailed
	if allSuccess {
		state = models.PublishPosted
	}

	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, token := range tokens {
			res := results[token]
			raw, _ := json.Marshal(res)
			outcome := models.OutcomeFailed
			if res.Success {
				outcome = models.OutcomeSuccess
			}
			row := models.PublishLogModel{
				PostID:   post.ID,
				Platform: token,
				Outcome:  outcome,
				Raw:      string(raw),
			}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		}
		if err := tx.Model(&models.PostModel{}).Where("id = ?", post.ID).
			Update("publish_state", state).Error; err != nil {
			return err
		}
		if state == models.PublishFailed && post.CreatedByID != "" {
			notif := models.NotificationModel{
				UserID:  post.CreatedByID,
				Type:    models.NotifyPublishFailed,
				Title:   "Publishing failed",
				Message: "One or more platforms failed for post: " + post.Topic,
				RefType: "post",
				RefID:   post.ID,
			}
			if err := tx.Create(&notif).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	d.log.Info("publish complete",
		zap.String("post_id", post.ID),
		zap.Int("platforms", len(tokens)),
		zap.String("publish_state", state),
	)

	return results, nil
}

func (d *Dispatcher) publishOne(ctx context.Context, post *models.PostModel, token string, images []string, videoURL, caption string) platform.Result {
	base := strings.TrimSuffix(strings.TrimSuffix(token, "_story"), "_reel")
	isStory := strings.Contains(token, "story") || post.PostType == models.PostTypeStory

	adapter, ok := d.registry[base]
	if !ok {
		return platform.Result{Success: false, Err: "unknown platform: " + base}
	}

	creds := d.resolveCredentials(post.ClientID, base)
	if creds.Empty() {
		return platform.Result{Success: false, Err: "no account found for " + base}
	}

	callCtx, cancel := context.WithTimeout(ctx, d.adapterTimeout)
	defer cancel()

	switch {
	case isStory && len(images) > 0:
		return adapter.PostStory(callCtx, creds, images[0])
	case videoURL != "":
		return adapter.PostVideo(callCtx, creds, videoURL, caption)
	case len(images) > 1:
		return adapter.PostCarousel(callCtx, creds, images, caption)
	case len(images) == 1:
		return adapter.PostImage(callCtx, creds, images[0], caption)
	default:
		return adapter.PostText(callCtx, creds, caption)
	}
}

// resolveCredentials prefers an active account bound to the client, then
// the global per-platform fallback from config.
func (d *Dispatcher) resolveCredentials(clientID, base string) platform.Credentials {
	var account models.AccountModel
	err := d.db.Where("client_id = ? AND platform = ? AND active = ?", clientID, base, true).
		First(&account).Error
	if err == nil && account.AccessToken != "" {
		return platform.Credentials{
			AccessToken: account.AccessToken,
			AccountID:   account.PlatformAccountID,
		}
	}

	fb := d.fallback.ForPlatform(base)
	return platform.Credentials{AccessToken: fb.AccessToken, AccountID: fb.AccountID}
}

// classifyMedia splits the ordered media list into images and an
// optional leading video URL.
func classifyMedia(urls models.StringArray) (images []string, videoURL string) {
	for _, u := range urls {
		if u = strings.TrimSpace(u); u != "" {
			images = append(images, u)
		}
	}
	if len(images) > 0 && isVideoURL(images[0]) {
		videoURL = images[0]
		images = nil
	}
	return images, videoURL
}

func isVideoURL(u string) bool {
	lower := strings.ToLower(u)
	for _, marker := range videoMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
