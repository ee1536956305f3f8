// Package engage translates user gestures into API requests: optimistic
// like toggles, comment submission, follow changes and post authoring.
package engage

import (
	"context"
	"strings"
	"sync"

	"vibio/internal/feed"
	"vibio/internal/gateway"
	"vibio/internal/models"
	"vibio/internal/observability"
)

// API is the slice of the gateway the dispatcher issues mutations through.
type API interface {
	StoreLike(ctx context.Context, userID, postID uint) error
	DeleteLike(ctx context.Context, userID, postID uint) error
	StoreComment(ctx context.Context, userID, postID uint, content string) error
	Follow(ctx context.Context, followerID, followedUserID uint) error
	Unfollow(ctx context.Context, followerID, followedUserID uint) error
	CreatePost(ctx context.Context, in gateway.CreatePostInput) error
	UpdatePost(ctx context.Context, postID uint, title, body string) error
	DeletePost(ctx context.Context, postID uint) error
}

// State is the synchronizer surface the dispatcher mutates and reconciles.
type State interface {
	ToggleLikeLocal(postID uint) bool
	RevertLike(postID uint, liked bool)
	LoadLikesForCurrentUser(ctx context.Context) error
	LoadComments(ctx context.Context) error
}

// CurrentUser yields the acting user's id.
type CurrentUser interface {
	CurrentUserID() uint
}

// Dispatcher applies optimistic local mutations, issues the matching
// requests, and folds results back into state. Like mutations are
// serialized per post so at most one request per (user, post) pair is
// outstanding.
type Dispatcher struct {
	api     API
	state   State
	current CurrentUser
	hub     *feed.Hub

	mu        sync.Mutex
	postLocks map[uint]*sync.Mutex
}

// NewDispatcher creates a Dispatcher. hub may be nil when no one listens
// for refresh events.
func NewDispatcher(api API, state State, current CurrentUser, hub *feed.Hub) *Dispatcher {
	return &Dispatcher{
		api:       api,
		state:     state,
		current:   current,
		hub:       hub,
		postLocks: map[uint]*sync.Mutex{},
	}
}

func (d *Dispatcher) lockFor(postID uint) *sync.Mutex {
	d.mu.Lock()
	defer d.mu.Unlock()
	lock, ok := d.postLocks[postID]
	if !ok {
		lock = &sync.Mutex{}
		d.postLocks[postID] = lock
	}
	return lock
}

// ToggleLike flips the local like state immediately, then issues the
// matching create or delete request. The direction is decided from local
// state at flip time, not re-checked against the server. On success the
// liked-by-me set is reconciled from the server; on failure the optimistic
// flip is rolled back and the error returned. Requests for the same post
// are serialized, so a rapid double toggle settles in issue order.
func (d *Dispatcher) ToggleLike(ctx context.Context, postID uint) error {
	userID := d.current.CurrentUserID()
	if userID == 0 {
		return models.NewUnauthorizedError("Log in to like posts")
	}

	nowLiked := d.state.ToggleLikeLocal(postID)

	lock := d.lockFor(postID)
	lock.Lock()
	defer lock.Unlock()

	var err error
	if nowLiked {
		err = d.api.StoreLike(ctx, userID, postID)
	} else {
		err = d.api.DeleteLike(ctx, userID, postID)
	}
	if err != nil {
		d.state.RevertLike(postID, !nowLiked)
		return err
	}

	// Reconcile against authoritative state. A failed reconcile keeps the
	// optimistic result; the next refresh converges it.
	if reconcileErr := d.state.LoadLikesForCurrentUser(ctx); reconcileErr != nil {
		observability.LogSyncError(ctx, "toggle_like_reconcile", reconcileErr,
			map[string]interface{}{"post_id": postID})
	}
	return nil
}

// SubmitComment validates locally, then creates the comment and reloads the
// comment collection. Empty content is rejected before any network call; a
// request failure is returned so the caller can keep its input buffer.
func (d *Dispatcher) SubmitComment(ctx context.Context, postID uint, content string) error {
	if strings.TrimSpace(content) == "" {
		return models.NewValidationError("Comment cannot be empty")
	}
	userID := d.current.CurrentUserID()
	if userID == 0 {
		return models.NewUnauthorizedError("Log in to comment")
	}
	if err := d.api.StoreComment(ctx, userID, postID, content); err != nil {
		return err
	}
	if reloadErr := d.state.LoadComments(ctx); reloadErr != nil {
		observability.LogSyncError(ctx, "submit_comment_reload", reloadErr,
			map[string]interface{}{"post_id": postID})
	}
	return nil
}

// SetFollowState creates or removes the follow edge. Deliberately not
// optimistic: follow status is re-derived only by a subsequent profile
// refetch, trading latency for having no rollback path.
func (d *Dispatcher) SetFollowState(ctx context.Context, targetUserID uint, follow bool) error {
	userID := d.current.CurrentUserID()
	if userID == 0 {
		return models.NewUnauthorizedError("Log in to follow users")
	}
	if targetUserID == userID {
		return models.NewValidationError("You cannot follow yourself")
	}
	if follow {
		return d.api.Follow(ctx, userID, targetUserID)
	}
	return d.api.Unfollow(ctx, userID, targetUserID)
}

// CreatePost uploads a new post as the current user and signals listeners
// to refresh.
func (d *Dispatcher) CreatePost(ctx context.Context, in gateway.CreatePostInput) error {
	if strings.TrimSpace(in.Body) == "" {
		return models.NewValidationError("Post body is required")
	}
	userID := d.current.CurrentUserID()
	if userID == 0 {
		return models.NewUnauthorizedError("Log in to post")
	}
	in.UserID = userID
	if err := d.api.CreatePost(ctx, in); err != nil {
		return err
	}
	d.triggerRefresh()
	return nil
}

// UpdatePost edits a post and signals listeners to refresh.
func (d *Dispatcher) UpdatePost(ctx context.Context, postID uint, title, body string) error {
	if strings.TrimSpace(body) == "" {
		return models.NewValidationError("Post body is required")
	}
	if err := d.api.UpdatePost(ctx, postID, title, body); err != nil {
		return err
	}
	d.triggerRefresh()
	return nil
}

// DeletePost removes a post and signals listeners to refresh.
func (d *Dispatcher) DeletePost(ctx context.Context, postID uint) error {
	if err := d.api.DeletePost(ctx, postID); err != nil {
		return err
	}
	d.triggerRefresh()
	return nil
}

func (d *Dispatcher) triggerRefresh() {
	if d.hub != nil {
		d.hub.TriggerRefresh()
	}
}
