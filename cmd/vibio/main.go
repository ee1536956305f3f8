// Command vibio is a terminal client for the Vibio social API: feed
// browsing, likes, comments, follows and profile management.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"vibio/internal/config"
	"vibio/internal/credstore"
	"vibio/internal/engage"
	"vibio/internal/feed"
	"vibio/internal/gateway"
	"vibio/internal/models"
	"vibio/internal/observability"
	"vibio/internal/profile"
	"vibio/internal/session"
	"vibio/internal/timeutil"
)

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: vibio <command> [flags]

Commands:
  register        Create an account
  confirm         Redeem an email confirmation code
  login           Log in by username or email
  logout          Clear the stored session
  whoami          Show the logged-in user
  setup           Complete first-run profile setup
  skip-setup      Skip first-run profile setup
  feed            Show the feed
  comments        Show comments for a post
  like            Toggle a like on a post
  comment         Comment on a post
  follow          Follow a user
  unfollow        Unfollow a user
  post            Create a post
  edit-post       Edit a post
  delete-post     Delete a post
  profile         Show a user's profile
  update-profile  Edit your profile
`)
	os.Exit(2)
}

// app bundles the wired client stack for command handlers.
type app struct {
	cfg        *config.Config
	session    *session.Manager
	sync       *feed.Synchronizer
	dispatcher *engage.Dispatcher
	profiles   *profile.Service
	hub        *feed.Hub
}

func buildApp(cfg *config.Config) (*app, error) {
	store, err := credstore.NewFileStore(cfg.CredStorePath, cfg.CredStoreSecret)
	if err != nil {
		return nil, fmt.Errorf("opening credential store: %w", err)
	}

	// The session manager is the token source for the client it talks
	// through; the closure defers the lookup until the first request.
	var manager *session.Manager
	client, err := gateway.NewClient(cfg.APIBaseURL, cfg.HTTPTimeout, gateway.TokenSourceFunc(func() (string, error) {
		return manager.Token()
	}))
	if err != nil {
		return nil, err
	}
	manager = session.NewManager(store, client)
	if err := manager.CheckLogin(); err != nil {
		return nil, fmt.Errorf("restoring session: %w", err)
	}

	sync := feed.NewSynchronizer(client, manager)
	hub := feed.NewHub()
	dispatcher := engage.NewDispatcher(client, sync, manager, hub)
	profiles := profile.NewService(client, manager)

	return &app{
		cfg:        cfg,
		session:    manager,
		sync:       sync,
		dispatcher: dispatcher,
		profiles:   profiles,
		hub:        hub,
	}, nil
}

func main() {
	if len(os.Args) < 2 {
		usage()
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	shutdownTracing, err := observability.InitTracing(observability.TracingConfig{
		ServiceName:    "vibio-client",
		ServiceVersion: "1.0.0",
		Environment:    cfg.Env,
		Enabled:        cfg.TracingEnabled,
		Exporter:       cfg.TraceExporter,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		SamplerRatio:   cfg.SamplerRatio,
	})
	if err != nil {
		log.Fatalf("Failed to initialize tracing: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(ctx)
	}()

	a, err := buildApp(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize client: %v", err)
	}

	ctx := context.Background()
	if err := run(ctx, a, os.Args[1], os.Args[2:]); err != nil {
		var appErr *models.AppError
		if errors.As(err, &appErr) {
			log.Fatalf("%s", appErr.UserMessage())
		}
		log.Fatalf("%v", err)
	}
}

func run(ctx context.Context, a *app, command string, args []string) error {
	switch command {
	case "register":
		return cmdRegister(ctx, a, args)
	case "confirm":
		return cmdConfirm(ctx, a, args)
	case "login":
		return cmdLogin(ctx, a, args)
	case "logout":
		if err := a.session.Logout(); err != nil {
			return err
		}
		fmt.Println("Logged out.")
		return nil
	case "whoami":
		return cmdWhoami(a)
	case "setup":
		return cmdSetup(ctx, a, args)
	case "skip-setup":
		if err := a.session.SkipProfileSetup(ctx); err != nil {
			return err
		}
		fmt.Println("Profile setup skipped.")
		return nil
	case "feed":
		return cmdFeed(ctx, a)
	case "comments":
		return cmdComments(ctx, a, args)
	case "like":
		return cmdLike(ctx, a, args)
	case "comment":
		return cmdComment(ctx, a, args)
	case "follow":
		return cmdFollow(ctx, a, args, true)
	case "unfollow":
		return cmdFollow(ctx, a, args, false)
	case "post":
		return cmdPost(ctx, a, args)
	case "edit-post":
		return cmdEditPost(ctx, a, args)
	case "delete-post":
		return cmdDeletePost(ctx, a, args)
	case "profile":
		return cmdProfile(ctx, a, args)
	case "update-profile":
		return cmdUpdateProfile(ctx, a, args)
	default:
		usage()
		return nil
	}
}

func cmdRegister(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("register", flag.ExitOnError)
	name := fs.String("name", "", "Display name")
	email := fs.String("email", "", "Email address")
	password := fs.String("password", "", "Password")
	fs.Parse(args)

	user, err := a.session.Register(ctx, gateway.RegisterInput{
		Name:                 *name,
		Email:                *email,
		Password:             *password,
		PasswordConfirmation: *password,
	})
	if err != nil {
		return err
	}
	fmt.Printf("Account created for %s. Check your email for a confirmation code.\n", user.Email)
	return nil
}

func cmdConfirm(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("confirm", flag.ExitOnError)
	email := fs.String("email", "", "Email address")
	code := fs.String("code", "", "Confirmation code")
	fs.Parse(args)

	if err := a.session.ConfirmEmail(ctx, *code, *email); err != nil {
		return err
	}
	fmt.Println("Email confirmed. You are now logged in.")
	return nil
}

func cmdLogin(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	user := fs.String("user", "", "Username or email")
	password := fs.String("password", "", "Password")
	fs.Parse(args)

	err := a.session.Login(ctx, *user, *password)
	if errors.Is(err, session.ErrEmailUnverified) {
		fmt.Println("Your email is not confirmed yet. A fresh code has been sent; run: vibio confirm -email <email> -code <code>")
		return nil
	}
	if err != nil {
		return err
	}
	u := a.session.CurrentUser()
	fmt.Printf("Logged in as %s.\n", u.Name)
	return nil
}

func cmdWhoami(a *app) error {
	user := a.session.CurrentUser()
	if user == nil {
		fmt.Println("Not logged in.")
		return nil
	}
	fmt.Printf("%s (@%s) <%s>\n", user.Name, user.Username, user.Email)
	if user.Bio != "" {
		fmt.Println(user.Bio)
	}
	return nil
}

func cmdSetup(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("setup", flag.ExitOnError)
	username := fs.String("username", "", "Username")
	picture := fs.String("picture", "", "Profile picture path (optional)")
	fs.Parse(args)

	in := gateway.ProfileSetupInput{
		UserID:   a.session.CurrentUserID(),
		Username: *username,
	}
	if *picture != "" {
		f, err := os.Open(*picture)
		if err != nil {
			return err
		}
		defer f.Close()
		in.ProfilePicture = f
		in.PictureName = *picture
	}
	if err := a.session.ProfileSetup(ctx, in); err != nil {
		return err
	}
	fmt.Printf("Profile set up as @%s.\n", *username)
	return nil
}

func cmdFeed(ctx context.Context, a *app) error {
	if err := a.sync.RefreshAll(ctx); err != nil {
		return err
	}
	printFeed(a)
	return nil
}

func printFeed(a *app) {
	now := time.Now()
	for _, post := range a.sync.Posts() {
		liked := " "
		if a.sync.IsLiked(post.ID) {
			liked = "♥"
		}
		fmt.Printf("#%d %s @%s · %s\n", post.ID, liked, post.User.Username,
			timeutil.RelativeTime(now, post.CreatedAt))
		if post.Title != "" {
			fmt.Printf("   %s\n", post.Title)
		}
		fmt.Printf("   %s\n", post.Body)
		fmt.Printf("   %d likes · %d comments\n\n",
			a.sync.LikeCount(post.ID), a.sync.CommentCount(post.ID))
	}
}

func cmdComments(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("comments", flag.ExitOnError)
	post := fs.Uint("post", 0, "Post id")
	fs.Parse(args)

	if err := a.sync.LoadComments(ctx); err != nil {
		return err
	}
	now := time.Now()
	for _, comment := range a.sync.CommentsFor(uint(*post)) {
		fmt.Printf("@%s · %s\n   %s\n", comment.User.Username,
			timeutil.RelativeTime(now, comment.CreatedAt), comment.Content)
	}
	return nil
}

func cmdLike(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("like", flag.ExitOnError)
	post := fs.Uint("post", 0, "Post id")
	fs.Parse(args)

	// Load current like state first so the toggle direction is real.
	if err := a.sync.RefreshAll(ctx); err != nil {
		return err
	}
	if err := a.dispatcher.ToggleLike(ctx, uint(*post)); err != nil {
		return err
	}
	if a.sync.IsLiked(uint(*post)) {
		fmt.Println("Liked.")
	} else {
		fmt.Println("Like removed.")
	}
	return nil
}

func cmdComment(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("comment", flag.ExitOnError)
	post := fs.Uint("post", 0, "Post id")
	text := fs.String("text", "", "Comment text")
	fs.Parse(args)

	if err := a.dispatcher.SubmitComment(ctx, uint(*post), *text); err != nil {
		return err
	}
	fmt.Println("Comment added.")
	return nil
}

func cmdFollow(ctx context.Context, a *app, args []string, follow bool) error {
	name := "follow"
	if !follow {
		name = "unfollow"
	}
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	user := fs.Uint("user", 0, "User id")
	fs.Parse(args)

	if err := a.dispatcher.SetFollowState(ctx, uint(*user), follow); err != nil {
		return err
	}
	if follow {
		fmt.Println("Following.")
	} else {
		fmt.Println("Unfollowed.")
	}
	return nil
}

func cmdPost(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("post", flag.ExitOnError)
	title := fs.String("title", "", "Post title")
	body := fs.String("body", "", "Post body")
	image := fs.String("image", "", "Image path (optional)")
	fs.Parse(args)

	in := gateway.CreatePostInput{Title: *title, Body: *body}
	if *image != "" {
		f, err := os.Open(*image)
		if err != nil {
			return err
		}
		defer f.Close()
		in.Image = f
		in.ImageName = *image
	}

	// Reload the feed once the dispatcher signals the new post landed.
	refresh, cancel := a.hub.Subscribe()
	defer cancel()

	if err := a.dispatcher.CreatePost(ctx, in); err != nil {
		return err
	}

	<-refresh
	if err := a.sync.RefreshAll(ctx); err != nil {
		return err
	}
	fmt.Println("Posted.")
	return nil
}

func cmdEditPost(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("edit-post", flag.ExitOnError)
	post := fs.Uint("post", 0, "Post id")
	title := fs.String("title", "", "Post title")
	body := fs.String("body", "", "Post body")
	fs.Parse(args)

	if err := a.dispatcher.UpdatePost(ctx, uint(*post), *title, *body); err != nil {
		return err
	}
	fmt.Println("Post updated.")
	return nil
}

func cmdDeletePost(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("delete-post", flag.ExitOnError)
	post := fs.Uint("post", 0, "Post id")
	fs.Parse(args)

	if err := a.dispatcher.DeletePost(ctx, uint(*post)); err != nil {
		return err
	}
	fmt.Println("Post deleted.")
	return nil
}

func cmdProfile(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("profile", flag.ExitOnError)
	user := fs.Uint("user", 0, "User id")
	fs.Parse(args)

	userID := uint(*user)
	if userID == 0 {
		userID = a.session.CurrentUserID()
	}
	p, err := a.profiles.Show(ctx, userID)
	if err != nil {
		return err
	}

	fmt.Printf("%s (@%s)\n", p.Name, p.Username)
	if p.Bio != "" {
		fmt.Println(p.Bio)
	}
	fmt.Printf("%d followers · %d posts\n", profile.FollowerCount(p), len(p.Posts))
	if viewer := a.session.CurrentUserID(); viewer != 0 && viewer != p.ID {
		if profile.IsFollowing(p, viewer) {
			fmt.Println("You follow this user.")
		}
	}
	return nil
}

func cmdUpdateProfile(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("update-profile", flag.ExitOnError)
	name := fs.String("name", "", "Display name")
	username := fs.String("username", "", "Username")
	bio := fs.String("bio", "", "Bio")
	picture := fs.String("picture", "", "Profile picture path (optional)")
	fs.Parse(args)

	in := gateway.UpdateProfileInput{Name: *name, Username: *username, Bio: *bio}
	if *picture != "" {
		f, err := os.Open(*picture)
		if err != nil {
			return err
		}
		defer f.Close()
		in.ProfilePicture = f
		in.PictureName = *picture
	}
	user, err := a.profiles.Update(ctx, in)
	if err != nil {
		return err
	}
	if user == nil {
		fmt.Println("Profile updated.")
		return nil
	}
	fmt.Printf("Profile updated: %s (@%s)\n", user.Name, user.Username)
	return nil
}
