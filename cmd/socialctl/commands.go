package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/pribylovaa/go-social-client/internal/client"
	"github.com/pribylovaa/go-social-client/internal/services/models"
	"github.com/pribylovaa/go-social-client/internal/services/posts"
)

// command — подкоманда CLI. run возвращает значение для печати в stdout (nil — ничего).
type command struct {
	usage   string
	minArgs int
	run     func(ctx context.Context, a *app, args []string) (any, error)
}

var commands = map[string]command{
	"login": {
		usage:   "login <email> <password>",
		minArgs: 2,
		run: func(ctx context.Context, a *app, args []string) (any, error) {
			return a.svc.Auth.Login(ctx, args[0], args[1])
		},
	},
	"register": {
		usage:   "register <username> <email> <password>",
		minArgs: 3,
		run: func(ctx context.Context, a *app, args []string) (any, error) {
			return a.svc.Auth.Register(ctx, args[0], args[1], args[2])
		},
	},
	"logout": {
		usage: "logout",
		run: func(ctx context.Context, a *app, _ []string) (any, error) {
			return nil, a.svc.Auth.Logout(ctx)
		},
	},
	"me": {
		usage: "me",
		run: func(ctx context.Context, a *app, _ []string) (any, error) {
			return a.svc.Auth.Me(ctx)
		},
	},
	"profile": {
		usage:   "profile <username>",
		minArgs: 1,
		run: func(ctx context.Context, a *app, args []string) (any, error) {
			return a.svc.Users.Profile(ctx, args[0])
		},
	},
	"update-profile": {
		usage: "update-profile [-name N] [-bio B] [-avatar URL]",
		run:   runUpdateProfile,
	},
	"follow": {
		usage:   "follow <username>",
		minArgs: 1,
		run: func(ctx context.Context, a *app, args []string) (any, error) {
			return a.svc.Users.Follow(ctx, args[0])
		},
	},
	"unfollow": {
		usage:   "unfollow <username>",
		minArgs: 1,
		run: func(ctx context.Context, a *app, args []string) (any, error) {
			return a.svc.Users.Unfollow(ctx, args[0])
		},
	},
	"feed": {
		usage: "feed [-page N] [-limit N] [-author USER]",
		run:   runFeed,
	},
	"post": {
		usage:   "post <text>",
		minArgs: 1,
		run: func(ctx context.Context, a *app, args []string) (any, error) {
			return a.svc.Posts.Create(ctx, strings.Join(args, " "), "")
		},
	},
	"delete-post": {
		usage:   "delete-post <id>",
		minArgs: 1,
		run: func(ctx context.Context, a *app, args []string) (any, error) {
			return nil, a.svc.Posts.Delete(ctx, args[0])
		},
	},
	"like": {
		usage:   "like <id>",
		minArgs: 1,
		run: func(ctx context.Context, a *app, args []string) (any, error) {
			return a.svc.Posts.Like(ctx, args[0])
		},
	},
	"unlike": {
		usage:   "unlike <id>",
		minArgs: 1,
		run: func(ctx context.Context, a *app, args []string) (any, error) {
			return a.svc.Posts.Unlike(ctx, args[0])
		},
	},
	"notifications": {
		usage: "notifications",
		run: func(ctx context.Context, a *app, _ []string) (any, error) {
			return a.svc.Notifications.List(ctx)
		},
	},
	"read": {
		usage:   "read <notification-id>",
		minArgs: 1,
		run: func(ctx context.Context, a *app, args []string) (any, error) {
			return nil, a.svc.Notifications.MarkRead(ctx, args[0])
		},
	},
	"conversations": {
		usage: "conversations",
		run: func(ctx context.Context, a *app, _ []string) (any, error) {
			return a.svc.Messages.Conversations(ctx)
		},
	},
	"thread": {
		usage:   "thread <username>",
		minArgs: 1,
		run: func(ctx context.Context, a *app, args []string) (any, error) {
			return a.svc.Messages.Thread(ctx, args[0])
		},
	},
	"send": {
		usage:   "send <username> <text>",
		minArgs: 2,
		run: func(ctx context.Context, a *app, args []string) (any, error) {
			return a.svc.Messages.Send(ctx, args[0], strings.Join(args[1:], " "))
		},
	},
	"raw": {
		usage:   "raw <METHOD> <path> [json]",
		minArgs: 2,
		run:     runRaw,
	},
	"upload": {
		usage:   "upload <path> <file>",
		minArgs: 2,
		run:     runUpload,
	},
}

func usage(w io.Writer) {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintln(w, "usage: socialctl [--config path] <command> [args]")
	fmt.Fprintln(w, "commands:")
	for _, name := range names {
		fmt.Fprintln(w, "  "+commands[name].usage)
	}
}

func runFeed(ctx context.Context, a *app, args []string) (any, error) {
	var q posts.FeedQuery

	fs := flag.NewFlagSet("feed", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.IntVar(&q.Page, "page", 0, "page number, from 1")
	fs.IntVar(&q.Limit, "limit", 0, "posts per page")
	fs.StringVar(&q.Author, "author", "", "only posts of this user")
	if err := fs.Parse(args); err != nil {
		return nil, errUsage
	}

	return a.svc.Posts.Feed(ctx, q)
}

func runUpdateProfile(ctx context.Context, a *app, args []string) (any, error) {
	var upd models.ProfileUpdate

	fs := flag.NewFlagSet("update-profile", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	name := fs.String("name", "", "display name")
	bio := fs.String("bio", "", "bio")
	avatar := fs.String("avatar", "", "avatar url")
	if err := fs.Parse(args); err != nil {
		return nil, errUsage
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "name":
			upd.DisplayName = name
		case "bio":
			upd.Bio = bio
		case "avatar":
			upd.AvatarURL = avatar
		}
	})

	return a.svc.Users.UpdateMe(ctx, upd)
}

// runRaw — произвольный вызов API; печатает разобранное тело ответа.
func runRaw(ctx context.Context, a *app, args []string) (any, error) {
	method, path := strings.ToUpper(args[0]), args[1]

	var body any
	if len(args) > 2 {
		raw := json.RawMessage(args[2])
		if !json.Valid(raw) {
			return nil, fmt.Errorf("raw: body is not valid json")
		}
		body = raw
	}

	var (
		resp *client.Response
		err  error
	)
	switch method {
	case http.MethodGet:
		resp, err = a.api.Get(ctx, path, nil)
	case http.MethodPost:
		resp, err = a.api.Post(ctx, path, body)
	case http.MethodPut:
		resp, err = a.api.Put(ctx, path, body)
	case http.MethodPatch:
		resp, err = a.api.Patch(ctx, path, body)
	case http.MethodDelete:
		resp, err = a.api.Delete(ctx, path, body)
	default:
		return nil, fmt.Errorf("raw: unsupported method %q", method)
	}
	if err != nil {
		return nil, err
	}

	return resp.Value()
}

// runUpload отправляет файл multipart-формой; тип содержимого определяется по байтам.
func runUpload(ctx context.Context, a *app, args []string) (any, error) {
	path, file := args[0], args[1]

	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("upload: %w", err)
	}

	resp, err := a.api.Upload(ctx, path, &client.Form{
		Files: []client.FormFile{{
			Field:       "file",
			Name:        filepath.Base(file),
			ContentType: mimetype.Detect(data).String(),
			Data:        data,
		}},
	})
	if err != nil {
		return nil, err
	}

	return resp.Value()
}
