// Package seed creates a demo group chat through the repository and projects
// it into the read model.
package seed

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	entrypoint "github.com/louisbranch/groupchat/internal/platform/cmd"
	apperrors "github.com/louisbranch/groupchat/internal/platform/errors"
	"github.com/louisbranch/groupchat/internal/platform/logging"
	"github.com/louisbranch/groupchat/internal/services/groupchat/app"
	"github.com/louisbranch/groupchat/internal/services/groupchat/domain/event"
	"github.com/louisbranch/groupchat/internal/services/groupchat/domain/groupchat"
	"github.com/louisbranch/groupchat/internal/services/groupchat/repository"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// Config holds seed command configuration.
type Config struct {
	app.Config
	ChatName string   `env:"GROUPCHAT_SEED_NAME" envDefault:"Demo chat"`
	Admin    string   `env:"GROUPCHAT_SEED_ADMIN" envDefault:"user-admin"`
	Members  []string `env:"GROUPCHAT_SEED_MEMBERS" envSeparator:"," envDefault:"user-alice,user-bob"`
	Messages int      `env:"GROUPCHAT_SEED_MESSAGES" envDefault:"3"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	cfg.BindFlags(fs)
	members := strings.Join(cfg.Members, ",")
	fs.StringVar(&cfg.ChatName, "name", cfg.ChatName, "Name of the seeded group chat")
	fs.StringVar(&cfg.Admin, "admin", cfg.Admin, "User account id of the administrator")
	fs.StringVar(&members, "members", members, "Comma-separated user account ids to add as members")
	fs.IntVar(&cfg.Messages, "messages", cfg.Messages, "Messages each participant posts")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	cfg.Members = splitList(members)
	return cfg, nil
}

func splitList(v string) []string {
	parts := lo.Map(strings.Split(v, ","), func(s string, _ int) string { return strings.TrimSpace(s) })
	return lo.Uniq(lo.Compact(parts))
}

// Run seeds one group chat and writes its id to out.
func Run(ctx context.Context, cfg Config, out io.Writer) error {
	if out == nil {
		out = io.Discard
	}
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceSeed, func(ctx context.Context) error {
		logger, err := logging.New(cfg.LogLevel)
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		rt, err := app.Open(cfg.Config, logger)
		if err != nil {
			return fmt.Errorf("open runtime: %w", err)
		}
		defer func() {
			if err := rt.Close(); err != nil {
				logger.Warn("close runtime", zap.Error(err))
			}
		}()

		chatID, err := seedChat(ctx, rt.Repository, cfg)
		if err != nil {
			return err
		}
		n, err := rt.Poller.CatchUp(ctx)
		if err != nil {
			return fmt.Errorf("project seeded events: %w", err)
		}
		logger.Info("seeded group chat", zap.String("group_chat_id", string(chatID)), zap.Int("projected", n))
		fmt.Fprintln(out, chatID)
		return nil
	})
}

func seedChat(ctx context.Context, repo *repository.Repository, cfg Config) (groupchat.ID, error) {
	name, err := groupchat.NewName(cfg.ChatName)
	if err != nil {
		return "", err
	}
	admin, err := groupchat.ParseUserAccountID(cfg.Admin)
	if err != nil {
		return "", err
	}
	chat, _, err := repo.Create(ctx, name, admin)
	if err != nil {
		return "", commandFailed("create group chat", err)
	}

	participants := []groupchat.UserAccountID{admin}
	for _, raw := range cfg.Members {
		member, err := groupchat.ParseUserAccountID(raw)
		if err != nil {
			return "", err
		}
		if member == admin {
			continue
		}
		if _, err := repo.Execute(ctx, chat.ID(), repository.AddMember{UserAccountID: member, Role: groupchat.RoleMember}, admin); err != nil {
			return "", commandFailed("add member "+string(member), err)
		}
		participants = append(participants, member)
	}

	for i := 0; i < cfg.Messages; i++ {
		for _, sender := range participants {
			text := fmt.Sprintf("message %d from %s", i+1, sender)
			msg, err := groupchat.NewMessage(groupchat.NewMessageID(), sender, text, event.Now())
			if err != nil {
				return "", err
			}
			if _, err := repo.Execute(ctx, chat.ID(), repository.PostMessage{Message: msg}, sender); err != nil {
				return "", commandFailed("post message", err)
			}
		}
	}
	return chat.ID(), nil
}

// commandFailed labels a failed command with the gRPC code an API caller
// would receive for it.
func commandFailed(step string, err error) error {
	return fmt.Errorf("%s: %s: %w", step, apperrors.StatusOf(err).Code(), err)
}
