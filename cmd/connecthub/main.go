package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/TvogInc/ConnectHub/internal/chat"
	"github.com/TvogInc/ConnectHub/internal/config"
	"github.com/TvogInc/ConnectHub/internal/connect"
	"github.com/TvogInc/ConnectHub/internal/gateway"
	"github.com/TvogInc/ConnectHub/internal/media"
	"github.com/TvogInc/ConnectHub/internal/session"
	"github.com/TvogInc/ConnectHub/internal/util"
	"github.com/TvogInc/ConnectHub/pkg/domain"
)

func main() {
	cfg, err := config.Load(config.ConfigPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logger := util.InitLogger(cfg.LogLevel)

	sess := session.New()
	gw := gateway.NewClient(cfg.BackendURL, cfg.APIKey, gateway.WithTokenSource(sess.Token))

	if err := sess.Resolve(cfg.AccessToken); err != nil {
		log.Fatalf("failed to resolve session: %v", err)
	}
	user := sess.Current()
	if user == nil {
		log.Fatalf("no session: set accessToken in config.yaml or CONNECTHUB_ACCESS_TOKEN")
	}
	logger.Info("session resolved", "user_id", user.ID, "username", user.Username)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sidebar := connect.NewSidebar(
		connect.NewWorkflow(gw, sess),
		cfg.SidebarInterval(),
		func(accepted []domain.Connection) {
			slog.Info("connections refreshed", "count", len(accepted))
		},
		func(pending []domain.Connection) {
			if len(pending) > 0 {
				slog.Info("pending requests", "count", len(pending))
			}
		},
	)
	sidebar.Start(ctx)
	defer sidebar.Stop()

	messageSync := chat.NewMessageSync(gw, sess, cfg.MessageInterval(), func(conv domain.ChatConversation, messages []domain.Message) {
		slog.Info("messages refreshed", "conversation", conv.ID, "kind", conv.Kind, "count", len(messages))
	})
	defer messageSync.Clear()

	if cfg.MediaEndpoint != "" {
		store, err := media.NewMinioStore(cfg.MediaEndpoint, cfg.MediaAccessKey, cfg.MediaSecretKey, cfg.MediaBucket, cfg.MediaUseSSL)
		if err != nil {
			log.Fatalf("failed to init media store: %v", err)
		}
		messageSync.AttachMediaStore(store)
		logger.Info("media store ready", "endpoint", cfg.MediaEndpoint, "bucket", cfg.MediaBucket)
	}

	feed := chat.NewFeed(
		chat.NewBuilder(gw, sess),
		cfg.ConversationInterval(),
		func(list []domain.ChatConversation) {
			slog.Info("conversations refreshed", "count", len(list))
		},
	)
	feed.Start(ctx)
	defer feed.Stop()

	<-ctx.Done()
	logger.Info("shutting down")
}
