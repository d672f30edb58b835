package main

import (
	"context"
	"fmt"
	"log"

	"cuidarmed_chat_client/internal/chat/app"
	"cuidarmed_chat_client/internal/chat/domain"
	"cuidarmed_chat_client/internal/chat/repository"
	"cuidarmed_chat_client/internal/chat/router"
	"cuidarmed_chat_client/pkg"
	"cuidarmed_chat_client/pkg/config"
	"cuidarmed_chat_client/pkg/database"
	"cuidarmed_chat_client/pkg/logger"
	"cuidarmed_chat_client/pkg/middlewares"
	testtool "cuidarmed_chat_client/pkg/test_tool"
	"cuidarmed_chat_client/pkg/token"

	"github.com/gofiber/fiber/v2"
	fiber_log "github.com/gofiber/fiber/v2/middleware/logger"
	"go.uber.org/zap"
)

var liveTransports = []string{"websocket", "redis"}

func main() {
	logger.Log = logger.Initialize(config.EnvConfig.ChatClient, config.EnvConfig.ChatClientLogPath)
	cfg := config.LoadConfig[config.ChatClient](config.EnvConfig.ChatClient, config.EnvConfig.ChatClientYAMLPath)

	// 1. session identity from the AuthMS bearer token
	bearer := config.EnvConfig.BearerToken
	viewer, err := token.ParseIdentity(bearer)
	if err != nil {
		logger.Log.Fatal("cannot read session identity from token", zap.Error(err))
	}
	logger.Log.Info("session identity",
		zap.Int64("authID", viewer.AuthID),
		zap.Int64("participantID", viewer.ParticipantID),
		zap.String("role", viewer.Role))

	// 2. REST collaborators
	roomRepo := repository.NewDirectoryRoomRepository(cfg.Directory.BaseURL, bearer, cfg.RequestTimeout)
	msgRepo := repository.NewClinicalMessageRepository(cfg.Clinical.BaseURL, bearer, cfg.RequestTimeout)
	receiptRepo := repository.NewClinicalReadReceiptRepository(cfg.Clinical.BaseURL, bearer, cfg.RequestTimeout)

	// 3. live channel transport
	if !pkg.Contains(liveTransports, cfg.Live.Transport) {
		logger.Log.Warn("unknown live transport, using websocket",
			zap.String("transport", cfg.Live.Transport))
	}
	var transport repository.LiveTransport
	switch cfg.Live.Transport {
	case "redis":
		redisClient, err := database.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.RedisDB)
		if err != nil {
			logger.Log.Fatal(fmt.Sprintf("connect redis err : %v", err))
		}
		transport = repository.NewRedisTransport(redisClient, viewer.AuthID)
	default:
		transport = repository.NewWebsocketTransport(cfg.Live.URL, bearer)
	}

	// 4. engine wiring
	render := &logRenderer{}
	registry := app.NewRoomRegistry(viewer, roomRepo)
	unread := app.NewUnreadAggregator(viewer, roomRepo, render)
	adapter := app.NewChannelAdapter(transport, viewer, unread, render)
	session := app.NewSession(viewer, registry, unread, adapter, msgRepo, receiptRepo, render, cfg.HistoryPage)

	ctx := context.Background()
	if err := session.Start(ctx); err != nil {
		// the reconnect loop keeps trying, the status surface still serves
		logger.Log.Warn("initial live connect failed", zap.Error(err))
	}
	defer session.Teardown()

	testtool.StartPprof()

	// 5. local status surface
	r := fiber.New()
	r.Use(fiber_log.New())
	r.Use(middlewares.IdentityMiddleware(viewer.AuthID))
	router.RegisterRoutes(r, session)

	port := ":" + cfg.StatusPort
	log.Printf("Chat client status surface listening on %s", port)
	if err := r.Listen(port); err != nil {
		log.Fatalf("Failed to start Fiber: %v", err)
	}
}

// logRenderer pushes render instructions into the log, the dashboards
// read the status surface instead of a real DOM.
type logRenderer struct{}

func (*logRenderer) RenderMessages(roomID int64, msgs []domain.Message) {
	last := ""
	if len(msgs) > 0 {
		last = domain.FormatClock(msgs[len(msgs)-1].SentAt)
	}
	logger.Log.Debug("render messages",
		zap.Int64("roomID", roomID), zap.Int("count", len(msgs)), zap.String("lastAt", last))
}

func (*logRenderer) RenderTyping(roomID int64, active bool) {
	logger.Log.Debug("render typing", zap.Int64("roomID", roomID), zap.Bool("active", active))
}

func (*logRenderer) RenderBadge(total int) {
	logger.Log.Info("render badge", zap.Int("total", total))
}
