package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/joho/godotenv"
	"github.com/spillit/spillit/internal/auth"
	"github.com/spillit/spillit/internal/chat"
	"github.com/spillit/spillit/internal/handler"
	"github.com/spillit/spillit/internal/persistence/mongodb"
	"github.com/spillit/spillit/internal/server"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.uber.org/zap"
)

type App struct {
	logger          *zap.Logger
	settings        Settings
	store           *mongodb.Store
	websocketServer *server.WebSocketServer
	restServer      *server.RESTServer
}

func NewApp(logger *zap.Logger, settings Settings, mongoClient *mongo.Client) *App {
	originChecker := server.NewOriginChecker(logger, settings.AllowedOrigins)
	websocketUpgrader := &websocket.Upgrader{
		ReadBufferSize:    1024,
		WriteBufferSize:   1024,
		CheckOrigin:       originChecker.Check,
		EnableCompression: true,
	}

	sessions := auth.NewSessionManager(
		settings.JWTSecret,
		time.Duration(settings.SessionTTLMinutes)*time.Minute,
	)

	store := mongodb.NewStore(mongoClient)

	registry := chat.NewRegistry(logger)
	rooms := chat.NewRooms(logger)
	broadcaster := chat.NewBroadcaster(logger, rooms)
	presence := chat.NewPresence(broadcaster)
	reconciler := chat.NewReconciler(logger, registry, rooms, presence)

	roomNameValidator := handler.NewRoomNameValidator()

	heartbeatHandler := handler.NewHeartbeatHandler()
	joinRoomHandler := handler.NewJoinRoomHandler(roomNameValidator, rooms, presence)
	leaveRoomHandler := handler.NewLeaveRoomHandler(roomNameValidator, rooms, presence)
	chatMessageHandler := handler.NewChatMessageHandler(roomNameValidator, registry, rooms, broadcaster, reconciler)

	router := server.NewRouter(
		logger,
		heartbeatHandler,
		joinRoomHandler,
		leaveRoomHandler,
		chatMessageHandler,
	)

	websocketServer := server.NewWebSocketServer(
		logger,
		websocketUpgrader,
		sessions,
		registry,
		reconciler,
		router,
	)
	restServer := server.NewRESTServer(
		logger,
		store,
		sessions,
	)

	return &App{
		logger,
		settings,
		store,
		websocketServer,
		restServer,
	}
}

func (a *App) setup(ctx context.Context) error {
	err := a.store.Setup(ctx)
	if err != nil {
		return err
	}

	a.startHttpServer(ctx)

	return nil
}

func (a *App) startHttpServer(ctx context.Context) {
	notifyCtx, notifyCtxCancel := signal.NotifyContext(ctx, syscall.SIGTERM, syscall.SIGINT)
	defer notifyCtxCancel()

	address := fmt.Sprintf("0.0.0.0:%d", a.settings.Port)

	router := mux.NewRouter().
		PathPrefix(a.settings.BasePath).
		Subrouter()

	a.websocketServer.Register(router)
	a.restServer.Register(router)

	httpServer := &http.Server{
		Addr:    address,
		Handler: router,
	}

	a.logger.Info("starting http server",
		zap.String("address", address))

	go func() {
		err := httpServer.ListenAndServe()

		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Fatal("failed to start http server",
				zap.Error(err))
		}
	}()

	<-notifyCtx.Done()

	a.logger.Info("stopping http server")

	shutdownCtx, shutdownCtxCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCtxCancel()

	err := httpServer.Shutdown(shutdownCtx)
	if err != nil {
		a.logger.Fatal("http server shutdown failed",
			zap.Error(err))
	}

	a.logger.Info("http server stopped")
}

func main() {
	ctx := context.Background()

	godotenv.Load()

	var settings Settings
	_, err := env.UnmarshalFromEnviron(&settings)
	if err != nil {
		panic(err)
	}

	logger, err := buildZapLogger(settings.LogEncoding)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	mongoClient, err := mongo.Connect(options.Client().ApplyURI(settings.MongoURI))
	if err != nil {
		logger.Fatal("failed to connect to mongodb", zap.Error(err))
	}
	defer mongoClient.Disconnect(ctx)

	app := NewApp(logger, settings, mongoClient)

	err = app.setup(ctx)
	if err != nil {
		logger.Fatal("failed to setup", zap.Error(err))
	}
}
