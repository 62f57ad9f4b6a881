package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/VarunDhamode/SciEquip-Website/realtime"
	"github.com/VarunDhamode/SciEquip-Website/routes"
	"github.com/VarunDhamode/SciEquip-Website/services"
	"github.com/VarunDhamode/SciEquip-Website/storage"
	"github.com/VarunDhamode/SciEquip-Website/utils"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kataras/iris/v12"
	"github.com/kataras/iris/v12/middleware/jwt"
)

func main() {
	// Only load .env in development
	if os.Getenv("RENDER") == "" {
		godotenv.Load()
	}

	db, err := storage.Connect(os.Getenv("DB_CONNECTION_STRING"))
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	if err := storage.Migrate(db); err != nil {
		log.Fatalf("migrations: %v", err)
	}
	rdb := storage.NewRedis(os.Getenv("REDIS_URL"))

	presence := services.NewPresenceService(db, rdb)
	hub := realtime.NewHub(presence)
	hubCtx, stopHub := context.WithCancel(context.Background())
	go hub.Run(hubCtx)

	chat := services.NewChatService(db, hub)

	chatHandler := &routes.ChatHandler{Chat: chat}
	presenceHandler := &routes.PresenceHandler{Presence: presence}
	authHandler := &routes.AuthHandler{DB: db}
	rfqHandler := &routes.RFQHandler{DB: db}
	bidHandler := &routes.BidHandler{DB: db}

	app := iris.New()
	app.Validator = validator.New()

	// CORS configuration
	app.AllowMethods(iris.MethodOptions)
	app.UseRouter(func(ctx iris.Context) {
		ctx.Header("Access-Control-Allow-Origin", ctx.GetHeader("Origin"))
		ctx.Header("Vary", "Origin")
		ctx.Header("Access-Control-Allow-Credentials", "true")
		ctx.Header("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Requested-With")
		ctx.Header("Access-Control-Allow-Methods", "GET,POST,PATCH,PUT,DELETE,OPTIONS")
		if ctx.Method() == iris.MethodOptions {
			ctx.StatusCode(iris.StatusNoContent)
			return
		}
		ctx.Next()
	})

	app.Use(iris.Compression)

	accessTokenVerifier := jwt.NewVerifier(jwt.HS256, []byte(os.Getenv("ACCESS_TOKEN_SECRET")))
	accessTokenVerifier.WithDefaultBlocklist()
	accessTokenVerifierMiddleware := accessTokenVerifier.Verify(func() interface{} {
		return new(utils.AccessToken)
	})

	app.Get("/health", func(ctx iris.Context) {
		ctx.JSON(iris.Map{"status": "ok"})
	})

	api := app.Party("/api")
	{
		api.Post("/register", authHandler.Register)
		api.Post("/login", authHandler.Login)
		api.Get("/users", accessTokenVerifierMiddleware, utils.AdminOnlyMiddleware, authHandler.ListUsers)

		api.Get("/rfqs", rfqHandler.ListRFQs)
		api.Post("/rfqs", rfqHandler.CreateRFQ)

		api.Get("/bids", bidHandler.ListBids)
		api.Post("/bids", bidHandler.CreateBid)

		api.Get("/conversations/{userId:uint}/{userType:string}", chatHandler.ListConversations)
		api.Put("/conversations/{conversationId:uint}/read", chatHandler.MarkConversationRead)
		api.Get("/messages/{conversationId:uint}", chatHandler.ListMessages)
		api.Post("/messages", chatHandler.CreateMessage)
		api.Put("/messages/{messageId:uint}/read", chatHandler.MarkMessageRead)

		api.Get("/online-status/{userId:uint}/{userType:string}", presenceHandler.GetOnlineStatus)
	}

	app.Get("/ws", func(ctx iris.Context) {
		hub.ServeWS(ctx.ResponseWriter(), ctx.Request())
	})

	iris.RegisterOnInterrupt(func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		app.Shutdown(shutdownCtx)
		stopHub()
		if err := rdb.Close(); err != nil {
			log.Printf("redis close: %v", err)
		}
		if err := storage.Close(db); err != nil {
			log.Printf("db close: %v", err)
		}
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "3000"
	}
	app.Listen(":"+port, iris.WithoutInterruptHandler)
}
