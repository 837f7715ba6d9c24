package main

import (
	"context"
	"log"
	"time"

	"whatsapp-composer/internal/api"
	"whatsapp-composer/internal/config"
	"whatsapp-composer/internal/database"
	"whatsapp-composer/internal/events"
	"whatsapp-composer/internal/llm"
	"whatsapp-composer/internal/meta"

	"github.com/gin-gonic/gin"
)

func main() {
	cfg := config.LoadConfig()
	database.Init(cfg)

	rules, err := config.NewStore(cfg.RulesPath)
	if err != nil {
		log.Fatalf("Failed to load rules: %v", err)
	}
	if err := rules.Watch(); err != nil {
		log.Printf("Rules hot-reload disabled: %v", err)
	}

	var gen llm.Generator
	if cfg.GeminiAPIKey != "" {
		gen, err = llm.NewGeminiClient(context.Background(), cfg.GeminiAPIKey, cfg.GeminiModel,
			time.Duration(cfg.GeneratorTimeoutSeconds)*time.Second)
		if err != nil {
			log.Fatalf("Failed to create generator client: %v", err)
		}
	} else {
		log.Println("GEMINI_API_KEY not set, using built-in deterministic generator")
		gen = llm.Mock{}
	}

	publisher, err := events.New(cfg.AMQPURL, cfg.AMQPExchange)
	if err != nil {
		log.Printf("Event publishing disabled: %v", err)
		publisher = events.Noop{}
	}
	defer publisher.Close()

	metaClient := meta.NewClient(cfg)

	r := gin.Default()

	// CORS Middleware
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	chatHandler := api.NewChatHandler(database.DB, rules, gen, publisher, cfg)
	sessionHandler := api.NewSessionHandler(database.DB)
	templateHandler := api.NewTemplateHandler(database.DB, metaClient)
	systemHandler := api.NewSystemHandler(rules)

	r.GET("/health", systemHandler.Health)
	r.GET("/welcome", systemHandler.Welcome)
	r.POST("/chat", chatHandler.Chat)

	apiGroup := r.Group("/api")
	{
		apiGroup.GET("/sessions/:id", sessionHandler.GetSession)
		apiGroup.GET("/sessions/:id/history", sessionHandler.GetHistory)
		apiGroup.POST("/sessions/:id/reset", sessionHandler.ResetSession)

		apiGroup.GET("/templates", templateHandler.ListFinalized)
		apiGroup.POST("/templates/:id/submit", templateHandler.Submit)
		apiGroup.GET("/templates/meta", templateHandler.ListRemote)
		apiGroup.DELETE("/templates/meta/:name", templateHandler.DeleteRemote)

		apiGroup.POST("/config/reload", systemHandler.ReloadRules)
	}

	log.Printf("Server starting on port %s", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Failed to run server: %v", err)
	}
}
