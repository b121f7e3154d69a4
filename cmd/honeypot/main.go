package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/joho/godotenv"

	"github.com/RajB-1003/AI-Agentic-Honeypot/pkg/config"
	"github.com/RajB-1003/AI-Agentic-Honeypot/pkg/guard"
	"github.com/RajB-1003/AI-Agentic-Honeypot/pkg/intel"
	"github.com/RajB-1003/AI-Agentic-Honeypot/pkg/memory"
	"github.com/RajB-1003/AI-Agentic-Honeypot/pkg/persona"
	"github.com/RajB-1003/AI-Agentic-Honeypot/pkg/pipeline"
	"github.com/RajB-1003/AI-Agentic-Honeypot/pkg/store"
)

const Version = "0.1.0"

func main() {
	// .env is optional; real deployments set the environment directly.
	if err := godotenv.Load(); err == nil {
		log.Println("[STARTUP] Loaded environment from .env")
	}

	cfg := config.NewDefaultConfig()
	cfg.MustValidate()

	rules, err := guard.LoadRules(cfg.RulesPath)
	if err != nil {
		log.Fatalf("[STARTUP] FATAL: %v", err)
	}

	threats := newStore(cfg)
	classifier := newClassifier(cfg, rules)
	responder := newPersona(cfg)

	p := pipeline.New(
		intel.NewExtractor(rules.Triggers),
		memory.NewSessions(cfg.MaxSessions),
		memory.NewActivity(cfg.ActivityLogSize),
		threats,
		classifier,
		responder,
	)

	app := newApp(cfg, p)

	// Graceful shutdown on SIGINT/SIGTERM: stop accepting, drain, then
	// close the store.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Printf("[STARTUP] Agentic honeypot v%s listening on :%s", Version, cfg.Port)
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Fatalf("[STARTUP] FATAL: server failed: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("[SHUTDOWN] Signal received, draining connections")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("[SHUTDOWN] Server shutdown error: %v", err)
	}
	if threats != nil {
		if err := threats.Close(); err != nil {
			log.Printf("[SHUTDOWN] Store close error: %v", err)
		}
	}
	log.Println("[SHUTDOWN] Done")
}

// newStore opens the configured indicator store. A backend that cannot
// be reached disables the known-database tier instead of killing the
// process; the session and classifier tiers keep working.
func newStore(cfg *config.Config) store.Store {
	switch cfg.StoreBackend {
	case config.BackendRedis:
		s, err := store.NewRedis(cfg.RedisAddr, cfg.RedisDB)
		if err != nil {
			log.Printf("○ Indicator store disabled (redis at %s: %v)", cfg.RedisAddr, err)
			return nil
		}
		log.Printf("✓ Indicator store enabled (redis at %s)", cfg.RedisAddr)
		return s

	case config.BackendPostgres:
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s, err := store.NewPostgres(ctx, cfg.PostgresDSN)
		if err != nil {
			log.Printf("○ Indicator store disabled (postgres: %v)", err)
			return nil
		}
		log.Println("✓ Indicator store enabled (postgres)")
		return s

	default:
		s, err := store.NewSQLite(cfg.SQLitePath)
		if err != nil {
			log.Printf("○ Indicator store disabled (sqlite at %s: %v)", cfg.SQLitePath, err)
			return nil
		}
		log.Printf("✓ Indicator store enabled (sqlite at %s)", cfg.SQLitePath)
		return s
	}
}

// newClassifier selects the scam-detection strategy. "auto" prefers the
// local ONNX model, then embedding similarity, then keywords; explicit
// strategies fall back to keywords when their dependency is missing.
// Keywords always work, so the guard tier never goes dark.
func newClassifier(cfg *config.Config, rules *guard.Rules) guard.Classifier {
	tryModel := func() guard.Classifier {
		mc := guard.AutoDetectModelConfig()
		if mc == nil {
			log.Println("○ Model guard unavailable (no ONNX model found)")
			return nil
		}
		m := guard.NewModelWithFallback(*mc)
		if !m.IsReady() {
			log.Println("○ Model guard unavailable (initialization failed)")
			return nil
		}
		log.Println("✓ Scam guard: model (hugot/ONNX)")
		return m
	}

	trySemantic := func() guard.Classifier {
		s, err := guard.NewSemantic(cfg.OllamaBaseURL)
		if err != nil {
			log.Printf("○ Semantic guard unavailable (init failed: %v)", err)
			return nil
		}
		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		defer cancel()
		if err := s.LoadScripts(ctx, rules.ScamScripts); err != nil {
			log.Printf("○ Semantic guard unavailable (script load failed: %v)", err)
			return nil
		}
		log.Println("✓ Scam guard: semantic (chromem-go + Ollama embeddings)")
		return s
	}

	keyword := func() guard.Classifier {
		log.Println("✓ Scam guard: keyword heuristics")
		return guard.NewKeyword(rules.ScamPhrases)
	}

	switch cfg.GuardStrategy {
	case config.GuardModel:
		if c := tryModel(); c != nil {
			return c
		}
	case config.GuardSemantic:
		if c := trySemantic(); c != nil {
			return c
		}
	case config.GuardKeyword:
	default: // auto
		if c := tryModel(); c != nil {
			return c
		}
		if c := trySemantic(); c != nil {
			return c
		}
	}
	return keyword()
}

func newPersona(cfg *config.Config) *persona.Engine {
	profile, err := persona.LoadProfile(cfg.PersonaPath)
	if err != nil {
		log.Fatalf("[STARTUP] FATAL: %v", err)
	}

	if cfg.PersonaAPIKey != "" {
		log.Printf("✓ Persona engine: %s via %s", profile.Name, cfg.PersonaBaseURL)
	} else {
		log.Printf("○ Persona engine degraded: %s has no API key, fallback lines only", profile.Name)
	}

	return persona.NewEngine(persona.Config{
		APIKey:      cfg.PersonaAPIKey,
		BaseURL:     cfg.PersonaBaseURL,
		Model:       cfg.PersonaModel,
		Timeout:     cfg.PersonaTimeout,
		MaxInFlight: cfg.PersonaMaxInFlight,
		History:     cfg.PersonaHistory,
		MaxSessions: cfg.MaxSessions,
		Profile:     &profile,
	})
}

type chatRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

func newApp(cfg *config.Config, p *pipeline.Pipeline) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName: "Agentic Honeypot",
	})

	// The dashboard frontend polls from another origin.
	app.Use(cors.New())

	// Health check
	app.Get("/", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "running"})
	})

	// Live logs for the frontend polling. Open, like the health check.
	app.Get("/dashboard-data", func(c fiber.Ctx) error {
		entries := p.Activity()
		if entries == nil {
			entries = []memory.ActivityEntry{}
		}
		return c.JSON(entries)
	})

	app.Post("/chat", func(c fiber.Ctx) error {
		if cfg.APISecretKey != "" && c.Get("x-api-key") != cfg.APISecretKey {
			return c.Status(403).JSON(fiber.Map{"detail": "Invalid API Key"})
		}

		var req chatRequest
		if err := c.Bind().Body(&req); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid request"})
		}
		if req.SessionID == "" || req.Message == "" {
			return c.Status(400).JSON(fiber.Map{"error": "session_id and message are required"})
		}

		res := p.Handle(c.Context(), req.SessionID, req.Message)

		if !res.Engaged {
			return c.JSON(fiber.Map{
				"response":     res.Reply,
				"intelligence": res.Intelligence,
				"status":       "ignored",
			})
		}
		return c.JSON(fiber.Map{
			"response":     res.Reply,
			"intelligence": res.Intelligence,
			"status":       "engaged",
			"source":       res.ThreatSource,
		})
	})

	return app
}
