package main

import (
	"flag"
	"log"
	"net/http"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"github.com/example/pathforge/internal/api"
	"github.com/example/pathforge/internal/config"
	"github.com/example/pathforge/internal/orchestrator"
	"github.com/example/pathforge/internal/providers/llm"
	"github.com/example/pathforge/internal/registry"
	"github.com/example/pathforge/internal/sandbox"
	"github.com/example/pathforge/internal/tasks"
)

func main() {
	_ = godotenv.Load()

	cfgPath := flag.String("config", envOr("PATHFORGE_CONFIG", "config.yaml"), "path to YAML config")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatal(err)
	}
	if v := os.Getenv("PORT"); v != "" {
		cfg.Server.Addr = ":" + v
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Registry.Path), 0o755); err != nil {
		log.Fatal(err)
	}
	reg, err := registry.Open(cfg.Registry.Path)
	if err != nil {
		log.Fatal(err)
	}
	defer reg.Close()

	mgr := tasks.NewManager()
	sb := &sandbox.Executor{Timeout: cfg.Sandbox.Timeout(), MaxSteps: cfg.Sandbox.MaxSteps}
	orch := orchestrator.New(llm.NewFromEnv(), sb, mgr, reg, cfg.Fixer.MaxIterations)

	mux := http.NewServeMux()
	api.New(orch, mgr, reg).RegisterRoutes(mux)

	log.Printf("server listening on %s", cfg.Server.Addr)
	if err := http.ListenAndServe(cfg.Server.Addr, cors(mux)); err != nil {
		log.Fatal(err)
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// simple CORS middleware for local dev
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
