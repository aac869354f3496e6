package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5/pgxpool"

	"flowstack/backend/internal/config"
	"flowstack/backend/internal/repository"
	"flowstack/backend/pkg/models"
)

// Seeds one demo workflow: a single LLM engine node with both augmentations
// off, matching what the visual editor produces for a fresh canvas.
func main() {
	envFile := flag.String("env", "", "Path to .env file")
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.LoadConfig(*envFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL())
	if err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}
	defer pool.Close()

	if err := repository.Migrate(ctx, pool); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	store := repository.NewPostgresStore(pool)

	definition := models.WorkflowDefinition{
		Nodes: []models.Node{
			{
				ID:       "llm-1",
				Type:     models.NodeTypeLLMEngine,
				Position: models.Position{X: 250, Y: 150},
				Data: map[string]any{
					"label":                        "LLM Engine",
					models.DataKeyLLMProvider:      "openai",
					models.DataKeyUseKnowledgeBase: false,
					models.DataKeyUseSearch:        false,
				},
			},
		},
		Edges: []models.Edge{},
	}

	wf, err := store.CreateWorkflow(ctx, "Demo Workflow", definition)
	if err != nil {
		log.Fatalf("Failed to seed workflow: %v", err)
	}

	fmt.Printf("Seeded workflow %d (%s)\n", wf.ID, wf.Name)
}
