package models

import (
	"time"
)

// Execution-entry node types recognized by the executor. A graph may contain
// any number of other node types (documents, knowledge bases, outputs); only
// these drive response generation.
const (
	NodeTypeLLMEngine = "llmEngine"
	NodeTypeLLM       = "llm"
)

// Keys the executor reads off an execution-entry node's Data map. All are
// optional; missing keys fall back to defaults.
const (
	DataKeyUseKnowledgeBase = "use_knowledge_base"
	DataKeyUseSearch        = "use_search"
	DataKeyLLMProvider      = "llm_provider"
	DataKeyModel            = "model"
)

// Workflow represents a persisted node/edge graph built in the visual editor.
type Workflow struct {
	ID         int                `json:"id"`
	Name       string             `json:"name"`
	Definition WorkflowDefinition `json:"definition"`
	CreatedAt  time.Time          `json:"created_at"`
}

// WorkflowDefinition is the canonical in-memory shape of the JSONB definition
// column. It is always `{nodes, edges}`.
type WorkflowDefinition struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Node is a typed, configurable unit within a workflow graph. Data is an open
// mapping so editor-authored graphs stay forward/backward compatible; no
// schema beyond type-shape is enforced for node configuration.
type Node struct {
	ID       string         `json:"id"`
	Type     string         `json:"type"`
	Position Position       `json:"position"`
	Data     map[string]any `json:"data"`
	Width    *int           `json:"width,omitempty"`
	Height   *int           `json:"height,omitempty"`
}

// Position is the node's placement on the editor canvas.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Edge is a drawn connection between two nodes. Edges are persisted with the
// graph but are not traversed during execution.
type Edge struct {
	ID           string  `json:"id"`
	Source       string  `json:"source"`
	Target       string  `json:"target"`
	SourceHandle *string `json:"sourceHandle,omitempty"`
	TargetHandle *string `json:"targetHandle,omitempty"`
}

// WorkflowUpdate carries a partial update. Nil fields are left untouched.
type WorkflowUpdate struct {
	Name       *string             `json:"name,omitempty"`
	Definition *WorkflowDefinition `json:"definition,omitempty"`
}
