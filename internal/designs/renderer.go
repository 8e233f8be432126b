package designs

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/salonkit/salonkit/internal/llm"
)

// ImageRenderer generates design images with the OpenAI image API and
// estimates execution effort with a chat model in JSON mode.
type ImageRenderer struct {
	client     *openai.Client
	provider   llm.Provider
	chatModel  string
	uploadsDir string
}

// NewImageRenderer creates a renderer that stores generated images under
// uploadsDir/designs.
func NewImageRenderer(apiKey string, provider llm.Provider, chatModel, uploadsDir string) *ImageRenderer {
	return &ImageRenderer{
		client:     openai.NewClient(apiKey),
		provider:   provider,
		chatModel:  chatModel,
		uploadsDir: uploadsDir,
	}
}

func (r *ImageRenderer) Render(ctx context.Context, req RenderRequest) (string, error) {
	prompt := buildImagePrompt(req)

	resp, err := r.client.CreateImage(ctx, openai.ImageRequest{
		Prompt:         prompt,
		Model:          openai.CreateImageModelDallE3,
		Size:           openai.CreateImageSize1024x1024,
		ResponseFormat: openai.CreateImageResponseFormatB64JSON,
		N:              1,
	})
	if err != nil {
		return "", fmt.Errorf("image generation: %w", err)
	}
	if len(resp.Data) == 0 {
		return "", fmt.Errorf("image generation returned no data")
	}

	raw, err := base64.StdEncoding.DecodeString(resp.Data[0].B64JSON)
	if err != nil {
		return "", fmt.Errorf("decoding generated image: %w", err)
	}

	dir := filepath.Join(r.uploadsDir, "designs")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating designs directory: %w", err)
	}

	sum := sha256.Sum256(raw)
	name := hex.EncodeToString(sum[:8]) + ".png"
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return "", fmt.Errorf("writing generated image: %w", err)
	}
	return path, nil
}

func (r *ImageRenderer) Estimate(ctx context.Context, imagePath string) (Estimate, error) {
	resp, err := r.provider.Complete(ctx, llm.CompletionRequest{
		Model: r.chatModel,
		Messages: []llm.ChatMessage{
			{Role: llm.RoleSystem, Content: "You estimate how long a nail design takes a professional artist to execute. Respond with JSON: {\"estimated_duration\": minutes, \"difficulty_level\": \"easy|medium|hard\", \"materials\": \"comma separated list\"}."},
			{Role: llm.RoleUser, Content: "Estimate the design stored at " + imagePath + "."},
		},
		JSONMode: true,
	})
	if err != nil {
		return Estimate{}, fmt.Errorf("estimating execution: %w", err)
	}

	var parsed struct {
		EstimatedDuration int    `json:"estimated_duration"`
		DifficultyLevel   string `json:"difficulty_level"`
		Materials         string `json:"materials"`
	}
	if err := json.Unmarshal([]byte(resp.Content), &parsed); err != nil {
		log.Printf("designs: unparseable estimate, using defaults: %v", err)
		return Estimate{Duration: 60, Difficulty: "medium"}, nil
	}
	return Estimate{
		Duration:   parsed.EstimatedDuration,
		Difficulty: parsed.DifficultyLevel,
		Materials:  parsed.Materials,
	}, nil
}

func buildImagePrompt(req RenderRequest) string {
	var b strings.Builder
	switch req.DesignTarget {
	case TargetSingle:
		b.WriteString("Close-up of a single manicured nail. ")
	case TargetFive:
		b.WriteString("One hand with five manicured nails. ")
	default:
		b.WriteString("Both hands with ten manicured nails. ")
	}
	b.WriteString(req.Prompt)
	if req.Instruction != "" {
		b.WriteString(" Refinement: ")
		b.WriteString(req.Instruction)
	}
	if len(req.ReferenceImages) > 0 {
		b.WriteString(" Style reference count: ")
		fmt.Fprintf(&b, "%d", len(req.ReferenceImages))
	}
	return b.String()
}

// StubRenderer produces deterministic placeholder paths without calling
// any external API. Used in tests and offline development.
type StubRenderer struct {
	// Dir, when set, is where placeholder files are actually written.
	Dir string
}

func (r *StubRenderer) Render(_ context.Context, req RenderRequest) (string, error) {
	sum := sha256.Sum256([]byte(req.Prompt + "|" + req.Instruction + "|" + req.DesignTarget))
	name := "design-" + hex.EncodeToString(sum[:8]) + ".png"
	if r.Dir == "" {
		return filepath.Join("designs", name), nil
	}
	path := filepath.Join(r.Dir, name)
	if err := os.WriteFile(path, []byte("placeholder"), 0o644); err != nil {
		return "", err
	}
	return path, nil
}

func (r *StubRenderer) Estimate(context.Context, string) (Estimate, error) {
	return Estimate{Duration: 90, Difficulty: "medium", Materials: "gel polish, top coat"}, nil
}
