package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/salonkit/salonkit/internal/config"
	"github.com/salonkit/salonkit/internal/conversation"
	"github.com/salonkit/salonkit/internal/llm"
	"github.com/salonkit/salonkit/internal/msglog"
	"github.com/salonkit/salonkit/internal/tools"
)

// terminateSentinels short-circuit the whole turn: the conversation is
// abandoned without any LLM involvement.
var terminateSentinels = map[string]bool{
	"终止":        true,
	"terminate": true,
}

// Orchestrator drives conversations: one ProcessMessage call is one
// user turn, covering the LLM rounds, tool execution, log writes and
// step advancement.
type Orchestrator struct {
	conversations *conversation.Store
	logStore      *msglog.Store
	registry      *tools.Registry
	provider      llm.Provider
	model         string
	cfg           config.AgentConfig

	// The log's archive is a read-modify-write, so at most one turn may
	// be in flight per conversation.
	mu    sync.Mutex
	turns map[string]*sync.Mutex
}

// New creates an Orchestrator.
func New(conversations *conversation.Store, logStore *msglog.Store,
	registry *tools.Registry, provider llm.Provider, model string,
	cfg config.AgentConfig) *Orchestrator {
	if cfg.MaxRounds <= 0 {
		cfg.MaxRounds = 8
	}
	if len(cfg.StallPhrases) == 0 {
		cfg.StallPhrases = config.DefaultStallPhrases
	}
	return &Orchestrator{
		conversations: conversations,
		logStore:      logStore,
		registry:      registry,
		provider:      provider,
		model:         model,
		cfg:           cfg,
		turns:         make(map[string]*sync.Mutex),
	}
}

func (o *Orchestrator) turnLock(conversationID string) *sync.Mutex {
	o.mu.Lock()
	defer o.mu.Unlock()
	l, ok := o.turns[conversationID]
	if !ok {
		l = &sync.Mutex{}
		o.turns[conversationID] = l
	}
	return l
}

// CreateConversation starts a conversation and returns it with the
// fixed opening greeting. The greeting is written directly to the log;
// no model call is involved.
func (o *Orchestrator) CreateConversation(ctx context.Context, ownerID string) (*conversation.Conversation, *AssistantTurn, error) {
	conv, err := o.conversations.Create(ctx, ownerID)
	if err != nil {
		return nil, nil, err
	}

	conv.FilePath = o.logStore.FilePath(conv.ID)
	if err := o.conversations.Update(ctx, conv); err != nil {
		return nil, nil, err
	}

	o.logStore.Append(conv.ID, msglog.Entry{
		Step:    conv.CurrentStep,
		Role:    llm.RoleAssistant,
		Content: openingMessage,
	})

	turn := &AssistantTurn{
		MessageText:  openingMessage,
		QuickReplies: openingQuickReplies,
		UIHint:       UIHintNone,
		CurrentStep:  conv.CurrentStep,
		Context:      conv.Context,
	}
	return conv, turn, nil
}

// ProcessMessage runs one user turn through the reasoning loop.
func (o *Orchestrator) ProcessMessage(ctx context.Context, conversationID, ownerID, content string, imagePaths []string) (*AssistantTurn, error) {
	l := o.turnLock(conversationID)
	l.Lock()
	defer l.Unlock()

	conv, err := o.conversations.Get(ctx, conversationID, ownerID)
	if err != nil {
		return nil, err
	}
	if conv.Status != conversation.StatusActive {
		return nil, conversation.ErrNotActive
	}

	// Fast-path escape hatch: must work even with the LLM unavailable.
	if terminateSentinels[strings.TrimSpace(content)] {
		conv.Status = conversation.StatusAbandoned
		if err := o.conversations.Update(ctx, conv); err != nil {
			return nil, err
		}
		return &AssistantTurn{
			MessageText:  "已终止本次服务流程。如需开始新的服务，请重新发起会话。",
			QuickReplies: []string{},
			UIHint:       UIHintNone,
			CurrentStep:  StepDone,
		}, nil
	}

	step := conv.CurrentStep

	messages := []llm.ChatMessage{{Role: llm.RoleSystem, Content: buildSystemPrompt(conv)}}
	messages = append(messages, toChatMessages(o.logStore.ReadStep(conv.ID, step))...)

	userContent := content
	if len(imagePaths) > 0 {
		userContent += fmt.Sprintf("\n[已附带图片: %s]", strings.Join(imagePaths, ", "))
	}
	o.logStore.Append(conv.ID, msglog.Entry{Step: step, Role: llm.RoleUser, Content: userContent})
	messages = append(messages, llm.ChatMessage{Role: llm.RoleUser, Content: userContent})

	preDesignID := conv.Context.DesignPlanID

	resp, err := o.runRounds(ctx, conv, step, messages)
	if err != nil {
		return nil, err
	}

	parsed := parseAnswer(resp.Content)
	o.applyOverrides(conv, preDesignID, &parsed)

	meta, err := json.Marshal(uiMetadata{
		QuickReplies:     parsed.QuickReplies,
		UIHint:           parsed.UIHint,
		UIData:           parsed.UIData,
		NeedsImageUpload: parsed.NeedsImageUpload,
	})
	if err != nil {
		meta = nil
	}
	o.logStore.Append(conv.ID, msglog.Entry{
		Step:       step,
		Role:       llm.RoleAssistant,
		Content:    parsed.MessageText,
		UIMetadata: meta,
	})

	conv.UpsertSummary(step, parsed.StepSummary)

	if parsed.StepComplete {
		o.logStore.ArchiveStep(conv.ID, step)
		conv.CurrentStep = nextStep(step)
		if conv.CurrentStep == StepDone {
			conv.Status = conversation.StatusCompleted
			now := time.Now().UTC()
			conv.CompletedAt = &now
		}
	}

	if err := o.conversations.Update(ctx, conv); err != nil {
		return nil, err
	}

	quickReplies := parsed.QuickReplies
	if quickReplies == nil {
		quickReplies = []string{}
	}
	return &AssistantTurn{
		MessageText:      parsed.MessageText,
		QuickReplies:     quickReplies,
		UIHint:           parsed.UIHint,
		UIData:           parsed.UIData,
		NeedsImageUpload: parsed.NeedsImageUpload,
		StepComplete:     parsed.StepComplete,
		CurrentStep:      conv.CurrentStep,
		Context:          conv.Context,
	}, nil
}

// runRounds is the bounded tool-calling loop. Tools in one round run
// sequentially in requested order because later calls may depend on
// context writes from earlier ones.
func (o *Orchestrator) runRounds(ctx context.Context, conv *conversation.Conversation, step string, messages []llm.ChatMessage) (*llm.ChatResponse, error) {
	call := &tools.Call{OwnerID: conv.OwnerID, Conversation: conv}
	resp := &llm.ChatResponse{}

	for round := 0; round < o.cfg.MaxRounds; round++ {
		var err error
		resp, err = o.chat(ctx, messages, false)
		if err != nil {
			return nil, err
		}

		toolCalls := resp.ToolCalls
		if len(toolCalls) == 0 {
			if round == 0 && conv.Context.DesignPlanID == "" && o.looksLikeStall(resp.Content) {
				log.Printf("agent: [%s] model stalled in text instead of calling a tool, forcing retry: %.80q",
					conv.ID, resp.Content)
				messages = append(messages,
					llm.ChatMessage{Role: llm.RoleAssistant, Content: resp.Content},
					llm.ChatMessage{Role: llm.RoleUser, Content: "请立即调用工具执行，不要输出任何文字。"},
				)
				resp, err = o.chat(ctx, messages, true)
				if err != nil {
					return nil, err
				}
				toolCalls = resp.ToolCalls
				if len(toolCalls) == 0 {
					log.Printf("agent: [%s] still no tool call after forced retry, giving up", conv.ID)
					return resp, nil
				}
			} else {
				return resp, nil
			}
		}

		assistantEntry := msglog.Entry{Step: step, Role: llm.RoleAssistant, ToolCalls: toolCalls}
		o.logStore.Append(conv.ID, assistantEntry)
		messages = append(messages, llm.ChatMessage{
			Role:      llm.RoleAssistant,
			Content:   resp.Content,
			ToolCalls: toolCalls,
		})

		for _, tc := range toolCalls {
			args := json.RawMessage(tc.Function.Arguments)
			log.Printf("agent: [%s] executing tool %s", conv.ID, tc.Function.Name)
			result := o.registry.Execute(ctx, tc.Function.Name, args, call)

			o.logStore.Append(conv.ID, msglog.Entry{
				Step:       step,
				Role:       llm.RoleTool,
				ToolCallID: tc.ID,
				Name:       tc.Function.Name,
				Content:    result,
			})
			messages = append(messages, llm.ChatMessage{
				Role:       llm.RoleTool,
				ToolCallID: tc.ID,
				Name:       tc.Function.Name,
				Content:    result,
			})
		}
	}
	return resp, nil
}

func (o *Orchestrator) chat(ctx context.Context, messages []llm.ChatMessage, forceTool bool) (*llm.ChatResponse, error) {
	return o.provider.Chat(ctx, llm.ChatRequest{
		Model:       o.model,
		Messages:    messages,
		Tools:       o.registry.Definitions(),
		ForceTool:   forceTool,
		Temperature: o.cfg.Temperature,
	})
}

// looksLikeStall reports whether model text announces an action instead
// of performing it. The phrase list is deployment-specific configuration.
func (o *Orchestrator) looksLikeStall(content string) bool {
	if content == "" {
		return false
	}
	lower := strings.ToLower(content)
	for _, phrase := range o.cfg.StallPhrases {
		if strings.Contains(lower, strings.ToLower(phrase)) {
			return true
		}
	}
	return false
}

// applyOverrides enforces state-derived UI signals that must not depend
// on the model's own output.
func (o *Orchestrator) applyOverrides(conv *conversation.Conversation, preDesignID string, parsed *answer) {
	c := conv.Context

	// A tool produced a new design this turn: always show the preview.
	if c.DesignPlanID != "" && c.DesignPlanID != preDesignID && c.DesignImageURL != "" {
		uiData := map[string]any{
			"design_id": c.DesignPlanID,
			"image_url": c.DesignImageURL,
		}
		if keywords, ok := parsed.UIData["style_keywords"]; ok {
			uiData["style_keywords"] = keywords
		}
		parsed.UIHint = UIHintDesignPreview
		parsed.UIData = uiData
	}

	// The result photo is already in hand: never ask for it again.
	if c.ActualImagePath != "" && parsed.NeedsImageUpload {
		log.Printf("agent: [%s] clearing needs_image_upload, photo already uploaded", conv.ID)
		parsed.NeedsImageUpload = false
	}
}

// HandleUpload records an uploaded image in the conversation context,
// notes it in the log, and runs a turn so the assistant reacts to it.
func (o *Orchestrator) HandleUpload(ctx context.Context, conversationID, ownerID, savedPath, purpose string) (*AssistantTurn, error) {
	conv, err := o.conversations.Get(ctx, conversationID, ownerID)
	if err != nil {
		return nil, err
	}
	if conv.Status != conversation.StatusActive {
		return nil, conversation.ErrNotActive
	}

	var uploadMessage string
	switch purpose {
	case UploadInspiration:
		conv.Context.InspirationPaths = append(conv.Context.InspirationPaths, savedPath)
		uploadMessage = "我上传了一张参考灵感图。"
	case UploadActual:
		conv.Context.ActualImagePath = savedPath
		uploadMessage = "我上传了一张实拍完成图。"
	default:
		return nil, fmt.Errorf("unknown upload purpose %q", purpose)
	}

	if err := o.conversations.Update(ctx, conv); err != nil {
		return nil, err
	}

	o.logStore.Append(conv.ID, msglog.Entry{
		Step:    conv.CurrentStep,
		Role:    llm.RoleSystem,
		Content: fmt.Sprintf("[用户上传了 %s 图片，路径: %s]", purpose, savedPath),
	})

	return o.ProcessMessage(ctx, conversationID, ownerID, uploadMessage, []string{savedPath})
}

// History returns the full message log including archived steps.
func (o *Orchestrator) History(ctx context.Context, conversationID, ownerID string) ([]msglog.Entry, error) {
	if _, err := o.conversations.Get(ctx, conversationID, ownerID); err != nil {
		return nil, err
	}
	return o.logStore.ReadFull(conversationID), nil
}

// toChatMessages converts log entries into the LLM wire format.
func toChatMessages(entries []msglog.Entry) []llm.ChatMessage {
	var messages []llm.ChatMessage
	for _, entry := range entries {
		switch entry.Role {
		case llm.RoleUser, llm.RoleSystem:
			messages = append(messages, llm.ChatMessage{Role: entry.Role, Content: entry.Content})
		case llm.RoleAssistant:
			messages = append(messages, llm.ChatMessage{
				Role:      llm.RoleAssistant,
				Content:   entry.Content,
				ToolCalls: entry.ToolCalls,
			})
		case llm.RoleTool:
			messages = append(messages, llm.ChatMessage{
				Role:       llm.RoleTool,
				ToolCallID: entry.ToolCallID,
				Name:       entry.Name,
				Content:    entry.Content,
			})
		}
	}
	return messages
}
