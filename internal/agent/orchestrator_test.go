package agent

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/salonkit/salonkit/internal/abilities"
	"github.com/salonkit/salonkit/internal/analysis"
	"github.com/salonkit/salonkit/internal/config"
	"github.com/salonkit/salonkit/internal/conversation"
	"github.com/salonkit/salonkit/internal/customers"
	"github.com/salonkit/salonkit/internal/db"
	"github.com/salonkit/salonkit/internal/designs"
	"github.com/salonkit/salonkit/internal/inspirations"
	"github.com/salonkit/salonkit/internal/llm"
	"github.com/salonkit/salonkit/internal/msglog"
	"github.com/salonkit/salonkit/internal/records"
	"github.com/salonkit/salonkit/internal/tools"
)

// scriptedProvider replays a fixed sequence of chat responses and
// records every request it sees.
type scriptedProvider struct {
	responses []*llm.ChatResponse
	requests  []llm.ChatRequest
}

func (s *scriptedProvider) Chat(_ context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	s.requests = append(s.requests, req)
	if len(s.responses) == 0 {
		return &llm.ChatResponse{}, nil
	}
	resp := s.responses[0]
	s.responses = s.responses[1:]
	return resp, nil
}

func (s *scriptedProvider) Complete(context.Context, llm.CompletionRequest) (*llm.CompletionResponse, error) {
	return &llm.CompletionResponse{Content: `{"similarity_score": 80}`}, nil
}

func (s *scriptedProvider) Name() string { return "scripted" }

type fixture struct {
	orchestrator *Orchestrator
	provider     *scriptedProvider
	convStore    *conversation.Store
	logStore     *msglog.Store
	customers    *customers.Store
}

func newFixture(t *testing.T, responses ...*llm.ChatResponse) *fixture {
	t.Helper()
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	provider := &scriptedProvider{responses: responses}

	customerStore := customers.NewStore(database)
	designStore := designs.NewStore(database, &designs.StubRenderer{})
	recordStore := records.NewStore(database)
	abilityStore := abilities.NewStore(database)
	inspirationStore, err := inspirations.NewStore(database, nil)
	if err != nil {
		t.Fatalf("creating inspiration store: %v", err)
	}
	analyzer := analysis.New(database, provider, "gpt-4o", recordStore, designStore, abilityStore)

	registry := tools.NewRegistry(tools.Deps{
		Customers:    customerStore,
		Designs:      designStore,
		Records:      recordStore,
		Abilities:    abilityStore,
		Analyzer:     analyzer,
		Inspirations: inspirationStore,
	})

	convStore := conversation.NewStore(database)
	logStore := msglog.NewStore(t.TempDir())

	return &fixture{
		orchestrator: New(convStore, logStore, registry, provider, "gpt-4o", config.AgentConfig{
			MaxRounds:    8,
			Temperature:  0.7,
			StallPhrases: config.DefaultStallPhrases,
		}),
		provider:  provider,
		convStore: convStore,
		logStore:  logStore,
		customers: customerStore,
	}
}

func textResponse(content string) *llm.ChatResponse {
	return &llm.ChatResponse{Content: content}
}

func toolResponse(id, name, args string) *llm.ChatResponse {
	return &llm.ChatResponse{ToolCalls: []llm.ToolCall{{
		ID:       id,
		Type:     "function",
		Function: llm.FunctionCall{Name: name, Arguments: args},
	}}}
}

func TestCreateConversationOpening(t *testing.T) {
	f := newFixture(t)

	conv, turn, err := f.orchestrator.CreateConversation(context.Background(), "artist-1")
	if err != nil {
		t.Fatalf("CreateConversation: %v", err)
	}
	if turn.MessageText != openingMessage {
		t.Error("expected the fixed opening greeting")
	}
	if len(turn.QuickReplies) != 3 {
		t.Errorf("expected 3 opening quick replies, got %v", turn.QuickReplies)
	}
	if conv.CurrentStep != StepGreeting {
		t.Errorf("expected greeting step, got %q", conv.CurrentStep)
	}
	if len(f.provider.requests) != 0 {
		t.Error("the opening must not involve the LLM")
	}

	// The greeting is in the log.
	entries := f.logStore.ReadStep(conv.ID, StepGreeting)
	if len(entries) != 1 || entries[0].Content != openingMessage {
		t.Errorf("expected opening in log, got %+v", entries)
	}
	if conv.FilePath == "" {
		t.Error("expected log file path recorded on conversation")
	}
}

func TestTerminateSentinelSkipsLLM(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	conv, _, err := f.orchestrator.CreateConversation(ctx, "artist-1")
	if err != nil {
		t.Fatalf("CreateConversation: %v", err)
	}

	turn, err := f.orchestrator.ProcessMessage(ctx, conv.ID, "artist-1", " 终止 ", nil)
	if err != nil {
		t.Fatalf("ProcessMessage: %v", err)
	}
	if turn.CurrentStep != StepDone {
		t.Errorf("expected done step, got %q", turn.CurrentStep)
	}
	if len(f.provider.requests) != 0 {
		t.Error("sentinel must not call the LLM")
	}

	stored, err := f.convStore.Get(ctx, conv.ID, "artist-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if stored.Status != conversation.StatusAbandoned {
		t.Errorf("expected abandoned, got %q", stored.Status)
	}
}

func TestEnglishTerminateSentinel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	conv, _, _ := f.orchestrator.CreateConversation(ctx, "artist-1")
	if _, err := f.orchestrator.ProcessMessage(ctx, conv.ID, "artist-1", "terminate", nil); err != nil {
		t.Fatalf("ProcessMessage: %v", err)
	}
	stored, _ := f.convStore.Get(ctx, conv.ID, "artist-1")
	if stored.Status != conversation.StatusAbandoned {
		t.Errorf("expected abandoned, got %q", stored.Status)
	}
}

func TestPlainAnswerTurn(t *testing.T) {
	f := newFixture(t, textResponse(`{
		"message_text": "好的，请告诉我客户的姓名或手机号。",
		"step_summary": "等待客户信息",
		"step_complete": false,
		"quick_replies": ["查找老客户", "新建客户档案"],
		"ui_hint": "none",
		"needs_image_upload": false
	}`))
	ctx := context.Background()

	conv, _, _ := f.orchestrator.CreateConversation(ctx, "artist-1")
	turn, err := f.orchestrator.ProcessMessage(ctx, conv.ID, "artist-1", "你好", nil)
	if err != nil {
		t.Fatalf("ProcessMessage: %v", err)
	}
	if turn.MessageText != "好的，请告诉我客户的姓名或手机号。" {
		t.Errorf("unexpected message: %q", turn.MessageText)
	}
	if turn.StepComplete || turn.CurrentStep != StepGreeting {
		t.Errorf("step should not advance: %+v", turn)
	}

	// Summary upserted on the conversation.
	stored, _ := f.convStore.Get(ctx, conv.ID, "artist-1")
	if len(stored.StepSummaries) != 1 || stored.StepSummaries[0].Summary != "等待客户信息" {
		t.Errorf("expected step summary persisted, got %+v", stored.StepSummaries)
	}

	// Log has opening, user message, final assistant message.
	entries := f.logStore.ReadStep(conv.ID, StepGreeting)
	if len(entries) != 3 {
		t.Fatalf("expected 3 log entries, got %d", len(entries))
	}
	if entries[2].UIMetadata == nil {
		t.Error("expected ui metadata on final assistant entry")
	}
}

func TestFencedAnswerParsed(t *testing.T) {
	f := newFixture(t, textResponse("```json\n{\"message_text\": \"收到\", \"step_complete\": false}\n```"))
	ctx := context.Background()

	conv, _, _ := f.orchestrator.CreateConversation(ctx, "artist-1")
	turn, err := f.orchestrator.ProcessMessage(ctx, conv.ID, "artist-1", "hi", nil)
	if err != nil {
		t.Fatalf("ProcessMessage: %v", err)
	}
	if turn.MessageText != "收到" {
		t.Errorf("expected fenced JSON extracted, got %q", turn.MessageText)
	}
}

func TestMalformedAnswerDegrades(t *testing.T) {
	f := newFixture(t, textResponse("我不确定下一步该做什么"))
	ctx := context.Background()

	conv, _, _ := f.orchestrator.CreateConversation(ctx, "artist-1")
	turn, err := f.orchestrator.ProcessMessage(ctx, conv.ID, "artist-1", "???", nil)
	if err != nil {
		t.Fatalf("ProcessMessage: %v", err)
	}
	if turn.MessageText != "我不确定下一步该做什么" {
		t.Errorf("expected raw text as message, got %q", turn.MessageText)
	}
	if turn.StepComplete {
		t.Error("degraded answer must not complete the step")
	}
	if len(turn.QuickReplies) != 2 || turn.QuickReplies[0] != "重试" || turn.QuickReplies[1] != "终止" {
		t.Errorf("expected retry/terminate quick replies, got %v", turn.QuickReplies)
	}
}

func TestToolCallingRound(t *testing.T) {
	f := newFixture(t,
		toolResponse("call_1", "create_customer", `{"name":"王小花","phone":"13800138000"}`),
		textResponse(`{"message_text": "客户档案已建好！", "step_summary": "新建客户王小花", "step_complete": true}`),
	)
	ctx := context.Background()

	conv, _, _ := f.orchestrator.CreateConversation(ctx, "artist-1")
	turn, err := f.orchestrator.ProcessMessage(ctx, conv.ID, "artist-1", "帮我新建客户王小花 13800138000", nil)
	if err != nil {
		t.Fatalf("ProcessMessage: %v", err)
	}

	// Tool side effects landed in context.
	if turn.Context.CustomerID == "" || turn.Context.CustomerName != "王小花" {
		t.Errorf("expected customer in context, got %+v", turn.Context)
	}

	// The customer really exists.
	matches, total, err := f.customers.Search(ctx, "artist-1", "王小花", 5)
	if err != nil || total != 1 {
		t.Fatalf("expected created customer, got total=%d err=%v", total, err)
	}
	if matches[0].Phone != "13800138000" {
		t.Errorf("unexpected customer: %+v", matches[0])
	}

	// Step advanced after completion.
	if !turn.StepComplete || turn.CurrentStep != StepCustomer {
		t.Errorf("expected advance to customer step, got %+v", turn)
	}

	// Second round carried the tool result back to the model.
	if len(f.provider.requests) != 2 {
		t.Fatalf("expected 2 LLM calls, got %d", len(f.provider.requests))
	}
	second := f.provider.requests[1].Messages
	last := second[len(second)-1]
	if last.Role != llm.RoleTool || last.ToolCallID != "call_1" {
		t.Errorf("expected tool result as last message, got %+v", last)
	}
}

func TestStepArchivedOnCompletion(t *testing.T) {
	f := newFixture(t, textResponse(`{"message_text": "进入下一步", "step_summary": "问候完成", "step_complete": true}`))
	ctx := context.Background()

	conv, _, _ := f.orchestrator.CreateConversation(ctx, "artist-1")
	if _, err := f.orchestrator.ProcessMessage(ctx, conv.ID, "artist-1", "开始吧", nil); err != nil {
		t.Fatalf("ProcessMessage: %v", err)
	}

	// The greeting window is archived, but full history keeps it.
	if live := f.logStore.ReadStep(conv.ID, StepGreeting); len(live) != 0 {
		t.Errorf("expected archived greeting step, got %d live entries", len(live))
	}
	full := f.logStore.ReadFull(conv.ID)
	if len(full) < 4 {
		t.Errorf("expected full history retained, got %d entries", len(full))
	}
}

func TestStepsAdvanceMonotonically(t *testing.T) {
	steps := []string{StepGreeting, StepCustomer, StepDesign, StepService, StepComplete, StepAnalysis, StepReview}
	responses := make([]*llm.ChatResponse, 0, len(steps))
	for i := range steps {
		responses = append(responses, textResponse(fmt.Sprintf(
			`{"message_text": "下一步", "step_summary": "阶段%d完成", "step_complete": true}`, i)))
	}
	f := newFixture(t, responses...)
	ctx := context.Background()

	conv, _, _ := f.orchestrator.CreateConversation(ctx, "artist-1")
	for i, step := range steps {
		stored, _ := f.convStore.Get(ctx, conv.ID, "artist-1")
		if stored.CurrentStep != step {
			t.Fatalf("turn %d: expected step %q, got %q", i, step, stored.CurrentStep)
		}
		if _, err := f.orchestrator.ProcessMessage(ctx, conv.ID, "artist-1", "继续", nil); err != nil {
			t.Fatalf("turn %d: %v", i, err)
		}
	}

	stored, _ := f.convStore.Get(ctx, conv.ID, "artist-1")
	if stored.CurrentStep != StepDone || stored.Status != conversation.StatusCompleted {
		t.Errorf("expected done/completed after the full sequence, got %q/%q", stored.CurrentStep, stored.Status)
	}
	// One summary per step, in order.
	if len(stored.StepSummaries) != len(steps) {
		t.Fatalf("expected %d summaries, got %d", len(steps), len(stored.StepSummaries))
	}
	for i, s := range stored.StepSummaries {
		if s.Step != steps[i] {
			t.Errorf("summary %d: expected step %q, got %q", i, steps[i], s.Step)
		}
	}
}

func TestCustomerIntakeScenario(t *testing.T) {
	f := newFixture(t,
		toolResponse("call_1", "search_customer", `{"query":"张三"}`),
		toolResponse("call_2", "create_customer", `{"name":"张三","phone":"13800000000"}`),
		textResponse(`{"message_text": "张三的档案建好了，进入设计环节。", "step_summary": "新客户张三", "step_complete": true}`),
	)
	ctx := context.Background()

	conv, _, _ := f.orchestrator.CreateConversation(ctx, "artist-1")
	conv.CurrentStep = StepCustomer
	if err := f.convStore.Update(ctx, conv); err != nil {
		t.Fatalf("Update: %v", err)
	}

	turn, err := f.orchestrator.ProcessMessage(ctx, conv.ID, "artist-1", "张三 13800000000", nil)
	if err != nil {
		t.Fatalf("ProcessMessage: %v", err)
	}

	// Search came back empty, creation filled the context.
	searchResult := f.provider.requests[1].Messages[len(f.provider.requests[1].Messages)-1]
	if searchResult.Role != llm.RoleTool || !strings.Contains(searchResult.Content, "no matching customers") {
		t.Errorf("expected empty search result fed back, got %+v", searchResult)
	}
	if turn.Context.CustomerID == "" || turn.Context.CustomerName != "张三" {
		t.Errorf("expected customer in context, got %+v", turn.Context)
	}
	if turn.CurrentStep != StepDesign {
		t.Errorf("expected advance to design, got %q", turn.CurrentStep)
	}
}

func TestReviewCompletionFinishesConversation(t *testing.T) {
	f := newFixture(t, textResponse(`{"message_text": "本次服务复盘完成！", "step_summary": "复盘完成", "step_complete": true}`))
	ctx := context.Background()

	conv, _, _ := f.orchestrator.CreateConversation(ctx, "artist-1")
	conv.CurrentStep = StepReview
	if err := f.convStore.Update(ctx, conv); err != nil {
		t.Fatalf("Update: %v", err)
	}

	turn, err := f.orchestrator.ProcessMessage(ctx, conv.ID, "artist-1", "没有其他问题了", nil)
	if err != nil {
		t.Fatalf("ProcessMessage: %v", err)
	}
	if turn.CurrentStep != StepDone {
		t.Errorf("expected done, got %q", turn.CurrentStep)
	}

	stored, _ := f.convStore.Get(ctx, conv.ID, "artist-1")
	if stored.Status != conversation.StatusCompleted {
		t.Errorf("expected completed status, got %q", stored.Status)
	}
	if stored.CompletedAt == nil {
		t.Error("expected completed_at stamped")
	}
}

func TestMessageToInactiveConversation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	conv, _, _ := f.orchestrator.CreateConversation(ctx, "artist-1")
	if err := f.convStore.Abandon(ctx, conv.ID, "artist-1"); err != nil {
		t.Fatalf("Abandon: %v", err)
	}

	_, err := f.orchestrator.ProcessMessage(ctx, conv.ID, "artist-1", "hello", nil)
	if err != conversation.ErrNotActive {
		t.Errorf("expected ErrNotActive, got %v", err)
	}
}

func TestAntiStallForcesToolCall(t *testing.T) {
	f := newFixture(t,
		textResponse("好的，正在为你生成设计图，请稍等…"),
		toolResponse("call_1", "generate_design", `{"prompt":"pink french"}`),
		textResponse(`{"message_text": "设计图好了！", "step_summary": "生成设计", "ui_hint": "none"}`),
	)
	ctx := context.Background()

	conv, _, _ := f.orchestrator.CreateConversation(ctx, "artist-1")
	turn, err := f.orchestrator.ProcessMessage(ctx, conv.ID, "artist-1", "是", nil)
	if err != nil {
		t.Fatalf("ProcessMessage: %v", err)
	}

	// The retry forced a tool call.
	if len(f.provider.requests) != 3 {
		t.Fatalf("expected 3 LLM calls (stall, forced retry, final), got %d", len(f.provider.requests))
	}
	if f.provider.requests[0].ForceTool {
		t.Error("first call must not force tools")
	}
	if !f.provider.requests[1].ForceTool {
		t.Error("retry must force a tool call")
	}

	// The corrective instruction was injected.
	retry := f.provider.requests[1].Messages
	if retry[len(retry)-1].Content != "请立即调用工具执行，不要输出任何文字。" {
		t.Errorf("expected corrective instruction, got %q", retry[len(retry)-1].Content)
	}

	// The design really got generated.
	if turn.Context.DesignPlanID == "" {
		t.Error("expected design generated after forced retry")
	}
}

func TestAntiStallGivesUpAfterOneRetry(t *testing.T) {
	f := newFixture(t,
		textResponse("马上就开始生成哦"),
		textResponse("我真的没有工具可以调用"),
	)
	ctx := context.Background()

	conv, _, _ := f.orchestrator.CreateConversation(ctx, "artist-1")
	turn, err := f.orchestrator.ProcessMessage(ctx, conv.ID, "artist-1", "是", nil)
	if err != nil {
		t.Fatalf("ProcessMessage: %v", err)
	}
	if len(f.provider.requests) != 2 {
		t.Fatalf("expected exactly one forced retry, got %d calls", len(f.provider.requests))
	}
	// Falls through to answer parsing of the retry text.
	if turn.MessageText != "我真的没有工具可以调用" {
		t.Errorf("expected degraded answer from retry text, got %q", turn.MessageText)
	}
}

func TestNoStallGuardWhenDesignExists(t *testing.T) {
	f := newFixture(t, textResponse("正在为你生成新版本…"))
	ctx := context.Background()

	conv, _, _ := f.orchestrator.CreateConversation(ctx, "artist-1")
	conv.Context.DesignPlanID = "existing-design"
	if err := f.convStore.Update(ctx, conv); err != nil {
		t.Fatalf("Update: %v", err)
	}

	if _, err := f.orchestrator.ProcessMessage(ctx, conv.ID, "artist-1", "调整一下", nil); err != nil {
		t.Fatalf("ProcessMessage: %v", err)
	}
	if len(f.provider.requests) != 1 {
		t.Errorf("guard must not trigger once a design exists, got %d calls", len(f.provider.requests))
	}
}

func TestDesignPreviewOverride(t *testing.T) {
	f := newFixture(t,
		toolResponse("call_1", "generate_design", `{"prompt":"red chrome"}`),
		// The model forgets the preview hint; the orchestrator fixes it.
		textResponse(`{"message_text": "设计好了", "ui_hint": "none", "quick_replies": ["满意，继续", "需要调整"]}`),
	)
	ctx := context.Background()

	conv, _, _ := f.orchestrator.CreateConversation(ctx, "artist-1")
	turn, err := f.orchestrator.ProcessMessage(ctx, conv.ID, "artist-1", "生成吧", nil)
	if err != nil {
		t.Fatalf("ProcessMessage: %v", err)
	}
	if turn.UIHint != UIHintDesignPreview {
		t.Errorf("expected forced design preview hint, got %q", turn.UIHint)
	}
	if turn.UIData["design_id"] != turn.Context.DesignPlanID {
		t.Errorf("expected design id in ui data, got %v", turn.UIData)
	}
	if turn.UIData["image_url"] == "" {
		t.Errorf("expected image url in ui data, got %v", turn.UIData)
	}
}

func TestNeedsUploadOverride(t *testing.T) {
	f := newFixture(t, textResponse(`{"message_text": "请上传实拍图", "needs_image_upload": true}`))
	ctx := context.Background()

	conv, _, _ := f.orchestrator.CreateConversation(ctx, "artist-1")
	conv.Context.ActualImagePath = "uploads/actual/done.png"
	if err := f.convStore.Update(ctx, conv); err != nil {
		t.Fatalf("Update: %v", err)
	}

	turn, err := f.orchestrator.ProcessMessage(ctx, conv.ID, "artist-1", "下一步", nil)
	if err != nil {
		t.Fatalf("ProcessMessage: %v", err)
	}
	if turn.NeedsImageUpload {
		t.Error("upload prompt must be suppressed once the photo exists")
	}
}

func TestHandleUploadActual(t *testing.T) {
	f := newFixture(t, textResponse(`{"message_text": "收到实拍图！现在开始收集信息。"}`))
	ctx := context.Background()

	conv, _, _ := f.orchestrator.CreateConversation(ctx, "artist-1")
	turn, err := f.orchestrator.HandleUpload(ctx, conv.ID, "artist-1", "uploads/actual/result.png", UploadActual)
	if err != nil {
		t.Fatalf("HandleUpload: %v", err)
	}
	if turn.Context.ActualImagePath != "uploads/actual/result.png" {
		t.Errorf("expected photo path in context, got %+v", turn.Context)
	}

	// The upload notice and system message are in the log.
	entries := f.logStore.ReadStep(conv.ID, StepGreeting)
	var sawNotice bool
	for _, entry := range entries {
		if entry.Role == llm.RoleSystem {
			sawNotice = true
		}
	}
	if !sawNotice {
		t.Error("expected system upload notice in log")
	}
}

func TestHandleUploadInspirationAppends(t *testing.T) {
	f := newFixture(t,
		textResponse(`{"message_text": "收到参考图1"}`),
		textResponse(`{"message_text": "收到参考图2"}`),
	)
	ctx := context.Background()

	conv, _, _ := f.orchestrator.CreateConversation(ctx, "artist-1")
	if _, err := f.orchestrator.HandleUpload(ctx, conv.ID, "artist-1", "a.png", UploadInspiration); err != nil {
		t.Fatalf("HandleUpload: %v", err)
	}
	turn, err := f.orchestrator.HandleUpload(ctx, conv.ID, "artist-1", "b.png", UploadInspiration)
	if err != nil {
		t.Fatalf("HandleUpload: %v", err)
	}
	if len(turn.Context.InspirationPaths) != 2 {
		t.Errorf("expected 2 inspiration paths, got %v", turn.Context.InspirationPaths)
	}
}

func TestHandleUploadUnknownPurpose(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	conv, _, _ := f.orchestrator.CreateConversation(ctx, "artist-1")
	if _, err := f.orchestrator.HandleUpload(ctx, conv.ID, "artist-1", "x.png", "profile"); err == nil {
		t.Error("expected error for unknown purpose")
	}
}

func TestSystemPromptCarriesSummariesAndContext(t *testing.T) {
	f := newFixture(t, textResponse(`{"message_text": "好的"}`))
	ctx := context.Background()

	conv, _, _ := f.orchestrator.CreateConversation(ctx, "artist-1")
	conv.StepSummaries = []conversation.StepSummary{{Step: StepGreeting, Summary: "已确认客户王小花"}}
	conv.Context.CustomerID = "cust-1"
	conv.Context.CustomerName = "王小花"
	if err := f.convStore.Update(ctx, conv); err != nil {
		t.Fatalf("Update: %v", err)
	}

	if _, err := f.orchestrator.ProcessMessage(ctx, conv.ID, "artist-1", "继续", nil); err != nil {
		t.Fatalf("ProcessMessage: %v", err)
	}

	system := f.provider.requests[0].Messages[0]
	if system.Role != llm.RoleSystem {
		t.Fatalf("expected system message first, got %q", system.Role)
	}
	for _, want := range []string{"已确认客户王小花", "cust-1", "王小花"} {
		if !strings.Contains(system.Content, want) {
			t.Errorf("system prompt missing %q", want)
		}
	}
}

func TestMaxRoundsBoundsLoop(t *testing.T) {
	// A model that always calls a tool must be cut off.
	responses := make([]*llm.ChatResponse, 0, 10)
	for i := 0; i < 10; i++ {
		responses = append(responses, toolResponse("call", "get_ability_summary", `{}`))
	}
	f := newFixture(t, responses...)
	f.orchestrator.cfg.MaxRounds = 3
	ctx := context.Background()

	conv, _, _ := f.orchestrator.CreateConversation(ctx, "artist-1")
	if _, err := f.orchestrator.ProcessMessage(ctx, conv.ID, "artist-1", "总结一下", nil); err != nil {
		t.Fatalf("ProcessMessage: %v", err)
	}
	if len(f.provider.requests) != 3 {
		t.Errorf("expected loop bounded at 3 rounds, got %d calls", len(f.provider.requests))
	}
}
