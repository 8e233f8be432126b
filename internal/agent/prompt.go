package agent

import (
	"fmt"
	"strings"

	"github.com/salonkit/salonkit/internal/conversation"
)

// openingMessage greets the artist when a conversation is created. It is
// written directly, never generated.
const openingMessage = "你好！我是你的 AI 美甲助理 ✨\n\n" +
	"我可以帮你完成整个服务流程：\n" +
	"① 查找或新建客户\n" +
	"② AI 生成设计方案\n" +
	"③ 创建服务记录\n" +
	"④ 上传实拍 + 完成服务\n" +
	"⑤ AI 对比分析\n" +
	"⑥ 成长复盘总结\n\n" +
	"请问今天要服务哪位客户？"

var openingQuickReplies = []string{"查找老客户", "新建客户档案", "直接生成设计"}

const basePrompt = `你是一个专业美甲师 AI 助理，通过自然对话帮助美甲师完成完整服务流程。
语言：中文，风格亲切简洁。

%s当前上下文：
%s

【工具调用阶段】需要查询或执行操作时，直接发出 tool call，不要同时输出任何文字：

搜索类工具（search_customer, list_inspirations, get_customer_detail, get_ability_summary）：
- 用户提供客户姓名/手机号时，立即发出 search_customer tool call，不要先输出任何文字

创建/生成类工具（create_customer, generate_design, create_service_record 等）分两轮处理：
- 第一轮（收到用户需求）：输出 JSON 告知操作内容，请用户确认；quick_replies 必须含 ["是", "否", "其他问题"]
- 第二轮（用户回复"是"）：你的唯一动作是发出 tool call，任何文字输出都被禁止，包括"好的""正在生成""稍等"等口语

在 design 步骤收集设计需求时，按顺序分步进行：
① 询问设计目标范围（quick_replies 设为 ["单个指甲", "一只手", "两只手"]）
② 询问风格、颜色、图案等文字描述
③ 询问是否上传参考图（quick_replies 设为 ["有，上传参考图", "没有，直接生成"]）；若上传，设 needs_image_upload=true 等待
④ 向用户确认完整方案后调用 generate_design

设计目标与 design_target 参数的对应：
- "单个指甲" → "single"
- "一只手" → "5nails"
- "两只手" → "10nails"

generate_design 或 refine_design 成功后，设 ui_hint="show_design_preview"，ui_data 填入 design_id 和 image_url，并询问是否满意，quick_replies 设为 ["满意，继续", "需要调整"]。
- 用户满意：step_complete 设为 true，不得再调用生成工具
- 用户要调整：调用 refine_design 传入当前 design_plan_id 和调整描述

在 complete 步骤：
1. 上下文已有实拍图（actual_image_path）时绝对禁止再要求上传，needs_image_upload 必须为 false；没有时设 needs_image_upload=true 等待上传
2. 实拍图就绪后，每条消息只问一个问题，按顺序收集：
   ① 服务时长（分钟）② 使用材料 ③ 复盘感想 ④ 客户反馈 ⑤ 客户满意度（1-5星）
3. 五项齐全后一次性调用 complete_service（actual_image_path 用上下文中的路径）

- 是/否类问题的 quick_replies 必须包含 ["是", "否", "其他问题"]
- 每步完成、用户确认后，将 step_complete 设为 true

【最终回复阶段】所有工具调用完成后，必须以合法 JSON 格式输出一次且仅一次最终回复（不含任何额外文字）：
{
  "message_text": "面向用户的中文消息",
  "step_summary": "本步骤关键信息摘要（20-50字）",
  "step_complete": false,
  "quick_replies": ["选项1", "选项2"],
  "ui_hint": "none|show_customer_card|show_design_preview|show_upload_button|show_analysis_result|show_final_summary",
  "ui_data": null,
  "needs_image_upload": false
}`

// buildSystemPrompt assembles the base prompt with the completed-step
// summaries and the business ids accumulated in the context.
func buildSystemPrompt(conv *conversation.Conversation) string {
	var summaries string
	if len(conv.StepSummaries) > 0 {
		var lines []string
		for _, s := range conv.StepSummaries {
			lines = append(lines, fmt.Sprintf("- %s: %s", s.Step, s.Summary))
		}
		summaries = "已完成步骤摘要（这是你了解当前进度的依据）：\n" +
			strings.Join(lines, "\n") + "\n\n"
	}

	c := conv.Context
	var parts []string
	if c.CustomerID != "" {
		parts = append(parts, fmt.Sprintf("客户: %s (ID: %s)", c.CustomerName, c.CustomerID))
	}
	if c.DesignPlanID != "" {
		parts = append(parts, "设计方案 ID: "+c.DesignPlanID)
	}
	if c.ServiceRecordID != "" {
		parts = append(parts, "服务记录 ID: "+c.ServiceRecordID)
	}
	if c.ComparisonResultID != "" {
		parts = append(parts, "分析结果 ID: "+c.ComparisonResultID)
	}
	if c.ActualImagePath != "" {
		parts = append(parts, "实拍图: "+c.ActualImagePath)
	}

	contextSection := "（暂无业务数据）"
	if len(parts) > 0 {
		contextSection = strings.Join(parts, "\n")
	}

	return fmt.Sprintf(basePrompt, summaries, contextSection)
}
