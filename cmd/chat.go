package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/salonkit/salonkit/internal/agent"
)

var chatUser string

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive service conversation in the terminal",
	Long: `Runs a full guided service conversation in the terminal: the same
assistant the HTTP API serves, without a frontend. Type 终止 or press
Ctrl+C to abandon the conversation.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		a, err := buildApp(cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		ctx := context.Background()
		conv, turn, err := a.orchestrator.CreateConversation(ctx, chatUser)
		if err != nil {
			return err
		}
		printTurn(turn)

		for {
			input, err := readInput(turn.QuickReplies)
			if err != nil {
				if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
					fmt.Println("再见！")
					return nil
				}
				return err
			}
			if strings.TrimSpace(input) == "" {
				continue
			}

			next, err := a.orchestrator.ProcessMessage(ctx, conv.ID, chatUser, input, nil)
			if err != nil {
				fmt.Printf("出错了: %v\n", err)
				continue
			}
			turn = next
			printTurn(turn)

			if turn.CurrentStep == agent.StepDone {
				return nil
			}
		}
	},
}

const freeInputItem = "（自行输入）"

// readInput offers the quick replies as a selection when present, with a
// free-input escape item; otherwise it is a plain prompt.
func readInput(quickReplies []string) (string, error) {
	if len(quickReplies) > 0 {
		sel := promptui.Select{
			Label: "选择回复",
			Items: append(append([]string{}, quickReplies...), freeInputItem),
		}
		_, choice, err := sel.Run()
		if err != nil {
			return "", err
		}
		if choice != freeInputItem {
			return choice, nil
		}
	}
	prompt := promptui.Prompt{Label: "你"}
	return prompt.Run()
}

func printTurn(turn *agent.AssistantTurn) {
	fmt.Printf("\n助手: %s\n", turn.MessageText)
	if image, ok := turn.UIData["image_url"].(string); ok && image != "" {
		fmt.Printf("  [设计图: %s]\n", image)
	}
	if turn.NeedsImageUpload {
		fmt.Println("  [需要上传图片: 请通过 API 上传后继续]")
	}
	fmt.Println()
}

func init() {
	chatCmd.Flags().StringVar(&chatUser, "user", "anonymous", "artist ID the conversation belongs to")
	rootCmd.AddCommand(chatCmd)
}
