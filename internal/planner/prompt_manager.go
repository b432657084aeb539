package planner

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

const defaultPlannerPrompt = `You turn instructions into a plan of operation calls.

Rules:
- Use only the operations listed below, by their exact names.
- Every argument must be a literal value. Compute intermediate results yourself
  and write them in: a later step never receives an earlier step's result.
- The last step must produce the final answer.
- Give each step a short rationale and the whole plan a one-sentence explanation.
- Submit the plan by calling propose_plan.`

type PromptManager struct {
	Directory string
}

func NewPromptManager(dir string) *PromptManager {
	return &PromptManager{Directory: dir}
}

// GetPlannerPrompt returns planner.md from the prompts directory, or the
// built-in prompt when there is no such file.
func (pm *PromptManager) GetPlannerPrompt() (string, error) {
	if pm == nil || pm.Directory == "" {
		return defaultPlannerPrompt, nil
	}
	path := filepath.Join(pm.Directory, "planner.md")
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return defaultPlannerPrompt, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read planner prompt: %w", err)
	}
	prompt := strings.TrimSpace(string(data))
	if prompt == "" {
		return defaultPlannerPrompt, nil
	}
	return prompt, nil
}
