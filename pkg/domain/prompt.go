package domain

import "fmt"

type Prompt struct {
	ID       int64
	ChatID   int64
	Text     string
	FromUser string
}

const (
	GenImageCallbackPrefix = "gen_image:"
	DelChatCallbackPrefix  = "del_chat:"
	SwitchKeyCallback      = "switch_key"
)

// StillFramePrompt rewrites a video prompt into a request for a single
// cinematic frame of the same scene. Used by the fallback policy when video
// synthesis is denied for the current key tier.
func StillFramePrompt(prompt string) string {
	return fmt.Sprintf("A single cinematic still frame of: %s. Photorealistic, dramatic lighting, high detail.", prompt)
}
