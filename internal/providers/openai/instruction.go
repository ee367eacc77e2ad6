package openai

import (
	"fmt"
	"strings"
)

// BuildInstruction is the text part of the refinement request. It embeds the
// image count and the user's prompt verbatim.
func BuildInstruction(imageCount int, prompt string) string {
	noun := "images"
	if imageCount == 1 {
		noun = "image"
	}
	parts := []string{
		fmt.Sprintf("I am providing %d %s.", imageCount, noun),
		fmt.Sprintf("The user's request is: \"%s\".", prompt),
		"Study the images and the request, then write one refined, highly descriptive prompt for an image generation model that will produce the single image the user wants.",
		"Describe the subject, composition, style, colors and lighting in detail.",
		"Respond with the prompt text only.",
	}
	return strings.Join(parts, " ")
}
