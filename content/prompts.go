package content

import (
	"fmt"
	"strings"

	"github.com/manishahirrao/postpilot/users"
)

const (
	postSystemPrompt    = "You are an expert LinkedIn ghostwriter. Write engaging, authentic posts with a strong opening line, short paragraphs and a clear call to action. Reply with the post text only."
	captionSystemPrompt = "You write short, descriptive image captions for LinkedIn posts. Reply with a single sentence."
)

func postPrompt(req PostRequest) string {
	var b strings.Builder
	if req.AccountType == users.AccountCompany {
		b.WriteString("Write a LinkedIn post on behalf of a company")
		if req.Name != "" {
			fmt.Fprintf(&b, " called %s", req.Name)
		}
		b.WriteString(". Speak as the brand (\"we\").")
	} else {
		b.WriteString("Write a LinkedIn post in the first person")
		if req.Name != "" {
			fmt.Fprintf(&b, " for %s", req.Name)
		}
		b.WriteString(".")
	}
	if req.Industry != "" {
		fmt.Fprintf(&b, "\nIndustry: %s", req.Industry)
	}
	fmt.Fprintf(&b, "\nTopic: %s", req.Topic)
	fmt.Fprintf(&b, "\nTone: %s", req.Tone)
	fmt.Fprintf(&b, "\nAudience: %s", req.Audience)
	b.WriteString("\nKeep it under 1300 characters and end with three relevant hashtags.")
	return b.String()
}

func captionPrompt(req PostRequest, postText string) string {
	return fmt.Sprintf("Write a caption for the image accompanying this post about %q.\n\nPost:\n%s", req.Topic, postText)
}
