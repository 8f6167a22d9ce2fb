package writer

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"trendpress/internal/core"
)

const systemPrompt = "You are an expert blog writer. Your output must be valid Markdown only, " +
	"no code fences or extra labels. Use ## for sections, ### for subsections, " +
	"**bold**, lists, and short paragraphs. No YAML frontmatter."

var styleDescriptions = map[string]string{
	"informative":     "an explanatory piece that organizes useful information systematically",
	"review":          "a review with subjective experience and opinions",
	"how-to":          "a step-by-step guide the reader can follow",
	"news-commentary": "a commentary that summarizes a recent issue and adds perspective",
}

var lengthDescriptions = map[string]string{
	"short":  "roughly 400-600 words of body text",
	"medium": "roughly 800-1,200 words of body text",
	"long":   "roughly 1,200-1,800 words of body text",
}

const (
	maxReferenceContent = 4000
	maxURLContent       = 6000
)

// truncate cuts s to at most n bytes, backing up so a multi-byte rune is
// never split.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func styleDesc(style string) string {
	if d, ok := styleDescriptions[style]; ok {
		return d
	}
	return styleDescriptions["informative"]
}

func lengthDesc(length string) string {
	if d, ok := lengthDescriptions[length]; ok {
		return d
	}
	return lengthDescriptions["medium"]
}

func langInstructions(lang string) (string, string) {
	if lang == "ko" {
		return "Write in Korean only.", "Use the first # heading as the main title."
	}
	return "Write in English only.", "Use the first # heading as the main title."
}

// buildKeywordPrompts builds the system and user prompts for a
// keyword-driven article.
func buildKeywordPrompts(req *core.ArticleRequest) (string, string) {
	langLine, titleLine := langInstructions(req.Lang)

	var sb strings.Builder
	fmt.Fprintf(&sb, `Write a blog article in Markdown on the following keyword.

Keyword: %s
Article style: %s
%s
%s

Requirements:
- %s (counted in meaningful paragraphs and sentences)
- Tone: relaxed and conversational. Avoid stiff framing words like "introduction", "conclusion", or "in summary"; let the text flow naturally.
- Break the article up with ## and ### subheadings, but never headings that expose the structure such as "Introduction" or "Conclusion".
- Natural, SEO-friendly sentences.
- End with one or two paragraphs that wrap up the story smoothly instead of a labeled conclusion.
- Finish with a single line of 5-10 hashtags (#tag1 #tag2 ...) relevant to the topic, keyword, and SEO, separated by spaces.
`, req.Keyword, styleDesc(req.Style), langLine, titleLine, lengthDesc(req.Length))

	if req.UseEmoji {
		sb.WriteString("\n- Add fitting emoji to the title, subheadings, and paragraphs. Use them sparingly.")
	} else {
		sb.WriteString("\n- Do not use emoji.")
	}

	if ctx := strings.TrimSpace(req.WebContext); ctx != "" {
		fmt.Fprintf(&sb, `

Below are recent web search results and **news articles** for this keyword. Lean on the news in particular to reflect **current developments, numbers, facts, and timeliness**, and include topical content the reader will care about. Do not copy the originals verbatim; reinterpret them naturally.

---
%s
---
`, ctx)
	}

	return systemPrompt, sb.String()
}

// buildURLPrompts builds the system and user prompts for a URL-driven
// article.
func buildURLPrompts(content *core.URLContent, req *core.URLArticleRequest, relatedSearch string) (string, string) {
	langLine, titleLine := langInstructions(req.Lang)

	urlInfo := "URL: " + content.URL
	if content.Title != "" {
		urlInfo += "\nTitle: " + content.Title
	}
	if content.Description != "" {
		urlInfo += "\nDescription: " + content.Description
	}

	body := truncate(content.Content, maxURLContent)

	var sb strings.Builder
	fmt.Fprintf(&sb, `Analyze the content of the following URL and write a related blog article in Markdown.

%s

--- Original content ---
%s
---

Article style: %s
%s
%s

Requirements:
- %s (counted in meaningful paragraphs and sentences)
- Do not copy the original URL content; identify the core ideas and restructure them from a **fresh angle**.
- Expand on the original topic or add information more useful to the reader.
- Tone: relaxed and conversational. Avoid stiff framing words like "introduction", "conclusion", or "in summary"; let the text flow naturally.
- Break the article up with ## and ### subheadings, but never headings that expose the structure such as "Introduction" or "Conclusion".
- Natural, SEO-friendly sentences.
- End with one or two paragraphs that wrap up the story smoothly instead of a labeled conclusion.
- Finish with a single line of 5-10 hashtags (#tag1 #tag2 ...) relevant to the topic, keyword, and SEO, separated by spaces.
`, urlInfo, body, styleDesc(req.Style), langLine, titleLine, lengthDesc(req.Length))

	if req.UseEmoji {
		sb.WriteString("\n- Add fitting emoji to the title, subheadings, and paragraphs. Use them sparingly.")
	} else {
		sb.WriteString("\n- Do not use emoji.")
	}

	if related := strings.TrimSpace(relatedSearch); related != "" {
		fmt.Fprintf(&sb, `

Below are recent web search results and **news articles** related to this topic. Use them to reflect **current developments, numbers, facts, and timeliness**, and include topical content the reader will care about. Do not copy the originals verbatim; reinterpret them naturally.

---
%s
---
`, related)
	}

	return systemPrompt, sb.String()
}
