package service

import (
	"fmt"
	"strings"
)

var topicDifficultyHints = map[string]string{
	"Easy":   "focus on basic concepts, definitions, and straightforward facts. Questions should be simple to understand.",
	"Medium": "require understanding of intermediate concepts, some application of knowledge, and ability to differentiate between related ideas. Distractors should be plausible.",
	"Hard":   "demand advanced understanding, critical thinking, analysis, or synthesis of information. Questions can be multi-step or scenario-based. Distractors should be very subtle.",
}

var contentDifficultyHints = map[string]string{
	"Easy":   "Focus on basic facts, definitions, and direct recall from the content.",
	"Medium": "Include some analysis and application of concepts from the content.",
	"Hard":   "Emphasize critical thinking, synthesis, and deeper understanding of the content.",
}

const questionFormat = `Q: [Question text]
A) [Option A]
B) [Option B]
C) [Option C]
D) [Option D]
ANSWER: [A single uppercase letter: A, B, C, or D]
EXPLANATION: [Why the correct answer is right and why the distractors are wrong]

---`

// BuildTopicPrompt 预设主题出题提示词
func BuildTopicPrompt(topic, difficulty string, count int) string {
	hint, ok := topicDifficultyHints[difficulty]
	if !ok {
		hint = topicDifficultyHints["Medium"]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Generate %d high-quality multiple-choice questions (MCQs) about the NCC topic: %q.\n", count, topic)
	b.WriteString("The target audience is NCC cadets.\n")
	fmt.Fprintf(&b, "The desired difficulty level is: %s. For this difficulty, %s\n\n", strings.ToUpper(difficulty), hint)
	b.WriteString("For each question, strictly adhere to the following format:\n\n")
	b.WriteString(questionFormat)
	b.WriteString("\n\nImportant Guidelines:\n")
	fmt.Fprintf(&b, "1. Generate exactly %d questions.\n", count)
	b.WriteString("2. The format (Q:, A), B), C), D), ANSWER:, EXPLANATION:, ---) is CRITICAL for parsing. Do not deviate.\n")
	b.WriteString("3. The '---' separator MUST be on its own line between each complete question block.\n")
	b.WriteString("4. Provide exactly four unique options. Avoid \"All of the above\" or \"None of the above\".\n")
	b.WriteString("5. All questions, options, and explanations must be directly related to NCC.\n")
	return b.String()
}

// BuildContentPrompt 基于用户提供资料出题，content 由调用方截断
func BuildContentPrompt(content, topic, difficulty string, count int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Create %d high-quality multiple-choice questions based on the following content.\n\n", count)
	b.WriteString("CONTENT TO ANALYZE:\n")
	b.WriteString(content)
	b.WriteString("\n\nINSTRUCTIONS:\n")
	fmt.Fprintf(&b, "- Topic: %s\n", topic)
	fmt.Fprintf(&b, "- Difficulty: %s - %s\n", difficulty, contentDifficultyHints[difficulty])
	fmt.Fprintf(&b, "- Generate exactly %d questions\n", count)
	b.WriteString("- Questions must be based on the provided content only\n\n")
	b.WriteString("For each question, use this EXACT format:\n\n")
	b.WriteString(questionFormat)
	b.WriteString("\n")
	return b.String()
}

// truncateRunes 超长时截断并追加省略号
func truncateRunes(s string, max int) string {
	if max <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "..."
}
