package service

import (
	"abyas_backend/internal/model"
	"abyas_backend/pkg/logger"
	"abyas_backend/pkg/monitoring"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"go.uber.org/zap"
)

// RejectReason 题块被丢弃的原因
type RejectReason string

const (
	RejectMissingQuestion    RejectReason = "missing_question"
	RejectMissingOptions     RejectReason = "missing_options"
	RejectDuplicateOption    RejectReason = "duplicate_option"
	RejectEmptyOption        RejectReason = "empty_option"
	RejectMissingAnswer      RejectReason = "missing_answer"
	RejectInvalidAnswer      RejectReason = "invalid_answer"
	RejectMissingExplanation RejectReason = "missing_explanation"
)

// BlockRejection 单个题块校验失败，不影响其余题块
type BlockRejection struct {
	Block   int          `json:"block"` // 从 1 开始
	Reason  RejectReason `json:"reason"`
	Excerpt string       `json:"excerpt"`
}

type ParseResult struct {
	Questions []model.QuizQuestion
	Rejected  []BlockRejection
	Blocks    int
}

var (
	separatorRe  = regexp.MustCompile(`(?m)^[ \t]*-{3,}[ \t]*$`)
	questionRe   = regexp.MustCompile(`(?i)\bQ\s*:(.*)$`)
	optionRe     = regexp.MustCompile(`^\s*([A-D])\)\s*(.*)$`)
	optionLineRe = regexp.MustCompile(`^\s*[A-D]\)`)
	labelRe      = regexp.MustCompile(`(?i)\b(ANSWER|EXPLANATION)\s*:`)
	answerRe     = regexp.MustCompile(`(?i)\bANSWER\s*:`)
)

// QuizParser 将大模型返回的自由文本解析为结构化题目
type QuizParser struct {
	now func() time.Time
}

func NewQuizParser() *QuizParser {
	return &QuizParser{now: time.Now}
}

// Parse 按分隔线切分题块，逐块提取并校验。校验失败的题块整体丢弃，只记录日志。
// 返回空列表表示整体解析失败，由调用方按生成失败处理。
func (p *QuizParser) Parse(raw, topic, difficulty string) ParseResult {
	raw = strings.ReplaceAll(raw, "\r\n", "\n")
	createdAt := p.now().Format(time.RFC3339)
	prefix := topicSlug(topic)

	var result ParseResult
	for _, block := range separatorRe.Split(raw, -1) {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}
		result.Blocks++

		draft := extractBlock(block)
		if reason, ok := draft.validate(); !ok {
			rej := BlockRejection{Block: result.Blocks, Reason: reason, Excerpt: excerpt(block, 80)}
			result.Rejected = append(result.Rejected, rej)
			monitoring.QuizBlocksRejected.WithLabelValues(string(reason)).Inc()
			logger.Log.Warn("quiz block rejected",
				zap.Int("block", rej.Block),
				zap.String("reason", string(reason)),
				zap.String("excerpt", rej.Excerpt),
			)
			continue
		}

		result.Questions = append(result.Questions, model.QuizQuestion{
			ID:          prefix + "_" + strconv.Itoa(len(result.Questions)+1),
			Question:    draft.question,
			Options:     draft.options,
			Answer:      draft.answer,
			Explanation: draft.explanation(),
			Topic:       topic,
			Difficulty:  difficulty,
			CreatedAt:   createdAt,
			Points:      1,
		})
	}
	return result
}

type blockState int

const (
	stateSeekQuestion blockState = iota
	stateBody
	stateExplanation
	stateDone
)

// blockDraft 单个题块的提取中间态
type blockDraft struct {
	state      blockState
	question   string
	options    map[string]string
	duplicate  bool
	answer     string
	answerSeen bool
	explLines  []string
}

func extractBlock(block string) *blockDraft {
	d := &blockDraft{options: make(map[string]string, 4)}
	for _, line := range strings.Split(block, "\n") {
		if d.state == stateDone {
			break
		}
		d.consume(line)
	}
	return d
}

func (d *blockDraft) consume(line string) {
	if d.state == stateSeekQuestion {
		if m := questionRe.FindStringSubmatch(line); m != nil {
			// "1. Q: ..."、"**Q:** ..." 等编号或加粗写法只取标签之后的文本
			d.question = strings.TrimSpace(strings.TrimLeft(m[1], " \t*"))
			d.state = stateBody
		}
		return
	}

	rest := line
	labelLine := false
	for {
		if d.state == stateExplanation {
			// ANSWER 出现在 EXPLANATION 之后时取作答案，解释在此截止
			if !d.answerSeen {
				if loc := answerRe.FindStringIndex(rest); loc != nil {
					if head := rest[:loc[0]]; strings.TrimSpace(head) != "" {
						d.explLines = append(d.explLines, head)
					}
					d.answer, _ = answerToken(rest[loc[1]:])
					d.answerSeen = true
					d.state = stateDone
					return
				}
			}
			// 解释之后另起一行出现的选项视为模型幻觉，截断
			if !labelLine && optionLineRe.MatchString(rest) {
				d.state = stateDone
				return
			}
			d.explLines = append(d.explLines, rest)
			return
		}

		loc := labelRe.FindStringSubmatchIndex(rest)
		head := rest
		if loc != nil {
			head = rest[:loc[0]]
		}
		// 选项与 ANSWER/EXPLANATION 粘连时，选项文本截断到标签之前
		if m := optionRe.FindStringSubmatch(head); m != nil {
			d.addOption(m[1], m[2])
		}
		if loc == nil {
			return
		}

		label := strings.ToUpper(rest[loc[2]:loc[3]])
		rest = rest[loc[1]:]
		if label == "EXPLANATION" {
			d.state = stateExplanation
			labelLine = true
			continue
		}

		token, remainder := answerToken(rest)
		if !d.answerSeen {
			d.answer = token
			d.answerSeen = true
		}
		rest = remainder
		if strings.TrimSpace(rest) == "" {
			return
		}
	}
}

func (d *blockDraft) addOption(label, text string) {
	if _, exists := d.options[label]; exists {
		d.duplicate = true
		return
	}
	d.options[label] = strings.TrimSpace(text)
}

func (d *blockDraft) explanation() string {
	return strings.TrimSpace(strings.Join(d.explLines, "\n"))
}

func (d *blockDraft) validate() (RejectReason, bool) {
	if d.question == "" {
		return RejectMissingQuestion, false
	}
	if d.duplicate {
		return RejectDuplicateOption, false
	}
	if len(d.options) != len(model.OptionLabels) {
		return RejectMissingOptions, false
	}
	for _, label := range model.OptionLabels {
		text, ok := d.options[label]
		if !ok {
			return RejectMissingOptions, false
		}
		if text == "" {
			return RejectEmptyOption, false
		}
	}
	if d.answer == "" {
		return RejectMissingAnswer, false
	}
	if _, ok := d.options[d.answer]; !ok {
		return RejectInvalidAnswer, false
	}
	if d.explanation() == "" {
		return RejectMissingExplanation, false
	}
	return "", true
}

// answerToken 取 ANSWER: 之后的字母串并转大写，"B)"、"**B**" 均视为 B
func answerToken(s string) (string, string) {
	s = strings.TrimLeft(s, " \t*[(")
	end := 0
	for end < len(s) && isASCIILetter(s[end]) {
		end++
	}
	return strings.ToUpper(s[:end]), s[end:]
}

func isASCIILetter(c byte) bool {
	return ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}

func topicSlug(topic string) string {
	var b strings.Builder
	underscore := false
	for _, r := range strings.ToLower(strings.TrimSpace(topic)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			underscore = false
			continue
		}
		if !underscore && b.Len() > 0 {
			b.WriteByte('_')
			underscore = true
		}
	}
	slug := strings.TrimRight(b.String(), "_")
	if slug == "" {
		return "quiz"
	}
	return slug
}

func excerpt(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
