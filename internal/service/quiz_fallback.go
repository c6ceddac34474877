package service

import (
	"abyas_backend/internal/model"
	"strconv"
	"time"
)

type bankQuestion struct {
	question    string
	options     [4]string
	answer      string
	explanation string
}

// 未配置文本生成服务时使用的静态题库，未收录的主题使用 NCC General
var fallbackBank = map[string][]bankQuestion{
	"NCC General": {
		{
			question:    "What does NCC stand for?",
			options:     [4]string{"National Cadet Corps", "National Cricket Club", "New Cadet Course", "National Culture Council"},
			answer:      "A",
			explanation: "NCC stands for National Cadet Corps, a youth development movement that aims to develop character, comradeship, discipline, and a secular outlook among young citizens.",
		},
		{
			question:    "Who is the Supreme Commander of the NCC?",
			options:     [4]string{"Chief of Army Staff", "President of India", "Prime Minister of India", "Defence Minister"},
			answer:      "B",
			explanation: "The President of India is the Supreme Commander of the NCC, reflecting the constitutional role of the President as the Supreme Commander of the Armed Forces.",
		},
		{
			question:    "What is the motto of NCC?",
			options:     [4]string{"Unity and Discipline", "Service Before Self", "Strength and Honour", "Duty, Honor, Country"},
			answer:      "A",
			explanation: "The motto of NCC is 'Unity and Discipline' (Ekta aur Anushasan), the core values NCC seeks to instill in cadets.",
		},
	},
	"Leadership": {
		{
			question:    "What is the most important quality of a good leader?",
			options:     [4]string{"Intelligence", "Integrity", "Charisma", "Strength"},
			answer:      "B",
			explanation: "Integrity builds trust, ensures ethical decision-making, and sets a positive example for others to follow.",
		},
	},
}

// FallbackQuestions 从静态题库循环取题，题目 ID 与解析结果格式一致
func FallbackQuestions(topic, difficulty string, count int, now time.Time) []model.QuizQuestion {
	bank, ok := fallbackBank[topic]
	if !ok {
		bank = fallbackBank["NCC General"]
	}

	prefix := topicSlug(topic)
	createdAt := now.Format(time.RFC3339)
	questions := make([]model.QuizQuestion, 0, count)
	for i := 0; i < count; i++ {
		src := bank[i%len(bank)]
		opts := make(map[string]string, len(model.OptionLabels))
		for j, label := range model.OptionLabels {
			opts[label] = src.options[j]
		}
		questions = append(questions, model.QuizQuestion{
			ID:          prefix + "_" + strconv.Itoa(i+1),
			Question:    src.question,
			Options:     opts,
			Answer:      src.answer,
			Explanation: src.explanation,
			Topic:       topic,
			Difficulty:  difficulty,
			CreatedAt:   createdAt,
			Points:      1,
		})
	}
	return questions
}
