// 手动检查模型输出的解析结果
//
// 读取一段保存下来的模型原始输出，按线上同样的规则解析，打印通过校验的题目
// 和被丢弃的题块（YAML 格式），用于调整提示词。不指定 -file 时按配置实际调用一次模型。
//
// 用法: go run scripts/parse_completion.go -file completion.txt -topic "Map Reading" -difficulty Medium

package main

import (
	"abyas_backend/internal/config"
	"abyas_backend/internal/service"
	"abyas_backend/pkg/logger"
	"context"
	"flag"
	"log"
	"os"

	"gopkg.in/yaml.v3"
)

type report struct {
	Blocks    int                      `yaml:"blocks"`
	Accepted  int                      `yaml:"accepted"`
	Questions []reportQuestion         `yaml:"questions"`
	Rejected  []service.BlockRejection `yaml:"rejected"`
}

type reportQuestion struct {
	ID          string            `yaml:"id"`
	Question    string            `yaml:"question"`
	Options     map[string]string `yaml:"options"`
	Answer      string            `yaml:"answer"`
	Explanation string            `yaml:"explanation"`
}

func main() {
	file := flag.String("file", "", "模型原始输出文件，为空时调用模型生成")
	topic := flag.String("topic", "NCC General", "主题")
	difficulty := flag.String("difficulty", "Medium", "难度")
	count := flag.Int("n", 5, "题目数量（仅调用模型时使用）")
	configDir := flag.String("config", "configs", "配置文件目录")
	flag.Parse()

	var raw string
	if *file != "" {
		data, err := os.ReadFile(*file)
		if err != nil {
			log.Fatalf("无法读取文件: %v", err)
		}
		raw = string(data)
	} else {
		cfg, err := config.LoadConfig(*configDir)
		if err != nil {
			log.Fatalf("加载配置失败: %v", err)
		}
		if err := logger.InitLogger(cfg.Log, cfg.Server.Mode); err != nil {
			log.Fatalf("初始化日志失败: %v", err)
		}
		defer logger.Sync()

		aiService := service.NewAIService(cfg.AI)
		raw, err = aiService.Complete(context.Background(), service.BuildTopicPrompt(*topic, *difficulty, *count))
		if err != nil {
			log.Fatalf("调用模型失败: %v", err)
		}
	}

	result := service.NewQuizParser().Parse(raw, *topic, *difficulty)

	out := report{Blocks: result.Blocks, Accepted: len(result.Questions), Rejected: result.Rejected}
	for _, q := range result.Questions {
		out.Questions = append(out.Questions, reportQuestion{
			ID:          q.ID,
			Question:    q.Question,
			Options:     q.Options,
			Answer:      q.Answer,
			Explanation: q.Explanation,
		})
	}

	enc := yaml.NewEncoder(os.Stdout)
	enc.SetIndent(2)
	if err := enc.Encode(out); err != nil {
		log.Fatalf("输出失败: %v", err)
	}
}
