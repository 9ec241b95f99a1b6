// cmd/demo/main.go
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/Corphon/ContentGuardMCP/internal/app"
	"github.com/Corphon/ContentGuardMCP/internal/config"
	"github.com/Corphon/ContentGuardMCP/internal/di"
	"github.com/Corphon/ContentGuardMCP/internal/models"
	"github.com/Corphon/ContentGuardMCP/internal/services"
)

// 不带参数时使用的示例文稿
const sampleTranscript = `Hey everyone, welcome back to the channel! Today we're reviewing
the new racing game. The crash physics are insane, you can absolutely destroy
your car. I was screaming at my screen the whole time. Smash that like button
and let's get into it.`

func main() {
	fmt.Println("🚀 ContentGuardMCP Demo")
	fmt.Println("=======================")

	inputFile := flag.String("file", "", "要分析的文本文件路径（默认使用内置示例）")
	flag.Parse()

	text := sampleTranscript
	if *inputFile != "" {
		data, err := os.ReadFile(*inputFile)
		if err != nil {
			log.Fatalf("❌ 读取输入文件失败: %v", err)
		}
		text = string(data)
	}

	if err := config.InitConfig(); err != nil {
		log.Fatalf("❌ 初始化配置失败: %v", err)
	}

	if err := app.InitServices(); err != nil {
		log.Fatalf("❌ 初始化服务失败: %v", err)
	}

	pipeline, ok := di.GetContainer().Get("pipeline").(*services.PipelineService)
	if !ok {
		log.Fatal("❌ 分析管道服务未正确初始化")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	fmt.Printf("📄 分析 %d 字符的内容...\n", len(text))

	result, err := pipeline.Analyze(ctx, models.AnalysisRequest{Text: text})
	if err != nil {
		log.Fatalf("❌ 分析失败: %v", err)
	}

	output, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		log.Fatalf("❌ 序列化结果失败: %v", err)
	}

	fmt.Println(string(output))
	fmt.Printf("\n✅ 分析完成，模式: %s，总分: %d (%s)\n",
		result.Metadata.AnalysisMode,
		result.RiskAssessment.OverallRiskScore,
		result.RiskAssessment.SeverityLevel)
}
