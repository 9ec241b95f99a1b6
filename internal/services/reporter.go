// internal/services/reporter.go
package services

import (
	"github.com/Corphon/ContentGuardMCP/internal/utils"
)

// ErrorReporter 错误上报协作方接口。
// 每次降级转换都带着阶段标签上报；实现必须不阻塞、不抛错。
type ErrorReporter interface {
	CaptureError(err error, tags map[string]string, extra map[string]interface{})
}

// LogErrorReporter 默认实现：写结构化日志。
// 任何内部失败都被吞掉，上报永远不能反过来破坏管道。
type LogErrorReporter struct {
	logger *utils.Logger
}

// NewLogErrorReporter 创建日志上报器
func NewLogErrorReporter() *LogErrorReporter {
	return &LogErrorReporter{logger: utils.GetLogger()}
}

// CaptureError 实现 ErrorReporter
func (r *LogErrorReporter) CaptureError(err error, tags map[string]string, extra map[string]interface{}) {
	defer func() {
		// 上报自身绝不允许panic传播
		_ = recover()
	}()

	if err == nil {
		return
	}

	fields := make(map[string]interface{}, len(tags)+len(extra)+1)
	fields["error"] = err.Error()
	for k, v := range tags {
		fields[k] = v
	}
	for k, v := range extra {
		fields[k] = v
	}

	r.logger.Error("analysis pipeline error reported", fields)
}

// truncatePayload 截断原始负载供错误上下文使用，避免日志爆量
func truncatePayload(payload string, maxLength int) string {
	if maxLength <= 0 {
		return ""
	}
	runes := []rune(payload)
	if len(runes) <= maxLength {
		return payload
	}
	return string(runes[:maxLength]) + "..."
}
