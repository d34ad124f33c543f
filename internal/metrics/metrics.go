// Package metrics 代码生成链路的 Prometheus 指标
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// GenerationsTotal 代码生成次数
	GenerationsTotal *prometheus.CounterVec

	// CodeSavesTotal 代码落盘次数
	CodeSavesTotal *prometheus.CounterVec

	// DeploysTotal 部署次数
	DeploysTotal *prometheus.CounterVec

	// GeneratorCacheEvents AI 服务实例缓存事件（创建、移除）
	GeneratorCacheEvents *prometheus.CounterVec

	// GenerationDuration 生成耗时
	GenerationDuration *prometheus.HistogramVec
)

func init() {
	GenerationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "next_coder",
			Subsystem: "codegen",
			Name:      "generations_total",
			Help:      "Total number of code generations",
		},
		[]string{"gen_type", "mode", "status"},
	)

	CodeSavesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "next_coder",
			Subsystem: "codegen",
			Name:      "saves_total",
			Help:      "Total number of generated code saves",
		},
		[]string{"gen_type", "status"},
	)

	DeploysTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "next_coder",
			Subsystem: "deploy",
			Name:      "deploys_total",
			Help:      "Total number of app deployments",
		},
		[]string{"status"},
	)

	GeneratorCacheEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "next_coder",
			Subsystem: "generator_cache",
			Name:      "events_total",
			Help:      "Generator service cache constructions and removals",
		},
		[]string{"event", "cause"},
	)

	GenerationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "next_coder",
			Subsystem: "codegen",
			Name:      "generation_duration_seconds",
			Help:      "Code generation duration in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300},
		},
		[]string{"gen_type", "mode"},
	)

	prometheus.MustRegister(
		GenerationsTotal,
		CodeSavesTotal,
		DeploysTotal,
		GeneratorCacheEvents,
		GenerationDuration,
	)
}
