package codegen

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/cloudwego/eino/schema"

	"github.com/ashwinyue/next-coder/internal/apperr"
	"github.com/ashwinyue/next-coder/internal/logger"
	"github.com/ashwinyue/next-coder/internal/metrics"
	"github.com/ashwinyue/next-coder/internal/model"
)

// Generator AI 代码生成服务
type Generator interface {
	// GenerateHTML 阻塞生成单文件 HTML
	GenerateHTML(ctx context.Context, prompt string) (*HTMLCodeResult, error)
	// GenerateMultiFile 阻塞生成多文件代码
	GenerateMultiFile(ctx context.Context, prompt string) (*MultiFileCodeResult, error)
	// StreamCode 流式生成，返回原始文本片段
	StreamCode(ctx context.Context, genType model.CodeGenType, prompt string) (*schema.StreamReader[*schema.Message], error)
}

// ReplyCommitter 流自然结束后确认完整回复，调用方断开的回复不会被确认
type ReplyCommitter interface {
	CommitReply(ctx context.Context, reply string)
}

// GeneratorProvider 获取生成服务实例
type GeneratorProvider interface {
	// Default 不绑定应用的共享实例
	Default() Generator
	// ForApp 应用独立实例，带该应用的对话记忆
	ForApp(ctx context.Context, appID int64) (Generator, error)
}

// Chunk 流式输出片段，Err 不为空时为最后一个片段
type Chunk struct {
	Data string
	Err  error
}

// StreamResult 流式生成的最终结果
type StreamResult struct {
	AppID  int64
	Status StreamState
	Text   string // 完整文本，取消时为空
	Dir    string // 保存目录，保存失败时为空
	Err    error  // 生成错误或保存错误
}

// ResultHook 流结束后回调，每次生成恰好调用一次
type ResultHook func(StreamResult)

// StreamOption 流式生成选项
type StreamOption func(*streamOptions)

type streamOptions struct {
	hooks []ResultHook
}

// WithResultHook 注册结束回调
func WithResultHook(hook ResultHook) StreamOption {
	return func(o *streamOptions) {
		if hook != nil {
			o.hooks = append(o.hooks, hook)
		}
	}
}

// Facade 代码生成门面，统一生成、解析、保存
type Facade struct {
	provider GeneratorProvider
	saver    *Saver
	log      *logger.Logger
}

// NewFacade 创建门面
func NewFacade(provider GeneratorProvider, saver *Saver, log *logger.Logger) *Facade {
	return &Facade{provider: provider, saver: saver, log: log}
}

// Saver 代码保存器
func (f *Facade) Saver() *Saver {
	return f.saver
}

// GenerateAndSaveCode 阻塞生成并保存到唯一目录，错误直接返回
func (f *Facade) GenerateAndSaveCode(ctx context.Context, prompt string, genType model.CodeGenType) (string, error) {
	if !genType.Valid() {
		return "", apperr.Newf(apperr.UnsupportedType, "不支持的代码生成类型: %s", genType)
	}

	start := time.Now()
	result, err := f.generate(ctx, f.provider.Default(), prompt, genType)
	metrics.GenerationDuration.WithLabelValues(string(genType), "blocking").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.GenerationsTotal.WithLabelValues(string(genType), "blocking", "failed").Inc()
		return "", err
	}
	metrics.GenerationsTotal.WithLabelValues(string(genType), "blocking", "success").Inc()

	dir, err := f.saver.SaveUnique(result)
	if err != nil {
		metrics.CodeSavesTotal.WithLabelValues(string(genType), "failed").Inc()
		return "", err
	}
	metrics.CodeSavesTotal.WithLabelValues(string(genType), "success").Inc()

	f.log.Info("code generated", "gen_type", genType, "dir", dir)
	return dir, nil
}

func (f *Facade) generate(ctx context.Context, gen Generator, prompt string, genType model.CodeGenType) (CodeResult, error) {
	switch genType {
	case model.CodeGenTypeHTML:
		r, err := gen.GenerateHTML(ctx, prompt)
		if err != nil {
			return nil, err
		}
		return r, nil
	case model.CodeGenTypeMultiFile:
		r, err := gen.GenerateMultiFile(ctx, prompt)
		if err != nil {
			return nil, err
		}
		return r, nil
	default:
		return nil, apperr.Newf(apperr.UnsupportedType, "不支持的代码生成类型: %s", genType)
	}
}

// GenerateAndSaveCodeStream 流式生成，片段原样透传给调用方
// 流自然结束后解析并保存到 {root}/{type}_{appId}，保存失败只记录日志
// 上游出错时返回 GenerationFailed 片段，不保存；ctx 取消时丢弃已缓冲内容
func (f *Facade) GenerateAndSaveCodeStream(ctx context.Context, prompt string, genType model.CodeGenType, appID int64, opts ...StreamOption) (<-chan Chunk, error) {
	if !genType.Valid() {
		return nil, apperr.Newf(apperr.UnsupportedType, "不支持的代码生成类型: %s", genType)
	}
	if appID <= 0 {
		return nil, apperr.New(apperr.ValidationFailed, "应用 ID 不能为空")
	}

	o := &streamOptions{}
	for _, opt := range opts {
		opt(o)
	}

	gen, err := f.provider.ForApp(ctx, appID)
	if err != nil {
		return nil, err
	}

	sr, err := gen.StreamCode(ctx, genType, prompt)
	if err != nil {
		metrics.GenerationsTotal.WithLabelValues(string(genType), "stream", "failed").Inc()
		return nil, asGenerationFailed(err)
	}

	// 无缓冲：调用方不读取就不会推进到流结束
	outCh := make(chan Chunk)
	go f.pump(ctx, gen, sr, outCh, genType, appID, o)
	return outCh, nil
}

// pump 一份上游流，两个消费者：透传给调用方、缓冲给解析器，只在结束时汇合
func (f *Facade) pump(ctx context.Context, gen Generator, sr *schema.StreamReader[*schema.Message], outCh chan<- Chunk, genType model.CodeGenType, appID int64, o *streamOptions) {
	defer sr.Close()

	start := time.Now()
	acc := NewAccumulator()
	log := f.log.With("app_id", appID, "gen_type", genType)

	finish := func(res StreamResult) {
		res.AppID = appID
		res.Status = acc.State()
		metrics.GenerationsTotal.WithLabelValues(string(genType), "stream", string(res.Status)).Inc()
		metrics.GenerationDuration.WithLabelValues(string(genType), "stream").Observe(time.Since(start).Seconds())
		for _, hook := range o.hooks {
			hook(res)
		}
	}
	cancelled := func() {
		acc.Cancel()
		close(outCh)
		log.Info("code stream cancelled")
		finish(StreamResult{Err: ctx.Err()})
	}

	for {
		msg, err := sr.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if ctx.Err() != nil {
				cancelled()
				return
			}
			acc.Fail()
			genErr := asGenerationFailed(err)
			select {
			case outCh <- Chunk{Err: genErr}:
			case <-ctx.Done():
			}
			close(outCh)
			log.Error("code stream failed", "error", err)
			finish(StreamResult{Text: acc.Text(), Err: genErr})
			return
		}
		if msg == nil || msg.Content == "" {
			continue
		}

		// select 在两路都就绪时随机选择，先判断取消
		if ctx.Err() != nil {
			cancelled()
			return
		}
		acc.Append(msg.Content)
		select {
		case outCh <- Chunk{Data: msg.Content}:
		case <-ctx.Done():
			cancelled()
			return
		}
	}

	if ctx.Err() != nil {
		cancelled()
		return
	}
	text := acc.Complete()
	if c, ok := gen.(ReplyCommitter); ok {
		c.CommitReply(context.WithoutCancel(ctx), text)
	}
	close(outCh)

	dir, err := f.parseAndSave(text, genType, appID)
	if err != nil {
		metrics.CodeSavesTotal.WithLabelValues(string(genType), "failed").Inc()
		log.Error("failed to save generated code", "error", err)
		finish(StreamResult{Text: text, Err: err})
		return
	}
	acc.MarkSaved()
	metrics.CodeSavesTotal.WithLabelValues(string(genType), "success").Inc()
	log.Info("generated code saved", "dir", dir)
	finish(StreamResult{Text: text, Dir: dir})
}

func (f *Facade) parseAndSave(text string, genType model.CodeGenType, appID int64) (string, error) {
	result, err := Parse(text, genType)
	if err != nil {
		return "", err
	}
	return f.saver.Save(result, appID)
}

func asGenerationFailed(err error) error {
	if apperr.KindOf(err) == apperr.GenerationFailed {
		return err
	}
	return apperr.Wrap(apperr.GenerationFailed, err, "AI 生成失败")
}
