package codegen

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashwinyue/next-coder/internal/apperr"
	"github.com/ashwinyue/next-coder/internal/model"
	"github.com/ashwinyue/next-coder/internal/testutil"
)

// scriptedGenerator 直接把 ChatModel 的输出当作生成结果
type scriptedGenerator struct {
	chat *testutil.ScriptedChatModel
}

func (g *scriptedGenerator) GenerateHTML(ctx context.Context, prompt string) (*HTMLCodeResult, error) {
	msg, err := g.chat.Generate(ctx, []*schema.Message{schema.UserMessage(prompt)})
	if err != nil {
		return nil, err
	}
	return ParseHTML(msg.Content), nil
}

func (g *scriptedGenerator) GenerateMultiFile(ctx context.Context, prompt string) (*MultiFileCodeResult, error) {
	msg, err := g.chat.Generate(ctx, []*schema.Message{schema.UserMessage(prompt)})
	if err != nil {
		return nil, err
	}
	return ParseMultiFile(msg.Content), nil
}

func (g *scriptedGenerator) StreamCode(ctx context.Context, genType model.CodeGenType, prompt string) (*schema.StreamReader[*schema.Message], error) {
	return g.chat.Stream(ctx, []*schema.Message{schema.UserMessage(prompt)})
}

// committingGenerator 记录确认过的回复
type committingGenerator struct {
	*scriptedGenerator

	mu      sync.Mutex
	replies []string
}

func (g *committingGenerator) CommitReply(ctx context.Context, reply string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.replies = append(g.replies, reply)
}

func (g *committingGenerator) committed() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.replies...)
}

type stubProvider struct {
	gen Generator
}

func (p *stubProvider) Default() Generator { return p.gen }

func (p *stubProvider) ForApp(ctx context.Context, appID int64) (Generator, error) {
	return p.gen, nil
}

func newTestFacade(t *testing.T, root string, chat *testutil.ScriptedChatModel) *Facade {
	t.Helper()
	saver, err := NewSaver(root)
	require.NoError(t, err)
	return NewFacade(&stubProvider{gen: &scriptedGenerator{chat: chat}}, saver, testutil.NewLogger())
}

// collect 读完片段并等待结束回调
func collect(t *testing.T, ch <-chan Chunk, results <-chan StreamResult) ([]Chunk, StreamResult) {
	t.Helper()
	var chunks []Chunk
	for c := range ch {
		chunks = append(chunks, c)
	}
	select {
	case res := <-results:
		return chunks, res
	case <-time.After(5 * time.Second):
		t.Fatal("result hook not called")
		return nil, StreamResult{}
	}
}

func TestFacade_StreamSavesHTML(t *testing.T) {
	root := t.TempDir()
	chat := &testutil.ScriptedChatModel{Chunks: []string{"```html\n", "<p>x</p>", "\n```"}}
	f := newTestFacade(t, root, chat)

	results := make(chan StreamResult, 1)
	ch, err := f.GenerateAndSaveCodeStream(context.Background(), "做个页面", model.CodeGenTypeHTML, 1,
		WithResultHook(func(r StreamResult) { results <- r }))
	require.NoError(t, err)

	chunks, res := collect(t, ch, results)
	var data []string
	for _, c := range chunks {
		require.NoError(t, c.Err)
		data = append(data, c.Data)
	}
	assert.Equal(t, []string{"```html\n", "<p>x</p>", "\n```"}, data)

	assert.Equal(t, StateSaved, res.Status)
	assert.Equal(t, int64(1), res.AppID)
	assert.Equal(t, strings.Join(data, ""), res.Text)
	assert.Equal(t, filepath.Join(root, "HTML_1"), res.Dir)

	html, err := os.ReadFile(filepath.Join(root, "HTML_1", FileHTML))
	require.NoError(t, err)
	assert.Equal(t, "<p>x</p>", string(html))
}

func TestFacade_StreamSaveFailureIsSwallowed(t *testing.T) {
	root := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(root, []byte("x"), 0644))

	chat := &testutil.ScriptedChatModel{Chunks: []string{"```html\n<p>x</p>\n```"}}
	f := newTestFacade(t, root, chat)

	results := make(chan StreamResult, 1)
	ch, err := f.GenerateAndSaveCodeStream(context.Background(), "p", model.CodeGenTypeHTML, 2,
		WithResultHook(func(r StreamResult) { results <- r }))
	require.NoError(t, err)

	chunks, res := collect(t, ch, results)
	require.Len(t, chunks, 1)
	assert.NoError(t, chunks[0].Err)

	assert.Equal(t, StateCompleted, res.Status)
	assert.Equal(t, apperr.StorageError, apperr.KindOf(res.Err))
	assert.Empty(t, res.Dir)
	assert.NotEmpty(t, res.Text)
}

func TestFacade_StreamUpstreamError(t *testing.T) {
	root := t.TempDir()
	chat := &testutil.ScriptedChatModel{
		Chunks:    []string{"```html\n<p>"},
		StreamErr: errors.New("connection reset"),
	}
	f := newTestFacade(t, root, chat)

	results := make(chan StreamResult, 1)
	ch, err := f.GenerateAndSaveCodeStream(context.Background(), "p", model.CodeGenTypeHTML, 3,
		WithResultHook(func(r StreamResult) { results <- r }))
	require.NoError(t, err)

	chunks, res := collect(t, ch, results)
	require.Len(t, chunks, 2)
	assert.Equal(t, "```html\n<p>", chunks[0].Data)
	assert.Equal(t, apperr.GenerationFailed, apperr.KindOf(chunks[1].Err))

	assert.Equal(t, StateFailed, res.Status)
	assert.Equal(t, apperr.GenerationFailed, apperr.KindOf(res.Err))

	_, statErr := os.Stat(filepath.Join(root, "HTML_3"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestFacade_StreamCancelled(t *testing.T) {
	root := t.TempDir()
	hold := make(chan struct{})
	defer close(hold)
	chat := &testutil.ScriptedChatModel{Chunks: []string{"```html\n<p>x</p>\n```"}, Hold: hold}
	f := newTestFacade(t, root, chat)

	ctx, cancel := context.WithCancel(context.Background())
	results := make(chan StreamResult, 1)
	ch, err := f.GenerateAndSaveCodeStream(ctx, "p", model.CodeGenTypeHTML, 4,
		WithResultHook(func(r StreamResult) { results <- r }))
	require.NoError(t, err)

	first := <-ch
	assert.Equal(t, "```html\n<p>x</p>\n```", first.Data)
	cancel()

	_, res := collect(t, ch, results)
	assert.Equal(t, StateCancelled, res.Status)
	assert.Empty(t, res.Text)

	_, statErr := os.Stat(filepath.Join(root, "HTML_4"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestFacade_StreamCancelledBeforeRead(t *testing.T) {
	root := t.TempDir()
	saver, err := NewSaver(root)
	require.NoError(t, err)
	gen := &committingGenerator{scriptedGenerator: &scriptedGenerator{
		chat: &testutil.ScriptedChatModel{Chunks: []string{"```html\n", "<p>x</p>", "\n```"}},
	}}
	f := NewFacade(&stubProvider{gen: gen}, saver, testutil.NewLogger())

	for i := int64(1); i <= 50; i++ {
		ctx, cancel := context.WithCancel(context.Background())
		results := make(chan StreamResult, 1)
		ch, err := f.GenerateAndSaveCodeStream(ctx, "p", model.CodeGenTypeHTML, i,
			WithResultHook(func(r StreamResult) { results <- r }))
		require.NoError(t, err)
		cancel()

		_, res := collect(t, ch, results)
		assert.Equal(t, StateCancelled, res.Status)

		_, statErr := os.Stat(filepath.Join(root, DirName(model.CodeGenTypeHTML, i)))
		assert.True(t, os.IsNotExist(statErr), "app %d saved after cancel", i)
	}
	assert.Empty(t, gen.committed())
}

func TestFacade_StreamCommitsReplyOnCompletion(t *testing.T) {
	saver, err := NewSaver(t.TempDir())
	require.NoError(t, err)
	gen := &committingGenerator{scriptedGenerator: &scriptedGenerator{
		chat: &testutil.ScriptedChatModel{Chunks: []string{"```html\n", "<p>x</p>", "\n```"}},
	}}
	f := NewFacade(&stubProvider{gen: gen}, saver, testutil.NewLogger())

	results := make(chan StreamResult, 1)
	ch, err := f.GenerateAndSaveCodeStream(context.Background(), "p", model.CodeGenTypeHTML, 1,
		WithResultHook(func(r StreamResult) { results <- r }))
	require.NoError(t, err)

	_, res := collect(t, ch, results)
	assert.Equal(t, StateSaved, res.Status)
	assert.Equal(t, []string{"```html\n<p>x</p>\n```"}, gen.committed())
}

func TestFacade_StreamRejectsBadInput(t *testing.T) {
	f := newTestFacade(t, t.TempDir(), &testutil.ScriptedChatModel{})

	_, err := f.GenerateAndSaveCodeStream(context.Background(), "p", model.CodeGenType("VUE"), 1)
	assert.Equal(t, apperr.UnsupportedType, apperr.KindOf(err))

	_, err = f.GenerateAndSaveCodeStream(context.Background(), "p", model.CodeGenTypeHTML, 0)
	assert.Equal(t, apperr.ValidationFailed, apperr.KindOf(err))
}

func TestFacade_StreamStartError(t *testing.T) {
	chat := &testutil.ScriptedChatModel{StartErr: errors.New("quota exceeded")}
	f := newTestFacade(t, t.TempDir(), chat)

	_, err := f.GenerateAndSaveCodeStream(context.Background(), "p", model.CodeGenTypeHTML, 1)
	assert.Equal(t, apperr.GenerationFailed, apperr.KindOf(err))
}

func TestFacade_GenerateAndSaveCode(t *testing.T) {
	root := t.TempDir()
	chat := &testutil.ScriptedChatModel{Reply: "```html\n<p>x</p>\n```\n```css\np{}\n```"}
	f := newTestFacade(t, root, chat)

	dir, err := f.GenerateAndSaveCode(context.Background(), "p", model.CodeGenTypeMultiFile)
	require.NoError(t, err)
	assert.Equal(t, root, filepath.Dir(dir))
	assert.Equal(t, "p{}", readFile(t, filepath.Join(dir, FileCSS)))

	chat.GenerateErr = errors.New("boom")
	_, err = f.GenerateAndSaveCode(context.Background(), "p", model.CodeGenTypeHTML)
	assert.Error(t, err)
}
