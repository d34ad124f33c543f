package aicoder

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashwinyue/next-coder/internal/apperr"
	"github.com/ashwinyue/next-coder/internal/model"
	"github.com/ashwinyue/next-coder/internal/service/codegen"
	"github.com/ashwinyue/next-coder/internal/testutil"
)

func newTestService(chat *testutil.ScriptedChatModel) *Service {
	return NewService(1, chat, NewChatMemory(1, 20, nil), testutil.NewLogger())
}

func TestDecodeResult(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		want  string
		ok    bool
	}{
		{"plain json", `{"htmlCode":"<p>x</p>","description":"d"}`, "<p>x</p>", true},
		{"fenced json", "```json\n{\"htmlCode\":\"<p>y</p>\"}\n```", "<p>y</p>", true},
		{"surrounding text", "好的：\n{\"htmlCode\":\"<p>z</p>\"}\n完成", "<p>z</p>", true},
		{"trailing comma", `{"htmlCode":"<p>r</p>",}`, "<p>r</p>", true},
		{"not json", "just text", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var r codegen.HTMLCodeResult
			err := decodeResult(tt.reply, &r)
			if !tt.ok {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, r.HTMLCode)
		})
	}
}

func TestService_GenerateHTML(t *testing.T) {
	chat := &testutil.ScriptedChatModel{Reply: `{"htmlCode":"<p>x</p>","description":"简单页面"}`}
	s := newTestService(chat)

	r, err := s.GenerateHTML(context.Background(), "做个页面")
	require.NoError(t, err)
	assert.Equal(t, "<p>x</p>", r.HTMLCode)
	assert.Equal(t, "简单页面", r.Description)

	// 用户与 AI 消息都进入记忆
	msgs := s.Memory().Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, schema.User, msgs[0].Role)
	assert.Equal(t, schema.Assistant, msgs[1].Role)

	// 系统提示词在最前，用户消息在最后
	input := chat.LastInput()
	require.NotEmpty(t, input)
	assert.Equal(t, schema.System, input[0].Role)
	assert.Equal(t, "做个页面", input[len(input)-1].Content)
}

func TestService_GenerateFallsBackToFences(t *testing.T) {
	chat := &testutil.ScriptedChatModel{Reply: "```html\n<p>x</p>\n```\n```css\np{}\n```"}
	s := newTestService(chat)

	r, err := s.GenerateMultiFile(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, "<p>x</p>", r.HTMLCode)
	assert.Equal(t, "p{}", r.CSSCode)
}

func TestService_GenerateError(t *testing.T) {
	chat := &testutil.ScriptedChatModel{GenerateErr: errors.New("timeout")}
	s := newTestService(chat)

	_, err := s.GenerateHTML(context.Background(), "p")
	assert.Equal(t, apperr.GenerationFailed, apperr.KindOf(err))
	// 用户消息已记住，AI 回复没有
	assert.Equal(t, 1, s.Memory().Len())
}

func TestService_StreamCodeRemembersCommittedReply(t *testing.T) {
	chat := &testutil.ScriptedChatModel{Chunks: []string{"```html\n", "<p>x</p>", "\n```"}}
	s := newTestService(chat)

	sr, err := s.StreamCode(context.Background(), model.CodeGenTypeHTML, "做个页面")
	require.NoError(t, err)

	var sb strings.Builder
	for {
		msg, err := sr.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		sb.WriteString(msg.Content)
	}
	sr.Close()

	// 读到 EOF 不代表调用方确认了这轮回复
	require.Equal(t, 1, s.Memory().Len())

	s.CommitReply(context.Background(), sb.String())
	msgs := s.Memory().Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "做个页面", msgs[0].Content)
	assert.Equal(t, sb.String(), msgs[1].Content)
}

func TestService_StreamCodeClosedReaderNotRemembered(t *testing.T) {
	chat := &testutil.ScriptedChatModel{Chunks: []string{"```html\n", "<p>x</p>", "\n```"}}
	s := newTestService(chat)

	sr, err := s.StreamCode(context.Background(), model.CodeGenTypeHTML, "做个页面")
	require.NoError(t, err)
	sr.Close()

	s.CommitReply(context.Background(), "  ")
	msgs := s.Memory().Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, schema.User, msgs[0].Role)
}

func TestService_StreamCodeUnsupported(t *testing.T) {
	s := newTestService(&testutil.ScriptedChatModel{})
	_, err := s.StreamCode(context.Background(), model.CodeGenType("VUE"), "p")
	assert.Equal(t, apperr.UnsupportedType, apperr.KindOf(err))
}

func TestService_HistoryIncludedInPrompt(t *testing.T) {
	chat := &testutil.ScriptedChatModel{Reply: `{"htmlCode":"<p>x</p>"}`}
	s := newTestService(chat)
	require.NoError(t, s.Memory().Add(context.Background(),
		schema.UserMessage("上一轮"), schema.AssistantMessage("上一轮回复", nil)))

	_, err := s.GenerateHTML(context.Background(), "这一轮")
	require.NoError(t, err)

	input := chat.LastInput()
	require.Len(t, input, 4)
	assert.Equal(t, "上一轮", input[1].Content)
	assert.Equal(t, "上一轮回复", input[2].Content)
	assert.Equal(t, "这一轮", input[3].Content)
}
