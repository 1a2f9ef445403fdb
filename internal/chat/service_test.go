package chat

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"StockDesk/internal/marketdata"
	"StockDesk/internal/model"
	"StockDesk/internal/store"
)

// fakeGenerator records its input and replies with a canned string.
type fakeGenerator struct {
	lastPrompt  string
	lastHistory []Turn
	lastContext string
	reply       string
	err         error
}

func (f *fakeGenerator) Generate(_ context.Context, prompt string, history []Turn, marketContext string) (string, error) {
	f.lastPrompt = prompt
	f.lastHistory = history
	f.lastContext = marketContext
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func newTestChat(t *testing.T) (*Service, *fakeGenerator, store.Store, string) {
	t.Helper()
	st, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "chat.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	u := &model.User{Name: "An", Email: "an@example.com", PasswordHash: "x"}
	require.NoError(t, st.CreateUser(context.Background(), u))

	gen := &fakeGenerator{reply: "Phân tích xong."}
	svc := NewService(st, &marketdata.MockFetcher{}, gen, zap.NewNop())
	return svc, gen, st, u.ID
}

func TestService_SendMessage(t *testing.T) {
	svc, gen, st, userID := newTestChat(t)
	ctx := context.Background()

	sess, err := svc.NewSession(ctx, userID, "HPG", "")
	require.NoError(t, err)
	assert.Equal(t, DefaultSessionTitle, sess.Title)

	reply, err := svc.SendMessage(ctx, userID, sess.ID, "", "HPG thế nào?")
	require.NoError(t, err)
	assert.Equal(t, model.RoleAssistant, reply.Role)
	assert.Equal(t, "Phân tích xong.", reply.Content)
	assert.Equal(t, "HPG", reply.Symbol) // session symbol used when none given

	// market context was built from the fetch
	assert.Contains(t, gen.lastContext, "PHÂN TÍCH CỔ PHIẾU: HPG")
	assert.Empty(t, gen.lastHistory)

	msgs, err := st.ChatMessages(ctx, userID, sess.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, model.RoleUser, msgs[0].Role)
	assert.Equal(t, model.RoleAssistant, msgs[1].Role)

	// first message titles the session
	got, err := st.ChatSessionByID(ctx, userID, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, "HPG thế nào?", got.Title)
}

func TestService_SendMessage_HistoryPassed(t *testing.T) {
	svc, gen, _, userID := newTestChat(t)
	ctx := context.Background()

	sess, err := svc.NewSession(ctx, userID, "", "")
	require.NoError(t, err)

	_, err = svc.SendMessage(ctx, userID, sess.ID, "", "câu đầu tiên")
	require.NoError(t, err)
	_, err = svc.SendMessage(ctx, userID, sess.ID, "", "câu thứ hai")
	require.NoError(t, err)

	require.Len(t, gen.lastHistory, 2)
	assert.Equal(t, model.RoleUser, gen.lastHistory[0].Role)
	assert.Equal(t, "câu đầu tiên", gen.lastHistory[0].Text)
	assert.Equal(t, model.RoleAssistant, gen.lastHistory[1].Role)
	// no symbol anywhere means no market context
	assert.Empty(t, gen.lastContext)
}

func TestService_SendMessage_FetchFailureDegrades(t *testing.T) {
	svc, gen, st, userID := newTestChat(t)
	svc.fetcher = &marketdata.MockFetcher{Err: fmt.Errorf("upstream down")}
	ctx := context.Background()

	sess, err := svc.NewSession(ctx, userID, "HPG", "")
	require.NoError(t, err)

	reply, err := svc.SendMessage(ctx, userID, sess.ID, "", "HPG?")
	require.NoError(t, err)
	assert.NotEmpty(t, reply.Content)
	assert.Contains(t, gen.lastContext, "không có dữ liệu chi tiết")

	msgs, err := st.ChatMessages(ctx, userID, sess.ID)
	require.NoError(t, err)
	assert.Len(t, msgs, 2)
}

func TestService_SendMessage_GeneratorError(t *testing.T) {
	svc, gen, st, userID := newTestChat(t)
	gen.err = fmt.Errorf("model unavailable")
	ctx := context.Background()

	sess, err := svc.NewSession(ctx, userID, "", "")
	require.NoError(t, err)

	_, err = svc.SendMessage(ctx, userID, sess.ID, "", "hỏi gì đó")
	assert.Error(t, err)

	// the user's side of the exchange is still recorded
	msgs, err := st.ChatMessages(ctx, userID, sess.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, model.RoleUser, msgs[0].Role)
}

func TestService_SendMessage_WrongUser(t *testing.T) {
	svc, _, _, userID := newTestChat(t)
	ctx := context.Background()

	sess, err := svc.NewSession(ctx, userID, "", "")
	require.NoError(t, err)

	_, err = svc.SendMessage(ctx, "intruder", sess.ID, "", "hi")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestService_ExplicitTitleNotOverwritten(t *testing.T) {
	svc, _, st, userID := newTestChat(t)
	ctx := context.Background()

	sess, err := svc.NewSession(ctx, userID, "", "Kế hoạch quý 4")
	require.NoError(t, err)

	_, err = svc.SendMessage(ctx, userID, sess.ID, "", "nội dung dài")
	require.NoError(t, err)

	got, err := st.ChatSessionByID(ctx, userID, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, "Kế hoạch quý 4", got.Title)
}

func TestTitleFromMessage(t *testing.T) {
	short := "ngắn gọn"
	assert.Equal(t, short, titleFromMessage(short))

	long := strings.Repeat("phân tích ", 10) // 100 runes
	got := titleFromMessage(long)
	assert.Equal(t, titleRuneLimit+3, len([]rune(got)))
	assert.True(t, strings.HasSuffix(got, "..."))
}
