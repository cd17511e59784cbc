package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"weitalk_relay_server/internal/dao/mysql/repository"
	"weitalk_relay_server/internal/model"
	"weitalk_relay_server/pkg/errorx"
)

// ==================== 内存版 Repository 桩 ====================

type stubUserRepo struct {
	mu           sync.Mutex
	users        map[string]*model.UserInfo
	online       map[string]bool
	setOnlineErr error
}

func newStubUserRepo(uuids ...string) *stubUserRepo {
	r := &stubUserRepo{users: map[string]*model.UserInfo{}, online: map[string]bool{}}
	for _, uuid := range uuids {
		r.users[uuid] = &model.UserInfo{Uuid: uuid, FullName: "用户" + uuid, Email: uuid + "@test.local"}
	}
	return r
}

func (r *stubUserRepo) FindByUuid(uuid string) (*model.UserInfo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if user, ok := r.users[uuid]; ok {
		return user, nil
	}
	return nil, errorx.New(errorx.CodeNotFound, "用户不存在")
}

func (r *stubUserRepo) FindByEmail(email string) (*model.UserInfo, error) {
	return nil, errorx.New(errorx.CodeNotFound, "用户不存在")
}

func (r *stubUserRepo) FindByUuids(uuids []string) ([]model.UserInfo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var users []model.UserInfo
	for _, uuid := range uuids {
		if user, ok := r.users[uuid]; ok {
			users = append(users, *user)
		}
	}
	return users, nil
}

func (r *stubUserRepo) FindAllExcept(excludeUuid string) ([]model.UserInfo, error) {
	return nil, nil
}

func (r *stubUserRepo) Create(user *model.UserInfo) error { return nil }

func (r *stubUserRepo) SetOnline(uuid string, online bool, lastSeen time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.setOnlineErr != nil {
		return r.setOnlineErr
	}
	r.online[uuid] = online
	return nil
}

func (r *stubUserRepo) failSetOnline(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.setOnlineErr = err
}

func (r *stubUserRepo) isOnline(uuid string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.online[uuid]
}

type stubChatRepo struct {
	mu           sync.Mutex
	participants map[string][]string
	touched      map[string]int
}

func newStubChatRepo() *stubChatRepo {
	return &stubChatRepo{participants: map[string][]string{}, touched: map[string]int{}}
}

func (r *stubChatRepo) FindByUuid(uuid string) (*model.Chat, error) {
	return nil, errorx.New(errorx.CodeNotFound, "会话不存在")
}
func (r *stubChatRepo) ListChatsForUser(userUuid string) ([]model.Chat, error) { return nil, nil }
func (r *stubChatRepo) ListChatUuidsForUser(userUuid string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var chatUuids []string
	for chatUuid, members := range r.participants {
		for _, member := range members {
			if member == userUuid {
				chatUuids = append(chatUuids, chatUuid)
				break
			}
		}
	}
	return chatUuids, nil
}
func (r *stubChatRepo) FindParticipants(chatUuid string) ([]model.ChatParticipant, error) {
	return nil, nil
}

func (r *stubChatRepo) IsParticipant(chatUuid, userUuid string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, member := range r.participants[chatUuid] {
		if member == userUuid {
			return true, nil
		}
	}
	return false, nil
}

func (r *stubChatRepo) Touch(chatUuid string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.touched[chatUuid]++
	return nil
}

func (r *stubChatRepo) FindDirectChat(userA, userB string) (*model.Chat, error) {
	return nil, errorx.New(errorx.CodeNotFound, "会话不存在")
}
func (r *stubChatRepo) CreateDirectChat(userA, userB string) (*model.Chat, error) {
	return nil, errorx.ErrServerBusy
}
func (r *stubChatRepo) CreateGroupChat(name, creatorUuid string, memberUuids []string) (*model.Chat, error) {
	return nil, errorx.ErrServerBusy
}

type stubMessageRepo struct {
	mu       sync.Mutex
	nextUuid int64
	messages []*model.Message
}

func newStubMessageRepo(existingUuids ...int64) *stubMessageRepo {
	r := &stubMessageRepo{nextUuid: 1000}
	for _, uuid := range existingUuids {
		r.messages = append(r.messages, &model.Message{Uuid: uuid, ChatUuid: "chat_1"})
	}
	return r
}

func (r *stubMessageRepo) seed(chatUuid string, uuid int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, &model.Message{Uuid: uuid, ChatUuid: chatUuid})
}

func (r *stubMessageRepo) Create(message *model.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if message.Uuid == 0 {
		r.nextUuid++
		message.Uuid = r.nextUuid
	}
	message.CreatedAt = time.Now()
	r.messages = append(r.messages, message)
	return nil
}

func (r *stubMessageRepo) FindByChatUuid(chatUuid string) ([]model.Message, error) { return nil, nil }
func (r *stubMessageRepo) FindLastByChatUuid(chatUuid string) (*model.Message, error) {
	return nil, errorx.New(errorx.CodeNotFound, "无消息")
}

func (r *stubMessageRepo) FindExistingUuids(chatUuid string, uuids []int64) ([]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	known := make(map[int64]struct{}, len(r.messages))
	for _, message := range r.messages {
		if message.ChatUuid == chatUuid {
			known[message.Uuid] = struct{}{}
		}
	}
	var existing []int64
	for _, uuid := range uuids {
		if _, ok := known[uuid]; ok {
			existing = append(existing, uuid)
		}
	}
	return existing, nil
}

func (r *stubMessageRepo) UnreadCounts(userUuid string, chatUuids []string) (map[string]int64, error) {
	return map[string]int64{}, nil
}

func (r *stubMessageRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.messages)
}

type stubReadRepo struct {
	mu       sync.Mutex
	receipts map[int64]map[string]struct{}
}

func newStubReadRepo() *stubReadRepo {
	return &stubReadRepo{receipts: map[int64]map[string]struct{}{}}
}

func (r *stubReadRepo) UpsertMany(messageUuids []int64, userUuid string, readAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, uuid := range messageUuids {
		if _, ok := r.receipts[uuid]; !ok {
			r.receipts[uuid] = map[string]struct{}{}
		}
		r.receipts[uuid][userUuid] = struct{}{}
	}
	return nil
}

func (r *stubReadRepo) FindByMessageUuids(messageUuids []int64) ([]model.MessageRead, error) {
	return nil, nil
}

func (r *stubReadRepo) hasReceipt(messageUuid int64, userUuid string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.receipts[messageUuid][userUuid]
	return ok
}

// fakeCache 同步执行任务的缓存桩
type fakeCache struct{}

func (fakeCache) Set(ctx context.Context, key, value string, ttl time.Duration) error { return nil }
func (fakeCache) Get(ctx context.Context, key string) (string, error)                 { return "", nil }
func (fakeCache) GetOrError(ctx context.Context, key string) (string, error) {
	return "", errorx.New(errorx.CodeNotFound, "key 不存在")
}
func (fakeCache) Delete(ctx context.Context, key string) error                       { return nil }
func (fakeCache) DeleteByPattern(ctx context.Context, pattern string) error          { return nil }
func (fakeCache) AddToSet(ctx context.Context, key string, members ...interface{}) error {
	return nil
}
func (fakeCache) GetSetMembers(ctx context.Context, key string) ([]string, error) { return nil, nil }
func (fakeCache) RemoveFromSet(ctx context.Context, key string, members ...interface{}) error {
	return nil
}
func (fakeCache) SubmitTask(action func()) { action() }

// ==================== 测试基础设施 ====================

type relayFixture struct {
	server   *Server
	users    *stubUserRepo
	chats    *stubChatRepo
	messages *stubMessageRepo
	reads    *stubReadRepo
	httpSrv  *httptest.Server
}

func newRelayFixture(t *testing.T) *relayFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	f := &relayFixture{
		users:    newStubUserRepo("U_A", "U_B"),
		chats:    newStubChatRepo(),
		messages: newStubMessageRepo(),
		reads:    newStubReadRepo(),
	}
	f.chats.participants["chat_1"] = []string{"U_A", "U_B"}

	repos := &repository.Repositories{
		User:        f.users,
		Chat:        f.chats,
		Message:     f.messages,
		MessageRead: f.reads,
	}
	f.server = NewServer(repos, fakeCache{})
	f.server.UseBroker(NewChannelBroker(f.server))
	f.server.Start()

	engine := gin.New()
	engine.GET("/ws", func(c *gin.Context) {
		_ = NewClientInit(c, f.server)
	})
	f.httpSrv = httptest.NewServer(engine)

	t.Cleanup(func() {
		f.server.Close()
		f.httpSrv.Close()
	})
	return f
}

func (f *relayFixture) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	wsUrl := "ws" + strings.TrimPrefix(f.httpSrv.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(wsUrl, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", wsUrl, err)
	}
	if resp != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })

	// gorilla/websocket 的读错误（含超时）是永久性的，之后该连接无法再读。
	// 因此由单独的 goroutine 持续读帧写入 channel，
	// waitEvent / expectSilence 用 select 超时，不在连接上设读截止时间。
	ch := make(chan readResult, 256)
	go func() {
		for {
			_, payload, err := conn.ReadMessage()
			if err != nil {
				ch <- readResult{err: err}
				return
			}
			var frame wireFrame
			if err := json.Unmarshal(payload, &frame); err != nil {
				ch <- readResult{err: fmt.Errorf("bad frame %q: %v", payload, err)}
				return
			}
			ch <- readResult{frame: frame}
		}
	}()
	framesMu.Lock()
	frames[conn] = ch
	framesMu.Unlock()
	return conn
}

type wireFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type readResult struct {
	frame wireFrame
	err   error
}

var (
	framesMu sync.Mutex
	frames   = map[*websocket.Conn]chan readResult{}
)

func framesFor(t *testing.T, conn *websocket.Conn) chan readResult {
	t.Helper()
	framesMu.Lock()
	defer framesMu.Unlock()
	ch, ok := frames[conn]
	if !ok {
		t.Fatal("connection was not created by dial")
	}
	return ch
}

func sendEvent(t *testing.T, conn *websocket.Conn, event string, data any) {
	t.Helper()
	raw, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("marshal %s data: %v", event, err)
	}
	frame, _ := json.Marshal(wireFrame{Event: event, Data: raw})
	if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		t.Fatalf("write %s: %v", event, err)
	}
}

// waitEvent 等待指定事件，跳过途中到达的其他事件
func waitEvent(t *testing.T, conn *websocket.Conn, event string) json.RawMessage {
	t.Helper()
	ch := framesFor(t, conn)
	timeout := time.After(3 * time.Second)
	for {
		select {
		case res := <-ch:
			if res.err != nil {
				t.Fatalf("waiting for %s: %v", event, res.err)
			}
			if res.frame.Event == event {
				return res.frame.Data
			}
		case <-timeout:
			t.Fatalf("waiting for %s: timeout", event)
		}
	}
}

// expectSilence 在给定时间内不允许收到指定事件
func expectSilence(t *testing.T, conn *websocket.Conn, event string) {
	t.Helper()
	ch := framesFor(t, conn)
	timeout := time.After(300 * time.Millisecond)
	for {
		select {
		case res := <-ch:
			if res.err != nil {
				return // 连接关闭即符合预期
			}
			if res.frame.Event == event {
				t.Fatalf("unexpected %s event: %s", event, res.frame.Data)
			}
		case <-timeout:
			return
		}
	}
}

// waitRoomSize 等待房间达到目标人数
// join_chat 没有 ack，跨连接的时序用服务端房间表收敛
func waitRoomSize(t *testing.T, f *relayFixture, chatId string, want int) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if len(f.server.rooms.Members(chatId)) == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("room %s never reached %d members", chatId, want)
}

func authenticate(t *testing.T, conn *websocket.Conn, userId string) {
	t.Helper()
	sendEvent(t, conn, EventAuthenticate, map[string]string{"userId": userId})
	data := waitEvent(t, conn, EventAuthenticated)
	var ack struct {
		UserId string `json:"userId"`
	}
	if err := json.Unmarshal(data, &ack); err != nil || ack.UserId != userId {
		t.Fatalf("authenticated ack = %s, want userId %s", data, userId)
	}
}

// ==================== 测试用例 ====================

func TestAuthenticateSuccessAndPresenceBroadcast(t *testing.T) {
	f := newRelayFixture(t)

	connA := f.dial(t)
	authenticate(t, connA, "U_A")
	if !f.users.isOnline("U_A") {
		t.Fatal("authenticate should persist online=true")
	}

	// 第二个用户上线，已在线的连接应收到 user_online 广播
	connB := f.dial(t)
	authenticate(t, connB, "U_B")

	data := waitEvent(t, connA, EventUserOnline)
	var presence struct {
		UserId string `json:"userId"`
	}
	if err := json.Unmarshal(data, &presence); err != nil || presence.UserId != "U_B" {
		t.Fatalf("user_online payload = %s, want U_B", data)
	}
}

func TestAuthenticateUnknownUserKeepsConnectionOpen(t *testing.T) {
	f := newRelayFixture(t)
	conn := f.dial(t)

	sendEvent(t, conn, EventAuthenticate, map[string]string{"userId": "U_GHOST"})
	waitEvent(t, conn, EventAuthError)

	// 连接保持打开，重试合法身份应成功
	authenticate(t, conn, "U_A")
}

func TestAuthenticateSubscribesUserChats(t *testing.T) {
	f := newRelayFixture(t)
	connA := f.dial(t)
	connB := f.dial(t)

	// 只认证，不发 join_chat：认证时应已订阅成员会话
	authenticate(t, connA, "U_A")
	authenticate(t, connB, "U_B")

	sendEvent(t, connA, EventSendMessage, map[string]any{
		"chatId":  "chat_1",
		"message": map[string]string{"content": "自动订阅"},
	})

	data := waitEvent(t, connB, EventNewMessage)
	var got struct {
		ChatId  string `json:"chat_id"`
		Content string `json:"content"`
	}
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("new_message payload: %v", err)
	}
	if got.ChatId != "chat_1" || got.Content != "自动订阅" {
		t.Fatalf("new_message = %+v", got)
	}
}

func TestAuthenticateStorageFailureStaysUnauthenticated(t *testing.T) {
	f := newRelayFixture(t)
	connB := f.dial(t)
	authenticate(t, connB, "U_B")

	// 在线状态落库失败：只回 auth_error，不广播，不登记
	f.users.failSetOnline(errorx.ErrServerBusy)
	connA := f.dial(t)
	sendEvent(t, connA, EventAuthenticate, map[string]string{"userId": "U_A"})
	waitEvent(t, connA, EventAuthError)
	expectSilence(t, connB, EventUserOnline)

	if f.server.registry.IsOnline("U_A") {
		t.Fatal("failed authenticate must not register presence")
	}
	if len(f.server.rooms.Members("chat_1")) != 1 {
		t.Fatal("failed authenticate must not subscribe chats")
	}

	// 连接保持未认证，业务事件被拒绝
	sendEvent(t, connA, EventSendMessage, map[string]any{
		"chatId":  "chat_1",
		"message": map[string]string{"content": "hello"},
	})
	waitEvent(t, connA, EventMessageError)

	// 存储恢复后同一连接可以重试
	f.users.failSetOnline(nil)
	authenticate(t, connA, "U_A")
	waitEvent(t, connB, EventUserOnline)
}

func TestReauthenticateOnBoundConnectionRejected(t *testing.T) {
	f := newRelayFixture(t)
	connB := f.dial(t)
	authenticate(t, connB, "U_B")
	connA := f.dial(t)
	authenticate(t, connA, "U_A")
	waitEvent(t, connB, EventUserOnline)

	// 已绑定用户的连接不允许换绑
	sendEvent(t, connA, EventAuthenticate, map[string]string{"userId": "U_B"})
	waitEvent(t, connA, EventAuthError)
	if got := len(f.server.registry.ConnectionsFor("U_B")); got != 1 {
		t.Fatalf("U_B connections = %d, want 1", got)
	}

	// 关闭连接后离线的是最初绑定的用户
	_ = connA.Close()
	data := waitEvent(t, connB, EventUserOffline)
	var presence struct {
		UserId string `json:"userId"`
	}
	if err := json.Unmarshal(data, &presence); err != nil || presence.UserId != "U_A" {
		t.Fatalf("user_offline payload = %s, want U_A", data)
	}
	if !f.server.registry.IsOnline("U_B") {
		t.Fatal("U_B must stay online after the other socket closes")
	}
}

func TestUnauthenticatedEventRejected(t *testing.T) {
	f := newRelayFixture(t)
	conn := f.dial(t)

	sendEvent(t, conn, EventSendMessage, map[string]any{
		"chatId":  "chat_1",
		"message": map[string]string{"content": "hello"},
	})
	waitEvent(t, conn, EventMessageError)

	if f.messages.count() != 0 {
		t.Fatal("unauthenticated send_message must not persist")
	}
}

func TestSendMessageFanoutIncludesSender(t *testing.T) {
	f := newRelayFixture(t)
	connA := f.dial(t)
	connB := f.dial(t)
	authenticate(t, connA, "U_A")
	authenticate(t, connB, "U_B")

	sendEvent(t, connA, EventJoinChat, map[string]string{"chatId": "chat_1"})
	sendEvent(t, connB, EventJoinChat, map[string]string{"chatId": "chat_1"})
	waitRoomSize(t, f, "chat_1", 2)

	sendEvent(t, connA, EventSendMessage, map[string]any{
		"chatId":  "chat_1",
		"message": map[string]string{"content": "你好"},
	})

	var got struct {
		Id       string `json:"id"`
		ChatId   string `json:"chat_id"`
		SenderId string `json:"sender_id"`
		Content  string `json:"content"`
	}
	for _, conn := range []*websocket.Conn{connA, connB} {
		data := waitEvent(t, conn, EventNewMessage)
		if err := json.Unmarshal(data, &got); err != nil {
			t.Fatalf("new_message payload: %v", err)
		}
		if got.ChatId != "chat_1" || got.SenderId != "U_A" || got.Content != "你好" {
			t.Fatalf("new_message = %+v", got)
		}
		if got.Id == "" || got.Id == "0" {
			t.Fatalf("message id should be assigned, got %q", got.Id)
		}
	}

	if f.messages.count() != 1 {
		t.Fatalf("messages persisted = %d, want 1", f.messages.count())
	}
	f.chats.mu.Lock()
	touched := f.chats.touched["chat_1"]
	f.chats.mu.Unlock()
	if touched != 1 {
		t.Fatalf("chat touched %d times, want 1", touched)
	}
}

func TestSendMessageRequiresParticipant(t *testing.T) {
	f := newRelayFixture(t)
	f.users.users["U_C"] = &model.UserInfo{Uuid: "U_C", FullName: "用户U_C"}
	conn := f.dial(t)
	authenticate(t, conn, "U_C")

	sendEvent(t, conn, EventSendMessage, map[string]any{
		"chatId":  "chat_1",
		"message": map[string]string{"content": "偷看"},
	})
	waitEvent(t, conn, EventMessageError)
	if f.messages.count() != 0 {
		t.Fatal("non-participant message must not persist")
	}
}

func TestTypingExcludesSender(t *testing.T) {
	f := newRelayFixture(t)
	connA := f.dial(t)
	connB := f.dial(t)
	authenticate(t, connA, "U_A")
	authenticate(t, connB, "U_B")
	sendEvent(t, connA, EventJoinChat, map[string]string{"chatId": "chat_1"})
	sendEvent(t, connB, EventJoinChat, map[string]string{"chatId": "chat_1"})
	waitRoomSize(t, f, "chat_1", 2)

	sendEvent(t, connA, EventTypingStart, map[string]string{"chatId": "chat_1"})

	data := waitEvent(t, connB, EventTypingStart)
	var typing struct {
		UserId   string `json:"userId"`
		UserName string `json:"userName"`
		ChatId   string `json:"chatId"`
	}
	if err := json.Unmarshal(data, &typing); err != nil {
		t.Fatalf("typing payload: %v", err)
	}
	if typing.UserId != "U_A" || typing.ChatId != "chat_1" || typing.UserName == "" {
		t.Fatalf("typing_start = %+v", typing)
	}
	expectSilence(t, connA, EventTypingStart)

	sendEvent(t, connA, EventTypingStop, map[string]string{"chatId": "chat_1"})
	waitEvent(t, connB, EventTypingStop)
	expectSilence(t, connA, EventTypingStop)
}

func TestMarkReadPartialFailure(t *testing.T) {
	f := newRelayFixture(t)
	f.messages = newStubMessageRepo(1, 2)
	f.server.repos.Message = f.messages

	connA := f.dial(t)
	connB := f.dial(t)
	authenticate(t, connA, "U_A")
	authenticate(t, connB, "U_B")
	sendEvent(t, connA, EventJoinChat, map[string]string{"chatId": "chat_1"})
	sendEvent(t, connB, EventJoinChat, map[string]string{"chatId": "chat_1"})
	waitRoomSize(t, f, "chat_1", 2)

	sendEvent(t, connB, EventMarkRead, map[string]any{
		"chatId":     "chat_1",
		"messageIds": []string{"1", "2", "abc", "99"},
	})

	// 有效的 ID 照常生效并广播给房间里的其他连接
	data := waitEvent(t, connA, EventMessagesRead)
	var read struct {
		UserId     string   `json:"userId"`
		MessageIds []string `json:"messageIds"`
		ChatId     string   `json:"chatId"`
	}
	if err := json.Unmarshal(data, &read); err != nil {
		t.Fatalf("messages_read payload: %v", err)
	}
	if read.UserId != "U_B" || len(read.MessageIds) != 2 {
		t.Fatalf("messages_read = %+v", read)
	}

	// 失败的 ID 通过 read_error 回给发起方
	data = waitEvent(t, connB, EventReadError)
	var readErr struct {
		ChatId    string   `json:"chatId"`
		FailedIds []string `json:"failedIds"`
	}
	if err := json.Unmarshal(data, &readErr); err != nil {
		t.Fatalf("read_error payload: %v", err)
	}
	if len(readErr.FailedIds) != 2 {
		t.Fatalf("failedIds = %v, want 2 entries", readErr.FailedIds)
	}

	if !f.reads.hasReceipt(1, "U_B") || !f.reads.hasReceipt(2, "U_B") {
		t.Fatal("receipts for valid ids should be recorded")
	}
}

func TestMarkReadIdempotentRebroadcast(t *testing.T) {
	f := newRelayFixture(t)
	f.messages = newStubMessageRepo(1)
	f.server.repos.Message = f.messages

	connA := f.dial(t)
	connB := f.dial(t)
	authenticate(t, connA, "U_A")
	authenticate(t, connB, "U_B")
	sendEvent(t, connA, EventJoinChat, map[string]string{"chatId": "chat_1"})
	sendEvent(t, connB, EventJoinChat, map[string]string{"chatId": "chat_1"})
	waitRoomSize(t, f, "chat_1", 2)

	// 重复标记同一条消息，两次都要广播
	for i := 0; i < 2; i++ {
		sendEvent(t, connB, EventMarkRead, map[string]any{
			"chatId":     "chat_1",
			"messageIds": []string{"1"},
		})
		waitEvent(t, connA, EventMessagesRead)
	}
}

func TestMarkReadRejectsMessageFromOtherChat(t *testing.T) {
	f := newRelayFixture(t)
	f.messages = newStubMessageRepo(1)
	f.messages.seed("chat_2", 7)
	f.server.repos.Message = f.messages

	connA := f.dial(t)
	connB := f.dial(t)
	authenticate(t, connA, "U_A")
	authenticate(t, connB, "U_B")

	// 其他会话的消息 ID 视同不存在，只生效本会话内的
	sendEvent(t, connB, EventMarkRead, map[string]any{
		"chatId":     "chat_1",
		"messageIds": []string{"1", "7"},
	})

	data := waitEvent(t, connA, EventMessagesRead)
	var read struct {
		MessageIds []string `json:"messageIds"`
	}
	if err := json.Unmarshal(data, &read); err != nil {
		t.Fatalf("messages_read payload: %v", err)
	}
	if len(read.MessageIds) != 1 || read.MessageIds[0] != "1" {
		t.Fatalf("messageIds = %v, want [1]", read.MessageIds)
	}

	data = waitEvent(t, connB, EventReadError)
	var readErr struct {
		FailedIds []string `json:"failedIds"`
	}
	if err := json.Unmarshal(data, &readErr); err != nil {
		t.Fatalf("read_error payload: %v", err)
	}
	if len(readErr.FailedIds) != 1 || readErr.FailedIds[0] != "7" {
		t.Fatalf("failedIds = %v, want [7]", readErr.FailedIds)
	}
	if f.reads.hasReceipt(7, "U_B") {
		t.Fatal("receipt must not cross chats")
	}
}

func TestUpdateStatusBroadcastsGlobally(t *testing.T) {
	f := newRelayFixture(t)
	connA := f.dial(t)
	connB := f.dial(t)
	authenticate(t, connA, "U_A")
	authenticate(t, connB, "U_B")

	sendEvent(t, connA, EventUpdateStatus, map[string]bool{"online": false})
	data := waitEvent(t, connB, EventUserOffline)
	var presence struct {
		UserId string `json:"userId"`
	}
	if err := json.Unmarshal(data, &presence); err != nil || presence.UserId != "U_A" {
		t.Fatalf("user_offline payload = %s, want U_A", data)
	}
	if f.users.isOnline("U_A") {
		t.Fatal("update_status offline should persist online=false")
	}
}

func TestOfflineOnlyAfterLastConnectionCloses(t *testing.T) {
	f := newRelayFixture(t)
	connA1 := f.dial(t)
	connA2 := f.dial(t)
	connB := f.dial(t)
	authenticate(t, connA1, "U_A")
	authenticate(t, connA2, "U_A")
	authenticate(t, connB, "U_B")

	// 第一条连接关闭，用户还有另一条连接，不应广播离线
	_ = connA1.Close()
	expectSilence(t, connB, EventUserOffline)
	if !f.users.isOnline("U_A") {
		t.Fatal("user must stay online while another connection is open")
	}

	// 最后一条连接关闭才广播离线
	_ = connA2.Close()
	data := waitEvent(t, connB, EventUserOffline)
	var presence struct {
		UserId string `json:"userId"`
	}
	if err := json.Unmarshal(data, &presence); err != nil || presence.UserId != "U_A" {
		t.Fatalf("user_offline payload = %s, want U_A", data)
	}
}

func TestMalformedFrameGetsMessageError(t *testing.T) {
	f := newRelayFixture(t)
	conn := f.dial(t)

	if err := conn.WriteMessage(websocket.TextMessage, []byte("not json")); err != nil {
		t.Fatalf("write raw frame: %v", err)
	}
	waitEvent(t, conn, EventMessageError)
}

func TestUnknownEventGetsMessageError(t *testing.T) {
	f := newRelayFixture(t)
	conn := f.dial(t)
	authenticate(t, conn, "U_A")

	sendEvent(t, conn, "teleport", map[string]string{})
	waitEvent(t, conn, EventMessageError)
}
