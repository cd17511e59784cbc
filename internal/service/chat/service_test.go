package chat

import (
	"context"
	"testing"
	"time"

	"weitalk_relay_server/internal/dao/mysql/repository"
	"weitalk_relay_server/internal/dto/request"
	"weitalk_relay_server/internal/model"
	"weitalk_relay_server/pkg/errorx"
)

type memUserRepo struct {
	users map[string]*model.UserInfo
}

func (r *memUserRepo) FindByUuid(uuid string) (*model.UserInfo, error) {
	if user, ok := r.users[uuid]; ok {
		return user, nil
	}
	return nil, errorx.New(errorx.CodeNotFound, "用户不存在")
}
func (r *memUserRepo) FindByEmail(email string) (*model.UserInfo, error) {
	return nil, errorx.New(errorx.CodeNotFound, "用户不存在")
}
func (r *memUserRepo) FindByUuids(uuids []string) ([]model.UserInfo, error) {
	var users []model.UserInfo
	for _, uuid := range uuids {
		if user, ok := r.users[uuid]; ok {
			users = append(users, *user)
		}
	}
	return users, nil
}
func (r *memUserRepo) FindAllExcept(excludeUuid string) ([]model.UserInfo, error) { return nil, nil }
func (r *memUserRepo) Create(user *model.UserInfo) error                          { return nil }
func (r *memUserRepo) SetOnline(uuid string, online bool, lastSeen time.Time) error {
	return nil
}

type memChatRepo struct {
	direct  map[[2]string]*model.Chat
	members map[string][]string
	created int
}

func pairKey(a, b string) [2]string {
	if a < b {
		return [2]string{a, b}
	}
	return [2]string{b, a}
}

func (r *memChatRepo) FindByUuid(uuid string) (*model.Chat, error) {
	return nil, errorx.New(errorx.CodeNotFound, "会话不存在")
}
func (r *memChatRepo) ListChatsForUser(userUuid string) ([]model.Chat, error) { return nil, nil }
func (r *memChatRepo) ListChatUuidsForUser(userUuid string) ([]string, error) { return nil, nil }
func (r *memChatRepo) FindParticipants(chatUuid string) ([]model.ChatParticipant, error) {
	return nil, nil
}
func (r *memChatRepo) IsParticipant(chatUuid, userUuid string) (bool, error) {
	for _, member := range r.members[chatUuid] {
		if member == userUuid {
			return true, nil
		}
	}
	return false, nil
}
func (r *memChatRepo) Touch(chatUuid string, at time.Time) error { return nil }
func (r *memChatRepo) FindDirectChat(userA, userB string) (*model.Chat, error) {
	if chat, ok := r.direct[pairKey(userA, userB)]; ok {
		return chat, nil
	}
	return nil, errorx.New(errorx.CodeNotFound, "会话不存在")
}
func (r *memChatRepo) CreateDirectChat(userA, userB string) (*model.Chat, error) {
	r.created++
	chat := &model.Chat{Uuid: "direct_new"}
	r.direct[pairKey(userA, userB)] = chat
	return chat, nil
}
func (r *memChatRepo) CreateGroupChat(name, creatorUuid string, memberUuids []string) (*model.Chat, error) {
	r.created++
	return &model.Chat{Uuid: "group_new", Name: name, IsGroup: true}, nil
}

type memMessageRepo struct {
	byChat map[string][]model.Message
}

func (r *memMessageRepo) Create(message *model.Message) error { return nil }
func (r *memMessageRepo) FindByChatUuid(chatUuid string) ([]model.Message, error) {
	return r.byChat[chatUuid], nil
}
func (r *memMessageRepo) FindLastByChatUuid(chatUuid string) (*model.Message, error) {
	return nil, errorx.New(errorx.CodeNotFound, "无消息")
}
func (r *memMessageRepo) FindExistingUuids(chatUuid string, uuids []int64) ([]int64, error) {
	return nil, nil
}
func (r *memMessageRepo) UnreadCounts(userUuid string, chatUuids []string) (map[string]int64, error) {
	return map[string]int64{}, nil
}

type memReadRepo struct {
	receipts []model.MessageRead
}

func (r *memReadRepo) UpsertMany(messageUuids []int64, userUuid string, readAt time.Time) error {
	return nil
}
func (r *memReadRepo) FindByMessageUuids(messageUuids []int64) ([]model.MessageRead, error) {
	return r.receipts, nil
}

type noopCache struct{}

func (noopCache) Set(ctx context.Context, key, value string, ttl time.Duration) error { return nil }
func (noopCache) Get(ctx context.Context, key string) (string, error)                 { return "", nil }
func (noopCache) GetOrError(ctx context.Context, key string) (string, error) {
	return "", errorx.New(errorx.CodeNotFound, "key 不存在")
}
func (noopCache) Delete(ctx context.Context, key string) error              { return nil }
func (noopCache) DeleteByPattern(ctx context.Context, pattern string) error { return nil }
func (noopCache) AddToSet(ctx context.Context, key string, members ...interface{}) error {
	return nil
}
func (noopCache) GetSetMembers(ctx context.Context, key string) ([]string, error) { return nil, nil }
func (noopCache) RemoveFromSet(ctx context.Context, key string, members ...interface{}) error {
	return nil
}
func (noopCache) SubmitTask(action func()) { action() }

func newFixture() (*chatService, *memChatRepo, *memMessageRepo, *memReadRepo) {
	users := &memUserRepo{users: map[string]*model.UserInfo{
		"U_A": {Uuid: "U_A", FullName: "阿明"},
		"U_B": {Uuid: "U_B", FullName: "小红"},
	}}
	chats := &memChatRepo{direct: map[[2]string]*model.Chat{}, members: map[string][]string{}}
	messages := &memMessageRepo{byChat: map[string][]model.Message{}}
	reads := &memReadRepo{}
	repos := &repository.Repositories{
		User:        users,
		Chat:        chats,
		Message:     messages,
		MessageRead: reads,
	}
	return NewChatService(repos, noopCache{}), chats, messages, reads
}

func TestCreateDirectChatReusesExisting(t *testing.T) {
	svc, chats, _, _ := newFixture()
	chats.direct[pairKey("U_A", "U_B")] = &model.Chat{Uuid: "direct_old"}

	resp, err := svc.CreateDirectChat("U_A", request.CreateDirectChatRequest{PeerId: "U_B"})
	if err != nil {
		t.Fatalf("CreateDirectChat: %v", err)
	}
	if !resp.Existed || resp.ChatId != "direct_old" {
		t.Fatalf("resp = %+v, want existed direct_old", resp)
	}
	if chats.created != 0 {
		t.Fatal("existing pair must not create a new chat")
	}
}

func TestCreateDirectChatCreatesWhenMissing(t *testing.T) {
	svc, chats, _, _ := newFixture()

	resp, err := svc.CreateDirectChat("U_A", request.CreateDirectChatRequest{PeerId: "U_B"})
	if err != nil {
		t.Fatalf("CreateDirectChat: %v", err)
	}
	if resp.Existed || resp.ChatId != "direct_new" {
		t.Fatalf("resp = %+v, want new direct_new", resp)
	}
	if chats.created != 1 {
		t.Fatalf("created = %d, want 1", chats.created)
	}
}

func TestCreateDirectChatRejectsSelf(t *testing.T) {
	svc, _, _, _ := newFixture()
	_, err := svc.CreateDirectChat("U_A", request.CreateDirectChatRequest{PeerId: "U_A"})
	if errorx.GetCode(err) != errorx.CodeInvalidParam {
		t.Fatalf("self chat error code = %d, want CodeInvalidParam", errorx.GetCode(err))
	}
}

func TestCreateDirectChatRejectsUnknownPeer(t *testing.T) {
	svc, _, _, _ := newFixture()
	_, err := svc.CreateDirectChat("U_A", request.CreateDirectChatRequest{PeerId: "U_GHOST"})
	if errorx.GetCode(err) != errorx.CodeUserNotExist {
		t.Fatalf("unknown peer error code = %d, want CodeUserNotExist", errorx.GetCode(err))
	}
}

func TestCreateGroupChatRejectsMissingMember(t *testing.T) {
	svc, _, _, _ := newFixture()
	_, err := svc.CreateGroupChat("U_A", request.CreateGroupChatRequest{
		Name:      "群",
		MemberIds: []string{"U_B", "U_GHOST"},
	})
	if errorx.GetCode(err) != errorx.CodeUserNotExist {
		t.Fatalf("missing member error code = %d, want CodeUserNotExist", errorx.GetCode(err))
	}
}

func TestGetMessageListRequiresParticipant(t *testing.T) {
	svc, chats, _, _ := newFixture()
	chats.members["chat_1"] = []string{"U_B"}

	_, err := svc.GetMessageList("U_A", "chat_1")
	if errorx.GetCode(err) != errorx.CodeNotParticipant {
		t.Fatalf("error code = %d, want CodeNotParticipant", errorx.GetCode(err))
	}
}

func TestGetMessageListWithSenderAndReadBy(t *testing.T) {
	svc, chats, messages, reads := newFixture()
	chats.members["chat_1"] = []string{"U_A", "U_B"}
	messages.byChat["chat_1"] = []model.Message{
		{Uuid: 1, ChatUuid: "chat_1", SenderUuid: "U_B", Content: "早"},
		{Uuid: 2, ChatUuid: "chat_1", SenderUuid: "U_A", Content: "早啊"},
	}
	reads.receipts = []model.MessageRead{{MessageUuid: 1, UserUuid: "U_A"}}

	list, err := svc.GetMessageList("U_A", "chat_1")
	if err != nil {
		t.Fatalf("GetMessageList: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("messages = %d, want 2", len(list))
	}
	if list[0].Sender == nil || list[0].Sender.FullName != "小红" {
		t.Fatalf("sender = %+v", list[0].Sender)
	}
	if len(list[0].ReadBy) != 1 || list[0].ReadBy[0] != "U_A" {
		t.Fatalf("read_by = %v", list[0].ReadBy)
	}
	if len(list[1].ReadBy) != 0 {
		t.Fatalf("unread message should have empty read_by, got %v", list[1].ReadBy)
	}
}
