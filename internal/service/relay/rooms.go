// rooms.go
// 核心职责：会话房间成员表
// 连接加入房间后才能收到该会话的定向广播；加入前必须先通过
// 参与者校验（由事件处理层负责），房间表本身不做权限判断
package relay

import "sync"

// RoomManager 房间成员表
type RoomManager struct {
	mu    sync.RWMutex
	rooms map[string]map[*Client]struct{} // 会话 -> 连接集合
	joins map[*Client]map[string]struct{} // 连接 -> 已加入的会话集合
}

// NewRoomManager 创建房间表实例
func NewRoomManager() *RoomManager {
	return &RoomManager{
		rooms: make(map[string]map[*Client]struct{}),
		joins: make(map[*Client]map[string]struct{}),
	}
}

// Join 将连接加入会话房间，重复加入是空操作
func (m *RoomManager) Join(chatId string, c *Client) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.rooms[chatId]; !ok {
		m.rooms[chatId] = make(map[*Client]struct{})
	}
	m.rooms[chatId][c] = struct{}{}
	if _, ok := m.joins[c]; !ok {
		m.joins[c] = make(map[string]struct{})
	}
	m.joins[c][chatId] = struct{}{}
}

// Leave 将连接移出会话房间，未加入时是空操作
func (m *RoomManager) Leave(chatId string, c *Client) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.leaveLocked(chatId, c)
}

// LeaveAll 断开时清理连接加入的所有房间
func (m *RoomManager) LeaveAll(c *Client) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for chatId := range m.joins[c] {
		m.leaveLocked(chatId, c)
	}
}

func (m *RoomManager) leaveLocked(chatId string, c *Client) {
	if set, ok := m.rooms[chatId]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(m.rooms, chatId)
		}
	}
	if set, ok := m.joins[c]; ok {
		delete(set, chatId)
		if len(set) == 0 {
			delete(m.joins, c)
		}
	}
}

// Members 获取房间内的所有连接
func (m *RoomManager) Members(chatId string) []*Client {
	m.mu.RLock()
	defer m.mu.RUnlock()

	set := m.rooms[chatId]
	clients := make([]*Client, 0, len(set))
	for c := range set {
		clients = append(clients, c)
	}
	return clients
}

// InRoom 判断连接是否已加入房间
func (m *RoomManager) InRoom(chatId string, c *Client) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.rooms[chatId][c]
	return ok
}
