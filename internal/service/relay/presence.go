// Package relay 实现了实时中继服务的核心层
// presence.go
// 核心职责：进程内在线状态登记表
// 1. 维护连接句柄 <-> 用户 的双向映射
// 2. 同一用户允许多条并发连接，广播需要覆盖全部连接
// 3. 仅对本进程权威；进程重启后从空状态重建，数据库中的 online 镜像
//    会短暂滞留旧值，直到客户端重连或断开（接受的限制，不是缺陷）
package relay

import (
	"sync"
	"time"
)

// Registry 在线状态登记表
// 只由 Relay 核心修改；读写都在锁内完成
type Registry struct {
	mu       sync.RWMutex
	conns    map[*Client]string              // 连接 -> 用户
	users    map[string]map[*Client]struct{} // 用户 -> 连接集合
	joinedAt map[string]time.Time            // 用户 -> 首条连接建立时间
}

// NewRegistry 创建登记表实例
func NewRegistry() *Registry {
	return &Registry{
		conns:    make(map[*Client]string),
		users:    make(map[string]map[*Client]struct{}),
		joinedAt: make(map[string]time.Time),
	}
}

// Register 登记一条已认证的连接
func (r *Registry) Register(c *Client, userId string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.conns[c] = userId
	if _, ok := r.users[userId]; !ok {
		r.users[userId] = make(map[*Client]struct{})
		r.joinedAt[userId] = time.Now()
	}
	r.users[userId][c] = struct{}{}
}

// Unregister 注销一条连接
// 返回被移除的用户 ID 和该用户剩余的连接数
// 重复注销是空操作（ok 为 false），断开路径可能竞争，不视为错误
func (r *Registry) Unregister(c *Client) (userId string, remaining int, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	userId, ok = r.conns[c]
	if !ok {
		return "", 0, false
	}
	delete(r.conns, c)
	if set, exists := r.users[userId]; exists {
		delete(set, c)
		remaining = len(set)
		if remaining == 0 {
			delete(r.users, userId)
			delete(r.joinedAt, userId)
		}
	}
	return userId, remaining, true
}

// IsOnline 判断用户当前在本进程是否有活跃连接
func (r *Registry) IsOnline(userId string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users[userId]) > 0
}

// ConnectionsFor 获取用户的所有活跃连接
func (r *Registry) ConnectionsFor(userId string) []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set := r.users[userId]
	clients := make([]*Client, 0, len(set))
	for c := range set {
		clients = append(clients, c)
	}
	return clients
}

// AllClients 获取所有已认证的连接（全局广播用）
func (r *Registry) AllClients() []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	clients := make([]*Client, 0, len(r.conns))
	for c := range r.conns {
		clients = append(clients, c)
	}
	return clients
}

// UserOf 获取连接对应的用户 ID
func (r *Registry) UserOf(c *Client) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	userId, ok := r.conns[c]
	return userId, ok
}
