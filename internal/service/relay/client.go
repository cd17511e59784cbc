// client.go
// 核心职责：单条 websocket 连接的生命周期
// 1. 读协程：顺序读取并处理事件，保证同一连接内事件按到达顺序生效
// 2. 写协程：从 sendBack 通道取帧下发，避免并发写同一连接
// 3. Close 用 sync.Once 保证清理只执行一次，读写任一侧退出都会触发
package relay

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"weitalk_relay_server/pkg/constants"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Client 一条 websocket 连接
type Client struct {
	server *Server
	conn   *websocket.Conn
	connId string
	// userId 仅由本连接的读协程写入（authenticate 成功时），
	// 其他协程通过 Registry 查询用户归属
	userId    string
	sendBack  chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

// NewClientInit 升级 HTTP 连接并启动读写协程
func NewClientInit(c *gin.Context, server *Server) error {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		zap.L().Error("websocket 升级失败", zap.Error(err))
		return err
	}
	client := &Client{
		server:   server,
		conn:     conn,
		connId:   uuid.NewString(),
		sendBack: make(chan []byte, constants.CHANNEL_SIZE),
		done:     make(chan struct{}),
	}
	go client.readLoop()
	go client.writeLoop()
	return nil
}

// readLoop 顺序读取客户端事件
func (c *Client) readLoop() {
	defer c.Close()
	for {
		_, payload, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				zap.L().Warn("websocket 连接异常关闭",
					zap.String("conn_id", c.connId), zap.Error(err))
			}
			return
		}
		c.server.route(c, payload)
	}
}

// writeLoop 下发帧给客户端
func (c *Client) writeLoop() {
	defer c.Close()
	for {
		select {
		case payload := <-c.sendBack:
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				zap.L().Warn("websocket 写入失败",
					zap.String("conn_id", c.connId), zap.Error(err))
				return
			}
		case <-c.done:
			return
		}
	}
}

// Enqueue 非阻塞投递一帧
// 通道满说明客户端消费过慢，丢弃该帧并告警，不能阻塞广播路径
func (c *Client) Enqueue(payload []byte) {
	select {
	case <-c.done:
	case c.sendBack <- payload:
	default:
		zap.L().Warn("连接发送通道已满，丢弃消息",
			zap.String("conn_id", c.connId))
	}
}

// Close 关闭连接并清理登记信息，可安全重复调用
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.server.onDisconnect(c)
		if err := c.conn.Close(); err != nil {
			zap.L().Debug("关闭 websocket 连接失败",
				zap.String("conn_id", c.connId), zap.Error(err))
		}
	})
}
