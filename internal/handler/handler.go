package handler

import (
	"context"
	"net"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"banksystem/internal/config"
	"banksystem/internal/model"
	"banksystem/internal/service"
	"banksystem/pkg/protocol"
)

// Handler 每连接一个 goroutine 的请求分发器。
// 报文按单次读取成帧：一次 Read 就是一条逻辑消息，
// 多字段交互拆成多轮读写而不是一行分隔符拼接
type Handler struct {
	cfg      *config.Config
	auth     *service.AuthService
	users    *service.UserService
	accounts *service.AccountService
	engine   *service.TransactionService
	loans    *service.LoanService
	feedback *service.FeedbackService
}

func NewHandler(cfg *config.Config, auth *service.AuthService, users *service.UserService,
	accounts *service.AccountService, engine *service.TransactionService,
	loans *service.LoanService, feedback *service.FeedbackService) *Handler {
	return &Handler{
		cfg:      cfg,
		auth:     auth,
		users:    users,
		accounts: accounts,
		engine:   engine,
		loans:    loans,
		feedback: feedback,
	}
}

// Serve 处理一条连接：先登录，再进入命令循环。
// 单连接内任何失败只回写错误文案，不影响其它连接
func (h *Handler) Serve(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	defer func() {
		if r := recover(); r != nil {
			logrus.WithField("panic", r).Error("连接处理崩溃")
		}
	}()

	user, ok := h.loginRound(conn)
	if !ok {
		return
	}
	// 断连兜底：EXIT 正常路径已结束会话，这里重复调用是无害的
	defer h.auth.EndSession(user.ID)

	logrus.WithFields(logrus.Fields{
		"user_id": user.ID,
		"role":    user.Role.String(),
		"remote":  conn.RemoteAddr().String(),
	}).Info("用户登录")

	h.commandLoop(ctx, conn, user)
}

// loginRound 认证回合。客户端反复提交直到成功或断开
func (h *Handler) loginRound(conn net.Conn) (*model.User, bool) {
	for {
		line, err := h.readMessage(conn)
		if err != nil {
			return nil, false
		}

		fields := strings.Fields(line)
		if len(fields) != 4 || fields[0] != "LOGIN" {
			protocol.Send(conn, "Send LOGIN <ROLE> <username> <password>")
			continue
		}

		role, ok := model.ParseRole(fields[1])
		if !ok {
			protocol.Send(conn, protocol.MsgLoginFailed)
			continue
		}

		user, err := h.auth.Login(fields[2], fields[3], role)
		if err != nil {
			switch err {
			case service.ErrRoleMismatch:
				protocol.Send(conn, protocol.MsgRoleMismatch)
			default:
				protocol.Send(conn, protocol.MsgLoginFailed)
			}
			continue
		}

		if err := h.auth.StartSession(user.ID); err != nil {
			protocol.Send(conn, protocol.MsgSessionActive)
			continue
		}

		protocol.Send(conn, protocol.MsgLoginSuccess)
		return user, true
	}
}

// commandLoop 按角色分发命令，直到 EXIT 或断连
func (h *Handler) commandLoop(ctx context.Context, conn net.Conn, user *model.User) {
	for {
		if ctx.Err() != nil {
			return
		}

		line, err := h.readMessage(conn)
		if err != nil {
			return
		}

		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		cmd := fields[0]

		if cmd == "EXIT" {
			h.auth.EndSession(user.ID)
			protocol.Send(conn, protocol.MsgSessionTerminated)
			return
		}

		switch user.Role {
		case model.RoleCustomer:
			h.dispatchCustomer(ctx, conn, user, cmd)
		case model.RoleEmployee:
			h.dispatchEmployee(ctx, conn, user, cmd)
		case model.RoleManager:
			h.dispatchManager(ctx, conn, user, cmd, fields[1:])
		case model.RoleAdmin:
			h.dispatchAdmin(ctx, conn, user, cmd)
		}
	}
}

// readMessage 读一条逻辑消息。读超时兜底，
// 避免停住的客户端无限占用 goroutine
func (h *Handler) readMessage(conn net.Conn) (string, error) {
	if t := h.cfg.Server.ReadTimeout(); t > 0 {
		if err := conn.SetReadDeadline(time.Now().Add(t)); err != nil {
			return "", err
		}
	}
	buf := make([]byte, 1024)
	n, err := conn.Read(buf)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(buf[:n])), nil
}
