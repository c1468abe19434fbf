package main

import (
	"context"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"banksystem/internal/config"
	"banksystem/internal/handler"
	"banksystem/internal/infrastructure/lock"
	"banksystem/internal/infrastructure/mq"
	"banksystem/internal/infrastructure/store"
	"banksystem/internal/job"
	"banksystem/internal/logger"
	"banksystem/internal/model"
	"banksystem/internal/repository"
	"banksystem/internal/service"
	"banksystem/pkg/idgen"
)

func main() {
	// 加载配置
	cfg := config.LoadConfig("config/config.yaml")

	// 初始化日志
	logger.Setup(cfg.Log)

	// 初始化 ID 生成器
	idgen.Init(1)

	// 初始化数据文件
	if err := os.MkdirAll(cfg.Data.Dir, 0o755); err != nil {
		log.Fatalf("创建数据目录失败: %v", err)
	}
	openStore := func(name string, recordSize int) *store.Store {
		st, err := store.Open(filepath.Join(cfg.Data.Dir, name), recordSize)
		if err != nil {
			log.Fatalf("打开数据文件失败: %s, %v", name, err)
		}
		return st
	}
	usersStore := openStore("users.dat", model.UserRecordSize)
	accountsStore := openStore("accounts.dat", model.AccountRecordSize)
	transactionsStore := openStore("transactions.dat", model.TransactionRecordSize)
	loansStore := openStore("loans.dat", model.LoanRecordSize)
	feedbackStore := openStore("feedback.dat", model.FeedbackRecordSize)
	sessionsStore := openStore("sessions.dat", model.SessionRecordSize)
	outboxStore := openStore("outbox.dat", model.OutboxEventSize)

	// 锁管理器：全部仓库共用一个，同一文件才能在进程内互斥
	locks := lock.NewManager()

	userRepo := repository.NewUserRepository(usersStore, locks)
	accountRepo := repository.NewAccountRepository(accountsStore, locks)
	transactionRepo := repository.NewTransactionRepository(transactionsStore, locks)
	loanRepo := repository.NewLoanRepository(loansStore, locks)
	feedbackRepo := repository.NewFeedbackRepository(feedbackStore, locks)
	sessionRepo := repository.NewSessionRepository(sessionsStore, locks)
	outboxRepo := repository.NewOutboxRepository(outboxStore, locks)

	verifier := service.NewVerifier(cfg.Auth.CredentialScheme)

	// 初始管理员
	if err := seedInitialAdmin(cfg, userRepo, verifier); err != nil {
		log.Fatalf("初始化管理员失败: %v", err)
	}

	// 初始化 Kafka
	if err := mq.InitKafka(&cfg.Kafka); err != nil {
		log.Fatalf("初始化 Kafka 失败: %v", err)
	}
	defer mq.CloseKafka()

	authSvc := service.NewAuthService(userRepo, sessionRepo, verifier)
	engine := service.NewTransactionService(cfg, userRepo, accountRepo, transactionRepo, outboxRepo)
	userSvc := service.NewUserService(userRepo, accountRepo, verifier)
	accountSvc := service.NewAccountService(accountRepo, transactionRepo)
	loanSvc := service.NewLoanService(userRepo, loanRepo, engine)
	feedbackSvc := service.NewFeedbackService(feedbackRepo)

	// 创建上下文（用于优雅关闭）
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 启动后台任务
	outboxSender := job.NewOutboxSender(outboxRepo, cfg)
	go outboxSender.Start(ctx)

	sessionSweeper := job.NewSessionSweeper(sessionRepo, cfg)
	go sessionSweeper.Start(ctx)

	h := handler.NewHandler(cfg, authSvc, userSvc, accountSvc, engine, loanSvc, feedbackSvc)

	// 启动 TCP 服务
	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Server.Port))
	if err != nil {
		log.Fatalf("服务启动失败: %v", err)
	}

	go func() {
		log.Printf("服务启动，监听端口: %d", cfg.Server.Port)
		for {
			conn, err := listener.Accept()
			if err != nil {
				select {
				case <-ctx.Done():
					return
				default:
				}
				log.Printf("接受连接失败: %v", err)
				continue
			}
			go h.Serve(ctx, conn)
		}
	}()

	// 等待中断信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("正在关闭服务...")

	// 取消上下文，停止后台任务与在途连接
	cancel()
	listener.Close()

	log.Println("服务已关闭")
}

// seedInitialAdmin 管理员不存在时创建一个，保证首次启动可登录
func seedInitialAdmin(cfg *config.Config, users *repository.UserRepository, verifier service.CredentialVerifier) error {
	h, err := users.Lock(lock.Exclusive)
	if err != nil {
		return err
	}
	defer h.Release()

	if _, err := users.FindByUsernameLocked(cfg.Business.InitialAdminUsername); err == nil {
		return nil
	}
	stored, err := verifier.Hash(cfg.Business.InitialAdminPassword)
	if err != nil {
		return err
	}
	admin := &model.User{
		Username: cfg.Business.InitialAdminUsername,
		Password: stored,
		Role:     model.RoleAdmin,
		Active:   true,
	}
	if err := users.CreateLocked(admin); err != nil {
		return err
	}
	log.Printf("已创建初始管理员: %s", admin.Username)
	return nil
}
