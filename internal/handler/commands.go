package handler

import (
	"bufio"
	"context"
	"errors"
	"net"
	"os"
	"strconv"

	"banksystem/internal/model"
	"banksystem/internal/repository"
	"banksystem/internal/service"
	"banksystem/pkg/protocol"
)

// 客户命令
func (h *Handler) dispatchCustomer(ctx context.Context, conn net.Conn, user *model.User, cmd string) {
	switch cmd {
	case "BALANCE":
		h.cmdBalance(conn, user.ID)
	case "DEPOSIT":
		h.cmdDeposit(ctx, conn, user.ID)
	case "WITHDRAW":
		h.cmdWithdraw(ctx, conn, user.ID)
	case "TRANSFER":
		h.cmdTransfer(ctx, conn, user.ID)
	case "LOAN":
		h.cmdApplyLoan(ctx, conn, user.ID)
	case "FEEDBACK":
		h.cmdFeedback(ctx, conn, user.ID)
	case "HISTORY":
		h.cmdHistory(conn, user.ID)
	default:
		protocol.Send(conn, protocol.MsgUnknownCommand)
	}
}

// 员工命令
func (h *Handler) dispatchEmployee(ctx context.Context, conn net.Conn, user *model.User, cmd string) {
	switch cmd {
	case "ADD_CUST":
		h.cmdAddCustomer(ctx, conn)
	case "EDIT_CUST":
		h.cmdEditCustomer(ctx, conn)
	case "MY_LOANS":
		h.cmdMyLoans(conn, user.ID)
	case "LOAN_DECIDE":
		h.cmdLoanDecide(ctx, conn, user.ID)
	case "CUST_TRANS":
		h.cmdCustomerTransactions(conn)
	default:
		protocol.Send(conn, "Unknown employee command")
	}
}

// 经理命令：员工命令之上追加分配贷款与全局查看
func (h *Handler) dispatchManager(ctx context.Context, conn net.Conn, user *model.User, cmd string, args []string) {
	switch cmd {
	case "ADD_CUST":
		h.cmdAddCustomer(ctx, conn)
	case "EDIT_CUST":
		h.cmdEditCustomer(ctx, conn)
	case "MY_LOANS":
		h.cmdMyLoans(conn, user.ID)
	case "LOAN_DECIDE":
		h.cmdLoanDecide(ctx, conn, user.ID)
	case "CUST_TRANS":
		h.cmdCustomerTransactions(conn)
	case "ASSIGN_LOAN":
		h.cmdAssignLoan(ctx, conn, user.ID, args)
	case "VIEW_FEEDBACK":
		h.cmdViewFeedback(conn)
	case "VIEW_USERS":
		h.cmdViewUsers(conn)
	default:
		protocol.Send(conn, "Unknown manager command")
	}
}

// 管理员命令
func (h *Handler) dispatchAdmin(ctx context.Context, conn net.Conn, user *model.User, cmd string) {
	switch cmd {
	case "ADD_EMP":
		h.cmdAddStaff(ctx, conn, model.RoleEmployee)
	case "ADD_MGR":
		h.cmdAddStaff(ctx, conn, model.RoleManager)
	case "VIEW_USERS":
		h.cmdViewUsers(conn)
	case "DEACTIVATE":
		h.cmdDeactivate(ctx, conn, user.ID)
	case "REACTIVATE":
		h.cmdReactivate(ctx, conn)
	case "VIEW_LOGS":
		h.cmdViewLogs(conn)
	default:
		protocol.Send(conn, "Unknown admin command")
	}
}

func (h *Handler) cmdBalance(conn net.Conn, userID int32) {
	balance, err := h.accounts.Balance(userID)
	if err != nil {
		protocol.Send(conn, errText(err))
		return
	}
	protocol.Sendf(conn, "Your balance is %.2f", balance)
}

func (h *Handler) cmdDeposit(ctx context.Context, conn net.Conn, userID int32) {
	amount, err := h.readAmount(conn)
	if err != nil {
		protocol.Send(conn, "Invalid deposit amount")
		return
	}
	if _, err := h.engine.Deposit(ctx, userID, amount); err != nil {
		protocol.Send(conn, errText(err))
		return
	}
	protocol.Send(conn, protocol.MsgDepositSuccess)
}

func (h *Handler) cmdWithdraw(ctx context.Context, conn net.Conn, userID int32) {
	amount, err := h.readAmount(conn)
	if err != nil {
		protocol.Send(conn, "Invalid withdrawal amount")
		return
	}
	if _, err := h.engine.Withdraw(ctx, userID, amount); err != nil {
		protocol.Send(conn, errText(err))
		return
	}
	protocol.Send(conn, protocol.MsgWithdrawSuccess)
}

func (h *Handler) cmdTransfer(ctx context.Context, conn net.Conn, userID int32) {
	recipient, err := h.readMessage(conn)
	if err != nil {
		protocol.Send(conn, "Error reading recipient username")
		return
	}
	amount, err := h.readAmount(conn)
	if err != nil {
		protocol.Send(conn, "Invalid transfer amount")
		return
	}
	if err := h.engine.Transfer(ctx, userID, recipient, amount); err != nil {
		protocol.Send(conn, errText(err))
		return
	}
	protocol.Send(conn, protocol.MsgTransferSuccess)
}

func (h *Handler) cmdApplyLoan(ctx context.Context, conn net.Conn, userID int32) {
	amount, err := h.readAmount(conn)
	if err != nil {
		protocol.Send(conn, "Invalid loan amount")
		return
	}
	if _, err := h.loans.Apply(ctx, userID, amount); err != nil {
		protocol.Send(conn, errText(err))
		return
	}
	protocol.Send(conn, protocol.MsgLoanSubmitted)
}

func (h *Handler) cmdFeedback(ctx context.Context, conn net.Conn, userID int32) {
	message, err := h.readMessage(conn)
	if err != nil {
		protocol.Send(conn, "Error reading feedback")
		return
	}
	if err := h.feedback.Add(ctx, userID, message); err != nil {
		protocol.Send(conn, errText(err))
		return
	}
	protocol.Send(conn, protocol.MsgFeedbackSubmitted)
}

func (h *Handler) cmdHistory(conn net.Conn, userID int32) {
	accountID, records, err := h.accounts.History(userID)
	if err != nil {
		protocol.Send(conn, errText(err))
		return
	}
	h.sendHistory(conn, accountID, records)
}

func (h *Handler) sendHistory(conn net.Conn, accountID int32, records []model.TransactionRecord) {
	protocol.Sendf(conn, "Transaction History for Account ID %d:", accountID)
	protocol.Sendf(conn, "%-20s %-30s %-10s %-10s", "Date", "Description", "Amount", "Balance")
	protocol.Send(conn, "------------------------------------------------------------")
	for i := range records {
		r := &records[i]
		protocol.Sendf(conn, "%-20s %-30s $%-9.2f $%-9.2f",
			r.Timestamp.Format("Mon Jan 2 15:04:05 2006"), r.Description, r.Amount, r.NewBalance)
	}
	protocol.Send(conn, "End of Transaction History")
}

func (h *Handler) cmdAddCustomer(ctx context.Context, conn net.Conn) {
	username, err := h.readMessage(conn)
	if err != nil {
		protocol.Send(conn, "Error reading username")
		return
	}
	password, err := h.readMessage(conn)
	if err != nil {
		protocol.Send(conn, "Error reading password")
		return
	}
	balance, err := h.readAmount(conn)
	if err != nil || balance < 0 {
		protocol.Send(conn, "Invalid initial balance")
		return
	}
	if err := h.users.AddCustomer(ctx, username, password, balance); err != nil {
		protocol.Send(conn, errText(err))
		return
	}
	protocol.Send(conn, protocol.MsgCustomerAdded)
}

// cmdEditCustomer 逐字段交互式编辑，"." 表示保持原值。
// 问答由 UserService 的回调驱动，排他锁横跨整个交互
func (h *Handler) cmdEditCustomer(ctx context.Context, conn net.Conn) {
	username, err := h.readMessage(conn)
	if err != nil {
		protocol.Send(conn, "Error reading username")
		return
	}

	err = h.users.EditCustomer(ctx, username, func(current *model.User) (*service.EditRequest, error) {
		req := &service.EditRequest{Active: current.Active}

		protocol.Sendf(conn, "Current: username=%s active=%d. Enter new username (or . to keep): ",
			current.Username, boolToInt(current.Active))
		newName, err := h.readMessage(conn)
		if err != nil {
			return nil, err
		}
		if newName == "." {
			req.KeepUsername = true
		} else {
			req.Username = newName
		}

		protocol.Send(conn, "Enter new password (or . to keep): ")
		newPass, err := h.readMessage(conn)
		if err != nil {
			return nil, err
		}
		if newPass == "." {
			req.KeepPassword = true
		} else {
			req.Password = newPass
		}

		protocol.Send(conn, "Set active (1/0): ")
		act, err := h.readMessage(conn)
		if err != nil {
			return nil, err
		}
		if act == "1" {
			req.Active = true
		} else if act == "0" {
			req.Active = false
		}
		return req, nil
	})
	if err != nil {
		protocol.Send(conn, errText(err))
		return
	}
	protocol.Send(conn, protocol.MsgCustomerUpdated)
}

func (h *Handler) cmdMyLoans(conn net.Conn, employeeID int32) {
	loans, err := h.loans.ListAssigned(employeeID)
	if err != nil {
		protocol.Send(conn, errText(err))
		return
	}
	protocol.Sendf(conn, "%-8s %-12s %-10s %-12s", "LoanID", "CustomerID", "Amount", "Status")
	protocol.Send(conn, "-----------------------------------------")
	for i := range loans {
		l := &loans[i]
		protocol.Sendf(conn, "%-8d %-12d $%-9.2f %-12s", l.LoanID, l.CustID, l.Amount, l.Status.String())
	}
	if len(loans) == 0 {
		protocol.Send(conn, "(none)")
	}
}

func (h *Handler) cmdLoanDecide(ctx context.Context, conn net.Conn, employeeID int32) {
	idStr, err := h.readMessage(conn)
	if err != nil {
		protocol.Send(conn, "Error reading loan ID")
		return
	}
	loanID, err := strconv.Atoi(idStr)
	if err != nil {
		protocol.Send(conn, "Invalid loan ID")
		return
	}

	protocol.Send(conn, "Enter A (approve) or R (reject): ")
	choice, err := h.readMessage(conn)
	if err != nil {
		protocol.Send(conn, "Error reading choice")
		return
	}
	var approve bool
	switch choice {
	case "A", "a":
		approve = true
	case "R", "r":
		approve = false
	default:
		protocol.Send(conn, "Invalid choice")
		return
	}

	if err := h.loans.Decide(ctx, employeeID, int32(loanID), approve); err != nil {
		protocol.Send(conn, errText(err))
		return
	}
	protocol.Send(conn, protocol.MsgLoanDecided)
}

func (h *Handler) cmdCustomerTransactions(conn net.Conn) {
	username, err := h.readMessage(conn)
	if err != nil {
		protocol.Send(conn, "Error reading username")
		return
	}
	cust, err := h.users.FindCustomer(username)
	if err != nil {
		protocol.Send(conn, errText(err))
		return
	}
	accountID, records, err := h.accounts.History(cust.ID)
	if err != nil {
		protocol.Send(conn, errText(err))
		return
	}
	h.sendHistory(conn, accountID, records)
}

// cmdAssignLoan 唯一的单行整参数命令：ASSIGN_LOAN <loanID> <employeeID>
func (h *Handler) cmdAssignLoan(ctx context.Context, conn net.Conn, managerID int32, args []string) {
	if len(args) != 2 {
		protocol.Send(conn, "Usage: ASSIGN_LOAN <loanID> <employeeID>")
		return
	}
	loanID, err1 := strconv.Atoi(args[0])
	employeeID, err2 := strconv.Atoi(args[1])
	if err1 != nil || err2 != nil {
		protocol.Send(conn, "Invalid loan or employee ID")
		return
	}
	if err := h.loans.Assign(ctx, managerID, int32(loanID), int32(employeeID)); err != nil {
		protocol.Send(conn, errText(err))
		return
	}
	protocol.Sendf(conn, "Loan %d assigned to employee %d", loanID, employeeID)
}

func (h *Handler) cmdViewFeedback(conn net.Conn) {
	items, err := h.feedback.List()
	if err != nil {
		protocol.Send(conn, errText(err))
		return
	}
	protocol.Sendf(conn, "%-8s %-12s %-20s %s", "ID", "CustomerID", "Date", "Message")
	protocol.Send(conn, "------------------------------------------------------------")
	for i := range items {
		f := &items[i]
		protocol.Sendf(conn, "%-8d %-12d %-20s %.80s",
			f.FeedbackID, f.CustID, f.Timestamp.Format("2006-01-02 15:04:05"), f.Message)
	}
	if len(items) == 0 {
		protocol.Send(conn, "(none)")
	}
}

func (h *Handler) cmdViewUsers(conn net.Conn) {
	users, err := h.users.List()
	if err != nil {
		protocol.Send(conn, errText(err))
		return
	}
	protocol.Sendf(conn, "%-6s %-15s %-10s %-6s %-12s", "ID", "Username", "Role", "Active", "LastLogin")
	protocol.Send(conn, "------------------------------------------------------")
	for i := range users {
		u := &users[i]
		lastLogin := "never"
		if !u.LastLogin.IsZero() {
			lastLogin = u.LastLogin.Format("2006-01-02")
		}
		protocol.Sendf(conn, "%-6d %-15s %-10s %-6s %-12s",
			u.ID, u.Username, u.Role.String(), activeText(u.Active), lastLogin)
	}
}

func (h *Handler) cmdAddStaff(ctx context.Context, conn net.Conn, role model.Role) {
	username, err := h.readMessage(conn)
	if err != nil {
		protocol.Send(conn, "Error reading username")
		return
	}
	password, err := h.readMessage(conn)
	if err != nil {
		protocol.Send(conn, "Error reading password")
		return
	}

	if role == model.RoleManager {
		if err := h.users.AddManager(ctx, username, password); err != nil {
			protocol.Send(conn, errText(err))
			return
		}
		protocol.Send(conn, protocol.MsgManagerAdded)
		return
	}
	if err := h.users.AddEmployee(ctx, username, password); err != nil {
		protocol.Send(conn, errText(err))
		return
	}
	protocol.Send(conn, protocol.MsgEmployeeAdded)
}

func (h *Handler) cmdDeactivate(ctx context.Context, conn net.Conn, adminID int32) {
	username, err := h.readMessage(conn)
	if err != nil {
		protocol.Send(conn, "Error reading username")
		return
	}
	if err := h.users.Deactivate(ctx, adminID, username); err != nil {
		protocol.Send(conn, errText(err))
		return
	}
	protocol.Send(conn, protocol.MsgUserDeactivated)
}

func (h *Handler) cmdReactivate(ctx context.Context, conn net.Conn) {
	username, err := h.readMessage(conn)
	if err != nil {
		protocol.Send(conn, "Error reading username")
		return
	}
	if err := h.users.Reactivate(ctx, username); err != nil {
		protocol.Send(conn, errText(err))
		return
	}
	protocol.Send(conn, protocol.MsgUserReactivated)
}

func (h *Handler) cmdViewLogs(conn net.Conn) {
	f, err := os.Open(h.cfg.Log.File)
	if err != nil {
		protocol.Send(conn, "No log file found")
		return
	}
	defer f.Close()

	protocol.Send(conn, "=== Server Log ===")
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		protocol.Send(conn, scanner.Text())
	}
	protocol.Send(conn, "=== End of Log ===")
}

// readAmount 读一条消息并解析为金额
func (h *Handler) readAmount(conn net.Conn) (float64, error) {
	line, err := h.readMessage(conn)
	if err != nil {
		return 0, err
	}
	return strconv.ParseFloat(line, 64)
}

// errText 业务错误到协议文案的映射。
// 未识别的错误统一回 Operation failed，细节只进日志
func errText(err error) string {
	switch {
	case errors.Is(err, service.ErrInsufficientFunds):
		return protocol.MsgInsufficientFunds
	case errors.Is(err, service.ErrInvalidAmount):
		return "Invalid amount"
	case errors.Is(err, service.ErrInvalidRecipient):
		return "Invalid or inactive recipient"
	case errors.Is(err, service.ErrSelfTransfer):
		return "Cannot transfer to self"
	case errors.Is(err, service.ErrTransactionLogFailed):
		return "Failed to log transaction"
	case errors.Is(err, service.ErrTransferAborted):
		return "Transfer failed"
	case errors.Is(err, repository.ErrAccountNotFound):
		return protocol.MsgAccountNotFound
	case errors.Is(err, repository.ErrUserNotFound):
		return "User not found"
	case errors.Is(err, repository.ErrUsernameTaken):
		return "Username already exists"
	case errors.Is(err, service.ErrCustomerNotFound):
		return "Customer not found"
	case errors.Is(err, service.ErrEmptyCredentials):
		return "Username and password required"
	case errors.Is(err, service.ErrNegativeBalance):
		return "Invalid initial balance"
	case errors.Is(err, service.ErrCannotDeactivateSelf):
		return "Cannot deactivate self"
	case errors.Is(err, service.ErrCannotDeactivateAdmin):
		return "Cannot deactivate another admin"
	case errors.Is(err, service.ErrUserAlreadyActive):
		return "User already active"
	case errors.Is(err, service.ErrLoanNotPending):
		return "Loan not found or not pending"
	case errors.Is(err, service.ErrInvalidEmployee):
		return "Invalid employee"
	case errors.Is(err, service.ErrPermissionDenied):
		return "Permission denied"
	case errors.Is(err, service.ErrEmptyFeedback):
		return "Feedback cannot be empty"
	}
	return "Operation failed"
}

func activeText(active bool) string {
	if active {
		return "YES"
	}
	return "NO"
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
