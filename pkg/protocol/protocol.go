package protocol

import (
	"fmt"
	"io"
)

// 协议应答文案。客户端按整条消息读取，所以每条应答以单次写出收尾
const (
	MsgLoginSuccess       = "Login successful"
	MsgLoginFailed        = "Login failed"
	MsgRoleMismatch       = "Role mismatch"
	MsgSessionActive      = "Session already active"
	MsgSessionTerminated  = "Session terminated"
	MsgUnknownCommand     = "Unknown command"
	MsgDepositSuccess     = "Deposit successful"
	MsgWithdrawSuccess    = "Withdrawal successful"
	MsgTransferSuccess    = "Transfer successful"
	MsgInsufficientFunds  = "Insufficient funds"
	MsgAccountNotFound    = "Account not found"
	MsgLoanSubmitted      = "Loan application submitted successfully"
	MsgLoanDecided        = "Loan decision recorded"
	MsgFeedbackSubmitted  = "Feedback submitted successfully"
	MsgCustomerAdded      = "Customer added successfully"
	MsgCustomerUpdated    = "Customer details updated"
	MsgEmployeeAdded      = "Employee added successfully"
	MsgManagerAdded       = "Manager added successfully"
	MsgUserDeactivated    = "User deactivated"
	MsgUserReactivated    = "User reactivated"
)

// Send 写出一条应答。写失败只能放弃，连接由上层收尾
func Send(w io.Writer, msg string) {
	fmt.Fprintf(w, "%s\n", msg)
}

// Sendf 格式化写出
func Sendf(w io.Writer, format string, args ...interface{}) {
	fmt.Fprintf(w, format+"\n", args...)
}
