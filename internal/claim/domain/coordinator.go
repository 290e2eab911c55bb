package domain

// StatusChange 一次状态协调的结果，供应用层持久化并派发通知
type StatusChange struct {
	ClaimStatus    ClaimStatus
	IdentityStatus IdentityStatus
	// Notify 为 true 时应向用户派发下述内容
	Notify  bool
	Subject string
	Body    string
	SMS     string
}

// StatusCoordinator 申领状态协调器。claim_status 的唯一写入方：
// 身份核验回调、提交拦截、补偿任务都必须经由 Reconcile 修改状态，
// 避免多个调用点各自更新字段导致发散。
type StatusCoordinator struct {
	terms ProgramTerms
}

// NewStatusCoordinator 创建状态协调器
func NewStatusCoordinator(terms ProgramTerms) *StatusCoordinator {
	return &StatusCoordinator{terms: terms}
}

// Reconcile 根据最新身份核验结果推导申领状态并写入账户。
// 身份通过但锁定金额超上限、或快照差额达到阈值时，申领仍被拒绝；
// 核验未通过只会把申领退回待定，不会直接拒绝。
func (sc *StatusCoordinator) Reconcile(account *ClaimAccount, newStatus IdentityStatus) StatusChange {
	change := StatusChange{}

	switch newStatus {
	case IdentityStatusAccepted:
		account.IdentityStatus = IdentityStatusAccepted

		if sc.balanceSuspect(account) {
			account.ClaimStatus = ClaimStatusDeclined
			change.Notify = true
			change.Subject = "Claim Status Updated"
			change.Body = "Our provider has accepted your documents and your identity has been verified. " +
				"Your claim is still pending review and you will be unable to withdraw until it is approved. " +
				"Please contact support to resolve this."
			change.SMS = "Your identity has been ACCEPTED but your claim is still pending. Check your dashboard for details."
		} else {
			account.ClaimStatus = ClaimStatusApproved
			change.Notify = true
			change.Subject = "Claim Status Updated"
			change.Body = "Our provider has accepted your documents and your identity has been verified. " +
				"Your claim has been approved and you can begin withdrawing once withdrawals are enabled."
			change.SMS = "Your identity has been ACCEPTED and your claim is now Approved. Check your dashboard for details."
		}

	case IdentityStatusDeclined:
		account.IdentityStatus = IdentityStatusDeclined
		account.ClaimStatus = ClaimStatusPending
		change.Notify = true
		change.Subject = "Claim Status Updated"
		change.Body = "Our provider has rejected your documents and your identity has not been verified. " +
			"Please retry your submission or use different documents to verify yourself."
		change.SMS = "Your identity has been REJECTED. Please retry or submit new identity documents."

	case IdentityStatusInvalid:
		account.IdentityStatus = IdentityStatusInvalid
		account.ClaimStatus = ClaimStatusPending
		change.Notify = true
		change.Subject = "Claim Status Updated"
		change.Body = "Your submitted identity contains invalid input or images. " +
			"Please retry your submission or use different documents to verify yourself."
		change.SMS = "Your submitted information was marked invalid. Please retry or submit new documents."

	default:
		account.IdentityStatus = IdentityStatusPending
		account.ClaimStatus = ClaimStatusPending
	}

	change.ClaimStatus = account.ClaimStatus
	change.IdentityStatus = account.IdentityStatus
	return change
}

// balanceSuspect 锁定金额超上限或快照差额达到阈值
func (sc *StatusCoordinator) balanceSuspect(account *ClaimAccount) bool {
	return account.LockedSum.GreaterThan(sc.terms.MaxLockedSum) ||
		account.LockedSumDiff.GreaterThanOrEqual(sc.terms.LockedDiffThreshold)
}
