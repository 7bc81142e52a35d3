// internal/services/dispute_service_test.go
package services

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"

	"github.com/beatmarket/beatmarket-backend/internal/models"
)

type DisputeServiceTestSuite struct {
	suite.Suite
	dbConn   *gorm.DB
	service  *DisputeService
	purchase *PurchaseService
	release  *ReleaseService
	wallet   *WalletService
	buyer    *models.User
	producer *models.User
	admin    *models.User
	beat     *models.Beat
	basic    *models.License
}

func (s *DisputeServiceTestSuite) SetupTest() {
	db := newTestDB(s.T())
	cfg := testConfig()

	s.dbConn = db
	s.wallet = NewWalletService(db)
	payments := NewPaymentService(cfg)
	notifications := NewNotificationService(db)
	s.purchase = NewPurchaseService(db, s.wallet, payments, notifications, cfg)
	s.release = NewReleaseService(db, s.wallet, notifications, cfg)
	s.service = NewDisputeService(db, s.wallet, payments, notifications)

	s.producer = createTestUser(s.T(), db, models.UserRoleProducer, 0)
	s.buyer = createTestUser(s.T(), db, models.UserRoleBuyer, 0)
	s.admin = createTestUser(s.T(), db, models.UserRoleAdmin, 0)
	s.beat = createTestBeat(s.T(), db, s.producer.ID)
	s.basic = createTestLicense(s.T(), db, models.LicenseNameBasic, 29.99)
	attachTestLicense(s.T(), db, s.beat, s.basic, 50.00)
}

// walletPurchase buys the beat entirely from wallet funds so refunds do
// not touch a gateway.
func (s *DisputeServiceTestSuite) walletPurchase() *models.Purchase {
	s.Require().NoError(s.dbConn.Model(&models.User{}).Where("id = ?", s.buyer.ID).
		UpdateColumn("wallet_balance", 50.0).Error)

	purchase, _, err := s.purchase.Purchase(s.buyer.ID, &PurchaseRequest{
		BeatID:    s.beat.ID,
		LicenseID: s.basic.ID,
		UseWallet: true,
	})
	s.Require().NoError(err)
	return purchase
}

func (s *DisputeServiceTestSuite) fileDispute(purchaseID uuid.UUID) *models.Dispute {
	dispute, err := s.service.FileDispute(s.buyer.ID, purchaseID, &FileDisputeRequest{
		Reason: "delivered file is a different beat entirely",
	})
	s.Require().NoError(err)
	return dispute
}

func (s *DisputeServiceTestSuite) TestFileDisputeFreezesPurchase() {
	purchase := s.walletPurchase()
	dispute := s.fileDispute(purchase.ID)

	s.Equal(models.DisputeStatusOpen, dispute.Status)
	s.Equal(s.buyer.ID, dispute.RaisedBy)

	var reloaded models.Purchase
	s.Require().NoError(s.dbConn.First(&reloaded, "id = ?", purchase.ID).Error)
	s.Equal(models.RefundStatusDisputed, reloaded.RefundStatus)
	s.Equal(dispute.Reason, reloaded.FlagReason)
}

func (s *DisputeServiceTestSuite) TestFileDisputeOwnershipAndDuplicates() {
	purchase := s.walletPurchase()

	stranger := createTestUser(s.T(), s.dbConn, models.UserRoleBuyer, 0)
	_, err := s.service.FileDispute(stranger.ID, purchase.ID, &FileDisputeRequest{
		Reason: "delivered file is a different beat entirely",
	})
	s.ErrorIs(err, ErrNotPurchaseOwner)

	s.fileDispute(purchase.ID)
	_, err = s.service.FileDispute(s.buyer.ID, purchase.ID, &FileDisputeRequest{
		Reason: "delivered file is a different beat entirely",
	})
	s.ErrorIs(err, ErrAlreadyDisputed)

	_, err = s.service.FileDispute(s.buyer.ID, uuid.New(), &FileDisputeRequest{
		Reason: "delivered file is a different beat entirely",
	})
	s.ErrorIs(err, ErrPurchaseNotFound)
}

func (s *DisputeServiceTestSuite) TestWithdrawnEarningsBlockDispute() {
	purchase := s.walletPurchase()
	withdrawalID := uuid.New()
	s.Require().NoError(s.dbConn.Model(&models.Purchase{}).Where("id = ?", purchase.ID).
		UpdateColumn("withdrawal_id", withdrawalID).Error)

	_, err := s.service.FileDispute(s.buyer.ID, purchase.ID, &FileDisputeRequest{
		Reason: "delivered file is a different beat entirely",
	})
	s.ErrorIs(err, ErrAlreadyWithdrawn)
}

func (s *DisputeServiceTestSuite) TestStateMachine() {
	purchase := s.walletPurchase()
	dispute := s.fileDispute(purchase.ID)

	// open cannot jump straight to a terminal state.
	_, err := s.service.UpdateDispute(dispute.ID, s.admin.ID, &UpdateDisputeRequest{Status: models.DisputeStatusResolved})
	s.ErrorIs(err, ErrInvalidTransition)

	updated, err := s.service.UpdateDispute(dispute.ID, s.admin.ID, &UpdateDisputeRequest{
		Status:        models.DisputeStatusUnderReview,
		AdminResponse: "reviewing delivery contents",
	})
	s.Require().NoError(err)
	s.Equal(models.DisputeStatusUnderReview, updated.Status)

	updated, err = s.service.UpdateDispute(dispute.ID, s.admin.ID, &UpdateDisputeRequest{
		Status:     models.DisputeStatusResolved,
		Resolution: "buyer is right, refund owed",
	})
	s.Require().NoError(err)
	s.Equal(models.DisputeStatusResolved, updated.Status)
	s.NotNil(updated.ResolvedAt)
	s.Require().NotNil(updated.ResolvedBy)
	s.Equal(s.admin.ID, *updated.ResolvedBy)

	// Terminal states accept no further transitions.
	_, err = s.service.UpdateDispute(dispute.ID, s.admin.ID, &UpdateDisputeRequest{Status: models.DisputeStatusRejected})
	s.ErrorIs(err, ErrInvalidTransition)
}

func (s *DisputeServiceTestSuite) TestRejectionUnfreezes() {
	purchase := s.walletPurchase()
	dispute := s.fileDispute(purchase.ID)

	_, err := s.service.UpdateDispute(dispute.ID, s.admin.ID, &UpdateDisputeRequest{Status: models.DisputeStatusUnderReview})
	s.Require().NoError(err)
	_, err = s.service.UpdateDispute(dispute.ID, s.admin.ID, &UpdateDisputeRequest{
		Status:     models.DisputeStatusRejected,
		Resolution: "delivery verified correct",
	})
	s.Require().NoError(err)

	var reloaded models.Purchase
	s.Require().NoError(s.dbConn.First(&reloaded, "id = ?", purchase.ID).Error)
	s.Equal(models.RefundStatusNone, reloaded.RefundStatus)
	s.Empty(reloaded.FlagReason)
}

func (s *DisputeServiceTestSuite) TestRefundRequiresResolvedDispute() {
	purchase := s.walletPurchase()

	// Not disputed at all.
	_, err := s.service.RefundPurchase(purchase.ID, s.admin.ID)
	s.ErrorIs(err, ErrPurchaseNotDisputed)

	dispute := s.fileDispute(purchase.ID)

	// Disputed but not yet resolved.
	_, err = s.service.RefundPurchase(purchase.ID, s.admin.ID)
	s.ErrorIs(err, ErrDisputeNotResolved)

	_, err = s.service.UpdateDispute(dispute.ID, s.admin.ID, &UpdateDisputeRequest{Status: models.DisputeStatusUnderReview})
	s.Require().NoError(err)
	_, err = s.service.UpdateDispute(dispute.ID, s.admin.ID, &UpdateDisputeRequest{
		Status:     models.DisputeStatusResolved,
		Resolution: "refund owed",
	})
	s.Require().NoError(err)

	refunded, err := s.service.RefundPurchase(purchase.ID, s.admin.ID)
	s.Require().NoError(err)
	s.Equal(models.RefundStatusRefunded, refunded.RefundStatus)
	s.NotNil(refunded.RefundedAt)

	// Wallet portion came back to the buyer.
	balance, err := s.wallet.Balance(s.buyer.ID)
	s.Require().NoError(err)
	s.Equal(50.0, balance)

	// Second refund attempt fails.
	_, err = s.service.RefundPurchase(purchase.ID, s.admin.ID)
	s.ErrorIs(err, ErrAlreadyRefunded)
}

func (s *DisputeServiceTestSuite) TestRefundClawsBackReleasedEarnings() {
	purchase := s.walletPurchase()

	// Release first: producer receives seller earnings.
	summary, err := s.release.ReleaseDueFunds(purchase.HoldUntil.Add(time.Hour))
	s.Require().NoError(err)
	s.Require().Equal(1, summary.ReleasedCount)

	producerBalance, err := s.wallet.Balance(s.producer.ID)
	s.Require().NoError(err)
	s.Equal(35.0, producerBalance)

	// Then the dispute lands and resolves in the buyer's favor.
	dispute := s.fileDispute(purchase.ID)
	_, err = s.service.UpdateDispute(dispute.ID, s.admin.ID, &UpdateDisputeRequest{Status: models.DisputeStatusUnderReview})
	s.Require().NoError(err)
	_, err = s.service.UpdateDispute(dispute.ID, s.admin.ID, &UpdateDisputeRequest{
		Status:     models.DisputeStatusResolved,
		Resolution: "refund owed",
	})
	s.Require().NoError(err)

	_, err = s.service.RefundPurchase(purchase.ID, s.admin.ID)
	s.Require().NoError(err)

	// Buyer made whole, producer's released earnings reversed.
	buyerBalance, err := s.wallet.Balance(s.buyer.ID)
	s.Require().NoError(err)
	s.Equal(50.0, buyerBalance)

	producerBalance, err = s.wallet.Balance(s.producer.ID)
	s.Require().NoError(err)
	s.Equal(0.0, producerBalance)
}

func (s *DisputeServiceTestSuite) resolveDispute(disputeID uuid.UUID) {
	_, err := s.service.UpdateDispute(disputeID, s.admin.ID, &UpdateDisputeRequest{Status: models.DisputeStatusUnderReview})
	s.Require().NoError(err)
	_, err = s.service.UpdateDispute(disputeID, s.admin.ID, &UpdateDisputeRequest{
		Status:     models.DisputeStatusResolved,
		Resolution: "refund owed",
	})
	s.Require().NoError(err)
}

func (s *DisputeServiceTestSuite) TestRefundRollsBackWhenClawbackFails() {
	purchase := s.walletPurchase()

	summary, err := s.release.ReleaseDueFunds(purchase.HoldUntil.Add(time.Hour))
	s.Require().NoError(err)
	s.Require().Equal(1, summary.ReleasedCount)

	// The producer has already spent the released earnings.
	s.Require().NoError(s.dbConn.Model(&models.User{}).Where("id = ?", s.producer.ID).
		UpdateColumn("wallet_balance", 0.0).Error)

	dispute := s.fileDispute(purchase.ID)
	s.resolveDispute(dispute.ID)

	var insufficient *InsufficientBalanceError
	_, err = s.service.RefundPurchase(purchase.ID, s.admin.ID)
	s.Require().ErrorAs(err, &insufficient)

	// Nothing moved: the purchase is still disputed, the buyer holds no
	// partial credit, and the refund can be retried cleanly.
	var reloaded models.Purchase
	s.Require().NoError(s.dbConn.First(&reloaded, "id = ?", purchase.ID).Error)
	s.Equal(models.RefundStatusDisputed, reloaded.RefundStatus)
	s.Nil(reloaded.RefundedAt)

	buyerBalance, err := s.wallet.Balance(s.buyer.ID)
	s.Require().NoError(err)
	s.Equal(0.0, buyerBalance)

	s.Require().NoError(s.dbConn.Model(&models.User{}).Where("id = ?", s.producer.ID).
		UpdateColumn("wallet_balance", 35.0).Error)
	refunded, err := s.service.RefundPurchase(purchase.ID, s.admin.ID)
	s.Require().NoError(err)
	s.Equal(models.RefundStatusRefunded, refunded.RefundStatus)
}

func (s *DisputeServiceTestSuite) TestCardRefundFailureKeepsMarker() {
	purchase, _, err := s.purchase.Purchase(s.buyer.ID, &PurchaseRequest{
		BeatID:    s.beat.ID,
		LicenseID: s.basic.ID,
	})
	s.Require().NoError(err)

	dispute := s.fileDispute(purchase.ID)
	s.resolveDispute(dispute.ID)

	s.Require().NoError(s.dbConn.Model(&models.Purchase{}).Where("id = ?", purchase.ID).
		UpdateColumn("gateway", "square").Error)

	_, err = s.service.RefundPurchase(purchase.ID, s.admin.ID)
	s.Require().ErrorIs(err, ErrUnknownGateway)

	// The refund marker committed before the gateway leg, so a retry
	// cannot re-run the wallet movements or charge the gateway twice.
	var reloaded models.Purchase
	s.Require().NoError(s.dbConn.First(&reloaded, "id = ?", purchase.ID).Error)
	s.Equal(models.RefundStatusRefunded, reloaded.RefundStatus)

	_, err = s.service.RefundPurchase(purchase.ID, s.admin.ID)
	s.ErrorIs(err, ErrAlreadyRefunded)
}

func TestDisputeServiceSuite(t *testing.T) {
	suite.Run(t, new(DisputeServiceTestSuite))
}
