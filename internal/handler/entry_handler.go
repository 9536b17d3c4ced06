package handler

import (
	"errors"
	"net/http"

	"github.com/FarahBaraket-03/FundChain/internal/ledger"
	"github.com/FarahBaraket-03/FundChain/internal/logger"
	"github.com/FarahBaraket-03/FundChain/internal/model"
	"github.com/FarahBaraket-03/FundChain/internal/store"
	"github.com/gin-gonic/gin"
)

// EntryHandler 捐款与提款记录的同步入口
type EntryHandler struct {
	store *store.Store
}

func NewEntryHandler(st *store.Store) *EntryHandler {
	return &EntryHandler{store: st}
}

// SyncDonation 同步一条捐款记录
func (h *EntryHandler) SyncDonation(c *gin.Context) {
	req, ok := h.bindEntry(c)
	if !ok {
		return
	}

	donation := &model.Donation{
		CampaignID:      req.CampaignID,
		DonorAddress:    req.Address,
		Amount:          req.Amount,
		TransactionHash: req.TransactionHash,
		BlockNumber:     req.BlockNumber,
	}
	h.apply(c, model.RetryKindDonation, req, h.store.InsertDonation(donation), "donation recorded")
}

// SyncWithdrawal 同步一条提款记录
func (h *EntryHandler) SyncWithdrawal(c *gin.Context) {
	req, ok := h.bindEntry(c)
	if !ok {
		return
	}

	withdrawal := &model.Withdrawal{
		CampaignID:       req.CampaignID,
		RecipientAddress: req.Address,
		Amount:           req.Amount,
		TransactionHash:  req.TransactionHash,
		BlockNumber:      req.BlockNumber,
	}
	h.apply(c, model.RetryKindWithdrawal, req, h.store.InsertWithdrawal(withdrawal), "withdrawal recorded")
}

func (h *EntryHandler) bindEntry(c *gin.Context) (*EntryRequest, bool) {
	var req EntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return nil, false
	}
	if req.TransactionHash == "" || req.Address == "" {
		ErrorResponse(c, http.StatusBadRequest, "transaction_hash and address are required")
		return nil, false
	}
	if req.Amount.Sign() <= 0 {
		ErrorResponse(c, http.StatusBadRequest, "amount must be positive")
		return nil, false
	}
	return &req, true
}

// apply 统一映射写入结果：重复交易409，活动缺失404，漂移422，
// 其余失败入重试队列并返回202由对账兜底。
func (h *EntryHandler) apply(c *gin.Context, kind string, req *EntryRequest, err error, okMsg string) {
	switch {
	case err == nil:
		SuccessResponse(c, http.StatusCreated, okMsg, nil)
	case errors.Is(err, store.ErrDuplicateTransaction):
		ErrorResponse(c, http.StatusConflict, "transaction already recorded")
	case errors.Is(err, store.ErrCampaignNotFound):
		ErrorResponse(c, http.StatusNotFound, "campaign not found")
	case store.IsDrift(err):
		ErrorResponse(c, http.StatusUnprocessableEntity, err.Error())
	default:
		logger.Error("Failed to apply %s for campaign %d (tx %s): %v",
			kind, req.CampaignID, req.TransactionHash, err)
		// 重试队列统一存事件形态，重放路径只有一条
		ev := ledger.Event{
			Kind:        ledger.EventDonationMade,
			CampaignID:  req.CampaignID,
			Address:     req.Address,
			Amount:      req.Amount,
			TxHash:      req.TransactionHash,
			BlockNumber: req.BlockNumber,
		}
		if kind == model.RetryKindWithdrawal {
			ev.Kind = ledger.EventFundsWithdrawn
		}
		if qerr := h.store.EnqueueRetry(kind, req.CampaignID, ev); qerr != nil {
			logger.Error("Failed to enqueue retry for tx %s: %v", req.TransactionHash, qerr)
			ErrorResponse(c, http.StatusInternalServerError, err.Error())
			return
		}
		SuccessResponse(c, http.StatusAccepted, "queued for retry", nil)
	}
}
