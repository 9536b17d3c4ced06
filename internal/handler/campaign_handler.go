package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/FarahBaraket-03/FundChain/internal/fund"
	"github.com/FarahBaraket-03/FundChain/internal/model"
	"github.com/FarahBaraket-03/FundChain/internal/store"
	"github.com/FarahBaraket-03/FundChain/internal/sync"
	"github.com/gin-gonic/gin"
)

// 调用方钱包地址的请求头
const walletHeader = "X-Wallet-Address"

type CampaignHandler struct {
	store   *store.Store
	syncer  *sync.Synchronizer
	checker *fund.Checker
}

func NewCampaignHandler(st *store.Store, syncer *sync.Synchronizer, checker *fund.Checker) *CampaignHandler {
	return &CampaignHandler{
		store:   st,
		syncer:  syncer,
		checker: checker,
	}
}

// SyncCampaign 同步活动元数据（部分更新）
func (h *CampaignHandler) SyncCampaign(c *gin.Context) {
	var req CampaignSyncRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	if req.OwnerAddress == "" {
		ErrorResponse(c, http.StatusBadRequest, "owner_address is required")
		return
	}

	campaign, err := h.syncer.SyncCampaign(&store.CampaignUpsert{
		BlockchainID:    req.BlockchainID,
		OwnerAddress:    req.OwnerAddress,
		Title:           req.Title,
		Description:     req.Description,
		ImageURL:        req.ImageURL,
		SocialLinks:     req.SocialLinks,
		TargetAmount:    req.TargetAmount,
		Deadline:        req.Deadline,
		AmountCollected: req.AmountCollected,
		FundsWithdrawn:  req.FundsWithdrawn,
		IsActive:        req.IsActive,
		IsVerified:      req.IsVerified,
		CategoryID:      req.CategoryID,
	})
	if err != nil {
		ErrorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}

	SuccessResponse(c, http.StatusOK, "campaign synced", campaignResponse(campaign))
}

// GetCampaign 获取活动详情（含派生状态）
func (h *CampaignHandler) GetCampaign(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "invalid campaign id")
		return
	}

	campaign, err := h.store.CampaignByChainID(id)
	if err != nil {
		if errors.Is(err, store.ErrCampaignNotFound) {
			ErrorResponse(c, http.StatusNotFound, "campaign not found")
			return
		}
		ErrorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}

	SuccessResponse(c, http.StatusOK, "ok", campaignResponse(campaign))
}

// CancelCampaign 取消活动。调用方地址取自 X-Wallet-Address 请求头
func (h *CampaignHandler) CancelCampaign(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "invalid campaign id")
		return
	}
	caller := c.GetHeader(walletHeader)
	if caller == "" {
		ErrorResponse(c, http.StatusBadRequest, "missing "+walletHeader+" header")
		return
	}

	if err := h.syncer.SyncCancellation(id, caller); err != nil {
		var pe *fund.PreconditionError
		switch {
		case errors.Is(err, store.ErrCampaignNotFound):
			ErrorResponse(c, http.StatusNotFound, "campaign not found")
		case errors.As(err, &pe):
			ErrorResponse(c, http.StatusUnprocessableEntity, pe.Reason)
		default:
			ErrorResponse(c, http.StatusInternalServerError, err.Error())
		}
		return
	}

	SuccessResponse(c, http.StatusOK, "campaign cancelled", nil)
}

// GetEligibility 查询调用方对某活动的操作资格。
// action 取 withdraw、refund 或 cancel
func (h *CampaignHandler) GetEligibility(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "invalid campaign id")
		return
	}
	caller := c.GetHeader(walletHeader)
	if caller == "" {
		ErrorResponse(c, http.StatusBadRequest, "missing "+walletHeader+" header")
		return
	}

	var decision fund.Decision
	switch c.Query("action") {
	case "withdraw":
		decision, err = h.checker.Withdraw(c.Request.Context(), id, caller)
	case "refund":
		decision, err = h.checker.Refund(c.Request.Context(), id, caller)
	case "cancel":
		decision, err = h.checker.Cancel(c.Request.Context(), id, caller)
	default:
		ErrorResponse(c, http.StatusBadRequest, "action must be withdraw, refund or cancel")
		return
	}
	if err != nil {
		if errors.Is(err, store.ErrCampaignNotFound) {
			ErrorResponse(c, http.StatusNotFound, "campaign not found")
			return
		}
		ErrorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}

	SuccessResponse(c, http.StatusOK, "ok", EligibilityResponse{
		Eligible:       decision.Eligible,
		Code:           string(decision.Code),
		Reason:         decision.Reason,
		Available:      decision.Available.String(),
		LocallyDerived: decision.LocallyDerived,
	})
}

func campaignResponse(campaign *model.Campaign) CampaignResponse {
	status := fund.DeriveStatus(fund.StateOf(campaign), time.Now())
	return CampaignResponse{
		BlockchainID:    campaign.BlockchainID,
		OwnerAddress:    campaign.OwnerAddress,
		Title:           campaign.Title,
		Description:     campaign.Description,
		ImageURL:        campaign.ImageURL,
		TargetAmount:    campaign.TargetAmount.String(),
		AmountCollected: campaign.AmountCollected.String(),
		FundsWithdrawn:  campaign.FundsWithdrawn.String(),
		Deadline:        campaign.Deadline,
		IsActive:        campaign.IsActive,
		IsVerified:      campaign.IsVerified,
		Status:          string(status),
	}
}
