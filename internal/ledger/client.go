package ledger

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/FarahBaraket-03/FundChain/internal/config"
	"github.com/FarahBaraket-03/FundChain/internal/logger"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/shopspring/decimal"
)

// RefundKind 退款方式
type RefundKind string

const (
	RefundStandard          RefundKind = "standard"           // 活动进行中撤回自己的捐款
	RefundGoalNotMet        RefundKind = "goal_not_met"       // 到期未达标退款
	RefundAfterCancellation RefundKind = "after_cancellation" // 活动取消后退款
)

// CampaignSnapshot 链上活动快照，金额已在边界处转换为十进制
type CampaignSnapshot struct {
	ID              uint64
	Owner           string
	Title           string
	Description     string
	Target          decimal.Decimal
	Deadline        int64
	AmountCollected decimal.Decimal
	Image           string
	IsActive        bool
	IsVerified      bool
	FundsWithdrawn  decimal.Decimal
}

// Receipt 交易回执。BlockNumber 可能暂时为0（提交后立即查询不到），
// 属于可解决的延迟，通过 ResolveReceipt 补齐，不作为错误处理。
type Receipt struct {
	TxHash      string
	BlockNumber uint64
}

// Client 账本客户端，封装众筹合约的读、写与事件订阅
type Client struct {
	eth           *ethclient.Client
	contractABI   abi.ABI
	contractAddr  common.Address
	privateKey    *ecdsa.PrivateKey
	from          common.Address
	chainID       *big.Int
	startBlock    uint64
	confirmations uint64

	retryAttempts  int
	retryBackoff   time.Duration
	receiptTimeout time.Duration
	pollInterval   time.Duration
	buffer         int
}

// NewClient 创建账本客户端
func NewClient(chainCfg config.ChainConfig, syncCfg config.SyncConfig) (*Client, error) {
	eth, err := ethclient.Dial(chainCfg.RpcUrl)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to chain rpc: %w", err)
	}

	// 私钥可留空，留空时为只读客户端，提交交易会报错
	var privateKey *ecdsa.PrivateKey
	var from common.Address
	if chainCfg.PrivateKey != "" {
		privateKey, err = crypto.HexToECDSA(strings.TrimPrefix(chainCfg.PrivateKey, "0x"))
		if err != nil {
			return nil, fmt.Errorf("failed to parse private key: %w", err)
		}
		from = crypto.PubkeyToAddress(privateKey.PublicKey)
	}

	parsedABI, err := abi.JSON(strings.NewReader(contractABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse contract ABI: %w", err)
	}

	client := &Client{
		eth:            eth,
		contractABI:    parsedABI,
		contractAddr:   common.HexToAddress(chainCfg.ContractAddress),
		privateKey:     privateKey,
		from:           from,
		chainID:        big.NewInt(chainCfg.ChainId),
		startBlock:     chainCfg.StartBlock,
		confirmations:  chainCfg.Confirmations,
		retryAttempts:  chainCfg.RetryAttempts,
		retryBackoff:   time.Duration(chainCfg.RetryBackoffMs) * time.Millisecond,
		receiptTimeout: time.Duration(chainCfg.ReceiptTimeout) * time.Second,
		pollInterval:   time.Duration(syncCfg.PollInterval) * time.Second,
		buffer:         syncCfg.Buffer,
	}

	// 测试连接
	if _, err := eth.BlockNumber(context.Background()); err != nil {
		eth.Close()
		return nil, fmt.Errorf("chain connection test failed: %w", err)
	}

	logger.Info("Connected to chain %d, contract %s", chainCfg.ChainId, client.contractAddr.Hex())
	return client, nil
}

// Close 关闭客户端
func (c *Client) Close() {
	c.eth.Close()
}

// GetStartBlock 获取合约部署区块号
func (c *Client) GetStartBlock() uint64 {
	return c.startBlock
}

// WeiToDecimal 链上基础单位转十进制（边界处统一转换，18位小数）
func WeiToDecimal(wei *big.Int) decimal.Decimal {
	if wei == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(wei, -18)
}

// DecimalToWei 十进制金额转链上基础单位
func DecimalToWei(d decimal.Decimal) *big.Int {
	return d.Shift(18).BigInt()
}

// withRetry 带指数退避的读重试，耗尽后归类为 ErrChainUnavailable。
// 合约回滚不重试，原样透出。
func (c *Client) withRetry(ctx context.Context, op string, fn func() error) error {
	backoff := c.retryBackoff
	var err error
	for attempt := 1; attempt <= c.retryAttempts; attempt++ {
		if err = classify(fn()); err == nil {
			return nil
		}
		if IsRevert(err) {
			return err
		}
		logger.Warn("%s failed (attempt %d/%d): %v", op, attempt, c.retryAttempts, err)
		// 最后一次失败直接返回，不再白等一个退避周期
		if attempt == c.retryAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %v", ErrChainUnavailable, ctx.Err())
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return fmt.Errorf("%w: %v", ErrChainUnavailable, err)
}

// call 只读合约调用
func (c *Client) call(ctx context.Context, method string, args ...interface{}) ([]interface{}, error) {
	data, err := c.contractABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s call: %w", method, err)
	}

	var out []byte
	err = c.withRetry(ctx, method, func() error {
		var callErr error
		out, callErr = c.eth.CallContract(ctx, ethereum.CallMsg{
			To:   &c.contractAddr,
			Data: data,
		}, nil)
		return callErr
	})
	if err != nil {
		return nil, err
	}

	vals, err := c.contractABI.Unpack(method, out)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack %s result: %w", method, err)
	}
	return vals, nil
}

// GetCampaignCount 获取活动总数
func (c *Client) GetCampaignCount(ctx context.Context) (uint64, error) {
	vals, err := c.call(ctx, "numberOfCampaigns")
	if err != nil {
		return 0, err
	}
	return vals[0].(*big.Int).Uint64(), nil
}

// GetCampaignSnapshot 获取活动快照
func (c *Client) GetCampaignSnapshot(ctx context.Context, id uint64) (*CampaignSnapshot, error) {
	vals, err := c.call(ctx, "getCampaignDetails", new(big.Int).SetUint64(id))
	if err != nil {
		return nil, err
	}

	return &CampaignSnapshot{
		ID:              id,
		Owner:           strings.ToLower(vals[0].(common.Address).Hex()),
		Title:           vals[1].(string),
		Description:     vals[2].(string),
		Target:          WeiToDecimal(vals[3].(*big.Int)),
		Deadline:        vals[4].(*big.Int).Int64(),
		AmountCollected: WeiToDecimal(vals[5].(*big.Int)),
		Image:           vals[6].(string),
		IsActive:        vals[7].(bool),
		IsVerified:      vals[8].(bool),
		FundsWithdrawn:  WeiToDecimal(vals[9].(*big.Int)),
	}, nil
}

// GetDonators 获取活动的捐款人与金额列表
func (c *Client) GetDonators(ctx context.Context, id uint64) ([]string, []decimal.Decimal, error) {
	vals, err := c.call(ctx, "getDonators", new(big.Int).SetUint64(id))
	if err != nil {
		return nil, nil, err
	}

	rawAddrs := vals[0].([]common.Address)
	rawAmounts := vals[1].([]*big.Int)

	addrs := make([]string, len(rawAddrs))
	amounts := make([]decimal.Decimal, len(rawAmounts))
	for i := range rawAddrs {
		addrs[i] = strings.ToLower(rawAddrs[i].Hex())
	}
	for i := range rawAmounts {
		amounts[i] = WeiToDecimal(rawAmounts[i])
	}
	return addrs, amounts, nil
}

// HasClaimedRefund 查询某捐款人是否已领取退款（一旦为真永久为真）
func (c *Client) HasClaimedRefund(ctx context.Context, id uint64, donor string) (bool, error) {
	vals, err := c.call(ctx, "hasClaimedRefund", new(big.Int).SetUint64(id), common.HexToAddress(donor))
	if err != nil {
		return false, err
	}
	return vals[0].(bool), nil
}

// CheckWithdrawEligibility 链上提款资格查询（权威判断）
func (c *Client) CheckWithdrawEligibility(ctx context.Context, id uint64) (bool, string, error) {
	vals, err := c.call(ctx, "canWithdraw", new(big.Int).SetUint64(id))
	if err != nil {
		return false, "", err
	}
	return vals[0].(bool), vals[1].(string), nil
}

// GetAvailableFunds 获取活动当前可提取金额
func (c *Client) GetAvailableFunds(ctx context.Context, id uint64) (decimal.Decimal, error) {
	vals, err := c.call(ctx, "getAvailableFunds", new(big.Int).SetUint64(id))
	if err != nil {
		return decimal.Zero, err
	}
	return WeiToDecimal(vals[0].(*big.Int)), nil
}

// SubmitDonation 提交捐款交易
func (c *Client) SubmitDonation(ctx context.Context, id uint64, amount decimal.Decimal) (*Receipt, error) {
	return c.submit(ctx, DecimalToWei(amount), "donateToCampaign", new(big.Int).SetUint64(id))
}

// SubmitWithdrawal 提交提款交易。资金类交易失败不自动重试，由调用方决策。
func (c *Client) SubmitWithdrawal(ctx context.Context, id uint64) (*Receipt, error) {
	return c.submit(ctx, nil, "withdrawFunds", new(big.Int).SetUint64(id))
}

// SubmitCancellation 提交取消交易
func (c *Client) SubmitCancellation(ctx context.Context, id uint64) (*Receipt, error) {
	return c.submit(ctx, nil, "cancelCampaign", new(big.Int).SetUint64(id))
}

// SubmitRefund 提交退款交易
func (c *Client) SubmitRefund(ctx context.Context, id uint64, kind RefundKind) (*Receipt, error) {
	var method string
	switch kind {
	case RefundStandard:
		method = "refundDonation"
	case RefundGoalNotMet:
		method = "claimRefundIfGoalNotMet"
	case RefundAfterCancellation:
		method = "claimRefundAfterCancellation"
	default:
		return nil, fmt.Errorf("unknown refund kind: %s", kind)
	}
	return c.submit(ctx, nil, method, new(big.Int).SetUint64(id))
}

// submit 签名并发送合约交易。回滚原因在预估gas阶段即原样透出。
func (c *Client) submit(ctx context.Context, value *big.Int, method string, args ...interface{}) (*Receipt, error) {
	if c.privateKey == nil {
		return nil, fmt.Errorf("cannot submit %s tx: client has no signing key", method)
	}
	data, err := c.contractABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s tx: %w", method, err)
	}
	if value == nil {
		value = big.NewInt(0)
	}

	nonce, err := c.eth.PendingNonceAt(ctx, c.from)
	if err != nil {
		return nil, classify(err)
	}
	gasPrice, err := c.eth.SuggestGasPrice(ctx)
	if err != nil {
		return nil, classify(err)
	}
	gasLimit, err := c.eth.EstimateGas(ctx, ethereum.CallMsg{
		From:  c.from,
		To:    &c.contractAddr,
		Value: value,
		Data:  data,
	})
	if err != nil {
		return nil, classify(err)
	}

	tx := types.NewTransaction(nonce, c.contractAddr, value, gasLimit, gasPrice, data)
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(c.chainID), c.privateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to sign %s tx: %w", method, err)
	}

	if err := c.eth.SendTransaction(ctx, signed); err != nil {
		return nil, classify(err)
	}

	receipt := &Receipt{TxHash: signed.Hash().Hex()}

	// 有界等待回执；拿不到区块号不算错误，留给 ResolveReceipt 补齐
	waitCtx, cancel := context.WithTimeout(ctx, c.receiptTimeout)
	defer cancel()
	mined, err := bind.WaitMined(waitCtx, c.eth, signed)
	if err != nil {
		logger.Warn("Receipt for %s tx %s not yet available: %v", method, receipt.TxHash, err)
		return receipt, nil
	}
	if mined.Status == types.ReceiptStatusFailed {
		return nil, &RevertError{Reason: fmt.Sprintf("%s transaction reverted on chain", method)}
	}

	receipt.BlockNumber = mined.BlockNumber.Uint64()
	return receipt, nil
}

// ResolveReceipt 按交易哈希补查回执，用于填补提交后缺失的区块号
func (c *Client) ResolveReceipt(ctx context.Context, txHash string) (*Receipt, error) {
	var mined *types.Receipt
	err := c.withRetry(ctx, "transactionReceipt", func() error {
		var rcErr error
		mined, rcErr = c.eth.TransactionReceipt(ctx, common.HexToHash(txHash))
		return rcErr
	})
	if err != nil {
		return nil, err
	}
	return &Receipt{TxHash: txHash, BlockNumber: mined.BlockNumber.Uint64()}, nil
}
