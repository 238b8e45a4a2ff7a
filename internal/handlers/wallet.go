// internal/handlers/wallet.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/apexchain/apex-backend/internal/config"
	"github.com/apexchain/apex-backend/internal/i18n"
	"github.com/apexchain/apex-backend/internal/utils"
	"github.com/apexchain/apex-backend/internal/wallet"
)

type WalletHandler struct {
	session *wallet.Session
	chain   config.BlockchainConfig
}

func NewWalletHandler(session *wallet.Session, chain config.BlockchainConfig) *WalletHandler {
	return &WalletHandler{
		session: session,
		chain:   chain,
	}
}

// GET /wallet
func (h *WalletHandler) GetStatus(c *gin.Context) {
	utils.SuccessResponse(c, gin.H{
		"available": h.session.HasProvider(),
		"wallet":    h.session.State(),
		"network":   wallet.ChainFromConfig(h.chain),
	})
}

// POST /wallet/connect
func (h *WalletHandler) Connect(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	if _, _, err := h.session.Connect(c.Request.Context()); err != nil {
		respondError(c, err, "wallet")
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyWalletConnected),
		"wallet":  h.session.State(),
	})
}

// POST /wallet/disconnect
func (h *WalletHandler) Disconnect(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	h.session.Disconnect()

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyWalletDisconnected),
		"wallet":  h.session.State(),
	})
}

// POST /wallet/switch
func (h *WalletHandler) SwitchNetwork(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	if err := h.session.SwitchNetwork(c.Request.Context(), wallet.ChainFromConfig(h.chain)); err != nil {
		if wallet.IsUserRejected(err) {
			respondError(c, err, "wallet")
			return
		}
		if _, ok := wallet.ErrorCode(err); ok {
			utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyWalletSwitchFailed), err.Error())
			return
		}
		respondError(c, err, "wallet")
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyWalletSwitched),
		"wallet":  h.session.State(),
	})
}

// GET /wallet/fee
func (h *WalletHandler) EstimateFee(c *gin.Context) {
	fee, err := wallet.EstimateMintFee(c.Request.Context(), h.session.Provider())
	if err != nil {
		respondError(c, err, "wallet")
		return
	}

	utils.SuccessResponse(c, gin.H{
		"fee":      fee,
		"currency": h.chain.CurrencySymbol,
	})
}

// GET /wallet/balance
func (h *WalletHandler) GetBalance(c *gin.Context) {
	account := c.Query("account")
	if account == "" {
		account = h.session.Account()
	}
	if account == "" {
		respondError(c, wallet.ErrNoAccounts, "wallet")
		return
	}

	balance, err := wallet.Balance(c.Request.Context(), h.session.Provider(), account)
	if err != nil {
		respondError(c, err, "wallet")
		return
	}

	utils.SuccessResponse(c, gin.H{
		"account":     account,
		"balance_wei": balance.String(),
		"balance":     wallet.FormatEther(balance),
		"currency":    h.chain.CurrencySymbol,
	})
}
