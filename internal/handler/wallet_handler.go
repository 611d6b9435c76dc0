package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/unipass-api/internal/models"
	appErrors "github.com/noah-isme/unipass-api/pkg/errors"
	"github.com/noah-isme/unipass-api/pkg/response"
)

const pkpassContentType = "application/vnd.apple.pkpass"

type walletService interface {
	IssueApplePass(ctx context.Context, universityID string, key models.PassKey) (*models.IssueApplePassResponse, error)
	DownloadApplePass(ctx context.Context, token string) ([]byte, string, error)
	PushApplePass(ctx context.Context, serial string) error
	IssueGooglePass(ctx context.Context, universityID string, key models.PassKey) (*models.IssueGooglePassResponse, error)
	UpdateGooglePass(ctx context.Context, universityID string, key models.PassKey) error
	CreateGooglePassClass(ctx context.Context, req models.CreatePassClassRequest) (*models.CreatePassClassResponse, error)
}

// WalletHandler issues and refreshes wallet passes.
type WalletHandler struct {
	wallet walletService
}

// NewWalletHandler constructs WalletHandler.
func NewWalletHandler(wallet walletService) *WalletHandler {
	return &WalletHandler{wallet: wallet}
}

// IssueApple godoc
// @Summary Issue Apple Wallet pass
// @Description Renders the .pkpass and returns a signed, expiring download link
// @Tags Wallet
// @Produce json
// @Param careerId path string true "Career code"
// @Param uniqueIdentifier path string true "Student identifier"
// @Success 200 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /wallet/apple/{careerId}/{uniqueIdentifier} [post]
func (h *WalletHandler) IssueApple(c *gin.Context) {
	resp, err := h.wallet.IssueApplePass(c.Request.Context(), universityFromContext(c), passKeyFromPath(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, resp, nil)
}

// DownloadApple godoc
// @Summary Download Apple Wallet pass
// @Tags Wallet
// @Produce application/vnd.apple.pkpass
// @Param token path string true "Signed download token"
// @Success 200 {file} file
// @Failure 401 {object} response.Envelope
// @Router /wallet/apple/download/{token} [get]
func (h *WalletHandler) DownloadApple(c *gin.Context) {
	data, filename, err := h.wallet.DownloadApplePass(c.Request.Context(), c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, filename, pkpassContentType, data)
}

// PushApple godoc
// @Summary Push an update to devices holding the Apple pass
// @Tags Wallet
// @Param serialNumber path string true "Pass serial number"
// @Success 204
// @Router /wallet/apple/push/{serialNumber} [post]
func (h *WalletHandler) PushApple(c *gin.Context) {
	if err := h.wallet.PushApplePass(c.Request.Context(), c.Param("serialNumber")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// IssueGoogle godoc
// @Summary Issue Google Wallet pass
// @Tags Wallet
// @Produce json
// @Param careerId path string true "Career code"
// @Param uniqueIdentifier path string true "Student identifier"
// @Success 200 {object} response.Envelope
// @Router /wallet/google/{careerId}/{uniqueIdentifier} [post]
func (h *WalletHandler) IssueGoogle(c *gin.Context) {
	resp, err := h.wallet.IssueGooglePass(c.Request.Context(), universityFromContext(c), passKeyFromPath(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, resp, nil)
}

// UpdateGoogle godoc
// @Summary Refresh Google Wallet object from the pass
// @Tags Wallet
// @Param careerId path string true "Career code"
// @Param uniqueIdentifier path string true "Student identifier"
// @Success 204
// @Router /wallet/google/{careerId}/{uniqueIdentifier} [put]
func (h *WalletHandler) UpdateGoogle(c *gin.Context) {
	if err := h.wallet.UpdateGooglePass(c.Request.Context(), universityFromContext(c), passKeyFromPath(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// CreateClass godoc
// @Summary Create Google Wallet generic class
// @Tags Wallet
// @Accept json
// @Produce json
// @Param payload body models.CreatePassClassRequest false "Class suffix"
// @Success 201 {object} response.Envelope
// @Router /wallet/google/classes [post]
func (h *WalletHandler) CreateClass(c *gin.Context) {
	var req models.CreatePassClassRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Invalid(err, "invalid payload"))
			return
		}
	}
	resp, err := h.wallet.CreateGooglePassClass(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, resp)
}
