// Package custody talks to the custodial key-management service: it opens
// credential bundles, stamps API requests and signs through remote wallets.
package custody

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"gorecovery/logger"

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
)

const (
	pathListWallets        = "/public/v1/query/list_wallets"
	pathListWalletAccounts = "/public/v1/query/list_wallet_accounts"
	pathSignRawPayload     = "/public/v1/submit/sign_raw_payload"

	activitySignRawPayload = "ACTIVITY_TYPE_SIGN_RAW_PAYLOAD_V2"
	activityCompleted      = "ACTIVITY_STATUS_COMPLETED"
)

type Wallet struct {
	WalletID   string `json:"walletId"`
	WalletName string `json:"walletName"`
}

type WalletAccount struct {
	Address        string `json:"address"`
	AddressFormat  string `json:"addressFormat"`
	WalletID       string `json:"walletId"`
	OrganizationID string `json:"organizationId"`
	Path           string `json:"path"`
}

type RawSignature struct {
	R string `json:"r"`
	S string `json:"s"`
	V string `json:"v"`
}

type Client struct {
	baseURL string
	http    *retryablehttp.Client
	now     func() time.Time
}

// NewClient returns a client for the service at baseURL. A nil httpClient
// gets a retrying client logging through zap.
func NewClient(baseURL string, httpClient *retryablehttp.Client) *Client {
	if httpClient == nil {
		httpClient = retryablehttp.NewClient()
		httpClient.RetryMax = 3
		httpClient.RetryWaitMin = 200 * time.Millisecond
		httpClient.RetryWaitMax = 2 * time.Second
		httpClient.HTTPClient.Timeout = 15 * time.Second
		httpClient.Logger = logger.NewLeveled()
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient, now: time.Now}
}

func (c *Client) post(ctx context.Context, stamper *Stamper, path string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	stampValue, err := stamper.Stamp(payload)
	if err != nil {
		return err
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, payload)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(StampHeader, stampValue)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("custodial api %s: %w", path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Path: path, Status: resp.StatusCode}
		var parsed struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		}
		if json.Unmarshal(raw, &parsed) == nil && parsed.Message != "" {
			apiErr.Code, apiErr.Message = parsed.Code, parsed.Message
		} else {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		return apiErr
	}

	return json.NewDecoder(bytes.NewReader(raw)).Decode(out)
}

func (c *Client) ListWallets(ctx context.Context, stamper *Stamper, organizationID string) ([]Wallet, error) {
	var resp struct {
		Wallets []Wallet `json:"wallets"`
	}
	err := c.post(ctx, stamper, pathListWallets, map[string]string{"organizationId": organizationID}, &resp)
	return resp.Wallets, err
}

func (c *Client) ListWalletAccounts(ctx context.Context, stamper *Stamper, organizationID, walletID string) ([]WalletAccount, error) {
	var resp struct {
		Accounts []WalletAccount `json:"accounts"`
	}
	err := c.post(ctx, stamper, pathListWalletAccounts, map[string]string{
		"organizationId": organizationID,
		"walletId":       walletID,
	}, &resp)
	return resp.Accounts, err
}

// ResolveAccount picks the first account of the organization's first wallet.
func (c *Client) ResolveAccount(ctx context.Context, stamper *Stamper, organizationID string) (WalletAccount, error) {
	wallets, err := c.ListWallets(ctx, stamper, organizationID)
	if err != nil {
		return WalletAccount{}, err
	}
	if len(wallets) == 0 {
		return WalletAccount{}, fmt.Errorf("%w: organization %s", ErrNoWalletFound, organizationID)
	}

	accounts, err := c.ListWalletAccounts(ctx, stamper, organizationID, wallets[0].WalletID)
	if err != nil {
		return WalletAccount{}, err
	}
	if len(accounts) == 0 {
		return WalletAccount{}, fmt.Errorf("%w: wallet %s has no accounts", ErrNoWalletFound, wallets[0].WalletID)
	}
	logger.Debug("resolved custodial wallet",
		zap.String("organizationId", organizationID),
		zap.String("walletId", wallets[0].WalletID),
		zap.String("address", accounts[0].Address))
	return accounts[0], nil
}

// SignRawPayload signs an already hashed hex payload with the key behind
// signWith.
func (c *Client) SignRawPayload(ctx context.Context, stamper *Stamper, organizationID, signWith, payloadHex string) (RawSignature, error) {
	body := map[string]interface{}{
		"type":           activitySignRawPayload,
		"timestampMs":    strconv.FormatInt(c.now().UnixMilli(), 10),
		"organizationId": organizationID,
		"parameters": map[string]string{
			"signWith":     signWith,
			"payload":      payloadHex,
			"encoding":     "PAYLOAD_ENCODING_HEXADECIMAL",
			"hashFunction": "HASH_FUNCTION_NO_OP",
		},
	}
	var resp struct {
		Activity struct {
			ID     string `json:"id"`
			Status string `json:"status"`
			Result struct {
				SignRawPayloadResult *RawSignature `json:"signRawPayloadResult"`
			} `json:"result"`
		} `json:"activity"`
	}
	if err := c.post(ctx, stamper, pathSignRawPayload, body, &resp); err != nil {
		return RawSignature{}, err
	}
	if resp.Activity.Status != activityCompleted || resp.Activity.Result.SignRawPayloadResult == nil {
		return RawSignature{}, fmt.Errorf("sign activity %s not completed: %s", resp.Activity.ID, resp.Activity.Status)
	}
	return *resp.Activity.Result.SignRawPayloadResult, nil
}
