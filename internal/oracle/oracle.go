// Package oracle is the thin HTTP client that exchanges a single blinded
// credential hash with the remote breach oracle and reports whether the
// oracle's response indicates a leak.
package oracle

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"

	"github.com/lkeld/leakcheck-core/internal/eccipher"
	"github.com/lkeld/leakcheck-core/internal/hashing"
	"github.com/lkeld/leakcheck-core/internal/matcheval"
	"github.com/lkeld/leakcheck-core/internal/oauthtoken"
	"github.com/lkeld/leakcheck-core/internal/oracleproto"
)

// usernameHashPrefixLength is fixed by the oracle's wire contract.
const usernameHashPrefixLength = 26

// Client talks to the breach oracle's single-lookup endpoint.
type Client struct {
	httpClient *http.Client
	tokens     *oauthtoken.Manager
	apiURL     string
	debugMode  bool
}

// New constructs an oracle client bound to apiURL, authenticating each
// request via tokens. debugMode mirrors the DEBUG_GOOGLE_API toggle: it
// logs the match evaluation at a more verbose level but uses the exact same
// decision logic as the non-debug path.
func New(apiURL string, tokens *oauthtoken.Manager) *Client {
	debugMode := strings.EqualFold(os.Getenv("DEBUG_GOOGLE_API"), "true")
	if debugMode {
		log.Printf("oracle: running in DEBUG mode")
	}
	return &Client{
		httpClient: &http.Client{},
		tokens:     tokens,
		apiURL:     apiURL,
		debugMode:  debugMode,
	}
}

// CheckCredential sends the blinded lookup hash for username to the oracle
// and reports whether the decrypted, re-encrypted response indicates the
// credential has been seen in a breach. cipher must be the same cipher
// instance used to produce encryptedLookupHash, so that Decrypt correctly
// removes the client's own blinding factor from the oracle's response.
func (c *Client) CheckCredential(ctx context.Context, username string, encryptedLookupHash []byte, cipher *eccipher.Cipher) (bool, error) {
	effective := hashing.EffectiveUsername(username)
	prefix := hashing.UsernameHashPrefix(effective)

	req := &oracleproto.LookupSingleLeakRequest{
		UsernameHashPrefix:       prefix[:],
		UsernameHashPrefixLength: usernameHashPrefixLength,
		EncryptedLookupHash:      encryptedLookupHash,
	}
	body := req.Marshal()

	token, err := c.tokens.GetToken(ctx)
	if err != nil {
		return false, fmt.Errorf("oracle: obtaining token: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(body))
	if err != nil {
		return false, fmt.Errorf("oracle: building request: %w", err)
	}
	httpReq.Header.Set("authorization", "Bearer "+token)
	httpReq.Header.Set("content-type", "application/x-protobuf")
	httpReq.Header.Set("user-agent", "Mozilla/5.0 (compatible; leakcheck-core)")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return false, fmt.Errorf("oracle: request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return false, fmt.Errorf("oracle: reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return false, fmt.Errorf("oracle: request failed with status %d: %s", resp.StatusCode, snippet(respBody))
	}

	parsed, err := oracleproto.Unmarshal(respBody)
	if err != nil {
		return false, fmt.Errorf("oracle: decoding response: %w: %s", err, snippet(respBody))
	}

	decrypted, err := cipher.Decrypt(parsed.ReencryptedLookupHash)
	if err != nil {
		return false, fmt.Errorf("oracle: decrypting reencrypted lookup hash: %w", err)
	}

	isLeaked := matcheval.IsLeaked(parsed.EncryptedLeakMatchPrefix, decrypted)

	if c.debugMode {
		log.Printf("oracle: debug check complete username=%q leaked=%v prefixes=%d", effective, isLeaked, len(parsed.EncryptedLeakMatchPrefix))
	}

	return isLeaked, nil
}

func snippet(body []byte) string {
	const max = 500
	s := string(body)
	if len(s) > max {
		return s[:max]
	}
	return s
}
