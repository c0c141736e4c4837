package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	pkgerrors "github.com/pkg/errors"
)

// Sentinel errors, checked with errors.Is by callers.
var (
	ErrSourceUnavailable = errors.New("catalog source unavailable")
	ErrUnauthorized      = errors.New("catalog source rejected credentials")
)

// Source describes where to load the raw catalog from: exactly one of
// Path or URL must be set.
type Source struct {
	Path string

	URL         string
	BearerToken string
	Username    string
	Password    string
}

// rawRecord is a loosely-typed feature entry as read off the wire, prior
// to FEATURE_NAME promotion.
type rawRecord map[string]json.RawMessage

// Load reads and normalizes raw feature records from a file or HTTP
// source (spec §4.1). Records lacking a resolvable name are dropped with
// a warning; the returned warnings slice records every skip.
func Load(ctx context.Context, logger log.Logger, src Source) ([]rawRecord, []string, error) {
	var (
		body []byte
		err  error
	)
	if src.Path != "" {
		body, err = os.ReadFile(src.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %s", ErrSourceUnavailable, err)
		}
	} else {
		body, err = fetchHTTP(ctx, logger, src)
		if err != nil {
			return nil, nil, err
		}
	}

	records, warnings, err := decodeShapes(body)
	if err != nil {
		return nil, warnings, fmt.Errorf("%w: %s", ErrSourceUnavailable, err)
	}
	return records, warnings, nil
}

// decodeShapes accepts the three shapes documented in spec §4.1: a list of
// records each carrying a name field, a list of single-key maps, or a
// top-level map of name -> config.
func decodeShapes(body []byte) ([]rawRecord, []string, error) {
	var asList []json.RawMessage
	if err := json.Unmarshal(body, &asList); err == nil {
		return decodeList(asList)
	}

	var asMap map[string]json.RawMessage
	if err := json.Unmarshal(body, &asMap); err == nil {
		return decodeMapShape(asMap)
	}

	return nil, nil, pkgerrors.New("catalog body is neither a JSON list nor a JSON object")
}

func decodeMapShape(asMap map[string]json.RawMessage) ([]rawRecord, []string, error) {
	records := make([]rawRecord, 0, len(asMap))
	var warnings []string
	for name, cfg := range asMap {
		rec, warn := decodeOneConfig(name, cfg)
		if warn != "" {
			warnings = append(warnings, warn)
			continue
		}
		records = append(records, rec)
	}
	return records, warnings, nil
}

func decodeList(asList []json.RawMessage) ([]rawRecord, []string, error) {
	records := make([]rawRecord, 0, len(asList))
	var warnings []string
	for _, item := range asList {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(item, &obj); err != nil {
			return nil, warnings, pkgerrors.Wrap(err, "decode catalog list entry")
		}

		if name := resolveName(obj); name != "" {
			rec := rawRecord(obj)
			rec["FEATURE_NAME"] = quoteJSON(name)
			records = append(records, rec)
			continue
		}

		// Single-key map: {name: config}.
		if len(obj) == 1 {
			for name, cfg := range obj {
				rec, warn := decodeOneConfig(name, cfg)
				if warn != "" {
					warnings = append(warnings, warn)
					continue
				}
				records = append(records, rec)
			}
			continue
		}

		warnings = append(warnings, "dropping catalog record with no resolvable name")
	}
	return records, warnings, nil
}

func decodeOneConfig(name string, cfg json.RawMessage) (rawRecord, string) {
	if strings.TrimSpace(name) == "" {
		return nil, "dropping catalog record with empty name"
	}
	var rec rawRecord
	if err := json.Unmarshal(cfg, &rec); err != nil {
		return nil, fmt.Sprintf("dropping catalog record %q: config is not an object: %s", name, err)
	}
	if rec == nil {
		rec = rawRecord{}
	}
	rec["FEATURE_NAME"] = quoteJSON(name)
	return rec, ""
}

// resolveName promotes feature_name|feature|name|FEATURE_NAME to a single
// resolved name, preferring FEATURE_NAME if already present.
func resolveName(obj map[string]json.RawMessage) string {
	for _, key := range []string{"FEATURE_NAME", "feature_name", "feature", "name"} {
		if raw, ok := obj[key]; ok {
			var s string
			if err := json.Unmarshal(raw, &s); err == nil && strings.TrimSpace(s) != "" {
				return s
			}
		}
	}
	return ""
}

func quoteJSON(s string) json.RawMessage {
	b, _ := json.Marshal(s)
	return b
}

// fetchHTTP performs the catalog HTTP GET, attempting authentication in
// the order spec §4.1/§6 specify: bearer, then form-based token exchange,
// then JSON login, then HTTP Basic. A 401/403 from any attempted method
// ends the chain and is reported as ErrUnauthorized; other failures move
// on to the next method.
func fetchHTTP(ctx context.Context, logger log.Logger, src Source) ([]byte, error) {
	client := &http.Client{Timeout: 30 * time.Second}

	attempt := func(configure func(*http.Request)) ([]byte, int, error) {
		reqCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, src.URL, nil)
		if err != nil {
			return nil, 0, err
		}
		configure(req)
		resp, err := retryingDo(client, req)
		if err != nil {
			return nil, 0, err
		}
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, resp.StatusCode, err
		}
		return body, resp.StatusCode, nil
	}

	if src.BearerToken != "" {
		body, status, err := attempt(func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer "+src.BearerToken)
		})
		if err == nil && status == http.StatusOK {
			return body, nil
		}
		if status == http.StatusUnauthorized || status == http.StatusForbidden {
			return nil, ErrUnauthorized
		}
		_ = level.Warn(logger).Log("msg", "bearer auth failed, trying form token exchange", "err", err, "status", status)
	}

	if src.Username != "" || src.Password != "" {
		if body, err := tokenExchangeAndFetch(ctx, client, src); err == nil {
			return body, nil
		} else if errors.Is(err, ErrUnauthorized) {
			return nil, err
		} else {
			_ = level.Warn(logger).Log("msg", "form token exchange failed, trying JSON login", "err", err)
		}

		if body, err := jsonLoginAndFetch(ctx, client, src); err == nil {
			return body, nil
		} else if errors.Is(err, ErrUnauthorized) {
			return nil, err
		} else {
			_ = level.Warn(logger).Log("msg", "JSON login failed, trying HTTP basic", "err", err)
		}
	}

	body, status, err := attempt(func(r *http.Request) {
		if src.Username != "" || src.Password != "" {
			r.SetBasicAuth(src.Username, src.Password)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrSourceUnavailable, err)
	}
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		return nil, ErrUnauthorized
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("%w: catalog endpoint returned status %d", ErrSourceUnavailable, status)
	}
	return body, nil
}

func tokenExchangeAndFetch(ctx context.Context, client *http.Client, src Source) ([]byte, error) {
	base := strings.TrimRight(src.URL, "/")
	form := url.Values{
		"grant_type": {"password"},
		"username":   {src.Username},
		"password":   {src.Password},
	}
	tokenURL := tokenEndpoint(base)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, ErrUnauthorized
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("token endpoint returned status %d", resp.StatusCode)
	}

	var tok struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return nil, pkgerrors.Wrap(err, "decode token response")
	}
	if tok.AccessToken == "" {
		return nil, errors.New("token endpoint returned no access_token")
	}

	catalogReq, err := http.NewRequestWithContext(ctx, http.MethodGet, src.URL, nil)
	if err != nil {
		return nil, err
	}
	catalogReq.Header.Set("Authorization", strings.TrimSpace(tok.TokenType+" "+tok.AccessToken))
	catalogResp, err := client.Do(catalogReq)
	if err != nil {
		return nil, err
	}
	defer catalogResp.Body.Close()
	if catalogResp.StatusCode == http.StatusUnauthorized || catalogResp.StatusCode == http.StatusForbidden {
		return nil, ErrUnauthorized
	}
	if catalogResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("catalog endpoint returned status %d", catalogResp.StatusCode)
	}
	return io.ReadAll(catalogResp.Body)
}

func jsonLoginAndFetch(ctx context.Context, client *http.Client, src Source) ([]byte, error) {
	base := strings.TrimRight(src.URL, "/")
	loginBody, _ := json.Marshal(map[string]string{
		"username": src.Username,
		"password": src.Password,
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, loginEndpoint(base), bytes.NewReader(loginBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	jar := newCookieJar()
	client.Jar = jar

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, ErrUnauthorized
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("login endpoint returned status %d", resp.StatusCode)
	}

	catalogReq, err := http.NewRequestWithContext(ctx, http.MethodGet, src.URL, nil)
	if err != nil {
		return nil, err
	}
	catalogResp, err := client.Do(catalogReq)
	if err != nil {
		return nil, err
	}
	defer catalogResp.Body.Close()
	if catalogResp.StatusCode == http.StatusUnauthorized || catalogResp.StatusCode == http.StatusForbidden {
		return nil, ErrUnauthorized
	}
	if catalogResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("catalog endpoint returned status %d", catalogResp.StatusCode)
	}
	return io.ReadAll(catalogResp.Body)
}

func tokenEndpoint(base string) string { return base + "/token" }
func loginEndpoint(base string) string { return base + "/auth/login" }

func newCookieJar() *cookiejar.Jar {
	jar, _ := cookiejar.New(nil)
	return jar
}

// retryingDo retries a transport-level failure once after a fixed 1s
// backoff, per SPEC_FULL.md §4.1.
func retryingDo(client *http.Client, req *http.Request) (*http.Response, error) {
	resp, err := client.Do(req)
	if err == nil {
		return resp, nil
	}
	time.Sleep(1 * time.Second)
	return client.Do(req.Clone(req.Context()))
}
